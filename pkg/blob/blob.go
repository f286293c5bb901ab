// Package blob is the content-addressed store for retrieved file bytes.
// Identity lives in the file_content table, keyed by SHA-256 digest; the
// payload lives either inline in the row or in an external backend. Blobs
// are immutable: the same bytes always resolve to the same row.
package blob

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cairnhub/cairn/pkg/model"
	"github.com/cairnhub/cairn/pkg/store"
)

// Backend stores payload bytes outside the database, keyed by hex digest.
// A nil Backend keeps payloads inline in the file_content row.
type Backend interface {
	Store(ctx context.Context, digest string, data []byte) error
	Open(ctx context.Context, digest string) ([]byte, error)
}

const digestCacheSize = 4096

// Store deduplicates file content by digest. Safe for concurrent use when
// each goroutine brings its own transaction.
type Store struct {
	backend Backend
	cache   *lru.Cache[string, int64]
	log     *slog.Logger
}

// New builds a blob store over the given payload backend. Pass nil to keep
// payloads inline in the database.
func New(backend Backend) *Store {
	cache, _ := lru.New[string, int64](digestCacheSize)
	return &Store{
		backend: backend,
		cache:   cache,
		log:     slog.With("component", "blob"),
	}
}

// Put persists data inside tx and returns the identity row. Byte-identical
// content already in the store resolves to the existing row; concurrent
// inserts of the same digest converge on one row via the unique constraint.
func (s *Store) Put(ctx context.Context, tx *store.Tx, data []byte) (*model.FileContent, error) {
	digest := model.ContentDigest(data)
	key := hex.EncodeToString(digest)

	fc := &model.FileContent{Digest: digest, Size: int64(len(data))}
	if s.backend == nil {
		fc.Content = data
	}

	if id, ok := s.cache.Get(key); ok {
		fc.ID = id
		return fc, nil
	}

	var inline any
	if s.backend == nil {
		inline = data
	}
	row := tx.QueryRow(ctx,
		"INSERT INTO file_content (hash, size, content) VALUES (?, ?, ?) ON CONFLICT(hash) DO NOTHING RETURNING id",
		digest, fc.Size, inline)
	err := row.Scan(&fc.ID)
	switch {
	case err == nil:
		// New row; push the payload out if a backend is configured.
		if s.backend != nil {
			if berr := s.backend.Store(ctx, key, data); berr != nil {
				return nil, fmt.Errorf("blob: store payload %s: %w", key, berr)
			}
		}
		s.log.Debug("blob stored", "digest", key, "size", fc.Size)
	case errors.Is(err, sql.ErrNoRows):
		// Digest already present; look the row up.
		lookup := tx.QueryRow(ctx, "SELECT id FROM file_content WHERE hash = ?", digest)
		if err := lookup.Scan(&fc.ID); err != nil {
			return nil, fmt.Errorf("blob: lookup %s after conflict: %w", key, err)
		}
	default:
		return nil, fmt.Errorf("blob: insert %s: %w", key, err)
	}

	s.cache.Add(key, fc.ID)
	return fc, nil
}

// FindByDigest returns the identity row for a digest, or nil if the content
// has never been stored.
func (s *Store) FindByDigest(ctx context.Context, st *store.Store, digest []byte) (*model.FileContent, error) {
	key := hex.EncodeToString(digest)
	fc := &model.FileContent{Digest: digest}
	row := st.DB().QueryRowContext(ctx,
		st.Rebind("SELECT id, size FROM file_content WHERE hash = ?"), digest)
	err := row.Scan(&fc.ID, &fc.Size)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("blob: find %s: %w", key, err)
	}
	s.cache.Add(key, fc.ID)
	return fc, nil
}

// Open returns the payload bytes for a stored blob.
func (s *Store) Open(ctx context.Context, st *store.Store, fc *model.FileContent) ([]byte, error) {
	if fc.Content != nil {
		return fc.Content, nil
	}
	key := hex.EncodeToString(fc.Digest)
	if s.backend != nil {
		data, err := s.backend.Open(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("blob: open payload %s: %w", key, err)
		}
		return data, nil
	}
	var data []byte
	row := st.DB().QueryRowContext(ctx,
		st.Rebind("SELECT content FROM file_content WHERE id = ?"), fc.ID)
	if err := row.Scan(&data); err != nil {
		return nil, fmt.Errorf("blob: open %s: %w", key, err)
	}
	return data, nil
}
