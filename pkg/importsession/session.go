// Package importsession runs the per-artifact pipeline: retrieve declared
// files into an ephemeral workspace, accumulate a source-keyed text corpus,
// run extractors, reclaim the workspace, and finalize required fields. A
// session is never persisted; it coordinates exactly one artifact's run.
package importsession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cairnhub/cairn/pkg/blob"
	"github.com/cairnhub/cairn/pkg/model"
	"github.com/cairnhub/cairn/pkg/retrieve"
	"github.com/cairnhub/cairn/pkg/store"
)

// Extractor derives metadata (keywords, licenses, readme text) from a
// session's retrieved files. Implementations may read and write the
// session's artifact.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, tx *store.Tx, s *Session) error
}

// Extractors is the ordered extractor list, built at startup.
type Extractors struct {
	ordered []Extractor
}

// NewExtractors returns a registry running the given extractors in order.
func NewExtractors(extractors ...Extractor) *Extractors {
	return &Extractors{ordered: extractors}
}

// CorpusKey identifies one text source: an artifact field, or a member of a
// retrieved file.
type CorpusKey struct {
	Field  string
	File   string
	Member string
}

// CorpusEntry is one de-duplicated text in insertion order.
type CorpusEntry struct {
	Key  CorpusKey
	Text string
}

// Session is the ephemeral coordinator for one artifact's pipeline run.
type Session struct {
	ID       int64
	Dir      string
	Artifact *model.Artifact

	// Retrieved is index-aligned with Artifact.Files; nil marks a file
	// whose retrieval failed.
	Retrieved []*retrieve.File
	// Failures records per-file retrieval errors by file index.
	Failures map[int]error

	retrievers *retrieve.Registry
	blobs      *blob.Store
	extractors *Extractors
	maxBytes   int64
	log        *slog.Logger

	corpus    map[CorpusKey]string
	corpusSeq []CorpusKey
	finalized bool
}

// New allocates a workspace from the journal and seeds the corpus with the
// artifact's title and description.
func New(artifact *model.Artifact, j *Journal, retrievers *retrieve.Registry, blobs *blob.Store, extractors *Extractors, maxBytes int64) (*Session, error) {
	id, dir, err := j.Allocate()
	if err != nil {
		return nil, err
	}
	s := &Session{
		ID:         id,
		Dir:        dir,
		Artifact:   artifact,
		Retrieved:  make([]*retrieve.File, len(artifact.Files)),
		Failures:   make(map[int]error),
		retrievers: retrievers,
		blobs:      blobs,
		extractors: extractors,
		maxBytes:   maxBytes,
		log:        slog.With("component", "importsession", "session", id),
	}
	s.corpus = make(map[CorpusKey]string)
	if artifact.Title != "" {
		s.AddText(CorpusKey{Field: "title"}, artifact.Title)
	}
	if artifact.Description != "" {
		s.AddText(CorpusKey{Field: "description"}, artifact.Description)
	}
	return s, nil
}

// AddText records text under key. A duplicate key is a no-op, so the same
// source is never indexed twice even when multiple extractors request it.
// Reports whether the entry was added.
func (s *Session) AddText(key CorpusKey, text string) bool {
	if _, ok := s.corpus[key]; ok {
		return false
	}
	s.corpus[key] = text
	s.corpusSeq = append(s.corpusSeq, key)
	return true
}

// Corpus returns the accumulated texts in insertion order.
func (s *Session) Corpus() []CorpusEntry {
	out := make([]CorpusEntry, len(s.corpusSeq))
	for i, k := range s.corpusSeq {
		out[i] = CorpusEntry{Key: k, Text: s.corpus[k]}
	}
	return out
}

// CorpusLen returns the number of distinct corpus entries.
func (s *Session) CorpusLen() int { return len(s.corpusSeq) }

// Indexed reports whether key already has corpus text.
func (s *Session) Indexed(key CorpusKey) bool {
	_, ok := s.corpus[key]
	return ok
}

// RetrieveAll fetches every declared file into a per-file workspace
// subdirectory, addressed by the file's position index, and persists the
// bytes through the blob store. One file's failure is recorded and does not
// abort the others.
func (s *Session) RetrieveAll(ctx context.Context, tx *store.Tx) error {
	ref, _ := s.Artifact.MetaValue("ref")
	for i, f := range s.Artifact.Files {
		sub := filepath.Join(s.Dir, strconv.Itoa(i))
		if err := os.MkdirAll(sub, 0755); err != nil {
			return fmt.Errorf("importsession: create file workspace: %w", err)
		}
		rf, err := s.retrievers.Fetch(ctx, retrieve.Request{
			URL:      f.URL,
			FileType: f.FileType,
			Dest:     sub,
			MaxBytes: s.maxBytes,
			Ref:      ref,
		})
		if err != nil {
			s.Failures[i] = err
			s.log.Warn("retrieval failed", "url", f.URL, "error", err)
			continue
		}
		s.Retrieved[i] = rf

		if f.Name == "" {
			f.Name = rf.Name
		}
		f.FileType = rf.FileType
		f.Size = rf.Size
		now := time.Now().UTC()
		f.MTime = &now

		if err := s.ingest(ctx, tx, i, f, rf); err != nil {
			s.Failures[i] = err
			s.Retrieved[i] = nil
			s.log.Warn("ingest failed", "url", f.URL, "error", err)
		}
	}
	return nil
}

// ingest stores the retrieved bytes. Container formats get member rows
// instead of a whole-object blob; member payloads are stored on demand by
// extractors via StoreMember.
func (s *Session) ingest(ctx context.Context, tx *store.Tx, idx int, f *model.ArtifactFile, rf *retrieve.File) error {
	entries, err := retrieve.ListMembers(rf)
	if errors.Is(err, retrieve.ErrNotContainer) {
		data, rerr := os.ReadFile(rf.Path)
		if rerr != nil {
			return fmt.Errorf("importsession: read retrieved file: %w", rerr)
		}
		fc, perr := s.blobs.Put(ctx, tx, data)
		if perr != nil {
			return perr
		}
		f.FileContentID = fc.ID
		return nil
	}
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, e := range entries {
		f.Members = append(f.Members, &model.ArtifactFileMember{
			Pathname: e.Pathname,
			Name:     filepath.Base(e.Pathname),
			Size:     e.Size,
			MTime:    &now,
		})
	}
	return nil
}

// StoreMember persists one container member's bytes through the blob store
// and returns them. The member row must already exist on the file.
func (s *Session) StoreMember(ctx context.Context, tx *store.Tx, idx int, pathname string) (*model.ArtifactFileMember, []byte, error) {
	if idx < 0 || idx >= len(s.Retrieved) || s.Retrieved[idx] == nil {
		return nil, nil, fmt.Errorf("importsession: no retrieved file at index %d", idx)
	}
	f := s.Artifact.Files[idx]
	var member *model.ArtifactFileMember
	for _, m := range f.Members {
		if m.Pathname == pathname {
			member = m
			break
		}
	}
	if member == nil {
		return nil, nil, fmt.Errorf("importsession: no member %s in %s", pathname, f.URL)
	}
	data, err := retrieve.ReadMember(s.Retrieved[idx], pathname)
	if err != nil {
		return nil, nil, err
	}
	fc, err := s.blobs.Put(ctx, tx, data)
	if err != nil {
		return nil, nil, err
	}
	member.FileContentID = fc.ID
	member.Size = fc.Size
	return member, data, nil
}

// ExtractAll runs each registered extractor in order, skipping names in
// skip. Each call is isolated: an error or panic in one extractor never
// aborts the rest.
func (s *Session) ExtractAll(ctx context.Context, tx *store.Tx, skip []string) {
	skipped := make(map[string]bool, len(skip))
	for _, name := range skip {
		skipped[name] = true
	}
	for _, e := range s.extractors.ordered {
		if skipped[e.Name()] {
			continue
		}
		s.runOne(ctx, tx, e)
	}
}

func (s *Session) runOne(ctx context.Context, tx *store.Tx, e Extractor) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("extractor panicked", "extractor", e.Name(), "panic", r)
		}
	}()
	if err := e.Extract(ctx, tx, s); err != nil {
		s.log.Warn("extractor failed", "extractor", e.Name(), "error", err)
	}
}

// RemoveAll deletes the whole session workspace tree. Idempotent.
func (s *Session) RemoveAll() error {
	if err := os.RemoveAll(s.Dir); err != nil {
		return fmt.Errorf("importsession: remove workspace: %w", err)
	}
	return nil
}

// Finalize fills unavoidable required fields once, after extraction and
// before persistence: title falls back to name, then to the URL.
func (s *Session) Finalize() {
	if s.finalized {
		return
	}
	s.finalized = true
	if s.Artifact.Title == "" {
		if s.Artifact.Name != "" {
			s.Artifact.Title = s.Artifact.Name
		} else {
			s.Artifact.Title = s.Artifact.URL
		}
	}
}
