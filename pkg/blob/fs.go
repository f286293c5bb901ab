package blob

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// FSBackend keeps payloads as files named by digest under a base directory.
type FSBackend struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFSBackend creates the payload directory if needed.
func NewFSBackend(baseDir string) (*FSBackend, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("blob: ensure payload dir: %w", err)
	}
	return &FSBackend{baseDir: baseDir}, nil
}

// Store writes data under its digest. Idempotent: an existing payload file
// is left untouched. The write goes to a temp file first so a crash never
// leaves a half-written payload at the final path.
func (b *FSBackend) Store(ctx context.Context, digest string, data []byte) error {
	if _, err := hex.DecodeString(digest); err != nil {
		return fmt.Errorf("blob: invalid digest %q: %w", digest, err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	path := filepath.Join(b.baseDir, digest+".blob")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("blob: write payload: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("blob: commit payload: %w", err)
	}
	return nil
}

// Open reads the payload for a digest.
func (b *FSBackend) Open(ctx context.Context, digest string) ([]byte, error) {
	if _, err := hex.DecodeString(digest); err != nil {
		return nil, fmt.Errorf("blob: invalid digest %q: %w", digest, err)
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	f, err := os.Open(filepath.Join(b.baseDir, digest+".blob"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("blob: payload not found: %s", digest)
		}
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
