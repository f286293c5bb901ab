package importsession

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

const journalFile = ".last_sessionid"

// Journal allocates monotonically increasing session ids backed by a counter
// file under the workspace root. Allocation skips any id whose workspace
// directory already exists, so stale directories left by a crash never get
// reused.
type Journal struct {
	root string
	mu   sync.Mutex
}

// NewJournal ensures the workspace root exists.
func NewJournal(root string) (*Journal, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("importsession: ensure workspace root: %w", err)
	}
	return &Journal{root: root}, nil
}

// Allocate returns the next free session id and its created workspace
// directory. Ids are strictly increasing across the life of the journal
// file; two allocations never return the same id.
func (j *Journal) Allocate() (int64, string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	last, err := j.read()
	if err != nil {
		return 0, "", err
	}
	id := last
	var dir string
	for {
		id++
		dir = filepath.Join(j.root, strconv.FormatInt(id, 10))
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			break
		}
	}
	if err := os.Mkdir(dir, 0755); err != nil {
		return 0, "", fmt.Errorf("importsession: create workspace %s: %w", dir, err)
	}
	if err := j.write(id); err != nil {
		os.Remove(dir)
		return 0, "", err
	}
	return id, dir, nil
}

func (j *Journal) read() (int64, error) {
	b, err := os.ReadFile(filepath.Join(j.root, journalFile))
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("importsession: read journal: %w", err)
	}
	n, err := strconv.ParseInt(strings.TrimSpace(string(b)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("importsession: corrupt journal: %w", err)
	}
	return n, nil
}

func (j *Journal) write(id int64) error {
	path := filepath.Join(j.root, journalFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(strconv.FormatInt(id, 10)+"\n"), 0644); err != nil {
		return fmt.Errorf("importsession: write journal: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("importsession: commit journal: %w", err)
	}
	return nil
}
