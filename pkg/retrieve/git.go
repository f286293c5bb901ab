package retrieve

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// GitStrategy clones repository sources with the system git binary. The
// request URL is the clone URL; Ref, when set, is checked out after the
// clone. Claimed either by the declared file type or by a .git suffix.
type GitStrategy struct{}

// NewGitStrategy returns the strategy.
func NewGitStrategy() *GitStrategy { return &GitStrategy{} }

func (s *GitStrategy) Name() string { return "git" }

func (s *GitStrategy) CanRetrieve(rawURL, fileType string) bool {
	if fileType == "application/x-git" {
		return true
	}
	return strings.HasSuffix(rawURL, ".git") || strings.HasPrefix(rawURL, "git://")
}

func (s *GitStrategy) Fetch(ctx context.Context, req Request) (*File, error) {
	// ls-remote validates reachability before committing to a full clone.
	probe := exec.CommandContext(ctx, "git", "ls-remote", "--exit-code", req.URL, "HEAD")
	probe.Stdout = nil
	if out, err := probe.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("retrieve: git ls-remote %s: %w (%s)", req.URL, err, strings.TrimSpace(string(out)))
	}

	dest := filepath.Join(req.Dest, repoName(req.URL))
	clone := exec.CommandContext(ctx, "git", "clone", req.URL, dest)
	if out, err := clone.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("retrieve: git clone %s: %w (%s)", req.URL, err, strings.TrimSpace(string(out)))
	}

	if req.Ref != "" {
		checkout := exec.CommandContext(ctx, "git", "-C", dest, "checkout", req.Ref)
		if out, err := checkout.CombinedOutput(); err != nil {
			os.RemoveAll(dest)
			return nil, fmt.Errorf("retrieve: git checkout %s@%s: %w (%s)", req.URL, req.Ref, err, strings.TrimSpace(string(out)))
		}
	}

	size, err := treeSize(dest)
	if err != nil {
		return nil, err
	}
	if req.MaxBytes > 0 && size > req.MaxBytes {
		os.RemoveAll(dest)
		return nil, fmt.Errorf("%w: clone of %s is %d bytes, cap %d", ErrTooLarge, req.URL, size, req.MaxBytes)
	}

	countBytes(ctx, s.Name(), size)
	return &File{
		URL:      req.URL,
		Path:     dest,
		Name:     repoName(req.URL),
		FileType: "application/x-git",
		Size:     size,
	}, nil
}

func repoName(rawURL string) string {
	name := rawURL[strings.LastIndex(rawURL, "/")+1:]
	return strings.TrimSuffix(name, ".git")
}

// treeSize sums regular file sizes under root, skipping the .git metadata
// directory.
func treeSize(root string) (int64, error) {
	var total int64
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() && info.Name() == ".git" {
			return filepath.SkipDir
		}
		if info.Mode().IsRegular() {
			total += info.Size()
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("retrieve: measure clone: %w", err)
	}
	return total, nil
}
