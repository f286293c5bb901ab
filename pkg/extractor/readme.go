// Package extractor holds the built-in extractors run by the import
// pipeline. Heavy parsing stays in collaborators; these only move text into
// the session corpus and the blob store.
package extractor

import (
	"context"
	"path"
	"strings"

	"github.com/cairnhub/cairn/pkg/importsession"
	"github.com/cairnhub/cairn/pkg/store"
)

// Readme finds top-level README members in retrieved container files,
// persists their bytes, and adds the text to the session corpus keyed by
// (file, member) so later extractors never index it twice.
type Readme struct{}

// NewReadme returns the extractor.
func NewReadme() *Readme { return &Readme{} }

func (r *Readme) Name() string { return "readme" }

func (r *Readme) Extract(ctx context.Context, tx *store.Tx, s *importsession.Session) error {
	var firstErr error
	for i, rf := range s.Retrieved {
		if rf == nil {
			continue
		}
		f := s.Artifact.Files[i]
		for _, m := range f.Members {
			if !readmeLike(m.Pathname) {
				continue
			}
			member, data, err := s.StoreMember(ctx, tx, i, m.Pathname)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			s.AddText(importsession.CorpusKey{File: f.URL, Member: member.Pathname}, string(data))
		}
	}
	return firstErr
}

// readmeLike matches top-level README files only; vendored copies deeper in
// a tree are noise.
func readmeLike(pathname string) bool {
	if strings.Contains(pathname, "/") {
		return false
	}
	return strings.HasPrefix(strings.ToLower(path.Base(pathname)), "readme")
}
