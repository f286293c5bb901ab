package extractor

import (
	"context"
	"strings"

	"github.com/cairnhub/cairn/pkg/importsession"
	"github.com/cairnhub/cairn/pkg/store"
)

// license phrases to SPDX short names; first match on the file's opening
// lines wins.
var licenseMarkers = []struct {
	marker string
	spdx   string
}{
	{"mit license", "MIT"},
	{"apache license, version 2.0", "Apache-2.0"},
	{"apache license version 2.0", "Apache-2.0"},
	{"gnu general public license", "GPL-3.0-only"},
	{"bsd 3-clause", "BSD-3-Clause"},
	{"bsd 2-clause", "BSD-2-Clause"},
	{"mozilla public license", "MPL-2.0"},
}

// License finds a top-level LICENSE member and stamps the artifact's license
// when the text matches a known marker. The artifact keeps no license at all
// when nothing matches; guessing would be worse than silence.
type License struct{}

// NewLicense returns the extractor.
func NewLicense() *License { return &License{} }

func (l *License) Name() string { return "license" }

func (l *License) Extract(ctx context.Context, tx *store.Tx, s *importsession.Session) error {
	if s.Artifact.LicenseID != 0 {
		return nil
	}
	for i, rf := range s.Retrieved {
		if rf == nil {
			continue
		}
		f := s.Artifact.Files[i]
		for _, m := range f.Members {
			if !licenseLike(m.Pathname) {
				continue
			}
			_, data, err := s.StoreMember(ctx, tx, i, m.Pathname)
			if err != nil {
				return err
			}
			spdx := matchLicense(string(data))
			if spdx == "" {
				continue
			}
			lic, err := tx.EnsureLicense(ctx, spdx)
			if err != nil {
				return err
			}
			s.Artifact.LicenseID = lic.ID
			s.Artifact.License = lic
			return nil
		}
	}
	return nil
}

func licenseLike(pathname string) bool {
	if strings.Contains(pathname, "/") {
		return false
	}
	lower := strings.ToLower(pathname)
	return strings.HasPrefix(lower, "license") || strings.HasPrefix(lower, "copying")
}

func matchLicense(text string) string {
	head := strings.ToLower(text)
	if len(head) > 2048 {
		head = head[:2048]
	}
	for _, lm := range licenseMarkers {
		if strings.Contains(head, lm.marker) {
			return lm.spdx
		}
	}
	return ""
}
