package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ImportProfile is a named YAML preset tuning one class of import runs
// (e.g. a profile for large dataset mirrors, one for quick metadata-only
// passes). Profiles override the environment configuration per run.
type ImportProfile struct {
	Name           string   `yaml:"name" json:"name"`
	Code           string   `yaml:"code" json:"code"`
	MaxFileBytes   int64    `yaml:"max_file_bytes,omitempty" json:"max_file_bytes,omitempty"`
	NoFetch        bool     `yaml:"nofetch,omitempty" json:"nofetch,omitempty"`
	NoExtract      bool     `yaml:"noextract,omitempty" json:"noextract,omitempty"`
	NoRemove       bool     `yaml:"noremove,omitempty" json:"noremove,omitempty"`
	NoFollow       bool     `yaml:"nofollow,omitempty" json:"nofollow,omitempty"`
	SkipExtractors []string `yaml:"skip_extractors,omitempty" json:"skip_extractors,omitempty"`
	RatePerSecond  float64  `yaml:"rate_per_second,omitempty" json:"rate_per_second,omitempty"`
	RateBurst      int      `yaml:"rate_burst,omitempty" json:"rate_burst,omitempty"`
}

// LoadProfile loads an import profile YAML by code. It searches the
// profiles directory for profile_<code>.yaml.
func LoadProfile(profilesDir, code string) (*ImportProfile, error) {
	code = strings.ToLower(code)
	path := filepath.Join(profilesDir, fmt.Sprintf("profile_%s.yaml", code))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load profile %q: %w", code, err)
	}

	var profile ImportProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("parse profile %q: %w", code, err)
	}

	if profile.Code == "" {
		profile.Code = code
	}
	return &profile, nil
}

// LoadAllProfiles loads all profile_*.yaml files from the profiles
// directory, keyed by code.
func LoadAllProfiles(profilesDir string) (map[string]*ImportProfile, error) {
	matches, err := filepath.Glob(filepath.Join(profilesDir, "profile_*.yaml"))
	if err != nil {
		return nil, err
	}

	profiles := make(map[string]*ImportProfile, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		var profile ImportProfile
		if err := yaml.Unmarshal(data, &profile); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}

		if profile.Code == "" {
			base := filepath.Base(path)
			profile.Code = strings.TrimSuffix(strings.TrimPrefix(base, "profile_"), ".yaml")
		}
		profiles[profile.Code] = &profile
	}
	return profiles, nil
}

// Apply folds the profile's overrides into cfg.
func (p *ImportProfile) Apply(cfg *Config) {
	if p.MaxFileBytes > 0 {
		cfg.MaxFileBytes = p.MaxFileBytes
	}
}
