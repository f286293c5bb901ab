// Package adapter holds the source-adapter contract and its registry.
// Adapters turn a candidate URL into an in-memory artifact draft plus a list
// of suggested relations; the registry probes them in registration order and
// the first claimant wins.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Masterminds/semver/v3"

	"github.com/cairnhub/cairn/pkg/model"
)

// ErrAdapterNotFound means no registered adapter claims a URL.
var ErrAdapterNotFound = errors.New("adapter: no adapter claims URL")

// Suggested is one relation an adapter proposes from its draft to another
// URL. The resolver expands these into provisional candidate edges.
type Suggested struct {
	Relation model.Relation
	URL      string
}

// SourceAdapter imports one class of source (a code host, a DOI resolver, a
// conference page). Drafts are in-memory artifacts, not yet persisted.
type SourceAdapter interface {
	Name() string
	Version() string
	CanHandle(url string) bool
	ImportArtifact(ctx context.Context, url string) (*model.Artifact, []Suggested, error)
}

// Registry is the ordered adapter list, constructed at startup and passed by
// reference. When two registrations share a name, the newer semantic version
// wins and keeps the original's position.
type Registry struct {
	ordered []SourceAdapter
	log     *slog.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{log: slog.With("component", "adapter")}
}

// Register appends a. If an adapter with the same name exists, the one with
// the higher version replaces it in place; an unparsable version loses.
func (r *Registry) Register(a SourceAdapter) {
	for i, existing := range r.ordered {
		if existing.Name() != a.Name() {
			continue
		}
		if newerVersion(a.Version(), existing.Version()) {
			r.ordered[i] = a
		} else {
			r.log.Warn("keeping newer adapter version",
				"adapter", a.Name(), "kept", existing.Version(), "rejected", a.Version())
		}
		return
	}
	r.ordered = append(r.ordered, a)
}

// Lookup probes adapters in order and returns the first that claims url. A
// panic inside a probe is caught and logged, never propagated.
func (r *Registry) Lookup(url string) (SourceAdapter, error) {
	for _, a := range r.ordered {
		if r.probe(a, url) {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrAdapterNotFound, url)
}

func (r *Registry) probe(a SourceAdapter, url string) (claimed bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("adapter probe panicked", "adapter", a.Name(), "url", url, "panic", rec)
			claimed = false
		}
	}()
	return a.CanHandle(url)
}

func newerVersion(candidate, incumbent string) bool {
	cv, err := semver.NewVersion(candidate)
	if err != nil {
		return false
	}
	iv, err := semver.NewVersion(incumbent)
	if err != nil {
		return true
	}
	return cv.GreaterThan(iv)
}
