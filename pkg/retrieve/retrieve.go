// Package retrieve fetches declared artifact files into a session workspace.
// Strategies are probed in registration order; the first one that claims a
// URL performs the fetch under the configured byte cap.
package retrieve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrTooLarge aborts a single file's retrieval when the byte cap is
// exceeded. The session records it and continues with the next file.
var ErrTooLarge = errors.New("retrieve: size cap exceeded")

// File is one successfully retrieved object on local disk.
type File struct {
	URL      string
	Path     string
	Name     string
	FileType string
	Size     int64
}

// Request names one fetch: the source URL, the destination directory, the
// byte cap, and an optional ref for repository sources.
type Request struct {
	URL      string
	FileType string
	Dest     string
	MaxBytes int64
	Ref      string
}

// Strategy fetches one kind of source.
type Strategy interface {
	// Name identifies the strategy in logs.
	Name() string
	// CanRetrieve reports whether this strategy handles the request.
	CanRetrieve(url, fileType string) bool
	// Fetch retrieves the object into req.Dest. A nil File with nil error
	// means the strategy declined after inspection.
	Fetch(ctx context.Context, req Request) (*File, error)
}

// Registry is an ordered strategy list, built at startup and passed by
// reference.
type Registry struct {
	strategies []Strategy
	log        *slog.Logger
}

// NewRegistry returns a registry with the given strategies, probed in order.
func NewRegistry(strategies ...Strategy) *Registry {
	return &Registry{strategies: strategies, log: slog.With("component", "retrieve")}
}

// Fetch dispatches req to the first claiming strategy.
func (r *Registry) Fetch(ctx context.Context, req Request) (*File, error) {
	for _, s := range r.strategies {
		if !s.CanRetrieve(req.URL, req.FileType) {
			continue
		}
		r.log.Debug("retrieving", "strategy", s.Name(), "url", req.URL)
		return s.Fetch(ctx, req)
	}
	return nil, fmt.Errorf("retrieve: no strategy for %s", req.URL)
}
