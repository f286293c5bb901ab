package main

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/cairnhub/cairn/pkg/adapter"
	"github.com/cairnhub/cairn/pkg/blob"
	"github.com/cairnhub/cairn/pkg/config"
	"github.com/cairnhub/cairn/pkg/extractor"
	"github.com/cairnhub/cairn/pkg/importsession"
	"github.com/cairnhub/cairn/pkg/observability"
	"github.com/cairnhub/cairn/pkg/resolver"
	"github.com/cairnhub/cairn/pkg/retrieve"
	"github.com/cairnhub/cairn/pkg/schema"
	"github.com/cairnhub/cairn/pkg/store"
)

func openStore(cfg *config.Config) (*store.Store, error) {
	return store.Open(cfg.DBDriver, cfg.DatabaseURL, schema.Builtin())
}

func buildBlobStore(ctx context.Context, cfg *config.Config) (*blob.Store, error) {
	switch cfg.BlobBackend {
	case "inline", "":
		return blob.New(nil), nil
	case "fs":
		backend, err := blob.NewFSBackend(cfg.BlobDir)
		if err != nil {
			return nil, err
		}
		return blob.New(backend), nil
	case "s3":
		backend, err := blob.NewS3Backend(ctx, blob.S3Config{
			Bucket:   cfg.S3Bucket,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
			Prefix:   cfg.S3Prefix,
		})
		if err != nil {
			return nil, err
		}
		return blob.New(backend), nil
	}
	return nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
}

// buildResolver wires the full import stack: adapters probed in order with
// the webpage fallback last, http and git retrieval, the built-in
// extractors, and the session journal under the workspace root.
func buildResolver(ctx context.Context, cfg *config.Config, st *store.Store, obs *observability.Provider, rps rate.Limit, burst int) (*resolver.Resolver, error) {
	blobs, err := buildBlobStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	journal, err := importsession.NewJournal(cfg.Workspace)
	if err != nil {
		return nil, err
	}

	adapters := adapter.NewRegistry()
	adapters.Register(adapter.NewWebpage())

	retrievers := retrieve.NewRegistry(
		retrieve.NewGitStrategy(),
		retrieve.NewHTTPStrategy(rps, burst),
	)
	extractors := importsession.NewExtractors(
		extractor.NewReadme(),
		extractor.NewLicense(),
	)

	return resolver.New(st, adapters, retrievers, extractors, blobs, journal,
		obs, cfg.MaxFileBytes, cfg.OwnerName, cfg.OwnerEmail), nil
}
