package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"golang.org/x/time/rate"

	"github.com/cairnhub/cairn/pkg/config"
	"github.com/cairnhub/cairn/pkg/model"
	"github.com/cairnhub/cairn/pkg/observability"
	"github.com/cairnhub/cairn/pkg/resolver"
)

// edgeList collects repeatable -edge relation=url flags.
type edgeList []resolver.Edge

func (e *edgeList) String() string {
	parts := make([]string, len(*e))
	for i, edge := range *e {
		parts[i] = string(edge.Relation) + "=" + edge.URL
	}
	return strings.Join(parts, ",")
}

func (e *edgeList) Set(v string) error {
	rel, url, ok := strings.Cut(v, "=")
	if !ok {
		return fmt.Errorf("edge must be relation=url, got %q", v)
	}
	if !model.Relation(rel).Valid() {
		return fmt.Errorf("unknown relation %q (one of %s)", rel, strings.Join(model.Relations, ", "))
	}
	*e = append(*e, resolver.Edge{Relation: model.Relation(rel), URL: url})
	return nil
}

// stringList collects repeatable string flags.
type stringList []string

func (s *stringList) String() string     { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error { *s = append(*s, v); return nil }

// runImportCmd implements `cairn import`.
//
// Exit codes:
//
//	0 = graph resolved and committed
//	1 = root import failed
//	2 = usage or setup error
func runImportCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("import", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		rootURL     string
		edges       edgeList
		skip        stringList
		profileCode string
		profilesDir string
		noFetch     bool
		noExtract   bool
		noRemove    bool
		noFollow    bool
		jsonOutput  bool
	)
	cmd.StringVar(&rootURL, "url", "", "root candidate URL (REQUIRED)")
	cmd.Var(&edges, "edge", "relation=url edge from the root, repeatable")
	cmd.Var(&skip, "skip-extractor", "extractor name to skip, repeatable")
	cmd.StringVar(&profileCode, "profile", "", "import profile code")
	cmd.StringVar(&profilesDir, "profiles-dir", "profiles", "directory holding profile_*.yaml")
	cmd.BoolVar(&noFetch, "nofetch", false, "skip file retrieval")
	cmd.BoolVar(&noExtract, "noextract", false, "skip extractors")
	cmd.BoolVar(&noRemove, "noremove", false, "keep session workspaces on disk")
	cmd.BoolVar(&noFollow, "nofollow", false, "import the root only")
	cmd.BoolVar(&jsonOutput, "json", false, "print resolved map as JSON")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if rootURL == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --url is required")
		return 2
	}

	ctx := context.Background()
	cfg := config.Load()

	rps, burst := rate.Limit(2), 5
	opts := resolver.Options{
		NoFetch:        noFetch,
		NoExtract:      noExtract,
		NoRemove:       noRemove,
		NoFollow:       noFollow,
		SkipExtractors: skip,
	}
	if profileCode != "" {
		profile, err := config.LoadProfile(profilesDir, profileCode)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		profile.Apply(cfg)
		opts.NoFetch = opts.NoFetch || profile.NoFetch
		opts.NoExtract = opts.NoExtract || profile.NoExtract
		opts.NoRemove = opts.NoRemove || profile.NoRemove
		opts.NoFollow = opts.NoFollow || profile.NoFollow
		opts.SkipExtractors = append(opts.SkipExtractors, profile.SkipExtractors...)
		if profile.RatePerSecond > 0 {
			rps = rate.Limit(profile.RatePerSecond)
		}
		if profile.RateBurst > 0 {
			burst = profile.RateBurst
		}
	}

	obs, err := observability.New(ctx, otelConfig())
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: observability init: %v\n", err)
		return 2
	}
	defer func() { _ = obs.Shutdown(ctx) }()

	st, err := openStore(cfg)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	// Re-import detection is this layer's job: the resolver assumes an
	// unimported root.
	if existing, err := st.FindArtifactByURL(ctx, rootURL); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	} else if existing != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %s already imported as artifact %d\n", rootURL, existing.ID)
		return 2
	}

	r, err := buildResolver(ctx, cfg, st, obs, rps, burst)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	resolved, err := r.ResolveGraph(ctx, rootURL, edges, opts)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if jsonOutput {
		out := make(map[string]int64, len(resolved))
		for url, art := range resolved {
			out[url] = art.ID
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
		return 0
	}
	urls := make([]string, 0, len(resolved))
	for url := range resolved {
		urls = append(urls, url)
	}
	sort.Strings(urls)
	for _, url := range urls {
		art := resolved[url]
		_, _ = fmt.Fprintf(stdout, "%d\t%s\t%s\n", art.ID, art.Type, url)
	}
	return 0
}

func otelConfig() *observability.Config {
	cfg := observability.DefaultConfig()
	endpoint := os.Getenv("CAIRN_OTLP_ENDPOINT")
	cfg.Enabled = endpoint != ""
	if endpoint != "" {
		cfg.OTLPEndpoint = endpoint
		cfg.Insecure = os.Getenv("CAIRN_OTLP_INSECURE") == "true"
	}
	return cfg
}
