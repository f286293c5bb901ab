package resolver_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/cairnhub/cairn/pkg/adapter"
	"github.com/cairnhub/cairn/pkg/blob"
	"github.com/cairnhub/cairn/pkg/importsession"
	"github.com/cairnhub/cairn/pkg/model"
	"github.com/cairnhub/cairn/pkg/observability"
	"github.com/cairnhub/cairn/pkg/resolver"
	"github.com/cairnhub/cairn/pkg/retrieve"
	"github.com/cairnhub/cairn/pkg/schema"
	"github.com/cairnhub/cairn/pkg/store"
)

const (
	u0 = "https://example.org/project"
	u1 = "https://example.org/paper"
	u2 = "https://example.org/dataset"
)

func testStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open("sqlite", filepath.Join(t.TempDir(), "test.db"), schema.Builtin())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// scriptedAdapter serves canned drafts and suggestions by URL and counts how
// often each URL is imported.
type scriptedAdapter struct {
	suggestions map[string][]adapter.Suggested
	fail        map[string]error
	imports     map[string]int
}

func newScripted() *scriptedAdapter {
	return &scriptedAdapter{
		suggestions: map[string][]adapter.Suggested{},
		fail:        map[string]error{},
		imports:     map[string]int{},
	}
}

func (a *scriptedAdapter) Name() string            { return "scripted" }
func (a *scriptedAdapter) Version() string         { return "1.0.0" }
func (a *scriptedAdapter) CanHandle(_ string) bool { return true }

func (a *scriptedAdapter) ImportArtifact(_ context.Context, url string) (*model.Artifact, []adapter.Suggested, error) {
	if err, ok := a.fail[url]; ok {
		return nil, nil, err
	}
	a.imports[url]++
	return &model.Artifact{
		URL:   url,
		Type:  model.TypeSoftware,
		Title: "title of " + url,
	}, a.suggestions[url], nil
}

func newResolver(t *testing.T, st *store.Store, a adapter.SourceAdapter) *resolver.Resolver {
	t.Helper()
	adapters := adapter.NewRegistry()
	adapters.Register(a)
	j, err := importsession.NewJournal(t.TempDir())
	require.NoError(t, err)
	return resolver.New(st, adapters, retrieve.NewRegistry(), importsession.NewExtractors(),
		blob.New(nil), j, nil, 1<<20, "operator", "operator@example.org")
}

func relations(t *testing.T, st *store.Store, artifactID int64) map[string]int64 {
	t.Helper()
	relSc := st.Schemas().MustLookup(schema.ArtifactRelationship)
	rows, err := st.QueryWhere(context.Background(), relSc, "artifact_id = ?", artifactID)
	require.NoError(t, err)
	out := map[string]int64{}
	for _, row := range rows {
		rel := row.(*model.ArtifactRelationship)
		out[string(rel.Relation)] = rel.RelatedArtifactID
	}
	return out
}

func TestResolveGraphSharedCandidate(t *testing.T) {
	st := testStore(t)
	a := newScripted()
	// The paper cites the dataset the root also describes.
	a.suggestions[u1] = []adapter.Suggested{{Relation: model.RelCites, URL: u2}}
	r := newResolver(t, st, a)

	imported, err := r.ResolveGraph(context.Background(), u0, []resolver.Edge{
		{Relation: model.RelCites, URL: u1},
		{Relation: model.RelDescribes, URL: u2},
	}, resolver.Options{NoFetch: true})
	require.NoError(t, err)
	require.Len(t, imported, 3)
	for _, url := range []string{u0, u1, u2} {
		require.Contains(t, imported, url)
		assert.NotZero(t, imported[url].ID)
	}

	assert.Equal(t, 1, a.imports[u2], "a shared candidate imports exactly once")

	rootRels := relations(t, st, imported[u0].ID)
	assert.Equal(t, imported[u1].ID, rootRels["cites"])
	assert.Equal(t, imported[u2].ID, rootRels["describes"])

	paperRels := relations(t, st, imported[u1].ID)
	assert.Equal(t, imported[u2].ID, paperRels["cites"])

	// Every provisional edge got rewritten; none stay open.
	for _, url := range []string{u1, u2} {
		tx, err := st.Begin(context.Background())
		require.NoError(t, err)
		open, err := tx.OpenCandidatesByURL(context.Background(), url)
		require.NoError(t, err)
		assert.Empty(t, open, url)
		require.NoError(t, tx.Rollback())
	}
}

func TestResolveGraphPartialFailure(t *testing.T) {
	st := testStore(t)
	a := newScripted()
	a.fail[u2] = errors.New("upstream gone")
	r := newResolver(t, st, a)

	imported, err := r.ResolveGraph(context.Background(), u0, []resolver.Edge{
		{Relation: model.RelCites, URL: u1},
		{Relation: model.RelDescribes, URL: u2},
	}, resolver.Options{NoFetch: true})
	require.NoError(t, err, "a failed candidate never aborts the pass")
	require.Len(t, imported, 2)
	assert.NotContains(t, imported, u2)

	rootRels := relations(t, st, imported[u0].ID)
	assert.Equal(t, imported[u1].ID, rootRels["cites"])
	assert.NotContains(t, rootRels, "describes", "the failed edge is dropped")

	// The root itself committed.
	got, err := st.FindArtifactByURL(context.Background(), u0)
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestResolveGraphRootFailureCommitsNothing(t *testing.T) {
	st := testStore(t)
	a := newScripted()
	a.fail[u0] = errors.New("root unreachable")
	r := newResolver(t, st, a)

	_, err := r.ResolveGraph(context.Background(), u0, []resolver.Edge{
		{Relation: model.RelCites, URL: u1},
	}, resolver.Options{NoFetch: true})
	require.Error(t, err)

	arts, err := st.ListArtifacts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, arts, "a failed root leaves the store untouched")
}

func TestResolveGraphNoFollow(t *testing.T) {
	st := testStore(t)
	a := newScripted()
	r := newResolver(t, st, a)

	imported, err := r.ResolveGraph(context.Background(), u0, []resolver.Edge{
		{Relation: model.RelCites, URL: u1},
	}, resolver.Options{NoFetch: true, NoFollow: true})
	require.NoError(t, err)
	require.Len(t, imported, 1)
	assert.Zero(t, a.imports[u1])

	// The edge stays provisional for a later pass.
	tx, err := st.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Rollback()
	open, err := tx.OpenCandidatesByURL(context.Background(), u1)
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func TestResolveGraphAdoptsIncomingEdges(t *testing.T) {
	st := testStore(t)
	a := newScripted()
	r := newResolver(t, st, a)
	ctx := context.Background()

	// First pass leaves a provisional edge u0 -> u1.
	imported, err := r.ResolveGraph(ctx, u0, []resolver.Edge{
		{Relation: model.RelCites, URL: u1},
	}, resolver.Options{NoFetch: true, NoFollow: true})
	require.NoError(t, err)
	rootID := imported[u0].ID

	// Importing u1 later adopts the open edge.
	imported2, err := r.ResolveGraph(ctx, u1, nil, resolver.Options{NoFetch: true})
	require.NoError(t, err)
	paperID := imported2[u1].ID

	rootRels := relations(t, st, rootID)
	assert.Equal(t, paperID, rootRels["cites"])

	tx, err := st.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()
	open, err := tx.OpenCandidatesByURL(ctx, u1)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestResolveGraphDropsMalformedSuggestions(t *testing.T) {
	st := testStore(t)
	a := newScripted()
	a.suggestions[u0] = []adapter.Suggested{
		{Relation: model.Relation("frobnicates"), URL: u1},
		{Relation: model.RelCites, URL: ""},
	}
	r := newResolver(t, st, a)

	imported, err := r.ResolveGraph(context.Background(), u0, nil, resolver.Options{NoFetch: true})
	require.NoError(t, err)
	require.Len(t, imported, 1)
	assert.Empty(t, relations(t, st, imported[u0].ID))
}

func TestResolveGraphStampsOwnership(t *testing.T) {
	st := testStore(t)
	a := newScripted()
	r := newResolver(t, st, a)

	imported, err := r.ResolveGraph(context.Background(), u0, nil, resolver.Options{NoFetch: true})
	require.NoError(t, err)
	root := imported[u0]
	assert.NotZero(t, root.OwnerID)
	assert.NotZero(t, root.ImporterID)
	assert.False(t, root.CTime.IsZero())
	assert.Equal(t, "title of "+u0, root.Title)

	impSc := st.Schemas().MustLookup(schema.Importer)
	rows, err := st.QueryWhere(context.Background(), impSc, "name = ?", "scripted")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "1.0.0", rows[0].(*model.ImporterRecord).Version)
}

func TestResolveGraphRecordsImportMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	obs, err := observability.NewFromGlobals()
	require.NoError(t, err)

	st := testStore(t)
	a := newScripted()
	a.suggestions[u0] = []adapter.Suggested{{Relation: model.RelCites, URL: u1}}
	a.fail[u1] = errors.New("scripted failure")

	adapters := adapter.NewRegistry()
	adapters.Register(a)
	j, jerr := importsession.NewJournal(t.TempDir())
	require.NoError(t, jerr)
	r := resolver.New(st, adapters, retrieve.NewRegistry(), importsession.NewExtractors(),
		blob.New(nil), j, obs, 1<<20, "operator", "operator@example.org")

	_, err = r.ResolveGraph(context.Background(), u0, nil, resolver.Options{NoFetch: true})
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	// One attempt per node: the root succeeded, the cited URL failed.
	assert.Equal(t, int64(2), counterSum(t, &rm, "cairn.imports.total"))
	assert.Equal(t, int64(1), counterSum(t, &rm, "cairn.errors.total"))
	assert.Equal(t, int64(0), counterSum(t, &rm, "cairn.sessions.active"), "sessions drain")
}

func counterSum(t *testing.T, rm *metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	var total int64
	found := false
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			found = true
		}
	}
	require.True(t, found, "metric %s not collected", name)
	return total
}
