// Package resolver turns one root candidate URL plus related-candidate
// edges into a fully materialized, relationship-consistent set of persisted
// artifacts. One resolution pass runs breadth-first inside a single
// transaction; non-root failures drop their edge and the pass continues.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cairnhub/cairn/pkg/adapter"
	"github.com/cairnhub/cairn/pkg/blob"
	"github.com/cairnhub/cairn/pkg/importsession"
	"github.com/cairnhub/cairn/pkg/model"
	"github.com/cairnhub/cairn/pkg/observability"
	"github.com/cairnhub/cairn/pkg/retrieve"
	"github.com/cairnhub/cairn/pkg/schema"
	"github.com/cairnhub/cairn/pkg/store"
)

// Edge is one requested relation from the root to another URL.
type Edge struct {
	Relation model.Relation
	URL      string
}

// Options tunes one resolution pass.
type Options struct {
	// NoFetch skips file retrieval; drafts persist with declared files only.
	NoFetch bool
	// NoExtract skips all extractors.
	NoExtract bool
	// NoRemove leaves session workspaces on disk for inspection.
	NoRemove bool
	// NoFollow imports the root only; candidate edges stay provisional.
	NoFollow bool
	// SkipExtractors names extractors to leave out of the run.
	SkipExtractors []string
}

// Resolver wires the pipeline's collaborators together.
type Resolver struct {
	store      *store.Store
	adapters   *adapter.Registry
	retrievers *retrieve.Registry
	extractors *importsession.Extractors
	blobs      *blob.Store
	journal    *importsession.Journal
	obs        *observability.Provider
	maxBytes   int64

	ownerName  string
	ownerEmail string

	tracer trace.Tracer
	log    *slog.Logger
}

// New builds a resolver. ownerName/ownerEmail identify the operator that
// owns everything a pass creates. A nil obs disables metrics.
func New(st *store.Store, adapters *adapter.Registry, retrievers *retrieve.Registry,
	extractors *importsession.Extractors, blobs *blob.Store, journal *importsession.Journal,
	obs *observability.Provider, maxBytes int64, ownerName, ownerEmail string) *Resolver {
	if obs == nil {
		obs = observability.Disabled()
	}
	return &Resolver{
		store:      st,
		adapters:   adapters,
		retrievers: retrievers,
		extractors: extractors,
		blobs:      blobs,
		journal:    journal,
		obs:        obs,
		maxBytes:   maxBytes,
		ownerName:  ownerName,
		ownerEmail: ownerEmail,
		tracer:     otel.Tracer("cairn/resolver"),
		log:        slog.With("component", "resolver"),
	}
}

// node is one imported artifact whose provisional edges still need
// processing.
type node struct {
	artifact *model.Artifact
	edges    []pendingEdge
}

// pendingEdge pairs a persisted provisional edge with its candidate row.
type pendingEdge struct {
	relation  model.Relation
	candidate *model.CandidateArtifact
	edge      *model.CandidateArtifactRelationship
}

// ResolveGraph imports the root URL and drains the breadth-first queue of
// related candidates, rewriting provisional edges into artifact
// relationships as endpoints become available. The returned map holds every
// URL imported by this pass. A root-import failure aborts with nothing
// committed; a failed non-root candidate only drops its edges.
//
// Callers must reject a root URL whose artifact already exists; the resolver
// assumes an unimported root.
func (r *Resolver) ResolveGraph(ctx context.Context, rootURL string, edges []Edge, opts Options) (map[string]*model.Artifact, error) {
	passID := uuid.NewString()
	ctx, span := r.tracer.Start(ctx, "resolver.resolve_graph",
		trace.WithAttributes(
			attribute.String("pass_id", passID),
			attribute.String("root_url", rootURL),
			attribute.Int("edge_count", len(edges)),
		))
	defer span.End()
	log := r.log.With("pass", passID)

	tx, err := r.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	owner, err := tx.EnsureOwner(ctx, r.ownerName, r.ownerEmail)
	if err != nil {
		return nil, err
	}

	root, rootSuggested, err := r.importNode(ctx, tx, rootURL, owner, opts)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("resolver: root import %s: %w", rootURL, err)
	}
	imported := map[string]*model.Artifact{rootURL: root}

	// The caller's edges and the root adapter's suggestions both become
	// provisional edges off the root.
	for _, e := range edges {
		rootSuggested = append(rootSuggested, adapter.Suggested{Relation: e.Relation, URL: e.URL})
	}
	rootEdges, err := r.persistEdges(ctx, tx, root, owner, rootSuggested)
	if err != nil {
		return nil, err
	}

	queue := []*node{{artifact: root, edges: rootEdges}}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, pe := range n.edges {
			next, err := r.resolveEdge(ctx, tx, n, pe, imported, owner, opts, log)
			if err != nil {
				return nil, err
			}
			if next != nil {
				queue = append(queue, next)
			}
		}
	}

	if err := r.adoptIncomingEdges(ctx, tx, rootURL, root, log); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("imported_count", len(imported)))
	log.Info("resolution pass committed", "root", rootURL, "imported", len(imported))
	return imported, nil
}

// resolveEdge rewrites one provisional edge, importing its target first when
// needed. Import failures drop the edge and return nil; only persistence
// errors propagate.
func (r *Resolver) resolveEdge(ctx context.Context, tx *store.Tx, n *node, pe pendingEdge,
	imported map[string]*model.Artifact, owner *model.User, opts Options, log *slog.Logger) (*node, error) {
	url := pe.candidate.URL
	if target, ok := imported[url]; ok {
		return nil, r.rewriteEdge(ctx, tx, n.artifact, pe, target)
	}
	if opts.NoFollow {
		return nil, nil
	}

	target, suggested, err := r.importNode(ctx, tx, url, owner, opts)
	if err != nil {
		// Partial success: the edge is dropped, not retried, and the pass
		// carries on with the remaining candidates.
		log.Warn("candidate import failed, dropping edge",
			"url", url, "relation", pe.relation, "error", err)
		return nil, nil
	}
	imported[url] = target
	if err := r.rewriteEdge(ctx, tx, n.artifact, pe, target); err != nil {
		return nil, err
	}
	childEdges, err := r.persistEdges(ctx, tx, target, owner, suggested)
	if err != nil {
		return nil, err
	}
	return &node{artifact: target, edges: childEdges}, nil
}

// importNode runs the full pipeline for one URL: adapter draft, retrieval,
// extraction, finalize, persist. Each node is one tracked import: it counts
// toward the import and error totals, the duration histogram, and the
// active-session gauge.
func (r *Resolver) importNode(ctx context.Context, tx *store.Tx, url string, owner *model.User, opts Options) (_ *model.Artifact, _ []adapter.Suggested, err error) {
	ctx, done := r.obs.TrackOperation(ctx, "resolver.import_node",
		attribute.String("url", url))
	defer func() { done(err) }()
	span := trace.SpanFromContext(ctx)

	a, err := r.adapters.Lookup(url)
	if err != nil {
		return nil, nil, err
	}
	draft, suggested, err := a.ImportArtifact(ctx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("adapter %s: %w", a.Name(), err)
	}
	if draft.URL == "" {
		draft.URL = url
	}
	draft.OwnerID = owner.ID
	importer, err := tx.EnsureImporter(ctx, a.Name(), a.Version())
	if err != nil {
		return nil, nil, err
	}
	draft.ImporterID = importer.ID
	if draft.CTime.IsZero() {
		draft.CTime = time.Now().UTC()
	}

	session, err := importsession.New(draft, r.journal, r.retrievers, r.blobs, r.extractors, r.maxBytes)
	if err != nil {
		return nil, nil, err
	}
	if !opts.NoRemove {
		defer func() {
			if rerr := session.RemoveAll(); rerr != nil {
				r.log.Warn("workspace cleanup failed", "session", session.ID, "error", rerr)
			}
		}()
	}

	if !opts.NoFetch {
		if err := session.RetrieveAll(ctx, tx); err != nil {
			return nil, nil, err
		}
	}
	if !opts.NoExtract {
		session.ExtractAll(ctx, tx, opts.SkipExtractors)
	}
	session.Finalize()

	sc := r.store.Schemas().MustLookup(schema.Artifact)
	if err := tx.Insert(ctx, sc, draft); err != nil {
		return nil, nil, err
	}
	span.SetAttributes(attribute.Int64("artifact_id", draft.ID))
	return draft, suggested, nil
}

// persistEdges creates a candidate row and a provisional edge for every
// suggested relation off src. Suggestions with an invalid relation or an
// empty URL are dropped.
func (r *Resolver) persistEdges(ctx context.Context, tx *store.Tx, src *model.Artifact, owner *model.User, suggested []adapter.Suggested) ([]pendingEdge, error) {
	candSc := r.store.Schemas().MustLookup(schema.CandidateArtifact)
	edgeSc := r.store.Schemas().MustLookup(schema.CandidateArtifactRelationship)

	out := make([]pendingEdge, 0, len(suggested))
	for _, sg := range suggested {
		if sg.URL == "" || !sg.Relation.Valid() {
			r.log.Warn("dropping malformed suggested relation",
				"src", src.URL, "relation", string(sg.Relation), "url", sg.URL)
			continue
		}
		cand := &model.CandidateArtifact{
			URL:     sg.URL,
			CTime:   time.Now().UTC(),
			OwnerID: owner.ID,
		}
		if err := tx.Insert(ctx, candSc, cand); err != nil {
			return nil, err
		}
		edge := &model.CandidateArtifactRelationship{
			ArtifactID:         src.ID,
			Relation:           sg.Relation,
			RelatedCandidateID: cand.ID,
		}
		if err := tx.Insert(ctx, edgeSc, edge); err != nil {
			return nil, err
		}
		out = append(out, pendingEdge{relation: sg.Relation, candidate: cand, edge: edge})
	}
	return out, nil
}

// rewriteEdge turns one provisional edge into an artifact relationship and
// stamps the candidate as imported. Both endpoints are persisted by now.
func (r *Resolver) rewriteEdge(ctx context.Context, tx *store.Tx, src *model.Artifact, pe pendingEdge, target *model.Artifact) error {
	relSc := r.store.Schemas().MustLookup(schema.ArtifactRelationship)
	rel := &model.ArtifactRelationship{
		ArtifactID:        src.ID,
		Relation:          pe.relation,
		RelatedArtifactID: target.ID,
	}
	if err := tx.Insert(ctx, relSc, rel); err != nil {
		return err
	}
	return tx.MarkCandidateImported(ctx, pe.candidate, target.ID)
}

// adoptIncomingEdges rewrites pre-existing provisional edges elsewhere in
// the store that pointed at the root's URL, now that the root has a concrete
// artifact id.
func (r *Resolver) adoptIncomingEdges(ctx context.Context, tx *store.Tx, rootURL string, root *model.Artifact, log *slog.Logger) error {
	relSc := r.store.Schemas().MustLookup(schema.ArtifactRelationship)
	open, err := tx.OpenCandidatesByURL(ctx, rootURL)
	if err != nil {
		return err
	}
	for _, cand := range open {
		incoming, err := tx.IncomingCandidateEdges(ctx, cand.ID)
		if err != nil {
			return err
		}
		for _, edge := range incoming {
			rel := &model.ArtifactRelationship{
				ArtifactID:        edge.ArtifactID,
				Relation:          edge.Relation,
				RelatedArtifactID: root.ID,
			}
			if err := tx.Insert(ctx, relSc, rel); err != nil {
				return err
			}
			log.Info("adopted pre-existing edge",
				"from_artifact", edge.ArtifactID, "relation", string(edge.Relation))
		}
		if err := tx.MarkCandidateImported(ctx, cand, root.ID); err != nil {
			return err
		}
	}
	return nil
}
