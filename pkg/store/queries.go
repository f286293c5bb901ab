package store

import (
	"context"
	"fmt"
	"time"

	"github.com/cairnhub/cairn/pkg/model"
	"github.com/cairnhub/cairn/pkg/schema"
)

// FindArtifactByURL returns the persisted artifact with the given URL, or
// nil. Callers use this as the re-import precondition check before starting
// a resolution pass.
func (s *Store) FindArtifactByURL(ctx context.Context, url string) (*model.Artifact, error) {
	sc := s.schemas.MustLookup(schema.Artifact)
	obj, err := s.QueryOne(ctx, sc, map[string]any{"url": url})
	if err != nil || obj == nil {
		return nil, err
	}
	return obj.(*model.Artifact), nil
}

// OpenCandidatesByURL returns candidate rows for url that have not yet been
// resolved to an imported artifact.
func (t *Tx) OpenCandidatesByURL(ctx context.Context, url string) ([]*model.CandidateArtifact, error) {
	sc := t.st.schemas.MustLookup(schema.CandidateArtifact)
	rows, err := t.QueryWhere(ctx, sc, "url = ? AND imported_artifact_id IS NULL", url)
	if err != nil {
		return nil, err
	}
	out := make([]*model.CandidateArtifact, len(rows))
	for i, r := range rows {
		out[i] = r.(*model.CandidateArtifact)
	}
	return out, nil
}

// IncomingCandidateEdges returns provisional artifact-to-candidate edges
// whose target is the given candidate row.
func (t *Tx) IncomingCandidateEdges(ctx context.Context, candidateID int64) ([]*model.CandidateArtifactRelationship, error) {
	sc := t.st.schemas.MustLookup(schema.CandidateArtifactRelationship)
	rows, err := t.QueryAll(ctx, sc, map[string]any{"related_candidate_id": candidateID})
	if err != nil {
		return nil, err
	}
	out := make([]*model.CandidateArtifactRelationship, len(rows))
	for i, r := range rows {
		out[i] = r.(*model.CandidateArtifactRelationship)
	}
	return out, nil
}

// MarkCandidateImported stamps a candidate with its imported artifact id.
// The candidate is immutable afterwards.
func (t *Tx) MarkCandidateImported(ctx context.Context, cand *model.CandidateArtifact, artifactID int64) error {
	now := time.Now().UTC()
	_, err := t.Exec(ctx,
		"UPDATE candidate_artifacts SET imported_artifact_id = ?, mtime = ? WHERE id = ?",
		artifactID, now, cand.ID)
	if err != nil {
		return fmt.Errorf("store: mark candidate %d imported: %w", cand.ID, err)
	}
	cand.ImportedArtifactID = artifactID
	cand.MTime = &now
	return nil
}

// EnsureOwner resolves the operator identity to a User row, creating the
// Person and User on first use.
func (t *Tx) EnsureOwner(ctx context.Context, name, email string) (*model.User, error) {
	personSc := t.st.schemas.MustLookup(schema.Person)
	userSc := t.st.schemas.MustLookup(schema.User)

	obj, err := t.QueryOne(ctx, personSc, map[string]any{"name": name, "email": email})
	if err != nil {
		return nil, err
	}
	if obj == nil {
		person := &model.Person{Name: name, Email: email}
		user := &model.User{Person: person}
		if err := t.Insert(ctx, userSc, user); err != nil {
			return nil, err
		}
		return user, nil
	}
	person := obj.(*model.Person)
	uobj, err := t.QueryOne(ctx, userSc, map[string]any{"person_id": person.ID})
	if err != nil {
		return nil, err
	}
	if uobj == nil {
		user := &model.User{PersonID: person.ID, Person: person}
		if err := t.Insert(ctx, userSc, user); err != nil {
			return nil, err
		}
		return user, nil
	}
	user := uobj.(*model.User)
	user.Person = person
	return user, nil
}

// EnsureImporter resolves an adapter name/version to its row, creating it on
// first use.
func (t *Tx) EnsureImporter(ctx context.Context, name, version string) (*model.ImporterRecord, error) {
	sc := t.st.schemas.MustLookup(schema.Importer)
	obj, err := t.QueryOne(ctx, sc, map[string]any{"name": name, "version": version})
	if err != nil {
		return nil, err
	}
	if obj != nil {
		return obj.(*model.ImporterRecord), nil
	}
	rec := &model.ImporterRecord{Name: name, Version: version}
	if err := t.Insert(ctx, sc, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// EnsureLicense resolves a short license name to its row, creating an
// unverified stub on first sight.
func (t *Tx) EnsureLicense(ctx context.Context, shortName string) (*model.License, error) {
	sc := t.st.schemas.MustLookup(schema.License)
	obj, err := t.QueryOne(ctx, sc, map[string]any{"short_name": shortName})
	if err != nil {
		return nil, err
	}
	if obj != nil {
		return obj.(*model.License), nil
	}
	lic := &model.License{ShortName: shortName}
	if err := t.Insert(ctx, sc, lic); err != nil {
		return nil, err
	}
	return lic, nil
}

// ListArtifacts returns all artifacts, shallow (no collections loaded).
func (s *Store) ListArtifacts(ctx context.Context) ([]*model.Artifact, error) {
	sc := s.schemas.MustLookup(schema.Artifact)
	rows, err := s.QueryWhere(ctx, sc, "")
	if err != nil {
		return nil, err
	}
	out := make([]*model.Artifact, len(rows))
	for i, r := range rows {
		out[i] = r.(*model.Artifact)
	}
	return out, nil
}

// LoadArtifact returns one artifact with its collections populated.
func (s *Store) LoadArtifact(ctx context.Context, id int64) (*model.Artifact, error) {
	sc := s.schemas.MustLookup(schema.Artifact)
	obj, err := s.QueryOne(ctx, sc, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("store: artifact %d not found", id)
	}
	art := obj.(*model.Artifact)
	for _, rel := range sc.Rels {
		if rel.Kind != schema.HasMany {
			continue
		}
		childSc := s.schemas.MustLookup(rel.Target)
		children, err := s.QueryAll(ctx, childSc, map[string]any{rel.ChildFK: id})
		if err != nil {
			return nil, err
		}
		for _, c := range children {
			if err := rel.Add(art, c); err != nil {
				return nil, err
			}
		}
	}
	return art, nil
}
