package model

import "time"

// Artifact is a fully persisted record of an imported artifact. Created
// exactly once per distinct URL within a resolution pass; afterwards it is
// only curated, never re-imported.
type Artifact struct {
	ID          int64
	Type        ArtifactType
	URL         string
	ExtID       string
	Title       string
	Name        string
	CTime       time.Time
	MTime       *time.Time
	Description string

	LicenseID  int64
	OwnerID    int64
	ImporterID int64

	License  *License
	Owner    *User
	Importer *ImporterRecord

	Meta         []*ArtifactMetadata
	Tags         []*ArtifactTag
	Files        []*ArtifactFile
	Releases     []*ArtifactRelease
	Affiliations []*ArtifactAffiliation

	// Relationships are concrete edges to other persisted artifacts.
	Relationships []*ArtifactRelationship
	// CandidateRelationships are provisional edges to not-yet-imported
	// candidates, including adapter-suggested relations on a fresh draft.
	CandidateRelationships []*CandidateArtifactRelationship
}

// Persisted reports whether the artifact has a row id.
func (a *Artifact) Persisted() bool { return a != nil && a.ID != 0 }

// MetaValue returns the value of the first metadata entry named name.
func (a *Artifact) MetaValue(name string) (string, bool) {
	for _, m := range a.Meta {
		if m.Name == name {
			return m.Value, true
		}
	}
	return "", false
}

// HasTag reports whether the artifact carries tag from any source.
func (a *Artifact) HasTag(tag string) bool {
	for _, t := range a.Tags {
		if t.Tag == tag {
			return true
		}
	}
	return false
}

// ArtifactMetadata is a free-form name/value annotation on an artifact.
type ArtifactMetadata struct {
	ID         int64
	ArtifactID int64
	Name       string
	Value      string
	Type       string
	Source     string
}

// ArtifactTag is a single tag on an artifact, qualified by its source
// (which extractor or adapter produced it).
type ArtifactTag struct {
	ID         int64
	ArtifactID int64
	Tag        string
	Source     string
}

// ArtifactRelease is a published release of a software artifact.
type ArtifactRelease struct {
	ID          int64
	ArtifactID  int64
	URL         string
	AuthorLogin string
	AuthorEmail string
	AuthorName  string
	Tag         string
	Title       string
	Time        *time.Time
	Notes       string
}

// ArtifactRelationship is a typed, directed edge between two persisted
// artifacts. Both endpoints must have row ids before the edge is written.
type ArtifactRelationship struct {
	ID                int64
	ArtifactID        int64
	Relation          Relation
	RelatedArtifactID int64

	RelatedArtifact *Artifact
}

// ArtifactAffiliation ties an artifact to a person/organization affiliation
// with a role.
type ArtifactAffiliation struct {
	ID            int64
	ArtifactID    int64
	AffiliationID int64
	Role          AffiliationRole

	Affiliation *Affiliation
}

// ImporterRecord identifies the source adapter (name and version) that
// produced an artifact.
type ImporterRecord struct {
	ID      int64
	Name    string
	Version string
}
