package model

import "time"

// CandidateArtifact is a URL-referenced artifact that has not been imported
// yet. Once ImportedArtifactID is set the candidate is immutable.
type CandidateArtifact struct {
	ID                 int64
	URL                string
	CTime              time.Time
	MTime              *time.Time
	Type               ArtifactType
	Title              string
	Name               string
	Description        string
	OwnerID            int64
	ImportedArtifactID int64

	Owner            *User
	ImportedArtifact *Artifact
	Meta             []*CandidateArtifactMetadata
}

// Imported reports whether the candidate has been resolved to a persisted
// artifact.
func (c *CandidateArtifact) Imported() bool {
	return c.ImportedArtifactID != 0 || (c.ImportedArtifact != nil && c.ImportedArtifact.Persisted())
}

// CandidateArtifactMetadata annotates a candidate before import.
type CandidateArtifactMetadata struct {
	ID          int64
	CandidateID int64
	Name        string
	Value       string
	Type        string
	Source      string
}

// CandidateArtifactRelationship is a provisional edge from a persisted
// artifact to a candidate. When the candidate acquires an imported artifact
// the edge must be rewritten into an ArtifactRelationship.
type CandidateArtifactRelationship struct {
	ID                 int64
	ArtifactID         int64
	Relation           Relation
	RelatedCandidateID int64

	RelatedCandidate *CandidateArtifact
}

// CandidateRelationship is a provisional edge between two candidates.
type CandidateRelationship struct {
	ID                 int64
	CandidateID        int64
	Relation           Relation
	RelatedCandidateID int64

	RelatedCandidate *CandidateArtifact
}
