package model

import (
	"crypto/sha256"
	"time"
)

// FileContent is a content-addressed blob: the digest is unique across the
// store, so two inserts of byte-identical content resolve to one row. Blobs
// are never mutated or deleted by the import core.
type FileContent struct {
	ID     int64
	Digest []byte
	Size   int64

	// Content holds the raw bytes when the payload backend is the database
	// itself; with fs or s3 backends the row carries only identity.
	Content []byte
}

// ContentDigest computes the canonical digest for a byte sequence.
func ContentDigest(content []byte) []byte {
	d := sha256.Sum256(content)
	return d[:]
}

// ArtifactFile is one retrievable object declared on an artifact. The bytes
// live in FileContent; the file row carries its own metadata independent of
// the shared content.
type ArtifactFile struct {
	ID            int64
	ArtifactID    int64
	URL           string
	Name          string
	FileType      string
	FileContentID int64
	Size          int64
	MTime         *time.Time

	Content *FileContent
	Members []*ArtifactFileMember
}

// ArtifactFileMember is an entry inside a container-format ArtifactFile
// (archive member, repository path).
type ArtifactFileMember struct {
	ID            int64
	ParentFileID  int64
	Pathname      string
	HTMLURL       string
	DownloadURL   string
	Name          string
	FileType      string
	FileContentID int64
	Size          int64
	MTime         *time.Time

	Content *FileContent
}
