package schema

import (
	"fmt"
	"time"

	"github.com/cairnhub/cairn/pkg/model"
)

// Schema names used across the core.
const (
	Artifact                      = "artifact"
	ArtifactMetadata              = "artifact_metadata"
	ArtifactTag                   = "artifact_tag"
	ArtifactFile                  = "artifact_file"
	ArtifactFileMember            = "artifact_file_member"
	ArtifactRelease               = "artifact_release"
	ArtifactRelationship          = "artifact_relationship"
	ArtifactAffiliation           = "artifact_affiliation"
	FileContent                   = "file_content"
	Importer                      = "importer"
	License                       = "license"
	Person                        = "person"
	User                          = "user"
	Organization                  = "organization"
	Affiliation                   = "affiliation"
	CandidateArtifact             = "candidate_artifact"
	CandidateArtifactMetadata     = "candidate_artifact_metadata"
	CandidateArtifactRelationship = "candidate_artifact_relationship"
	CandidateRelationship         = "candidate_relationship"
)

// Builtin returns a registry with every schema the import core persists.
func Builtin() *Registry {
	r := NewRegistry()
	r.Register(fileContentSchema())
	r.Register(importerSchema())
	r.Register(licenseSchema())
	r.Register(personSchema())
	r.Register(userSchema())
	r.Register(organizationSchema())
	r.Register(affiliationSchema())
	r.Register(artifactMetadataSchema())
	r.Register(artifactTagSchema())
	r.Register(artifactFileMemberSchema())
	r.Register(artifactFileSchema())
	r.Register(artifactReleaseSchema())
	r.Register(artifactRelationshipSchema())
	r.Register(artifactAffiliationSchema())
	r.Register(candidateArtifactMetadataSchema())
	r.Register(candidateArtifactSchema())
	r.Register(candidateArtifactRelationshipSchema())
	r.Register(candidateRelationshipSchema())
	r.Register(artifactSchema())
	return r
}

// field builder; keeps the descriptor tables readable.
type fb struct{ f Field }

func col(name string, t FieldType) *fb { return &fb{Field{Name: name, Type: t}} }

func (b *fb) null() *fb           { b.f.Nullable = true; return b }
func (b *fb) fk() *fb             { b.f.ForeignKey = true; b.f.Nullable = true; return b }
func (b *fb) fkRequired() *fb     { b.f.ForeignKey = true; return b }
func (b *fb) max(n int) *fb       { b.f.MaxLen = n; return b }
func (b *fb) enum(v []string) *fb { b.f.Enum = v; return b }

func (b *fb) acc(get func(any) any, set func(any, any) error) Field {
	b.f.Get = get
	b.f.Set = set
	return b.f
}

func pkField(s *Schema) Field {
	return Field{
		Name: "id", Type: Int, PrimaryKey: true, Nullable: true,
		Get: func(o any) any {
			if id := s.ID(o); id != 0 {
				return id
			}
			return nil
		},
		Set: func(o, v any) error {
			if v == nil {
				s.SetID(o, 0)
				return nil
			}
			id, ok := v.(int64)
			if !ok {
				return fmt.Errorf("schema: cannot assign %T as id", v)
			}
			s.SetID(o, id)
			return nil
		},
	}
}

func artifactSchema() *Schema {
	s := &Schema{
		Name: Artifact, Table: "artifacts",
		New:   func() any { return &model.Artifact{} },
		ID:    func(o any) int64 { return o.(*model.Artifact).ID },
		SetID: func(o any, id int64) { o.(*model.Artifact).ID = id },
	}
	s.Fields = []Field{
		pkField(s),
		col("type", String).null().enum(model.ArtifactTypes).
			acc(enumGS(func(a *model.Artifact) *model.ArtifactType { return &a.Type }, true)),
		col("url", String).max(1024).
			acc(strGS(func(a *model.Artifact) *string { return &a.URL }, false)),
		col("ext_id", String).null().max(512).
			acc(strGS(func(a *model.Artifact) *string { return &a.ExtID }, true)),
		col("title", String).null().
			acc(strGS(func(a *model.Artifact) *string { return &a.Title }, true)),
		col("name", String).null().max(1024).
			acc(strGS(func(a *model.Artifact) *string { return &a.Name }, true)),
		col("ctime", Time).
			acc(timeGS(func(a *model.Artifact) *time.Time { return &a.CTime })),
		col("mtime", Time).null().
			acc(timePtrGS(func(a *model.Artifact) **time.Time { return &a.MTime })),
		col("description", String).null().
			acc(strGS(func(a *model.Artifact) *string { return &a.Description }, true)),
		col("license_id", Int).fk().
			acc(i64GS(func(a *model.Artifact) *int64 { return &a.LicenseID }, true)),
		col("owner_id", Int).fk().
			acc(i64GS(func(a *model.Artifact) *int64 { return &a.OwnerID }, true)),
		col("importer_id", Int).fk().
			acc(i64GS(func(a *model.Artifact) *int64 { return &a.ImporterID }, true)),
	}
	licGet, licSet := relOne(func(a *model.Artifact) **model.License { return &a.License })
	ownGet, ownSet := relOne(func(a *model.Artifact) **model.User { return &a.Owner })
	impGet, impSet := relOne(func(a *model.Artifact) **model.ImporterRecord { return &a.Importer })
	metaGet, metaAdd := relMany(func(a *model.Artifact) *[]*model.ArtifactMetadata { return &a.Meta })
	tagGet, tagAdd := relMany(func(a *model.Artifact) *[]*model.ArtifactTag { return &a.Tags })
	fileGet, fileAdd := relMany(func(a *model.Artifact) *[]*model.ArtifactFile { return &a.Files })
	relGet, relAdd := relMany(func(a *model.Artifact) *[]*model.ArtifactRelationship { return &a.Relationships })
	affGet, affAdd := relMany(func(a *model.Artifact) *[]*model.ArtifactAffiliation { return &a.Affiliations })
	rlsGet, rlsAdd := relMany(func(a *model.Artifact) *[]*model.ArtifactRelease { return &a.Releases })
	candGet, candAdd := relMany(func(a *model.Artifact) *[]*model.CandidateArtifactRelationship { return &a.CandidateRelationships })
	s.Rels = []Rel{
		{Name: "license", Target: License, Kind: HasOne, FKField: "license_id", Get: licGet, Add: licSet},
		{Name: "owner", Target: User, Kind: HasOne, FKField: "owner_id", Get: ownGet, Add: ownSet},
		{Name: "importer", Target: Importer, Kind: HasOne, FKField: "importer_id", Get: impGet, Add: impSet},
		{Name: "meta", Target: ArtifactMetadata, Kind: HasMany, ChildFK: "artifact_id", Get: metaGet, Add: metaAdd},
		{Name: "tags", Target: ArtifactTag, Kind: HasMany, ChildFK: "artifact_id", Get: tagGet, Add: tagAdd},
		{Name: "files", Target: ArtifactFile, Kind: HasMany, ChildFK: "artifact_id", Get: fileGet, Add: fileAdd},
		{Name: "releases", Target: ArtifactRelease, Kind: HasMany, ChildFK: "artifact_id", Get: rlsGet, Add: rlsAdd},
		{Name: "affiliations", Target: ArtifactAffiliation, Kind: HasMany, ChildFK: "artifact_id", Get: affGet, Add: affAdd},
		{Name: "relationships", Target: ArtifactRelationship, Kind: HasMany, ChildFK: "artifact_id", Get: relGet, Add: relAdd},
		{Name: "candidate_relationships", Target: CandidateArtifactRelationship, Kind: HasMany, ChildFK: "artifact_id", Get: candGet, Add: candAdd},
	}
	return s
}

func artifactMetadataSchema() *Schema {
	s := &Schema{
		Name: ArtifactMetadata, Table: "artifact_metadata",
		New:   func() any { return &model.ArtifactMetadata{} },
		ID:    func(o any) int64 { return o.(*model.ArtifactMetadata).ID },
		SetID: func(o any, id int64) { o.(*model.ArtifactMetadata).ID = id },
	}
	s.Fields = []Field{
		pkField(s),
		col("artifact_id", Int).fk().
			acc(i64GS(func(m *model.ArtifactMetadata) *int64 { return &m.ArtifactID }, true)),
		col("name", String).max(64).
			acc(strGS(func(m *model.ArtifactMetadata) *string { return &m.Name }, false)),
		col("value", String).max(16384).
			acc(strGS(func(m *model.ArtifactMetadata) *string { return &m.Value }, false)),
		col("type", String).null().max(256).
			acc(strGS(func(m *model.ArtifactMetadata) *string { return &m.Type }, true)),
		col("source", String).null().max(256).
			acc(strGS(func(m *model.ArtifactMetadata) *string { return &m.Source }, true)),
	}
	return s
}

func artifactTagSchema() *Schema {
	s := &Schema{
		Name: ArtifactTag, Table: "artifact_tags",
		Uniques: [][]string{{"artifact_id", "tag", "source"}},
		New:     func() any { return &model.ArtifactTag{} },
		ID:      func(o any) int64 { return o.(*model.ArtifactTag).ID },
		SetID:   func(o any, id int64) { o.(*model.ArtifactTag).ID = id },
	}
	s.Fields = []Field{
		pkField(s),
		col("artifact_id", Int).fk().
			acc(i64GS(func(t *model.ArtifactTag) *int64 { return &t.ArtifactID }, true)),
		col("tag", String).max(256).
			acc(strGS(func(t *model.ArtifactTag) *string { return &t.Tag }, false)),
		col("source", String).max(256).
			acc(strGS(func(t *model.ArtifactTag) *string { return &t.Source }, false)),
	}
	return s
}

func artifactFileSchema() *Schema {
	s := &Schema{
		Name: ArtifactFile, Table: "artifact_files",
		Uniques: [][]string{{"artifact_id", "url"}},
		New:     func() any { return &model.ArtifactFile{} },
		ID:      func(o any) int64 { return o.(*model.ArtifactFile).ID },
		SetID:   func(o any, id int64) { o.(*model.ArtifactFile).ID = id },
	}
	s.Fields = []Field{
		pkField(s),
		col("artifact_id", Int).fk().
			acc(i64GS(func(f *model.ArtifactFile) *int64 { return &f.ArtifactID }, true)),
		col("url", String).max(512).
			acc(strGS(func(f *model.ArtifactFile) *string { return &f.URL }, false)),
		col("name", String).null().max(512).
			acc(strGS(func(f *model.ArtifactFile) *string { return &f.Name }, true)),
		col("filetype", String).max(128).
			acc(strGS(func(f *model.ArtifactFile) *string { return &f.FileType }, false)),
		col("file_content_id", Int).fk().
			acc(i64GS(func(f *model.ArtifactFile) *int64 { return &f.FileContentID }, true)),
		col("size", Int).null().
			acc(i64GS(func(f *model.ArtifactFile) *int64 { return &f.Size }, true)),
		col("mtime", Time).null().
			acc(timePtrGS(func(f *model.ArtifactFile) **time.Time { return &f.MTime })),
	}
	fcGet, fcSet := relOne(func(f *model.ArtifactFile) **model.FileContent { return &f.Content })
	memGet, memAdd := relMany(func(f *model.ArtifactFile) *[]*model.ArtifactFileMember { return &f.Members })
	s.Rels = []Rel{
		{Name: "file_content", Target: FileContent, Kind: HasOne, FKField: "file_content_id", Get: fcGet, Add: fcSet},
		{Name: "members", Target: ArtifactFileMember, Kind: HasMany, ChildFK: "parent_file_id", Get: memGet, Add: memAdd},
	}
	return s
}

func artifactFileMemberSchema() *Schema {
	s := &Schema{
		Name: ArtifactFileMember, Table: "artifact_file_members",
		Uniques: [][]string{{"parent_file_id", "pathname"}},
		New:     func() any { return &model.ArtifactFileMember{} },
		ID:      func(o any) int64 { return o.(*model.ArtifactFileMember).ID },
		SetID:   func(o any, id int64) { o.(*model.ArtifactFileMember).ID = id },
	}
	s.Fields = []Field{
		pkField(s),
		col("parent_file_id", Int).fk().
			acc(i64GS(func(m *model.ArtifactFileMember) *int64 { return &m.ParentFileID }, true)),
		col("pathname", String).max(512).
			acc(strGS(func(m *model.ArtifactFileMember) *string { return &m.Pathname }, false)),
		col("html_url", String).null().max(512).
			acc(strGS(func(m *model.ArtifactFileMember) *string { return &m.HTMLURL }, true)),
		col("download_url", String).null().max(512).
			acc(strGS(func(m *model.ArtifactFileMember) *string { return &m.DownloadURL }, true)),
		col("name", String).null().max(512).
			acc(strGS(func(m *model.ArtifactFileMember) *string { return &m.Name }, true)),
		col("filetype", String).max(128).
			acc(strGS(func(m *model.ArtifactFileMember) *string { return &m.FileType }, false)),
		col("file_content_id", Int).fk().
			acc(i64GS(func(m *model.ArtifactFileMember) *int64 { return &m.FileContentID }, true)),
		col("size", Int).null().
			acc(i64GS(func(m *model.ArtifactFileMember) *int64 { return &m.Size }, true)),
		col("mtime", Time).null().
			acc(timePtrGS(func(m *model.ArtifactFileMember) **time.Time { return &m.MTime })),
	}
	fcGet, fcSet := relOne(func(m *model.ArtifactFileMember) **model.FileContent { return &m.Content })
	s.Rels = []Rel{
		{Name: "file_content", Target: FileContent, Kind: HasOne, FKField: "file_content_id", Get: fcGet, Add: fcSet},
	}
	return s
}

func fileContentSchema() *Schema {
	s := &Schema{
		Name: FileContent, Table: "file_content",
		Uniques: [][]string{{"hash"}},
		New:     func() any { return &model.FileContent{} },
		ID:      func(o any) int64 { return o.(*model.FileContent).ID },
		SetID:   func(o any, id int64) { o.(*model.FileContent).ID = id },
	}
	s.Fields = []Field{
		pkField(s),
		col("hash", Bytes).
			acc(bytesGS(func(c *model.FileContent) *[]byte { return &c.Digest }, false)),
		col("size", Int).
			acc(i64GS(func(c *model.FileContent) *int64 { return &c.Size }, false)),
		col("content", Bytes).null().
			acc(bytesGS(func(c *model.FileContent) *[]byte { return &c.Content }, true)),
	}
	return s
}

func artifactReleaseSchema() *Schema {
	s := &Schema{
		Name: ArtifactRelease, Table: "artifact_releases",
		New:   func() any { return &model.ArtifactRelease{} },
		ID:    func(o any) int64 { return o.(*model.ArtifactRelease).ID },
		SetID: func(o any, id int64) { o.(*model.ArtifactRelease).ID = id },
	}
	s.Fields = []Field{
		pkField(s),
		col("artifact_id", Int).fk().
			acc(i64GS(func(r *model.ArtifactRelease) *int64 { return &r.ArtifactID }, true)),
		col("url", String).null().max(512).
			acc(strGS(func(r *model.ArtifactRelease) *string { return &r.URL }, true)),
		col("author_login", String).null().max(128).
			acc(strGS(func(r *model.ArtifactRelease) *string { return &r.AuthorLogin }, true)),
		col("author_email", String).null().max(128).
			acc(strGS(func(r *model.ArtifactRelease) *string { return &r.AuthorEmail }, true)),
		col("author_name", String).null().max(128).
			acc(strGS(func(r *model.ArtifactRelease) *string { return &r.AuthorName }, true)),
		col("tag", String).null().max(256).
			acc(strGS(func(r *model.ArtifactRelease) *string { return &r.Tag }, true)),
		col("title", String).null().max(1024).
			acc(strGS(func(r *model.ArtifactRelease) *string { return &r.Title }, true)),
		col("time", Time).null().
			acc(timePtrGS(func(r *model.ArtifactRelease) **time.Time { return &r.Time })),
		col("notes", String).null().
			acc(strGS(func(r *model.ArtifactRelease) *string { return &r.Notes }, true)),
	}
	return s
}

func artifactRelationshipSchema() *Schema {
	s := &Schema{
		Name: ArtifactRelationship, Table: "artifact_relationships",
		Uniques: [][]string{{"artifact_id", "relation", "related_artifact_id"}},
		New:     func() any { return &model.ArtifactRelationship{} },
		ID:      func(o any) int64 { return o.(*model.ArtifactRelationship).ID },
		SetID:   func(o any, id int64) { o.(*model.ArtifactRelationship).ID = id },
	}
	s.Fields = []Field{
		pkField(s),
		col("artifact_id", Int).fk().
			acc(i64GS(func(r *model.ArtifactRelationship) *int64 { return &r.ArtifactID }, true)),
		col("relation", String).enum(model.Relations).
			acc(enumGS(func(r *model.ArtifactRelationship) *model.Relation { return &r.Relation }, false)),
		col("related_artifact_id", Int).fk().
			acc(i64GS(func(r *model.ArtifactRelationship) *int64 { return &r.RelatedArtifactID }, true)),
	}
	raGet, raSet := relOne(func(r *model.ArtifactRelationship) **model.Artifact { return &r.RelatedArtifact })
	s.Rels = []Rel{
		{Name: "related_artifact", Target: Artifact, Kind: HasOne, FKField: "related_artifact_id", Get: raGet, Add: raSet},
	}
	return s
}

func artifactAffiliationSchema() *Schema {
	s := &Schema{
		Name: ArtifactAffiliation, Table: "artifact_affiliations",
		Uniques: [][]string{{"artifact_id", "affiliation_id", "roles"}},
		New:     func() any { return &model.ArtifactAffiliation{} },
		ID:      func(o any) int64 { return o.(*model.ArtifactAffiliation).ID },
		SetID:   func(o any, id int64) { o.(*model.ArtifactAffiliation).ID = id },
	}
	s.Fields = []Field{
		pkField(s),
		col("artifact_id", Int).fk().
			acc(i64GS(func(a *model.ArtifactAffiliation) *int64 { return &a.ArtifactID }, true)),
		col("affiliation_id", Int).fkRequired().
			acc(i64GS(func(a *model.ArtifactAffiliation) *int64 { return &a.AffiliationID }, false)),
		col("roles", String).enum(model.AffiliationRoles).
			acc(enumGS(func(a *model.ArtifactAffiliation) *model.AffiliationRole { return &a.Role }, false)),
	}
	afGet, afSet := relOne(func(a *model.ArtifactAffiliation) **model.Affiliation { return &a.Affiliation })
	s.Rels = []Rel{
		{Name: "affiliation", Target: Affiliation, Kind: HasOne, FKField: "affiliation_id", Get: afGet, Add: afSet},
	}
	return s
}

func importerSchema() *Schema {
	s := &Schema{
		Name: Importer, Table: "importers",
		Uniques: [][]string{{"name", "version"}},
		New:     func() any { return &model.ImporterRecord{} },
		ID:      func(o any) int64 { return o.(*model.ImporterRecord).ID },
		SetID:   func(o any, id int64) { o.(*model.ImporterRecord).ID = id },
	}
	s.Fields = []Field{
		pkField(s),
		col("name", String).max(32).
			acc(strGS(func(i *model.ImporterRecord) *string { return &i.Name }, false)),
		col("version", String).null().max(32).
			acc(strGS(func(i *model.ImporterRecord) *string { return &i.Version }, true)),
	}
	return s
}

func licenseSchema() *Schema {
	s := &Schema{
		Name: License, Table: "licenses",
		New:   func() any { return &model.License{} },
		ID:    func(o any) int64 { return o.(*model.License).ID },
		SetID: func(o any, id int64) { o.(*model.License).ID = id },
	}
	s.Fields = []Field{
		pkField(s),
		col("short_name", String).null().max(64).
			acc(strGS(func(l *model.License) *string { return &l.ShortName }, true)),
		col("long_name", String).null().max(512).
			acc(strGS(func(l *model.License) *string { return &l.LongName }, true)),
		col("url", String).null().max(1024).
			acc(strGS(func(l *model.License) *string { return &l.URL }, true)),
		col("verified", Bool).
			acc(boolGS(func(l *model.License) *bool { return &l.Verified })),
	}
	return s
}

func personSchema() *Schema {
	s := &Schema{
		Name: Person, Table: "persons",
		New:   func() any { return &model.Person{} },
		ID:    func(o any) int64 { return o.(*model.Person).ID },
		SetID: func(o any, id int64) { o.(*model.Person).ID = id },
	}
	s.Fields = []Field{
		pkField(s),
		col("name", String).null().max(1024).
			acc(strGS(func(p *model.Person) *string { return &p.Name }, true)),
		col("email", String).null().max(256).
			acc(strGS(func(p *model.Person) *string { return &p.Email }, true)),
	}
	return s
}

func userSchema() *Schema {
	s := &Schema{
		Name: User, Table: "users",
		Uniques: [][]string{{"person_id"}},
		New:     func() any { return &model.User{} },
		ID:      func(o any) int64 { return o.(*model.User).ID },
		SetID:   func(o any, id int64) { o.(*model.User).ID = id },
	}
	s.Fields = []Field{
		pkField(s),
		col("person_id", Int).fkRequired().
			acc(i64GS(func(u *model.User) *int64 { return &u.PersonID }, false)),
	}
	pGet, pSet := relOne(func(u *model.User) **model.Person { return &u.Person })
	s.Rels = []Rel{
		{Name: "person", Target: Person, Kind: HasOne, FKField: "person_id", Get: pGet, Add: pSet},
	}
	return s
}

func organizationSchema() *Schema {
	s := &Schema{
		Name: Organization, Table: "organizations",
		New:   func() any { return &model.Organization{} },
		ID:    func(o any) int64 { return o.(*model.Organization).ID },
		SetID: func(o any, id int64) { o.(*model.Organization).ID = id },
	}
	s.Fields = []Field{
		pkField(s),
		col("name", String).max(1024).
			acc(strGS(func(o *model.Organization) *string { return &o.Name }, false)),
		col("type", String).enum(model.OrganizationTypes).
			acc(strGS(func(o *model.Organization) *string { return &o.Type }, false)),
		col("url", String).null().max(512).
			acc(strGS(func(o *model.Organization) *string { return &o.URL }, true)),
		col("country", String).null().max(64).
			acc(strGS(func(o *model.Organization) *string { return &o.Country }, true)),
	}
	return s
}

func affiliationSchema() *Schema {
	s := &Schema{
		Name: Affiliation, Table: "affiliations",
		Uniques: [][]string{{"person_id", "org_id"}},
		New:     func() any { return &model.Affiliation{} },
		ID:      func(o any) int64 { return o.(*model.Affiliation).ID },
		SetID:   func(o any, id int64) { o.(*model.Affiliation).ID = id },
	}
	s.Fields = []Field{
		pkField(s),
		col("person_id", Int).fkRequired().
			acc(i64GS(func(a *model.Affiliation) *int64 { return &a.PersonID }, false)),
		col("org_id", Int).fk().
			acc(i64GS(func(a *model.Affiliation) *int64 { return &a.OrgID }, true)),
	}
	pGet, pSet := relOne(func(a *model.Affiliation) **model.Person { return &a.Person })
	oGet, oSet := relOne(func(a *model.Affiliation) **model.Organization { return &a.Org })
	s.Rels = []Rel{
		{Name: "person", Target: Person, Kind: HasOne, FKField: "person_id", Get: pGet, Add: pSet},
		{Name: "org", Target: Organization, Kind: HasOne, FKField: "org_id", Get: oGet, Add: oSet},
	}
	return s
}

func candidateArtifactSchema() *Schema {
	s := &Schema{
		Name: CandidateArtifact, Table: "candidate_artifacts",
		New:   func() any { return &model.CandidateArtifact{} },
		ID:    func(o any) int64 { return o.(*model.CandidateArtifact).ID },
		SetID: func(o any, id int64) { o.(*model.CandidateArtifact).ID = id },
	}
	s.Fields = []Field{
		pkField(s),
		col("url", String).max(1024).
			acc(strGS(func(c *model.CandidateArtifact) *string { return &c.URL }, false)),
		col("ctime", Time).
			acc(timeGS(func(c *model.CandidateArtifact) *time.Time { return &c.CTime })),
		col("mtime", Time).null().
			acc(timePtrGS(func(c *model.CandidateArtifact) **time.Time { return &c.MTime })),
		col("type", String).null().enum(model.ArtifactTypes).
			acc(enumGS(func(c *model.CandidateArtifact) *model.ArtifactType { return &c.Type }, true)),
		col("title", String).null().
			acc(strGS(func(c *model.CandidateArtifact) *string { return &c.Title }, true)),
		col("name", String).null().
			acc(strGS(func(c *model.CandidateArtifact) *string { return &c.Name }, true)),
		col("description", String).null().
			acc(strGS(func(c *model.CandidateArtifact) *string { return &c.Description }, true)),
		col("owner_id", Int).fkRequired().
			acc(i64GS(func(c *model.CandidateArtifact) *int64 { return &c.OwnerID }, false)),
		col("imported_artifact_id", Int).fk().
			acc(i64GS(func(c *model.CandidateArtifact) *int64 { return &c.ImportedArtifactID }, true)),
	}
	ownGet, ownSet := relOne(func(c *model.CandidateArtifact) **model.User { return &c.Owner })
	impGet, impSet := relOne(func(c *model.CandidateArtifact) **model.Artifact { return &c.ImportedArtifact })
	metaGet, metaAdd := relMany(func(c *model.CandidateArtifact) *[]*model.CandidateArtifactMetadata { return &c.Meta })
	s.Rels = []Rel{
		{Name: "owner", Target: User, Kind: HasOne, FKField: "owner_id", Get: ownGet, Add: ownSet},
		{Name: "imported_artifact", Target: Artifact, Kind: HasOne, FKField: "imported_artifact_id", Get: impGet, Add: impSet},
		{Name: "meta", Target: CandidateArtifactMetadata, Kind: HasMany, ChildFK: "candidate_artifact_id", Get: metaGet, Add: metaAdd},
	}
	return s
}

func candidateArtifactMetadataSchema() *Schema {
	s := &Schema{
		Name: CandidateArtifactMetadata, Table: "candidate_artifact_metadata",
		Uniques: [][]string{{"candidate_artifact_id", "name", "value", "type"}},
		New:     func() any { return &model.CandidateArtifactMetadata{} },
		ID:      func(o any) int64 { return o.(*model.CandidateArtifactMetadata).ID },
		SetID:   func(o any, id int64) { o.(*model.CandidateArtifactMetadata).ID = id },
	}
	s.Fields = []Field{
		pkField(s),
		col("candidate_artifact_id", Int).fk().
			acc(i64GS(func(m *model.CandidateArtifactMetadata) *int64 { return &m.CandidateID }, true)),
		col("name", String).max(64).
			acc(strGS(func(m *model.CandidateArtifactMetadata) *string { return &m.Name }, false)),
		col("value", String).max(16384).
			acc(strGS(func(m *model.CandidateArtifactMetadata) *string { return &m.Value }, false)),
		col("type", String).null().max(256).
			acc(strGS(func(m *model.CandidateArtifactMetadata) *string { return &m.Type }, true)),
		col("source", String).null().max(256).
			acc(strGS(func(m *model.CandidateArtifactMetadata) *string { return &m.Source }, true)),
	}
	return s
}

func candidateArtifactRelationshipSchema() *Schema {
	s := &Schema{
		Name: CandidateArtifactRelationship, Table: "candidate_artifact_relationships",
		Uniques: [][]string{{"artifact_id", "relation", "related_candidate_id"}},
		New:     func() any { return &model.CandidateArtifactRelationship{} },
		ID:      func(o any) int64 { return o.(*model.CandidateArtifactRelationship).ID },
		SetID:   func(o any, id int64) { o.(*model.CandidateArtifactRelationship).ID = id },
	}
	s.Fields = []Field{
		pkField(s),
		col("artifact_id", Int).fk().
			acc(i64GS(func(r *model.CandidateArtifactRelationship) *int64 { return &r.ArtifactID }, true)),
		col("relation", String).enum(model.Relations).
			acc(enumGS(func(r *model.CandidateArtifactRelationship) *model.Relation { return &r.Relation }, false)),
		col("related_candidate_id", Int).fk().
			acc(i64GS(func(r *model.CandidateArtifactRelationship) *int64 { return &r.RelatedCandidateID }, true)),
	}
	rcGet, rcSet := relOne(func(r *model.CandidateArtifactRelationship) **model.CandidateArtifact { return &r.RelatedCandidate })
	s.Rels = []Rel{
		{Name: "related_candidate", Target: CandidateArtifact, Kind: HasOne, FKField: "related_candidate_id", Get: rcGet, Add: rcSet},
	}
	return s
}

func candidateRelationshipSchema() *Schema {
	s := &Schema{
		Name: CandidateRelationship, Table: "candidate_relationships",
		Uniques: [][]string{{"candidate_artifact_id", "relation", "related_candidate_id"}},
		New:     func() any { return &model.CandidateRelationship{} },
		ID:      func(o any) int64 { return o.(*model.CandidateRelationship).ID },
		SetID:   func(o any, id int64) { o.(*model.CandidateRelationship).ID = id },
	}
	s.Fields = []Field{
		pkField(s),
		col("candidate_artifact_id", Int).fk().
			acc(i64GS(func(r *model.CandidateRelationship) *int64 { return &r.CandidateID }, true)),
		col("relation", String).enum(model.Relations).
			acc(enumGS(func(r *model.CandidateRelationship) *model.Relation { return &r.Relation }, false)),
		col("related_candidate_id", Int).fk().
			acc(i64GS(func(r *model.CandidateRelationship) *int64 { return &r.RelatedCandidateID }, true)),
	}
	rcGet, rcSet := relOne(func(r *model.CandidateRelationship) **model.CandidateArtifact { return &r.RelatedCandidate })
	s.Rels = []Rel{
		{Name: "related_candidate", Target: CandidateArtifact, Kind: HasOne, FKField: "related_candidate_id", Get: rcGet, Add: rcSet},
	}
	return s
}
