package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cairnhub/cairn/pkg/model"
)

func TestBuiltinRegistryComplete(t *testing.T) {
	reg := Builtin()
	for _, name := range []string{
		Artifact, ArtifactMetadata, ArtifactTag, ArtifactFile,
		ArtifactFileMember, ArtifactRelease, ArtifactRelationship,
		ArtifactAffiliation, FileContent, Importer, License, Person,
		User, Organization, Affiliation, CandidateArtifact,
		CandidateArtifactMetadata, CandidateArtifactRelationship,
	} {
		sc, err := reg.Lookup(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, sc.Name)
		assert.NotNil(t, sc.New, name)
		assert.NotNil(t, sc.ID, name)
	}

	_, err := reg.Lookup("no_such_schema")
	require.Error(t, err)
}

func TestArtifactFieldAccessors(t *testing.T) {
	sc := Builtin().MustLookup(Artifact)
	art := &model.Artifact{}

	f := sc.Field("title")
	require.NotNil(t, f)
	require.NoError(t, f.Set(art, "A title"))
	assert.Equal(t, "A title", art.Title)
	assert.Equal(t, "A title", f.Get(art))

	require.NoError(t, f.Set(art, nil))
	assert.Equal(t, "", art.Title)
}

func TestNullableZeroMapsToNil(t *testing.T) {
	sc := Builtin().MustLookup(Artifact)
	art := &model.Artifact{}

	// Unset FK columns read back as NULL, not 0.
	fk := sc.Field("license_id")
	require.NotNil(t, fk)
	assert.True(t, fk.ForeignKey)
	assert.Nil(t, fk.Get(art))

	art.LicenseID = 7
	assert.Equal(t, int64(7), fk.Get(art))
}

func TestPrimaryKeyAccessors(t *testing.T) {
	sc := Builtin().MustLookup(Artifact)
	art := &model.Artifact{}

	assert.Zero(t, sc.ID(art))
	sc.SetID(art, 99)
	assert.Equal(t, int64(99), sc.ID(art))

	// The pk field descriptor hides an unset id from identity queries.
	pk := sc.Field("id")
	require.NotNil(t, pk)
	assert.True(t, pk.PrimaryKey)
	sc.SetID(art, 0)
	assert.Nil(t, pk.Get(art))
}

func TestTimeAccessors(t *testing.T) {
	sc := Builtin().MustLookup(Artifact)
	art := &model.Artifact{}

	ctime := sc.Field("ctime")
	require.NotNil(t, ctime)
	assert.Nil(t, ctime.Get(art), "zero time reads as NULL")

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, ctime.Set(art, now))
	assert.Equal(t, now, art.CTime)

	mtime := sc.Field("mtime")
	require.NotNil(t, mtime)
	assert.Nil(t, mtime.Get(art))
	require.NoError(t, mtime.Set(art, now))
	require.NotNil(t, art.MTime)
	assert.Equal(t, now, *art.MTime)
	require.NoError(t, mtime.Set(art, nil))
	assert.Nil(t, art.MTime)
}

func TestEnumField(t *testing.T) {
	sc := Builtin().MustLookup(Artifact)
	art := &model.Artifact{}

	f := sc.Field("type")
	require.NotNil(t, f)
	assert.NotEmpty(t, f.Enum)

	require.NoError(t, f.Set(art, "software"))
	assert.Equal(t, model.TypeSoftware, art.Type)
	assert.Equal(t, "software", f.Get(art))
}

func TestRelDescriptors(t *testing.T) {
	sc := Builtin().MustLookup(Artifact)

	lic := sc.Rel("license")
	require.NotNil(t, lic)
	assert.Equal(t, HasOne, lic.Kind)
	assert.Equal(t, "license_id", lic.FKField)
	assert.Equal(t, License, lic.Target)

	art := &model.Artifact{}
	child := &model.License{ShortName: "MIT"}
	require.NoError(t, lic.Add(art, child))
	assert.Same(t, child, art.License)
	assert.Same(t, child, lic.Get(art).(*model.License))

	meta := sc.Rel("meta")
	require.NotNil(t, meta)
	assert.Equal(t, HasMany, meta.Kind)
	assert.Equal(t, "artifact_id", meta.ChildFK)
	require.NoError(t, meta.Add(art, &model.ArtifactMetadata{Name: "k", Value: "v"}))
	require.NoError(t, meta.Add(art, &model.ArtifactMetadata{Name: "k2", Value: "v2"}))
	require.Len(t, meta.Get(art).([]any), 2)

	require.Error(t, meta.Add(art, &model.ArtifactTag{}), "wrong child type")
}

func TestColumnsSkipPrimaryKey(t *testing.T) {
	sc := Builtin().MustLookup(License)
	for _, col := range sc.Columns() {
		assert.NotEqual(t, "id", col)
	}
}

func TestRegisterReplaces(t *testing.T) {
	reg := NewRegistry()
	a := &Schema{Name: "x", Table: "x"}
	b := &Schema{Name: "x", Table: "y"}
	reg.Register(a)
	reg.Register(b)
	assert.Equal(t, "y", reg.MustLookup("x").Table)
}
