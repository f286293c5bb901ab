package materialize_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cairnhub/cairn/pkg/materialize"
	"github.com/cairnhub/cairn/pkg/model"
	"github.com/cairnhub/cairn/pkg/schema"
	"github.com/cairnhub/cairn/pkg/store"
)

func testStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open("sqlite", filepath.Join(t.TempDir(), "test.db"), schema.Builtin())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func beginTx(t *testing.T, st *store.Store) *store.Tx {
	t.Helper()
	tx, err := st.Begin(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = tx.Rollback() })
	return tx
}

func kindOf(t *testing.T, err error) materialize.Kind {
	t.Helper()
	var verr *materialize.ValidationError
	require.True(t, errors.As(err, &verr), "expected a validation error, got %v", err)
	return verr.Kind
}

func TestMaterializeScalars(t *testing.T) {
	st := testStore(t)
	m := materialize.New(st.Schemas())
	tx := beginTx(t, st)

	got, err := m.Materialize(context.Background(), tx, schema.Artifact, map[string]any{
		"type":  "dataset",
		"url":   "https://example.org/data",
		"title": "A dataset",
	}, materialize.Options{})
	require.NoError(t, err)

	art := got.(*model.Artifact)
	assert.Equal(t, model.TypeDataset, art.Type)
	assert.Equal(t, "https://example.org/data", art.URL)
	assert.Equal(t, "A dataset", art.Title)
	assert.Zero(t, art.ID)
	assert.False(t, art.CTime.IsZero(), "absent ctime defaults")
}

func TestForeignKeyRejected(t *testing.T) {
	st := testStore(t)
	m := materialize.New(st.Schemas())
	tx := beginTx(t, st)

	_, err := m.Materialize(context.Background(), tx, schema.Artifact, map[string]any{
		"url":        "https://example.org/x",
		"license_id": 3,
	}, materialize.Options{})
	require.Error(t, err)
	assert.Equal(t, materialize.KindForeignKey, kindOf(t, err))

	// The same document passes when the caller opts in.
	_, err = m.Materialize(context.Background(), tx, schema.Artifact, map[string]any{
		"url":        "https://example.org/x",
		"license_id": 3,
	}, materialize.Options{AllowForeignKeys: true})
	require.NoError(t, err)
}

func TestUnknownFieldRejected(t *testing.T) {
	st := testStore(t)
	m := materialize.New(st.Schemas())
	tx := beginTx(t, st)

	_, err := m.Materialize(context.Background(), tx, schema.Artifact, map[string]any{
		"url":      "https://example.org/x",
		"whatever": true,
	}, materialize.Options{})
	require.Error(t, err)
	assert.Equal(t, materialize.KindUnknownField, kindOf(t, err))
}

func TestEnumViolation(t *testing.T) {
	st := testStore(t)
	m := materialize.New(st.Schemas())
	tx := beginTx(t, st)

	_, err := m.Materialize(context.Background(), tx, schema.Artifact, map[string]any{
		"url":  "https://example.org/x",
		"type": "sculpture",
	}, materialize.Options{})
	require.Error(t, err)
	assert.Equal(t, materialize.KindEnum, kindOf(t, err))
}

func TestTooLong(t *testing.T) {
	st := testStore(t)
	m := materialize.New(st.Schemas())
	tx := beginTx(t, st)

	_, err := m.Materialize(context.Background(), tx, schema.Artifact, map[string]any{
		"url": "https://example.org/" + strings.Repeat("x", 2000),
	}, materialize.Options{})
	require.Error(t, err)
	assert.Equal(t, materialize.KindTooLong, kindOf(t, err))
}

func TestMissingRequired(t *testing.T) {
	st := testStore(t)
	m := materialize.New(st.Schemas())
	tx := beginTx(t, st)

	_, err := m.Materialize(context.Background(), tx, schema.Artifact, map[string]any{
		"title": "no url",
	}, materialize.Options{})
	require.Error(t, err)
	assert.Equal(t, materialize.KindMissingRequired, kindOf(t, err))
}

func TestBadTimestamp(t *testing.T) {
	st := testStore(t)
	m := materialize.New(st.Schemas())
	tx := beginTx(t, st)

	_, err := m.Materialize(context.Background(), tx, schema.Artifact, map[string]any{
		"url":   "https://example.org/x",
		"ctime": "yesterday-ish",
	}, materialize.Options{})
	require.Error(t, err)
	assert.Equal(t, materialize.KindInvalidType, kindOf(t, err))

	got, err := m.Materialize(context.Background(), tx, schema.Artifact, map[string]any{
		"url":   "https://example.org/x",
		"ctime": "2024-03-01T10:00:00Z",
	}, materialize.Options{})
	require.NoError(t, err)
	want := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	assert.True(t, got.(*model.Artifact).CTime.Equal(want))
}

func TestIntegerCoercion(t *testing.T) {
	st := testStore(t)
	m := materialize.New(st.Schemas())
	tx := beginTx(t, st)

	// JSON numbers arrive as float64; integral ones coerce.
	got, err := m.Materialize(context.Background(), tx, schema.FileContent, map[string]any{
		"hash": "abc",
		"size": float64(42),
	}, materialize.Options{})
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.(*model.FileContent).Size)

	_, err = m.Materialize(context.Background(), tx, schema.FileContent, map[string]any{
		"hash": "abc",
		"size": 42.5,
	}, materialize.Options{})
	require.Error(t, err)
	assert.Equal(t, materialize.KindInvalidType, kindOf(t, err))
}

func TestPrimaryKeyPolicies(t *testing.T) {
	st := testStore(t)
	m := materialize.New(st.Schemas())
	ctx := context.Background()

	tx := beginTx(t, st)
	doc := map[string]any{"id": 12, "url": "https://example.org/x"}

	got, err := m.Materialize(ctx, tx, schema.Artifact, doc, materialize.Options{PrimaryKeys: materialize.PKSkip})
	require.NoError(t, err)
	assert.Zero(t, got.(*model.Artifact).ID, "skip policy drops the id")

	_, err = m.Materialize(ctx, tx, schema.Artifact, doc, materialize.Options{PrimaryKeys: materialize.PKSkipStrict})
	require.Error(t, err)
	assert.Equal(t, materialize.KindPrimaryKey, kindOf(t, err))

	got, err = m.Materialize(ctx, tx, schema.Artifact, doc, materialize.Options{PrimaryKeys: materialize.PKRequire})
	require.NoError(t, err)
	assert.Equal(t, int64(12), got.(*model.Artifact).ID)

	_, err = m.Materialize(ctx, tx, schema.Artifact, map[string]any{
		"id": "twelve", "url": "https://example.org/x",
	}, materialize.Options{PrimaryKeys: materialize.PKRequire})
	require.Error(t, err)
	assert.Equal(t, materialize.KindPrimaryKey, kindOf(t, err))
}

func TestNestedIdentityReuse(t *testing.T) {
	st := testStore(t)
	m := materialize.New(st.Schemas())
	ctx := context.Background()

	// Persist a person first.
	tx := beginTx(t, st)
	personSc := st.Schemas().MustLookup(schema.Person)
	existing := &model.Person{Name: "Ada Lovelace", Email: "ada@example.org"}
	require.NoError(t, tx.Insert(ctx, personSc, existing))

	// A document nesting the same person resolves to the stored row.
	got, err := m.Materialize(ctx, tx, schema.Person, map[string]any{
		"name":  "Ada Lovelace",
		"email": "ada@example.org",
	}, materialize.Options{ShouldQuery: true})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, got.(*model.Person).ID)

	// A different person materializes fresh.
	got, err = m.Materialize(ctx, tx, schema.Person, map[string]any{
		"name":  "Grace Hopper",
		"email": "grace@example.org",
	}, materialize.Options{ShouldQuery: true})
	require.NoError(t, err)
	assert.Zero(t, got.(*model.Person).ID)
}

func TestCollectionElementsNeverResolveToStoredRows(t *testing.T) {
	st := testStore(t)
	m := materialize.New(st.Schemas())
	ctx := context.Background()
	tx := beginTx(t, st)

	// First artifact owns a tag row.
	first, err := m.Materialize(ctx, tx, schema.Artifact, map[string]any{
		"url":  "https://example.org/first",
		"tags": []any{map[string]any{"tag": "go", "source": "readme"}},
	}, materialize.Options{})
	require.NoError(t, err)
	artSc := st.Schemas().MustLookup(schema.Artifact)
	require.NoError(t, tx.Insert(ctx, artSc, first))
	require.NotZero(t, first.(*model.Artifact).Tags[0].ID)

	// A second artifact with an identical tags element gets its own
	// transient child, not the row the first artifact owns.
	second, err := m.Materialize(ctx, tx, schema.Artifact, map[string]any{
		"url":  "https://example.org/second",
		"tags": []any{map[string]any{"tag": "go", "source": "readme"}},
	}, materialize.Options{ShouldQuery: true})
	require.NoError(t, err)
	art := second.(*model.Artifact)
	require.Len(t, art.Tags, 1)
	assert.Zero(t, art.Tags[0].ID, "collection element must stay transient")
	require.NoError(t, tx.Insert(ctx, artSc, second))
	assert.NotEqual(t, first.(*model.Artifact).Tags[0].ID, art.Tags[0].ID)
}

func TestPrimaryKeyPolicyPropagatesToNestedRecords(t *testing.T) {
	st := testStore(t)
	m := materialize.New(st.Schemas())
	tx := beginTx(t, st)

	_, err := m.Materialize(context.Background(), tx, schema.Artifact, map[string]any{
		"url":  "https://example.org/x",
		"tags": []any{map[string]any{"id": 5, "tag": "go", "source": "readme"}},
	}, materialize.Options{PrimaryKeys: materialize.PKSkipStrict})
	require.Error(t, err)
	assert.Equal(t, materialize.KindPrimaryKey, kindOf(t, err))

	// The permissive policy still drops nested ids quietly.
	got, err := m.Materialize(context.Background(), tx, schema.Artifact, map[string]any{
		"url":  "https://example.org/x",
		"tags": []any{map[string]any{"id": 5, "tag": "go", "source": "readme"}},
	}, materialize.Options{PrimaryKeys: materialize.PKSkip})
	require.NoError(t, err)
	assert.Zero(t, got.(*model.Artifact).Tags[0].ID)
}

func TestInFlightCacheSharesNestedObjects(t *testing.T) {
	st := testStore(t)
	m := materialize.New(st.Schemas())
	tx := beginTx(t, st)

	// Byte-identical nested objects inside one document materialize to the
	// same in-flight record.
	tag := map[string]any{"tag": "go", "source": "readme"}
	doc := map[string]any{
		"url":  "https://example.org/x",
		"tags": []any{tag, map[string]any{"source": "readme", "tag": "go"}},
	}
	got, err := m.Materialize(context.Background(), tx, schema.Artifact, doc, materialize.Options{})
	require.NoError(t, err)
	art := got.(*model.Artifact)
	require.Len(t, art.Tags, 2)
	assert.Same(t, art.Tags[0], art.Tags[1])

	// A separate call carries a fresh cache.
	got2, err := m.Materialize(context.Background(), tx, schema.Artifact, doc, materialize.Options{})
	require.NoError(t, err)
	assert.NotSame(t, art.Tags[0], got2.(*model.Artifact).Tags[0])
}

func TestHasManyAcceptsSingleObject(t *testing.T) {
	st := testStore(t)
	m := materialize.New(st.Schemas())
	tx := beginTx(t, st)

	got, err := m.Materialize(context.Background(), tx, schema.Artifact, map[string]any{
		"url":  "https://example.org/x",
		"meta": map[string]any{"name": "ref", "value": "main"},
	}, materialize.Options{})
	require.NoError(t, err)
	art := got.(*model.Artifact)
	require.Len(t, art.Meta, 1)
	assert.Equal(t, "ref", art.Meta[0].Name)
}

func TestHasManyList(t *testing.T) {
	st := testStore(t)
	m := materialize.New(st.Schemas())
	tx := beginTx(t, st)

	got, err := m.Materialize(context.Background(), tx, schema.Artifact, map[string]any{
		"url": "https://example.org/x",
		"tags": []any{
			map[string]any{"tag": "go", "source": "readme"},
			map[string]any{"tag": "importer", "source": "readme"},
		},
	}, materialize.Options{})
	require.NoError(t, err)
	assert.Len(t, got.(*model.Artifact).Tags, 2)
}

func TestHasOneSetsForeignKeyForPersistedChild(t *testing.T) {
	st := testStore(t)
	m := materialize.New(st.Schemas())
	ctx := context.Background()

	tx := beginTx(t, st)
	licSc := st.Schemas().MustLookup(schema.License)
	lic := &model.License{ShortName: "MIT"}
	require.NoError(t, tx.Insert(ctx, licSc, lic))

	got, err := m.Materialize(ctx, tx, schema.Artifact, map[string]any{
		"url":     "https://example.org/x",
		"license": map[string]any{"short_name": "MIT", "verified": false},
	}, materialize.Options{})
	require.NoError(t, err)
	art := got.(*model.Artifact)
	assert.Equal(t, lic.ID, art.LicenseID, "resolved child wires the fk")
	assert.Equal(t, lic.ID, art.License.ID)
}

func TestWireValidationRejectsGarbage(t *testing.T) {
	st := testStore(t)
	m := materialize.New(st.Schemas())
	tx := beginTx(t, st)

	_, err := m.Materialize(context.Background(), tx, schema.Artifact, map[string]any{
		"url":      "https://example.org/x",
		"mystery":  []any{1, 2, 3},
		"whatever": map[string]any{},
	}, materialize.Options{ValidateWire: true})
	require.Error(t, err)

	// A well-formed document passes the same gate.
	_, err = m.Materialize(context.Background(), tx, schema.Artifact, map[string]any{
		"url":  "https://example.org/x",
		"type": "software",
		"tags": []any{map[string]any{"tag": "go", "source": "readme"}},
	}, materialize.Options{ValidateWire: true})
	require.NoError(t, err)
}
