package blob_test

import (
	"context"
	"encoding/hex"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cairnhub/cairn/pkg/blob"
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

func TestPutDeduplicates(t *testing.T) {
	st := testStore(t)
	blobs := blob.New(nil)
	ctx := context.Background()

	data := []byte("the same payload every time")
	var firstID int64
	for i := 0; i < 5; i++ {
		tx, err := st.Begin(ctx)
		require.NoError(t, err)
		fc, err := blobs.Put(ctx, tx, data)
		require.NoError(t, err)
		require.NoError(t, tx.Commit())

		if i == 0 {
			firstID = fc.ID
			require.NotZero(t, firstID)
		} else {
			assert.Equal(t, firstID, fc.ID)
		}
		assert.Equal(t, model.ContentDigest(data), fc.Digest)
		assert.Equal(t, int64(len(data)), fc.Size)
	}

	var n int
	err := st.DB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM file_content WHERE hash = ?",
		model.ContentDigest(data)).Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "identical bytes must share one row")
}

func TestPutDistinctPayloads(t *testing.T) {
	st := testStore(t)
	blobs := blob.New(nil)
	ctx := context.Background()

	tx, err := st.Begin(ctx)
	require.NoError(t, err)
	a, err := blobs.Put(ctx, tx, []byte("alpha"))
	require.NoError(t, err)
	b, err := blobs.Put(ctx, tx, []byte("beta"))
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.NotEqual(t, a.ID, b.ID)
	assert.NotEqual(t, a.Digest, b.Digest)
}

func TestFindByDigest(t *testing.T) {
	st := testStore(t)
	blobs := blob.New(nil)
	ctx := context.Background()

	tx, err := st.Begin(ctx)
	require.NoError(t, err)
	fc, err := blobs.Put(ctx, tx, []byte("lookup me"))
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	got, err := blobs.FindByDigest(ctx, st, fc.Digest)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, fc.ID, got.ID)

	miss, err := blobs.FindByDigest(ctx, st, model.ContentDigest([]byte("never stored")))
	require.NoError(t, err)
	assert.Nil(t, miss)
}

func TestOpenInlinePayload(t *testing.T) {
	st := testStore(t)
	blobs := blob.New(nil)
	ctx := context.Background()

	tx, err := st.Begin(ctx)
	require.NoError(t, err)
	fc, err := blobs.Put(ctx, tx, []byte("round trip"))
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	data, err := blobs.Open(ctx, st, fc)
	require.NoError(t, err)
	assert.Equal(t, []byte("round trip"), data)
}

func TestFSBackendIdempotentStore(t *testing.T) {
	dir := t.TempDir()
	backend, err := blob.NewFSBackend(dir)
	require.NoError(t, err)
	ctx := context.Background()

	data := []byte("on disk")
	digest := hex.EncodeToString(model.ContentDigest(data))
	require.NoError(t, backend.Store(ctx, digest, data))
	// Storing the same digest again is a no-op, not an error.
	require.NoError(t, backend.Store(ctx, digest, data))

	got, err := backend.Open(ctx, digest)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestFSBackendRejectsBadDigest(t *testing.T) {
	backend, err := blob.NewFSBackend(t.TempDir())
	require.NoError(t, err)

	err = backend.Store(context.Background(), "../../etc/passwd", []byte("x"))
	require.Error(t, err)
}
