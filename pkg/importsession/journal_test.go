package importsession

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateMonotonic(t *testing.T) {
	j, err := NewJournal(t.TempDir())
	require.NoError(t, err)

	var last int64
	for i := 0; i < 5; i++ {
		id, dir, err := j.Allocate()
		require.NoError(t, err)
		assert.Greater(t, id, last)
		last = id

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		assert.Equal(t, strconv.FormatInt(id, 10), filepath.Base(dir))
	}
}

func TestAllocateSkipsExistingDirs(t *testing.T) {
	root := t.TempDir()
	j, err := NewJournal(root)
	require.NoError(t, err)

	// A stale workspace left by a crashed run occupies the next id.
	require.NoError(t, os.Mkdir(filepath.Join(root, "1"), 0755))
	require.NoError(t, os.Mkdir(filepath.Join(root, "2"), 0755))

	id, dir, err := j.Allocate()
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)
	assert.Equal(t, filepath.Join(root, "3"), dir)
}

func TestAllocateSurvivesReopen(t *testing.T) {
	root := t.TempDir()
	j, err := NewJournal(root)
	require.NoError(t, err)
	id1, dir1, err := j.Allocate()
	require.NoError(t, err)

	// Even after the workspace is reclaimed, a fresh journal over the same
	// root never hands the id out again.
	require.NoError(t, os.RemoveAll(dir1))
	j2, err := NewJournal(root)
	require.NoError(t, err)
	id2, _, err := j2.Allocate()
	require.NoError(t, err)
	assert.Greater(t, id2, id1)
}

func TestAllocateCorruptJournal(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, journalFile), []byte("not a number"), 0644))
	j, err := NewJournal(root)
	require.NoError(t, err)
	_, _, err = j.Allocate()
	require.Error(t, err)
}
