package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessedSetPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "state.bolt")

	p, err := OpenProcessedSet(path)
	require.NoError(t, err)
	assert.Zero(t, p.Len())
	require.NoError(t, p.Add("a", "b"))
	require.NoError(t, p.Add("b"))
	assert.True(t, p.Contains("a"))
	require.NoError(t, p.Close())

	p, err = OpenProcessedSet(path)
	require.NoError(t, err)
	defer p.Close()
	assert.Equal(t, []string{"a", "b"}, p.Links())
}

func TestProcessedSetFilter(t *testing.T) {
	p, err := OpenProcessedSet(filepath.Join(t.TempDir(), "state.bolt"))
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.Add("b"))
	assert.Equal(t, []string{"c", "a"}, p.Filter([]string{"c", "b", "a", "c"}))
	assert.Nil(t, p.Filter(nil))
}

func TestProcessedSetCorruptFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.bolt")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a bolt file"), 0600))

	p, err := OpenProcessedSet(path)
	require.NoError(t, err)
	defer p.Close()
	assert.Zero(t, p.Len())
	require.NoError(t, p.Add("x"))

	matches, err := filepath.Glob(filepath.Join(dir, "state.bolt.corrupt-*"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestProcessedSetClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.bolt")
	p, err := OpenProcessedSet(path)
	require.NoError(t, err)
	require.NoError(t, p.Add("a", "b"))
	require.NoError(t, p.Clear())
	assert.Zero(t, p.Len())
	require.NoError(t, p.Add("c"))
	require.NoError(t, p.Close())

	p, err = OpenProcessedSet(path)
	require.NoError(t, err)
	defer p.Close()
	assert.Equal(t, []string{"c"}, p.Links())
}
