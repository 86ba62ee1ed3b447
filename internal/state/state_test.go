package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestHistoryUndoRedo(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".recon")
	m, err := Open(dir)
	require.NoError(t, err)

	entry, err := m.Undo()
	require.NoError(t, err)
	assert.Nil(t, entry, "empty history has nothing to undo")

	require.NoError(t, m.Write([]Snapshot{{Path: "/w/a.go", Before: nil, After: strPtr("a1")}}, "first"))
	require.NoError(t, m.Write([]Snapshot{{Path: "/w/a.go", Before: strPtr("a1"), After: strPtr("a2")}}, "second"))

	entry, err = m.Undo()
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "second", entry.Summary)
	assert.Equal(t, "a1", *entry.BeforeContents()["/w/a.go"])

	// Reload from disk to check the pointer was persisted.
	m, err = Open(dir)
	require.NoError(t, err)
	entries, current := m.Len()
	assert.Equal(t, 2, entries)
	assert.Equal(t, 0, current)

	entry, err = m.Redo()
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "a2", *entry.AfterContents()["/w/a.go"])

	entry, err = m.Redo()
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestWriteDiscardsUndoneRuns(t *testing.T) {
	m, err := Open(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, m.Write([]Snapshot{{Path: "a"}}, "one"))
	require.NoError(t, m.Write([]Snapshot{{Path: "b"}}, "two"))
	_, err = m.Undo()
	require.NoError(t, err)
	require.NoError(t, m.Write([]Snapshot{{Path: "c"}}, "three"))

	entries, current := m.Len()
	assert.Equal(t, 2, entries)
	assert.Equal(t, 1, current)

	entry, err := m.Undo()
	require.NoError(t, err)
	assert.Equal(t, "three", entry.Summary)
	assert.Nil(t, entry.BeforeContents()["c"], "nil before means the file did not exist")
}

func TestOpenRejectsCorruptState(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, stateFileName), []byte("{not json"), 0o644))
	_, err := Open(dir)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, stateFileName), []byte(`{"history":[],"current_index":3}`), 0o644))
	_, err = Open(dir)
	assert.ErrorContains(t, err, "out of range")
}

func TestNewOutsideRepository(t *testing.T) {
	dir := t.TempDir()
	m, err := New(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, stateDirName), m.StateDir)
	assert.NoDirExists(t, m.StateDir, "loading must not create the state directory")

	entry, err := m.Undo()
	require.NoError(t, err)
	assert.Nil(t, entry)
	assert.NoDirExists(t, m.StateDir)

	require.NoError(t, m.Write([]Snapshot{{Path: "a"}}, "one"))
	assert.FileExists(t, filepath.Join(m.StateDir, stateFileName))
}
