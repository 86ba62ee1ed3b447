package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokinpui/recon/internal/patcher"
	"github.com/sokinpui/recon/model"
)

func strPtr(s string) *string { return &s }

func writeFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func newPlanner(t *testing.T, dir string) *Planner {
	t.Helper()
	resolver, err := NewPathResolver([]string{dir})
	require.NoError(t, err)
	return NewPlanner(resolver, nil, nil)
}

func TestResolverRejectsEscapes(t *testing.T) {
	dir := t.TempDir()
	resolver, err := NewPathResolver([]string{dir})
	require.NoError(t, err)

	for _, rel := range []string{"../outside.txt", "a/../../outside.txt", "/etc/passwd"} {
		_, err := resolver.Resolve(rel)
		assert.ErrorIs(t, err, ErrOutsideRoot, rel)
	}

	path, err := resolver.Resolve("pkg/new.go")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "pkg", "new.go"), path)
	assert.Equal(t, filepath.Join("pkg", "new.go"), resolver.Rel(path))
}

func TestResolverPrefersExistingFile(t *testing.T) {
	root, other := t.TempDir(), t.TempDir()
	existing := writeFile(t, other, "lib/util.go", "package lib\n")

	resolver, err := NewPathResolver([]string{root, other})
	require.NoError(t, err)

	path, err := resolver.Resolve("lib/util.go")
	require.NoError(t, err)
	assert.Equal(t, existing, path)
	assert.Equal(t, "", resolver.ResolveExisting("lib/missing.go"))
}

func TestPlanAndWrite(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main\n\nfunc main() {\n\tprintln(\"hi\")\n}\n")
	writeFile(t, dir, "old.go", "package main\n")
	writeFile(t, dir, "keep.go", "package main\n")

	result := model.ReconciliationResult{
		Files: []model.FileEdit{
			{Path: "pkg/new.go", Operation: model.OperationCreate, Content: strPtr("package pkg\n")},
			{Path: "old.go", Operation: model.OperationDelete},
			{Path: "main.go", Operation: model.OperationPatch, Patches: []model.Patch{
				{Search: "println(\"hi\")", Replace: "println(\"hello\")"},
			}},
			{Path: "keep.go", Operation: model.OperationUpdate, Content: strPtr("package main\n")},
		},
		Summary: "test",
	}

	plan, err := newPlanner(t, dir).Build(result)
	require.NoError(t, err)
	require.Len(t, plan.Changes, 3, "unchanged keep.go is pruned")
	assert.Equal(t, []string{filepath.Join(dir, "pkg")}, plan.Dirs)

	summary, err := NewWriter(nil, false).Write(plan)
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg/new.go"}, summary.Created)
	assert.Equal(t, []string{"main.go"}, summary.Modified)
	assert.Equal(t, []string{"old.go"}, summary.Deleted)

	assert.Equal(t, "package pkg\n", readFile(t, filepath.Join(dir, "pkg", "new.go")))
	assert.Equal(t, "package main\n\nfunc main() {\n\tprintln(\"hello\")\n}\n", readFile(t, filepath.Join(dir, "main.go")))
	assert.NoFileExists(t, filepath.Join(dir, "old.go"))
}

func TestPlanFailureWritesNothing(t *testing.T) {
	dir := t.TempDir()
	original := "package main\n\nfunc main() {}\n"
	writeFile(t, dir, "main.go", original)

	result := model.ReconciliationResult{
		Files: []model.FileEdit{
			{Path: "new.go", Operation: model.OperationCreate, Content: strPtr("package main\n")},
			{Path: "main.go", Operation: model.OperationPatch, Patches: []model.Patch{
				{Search: "this text is nowhere in the file at all", Replace: "x"},
			}},
			{Path: "missing.go", Operation: model.OperationPatch, Patches: []model.Patch{{Search: "a", Replace: "b"}}},
		},
	}

	plan, err := newPlanner(t, dir).Build(result)
	require.Error(t, err)
	assert.Nil(t, plan)
	assert.ErrorIs(t, err, patcher.ErrPatchNotFound)
	assert.ErrorIs(t, err, os.ErrNotExist)

	var planErr *PlanError
	require.ErrorAs(t, err, &planErr)
	assert.Equal(t, []string{"main.go", "missing.go"}, planErr.Paths())

	assert.Equal(t, original, readFile(t, filepath.Join(dir, "main.go")))
	assert.NoFileExists(t, filepath.Join(dir, "new.go"))
}

func TestPlanSequentialEditsOnOnePath(t *testing.T) {
	dir := t.TempDir()
	result := model.ReconciliationResult{
		Files: []model.FileEdit{
			{Path: "a.txt", Operation: model.OperationCreate, Content: strPtr("alpha\nbeta\n")},
			{Path: "a.txt", Operation: model.OperationPatch, Patches: []model.Patch{{Search: "beta", Replace: "gamma"}}},
		},
	}

	plan, err := newPlanner(t, dir).Build(result)
	require.NoError(t, err)
	require.Len(t, plan.Changes, 1)
	assert.Equal(t, ActionCreate, plan.Changes[0].Action)
	assert.Equal(t, "alpha\ngamma\n", *plan.Changes[0].After)
	require.Len(t, plan.Changes[0].Matches, 1)
	assert.Equal(t, model.MatchExact, plan.Changes[0].Matches[0].Strategy)
}

func TestDryRunPreview(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.txt", "one\ntwo\nthree\n")

	result := model.ReconciliationResult{
		Files: []model.FileEdit{{Path: "notes.txt", Operation: model.OperationUpdate, Content: strPtr("one\n2\nthree\n")}},
	}
	plan, err := newPlanner(t, dir).Build(result)
	require.NoError(t, err)

	summary, err := NewWriter(nil, true).Write(plan)
	require.NoError(t, err)
	require.Len(t, summary.Previews, 1)
	assert.Equal(t, "--- a/notes.txt\n+++ b/notes.txt\n one\n-two\n+2\n three\n", summary.Previews[0])
	assert.Equal(t, []string{"notes.txt"}, summary.Modified)
	assert.Equal(t, "one\ntwo\nthree\n", readFile(t, path), "dry run leaves the file alone")

	preview := PreviewChange(plan.Changes[0])
	assert.Equal(t, 1, preview.Added)
	assert.Equal(t, 1, preview.Deleted)
}

func TestRestore(t *testing.T) {
	dir := t.TempDir()
	kept := writeFile(t, dir, "kept.txt", "new")
	created := writeFile(t, dir, "created.txt", "x")

	restored, failed := NewWriter(nil, false).Restore(map[string]*string{
		kept:    strPtr("old"),
		created: nil,
	})
	assert.Empty(t, failed)
	assert.Len(t, restored, 2)
	assert.Equal(t, "old", readFile(t, kept))
	assert.NoFileExists(t, created)
}

func TestWriteFileAtomicKeepsMode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))

	require.NoError(t, WriteFileAtomic(path, []byte("#!/bin/sh\necho hi\n")))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
	assert.Equal(t, "#!/bin/sh\necho hi\n", readFile(t, path))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}
