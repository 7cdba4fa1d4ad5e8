package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/loom/api"
	"github.com/agentic-research/loom/internal/tree"
)

func TestInsertStart(t *testing.T) {
	got, misses := ApplyOps("body", []api.PatchOperation{api.InsertStartOp("header")})
	assert.Equal(t, "header\nbody", got)
	assert.Empty(t, misses)
}

func TestInsertEnd(t *testing.T) {
	got, misses := ApplyOps("body", []api.PatchOperation{api.InsertEndOp("footer")})
	assert.Equal(t, "body\nfooter", got)
	assert.Empty(t, misses)
}

func TestInsertAfter(t *testing.T) {
	got, misses := ApplyOps("import a\nimport b\n", []api.PatchOperation{
		api.InsertAfterOp("import a\n", "import wallet\n"),
	})
	assert.Equal(t, "import a\nimport wallet\nimport b\n", got)
	assert.Empty(t, misses)
}

func TestInsertBefore(t *testing.T) {
	got, misses := ApplyOps("one two", []api.PatchOperation{
		api.InsertBeforeOp("two", "and a half "),
	})
	assert.Equal(t, "one and a half two", got)
	assert.Empty(t, misses)
}

func TestInsertAfterMissingMarkerIsByteIdenticalNoOp(t *testing.T) {
	original := "nothing interesting here"
	got, misses := ApplyOps(original, []api.PatchOperation{
		api.InsertAfterOp("MISSING", "payload"),
	})
	assert.Equal(t, original, got)
	require.Len(t, misses, 1)
	assert.Contains(t, misses[0], "MISSING")
}

func TestReplaceFirstOnly(t *testing.T) {
	got, misses := ApplyOps("aaa", []api.PatchOperation{api.ReplaceOp("a", "b", false)})
	assert.Equal(t, "baa", got)
	assert.Empty(t, misses)
}

func TestReplaceAll(t *testing.T) {
	got, misses := ApplyOps("aaa", []api.PatchOperation{api.ReplaceOp("a", "b", true)})
	assert.Equal(t, "bbb", got)
	assert.Empty(t, misses)
}

func TestReplaceMissingSearch(t *testing.T) {
	got, misses := ApplyOps("abc", []api.PatchOperation{api.ReplaceOp("xyz", "q", false)})
	assert.Equal(t, "abc", got)
	assert.Len(t, misses, 1)
}

func TestDeleteRemovesFirstOccurrence(t *testing.T) {
	got, misses := ApplyOps("x y x", []api.PatchOperation{api.DeleteOp("x ")})
	assert.Equal(t, "y x", got)
	assert.Empty(t, misses)
}

func TestOpsFoldInOrder(t *testing.T) {
	// The second op only matches text produced by the first.
	got, misses := ApplyOps("start", []api.PatchOperation{
		api.InsertEndOp("middle"),
		api.InsertAfterOp("middle", "\nend"),
	})
	assert.Equal(t, "start\nmiddle\nend", got)
	assert.Empty(t, misses)
}

func TestEmptyMarkerIsMiss(t *testing.T) {
	got, misses := ApplyOps("abc", []api.PatchOperation{
		{Kind: api.PatchInsert, Position: api.InsertAfter, Content: "x"},
	})
	assert.Equal(t, "abc", got)
	assert.Len(t, misses, 1)
}

func TestApplyMissingTarget(t *testing.T) {
	store := tree.NewMemory()

	warnings := Apply(store, api.FilePatch{
		Path: "apps/web/src/app/layout.tsx",
		Ops:  []api.PatchOperation{api.InsertEndOp("x")},
	})

	require.Len(t, warnings, 1)
	assert.Equal(t, "patch", warnings[0].Stage)
	assert.Equal(t, "apps/web/src/app/layout.tsx", warnings[0].Path)
	assert.False(t, store.Exists("apps/web/src/app/layout.tsx"))
}

func TestApplyPatchesExistingFile(t *testing.T) {
	store := tree.NewMemory()
	require.NoError(t, store.WriteFile("main.ts", []byte("const a = 1\n")))

	warnings := Apply(store, api.FilePatch{
		Path: "main.ts",
		Ops: []api.PatchOperation{
			api.InsertStartOp("// generated"),
			api.ReplaceOp("a = 1", "a = 2", false),
		},
	})

	assert.Empty(t, warnings)
	got, err := store.ReadFile("main.ts")
	require.NoError(t, err)
	assert.Equal(t, "// generated\nconst a = 2\n", string(got))
}

func TestApplyCollectsMissesButStillApplies(t *testing.T) {
	store := tree.NewMemory()
	require.NoError(t, store.WriteFile("f.txt", []byte("hello")))

	warnings := Apply(store, api.FilePatch{
		Path: "f.txt",
		Ops: []api.PatchOperation{
			api.InsertAfterOp("NOPE", "x"),
			api.InsertEndOp("world"),
		},
	})

	require.Len(t, warnings, 1)
	assert.Equal(t, "f.txt", warnings[0].Path)
	got, err := store.ReadFile("f.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello\nworld", string(got))
}
