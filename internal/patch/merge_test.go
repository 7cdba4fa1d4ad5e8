package patch

import (
	"testing"

	"github.com/joho/godotenv"
	"github.com/ohler55/ojg/oj"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/loom/internal/tree"
)

func TestMergeablePolicy(t *testing.T) {
	mergeable := []string{
		"package.json", "apps/web/tsconfig.json", "pnpm-workspace.yaml",
		"config.yml", ".env", ".env.example", "apps/api/.env.local",
		".gitignore", "apps/web/.npmignore",
	}
	for _, p := range mergeable {
		assert.True(t, Mergeable(p), "expected %s mergeable", p)
	}
	notMergeable := []string{
		"src/lib.rs", "apps/web/src/app/page.tsx", "README.md",
		"Cargo.toml", "deploy.sh",
	}
	for _, p := range notMergeable {
		assert.False(t, Mergeable(p), "expected %s not mergeable", p)
	}
}

func TestMergeIdenticalContentIsClean(t *testing.T) {
	merged, warnings, ok := Merge("src/lib.rs", []byte("same"), []byte("same"))
	assert.True(t, ok)
	assert.Empty(t, warnings)
	assert.Equal(t, "same", string(merged))
}

func TestMergeJSONUnion(t *testing.T) {
	existing := []byte(`{"name":"app","dependencies":{"react":"^18"}}`)
	incoming := []byte(`{"dependencies":{"viem":"^2"},"scripts":{"dev":"next dev"}}`)

	merged, warnings, ok := Merge("package.json", existing, incoming)
	require.True(t, ok)
	assert.Empty(t, warnings)

	v, err := oj.Parse(merged)
	require.NoError(t, err)
	doc := v.(map[string]any)
	assert.Equal(t, "app", doc["name"])
	deps := doc["dependencies"].(map[string]any)
	assert.Equal(t, "^18", deps["react"])
	assert.Equal(t, "^2", deps["viem"])
	assert.Equal(t, "next dev", doc["scripts"].(map[string]any)["dev"])
}

func TestMergeJSONScalarConflictKeepsExisting(t *testing.T) {
	existing := []byte(`{"name":"mine","version":"1.0.0"}`)
	incoming := []byte(`{"name":"theirs"}`)

	merged, warnings, ok := Merge("package.json", existing, incoming)
	require.True(t, ok)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "name")

	v, err := oj.Parse(merged)
	require.NoError(t, err)
	assert.Equal(t, "mine", v.(map[string]any)["name"])
}

func TestMergeJSONArrayUnion(t *testing.T) {
	existing := []byte(`{"keywords":["web3","stylus"]}`)
	incoming := []byte(`{"keywords":["stylus","wallet"]}`)

	merged, warnings, ok := Merge("package.json", existing, incoming)
	require.True(t, ok)
	assert.Empty(t, warnings)

	v, err := oj.Parse(merged)
	require.NoError(t, err)
	assert.Equal(t, []any{"web3", "stylus", "wallet"}, v.(map[string]any)["keywords"])
}

func TestMergeJSONDeterministic(t *testing.T) {
	existing := []byte(`{"b":1,"a":{"y":2,"x":3}}`)
	incoming := []byte(`{"c":4}`)

	first, _, ok := Merge("cfg.json", existing, incoming)
	require.True(t, ok)
	for i := 0; i < 5; i++ {
		again, _, _ := Merge("cfg.json", existing, incoming)
		assert.Equal(t, string(first), string(again))
	}
}

func TestMergeJSONInvalidIncoming(t *testing.T) {
	existing := []byte(`{"a":1}`)
	merged, warnings, ok := Merge("cfg.json", existing, []byte("not json"))
	assert.False(t, ok)
	assert.Equal(t, existing, merged)
	require.Len(t, warnings, 1)
}

func TestMergeEnvUnion(t *testing.T) {
	existing := []byte("API_URL=http://localhost:4000\nCHAIN_ID=421614\n")
	incoming := []byte("CHAIN_ID=1\nWALLET_PROJECT_ID=abc\n")

	merged, warnings, ok := Merge(".env.example", existing, incoming)
	require.True(t, ok)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "CHAIN_ID")

	m, err := godotenv.Unmarshal(string(merged))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:4000", m["API_URL"])
	assert.Equal(t, "421614", m["CHAIN_ID"])
	assert.Equal(t, "abc", m["WALLET_PROJECT_ID"])
}

func TestMergeIgnoreFileLineUnion(t *testing.T) {
	existing := []byte("node_modules\ndist\n")
	incoming := []byte("dist\ntarget\n.env\n")

	merged, warnings, ok := Merge(".gitignore", existing, incoming)
	require.True(t, ok)
	assert.Empty(t, warnings)
	assert.Equal(t, "node_modules\ndist\ntarget\n.env\n", string(merged))
}

func TestMergeYAMLTopLevelUnion(t *testing.T) {
	existing := []byte("packages:\n  - apps/*\n")
	incoming := []byte("packages:\n  - contracts\ncatalog: {}\n")

	merged, warnings, ok := Merge("pnpm-workspace.yaml", existing, incoming)
	require.True(t, ok)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "packages")
	assert.Contains(t, string(merged), "apps/*")
	assert.Contains(t, string(merged), "catalog")
	assert.NotContains(t, string(merged), "- contracts")
}

func TestMergeNonMergeableKeepsExistingBytes(t *testing.T) {
	existing := []byte("export const a = 1\n")
	incoming := []byte("export const a = 2\n")

	merged, warnings, ok := Merge("apps/web/src/lib/a.ts", existing, incoming)
	assert.False(t, ok)
	assert.Equal(t, existing, merged)
	require.Len(t, warnings, 1)
	assert.Equal(t, "merge", warnings[0].Stage)
	assert.Equal(t, "apps/web/src/lib/a.ts", warnings[0].Path)
}

func TestMergeIntoWritesWhenAbsent(t *testing.T) {
	store := tree.NewMemory()

	warnings, err := MergeInto(store, "package.json", []byte(`{"name":"x"}`))
	require.NoError(t, err)
	assert.Empty(t, warnings)

	got, err := store.ReadFile("package.json")
	require.NoError(t, err)
	assert.Equal(t, `{"name":"x"}`, string(got))
}

func TestMergeIntoMergesWhenPresent(t *testing.T) {
	store := tree.NewMemory()
	require.NoError(t, store.WriteFile("package.json", []byte(`{"name":"x"}`)))

	warnings, err := MergeInto(store, "package.json", []byte(`{"private":true}`))
	require.NoError(t, err)
	assert.Empty(t, warnings)

	got, err := store.ReadFile("package.json")
	require.NoError(t, err)
	v, err := oj.Parse(got)
	require.NoError(t, err)
	doc := v.(map[string]any)
	assert.Equal(t, "x", doc["name"])
	assert.Equal(t, true, doc["private"])
}

func TestMergeIntoNonMergeableLeavesFileUntouched(t *testing.T) {
	store := tree.NewMemory()
	require.NoError(t, store.WriteFile("src/lib.rs", []byte("original")))

	warnings, err := MergeInto(store, "src/lib.rs", []byte("replacement"))
	require.NoError(t, err)
	require.Len(t, warnings, 1)

	got, err := store.ReadFile("src/lib.rs")
	require.NoError(t, err)
	assert.Equal(t, "original", string(got))
}
