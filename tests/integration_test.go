package tests

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/loom/api"
	"github.com/agentic-research/loom/internal/blueprint"
	"github.com/agentic-research/loom/internal/engine"
	"github.com/agentic-research/loom/internal/plugin"
	"github.com/agentic-research/loom/internal/runstore"
)

// testFixture bundles the shared state for integration tests: a temp
// dir for blueprint files and exports, a real SQLite run store, and an
// engine wired with the full default plugin registry.
type testFixture struct {
	dir    string
	store  *runstore.SQLiteStore
	engine *engine.Engine
}

func newFixture(t *testing.T) *testFixture {
	t.Helper()
	dir := t.TempDir()
	store, err := runstore.OpenSQLite(filepath.Join(dir, "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &testFixture{
		dir:    dir,
		store:  store,
		engine: engine.New(plugin.Default(), engine.WithRunStore(store), engine.WithLogger(log)),
	}
}

// writeBlueprint marshals bp to JSON in the fixture dir and loads it
// back through the loader, the same round trip the CLI performs.
func (f *testFixture) writeBlueprint(t *testing.T, bp map[string]any) *api.Blueprint {
	t.Helper()
	raw, err := json.MarshalIndent(bp, "", "  ")
	require.NoError(t, err)
	path := filepath.Join(f.dir, "blueprint.json")
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	loaded, err := blueprint.Load(path)
	require.NoError(t, err)
	return loaded
}

func fullStackBlueprint() map[string]any {
	return map[string]any{
		"id":   "demo-dapp",
		"name": "Demo DApp",
		"nodes": []map[string]any{
			{"id": "token", "type": "erc20", "config": map[string]any{
				"name": "Demo Token", "symbol": "DEMO",
			}},
			{"id": "app", "type": "scaffold", "config": map[string]any{
				"name": "Demo DApp", "description": "A demo", "chain_id": 421614,
			}},
			{"id": "auth", "type": "wallet", "config": map[string]any{
				"provider": "injected",
			}},
			{"id": "backend", "type": "api", "config": map[string]any{
				"name": "demo-api", "port": 4100,
			}},
		},
		"edges": []map[string]any{
			{"source": "token", "target": "app"},
			{"source": "app", "target": "auth"},
			{"source": "app", "target": "backend"},
		},
	}
}

func TestAssembleFullStackEndToEnd(t *testing.T) {
	f := newFixture(t)
	bp := f.writeBlueprint(t, fullStackBlueprint())
	out := filepath.Join(f.dir, "out")

	result, store, err := f.engine.Run(context.Background(), bp, engine.Options{ExportDir: out})
	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, api.RunCompleted, result.Status)

	// Contract sources land under contracts/, frontend under
	// apps/web/src, backend under apps/api/src.
	for _, p := range []string{
		"contracts/Cargo.toml",
		"contracts/src/lib.rs",
		"contracts/abi/DemoToken.json",
		"contracts/scripts/deploy.sh",
		"apps/web/src/app/layout.tsx",
		"apps/web/src/app/page.tsx",
		"apps/web/src/components/Header.tsx",
		"apps/web/src/components/WalletProvider.tsx",
		"apps/web/src/hooks/useWallet.ts",
		"apps/api/src/index.ts",
		"apps/api/src/routes/health.ts",
		"package.json",
		".env.example",
		".gitignore",
		"README.md",
		"pnpm-workspace.yaml",
	} {
		assert.True(t, store.Exists(p), "missing %s", p)
		_, statErr := os.Stat(filepath.Join(out, filepath.FromSlash(p)))
		assert.NoError(t, statErr, "not exported: %s", p)
	}

	// The wallet node patches the scaffold's layout, not a copy of it.
	layoutSrc, err := store.ReadFile("apps/web/src/app/layout.tsx")
	require.NoError(t, err)
	assert.Contains(t, string(layoutSrc), "WalletProvider")

	env, err := store.ReadFile(".env.example")
	require.NoError(t, err)
	assert.Contains(t, string(env), "NEXT_PUBLIC_CHAIN_ID=421614")
	assert.Contains(t, string(env), "API_PORT=4100")

	// Run store recorded completion with the full artifact manifest.
	run, err := f.store.Get(result.RunID)
	require.NoError(t, err)
	assert.Equal(t, string(api.RunCompleted), string(run.Status))
	arts, err := f.store.Artifacts(result.RunID)
	require.NoError(t, err)
	assert.Len(t, arts, len(result.Manifest.Files))
}

func TestAssembleFailsOnUnknownNodeType(t *testing.T) {
	f := newFixture(t)
	bp := f.writeBlueprint(t, map[string]any{
		"id": "bad",
		"nodes": []map[string]any{
			{"id": "x", "type": "teleporter", "config": map[string]any{}},
		},
	})

	result, _, err := f.engine.Run(context.Background(), bp, engine.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "teleporter")
	assert.Equal(t, api.RunFailed, result.Status)

	run, getErr := f.store.Get(result.RunID)
	require.NoError(t, getErr)
	assert.Equal(t, string(api.RunFailed), string(run.Status))
	assert.Contains(t, run.Error, "teleporter")
}

func TestAssembleCycleFails(t *testing.T) {
	f := newFixture(t)
	bp := f.writeBlueprint(t, map[string]any{
		"id": "cyclic",
		"nodes": []map[string]any{
			{"id": "a", "type": "scaffold", "config": map[string]any{"name": "A"}},
			{"id": "b", "type": "api", "config": map[string]any{"name": "b"}},
		},
		"edges": []map[string]any{
			{"source": "a", "target": "b"},
			{"source": "b", "target": "a"},
		},
	})

	result, _, err := f.engine.Run(context.Background(), bp, engine.Options{})
	require.Error(t, err)
	assert.Equal(t, api.RunFailed, result.Status)
}

func TestContractOnlyProjectShape(t *testing.T) {
	f := newFixture(t)
	bp := f.writeBlueprint(t, map[string]any{
		"id": "token-only",
		"nodes": []map[string]any{
			{"id": "nft", "type": "erc721", "config": map[string]any{
				"name": "Demo NFT", "symbol": "DNFT", "max_supply": 1000,
			}},
		},
	})

	result, store, err := f.engine.Run(context.Background(), bp, engine.Options{})
	require.NoError(t, err)
	assert.Equal(t, api.RunCompleted, result.Status)

	assert.True(t, store.Exists("contracts/src/lib.rs"))
	assert.False(t, store.Exists("apps/web/src/app/layout.tsx"))
	// Contracts without a frontend still use the workspace layout.
	assert.True(t, store.Exists("pnpm-workspace.yaml"))
}

func TestRunWithDocsProducesBothTrees(t *testing.T) {
	f := newFixture(t)
	bp := f.writeBlueprint(t, fullStackBlueprint())
	out := filepath.Join(f.dir, "out")

	dual, err := f.engine.RunWithDocs(context.Background(), bp, engine.Options{ExportDir: out})
	require.NoError(t, err)
	assert.Equal(t, api.RunCompleted, dual.Code.Status)
	assert.Equal(t, api.RunCompleted, dual.Docs.Status)
	assert.NotEqual(t, dual.Code.RunID, dual.Docs.RunID)

	assert.True(t, dual.CodeStore.Exists("apps/web/src/app/layout.tsx"))
	assert.True(t, dual.DocsStore.Exists("skills/README.md"))
	assert.True(t, dual.DocsStore.Exists("skills/erc20.md"))
	assert.True(t, dual.DocsStore.Exists("skills/environment.md"))

	skill, err := dual.DocsStore.ReadFile("skills/erc20.md")
	require.NoError(t, err)
	assert.Contains(t, string(skill), "Demo Token")
}

func TestCancellationStopsRun(t *testing.T) {
	f := newFixture(t)
	bp := f.writeBlueprint(t, fullStackBlueprint())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, _, err := f.engine.Run(ctx, bp, engine.Options{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, api.RunCancelled, result.Status)

	run, getErr := f.store.Get(result.RunID)
	require.NoError(t, getErr)
	assert.Equal(t, string(api.RunCancelled), string(run.Status))
}

func TestHCLBlueprintEndToEnd(t *testing.T) {
	f := newFixture(t)
	src := `blueprint "hcl-demo" {
  name = "HCL Demo"

  node "app" {
    type   = "scaffold"
    config = { name = "HCL Demo" }
  }

  node "backend" {
    type   = "api"
    config = { name = "hcl-api" }
  }

  edge {
    source = "app"
    target = "backend"
  }
}
`
	path := filepath.Join(f.dir, "blueprint.hcl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	bp, err := blueprint.Load(path)
	require.NoError(t, err)

	result, store, err := f.engine.Run(context.Background(), bp, engine.Options{})
	require.NoError(t, err)
	assert.Equal(t, api.RunCompleted, result.Status)
	assert.True(t, store.Exists("apps/web/src/app/page.tsx"))
	assert.True(t, store.Exists("apps/api/src/index.ts"))
}
