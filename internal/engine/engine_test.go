package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/loom/api"
	"github.com/agentic-research/loom/internal/plugin"
)

// stubPlugin is a minimal plugin for exercising the coordinator without
// the reference templates.
type stubPlugin struct {
	typ      string
	validate func(api.Node) api.ValidationResult
	generate func(api.Node, *api.ExecutionContext) (*api.CodegenOutput, error)
}

func (s *stubPlugin) Type() string { return s.typ }

func (s *stubPlugin) Validate(node api.Node, _ *api.ExecutionContext) api.ValidationResult {
	if s.validate == nil {
		return api.Valid()
	}
	return s.validate(node)
}

func (s *stubPlugin) Generate(_ context.Context, node api.Node, ec *api.ExecutionContext) (*api.CodegenOutput, error) {
	return s.generate(node, ec)
}

func emit(files ...api.GeneratedFile) func(api.Node, *api.ExecutionContext) (*api.CodegenOutput, error) {
	return func(api.Node, *api.ExecutionContext) (*api.CodegenOutput, error) {
		return &api.CodegenOutput{Files: files}, nil
	}
}

func TestRunScenarioContractPlusFrontend(t *testing.T) {
	e := New(plugin.Default())
	bp := &api.Blueprint{
		ID:   "dapp",
		Name: "Demo dApp",
		Nodes: []api.Node{
			{ID: "contract", Type: "erc20", Config: map[string]any{"name": "Demo Token", "symbol": "DEMO"}},
			{ID: "frontend", Type: "scaffold", Config: map[string]any{"name": "Demo dApp"}},
		},
		Edges: []api.Edge{{Source: "contract", Target: "frontend"}},
	}

	result, store, err := e.Run(context.Background(), bp, Options{})
	require.NoError(t, err)
	assert.Equal(t, api.RunCompleted, result.Status)

	// ABI under the contracts base, frontend files under the frontend base.
	assert.True(t, store.Exists("contracts/abi/DemoToken.json"))
	assert.True(t, store.Exists("contracts/src/lib.rs"))
	assert.True(t, store.Exists("apps/web/src/app/layout.tsx"))
	assert.True(t, store.Exists("apps/web/src/components/Header.tsx"))

	// Frontend+contracts shape: no workspace tooling.
	assert.False(t, store.Exists("pnpm-workspace.yaml"))
	assert.True(t, store.Exists("package.json"))
	assert.True(t, store.Exists(".env.example"))
	assert.NotEmpty(t, result.Manifest.Files)
}

func TestRunFailsOnUnknownPluginType(t *testing.T) {
	e := New(plugin.Default())
	bp := &api.Blueprint{
		ID:    "broken",
		Nodes: []api.Node{{ID: "mystery", Type: "quantum-db"}},
	}

	result, _, err := e.Run(context.Background(), bp, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mystery")
	assert.Contains(t, err.Error(), "quantum-db")
	assert.Equal(t, api.RunFailed, result.Status)
	assert.Empty(t, result.Manifest.Files)
}

func TestRunFailsOnCycleBeforeAnyWrite(t *testing.T) {
	generated := false
	reg := plugin.NewRegistry(&stubPlugin{
		typ: "t",
		generate: func(api.Node, *api.ExecutionContext) (*api.CodegenOutput, error) {
			generated = true
			return &api.CodegenOutput{}, nil
		},
	})
	e := New(reg)
	bp := &api.Blueprint{
		ID:    "cyclic",
		Nodes: []api.Node{{ID: "a", Type: "t"}, {ID: "b", Type: "t"}},
		Edges: []api.Edge{{Source: "a", Target: "b"}, {Source: "b", Target: "a"}},
	}

	result, store, err := e.Run(context.Background(), bp, Options{})
	require.Error(t, err)
	assert.Equal(t, api.RunFailed, result.Status)
	assert.Nil(t, store)
	assert.False(t, generated, "no plugin may run after a cycle is detected")
}

func TestRunFailsOnConfigValidation(t *testing.T) {
	e := New(plugin.Default())
	bp := &api.Blueprint{
		ID:    "badcfg",
		Nodes: []api.Node{{ID: "token", Type: "erc20", Config: map[string]any{"symbol": "DEMO"}}},
	}

	_, _, err := e.Run(context.Background(), bp, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token")
	assert.Contains(t, err.Error(), "name")
}

func TestRunMergePrecedenceSamePath(t *testing.T) {
	reg := plugin.NewRegistry(
		&stubPlugin{typ: "first", generate: emit(
			api.GeneratedFile{Path: "shared/config.json", Content: []byte(`{"a": 1}`)},
			api.GeneratedFile{Path: "shared/code.ts", Content: []byte("export const v = 1\n")},
		)},
		&stubPlugin{typ: "second", generate: emit(
			api.GeneratedFile{Path: "shared/config.json", Content: []byte(`{"b": 2}`)},
			api.GeneratedFile{Path: "shared/code.ts", Content: []byte("export const v = 2\n")},
		)},
	)
	e := New(reg)
	bp := &api.Blueprint{
		ID: "conflict",
		Nodes: []api.Node{
			{ID: "n1", Type: "first"},
			{ID: "n2", Type: "second"},
		},
		Edges: []api.Edge{{Source: "n1", Target: "n2"}},
	}

	result, store, err := e.Run(context.Background(), bp, Options{})
	require.NoError(t, err)

	// Mergeable JSON unions both keys.
	merged, err := store.ReadFile("shared/config.json")
	require.NoError(t, err)
	assert.Contains(t, string(merged), `"a"`)
	assert.Contains(t, string(merged), `"b"`)

	// Non-mergeable source keeps the first writer's bytes.
	code, err := store.ReadFile("shared/code.ts")
	require.NoError(t, err)
	assert.Equal(t, "export const v = 1\n", string(code))

	var conflictWarnings int
	for _, w := range result.Warnings {
		if w.Path == "shared/code.ts" {
			conflictWarnings++
			assert.Equal(t, "n2", w.NodeID)
		}
	}
	assert.Equal(t, 1, conflictWarnings)
}

func TestRunNodeOutputsVisibleToSuccessors(t *testing.T) {
	var sawUpstream bool
	reg := plugin.NewRegistry(
		&stubPlugin{typ: "up", generate: emit(
			api.GeneratedFile{Path: "up.txt", Content: []byte("x")},
		)},
		&stubPlugin{typ: "down", generate: func(_ api.Node, ec *api.ExecutionContext) (*api.CodegenOutput, error) {
			sawUpstream = ec.Output("a") != nil
			return &api.CodegenOutput{}, nil
		}},
	)
	e := New(reg)
	bp := &api.Blueprint{
		ID:    "chain",
		Nodes: []api.Node{{ID: "a", Type: "up"}, {ID: "b", Type: "down"}},
		Edges: []api.Edge{{Source: "a", Target: "b"}},
	}
	_, _, err := e.Run(context.Background(), bp, Options{})
	require.NoError(t, err)
	assert.True(t, sawUpstream)
}

func TestRunCancellationStopsBeforeNextNode(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var ran []string
	reg := plugin.NewRegistry(&stubPlugin{
		typ: "t",
		generate: func(node api.Node, _ *api.ExecutionContext) (*api.CodegenOutput, error) {
			ran = append(ran, node.ID)
			cancel() // cancel mid-run; the next node must not start
			return &api.CodegenOutput{}, nil
		},
	})
	e := New(reg)
	bp := &api.Blueprint{
		ID:    "cancellable",
		Nodes: []api.Node{{ID: "a", Type: "t"}, {ID: "b", Type: "t"}},
		Edges: []api.Edge{{Source: "a", Target: "b"}},
	}

	result, _, err := e.Run(ctx, bp, Options{})
	require.Error(t, err)
	assert.Equal(t, api.RunCancelled, result.Status)
	assert.Equal(t, []string{"a"}, ran)
}

func TestRunEnvDedupFirstWinsWithWarning(t *testing.T) {
	reg := plugin.NewRegistry(
		&stubPlugin{typ: "one", generate: func(api.Node, *api.ExecutionContext) (*api.CodegenOutput, error) {
			return &api.CodegenOutput{EnvVars: []api.EnvVar{{Key: "PORT", Value: "3000"}}}, nil
		}},
		&stubPlugin{typ: "two", generate: func(api.Node, *api.ExecutionContext) (*api.CodegenOutput, error) {
			return &api.CodegenOutput{EnvVars: []api.EnvVar{{Key: "PORT", Value: "4000"}}}, nil
		}},
	)
	e := New(reg)
	bp := &api.Blueprint{
		ID:    "envs",
		Nodes: []api.Node{{ID: "a", Type: "one"}, {ID: "b", Type: "two"}},
		Edges: []api.Edge{{Source: "a", Target: "b"}},
	}

	result, _, err := e.Run(context.Background(), bp, Options{})
	require.NoError(t, err)
	require.Len(t, result.EnvVars, 1)
	assert.Equal(t, "3000", result.EnvVars[0].Value)

	var found bool
	for _, w := range result.Warnings {
		if w.Stage == "env" && w.NodeID == "b" {
			found = true
		}
	}
	assert.True(t, found, "conflicting env redefinition must surface a warning")
}

func TestRunWorkspaceSynthesisShape(t *testing.T) {
	e := New(plugin.Default())

	// Backend present: workspace tooling appears.
	bp := &api.Blueprint{
		ID:    "svc",
		Nodes: []api.Node{{ID: "svc", Type: "api", Config: map[string]any{"name": "Orders"}}},
	}
	_, store, err := e.Run(context.Background(), bp, Options{})
	require.NoError(t, err)
	assert.True(t, store.Exists("pnpm-workspace.yaml"))

	// Contracts-only project also gets it.
	bp = &api.Blueprint{
		ID:    "chain",
		Nodes: []api.Node{{ID: "token", Type: "erc20", Config: map[string]any{"name": "T", "symbol": "T"}}},
	}
	_, store, err = e.Run(context.Background(), bp, Options{})
	require.NoError(t, err)
	assert.True(t, store.Exists("pnpm-workspace.yaml"))
}

func TestRunWalletPatchesScaffold(t *testing.T) {
	e := New(plugin.Default())
	bp := &api.Blueprint{
		ID: "authdapp",
		Nodes: []api.Node{
			{ID: "web", Type: "scaffold", Config: map[string]any{"name": "Shop"}},
			{ID: "auth", Type: "wallet"},
		},
		Edges: []api.Edge{{Source: "web", Target: "auth"}},
	}

	result, store, err := e.Run(context.Background(), bp, Options{})
	require.NoError(t, err)
	assert.Equal(t, api.RunCompleted, result.Status)

	layout, err := store.ReadFile("apps/web/src/app/layout.tsx")
	require.NoError(t, err)
	assert.Contains(t, string(layout), "<WalletProvider>")
	assert.Contains(t, string(layout), "import { WalletProvider }")
}

func TestRunExportsToDirectory(t *testing.T) {
	e := New(plugin.Default())
	out := filepath.Join(t.TempDir(), "proj")
	bp := &api.Blueprint{
		ID:    "exported",
		Nodes: []api.Node{{ID: "token", Type: "erc20", Config: map[string]any{"name": "T", "symbol": "T"}}},
	}

	result, _, err := e.Run(context.Background(), bp, Options{ExportDir: out})
	require.NoError(t, err)

	// Every manifest entry exists on disk with matching size.
	for _, f := range result.Manifest.Files {
		info, err := os.Stat(filepath.Join(out, filepath.FromSlash(f.Path)))
		require.NoError(t, err, f.Path)
		assert.Equal(t, f.Size, info.Size(), f.Path)
	}
}

func TestRunWithDocsProducesBothTrees(t *testing.T) {
	e := New(plugin.Default())
	bp := &api.Blueprint{
		ID:   "dual",
		Name: "Dual",
		Nodes: []api.Node{
			{ID: "token", Type: "erc20", Config: map[string]any{"name": "Demo", "symbol": "DEMO"}},
		},
	}

	dual, err := e.RunWithDocs(context.Background(), bp, Options{})
	require.NoError(t, err)
	assert.Equal(t, api.RunCompleted, dual.Code.Status)
	assert.Equal(t, api.RunCompleted, dual.Docs.Status)
	assert.NotEqual(t, dual.Code.RunID, dual.Docs.RunID)

	assert.True(t, dual.CodeStore.Exists("contracts/src/lib.rs"))
	assert.True(t, dual.DocsStore.Exists("skills/erc20.md"))
	assert.False(t, dual.DocsStore.Exists("contracts/src/lib.rs"))
}
