package plugin

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/loom/api"
)

func execContext() *api.ExecutionContext {
	return &api.ExecutionContext{
		RunID: "test-run",
		Path: api.PathContext{
			HasFrontend:   true,
			HasContracts:  true,
			FrontendBase:  "apps/web/src",
			BackendBase:   "apps/api/src",
			ContractsBase: "contracts",
		},
		NodeOutputs: map[string]*api.CodegenOutput{},
	}
}

func TestRegistryServesBuiltins(t *testing.T) {
	reg := Default()
	assert.Equal(t, []string{"api", "erc20", "erc721", "scaffold", "wallet"}, reg.Types())

	p, ok := reg.Get("erc20")
	require.True(t, ok)
	assert.Equal(t, "erc20", p.Type())

	_, ok = reg.Get("nonsense")
	assert.False(t, ok)
}

func TestERC20ValidateRejectsBadSymbol(t *testing.T) {
	p := NewERC20()
	res := p.Validate(api.Node{ID: "t", Type: "erc20", Config: map[string]any{
		"name":   "Demo Token",
		"symbol": "not a symbol!",
	}}, execContext())
	require.False(t, res.Valid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "symbol", res.Errors[0].Field)
}

func TestERC20ValidateRequiresName(t *testing.T) {
	p := NewERC20()
	res := p.Validate(api.Node{ID: "t", Type: "erc20", Config: map[string]any{
		"symbol": "DEMO",
	}}, execContext())
	require.False(t, res.Valid)
	assert.Equal(t, "name", res.Errors[0].Field)
	assert.Equal(t, "is required", res.Errors[0].Message)
}

func TestERC20GenerateEmitsContractPackage(t *testing.T) {
	p := NewERC20()
	out, err := p.Generate(context.Background(), api.Node{
		ID:   "token",
		Type: "erc20",
		Config: map[string]any{
			"name":   "Demo Token",
			"symbol": "DEMO",
		},
	}, execContext())
	require.NoError(t, err)

	paths := map[string]api.FileCategory{}
	for _, f := range out.Files {
		paths[f.Path] = f.Category
	}
	assert.Equal(t, api.CategoryContractSource, paths["src/lib.rs"])
	assert.Equal(t, api.CategoryContractSource, paths["Cargo.toml"])
	assert.Equal(t, api.CategoryContractABI, paths["DemoToken.json"])
	assert.Equal(t, api.CategoryContractScript, paths["deploy.sh"])

	var lib string
	for _, f := range out.Files {
		if f.Path == "src/lib.rs" {
			lib = string(f.Content)
		}
	}
	assert.Contains(t, lib, "pub struct DemoToken")
	assert.Contains(t, lib, "# Demo Token (DEMO)")
	assert.NotEmpty(t, out.Docs)
	assert.NotEmpty(t, out.EnvVars)
}

func TestERC721GenerateUsesCollectionName(t *testing.T) {
	p := NewERC721()
	out, err := p.Generate(context.Background(), api.Node{
		ID:   "nft",
		Type: "erc721",
		Config: map[string]any{
			"name":       "Robin NFT",
			"symbol":     "RNFT",
			"max_supply": 1000,
		},
	}, execContext())
	require.NoError(t, err)

	var lib string
	for _, f := range out.Files {
		if f.Path == "src/lib.rs" {
			lib = string(f.Content)
		}
	}
	assert.Contains(t, lib, "pub struct RobinNFT")
	assert.Contains(t, out.Docs, "capped at 1000")
}

func TestScaffoldGenerateLeavesPatchMarkers(t *testing.T) {
	p := NewScaffold()
	out, err := p.Generate(context.Background(), api.Node{
		ID:   "web",
		Type: "scaffold",
		Config: map[string]any{
			"name": "My dApp",
		},
	}, execContext())
	require.NoError(t, err)

	var layout, header string
	for _, f := range out.Files {
		switch f.Path {
		case "layout.tsx":
			layout = string(f.Content)
		case "Header.tsx":
			header = string(f.Content)
		}
	}
	assert.Contains(t, layout, "loom:providers")
	assert.Contains(t, header, "loom:header-actions")

	names := make([]string, 0, len(out.Scripts))
	for _, s := range out.Scripts {
		names = append(names, s.Name)
	}
	assert.Contains(t, names, "dev")
}

func TestWalletPatchesTargetScaffoldPaths(t *testing.T) {
	p := NewWallet()
	out, err := p.Generate(context.Background(), api.Node{
		ID:     "auth",
		Type:   "wallet",
		Config: map[string]any{"provider": "walletconnect", "project_id": "abc123"},
	}, execContext())
	require.NoError(t, err)

	var paths []string
	for _, fp := range out.Patches {
		paths = append(paths, fp.Path)
	}
	assert.Contains(t, paths, "apps/web/src/app/layout.tsx")
	assert.Contains(t, paths, "apps/web/src/components/Header.tsx")

	keys := make([]string, 0, len(out.EnvVars))
	for _, ev := range out.EnvVars {
		keys = append(keys, ev.Key)
	}
	assert.Contains(t, keys, "NEXT_PUBLIC_WALLETCONNECT_PROJECT_ID")
}

func TestWalletComponentOnlyWhenDirConfigured(t *testing.T) {
	p := NewWallet()
	assert.Nil(t, p.Component(api.Node{ID: "auth", Type: "wallet"}))

	spec := p.Component(api.Node{ID: "auth", Type: "wallet", Config: map[string]any{
		"component_dir": "/tmp/wallet-pkg",
	}})
	require.NotNil(t, spec)
	assert.Equal(t, "wallet", spec.Name)
	assert.NotEmpty(t, spec.Mappings)

	legacy := p.Component(api.Node{ID: "auth", Type: "wallet", Config: map[string]any{
		"component_dir": "/tmp/wallet-pkg",
		"legacy_import": true,
	}})
	require.NotNil(t, legacy)
	assert.Equal(t, api.ImportLegacySrcMerge, legacy.Strategy)
	assert.Empty(t, legacy.Mappings)
}

func TestAPIServiceGenerate(t *testing.T) {
	p := NewAPI()
	out, err := p.Generate(context.Background(), api.Node{
		ID:     "svc",
		Type:   "api",
		Config: map[string]any{"name": "Orders API", "database": true},
	}, execContext())
	require.NoError(t, err)

	categories := map[string]api.FileCategory{}
	for _, f := range out.Files {
		categories[f.Path] = f.Category
	}
	assert.Equal(t, api.CategoryBackendRoute, categories["health.ts"])
	assert.Equal(t, api.CategoryBackendMiddleware, categories["logger.ts"])
	assert.Equal(t, api.CategoryNone, categories["apps/api/src/index.ts"])

	var hasDB bool
	for _, ev := range out.EnvVars {
		if ev.Key == "DATABASE_URL" {
			hasDB = true
			assert.True(t, strings.HasSuffix(ev.Value, "orders-api"))
		}
	}
	assert.True(t, hasDB)
}

func TestCaseHelpers(t *testing.T) {
	assert.Equal(t, "DemoToken", pascalCase("demo token"))
	assert.Equal(t, "DemoToken", pascalCase("demo-token"))
	assert.Equal(t, "demo-token", kebabCase("Demo Token"))
	assert.Equal(t, "demo_token", snakeCase("Demo Token"))
}
