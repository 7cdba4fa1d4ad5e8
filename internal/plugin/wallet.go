package plugin

import (
	"context"
	"fmt"
	"path"

	"github.com/agentic-research/loom/api"
)

// WalletConfig configures the wallet plugin.
type WalletConfig struct {
	// Provider selects the connector family.
	Provider string `json:"provider" validate:"omitempty,oneof=injected walletconnect"`
	// ProjectID is required by WalletConnect relays.
	ProjectID string `json:"project_id"`
	// ComponentDir points at a pre-built wallet component package on
	// disk. When set, the package is imported through the path mappings
	// below instead of generating the component files inline.
	ComponentDir string `json:"component_dir"`
	// LegacyImport opts into the deprecated src-merge import behavior
	// for old component packages without mappings.
	LegacyImport bool `json:"legacy_import"`
}

// Wallet generates wallet authentication for the frontend: a provider
// component, a connection hook, and patches that mount the provider into
// the scaffold's layout and header.
type Wallet struct{}

// NewWallet returns the wallet plugin.
func NewWallet() *Wallet { return &Wallet{} }

func (*Wallet) Type() string { return "wallet" }

func (*Wallet) Validate(node api.Node, _ *api.ExecutionContext) api.ValidationResult {
	return validateConfig(node.Config, func() any { return &WalletConfig{} })
}

// Component declares the bundled package import when the node asks for
// one. Mappings route component sources by kind; everything unmatched
// except documentation is dropped.
func (*Wallet) Component(node api.Node) *api.ComponentSpec {
	var cfg WalletConfig
	if errs := decodeConfig(node.Config, &cfg); len(errs) > 0 || cfg.ComponentDir == "" {
		return nil
	}
	spec := &api.ComponentSpec{
		Dir:  cfg.ComponentDir,
		Name: "wallet",
		Mappings: []api.PathMapping{
			{Pattern: "src/components/**/*.tsx", Category: api.CategoryFrontendComponent},
			{Pattern: "src/hooks/**/*.ts", Category: api.CategoryFrontendHook},
			{Pattern: "src/**/*.ts", Category: api.CategoryFrontendLib},
		},
	}
	if cfg.LegacyImport {
		spec.Mappings = nil
		spec.Strategy = api.ImportLegacySrcMerge
	}
	return spec
}

func (*Wallet) Generate(_ context.Context, node api.Node, ec *api.ExecutionContext) (*api.CodegenOutput, error) {
	var cfg WalletConfig
	if errs := decodeConfig(node.Config, &cfg); len(errs) > 0 {
		return nil, fmt.Errorf("node %s: %s: %s", node.ID, errs[0].Field, errs[0].Message)
	}
	if cfg.Provider == "" {
		cfg.Provider = "injected"
	}

	out := &api.CodegenOutput{}
	if cfg.ComponentDir == "" {
		for _, f := range []struct {
			path     string
			tmpl     string
			category api.FileCategory
		}{
			{"WalletProvider.tsx", walletProviderTemplate, api.CategoryFrontendComponent},
			{"ConnectButton.tsx", walletButtonTemplate, api.CategoryFrontendComponent},
			{"useWallet.ts", walletHookTemplate, api.CategoryFrontendHook},
		} {
			content, err := render(f.path, f.tmpl, cfg)
			if err != nil {
				return nil, err
			}
			out.Files = append(out.Files, api.GeneratedFile{
				Path:     f.path,
				Content:  []byte(content),
				Category: f.category,
			})
		}
	}

	// Mount the provider into the scaffold shell. Missing markers (no
	// scaffold in the graph) degrade to warnings, not failures.
	base := ec.Path.FrontendBase
	out.Patches = []api.FilePatch{
		{
			Path: path.Join(base, "app", "layout.tsx"),
			Ops: []api.PatchOperation{
				api.InsertAfterOp("// loom:imports", "\nimport { WalletProvider } from \"../components/WalletProvider\";"),
				api.InsertAfterOp("{/* loom:providers */}", "\n        <WalletProvider>"),
				api.InsertBeforeOp("        {/* loom:providers-end */}", "</WalletProvider>\n"),
			},
		},
		{
			Path: path.Join(base, "components", "Header.tsx"),
			Ops: []api.PatchOperation{
				api.InsertAfterOp("// loom:header-imports", "\nimport { ConnectButton } from \"./ConnectButton\";"),
				api.InsertAfterOp("{/* loom:header-actions */}", "\n        <ConnectButton />"),
			},
		},
		{
			Path: path.Join(base, "lib", "config.ts"),
			Ops: []api.PatchOperation{
				api.InsertAfterOp("// loom:config", fmt.Sprintf("\n  walletProvider: %q,", cfg.Provider)),
			},
		},
	}

	out.EnvVars = []api.EnvVar{
		{Key: "NEXT_PUBLIC_WALLET_PROVIDER", Value: cfg.Provider, Description: "Wallet connector family"},
	}
	if cfg.Provider == "walletconnect" {
		out.EnvVars = append(out.EnvVars, api.EnvVar{
			Key:         "NEXT_PUBLIC_WALLETCONNECT_PROJECT_ID",
			Value:       cfg.ProjectID,
			Description: "WalletConnect cloud project ID",
		})
	}

	docs, err := render("wallet-docs", walletDocsTemplate, cfg)
	if err != nil {
		return nil, err
	}
	out.Docs = docs
	return out, nil
}

const walletProviderTemplate = `"use client";

import { createContext, useCallback, useMemo, useState } from "react";

type WalletState = {
  address: string | null;
  connect: () => Promise<void>;
  disconnect: () => void;
};

export const WalletContext = createContext<WalletState | null>(null);

export function WalletProvider({ children }: { children: React.ReactNode }) {
  const [address, setAddress] = useState<string | null>(null);

  const connect = useCallback(async () => {
    const eth = (window as any).ethereum;
    if (!eth) {
      throw new Error("No injected wallet found");
    }
    const accounts: string[] = await eth.request({
      method: "eth_requestAccounts",
    });
    setAddress(accounts[0] ?? null);
  }, []);

  const disconnect = useCallback(() => setAddress(null), []);

  const value = useMemo(
    () => ({ address, connect, disconnect }),
    [address, connect, disconnect],
  );

  return (
    <WalletContext.Provider value={value}>{children}</WalletContext.Provider>
  );
}
`

const walletButtonTemplate = `"use client";

import { useWallet } from "../hooks/useWallet";

export function ConnectButton() {
  const { address, connect, disconnect } = useWallet();

  if (address) {
    return (
      <button onClick={disconnect}>
        {address.slice(0, 6)}…{address.slice(-4)}
      </button>
    );
  }
  return <button onClick={() => connect()}>Connect Wallet</button>;
}
`

const walletHookTemplate = `"use client";

import { useContext } from "react";
import { WalletContext } from "../components/WalletProvider";

export function useWallet() {
  const ctx = useContext(WalletContext);
  if (!ctx) {
    throw new Error("useWallet must be used inside <WalletProvider>");
  }
  return ctx;
}
`

const walletDocsTemplate = `## Wallet authentication

Adds a {{.Provider}} wallet connection to the frontend: a
` + "`WalletProvider`" + ` context mounted in the app layout, a
` + "`ConnectButton`" + ` in the header, and a ` + "`useWallet`" + ` hook for
components that need the connected address.
{{if eq .Provider "walletconnect"}}
Set ` + "`NEXT_PUBLIC_WALLETCONNECT_PROJECT_ID`" + ` before running the app.
{{end}}`
