package plugin

import (
	"context"
	"fmt"

	"github.com/agentic-research/loom/api"
)

// ScaffoldConfig configures the scaffold plugin.
type ScaffoldConfig struct {
	// Name is the project name shown in the app shell.
	Name string `json:"name" validate:"required"`
	// Description lands in page metadata.
	Description string `json:"description"`
	// ChainID selects the default network the frontend talks to.
	ChainID int `json:"chain_id" validate:"min=0"`
}

// Scaffold generates a Next.js frontend application shell. Other
// frontend-side plugins (wallet auth, contract UIs) patch into the files
// it emits, so it leaves named markers in the layout and lib files.
type Scaffold struct{}

// NewScaffold returns the scaffold plugin.
func NewScaffold() *Scaffold { return &Scaffold{} }

func (*Scaffold) Type() string { return "scaffold" }

func (*Scaffold) Validate(node api.Node, _ *api.ExecutionContext) api.ValidationResult {
	return validateConfig(node.Config, func() any { return &ScaffoldConfig{} })
}

func (*Scaffold) Generate(_ context.Context, node api.Node, ec *api.ExecutionContext) (*api.CodegenOutput, error) {
	var cfg ScaffoldConfig
	if errs := decodeConfig(node.Config, &cfg); len(errs) > 0 {
		return nil, fmt.Errorf("node %s: %s: %s", node.ID, errs[0].Field, errs[0].Message)
	}
	if cfg.ChainID == 0 {
		cfg.ChainID = 421614 // Arbitrum Sepolia
	}

	out := &api.CodegenOutput{}
	for _, f := range []struct {
		path     string
		tmpl     string
		category api.FileCategory
	}{
		{"layout.tsx", scaffoldLayoutTemplate, api.CategoryFrontendPage},
		{"page.tsx", scaffoldPageTemplate, api.CategoryFrontendPage},
		{"Header.tsx", scaffoldHeaderTemplate, api.CategoryFrontendComponent},
		{"config.ts", scaffoldConfigTemplate, api.CategoryFrontendLib},
		{"globals.css", scaffoldGlobalsTemplate, api.CategoryFrontendStyle},
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

	// The app manifest is uncategorized: it belongs next to the app, not
	// under the source root.
	pkg, err := render("web-package.json", scaffoldPackageTemplate, cfg)
	if err != nil {
		return nil, err
	}
	out.Files = append(out.Files, api.GeneratedFile{
		Path:    "apps/web/package.json",
		Content: []byte(pkg),
	})

	out.EnvVars = []api.EnvVar{
		{Key: "NEXT_PUBLIC_APP_NAME", Value: cfg.Name, Description: "Display name for the app shell"},
		{Key: "NEXT_PUBLIC_CHAIN_ID", Value: fmt.Sprintf("%d", cfg.ChainID), Description: "Default chain the frontend connects to"},
	}
	out.Scripts = []api.ScriptCommand{
		{Name: "dev", Command: "pnpm --filter web dev"},
		{Name: "build", Command: "pnpm --filter web build"},
	}

	docs, err := render("scaffold-docs", scaffoldDocsTemplate, cfg)
	if err != nil {
		return nil, err
	}
	out.Docs = docs
	return out, nil
}

const scaffoldLayoutTemplate = `import type { Metadata } from "next";
import "../styles/globals.css";
// loom:imports

export const metadata: Metadata = {
  title: "{{.Name}}",
  description: "{{with .Description}}{{.}}{{else}}Generated by loom{{end}}",
};

export default function RootLayout({
  children,
}: {
  children: React.ReactNode;
}) {
  return (
    <html lang="en">
      <body>
        {/* loom:providers */}
        {children}
        {/* loom:providers-end */}
      </body>
    </html>
  );
}
`

const scaffoldPageTemplate = `import { Header } from "../components/Header";

export default function Home() {
  return (
    <main>
      <Header />
      <section className="hero">
        <h1>{{.Name}}</h1>
        <p>{{with .Description}}{{.}}{{else}}Your application is ready.{{end}}</p>
      </section>
    </main>
  );
}
`

const scaffoldHeaderTemplate = `// loom:header-imports

export function Header() {
  return (
    <header className="site-header">
      <span className="brand">{{.Name}}</span>
      <nav>
        {/* loom:header-actions */}
      </nav>
    </header>
  );
}
`

const scaffoldConfigTemplate = `export const appConfig = {
  name: process.env.NEXT_PUBLIC_APP_NAME ?? "{{.Name}}",
  chainId: Number(process.env.NEXT_PUBLIC_CHAIN_ID ?? {{.ChainID}}),
  // loom:config
};
`

const scaffoldGlobalsTemplate = `:root {
  --background: #0b0e14;
  --foreground: #e6e6e6;
  --accent: #4f8cff;
}

body {
  margin: 0;
  background: var(--background);
  color: var(--foreground);
  font-family: ui-sans-serif, system-ui, sans-serif;
}

.site-header {
  display: flex;
  align-items: center;
  justify-content: space-between;
  padding: 1rem 2rem;
}

.hero {
  padding: 4rem 2rem;
  text-align: center;
}
`

const scaffoldPackageTemplate = `{
  "name": "web",
  "private": true,
  "scripts": {
    "dev": "next dev",
    "build": "next build",
    "start": "next start"
  },
  "dependencies": {
    "next": "14.2.5",
    "react": "^18.3.1",
    "react-dom": "^18.3.1"
  },
  "devDependencies": {
    "@types/node": "^20",
    "@types/react": "^18",
    "typescript": "^5"
  }
}
`

const scaffoldDocsTemplate = `## Frontend scaffold

A Next.js app shell under ` + "`apps/web`" + ` named **{{.Name}}**, wired for
chain {{.ChainID}}. The layout and header carry ` + "`loom:`" + ` markers that
downstream components patch into (providers, header actions, config).

### Running

` + "```bash" + `
pnpm install
pnpm dev
` + "```" + `
`
