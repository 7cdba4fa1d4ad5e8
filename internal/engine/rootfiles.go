package engine

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/ohler55/ojg/oj"
	"gopkg.in/yaml.v3"

	"github.com/agentic-research/loom/api"
	"github.com/agentic-research/loom/internal/patch"
	"github.com/agentic-research/loom/internal/tree"
)

// synthesizeRoot writes the root project files after all nodes ran. The
// project shape decides what gets written: workspace tooling appears for
// backend projects and contracts-only projects, not for frontend-led
// ones. Everything goes through the merge engine so a plugin that
// already emitted a root file is unioned with, never clobbered.
func synthesizeRoot(
	store tree.Tree,
	bp *api.Blueprint,
	pc api.PathContext,
	envVars []api.EnvVar,
	scripts []api.ScriptCommand,
) ([]api.Warning, error) {
	var warnings []api.Warning
	write := func(path string, content []byte) error {
		ws, err := patch.MergeInto(store, path, content)
		if err != nil {
			return fmt.Errorf("synthesize %s: %w", path, err)
		}
		warnings = append(warnings, ws...)
		return nil
	}

	if err := write("package.json", rootPackageJSON(bp, scripts)); err != nil {
		return warnings, err
	}
	if err := write(".gitignore", []byte(rootGitignore)); err != nil {
		return warnings, err
	}
	if len(envVars) > 0 {
		if err := write(".env.example", envExample(envVars)); err != nil {
			return warnings, err
		}
	}
	if err := write("README.md", readme(bp, pc, envVars, scripts)); err != nil {
		return warnings, err
	}

	if pc.HasBackend || (pc.HasContracts && !pc.HasFrontend) {
		ws, err := yaml.Marshal(map[string][]string{
			"packages": {"apps/*", "packages/*"},
		})
		if err != nil {
			return warnings, fmt.Errorf("synthesize workspace: %w", err)
		}
		if err := write("pnpm-workspace.yaml", ws); err != nil {
			return warnings, err
		}
	}
	return warnings, nil
}

func rootPackageJSON(bp *api.Blueprint, scripts []api.ScriptCommand) []byte {
	scriptMap := make(map[string]any, len(scripts))
	for _, sc := range scripts {
		scriptMap[sc.Name] = sc.Command
	}
	doc := map[string]any{
		"name":    projectSlug(bp),
		"private": true,
		"version": "0.1.0",
		"scripts": scriptMap,
	}
	return []byte(oj.JSON(doc, &oj.Options{Sort: true, Indent: 2}) + "\n")
}

const rootGitignore = `node_modules/
dist/
out/
.next/
coverage/
target/
.env
.env.local
.DS_Store
`

// envExample serializes the aggregated env vars sorted by key, each
// prefixed with its description.
func envExample(envVars []api.EnvVar) []byte {
	sorted := make([]api.EnvVar, len(envVars))
	copy(sorted, envVars)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	var b strings.Builder
	for i, ev := range sorted {
		if i > 0 {
			b.WriteByte('\n')
		}
		if ev.Description != "" {
			fmt.Fprintf(&b, "# %s\n", ev.Description)
		}
		fmt.Fprintf(&b, "%s=%s\n", ev.Key, ev.Value)
	}
	return []byte(b.String())
}

func readme(bp *api.Blueprint, pc api.PathContext, envVars []api.EnvVar, scripts []api.ScriptCommand) []byte {
	var b strings.Builder
	name := bp.Name
	if name == "" {
		name = bp.ID
	}
	fmt.Fprintf(&b, "# %s\n\n", name)
	b.WriteString("Generated by loom from a blueprint of composable components.\n\n")

	b.WriteString("## Layout\n\n")
	if pc.HasFrontend {
		fmt.Fprintf(&b, "- `%s` — frontend application source\n", pc.FrontendBase)
	}
	if pc.HasBackend {
		fmt.Fprintf(&b, "- `%s` — backend service source\n", pc.BackendBase)
	}
	if pc.HasContracts {
		fmt.Fprintf(&b, "- `%s` — on-chain contracts\n", pc.ContractsBase)
	}

	b.WriteString("\n## Components\n\n")
	for _, n := range bp.Nodes {
		fmt.Fprintf(&b, "- `%s` (%s)\n", n.ID, n.Type)
	}

	if len(envVars) > 0 {
		b.WriteString("\n## Environment\n\nCopy `.env.example` to `.env` and fill in:\n\n")
		for _, ev := range envVars {
			if ev.Description != "" {
				fmt.Fprintf(&b, "- `%s` — %s\n", ev.Key, ev.Description)
			} else {
				fmt.Fprintf(&b, "- `%s`\n", ev.Key)
			}
		}
	}
	if len(scripts) > 0 {
		b.WriteString("\n## Scripts\n\n")
		for _, sc := range scripts {
			fmt.Fprintf(&b, "- `pnpm %s` — `%s`\n", sc.Name, sc.Command)
		}
	}
	return []byte(b.String())
}

// projectSlug lowercases the project name into a package-manager-safe
// identifier.
func projectSlug(bp *api.Blueprint) string {
	src := bp.Name
	if src == "" {
		src = bp.ID
	}
	var b strings.Builder
	pendingDash := false
	for _, r := range src {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			if b.Len() > 0 {
				pendingDash = true
			}
			continue
		}
		if pendingDash {
			b.WriteByte('-')
			pendingDash = false
		}
		b.WriteRune(unicode.ToLower(r))
	}
	if b.Len() == 0 {
		return "loom-project"
	}
	return b.String()
}
