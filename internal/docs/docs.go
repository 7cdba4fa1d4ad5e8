// Package docs renders the documentation ("skills") tree for a blueprint:
// a markdown file per node type plus aggregated environment and script
// references. It is a thin consumer of the same scheduling and output
// data the code pipeline produces.
package docs

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agentic-research/loom/api"
	"github.com/agentic-research/loom/internal/tree"
)

// Render builds a fresh tree holding the skills documentation for the
// given run. outputs maps node ID to that node's generated output;
// ordered is the scheduled node order, which fixes the index ordering.
func Render(bp *api.Blueprint, ordered []api.Node, outputs map[string]*api.CodegenOutput) (*tree.Store, error) {
	store := tree.NewMemory()

	var index strings.Builder
	fmt.Fprintf(&index, "# %s\n\n", title(bp))
	index.WriteString("Generated component documentation, one skill per node type.\n\n")

	// One skill file per type; nodes sharing a type append to the same
	// file in scheduled order.
	written := map[string]bool{}
	for _, n := range ordered {
		out := outputs[n.ID]
		if out == nil || out.Docs == "" {
			continue
		}
		p := "skills/" + n.Type + ".md"
		doc := strings.TrimRight(out.Docs, "\n") + "\n"
		if written[p] {
			existing, err := store.ReadFile(p)
			if err != nil {
				return nil, err
			}
			doc = string(existing) + "\n" + doc
		} else {
			fmt.Fprintf(&index, "- [%s](%s.md) — node `%s`\n", n.Type, n.Type, n.ID)
		}
		if err := store.WriteFile(p, []byte(doc)); err != nil {
			return nil, err
		}
		written[p] = true
	}

	env := envReference(ordered, outputs)
	if env != "" {
		index.WriteString("- [Environment variables](environment.md)\n")
		if err := store.WriteFile("skills/environment.md", []byte(env)); err != nil {
			return nil, err
		}
	}
	scripts := scriptReference(ordered, outputs)
	if scripts != "" {
		index.WriteString("- [Scripts](scripts.md)\n")
		if err := store.WriteFile("skills/scripts.md", []byte(scripts)); err != nil {
			return nil, err
		}
	}

	if err := store.WriteFile("skills/README.md", []byte(index.String())); err != nil {
		return nil, err
	}
	return store, nil
}

func title(bp *api.Blueprint) string {
	if bp.Name != "" {
		return bp.Name
	}
	return bp.ID
}

// envReference aggregates env vars across nodes, deduplicated by key.
// The first declaring node wins, matching the code pipeline.
func envReference(ordered []api.Node, outputs map[string]*api.CodegenOutput) string {
	type entry struct {
		v      api.EnvVar
		nodeID string
	}
	seen := map[string]entry{}
	var keys []string
	for _, n := range ordered {
		out := outputs[n.ID]
		if out == nil {
			continue
		}
		for _, ev := range out.EnvVars {
			if _, dup := seen[ev.Key]; dup {
				continue
			}
			seen[ev.Key] = entry{v: ev, nodeID: n.ID}
			keys = append(keys, ev.Key)
		}
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("# Environment variables\n\n")
	b.WriteString("| Key | Default | Description | Declared by |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, k := range keys {
		e := seen[k]
		fmt.Fprintf(&b, "| `%s` | `%s` | %s | %s |\n", e.v.Key, e.v.Value, e.v.Description, e.nodeID)
	}
	return b.String()
}

// scriptReference aggregates scripts across nodes, deduplicated by name.
func scriptReference(ordered []api.Node, outputs map[string]*api.CodegenOutput) string {
	seen := map[string]api.ScriptCommand{}
	var names []string
	for _, n := range ordered {
		out := outputs[n.ID]
		if out == nil {
			continue
		}
		for _, sc := range out.Scripts {
			if _, dup := seen[sc.Name]; dup {
				continue
			}
			seen[sc.Name] = sc
			names = append(names, sc.Name)
		}
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("# Scripts\n\n")
	for _, name := range names {
		fmt.Fprintf(&b, "- `pnpm %s` — `%s`\n", name, seen[name].Command)
	}
	return b.String()
}
