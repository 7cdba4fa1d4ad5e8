package blueprint

import (
	"fmt"

	"github.com/agentic-research/loom/api"
)

// Diagnostic is one advisory finding about a blueprint. Findings never
// block a run.
type Diagnostic struct {
	NodeID  string
	Message string
}

func (d Diagnostic) String() string {
	if d.NodeID == "" {
		return d.Message
	}
	return fmt.Sprintf("%s: %s", d.NodeID, d.Message)
}

// Lint reports advisory issues a valid blueprint can still carry:
// duplicate edges, self-loops that will fail scheduling, node types the
// registry cannot serve, and nodes unreachable from any root. hasType may
// be nil when no registry is at hand.
func Lint(bp *api.Blueprint, hasType func(string) bool) []Diagnostic {
	var diags []Diagnostic

	if hasType != nil {
		for _, n := range bp.Nodes {
			if !hasType(n.Type) {
				diags = append(diags, Diagnostic{NodeID: n.ID, Message: fmt.Sprintf("no plugin registered for type %q", n.Type)})
			}
		}
	}

	seen := make(map[api.Edge]bool, len(bp.Edges))
	for _, e := range bp.Edges {
		if e.Source == e.Target {
			diags = append(diags, Diagnostic{NodeID: e.Source, Message: "self-loop edge will fail scheduling"})
		}
		if seen[e] {
			diags = append(diags, Diagnostic{Message: fmt.Sprintf("duplicate edge %s->%s", e.Source, e.Target)})
		}
		seen[e] = true
	}

	for _, d := range unreachable(bp) {
		diags = append(diags, Diagnostic{NodeID: d, Message: "unreachable from any root node"})
	}
	return diags
}

// unreachable walks forward from every root (a node with no incoming
// edges) and returns the nodes never visited. In an acyclic graph the
// result is empty; nodes caught in a cycle show up here before the
// scheduler rejects them.
func unreachable(bp *api.Blueprint) []string {
	known := make(map[string]bool, len(bp.Nodes))
	incoming := make(map[string]int, len(bp.Nodes))
	succ := make(map[string][]string, len(bp.Nodes))
	for _, n := range bp.Nodes {
		known[n.ID] = true
	}
	for _, e := range bp.Edges {
		if !known[e.Source] || !known[e.Target] {
			continue
		}
		incoming[e.Target]++
		succ[e.Source] = append(succ[e.Source], e.Target)
	}

	visited := make(map[string]bool, len(bp.Nodes))
	var queue []string
	for _, n := range bp.Nodes {
		if incoming[n.ID] == 0 {
			visited[n.ID] = true
			queue = append(queue, n.ID)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, next := range succ[id] {
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}

	var out []string
	for _, n := range bp.Nodes {
		if !visited[n.ID] {
			out = append(out, n.ID)
		}
	}
	return out
}
