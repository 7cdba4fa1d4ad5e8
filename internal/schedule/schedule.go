// Package schedule produces the dependency order for a blueprint run.
package schedule

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/agentic-research/loom/api"
)

// ErrCycle is wrapped by Schedule when the graph admits no total order.
var ErrCycle = errors.New("blueprint graph contains a cycle")

// ErrUnknownNode is wrapped when an edge names a node that does not exist.
var ErrUnknownNode = errors.New("edge references unknown node")

// Schedule orders nodes so that for every edge source→target, source
// appears strictly before target. Ties among ready nodes break by
// declaration order, so the result is deterministic for identical input.
// Duplicate edges are idempotent; a self-loop is a cycle. The returned
// slice is a fresh copy; the input is never mutated.
func Schedule(nodes []api.Node, edges []api.Edge) ([]api.Node, error) {
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		index[n.ID] = i
	}

	// Dedupe edges so repeated declarations don't inflate in-degrees.
	type pair struct{ s, t string }
	seen := make(map[pair]struct{}, len(edges))
	indegree := make([]int, len(nodes))
	succ := make([][]int, len(nodes))
	for _, e := range edges {
		si, ok := index[e.Source]
		if !ok {
			return nil, fmt.Errorf("%w: %q (edge %s→%s)", ErrUnknownNode, e.Source, e.Source, e.Target)
		}
		ti, ok := index[e.Target]
		if !ok {
			return nil, fmt.Errorf("%w: %q (edge %s→%s)", ErrUnknownNode, e.Target, e.Source, e.Target)
		}
		if _, dup := seen[pair{e.Source, e.Target}]; dup {
			continue
		}
		seen[pair{e.Source, e.Target}] = struct{}{}
		succ[si] = append(succ[si], ti)
		indegree[ti]++
	}

	// Kahn's algorithm. The ready set is kept sorted by declaration index
	// so isolated nodes (and any tie) schedule in declaration order.
	var ready []int
	for i := range nodes {
		if indegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	ordered := make([]api.Node, 0, len(nodes))
	for len(ready) > 0 {
		i := ready[0]
		ready = ready[1:]
		ordered = append(ordered, nodes[i])
		for _, t := range succ[i] {
			indegree[t]--
			if indegree[t] == 0 {
				ready = insertSorted(ready, t)
			}
		}
	}

	if len(ordered) != len(nodes) {
		return nil, fmt.Errorf("%w: involves %s", ErrCycle, cycleMembers(nodes, indegree))
	}
	return ordered, nil
}

// insertSorted keeps the ready queue ordered by declaration index.
func insertSorted(ready []int, i int) []int {
	pos := sort.SearchInts(ready, i)
	ready = append(ready, 0)
	copy(ready[pos+1:], ready[pos:])
	ready[pos] = i
	return ready
}

// cycleMembers names the nodes still holding dependencies when the queue
// drained. Every one of them sits on or downstream of a cycle.
func cycleMembers(nodes []api.Node, indegree []int) string {
	var ids []string
	for i, d := range indegree {
		if d > 0 {
			ids = append(ids, nodes[i].ID)
		}
	}
	sort.Strings(ids)
	return strings.Join(ids, ", ")
}
