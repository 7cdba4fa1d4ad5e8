package schedule

import (
	"errors"
	"strings"
	"testing"

	"github.com/agentic-research/loom/api"
)

func nodes(ids ...string) []api.Node {
	out := make([]api.Node, len(ids))
	for i, id := range ids {
		out[i] = api.Node{ID: id, Type: "t"}
	}
	return out
}

func ids(ns []api.Node) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = n.ID
	}
	return strings.Join(parts, ",")
}

func TestScheduleLinearChain(t *testing.T) {
	got, err := Schedule(nodes("c", "b", "a"), []api.Edge{
		{Source: "a", Target: "b"},
		{Source: "b", Target: "c"},
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if ids(got) != "a,b,c" {
		t.Fatalf("expected a,b,c got %s", ids(got))
	}
}

func TestScheduleIsolatedNodesKeepDeclarationOrder(t *testing.T) {
	got, err := Schedule(nodes("z", "m", "a"), nil)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if ids(got) != "z,m,a" {
		t.Fatalf("isolated nodes must keep declaration order, got %s", ids(got))
	}
}

func TestScheduleTieBreakByDeclaration(t *testing.T) {
	// b and c both become ready after a; b is declared first.
	got, err := Schedule(nodes("a", "b", "c", "d"), []api.Edge{
		{Source: "a", Target: "b"},
		{Source: "a", Target: "c"},
		{Source: "b", Target: "d"},
		{Source: "c", Target: "d"},
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if ids(got) != "a,b,c,d" {
		t.Fatalf("expected a,b,c,d got %s", ids(got))
	}
}

func TestScheduleDeterministic(t *testing.T) {
	ns := nodes("w", "x", "y", "z")
	es := []api.Edge{
		{Source: "w", Target: "y"},
		{Source: "x", Target: "z"},
	}
	first, err := Schedule(ns, es)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Schedule(ns, es)
		if err != nil {
			t.Fatalf("schedule: %v", err)
		}
		if ids(again) != ids(first) {
			t.Fatalf("run %d ordered %s, first run ordered %s", i, ids(again), ids(first))
		}
	}
}

func TestScheduleDuplicateEdgesIdempotent(t *testing.T) {
	got, err := Schedule(nodes("a", "b"), []api.Edge{
		{Source: "a", Target: "b"},
		{Source: "a", Target: "b"},
		{Source: "a", Target: "b"},
	})
	if err != nil {
		t.Fatalf("duplicate edges must not fail: %v", err)
	}
	if ids(got) != "a,b" {
		t.Fatalf("expected a,b got %s", ids(got))
	}
}

func TestScheduleCycle(t *testing.T) {
	_, err := Schedule(nodes("a", "b", "c"), []api.Edge{
		{Source: "a", Target: "b"},
		{Source: "b", Target: "a"},
	})
	if !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}
	if !strings.Contains(err.Error(), "a") || !strings.Contains(err.Error(), "b") {
		t.Fatalf("cycle error should name the members: %v", err)
	}
	if strings.Contains(err.Error(), "c") {
		t.Fatalf("node c is not part of the cycle: %v", err)
	}
}

func TestScheduleSelfLoop(t *testing.T) {
	_, err := Schedule(nodes("a"), []api.Edge{{Source: "a", Target: "a"}})
	if !errors.Is(err, ErrCycle) {
		t.Fatalf("self-loop must be a cycle, got %v", err)
	}
}

func TestScheduleUnknownEdgeEndpoint(t *testing.T) {
	_, err := Schedule(nodes("a"), []api.Edge{{Source: "a", Target: "ghost"}})
	if !errors.Is(err, ErrUnknownNode) {
		t.Fatalf("expected ErrUnknownNode, got %v", err)
	}
	if !strings.Contains(err.Error(), "ghost") {
		t.Fatalf("error should name the missing node: %v", err)
	}
}

func TestScheduleDoesNotMutateInput(t *testing.T) {
	ns := nodes("b", "a")
	es := []api.Edge{{Source: "a", Target: "b"}}
	if _, err := Schedule(ns, es); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if ns[0].ID != "b" || ns[1].ID != "a" {
		t.Fatalf("input slice was reordered: %s", ids(ns))
	}
}
