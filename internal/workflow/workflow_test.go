package workflow

import (
	"errors"
	"testing"
)

// task is a shorthand builder with sane defaults for structure-only tests.
func task(id string, deps ...string) Task {
	return Task{ID: id, Duration: 1, CapacityPerSlot: 1, Deadline: 10, DependsOn: deps}
}

func mustBuild(t *testing.T, tasks ...Task) *Graph {
	t.Helper()
	g, err := New(tasks)
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	return g
}

func TestNew_CycleRejected(t *testing.T) {
	// A -> B -> A
	_, err := New([]Task{task("a", "b"), task("b", "a")})
	if !errors.Is(err, ErrCyclicWorkflow) {
		t.Fatalf("expected ErrCyclicWorkflow, got %v", err)
	}
}

func TestNew_SelfCycleRejected(t *testing.T) {
	_, err := New([]Task{task("a", "a")})
	if !errors.Is(err, ErrCyclicWorkflow) {
		t.Fatalf("expected ErrCyclicWorkflow, got %v", err)
	}
}

func TestNew_UnknownDependency(t *testing.T) {
	_, err := New([]Task{task("a", "ghost")})
	if !errors.Is(err, ErrUnknownDependency) {
		t.Fatalf("expected ErrUnknownDependency, got %v", err)
	}
}

func TestNew_InvalidDuration(t *testing.T) {
	_, err := New([]Task{{ID: "a", Duration: 0, CapacityPerSlot: 1}})
	if !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration for zero duration, got %v", err)
	}

	_, err = New([]Task{{ID: "a", Duration: 2, CapacityPerSlot: 0}})
	if !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration for zero capacity, got %v", err)
	}
}

func TestNew_DuplicateTask(t *testing.T) {
	_, err := New([]Task{task("a"), task("a")})
	if !errors.Is(err, ErrDuplicateTask) {
		t.Fatalf("expected ErrDuplicateTask, got %v", err)
	}
}

func TestTopologicalOrder_Deterministic(t *testing.T) {
	// Diamond: a -> {b, c} -> d. b and c tie; ID order breaks the tie.
	g := mustBuild(t,
		task("a"),
		task("c", "a"),
		task("b", "a"),
		task("d", "b", "c"),
	)

	want := []string{"a", "b", "c", "d"}
	got := g.TopologicalOrder()
	if len(got) != len(want) {
		t.Fatalf("expected order %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}

	// Rebuilding from the same input yields the identical order
	g2 := mustBuild(t,
		task("a"),
		task("c", "a"),
		task("b", "a"),
		task("d", "b", "c"),
	)
	got2 := g2.TopologicalOrder()
	for i := range got {
		if got[i] != got2[i] {
			t.Fatalf("expected identical orders, got %v vs %v", got, got2)
		}
	}
}

func TestCriticalPathLength(t *testing.T) {
	// a(5) -> b(1) -> d(1)
	// a(5) -> c(10) -> d(1)
	// Longest path: 5 + 10 + 1 = 16
	tasks := []Task{
		{ID: "a", Duration: 5, CapacityPerSlot: 1},
		{ID: "b", Duration: 1, CapacityPerSlot: 1, DependsOn: []string{"a"}},
		{ID: "c", Duration: 10, CapacityPerSlot: 1, DependsOn: []string{"a"}},
		{ID: "d", Duration: 1, CapacityPerSlot: 1, DependsOn: []string{"b", "c"}},
	}
	g := mustBuild(t, tasks...)

	if got := g.CriticalPathLength(); got != 16 {
		t.Errorf("expected critical path length 16, got %d", got)
	}
}

func TestEarliestStarts(t *testing.T) {
	tasks := []Task{
		{ID: "a", Duration: 2, CapacityPerSlot: 1},
		{ID: "b", Duration: 3, CapacityPerSlot: 1, DependsOn: []string{"a"}},
		{ID: "c", Duration: 1, CapacityPerSlot: 1, DependsOn: []string{"a", "b"}},
	}
	g := mustBuild(t, tasks...)

	es := g.EarliestStarts()
	if es["a"] != 0 {
		t.Errorf("expected a ES=0, got %d", es["a"])
	}
	if es["b"] != 2 {
		t.Errorf("expected b ES=2, got %d", es["b"])
	}
	if es["c"] != 5 {
		t.Errorf("expected c ES=5, got %d", es["c"])
	}
}

func TestFanOutAndRootsLeaves(t *testing.T) {
	g := mustBuild(t,
		task("a"),
		task("b", "a"),
		task("c", "a"),
	)

	if got := g.FanOut("a"); got != 2 {
		t.Errorf("expected fan-out 2 for a, got %d", got)
	}
	if got := g.FanOut("b"); got != 0 {
		t.Errorf("expected fan-out 0 for b, got %d", got)
	}
	if len(g.Roots) != 1 || g.Roots[0] != "a" {
		t.Errorf("expected roots [a], got %v", g.Roots)
	}
	if len(g.Leaves) != 2 {
		t.Errorf("expected 2 leaves, got %v", g.Leaves)
	}
}

func TestDemand(t *testing.T) {
	tk := Task{ID: "a", Duration: 3, CapacityPerSlot: 2}
	if got := tk.Demand(); got != 6 {
		t.Errorf("expected demand 6, got %d", got)
	}
}

func TestNew_DuplicateEdgeIgnored(t *testing.T) {
	g := mustBuild(t,
		task("a"),
		Task{ID: "b", Duration: 1, CapacityPerSlot: 1, DependsOn: []string{"a", "a"}},
	)
	if got := g.FanOut("a"); got != 1 {
		t.Errorf("expected duplicate edge collapsed, fan-out 1, got %d", got)
	}
}
