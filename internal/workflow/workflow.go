package workflow

import (
	"errors"
	"fmt"
	"sort"
)

// Validation errors surfaced at graph construction. A graph that fails
// validation never reaches the resolver.
var (
	ErrCyclicWorkflow    = errors.New("cyclic workflow")
	ErrUnknownDependency = errors.New("unknown dependency")
	ErrInvalidDuration   = errors.New("invalid duration")
	ErrDuplicateTask     = errors.New("duplicate task")
)

// Task is a unit of work in a workflow. Tasks are immutable once submitted
// to a resolve cycle; changes arrive as a new Graph version.
type Task struct {
	ID              string
	Title           string
	Duration        int      // slots of work
	Capabilities    []string // resource tags required, all must match
	CapacityPerSlot int      // capacity units needed in each worked slot
	Deadline        int      // slot index the task must finish by
	Value           int      // declared business value weight
	DependsOn       []string // predecessor task IDs
}

// Demand returns the task's total capacity-slot requirement.
func (t Task) Demand() int { return t.Duration * t.CapacityPerSlot }

// Graph is a validated DAG of tasks. Tasks live in an arena keyed by ID and
// edges are stored as identifier pairs, so there are no reference cycles to
// own. Construction validates durations, dependency references, and
// acyclicity; the topological order and critical-path length are computed
// once and cached.
type Graph struct {
	Tasks  map[string]*Task
	Adj    map[string][]string // task -> tasks that depend on it
	RevAdj map[string][]string // task -> its predecessors
	Roots  []string
	Leaves []string

	order       []string
	criticalLen int
}

// New builds and validates a Graph from a task list.
func New(tasks []Task) (*Graph, error) {
	g := &Graph{
		Tasks:  make(map[string]*Task, len(tasks)),
		Adj:    make(map[string][]string),
		RevAdj: make(map[string][]string),
	}

	for i := range tasks {
		t := tasks[i]
		if t.Duration <= 0 {
			return nil, fmt.Errorf("%w: task %s: duration %d", ErrInvalidDuration, t.ID, t.Duration)
		}
		if t.CapacityPerSlot <= 0 {
			return nil, fmt.Errorf("%w: task %s: capacity per slot %d", ErrInvalidDuration, t.ID, t.CapacityPerSlot)
		}
		if _, ok := g.Tasks[t.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTask, t.ID)
		}
		g.Tasks[t.ID] = &t
	}

	// Edges from identifier pairs, de-duplicated
	edgeSet := make(map[[2]string]bool)
	for id, t := range g.Tasks {
		for _, dep := range t.DependsOn {
			if _, ok := g.Tasks[dep]; !ok {
				return nil, fmt.Errorf("%w: task %s depends on %s", ErrUnknownDependency, id, dep)
			}
			key := [2]string{dep, id}
			if edgeSet[key] {
				continue
			}
			edgeSet[key] = true
			g.Adj[dep] = append(g.Adj[dep], id)
			g.RevAdj[id] = append(g.RevAdj[id], dep)
		}
	}

	// Sort adjacency lists for deterministic ordering
	for k := range g.Adj {
		sort.Strings(g.Adj[k])
	}
	for k := range g.RevAdj {
		sort.Strings(g.RevAdj[k])
	}

	for id := range g.Tasks {
		if len(g.RevAdj[id]) == 0 {
			g.Roots = append(g.Roots, id)
		}
		if len(g.Adj[id]) == 0 {
			g.Leaves = append(g.Leaves, id)
		}
	}
	sort.Strings(g.Roots)
	sort.Strings(g.Leaves)

	if cycle := g.detectCycle(); cycle != nil {
		return nil, fmt.Errorf("%w: %v", ErrCyclicWorkflow, cycle)
	}

	g.order = g.topoSort()
	g.criticalLen = g.computeCriticalLength()
	return g, nil
}

// detectCycle returns the cycle path if one exists, or nil for an acyclic
// graph. DFS with coloring: white (unvisited), gray (in progress), black
// (done).
func (g *Graph) detectCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	color := make(map[string]int)
	parent := make(map[string]string)

	var dfs func(node string) []string
	dfs = func(node string) []string {
		color[node] = gray
		for _, next := range g.Adj[node] {
			if color[next] == gray {
				cycle := []string{next, node}
				cur := node
				for cur != next {
					cur = parent[cur]
					cycle = append(cycle, cur)
				}
				for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
					cycle[i], cycle[j] = cycle[j], cycle[i]
				}
				return cycle
			}
			if color[next] == white {
				parent[next] = node
				if cycle := dfs(next); cycle != nil {
					return cycle
				}
			}
		}
		color[node] = black
		return nil
	}

	ids := g.sortedIDs()
	for _, id := range ids {
		if color[id] == white {
			if cycle := dfs(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// topoSort runs Kahn's algorithm. Tasks with equal in-degree are ordered by
// ID so repeated builds over identical input produce identical orders.
func (g *Graph) topoSort() []string {
	inDegree := make(map[string]int, len(g.Tasks))
	for id := range g.Tasks {
		inDegree[id] = len(g.RevAdj[id])
	}

	var queue []string
	for id := range g.Tasks {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	order := make([]string, 0, len(g.Tasks))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		var newReady []string
		for _, succ := range g.Adj[node] {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				newReady = append(newReady, succ)
			}
		}
		sort.Strings(newReady)
		queue = append(queue, newReady...)
	}
	return order
}

// computeCriticalLength finds the longest path by duration sum.
func (g *Graph) computeCriticalLength() int {
	finish := make(map[string]int, len(g.Tasks))
	longest := 0
	for _, id := range g.order {
		start := 0
		for _, pred := range g.RevAdj[id] {
			if finish[pred] > start {
				start = finish[pred]
			}
		}
		finish[id] = start + g.Tasks[id].Duration
		if finish[id] > longest {
			longest = finish[id]
		}
	}
	return longest
}

// TopologicalOrder returns the cached deterministic topological order.
func (g *Graph) TopologicalOrder() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// CriticalPathLength returns the cached longest path duration sum.
func (g *Graph) CriticalPathLength() int { return g.criticalLen }

// EarliestStarts returns each task's earliest start slot derived from
// predecessor finish times in topological order. A root task may start at
// slot 0.
func (g *Graph) EarliestStarts() map[string]int {
	es := make(map[string]int, len(g.Tasks))
	for _, id := range g.order {
		start := 0
		for _, pred := range g.RevAdj[id] {
			if f := es[pred] + g.Tasks[pred].Duration; f > start {
				start = f
			}
		}
		es[id] = start
	}
	return es
}

// FanOut returns the number of direct successors of a task.
func (g *Graph) FanOut(id string) int { return len(g.Adj[id]) }

// TaskCount returns the number of tasks in the graph.
func (g *Graph) TaskCount() int { return len(g.Tasks) }

func (g *Graph) sortedIDs() []string {
	ids := make([]string, 0, len(g.Tasks))
	for id := range g.Tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
