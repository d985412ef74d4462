// Package resolver turns a workflow graph, a resource pool snapshot, a
// business calendar, and priority weights into an allocation plan by solving
// a min-cost flow problem over a task/resource/slot network.
package resolver

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/galvarez-illu/AnimTycoon/internal/calendar"
	"github.com/galvarez-illu/AnimTycoon/internal/pool"
	"github.com/galvarez-illu/AnimTycoon/internal/workflow"
)

// Input is the immutable snapshot a resolve cycle computes against.
type Input struct {
	Graph    *workflow.Graph
	Snapshot *pool.Snapshot
	Calendar *calendar.Calendar
	Weights  map[string]int // per-task cost weight, strictly positive
}

// Config holds resolver tuning. The zero value is usable.
type Config struct {
	// OverflowCost is the per-unit cost of routing demand to the overflow
	// edge instead of a real resource. It must exceed every task weight so
	// the solver prefers real assignment whenever capacity exists. Zero
	// means derive it from the largest weight in the input.
	OverflowCost int64
}

// resSlotKey addresses one (resource, slot) node.
type resSlotKey struct {
	resource string
	slot     int
}

// fragRef ties a fragment's outgoing edges back to its task and slot for
// extraction after the solve.
type fragRef struct {
	taskID     string
	resourceID string
	slot       int
	edge       int
}

// Resolve builds the flow network for the snapshot and solves it. It never
// fails on excess demand: unmet capacity drains through overflow edges and
// surfaces as Conflicts. Reservations are applied to the snapshot for every
// allocation; the caller commits the snapshot atomically on success.
//
// Edge costs encode a two-level lexicographic objective: task weights are
// scaled up and a strictly smaller tie term is added per unit, so that among
// all weight-optimal flows the solver is forced to the one preferring the
// lowest resource ID and then the lowest slot, with more urgent tasks placed
// earlier. Equal-cost residual rerouting can therefore never displace an
// urgent task to a later slot.
func Resolve(ctx context.Context, in Input, cfg Config) (*Plan, error) {
	g := in.Graph
	cal := in.Calendar
	snap := in.Snapshot

	overflowWeight := cfg.OverflowCost
	if overflowWeight == 0 {
		var maxWeight int
		for _, w := range in.Weights {
			if w > maxWeight {
				maxWeight = w
			}
		}
		overflowWeight = int64(maxWeight) + 1
	}

	resources := snap.Resources() // sorted by ID
	es := g.EarliestStarts()
	taskIDs := g.TopologicalOrder()

	resRank := make(map[string]int, len(resources))
	for i, r := range resources {
		resRank[r.ID] = i
	}

	// Urgency ranks tasks by ascending weight (ties by ID); higher urgency
	// pays more for later positions, which pins urgent tasks to the
	// earliest slots among equal-weight-cost solutions.
	urgency := make(map[string]int, len(taskIDs))
	byWeight := append([]string(nil), taskIDs...)
	sort.Slice(byWeight, func(i, j int) bool {
		if in.Weights[byWeight[i]] != in.Weights[byWeight[j]] {
			return in.Weights[byWeight[i]] < in.Weights[byWeight[j]]
		}
		return byWeight[i] < byWeight[j]
	})
	for i, id := range byWeight {
		urgency[id] = len(byWeight) - i
	}

	// Position index orders (resource, slot) cells: lower resource ID
	// first, then earlier slot. Overflow sits past every real position.
	// tieScale keeps the largest possible tie total strictly below one
	// weight unit, so tie terms can never flip the weight order.
	numRes := len(resources)
	overflowPos := cal.Horizon() * numRes
	totalDemand := 0
	for _, id := range taskIDs {
		totalDemand += g.Tasks[id].Demand()
	}
	maxTie := int64(len(taskIDs)) * int64(overflowPos)
	tieScale := int64(totalDemand)*maxTie + 1

	// --- Network construction ---
	// Node layout: 0 source, 1 sink; task, fragment, and resource-slot
	// nodes appended in deterministic order (tasks in topological order,
	// slots ascending, resources sorted by ID).
	net := newNetwork(2)
	const source, sink = 0, 1

	resSlotNodes := make(map[resSlotKey]int)
	resSlotNode := func(resID string, slot int) int {
		key := resSlotKey{resource: resID, slot: slot}
		if n, ok := resSlotNodes[key]; ok {
			return n
		}
		n := net.addNode()
		resSlotNodes[key] = n
		net.addEdge(n, sink, snap.Available(resID, slot), 0)
		return n
	}

	var frags []fragRef
	overflowEdges := make(map[string]int, len(taskIDs))
	windowSlots := make(map[string][]int, len(taskIDs))

	for _, id := range taskIDs {
		t := g.Tasks[id]
		weight := int64(in.Weights[id])
		urg := int64(urgency[id])

		deadline := t.Deadline
		if deadline >= cal.Horizon() {
			deadline = cal.Horizon() - 1
		}
		working := cal.WorkingIndices(es[id], deadline)
		windowSlots[id] = working

		taskNode := net.addNode()
		net.addEdge(source, taskNode, t.Demand(), 0)
		overflowEdges[id] = net.addEdge(taskNode, sink, t.Demand(),
			overflowWeight*tieScale+urg*int64(overflowPos))

		for _, slot := range working {
			fragNode := net.addNode()
			net.addEdge(taskNode, fragNode, t.CapacityPerSlot, 0)
			for _, r := range resources {
				if !r.HasCapabilities(t.Capabilities) {
					continue
				}
				avail := snap.Available(r.ID, slot)
				if avail == 0 {
					continue
				}
				capacity := t.CapacityPerSlot
				if avail < capacity {
					capacity = avail
				}
				pos := int64(resRank[r.ID]*cal.Horizon() + slot)
				ei := net.addEdge(fragNode, resSlotNode(r.ID, slot), capacity,
					weight*tieScale+urg*pos)
				frags = append(frags, fragRef{taskID: id, resourceID: r.ID, slot: slot, edge: ei})
			}
		}
	}

	// --- Solve ---
	_, _, err := net.minCostFlow(ctx, source, sink)
	if err != nil {
		return nil, err
	}

	// --- Extract allocations ---
	cells := make(map[string]map[string][]cell) // task -> resource -> cells
	for _, f := range frags {
		flow := net.edges[f.edge].flow
		if flow <= 0 {
			continue
		}
		if err := snap.Reserve(f.resourceID, f.slot, flow); err != nil {
			return nil, fmt.Errorf("apply solution: %w", err)
		}
		if cells[f.taskID] == nil {
			cells[f.taskID] = make(map[string][]cell)
		}
		cells[f.taskID][f.resourceID] = append(cells[f.taskID][f.resourceID], cell{slot: f.slot, amount: flow})
	}

	plan := &Plan{
		ID:          uuid.NewString(),
		CreatedAt:   time.Now().UTC(),
		FinishSlots: make(map[string]int),
	}

	sortedTaskIDs := append([]string(nil), taskIDs...)
	sort.Strings(sortedTaskIDs)

	for _, id := range sortedTaskIDs {
		byResource := cells[id]
		resIDs := make([]string, 0, len(byResource))
		for rid := range byResource {
			resIDs = append(resIDs, rid)
		}
		sort.Strings(resIDs)

		for _, rid := range resIDs {
			cs := byResource[rid]
			sort.Slice(cs, func(i, j int) bool { return cs[i].slot < cs[j].slot })
			plan.Allocations = append(plan.Allocations, mergeCells(id, rid, cs)...)
		}
	}

	for _, a := range plan.Allocations {
		if cur, ok := plan.FinishSlots[a.TaskID]; !ok || a.EndSlot > cur {
			plan.FinishSlots[a.TaskID] = a.EndSlot
		}
	}

	// Plan cost is the weight-level objective only; the scaled solver
	// costs with tie and overflow terms are internal.
	for _, a := range plan.Allocations {
		plan.TotalCost += int64(a.Units()) * int64(in.Weights[a.TaskID])
	}

	for _, id := range sortedTaskIDs {
		unmet := net.edges[overflowEdges[id]].flow
		if unmet > 0 {
			plan.Conflicts = append(plan.Conflicts, Conflict{
				TaskID: id,
				Unmet:  unmet,
				Reason: classify(g.Tasks[id], resources, windowSlots[id]),
			})
		}
	}

	return plan, nil
}

// cell is one (slot, amount) assignment before range merging.
type cell struct {
	slot   int
	amount int
}

// mergeCells collapses consecutive equal-capacity slots into slot ranges.
func mergeCells(taskID, resourceID string, cs []cell) []Allocation {
	var out []Allocation
	for _, c := range cs {
		last := len(out) - 1
		if last >= 0 && out[last].EndSlot+1 == c.slot && out[last].Capacity == c.amount {
			out[last].EndSlot = c.slot
			continue
		}
		out = append(out, Allocation{
			TaskID:     taskID,
			ResourceID: resourceID,
			StartSlot:  c.slot,
			EndSlot:    c.slot,
			Capacity:   c.amount,
		})
	}
	return out
}

// classify picks the conflict reason for a task with unmet demand.
// Capability mismatch wins: if no resource carries the required tags the
// calendar and capacity are irrelevant. A feasible window too small to hold
// the demand even at full capacity is calendar exhaustion; anything else is
// a plain capacity deficit.
func classify(t *workflow.Task, resources []pool.Resource, window []int) Reason {
	matching := false
	for _, r := range resources {
		if r.Capacity > 0 && r.HasCapabilities(t.Capabilities) {
			matching = true
			break
		}
	}
	if !matching {
		return CapabilityMismatch
	}
	if len(window)*t.CapacityPerSlot < t.Demand() {
		return CalendarExhaustion
	}
	return CapacityDeficit
}
