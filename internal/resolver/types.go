package resolver

import "time"

// Reason classifies why a task's demand could not be fully placed.
type Reason string

const (
	// CapacityDeficit: matching resources exist but their capacity is
	// taken by higher-priority work.
	CapacityDeficit Reason = "capacity_deficit"
	// CapabilityMismatch: no resource in the pool carries the task's
	// required capability tags.
	CapabilityMismatch Reason = "capability_mismatch"
	// CalendarExhaustion: the task's feasible window does not contain
	// enough working slots to hold its demand, regardless of capacity.
	CalendarExhaustion Reason = "calendar_exhaustion"
)

// Allocation assigns part of a task to a resource over an inclusive slot
// range at a fixed capacity per slot. Allocations are immutable once in a
// Plan.
type Allocation struct {
	TaskID     string `json:"task_id"`
	ResourceID string `json:"resource_id"`
	StartSlot  int    `json:"start_slot"`
	EndSlot    int    `json:"end_slot"`
	Capacity   int    `json:"capacity"`
}

// Units returns the capacity-slots this allocation covers.
func (a Allocation) Units() int {
	return (a.EndSlot - a.StartSlot + 1) * a.Capacity
}

// Conflict records unmet demand for a task. Conflicts are part of a
// successful plan, never an error.
type Conflict struct {
	TaskID string `json:"task_id"`
	Unmet  int    `json:"unmet"`
	Reason Reason `json:"reason"`
}

// Plan is the ordered result of one resolve cycle. It is owned by the
// resolver until published and read-only afterwards.
type Plan struct {
	ID          string         `json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	Allocations []Allocation   `json:"allocations"`
	Conflicts   []Conflict     `json:"conflicts"`
	TotalCost   int64          `json:"total_cost"`
	FinishSlots map[string]int `json:"finish_slots"` // latest allocated slot per task
}

// FinishSlot returns the latest slot among a task's allocations.
func (p *Plan) FinishSlot(taskID string) (int, bool) {
	s, ok := p.FinishSlots[taskID]
	return s, ok
}

// ConflictFor returns the task's conflict entry, if any.
func (p *Plan) ConflictFor(taskID string) (Conflict, bool) {
	for _, c := range p.Conflicts {
		if c.TaskID == taskID {
			return c, true
		}
	}
	return Conflict{}, false
}

// AllocationsFor returns the task's allocations in plan order.
func (p *Plan) AllocationsFor(taskID string) []Allocation {
	var out []Allocation
	for _, a := range p.Allocations {
		if a.TaskID == taskID {
			out = append(out, a)
		}
	}
	return out
}

// UnmetTotal sums unmet demand across all conflicts.
func (p *Plan) UnmetTotal() int {
	total := 0
	for _, c := range p.Conflicts {
		total += c.Unmet
	}
	return total
}
