package pool

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/galvarez-illu/AnimTycoon/internal/calendar"
)

// ErrOverReservation indicates an attempted reservation beyond available
// capacity. The resolver respects capacities, so hitting this is an internal
// invariant violation, not a user-facing condition.
var ErrOverReservation = errors.New("over-reservation: internal invariant violation")

// ErrUnknownResource is returned for operations naming a resource that is
// not in the pool.
var ErrUnknownResource = errors.New("unknown resource")

// Resource is an individual schedulable resource (artist, machine, render
// slot). Capacity is per working slot.
type Resource struct {
	ID           string
	Name         string
	Capabilities []string
	Capacity     int
}

// HasCapabilities reports whether the resource carries every required tag.
func (r Resource) HasCapabilities(required []string) bool {
	for _, want := range required {
		found := false
		for _, have := range r.Capabilities {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Pool tracks resources and the committed reservation ledger. Mutations bump
// a version counter so the engine can detect edits that invalidate a plan.
// The ledger is replaced wholesale by Commit; readers never observe a
// partially updated ledger.
type Pool struct {
	mu        sync.RWMutex
	resources map[string]Resource
	ledger    map[string]map[int]int // resource -> slot -> reserved
	version   uint64
}

// New creates an empty Pool.
func New() *Pool {
	return &Pool{
		resources: make(map[string]Resource),
		ledger:    make(map[string]map[int]int),
	}
}

// Add inserts or replaces a resource and invalidates the current plan.
func (p *Pool) Add(r Resource) error {
	if r.ID == "" {
		return fmt.Errorf("resource must have an ID")
	}
	if r.Capacity < 0 {
		return fmt.Errorf("resource %s: capacity must be >= 0, got %d", r.ID, r.Capacity)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resources[r.ID] = r
	p.version++
	return nil
}

// Remove deletes a resource and invalidates the current plan.
func (p *Pool) Remove(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.resources[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownResource, id)
	}
	delete(p.resources, id)
	delete(p.ledger, id)
	p.version++
	return nil
}

// SetCapacity changes a resource's per-slot capacity and invalidates the
// current plan.
func (p *Pool) SetCapacity(id string, capacity int) error {
	if capacity < 0 {
		return fmt.Errorf("resource %s: capacity must be >= 0, got %d", id, capacity)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	r, ok := p.resources[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownResource, id)
	}
	r.Capacity = capacity
	p.resources[id] = r
	p.version++
	return nil
}

// Version returns the current edit counter.
func (p *Pool) Version() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.version
}

// Resources returns all resources sorted by ID.
func (p *Pool) Resources() []Resource {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Resource, 0, len(p.resources))
	for _, r := range p.resources {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Capabilities returns the capability tags of a resource.
func (p *Pool) Capabilities(id string) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	r, ok := p.resources[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownResource, id)
	}
	tags := make([]string, len(r.Capabilities))
	copy(tags, r.Capabilities)
	return tags, nil
}

// Reserved returns the committed reservation for a resource at a slot.
func (p *Pool) Reserved(id string, slot int) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ledger[id][slot]
}

// Snapshot captures the current resources into a private working copy the
// resolver reserves against. The snapshot's ledger starts empty: a resolve
// cycle replans every task, and Commit replaces the committed ledger
// wholesale with the snapshot's.
func (p *Pool) Snapshot(cal *calendar.Calendar) *Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s := &Snapshot{
		cal:       cal,
		resources: make(map[string]Resource, len(p.resources)),
		reserved:  make(map[string]map[int]int),
		version:   p.version,
	}
	for id, r := range p.resources {
		s.resources[id] = r
	}
	return s
}

// Commit atomically replaces the committed ledger with the snapshot's
// reservations. The swap is a single assignment under the lock, so
// concurrent readers see either the old ledger or the new one, never a mix.
func (p *Pool) Commit(s *Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ledger = s.reserved
}

// Utilization returns committed reserved capacity over total working
// capacity across [from, to]. Returns 0 when there is no capacity.
func (p *Pool) Utilization(cal *calendar.Calendar, from, to int) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	working := cal.WorkingSlots(from, to)
	totalCapacity := 0
	totalReserved := 0
	for id, r := range p.resources {
		totalCapacity += r.Capacity * working
		for slot, amount := range p.ledger[id] {
			if slot >= from && slot <= to {
				totalReserved += amount
			}
		}
	}
	if totalCapacity == 0 {
		return 0
	}
	return float64(totalReserved) / float64(totalCapacity)
}

// Snapshot is a private working copy of the pool for one resolve cycle. It
// is not safe for concurrent use; a resolve owns its snapshot exclusively.
type Snapshot struct {
	cal       *calendar.Calendar
	resources map[string]Resource
	reserved  map[string]map[int]int
	version   uint64
}

// Version returns the pool version the snapshot was taken at.
func (s *Snapshot) Version() uint64 { return s.version }

// Resources returns the snapshot's resources sorted by ID.
func (s *Snapshot) Resources() []Resource {
	out := make([]Resource, 0, len(s.resources))
	for _, r := range s.resources {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Available returns the remaining capacity of a resource at a slot.
// Non-working slots have zero capacity for every resource.
func (s *Snapshot) Available(id string, slot int) int {
	if !s.cal.IsWorking(slot) {
		return 0
	}
	r, ok := s.resources[id]
	if !ok {
		return 0
	}
	return r.Capacity - s.reserved[id][slot]
}

// Reserve takes amount units of a resource at a slot. Exceeding available
// capacity returns ErrOverReservation and leaves the snapshot unchanged.
func (s *Snapshot) Reserve(id string, slot int, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("reserve %s slot %d: amount must be > 0, got %d", id, slot, amount)
	}
	if avail := s.Available(id, slot); amount > avail {
		return fmt.Errorf("%w: resource %s slot %d: want %d, available %d",
			ErrOverReservation, id, slot, amount, avail)
	}
	if s.reserved[id] == nil {
		s.reserved[id] = make(map[int]int)
	}
	s.reserved[id][slot] += amount
	return nil
}

// Release returns previously reserved capacity.
func (s *Snapshot) Release(id string, slot int, amount int) error {
	if s.reserved[id][slot] < amount {
		return fmt.Errorf("release %s slot %d: only %d reserved, want %d",
			id, slot, s.reserved[id][slot], amount)
	}
	s.reserved[id][slot] -= amount
	if s.reserved[id][slot] == 0 {
		delete(s.reserved[id], slot)
	}
	return nil
}
