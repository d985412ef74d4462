package pool

import (
	"errors"
	"testing"
	"time"

	"github.com/galvarez-illu/AnimTycoon/internal/calendar"
)

// allWorking returns a calendar where every slot in the horizon is working.
func allWorking(t *testing.T, horizon int) *calendar.Calendar {
	t.Helper()
	return calendar.New(calendar.Rules{
		Start:   time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Horizon: horizon,
		WorkDays: []time.Weekday{
			time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
			time.Friday, time.Saturday, time.Sunday,
		},
	})
}

func TestAdd_Validation(t *testing.T) {
	p := New()
	if err := p.Add(Resource{ID: "", Capacity: 1}); err == nil {
		t.Error("expected error for empty ID")
	}
	if err := p.Add(Resource{ID: "m1", Capacity: -1}); err == nil {
		t.Error("expected error for negative capacity")
	}
	if err := p.Add(Resource{ID: "m1", Capacity: 2}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestVersion_BumpsOnEdit(t *testing.T) {
	p := New()
	v0 := p.Version()
	if err := p.Add(Resource{ID: "m1", Capacity: 1}); err != nil {
		t.Fatal(err)
	}
	if p.Version() == v0 {
		t.Error("expected version bump after Add")
	}
	v1 := p.Version()
	if err := p.SetCapacity("m1", 3); err != nil {
		t.Fatal(err)
	}
	if p.Version() == v1 {
		t.Error("expected version bump after SetCapacity")
	}
	v2 := p.Version()
	if err := p.Remove("m1"); err != nil {
		t.Fatal(err)
	}
	if p.Version() == v2 {
		t.Error("expected version bump after Remove")
	}
}

func TestSnapshot_AvailableRespectsCalendar(t *testing.T) {
	// Default Mon-Fri calendar; slot 5 is Saturday
	cal := calendar.New(calendar.Rules{
		Start:   time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Horizon: 7,
	})
	p := New()
	if err := p.Add(Resource{ID: "m1", Capacity: 2}); err != nil {
		t.Fatal(err)
	}
	s := p.Snapshot(cal)

	if got := s.Available("m1", 0); got != 2 {
		t.Errorf("expected 2 available on working slot, got %d", got)
	}
	if got := s.Available("m1", 5); got != 0 {
		t.Errorf("expected 0 available on weekend slot, got %d", got)
	}
	if got := s.Available("nope", 0); got != 0 {
		t.Errorf("expected 0 available for unknown resource, got %d", got)
	}
}

func TestSnapshot_ReserveRelease(t *testing.T) {
	cal := allWorking(t, 5)
	p := New()
	if err := p.Add(Resource{ID: "m1", Capacity: 2}); err != nil {
		t.Fatal(err)
	}
	s := p.Snapshot(cal)

	if err := s.Reserve("m1", 1, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.Available("m1", 1); got != 0 {
		t.Errorf("expected 0 available after full reservation, got %d", got)
	}

	err := s.Reserve("m1", 1, 1)
	if !errors.Is(err, ErrOverReservation) {
		t.Fatalf("expected ErrOverReservation, got %v", err)
	}

	if err := s.Release("m1", 1, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.Available("m1", 1); got != 1 {
		t.Errorf("expected 1 available after release, got %d", got)
	}

	if err := s.Release("m1", 1, 5); err == nil {
		t.Error("expected error releasing more than reserved")
	}
}

func TestCommit_SwapsLedger(t *testing.T) {
	cal := allWorking(t, 5)
	p := New()
	if err := p.Add(Resource{ID: "m1", Capacity: 2}); err != nil {
		t.Fatal(err)
	}

	s := p.Snapshot(cal)
	if err := s.Reserve("m1", 0, 2); err != nil {
		t.Fatal(err)
	}
	p.Commit(s)
	if got := p.Reserved("m1", 0); got != 2 {
		t.Errorf("expected committed reservation 2, got %d", got)
	}

	// A fresh snapshot starts from zero reservations and replaces the
	// ledger wholesale on commit.
	s2 := p.Snapshot(cal)
	if got := s2.Available("m1", 0); got != 2 {
		t.Errorf("expected fresh snapshot to ignore committed ledger, got %d available", got)
	}
	if err := s2.Reserve("m1", 1, 1); err != nil {
		t.Fatal(err)
	}
	p.Commit(s2)
	if got := p.Reserved("m1", 0); got != 0 {
		t.Errorf("expected old reservation replaced, got %d", got)
	}
	if got := p.Reserved("m1", 1); got != 1 {
		t.Errorf("expected new reservation 1, got %d", got)
	}
}

func TestHasCapabilities(t *testing.T) {
	r := Resource{ID: "a1", Capabilities: []string{"anim", "layout"}}
	if !r.HasCapabilities(nil) {
		t.Error("empty requirement should always match")
	}
	if !r.HasCapabilities([]string{"anim"}) {
		t.Error("expected match for anim")
	}
	if r.HasCapabilities([]string{"anim", "modeling"}) {
		t.Error("expected no match when one tag is missing")
	}
}

func TestUtilization(t *testing.T) {
	cal := allWorking(t, 5)
	p := New()
	if err := p.Add(Resource{ID: "m1", Capacity: 2}); err != nil {
		t.Fatal(err)
	}

	if got := p.Utilization(cal, 0, 4); got != 0 {
		t.Errorf("expected 0 utilization before commit, got %f", got)
	}

	s := p.Snapshot(cal)
	for slot := 0; slot < 5; slot++ {
		if err := s.Reserve("m1", slot, 1); err != nil {
			t.Fatal(err)
		}
	}
	p.Commit(s)

	// 5 reserved out of 10 capacity-slots
	if got := p.Utilization(cal, 0, 4); got != 0.5 {
		t.Errorf("expected utilization 0.5, got %f", got)
	}
}
