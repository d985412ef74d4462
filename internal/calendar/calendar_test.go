package calendar

import (
	"errors"
	"testing"
	"time"
)

// monday is a fixed Monday used as slot 0 in tests.
var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func TestIsWorking_Weekends(t *testing.T) {
	c := New(Rules{Start: monday, Horizon: 14})

	// Mon-Fri working, Sat-Sun not
	for slot := 0; slot < 5; slot++ {
		if !c.IsWorking(slot) {
			t.Errorf("expected slot %d (weekday) to be working", slot)
		}
	}
	if c.IsWorking(5) || c.IsWorking(6) {
		t.Error("expected weekend slots 5,6 to be non-working")
	}
	if !c.IsWorking(7) {
		t.Error("expected slot 7 (next Monday) to be working")
	}
}

func TestIsWorking_HolidaysAndClosures(t *testing.T) {
	c := New(Rules{
		Start:    monday,
		Horizon:  14,
		Holidays: []time.Time{monday.AddDate(0, 0, 2)}, // Wednesday
		Closures: []ClosureRange{
			{From: monday.AddDate(0, 0, 8), To: monday.AddDate(0, 0, 9)}, // Tue-Wed next week
		},
	})

	if c.IsWorking(2) {
		t.Error("expected holiday slot 2 to be non-working")
	}
	if c.IsWorking(8) || c.IsWorking(9) {
		t.Error("expected closure slots 8,9 to be non-working")
	}
	if !c.IsWorking(1) || !c.IsWorking(3) || !c.IsWorking(7) {
		t.Error("expected surrounding weekdays to stay working")
	}
}

func TestIsWorking_OutsideHorizon(t *testing.T) {
	c := New(Rules{Start: monday, Horizon: 5})
	if c.IsWorking(-1) {
		t.Error("negative slot must not be working")
	}
	if c.IsWorking(5) {
		t.Error("slot past horizon must not be working")
	}
}

func TestNextWorkingSlot(t *testing.T) {
	c := New(Rules{Start: monday, Horizon: 14})

	ts, err := c.NextWorkingSlot(5) // Saturday
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ts.Index != 7 {
		t.Errorf("expected next working slot 7, got %d", ts.Index)
	}

	ts, err = c.NextWorkingSlot(3) // already working
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ts.Index != 3 {
		t.Errorf("expected slot 3 returned as-is, got %d", ts.Index)
	}
}

func TestNextWorkingSlot_Exhausted(t *testing.T) {
	// Horizon covers only a weekend
	saturday := monday.AddDate(0, 0, 5)
	c := New(Rules{Start: saturday, Horizon: 2})

	_, err := c.NextWorkingSlot(0)
	if !errors.Is(err, ErrCalendarExhausted) {
		t.Fatalf("expected ErrCalendarExhausted, got %v", err)
	}
}

func TestSlotRange_Clipping(t *testing.T) {
	c := New(Rules{Start: monday, Horizon: 10})

	slots := c.SlotRange(-3, 20)
	if len(slots) != 10 {
		t.Fatalf("expected range clipped to 10 slots, got %d", len(slots))
	}
	if slots[0].Index != 0 || slots[9].Index != 9 {
		t.Errorf("expected indices 0..9, got %d..%d", slots[0].Index, slots[9].Index)
	}

	if got := c.SlotRange(5, 4); got != nil {
		t.Errorf("expected empty range for inverted bounds, got %v", got)
	}
}

func TestWorkingSlots(t *testing.T) {
	c := New(Rules{Start: monday, Horizon: 14})
	// Two full weeks starting Monday: 10 working days
	if got := c.WorkingSlots(0, 13); got != 10 {
		t.Errorf("expected 10 working slots, got %d", got)
	}
}

func TestWorkingIndices(t *testing.T) {
	c := New(Rules{Start: monday, Horizon: 7})
	got := c.WorkingIndices(0, 6)
	want := []int{0, 1, 2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
