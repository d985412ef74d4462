package calendar

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrCalendarExhausted is returned when no working slot exists within the
// configured horizon.
var ErrCalendarExhausted = errors.New("calendar exhausted: no working slot within horizon")

// TimeSlot is the smallest discretized unit of schedulable time. One slot
// corresponds to one calendar day starting from the rule set's start date.
type TimeSlot struct {
	Index   int
	Date    time.Time
	Working bool
}

// ClosureRange is a studio closure (vacation) period, inclusive on both ends.
type ClosureRange struct {
	From time.Time
	To   time.Time
}

// Rules is the immutable rule set a Calendar is built from. It is supplied
// by an external loader and never mutated afterwards.
type Rules struct {
	Name     string
	Start    time.Time      // date of slot 0
	Horizon  int            // number of slots the calendar covers
	WorkDays []time.Weekday // weekdays considered working (default Mon-Fri)
	Holidays []time.Time
	Closures []ClosureRange
}

// Calendar maps slot indices to calendar dates and answers working-time
// queries. It is a pure value: all methods are read-only.
type Calendar struct {
	name    string
	start   time.Time
	horizon int
	working []bool // precomputed per slot
}

const defaultHorizon = 365

// New builds a Calendar from a rule set. The working flag for every slot in
// the horizon is precomputed so slot queries are O(1) during a resolve.
func New(rules Rules) *Calendar {
	if rules.Horizon <= 0 {
		rules.Horizon = defaultHorizon
	}
	if rules.Start.IsZero() {
		rules.Start = time.Now().Truncate(24 * time.Hour)
	}
	workDays := rules.WorkDays
	if len(workDays) == 0 {
		workDays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
	}
	workSet := make(map[time.Weekday]bool, len(workDays))
	for _, d := range workDays {
		workSet[d] = true
	}
	holidays := make(map[string]bool, len(rules.Holidays))
	for _, h := range rules.Holidays {
		holidays[dayKey(h)] = true
	}

	c := &Calendar{
		name:    rules.Name,
		start:   rules.Start,
		horizon: rules.Horizon,
		working: make([]bool, rules.Horizon),
	}
	for i := 0; i < rules.Horizon; i++ {
		date := rules.Start.AddDate(0, 0, i)
		c.working[i] = workSet[date.Weekday()] &&
			!holidays[dayKey(date)] &&
			!inClosure(date, rules.Closures)
	}
	return c
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func inClosure(date time.Time, closures []ClosureRange) bool {
	for _, cr := range closures {
		if !date.Before(cr.From) && !date.After(cr.To) {
			return true
		}
	}
	return false
}

// Name returns the calendar's display name.
func (c *Calendar) Name() string { return c.name }

// Horizon returns the number of slots the calendar covers.
func (c *Calendar) Horizon() int { return c.horizon }

// Start returns the date of slot 0.
func (c *Calendar) Start() time.Time { return c.start }

// IsWorking reports whether the given slot is working time. Slots outside
// the horizon are never working.
func (c *Calendar) IsWorking(slot int) bool {
	if slot < 0 || slot >= c.horizon {
		return false
	}
	return c.working[slot]
}

// Slot returns the TimeSlot at the given index.
func (c *Calendar) Slot(index int) TimeSlot {
	return TimeSlot{
		Index:   index,
		Date:    c.start.AddDate(0, 0, index),
		Working: c.IsWorking(index),
	}
}

// NextWorkingSlot returns the first working slot at or after from. The
// search is bounded by the horizon; exhausting it is a hard stop.
func (c *Calendar) NextWorkingSlot(from int) (TimeSlot, error) {
	if from < 0 {
		from = 0
	}
	for s := from; s < c.horizon; s++ {
		if c.working[s] {
			return c.Slot(s), nil
		}
	}
	return TimeSlot{}, fmt.Errorf("%w (from slot %d, horizon %d)", ErrCalendarExhausted, from, c.horizon)
}

// SlotRange returns the ordered slots in [from, to], clipped to the horizon.
func (c *Calendar) SlotRange(from, to int) []TimeSlot {
	if from < 0 {
		from = 0
	}
	if to >= c.horizon {
		to = c.horizon - 1
	}
	if to < from {
		return nil
	}
	slots := make([]TimeSlot, 0, to-from+1)
	for s := from; s <= to; s++ {
		slots = append(slots, c.Slot(s))
	}
	return slots
}

// WorkingSlots counts the working slots in [from, to].
func (c *Calendar) WorkingSlots(from, to int) int {
	n := 0
	for _, ts := range c.SlotRange(from, to) {
		if ts.Working {
			n++
		}
	}
	return n
}

// WorkingIndices returns the ascending indices of working slots in [from, to].
func (c *Calendar) WorkingIndices(from, to int) []int {
	var out []int
	for _, ts := range c.SlotRange(from, to) {
		if ts.Working {
			out = append(out, ts.Index)
		}
	}
	sort.Ints(out)
	return out
}
