package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/galvarez-illu/AnimTycoon/internal/calendar"
	"github.com/galvarez-illu/AnimTycoon/internal/resolver"
	"github.com/galvarez-illu/AnimTycoon/internal/workflow"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadWorkflow(t *testing.T) {
	path := writeFile(t, "workflow.json", `{
		"tasks": [
			{"id": "model", "title": "Model the horse", "duration": 5,
			 "capacity_per_slot": 2, "capabilities": ["modeling"],
			 "deadline": 20, "value": 3},
			{"id": "anim", "duration": 8, "capabilities": ["anim"],
			 "deadline": 40, "value": 5, "depends_on": ["model"]}
		]
	}`)

	tasks, err := LoadWorkflow(path)
	if err != nil {
		t.Fatalf("load workflow: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0].ID != "model" || tasks[0].Duration != 5 || tasks[0].CapacityPerSlot != 2 {
		t.Errorf("unexpected first task: %+v", tasks[0])
	}
	if tasks[1].CapacityPerSlot != 1 {
		t.Errorf("expected capacity default 1, got %d", tasks[1].CapacityPerSlot)
	}
	if len(tasks[1].DependsOn) != 1 || tasks[1].DependsOn[0] != "model" {
		t.Errorf("expected depends_on [model], got %v", tasks[1].DependsOn)
	}
}

func TestLoadWorkflow_Invalid(t *testing.T) {
	path := writeFile(t, "bad.json", `{not json`)
	if _, err := LoadWorkflow(path); err == nil {
		t.Error("expected error for invalid JSON")
	}

	empty := writeFile(t, "empty.json", `{"tasks": []}`)
	if _, err := LoadWorkflow(empty); err == nil {
		t.Error("expected error for empty task list")
	}
}

func TestLoadCalendar(t *testing.T) {
	path := writeFile(t, "calendar.yaml", `
name: Studio Calendar
start: 2026-03-02
horizon: 30
work_days: [Mon, Tue, Wed, Thu, Fri]
holidays:
  - 2026-03-04
closures:
  - from: 2026-03-09
    to: 2026-03-10
`)

	rules, err := LoadCalendar(path)
	if err != nil {
		t.Fatalf("load calendar: %v", err)
	}
	if rules.Name != "Studio Calendar" {
		t.Errorf("unexpected name %q", rules.Name)
	}
	if rules.Horizon != 30 {
		t.Errorf("expected horizon 30, got %d", rules.Horizon)
	}
	if len(rules.WorkDays) != 5 || rules.WorkDays[0] != time.Monday {
		t.Errorf("unexpected work days %v", rules.WorkDays)
	}
	if len(rules.Holidays) != 1 || len(rules.Closures) != 1 {
		t.Errorf("unexpected holidays/closures: %v %v", rules.Holidays, rules.Closures)
	}
}

func TestLoadCalendar_BadWeekday(t *testing.T) {
	path := writeFile(t, "calendar.yaml", "work_days: [Funday]\n")
	if _, err := LoadCalendar(path); err == nil {
		t.Error("expected error for unknown weekday")
	}
}

func TestLoadResources(t *testing.T) {
	path := writeFile(t, "resources.yaml", `
resources:
  - id: m1
    name: Modeling Artist
    capabilities: [modeling]
    capacity: 2
  - id: a1
    capabilities: [anim]
`)

	resources, err := LoadResources(path)
	if err != nil {
		t.Fatalf("load resources: %v", err)
	}
	if len(resources) != 2 {
		t.Fatalf("expected 2 resources, got %d", len(resources))
	}
	if resources[0].Capacity != 2 {
		t.Errorf("expected capacity 2, got %d", resources[0].Capacity)
	}
	if resources[1].Capacity != 1 {
		t.Errorf("expected capacity default 1, got %d", resources[1].Capacity)
	}
}

func TestLoadParams(t *testing.T) {
	p, err := LoadParams("")
	if err != nil {
		t.Fatalf("empty path must yield defaults: %v", err)
	}
	if p.Policy != "" || p.BufferHigh != 0 {
		t.Errorf("expected zero params, got %+v", p)
	}

	path := writeFile(t, "params.yaml", `
policy: hybrid
buffer_high: 3
coefficients:
  base: 500
  slack_factor: 7
`)
	p, err = LoadParams(path)
	if err != nil {
		t.Fatalf("load params: %v", err)
	}
	if p.Policy != "hybrid" || p.BufferHigh != 3 || p.Coefficients.Base != 500 {
		t.Errorf("unexpected params: %+v", p)
	}
}

func TestPlanRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(cwd)

	if PlanExists() {
		t.Fatal("no plan should exist yet")
	}

	pf := &PlanFile{
		Plan: &resolver.Plan{
			ID: "p1",
			Allocations: []resolver.Allocation{
				{TaskID: "a", ResourceID: "r1", StartSlot: 0, EndSlot: 1, Capacity: 1},
			},
			Conflicts:   []resolver.Conflict{{TaskID: "b", Unmet: 2, Reason: resolver.CapacityDeficit}},
			FinishSlots: map[string]int{"a": 1},
		},
		Tasks: []workflow.Task{
			{ID: "a", Duration: 2, CapacityPerSlot: 1, Deadline: 4},
			{ID: "b", Duration: 2, CapacityPerSlot: 1, Deadline: 4},
		},
		Calendar: calendar.Rules{
			Name:     "studio",
			Start:    time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
			Horizon:  30,
			WorkDays: []time.Weekday{time.Monday, time.Tuesday},
		},
	}
	if err := SavePlan(pf); err != nil {
		t.Fatalf("save plan: %v", err)
	}
	if !PlanExists() {
		t.Fatal("expected saved plan to exist")
	}

	loaded, err := LoadPlan()
	if err != nil {
		t.Fatalf("load plan: %v", err)
	}
	if loaded.Plan.ID != "p1" || len(loaded.Plan.Allocations) != 1 || len(loaded.Tasks) != 2 {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
	// The resolve-time calendar rules survive the round trip, so exports
	// can anchor slot dates without re-reading the rules file.
	if !loaded.Calendar.Start.Equal(pf.Calendar.Start) ||
		loaded.Calendar.Horizon != 30 ||
		len(loaded.Calendar.WorkDays) != 2 {
		t.Errorf("calendar rules round trip mismatch: %+v", loaded.Calendar)
	}

	if err := Clean(); err != nil {
		t.Fatalf("clean: %v", err)
	}
	if PlanExists() {
		t.Error("expected plan removed after clean")
	}
}
