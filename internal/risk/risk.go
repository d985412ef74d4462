// Package risk classifies delivery risk per task from a published plan.
// Evaluation is a pure function of the plan and the workflow graph.
package risk

import (
	"sort"

	"github.com/galvarez-illu/AnimTycoon/internal/resolver"
	"github.com/galvarez-illu/AnimTycoon/internal/workflow"
)

// Level is a discrete per-task risk classification.
type Level string

const (
	OnTrack Level = "on_track"
	AtRisk  Level = "at_risk"
	Late    Level = "late"
)

// Config holds the classification thresholds.
type Config struct {
	// BufferHigh is the slack (in slots) at or above which a task is
	// considered on track.
	BufferHigh int
}

const defaultBufferHigh = 2

// TaskRisk is the evaluation result for a single task.
type TaskRisk struct {
	TaskID     string `json:"task_id"`
	Slack      int    `json:"slack"`
	Level      Level  `json:"level"`
	FinishSlot int    `json:"finish_slot"`
	Conflicted bool   `json:"conflicted"`
}

// Report holds per-task risk entries sorted by task ID plus level counts.
type Report struct {
	Tasks  []TaskRisk    `json:"tasks"`
	Counts map[Level]int `json:"counts"`
}

// ByTask returns the entry for a task ID.
func (r *Report) ByTask(id string) (TaskRisk, bool) {
	for _, t := range r.Tasks {
		if t.TaskID == id {
			return t, true
		}
	}
	return TaskRisk{}, false
}

// Evaluate computes slack = deadline - finish slot for every task in the
// graph and maps it onto a level. Tasks appearing in the plan's conflicts
// are late regardless of slack, as is any task the plan failed to place.
func Evaluate(g *workflow.Graph, plan *resolver.Plan, cfg Config) *Report {
	bufferHigh := cfg.BufferHigh
	if bufferHigh <= 0 {
		bufferHigh = defaultBufferHigh
	}

	report := &Report{Counts: make(map[Level]int)}
	for id, t := range g.Tasks {
		tr := TaskRisk{TaskID: id, FinishSlot: -1}

		if _, conflicted := plan.ConflictFor(id); conflicted {
			tr.Conflicted = true
		}

		finish, allocated := plan.FinishSlot(id)
		if allocated {
			tr.FinishSlot = finish
			tr.Slack = t.Deadline - finish
		}

		switch {
		case tr.Conflicted || !allocated:
			tr.Level = Late
		case tr.Slack < 0:
			tr.Level = Late
		case tr.Slack >= bufferHigh:
			tr.Level = OnTrack
		default:
			tr.Level = AtRisk
		}

		report.Tasks = append(report.Tasks, tr)
		report.Counts[tr.Level]++
	}

	sort.Slice(report.Tasks, func(i, j int) bool {
		return report.Tasks[i].TaskID < report.Tasks[j].TaskID
	})
	return report
}
