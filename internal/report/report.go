// Package report renders resolved plans and risk evaluations for terminal
// and machine consumption.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/galvarez-illu/AnimTycoon/internal/calendar"
	"github.com/galvarez-illu/AnimTycoon/internal/pool"
	"github.com/galvarez-illu/AnimTycoon/internal/resolver"
	"github.com/galvarez-illu/AnimTycoon/internal/risk"
	"github.com/galvarez-illu/AnimTycoon/internal/ui"
	"github.com/galvarez-illu/AnimTycoon/internal/workflow"
)

const dateLayout = "2006-01-02"

// Reporter provides plan and risk display for a resolve cycle.
type Reporter struct {
	Plan      *resolver.Plan
	Graph     *workflow.Graph
	Cal       *calendar.Calendar
	Resources []pool.Resource
}

// New creates a new Reporter.
func New(plan *resolver.Plan, g *workflow.Graph, cal *calendar.Calendar, resources []pool.Resource) *Reporter {
	return &Reporter{Plan: plan, Graph: g, Cal: cal, Resources: resources}
}

// PrintPlan writes a terminal-friendly plan report: one block per task in
// topological order with its allocations, then conflicts and a footer.
func (r *Reporter) PrintPlan(w io.Writer) {
	placed := r.Graph.TaskCount() - len(r.Plan.Conflicts)

	fmt.Fprintf(w, "%s — %d of %d tasks fully placed",
		ui.BoldCyan("🎬 AnimTycoon Plan"), placed, r.Graph.TaskCount())
	if len(r.Plan.Conflicts) > 0 {
		fmt.Fprintf(w, " %s", ui.Red(fmt.Sprintf("(%d conflicted)", len(r.Plan.Conflicts))))
	}
	fmt.Fprintf(w, " %s\n\n", ui.Dim(fmt.Sprintf("[plan %s]", r.Plan.ID)))

	for _, id := range r.Graph.TopologicalOrder() {
		r.printTask(w, id)
	}

	if len(r.Plan.Conflicts) > 0 {
		fmt.Fprintf(w, "%s\n", ui.BoldRed("Conflicts:"))
		for _, c := range r.Plan.Conflicts {
			fmt.Fprintf(w, "  %s %s  %s  %s\n",
				ui.Red("✗"), ui.BoldMagenta(c.TaskID),
				ui.ReasonLabel(string(c.Reason)),
				ui.Dim(fmt.Sprintf("(%d unmet)", c.Unmet)))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "%s\n", ui.Cyan("──────────────────────────"))
	fmt.Fprintf(w, "Cost:         %s\n", ui.Bold(r.Plan.TotalCost))
	fmt.Fprintf(w, "Critical len: %d slots\n", r.Graph.CriticalPathLength())
	fmt.Fprintf(w, "Utilization:  %s\n", ui.Bold(fmt.Sprintf("%.1f%%", r.Utilization()*100)))
}

// printTask writes a single task block with its allocations.
func (r *Reporter) printTask(w io.Writer, id string) {
	t := r.Graph.Tasks[id]

	title := t.Title
	if title == "" {
		title = id
	}
	if len(title) > 40 {
		title = title[:37] + "..."
	}

	allocs := r.Plan.AllocationsFor(id)
	_, conflicted := r.Plan.ConflictFor(id)

	icon := ui.Green("✓")
	if conflicted {
		icon = ui.Red("✗")
	} else if len(allocs) == 0 {
		icon = ui.Dim("◌")
	}

	finish := ""
	if fs, ok := r.Plan.FinishSlot(id); ok {
		finish = ui.Dim(fmt.Sprintf("[finish %s]", r.slotDate(fs)))
	}

	fmt.Fprintf(w, "  %s %s %-40s %s\n", icon, ui.TaskPrefix(id), title, finish)
	for _, a := range allocs {
		fmt.Fprintf(w, "      %s %s  %s → %s  %s\n",
			ui.Dim("↳"), ui.Cyan(a.ResourceID),
			r.slotDate(a.StartSlot), r.slotDate(a.EndSlot),
			ui.Dim(fmt.Sprintf("×%d", a.Capacity)))
	}
}

// PrintRisk writes a terminal-friendly risk report.
func (r *Reporter) PrintRisk(w io.Writer, rep *risk.Report) {
	fmt.Fprintf(w, "%s — %s  %s  %s\n\n",
		ui.BoldCyan("🎬 AnimTycoon Risk"),
		ui.Green(fmt.Sprintf("%d on track", rep.Counts[risk.OnTrack])),
		ui.Yellow(fmt.Sprintf("%d at risk", rep.Counts[risk.AtRisk])),
		ui.Red(fmt.Sprintf("%d late", rep.Counts[risk.Late])))

	for _, tr := range rep.Tasks {
		slack := ui.Dim(fmt.Sprintf("[slack %d]", tr.Slack))
		if tr.FinishSlot < 0 {
			slack = ui.Dim("[unplaced]")
		}
		note := ""
		if tr.Conflicted {
			note = ui.Red("conflicted")
		}
		fmt.Fprintf(w, "  %s %-12s %-10s %s  %s\n",
			ui.RiskIcon(string(tr.Level)), ui.BoldMagenta(tr.TaskID),
			ui.RiskLabel(string(tr.Level)), slack, note)
	}
}

// Utilization returns the share of resource capacity committed between slot 0
// and the latest allocated slot, counting working slots only. Zero when the
// plan allocates nothing.
func (r *Reporter) Utilization() float64 {
	last := 0
	used := 0
	for _, a := range r.Plan.Allocations {
		if a.EndSlot > last {
			last = a.EndSlot
		}
		used += a.Units()
	}
	if used == 0 {
		return 0
	}
	slots := r.Cal.WorkingSlots(0, last)
	supply := 0
	for _, res := range r.Resources {
		supply += res.Capacity * slots
	}
	if supply == 0 {
		return 0
	}
	return float64(used) / float64(supply)
}

func (r *Reporter) slotDate(slot int) string {
	return r.Cal.Slot(slot).Date.Format(dateLayout)
}

// JSON returns the machine-readable plan report.
func (r *Reporter) JSON() ([]byte, error) {
	type taskEntry struct {
		TaskID      string                `json:"task_id"`
		Title       string                `json:"title,omitempty"`
		Allocations []resolver.Allocation `json:"allocations"`
		FinishSlot  int                   `json:"finish_slot"`
		FinishDate  string                `json:"finish_date,omitempty"`
		Conflicted  bool                  `json:"conflicted"`
	}

	type output struct {
		PlanID      string              `json:"plan_id"`
		CreatedAt   string              `json:"created_at"`
		TotalCost   int64               `json:"total_cost"`
		Utilization float64             `json:"utilization"`
		Tasks       []taskEntry         `json:"tasks"`
		Conflicts   []resolver.Conflict `json:"conflicts"`
	}

	o := output{
		PlanID:      r.Plan.ID,
		CreatedAt:   r.Plan.CreatedAt.Format(dateLayout),
		TotalCost:   r.Plan.TotalCost,
		Utilization: r.Utilization(),
		Conflicts:   r.Plan.Conflicts,
	}

	for _, id := range r.Graph.TopologicalOrder() {
		te := taskEntry{
			TaskID:      id,
			Title:       r.Graph.Tasks[id].Title,
			Allocations: r.Plan.AllocationsFor(id),
			FinishSlot:  -1,
		}
		if fs, ok := r.Plan.FinishSlot(id); ok {
			te.FinishSlot = fs
			te.FinishDate = r.slotDate(fs)
		}
		_, te.Conflicted = r.Plan.ConflictFor(id)
		o.Tasks = append(o.Tasks, te)
	}

	return json.MarshalIndent(o, "", "  ")
}

// WriteCSV writes the plan's allocations as CSV, one row per allocation,
// ordered as they appear in the plan.
func (r *Reporter) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	header := []string{"task_id", "resource_id", "start_slot", "start_date", "end_slot", "end_date", "capacity", "units"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, a := range r.Plan.Allocations {
		row := []string{
			a.TaskID,
			a.ResourceID,
			strconv.Itoa(a.StartSlot),
			r.slotDate(a.StartSlot),
			strconv.Itoa(a.EndSlot),
			r.slotDate(a.EndSlot),
			strconv.Itoa(a.Capacity),
			strconv.Itoa(a.Units()),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Summary returns a short one-paragraph outcome string for CLI epilogue.
func (r *Reporter) Summary() string {
	var b strings.Builder
	placed := r.Graph.TaskCount() - len(r.Plan.Conflicts)
	fmt.Fprintf(&b, "\n%s %s\n", "🎬", ui.BoldCyan("Resolve Complete"))
	fmt.Fprintf(&b, "%s\n", ui.Cyan("═════════════════════════"))
	fmt.Fprintf(&b, "Plan:    %s\n", ui.Dim(r.Plan.ID))
	fmt.Fprintf(&b, "Tasks:   %s, %s, %d total\n",
		ui.Green(fmt.Sprintf("%d placed", placed)),
		ui.Red(fmt.Sprintf("%d conflicted", len(r.Plan.Conflicts))),
		r.Graph.TaskCount())
	fmt.Fprintf(&b, "Unmet:   %d capacity-slots\n", r.Plan.UnmetTotal())
	fmt.Fprintf(&b, "Cost:    %d\n", r.Plan.TotalCost)
	return b.String()
}
