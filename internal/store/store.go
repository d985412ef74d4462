// Package store loads planning inputs from disk and persists the current
// published plan so separate CLI invocations can report on it. Only the
// current plan is kept; there is no plan history.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/galvarez-illu/AnimTycoon/internal/calendar"
	"github.com/galvarez-illu/AnimTycoon/internal/pool"
	"github.com/galvarez-illu/AnimTycoon/internal/resolver"
	"github.com/galvarez-illu/AnimTycoon/internal/workflow"
)

const stateDir = ".animtycoon"
const planFile = "plan.json"

const dateLayout = "2006-01-02"

// LoadWorkflow reads a workflow definition from a JSON file. Unknown fields
// are ignored so hand-edited files with annotations still load.
func LoadWorkflow(path string) ([]workflow.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("parse workflow %s: not valid JSON", path)
	}

	var tasks []workflow.Task
	gjson.GetBytes(data, "tasks").ForEach(func(_, item gjson.Result) bool {
		t := workflow.Task{
			ID:              item.Get("id").String(),
			Title:           item.Get("title").String(),
			Duration:        int(item.Get("duration").Int()),
			CapacityPerSlot: int(item.Get("capacity_per_slot").Int()),
			Deadline:        int(item.Get("deadline").Int()),
			Value:           int(item.Get("value").Int()),
		}
		if t.CapacityPerSlot == 0 {
			t.CapacityPerSlot = 1
		}
		item.Get("capabilities").ForEach(func(_, tag gjson.Result) bool {
			t.Capabilities = append(t.Capabilities, tag.String())
			return true
		})
		item.Get("depends_on").ForEach(func(_, dep gjson.Result) bool {
			t.DependsOn = append(t.DependsOn, dep.String())
			return true
		})
		tasks = append(tasks, t)
		return true
	})
	if len(tasks) == 0 {
		return nil, fmt.Errorf("workflow %s: no tasks", path)
	}
	return tasks, nil
}

// calendarFile is the on-disk YAML shape of a calendar rule set.
type calendarFile struct {
	Name     string   `yaml:"name"`
	Start    string   `yaml:"start"`
	Horizon  int      `yaml:"horizon"`
	WorkDays []string `yaml:"work_days"`
	Holidays []string `yaml:"holidays"`
	Closures []struct {
		From string `yaml:"from"`
		To   string `yaml:"to"`
	} `yaml:"closures"`
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday,
	"wed": time.Wednesday, "thu": time.Thursday, "fri": time.Friday,
	"sat": time.Saturday,
}

// LoadCalendar reads a calendar rule set from a YAML file.
func LoadCalendar(path string) (calendar.Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return calendar.Rules{}, fmt.Errorf("read calendar: %w", err)
	}
	var cf calendarFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return calendar.Rules{}, fmt.Errorf("parse calendar %s: %w", path, err)
	}

	rules := calendar.Rules{Name: cf.Name, Horizon: cf.Horizon}
	if cf.Start != "" {
		start, err := time.Parse(dateLayout, cf.Start)
		if err != nil {
			return calendar.Rules{}, fmt.Errorf("calendar start %q: %w", cf.Start, err)
		}
		rules.Start = start
	}
	for _, name := range cf.WorkDays {
		key := name
		if len(key) > 3 {
			key = key[:3]
		}
		day, ok := weekdayNames[strings.ToLower(key)]
		if !ok {
			return calendar.Rules{}, fmt.Errorf("calendar work day %q: unknown weekday", name)
		}
		rules.WorkDays = append(rules.WorkDays, day)
	}
	for _, h := range cf.Holidays {
		day, err := time.Parse(dateLayout, h)
		if err != nil {
			return calendar.Rules{}, fmt.Errorf("calendar holiday %q: %w", h, err)
		}
		rules.Holidays = append(rules.Holidays, day)
	}
	for _, cr := range cf.Closures {
		from, err := time.Parse(dateLayout, cr.From)
		if err != nil {
			return calendar.Rules{}, fmt.Errorf("calendar closure from %q: %w", cr.From, err)
		}
		to, err := time.Parse(dateLayout, cr.To)
		if err != nil {
			return calendar.Rules{}, fmt.Errorf("calendar closure to %q: %w", cr.To, err)
		}
		rules.Closures = append(rules.Closures, calendar.ClosureRange{From: from, To: to})
	}
	return rules, nil
}

// resourceFile is the on-disk YAML shape of a resource pool.
type resourceFile struct {
	Resources []struct {
		ID           string   `yaml:"id"`
		Name         string   `yaml:"name"`
		Capabilities []string `yaml:"capabilities"`
		Capacity     int      `yaml:"capacity"`
	} `yaml:"resources"`
}

// LoadResources reads resource definitions from a YAML file.
func LoadResources(path string) ([]pool.Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read resources: %w", err)
	}
	var rf resourceFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse resources %s: %w", path, err)
	}
	if len(rf.Resources) == 0 {
		return nil, fmt.Errorf("resources %s: no resources", path)
	}
	out := make([]pool.Resource, 0, len(rf.Resources))
	for _, r := range rf.Resources {
		capacity := r.Capacity
		if capacity == 0 {
			capacity = 1
		}
		out = append(out, pool.Resource{
			ID:           r.ID,
			Name:         r.Name,
			Capabilities: r.Capabilities,
			Capacity:     capacity,
		})
	}
	return out, nil
}

// Params is the on-disk engine configuration.
type Params struct {
	Policy       string `yaml:"policy"`
	Coefficients struct {
		Base         int `yaml:"base"`
		SlackFactor  int `yaml:"slack_factor"`
		ValueFactor  int `yaml:"value_factor"`
		FanOutFactor int `yaml:"fan_out_factor"`
	} `yaml:"coefficients"`
	BufferHigh   int   `yaml:"buffer_high"`
	OverflowCost int64 `yaml:"overflow_cost"`
}

// LoadParams reads engine configuration from a YAML file. A missing path
// yields the zero Params, which downstream components default sensibly.
func LoadParams(path string) (Params, error) {
	var p Params
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read params: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse params %s: %w", path, err)
	}
	return p, nil
}

// PlanFile pairs the published plan with the task list and calendar rules
// it was computed from, so risk reports and exports can be produced without
// re-resolving. Persisting the rules keeps exported dates anchored to the
// resolve-time calendar even when a default today-anchored one was used.
type PlanFile struct {
	Plan     *resolver.Plan  `json:"plan"`
	Tasks    []workflow.Task `json:"tasks"`
	Calendar calendar.Rules  `json:"calendar"`
}

// SavePlan persists the current plan, replacing any previous one.
func SavePlan(pf *PlanFile) error {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	data, err := json.MarshalIndent(pf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal plan: %w", err)
	}
	return os.WriteFile(filepath.Join(stateDir, planFile), data, 0644)
}

// LoadPlan reads the saved plan.
func LoadPlan() (*PlanFile, error) {
	data, err := os.ReadFile(filepath.Join(stateDir, planFile))
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	var pf PlanFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	return &pf, nil
}

// PlanExists checks whether a saved plan is present.
func PlanExists() bool {
	_, err := os.Stat(filepath.Join(stateDir, planFile))
	return err == nil
}

// Clean removes the state directory.
func Clean() error {
	return os.RemoveAll(stateDir)
}
