package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/galvarez-illu/AnimTycoon/internal/calendar"
	"github.com/galvarez-illu/AnimTycoon/internal/engine"
	"github.com/galvarez-illu/AnimTycoon/internal/pool"
	"github.com/galvarez-illu/AnimTycoon/internal/report"
	"github.com/galvarez-illu/AnimTycoon/internal/resolver"
	"github.com/galvarez-illu/AnimTycoon/internal/risk"
	"github.com/galvarez-illu/AnimTycoon/internal/scoring"
	"github.com/galvarez-illu/AnimTycoon/internal/store"
	"github.com/galvarez-illu/AnimTycoon/internal/ui"
	"github.com/galvarez-illu/AnimTycoon/internal/workflow"
	"github.com/spf13/cobra"
)

var (
	flagWorkflow  string
	flagResources string
	flagCalendar  string
	flagParams    string
	flagPolicy    string
	flagTimeout   string
	flagJSON      bool
	flagOutput    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "animtycoon",
		Short: "Resolve production schedules against limited studio resources",
		Long: `AnimTycoon reads a task workflow, a resource pool and a studio
calendar, scores tasks by urgency, then computes a minimum-cost assignment
of tasks to resources over time. Demand that cannot be met is reported as
explicit conflicts rather than an error.`,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&flagWorkflow, "workflow", "w", "workflow.json", "Workflow task file")
	rootCmd.PersistentFlags().StringVarP(&flagResources, "resources", "r", "resources.yaml", "Resource pool file")
	rootCmd.PersistentFlags().StringVarP(&flagCalendar, "calendar", "c", "", "Calendar rules file (default: Mon-Fri, 365 slots)")
	rootCmd.PersistentFlags().StringVar(&flagParams, "params", "", "Engine parameter file")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Machine-readable JSON output")

	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(resolveCmd())
	rootCmd.AddCommand(riskCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(cleanCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadInputs is shared logic for validate and resolve. The returned rules
// carry the start date and horizon the calendar actually resolved to, so
// defaults such as a today-anchored start pin to concrete values that can
// be persisted alongside the plan.
func loadInputs() ([]workflow.Task, []pool.Resource, *calendar.Calendar, calendar.Rules, store.Params, error) {
	fail := func(err error) ([]workflow.Task, []pool.Resource, *calendar.Calendar, calendar.Rules, store.Params, error) {
		return nil, nil, nil, calendar.Rules{}, store.Params{}, err
	}

	tasks, err := store.LoadWorkflow(flagWorkflow)
	if err != nil {
		return fail(err)
	}

	resources, err := store.LoadResources(flagResources)
	if err != nil {
		return fail(err)
	}

	rules := calendar.Rules{}
	if flagCalendar != "" {
		rules, err = store.LoadCalendar(flagCalendar)
		if err != nil {
			return fail(err)
		}
	}
	cal := calendar.New(rules)
	rules.Start = cal.Start()
	rules.Horizon = cal.Horizon()

	params, err := store.LoadParams(flagParams)
	if err != nil {
		return fail(err)
	}
	if flagPolicy != "" {
		params.Policy = flagPolicy
	}

	return tasks, resources, cal, rules, params, nil
}

func buildEngine(resources []pool.Resource, cal *calendar.Calendar, params store.Params) (*engine.Engine, error) {
	p := pool.New()
	for _, r := range resources {
		if err := p.Add(r); err != nil {
			return nil, fmt.Errorf("add resource: %w", err)
		}
	}

	cfg := engine.Config{
		Policy: scoring.Policy(params.Policy),
		Coefficients: scoring.Coefficients{
			Base:         params.Coefficients.Base,
			SlackFactor:  params.Coefficients.SlackFactor,
			ValueFactor:  params.Coefficients.ValueFactor,
			FanOutFactor: params.Coefficients.FanOutFactor,
		},
		Risk:     risk.Config{BufferHigh: params.BufferHigh},
		Resolver: resolver.Config{OverflowCost: params.OverflowCost},
	}
	return engine.New(cal, p, cfg)
}

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the workflow file for structural errors",
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := store.LoadWorkflow(flagWorkflow)
			if err != nil {
				return err
			}

			g, err := workflow.New(tasks)
			if err != nil {
				return fmt.Errorf("invalid workflow: %w", err)
			}

			if flagJSON {
				return outputJSON(map[string]interface{}{
					"tasks":           g.TaskCount(),
					"order":           g.TopologicalOrder(),
					"critical_length": g.CriticalPathLength(),
				})
			}

			fmt.Printf("%s %s\n", ui.Green("✓"), ui.BoldCyan("Workflow is valid"))
			fmt.Printf("Tasks:        %s\n", ui.Bold(g.TaskCount()))
			fmt.Printf("Order:        %s\n", ui.Dim(strings.Join(g.TopologicalOrder(), " → ")))
			fmt.Printf("Critical len: %d slots\n", g.CriticalPathLength())
			return nil
		},
	}

	return cmd
}

func resolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Compute an assignment plan and persist it",
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, resources, cal, rules, params, err := loadInputs()
			if err != nil {
				return err
			}

			e, err := buildEngine(resources, cal, params)
			if err != nil {
				return err
			}
			if err := e.SubmitWorkflow(tasks); err != nil {
				return fmt.Errorf("submit workflow: %w", err)
			}

			timeout, err := time.ParseDuration(flagTimeout)
			if err != nil {
				return fmt.Errorf("parse timeout: %w", err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				fmt.Fprintf(os.Stderr, "\n🛑 %s\n", ui.Yellow("Received interrupt, cancelling..."))
				cancel()
			}()

			if !flagJSON {
				ui.PrintLogo()
			}

			plan, err := e.Resolve(ctx)
			if err != nil {
				return fmt.Errorf("resolve: %w", err)
			}

			pub := e.Plan()
			rpt := report.New(plan, pub.Graph, cal, resources)

			if err := store.SavePlan(&store.PlanFile{Plan: plan, Tasks: tasks, Calendar: rules}); err != nil {
				return fmt.Errorf("save plan: %w", err)
			}

			if flagJSON {
				data, err := rpt.JSON()
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			rpt.PrintPlan(os.Stdout)
			fmt.Println(rpt.Summary())
			return nil
		},
	}

	cmd.Flags().StringVar(&flagPolicy, "policy", "", "Scoring policy (deadline, value, hybrid)")
	cmd.Flags().StringVar(&flagTimeout, "timeout", "2m", "Resolve timeout")

	return cmd
}

func riskCmd() *cobra.Command {
	var flagBuffer int

	cmd := &cobra.Command{
		Use:   "risk",
		Short: "Classify delivery risk per task from the saved plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !store.PlanExists() {
				return fmt.Errorf("no saved plan (run 'animtycoon resolve' first)")
			}
			pf, err := store.LoadPlan()
			if err != nil {
				return err
			}

			g, err := workflow.New(pf.Tasks)
			if err != nil {
				return fmt.Errorf("rebuild workflow: %w", err)
			}

			rep := risk.Evaluate(g, pf.Plan, risk.Config{BufferHigh: flagBuffer})

			if flagJSON {
				return outputJSON(rep)
			}

			rpt := report.New(pf.Plan, g, nil, nil)
			rpt.PrintRisk(os.Stdout, rep)
			return nil
		},
	}

	cmd.Flags().IntVar(&flagBuffer, "buffer", 0, "Slack threshold for on-track (default 2)")

	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the saved plan's allocations as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !store.PlanExists() {
				return fmt.Errorf("no saved plan (run 'animtycoon resolve' first)")
			}
			pf, err := store.LoadPlan()
			if err != nil {
				return err
			}

			g, err := workflow.New(pf.Tasks)
			if err != nil {
				return fmt.Errorf("rebuild workflow: %w", err)
			}

			// Dates come from the calendar the plan was resolved against;
			// --calendar overrides it explicitly.
			rules := pf.Calendar
			if flagCalendar != "" {
				rules, err = store.LoadCalendar(flagCalendar)
				if err != nil {
					return err
				}
			}
			cal := calendar.New(rules)

			rpt := report.New(pf.Plan, g, cal, nil)

			if flagOutput != "" {
				f, err := os.Create(flagOutput)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer f.Close()
				if err := rpt.WriteCSV(f); err != nil {
					return err
				}
				fmt.Printf("%s Wrote %s allocations to %s\n",
					ui.Green("✓"), ui.Bold(len(pf.Plan.Allocations)), ui.Dim(flagOutput))
				return nil
			}

			return rpt.WriteCSV(os.Stdout)
		},
	}

	cmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func cleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove the saved plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := store.Clean(); err != nil {
				return err
			}
			fmt.Printf("%s Removed saved plan state.\n", ui.Dim("🧹"))
			return nil
		},
	}
}

// --- Output helpers ---

func outputJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
