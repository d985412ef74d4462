// Package engine coordinates resolve cycles: it owns the workflow, pool,
// and calendar inputs, computes plans against immutable snapshots, discards
// superseded results, and publishes the winning plan atomically.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/galvarez-illu/AnimTycoon/internal/calendar"
	"github.com/galvarez-illu/AnimTycoon/internal/pool"
	"github.com/galvarez-illu/AnimTycoon/internal/resolver"
	"github.com/galvarez-illu/AnimTycoon/internal/risk"
	"github.com/galvarez-illu/AnimTycoon/internal/scoring"
	"github.com/galvarez-illu/AnimTycoon/internal/workflow"
)

var (
	// ErrResolveSuperseded reports that an edit landed while the
	// computation ran, so its result was discarded. Returned by
	// ResolveOnce; the blocking Resolve path retries against the newer
	// snapshot instead of surfacing it.
	ErrResolveSuperseded = errors.New("resolve superseded by a newer edit")
	// ErrResolveTimedOut reports a caller-imposed wall-clock budget expiry.
	// Recoverable: retry with a narrower horizon or fewer tasks.
	ErrResolveTimedOut = errors.New("resolve timed out")
	// ErrNoWorkflow means no workflow has been submitted yet.
	ErrNoWorkflow = errors.New("no workflow submitted")
)

// Config carries the engine's policy surface.
type Config struct {
	Policy       scoring.Policy
	Coefficients scoring.Coefficients
	Risk         risk.Config
	Resolver     resolver.Config
}

// Published pairs a plan with the graph version it was computed from, so
// risk evaluation always matches the plan it describes. Readers holding a
// previous Published value keep seeing a consistent snapshot.
type Published struct {
	Plan  *resolver.Plan
	Graph *workflow.Graph
}

// Engine is safe for concurrent use: many readers of the published plan,
// one active resolve computation at a time.
type Engine struct {
	cfg    Config
	scorer *scoring.Scorer
	cal    *calendar.Calendar

	mu             sync.Mutex // guards graph, pool edits, generation, inflightCancel
	p              *pool.Pool
	graph          *workflow.Graph
	generation     uint64
	planGeneration uint64
	inflightCancel context.CancelFunc

	resolveMu sync.Mutex // serializes resolve computations
	published atomic.Pointer[Published]

	// afterSolve, when set, runs after each solver pass and before the
	// supersede check. Test hook for landing edits mid-resolve.
	afterSolve func()
}

// New creates an Engine over a calendar and resource pool.
func New(cal *calendar.Calendar, p *pool.Pool, cfg Config) (*Engine, error) {
	scorer, err := scoring.New(cfg.Policy, cfg.Coefficients)
	if err != nil {
		return nil, fmt.Errorf("configure scoring: %w", err)
	}
	return &Engine{cfg: cfg, scorer: scorer, cal: cal, p: p}, nil
}

// SubmitWorkflow validates a task list and installs it as the current
// workflow version. Validation failures block submission; nothing reaches
// the resolver. A successful submission invalidates the current plan.
func (e *Engine) SubmitWorkflow(tasks []workflow.Task) error {
	g, err := workflow.New(tasks)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.graph = g
	e.invalidateLocked()
	return nil
}

// AddResource adds or replaces a pool resource and invalidates the plan.
func (e *Engine) AddResource(r pool.Resource) error {
	if err := e.p.Add(r); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.invalidateLocked()
	return nil
}

// RemoveResource removes a pool resource and invalidates the plan.
func (e *Engine) RemoveResource(id string) error {
	if err := e.p.Remove(id); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.invalidateLocked()
	return nil
}

// SetCapacity changes a resource's per-slot capacity and invalidates the
// plan.
func (e *Engine) SetCapacity(id string, capacity int) error {
	if err := e.p.SetCapacity(id, capacity); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.invalidateLocked()
	return nil
}

// invalidateLocked bumps the generation and aborts any in-flight resolve so
// it stops burning CPU on a stale snapshot. Caller holds e.mu.
func (e *Engine) invalidateLocked() {
	e.generation++
	if e.inflightCancel != nil {
		e.inflightCancel()
	}
}

// Valid reports whether the published plan reflects the current inputs.
func (e *Engine) Valid() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.published.Load() != nil && e.planGeneration == e.generation
}

// Plan returns the last published plan and its graph, or nil if none has
// been published. The returned value is an immutable snapshot.
func (e *Engine) Plan() *Published {
	return e.published.Load()
}

// RiskReport evaluates delivery risk for the published plan.
func (e *Engine) RiskReport() (*risk.Report, error) {
	pub := e.published.Load()
	if pub == nil {
		return nil, errors.New("no published plan")
	}
	return risk.Evaluate(pub.Graph, pub.Plan, e.cfg.Risk), nil
}

// SetCalendar replaces the engine's calendar and invalidates the plan.
func (e *Engine) SetCalendar(cal *calendar.Calendar) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cal = cal
	e.invalidateLocked()
}

// Calendar returns the engine's calendar.
func (e *Engine) Calendar() *calendar.Calendar {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cal
}

// Pool returns the engine's resource pool.
func (e *Engine) Pool() *pool.Pool { return e.p }

// Resolve computes a plan synchronously, blocking until the next
// non-superseded result is published or ctx expires. If an edit lands while
// a computation is in flight, the stale result is discarded uncommitted and
// the computation restarts against the newer snapshot.
func (e *Engine) Resolve(ctx context.Context) (*resolver.Plan, error) {
	e.resolveMu.Lock()
	defer e.resolveMu.Unlock()

	for {
		plan, err := e.resolveOnceLocked(ctx)
		if errors.Is(err, ErrResolveSuperseded) {
			// Discard the stale result and recompute against the newer
			// snapshot.
			continue
		}
		return plan, err
	}
}

// ResolveOnce runs a single resolve pass against the current snapshot. If
// an edit lands while the computation is in flight the result is discarded
// uncommitted and ErrResolveSuperseded is returned; the caller decides
// whether to retry. Resolve wraps this in a retry loop.
func (e *Engine) ResolveOnce(ctx context.Context) (*resolver.Plan, error) {
	e.resolveMu.Lock()
	defer e.resolveMu.Unlock()
	return e.resolveOnceLocked(ctx)
}

// resolveOnceLocked does one snapshot/solve/publish cycle. Caller holds
// e.resolveMu.
func (e *Engine) resolveOnceLocked(ctx context.Context) (*resolver.Plan, error) {
	e.mu.Lock()
	if e.graph == nil {
		e.mu.Unlock()
		return nil, ErrNoWorkflow
	}
	gen := e.generation
	g := e.graph
	cal := e.cal
	snap := e.p.Snapshot(cal)
	weights := e.scorer.Weights(g, g.EarliestStarts())
	runCtx, cancel := context.WithCancel(ctx)
	e.inflightCancel = cancel
	e.mu.Unlock()

	plan, err := resolver.Resolve(runCtx, resolver.Input{
		Graph:    g,
		Snapshot: snap,
		Calendar: cal,
		Weights:  weights,
	}, e.cfg.Resolver)
	cancel()
	if e.afterSolve != nil {
		e.afterSolve()
	}

	e.mu.Lock()
	superseded := gen != e.generation
	if !superseded && err == nil {
		// Commit: ledger swap and plan publication are each single
		// atomic replacements; no partial state is ever visible.
		e.p.Commit(snap)
		e.published.Store(&Published{Plan: plan, Graph: g})
		e.planGeneration = gen
		e.inflightCancel = nil
		e.mu.Unlock()
		return plan, nil
	}
	e.inflightCancel = nil
	e.mu.Unlock()

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrResolveTimedOut, ctxErr)
		}
		return nil, ctxErr
	}
	if superseded {
		return nil, ErrResolveSuperseded
	}
	return nil, err
}

// Handle tracks an asynchronous resolve.
type Handle struct {
	done chan struct{}
	plan *resolver.Plan
	err  error
}

// Wait blocks until the resolve finishes and returns its result.
func (h *Handle) Wait() (*resolver.Plan, error) {
	<-h.done
	return h.plan, h.err
}

// Done returns a channel closed when the resolve finishes.
func (h *Handle) Done() <-chan struct{} { return h.done }

// ResolveAsync starts a resolve in the background and returns immediately
// with a handle.
func (e *Engine) ResolveAsync(ctx context.Context) *Handle {
	h := &Handle{done: make(chan struct{})}
	go func() {
		defer close(h.done)
		h.plan, h.err = e.Resolve(ctx)
	}()
	return h
}
