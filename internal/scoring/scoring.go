// Package scoring maps tasks to the integer cost weights the resolver uses
// on task-to-resource edges. Lower weight means served first.
package scoring

import (
	"fmt"

	"github.com/galvarez-illu/AnimTycoon/internal/workflow"
)

// Policy selects one of a closed set of scoring functions. New policies are
// added as new constants, not by swapping behavior at runtime.
type Policy string

const (
	DeadlineWeighted Policy = "deadline"
	ValueWeighted    Policy = "value"
	Hybrid           Policy = "hybrid"
)

// Coefficients are the scoring knobs. Weight grows with slack and shrinks
// with value and fan-out, so urgent, valuable, heavily-depended-on tasks get
// the cheaper edges.
type Coefficients struct {
	Base         int // starting weight, keeps results positive
	SlackFactor  int // added per slot of slack
	ValueFactor  int // subtracted per unit of declared value
	FanOutFactor int // subtracted per direct successor
}

// defaults returns the preset coefficients for a policy.
func defaults(p Policy) Coefficients {
	switch p {
	case DeadlineWeighted:
		return Coefficients{Base: 1000, SlackFactor: 10}
	case ValueWeighted:
		return Coefficients{Base: 1000, ValueFactor: 10}
	default: // Hybrid
		return Coefficients{Base: 1000, SlackFactor: 10, ValueFactor: 5, FanOutFactor: 3}
	}
}

// Scorer computes per-task weights for one resolve cycle. It reads a graph
// snapshot once; weights are never mutated mid-solve.
type Scorer struct {
	policy Policy
	coeffs Coefficients
}

// New creates a Scorer. Zero-valued coefficients fall back to the policy's
// preset.
func New(policy Policy, coeffs Coefficients) (*Scorer, error) {
	switch policy {
	case "", Hybrid:
		policy = Hybrid
	case DeadlineWeighted, ValueWeighted:
	default:
		return nil, fmt.Errorf("unknown scoring policy %q", policy)
	}
	if coeffs == (Coefficients{}) {
		coeffs = defaults(policy)
	}
	if coeffs.Base <= 0 {
		coeffs.Base = defaults(policy).Base
	}
	return &Scorer{policy: policy, coeffs: coeffs}, nil
}

// Policy returns the active policy.
func (s *Scorer) Policy() Policy { return s.policy }

// Weight returns the cost weight for a single task given its slack (deadline
// minus earliest feasible finish) and direct-successor count. The result is
// always a strictly positive integer; zero-cost edges are reserved for the
// source and sink legs of the network.
func (s *Scorer) Weight(slack, value, fanOut int) int {
	w := s.coeffs.Base
	w += s.coeffs.SlackFactor * slack
	w -= s.coeffs.ValueFactor * value
	w -= s.coeffs.FanOutFactor * fanOut
	if w < 1 {
		w = 1
	}
	return w
}

// Weights computes the weight for every task in the graph from the earliest
// start estimates.
func (s *Scorer) Weights(g *workflow.Graph, earliestStarts map[string]int) map[string]int {
	out := make(map[string]int, g.TaskCount())
	for id, t := range g.Tasks {
		slack := t.Deadline - (earliestStarts[id] + t.Duration - 1)
		out[id] = s.Weight(slack, t.Value, g.FanOut(id))
	}
	return out
}
