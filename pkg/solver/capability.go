package solver

import (
	"context"
	"fmt"
	"math"
	"time"
)

type Availability int

const (
	Missing Availability = iota
	Available
	Unhealthy
)

func (a Availability) String() string {
	switch a {
	case Available:
		return "available"
	case Unhealthy:
		return "unhealthy"
	default:
		return "missing"
	}
}

// Capability describes whether exact optimization can be attempted. It is
// built once at startup and never mutated.
type Capability struct {
	Solver    Solver
	Status    Availability
	Reason    string
	CheckedAt time.Time
}

func (c Capability) Available() bool {
	return c.Status == Available && c.Solver != nil
}

// Unavailable builds a capability that always routes to the fallback path.
func Unavailable(reason string) Capability {
	return Capability{Status: Missing, Reason: reason, CheckedAt: time.Now()}
}

// probeProblem is a three item knapsack whose optimum picks items 0 and 1.
func probeProblem() *Problem {
	p := &Problem{
		NumVars:   3,
		Objective: []float64{3, 4, 5},
		Names:     []string{"a", "b", "c"},
	}
	p.AddConstraint("capacity", []Term{{0, 2}, {1, 3}, {2, 4}}, LessEqual, 5)
	return p
}

// Probe solves a tiny known problem and reports the result as a tagged
// value instead of an error.
func Probe(ctx context.Context, s Solver) (capability Capability) {
	capability = Capability{Solver: s, CheckedAt: time.Now()}
	if s == nil {
		capability.Status = Missing
		capability.Reason = "no solver configured"
		return capability
	}

	defer func() {
		if r := recover(); r != nil {
			capability.Status = Unhealthy
			capability.Reason = fmt.Sprintf("probe panicked: %v", r)
		}
	}()

	result, err := s.Solve(ctx, probeProblem())
	switch {
	case err != nil:
		capability.Status = Unhealthy
		capability.Reason = err.Error()
	case result == nil || result.Status != Optimal:
		capability.Status = Unhealthy
		capability.Reason = "probe did not reach optimality"
	case math.Abs(result.Objective-7) > 1e-6 || !result.IsSet(0) || !result.IsSet(1) || result.IsSet(2):
		capability.Status = Unhealthy
		capability.Reason = fmt.Sprintf("probe returned wrong optimum %.3f", result.Objective)
	default:
		capability.Status = Available
	}
	return capability
}
