// Package solver provides a small binary integer programming capability:
// the problem model, a branch-and-bound implementation on top of gonum's
// simplex, and a startup probe describing whether the capability works.
package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidProblem = errors.New("invalid problem")
	ErrLimitReached   = errors.New("search limit reached without a feasible solution")
)

type Sense int

const (
	LessEqual Sense = iota
	Equal
)

func (s Sense) String() string {
	if s == Equal {
		return "="
	}
	return "<="
}

// Term is one coefficient of a linear row.
type Term struct {
	Var  int
	Coef float64
}

type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Problem maximizes Objective·x over binary x subject to Constraints.
type Problem struct {
	NumVars     int
	Objective   []float64
	Constraints []Constraint
	Names       []string

	// Hint is an optional 0/1 starting point. It is used as the first
	// incumbent only when it satisfies every constraint.
	Hint []float64

	// Cutoff, when set, restricts the search to assignments whose
	// objective is strictly greater.
	Cutoff *float64
}

// AddConstraint appends a row and returns its index.
func (p *Problem) AddConstraint(name string, terms []Term, sense Sense, rhs float64) int {
	p.Constraints = append(p.Constraints, Constraint{Name: name, Terms: terms, Sense: sense, RHS: rhs})
	return len(p.Constraints) - 1
}

func (p *Problem) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil problem", ErrInvalidProblem)
	}
	if p.NumVars <= 0 {
		return fmt.Errorf("%w: no variables", ErrInvalidProblem)
	}
	if len(p.Objective) != p.NumVars {
		return fmt.Errorf("%w: objective has %d coefficients for %d variables", ErrInvalidProblem, len(p.Objective), p.NumVars)
	}
	for i, v := range p.Objective {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: objective coefficient %d is not finite", ErrInvalidProblem, i)
		}
	}
	for ci, c := range p.Constraints {
		if math.IsNaN(c.RHS) || math.IsInf(c.RHS, 0) {
			return fmt.Errorf("%w: constraint %q has non-finite rhs", ErrInvalidProblem, c.Name)
		}
		for _, t := range c.Terms {
			if t.Var < 0 || t.Var >= p.NumVars {
				return fmt.Errorf("%w: constraint %d references variable %d", ErrInvalidProblem, ci, t.Var)
			}
			if math.IsNaN(t.Coef) || math.IsInf(t.Coef, 0) {
				return fmt.Errorf("%w: constraint %q has non-finite coefficient", ErrInvalidProblem, c.Name)
			}
		}
	}
	if p.Cutoff != nil && (math.IsNaN(*p.Cutoff) || math.IsInf(*p.Cutoff, 0)) {
		return fmt.Errorf("%w: cutoff is not finite", ErrInvalidProblem)
	}
	if p.Hint != nil && len(p.Hint) != p.NumVars {
		return fmt.Errorf("%w: hint has %d values for %d variables", ErrInvalidProblem, len(p.Hint), p.NumVars)
	}
	return nil
}

// Feasible reports whether a 0/1 vector satisfies every constraint.
func (p *Problem) Feasible(x []float64, tol float64) bool {
	if len(x) != p.NumVars {
		return false
	}
	for _, v := range x {
		if v != 0 && v != 1 {
			return false
		}
	}
	for _, c := range p.Constraints {
		var lhs float64
		for _, t := range c.Terms {
			lhs += t.Coef * x[t.Var]
		}
		switch c.Sense {
		case Equal:
			if math.Abs(lhs-c.RHS) > tol {
				return false
			}
		default:
			if lhs > c.RHS+tol {
				return false
			}
		}
	}
	return true
}

// Value evaluates the objective at x.
func (p *Problem) Value(x []float64) float64 {
	var total float64
	for i, v := range x {
		total += p.Objective[i] * v
	}
	return total
}

type Status int

const (
	// Optimal means the search space was exhausted.
	Optimal Status = iota + 1
	// Feasible means a limit stopped the search with an incumbent in hand.
	Feasible
	Infeasible
)

func (s Status) String() string {
	switch s {
	case Optimal:
		return "optimal"
	case Feasible:
		return "feasible"
	case Infeasible:
		return "infeasible"
	default:
		return "unknown"
	}
}

type Assignment struct {
	Status    Status
	Values    []float64
	Objective float64
	Nodes     int
}

// IsSet reports whether binary variable i is 1.
func (a *Assignment) IsSet(i int) bool {
	return a != nil && i >= 0 && i < len(a.Values) && a.Values[i] > 0.5
}

// Solver solves binary maximization problems. Infeasibility is reported in
// the Assignment status; errors mean the solver itself failed.
type Solver interface {
	Solve(ctx context.Context, p *Problem) (*Assignment, error)
}
