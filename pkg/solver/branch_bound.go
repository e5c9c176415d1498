package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/carloswilll/dashboard-cartolaFC2025/pkg/logger"
)

const (
	DefaultNodeLimit = 20000
	DefaultTimeLimit = 10 * time.Second

	integralityTol = 1e-6
	feasibilityTol = 1e-6
	simplexTol     = 1e-10
)

// BranchAndBound is a depth-first branch-and-bound search over binary
// variables. Every node is tightened by bound propagation and then bounded
// by the LP relaxation solved with gonum's simplex.
type BranchAndBound struct {
	NodeLimit int
	TimeLimit time.Duration
	logger    *logrus.Entry
}

type Option func(*BranchAndBound)

func WithNodeLimit(n int) Option {
	return func(b *BranchAndBound) {
		if n > 0 {
			b.NodeLimit = n
		}
	}
}

func WithTimeLimit(d time.Duration) Option {
	return func(b *BranchAndBound) {
		if d > 0 {
			b.TimeLimit = d
		}
	}
}

func WithLogger(entry *logrus.Entry) Option {
	return func(b *BranchAndBound) {
		if entry != nil {
			b.logger = entry
		}
	}
}

func NewBranchAndBound(opts ...Option) *BranchAndBound {
	b := &BranchAndBound{
		NodeLimit: DefaultNodeLimit,
		TimeLimit: DefaultTimeLimit,
		logger:    logger.WithService("solver").WithField("component", "branch_and_bound"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type search struct {
	ctx       context.Context
	p         *Problem
	deadline  time.Time
	nodeLimit int

	nodes   int
	limited bool

	best      []float64
	bestObj   float64
	hasBest   bool
	hasCutoff bool
}

// Solve runs the search. When a limit stops it the best incumbent is
// returned with status Feasible, or ErrLimitReached if there is none. A
// context deadline counts as a limit; cancellation is an error. With a
// Cutoff set, Infeasible means nothing beats the cutoff.
func (b *BranchAndBound) Solve(ctx context.Context, p *Problem) (*Assignment, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	s := &search{
		ctx:       ctx,
		p:         p,
		nodeLimit: b.NodeLimit,
	}
	if b.TimeLimit > 0 {
		s.deadline = start.Add(b.TimeLimit)
	}
	if d, ok := ctx.Deadline(); ok && (s.deadline.IsZero() || d.Before(s.deadline)) {
		s.deadline = d
	}
	if p.Cutoff != nil {
		s.bestObj = *p.Cutoff
		s.hasCutoff = true
	}
	if p.Hint != nil && p.Feasible(p.Hint, feasibilityTol) {
		if v := p.Value(p.Hint); !s.hasCutoff || v > s.bestObj {
			s.best = append([]float64(nil), p.Hint...)
			s.bestObj = v
			s.hasBest = true
		}
	}

	fixed := make([]int8, p.NumVars)
	for i := range fixed {
		fixed[i] = -1
	}
	if err := s.branch(fixed); err != nil {
		return nil, err
	}

	result := &Assignment{Nodes: s.nodes}
	switch {
	case s.hasBest && !s.limited:
		result.Status = Optimal
	case s.hasBest:
		result.Status = Feasible
	case s.limited:
		return nil, fmt.Errorf("%w after %d nodes", ErrLimitReached, s.nodes)
	default:
		result.Status = Infeasible
	}
	if s.hasBest {
		result.Values = s.best
		result.Objective = s.bestObj
	}

	b.logger.WithFields(logrus.Fields{
		"variables":   p.NumVars,
		"constraints": len(p.Constraints),
		"nodes":       s.nodes,
		"status":      result.Status.String(),
		"objective":   result.Objective,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Branch and bound finished")

	return result, nil
}

func (s *search) branch(fixed []int8) error {
	if s.limited {
		return nil
	}
	if err := s.ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.limited = true
			return nil
		}
		return err
	}
	if s.nodes >= s.nodeLimit || (!s.deadline.IsZero() && time.Now().After(s.deadline)) {
		s.limited = true
		return nil
	}
	s.nodes++

	local := append([]int8(nil), fixed...)
	if !s.propagate(local) {
		return nil
	}

	x, bound, feasible, err := s.relax(local)
	if err != nil {
		return err
	}
	if !feasible {
		return nil
	}
	if (s.hasBest || s.hasCutoff) && bound <= s.bestObj+integralityTol {
		return nil
	}

	j := mostFractional(x, local)
	if j < 0 {
		s.offer(x, local)
		return nil
	}

	// the side the relaxation leans towards first
	order := []int8{1, 0}
	if x[j] < 0.5 {
		order = []int8{0, 1}
	}
	for _, v := range order {
		local[j] = v
		if err := s.branch(local); err != nil {
			return err
		}
	}
	return nil
}

func (s *search) offer(x []float64, fixed []int8) {
	candidate := make([]float64, len(x))
	for i := range x {
		if fixed[i] >= 0 {
			candidate[i] = float64(fixed[i])
		} else {
			candidate[i] = math.Round(x[i])
		}
	}
	if !s.p.Feasible(candidate, 1e-5) {
		return
	}
	obj := s.p.Value(candidate)
	if (!s.hasBest && !s.hasCutoff) || obj > s.bestObj {
		s.best = candidate
		s.bestObj = obj
		s.hasBest = true
	}
}

// propagate fixes variables whose value is forced by a single row and
// reports false when some row cannot be satisfied.
func (s *search) propagate(fixed []int8) bool {
	for changed := true; changed; {
		changed = false
		for _, c := range s.p.Constraints {
			rhs := c.RHS
			var minAct, maxAct float64
			for _, t := range c.Terms {
				if fixed[t.Var] >= 0 {
					rhs -= t.Coef * float64(fixed[t.Var])
					continue
				}
				minAct += math.Min(0, t.Coef)
				maxAct += math.Max(0, t.Coef)
			}
			if !rangeAllowed(c.Sense, minAct, maxAct, rhs) {
				return false
			}
			for _, t := range c.Terms {
				if fixed[t.Var] >= 0 || t.Coef == 0 {
					continue
				}
				lo0 := minAct - math.Min(0, t.Coef)
				hi0 := maxAct - math.Max(0, t.Coef)
				zeroOK := rangeAllowed(c.Sense, lo0, hi0, rhs)
				oneOK := rangeAllowed(c.Sense, lo0+t.Coef, hi0+t.Coef, rhs)
				switch {
				case !zeroOK && !oneOK:
					return false
				case !oneOK:
					fixed[t.Var] = 0
					changed = true
				case !zeroOK:
					fixed[t.Var] = 1
					changed = true
				}
				if changed {
					break
				}
			}
			if changed {
				break
			}
		}
	}
	return true
}

func rangeAllowed(sense Sense, lo, hi, rhs float64) bool {
	if lo > rhs+feasibilityTol {
		return false
	}
	if sense == Equal && hi < rhs-feasibilityTol {
		return false
	}
	return true
}

// relax solves the LP relaxation over the free variables in standard form
// (one slack per inequality) and returns the full point and its objective.
func (s *search) relax(fixed []int8) (x []float64, bound float64, feasible bool, err error) {
	p := s.p
	column := make([]int, p.NumVars)
	var free []int
	var constant float64
	for i := range fixed {
		if fixed[i] >= 0 {
			column[i] = -1
			constant += p.Objective[i] * float64(fixed[i])
			continue
		}
		column[i] = len(free)
		free = append(free, i)
	}

	x = make([]float64, p.NumVars)
	for i := range fixed {
		if fixed[i] >= 0 {
			x[i] = float64(fixed[i])
		}
	}
	if len(free) == 0 {
		return x, constant, true, nil
	}

	type row struct {
		coefs []float64
		sense Sense
		rhs   float64
	}
	var rows []row
	bounded := make([]bool, len(free))

	for _, c := range p.Constraints {
		r := row{coefs: make([]float64, len(free)), sense: c.Sense, rhs: c.RHS}
		nonZero := false
		for _, t := range c.Terms {
			if fixed[t.Var] >= 0 {
				r.rhs -= t.Coef * float64(fixed[t.Var])
				continue
			}
			r.coefs[column[t.Var]] += t.Coef
		}
		nonNegative := true
		for _, a := range r.coefs {
			if a != 0 {
				nonZero = true
			}
			if a < 0 {
				nonNegative = false
			}
		}
		if !nonZero {
			if !rangeAllowed(r.sense, 0, 0, r.rhs) {
				return nil, 0, false, nil
			}
			continue
		}
		if nonNegative && r.rhs >= 0 {
			for j, a := range r.coefs {
				if a > 0 && r.rhs/a <= 1+feasibilityTol {
					bounded[j] = true
				}
			}
		}
		rows = append(rows, r)
	}
	for j := range free {
		if bounded[j] {
			continue
		}
		unit := make([]float64, len(free))
		unit[j] = 1
		rows = append(rows, row{coefs: unit, sense: LessEqual, rhs: 1})
	}

	slacks := 0
	for _, r := range rows {
		if r.sense == LessEqual {
			slacks++
		}
	}

	cols := len(free) + slacks
	A := mat.NewDense(len(rows), cols, nil)
	b := make([]float64, len(rows))
	slack := len(free)
	for i, r := range rows {
		sign := 1.0
		if r.rhs < 0 {
			sign = -1.0
		}
		for j, a := range r.coefs {
			if a != 0 {
				A.Set(i, j, sign*a)
			}
		}
		if r.sense == LessEqual {
			A.Set(i, slack, sign)
			slack++
		}
		b[i] = sign * r.rhs
	}

	c := make([]float64, cols)
	for j, v := range free {
		c[j] = -p.Objective[v]
	}

	optF, optX, err := simplex(c, A, b)
	if err != nil {
		if errors.Is(err, lp.ErrInfeasible) {
			return nil, 0, false, nil
		}
		return nil, 0, false, fmt.Errorf("lp relaxation: %w", err)
	}
	for j, v := range free {
		x[v] = optX[j]
	}
	return x, constant - optF, true, nil
}

func simplex(c []float64, A mat.Matrix, b []float64) (optF float64, optX []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("simplex panic: %v", r)
		}
	}()
	return lp.Simplex(c, A, b, simplexTol, nil)
}

func mostFractional(x []float64, fixed []int8) int {
	best := -1
	bestDist := math.Inf(1)
	for i, v := range x {
		if fixed[i] >= 0 {
			continue
		}
		frac := v - math.Floor(v)
		if frac <= integralityTol || frac >= 1-integralityTol {
			continue
		}
		if d := math.Abs(frac - 0.5); d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}
