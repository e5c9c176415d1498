package optimizer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/carloswilll/dashboard-cartolaFC2025/internal/models"
	"github.com/carloswilll/dashboard-cartolaFC2025/internal/roles"
	"github.com/carloswilll/dashboard-cartolaFC2025/pkg/logger"
	"github.com/carloswilll/dashboard-cartolaFC2025/pkg/solver"
)

// ExactOptimizer solves roster selection exactly through an injected
// solver. The captain is always the highest valued selected player, so the
// search walks candidates in value order, fixes each as captain and solves
// a selection-only binary program over the players ranked below it.
type ExactOptimizer struct {
	solver    solver.Solver
	presolve  bool
	warmStart bool
	timeLimit time.Duration
	logger    *logrus.Entry
}

type ExactOption func(*ExactOptimizer)

// WithoutPresolve keeps every candidate in the model.
func WithoutPresolve() ExactOption {
	return func(e *ExactOptimizer) { e.presolve = false }
}

// WithoutWarmStart skips seeding the search with the heuristic roster.
func WithoutWarmStart() ExactOption {
	return func(e *ExactOptimizer) { e.warmStart = false }
}

// WithTimeLimit bounds a whole optimization. When it expires the best roster
// found so far is returned with Optimal unset.
func WithTimeLimit(d time.Duration) ExactOption {
	return func(e *ExactOptimizer) {
		if d > 0 {
			e.timeLimit = d
		}
	}
}

func NewExactOptimizer(s solver.Solver, opts ...ExactOption) *ExactOptimizer {
	e := &ExactOptimizer{
		solver:    s,
		presolve:  true,
		warmStart: true,
		logger:    logger.WithService("exact-optimizer"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// incumbent is the best full roster known, as pool indices.
type incumbent struct {
	picked  []int
	captain int
	value   float64
	found   bool
}

// Optimize returns the optimal roster, an empty result flagged Infeasible
// when no roster satisfies the constraints, or ErrSolverUnavailable when
// the solver itself fails.
func (e *ExactOptimizer) Optimize(ctx context.Context, players []models.ScoredPlayer, c Constraints) (res Result, err error) {
	if len(players) == 0 {
		return emptyResult(StrategyExact), nil
	}
	if e.solver == nil {
		return Result{}, fmt.Errorf("%w: no solver configured", ErrSolverUnavailable)
	}

	candidates := e.candidates(players, c)
	if len(candidates) == 0 {
		infeasible := emptyResult(StrategyExact)
		infeasible.Infeasible = true
		return infeasible, nil
	}

	if e.timeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeLimit)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			res = Result{}
			err = fmt.Errorf("%w: solver panicked: %v", ErrSolverUnavailable, r)
		}
	}()

	order := rankByValue(players, candidates)
	var best incumbent
	if e.warmStart {
		best = e.seed(players, candidates, c)
	}

	limited := false
	solved, pruned := 0, 0
	for r, k := range order {
		bound, ok := captainBound(players, order[r:], c)
		if !ok || (best.found && bound <= best.value+boundTol) {
			pruned = len(order) - r
			break
		}
		if ctx.Err() != nil {
			limited = true
			break
		}

		sub := buildSubproblem(players, k, order[r+1:], c)
		if sub == nil {
			continue
		}
		captainValue := 2 * players[k].ExpectedValue
		if sub.problem == nil {
			if !best.found || captainValue > best.value {
				best = incumbent{picked: []int{k}, captain: k, value: captainValue, found: true}
			}
			continue
		}
		if best.found {
			cutoff := best.value - captainValue
			sub.problem.Cutoff = &cutoff
		}

		assignment, serr := e.solver.Solve(ctx, sub.problem)
		solved++
		switch {
		case errors.Is(serr, solver.ErrLimitReached):
			limited = true
			continue
		case serr != nil:
			return Result{}, fmt.Errorf("%w: %v", ErrSolverUnavailable, serr)
		case assignment == nil:
			return Result{}, fmt.Errorf("%w: solver returned no assignment", ErrSolverUnavailable)
		}

		if assignment.Status == solver.Feasible {
			limited = true
		}
		if assignment.Status == solver.Infeasible {
			continue
		}

		picked := []int{k}
		value := captainValue
		for v, idx := range sub.vars {
			if assignment.IsSet(v) {
				picked = append(picked, idx)
				value += players[idx].ExpectedValue
			}
		}
		if !best.found || value > best.value {
			best = incumbent{picked: picked, captain: k, value: value, found: true}
		}
	}

	e.logger.WithFields(logrus.Fields{
		"pool":        len(players),
		"candidates":  len(candidates),
		"subproblems": solved,
		"pruned":      pruned,
		"limited":     limited,
	}).Debug("Exact optimization finished")

	if !best.found {
		if limited {
			return Result{}, fmt.Errorf("%w: %v", ErrSolverUnavailable, solver.ErrLimitReached)
		}
		infeasible := emptyResult(StrategyExact)
		infeasible.Infeasible = true
		return infeasible, nil
	}

	sort.Ints(best.picked)
	res = buildResult(players, best.picked, best.captain, StrategyExact)
	res.Optimal = !limited
	return res, nil
}

const boundTol = 1e-9

// rankByValue orders candidates by expected value, ties by pool index.
func rankByValue(players []models.ScoredPlayer, candidates []int) []int {
	order := append([]int(nil), candidates...)
	sort.SliceStable(order, func(i, j int) bool {
		a, b := players[order[i]], players[order[j]]
		if a.ExpectedValue != b.ExpectedValue {
			return a.ExpectedValue > b.ExpectedValue
		}
		return order[i] < order[j]
	})
	return order
}

// captainBound is the value of the roster that takes the top players of
// every role from ranked, captained by ranked[0], ignoring budget and
// caps. It never increases along the ranking, and ok is false once some
// role can no longer be filled.
func captainBound(players []models.ScoredPlayer, ranked []int, c Constraints) (float64, bool) {
	need := make(map[roles.Role]int, len(c.Roles()))
	missing := 0
	for _, role := range c.Roles() {
		need[role] = c.Quota(role)
		missing += c.Quota(role)
	}

	bound := players[ranked[0]].ExpectedValue
	for _, idx := range ranked {
		if missing == 0 {
			break
		}
		p := players[idx]
		if need[p.Role] > 0 {
			need[p.Role]--
			missing--
			bound += p.ExpectedValue
		}
	}
	return bound, missing == 0
}

// subproblem selects the rest of a roster around a fixed captain. vars maps
// problem variables to pool indices. A nil problem means the captain alone
// fills the formation.
type subproblem struct {
	problem *solver.Problem
	vars    []int
}

// buildSubproblem fixes captain k and returns nil when no roster around it
// can exist.
func buildSubproblem(players []models.ScoredPlayer, k int, rest []int, c Constraints) *subproblem {
	captain := players[k]
	budget := c.Budget() - captain.Price
	if budget < -priceTolerance {
		return nil
	}
	clubCap := c.MaxPerGroup() - 1

	need := make(map[roles.Role]int, len(c.Roles()))
	size := 0
	for _, role := range c.Roles() {
		q := c.Quota(role)
		if role == captain.Role {
			q--
		}
		if q > 0 {
			need[role] = q
			size += q
		}
	}
	if size == 0 {
		return &subproblem{}
	}

	var vars []int
	for _, idx := range rest {
		p := players[idx]
		if need[p.Role] == 0 || p.Price > budget+priceTolerance {
			continue
		}
		if p.Club == captain.Club && clubCap == 0 {
			continue
		}
		vars = append(vars, idx)
	}

	sub := &subproblem{vars: vars}
	p := &solver.Problem{
		NumVars:   len(vars),
		Objective: make([]float64, len(vars)),
		Names:     make([]string, len(vars)),
	}

	var budgetRow []solver.Term
	perRole := make(map[roles.Role][]solver.Term)
	perGroup := make(map[string][]solver.Term)
	for v, idx := range vars {
		pl := players[idx]
		p.Objective[v] = pl.ExpectedValue
		p.Names[v] = fmt.Sprintf("x_%d", pl.ID)
		if pl.Price != 0 {
			budgetRow = append(budgetRow, solver.Term{Var: v, Coef: pl.Price})
		}
		perRole[pl.Role] = append(perRole[pl.Role], solver.Term{Var: v, Coef: 1})
		perGroup[pl.Club] = append(perGroup[pl.Club], solver.Term{Var: v, Coef: 1})
	}

	for _, role := range c.Roles() {
		if need[role] == 0 {
			continue
		}
		if len(perRole[role]) < need[role] {
			return nil
		}
		p.AddConstraint("role_"+role.Key(), perRole[role], solver.Equal, float64(need[role]))
	}
	if len(budgetRow) > 0 {
		p.AddConstraint("budget", budgetRow, solver.LessEqual, math.Max(budget, 0))
	}

	groups := make([]string, 0, len(perGroup))
	for g := range perGroup {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	for _, g := range groups {
		limit := c.MaxPerGroup()
		if g == captain.Club {
			limit = clubCap
		}
		if len(perGroup[g]) <= limit {
			continue
		}
		p.AddConstraint("group_"+g, perGroup[g], solver.LessEqual, float64(limit))
	}

	sub.problem = p
	return sub
}

// candidates lists pool indices that can appear in some feasible roster.
// With presolve on, a player is also dropped when enough strictly better
// players of the same role exist that any roster using it can swap it out.
func (e *ExactOptimizer) candidates(players []models.ScoredPlayer, c Constraints) []int {
	byRole := make(map[roles.Role][]int)
	seen := make(map[int64]bool, len(players))
	for i, p := range players {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		if p.Price < 0 || p.Price > c.Budget()+priceTolerance || c.Quota(p.Role) == 0 {
			continue
		}
		byRole[p.Role] = append(byRole[p.Role], i)
	}

	var out []int
	for _, role := range c.Roles() {
		pool := byRole[role]
		if !e.presolve {
			out = append(out, pool...)
			continue
		}
		for _, idx := range pool {
			if !dominated(players, pool, idx, c.Quota(role), c) {
				out = append(out, idx)
			}
		}
	}
	sort.Ints(out)
	return out
}

// dominates reports whether q is at least as valuable and no more
// expensive than p, with a strict total order breaking exact ties.
func dominates(players []models.ScoredPlayer, q, p int) bool {
	a, b := players[q], players[p]
	if a.ExpectedValue < b.ExpectedValue || a.Price > b.Price {
		return false
	}
	return a.ExpectedValue > b.ExpectedValue || a.Price < b.Price || q < p
}

// dominated applies the swap argument: in a full roster holding p, at most
// quota-1 dominators are selected and at most (size-1)/cap other groups are
// full, so p can be replaced whenever its dominators outnumber what those
// can block.
func dominated(players []models.ScoredPlayer, pool []int, p, quota int, c Constraints) bool {
	perGroup := make(map[string]int)
	total := 0
	for _, q := range pool {
		if q == p || !dominates(players, q, p) {
			continue
		}
		total++
		if players[q].Club != players[p].Club {
			perGroup[players[q].Club]++
		}
	}
	if total < quota {
		return false
	}

	counts := make([]int, 0, len(perGroup))
	for _, n := range perGroup {
		counts = append(counts, n)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(counts)))
	fullGroups := (c.RosterSize() - 1) / c.MaxPerGroup()
	blocked := quota - 1
	for i := 0; i < fullGroups && i < len(counts); i++ {
		blocked += counts[i]
	}
	return total > blocked
}

// seed is the heuristic roster over the candidates when it fills the
// formation; its value is the first incumbent.
func (e *ExactOptimizer) seed(players []models.ScoredPlayer, candidates []int, c Constraints) incumbent {
	pool := make([]models.ScoredPlayer, len(candidates))
	for k, idx := range candidates {
		pool[k] = players[idx]
	}
	h := &HeuristicOptimizer{logger: e.logger}
	picked, captain := h.selectRoster(pool, c)
	if len(picked) != c.RosterSize() || captain < 0 {
		return incumbent{}
	}

	seeded := incumbent{captain: candidates[captain], found: true}
	top := math.Inf(-1)
	for _, k := range picked {
		idx := candidates[k]
		seeded.picked = append(seeded.picked, idx)
		seeded.value += players[idx].ExpectedValue
		top = math.Max(top, players[idx].ExpectedValue)
	}
	seeded.value += top
	return seeded
}
