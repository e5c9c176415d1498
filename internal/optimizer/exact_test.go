package optimizer

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/carloswilll/dashboard-cartolaFC2025/internal/models"
	"github.com/carloswilll/dashboard-cartolaFC2025/internal/roles"
	"github.com/carloswilll/dashboard-cartolaFC2025/pkg/solver"
)

func keepers() []models.ScoredPlayer {
	return []models.ScoredPlayer{
		sp(1, roles.Goalkeeper, "A", 5, 4),
		sp(2, roles.Goalkeeper, "B", 6, 5),
		sp(3, roles.Goalkeeper, "C", 7, 6),
		sp(4, roles.Goalkeeper, "D", 8, 7),
	}
}

func TestExact_PicksBestKeeperAsCaptain(t *testing.T) {
	c := mustConstraints(t, 100, map[string]int{"keeper": 1}, 3)

	res, err := NewExactOptimizer(solver.NewBranchAndBound()).Optimize(context.Background(), keepers(), c)
	require.NoError(t, err)

	assert.Equal(t, []int64{4}, selectedIDs(res))
	require.NotNil(t, res.Captain)
	assert.Equal(t, int64(4), res.Captain.ID)
	assert.InDelta(t, 8.0, res.TotalPrice, 1e-9)
	assert.InDelta(t, 14.0, res.TotalExpectedValue, 1e-9)
	assert.Equal(t, StrategyExact, res.Strategy)
	assert.False(t, res.Infeasible)
}

func TestExact_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	formation := map[string]int{"GOL": 1, "DEF": 2, "ATA": 1}

	for trial := 0; trial < 15; trial++ {
		pool := randomPool(rng, 12, 3)
		c := mustConstraints(t, 15+rng.Float64()*40, formation, 1+rng.Intn(2))
		best, found := bruteForceBest(pool, c)

		for _, opts := range [][]ExactOption{nil, {WithoutPresolve(), WithoutWarmStart()}} {
			res, err := NewExactOptimizer(solver.NewBranchAndBound(), opts...).Optimize(context.Background(), pool, c)
			require.NoError(t, err, "trial %d", trial)

			if !found {
				assert.True(t, res.Infeasible, "trial %d", trial)
				assert.Empty(t, res.Selected)
				continue
			}
			require.False(t, res.Infeasible, "trial %d", trial)
			assert.InDelta(t, best, res.TotalExpectedValue, 1e-6, "trial %d", trial)
			assert.NoError(t, ValidateResult(res, c, true))
		}
	}
}

func TestExact_Infeasible(t *testing.T) {
	pool := []models.ScoredPlayer{
		sp(1, roles.Forward, "A", 30, 5),
		sp(2, roles.Forward, "B", 30, 4),
	}
	c := mustConstraints(t, 50, map[string]int{"ATA": 2}, 3)

	res, err := NewExactOptimizer(solver.NewBranchAndBound()).Optimize(context.Background(), pool, c)
	require.NoError(t, err)
	assert.True(t, res.Infeasible)
	assert.Empty(t, res.Selected)
	assert.Nil(t, res.Captain)
}

func TestExact_MissingRoleIsInfeasible(t *testing.T) {
	c := mustConstraints(t, 100, map[string]int{"GOL": 1, "TEC": 1}, 3)

	res, err := NewExactOptimizer(solver.NewBranchAndBound()).Optimize(context.Background(), keepers(), c)
	require.NoError(t, err)
	assert.True(t, res.Infeasible)
}

func TestExact_ZeroBudgetSelectsNothing(t *testing.T) {
	c := Constraints{budget: 0, formation: map[roles.Role]int{roles.Goalkeeper: 1}, maxPerGroup: 3}

	res, err := NewExactOptimizer(solver.NewBranchAndBound()).Optimize(context.Background(), keepers(), c)
	require.NoError(t, err)
	assert.Empty(t, res.Selected)
	assert.Nil(t, res.Captain)
}

func TestExact_EmptyPool(t *testing.T) {
	c := mustConstraints(t, 100, map[string]int{"GOL": 1}, 3)
	res, err := NewExactOptimizer(new(mockSolver)).Optimize(context.Background(), nil, c)
	require.NoError(t, err)
	assert.Empty(t, res.Selected)
	assert.False(t, res.Infeasible)
}

func TestExact_SolverFailuresAreDistinguishable(t *testing.T) {
	c := mustConstraints(t, 100, squadFormation, 3)

	failing := new(mockSolver)
	failing.On("Solve", mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))
	silent := new(mockSolver)
	silent.On("Solve", mock.Anything, mock.Anything).Return(nil, nil)

	tests := []struct {
		name string
		s    solver.Solver
	}{
		{"nil solver", nil},
		{"solver error", failing},
		{"no assignment", silent},
		{"solver panic", panicSolver{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewExactOptimizer(tt.s, WithoutWarmStart()).Optimize(context.Background(), squad(), c)
			assert.ErrorIs(t, err, ErrSolverUnavailable)
		})
	}
}

func TestExact_LimitReachedWithoutRosterIsAnError(t *testing.T) {
	c := mustConstraints(t, 100, squadFormation, 3)
	s := new(mockSolver)
	s.On("Solve", mock.Anything, mock.Anything).Return(nil, solver.ErrLimitReached)

	_, err := NewExactOptimizer(s, WithoutWarmStart()).Optimize(context.Background(), squad(), c)
	assert.ErrorIs(t, err, ErrSolverUnavailable)
	assert.ErrorIs(t, err, solver.ErrLimitReached)
}

func TestExact_LimitedSearchIsNotOptimal(t *testing.T) {
	// budget 9 forces the best forward to pair with the cheapest keeper
	c := mustConstraints(t, 9, squadFormation, 3)

	proven, err := NewExactOptimizer(solver.NewBranchAndBound(), WithoutWarmStart()).
		Optimize(context.Background(), squad(), c)
	require.NoError(t, err)
	assert.True(t, proven.Optimal)
	assert.Equal(t, []int64{3, 4}, selectedIDs(proven))
	assert.InDelta(t, 21.0, proven.TotalExpectedValue, 1e-9)

	limited, err := NewExactOptimizer(limitedSolver{inner: solver.NewBranchAndBound()}, WithoutWarmStart()).
		Optimize(context.Background(), squad(), c)
	require.NoError(t, err)
	assert.False(t, limited.Optimal)
	assert.Equal(t, StrategyExact, limited.Strategy)
	assert.Equal(t, selectedIDs(proven), selectedIDs(limited))
}

func TestExact_ExpiredTimeLimitKeepsIncumbent(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	pool := randomPool(rng, 60, 6)
	formation, _ := FormationPreset("4-3-3")
	c := mustConstraints(t, 100, formation, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := NewExactOptimizer(solver.NewBranchAndBound()).Optimize(ctx, pool, c)
	require.NoError(t, err)
	assert.False(t, res.Optimal)
	assert.NoError(t, ValidateResult(res, c, true))
}

func TestExact_ProvesOptimalityAtMarketScale(t *testing.T) {
	if testing.Short() {
		t.Skip("market sized search")
	}
	rng := rand.New(rand.NewSource(42))
	pool := randomPool(rng, 700, 20)
	formation, _ := FormationPreset("4-3-3")
	c := mustConstraints(t, 100, formation, 3)

	res, err := NewExactOptimizer(solver.NewBranchAndBound(), WithTimeLimit(time.Minute)).
		Optimize(context.Background(), pool, c)
	require.NoError(t, err)
	require.False(t, res.Infeasible)
	assert.True(t, res.Optimal)
	assert.NoError(t, ValidateResult(res, c, true))

	heuristic, err := NewHeuristicOptimizer().Optimize(context.Background(), pool, c)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.TotalExpectedValue, heuristic.TotalExpectedValue-1e-9)
}

func TestExact_SubproblemShape(t *testing.T) {
	pool := []models.ScoredPlayer{
		sp(1, roles.Goalkeeper, "A", 5, 4),
		sp(2, roles.Forward, "A", 6, 5),
		sp(3, roles.Forward, "A", 7, 6),
		sp(4, roles.Coach, "B", 1, 9),
	}
	c := mustConstraints(t, 100, map[string]int{"GOL": 1, "ATA": 2}, 2)

	var captured []*solver.Problem
	s := new(mockSolver)
	s.On("Solve", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = append(captured, args.Get(1).(*solver.Problem)) }).
		Return(&solver.Assignment{Status: solver.Infeasible}, nil)

	res, err := NewExactOptimizer(s, WithoutPresolve(), WithoutWarmStart()).Optimize(context.Background(), pool, c)
	require.NoError(t, err)
	assert.True(t, res.Infeasible)

	// only player 3 can captain: below player 2 no second forward is left
	require.Len(t, captured, 1)
	p := captured[0]
	assert.Equal(t, 2, p.NumVars)
	assert.Equal(t, []float64{5, 4}, p.Objective)
	assert.Equal(t, []string{"x_2", "x_1"}, p.Names)
	assert.Nil(t, p.Cutoff)

	names := map[string]solver.Constraint{}
	for _, row := range p.Constraints {
		names[row.Name] = row
	}
	assert.Equal(t, solver.LessEqual, names["budget"].Sense)
	assert.Equal(t, 93.0, names["budget"].RHS)
	assert.Equal(t, 1.0, names["role_ATA"].RHS)
	assert.Equal(t, 1.0, names["role_GOL"].RHS)
	// the captain already takes one of club A's two places
	assert.Equal(t, 1.0, names["group_A"].RHS)
}

func TestExact_CutoffFollowsIncumbent(t *testing.T) {
	c := mustConstraints(t, 100, squadFormation, 3)

	var cutoffs []float64
	s := new(mockSolver)
	s.On("Solve", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			p := args.Get(1).(*solver.Problem)
			require.NotNil(t, p.Cutoff)
			cutoffs = append(cutoffs, *p.Cutoff)
		}).
		Return(&solver.Assignment{Status: solver.Infeasible}, nil)

	res, err := NewExactOptimizer(s).Optimize(context.Background(), squad(), c)
	require.NoError(t, err)

	// the seeded roster (keeper 2 and forward 6, 17 points) stands; forward
	// 4 captains for 18 so the rest only has to beat -1
	assert.True(t, res.Optimal)
	assert.Equal(t, []int64{2, 6}, selectedIDs(res))
	require.Len(t, cutoffs, 1)
	assert.InDelta(t, -1.0, cutoffs[0], 1e-9)
}

func TestDominated_KeepsEnoughAlternatives(t *testing.T) {
	pool := []models.ScoredPlayer{
		sp(1, roles.Forward, "A", 5, 9),
		sp(2, roles.Forward, "A", 5, 8),
		sp(3, roles.Forward, "A", 6, 7),
		sp(4, roles.Forward, "B", 9, 9),
	}
	c := mustConstraints(t, 100, map[string]int{"ATA": 2}, 3)

	candidates := NewExactOptimizer(nil).candidates(pool, c)
	// player 3 is beaten by two cheaper clubmates, player 4 by nobody
	assert.Equal(t, []int{0, 1, 3}, candidates)
}

func TestDominated_CrossGroupNeedsMoreThanFullGroups(t *testing.T) {
	// one forward slot, cap 1, roster of 2: one other group can be full
	c := mustConstraints(t, 100, map[string]int{"ATA": 1, "GOL": 1}, 1)
	pool := []models.ScoredPlayer{
		sp(1, roles.Forward, "A", 5, 9),
		sp(2, roles.Forward, "B", 6, 3),
		sp(3, roles.Forward, "C", 5, 8),
	}

	assert.True(t, dominated(pool, []int{0, 1, 2}, 1, 1, c))
	assert.False(t, dominated(pool, []int{0, 1}, 1, 1, c))
}
