package optimizer

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/carloswilll/dashboard-cartolaFC2025/internal/models"
	"github.com/carloswilll/dashboard-cartolaFC2025/internal/roles"
	"github.com/carloswilll/dashboard-cartolaFC2025/pkg/solver"
)

func availableWith(s solver.Solver) solver.Capability {
	return solver.Capability{Solver: s, Status: solver.Available}
}

func TestFacade_UsesExactWhenAvailable(t *testing.T) {
	rec := &recordingRecorder{}
	f := NewFacade(solver.Probe(context.Background(), solver.NewBranchAndBound()), WithRecorder(rec))
	c := mustConstraints(t, 100, map[string]int{"keeper": 1}, 3)

	res, err := f.Optimize(context.Background(), keepers(), c)
	require.NoError(t, err)

	assert.Equal(t, StrategyExact, res.Strategy)
	assert.Equal(t, []int64{4}, selectedIDs(res))
	assert.Equal(t, int64(4), res.Captain.ID)
	assert.NotEmpty(t, res.OptimizationID)
	assert.Equal(t, []Strategy{StrategyExact}, rec.strategies)
	assert.Empty(t, rec.fallbacks)
}

func TestFacade_FallsBackWhenSolverFails(t *testing.T) {
	s := new(mockSolver)
	s.On("Solve", mock.Anything, mock.Anything).Return(nil, errors.New("solver binary not found")).Once()

	rec := &recordingRecorder{}
	f := NewFacade(availableWith(s), WithRecorder(rec), WithExactOptions(WithoutWarmStart()))
	c := mustConstraints(t, 100, squadFormation, 3)

	res, err := f.Optimize(context.Background(), squad(), c)
	require.NoError(t, err)

	assert.Equal(t, StrategyHeuristic, res.Strategy)
	assert.Len(t, res.Selected, 2)
	assert.Equal(t, []string{"solver_error"}, rec.fallbacks)
	// exactly one exact attempt
	s.AssertNumberOfCalls(t, "Solve", 1)
}

func TestFacade_FallsBackWhenSolverPanics(t *testing.T) {
	f := NewFacade(availableWith(panicSolver{}), WithExactOptions(WithoutWarmStart()))
	c := mustConstraints(t, 100, squadFormation, 3)

	res, err := f.Optimize(context.Background(), squad(), c)
	require.NoError(t, err)
	assert.Equal(t, StrategyHeuristic, res.Strategy)
}

func TestFacade_FallsBackOnInsaneResult(t *testing.T) {
	// the solver claims every keeper is selected for a one keeper formation
	s := new(mockSolver)
	s.On("Solve", mock.Anything, mock.Anything).
		Return(&solver.Assignment{Status: solver.Optimal, Values: []float64{1, 1, 1, 1, 1, 1}}, nil)

	rec := &recordingRecorder{}
	f := NewFacade(availableWith(s), WithRecorder(rec), WithExactOptions(WithoutPresolve(), WithoutWarmStart()))
	c := mustConstraints(t, 100, squadFormation, 3)

	res, err := f.Optimize(context.Background(), squad(), c)
	require.NoError(t, err)
	assert.Equal(t, StrategyHeuristic, res.Strategy)
	assert.Len(t, res.Selected, 2)
	assert.Equal(t, []string{"invalid_result"}, rec.fallbacks)
}

func TestFacade_LimitedExactIsMarked(t *testing.T) {
	c := mustConstraints(t, 9, squadFormation, 3)

	plain := &recordingRecorder{}
	proven, err := NewFacade(availableWith(solver.NewBranchAndBound()), WithRecorder(plain)).
		Optimize(context.Background(), squad(), c)
	require.NoError(t, err)
	assert.True(t, proven.Optimal)
	assert.Zero(t, plain.limits)

	rec := &recordingRecorder{}
	f := NewFacade(availableWith(limitedSolver{inner: solver.NewBranchAndBound()}),
		WithRecorder(rec), WithExactOptions(WithoutWarmStart()))
	res, err := f.Optimize(context.Background(), squad(), c)
	require.NoError(t, err)

	assert.Equal(t, StrategyExact, res.Strategy)
	assert.False(t, res.Optimal)
	assert.Equal(t, selectedIDs(proven), selectedIDs(res))
	assert.Equal(t, 1, rec.limits)
	assert.Empty(t, rec.fallbacks)
}

func TestFacade_UnavailableCapabilityUsesHeuristic(t *testing.T) {
	rec := &recordingRecorder{}
	f := NewFacade(solver.Unavailable("disabled"), WithRecorder(rec))
	c := mustConstraints(t, 100, map[string]int{"GOL": 1}, 3)

	res, err := f.Optimize(context.Background(), keepers(), c)
	require.NoError(t, err)
	assert.Equal(t, StrategyHeuristic, res.Strategy)
	assert.Equal(t, []string{"solver_missing"}, rec.fallbacks)
}

func TestFacade_InfeasibleExactIsReturned(t *testing.T) {
	f := NewFacade(availableWith(solver.NewBranchAndBound()))
	pool := []models.ScoredPlayer{
		sp(1, roles.Forward, "A", 30, 5),
		sp(2, roles.Forward, "B", 30, 4),
	}
	c := mustConstraints(t, 50, map[string]int{"ATA": 2}, 3)

	res, err := f.Optimize(context.Background(), pool, c)
	require.NoError(t, err)
	assert.Equal(t, StrategyExact, res.Strategy)
	assert.True(t, res.Infeasible)
	assert.Empty(t, res.Selected)
	assert.Nil(t, res.Captain)
}

func TestFacade_ZeroBudgetSelectsNothing(t *testing.T) {
	c := Constraints{budget: 0, formation: map[roles.Role]int{roles.Goalkeeper: 1}, maxPerGroup: 3}

	for _, capability := range []solver.Capability{availableWith(solver.NewBranchAndBound()), solver.Unavailable("off")} {
		res, err := NewFacade(capability).Optimize(context.Background(), keepers(), c)
		require.NoError(t, err)
		assert.Empty(t, res.Selected)
		assert.Nil(t, res.Captain)
	}
}

func TestFacade_EmptyPool(t *testing.T) {
	c := mustConstraints(t, 100, map[string]int{"GOL": 1}, 3)
	res, err := NewFacade(availableWith(solver.NewBranchAndBound())).Optimize(context.Background(), nil, c)
	require.NoError(t, err)
	assert.Empty(t, res.Selected)
	assert.Nil(t, res.Captain)
}

func TestFacade_Idempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	pool := randomPool(rng, 40, 6)
	formation, _ := FormationPreset("4-3-3")
	c := mustConstraints(t, 120, formation, 3)

	for _, capability := range []solver.Capability{availableWith(solver.NewBranchAndBound()), solver.Unavailable("off")} {
		f := NewFacade(capability)
		first, err := f.Optimize(context.Background(), pool, c)
		require.NoError(t, err)
		second, err := f.Optimize(context.Background(), pool, c)
		require.NoError(t, err)

		first.OptimizationID, second.OptimizationID = "", ""
		assert.Equal(t, first, second)
	}
}

func TestFacade_CaptainAlwaysSelected(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	formation, _ := FormationPreset("4-4-2")
	f := NewFacade(availableWith(solver.NewBranchAndBound()))

	for trial := 0; trial < 5; trial++ {
		pool := randomPool(rng, 30, 5)
		c := mustConstraints(t, 60+rng.Float64()*80, formation, 3)

		res, err := f.Optimize(context.Background(), pool, c)
		require.NoError(t, err)
		require.NoError(t, ValidateResult(res, c, res.Strategy == StrategyExact))
		if res.Captain != nil {
			assert.Contains(t, selectedIDs(res), res.Captain.ID)
		}
	}
}

func TestFacade_ConcurrentCalls(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	pool := randomPool(rng, 25, 5)
	formation, _ := FormationPreset("3-5-2")
	c := mustConstraints(t, 100, formation, 3)
	f := NewFacade(solver.Unavailable("off"))

	expected, err := f.Optimize(context.Background(), pool, c)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.Optimize(context.Background(), pool, c)
			assert.NoError(t, err)
			assert.Equal(t, selectedIDs(expected), selectedIDs(res))
		}()
	}
	wg.Wait()
}

func TestFacade_DoesNotMutateInput(t *testing.T) {
	pool := keepers()
	snapshot := append([]models.ScoredPlayer(nil), pool...)
	c := mustConstraints(t, 100, map[string]int{"GOL": 1}, 3)

	_, err := NewFacade(availableWith(solver.NewBranchAndBound())).Optimize(context.Background(), pool, c)
	require.NoError(t, err)
	assert.Equal(t, snapshot, pool)
}
