package optimizer

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/carloswilll/dashboard-cartolaFC2025/internal/models"
	"github.com/carloswilll/dashboard-cartolaFC2025/internal/roles"
	"github.com/carloswilll/dashboard-cartolaFC2025/pkg/solver"
)

func sp(id int64, role roles.Role, club string, price, value float64) models.ScoredPlayer {
	return models.ScoredPlayer{
		Player: models.Player{
			ID:    id,
			Name:  fmt.Sprintf("player-%d", id),
			Club:  club,
			Role:  role,
			Price: price,
		},
		ExpectedValue: value,
	}
}

func mustConstraints(t *testing.T, budget float64, formation map[string]int, maxPerGroup int) Constraints {
	t.Helper()
	c, err := NewConstraints(budget, formation, maxPerGroup)
	require.NoError(t, err)
	return c
}

func selectedIDs(res Result) []int64 {
	ids := make([]int64, len(res.Selected))
	for i, p := range res.Selected {
		ids[i] = p.ID
	}
	return ids
}

// randomPool builds a market with every role spread over a few clubs.
func randomPool(rng *rand.Rand, n int, clubs int) []models.ScoredPlayer {
	pool := make([]models.ScoredPlayer, n)
	formationRoles := []roles.Role{roles.Goalkeeper, roles.Defender, roles.Midfielder, roles.Forward}
	for i := range pool {
		pool[i] = sp(
			int64(i+1),
			formationRoles[rng.Intn(len(formationRoles))],
			fmt.Sprintf("club-%d", rng.Intn(clubs)),
			math.Round((2+rng.Float64()*18)*10)/10,
			math.Round(rng.Float64()*100)/10,
		)
	}
	return pool
}

// bruteForceBest enumerates every subset that matches the formation exactly
// and returns the best objective with the captain counted twice.
func bruteForceBest(pool []models.ScoredPlayer, c Constraints) (float64, bool) {
	best := math.Inf(-1)
	found := false
	size := c.RosterSize()
	var walk func(start int, chosen []int)
	walk = func(start int, chosen []int) {
		if len(chosen) == size {
			perRole := map[roles.Role]int{}
			perGroup := map[string]int{}
			var price, value, top float64
			for _, idx := range chosen {
				p := pool[idx]
				perRole[p.Role]++
				perGroup[p.Club]++
				price += p.Price
				value += p.ExpectedValue
				top = math.Max(top, p.ExpectedValue)
			}
			if price > c.Budget()+1e-9 {
				return
			}
			for _, role := range c.Roles() {
				if perRole[role] != c.Quota(role) {
					return
				}
			}
			for _, n := range perGroup {
				if n > c.MaxPerGroup() {
					return
				}
			}
			found = true
			best = math.Max(best, value+top)
			return
		}
		for i := start; i < len(pool); i++ {
			walk(i+1, append(chosen, i))
		}
	}
	walk(0, nil)
	return best, found
}

type mockSolver struct {
	mock.Mock
}

func (m *mockSolver) Solve(ctx context.Context, p *solver.Problem) (*solver.Assignment, error) {
	args := m.Called(ctx, p)
	a, _ := args.Get(0).(*solver.Assignment)
	return a, args.Error(1)
}

type panicSolver struct{}

func (panicSolver) Solve(context.Context, *solver.Problem) (*solver.Assignment, error) {
	panic("native library missing")
}

type recordingRecorder struct {
	strategies []Strategy
	fallbacks  []string
	limits     int
}

func (r *recordingRecorder) ObserveOptimization(s Strategy, _ bool, _ float64, _ int) {
	r.strategies = append(r.strategies, s)
}

func (r *recordingRecorder) ObserveFallback(reason string) {
	r.fallbacks = append(r.fallbacks, reason)
}

func (r *recordingRecorder) ObserveSearchLimit() {
	r.limits++
}

// limitedSolver reports every proven optimum as a merely feasible one, the
// way a search cut short by its node or time limit would.
type limitedSolver struct {
	inner solver.Solver
}

func (l limitedSolver) Solve(ctx context.Context, p *solver.Problem) (*solver.Assignment, error) {
	a, err := l.inner.Solve(ctx, p)
	if err == nil && a != nil && a.Status == solver.Optimal {
		a.Status = solver.Feasible
	}
	return a, err
}

// squad is a small market for a one keeper, one forward formation: the
// exact search needs a solver call for every captain it tries.
func squad() []models.ScoredPlayer {
	return []models.ScoredPlayer{
		sp(1, roles.Goalkeeper, "A", 5, 4),
		sp(2, roles.Goalkeeper, "B", 4, 6),
		sp(3, roles.Goalkeeper, "C", 3, 3),
		sp(4, roles.Forward, "A", 6, 9),
		sp(5, roles.Forward, "B", 7, 8),
		sp(6, roles.Forward, "C", 2, 5),
	}
}

var squadFormation = map[string]int{"GOL": 1, "ATA": 1}
