package optimizer

import (
	"context"

	"github.com/carloswilll/dashboard-cartolaFC2025/internal/models"
)

type Strategy string

const (
	StrategyExact     Strategy = "exact"
	StrategyHeuristic Strategy = "heuristic"
)

// Result is the uniform output of both optimizers. Selected keeps the
// input order of the pool. Optimal is set only when the exact search proved
// Selected optimal; a search stopped by its limits leaves it false.
type Result struct {
	Selected           []models.ScoredPlayer `json:"selected"`
	Captain            *models.ScoredPlayer  `json:"captain"`
	TotalPrice         float64               `json:"total_price"`
	TotalExpectedValue float64               `json:"total_expected_value"`
	Strategy           Strategy              `json:"strategy_used"`
	Infeasible         bool                  `json:"infeasible"`
	Optimal            bool                  `json:"optimal"`
	OptimizationID     string                `json:"optimization_id,omitempty"`
}

// Optimizer is implemented by the facade and both strategies.
type Optimizer interface {
	Optimize(ctx context.Context, players []models.ScoredPlayer, constraints Constraints) (Result, error)
}

func emptyResult(strategy Strategy) Result {
	return Result{Selected: []models.ScoredPlayer{}, Strategy: strategy}
}

// buildResult assembles a result from pool indices in ascending order and
// the pool index of the captain, or -1 for none.
func buildResult(pool []models.ScoredPlayer, picked []int, captain int, strategy Strategy) Result {
	res := emptyResult(strategy)
	for _, idx := range picked {
		p := pool[idx]
		res.Selected = append(res.Selected, p)
		res.TotalPrice += p.Price
		res.TotalExpectedValue += p.ExpectedValue
	}
	if captain >= 0 {
		c := pool[captain]
		res.Captain = &c
		res.TotalExpectedValue += c.ExpectedValue
	}
	return res
}

// Recorder observes facade decisions.
type Recorder interface {
	ObserveOptimization(strategy Strategy, fallback bool, seconds float64, selected int)
	ObserveFallback(reason string)
	ObserveSearchLimit()
}

type noopRecorder struct{}

func (noopRecorder) ObserveOptimization(Strategy, bool, float64, int) {}
func (noopRecorder) ObserveFallback(string)                         {}
func (noopRecorder) ObserveSearchLimit()                            {}
