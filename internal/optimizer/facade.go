package optimizer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/carloswilll/dashboard-cartolaFC2025/internal/models"
	"github.com/carloswilll/dashboard-cartolaFC2025/pkg/logger"
	"github.com/carloswilll/dashboard-cartolaFC2025/pkg/solver"
)

// Facade chooses the strategy for every call: one exact attempt when the
// solver capability is available, the heuristic otherwise or when the
// exact attempt fails. It holds no per-call state and is safe for
// concurrent use.
type Facade struct {
	capability solver.Capability
	exact      *ExactOptimizer
	heuristic  *HeuristicOptimizer
	recorder   Recorder
}

type FacadeOption func(*Facade)

func WithRecorder(r Recorder) FacadeOption {
	return func(f *Facade) {
		if r != nil {
			f.recorder = r
		}
	}
}

func WithExactOptions(opts ...ExactOption) FacadeOption {
	return func(f *Facade) {
		for _, opt := range opts {
			opt(f.exact)
		}
	}
}

func NewFacade(capability solver.Capability, opts ...FacadeOption) *Facade {
	f := &Facade{
		capability: capability,
		exact:      NewExactOptimizer(capability.Solver),
		heuristic:  NewHeuristicOptimizer(),
		recorder:   noopRecorder{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Facade) Capability() solver.Capability {
	return f.capability
}

func (f *Facade) Optimize(ctx context.Context, players []models.ScoredPlayer, c Constraints) (Result, error) {
	optimizationID := uuid.New().String()
	start := time.Now()
	snapshot := append([]models.ScoredPlayer(nil), players...)

	log := logger.WithOptimizationContext(optimizationID, string(StrategyExact))
	log.WithFields(logrus.Fields{
		"players":       len(snapshot),
		"budget":        c.Budget(),
		"max_per_group": c.MaxPerGroup(),
		"formation":     c.Formation(),
		"solver":        f.capability.Status.String(),
	}).Info("Starting optimization")

	fallbackReason := ""
	if f.capability.Available() {
		res, err := f.exact.Optimize(ctx, snapshot, c)
		switch {
		case err != nil:
			fallbackReason = "solver_error"
			log.WithError(err).Warn("Exact optimization failed, falling back to heuristic")
		default:
			if verr := ValidateResult(res, c, true); verr != nil {
				fallbackReason = "invalid_result"
				log.WithError(verr).Warn("Exact result failed sanity checks, falling back to heuristic")
			} else {
				if !res.Optimal && len(res.Selected) > 0 {
					f.recorder.ObserveSearchLimit()
					log.Warn("Exact search stopped at its limits, lineup is not proven optimal")
				}
				return f.finish(log, res, optimizationID, start, false), nil
			}
		}
	} else {
		fallbackReason = "solver_" + f.capability.Status.String()
		log.WithField("reason", f.capability.Reason).Debug("Solver capability not available")
	}

	f.recorder.ObserveFallback(fallbackReason)
	log = logger.WithOptimizationContext(optimizationID, string(StrategyHeuristic))

	res, err := f.heuristic.Optimize(ctx, snapshot, c)
	if err != nil {
		return Result{}, fmt.Errorf("heuristic optimization: %w", err)
	}
	if verr := ValidateResult(res, c, false); verr != nil {
		log.WithError(verr).Error("Heuristic result failed sanity checks")
		return Result{}, verr
	}
	return f.finish(log, res, optimizationID, start, true), nil
}

func (f *Facade) finish(log *logrus.Entry, res Result, optimizationID string, start time.Time, fallback bool) Result {
	res.OptimizationID = optimizationID
	elapsed := time.Since(start)
	f.recorder.ObserveOptimization(res.Strategy, fallback, elapsed.Seconds(), len(res.Selected))

	fields := logrus.Fields{
		"selected":             len(res.Selected),
		"total_price":          res.TotalPrice,
		"total_expected_value": res.TotalExpectedValue,
		"infeasible":           res.Infeasible,
		"optimal":              res.Optimal,
		"duration_ms":          elapsed.Milliseconds(),
	}
	if res.Captain != nil {
		fields["captain_id"] = res.Captain.ID
	}
	log.WithFields(fields).Info("Optimization completed")
	return res
}
