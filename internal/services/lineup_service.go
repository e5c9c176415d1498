package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/carloswilll/dashboard-cartolaFC2025/internal/models"
	"github.com/carloswilll/dashboard-cartolaFC2025/internal/optimizer"
	"github.com/carloswilll/dashboard-cartolaFC2025/internal/scoring"
	"github.com/carloswilll/dashboard-cartolaFC2025/pkg/utils"
)

const customFormation = "custom"

// LineupDefaults fill the request fields a caller leaves out.
type LineupDefaults struct {
	Budget     float64
	MaxPerClub int
	Formation  string
}

// OptimizeRequest is one lineup request as received from the API or CLI.
type OptimizeRequest struct {
	Budget          *float64
	Formation       map[string]int
	FormationPreset string
	MaxPerClub      *int
	Filter          Filter
	Save            bool
}

// OptimizeOutcome is the optimizer result plus what it was computed under.
type OptimizeOutcome struct {
	optimizer.Result
	Formation   string            `json:"formation"`
	Constraints LineupConstraints `json:"constraints"`
	Candidates  int               `json:"candidates"`
	LineupID    string            `json:"lineup_id,omitempty"`
	Rejected    []RejectedRecord  `json:"rejected,omitempty"`
}

// LineupService resolves requests into constraints, runs the optimizer over
// the market or a supplied player list and optionally records the result.
type LineupService struct {
	market    *MarketService
	optimizer optimizer.Optimizer
	store     *LineupStore
	defaults  LineupDefaults
	logger    *logrus.Logger
}

func NewLineupService(market *MarketService, opt optimizer.Optimizer, store *LineupStore, defaults LineupDefaults, logger *logrus.Logger) *LineupService {
	return &LineupService{
		market:    market,
		optimizer: opt,
		store:     store,
		defaults:  defaults,
		logger:    logger,
	}
}

// Resolve builds the constraint set for a request. An explicit formation
// wins over a preset name and both fall back to the configured default.
func (s *LineupService) Resolve(req OptimizeRequest) (optimizer.Constraints, string, error) {
	budget := s.defaults.Budget
	if req.Budget != nil {
		budget = *req.Budget
	}
	maxPerClub := s.defaults.MaxPerClub
	if req.MaxPerClub != nil {
		maxPerClub = *req.MaxPerClub
	}

	name := customFormation
	formation := req.Formation
	if len(formation) == 0 {
		name = strings.TrimSpace(req.FormationPreset)
		if name == "" {
			name = s.defaults.Formation
		}
		preset, ok := optimizer.FormationPreset(name)
		if !ok {
			return optimizer.Constraints{}, "", &optimizer.ConfigurationError{
				Field:  "formation",
				Reason: fmt.Sprintf("unknown preset %q, expected one of %s", name, strings.Join(optimizer.FormationPresetNames(), ", ")),
			}
		}
		formation = preset
	}

	c, err := optimizer.NewConstraints(budget, formation, maxPerClub)
	if err != nil {
		return optimizer.Constraints{}, "", err
	}
	return c, name, nil
}

// Optimize runs a request against the cached market.
func (s *LineupService) Optimize(ctx context.Context, req OptimizeRequest) (*OptimizeOutcome, error) {
	c, name, err := s.Resolve(req)
	if err != nil {
		return nil, err
	}
	if s.market == nil {
		return nil, fmt.Errorf("no market source configured")
	}
	snapshot, err := s.market.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, snapshot.Players, nil, req, c, name)
}

// OptimizePlayers runs a request against an uploaded player list.
func (s *LineupService) OptimizePlayers(ctx context.Context, report IngestReport, req OptimizeRequest) (*OptimizeOutcome, error) {
	c, name, err := s.Resolve(req)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, report.Players, report.Rejected, req, c, name)
}

func (s *LineupService) run(ctx context.Context, players []models.Player, rejected []RejectedRecord, req OptimizeRequest, c optimizer.Constraints, name string) (*OptimizeOutcome, error) {
	scored := scoring.Score(req.Filter.Apply(players))

	res, err := s.optimizer.Optimize(ctx, scored, c)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrOptimizationFailed, err)
	}

	outcome := &OptimizeOutcome{
		Result:    res,
		Formation: name,
		Constraints: LineupConstraints{
			Budget:     c.Budget(),
			MaxPerClub: c.MaxPerGroup(),
			Formation:  c.Formation(),
		},
		Candidates: len(scored),
		Rejected:   rejected,
	}

	if req.Save {
		if s.store == nil {
			return nil, fmt.Errorf("lineup history is not configured")
		}
		record, err := s.store.Save(ctx, res, name, c)
		if err != nil {
			return nil, err
		}
		outcome.LineupID = record.ID
	}

	s.logger.WithFields(logrus.Fields{
		"optimization_id": res.OptimizationID,
		"strategy":        res.Strategy,
		"formation":       name,
		"candidates":      len(scored),
		"saved":           outcome.LineupID != "",
	}).Info("Lineup generated")
	return outcome, nil
}
