package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/carloswilll/dashboard-cartolaFC2025/internal/models"
	"github.com/carloswilll/dashboard-cartolaFC2025/internal/providers"
	"github.com/carloswilll/dashboard-cartolaFC2025/internal/roles"
	"github.com/carloswilll/dashboard-cartolaFC2025/internal/scoring"
)

// MarketSource is the upstream the market service reads through.
type MarketSource interface {
	FetchMarket(ctx context.Context) (*providers.Market, error)
	FetchStatus(ctx context.Context) (*providers.MarketStatus, error)
}

// MarketSnapshot is the ingested market as cached.
type MarketSnapshot struct {
	Players   []models.Player  `json:"players"`
	Rejected  []RejectedRecord `json:"rejected,omitempty"`
	FetchedAt time.Time        `json:"fetched_at"`
}

// Filter narrows a player list. Empty fields match everything.
type Filter struct {
	Roles    []roles.Role
	Clubs    []string
	Statuses []int
}

func (f Filter) Match(p models.Player) bool {
	if len(f.Roles) > 0 && !containsRole(f.Roles, p.Role) {
		return false
	}
	if len(f.Clubs) > 0 {
		found := false
		for _, c := range f.Clubs {
			if strings.EqualFold(c, p.Club) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if s == p.StatusID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (f Filter) Apply(players []models.Player) []models.Player {
	out := make([]models.Player, 0, len(players))
	for _, p := range players {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out
}

func containsRole(list []roles.Role, r roles.Role) bool {
	for _, x := range list {
		if x == r {
			return true
		}
	}
	return false
}

// MarketOverview summarizes a scored player list.
type MarketOverview struct {
	Count             int     `json:"count"`
	MeanPrice         float64 `json:"mean_price"`
	MeanAverage       float64 `json:"mean_average"`
	MeanExpectedValue float64 `json:"mean_expected_value"`
}

func Overview(players []models.ScoredPlayer) MarketOverview {
	if len(players) == 0 {
		return MarketOverview{}
	}
	prices := make([]float64, len(players))
	averages := make([]float64, len(players))
	values := make([]float64, len(players))
	for i, p := range players {
		prices[i] = p.Price
		averages[i] = p.Average
		values[i] = p.ExpectedValue
	}
	return MarketOverview{
		Count:             len(players),
		MeanPrice:         stat.Mean(prices, nil),
		MeanAverage:       stat.Mean(averages, nil),
		MeanExpectedValue: stat.Mean(values, nil),
	}
}

// MarketService serves the ingested market through a TTL cache.
type MarketService struct {
	source MarketSource
	cache  Cache
	ttl    time.Duration
	logger *logrus.Logger

	refreshMu sync.Mutex
}

func NewMarketService(source MarketSource, cache Cache, ttl time.Duration, logger *logrus.Logger) *MarketService {
	return &MarketService{
		source: source,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

// Snapshot returns the cached market, fetching it on a miss.
func (s *MarketService) Snapshot(ctx context.Context) (*MarketSnapshot, error) {
	var snapshot MarketSnapshot
	err := s.cache.Get(ctx, MarketCacheKey(), &snapshot)
	if err == nil {
		return &snapshot, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		s.logger.WithError(err).Warn("Market cache read failed")
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	// another caller may have refreshed while we waited
	if err := s.cache.Get(ctx, MarketCacheKey(), &snapshot); err == nil {
		return &snapshot, nil
	}
	return s.refresh(ctx)
}

// Refresh fetches the market upstream and replaces the cached copy.
func (s *MarketService) Refresh(ctx context.Context) (*MarketSnapshot, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	return s.refresh(ctx)
}

func (s *MarketService) refresh(ctx context.Context) (*MarketSnapshot, error) {
	market, err := s.source.FetchMarket(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch market: %w", err)
	}

	report := Ingest(RecordsFromMarket(market))
	snapshot := &MarketSnapshot{
		Players:   report.Players,
		Rejected:  report.Rejected,
		FetchedAt: market.FetchedAt,
	}

	if err := s.cache.Set(ctx, MarketCacheKey(), snapshot, s.ttl); err != nil {
		s.logger.WithError(err).Warn("Market cache write failed")
	}

	s.logger.WithFields(logrus.Fields{
		"players":  len(snapshot.Players),
		"rejected": len(snapshot.Rejected),
	}).Info("Market refreshed")
	return snapshot, nil
}

// Scored returns the filtered market scored and ranked by expected value.
func (s *MarketService) Scored(ctx context.Context, filter Filter) ([]models.ScoredPlayer, error) {
	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return scoring.RankByExpectedValue(scoring.Score(filter.Apply(snapshot.Players))), nil
}

func (s *MarketService) TopValue(ctx context.Context, filter Filter, limit int) ([]models.ScoredPlayer, error) {
	scored, err := s.Scored(ctx, filter)
	if err != nil {
		return nil, err
	}
	return scoring.TopByCostBenefit(scored, limit), nil
}

func (s *MarketService) Overview(ctx context.Context, filter Filter) (MarketOverview, error) {
	scored, err := s.Scored(ctx, filter)
	if err != nil {
		return MarketOverview{}, err
	}
	return Overview(scored), nil
}

// Status returns the upstream market status, cached with the same TTL.
func (s *MarketService) Status(ctx context.Context) (*providers.MarketStatus, error) {
	var status providers.MarketStatus
	if err := s.cache.Get(ctx, MarketStatusCacheKey(), &status); err == nil {
		return &status, nil
	}

	fresh, err := s.source.FetchStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch market status: %w", err)
	}
	if err := s.cache.Set(ctx, MarketStatusCacheKey(), fresh, s.ttl); err != nil {
		s.logger.WithError(err).Warn("Market status cache write failed")
	}
	return fresh, nil
}
