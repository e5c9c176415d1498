package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/carloswilll/dashboard-cartolaFC2025/internal/models"
	"github.com/carloswilll/dashboard-cartolaFC2025/internal/optimizer"
	"github.com/carloswilll/dashboard-cartolaFC2025/pkg/database"
	"github.com/carloswilll/dashboard-cartolaFC2025/pkg/utils"
)

const defaultLineupPage = 20

// LineupConstraints is the persisted form of the constraints a lineup was
// generated under.
type LineupConstraints struct {
	Budget     float64        `json:"budget"`
	MaxPerClub int            `json:"max_per_club"`
	Formation  map[string]int `json:"formation"`
}

// LineupStore keeps the history of generated lineups.
type LineupStore struct {
	db *database.DB
}

func NewLineupStore(db *database.DB) *LineupStore {
	return &LineupStore{db: db}
}

func (s *LineupStore) Migrate() error {
	if err := s.db.AutoMigrate(&models.LineupRecord{}); err != nil {
		return fmt.Errorf("failed to migrate lineups: %w", err)
	}
	return nil
}

// Save persists a result. The optimization id becomes the record id when
// present.
func (s *LineupStore) Save(ctx context.Context, res optimizer.Result, formation string, c optimizer.Constraints) (*models.LineupRecord, error) {
	players, err := json.Marshal(res.Selected)
	if err != nil {
		return nil, fmt.Errorf("failed to encode players: %w", err)
	}
	constraints, err := json.Marshal(LineupConstraints{
		Budget:     c.Budget(),
		MaxPerClub: c.MaxPerGroup(),
		Formation:  c.Formation(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode constraints: %w", err)
	}

	id := res.OptimizationID
	if id == "" {
		id = uuid.New().String()
	}

	record := &models.LineupRecord{
		ID:                 id,
		Formation:          formation,
		Budget:             c.Budget(),
		MaxPerClub:         c.MaxPerGroup(),
		Strategy:           string(res.Strategy),
		Infeasible:         res.Infeasible,
		Optimal:            res.Optimal,
		TotalPrice:         res.TotalPrice,
		TotalExpectedValue: res.TotalExpectedValue,
		Players:            datatypes.JSON(players),
		Constraints:        datatypes.JSON(constraints),
	}
	if res.Captain != nil {
		record.CaptainID = res.Captain.ID
	}

	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, fmt.Errorf("failed to save lineup: %w", err)
	}
	return record, nil
}

func (s *LineupStore) Get(ctx context.Context, id string) (*models.LineupRecord, error) {
	var record models.LineupRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("lineup %s: %w", id, utils.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load lineup: %w", err)
	}
	return &record, nil
}

// List returns the most recent lineups, optionally restricted to a strategy.
func (s *LineupStore) List(ctx context.Context, strategy string, limit, offset int) ([]models.LineupRecord, int64, error) {
	if limit <= 0 {
		limit = defaultLineupPage
	}

	query := s.db.WithContext(ctx).Model(&models.LineupRecord{})
	if strategy != "" {
		query = query.Where("strategy = ?", strategy)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count lineups: %w", err)
	}

	var records []models.LineupRecord
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list lineups: %w", err)
	}
	return records, total, nil
}

// DecodePlayers restores the selected players of a stored lineup.
func DecodePlayers(record *models.LineupRecord) ([]models.ScoredPlayer, error) {
	var players []models.ScoredPlayer
	if len(record.Players) == 0 {
		return players, nil
	}
	if err := json.Unmarshal(record.Players, &players); err != nil {
		return nil, fmt.Errorf("failed to decode lineup players: %w", err)
	}
	return players, nil
}
