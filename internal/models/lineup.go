package models

import (
	"time"

	"gorm.io/datatypes"
)

// LineupRecord stores a generated lineup for history and export.
type LineupRecord struct {
	ID                 string         `gorm:"primaryKey;size:36" json:"id"`
	Formation          string         `gorm:"size:20" json:"formation"`
	Budget             float64        `json:"budget"`
	MaxPerClub         int            `json:"max_per_club"`
	Strategy           string         `gorm:"size:20;index" json:"strategy"`
	Infeasible         bool           `json:"infeasible"`
	Optimal            bool           `json:"optimal"`
	CaptainID          int64          `json:"captain_id"`
	TotalPrice         float64        `json:"total_price"`
	TotalExpectedValue float64        `json:"total_expected_value"`
	Players            datatypes.JSON `json:"players"`
	Constraints        datatypes.JSON `json:"constraints"`
	CreatedAt          time.Time      `gorm:"index" json:"created_at"`
}

func (LineupRecord) TableName() string {
	return "lineups"
}
