package models

import (
	"github.com/carloswilll/dashboard-cartolaFC2025/internal/roles"
)

// Scout abbreviations used by the Cartola market.
const (
	ScoutGoal          = "G"
	ScoutAssist        = "A"
	ScoutTackle        = "DS"
	ScoutCleanSheet    = "SG"
	ScoutSave          = "DD"
	ScoutShotOnPost    = "FT"
	ScoutShotOnTarget  = "FD"
	ScoutShotOffTarget = "FF"
)

// CanonicalScouts is the fixed counter vector order used for volatility.
var CanonicalScouts = []string{
	ScoutGoal,
	ScoutAssist,
	ScoutTackle,
	ScoutCleanSheet,
	ScoutSave,
	ScoutShotOnPost,
	ScoutShotOnTarget,
	ScoutShotOffTarget,
}

// Player is a validated market entry. Role is resolved once at ingestion
// and RoleLabel keeps the label as received.
type Player struct {
	ID        int64              `json:"id" validate:"required,gt=0"`
	Name      string             `json:"name" validate:"required"`
	Club      string             `json:"club" validate:"required"`
	RoleLabel string             `json:"role_label"`
	Role      roles.Role         `json:"role"`
	Price     float64            `json:"price" validate:"gte=0"`
	Average   float64            `json:"average" validate:"gte=0"`
	Games     int                `json:"games" validate:"gte=0"`
	StatusID  int                `json:"status_id"`
	Status    string             `json:"status,omitempty"`
	Scouts    map[string]float64 `json:"scouts,omitempty"`
}

// Scout returns a named counter, treating a missing one as zero.
func (p Player) Scout(key string) float64 {
	if p.Scouts == nil {
		return 0
	}
	return p.Scouts[key]
}

// ScoredPlayer carries the derived fields produced by the score engine.
type ScoredPlayer struct {
	Player
	OffensiveIndex float64 `json:"offensive_index"`
	DefensiveIndex float64 `json:"defensive_index"`
	Volatility     float64 `json:"volatility"`
	BaseScore      float64 `json:"base_score"`
	ExpectedValue  float64 `json:"expected_value"`
	CostBenefit    float64 `json:"cost_benefit"`
}

// Cartola status ids.
const (
	StatusProbable  = 7
	StatusDoubtful  = 2
	StatusSuspended = 3
	StatusInjured   = 5
	StatusNull      = 6
)

var statusNames = map[int]string{
	StatusProbable:  "Provável",
	StatusDoubtful:  "Dúvida",
	StatusSuspended: "Suspenso",
	StatusInjured:   "Contundido",
	StatusNull:      "Nulo",
}

func StatusName(id int) string {
	if name, ok := statusNames[id]; ok {
		return name
	}
	return "Desconhecido"
}
