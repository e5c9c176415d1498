package scoring

import (
	"sort"

	"github.com/carloswilll/dashboard-cartolaFC2025/internal/models"
)

// RankByExpectedValue returns a copy sorted by expected value, highest first.
// Ties keep input order.
func RankByExpectedValue(players []models.ScoredPlayer) []models.ScoredPlayer {
	ranked := append([]models.ScoredPlayer(nil), players...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].ExpectedValue > ranked[j].ExpectedValue
	})
	return ranked
}

// TopByCostBenefit returns at most limit players ordered by cost-benefit.
func TopByCostBenefit(players []models.ScoredPlayer, limit int) []models.ScoredPlayer {
	ranked := append([]models.ScoredPlayer(nil), players...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].CostBenefit > ranked[j].CostBenefit
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
