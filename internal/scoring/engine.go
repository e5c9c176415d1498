// Package scoring turns raw market statistics into expected values.
package scoring

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/carloswilll/dashboard-cartolaFC2025/internal/models"
)

// Score derives the expected value of every player. The output has the same
// length and order as the input and the input is not modified.
func Score(players []models.Player) []models.ScoredPlayer {
	scored := make([]models.ScoredPlayer, len(players))
	for i, p := range players {
		scored[i] = ScorePlayer(p)
	}
	return scored
}

func ScorePlayer(p models.Player) models.ScoredPlayer {
	offensive := weightedSum(p, OffensiveWeights)
	defensive := weightedSum(p, DefensiveWeights)
	volatility := Volatility(p)

	var base float64
	if p.Role.IsAttacking() {
		base = AttackAverageWeight*p.Average + AttackIndexWeight*offensive
	} else {
		base = DefenseAverageWeight*p.Average + DefenseIndexWeight*defensive
	}

	return models.ScoredPlayer{
		Player:         p,
		OffensiveIndex: offensive,
		DefensiveIndex: defensive,
		Volatility:     volatility,
		BaseScore:      base,
		ExpectedValue:  math.Max(0, base-VolatilityPenalty*volatility),
		CostBenefit:    CostBenefit(p),
	}
}

// Volatility is the sample standard deviation of the canonical counters.
func Volatility(p models.Player) float64 {
	counters := make([]float64, len(models.CanonicalScouts))
	allZero := true
	for i, key := range models.CanonicalScouts {
		counters[i] = p.Scout(key)
		if counters[i] != 0 {
			allZero = false
		}
	}
	if allZero {
		return 0
	}
	return stat.StdDev(counters, nil)
}

// CostBenefit is the average per unit of price, zero for free players.
func CostBenefit(p models.Player) float64 {
	if p.Price <= 0 {
		return 0
	}
	return p.Average / p.Price
}

func weightedSum(p models.Player, weights []Weight) float64 {
	var total float64
	for _, w := range weights {
		total += w.Factor * p.Scout(w.Scout)
	}
	return total
}
