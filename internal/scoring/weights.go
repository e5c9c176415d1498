package scoring

import "github.com/carloswilll/dashboard-cartolaFC2025/internal/models"

// Weight pairs a scout with its multiplier. Weights are summed in slice
// order so repeated scoring is bit-identical.
type Weight struct {
	Scout  string
	Factor float64
}

var OffensiveWeights = []Weight{
	{models.ScoutGoal, 8.0},
	{models.ScoutAssist, 5.0},
	{models.ScoutShotOnTarget, 1.2},
	{models.ScoutShotOffTarget, 0.8},
	{models.ScoutShotOnPost, 3.0},
}

var DefensiveWeights = []Weight{
	{models.ScoutTackle, 1.5},
	{models.ScoutCleanSheet, 5.0},
	{models.ScoutSave, 3.0},
}

const (
	// Attacking roles blend the average with the offensive index.
	AttackAverageWeight = 0.5
	AttackIndexWeight   = 0.5

	// Every other role blends the average with the defensive index.
	DefenseAverageWeight = 0.6
	DefenseIndexWeight   = 0.4

	// VolatilityPenalty scales the counter standard deviation subtracted from the base score.
	VolatilityPenalty = 0.2
)
