package optimizer

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/carloswilll/dashboard-cartolaFC2025/internal/models"
	"github.com/carloswilll/dashboard-cartolaFC2025/internal/roles"
	"github.com/carloswilll/dashboard-cartolaFC2025/pkg/logger"
)

// HeuristicOptimizer builds a roster greedily by value per price. It never
// fails and never relaxes the budget or the group cap; when they cannot be
// met together with the formation the roster comes back short.
type HeuristicOptimizer struct {
	logger *logrus.Entry
}

func NewHeuristicOptimizer() *HeuristicOptimizer {
	return &HeuristicOptimizer{logger: logger.WithService("heuristic-optimizer")}
}

func (h *HeuristicOptimizer) Optimize(_ context.Context, players []models.ScoredPlayer, c Constraints) (Result, error) {
	if len(players) == 0 {
		return emptyResult(StrategyHeuristic), nil
	}
	picked, captain := h.selectRoster(players, c)
	return buildResult(players, picked, captain, StrategyHeuristic), nil
}

// valuePerPrice treats a free player as costing one unit.
func valuePerPrice(p models.ScoredPlayer) float64 {
	price := p.Price
	if price <= 0 {
		price = 1.0
	}
	return p.ExpectedValue / price
}

type roster struct {
	players   []models.ScoredPlayer
	vpp       []float64
	selected  map[int]bool
	ids       map[int64]bool
	perGroup  map[string]int
	perRole   map[roles.Role]int
	total     float64
	maxGroup  int
	budget    float64
	dropCount int
}

func (r *roster) add(idx int) {
	p := r.players[idx]
	r.selected[idx] = true
	r.ids[p.ID] = true
	r.perGroup[p.Club]++
	r.perRole[p.Role]++
	r.total += p.Price
}

func (r *roster) drop(idx int) {
	p := r.players[idx]
	delete(r.selected, idx)
	delete(r.ids, p.ID)
	r.perGroup[p.Club]--
	r.perRole[p.Role]--
	r.total -= p.Price
	r.dropCount++
}

// weakest returns the member with the lowest value per price. Later input
// positions lose ties.
func (r *roster) weakest(members []int) int {
	worst := -1
	for _, idx := range members {
		if worst < 0 || r.vpp[idx] < r.vpp[worst] || (r.vpp[idx] == r.vpp[worst] && idx > worst) {
			worst = idx
		}
	}
	return worst
}

func (r *roster) members(filter func(models.ScoredPlayer) bool) []int {
	var out []int
	for idx := range r.selected {
		if filter == nil || filter(r.players[idx]) {
			out = append(out, idx)
		}
	}
	sort.Ints(out)
	return out
}

func (r *roster) fits(idx int) bool {
	p := r.players[idx]
	return r.perGroup[p.Club] < r.maxGroup && r.total+p.Price <= r.budget+priceTolerance
}

func (h *HeuristicOptimizer) selectRoster(players []models.ScoredPlayer, c Constraints) ([]int, int) {
	r := &roster{
		players:  players,
		vpp:      make([]float64, len(players)),
		selected: make(map[int]bool),
		ids:      make(map[int64]bool),
		perGroup: make(map[string]int),
		perRole:  make(map[roles.Role]int),
		maxGroup: c.MaxPerGroup(),
		budget:   c.Budget(),
	}
	for i, p := range players {
		r.vpp[i] = valuePerPrice(p)
	}

	ranked := make(map[roles.Role][]int)
	for i, p := range players {
		if p.Price < 0 || c.Quota(p.Role) == 0 {
			continue
		}
		ranked[p.Role] = append(ranked[p.Role], i)
	}
	for role := range ranked {
		list := ranked[role]
		sort.SliceStable(list, func(a, b int) bool {
			return r.vpp[list[a]] > r.vpp[list[b]]
		})
	}

	// Initial pick: top N per role, first occurrence of an id wins.
	for _, role := range c.Roles() {
		taken := 0
		for _, idx := range ranked[role] {
			if taken == c.Quota(role) {
				break
			}
			taken++
			if r.ids[players[idx].ID] {
				continue
			}
			r.add(idx)
		}
	}

	// Group cap.
	groups := make([]string, 0, len(r.perGroup))
	for g := range r.perGroup {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	for _, g := range groups {
		for r.perGroup[g] > r.maxGroup {
			r.drop(r.weakest(r.members(func(p models.ScoredPlayer) bool { return p.Club == g })))
		}
	}

	// Budget.
	for r.total > r.budget+priceTolerance && len(r.selected) > 0 {
		r.drop(r.weakest(r.members(nil)))
	}

	// Backfill under-filled roles from the unused pool without breaking
	// the cap or the budget.
	backfilled := 0
	for _, role := range c.Roles() {
		for r.perRole[role] < c.Quota(role) {
			pick := -1
			for _, idx := range ranked[role] {
				if r.selected[idx] || r.ids[players[idx].ID] || !r.fits(idx) {
					continue
				}
				pick = idx
				break
			}
			if pick < 0 {
				break
			}
			r.add(pick)
			backfilled++
		}
	}

	picked := r.members(nil)
	captain := -1
	for _, idx := range picked {
		if captain < 0 || players[idx].ExpectedValue > players[captain].ExpectedValue {
			captain = idx
		}
	}

	h.logger.WithFields(logrus.Fields{
		"pool":       len(players),
		"selected":   len(picked),
		"target":     c.RosterSize(),
		"dropped":    r.dropCount,
		"backfilled": backfilled,
		"total":      r.total,
	}).Debug("Heuristic roster built")

	return picked, captain
}
