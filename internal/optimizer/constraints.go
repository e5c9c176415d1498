package optimizer

import (
	"errors"
	"sort"
	"strings"

	"github.com/carloswilll/dashboard-cartolaFC2025/internal/roles"
)

// Constraints is the validated constraint set of one optimization request.
// It is immutable after construction.
type Constraints struct {
	budget      float64
	formation   map[roles.Role]int
	maxPerGroup int
}

var formationPresets = map[string]map[string]int{
	"4-4-2": {"GOL": 1, "DEF": 4, "MEI": 4, "ATA": 2},
	"3-5-2": {"GOL": 1, "DEF": 3, "MEI": 5, "ATA": 2},
	"4-3-3": {"GOL": 1, "DEF": 4, "MEI": 3, "ATA": 3},
}

// FormationPreset returns a copy of a named formation.
func FormationPreset(name string) (map[string]int, bool) {
	preset, ok := formationPresets[strings.TrimSpace(name)]
	if !ok {
		return nil, false
	}
	out := make(map[string]int, len(preset))
	for k, v := range preset {
		out[k] = v
	}
	return out, true
}

func FormationPresetNames() []string {
	names := make([]string, 0, len(formationPresets))
	for name := range formationPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewConstraints resolves free-form formation keys such as "GOL" or
// "keeper" to roles. A key that resolves to no role, to several roles, or
// to a role already named by another key is a configuration error.
func NewConstraints(budget float64, formation map[string]int, maxPerGroup int) (Constraints, error) {
	keys := make([]string, 0, len(formation))
	for k := range formation {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	resolved := make(map[roles.Role]int, len(formation))
	origin := make(map[roles.Role]string, len(formation))
	for _, key := range keys {
		role, err := roles.Parse(key)
		if err != nil {
			if errors.Is(err, roles.ErrAmbiguousRole) {
				return Constraints{}, configError("formation", "key %q is ambiguous", key)
			}
			return Constraints{}, configError("formation", "key %q does not name a role", key)
		}
		if prev, dup := origin[role]; dup {
			return Constraints{}, configError("formation", "keys %q and %q both name %s", prev, key, role.Key())
		}
		origin[role] = key
		resolved[role] = formation[key]
	}
	return NewConstraintsForRoles(budget, resolved, maxPerGroup)
}

func NewConstraintsForRoles(budget float64, formation map[roles.Role]int, maxPerGroup int) (Constraints, error) {
	if !(budget > 0) {
		return Constraints{}, configError("budget", "must be greater than zero, got %v", budget)
	}
	if maxPerGroup < 1 {
		return Constraints{}, configError("max_per_group", "must be at least 1, got %d", maxPerGroup)
	}

	total := 0
	copied := make(map[roles.Role]int, len(formation))
	for role, quota := range formation {
		if !role.Valid() {
			return Constraints{}, configError("formation", "unknown role %d", int(role))
		}
		if quota < 0 {
			return Constraints{}, configError("formation", "quota for %s is negative", role.Key())
		}
		total += quota
		copied[role] = quota
	}
	if total == 0 {
		return Constraints{}, configError("formation", "requires at least one player")
	}

	return Constraints{budget: budget, formation: copied, maxPerGroup: maxPerGroup}, nil
}

func (c Constraints) Budget() float64 {
	return c.budget
}

func (c Constraints) MaxPerGroup() int {
	return c.maxPerGroup
}

// Quota is the required count for a role, zero if the role is not part of
// the formation.
func (c Constraints) Quota(role roles.Role) int {
	return c.formation[role]
}

// Roles lists the roles with a positive quota in canonical order.
func (c Constraints) Roles() []roles.Role {
	var out []roles.Role
	for _, r := range roles.All {
		if c.formation[r] > 0 {
			out = append(out, r)
		}
	}
	return out
}

func (c Constraints) RosterSize() int {
	total := 0
	for _, q := range c.formation {
		total += q
	}
	return total
}

// Formation returns the quotas keyed by canonical role key.
func (c Constraints) Formation() map[string]int {
	out := make(map[string]int, len(c.formation))
	for r, q := range c.formation {
		out[r.Key()] = q
	}
	return out
}
