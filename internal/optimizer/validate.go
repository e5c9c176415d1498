package optimizer

import (
	"errors"
	"fmt"

	"github.com/carloswilll/dashboard-cartolaFC2025/internal/roles"
)

var ErrInvalidResult = errors.New("result violates constraints")

const priceTolerance = 1e-6

// ValidateResult checks the invariants every returned result must hold.
// With exactQuota set, every role count must equal its quota unless the
// result is marked infeasible.
func ValidateResult(res Result, c Constraints, exactQuota bool) error {
	seen := make(map[int64]bool, len(res.Selected))
	perGroup := make(map[string]int)
	perRole := make(map[roles.Role]int)
	var total float64

	for _, p := range res.Selected {
		if p.Price < 0 {
			return fmt.Errorf("%w: player %d has negative price", ErrInvalidResult, p.ID)
		}
		if seen[p.ID] {
			return fmt.Errorf("%w: player %d selected twice", ErrInvalidResult, p.ID)
		}
		seen[p.ID] = true
		perGroup[p.Club]++
		perRole[p.Role]++
		total += p.Price
	}

	if total > c.Budget()+priceTolerance {
		return fmt.Errorf("%w: total price %.2f exceeds budget %.2f", ErrInvalidResult, total, c.Budget())
	}
	for club, n := range perGroup {
		if n > c.MaxPerGroup() {
			return fmt.Errorf("%w: %d players from %s", ErrInvalidResult, n, club)
		}
	}
	for role, n := range perRole {
		if n > c.Quota(role) {
			return fmt.Errorf("%w: %d players for %s with quota %d", ErrInvalidResult, n, role.Key(), c.Quota(role))
		}
	}

	if len(res.Selected) == 0 {
		if res.Captain != nil {
			return fmt.Errorf("%w: captain without selection", ErrInvalidResult)
		}
		return nil
	}

	if res.Captain == nil {
		return fmt.Errorf("%w: no captain", ErrInvalidResult)
	}
	if !seen[res.Captain.ID] {
		return fmt.Errorf("%w: captain %d is not selected", ErrInvalidResult, res.Captain.ID)
	}

	if exactQuota && !res.Infeasible {
		for _, role := range c.Roles() {
			if perRole[role] != c.Quota(role) {
				return fmt.Errorf("%w: %d players for %s, want %d", ErrInvalidResult, perRole[role], role.Key(), c.Quota(role))
			}
		}
	}
	return nil
}
