// Package roles defines the closed set of player roles and the single
// label-to-role mapping used at ingestion.
package roles

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type Role int

const (
	Unknown Role = iota
	Goalkeeper
	Defender
	Midfielder
	Forward
	Coach
)

var (
	ErrUnknownRole   = errors.New("unknown role label")
	ErrAmbiguousRole = errors.New("ambiguous role label")
)

// All lists the known roles in their canonical order.
var All = []Role{Goalkeeper, Defender, Midfielder, Forward, Coach}

var keys = map[Role]string{
	Goalkeeper: "GOL",
	Defender:   "DEF",
	Midfielder: "MEI",
	Forward:    "ATA",
	Coach:      "TEC",
}

var names = map[Role]string{
	Goalkeeper: "Goleiro",
	Defender:   "Defensor",
	Midfielder: "Meia",
	Forward:    "Atacante",
	Coach:      "Técnico",
}

// aliases are matched as substrings of the lower-cased label. A label must
// hit the aliases of exactly one role.
var aliases = map[Role][]string{
	Goalkeeper: {"gol", "keeper", "gk"},
	Defender:   {"def", "zag", "lat", "back"},
	Midfielder: {"mei", "mid"},
	Forward:    {"ata", "avanc", "avanç", "forward", "striker", "attack"},
	Coach:      {"tec", "téc", "coach", "manager", "treinador"},
}

// Parse resolves a free-form label such as "Atacante", "ZAG" or "gk".
func Parse(label string) (Role, error) {
	normalized := strings.ToLower(strings.TrimSpace(label))
	if normalized == "" {
		return Unknown, fmt.Errorf("%w: empty label", ErrUnknownRole)
	}

	var matched []Role
	for _, r := range All {
		for _, alias := range aliases[r] {
			if strings.Contains(normalized, alias) {
				matched = append(matched, r)
				break
			}
		}
	}

	switch len(matched) {
	case 0:
		return Unknown, fmt.Errorf("%w: %q", ErrUnknownRole, label)
	case 1:
		return matched[0], nil
	default:
		found := make([]string, len(matched))
		for i, r := range matched {
			found[i] = r.Key()
		}
		sort.Strings(found)
		return Unknown, fmt.Errorf("%w: %q matches %s", ErrAmbiguousRole, label, strings.Join(found, ","))
	}
}

// MustParse is Parse for static labels.
func MustParse(label string) Role {
	r, err := Parse(label)
	if err != nil {
		panic(err)
	}
	return r
}

// Key is the short canonical code (GOL, DEF, MEI, ATA, TEC).
func (r Role) Key() string {
	if k, ok := keys[r]; ok {
		return k
	}
	return "UNKNOWN"
}

func (r Role) String() string {
	if n, ok := names[r]; ok {
		return n
	}
	return "Unknown"
}

func (r Role) Valid() bool {
	_, ok := keys[r]
	return ok
}

// IsAttacking reports whether scoring uses the offensive blend for r.
func (r Role) IsAttacking() bool {
	return r == Forward
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRole, int(r))
	}
	return []byte(r.Key()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
