package rules

import (
	"fmt"
	"strings"
)

// Role identifies a combatant slot in a match.
type Role string

const (
	RolePrimary1 Role = "primary1"
	RolePrimary2 Role = "primary2"
	RoleSupport1 Role = "support1"
	RoleSupport2 Role = "support2"
)

// Side groups the roles that fight together.
type Side int

const (
	SideNone Side = iota
	SideA
	SideB
)

func (s Side) String() string {
	switch s {
	case SideA:
		return "A"
	case SideB:
		return "B"
	default:
		return fmt.Sprintf("SIDE_%d", int(s))
	}
}

// RotationOrder is the fixed turn order; it alternates sides.
var RotationOrder = []Role{RolePrimary1, RolePrimary2, RoleSupport1, RoleSupport2}

var roleSides = map[Role]Side{
	RolePrimary1: SideA,
	RoleSupport1: SideA,
	RolePrimary2: SideB,
	RoleSupport2: SideB,
}

// ParseRole normalizes and validates a role name.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := roleSides[r]; !ok {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Side returns the side the role fights on.
func (r Role) Side() Side {
	return roleSides[r]
}

// IsPrimary reports whether the role is one of the two primaries.
func (r Role) IsPrimary() bool {
	return r == RolePrimary1 || r == RolePrimary2
}

// Opponent returns the opposing primary for any role.
func (r Role) Opponent() Role {
	if r.Side() == SideA {
		return RolePrimary2
	}
	return RolePrimary1
}

// Allies reports whether both roles fight on the same side.
func (r Role) Allies(other Role) bool {
	return r.Side() != SideNone && r.Side() == other.Side()
}

// TurnManager tracks whose turn it is and rotates through the seated roles.
type TurnManager struct {
	order      []Role
	current    Role
	turnNumber int
	removed    map[Role]bool
}

// NewTurnManager creates a turn manager over the seated roles, in rotation
// order, starting with the first seated role.
func NewTurnManager(seated []Role) *TurnManager {
	present := make(map[Role]bool, len(seated))
	for _, r := range seated {
		present[r] = true
	}
	order := make([]Role, 0, len(seated))
	for _, r := range RotationOrder {
		if present[r] {
			order = append(order, r)
		}
	}
	tm := &TurnManager{
		order:      order,
		turnNumber: 1,
		removed:    make(map[Role]bool),
	}
	if len(order) > 0 {
		tm.current = order[0]
	}
	return tm
}

// Current returns the role whose turn it is.
func (tm *TurnManager) Current() Role {
	return tm.current
}

// TurnNumber returns the 1-based count of turns taken so far.
func (tm *TurnManager) TurnNumber() int {
	return tm.turnNumber
}

// Remove takes a role out of the rotation (e.g. a downed support).
func (tm *TurnManager) Remove(r Role) {
	tm.removed[r] = true
}

// Order returns the roles still in rotation.
func (tm *TurnManager) Order() []Role {
	out := make([]Role, 0, len(tm.order))
	for _, r := range tm.order {
		if !tm.removed[r] {
			out = append(out, r)
		}
	}
	return out
}

// Advance moves the turn from acting to the next role still in rotation.
// It returns false, leaving the turn untouched, when only one side has
// roles left in rotation.
func (tm *TurnManager) Advance(acting Role) (Role, bool) {
	sides := make(map[Side]bool)
	for _, r := range tm.Order() {
		sides[r.Side()] = true
	}
	if len(sides) < 2 {
		return tm.current, false
	}

	start := -1
	for i, r := range tm.order {
		if r == acting {
			start = i
			break
		}
	}
	for step := 1; step <= len(tm.order); step++ {
		next := tm.order[(start+step+len(tm.order))%len(tm.order)]
		if tm.removed[next] {
			continue
		}
		tm.current = next
		tm.turnNumber++
		return next, true
	}
	return tm.current, false
}
