package targeting

import (
	"errors"
	"fmt"

	"github.com/pixelarena/arena-server-go/internal/game/rules"
)

// ErrInvalidTarget is returned when a target does not satisfy an action's requirement.
var ErrInvalidTarget = errors.New("invalid target")

// TargetValidator validates that selected targets are legal.
type TargetValidator struct {
	state TargetStateAccessor
}

// TargetStateAccessor provides access to match state needed for target validation.
type TargetStateAccessor interface {
	// FindCombatantForTarget returns the seated combatant in a role.
	FindCombatantForTarget(role rules.Role) (TargetCombatantInfo, bool)
}

// TargetCombatantInfo provides information about a combatant for target validation.
type TargetCombatantInfo struct {
	Role      rules.Role
	Name      string
	HitPoints int
	Down      bool
}

// NewTargetValidator creates a new target validator.
func NewTargetValidator(state TargetStateAccessor) *TargetValidator {
	return &TargetValidator{
		state: state,
	}
}

// ValidateTarget checks if target is valid for an action by actor.
func (tv *TargetValidator) ValidateTarget(actor, target rules.Role, requirement TargetRequirement) error {
	if tv == nil || tv.state == nil {
		return fmt.Errorf("target validator not initialized")
	}

	info, ok := tv.state.FindCombatantForTarget(target)
	if !ok {
		return fmt.Errorf("%w: %s is not seated", ErrInvalidTarget, target)
	}
	if info.Down {
		return fmt.Errorf("%w: %s is down", ErrInvalidTarget, info.Name)
	}

	switch requirement.Type {
	case TargetTypeEnemy:
		if actor.Allies(target) {
			return fmt.Errorf("%w: %s is not an enemy of %s", ErrInvalidTarget, target, actor)
		}
	case TargetTypeAlly:
		if !actor.Allies(target) {
			return fmt.Errorf("%w: %s is not an ally of %s", ErrInvalidTarget, target, actor)
		}
	default:
		return fmt.Errorf("%w: unknown requirement %q", ErrInvalidTarget, requirement.Type)
	}
	return nil
}

// ValidateTargetSelection validates a complete selection.
func (tv *TargetValidator) ValidateTargetSelection(selection *TargetSelection) error {
	if tv == nil {
		return fmt.Errorf("target validator not initialized")
	}
	if err := selection.Validate(); err != nil {
		return err
	}
	return tv.ValidateTarget(selection.Actor, selection.Target, selection.Requirement)
}

// DefaultTarget picks a legal target when the caller did not name one:
// the opposing primary (or a standing opposing support) for attacks, the
// actor itself for heals.
func (tv *TargetValidator) DefaultTarget(actor rules.Role, requirement TargetRequirement) (rules.Role, error) {
	var candidates []rules.Role
	switch requirement.Type {
	case TargetTypeEnemy:
		opp := actor.Opponent()
		candidates = []rules.Role{opp}
		for _, r := range rules.RotationOrder {
			if r != opp && !actor.Allies(r) {
				candidates = append(candidates, r)
			}
		}
	case TargetTypeAlly:
		candidates = []rules.Role{actor}
	}
	for _, r := range candidates {
		if tv.ValidateTarget(actor, r, requirement) == nil {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: no %s available for %s", ErrInvalidTarget, requirement.Description, actor)
}
