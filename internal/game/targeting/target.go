package targeting

import (
	"fmt"

	"github.com/pixelarena/arena-server-go/internal/game/rules"
)

// TargetType represents which side of the field an action may target.
type TargetType string

const (
	// TargetTypeEnemy targets a standing combatant on the opposing side.
	TargetTypeEnemy TargetType = "ENEMY"
	// TargetTypeAlly targets a standing combatant on the actor's side, self included.
	TargetTypeAlly TargetType = "ALLY"
)

// TargetRequirement defines what target an action requires.
type TargetRequirement struct {
	Type        TargetType
	Description string
}

var (
	// EnemyRequirement applies to basic attacks and attack abilities.
	EnemyRequirement = TargetRequirement{Type: TargetTypeEnemy, Description: "standing enemy"}
	// AllyRequirement applies to healing abilities.
	AllyRequirement = TargetRequirement{Type: TargetTypeAlly, Description: "standing ally or self"}
)

// TargetSelection pairs the chosen role with the requirement it must satisfy.
type TargetSelection struct {
	Actor       rules.Role
	Target      rules.Role
	Requirement TargetRequirement
}

// Validate checks the selection is fully populated.
func (ts *TargetSelection) Validate() error {
	if ts == nil {
		return fmt.Errorf("target selection is nil")
	}
	if ts.Actor == "" {
		return fmt.Errorf("%w: missing actor", ErrInvalidTarget)
	}
	if ts.Target == "" {
		return fmt.Errorf("%w: missing target", ErrInvalidTarget)
	}
	return nil
}
