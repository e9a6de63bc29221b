package combat

import (
	"errors"
	"fmt"

	"github.com/pixelarena/arena-server-go/internal/game/character"
	"github.com/pixelarena/arena-server-go/internal/game/dice"
)

// ErrAbilityIndexOutOfRange is returned when the actor has no ability at the requested index.
var ErrAbilityIndexOutOfRange = errors.New("ability index out of range")

// Outcome is the resolved result of one action: *AttackOutcome or *HealOutcome.
type Outcome interface {
	outcome()
}

// HealOutcome is the result of a healing ability.
type HealOutcome struct {
	Ability string
	Roll    dice.Roll
	// Amount is the rolled heal clamped to >= 0.
	Amount int
	// NewHitPoints is the target's hit points after the heal, capped at max.
	NewHitPoints int
}

func (*AttackOutcome) outcome() {}
func (*HealOutcome) outcome()   {}

// Dispatcher routes abilities to the resolver by variant.
type Dispatcher struct {
	resolver *Resolver
	roller   dice.Roller
}

// NewDispatcher creates a dispatcher sharing the dice source with its resolver.
func NewDispatcher(src dice.Source) *Dispatcher {
	return &Dispatcher{
		resolver: NewResolver(src),
		roller:   dice.NewRoller(src),
	}
}

// Resolver exposes the attack resolver used for basic attacks.
func (d *Dispatcher) Resolver() *Resolver {
	return d.resolver
}

// BasicAttack resolves a single-swing weapon attack as an outcome.
func (d *Dispatcher) BasicAttack(actor, target *character.Combatant, damageDie string) (*AttackOutcome, error) {
	s, err := d.resolver.ResolveBasicAttack(actor, target, damageDie)
	if err != nil {
		return nil, err
	}
	return &AttackOutcome{Swings: []Swing{s}, TotalDamage: s.Damage}, nil
}

// UseAbility resolves the actor's ability at index against target. For a
// heal the target is the combatant receiving hit points.
func (d *Dispatcher) UseAbility(actor, target *character.Combatant, index int) (Outcome, error) {
	ability, ok := actor.Ability(index)
	if !ok {
		return nil, fmt.Errorf("%w: %s has %d abilities, got index %d", ErrAbilityIndexOutOfRange, actor.Name, len(actor.Abilities), index)
	}
	if err := ability.Validate(); err != nil {
		return nil, err
	}

	switch a := ability.(type) {
	case character.Healing:
		roll, err := d.roller.RollNotation(a.HealingDice)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", actor.Name, a.Name, err)
		}
		amount := roll.Total
		if amount < 0 {
			amount = 0
		}
		newHP := target.HitPoints + amount
		if newHP > target.MaxHitPoints {
			newHP = target.MaxHitPoints
		}
		return &HealOutcome{
			Ability:      a.Name,
			Roll:         roll,
			Amount:       amount,
			NewHitPoints: newHP,
		}, nil
	case character.Attack:
		out, err := d.resolver.ResolveAttackAbility(actor, target, a)
		if err != nil {
			return nil, err
		}
		return &out, nil
	default:
		return nil, fmt.Errorf("%w: %T", character.ErrUnknownAbilityKind, ability)
	}
}
