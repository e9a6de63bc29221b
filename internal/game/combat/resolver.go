// Package combat resolves attacks and abilities into outcomes.
//
// Everything here is a pure function of its arguments and the dice source:
// nothing mutates a Combatant. Applying an outcome is the caller's job.
package combat

import (
	"fmt"

	"github.com/pixelarena/arena-server-go/internal/game/character"
	"github.com/pixelarena/arena-server-go/internal/game/dice"
)

// Swing is one to-hit-and-damage resolution.
type Swing struct {
	// D20 is the raw d20 face; 0 when the swing needed no to-hit roll.
	D20 int
	// ToHitTotal is D20 + attack bonus; 0 for automatic hits.
	ToHitTotal int
	// AutoHit is set when the ability skips the to-hit roll.
	AutoHit bool
	Hit     bool
	// Damage is the clamped damage of a hit (never negative); 0 on a miss.
	Damage int
	// DamageRoll and BonusRoll are the rolls behind Damage, when hit.
	DamageRoll *dice.Roll
	BonusRoll  *dice.Roll
}

// AttackOutcome is the result of a basic attack or an attack ability.
type AttackOutcome struct {
	// Ability is empty for a basic attack.
	Ability     string
	Swings      []Swing
	TotalDamage int
}

// Hits counts the swings that connected.
func (o AttackOutcome) Hits() int {
	n := 0
	for _, s := range o.Swings {
		if s.Hit {
			n++
		}
	}
	return n
}

// Misses counts the swings that did not connect.
func (o AttackOutcome) Misses() int {
	return len(o.Swings) - o.Hits()
}

// Resolver resolves attacks with a dice roller.
type Resolver struct {
	roller dice.Roller
}

// NewResolver creates a resolver over the given dice source.
func NewResolver(src dice.Source) *Resolver {
	return &Resolver{roller: dice.NewRoller(src)}
}

// ResolveBasicAttack rolls d20 + attack bonus against the defender's AC and,
// on a hit, rolls damageDie. A total equal to AC hits.
func (r *Resolver) ResolveBasicAttack(attacker, defender *character.Combatant, damageDie string) (Swing, error) {
	damage, err := dice.ParseNotation(damageDie)
	if err != nil {
		return Swing{}, fmt.Errorf("%s basic attack: %w", attacker.Name, err)
	}
	return r.swing(attacker, defender, true, damage, nil), nil
}

// ResolveAttackAbility resolves every swing of an attack ability. Swings are
// independent: each rolls its own d20 and, on a hit, its own damage plus
// bonus dice. Bonus dice never apply to a miss.
func (r *Resolver) ResolveAttackAbility(attacker, defender *character.Combatant, ability character.Attack) (AttackOutcome, error) {
	damage, err := dice.ParseNotation(ability.DamageDice)
	if err != nil {
		return AttackOutcome{}, fmt.Errorf("%s %s damage: %w", attacker.Name, ability.Name, err)
	}
	var bonus *dice.Notation
	if ability.BonusDamageDice != "" {
		n, err := dice.ParseNotation(ability.BonusDamageDice)
		if err != nil {
			return AttackOutcome{}, fmt.Errorf("%s %s bonus damage: %w", attacker.Name, ability.Name, err)
		}
		bonus = &n
	}

	out := AttackOutcome{
		Ability: ability.Name,
		Swings:  make([]Swing, 0, ability.Swings()),
	}
	for i := 0; i < ability.Swings(); i++ {
		s := r.swing(attacker, defender, ability.RequiresToHitRoll, damage, bonus)
		out.Swings = append(out.Swings, s)
		out.TotalDamage += s.Damage
	}
	return out, nil
}

func (r *Resolver) swing(attacker, defender *character.Combatant, rollToHit bool, damage dice.Notation, bonus *dice.Notation) Swing {
	s := Swing{AutoHit: !rollToHit, Hit: !rollToHit}
	if rollToHit {
		s.D20 = r.roller.D20()
		s.ToHitTotal = s.D20 + attacker.AttackBonus
		s.Hit = s.ToHitTotal >= defender.ArmorClass
	}
	if !s.Hit {
		return s
	}

	dmg := r.roller.Roll(damage)
	s.DamageRoll = &dmg
	total := dmg.Total
	if bonus != nil {
		b := r.roller.Roll(*bonus)
		s.BonusRoll = &b
		total += b.Total
	}
	if total < 0 {
		total = 0
	}
	s.Damage = total
	return s
}
