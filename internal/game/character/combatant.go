// Package character defines combatant stat blocks and their abilities.
package character

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pixelarena/arena-server-go/internal/game/dice"
)

// ErrInvalidCombatant indicates a stat block that cannot enter a battle.
var ErrInvalidCombatant = errors.New("invalid combatant")

// AttackMode selects which die a basic attack rolls.
type AttackMode string

const (
	AttackModeBase   AttackMode = ""
	AttackModeMelee  AttackMode = "melee"
	AttackModeRanged AttackMode = "ranged"
)

// ParseAttackMode accepts "", "base", "melee" and "ranged".
func ParseAttackMode(s string) (AttackMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "base":
		return AttackModeBase, nil
	case "melee":
		return AttackModeMelee, nil
	case "ranged":
		return AttackModeRanged, nil
	default:
		return AttackModeBase, fmt.Errorf("unknown attack mode %q", s)
	}
}

// Combatant is a stat block taking part in a battle.
type Combatant struct {
	Name          string
	HitPoints     int
	MaxHitPoints  int
	ArmorClass    int
	AttackBonus   int
	BaseDamageDie string
	MeleeDie      string
	RangedDie     string
	Abilities     []Ability
}

// BasicAttackDie returns the die a basic attack uses for the given mode,
// falling back to the base die when no override is set.
func (c *Combatant) BasicAttackDie(mode AttackMode) string {
	switch mode {
	case AttackModeMelee:
		if c.MeleeDie != "" {
			return c.MeleeDie
		}
	case AttackModeRanged:
		if c.RangedDie != "" {
			return c.RangedDie
		}
	}
	return c.BaseDamageDie
}

// Ability returns the ability at index, or false when absent.
func (c *Combatant) Ability(index int) (Ability, bool) {
	if index < 0 || index >= len(c.Abilities) {
		return nil, false
	}
	return c.Abilities[index], true
}

// IsDown reports whether the combatant has no hit points left.
func (c *Combatant) IsDown() bool {
	return c.HitPoints <= 0
}

// Validate checks the stat block invariants and every ability.
func (c *Combatant) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil combatant", ErrInvalidCombatant)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidCombatant)
	}
	if c.MaxHitPoints <= 0 {
		return fmt.Errorf("%w: %s max hit points must be positive", ErrInvalidCombatant, c.Name)
	}
	if c.HitPoints < 0 || c.HitPoints > c.MaxHitPoints {
		return fmt.Errorf("%w: %s hit points %d outside 0..%d", ErrInvalidCombatant, c.Name, c.HitPoints, c.MaxHitPoints)
	}
	for _, die := range []string{c.BaseDamageDie, c.MeleeDie, c.RangedDie} {
		if die == "" {
			continue
		}
		if _, err := dice.ParseNotation(die); err != nil {
			return fmt.Errorf("%s weapon die: %w", c.Name, err)
		}
	}
	if c.BaseDamageDie == "" {
		return fmt.Errorf("%w: %s base damage die is required", ErrInvalidCombatant, c.Name)
	}
	for i, a := range c.Abilities {
		if a == nil {
			return fmt.Errorf("%w: %s ability %d is nil", ErrAbilityMissingField, c.Name, i)
		}
		if err := a.Validate(); err != nil {
			return fmt.Errorf("%s ability %d: %w", c.Name, i, err)
		}
	}
	return nil
}

// AtFullHealth returns a copy with hit points reset to max. Ability values
// are immutable, so the slice is copied shallowly.
func (c *Combatant) AtFullHealth() *Combatant {
	cpy := *c
	cpy.HitPoints = cpy.MaxHitPoints
	cpy.Abilities = append([]Ability(nil), c.Abilities...)
	return &cpy
}

// Sheet is the flat shape a combatant takes in config files and the
// character store. Hit points are not stored; a seated combatant always
// starts at MaxHitPoints.
type Sheet struct {
	Name          string   `mapstructure:"name" json:"name"`
	MaxHitPoints  int      `mapstructure:"max_hit_points" json:"max_hit_points"`
	ArmorClass    int      `mapstructure:"armor_class" json:"armor_class"`
	AttackBonus   int      `mapstructure:"attack_bonus" json:"attack_bonus"`
	BaseDamageDie string   `mapstructure:"base_damage_die" json:"base_damage_die"`
	MeleeDie      string   `mapstructure:"melee_die" json:"melee_die,omitempty"`
	RangedDie     string   `mapstructure:"ranged_die" json:"ranged_die,omitempty"`
	Abilities     []Record `mapstructure:"abilities" json:"abilities"`
}

// FromSheet builds and validates a combatant at full health.
func FromSheet(s Sheet) (*Combatant, error) {
	c := &Combatant{
		Name:          strings.TrimSpace(s.Name),
		HitPoints:     s.MaxHitPoints,
		MaxHitPoints:  s.MaxHitPoints,
		ArmorClass:    s.ArmorClass,
		AttackBonus:   s.AttackBonus,
		BaseDamageDie: s.BaseDamageDie,
		MeleeDie:      s.MeleeDie,
		RangedDie:     s.RangedDie,
	}
	for i, r := range s.Abilities {
		a, err := FromRecord(r)
		if err != nil {
			return nil, fmt.Errorf("%s ability %d: %w", c.Name, i, err)
		}
		c.Abilities = append(c.Abilities, a)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// ToSheet flattens the combatant for storage.
func ToSheet(c *Combatant) Sheet {
	s := Sheet{
		Name:          c.Name,
		MaxHitPoints:  c.MaxHitPoints,
		ArmorClass:    c.ArmorClass,
		AttackBonus:   c.AttackBonus,
		BaseDamageDie: c.BaseDamageDie,
		MeleeDie:      c.MeleeDie,
		RangedDie:     c.RangedDie,
		Abilities:     make([]Record, 0, len(c.Abilities)),
	}
	for _, a := range c.Abilities {
		s.Abilities = append(s.Abilities, ToRecord(a))
	}
	return s
}
