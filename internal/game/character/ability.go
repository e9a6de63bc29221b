package character

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pixelarena/arena-server-go/internal/game/dice"
)

var (
	// ErrUnknownAbilityKind is returned for a kind discriminator no variant claims.
	ErrUnknownAbilityKind = errors.New("unknown ability kind")
	// ErrAbilityMissingField is returned when an ability lacks a field its kind requires.
	ErrAbilityMissingField = errors.New("ability missing required field")
)

// AbilityKind is the discriminator used by stored ability records.
type AbilityKind string

const (
	AbilityKindAttack  AbilityKind = "attack"
	AbilityKindHealing AbilityKind = "healing"
)

// Ability is a closed sum over Attack and Healing. Consumers switch on the
// concrete type; no other implementations exist outside this package.
type Ability interface {
	AbilityName() string
	Kind() AbilityKind
	Validate() error
	sealed()
}

// Attack is an ability that deals damage through one or more swings.
type Attack struct {
	Name              string
	DamageDice        string
	RequiresToHitRoll bool
	NumberOfAttacks   int
	BonusDamageDice   string
	Description       string
}

// Healing is an ability that restores hit points to its target.
type Healing struct {
	Name        string
	HealingDice string
	Description string
}

func (a Attack) AbilityName() string { return a.Name }
func (a Attack) Kind() AbilityKind   { return AbilityKindAttack }
func (Attack) sealed()               {}

// Swings returns the number of independent swings, treating 0 as 1.
func (a Attack) Swings() int {
	if a.NumberOfAttacks < 1 {
		return 1
	}
	return a.NumberOfAttacks
}

// Validate checks the attack carries parseable dice.
func (a Attack) Validate() error {
	if strings.TrimSpace(a.DamageDice) == "" {
		return fmt.Errorf("%w: attack %q has no damage dice", ErrAbilityMissingField, a.Name)
	}
	if _, err := dice.ParseNotation(a.DamageDice); err != nil {
		return fmt.Errorf("attack %q damage: %w", a.Name, err)
	}
	if a.BonusDamageDice != "" {
		if _, err := dice.ParseNotation(a.BonusDamageDice); err != nil {
			return fmt.Errorf("attack %q bonus damage: %w", a.Name, err)
		}
	}
	if a.NumberOfAttacks < 0 {
		return fmt.Errorf("attack %q: number of attacks must not be negative", a.Name)
	}
	return nil
}

func (h Healing) AbilityName() string { return h.Name }
func (h Healing) Kind() AbilityKind   { return AbilityKindHealing }
func (Healing) sealed()               {}

// Validate checks the heal carries parseable dice.
func (h Healing) Validate() error {
	if strings.TrimSpace(h.HealingDice) == "" {
		return fmt.Errorf("%w: healing %q has no healing dice", ErrAbilityMissingField, h.Name)
	}
	if _, err := dice.ParseNotation(h.HealingDice); err != nil {
		return fmt.Errorf("healing %q: %w", h.Name, err)
	}
	return nil
}

// Record is the flat shape abilities take in config files and the character store.
type Record struct {
	Name              string      `mapstructure:"name" json:"name"`
	Kind              AbilityKind `mapstructure:"kind" json:"kind"`
	DamageDice        string      `mapstructure:"damage_dice" json:"damage_dice,omitempty"`
	RequiresToHitRoll bool        `mapstructure:"requires_to_hit_roll" json:"requires_to_hit_roll,omitempty"`
	NumberOfAttacks   int         `mapstructure:"number_of_attacks" json:"number_of_attacks,omitempty"`
	BonusDamageDice   string      `mapstructure:"bonus_damage_dice" json:"bonus_damage_dice,omitempty"`
	HealingDice       string      `mapstructure:"healing_dice" json:"healing_dice,omitempty"`
	Description       string      `mapstructure:"description" json:"description,omitempty"`
}

// FromRecord converts a stored record into its variant. Records whose kind
// is unknown or that lack the fields their kind requires are rejected
// rather than defaulted.
func FromRecord(r Record) (Ability, error) {
	kind := AbilityKind(strings.ToLower(strings.TrimSpace(string(r.Kind))))
	var ability Ability
	switch kind {
	case AbilityKindAttack:
		ability = Attack{
			Name:              r.Name,
			DamageDice:        r.DamageDice,
			RequiresToHitRoll: r.RequiresToHitRoll,
			NumberOfAttacks:   r.NumberOfAttacks,
			BonusDamageDice:   r.BonusDamageDice,
			Description:       r.Description,
		}
	case AbilityKindHealing:
		ability = Healing{
			Name:        r.Name,
			HealingDice: r.HealingDice,
			Description: r.Description,
		}
	default:
		return nil, fmt.Errorf("%w: %q on ability %q", ErrUnknownAbilityKind, r.Kind, r.Name)
	}
	if strings.TrimSpace(r.Name) == "" {
		return nil, fmt.Errorf("%w: %s ability has no name", ErrAbilityMissingField, kind)
	}
	if err := ability.Validate(); err != nil {
		return nil, err
	}
	return ability, nil
}

// ToRecord flattens an ability for storage.
func ToRecord(a Ability) Record {
	switch v := a.(type) {
	case Attack:
		return Record{
			Name:              v.Name,
			Kind:              AbilityKindAttack,
			DamageDice:        v.DamageDice,
			RequiresToHitRoll: v.RequiresToHitRoll,
			NumberOfAttacks:   v.NumberOfAttacks,
			BonusDamageDice:   v.BonusDamageDice,
			Description:       v.Description,
		}
	case Healing:
		return Record{
			Name:        v.Name,
			Kind:        AbilityKindHealing,
			HealingDice: v.HealingDice,
			Description: v.Description,
		}
	default:
		return Record{}
	}
}
