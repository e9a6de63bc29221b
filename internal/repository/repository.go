// Package repository provides read-only access to stored character sheets.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pixelarena/arena-server-go/internal/game/character"
)

// ErrCharacterNotFound is returned when no character has the requested name.
var ErrCharacterNotFound = errors.New("character not found")

// CharacterStore loads characters for seating. The engine never writes back;
// battles mutate their own copies.
type CharacterStore interface {
	GetCharacter(ctx context.Context, name string) (*character.Combatant, error)
	ListCharacters(ctx context.Context) ([]*character.Combatant, error)
	Close() error
}

// normalizeName is the lookup key for a character name.
func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// row is the column layout shared by the SQL stores.
type row struct {
	name          string
	maxHitPoints  int
	armorClass    int
	attackBonus   int
	baseDamageDie string
	meleeDie      string
	rangedDie     string
	abilities     string
}

func (r row) combatant() (*character.Combatant, error) {
	sheet := character.Sheet{
		Name:          r.name,
		MaxHitPoints:  r.maxHitPoints,
		ArmorClass:    r.armorClass,
		AttackBonus:   r.attackBonus,
		BaseDamageDie: r.baseDamageDie,
		MeleeDie:      r.meleeDie,
		RangedDie:     r.rangedDie,
	}
	if strings.TrimSpace(r.abilities) != "" {
		if err := json.Unmarshal([]byte(r.abilities), &sheet.Abilities); err != nil {
			return nil, fmt.Errorf("decode abilities of %q: %w", r.name, err)
		}
	}
	c, err := character.FromSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", r.name, err)
	}
	return c, nil
}

func rowFromCombatant(c *character.Combatant) (row, error) {
	sheet := character.ToSheet(c)
	abilities, err := json.Marshal(sheet.Abilities)
	if err != nil {
		return row{}, fmt.Errorf("encode abilities of %q: %w", c.Name, err)
	}
	return row{
		name:          sheet.Name,
		maxHitPoints:  sheet.MaxHitPoints,
		armorClass:    sheet.ArmorClass,
		attackBonus:   sheet.AttackBonus,
		baseDamageDie: sheet.BaseDamageDie,
		meleeDie:      sheet.MeleeDie,
		rangedDie:     sheet.RangedDie,
		abilities:     string(abilities),
	}, nil
}
