package character

import (
	"testing"

	"github.com/pixelarena/arena-server-go/internal/game/dice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fighter() *Combatant {
	return &Combatant{
		Name:          "Brakka",
		HitPoints:     12,
		MaxHitPoints:  30,
		ArmorClass:    15,
		AttackBonus:   5,
		BaseDamageDie: "1d6",
		MeleeDie:      "1d10",
		Abilities: []Ability{
			Attack{Name: "Flurry", DamageDice: "1d6", RequiresToHitRoll: true, NumberOfAttacks: 3},
			Healing{Name: "Second Wind", HealingDice: "1d8+3"},
		},
	}
}

func TestBasicAttackDieOverrides(t *testing.T) {
	c := fighter()
	assert.Equal(t, "1d10", c.BasicAttackDie(AttackModeMelee))
	assert.Equal(t, "1d6", c.BasicAttackDie(AttackModeRanged), "no ranged override falls back to base die")
	assert.Equal(t, "1d6", c.BasicAttackDie(AttackModeBase))
}

func TestParseAttackMode(t *testing.T) {
	m, err := ParseAttackMode("Ranged")
	require.NoError(t, err)
	assert.Equal(t, AttackModeRanged, m)

	m, err = ParseAttackMode("base")
	require.NoError(t, err)
	assert.Equal(t, AttackModeBase, m)

	_, err = ParseAttackMode("thrown")
	require.Error(t, err)
}

func TestCombatantValidate(t *testing.T) {
	require.NoError(t, fighter().Validate())

	c := fighter()
	c.MaxHitPoints = 0
	require.ErrorIs(t, c.Validate(), ErrInvalidCombatant)

	c = fighter()
	c.HitPoints = 31
	require.ErrorIs(t, c.Validate(), ErrInvalidCombatant)

	c = fighter()
	c.RangedDie = "bow"
	require.ErrorIs(t, c.Validate(), dice.ErrMalformedDiceNotation)

	c = fighter()
	c.Abilities = append(c.Abilities, Attack{Name: "Empty"})
	require.ErrorIs(t, c.Validate(), ErrAbilityMissingField)
}

func TestAtFullHealthCopies(t *testing.T) {
	c := fighter()
	full := c.AtFullHealth()
	assert.Equal(t, 30, full.HitPoints)
	assert.Equal(t, 12, c.HitPoints, "original must not change")
	full.Abilities[0] = Healing{Name: "Swap", HealingDice: "1d4"}
	assert.Equal(t, "Flurry", c.Abilities[0].AbilityName())
}

func TestFromRecord(t *testing.T) {
	a, err := FromRecord(Record{Name: "Sneak", Kind: "attack", DamageDice: "1d4", BonusDamageDice: "2d6", RequiresToHitRoll: true})
	require.NoError(t, err)
	atk, ok := a.(Attack)
	require.True(t, ok)
	assert.Equal(t, 1, atk.Swings())
	assert.Equal(t, "2d6", atk.BonusDamageDice)

	h, err := FromRecord(Record{Name: "Cure", Kind: "HEALING", HealingDice: "1d8+3"})
	require.NoError(t, err)
	assert.Equal(t, AbilityKindHealing, h.Kind())
}

func TestFromRecordRejectsBadData(t *testing.T) {
	_, err := FromRecord(Record{Name: "Smite", Kind: "buff"})
	require.ErrorIs(t, err, ErrUnknownAbilityKind)

	_, err = FromRecord(Record{Name: "Smite", Kind: "attack"})
	require.ErrorIs(t, err, ErrAbilityMissingField)

	_, err = FromRecord(Record{Name: "Cure", Kind: "healing", DamageDice: "1d8"})
	require.ErrorIs(t, err, ErrAbilityMissingField, "attack fields do not satisfy a heal")

	_, err = FromRecord(Record{Kind: "healing", HealingDice: "1d8"})
	require.ErrorIs(t, err, ErrAbilityMissingField)

	_, err = FromRecord(Record{Name: "Bolt", Kind: "attack", DamageDice: "1d0"})
	require.ErrorIs(t, err, dice.ErrMalformedDiceNotation)
}

func TestRecordRoundTrip(t *testing.T) {
	for _, a := range fighter().Abilities {
		back, err := FromRecord(ToRecord(a))
		require.NoError(t, err)
		assert.Equal(t, a, back)
	}
}

func TestSheetRoundTrip(t *testing.T) {
	c := fighter()
	back, err := FromSheet(ToSheet(c))
	require.NoError(t, err)
	assert.Equal(t, 30, back.HitPoints, "sheets always seat at full health")
	assert.Equal(t, c.Abilities, back.Abilities)
	assert.Equal(t, c.MeleeDie, back.MeleeDie)
}

func TestFromSheetRejectsBadData(t *testing.T) {
	_, err := FromSheet(Sheet{Name: "Nobody", MaxHitPoints: 10, BaseDamageDie: "1d4",
		Abilities: []Record{{Name: "Zap", Kind: "lightning"}}})
	require.ErrorIs(t, err, ErrUnknownAbilityKind)

	_, err = FromSheet(Sheet{Name: "Nobody", MaxHitPoints: 0, BaseDamageDie: "1d4"})
	require.ErrorIs(t, err, ErrInvalidCombatant)
}
