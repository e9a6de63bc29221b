package game

import (
	"time"

	"github.com/pixelarena/arena-server-go/internal/game/character"
	"github.com/pixelarena/arena-server-go/internal/game/rules"
	"github.com/pixelarena/arena-server-go/internal/game/watchers"
)

// AbilityView describes an ability for the UI.
type AbilityView struct {
	Index       int    `json:"index"`
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Dice        string `json:"dice"`
	BonusDice   string `json:"bonus_dice,omitempty"`
	Swings      int    `json:"swings,omitempty"`
	AutoHit     bool   `json:"auto_hit,omitempty"`
	Description string `json:"description,omitempty"`
}

// CombatantView is a read-only copy of a seated combatant.
type CombatantView struct {
	Role         rules.Role         `json:"role"`
	Side         string             `json:"side"`
	Name         string             `json:"name"`
	HitPoints    int                `json:"hit_points"`
	MaxHitPoints int                `json:"max_hit_points"`
	ArmorClass   int                `json:"armor_class"`
	AttackBonus  int                `json:"attack_bonus"`
	BasicDie     string             `json:"basic_die"`
	Down         bool               `json:"down"`
	AIControlled bool               `json:"ai_controlled"`
	Abilities    []AbilityView      `json:"abilities"`
	Stats        watchers.RoleStats `json:"stats"`
}

// MatchView is an immutable snapshot of a match.
type MatchView struct {
	ID             string          `json:"id"`
	CurrentTurn    rules.Role      `json:"current_turn"`
	TurnNumber     int             `json:"turn_number"`
	MoveInProgress bool            `json:"move_in_progress"`
	Over           bool            `json:"over"`
	Victor         rules.Role      `json:"victor,omitempty"`
	Defeated       rules.Role      `json:"defeated,omitempty"`
	Combatants     []CombatantView `json:"combatants"`
	Log            []string        `json:"log"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Combatant returns the view for role.
func (v MatchView) Combatant(role rules.Role) (CombatantView, bool) {
	for _, c := range v.Combatants {
		if c.Role == role {
			return c, true
		}
	}
	return CombatantView{}, false
}

// Snapshot captures a consistent view of the match, combatants in rotation order.
func (m *Match) Snapshot() MatchView {
	m.mu.RLock()
	view := MatchView{
		ID:             m.id,
		CurrentTurn:    m.turns.Current(),
		TurnNumber:     m.turns.TurnNumber(),
		MoveInProgress: m.moveInProgress,
		Over:           m.victorRole != "",
		Victor:         m.victorRole,
		Defeated:       m.defeatedRole,
		Log:            append([]string(nil), m.log...),
		CreatedAt:      m.createdAt,
	}
	for _, role := range rules.RotationOrder {
		c, ok := m.combatants[role]
		if !ok {
			continue
		}
		view.Combatants = append(view.Combatants, CombatantView{
			Role:         role,
			Side:         role.Side().String(),
			Name:         c.Name,
			HitPoints:    c.HitPoints,
			MaxHitPoints: c.MaxHitPoints,
			ArmorClass:   c.ArmorClass,
			AttackBonus:  c.AttackBonus,
			BasicDie:     c.BasicAttackDie(m.attackModes[role]),
			Down:         c.IsDown(),
			AIControlled: m.aiControlled[role],
			Abilities:    abilityViews(c.Abilities),
		})
	}
	m.mu.RUnlock()

	for i := range view.Combatants {
		view.Combatants[i].Stats = m.stats.Stats(view.Combatants[i].Role)
	}
	return view
}

func abilityViews(abilities []character.Ability) []AbilityView {
	out := make([]AbilityView, 0, len(abilities))
	for i, a := range abilities {
		v := AbilityView{Index: i, Name: a.AbilityName(), Kind: string(a.Kind())}
		switch ab := a.(type) {
		case character.Attack:
			v.Dice = ab.DamageDice
			v.BonusDice = ab.BonusDamageDice
			v.Swings = ab.Swings()
			v.AutoHit = !ab.RequiresToHitRoll
			v.Description = ab.Description
		case character.Healing:
			v.Dice = ab.HealingDice
			v.Description = ab.Description
		}
		out = append(out, v)
	}
	return out
}
