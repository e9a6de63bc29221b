// Package agent chooses moves for AI-controlled combatants.
package agent

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pixelarena/arena-server-go/internal/game"
	"github.com/pixelarena/arena-server-go/internal/game/character"
	"github.com/pixelarena/arena-server-go/internal/game/dice"
	"github.com/pixelarena/arena-server-go/internal/game/rules"
)

var (
	// ErrNotSeated is returned when the planner is asked to move for an absent role.
	ErrNotSeated = errors.New("role not seated")
	// ErrNoTarget is returned when no enemy is left standing.
	ErrNoTarget = errors.New("no standing enemy")
)

// healThreshold is the fraction of max hit points below which a wounded
// ally is healed instead of attacking.
const healThreshold = 0.5

// Planner is a greedy policy: patch up a badly wounded ally when it can,
// otherwise take the swing with the best expected damage.
type Planner struct {
	logger *zap.Logger
}

// NewPlanner creates a planner.
func NewPlanner(logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{logger: logger}
}

// Plan implements game.Planner.
func (p *Planner) Plan(view game.MatchView, role rules.Role) (game.Action, error) {
	me, ok := view.Combatant(role)
	if !ok {
		return game.Action{}, fmt.Errorf("%w: %s", ErrNotSeated, role)
	}

	if action, ok := p.planHeal(view, me); ok {
		return action, nil
	}

	target, ok := pickTarget(view, role)
	if !ok {
		return game.Action{}, fmt.Errorf("%w for %s", ErrNoTarget, role)
	}

	best := game.Action{Actor: role, Kind: game.ActionBasicAttack, Target: target.Role}
	bestDamage := expectedSwing(me.AttackBonus, target.ArmorClass, false, me.BasicDie, "")
	for _, a := range me.Abilities {
		if a.Kind != string(character.AbilityKindAttack) {
			continue
		}
		dmg := float64(max(a.Swings, 1)) * expectedSwing(me.AttackBonus, target.ArmorClass, a.AutoHit, a.Dice, a.BonusDice)
		if dmg > bestDamage {
			bestDamage = dmg
			best = game.Action{Actor: role, Kind: game.ActionAbility, AbilityIndex: a.Index, Target: target.Role}
		}
	}

	p.logger.Debug("planned attack",
		zap.String("match_id", view.ID),
		zap.String("action", best.String()),
		zap.Float64("expected_damage", bestDamage),
	)
	return best, nil
}

// planHeal heals the most wounded standing ally under the threshold.
func (p *Planner) planHeal(view game.MatchView, me game.CombatantView) (game.Action, bool) {
	heal := -1
	bestMean := 0.0
	for _, a := range me.Abilities {
		if a.Kind != string(character.AbilityKindHealing) {
			continue
		}
		mean := notationMean(a.Dice)
		if heal < 0 || mean > bestMean {
			heal, bestMean = a.Index, mean
		}
	}
	if heal < 0 {
		return game.Action{}, false
	}

	var patient *game.CombatantView
	for i := range view.Combatants {
		c := &view.Combatants[i]
		if c.Down || !me.Role.Allies(c.Role) {
			continue
		}
		if hpFraction(*c) >= healThreshold {
			continue
		}
		if patient == nil || hpFraction(*c) < hpFraction(*patient) {
			patient = c
		}
	}
	if patient == nil {
		return game.Action{}, false
	}

	p.logger.Debug("planned heal",
		zap.String("match_id", view.ID),
		zap.String("actor", string(me.Role)),
		zap.String("target", string(patient.Role)),
		zap.Int("hit_points", patient.HitPoints),
	)
	return game.Action{Actor: me.Role, Kind: game.ActionAbility, AbilityIndex: heal, Target: patient.Role}, true
}

// pickTarget prefers the opposing primary, since felling it ends the match.
func pickTarget(view game.MatchView, role rules.Role) (game.CombatantView, bool) {
	if c, ok := view.Combatant(role.Opponent()); ok && !c.Down {
		return c, true
	}
	for _, c := range view.Combatants {
		if !c.Down && c.Role.Side() != role.Side() {
			return c, true
		}
	}
	return game.CombatantView{}, false
}

// expectedSwing is hit chance times mean damage. A tie on the to-hit roll hits.
func expectedSwing(attackBonus, armorClass int, autoHit bool, damageDice, bonusDice string) float64 {
	chance := 1.0
	if !autoHit {
		need := armorClass - attackBonus
		chance = float64(21-need) / 20
		chance = min(max(chance, 0), 1)
	}
	damage := notationMean(damageDice)
	if bonusDice != "" {
		damage += notationMean(bonusDice)
	}
	return chance * max(damage, 0)
}

func notationMean(s string) float64 {
	n, err := dice.ParseNotation(s)
	if err != nil {
		return 0
	}
	return n.Mean()
}

func hpFraction(c game.CombatantView) float64 {
	if c.MaxHitPoints <= 0 {
		return 1
	}
	return float64(c.HitPoints) / float64(c.MaxHitPoints)
}
