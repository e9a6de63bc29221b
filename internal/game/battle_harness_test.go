package game

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pixelarena/arena-server-go/internal/game/character"
	"github.com/pixelarena/arena-server-go/internal/game/dice"
	"github.com/pixelarena/arena-server-go/internal/game/effects"
	"github.com/pixelarena/arena-server-go/internal/game/rules"
	"github.com/pixelarena/arena-server-go/internal/narration"
)

// recordingVisualizer holds every effect until the test acknowledges it.
type recordingVisualizer struct {
	mu       sync.Mutex
	requests []effects.Request
	acks     []effects.AckFunc
	failAt   int // 1-based request number that fails; 0 never fails
	err      error
}

func (v *recordingVisualizer) RequestEffect(_ context.Context, req effects.Request, ack effects.AckFunc) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.failAt > 0 && len(v.requests)+1 == v.failAt {
		return v.err
	}
	v.requests = append(v.requests, req)
	v.acks = append(v.acks, ack)
	return nil
}

func (v *recordingVisualizer) pending() ([]effects.Request, []effects.AckFunc) {
	v.mu.Lock()
	defer v.mu.Unlock()
	reqs, acks := v.requests, v.acks
	v.requests, v.acks = nil, nil
	return reqs, acks
}

func (v *recordingVisualizer) count(kind effects.Kind) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	n := 0
	for _, r := range v.requests {
		if r.Kind == kind {
			n++
		}
	}
	return n
}

func (v *recordingVisualizer) kinds() []effects.Kind {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]effects.Kind, len(v.requests))
	for i, r := range v.requests {
		out[i] = r.Kind
	}
	return out
}

// ackOrder acknowledges the outstanding effects in the given index order.
func (v *recordingVisualizer) ackOrder(order ...int) {
	reqs, acks := v.pending()
	for _, i := range order {
		acks[i](effects.AckFor(reqs[i]))
	}
}

// ackAll acknowledges outstanding effects in request order.
func (v *recordingVisualizer) ackAll() {
	reqs, acks := v.pending()
	for i := range reqs {
		acks[i](effects.AckFor(reqs[i]))
	}
}

// ackReverse acknowledges outstanding effects last to first.
func (v *recordingVisualizer) ackReverse() {
	reqs, acks := v.pending()
	for i := len(reqs) - 1; i >= 0; i-- {
		acks[i](effects.AckFor(reqs[i]))
	}
}

type failingNarrator struct{}

func (failingNarrator) Describe(context.Context, string) (string, error) {
	return "", errors.New("narration offline")
}

type prefixNarrator struct{ prefix string }

func (p prefixNarrator) Describe(_ context.Context, text string) (string, error) {
	return p.prefix + text, nil
}

// basicPlanner always swings a basic attack at the default target.
type basicPlanner struct{}

func (basicPlanner) Plan(_ MatchView, role rules.Role) (Action, error) {
	return Action{Actor: role, Kind: ActionBasicAttack}, nil
}

// BattleHarness provides utilities for driving a match through its coordinator.
type BattleHarness struct {
	t      *testing.T
	match  *Match
	coord  *Coordinator
	vis    *recordingVisualizer
	dice   *dice.ScriptedSource
	mu     sync.Mutex
	events []rules.Event
}

type harnessOption func(*CoordinatorConfig)

func withNarrator(n narration.Narrator) harnessOption {
	return func(cfg *CoordinatorConfig) { cfg.Narrator = n }
}

func withPlanner(p Planner) harnessOption {
	return func(cfg *CoordinatorConfig) { cfg.Planner = p }
}

func withVisualizer(v effects.Visualizer) harnessOption {
	return func(cfg *CoordinatorConfig) { cfg.Visualizer = v }
}

// NewBattleHarness seats roster and scripts the dice faces.
func NewBattleHarness(t *testing.T, roster map[rules.Role]*character.Combatant, opts MatchOptions, faces []int, hopts ...harnessOption) *BattleHarness {
	t.Helper()
	match, err := NewMatch("match-1", roster, opts)
	require.NoError(t, err)

	h := &BattleHarness{
		t:     t,
		match: match,
		vis:   &recordingVisualizer{},
		dice:  dice.NewScriptedSource(faces...),
	}
	cfg := CoordinatorConfig{Dice: h.dice, Visualizer: h.vis}
	for _, o := range hopts {
		o(&cfg)
	}
	match.Events().Subscribe(func(e rules.Event) {
		h.mu.Lock()
		h.events = append(h.events, e)
		h.mu.Unlock()
	})
	h.coord = NewCoordinator(match, cfg, zaptest.NewLogger(t))
	return h
}

// Act submits a player action and requires it to be accepted.
func (h *BattleHarness) Act(action Action) string {
	h.t.Helper()
	id, err := h.coord.Act(context.Background(), action)
	require.NoError(h.t, err)
	return id
}

// HP returns the current hit points of role.
func (h *BattleHarness) HP(role rules.Role) int {
	h.t.Helper()
	c, ok := h.match.Combatant(role)
	require.True(h.t, ok)
	return c.HitPoints
}

// Damage sets up a wounded combatant before the battle proceeds.
func (h *BattleHarness) Damage(role rules.Role, amount int) {
	h.t.Helper()
	_, err := h.match.ApplyDamage(role, amount)
	require.NoError(h.t, err)
}

// EventTypes returns the published event types in order.
func (h *BattleHarness) EventTypes() []rules.EventType {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]rules.EventType, len(h.events))
	for i, e := range h.events {
		out[i] = e.Type
	}
	return out
}

// EventsOf returns the published events of one type.
func (h *BattleHarness) EventsOf(t rules.EventType) []rules.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []rules.Event
	for _, e := range h.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func vex() *character.Combatant {
	return &character.Combatant{
		Name:          "Vex",
		HitPoints:     30,
		MaxHitPoints:  30,
		ArmorClass:    13,
		AttackBonus:   5,
		BaseDamageDie: "1d8",
		MeleeDie:      "1d12",
		Abilities: []character.Ability{
			character.Attack{Name: "Triple Strike", DamageDice: "1d6", RequiresToHitRoll: true, NumberOfAttacks: 3},
			character.Healing{Name: "Mend", HealingDice: "1d8+3"},
			character.Attack{Name: "Magic Missile", DamageDice: "1d4+1"},
		},
	}
}

func ogre() *character.Combatant {
	return &character.Combatant{
		Name:          "Ogre",
		HitPoints:     40,
		MaxHitPoints:  40,
		ArmorClass:    15,
		AttackBonus:   3,
		BaseDamageDie: "2d6",
	}
}

func squire() *character.Combatant {
	return &character.Combatant{Name: "Pip", HitPoints: 12, MaxHitPoints: 12, ArmorClass: 11, AttackBonus: 2, BaseDamageDie: "1d4",
		Abilities: []character.Ability{character.Healing{Name: "Salve", HealingDice: "1d4+1"}}}
}

func imp() *character.Combatant {
	return &character.Combatant{Name: "Imp", HitPoints: 8, MaxHitPoints: 8, ArmorClass: 12, AttackBonus: 4, BaseDamageDie: "1d4"}
}

func duel() map[rules.Role]*character.Combatant {
	return map[rules.Role]*character.Combatant{
		rules.RolePrimary1: vex(),
		rules.RolePrimary2: ogre(),
	}
}

func fourWay() map[rules.Role]*character.Combatant {
	return map[rules.Role]*character.Combatant{
		rules.RolePrimary1: vex(),
		rules.RolePrimary2: ogre(),
		rules.RoleSupport1: squire(),
		rules.RoleSupport2: imp(),
	}
}
