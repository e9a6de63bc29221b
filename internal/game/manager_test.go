package game

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pixelarena/arena-server-go/internal/game/character"
	"github.com/pixelarena/arena-server-go/internal/game/dice"
	"github.com/pixelarena/arena-server-go/internal/game/rules"
)

func TestManager_MatchesLockIndependently(t *testing.T) {
	mgr := NewManager(zaptest.NewLogger(t))
	ctx := context.Background()

	visA := &recordingVisualizer{}
	a, err := mgr.CreateMatch(ctx, duel(), MatchOptions{}, CoordinatorConfig{Dice: dice.NewScriptedSource(10, 6), Visualizer: visA})
	require.NoError(t, err)
	b, err := mgr.CreateMatch(ctx, duel(), MatchOptions{}, CoordinatorConfig{Dice: dice.NewScriptedSource(10, 6), Visualizer: &recordingVisualizer{}})
	require.NoError(t, err)
	require.NotEqual(t, a.Match.ID(), b.Match.ID())

	_, err = a.Coordinator.Act(ctx, Action{Actor: rules.RolePrimary1, Kind: ActionBasicAttack})
	require.NoError(t, err)
	assert.True(t, a.Match.MoveInProgress())

	_, err = b.Coordinator.Act(ctx, Action{Actor: rules.RolePrimary1, Kind: ActionBasicAttack})
	require.NoError(t, err, "an in-flight action in one match never blocks another")

	got, ok := mgr.GetMatch(a.Match.ID())
	require.True(t, ok)
	assert.Same(t, a, got)
	assert.Len(t, mgr.ListMatches(), 2)
	assert.Equal(t, 2, mgr.GetActiveMatchCount())

	mgr.EndMatch(a.Match.ID())
	_, ok = mgr.GetMatch(a.Match.ID())
	assert.False(t, ok)
	assert.Equal(t, 1, mgr.GetActiveMatchCount())
	mgr.EndMatch("missing")
}

func TestManager_CreateMatchRejectsBadRoster(t *testing.T) {
	mgr := NewManager(nil)
	_, err := mgr.CreateMatch(context.Background(), map[rules.Role]*character.Combatant{rules.RolePrimary1: vex()}, MatchOptions{}, CoordinatorConfig{})
	require.ErrorIs(t, err, ErrInvalidRoster)
	assert.Empty(t, mgr.ListMatches())
}

func TestManager_CountsFinishedMatches(t *testing.T) {
	mgr := NewManager(zaptest.NewLogger(t))
	opts := MatchOptions{AIControlled: map[rules.Role]bool{rules.RolePrimary1: true, rules.RolePrimary2: true}}
	var seen []rules.EventType
	s, err := mgr.CreateMatch(context.Background(), duel(), opts, CoordinatorConfig{Dice: dice.NewSource(3), Planner: basicPlanner{}},
		func(e rules.Event) { seen = append(seen, e.Type) })
	require.NoError(t, err)

	require.True(t, s.Match.IsOver(), "planner against planner plays out on start")
	require.NotEmpty(t, seen)
	assert.Equal(t, rules.EventMatchStarted, seen[0])
	assert.Contains(t, seen, rules.EventMatchOver)
	assert.Zero(t, mgr.GetActiveMatchCount())
}

func TestManager_EndMatchDetachesListeners(t *testing.T) {
	mgr := NewManager(zaptest.NewLogger(t))
	vis := &recordingVisualizer{}
	var seen []rules.EventType
	s, err := mgr.CreateMatch(context.Background(), duel(), MatchOptions{}, CoordinatorConfig{Dice: dice.NewScriptedSource(10, 6), Visualizer: vis},
		func(e rules.Event) { seen = append(seen, e.Type) })
	require.NoError(t, err)

	_, err = s.Coordinator.Act(context.Background(), Action{Actor: rules.RolePrimary1, Kind: ActionBasicAttack})
	require.NoError(t, err)
	before := len(seen)
	require.Positive(t, before)

	mgr.EndMatch(s.Match.ID())
	vis.ackAll()

	assert.Equal(t, 34, s.Match.Snapshot().Combatants[1].HitPoints, "the late ack still resolves the action")
	assert.Len(t, seen, before, "an ended match no longer reaches its listeners")
}
