package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelarena/arena-server-go/internal/game"
	"github.com/pixelarena/arena-server-go/internal/game/rules"
	"github.com/pixelarena/arena-server-go/internal/game/watchers"
)

func TestSummarize(t *testing.T) {
	names := map[rules.Role]string{rules.RolePrimary1: "Vex", rules.RolePrimary2: "Ogre"}
	views := []game.MatchView{
		{
			Over: true, Victor: rules.RolePrimary1, TurnNumber: 6, Log: []string{"Vex wins"},
			Combatants: []game.CombatantView{
				{Role: rules.RolePrimary1, Stats: watchers.RoleStats{DamageDealt: 40, HealingDone: 5}},
				{Role: rules.RolePrimary2, Stats: watchers.RoleStats{DamageDealt: 20}},
			},
		},
		{Over: true, Victor: rules.RolePrimary2, TurnNumber: 4, Log: []string{"Ogre wins"}},
		{Over: false, TurnNumber: 2},
	}

	r := summarize(names, views)
	assert.Equal(t, 3, r.Matches)
	assert.Equal(t, 1, r.Unfinished)
	assert.Equal(t, 1, r.Wins[rules.RolePrimary1])
	assert.Equal(t, 1, r.Wins[rules.RolePrimary2])
	assert.InDelta(t, 5.0, r.MeanTurns, 0.001)
	assert.Equal(t, 40, r.Damage[rules.RolePrimary1])
	assert.Equal(t, 5, r.Healing[rules.RolePrimary1])
	require.Equal(t, []string{"Vex wins"}, r.Sample)
}

func TestSummarize_NothingFinished(t *testing.T) {
	r := summarize(nil, []game.MatchView{{TurnNumber: 3}})
	assert.Zero(t, r.MeanTurns)
	assert.Nil(t, r.Sample)
}
