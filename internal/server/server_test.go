package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pixelarena/arena-server-go/internal/config"
	"github.com/pixelarena/arena-server-go/internal/game"
	"github.com/pixelarena/arena-server-go/internal/game/character"
	"github.com/pixelarena/arena-server-go/internal/game/effects"
	"github.com/pixelarena/arena-server-go/internal/game/rules"
	"github.com/pixelarena/arena-server-go/internal/repository"
)

type testEnv struct {
	srv     *Server
	manager *game.Manager
	http    *httptest.Server
}

func newTestEnv(t *testing.T, aiRoles ...string) *testEnv {
	t.Helper()
	store, err := repository.NewMemoryStore([]character.Sheet{
		{Name: "Vex", MaxHitPoints: 30, ArmorClass: 13, AttackBonus: 5, BaseDamageDie: "1d8"},
		{Name: "Ogre", MaxHitPoints: 40, ArmorClass: 15, AttackBonus: 3, BaseDamageDie: "2d6"},
	})
	require.NoError(t, err)

	logger := zaptest.NewLogger(t)
	manager := game.NewManager(logger)
	srv := New(manager, store, Options{
		Match: config.MatchConfig{
			Roster:  map[string]string{"primary1": "Vex", "primary2": "Ogre"},
			AIRoles: aiRoles,
			Seed:    42,
		},
		Planner: attackPlanner{},
	}, logger)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.CloseAll()
		ts.Close()
	})
	return &testEnv{srv: srv, manager: manager, http: ts}
}

func (e *testEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.http.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

type attackPlanner struct{}

func (attackPlanner) Plan(_ game.MatchView, role rules.Role) (game.Action, error) {
	return game.Action{Actor: role, Kind: game.ActionBasicAttack}, nil
}

func send(t *testing.T, conn *websocket.Conn, msg ClientMessage) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
}

// readUntil reads messages until one of type want arrives, collecting the rest.
func readUntil(t *testing.T, conn *websocket.Conn, want string) (ServerMessage, []ServerMessage) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var skipped []ServerMessage
	for {
		var msg ServerMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == want {
			return msg, skipped
		}
		skipped = append(skipped, msg)
	}
}

// ackNextEffect waits for an effect and acknowledges it.
func ackNextEffect(t *testing.T, conn *websocket.Conn) effects.Request {
	t.Helper()
	msg, _ := readUntil(t, conn, MsgEffect)
	require.NotNil(t, msg.Effect)
	send(t, conn, ClientMessage{Type: MsgEffectDone, ActionID: msg.Effect.ActionID, EffectID: msg.Effect.EffectID})
	return *msg.Effect
}

func TestServer_PlayerTurnRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	send(t, conn, ClientMessage{Type: MsgStart})
	started, _ := readUntil(t, conn, MsgState)
	require.NotNil(t, started.State)
	assert.Equal(t, rules.RolePrimary1, started.State.CurrentTurn)
	require.Len(t, started.State.Combatants, 2)

	send(t, conn, ClientMessage{Type: MsgAct, Actor: "primary1", Kind: "attack"})
	req := ackNextEffect(t, conn)
	assert.Contains(t, []effects.Kind{effects.KindHit, effects.KindMiss}, req.Kind)
	assert.Equal(t, "primary2", req.Target)

	state, skipped := readUntil(t, conn, MsgState)
	assert.Equal(t, rules.RolePrimary2, state.State.CurrentTurn)
	assert.False(t, state.State.MoveInProgress)
	require.NotEmpty(t, skipped)
	assert.Equal(t, MsgNarration, skipped[len(skipped)-1].Type)
	assert.NotEmpty(t, skipped[len(skipped)-1].Text)
	assert.Len(t, state.State.Log, 1)
}

func TestServer_RejectsOutOfTurnAction(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	send(t, conn, ClientMessage{Type: MsgStart})
	readUntil(t, conn, MsgState)

	send(t, conn, ClientMessage{Type: MsgAct, Actor: "primary2", Kind: "attack"})
	msg, _ := readUntil(t, conn, MsgError)
	assert.Contains(t, msg.Error, game.ErrNotYourTurn.Error())

	send(t, conn, ClientMessage{Type: MsgAct, Actor: "primary1", Kind: "dance"})
	msg, _ = readUntil(t, conn, MsgError)
	assert.Contains(t, msg.Error, game.ErrUnknownAction.Error())
}

func TestServer_RequiresStart(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	send(t, conn, ClientMessage{Type: MsgState})
	msg, _ := readUntil(t, conn, MsgError)
	assert.Equal(t, errNoMatch.Error(), msg.Error)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	msg, _ = readUntil(t, conn, MsgError)
	assert.Contains(t, msg.Error, "malformed")
}

func TestServer_UnknownCharacter(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	send(t, conn, ClientMessage{Type: MsgStart, Roster: map[string]string{"primary1": "Vex", "primary2": "Lich"}})
	msg, _ := readUntil(t, conn, MsgError)
	assert.Contains(t, msg.Error, repository.ErrCharacterNotFound.Error())
	assert.Zero(t, env.manager.GetActiveMatchCount())
}

func TestServer_AIOpponentAnswers(t *testing.T) {
	env := newTestEnv(t, "primary2")
	conn := env.dial(t)

	send(t, conn, ClientMessage{Type: MsgStart})
	readUntil(t, conn, MsgState)

	send(t, conn, ClientMessage{Type: MsgAct, Actor: "primary1", Kind: "attack"})
	ackNextEffect(t, conn)

	aiEffect := ackNextEffect(t, conn)
	assert.Equal(t, "primary1", aiEffect.Target, "the planner swings back")

	var state ServerMessage
	for {
		state, _ = readUntil(t, conn, MsgState)
		if state.State.TurnNumber == 3 {
			break
		}
	}
	assert.Equal(t, rules.RolePrimary1, state.State.CurrentTurn)
	assert.Len(t, state.State.Log, 2)
}

func TestServer_PlannerOpensWhenPrimary1IsAI(t *testing.T) {
	env := newTestEnv(t, "primary1")
	conn := env.dial(t)

	send(t, conn, ClientMessage{Type: MsgStart})
	// primary1 is planner-controlled, so its swing is already waiting on us.
	effect := ackNextEffect(t, conn)
	assert.Equal(t, "primary2", effect.Target)

	state, _ := readUntil(t, conn, MsgState)
	for state.State.CurrentTurn != rules.RolePrimary2 {
		state, _ = readUntil(t, conn, MsgState)
	}

	send(t, conn, ClientMessage{Type: MsgAct, Actor: "primary1", Kind: "attack"})
	msg, _ := readUntil(t, conn, MsgError)
	assert.Contains(t, msg.Error, game.ErrNotYourTurn.Error())
}

func TestServer_DisconnectEndsMatch(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	send(t, conn, ClientMessage{Type: MsgStart})
	readUntil(t, conn, MsgState)
	require.Equal(t, 1, env.manager.GetActiveMatchCount())

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		return env.manager.GetActiveMatchCount() == 0 && env.srv.ClientCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServer_CharactersEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.http.URL + "/api/characters")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sheets []character.Sheet
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sheets))
	require.Len(t, sheets, 2)
	assert.Equal(t, "Ogre", sheets[0].Name)
}

func TestServer_RejectsForeignOrigin(t *testing.T) {
	env := newTestEnv(t)
	env.srv.opts.AllowedOrigins = []string{"https://arena.example"}

	url := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestSocketVisualizer_ClientGone(t *testing.T) {
	srv := New(game.NewManager(nil), nil, Options{}, nil)
	c := newClient(srv, nil)
	c.close()

	err := socketVisualizer{client: c}.RequestEffect(context.Background(), effects.Request{Kind: effects.KindHit}, nil)
	require.ErrorIs(t, err, ErrClientGone)
}
