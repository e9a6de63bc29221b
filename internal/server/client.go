package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/pixelarena/arena-server-go/internal/game"
	"github.com/pixelarena/arena-server-go/internal/game/character"
	"github.com/pixelarena/arena-server-go/internal/game/dice"
	"github.com/pixelarena/arena-server-go/internal/game/effects"
	"github.com/pixelarena/arena-server-go/internal/game/rules"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 256
)

var (
	errNoMatch    = errors.New("no match started")
	errServerFull = errors.New("too many active matches")
)

// client is one websocket connection and the match it drives.
type client struct {
	id     string
	server *Server
	conn   *websocket.Conn
	logger *zap.Logger

	mu      sync.Mutex
	send    chan ServerMessage
	closed  bool
	session *game.Session
}

func newClient(s *Server, conn *websocket.Conn) *client {
	id := uuid.NewString()
	return &client{
		id:     id,
		server: s,
		conn:   conn,
		logger: s.logger.With(zap.String("client_id", id)),
		send:   make(chan ServerMessage, sendBuffer),
	}
}

// enqueue queues msg without blocking. It reports false when the client is
// gone or its buffer is full.
func (c *client) enqueue(msg ServerMessage) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		c.logger.Warn("send buffer full, dropping message", zap.String("type", msg.Type))
		return false
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *client) currentSession() *game.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *client) matchID() string {
	if s := c.currentSession(); s != nil {
		return s.Match.ID()
	}
	return ""
}

func (c *client) readPump() {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		c.close()
		c.server.unregister(c)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Warn("failed to set read deadline", zap.Error(err))
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.enqueue(ServerMessage{Type: MsgError, Error: "malformed message: " + err.Error()})
			continue
		}
		if err := c.handle(ctx, msg); err != nil {
			c.logger.Debug("message rejected", zap.String("type", msg.Type), zap.Error(err))
			c.enqueue(ServerMessage{Type: MsgError, MatchID: c.matchID(), Error: err.Error()})
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) handle(ctx context.Context, msg ClientMessage) error {
	if msg.Type == MsgStart {
		return c.start(ctx, msg)
	}

	s := c.currentSession()
	if s == nil {
		return errNoMatch
	}
	switch msg.Type {
	case MsgAct:
		action, err := parseAction(msg)
		if err != nil {
			return err
		}
		_, err = s.Coordinator.Act(ctx, action)
		return err
	case MsgEffectDone:
		return s.Coordinator.CompleteEffect(ctx, effects.Ack{ActionID: msg.ActionID, EffectID: msg.EffectID})
	case MsgState:
		c.sendState(s.Match)
		return nil
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
}

func parseAction(msg ClientMessage) (game.Action, error) {
	actor, err := rules.ParseRole(msg.Actor)
	if err != nil {
		return game.Action{}, fmt.Errorf("actor: %w", err)
	}
	kind, err := game.ParseActionKind(msg.Kind)
	if err != nil {
		return game.Action{}, err
	}
	action := game.Action{Actor: actor, Kind: kind, AbilityIndex: msg.AbilityIndex, Origin: game.OriginPlayer}
	if msg.Target != "" {
		if action.Target, err = rules.ParseRole(msg.Target); err != nil {
			return game.Action{}, fmt.Errorf("target: %w", err)
		}
	}
	return action, nil
}

// start replaces the client's match with a fresh one. Fields left empty in
// msg fall back to the configured defaults.
func (c *client) start(ctx context.Context, msg ClientMessage) error {
	mc := c.server.opts.Match
	if len(msg.Roster) > 0 {
		mc.Roster = msg.Roster
	}
	if msg.AIRoles != nil {
		mc.AIRoles = msg.AIRoles
	}
	if msg.AttackModes != nil {
		mc.AttackModes = msg.AttackModes
	}

	names, err := mc.RosterRoles()
	if err != nil {
		return err
	}
	modes, err := mc.Modes()
	if err != nil {
		return err
	}
	ai, err := mc.AIControlled()
	if err != nil {
		return err
	}

	roster := make(map[rules.Role]*character.Combatant, len(names))
	for role, name := range names {
		ch, err := c.server.store.GetCharacter(ctx, name)
		if err != nil {
			return fmt.Errorf("%s: %w", role, err)
		}
		roster[role] = ch
	}

	if old := c.currentSession(); old != nil {
		c.server.manager.EndMatch(old.Match.ID())
		c.mu.Lock()
		c.session = nil
		c.mu.Unlock()
	}
	if c.server.manager.GetActiveMatchCount() >= c.server.opts.MaxMatches {
		return errServerFull
	}

	cfg := game.CoordinatorConfig{
		Visualizer: socketVisualizer{client: c},
		Narrator:   c.server.opts.Narrator,
		Planner:    c.server.opts.Planner,
	}
	if mc.Seed != 0 {
		cfg.Dice = dice.NewSource(mc.Seed)
	}
	opts := game.MatchOptions{AttackModes: modes, AIControlled: ai, LogLimit: mc.LogLimit}

	session, err := c.server.manager.CreateMatch(ctx, roster, opts, cfg, c.onEvent)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.session = session
	c.mu.Unlock()
	c.logger.Info("match started", zap.String("match_id", session.Match.ID()))
	return nil
}

// onEvent translates match events into pushes. It runs on the goroutine
// that published, never under the coordinator lock.
func (c *client) onEvent(e rules.Event) {
	switch e.Type {
	case rules.EventMatchStarted, rules.EventActionCompleted:
		if s, ok := c.server.manager.GetMatch(e.MatchID); ok {
			c.sendState(s.Match)
		}
	case rules.EventNarration:
		c.enqueue(ServerMessage{Type: MsgNarration, MatchID: e.MatchID, ActionID: e.ActionID, Text: e.Data})
	case rules.EventSessionFault:
		msg := ServerMessage{Type: MsgFault, MatchID: e.MatchID, ActionID: e.ActionID, Error: e.Data}
		if s, ok := c.server.manager.GetMatch(e.MatchID); ok {
			if p, ok := s.Coordinator.Pending(); ok {
				msg.Pending = &p
			}
		}
		c.enqueue(msg)
	}
}

func (c *client) sendState(m *game.Match) {
	view := m.Snapshot()
	c.enqueue(ServerMessage{Type: MsgState, MatchID: view.ID, State: &view})
}
