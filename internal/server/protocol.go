// Package server exposes matches to browser clients over a websocket.
package server

import (
	"github.com/pixelarena/arena-server-go/internal/game"
	"github.com/pixelarena/arena-server-go/internal/game/effects"
)

// Client message types.
const (
	MsgStart      = "start"
	MsgAct        = "act"
	MsgEffectDone = "effect_done"
	MsgState      = "state"
)

// Server message types. MsgState is shared with the client request.
const (
	MsgEffect    = "effect"
	MsgNarration = "narration"
	MsgError     = "error"
	MsgFault     = "fault"
)

// ClientMessage is a request from the browser.
type ClientMessage struct {
	Type string `json:"type"`

	// start
	Roster      map[string]string `json:"roster,omitempty"`
	AIRoles     []string          `json:"ai_roles,omitempty"`
	AttackModes map[string]string `json:"attack_modes,omitempty"`

	// act
	Actor        string `json:"actor,omitempty"`
	Kind         string `json:"kind,omitempty"`
	AbilityIndex int    `json:"ability_index,omitempty"`
	Target       string `json:"target,omitempty"`

	// effect_done
	ActionID string `json:"action_id,omitempty"`
	EffectID string `json:"effect_id,omitempty"`
}

// ServerMessage is pushed to the browser.
type ServerMessage struct {
	Type     string              `json:"type"`
	MatchID  string              `json:"match_id,omitempty"`
	ActionID string              `json:"action_id,omitempty"`
	State    *game.MatchView     `json:"state,omitempty"`
	Effect   *effects.Request    `json:"effect,omitempty"`
	Text     string              `json:"text,omitempty"`
	Error    string              `json:"error,omitempty"`
	Pending  *game.PendingAction `json:"pending,omitempty"`
}
