package game

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pixelarena/arena-server-go/internal/game/rules"
)

var (
	// ErrNotYourTurn is returned when a role acts out of turn.
	ErrNotYourTurn = errors.New("not your turn")
	// ErrAIControlled is returned when a player submits an action for a planner-driven role.
	ErrAIControlled = errors.New("role is AI controlled")
	// ErrUnknownAction is returned for unrecognized action kinds.
	ErrUnknownAction = errors.New("unknown action")
	// ErrSessionStalled is returned once the visual layer has failed; the
	// match keeps its action lock and accepts nothing further.
	ErrSessionStalled = errors.New("session stalled")
)

// ActionKind distinguishes a basic weapon attack from an ability use.
type ActionKind string

const (
	ActionBasicAttack ActionKind = "attack"
	ActionAbility     ActionKind = "ability"
)

// ParseActionKind normalizes an action kind from the wire.
func ParseActionKind(s string) (ActionKind, error) {
	switch k := ActionKind(strings.ToLower(strings.TrimSpace(s))); k {
	case ActionBasicAttack, ActionAbility:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
}

// Origin records who submitted an action.
type Origin int

const (
	OriginPlayer Origin = iota
	OriginPlanner
)

func (o Origin) String() string {
	switch o {
	case OriginPlayer:
		return "PLAYER"
	case OriginPlanner:
		return "PLANNER"
	default:
		return "UNKNOWN"
	}
}

// Action is one turn's move. Target may be left empty to let the engine
// pick the default target for the action.
type Action struct {
	Actor        rules.Role
	Kind         ActionKind
	AbilityIndex int
	Target       rules.Role
	Origin       Origin
}

func (a Action) String() string {
	if a.Kind == ActionAbility {
		return fmt.Sprintf("%s ability[%d] -> %s", a.Actor, a.AbilityIndex, a.Target)
	}
	return fmt.Sprintf("%s %s -> %s", a.Actor, a.Kind, a.Target)
}

// Planner chooses actions for AI-controlled roles.
type Planner interface {
	Plan(view MatchView, role rules.Role) (Action, error)
}
