package game

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pixelarena/arena-server-go/internal/game/character"
	"github.com/pixelarena/arena-server-go/internal/game/rules"
	"github.com/pixelarena/arena-server-go/internal/game/targeting"
	"github.com/pixelarena/arena-server-go/internal/game/watchers"
)

var (
	// ErrMatchOver is returned for any mutation after a victor is decided.
	ErrMatchOver = errors.New("match is over")
	// ErrActionInFlight is returned when an action starts while another is resolving.
	ErrActionInFlight = errors.New("action already in flight")
	// ErrInvalidRoster is returned when a match cannot be built from the given combatants.
	ErrInvalidRoster = errors.New("invalid roster")
	// ErrUnknownRole is returned for roles that are not seated in the match.
	ErrUnknownRole = errors.New("role not seated")
)

const defaultLogLimit = 200

// MatchOptions configures per-role behavior that does not affect resolution math.
type MatchOptions struct {
	// AttackModes selects the basic attack die per role.
	AttackModes map[rules.Role]character.AttackMode
	// AIControlled marks roles driven by the planner instead of a player.
	AIControlled map[rules.Role]bool
	// LogLimit bounds the battle log; 0 uses the default.
	LogLimit int
}

// HPChange describes one applied hit point mutation.
type HPChange struct {
	Role   rules.Role
	Before int
	After  int
	Downed bool
}

// Delta returns the signed change in hit points.
func (c HPChange) Delta() int {
	return c.After - c.Before
}

// Match is the authoritative state of one battle. Only the Coordinator
// mutates it; reads are safe from any goroutine.
type Match struct {
	id        string
	createdAt time.Time

	mu             sync.RWMutex
	combatants     map[rules.Role]*character.Combatant
	turns          *rules.TurnManager
	moveInProgress bool
	actingRole     rules.Role
	defeatedRole   rules.Role
	victorRole     rules.Role
	attackModes    map[rules.Role]character.AttackMode
	aiControlled   map[rules.Role]bool
	log            []string
	logLimit       int

	events   *rules.EventBus
	registry *rules.WatcherRegistry
	stats    *watchers.Set
}

// NewMatch seats two to four combatants at full health. Both primaries are
// required; primary1 takes the first turn.
func NewMatch(id string, roster map[rules.Role]*character.Combatant, opts MatchOptions) (*Match, error) {
	if len(roster) < 2 || len(roster) > 4 {
		return nil, fmt.Errorf("%w: need 2 to 4 combatants, got %d", ErrInvalidRoster, len(roster))
	}
	for _, r := range []rules.Role{rules.RolePrimary1, rules.RolePrimary2} {
		if roster[r] == nil {
			return nil, fmt.Errorf("%w: %s is required", ErrInvalidRoster, r)
		}
	}

	combatants := make(map[rules.Role]*character.Combatant, len(roster))
	seated := make([]rules.Role, 0, len(roster))
	for role, c := range roster {
		if role.Side() == rules.SideNone {
			return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidRoster, role)
		}
		if c == nil {
			return nil, fmt.Errorf("%w: %s has no combatant", ErrInvalidRoster, role)
		}
		fresh := c.AtFullHealth()
		if err := fresh.Validate(); err != nil {
			return nil, fmt.Errorf("seat %s: %w", role, err)
		}
		combatants[role] = fresh
		seated = append(seated, role)
	}

	limit := opts.LogLimit
	if limit <= 0 {
		limit = defaultLogLimit
	}

	m := &Match{
		id:           id,
		createdAt:    time.Now(),
		combatants:   combatants,
		turns:        rules.NewTurnManager(seated),
		attackModes:  make(map[rules.Role]character.AttackMode),
		aiControlled: make(map[rules.Role]bool),
		logLimit:     limit,
		events:       rules.NewEventBus(),
		registry:     rules.NewWatcherRegistry(),
	}
	for role, mode := range opts.AttackModes {
		m.attackModes[role] = mode
	}
	for role, ai := range opts.AIControlled {
		m.aiControlled[role] = ai
	}
	m.stats = watchers.NewSet(m.registry, m.turns.Order())
	m.events.Subscribe(m.registry.NotifyWatchers)
	return m, nil
}

// ID returns the match id.
func (m *Match) ID() string {
	return m.id
}

// Events returns the match event bus.
func (m *Match) Events() *rules.EventBus {
	return m.events
}

// CurrentTurn returns the role whose turn it is.
func (m *Match) CurrentTurn() rules.Role {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.turns.Current()
}

// IsOver reports whether a victor has been decided.
func (m *Match) IsOver() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.victorRole != ""
}

// Result returns the victor and defeated roles, empty while the match runs.
func (m *Match) Result() (victor, defeated rules.Role) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.victorRole, m.defeatedRole
}

// MoveInProgress reports whether an action is resolving.
func (m *Match) MoveInProgress() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.moveInProgress
}

// IsAIControlled reports whether role is driven by the planner.
func (m *Match) IsAIControlled(role rules.Role) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.aiControlled[role]
}

// AttackMode returns the configured basic attack mode for role.
func (m *Match) AttackMode(role rules.Role) character.AttackMode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.attackModes[role]
}

// Combatant returns a copy of the combatant seated in role.
func (m *Match) Combatant(role rules.Role) (*character.Combatant, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.combatants[role]
	if !ok {
		return nil, false
	}
	cpy := *c
	return &cpy, true
}

// FindCombatantForTarget implements targeting.TargetStateAccessor.
func (m *Match) FindCombatantForTarget(role rules.Role) (targeting.TargetCombatantInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.combatants[role]
	if !ok {
		return targeting.TargetCombatantInfo{}, false
	}
	return targeting.TargetCombatantInfo{
		Role:      role,
		Name:      c.Name,
		HitPoints: c.HitPoints,
		Down:      c.IsDown(),
	}, true
}

// BeginAction takes the match-wide action lock for role.
func (m *Match) BeginAction(role rules.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.victorRole != "" {
		return ErrMatchOver
	}
	if m.moveInProgress {
		return fmt.Errorf("%w: %s is acting", ErrActionInFlight, m.actingRole)
	}
	if _, ok := m.combatants[role]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRole, role)
	}
	m.moveInProgress = true
	m.actingRole = role
	return nil
}

// EndAction releases the action lock.
func (m *Match) EndAction() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.moveInProgress = false
	m.actingRole = ""
}

// ApplyDamage lowers role's hit points, clamped at zero. A primary at zero
// ends the match in favor of the opposing primary; a support at zero leaves
// the turn rotation.
func (m *Match) ApplyDamage(role rules.Role, amount int) (HPChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.victorRole != "" {
		return HPChange{}, ErrMatchOver
	}
	c, ok := m.combatants[role]
	if !ok {
		return HPChange{}, fmt.Errorf("%w: %s", ErrUnknownRole, role)
	}
	if amount < 0 {
		amount = 0
	}

	change := HPChange{Role: role, Before: c.HitPoints}
	c.HitPoints = max(0, c.HitPoints-amount)
	change.After = c.HitPoints

	if change.Before > 0 && c.HitPoints == 0 {
		change.Downed = true
		if role.IsPrimary() {
			m.defeatedRole = role
			m.victorRole = role.Opponent()
		} else {
			m.turns.Remove(role)
		}
	}
	return change, nil
}

// ApplyHeal raises role's hit points, capped at max.
func (m *Match) ApplyHeal(role rules.Role, amount int) (HPChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.victorRole != "" {
		return HPChange{}, ErrMatchOver
	}
	c, ok := m.combatants[role]
	if !ok {
		return HPChange{}, fmt.Errorf("%w: %s", ErrUnknownRole, role)
	}
	if amount < 0 {
		amount = 0
	}

	change := HPChange{Role: role, Before: c.HitPoints}
	c.HitPoints = min(c.MaxHitPoints, c.HitPoints+amount)
	change.After = c.HitPoints
	return change, nil
}

// SwitchTurn passes the turn from acting to the next role in rotation. It
// returns false once the match is over or only one side can still act.
func (m *Match) SwitchTurn(acting rules.Role) (rules.Role, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.victorRole != "" {
		return m.turns.Current(), false
	}
	return m.turns.Advance(acting)
}

// AppendLog adds a line to the bounded battle log.
func (m *Match) AppendLog(line string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log = append(m.log, line)
	if len(m.log) > m.logLimit {
		m.log = m.log[len(m.log)-m.logLimit:]
	}
}

// Log returns a copy of the battle log.
func (m *Match) Log() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.log...)
}

// Stats returns the watcher summary for role.
func (m *Match) Stats(role rules.Role) watchers.RoleStats {
	return m.stats.Stats(role)
}
