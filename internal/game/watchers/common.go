package watchers

import (
	"sync"

	"github.com/pixelarena/arena-server-go/internal/game/rules"
)

// DamageDealtWatcher tallies damage applied, by dealer and by receiver.
type DamageDealtWatcher struct {
	*rules.BaseWatcher
	mu       sync.Mutex
	dealt    map[rules.Role]int
	received map[rules.Role]int
}

// NewDamageDealtWatcher creates a new damage watcher.
func NewDamageDealtWatcher() *DamageDealtWatcher {
	w := &DamageDealtWatcher{
		BaseWatcher: rules.NewBaseWatcher(rules.WatcherScopeMatch),
		dealt:       make(map[rules.Role]int),
		received:    make(map[rules.Role]int),
	}
	w.SetKey("DamageDealtWatcher")
	return w
}

// Watch implements the Watcher interface.
func (w *DamageDealtWatcher) Watch(event rules.Event) {
	if event.Type != rules.EventDamageApplied || event.Amount <= 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if event.Role != "" {
		w.dealt[rules.Role(event.Role)] += event.Amount
	}
	if event.Target != "" {
		w.received[rules.Role(event.Target)] += event.Amount
	}
	w.SetCondition(true)
}

// Reset clears the watcher's state.
func (w *DamageDealtWatcher) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.BaseWatcher.Reset()
	w.dealt = make(map[rules.Role]int)
	w.received = make(map[rules.Role]int)
}

// Dealt returns the total damage a role has dealt.
func (w *DamageDealtWatcher) Dealt(role rules.Role) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dealt[role]
}

// Received returns the total damage a role has taken.
func (w *DamageDealtWatcher) Received(role rules.Role) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.received[role]
}

// HealingDoneWatcher tallies healing, counting only hit points actually restored.
type HealingDoneWatcher struct {
	*rules.BaseWatcher
	mu     sync.Mutex
	healed map[rules.Role]int
}

// NewHealingDoneWatcher creates a new healing watcher.
func NewHealingDoneWatcher() *HealingDoneWatcher {
	w := &HealingDoneWatcher{
		BaseWatcher: rules.NewBaseWatcher(rules.WatcherScopeMatch),
		healed:      make(map[rules.Role]int),
	}
	w.SetKey("HealingDoneWatcher")
	return w
}

// Watch implements the Watcher interface.
func (w *HealingDoneWatcher) Watch(event rules.Event) {
	if event.Type != rules.EventHealApplied || event.Role == "" {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.healed[rules.Role(event.Role)] += event.Amount
	w.SetCondition(true)
}

// Reset clears the watcher's state.
func (w *HealingDoneWatcher) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.BaseWatcher.Reset()
	w.healed = make(map[rules.Role]int)
}

// Healed returns the hit points a role has restored.
func (w *HealingDoneWatcher) Healed(role rules.Role) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.healed[role]
}

// AccuracyWatcher counts hit and missed swings for a single role.
type AccuracyWatcher struct {
	*rules.BaseWatcher
	mu     sync.Mutex
	hits   int
	misses int
}

// NewAccuracyWatcher creates an accuracy watcher bound to role.
func NewAccuracyWatcher(role rules.Role) *AccuracyWatcher {
	w := &AccuracyWatcher{BaseWatcher: rules.NewBaseWatcher(rules.WatcherScopeRole)}
	w.SetRole(role)
	return w
}

// Watch implements the Watcher interface.
func (w *AccuracyWatcher) Watch(event rules.Event) {
	if rules.Role(event.Role) != w.GetRole() {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	switch event.Type {
	case rules.EventSwingHit:
		w.hits++
		w.SetCondition(true)
	case rules.EventSwingMissed:
		w.misses++
	}
}

// Reset clears the watcher's state.
func (w *AccuracyWatcher) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.BaseWatcher.Reset()
	w.hits, w.misses = 0, 0
}

// Hits returns the number of swings that connected.
func (w *AccuracyWatcher) Hits() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.hits
}

// Misses returns the number of swings that missed.
func (w *AccuracyWatcher) Misses() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.misses
}

// DownedWatcher records the order in which combatants went down.
type DownedWatcher struct {
	*rules.BaseWatcher
	mu     sync.Mutex
	downed []rules.Role
}

// NewDownedWatcher creates a new downed watcher.
func NewDownedWatcher() *DownedWatcher {
	w := &DownedWatcher{BaseWatcher: rules.NewBaseWatcher(rules.WatcherScopeMatch)}
	w.SetKey("DownedWatcher")
	return w
}

// Watch implements the Watcher interface.
func (w *DownedWatcher) Watch(event rules.Event) {
	if event.Type != rules.EventCombatantDowned || event.Target == "" {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.downed = append(w.downed, rules.Role(event.Target))
	w.SetCondition(true)
}

// Reset clears the watcher's state.
func (w *DownedWatcher) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.BaseWatcher.Reset()
	w.downed = nil
}

// Downed returns the downed roles in order.
func (w *DownedWatcher) Downed() []rules.Role {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]rules.Role(nil), w.downed...)
}

// RoleStats is the per-role battle summary built from the standard watchers.
type RoleStats struct {
	DamageDealt    int `json:"damage_dealt"`
	DamageReceived int `json:"damage_received"`
	HealingDone    int `json:"healing_done"`
	Hits           int `json:"hits"`
	Misses         int `json:"misses"`
}

// Set bundles the standard watchers attached to every match.
type Set struct {
	Damage   *DamageDealtWatcher
	Healing  *HealingDoneWatcher
	Downed   *DownedWatcher
	Accuracy map[rules.Role]*AccuracyWatcher
}

// NewSet creates the standard watchers for the seated roles and registers
// them with registry.
func NewSet(registry *rules.WatcherRegistry, seated []rules.Role) *Set {
	s := &Set{
		Damage:   NewDamageDealtWatcher(),
		Healing:  NewHealingDoneWatcher(),
		Downed:   NewDownedWatcher(),
		Accuracy: make(map[rules.Role]*AccuracyWatcher, len(seated)),
	}
	registry.AddWatcher(s.Damage)
	registry.AddWatcher(s.Healing)
	registry.AddWatcher(s.Downed)
	for _, r := range seated {
		w := NewAccuracyWatcher(r)
		s.Accuracy[r] = w
		registry.AddWatcher(w)
	}
	return s
}

// Stats summarizes a role.
func (s *Set) Stats(role rules.Role) RoleStats {
	st := RoleStats{
		DamageDealt:    s.Damage.Dealt(role),
		DamageReceived: s.Damage.Received(role),
		HealingDone:    s.Healing.Healed(role),
	}
	if acc, ok := s.Accuracy[role]; ok {
		st.Hits = acc.Hits()
		st.Misses = acc.Misses()
	}
	return st
}
