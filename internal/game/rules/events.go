package rules

import (
	"sync"
	"time"
)

// EventType indicates the category of a battle event.
type EventType string

const (
	// Match lifecycle
	EventMatchStarted EventType = "MATCH_STARTED"
	EventMatchOver    EventType = "MATCH_OVER"
	EventTurnChanged  EventType = "TURN_CHANGED"

	// Action lifecycle
	EventActionStarted   EventType = "ACTION_STARTED"
	EventActionResolved  EventType = "ACTION_RESOLVED"
	EventActionCompleted EventType = "ACTION_COMPLETED"
	EventActionRejected  EventType = "ACTION_REJECTED"

	// Visual effects
	EventEffectRequested    EventType = "EFFECT_REQUESTED"
	EventEffectAcknowledged EventType = "EFFECT_ACKNOWLEDGED"

	// Hit point changes
	EventSwingHit        EventType = "SWING_HIT"
	EventSwingMissed     EventType = "SWING_MISSED"
	EventDamageApplied   EventType = "DAMAGE_APPLIED"
	EventHealApplied     EventType = "HEAL_APPLIED"
	EventCombatantDowned EventType = "COMBATANT_DOWNED"

	// Narration and faults
	EventNarration    EventType = "NARRATION"
	EventSessionFault EventType = "SESSION_FAULT"
)

// Event represents a state change that other subsystems may react to.
type Event struct {
	Type      EventType
	MatchID   string
	ActionID  string
	Role      string // acting role
	Target    string // role receiving the effect, if any
	Amount    int
	Flag      bool
	Data      string
	Timestamp time.Time
	Metadata  map[string]string
}

// Listener defines a callback that reacts to incoming events.
type Listener func(Event)

// TypedListener defines a callback that reacts to a specific event type.
type TypedListener struct {
	Handle    int
	EventType EventType
	Callback  func(Event)
}

// EventBus provides a synchronous publish/subscribe implementation with type filtering.
type EventBus struct {
	mu             sync.RWMutex
	listeners      map[int]Listener
	typedListeners map[EventType][]TypedListener
	nextHandle     int
}

// NewEventBus constructs a fresh event bus instance.
func NewEventBus() *EventBus {
	return &EventBus{
		listeners:      make(map[int]Listener),
		typedListeners: make(map[EventType][]TypedListener),
	}
}

// Subscribe registers a listener for all events and returns a handle.
func (bus *EventBus) Subscribe(listener Listener) int {
	if listener == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.listeners[handle] = listener
	return handle
}

// SubscribeTyped registers a listener for a specific event type.
func (bus *EventBus) SubscribeTyped(eventType EventType, callback func(Event)) int {
	if callback == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.typedListeners[eventType] = append(bus.typedListeners[eventType], TypedListener{
		Handle:    handle,
		EventType: eventType,
		Callback:  callback,
	})
	return handle
}

// Unsubscribe removes the listener identified by the provided handle,
// whether it was registered with Subscribe or SubscribeTyped.
func (bus *EventBus) Unsubscribe(handle int) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	delete(bus.listeners, handle)
	for eventType, listeners := range bus.typedListeners {
		for i := len(listeners) - 1; i >= 0; i-- {
			if listeners[i].Handle == handle {
				bus.typedListeners[eventType] = append(listeners[:i], listeners[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers the event to all registered listeners synchronously.
// Listeners run outside the bus lock and may subscribe or unsubscribe.
func (bus *EventBus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	bus.mu.RLock()
	callbacks := make([]func(Event), 0, len(bus.listeners)+len(bus.typedListeners[event.Type]))
	for _, listener := range bus.listeners {
		callbacks = append(callbacks, listener)
	}
	for _, listener := range bus.typedListeners[event.Type] {
		callbacks = append(callbacks, listener.Callback)
	}
	bus.mu.RUnlock()

	for _, cb := range callbacks {
		cb(event)
	}
}

// PublishBatch publishes events in order.
func (bus *EventBus) PublishBatch(events []Event) {
	for _, event := range events {
		bus.Publish(event)
	}
}

// NewEvent creates a new event with common fields populated.
func NewEvent(eventType EventType, matchID, actionID string, role Role) Event {
	return Event{
		Type:      eventType,
		MatchID:   matchID,
		ActionID:  actionID,
		Role:      string(role),
		Timestamp: time.Now(),
		Metadata:  make(map[string]string),
	}
}

// NewEventWithAmount creates a new event aimed at target with an amount value.
func NewEventWithAmount(eventType EventType, matchID, actionID string, role, target Role, amount int) Event {
	evt := NewEvent(eventType, matchID, actionID, role)
	evt.Target = string(target)
	evt.Amount = amount
	return evt
}
