package rules

import (
	"testing"
)

func TestEventBusSubscribeTyped(t *testing.T) {
	bus := NewEventBus()

	damageCount := 0
	healCount := 0

	handle1 := bus.SubscribeTyped(EventDamageApplied, func(e Event) {
		damageCount++
	})
	handle2 := bus.SubscribeTyped(EventHealApplied, func(e Event) {
		healCount++
	})

	bus.Publish(NewEventWithAmount(EventDamageApplied, "m1", "a1", RolePrimary1, RolePrimary2, 7))
	if damageCount != 1 {
		t.Fatalf("expected damage count 1, got %d", damageCount)
	}
	if healCount != 0 {
		t.Fatalf("expected heal count 0, got %d", healCount)
	}

	bus.Publish(NewEventWithAmount(EventHealApplied, "m1", "a2", RolePrimary2, RolePrimary2, 5))
	if healCount != 1 {
		t.Fatalf("expected heal count 1, got %d", healCount)
	}

	bus.Unsubscribe(handle1)
	bus.Publish(NewEventWithAmount(EventDamageApplied, "m1", "a3", RolePrimary1, RolePrimary2, 3))
	if damageCount != 1 {
		t.Fatalf("expected damage count still 1 after unsubscribe, got %d", damageCount)
	}

	bus.Unsubscribe(handle2)
	bus.Publish(NewEventWithAmount(EventHealApplied, "m1", "a4", RolePrimary2, RolePrimary2, 2))
	if healCount != 1 {
		t.Fatalf("expected heal count still 1 after unsubscribe, got %d", healCount)
	}
}

func TestEventBusSubscribeAll(t *testing.T) {
	bus := NewEventBus()

	allEventCount := 0
	handle := bus.Subscribe(func(e Event) {
		allEventCount++
	})

	bus.Publish(NewEvent(EventActionStarted, "m1", "a1", RolePrimary1))
	bus.Publish(NewEvent(EventNarration, "m1", "a1", RolePrimary1))
	bus.Publish(NewEvent(EventTurnChanged, "m1", "a1", RolePrimary2))

	if allEventCount != 3 {
		t.Fatalf("expected all event count 3, got %d", allEventCount)
	}

	bus.Unsubscribe(handle)
	bus.Publish(NewEvent(EventActionStarted, "m1", "a2", RolePrimary2))
	if allEventCount != 3 {
		t.Fatalf("expected all event count still 3 after unsubscribe, got %d", allEventCount)
	}
}

func TestEventBusListenerMaySubscribe(t *testing.T) {
	bus := NewEventBus()
	nested := 0
	bus.SubscribeTyped(EventMatchStarted, func(e Event) {
		bus.SubscribeTyped(EventMatchOver, func(Event) { nested++ })
	})

	bus.Publish(NewEvent(EventMatchStarted, "m1", "", RolePrimary1))
	bus.Publish(NewEvent(EventMatchOver, "m1", "", RolePrimary1))
	if nested != 1 {
		t.Fatalf("expected nested listener to fire once, got %d", nested)
	}
}

func TestEventBusIgnoresNilListeners(t *testing.T) {
	bus := NewEventBus()
	if h := bus.Subscribe(nil); h != -1 {
		t.Fatalf("expected -1 handle for nil listener, got %d", h)
	}
	if h := bus.SubscribeTyped(EventNarration, nil); h != -1 {
		t.Fatalf("expected -1 handle for nil typed listener, got %d", h)
	}
}

func TestPublishStampsTimestamp(t *testing.T) {
	bus := NewEventBus()
	var got Event
	bus.Subscribe(func(e Event) { got = e })
	bus.Publish(Event{Type: EventNarration})
	if got.Timestamp.IsZero() {
		t.Fatal("expected publish to stamp a timestamp")
	}
}
