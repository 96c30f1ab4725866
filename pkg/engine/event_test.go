package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEventBus_SubscribePublish(t *testing.T) {
	bus := NewEventBus()
	sub := bus.Subscribe(8)
	defer bus.Unsubscribe(sub)

	bus.Publish(Event{
		Kind:      EventFocusSample,
		DeviceID:  "dev-123",
		Timestamp: time.Now(),
		Data:      0.42,
	})

	select {
	case got := <-sub.C:
		assert.Equal(t, EventFocusSample, got.Kind)
		assert.Equal(t, "dev-123", got.DeviceID)
		assert.InDelta(t, 0.42, got.Data, 1e-9)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestEventBus_FanOut(t *testing.T) {
	bus := NewEventBus()
	sub1 := bus.Subscribe(4)
	sub2 := bus.Subscribe(4)
	defer bus.Unsubscribe(sub1)
	defer bus.Unsubscribe(sub2)

	bus.Publish(Event{Kind: EventStateChanged})

	select {
	case <-sub1.C:
	case <-time.After(time.Second):
		t.Fatal("sub1 did not receive event")
	}

	select {
	case <-sub2.C:
	case <-time.After(time.Second):
		t.Fatal("sub2 did not receive event")
	}
}

func TestEventBus_NonBlockingDrop(t *testing.T) {
	bus := NewEventBus()
	sub := bus.Subscribe(1)
	defer bus.Unsubscribe(sub)

	bus.Publish(Event{Kind: EventAlertChanged})
	bus.Publish(Event{Kind: EventLoggedOut})

	got := <-sub.C
	assert.Equal(t, EventAlertChanged, got.Kind)

	select {
	case <-sub.C:
		t.Fatal("expected channel to be empty after drop")
	default:
	}
}

func TestEventBus_Unsubscribe(t *testing.T) {
	bus := NewEventBus()
	sub := bus.Subscribe(4)

	bus.Unsubscribe(sub)

	_, ok := <-sub.C
	assert.False(t, ok, "channel should be closed after unsubscribe")

	// Double unsubscribe should not panic.
	bus.Unsubscribe(sub)
}

func TestEventBus_Close(t *testing.T) {
	bus := NewEventBus()
	sub := bus.Subscribe(4)

	bus.Close()

	_, ok := <-sub.C
	assert.False(t, ok)

	bus.Unsubscribe(sub)
	bus.Publish(Event{Kind: EventStreamLost})
}
