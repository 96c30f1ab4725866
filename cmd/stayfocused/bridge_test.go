package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/JesseRWeigel/stay-focused/pkg/engine"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (r *recordingSender) Send(msg tea.Msg) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recordingSender) received() []tea.Msg {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]tea.Msg(nil), r.msgs...)
}

func TestEventMsg(t *testing.T) {
	snap := engine.Snapshot{DeviceID: "dev-1", Phase: engine.PhaseBound}
	boom := errors.New("boom")

	assert.Equal(t, snapshotMsg{snap: snap}, eventMsg(engine.Event{Kind: engine.EventStateChanged, Data: snap}))
	assert.Equal(t, loginFailedMsg{err: boom}, eventMsg(engine.Event{Kind: engine.EventLoginFailed, Data: boom}))
	assert.Equal(t, streamLostMsg{err: boom}, eventMsg(engine.Event{Kind: engine.EventStreamLost, Data: boom}))

	assert.Nil(t, eventMsg(engine.Event{Kind: engine.EventFocusSample, Data: 0.5}))
	assert.Nil(t, eventMsg(engine.Event{Kind: engine.EventStateChanged, Data: "not a snapshot"}))
}

func TestStartBridge(t *testing.T) {
	bus := engine.NewEventBus()
	p := &recordingSender{}

	stop := startBridge(context.Background(), p, bus)

	bus.Publish(engine.Event{Kind: engine.EventFocusSample, Data: 0.4})
	bus.Publish(engine.Event{Kind: engine.EventStateChanged, Data: engine.Snapshot{DeviceID: "dev-1"}})

	require.Eventually(t, func() bool { return len(p.received()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, snapshotMsg{snap: engine.Snapshot{DeviceID: "dev-1"}}, p.received()[0])

	stop()

	bus.Publish(engine.Event{Kind: engine.EventStateChanged, Data: engine.Snapshot{DeviceID: "dev-2"}})
	assert.Len(t, p.received(), 1)
}

func TestStartBridge_StopsOnContextCancel(t *testing.T) {
	bus := engine.NewEventBus()
	ctx, cancel := context.WithCancel(context.Background())

	stop := startBridge(ctx, &recordingSender{}, bus)
	cancel()

	done := make(chan struct{})
	go func() {
		stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("bridge did not stop")
	}
}
