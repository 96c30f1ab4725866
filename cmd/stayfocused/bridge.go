package main

import (
	"context"
	"sync"

	"github.com/JesseRWeigel/stay-focused/pkg/engine"
	tea "github.com/charmbracelet/bubbletea"
)

// sender is the part of *tea.Program the bridge uses.
type sender interface {
	Send(msg tea.Msg)
}

// startBridge converts engine events into bubbletea messages. The goroutine
// only calls p.Send and never touches model state. The returned function
// cancels the bridge and waits for it to exit.
func startBridge(ctx context.Context, p sender, events *engine.EventBus) context.CancelFunc {
	bridgeCtx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup
	sub := events.Subscribe(64)

	wg.Go(func() {
		defer events.Unsubscribe(sub)
		for {
			select {
			case <-bridgeCtx.Done():
				return
			case ev, ok := <-sub.C:
				if !ok {
					return
				}
				if msg := eventMsg(ev); msg != nil {
					p.Send(msg)
				}
			}
		}
	})

	return func() {
		cancel()
		wg.Wait()
	}
}

// eventMsg maps an engine event to the message the model handles, or nil
// for events the TUI ignores.
func eventMsg(ev engine.Event) tea.Msg {
	switch ev.Kind {
	case engine.EventStateChanged:
		if s, ok := ev.Data.(engine.Snapshot); ok {
			return snapshotMsg{snap: s}
		}
	case engine.EventLoginFailed:
		err, _ := ev.Data.(error)
		return loginFailedMsg{err: err}
	case engine.EventStreamLost:
		err, _ := ev.Data.(error)
		return streamLostMsg{err: err}
	}

	return nil
}
