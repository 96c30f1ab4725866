package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/JesseRWeigel/stay-focused/pkg/engine"
	"github.com/JesseRWeigel/stay-focused/pkg/provider"
)

// Environment variables read by headless mode when pairing on start.
const (
	envEmail    = "STAYFOCUSED_EMAIL"
	envPassword = "STAYFOCUSED_PASSWORD" //nolint:gosec // variable name, not a secret
)

// headlessEngine is the engine surface headless mode drives.
type headlessEngine interface {
	Events() *engine.EventBus
	Snapshot() engine.Snapshot
	Pair(deviceID string) error
	Link(deviceID string, c provider.Credentials) error
}

func runHeadless(ctx context.Context, a *app, device string, w io.Writer) error {
	creds := provider.Credentials{
		Email:    os.Getenv(envEmail),
		Password: os.Getenv(envPassword),
	}
	return headless(ctx, a.engine, device, creds, w)
}

// headless prints one line per focus reading, alert edge and session change
// until ctx is done. When device is set it is paired first, signing in with
// creds if they are complete.
func headless(ctx context.Context, eng headlessEngine, device string, creds provider.Credentials, w io.Writer) error {
	sub := eng.Events().Subscribe(64)
	defer eng.Events().Unsubscribe(sub)

	if device != "" {
		var err error
		if creds.Complete() {
			err = eng.Link(device, creds)
		} else {
			err = eng.Pair(device)
		}
		if err != nil {
			return err
		}
	}

	last := eng.Snapshot()
	_, _ = fmt.Fprintln(w, formatSnapshot(last))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.C:
			if !ok {
				return nil
			}
			line := formatEvent(ev, &last)
			if line != "" {
				_, _ = fmt.Fprintln(w, line)
			}
		}
	}
}

// formatEvent renders ev as a log line, or "" for events that add nothing
// to the output. last tracks the previous snapshot so only phase changes
// are printed.
func formatEvent(ev engine.Event, last *engine.Snapshot) string {
	ts := ev.Timestamp.Format(time.TimeOnly)

	switch ev.Kind {
	case engine.EventFocusSample:
		f, _ := ev.Data.(float64)
		return fmt.Sprintf("%s focus %3d%%", ts, engine.Percent(f))
	case engine.EventAlertChanged:
		if on, _ := ev.Data.(bool); on {
			return ts + " alert: focus dropped"
		}
		return ts + " alert cleared"
	case engine.EventLoginFailed:
		return fmt.Sprintf("%s login failed: %v", ts, ev.Data)
	case engine.EventStreamLost:
		return fmt.Sprintf("%s focus stream lost: %v", ts, ev.Data)
	case engine.EventLoggedOut:
		return ts + " logged out"
	case engine.EventStateChanged:
		s, ok := ev.Data.(engine.Snapshot)
		if !ok {
			return ""
		}
		prev := *last
		*last = s
		if s.Phase == prev.Phase && s.DeviceID == prev.DeviceID && s.Loading == prev.Loading {
			return ""
		}
		return ts + " " + formatSnapshot(s)
	}

	return ""
}

func formatSnapshot(s engine.Snapshot) string {
	if s.Loading {
		return "session: loading"
	}

	line := "session: " + s.Phase.String()
	if s.DeviceID != "" {
		line += " device=" + s.DeviceID
	}
	if s.User != nil {
		line += " user=" + s.User.Email
	}
	if s.Demo {
		line += " demo"
	}
	if s.LastError != "" {
		line += fmt.Sprintf(" error=%q", s.LastError)
	}

	return line
}
