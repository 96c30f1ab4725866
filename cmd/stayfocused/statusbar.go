package main

import (
	"strings"

	"github.com/JesseRWeigel/stay-focused/pkg/engine"
	"github.com/mattn/go-runewidth"
)

// statusLine summarizes the session in one line that fits width cells.
func statusLine(s engine.Snapshot, width int) string {
	parts := []string{s.Phase.String()}

	if s.DeviceID != "" {
		parts = append(parts, "device "+s.DeviceID)
	}
	if s.User != nil && s.User.Email != "" {
		parts = append(parts, s.User.Email)
	}
	if s.Demo {
		parts = append(parts, "demo")
	}
	if s.LastError != "" {
		parts = append(parts, s.LastError)
	}

	line := " " + strings.Join(parts, " · ")
	if width > 0 && runewidth.StringWidth(line) > width {
		line = runewidth.Truncate(line, width, "…")
	}

	return line
}
