package main

import (
	"strings"
	"testing"

	"github.com/JesseRWeigel/stay-focused/pkg/engine"
	"github.com/JesseRWeigel/stay-focused/pkg/provider"
	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
)

func TestStatusLine_Unbound(t *testing.T) {
	assert.Equal(t, " unbound", statusLine(engine.Snapshot{}, 80))
}

func TestStatusLine_Linked(t *testing.T) {
	s := engine.Snapshot{
		DeviceID: "demo",
		Phase:    engine.PhaseAuthenticated,
		User:     &provider.User{ID: "u1", Email: "ada@example.com"},
		Demo:     true,
	}

	line := statusLine(s, 0)
	assert.Equal(t, " authenticated · device demo · ada@example.com · demo", line)
}

func TestStatusLine_Truncates(t *testing.T) {
	s := engine.Snapshot{
		DeviceID:  "dev-1",
		Phase:     engine.PhaseBound,
		LastError: strings.Repeat("x", 100),
	}

	line := statusLine(s, 20)
	assert.LessOrEqual(t, runewidth.StringWidth(line), 20)
	assert.True(t, strings.HasSuffix(line, "…"))
}
