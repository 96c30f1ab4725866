package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/JesseRWeigel/stay-focused/pkg/tools/toolbox"
)

// Tools returns a toolbox that exposes the engine to assistants over MCP.
func (e *Engine) Tools() *toolbox.ToolBox {
	tb := toolbox.New()

	tb.Register(
		toolbox.Tool{
			Name:        "focus_status",
			Description: "Get the latest focus probability and whether the low-focus alert is active.",
			InputSchema: toolbox.EmptySchema,
			Handler:     e.handleFocusStatus,
		},
		toolbox.Tool{
			Name:        "session_status",
			Description: "Get the paired device identifier, auth phase and signed-in user.",
			InputSchema: toolbox.EmptySchema,
			Handler:     e.handleSessionStatus,
		},
		toolbox.Tool{
			Name:        "pair",
			Description: "Pair a device identifier. Use an empty identifier to drop the current pairing.",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"device_id":{"type":"string"}},"required":["device_id"]}`),
			Handler:     e.handlePair,
		},
		toolbox.Tool{
			Name:        "logout",
			Description: "Sign out and forget the paired device.",
			InputSchema: toolbox.EmptySchema,
			Handler:     e.handleLogout,
		},
	)

	return tb
}

type focusStatus struct {
	Linked    bool    `json:"linked"`
	Focus     float64 `json:"focus"`
	Percent   int     `json:"percent"`
	Alert     bool    `json:"alert"`
	Threshold float64 `json:"threshold"`
	Demo      bool    `json:"demo"`
}

type pairInput struct {
	DeviceID string `json:"device_id"`
}

func (e *Engine) handleFocusStatus(_ context.Context, _ json.RawMessage) (string, error) {
	s := e.Snapshot()
	if !s.Linked() {
		return "", errors.New("no signed-in user")
	}

	return encode(focusStatus{
		Linked:    true,
		Focus:     s.Focus,
		Percent:   Percent(s.Focus),
		Alert:     s.Alert,
		Threshold: e.cfg.Feedback.Threshold,
		Demo:      s.Demo,
	})
}

func (e *Engine) handleSessionStatus(_ context.Context, _ json.RawMessage) (string, error) {
	return encode(e.Snapshot())
}

func (e *Engine) handlePair(_ context.Context, input json.RawMessage) (string, error) {
	var in pairInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}

	if err := e.Pair(in.DeviceID); err != nil {
		return "", err
	}

	return "ok", nil
}

func (e *Engine) handleLogout(_ context.Context, _ json.RawMessage) (string, error) {
	if err := e.Logout(); err != nil {
		return "", err
	}

	return "ok", nil
}

// Percent renders a focus probability as a whole percentage.
func Percent(focus float64) int {
	return int(RoundFocus(focus)*100 + 0.5) //nolint:mnd // round half up
}

func encode(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}

	return string(b), nil
}
