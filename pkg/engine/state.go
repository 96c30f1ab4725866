package engine

import (
	"fmt"
	"time"

	"github.com/JesseRWeigel/stay-focused/pkg/feedback"
	"github.com/JesseRWeigel/stay-focused/pkg/provider"
)

// Phase is the auth state machine position.
type Phase int

const (
	PhaseUnbound        Phase = iota // No device identifier.
	PhaseBound                       // Session exists, no user.
	PhaseAuthenticating              // Login in flight.
	PhaseAuthenticated               // User present.
)

func (p Phase) String() string {
	switch p {
	case PhaseBound:
		return "bound"
	case PhaseAuthenticating:
		return "authenticating"
	case PhaseAuthenticated:
		return "authenticated"
	default:
		return "unbound"
	}
}

// MarshalText renders the phase by name in JSON and YAML.
func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText parses a phase name written by MarshalText.
func (p *Phase) UnmarshalText(b []byte) error {
	for _, c := range []Phase{PhaseUnbound, PhaseBound, PhaseAuthenticating, PhaseAuthenticated} {
		if c.String() == string(b) {
			*p = c
			return nil
		}
	}

	return fmt.Errorf("engine: unknown phase %q", b)
}

// Snapshot is an immutable view of the engine state.
type Snapshot struct {
	DeviceID  string         `json:"device_id"`
	Phase     Phase          `json:"phase"`
	User      *provider.User `json:"user,omitempty"`
	Focus     float64        `json:"focus"`
	Alert     bool           `json:"alert"`
	Color     feedback.Color `json:"-"`
	Loading   bool           `json:"loading"`
	Demo      bool           `json:"demo"`
	LastError string         `json:"last_error,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Linked reports whether a user is present.
func (s Snapshot) Linked() bool { return s.User != nil }

// equal compares snapshots ignoring UpdatedAt.
func (s Snapshot) equal(o Snapshot) bool {
	if (s.User == nil) != (o.User == nil) {
		return false
	}
	if s.User != nil && *s.User != *o.User {
		return false
	}

	return s.DeviceID == o.DeviceID &&
		s.Phase == o.Phase &&
		s.Focus == o.Focus &&
		s.Alert == o.Alert &&
		s.Color == o.Color &&
		s.Loading == o.Loading &&
		s.Demo == o.Demo &&
		s.LastError == o.LastError
}
