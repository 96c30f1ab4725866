// Package provider defines the boundary to the remote device SDK. A Provider
// is constructed for one device identifier and exposes an auth-change
// stream, login and logout operations, and a continuous focus stream.
package provider

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInvalidCredentials is returned by Login when the account rejects
	// the email/password pair.
	ErrInvalidCredentials = errors.New("provider: invalid credentials")
	// ErrNotAuthenticated is reported when an operation needs a session
	// and none exists.
	ErrNotAuthenticated = errors.New("provider: not authenticated")
	// ErrStreamClosed is reported when the remote end closes a stream.
	ErrStreamClosed = errors.New("provider: stream closed")
)

// User is the identity returned by a successful login or restored session.
type User struct {
	ID    string `json:"id" yaml:"id"`
	Email string `json:"email,omitempty" yaml:"email,omitempty"`
}

// Credentials is an email/password pair. It is never persisted.
type Credentials struct {
	Email    string
	Password string //nolint:gosec // transient user input, not a hardcoded secret
}

// Complete reports whether both fields are non-empty.
func (c Credentials) Complete() bool {
	return c.Email != "" && c.Password != ""
}

// AuthState is one emission of the auth-change stream. A nil User means
// the session is signed out.
type AuthState struct {
	User *User
}

// FocusReading is one emission of the focus stream.
type FocusReading struct {
	Probability float64   `json:"probability"`
	Timestamp   time.Time `json:"timestamp"`
}

// Provider is a session handle bound to one device.
type Provider interface {
	// AuthStateChanges subscribes to auth changes. The current state is
	// delivered first.
	AuthStateChanges(ctx context.Context) *Subscription[AuthState]
	// Login signs in to the account bound to the device.
	Login(ctx context.Context, c Credentials) (User, error)
	// Logout invalidates the session.
	Logout(ctx context.Context) error
	// Focus subscribes to focus probability readings.
	Focus(ctx context.Context) *Subscription[FocusReading]
	// Close releases the handle. Subscriptions still open are ended.
	Close() error
}

// Factory constructs a Provider for a device identifier. Construction never
// fails; errors surface through subscriptions and Login.
type Factory func(deviceID string) Provider
