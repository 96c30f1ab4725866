// Package feedback turns focus samples into user feedback. A Controller
// derives a calm/alert state from the latest sample and drives three
// independent sinks: a background color indicator, a haptic pulse, and a
// notification emitter.
package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Default tuning values.
const (
	DefaultThreshold = 0.20
	DefaultPulse     = 10 * time.Second
)

// State is the derived alert state.
type State int

const (
	StateCalm State = iota
	StateAlert
)

func (s State) String() string {
	if s == StateAlert {
		return "alert"
	}
	return "calm"
}

// Color is the two-valued background signal.
type Color int

const (
	ColorNeutral Color = iota
	ColorAlert
)

func (c Color) String() string {
	if c == ColorAlert {
		return "alert"
	}
	return "neutral"
}

// Notification is a single user-facing notice.
type Notification struct {
	ID    string
	Title string
	Body  string
	At    time.Time
}

// Indicator renders the background color signal.
type Indicator interface {
	SetColor(c Color)
}

// Haptics drives a vibration actuator.
type Haptics interface {
	StartPulse(d time.Duration)
	Cancel()
}

// Notifier emits platform notifications.
type Notifier interface {
	PermissionGranted() bool
	RequestPermission(ctx context.Context) bool
	Fire(ctx context.Context, n Notification) error
}

// Options configures a Controller. Nil sinks are replaced with no-ops.
type Options struct {
	Threshold         float64       // Alert when focus < Threshold (default 0.20).
	Pulse             time.Duration // Haptic pulse length (default 10s).
	NotifyMinInterval time.Duration // Minimum spacing between notifications (0 = once per edge only).
	Indicator         Indicator
	Haptics           Haptics
	Notifier          Notifier
	Logger            *slog.Logger
}

// Controller is a pure-threshold switch between calm and alert. Sinks are
// only invoked on transitions.
type Controller struct {
	threshold float64
	pulse     time.Duration
	indicator Indicator
	haptics   Haptics
	notifier  Notifier
	limiter   *rate.Limiter
	logger    *slog.Logger

	// nowFunc is used for testing; defaults to time.Now.
	nowFunc func() time.Time

	mu       sync.Mutex
	state    State
	color    Color
	pulsing  bool
	notified int
}

// NewController creates a Controller in the calm state.
func NewController(opts Options) *Controller {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Pulse <= 0 {
		opts.Pulse = DefaultPulse
	}
	if opts.Indicator == nil {
		opts.Indicator = nopIndicator{}
	}
	if opts.Haptics == nil {
		opts.Haptics = nopHaptics{}
	}
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	c := &Controller{
		threshold: opts.Threshold,
		pulse:     opts.Pulse,
		indicator: opts.Indicator,
		haptics:   opts.Haptics,
		notifier:  opts.Notifier,
		logger:    opts.Logger,
		nowFunc:   time.Now,
	}

	if opts.NotifyMinInterval > 0 {
		c.limiter = rate.NewLimiter(rate.Every(opts.NotifyMinInterval), 1)
	}

	return c
}

// SetNowFunc overrides the time source (for testing).
func (c *Controller) SetNowFunc(fn func() time.Time) { c.nowFunc = fn }

// Evaluate is the alert rule: alert iff authenticated and focus is below threshold.
func Evaluate(focus float64, authenticated bool, threshold float64) State {
	if authenticated && focus < threshold {
		return StateAlert
	}
	return StateCalm
}

// Observe re-evaluates the state for a new sample and applies the
// transition, if any. It reports the resulting state and whether it changed.
func (c *Controller) Observe(focus float64, authenticated bool) (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := Evaluate(focus, authenticated, c.threshold)

	return next, c.transition(next)
}

// ForceCalm moves to calm regardless of the last sample. It is used on
// logout and when the session is lost.
func (c *Controller) ForceCalm() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.transition(StateCalm)
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Color returns the color last sent to the indicator.
func (c *Controller) Color() Color {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.color
}

// notifiedCount returns how many notifications have been fired.
func (c *Controller) notifiedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.notified
}

// RequestNotificationPermission asks the notifier for permission.
func (c *Controller) RequestNotificationPermission(ctx context.Context) bool {
	return c.notifier.RequestPermission(ctx)
}

// transition applies the side effects for moving to next. Must be called with mu held.
func (c *Controller) transition(next State) bool {
	if next == c.state {
		return false
	}

	c.state = next

	switch next {
	case StateAlert:
		c.setColor(ColorAlert)
		c.haptics.StartPulse(c.pulse)
		c.pulsing = true
		c.notify()
	case StateCalm:
		c.setColor(ColorNeutral)
		if c.pulsing {
			c.haptics.Cancel()
			c.pulsing = false
		}
	}

	c.logger.Debug("feedback: transition", "state", next.String())

	return true
}

func (c *Controller) setColor(col Color) {
	c.color = col
	c.indicator.SetColor(col)
}

// notify fires at most one notification per calm to alert edge, subject to
// the permission check and the optional rate limit.
func (c *Controller) notify() {
	if !c.notifier.PermissionGranted() {
		return
	}

	now := c.nowFunc()
	if c.limiter != nil && !c.limiter.AllowN(now, 1) {
		c.logger.Debug("feedback: notification suppressed by rate limit")
		return
	}

	n := Notification{
		ID:    uuid.NewString(),
		Title: "Focus dropped",
		Body:  fmt.Sprintf("Your focus fell below %.0f%%.", c.threshold*100),
		At:    now,
	}

	if err := c.notifier.Fire(context.Background(), n); err != nil {
		c.logger.Warn("feedback: fire notification", "error", err)
		return
	}

	c.notified++
}

type nopIndicator struct{}

func (nopIndicator) SetColor(Color) {}

type nopHaptics struct{}

func (nopHaptics) StartPulse(time.Duration) {}
func (nopHaptics) Cancel()                  {}

type nopNotifier struct{}

func (nopNotifier) PermissionGranted() bool                  { return false }
func (nopNotifier) RequestPermission(context.Context) bool   { return false }
func (nopNotifier) Fire(context.Context, Notification) error { return nil }
