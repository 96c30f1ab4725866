package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JesseRWeigel/stay-focused/pkg/feedback"
	"github.com/JesseRWeigel/stay-focused/pkg/identity"
	"github.com/JesseRWeigel/stay-focused/pkg/provider"
)

// ErrClosed is returned by operations on a closed Engine.
var ErrClosed = errors.New("engine: closed")

// Recorder receives engine metrics. metrics.Collector implements it.
type Recorder interface {
	RecordFocusSample(p float64)
	RecordAlert(alert bool)
	RecordLogin(ok bool)
	RecordReconnect()
	RecordStreamLost()
	RecordPhase(phase string)
}

// Options holds the collaborators of an Engine.
type Options struct {
	Store    identity.Store       // Required.
	Factory  provider.Factory     // Required unless only demo mode is used.
	Feedback *feedback.Controller // Defaults to a controller built from Config.Feedback with no-op sinks.
	Metrics  Recorder             // Optional.
	Logger   *slog.Logger         // Defaults to slog.Default().
}

// Engine owns the pairing, auth, focus and feedback state. All state is
// mutated by a single loop goroutine; every external event is posted to its
// inbox. Readers use Snapshot and the EventBus.
type Engine struct {
	cfg      Config
	store    identity.Store
	factory  provider.Factory
	feedback *feedback.Controller
	metrics  Recorder
	events   *EventBus
	logger   *slog.Logger

	// randFunc produces demo samples; jitterFunc spreads reconnect delays.
	// Both default to rand.Float64 and are replaced in tests.
	randFunc   func() float64
	jitterFunc func() float64

	ctx     context.Context
	cancel  context.CancelFunc
	inbox   chan input
	persist chan persistOp
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
	snap    atomic.Pointer[Snapshot]

	st state // owned by the loop goroutine
}

// New validates cfg, starts the engine loop and begins loading the
// persisted device identifier.
func New(ctx context.Context, cfg Config, opts Options) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if opts.Store == nil {
		return nil, fmt.Errorf("engine: identity store is required")
	}

	e := newEngine(ctx, cfg, opts)
	e.start()

	return e, nil
}

func newEngine(ctx context.Context, cfg Config, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	fb := opts.Feedback
	if fb == nil {
		fb = feedback.NewController(feedback.Options{
			Threshold:         cfg.Feedback.Threshold,
			Pulse:             cfg.Feedback.Pulse,
			NotifyMinInterval: cfg.Feedback.NotifyMinInterval,
			Logger:            logger,
		})
	}

	rec := opts.Metrics
	if rec == nil {
		rec = nopRecorder{}
	}

	ectx, cancel := context.WithCancel(ctx)

	e := &Engine{
		cfg:        cfg,
		store:      opts.Store,
		factory:    opts.Factory,
		feedback:   fb,
		metrics:    rec,
		events:     NewEventBus(),
		logger:     logger,
		randFunc:   rand.Float64,
		jitterFunc: rand.Float64,
		ctx:        ectx,
		cancel:     cancel,
		inbox:      make(chan input, 64),
		persist:    make(chan persistOp, 16),
		done:       make(chan struct{}),
		st:         state{loading: true},
	}

	e.snap.Store(&Snapshot{Loading: true, UpdatedAt: time.Now()})

	return e
}

func (e *Engine) start() {
	e.wg.Go(e.persistLoop)
	e.wg.Go(e.run)

	e.enqueuePersist(persistOp{kind: persistLoad})
}

// Events returns the engine's event bus.
func (e *Engine) Events() *EventBus { return e.events }

// Snapshot returns the latest published state.
func (e *Engine) Snapshot() Snapshot { return *e.snap.Load() }

// Config returns the configuration the engine was built with.
func (e *Engine) Config() Config { return e.cfg }

// Pair submits a device identifier. Re-submitting the current identifier is
// a no-op; a different one replaces the session. An empty identifier drops
// the current session without an error.
func (e *Engine) Pair(deviceID string) error {
	return e.post(pairRequested{deviceID: deviceID})
}

// SubmitCredentials records a one-shot login intent. It is consumed by a
// single login call as soon as a session exists and no user is present.
func (e *Engine) SubmitCredentials(c provider.Credentials) error {
	return e.post(credentialsSubmitted{creds: c})
}

// Link pairs deviceID and submits credentials in one step, as the pairing
// screen does.
func (e *Engine) Link(deviceID string, c provider.Credentials) error {
	return e.post(pairRequested{deviceID: deviceID, creds: &c})
}

// Logout invalidates the provider session and resets everything to the
// initial unpaired state, including the persisted identifier.
func (e *Engine) Logout() error {
	return e.post(logoutRequested{})
}

// RequestNotificationPermission asks the notification sink for permission.
func (e *Engine) RequestNotificationPermission(ctx context.Context) bool {
	return e.feedback.RequestNotificationPermission(ctx)
}

// Close stops the loop, tears down the session and waits for every helper
// goroutine. It does not close the identity store.
func (e *Engine) Close() error {
	e.once.Do(func() {
		e.cancel()
		e.wg.Wait()
		e.events.Close()
	})

	return nil
}

// post delivers an input to the loop.
func (e *Engine) post(in input) error {
	if e.ctx.Err() != nil {
		return ErrClosed
	}

	select {
	case e.inbox <- in:
		return nil
	case <-e.done:
		return ErrClosed
	case <-e.ctx.Done():
		return ErrClosed
	}
}

// sync waits until every input posted before it has been handled.
func (e *Engine) sync() error {
	ack := make(chan struct{})
	if err := e.post(syncRequest{ack: ack}); err != nil {
		return err
	}

	select {
	case <-ack:
		return nil
	case <-e.done:
		return ErrClosed
	}
}

// run is the engine loop. It is the only goroutine that touches e.st.
func (e *Engine) run() {
	defer close(e.done)

	for {
		select {
		case <-e.ctx.Done():
			e.shutdown()
			return
		case in := <-e.inbox:
			e.handle(in)
			e.publish()
		}
	}
}

func (e *Engine) handle(in input) {
	switch in := in.(type) {
	case storageLoaded:
		e.onStorageLoaded(in)
	case pairRequested:
		e.onPair(in)
	case credentialsSubmitted:
		e.onCredentials(in.creds)
	case logoutRequested:
		e.onLogout()
	case logoutFinished:
		e.onLogoutFinished(in)
	case authChanged:
		e.onAuthChanged(in)
	case authEnded:
		e.onAuthEnded(in)
	case loginFinished:
		e.onLoginFinished(in)
	case focusReceived:
		e.onFocus(in.gen, in.seq, in.reading.Probability)
	case focusEnded:
		e.onFocusEnded(in)
	case reconnectDue:
		e.onReconnectDue(in)
	case demoTick:
		e.onFocus(in.gen, 0, in.probability)
	case syncRequest:
		close(in.ack)
	default:
		e.logger.Error("engine: unknown input", "type", fmt.Sprintf("%T", in))
	}
}

// publish stores a fresh snapshot and emits EventStateChanged when it differs
// from the previous one.
func (e *Engine) publish() {
	next := e.st.snapshot(e.feedback)

	prev := e.snap.Load()
	if prev.equal(next) {
		return
	}

	next.UpdatedAt = time.Now()
	e.snap.Store(&next)

	if prev.Phase != next.Phase {
		e.metrics.RecordPhase(next.Phase.String())
	}

	e.emit(EventStateChanged, next)
}

func (e *Engine) emit(kind EventKind, data any) {
	e.events.Publish(Event{
		Kind:      kind,
		DeviceID:  e.st.deviceID,
		Timestamp: time.Now(),
		Data:      data,
	})
}

// shutdown tears down the active binding when the engine stops.
func (e *Engine) shutdown() {
	e.unbind()
	e.calm()
	e.logger.Debug("engine: stopped")
}

type nopRecorder struct{}

func (nopRecorder) RecordFocusSample(float64) {}
func (nopRecorder) RecordAlert(bool)          {}
func (nopRecorder) RecordLogin(bool)          {}
func (nopRecorder) RecordReconnect()          {}
func (nopRecorder) RecordStreamLost()         {}
func (nopRecorder) RecordPhase(string)        {}
