package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/JesseRWeigel/stay-focused/pkg/feedback"
	"github.com/JesseRWeigel/stay-focused/pkg/provider"
)

// state is the single-writer state holder. Only the loop goroutine reads or
// writes it.
type state struct {
	deviceID string
	phase    Phase
	user     *provider.User
	focus    float64
	loading  bool
	lastErr  string
	intent   *provider.Credentials // pending one-shot login request
	gen      uint64
	b        *binding
}

func (s *state) snapshot(fb *feedback.Controller) Snapshot {
	snap := Snapshot{
		DeviceID:  s.deviceID,
		Phase:     s.phase,
		Focus:     s.focus,
		Alert:     s.user != nil && fb.State() == feedback.StateAlert,
		Color:     fb.Color(),
		Loading:   s.loading,
		Demo:      s.b != nil && s.b.demo,
		LastError: s.lastErr,
	}

	if s.user != nil {
		u := *s.user
		snap.User = &u
	}

	return snap
}

// binding owns the provider handle for one device identifier together with
// every subscription and timer created for it.
type binding struct {
	gen      uint64
	deviceID string
	demo     bool
	prov     provider.Provider
	ctx      context.Context
	cancel   context.CancelFunc

	authSub       *provider.Subscription[provider.AuthState]
	focusSub      *provider.Subscription[provider.FocusReading]
	focusSeq      uint64
	attempts      int
	reconnect     *time.Timer
	loginInFlight bool
	// authSeen is set once the auth stream itself has reported a user. Until
	// then an absent emission may predate a login that already succeeded.
	authSeen bool
}

func (e *Engine) onStorageLoaded(in storageLoaded) {
	switch {
	case in.err != nil:
		e.logger.Warn("engine: load device id, treating as absent", "error", in.err)
		e.markLoaded()
	case e.st.deviceID != "":
		// Pairing happened before the load completed; user input wins.
		e.logger.Debug("engine: ignoring persisted device id", "device_id", in.id)
	case !in.ok || strings.TrimSpace(in.id) == "":
		e.markLoaded()
	default:
		e.logger.Info("engine: restoring paired device", "device_id", in.id)
		e.bind(strings.TrimSpace(in.id))
	}
}

func (e *Engine) onPair(in pairRequested) {
	id := strings.TrimSpace(in.deviceID)

	switch {
	case id == "":
		e.logger.Debug("engine: empty device id submitted")
		if e.st.b != nil {
			e.unbind()
			e.st.deviceID = ""
			e.st.phase = PhaseUnbound
			e.markLoaded()
		}
	case id != e.st.deviceID:
		e.enqueuePersist(persistOp{kind: persistSave, id: id})
		e.bind(id)
	}

	if in.creds != nil {
		e.onCredentials(*in.creds)
	}
}

func (e *Engine) onCredentials(c provider.Credentials) {
	if !c.Complete() {
		e.logger.Debug("engine: incomplete credentials ignored")
		return
	}

	e.st.intent = &c
	e.tryLogin()
}

// bind replaces the current binding with one for id. The old binding is torn
// down before anything of the new one is installed.
func (e *Engine) bind(id string) {
	e.unbind()

	e.st.gen++
	e.st.deviceID = id
	e.st.lastErr = ""
	e.st.focus = 0

	bctx, cancel := context.WithCancel(e.ctx)
	b := &binding{
		gen:      e.st.gen,
		deviceID: id,
		ctx:      bctx,
		cancel:   cancel,
	}
	e.st.b = b

	if id == e.cfg.Demo.DeviceID {
		b.demo = true
		e.st.intent = nil
		e.markLoaded()
		e.setUser(provider.User{ID: "demo", Email: "demo@localhost"})
		e.startDemo(b)
		e.logger.Info("engine: demo mode", "interval", e.cfg.Demo.Interval)
		return
	}

	if e.factory == nil {
		e.logger.Error("engine: no provider factory configured", "device_id", id)
		e.st.lastErr = "no provider configured"
		e.st.phase = PhaseBound
		e.markLoaded()
		return
	}

	b.prov = e.factory(id)
	e.st.phase = PhaseBound

	b.authSub = b.prov.AuthStateChanges(bctx)
	relay(e, b.authSub,
		func(st provider.AuthState) input { return authChanged{gen: b.gen, state: st} },
		func(err error) input { return authEnded{gen: b.gen, err: err} },
	)

	e.logger.Info("engine: session bound", "device_id", id)

	e.tryLogin()
}

// unbind disposes every subscription, timer and goroutine of the current
// binding and closes its provider. Calling it with no binding is a no-op.
func (e *Engine) unbind() {
	b := e.st.b
	if b == nil {
		return
	}

	e.stopFocus()

	if b.authSub != nil {
		b.authSub.Unsubscribe()
		b.authSub = nil
	}

	b.cancel()

	if b.prov != nil {
		if err := b.prov.Close(); err != nil {
			e.logger.Warn("engine: close provider", "device_id", b.deviceID, "error", err)
		}
	}

	e.st.b = nil
	e.st.user = nil
	e.calm()
}

// calm forces the feedback controller to calm and reports the transition.
func (e *Engine) calm() {
	if e.feedback.ForceCalm() {
		e.metrics.RecordAlert(false)
		e.emit(EventAlertChanged, false)
	}
}

// markLoaded clears the loading flag. It never sets it again.
func (e *Engine) markLoaded() {
	e.st.loading = false
}

func (e *Engine) onAuthChanged(in authChanged) {
	b := e.st.b
	if b == nil || in.gen != b.gen {
		return
	}

	e.markLoaded()

	if in.state.User != nil {
		b.authSeen = true
		e.setUser(*in.state.User)
		return
	}

	if e.st.user != nil && !b.authSeen {
		e.logger.Debug("engine: stale absent auth state after login", "device_id", b.deviceID)
		return
	}

	if e.st.user != nil {
		b.authSeen = false
		e.logger.Info("engine: signed out by provider", "device_id", b.deviceID)
		e.clearUser()
	}

	e.tryLogin()
}

func (e *Engine) onAuthEnded(in authEnded) {
	b := e.st.b
	if b == nil || in.gen != b.gen || b.authSub == nil {
		return
	}

	b.authSub = nil
	e.markLoaded()

	if in.err != nil {
		e.logger.Warn("engine: auth stream ended", "device_id", b.deviceID, "error", in.err)
		e.st.lastErr = "auth stream ended: " + in.err.Error()
	}
}

// tryLogin consumes the login intent when a real session exists, no user is
// present and no other login is running.
func (e *Engine) tryLogin() {
	b := e.st.b
	if e.st.intent == nil || b == nil {
		return
	}

	if b.demo || e.st.user != nil {
		e.st.intent = nil
		return
	}

	if b.loginInFlight || b.prov == nil {
		return
	}

	creds := *e.st.intent
	e.st.intent = nil
	b.loginInFlight = true
	e.st.phase = PhaseAuthenticating
	e.st.lastErr = ""

	prov, gen, ctx := b.prov, b.gen, b.ctx
	e.wg.Go(func() {
		user, err := prov.Login(ctx, creds)
		_ = e.post(loginFinished{gen: gen, user: user, err: err})
	})
}

func (e *Engine) onLoginFinished(in loginFinished) {
	b := e.st.b
	if b == nil || in.gen != b.gen {
		return
	}

	b.loginInFlight = false

	if in.err != nil {
		e.metrics.RecordLogin(false)
		e.logger.Warn("engine: login failed", "device_id", b.deviceID, "error", in.err)

		e.st.lastErr = loginErrorText(in.err)
		if e.st.user == nil {
			e.st.phase = PhaseBound
		}

		e.emit(EventLoginFailed, in.err)
		e.tryLogin()

		return
	}

	e.metrics.RecordLogin(true)
	e.markLoaded()
	e.setUser(in.user)
}

func loginErrorText(err error) string {
	if errors.Is(err, provider.ErrInvalidCredentials) {
		return "login failed: invalid email or password"
	}
	return "login failed: " + err.Error()
}

// setUser enters Authenticated and activates the focus stream.
func (e *Engine) setUser(u provider.User) {
	if e.st.user != nil && *e.st.user == u {
		return
	}

	e.st.user = &u
	e.st.phase = PhaseAuthenticated
	e.st.intent = nil

	if e.st.b != nil && !e.st.b.demo {
		e.startFocus()
	}
}

// clearUser leaves Authenticated: the focus stream is disposed and feedback
// is forced calm.
func (e *Engine) clearUser() {
	e.stopFocus()
	e.st.user = nil

	if e.st.b != nil && e.st.b.loginInFlight {
		e.st.phase = PhaseAuthenticating
	} else {
		e.st.phase = PhaseBound
	}

	e.calm()
}

func (e *Engine) onLogout() {
	var prov provider.Provider
	if b := e.st.b; b != nil {
		prov = b.prov
		// Keep the provider open until its logout call returns.
		b.prov = nil
	}

	deviceID := e.st.deviceID

	e.unbind()

	e.st.deviceID = ""
	e.st.user = nil
	e.st.intent = nil
	e.st.focus = 0
	e.st.phase = PhaseUnbound
	e.st.lastErr = ""
	e.markLoaded()
	e.calm()

	e.enqueuePersist(persistOp{kind: persistClear})

	if prov != nil {
		e.wg.Go(func() {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(e.ctx), logoutTimeout)
			defer cancel()

			err := prov.Logout(ctx)
			if cerr := prov.Close(); cerr != nil && err == nil {
				err = cerr
			}
			_ = e.post(logoutFinished{deviceID: deviceID, err: err})
		})
	}

	e.logger.Info("engine: logged out", "device_id", deviceID)
	e.emit(EventLoggedOut, nil)
}

const logoutTimeout = 10 * time.Second

func (e *Engine) onLogoutFinished(in logoutFinished) {
	if in.err != nil {
		e.logger.Warn("engine: provider logout", "device_id", in.deviceID, "error", in.err)
	}
}

// relay forwards a provider subscription into the engine inbox until the
// subscription ends.
func relay[T any](e *Engine, sub *provider.Subscription[T], wrap func(T) input, end func(error) input) {
	e.wg.Go(func() {
		for v := range sub.C {
			if err := e.post(wrap(v)); err != nil {
				sub.Unsubscribe()
				// Drain so the producer can observe the cancellation and close.
				for range sub.C {
				}
				return
			}
		}
		_ = e.post(end(sub.Err()))
	})
}
