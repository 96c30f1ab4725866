package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/JesseRWeigel/stay-focused/pkg/feedback"
	"github.com/JesseRWeigel/stay-focused/pkg/identity"
	"github.com/JesseRWeigel/stay-focused/pkg/provider"
)

// fakeProvider is an in-memory provider. Tests drive its streams directly.
type fakeProvider struct {
	deviceID string

	mu          sync.Mutex
	user        *provider.User
	silent      bool // skip the initial auth emission
	quietLogin  bool // Login does not emit on the auth stream
	loginErr    error
	loginGate   chan struct{}
	logins      []provider.Credentials
	logouts     int
	closed      bool
	authSubs    []*provider.Subscription[provider.AuthState]
	focusSubs   []*provider.Subscription[provider.FocusReading]
	focusCalled int
}

var _ provider.Provider = (*fakeProvider)(nil)

func (p *fakeProvider) AuthStateChanges(ctx context.Context) *provider.Subscription[provider.AuthState] {
	sub := provider.NewSubscription[provider.AuthState](ctx, 8)

	p.mu.Lock()
	p.authSubs = append(p.authSubs, sub)
	initial, silent := p.user, p.silent
	p.mu.Unlock()

	go func() {
		<-sub.Context().Done()
		sub.Close(nil)
	}()

	if !silent {
		sub.Send(provider.AuthState{User: initial})
	}

	return sub
}

func (p *fakeProvider) Login(ctx context.Context, c provider.Credentials) (provider.User, error) {
	p.mu.Lock()
	p.logins = append(p.logins, c)
	gate, err, quiet := p.loginGate, p.loginErr, p.quietLogin
	p.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return provider.User{}, ctx.Err()
		}
	}

	if err != nil {
		return provider.User{}, err
	}

	u := provider.User{ID: "user-1", Email: c.Email}
	if quiet {
		p.mu.Lock()
		p.user = &u
		p.mu.Unlock()
	} else {
		p.pushAuth(&u)
	}

	return u, nil
}

func (p *fakeProvider) Logout(_ context.Context) error {
	p.mu.Lock()
	p.logouts++
	p.user = nil
	p.mu.Unlock()

	return nil
}

func (p *fakeProvider) Focus(ctx context.Context) *provider.Subscription[provider.FocusReading] {
	sub := provider.NewSubscription[provider.FocusReading](ctx, 8)

	p.mu.Lock()
	p.focusSubs = append(p.focusSubs, sub)
	p.focusCalled++
	p.mu.Unlock()

	go func() {
		<-sub.Context().Done()
		sub.Close(nil)
	}()

	return sub
}

func (p *fakeProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	for _, s := range p.authSubs {
		s.Close(nil)
	}
	for _, s := range p.focusSubs {
		s.Close(nil)
	}

	return nil
}

// pushAuth records u as the session user and emits it on every auth stream.
func (p *fakeProvider) pushAuth(u *provider.User) {
	p.mu.Lock()
	p.user = u
	subs := append([]*provider.Subscription[provider.AuthState](nil), p.authSubs...)
	p.mu.Unlock()

	for _, s := range subs {
		s.Send(provider.AuthState{User: u})
	}
}

func (p *fakeProvider) lastFocus() *provider.Subscription[provider.FocusReading] {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.focusSubs) == 0 {
		return nil
	}

	return p.focusSubs[len(p.focusSubs)-1]
}

func (p *fakeProvider) emitFocus(v float64) bool {
	sub := p.lastFocus()
	if sub == nil {
		return false
	}

	return sub.Send(provider.FocusReading{Probability: v})
}

func (p *fakeProvider) endFocus(err error) {
	if sub := p.lastFocus(); sub != nil {
		sub.Close(err)
	}
}

func (p *fakeProvider) focusCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.focusCalled
}

func (p *fakeProvider) loginCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.logins)
}

func (p *fakeProvider) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.closed
}

func (p *fakeProvider) logoutCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.logouts
}

// recordingSinks records what the feedback controller asked of the
// indicator and the haptics.
type recordingSinks struct {
	mu      sync.Mutex
	colors  []feedback.Color
	starts  int
	cancels int
}

func (r *recordingSinks) SetColor(c feedback.Color) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.colors = append(r.colors, c)
}

func (r *recordingSinks) StartPulse(time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts++
}

func (r *recordingSinks) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancels++
}

// counts returns the pulse starts, pulse cancels and the last color set.
func (r *recordingSinks) counts() (int, int, feedback.Color) {
	r.mu.Lock()
	defer r.mu.Unlock()

	last := feedback.ColorNeutral
	if len(r.colors) > 0 {
		last = r.colors[len(r.colors)-1]
	}

	return r.starts, r.cancels, last
}

// fakeFactory builds fakeProviders and keeps every one it created.
type fakeFactory struct {
	mu       sync.Mutex
	created  []*fakeProvider
	template func(p *fakeProvider)
}

func (f *fakeFactory) New(deviceID string) provider.Provider {
	p := &fakeProvider{deviceID: deviceID}
	if f.template != nil {
		f.template(p)
	}

	f.mu.Lock()
	f.created = append(f.created, p)
	f.mu.Unlock()

	return p
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.created)
}

func (f *fakeFactory) last() *fakeProvider {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.created) == 0 {
		return nil
	}

	return f.created[len(f.created)-1]
}

// failingStore fails every Load.
type failingStore struct {
	*identity.MemoryStore
}

func (failingStore) Load(context.Context) (string, bool, error) {
	return "", false, errors.New("disk on fire")
}

// gatedStore blocks Load until release is closed.
type gatedStore struct {
	*identity.MemoryStore
	release chan struct{}
	id      string
}

func (s gatedStore) Load(ctx context.Context) (string, bool, error) {
	select {
	case <-s.release:
		return s.id, s.id != "", nil
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
}

// countingRecorder records metric calls.
type countingRecorder struct {
	mu         sync.Mutex
	samples    int
	alerts     []bool
	logins     []bool
	reconnects int
	lost       int
	phases     []string
}

func (r *countingRecorder) RecordFocusSample(float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples++
}

func (r *countingRecorder) RecordAlert(a bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
}

func (r *countingRecorder) RecordLogin(ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logins = append(r.logins, ok)
}

func (r *countingRecorder) RecordReconnect() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reconnects++
}

func (r *countingRecorder) RecordStreamLost() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lost++
}

func (r *countingRecorder) RecordPhase(p string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phases = append(r.phases, p)
}

func (r *countingRecorder) reconnectCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.reconnects
}
