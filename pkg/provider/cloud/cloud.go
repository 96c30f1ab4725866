// Package cloud implements provider.Provider against the device cloud API.
// Login and logout are JSON over HTTP; focus readings arrive over a
// WebSocket as JSON frames.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/JesseRWeigel/stay-focused/pkg/provider"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

var _ provider.Provider = (*Provider)(nil)

// Options configures providers created by NewFactory.
type Options struct {
	Client   *Client
	Sessions *SessionCache // Optional; nil disables session restore.
	Logger   *slog.Logger
}

// Provider is a session handle for one device.
type Provider struct {
	deviceID string
	client   *Client
	sessions *SessionCache
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	ready  chan struct{} // closed once a cached session has been verified

	mu       sync.Mutex
	token    string
	user     *provider.User
	watchers map[chan struct{}]struct{}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"` //nolint:gosec // request payload field
}

type loginResponse struct {
	Token string        `json:"token"`
	User  provider.User `json:"user"`
}

// NewFactory returns a provider.Factory that builds cloud providers.
func NewFactory(opts Options) provider.Factory {
	return func(deviceID string) provider.Provider {
		return New(deviceID, opts)
	}
}

// New creates a Provider for deviceID. If a cached session exists it is
// verified in the background; auth subscribers wait for the verification
// before receiving their first state.
func New(deviceID string, opts Options) *Provider {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	p := &Provider{
		deviceID: deviceID,
		client:   opts.Client,
		sessions: opts.Sessions,
		logger:   logger.With("device_id", deviceID),
		ctx:      ctx,
		cancel:   cancel,
		ready:    make(chan struct{}),
		watchers: make(map[chan struct{}]struct{}),
	}

	if p.sessions == nil {
		close(p.ready)
		return p
	}

	s, ok, err := p.sessions.Load(deviceID)
	if err != nil {
		p.logger.Warn("cloud: load cached session", "error", err)
	}
	if !ok {
		close(p.ready)
		return p
	}

	p.token = s.Token
	user := s.User
	p.user = &user

	go p.verify()

	return p
}

func (p *Provider) devicePath(suffix string) string {
	return "/v1/devices/" + url.PathEscape(p.deviceID) + suffix
}

// verify checks a restored session against the API. A rejected token signs
// the session out; network errors keep the cached user.
func (p *Provider) verify() {
	defer close(p.ready)

	p.mu.Lock()
	token := p.token
	p.mu.Unlock()

	var user provider.User
	err := p.client.GetJSON(p.ctx, p.devicePath("/session"), token, &user)

	var se *StatusError
	switch {
	case err == nil:
		p.mu.Lock()
		if p.token == token {
			p.user = &user
		}
		p.mu.Unlock()
	case errors.As(err, &se) && se.Code == http.StatusUnauthorized:
		p.logger.Info("cloud: cached session expired")
		p.clearSession(token)
	default:
		p.logger.Warn("cloud: verify cached session", "error", err)
	}
}

// AuthStateChanges implements provider.Provider.
func (p *Provider) AuthStateChanges(ctx context.Context) *provider.Subscription[provider.AuthState] {
	sub := provider.NewSubscription[provider.AuthState](ctx, 1)
	stop := context.AfterFunc(p.ctx, sub.Unsubscribe)

	notify := make(chan struct{}, 1)
	p.mu.Lock()
	p.watchers[notify] = struct{}{}
	p.mu.Unlock()

	go func() {
		defer func() {
			stop()
			p.mu.Lock()
			delete(p.watchers, notify)
			p.mu.Unlock()
			sub.Close(nil)
		}()

		select {
		case <-p.ready:
		case <-sub.Context().Done():
			return
		}

		for {
			if !sub.Send(p.authState()) {
				return
			}

			select {
			case <-notify:
			case <-sub.Context().Done():
				return
			}
		}
	}()

	return sub
}

func (p *Provider) authState() provider.AuthState {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.user == nil {
		return provider.AuthState{}
	}

	u := *p.user

	return provider.AuthState{User: &u}
}

// notifyLocked wakes every auth watcher. Must be called with mu held.
func (p *Provider) notifyLocked() {
	for ch := range p.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Login implements provider.Provider.
func (p *Provider) Login(ctx context.Context, c provider.Credentials) (provider.User, error) {
	var resp loginResponse

	err := p.client.PostJSON(ctx, p.devicePath("/login"), "", loginRequest(c), &resp)

	var se *StatusError
	if errors.As(err, &se) && (se.Code == http.StatusUnauthorized || se.Code == http.StatusForbidden) {
		return provider.User{}, provider.ErrInvalidCredentials
	}
	if err != nil {
		return provider.User{}, fmt.Errorf("cloud: login: %w", err)
	}

	if resp.Token == "" || resp.User.ID == "" {
		return provider.User{}, errors.New("cloud: login: response missing token or user")
	}

	p.mu.Lock()
	p.token = resp.Token
	user := resp.User
	p.user = &user
	p.notifyLocked()
	p.mu.Unlock()

	if p.sessions != nil {
		if err := p.sessions.Save(p.deviceID, Session{Token: resp.Token, User: resp.User}); err != nil {
			p.logger.Warn("cloud: cache session", "error", err)
		}
	}

	return resp.User, nil
}

// Logout implements provider.Provider. The local session is cleared even
// when the remote call fails.
func (p *Provider) Logout(ctx context.Context) error {
	p.mu.Lock()
	token := p.token
	p.mu.Unlock()

	var err error
	if token != "" {
		err = p.client.PostJSON(ctx, p.devicePath("/logout"), token, struct{}{}, nil)

		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusUnauthorized {
			err = nil
		}
	}

	p.clearSession(token)

	if err != nil {
		return fmt.Errorf("cloud: logout: %w", err)
	}

	return nil
}

// clearSession signs the provider out and drops the cached session, but only
// while the cache still holds token.
func (p *Provider) clearSession(token string) {
	p.mu.Lock()
	p.token = ""
	p.user = nil
	p.notifyLocked()
	p.mu.Unlock()

	if p.sessions != nil {
		if err := p.sessions.Delete(p.deviceID, token); err != nil {
			p.logger.Warn("cloud: delete cached session", "error", err)
		}
	}
}

// Focus implements provider.Provider.
func (p *Provider) Focus(ctx context.Context) *provider.Subscription[provider.FocusReading] {
	sub := provider.NewSubscription[provider.FocusReading](ctx, 16)
	stop := context.AfterFunc(p.ctx, sub.Unsubscribe)

	go func() {
		defer stop()
		sub.Close(p.streamFocus(sub))
	}()

	return sub
}

// streamFocus reads focus frames until the subscription is cancelled or the
// connection fails. A nil return means the consumer went away.
func (p *Provider) streamFocus(sub *provider.Subscription[provider.FocusReading]) error {
	p.mu.Lock()
	token := p.token
	p.mu.Unlock()

	if token == "" {
		return provider.ErrNotAuthenticated
	}

	ctx := sub.Context()

	conn, err := p.client.DialWS(ctx, p.devicePath("/focus"), token)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusUnauthorized {
			return provider.ErrNotAuthenticated
		}
		return fmt.Errorf("cloud: focus stream: %w", err)
	}
	defer func() { _ = conn.CloseNow() }()

	for {
		var r provider.FocusReading
		if err := wsjson.Read(ctx, conn, &r); err != nil {
			if ctx.Err() != nil {
				_ = conn.Close(websocket.StatusNormalClosure, "")
				return nil
			}
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return provider.ErrStreamClosed
			}
			return fmt.Errorf("cloud: focus stream: %w", err)
		}

		if !sub.Send(r) {
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return nil
		}
	}
}

// Close implements provider.Provider.
func (p *Provider) Close() error {
	p.cancel()
	return nil
}
