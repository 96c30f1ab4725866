package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// RateLimitError is returned when the API responds with HTTP 429 (Too Many Requests).
// It carries an optional RetryAfter duration parsed from the Retry-After header.
type RateLimitError struct {
	RetryAfter time.Duration
	Body       string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (retry after %s): %s", e.RetryAfter, e.Body)
	}
	return fmt.Sprintf("rate limited: %s", e.Body)
}

// StatusError is returned for any other non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// ParseRetryAfter parses the Retry-After header value as either seconds (integer)
// or an HTTP-date (RFC 7231). Returns zero if unparseable or if the date is in the past.
func ParseRetryAfter(val string) time.Duration {
	if val == "" {
		return 0
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(val); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// Auth holds the API key settings sent with every request.
type Auth struct {
	Key    string // API key value.
	Header string // Header name (default: "Authorization").
	Scheme string // Scheme prefix (default: "Bearer" when Header is "Authorization").
}

// Client holds the HTTP and WebSocket plumbing shared by all device sessions.
type Client struct {
	BaseURL string            // API base URL (no trailing slash).
	Auth    Auth              // API key settings.
	Client  *http.Client      // HTTP client; falls back to a cached default.
	Headers map[string]string // Extra headers applied to every request.

	clientOnce    sync.Once
	defaultClient *http.Client
}

// NewClient creates a Client with the given settings.
// A nil client falls back to a default client with a one minute timeout.
func NewClient(baseURL string, auth Auth, client *http.Client) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Auth:    auth,
		Client:  client,
	}
}

func (c *Client) httpClient() *http.Client {
	if c.Client != nil {
		return c.Client
	}

	c.clientOnce.Do(func() {
		c.defaultClient = &http.Client{Timeout: time.Minute}
	})

	return c.defaultClient
}

// applyHeaders sets the API key, the session token (if any) and the custom
// headers on h.
func (c *Client) applyHeaders(h http.Header, token string) {
	if c.Auth.Key != "" {
		header := c.Auth.Header
		if header == "" {
			header = "Authorization"
		}

		value := c.Auth.Key
		if header == "Authorization" {
			scheme := c.Auth.Scheme
			if scheme == "" {
				scheme = "Bearer"
			}

			value = scheme + " " + value
		} else if c.Auth.Scheme != "" {
			value = c.Auth.Scheme + " " + value
		}

		h.Set(header, value)
	}

	if token != "" {
		h.Set("X-Session-Token", token)
	}

	for k, v := range c.Headers {
		h.Set(k, v)
	}
}

// NewRequest builds an *http.Request with the base URL and headers applied.
func (c *Client) NewRequest(ctx context.Context, method, path, token string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}

	c.applyHeaders(req.Header, token)

	return req, nil
}

// Do sends the request and maps non-2xx responses to errors. On success the
// body is decoded into dest unless dest is nil.
func (c *Client) Do(req *http.Request, dest any) error {
	resp, err := c.httpClient().Do(req) //nolint:gosec // URL is built from trusted BaseURL config, not user input.
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		respBody, _ := io.ReadAll(resp.Body)
		return &RateLimitError{
			RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After")),
			Body:       string(respBody),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	if dest == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

// PostJSON marshals payload as JSON, sends a POST to the given path and
// unmarshals the response body into dest.
func (c *Client) PostJSON(ctx context.Context, path, token string, payload, dest any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := c.NewRequest(ctx, http.MethodPost, path, token, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	return c.Do(req, dest)
}

// GetJSON sends a GET to the given path and unmarshals the response into dest.
func (c *Client) GetJSON(ctx context.Context, path, token string, dest any) error {
	req, err := c.NewRequest(ctx, http.MethodGet, path, token, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	return c.Do(req, dest)
}

// wsURL converts the BaseURL to a WebSocket URL and appends the path.
// https becomes wss, http becomes ws.
func (c *Client) wsURL(path string) string {
	u := c.BaseURL + path

	if strings.HasPrefix(u, "https://") {
		return "wss://" + u[len("https://"):]
	}

	if strings.HasPrefix(u, "http://") {
		return "ws://" + u[len("http://"):]
	}

	return u
}

// DialWS establishes a WebSocket connection to the given path with the API
// key, session token and custom headers applied.
func (c *Client) DialWS(ctx context.Context, path, token string) (*websocket.Conn, error) {
	h := make(http.Header)
	c.applyHeaders(h, token)

	// The websocket library rejects clients with a Timeout; the dial is
	// bounded by ctx instead.
	hc := *c.httpClient()
	hc.Timeout = 0

	conn, resp, err := websocket.Dial(ctx, c.wsURL(path), &websocket.DialOptions{
		HTTPClient: &hc,
		HTTPHeader: h,
	})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, &StatusError{Code: resp.StatusCode, Body: "websocket handshake rejected"}
		}
		return nil, fmt.Errorf("dial websocket: %w", err)
	}

	return conn, nil
}
