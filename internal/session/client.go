// Package session talks to the auth bridge on behalf of the terminal client.
//
// It wraps the better-auth email endpoints exposed through the bridge and
// keeps the resulting session state (bearer token, user identity, cookies)
// so the rest of the client can ask "who am I" without re-authenticating.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"
)

const defaultTimeout = 15 * time.Second

// ErrNoSession indicates there is no active session.
var ErrNoSession = errors.New("no active session")

// User identifies an authenticated account.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Session is the authenticated state: the bearer token plus the user it
// belongs to.
type Session struct {
	Token string
	User  User
}

// APIError is a structured failure returned by the auth service. Its message
// is surfaced to the user verbatim.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("auth request failed with status %d", e.StatusCode)
}

// Listener receives the new session state whenever presence changes. A nil
// session means logged out.
type Listener func(*Session)

// Client authenticates against the bridge and holds the active session.
// Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu        sync.RWMutex
	session   *Session
	listeners []Listener
}

// NewClient creates a session client for the bridge at baseURL. The client
// carries a cookie jar so better-auth's session cookies ride along on every
// subsequent call.
func NewClient(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: defaultTimeout,
		},
	}, nil
}

// Subscribe registers a listener for session presence changes. Listeners are
// called synchronously from the call that changed the session.
func (c *Client) Subscribe(fn Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Current returns the active session, or nil when logged out.
func (c *Client) Current() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Token returns the active bearer token, or the empty string when logged out.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return ""
	}
	return c.session.Token
}

type authPayload struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// SignUp registers a new account and establishes a session.
func (c *Client) SignUp(ctx context.Context, name, email, password string) (*Session, error) {
	body := map[string]string{"name": name, "email": email, "password": password}
	var payload authPayload
	if err := c.post(ctx, "/api/auth/sign-up/email", body, &payload); err != nil {
		return nil, err
	}
	return c.setSession(payload), nil
}

// SignIn authenticates an existing account and establishes a session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}
	var payload authPayload
	if err := c.post(ctx, "/api/auth/sign-in/email", body, &payload); err != nil {
		return nil, err
	}
	return c.setSession(payload), nil
}

// SignOut ends the session on the auth service and clears local state. Local
// state is cleared even when the remote call fails, so a dead bridge cannot
// trap the user in a logged-in client.
func (c *Client) SignOut(ctx context.Context) error {
	err := c.post(ctx, "/api/auth/sign-out", map[string]string{}, nil)
	c.clearSession()
	return err
}

// CurrentSession asks the auth service who the cookie-bearing caller is.
// A 2xx with a user refreshes local state; an empty body or missing user
// means no session.
func (c *Client) CurrentSession(ctx context.Context) (*Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/auth/get-session", nil)
	if err != nil {
		return nil, fmt.Errorf("build get-session request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read get-session response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeError(resp.StatusCode, raw)
	}

	// better-auth answers "null" or {} when nobody is signed in.
	var payload struct {
		User    *User `json:"user"`
		Session *struct {
			Token string `json:"token"`
		} `json:"session"`
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, fmt.Errorf("decode get-session response: %w", err)
		}
	}
	if payload.User == nil {
		c.clearSession()
		return nil, ErrNoSession
	}

	token := c.Token()
	if payload.Session != nil && payload.Session.Token != "" {
		token = payload.Session.Token
	}
	return c.setSession(authPayload{Token: token, User: *payload.User}), nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal auth request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("build auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("auth request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read auth response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, respBody)
	}
	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode auth response: %w", err)
		}
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// decodeError turns a non-2xx auth response into an APIError, preferring the
// service's own message when the body carries one.
func decodeError(status int, body []byte) error {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return &APIError{StatusCode: status, Message: payload.Message}
	}
	return &APIError{StatusCode: status}
}

func (c *Client) setSession(payload authPayload) *Session {
	s := &Session{Token: payload.Token, User: payload.User}

	c.mu.Lock()
	hadSession := c.session != nil
	c.session = s
	listeners := append([]Listener(nil), c.listeners...)
	c.mu.Unlock()

	if !hadSession {
		for _, fn := range listeners {
			fn(s)
		}
	}
	return s
}

func (c *Client) clearSession() {
	c.mu.Lock()
	hadSession := c.session != nil
	c.session = nil
	listeners := append([]Listener(nil), c.listeners...)
	c.mu.Unlock()

	if hadSession {
		for _, fn := range listeners {
			fn(nil)
		}
	}
}
