// Package chat is the terminal client's conversation engine: it keeps the
// local message log, talks to the task assistant backend, and tracks the
// server-assigned conversation id across turns.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	defaultTimeout = 120 * time.Second

	// failureText is shown when the backend gives no usable detail.
	failureText = "Something went wrong while talking to the assistant. Please try again."
)

// Sentinel errors for sends that never reach the wire.
var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrBusy         = errors.New("a message is already in flight")
)

// Role distinguishes who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ToolCall records one tool invocation the assistant made while answering.
type ToolCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
	Result    json.RawMessage `json:"result"`
}

// Message is one entry in the local conversation log.
type Message struct {
	ID        string
	Role      Role
	Content   string
	Err       bool
	Latency   time.Duration
	ToolCalls []ToolCall
}

// TokenSource supplies the bearer token for backend calls. The session client
// satisfies it.
type TokenSource interface {
	Token() string
}

// Client sends chat turns to the backend for a single user. Safe for
// concurrent use; at most one send is on the wire at a time.
type Client struct {
	apiBase    string
	userID     string
	tokens     TokenSource
	httpClient *http.Client

	inFlight atomic.Bool

	mu             sync.RWMutex
	conversationID int64
	messages       []Message
}

// NewClient creates a chat client for the backend at apiBase, acting as
// userID and authenticating with tokens.
func NewClient(apiBase, userID string, tokens TokenSource) *Client {
	return &Client{
		apiBase: strings.TrimSuffix(apiBase, "/"),
		userID:  userID,
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// The backend assigns conversation ids as integers; the first turn of a
// fresh conversation sends null.
type chatRequest struct {
	ConversationID *int64 `json:"conversation_id"`
	Message        string `json:"message"`
}

type chatResponse struct {
	ConversationID int64      `json:"conversation_id"`
	Response       string     `json:"response"`
	ToolCalls      []ToolCall `json:"tool_calls"`
}

// Send posts one user turn and appends the assistant's reply to the log.
//
// Empty or whitespace-only input returns ErrEmptyMessage without touching the
// log. A call while another send is in flight returns ErrBusy. Backend and
// network failures never surface as an error: they land in the log as an
// error-flagged assistant message, so the conversation view always shows what
// happened. The returned message is the appended assistant entry.
func (c *Client) Send(ctx context.Context, text string) (*Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if !c.inFlight.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer c.inFlight.Store(false)

	c.append(Message{ID: uuid.NewString(), Role: RoleUser, Content: text})

	start := time.Now()
	resp, err := c.post(ctx, text)
	latency := time.Since(start)

	if err != nil {
		msg := c.append(Message{
			ID:      uuid.NewString(),
			Role:    RoleAssistant,
			Content: failureMessage(err),
			Err:     true,
			Latency: latency,
		})
		return msg, nil
	}

	c.mu.Lock()
	c.conversationID = resp.ConversationID
	c.mu.Unlock()

	msg := c.append(Message{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Content:   resp.Response,
		Latency:   latency,
		ToolCalls: resp.ToolCalls,
	})
	return msg, nil
}

func (c *Client) post(ctx context.Context, text string) (*chatResponse, error) {
	reqBody := chatRequest{Message: text}
	c.mu.RLock()
	if c.conversationID != 0 {
		id := c.conversationID
		reqBody.ConversationID = &id
	}
	c.mu.RUnlock()

	raw, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	url := fmt.Sprintf("%s/api/%s/chat", c.apiBase, c.userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat request: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read chat response: %w", err)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, backendError(httpResp.StatusCode, body)
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode chat response: %w", err)
	}
	return &resp, nil
}

// BackendError is a non-2xx answer from the task backend.
type BackendError struct {
	StatusCode int
	Detail     string
}

func (e *BackendError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("chat request failed with status %d", e.StatusCode)
}

func backendError(status int, body []byte) error {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Detail != "" {
		return &BackendError{StatusCode: status, Detail: payload.Detail}
	}
	return &BackendError{StatusCode: status}
}

// failureMessage picks the text of the error-flagged log entry: the backend's
// own detail when present, a generic line otherwise.
func failureMessage(err error) string {
	var be *BackendError
	if errors.As(err, &be) && be.Detail != "" {
		return be.Detail
	}
	return failureText
}

// Messages returns a copy of the conversation log, oldest first.
func (c *Client) Messages() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// ConversationID returns the server-assigned conversation id, or zero before
// the first successful turn.
func (c *Client) ConversationID() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conversationID
}

// Busy reports whether a send is currently on the wire.
func (c *Client) Busy() bool {
	return c.inFlight.Load()
}

// NewChat clears the local log and forgets the conversation id, so the next
// send starts a fresh conversation on the backend.
func (c *Client) NewChat() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conversationID = 0
	c.messages = nil
}

func (c *Client) append(m Message) *Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, m)
	return &c.messages[len(c.messages)-1]
}
