// Package client implements the presence sync side of the typing indicator:
// it bridges local composition activity to the typing API (start/stop
// signals) and polls the API to render who else is typing.
//
// Everything here is a best-effort side channel. Transport failures are
// logged and swallowed; they never propagate to the composer or block
// submission.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RequestTimeout bounds every typing API call. There are no retries: the
// next keystroke or poll tick naturally re-attempts.
const RequestTimeout = 3 * time.Second

// ConversationTarget selects which conversation the client operates on:
// a room (group conversation, per-user attribution) or a direct-message
// partner (legacy mode, generic attribution). Resolved once at
// construction; exactly one mode is active.
type ConversationTarget struct {
	roomID   int64
	username string
	room     bool
}

// RoomTarget addresses a group conversation room.
func RoomTarget(roomID int64) ConversationTarget {
	return ConversationTarget{roomID: roomID, room: true}
}

// DirectTarget addresses a legacy direct-message conversation by the
// partner's username.
func DirectTarget(username string) ConversationTarget {
	return ConversationTarget{username: username}
}

// IsRoom reports whether the target is a group conversation.
func (t ConversationTarget) IsRoom() bool { return t.room }

func (t ConversationTarget) segment() string {
	if t.room {
		return strconv.FormatInt(t.roomID, 10)
	}
	return t.username
}

// CheckResult is the typing state reported by the server for one poll.
// Users is populated in room mode only.
type CheckResult struct {
	IsTyping bool     `json:"is_typing"`
	Users    []string `json:"users"`
}

// Signaler sends typing start/stop signals.
type Signaler interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Checker polls the aggregate typing state.
type Checker interface {
	Check(ctx context.Context) (CheckResult, error)
}

// Client talks to the typing API for a single conversation. It implements
// Signaler and Checker.
type Client struct {
	baseURL      string
	target       ConversationTarget
	sessionToken string
	csrfToken    string
	httpClient   *http.Client

	warnNoCSRF sync.Once // warn once, not per keystroke
}

// New creates a client for one conversation. csrfToken may be empty, in
// which case mutating calls are skipped entirely (the read-only check still
// works); this mirrors a page rendered without a usable anti-forgery token.
func New(baseURL string, target ConversationTarget, sessionToken, csrfToken string) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("client: base URL required")
	}
	if sessionToken == "" {
		return nil, errors.New("client: session token required")
	}
	return &Client{
		baseURL:      baseURL,
		target:       target,
		sessionToken: sessionToken,
		csrfToken:    csrfToken,
		httpClient:   &http.Client{Timeout: RequestTimeout},
	}, nil
}

// Target returns the conversation this client is bound to.
func (c *Client) Target() ConversationTarget { return c.target }

// Start marks the local user as typing. Skipped (not an error) when no CSRF
// token is available.
func (c *Client) Start(ctx context.Context) error {
	return c.signal(ctx, "start")
}

// Stop clears the local user's typing state. Skipped when no CSRF token is
// available.
func (c *Client) Stop(ctx context.Context) error {
	return c.signal(ctx, "stop")
}

func (c *Client) signal(ctx context.Context, signal string) error {
	if c.csrfToken == "" {
		c.warnNoCSRF.Do(func() {
			log.Printf("[typing-client] no csrf token; typing signals disabled")
		})
		return nil
	}

	url := fmt.Sprintf("%s/api/typing/%s/%s/", c.baseURL, signal, c.target.segment())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("client: build %s request: %w", signal, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.sessionToken)
	req.Header.Set("X-CSRFToken", c.csrfToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s signal: %w", signal, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("client: %s signal: status %d", signal, resp.StatusCode)
	}
	return nil
}

// Check polls the typing state for the conversation. The caller treats any
// error as "nobody is typing".
func (c *Client) Check(ctx context.Context) (CheckResult, error) {
	url := fmt.Sprintf("%s/api/typing/check/%s/", c.baseURL, c.target.segment())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return CheckResult{}, fmt.Errorf("client: build check request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.sessionToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return CheckResult{}, fmt.Errorf("client: check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return CheckResult{}, fmt.Errorf("client: check: status %d", resp.StatusCode)
	}

	var result CheckResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return CheckResult{}, fmt.Errorf("client: check decode: %w", err)
	}
	return result, nil
}
