// Package remote is an HTTP client for the access API, used by smoke tooling
// and other services that consume role selection over the wire.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"asiste.org/internal/access"
)

// ErrRejected is returned when the server answers the single "Invalid role"
// rejection for a selection write.
var ErrRejected = errors.New("remote: selection rejected")

// Client talks to a running access API instance.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New constructs a Client for the given base URL. The client carries a
// cookie jar: the selection written by SelectRole lives in cookies, and a
// follow-up SelectedRole read must present them or the server falls back to
// the resolver's default.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		if jar, err := cookiejar.New(nil); err == nil {
			c.http.Jar = jar
		}
	}
	return c
}

type tokenPayload struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

// Authenticate obtains a session token for the user and keeps it for
// subsequent calls.
func (c *Client) Authenticate(ctx context.Context, userID, email string) (string, error) {
	var payload tokenPayload
	err := c.do(ctx, http.MethodPost, "/v1/auth/token", map[string]any{
		"userId": userID,
		"email":  email,
	}, &payload)
	if err != nil {
		return "", err
	}
	if payload.Token == "" {
		return "", errors.New("remote: empty token")
	}
	c.token = payload.Token
	return payload.UserID, nil
}

// SelectedRole returns the active role option, or nil when unresolved.
func (c *Client) SelectedRole(ctx context.Context) (*access.RoleOption, error) {
	var payload struct {
		Role *access.RoleOption `json:"role"`
	}
	if err := c.do(ctx, http.MethodGet, "/selected-role", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Role, nil
}

// SelectRole writes a new role selection.
func (c *Client) SelectRole(ctx context.Context, sel access.RoleSelection) error {
	err := c.do(ctx, http.MethodPost, "/selected-role", map[string]any{
		"roleId":         sel.RoleID,
		"role":           string(sel.Role),
		"organizationId": sel.OrganizationID,
	}, nil)
	var se *statusError
	if errors.As(err, &se) && se.code == http.StatusBadRequest {
		return ErrRejected
	}
	return err
}

// RoleOptions lists every currently resolvable role.
func (c *Client) RoleOptions(ctx context.Context) ([]access.RoleOption, error) {
	var payload struct {
		Options []access.RoleOption `json:"options"`
	}
	if err := c.do(ctx, http.MethodGet, "/role-options", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Options, nil
}

// CanPerform asks a single capability question.
func (c *Client) CanPerform(ctx context.Context, action access.Action, subject access.Subject) (bool, error) {
	var payload struct {
		Allowed bool `json:"allowed"`
	}
	err := c.do(ctx, http.MethodPost, "/can-perform", map[string]any{
		"action":         string(action),
		"organizationId": subject.OrganizationID,
		"classroomId":    subject.ClassroomID,
	}, &payload)
	if err != nil {
		return false, err
	}
	return payload.Allowed, nil
}

// SignOut invalidates the session.
func (c *Client) SignOut(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/sign-out", nil, nil); err != nil {
		return err
	}
	c.token = ""
	return nil
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("remote: unexpected status %d: %s", e.code, e.body)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &statusError{code: resp.StatusCode, body: string(bytes.TrimSpace(raw))}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
