// Package target is the HTTP client for the code-generation system under test.
//
// Every call is a single attempt. A chat message may or may not have been
// delivered when an error comes back, so callers must not retry blindly.
package target

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var (
	// ErrTargetUnavailable wraps every transport failure and non-2xx reply.
	ErrTargetUnavailable = errors.New("target: unavailable")
	// ErrInvalidRequest is returned before any network call for empty input.
	ErrInvalidRequest = errors.New("target: invalid request")
	// ErrUnknownVersion is returned for a system version outside the allow-list.
	ErrUnknownVersion = errors.New("target: unknown system version")
)

// maxErrorBody bounds the response excerpt carried by StatusError.
const maxErrorBody = 1024

// StatusError is a non-2xx reply from the target.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("target: %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrTargetUnavailable }

// Reply is the target's raw JSON response body, stored verbatim in results.
type Reply = json.RawMessage

// Project is the subset of the target's project document gauntlet uses.
type Project struct {
	ID   string `json:"id"`
	Link string `json:"link"`
}

// Client talks to one system version.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a client for baseURL. A zero timeout means no client-side
// limit beyond the caller's context.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// SystemVersion returns the base URL this client targets.
func (c *Client) SystemVersion() string { return c.baseURL }

type chatRequest struct {
	Message string   `json:"message"`
	Images  []string `json:"images"`
	Mode    string   `json:"mode"`
}

type createProjectRequest struct {
	Description string `json:"description"`
	Mode        string `json:"mode"`
}

// SendChat posts one chat message to a project and returns the raw reply.
func (c *Client) SendChat(ctx context.Context, projectID, message string) (Reply, error) {
	if strings.TrimSpace(projectID) == "" || strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("target: send chat: %w: project id and message are required", ErrInvalidRequest)
	}
	body, err := json.Marshal(chatRequest{Message: message, Images: []string{}, Mode: "instant"})
	if err != nil {
		return nil, fmt.Errorf("target: send chat: marshal: %w", err)
	}
	return c.do(ctx, "send chat", http.MethodPost, "/projects/"+url.PathEscape(projectID)+"/chat", body)
}

// CreateProject creates a project seeded with description.
func (c *Client) CreateProject(ctx context.Context, description string) (Project, error) {
	if strings.TrimSpace(description) == "" {
		return Project{}, fmt.Errorf("target: create project: %w: description is required", ErrInvalidRequest)
	}
	body, err := json.Marshal(createProjectRequest{Description: description, Mode: "instant"})
	if err != nil {
		return Project{}, fmt.Errorf("target: create project: marshal: %w", err)
	}
	raw, err := c.do(ctx, "create project", http.MethodPost, "/projects", body)
	if err != nil {
		return Project{}, err
	}
	var p Project
	if err := json.Unmarshal(raw, &p); err != nil {
		return Project{}, fmt.Errorf("target: create project: decode: %w", err)
	}
	if p.ID == "" {
		return Project{}, fmt.Errorf("target: create project: %w: reply has no id", ErrTargetUnavailable)
	}
	return p, nil
}

// GetProject fetches a project; the reply carries its link.
func (c *Client) GetProject(ctx context.Context, projectID string) (Project, error) {
	if strings.TrimSpace(projectID) == "" {
		return Project{}, fmt.Errorf("target: get project: %w: project id is required", ErrInvalidRequest)
	}
	raw, err := c.do(ctx, "get project", http.MethodGet, "/projects/"+url.PathEscape(projectID), nil)
	if err != nil {
		return Project{}, err
	}
	var p Project
	if err := json.Unmarshal(raw, &p); err != nil {
		return Project{}, fmt.Errorf("target: get project: decode: %w", err)
	}
	return p, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body []byte) (Reply, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return nil, fmt.Errorf("target: %s: create request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("target: %s: %w: %w", op, ErrTargetUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Body: string(excerpt)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("target: %s: read body: %w: %w", op, ErrTargetUnavailable, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = []byte("null")
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("target: %s: %w: reply is not JSON", op, ErrTargetUnavailable)
	}
	return Reply(raw), nil
}
