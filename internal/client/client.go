// Package client is a Go client for the gauntlet control API. The CLI's
// benchmark and runs commands are built on it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ashita-ai/gauntlet/internal/model"
)

// Config holds the settings needed to construct a Client.
type Config struct {
	// BaseURL is the root URL of the gauntlet server (e.g. "http://localhost:8080").
	BaseURL string

	// Token is a bearer token issued with `gauntlet token issue`.
	Token string

	// HTTPClient is an optional custom HTTP client. If nil, a default client
	// using Timeout is used.
	HTTPClient *http.Client

	// Timeout applies to individual API requests. Defaults to 5 minutes, since
	// a benchmark start waits for every scenario's first turn.
	Timeout time.Duration
}

// Client is an HTTP client for the gauntlet API. Safe for concurrent use.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// New creates a Client. BaseURL and Token are required.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("gauntlet: BaseURL is required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("gauntlet: Token is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 5 * time.Minute
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		client:  httpClient,
	}, nil
}

// Health returns the server's health report. No token is sent.
func (c *Client) Health(ctx context.Context) (*model.HealthResponse, error) {
	var resp model.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListScenarios returns every scenario.
func (c *Client) ListScenarios(ctx context.Context) ([]model.Scenario, error) {
	var resp []model.Scenario
	if err := c.do(ctx, http.MethodGet, "/v1/scenarios", nil, &resp, true); err != nil {
		return nil, err
	}
	return resp, nil
}

// StartBenchmark bootstraps one run per scenario. A partial failure is not an
// error: the response lists the failed scenarios in Errors.
func (c *Client) StartBenchmark(ctx context.Context, systemVersion string, scenarioIDs []uuid.UUID) (*model.StartBenchmarkResponse, error) {
	body := model.StartBenchmarkRequest{SystemVersion: systemVersion, ScenarioIDs: scenarioIDs}
	var resp model.StartBenchmarkResponse
	if err := c.do(ctx, http.MethodPost, "/v1/benchmarks", body, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Benchmark returns the persisted active flag.
func (c *Client) Benchmark(ctx context.Context) (*model.BenchmarkSettings, error) {
	var resp model.BenchmarkSettings
	if err := c.do(ctx, http.MethodGet, "/v1/benchmark", nil, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetBenchmarkActive switches every scheduler on or off.
func (c *Client) SetBenchmarkActive(ctx context.Context, active bool) (*model.BenchmarkSettings, error) {
	body := model.SetBenchmarkActiveRequest{Active: &active}
	var resp model.BenchmarkSettings
	if err := c.do(ctx, http.MethodPut, "/v1/benchmark", body, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListRunsOptions are optional filters for ListRuns.
type ListRunsOptions struct {
	State model.RunState
	// UserID is a user uuid or "me".
	UserID string
	Limit  int
	Offset int
}

// RunPage is one page of runs.
type RunPage struct {
	Runs    []model.Run
	Total   int
	HasMore bool
}

// ListRuns returns a page of runs, newest first.
func (c *Client) ListRuns(ctx context.Context, opts *ListRunsOptions) (*RunPage, error) {
	params := url.Values{}
	if opts != nil {
		if opts.State != "" {
			params.Set("state", string(opts.State))
		}
		if opts.UserID != "" {
			params.Set("user_id", opts.UserID)
		}
		if opts.Limit > 0 {
			params.Set("limit", strconv.Itoa(opts.Limit))
		}
		if opts.Offset > 0 {
			params.Set("offset", strconv.Itoa(opts.Offset))
		}
	}
	path := "/v1/runs"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var resp struct {
		Data    []model.Run `json:"data"`
		Total   int         `json:"total"`
		HasMore bool        `json:"has_more"`
	}
	if err := c.doRaw(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &RunPage{Runs: resp.Data, Total: resp.Total, HasMore: resp.HasMore}, nil
}

// GetRun returns one run.
func (c *Client) GetRun(ctx context.Context, id uuid.UUID) (*model.Run, error) {
	var resp model.Run
	if err := c.do(ctx, http.MethodGet, "/v1/runs/"+id.String(), nil, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RunResults returns a run's results in creation order.
func (c *Client) RunResults(ctx context.Context, id uuid.UUID) ([]model.Result, error) {
	var resp []model.Result
	if err := c.do(ctx, http.MethodGet, "/v1/runs/"+id.String()+"/results", nil, &resp, true); err != nil {
		return nil, err
	}
	return resp, nil
}

// RunTrajectory returns the transcript of a run's project.
func (c *Client) RunTrajectory(ctx context.Context, id uuid.UUID) ([]model.TrajectoryEntry, error) {
	var resp []model.TrajectoryEntry
	if err := c.do(ctx, http.MethodGet, "/v1/runs/"+id.String()+"/trajectory", nil, &resp, true); err != nil {
		return nil, err
	}
	return resp, nil
}

// ---------------------------------------------------------------------------
// HTTP transport
// ---------------------------------------------------------------------------

// apiEnvelope is the server's standard response wrapper.
type apiEnvelope struct {
	Data json.RawMessage `json:"data"`
}

// apiErrorEnvelope is the server's standard error response wrapper.
type apiErrorEnvelope struct {
	Error struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

// do sends a request and decodes the data field of the envelope into dest.
func (c *Client) do(ctx context.Context, method, path string, body, dest any, authed bool) error {
	bodyBytes, err := c.roundTrip(ctx, method, path, body, authed)
	if err != nil {
		return err
	}
	if dest == nil {
		return nil
	}
	var envelope apiEnvelope
	if err := json.Unmarshal(bodyBytes, &envelope); err != nil {
		return fmt.Errorf("gauntlet: decode response envelope: %w", err)
	}
	return json.Unmarshal(envelope.Data, dest)
}

// doRaw decodes the whole body into dest; list responses carry paging fields
// next to data.
func (c *Client) doRaw(ctx context.Context, method, path string, body, dest any) error {
	bodyBytes, err := c.roundTrip(ctx, method, path, body, true)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(bodyBytes, dest); err != nil {
		return fmt.Errorf("gauntlet: decode response: %w", err)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body any, authed bool) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("gauntlet: marshal request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("gauntlet: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gauntlet: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gauntlet: read response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, parseErrorResponse(resp.StatusCode, bodyBytes)
	}
	return bodyBytes, nil
}

func parseErrorResponse(statusCode int, body []byte) *Error {
	apiErr := &Error{StatusCode: statusCode}

	var envelope apiErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
		apiErr.Details = envelope.Error.Details
	} else {
		apiErr.Code = http.StatusText(statusCode)
		apiErr.Message = string(body)
	}
	return apiErr
}
