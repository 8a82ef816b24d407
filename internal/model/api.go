package model

import (
	"time"

	"github.com/google/uuid"
)

// APIResponse is the standard response envelope for all HTTP API responses.
type APIResponse struct {
	Data any          `json:"data,omitempty"`
	Meta ResponseMeta `json:"meta"`
}

// ListResponse is the standard envelope for paginated list endpoints.
type ListResponse struct {
	Data    any          `json:"data"`
	Total   int          `json:"total"`
	HasMore bool         `json:"has_more"`
	Limit   int          `json:"limit"`
	Offset  int          `json:"offset"`
	Meta    ResponseMeta `json:"meta"`
}

// APIError is the standard error response envelope.
type APIError struct {
	Error ErrorDetail  `json:"error"`
	Meta  ResponseMeta `json:"meta"`
}

// ResponseMeta contains request metadata included in every response.
type ResponseMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorDetail describes an API error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorCode constants for standard API error codes.
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeUpstream      = "UPSTREAM_ERROR"
	ErrCodeUnavailable   = "UNAVAILABLE"
	ErrCodeRateLimited   = "RATE_LIMITED"
	ErrCodeTooLarge      = "PAYLOAD_TOO_LARGE"
)

// StartBenchmarkRequest is the request body for POST /v1/benchmarks.
type StartBenchmarkRequest struct {
	SystemVersion string      `json:"system_version"`
	ScenarioIDs   []uuid.UUID `json:"scenario_ids"`
	UserID        uuid.UUID   `json:"-"` // Set from JWT claims, not from request body.
}

// StartBenchmarkResponse is the body returned by POST /v1/benchmarks.
// Errors lists the scenarios that could not be bootstrapped.
type StartBenchmarkResponse struct {
	Runs   []Run             `json:"runs"`
	Errors []ScenarioFailure `json:"errors,omitempty"`
}

// ScenarioFailure describes one scenario that failed to bootstrap.
type ScenarioFailure struct {
	ScenarioID uuid.UUID `json:"scenario_id"`
	Message    string    `json:"message"`
}

// SetBenchmarkActiveRequest is the request body for PUT /v1/benchmark.
type SetBenchmarkActiveRequest struct {
	Active *bool `json:"active"`
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Store    string `json:"store"`
	Database string `json:"database"`
	Active   bool   `json:"benchmark_active"`
	Uptime   int64  `json:"uptime_seconds"`
}
