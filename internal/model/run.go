// Package model defines the core domain types for gauntlet.
//
// Types correspond directly to database tables (runs, scenarios, results,
// trajectory_messages) and to the JSON bodies of the control API.
package model

import (
	"time"

	"github.com/google/uuid"
)

// RunState is the lifecycle state of a benchmark run.
// Legal transitions are defined in package runstate.
type RunState string

const (
	RunStatePaused             RunState = "paused"
	RunStateRunning            RunState = "running"
	RunStateCompleted          RunState = "completed"
	RunStateTimedOut           RunState = "timed_out"
	RunStateImpersonatorFailed RunState = "impersonator_failed"
)

// AllRunStates lists every state in graph order.
var AllRunStates = []RunState{
	RunStatePaused,
	RunStateRunning,
	RunStateCompleted,
	RunStateTimedOut,
	RunStateImpersonatorFailed,
}

// Valid reports whether s is a known state.
func (s RunState) Valid() bool {
	switch s {
	case RunStatePaused, RunStateRunning, RunStateCompleted, RunStateTimedOut, RunStateImpersonatorFailed:
		return true
	}
	return false
}

// Terminal reports whether no further claims may be attempted in state s.
func (s RunState) Terminal() bool {
	return s == RunStateCompleted || s == RunStateTimedOut || s == RunStateImpersonatorFailed
}

// Run is one attempted execution of a Scenario against a target system version.
//
// ProjectID is assigned once, at creation, after the bootstrap turn created the
// target-side project. TimeUsed only grows.
type Run struct {
	ID             uuid.UUID `json:"id"`
	ScenarioID     uuid.UUID `json:"scenario_id"`
	SystemVersion  string    `json:"system_version"`
	ProjectID      string    `json:"project_id"`
	UserID         uuid.UUID `json:"user_id"`
	Link           string    `json:"link,omitempty"`
	TimeUsed       int       `json:"time_used"`
	State          RunState  `json:"state"`
	LLMTemperature float64   `json:"llm_temperature"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Joined from the scenario.
	ScenarioName   string `json:"scenario_name,omitempty"`
	ScenarioPrompt string `json:"-"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	LLMModel       string `json:"llm_model,omitempty"`
}

// BudgetExceeded reports whether the accumulated time is over the scenario budget.
func (r Run) BudgetExceeded() bool {
	return r.TimeoutSeconds > 0 && r.TimeUsed > r.TimeoutSeconds
}

// BenchmarkSettings is the persisted process-wide scheduler switch.
type BenchmarkSettings struct {
	Active    bool      `json:"active"`
	UpdatedAt time.Time `json:"updated_at"`
	UpdatedBy string    `json:"updated_by,omitempty"`
}
