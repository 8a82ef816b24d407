package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ResultType tags the payload of a Result.
type ResultType string

const (
	ResultChatMessageSent      ResultType = "chat_message_sent"
	ResultTimeout              ResultType = "timeout"
	ResultScenarioFinished     ResultType = "scenario_finished"
	ResultUnexpectedMessage    ResultType = "unexpected_message"
	ResultInitialImpersonation ResultType = "initial_impersonation"
)

// ResultPayload is the tagged JSON document stored in results.result.
type ResultPayload struct {
	Type ResultType      `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Result is one recorded outcome of a turn or of run completion.
// ReviewerID is always nil for results written by the orchestrator.
type Result struct {
	ID         uuid.UUID     `json:"id"`
	RunID      uuid.UUID     `json:"run_id"`
	ReviewerID *uuid.UUID    `json:"reviewer_id"`
	Result     ResultPayload `json:"result"`
	CreatedAt  time.Time     `json:"created_at"`
}

// NewResult builds an orchestrator-authored result for runID. data is encoded
// as JSON; a nil data produces a payload without a data field.
func NewResult(runID uuid.UUID, typ ResultType, data any) (Result, error) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return Result{}, fmt.Errorf("model: encode %s result: %w", typ, err)
		}
		raw = b
	}
	return Result{
		ID:        uuid.New(),
		RunID:     runID,
		Result:    ResultPayload{Type: typ, Data: raw},
		CreatedAt: time.Now().UTC(),
	}, nil
}

// ChatMessageSentData is the payload of a chat_message_sent result.
type ChatMessageSentData struct {
	Request string          `json:"request"`
	Reply   json.RawMessage `json:"reply"`
}

// UnexpectedMessageData is the payload of an unexpected_message result.
type UnexpectedMessageData struct {
	Raw string `json:"raw"`
}

// TimeoutData is the payload of a timeout result.
type TimeoutData struct {
	TimeUsed       int `json:"time_used"`
	TimeoutSeconds int `json:"timeout_seconds"`
}

// ScenarioFinishedData is the payload of a scenario_finished result.
type ScenarioFinishedData struct {
	Raw      string `json:"raw"`
	TimeUsed int    `json:"time_used"`
}

// InitialImpersonationData is the payload of an initial_impersonation result.
type InitialImpersonationData struct {
	Request   string          `json:"request"`
	ProjectID string          `json:"project_id"`
	Link      string          `json:"link,omitempty"`
	Reply     json.RawMessage `json:"reply"`
}
