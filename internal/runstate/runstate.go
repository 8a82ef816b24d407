// Package runstate is the run lifecycle as an explicit transition table.
//
//	paused  --claim-->           running
//	running --turn_continue-->   paused
//	running --turn_finished-->   completed            (record scenario_finished)
//	running --budget_exceeded--> timed_out            (record timeout)
//	running --time_exhausted-->  timed_out            (timeout already recorded by the store)
//	running --turn_failed-->     impersonator_failed
//
// completed, timed_out and impersonator_failed have no outgoing edges.
// The store enforces the same edges with compare-and-swap writes; this package
// decides which write to attempt.
package runstate

import (
	"fmt"

	"github.com/ashita-ai/gauntlet/internal/model"
)

// Event is an input to the state machine.
type Event string

const (
	EventClaim          Event = "claim"
	EventBudgetExceeded Event = "budget_exceeded"
	EventTurnContinue   Event = "turn_continue"
	EventTurnFinished   Event = "turn_finished"
	EventTurnFailed     Event = "turn_failed"
	EventTimeExhausted  Event = "time_exhausted"
)

// AllEvents lists every event.
var AllEvents = []Event{
	EventClaim,
	EventBudgetExceeded,
	EventTurnContinue,
	EventTurnFinished,
	EventTurnFailed,
	EventTimeExhausted,
}

// Effect names the Result that must be written together with a transition.
type Effect int

const (
	EffectNone Effect = iota
	EffectRecordTimeout
	EffectRecordFinished
)

// ResultType returns the result tag an effect records, or "" for EffectNone.
func (e Effect) ResultType() model.ResultType {
	switch e {
	case EffectRecordTimeout:
		return model.ResultTimeout
	case EffectRecordFinished:
		return model.ResultScenarioFinished
	}
	return ""
}

func (e Effect) String() string {
	switch e {
	case EffectRecordTimeout:
		return "record_timeout"
	case EffectRecordFinished:
		return "record_finished"
	}
	return "none"
}

// Transition is the outcome of applying an event.
type Transition struct {
	To     model.RunState
	Effect Effect
}

type edge struct {
	from model.RunState
	ev   Event
}

var table = map[edge]Transition{
	{model.RunStatePaused, EventClaim}:           {To: model.RunStateRunning},
	{model.RunStateRunning, EventTurnContinue}:   {To: model.RunStatePaused},
	{model.RunStateRunning, EventTurnFinished}:   {To: model.RunStateCompleted, Effect: EffectRecordFinished},
	{model.RunStateRunning, EventBudgetExceeded}: {To: model.RunStateTimedOut, Effect: EffectRecordTimeout},
	{model.RunStateRunning, EventTimeExhausted}:  {To: model.RunStateTimedOut},
	{model.RunStateRunning, EventTurnFailed}:     {To: model.RunStateImpersonatorFailed},
}

// InvalidTransitionError is returned for an event that has no edge out of a state.
type InvalidTransitionError struct {
	From  model.RunState
	Event Event
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("runstate: no transition from %q on %q", e.From, e.Event)
}

// Apply returns the transition for ev out of from.
func Apply(from model.RunState, ev Event) (Transition, error) {
	t, ok := table[edge{from, ev}]
	if !ok {
		return Transition{}, &InvalidTransitionError{From: from, Event: ev}
	}
	return t, nil
}

// CanTransition reports whether ev is legal in state from.
func CanTransition(from model.RunState, ev Event) bool {
	_, ok := table[edge{from, ev}]
	return ok
}

// Outgoing lists the events accepted in state s.
func Outgoing(s model.RunState) []Event {
	var out []Event
	for _, ev := range AllEvents {
		if CanTransition(s, ev) {
			out = append(out, ev)
		}
	}
	return out
}
