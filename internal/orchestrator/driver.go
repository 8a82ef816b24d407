package orchestrator

import (
	"context"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ashita-ai/gauntlet/internal/model"
	"github.com/ashita-ai/gauntlet/internal/oracle"
	"github.com/ashita-ai/gauntlet/internal/runstate"
)

// writeTimeout bounds the bookkeeping writes that close a turn. They run on a
// context detached from the turn deadline so an expired turn still releases.
const writeTimeout = 30 * time.Second

// Driver executes a single conversation turn for a claimed run.
type Driver struct {
	store      Store
	trajectory TrajectoryReader
	oracle     Oracle
	targets    TargetFactory
	logger     *slog.Logger
	metrics    *metrics
	now        func() time.Time
}

// NewDriver creates a driver.
func NewDriver(store Store, trajectory TrajectoryReader, o Oracle, targets TargetFactory, logger *slog.Logger) *Driver {
	return &Driver{
		store:      store,
		trajectory: trajectory,
		oracle:     o,
		targets:    targets,
		logger:     logger,
		metrics:    newMetrics(),
		now:        time.Now,
	}
}

// WithClock replaces the driver's wall clock. Used by tests.
func (d *Driver) WithClock(now func() time.Time) *Driver {
	d.now = now
	return d
}

// TurnResult describes what one turn did.
type TurnResult struct {
	Event    runstate.Event
	Elapsed  int
	State    model.RunState
	Released bool
}

// RunTurn advances run, which must already be claimed (state running), by one
// turn. The returned state is the run's state after the turn's writes. An
// error is returned only when a closing store write failed.
func (d *Driver) RunTurn(ctx context.Context, run model.Run) (TurnResult, error) {
	ctx, span := tracer.Start(ctx, "driver.turn", trace.WithAttributes(
		attribute.String("run_id", run.ID.String()),
		attribute.String("project_id", run.ProjectID),
	))
	defer span.End()

	log := d.logger.With("run_id", run.ID, "project_id", run.ProjectID)
	start := d.now()

	ev, finishedRaw := d.converse(ctx, run, log)

	dur := d.now().Sub(start)
	elapsed := ElapsedSeconds(dur)
	d.metrics.turn(ctx, string(ev), dur.Seconds())
	span.SetAttributes(attribute.String("event", string(ev)), attribute.Int("elapsed_seconds", elapsed))

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	res := TurnResult{Event: ev, Elapsed: elapsed}

	state, err := d.store.AddTimeUsed(wctx, run.ID, elapsed)
	switch {
	case err != nil:
		// Fall through to the conditional release; it is a no-op if the run moved on.
		log.Error("driver: accumulate time failed", "elapsed", elapsed, "error", err)
	case state != model.RunStateRunning:
		log.Info("driver: run left running during turn, skipping release", "state", state, "event", ev)
		res.State = state
		return res, nil
	}

	tr, err := runstate.Apply(model.RunStateRunning, ev)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return res, err
	}

	var effect *model.Result
	if tr.Effect == runstate.EffectRecordFinished {
		r, err := model.NewResult(run.ID, model.ResultScenarioFinished, model.ScenarioFinishedData{
			Raw:      finishedRaw,
			TimeUsed: run.TimeUsed + elapsed,
		})
		if err != nil {
			return res, err
		}
		effect = &r
	}

	moved, err := d.store.TransitionRun(wctx, run.ID, model.RunStateRunning, tr.To, effect)
	if err != nil {
		log.Error("driver: release failed", "to", tr.To, "error", err)
		span.SetStatus(codes.Error, err.Error())
		return res, err
	}
	if !moved {
		current, err := d.store.GetRun(wctx, run.ID)
		if err != nil {
			return res, err
		}
		log.Info("driver: release lost to a concurrent write", "state", current.State, "event", ev)
		res.State = current.State
		return res, nil
	}

	log.Info("driver: turn complete", "event", ev, "state", tr.To, "elapsed", elapsed)
	res.State = tr.To
	res.Released = true
	return res, nil
}

// converse performs the external calls of a turn and returns the outcome
// event. For turn_finished it also returns the raw oracle text.
func (d *Driver) converse(ctx context.Context, run model.Run, log *slog.Logger) (runstate.Event, string) {
	entries, err := d.trajectory.ReadTrajectory(ctx, run.ProjectID)
	if err != nil {
		log.Warn("driver: read trajectory failed, retrying next tick", "error", err)
		return runstate.EventTurnContinue, ""
	}

	raw, err := d.oracle.NextAction(ctx, BuildHistory(run.ScenarioPrompt, entries), oracle.CallOptions{
		Temperature: run.LLMTemperature,
		Model:       run.LLMModel,
	})
	if err != nil {
		log.Warn("driver: oracle call failed, retrying next tick", "error", err)
		return runstate.EventTurnContinue, ""
	}

	act := oracle.Parse(raw)
	switch act.Kind {
	case oracle.ActionFinished:
		return runstate.EventTurnFinished, raw

	case oracle.ActionMalformed:
		d.record(ctx, log, run, model.ResultUnexpectedMessage, model.UnexpectedMessageData{Raw: raw})
		return runstate.EventTurnContinue, ""

	default:
		client, err := d.targets(run.SystemVersion)
		if err != nil {
			log.Error("driver: no target client", "system_version", run.SystemVersion, "error", err)
			return runstate.EventTurnFailed, ""
		}
		reply, err := client.SendChat(ctx, run.ProjectID, act.Text)
		if err != nil {
			log.Error("driver: target chat failed", "error", err)
			return runstate.EventTurnFailed, ""
		}
		d.record(ctx, log, run, model.ResultChatMessageSent, model.ChatMessageSentData{Request: act.Text, Reply: reply})
		return runstate.EventTurnContinue, ""
	}
}

func (d *Driver) record(ctx context.Context, log *slog.Logger, run model.Run, typ model.ResultType, data any) {
	res, err := model.NewResult(run.ID, typ, data)
	if err == nil {
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
		defer cancel()
		err = d.store.InsertResult(wctx, res)
	}
	if err != nil {
		log.Error("driver: record result failed", "type", typ, "error", err)
	}
}

// BuildHistory converts a transcript into oracle messages. The scenario prompt
// opens the history as a user message; entries from the impersonated human
// become assistant messages and everything else becomes user messages.
func BuildHistory(prompt string, entries []model.TrajectoryEntry) []oracle.Message {
	msgs := make([]oracle.Message, 0, len(entries)+1)
	if prompt != "" {
		msgs = append(msgs, oracle.Message{Role: oracle.RoleUser, Content: prompt})
	}
	for _, e := range entries {
		role := oracle.RoleUser
		if e.Sender == model.SenderHuman {
			role = oracle.RoleAssistant
		}
		msgs = append(msgs, oracle.Message{Role: role, Content: e.Content})
	}
	return msgs
}

// ElapsedSeconds rounds a turn duration to whole seconds, at least 1.
func ElapsedSeconds(d time.Duration) int {
	s := int(math.Round(d.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}
