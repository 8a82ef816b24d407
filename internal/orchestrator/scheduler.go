package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ashita-ai/gauntlet/internal/model"
	"github.com/ashita-ai/gauntlet/internal/runstate"
	"github.com/ashita-ai/gauntlet/internal/storage"
)

// TickOutcome says what a scheduler tick did.
type TickOutcome int

const (
	TickInactive TickOutcome = iota
	TickIdle
	TickClaimLost
	TickTimedOut
	TickTurned
	TickError
)

func (o TickOutcome) String() string {
	switch o {
	case TickInactive:
		return "inactive"
	case TickIdle:
		return "idle"
	case TickClaimLost:
		return "claim_lost"
	case TickTimedOut:
		return "timed_out"
	case TickTurned:
		return "turned"
	}
	return "error"
}

// SchedulerConfig holds the scheduler's knobs.
type SchedulerConfig struct {
	InstanceID   string
	PollInterval time.Duration
	TurnTimeout  time.Duration
	// TargetTokenSet is false when no target bearer token is configured; the
	// scheduler then switches the benchmark off instead of claiming.
	TargetTokenSet bool
}

// Scheduler polls for paused runs and advances at most one per tick.
type Scheduler struct {
	store  Store
	driver *Driver
	logger *slog.Logger
	cfg    SchedulerConfig

	metrics *metrics

	started    atomic.Bool
	cancelLoop context.CancelFunc
	done       chan struct{}
	once       sync.Once
}

// NewScheduler creates a scheduler. Zero durations get defaults of 5s poll
// interval and 10m turn timeout.
func NewScheduler(store Store, driver *Driver, logger *slog.Logger, cfg SchedulerConfig) *Scheduler {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.TurnTimeout <= 0 {
		cfg.TurnTimeout = 10 * time.Minute
	}
	return &Scheduler{
		store:   store,
		driver:  driver,
		logger:  logger.With("instance_id", cfg.InstanceID),
		cfg:     cfg,
		metrics: newMetrics(),
		done:    make(chan struct{}),
	}
}

// Start begins the background poll loop. It is safe to call only once;
// subsequent calls are no-ops and log a warning.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		s.logger.Warn("scheduler: Start called more than once, ignoring")
		return
	}
	registerRunGauge(s.store)
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancelLoop = cancel
	go s.pollLoop(loopCtx)
	s.logger.Info("scheduler: started", "poll_interval", s.cfg.PollInterval, "turn_timeout", s.cfg.TurnTimeout)
}

// Drain stops the poll loop and waits for an in-flight turn to finish, or for
// ctx to expire. No new claims are made once Drain is called.
func (s *Scheduler) Drain(ctx context.Context) {
	if !s.started.Load() {
		return
	}
	if s.cancelLoop != nil {
		s.cancelLoop()
	}
	select {
	case <-s.done:
		s.logger.Info("scheduler: drained")
	case <-ctx.Done():
		s.logger.Warn("scheduler: drain timed out, a turn is still in flight")
	}
}

func (s *Scheduler) pollLoop(ctx context.Context) {
	defer s.once.Do(func() { close(s.done) })

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one scheduling step. Once a run is claimed the rest of the tick
// runs detached from ctx's cancellation, bounded by the turn timeout.
func (s *Scheduler) Tick(ctx context.Context) TickOutcome {
	ctx, span := tracer.Start(ctx, "scheduler.tick",
		trace.WithAttributes(attribute.String("instance_id", s.cfg.InstanceID)))
	defer span.End()

	outcome := s.tick(ctx)
	span.SetAttributes(attribute.String("outcome", outcome.String()))
	s.metrics.tick(ctx, outcome)
	return outcome
}

func (s *Scheduler) tick(ctx context.Context) TickOutcome {
	settings, err := s.store.BenchmarkSettings(ctx)
	if err != nil {
		s.logger.Error("scheduler: read benchmark settings", "error", err)
		return TickError
	}
	if !settings.Active {
		return TickInactive
	}
	if !s.cfg.TargetTokenSet {
		s.logger.Error("scheduler: no target token configured, deactivating benchmark")
		if _, err := s.store.SetBenchmarkActive(ctx, false, s.cfg.InstanceID); err != nil {
			s.logger.Error("scheduler: deactivate benchmark", "error", err)
			return TickError
		}
		return TickInactive
	}

	candidate, err := s.store.NextPausedRun(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return TickIdle
	}
	if err != nil {
		s.logger.Error("scheduler: select paused run", "error", err)
		return TickError
	}

	log := s.logger.With("run_id", candidate.ID, "scenario_id", candidate.ScenarioID)
	won, err := s.store.ClaimRun(ctx, candidate.ID)
	if err != nil {
		log.Error("scheduler: claim", "error", err)
		return TickError
	}
	s.metrics.claim(ctx, won)
	if !won {
		log.Debug("scheduler: claim lost")
		return TickClaimLost
	}

	turnCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.TurnTimeout)
	defer cancel()

	run, err := s.store.GetRun(turnCtx, candidate.ID)
	if err != nil {
		log.Error("scheduler: re-read claimed run, releasing", "error", err)
		s.release(turnCtx, log, candidate)
		return TickError
	}

	if run.BudgetExceeded() {
		return s.timeOut(turnCtx, log, run)
	}

	res, err := s.driver.RunTurn(turnCtx, run)
	if err != nil {
		log.Error("scheduler: turn", "event", res.Event, "error", err)
		return TickError
	}
	return TickTurned
}

// timeOut moves a claimed run whose budget is already spent to timed_out.
func (s *Scheduler) timeOut(ctx context.Context, log *slog.Logger, run model.Run) TickOutcome {
	tr, err := runstate.Apply(model.RunStateRunning, runstate.EventBudgetExceeded)
	if err != nil {
		log.Error("scheduler: budget transition", "error", err)
		return TickError
	}
	res, err := model.NewResult(run.ID, tr.Effect.ResultType(), model.TimeoutData{
		TimeUsed:       run.TimeUsed,
		TimeoutSeconds: run.TimeoutSeconds,
	})
	if err != nil {
		log.Error("scheduler: build timeout result", "error", err)
		return TickError
	}
	moved, err := s.store.TransitionRun(ctx, run.ID, model.RunStateRunning, tr.To, &res)
	if err != nil {
		log.Error("scheduler: time out run", "error", err)
		return TickError
	}
	if moved {
		log.Info("scheduler: run timed out", "time_used", run.TimeUsed, "timeout_seconds", run.TimeoutSeconds)
	}
	return TickTimedOut
}

// release returns a claimed run to paused after a failure before its turn.
func (s *Scheduler) release(ctx context.Context, log *slog.Logger, run model.Run) {
	tr, err := runstate.Apply(model.RunStateRunning, runstate.EventTurnContinue)
	if err != nil {
		return
	}
	if _, err := s.store.TransitionRun(ctx, run.ID, model.RunStateRunning, tr.To, nil); err != nil {
		log.Error("scheduler: release claimed run", "error", err)
	}
}
