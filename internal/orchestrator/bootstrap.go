package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ashita-ai/gauntlet/internal/model"
	"github.com/ashita-ai/gauntlet/internal/oracle"
)

var (
	// ErrNoScenarios is returned when a benchmark names no scenarios.
	ErrNoScenarios = errors.New("orchestrator: at least one scenario is required")
	// ErrNoTargetToken is returned when the target bearer token is not configured.
	ErrNoTargetToken = errors.New("orchestrator: target token is not configured")
	// ErrNoInitialRequest is returned when the oracle's first reply is not a chat request.
	ErrNoInitialRequest = errors.New("orchestrator: oracle did not produce an initial request")
)

// ScenarioError is a bootstrap failure for one scenario.
type ScenarioError struct {
	ScenarioID uuid.UUID
	Err        error
}

func (e *ScenarioError) Error() string {
	return fmt.Sprintf("scenario %s: %v", e.ScenarioID, e.Err)
}

func (e *ScenarioError) Unwrap() error { return e.Err }

// ScenarioFailures extracts the per-scenario errors from a StartBenchmark error.
func ScenarioFailures(err error) []*ScenarioError {
	if err == nil {
		return nil
	}
	var out []*ScenarioError
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			var se *ScenarioError
			if errors.As(e, &se) {
				out = append(out, se)
			}
		}
		return out
	}
	var se *ScenarioError
	if errors.As(err, &se) {
		out = append(out, se)
	}
	return out
}

// StarterConfig holds the starter's knobs.
type StarterConfig struct {
	Concurrency    int
	TargetTokenSet bool
}

// Starter creates benchmark runs by performing each scenario's first turn.
type Starter struct {
	store   Store
	oracle  Oracle
	targets TargetFactory
	logger  *slog.Logger
	cfg     StarterConfig
}

// NewStarter creates a starter. Concurrency below 1 means 4.
func NewStarter(store Store, o Oracle, targets TargetFactory, logger *slog.Logger, cfg StarterConfig) *Starter {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 4
	}
	return &Starter{store: store, oracle: o, targets: targets, logger: logger, cfg: cfg}
}

// StartBenchmark bootstraps one paused run per scenario and switches the
// benchmark on if any run was created. Created runs are returned in request
// order. Per-scenario failures are joined into the returned error as
// *ScenarioError values alongside the runs that succeeded.
func (s *Starter) StartBenchmark(ctx context.Context, req model.StartBenchmarkRequest) ([]model.Run, error) {
	if len(req.ScenarioIDs) == 0 {
		return nil, ErrNoScenarios
	}
	if !s.cfg.TargetTokenSet {
		return nil, ErrNoTargetToken
	}
	client, err := s.targets(req.SystemVersion)
	if err != nil {
		return nil, err
	}

	runs := make([]*model.Run, len(req.ScenarioIDs))
	errs := make([]error, len(req.ScenarioIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, id := range req.ScenarioIDs {
		g.Go(func() error {
			run, err := s.bootstrap(gctx, client, req, id)
			if err != nil {
				s.logger.Error("starter: bootstrap failed", "scenario_id", id, "error", err)
				errs[i] = &ScenarioError{ScenarioID: id, Err: err}
				return nil
			}
			runs[i] = &run
			return nil
		})
	}
	_ = g.Wait()

	created := make([]model.Run, 0, len(runs))
	for _, r := range runs {
		if r != nil {
			created = append(created, *r)
		}
	}

	if len(created) > 0 {
		if _, err := s.store.SetBenchmarkActive(ctx, true, req.UserID.String()); err != nil {
			errs = append(errs, fmt.Errorf("orchestrator: activate benchmark: %w", err))
		}
	}
	s.logger.Info("starter: benchmark started",
		"system_version", req.SystemVersion, "requested", len(req.ScenarioIDs), "created", len(created))
	return created, errors.Join(errs...)
}

func (s *Starter) bootstrap(ctx context.Context, client TargetClient, req model.StartBenchmarkRequest, scenarioID uuid.UUID) (model.Run, error) {
	sc, err := s.store.GetScenario(ctx, scenarioID)
	if err != nil {
		return model.Run{}, err
	}

	raw, err := s.oracle.NextAction(ctx,
		[]oracle.Message{{Role: oracle.RoleUser, Content: sc.Prompt}},
		oracle.CallOptions{Temperature: sc.LLMTemperature, Model: sc.LLMModel},
	)
	if err != nil {
		return model.Run{}, err
	}
	act := oracle.Parse(raw)
	if act.Kind != oracle.ActionRequest {
		return model.Run{}, fmt.Errorf("%w: got %s", ErrNoInitialRequest, act.Kind)
	}

	project, err := client.CreateProject(ctx, act.Text)
	if err != nil {
		return model.Run{}, err
	}
	reply, err := client.SendChat(ctx, project.ID, act.Text)
	if err != nil {
		return model.Run{}, err
	}
	link := project.Link
	if p, err := client.GetProject(ctx, project.ID); err != nil {
		s.logger.Warn("starter: project link unavailable", "project_id", project.ID, "error", err)
	} else if p.Link != "" {
		link = p.Link
	}

	now := time.Now().UTC()
	run := model.Run{
		ID:             uuid.New(),
		ScenarioID:     sc.ID,
		SystemVersion:  strings.TrimRight(req.SystemVersion, "/"),
		ProjectID:      project.ID,
		UserID:         req.UserID,
		Link:           link,
		State:          model.RunStatePaused,
		LLMTemperature: sc.LLMTemperature,
		CreatedAt:      now,
		UpdatedAt:      now,
		ScenarioName:   sc.Name,
		ScenarioPrompt: sc.Prompt,
		TimeoutSeconds: sc.TimeoutSeconds,
		LLMModel:       sc.LLMModel,
	}
	initial, err := model.NewResult(run.ID, model.ResultInitialImpersonation, model.InitialImpersonationData{
		Request:   act.Text,
		ProjectID: project.ID,
		Link:      link,
		Reply:     reply,
	})
	if err != nil {
		return model.Run{}, err
	}
	if err := s.store.CreateRun(ctx, run, initial); err != nil {
		return model.Run{}, err
	}
	return run, nil
}
