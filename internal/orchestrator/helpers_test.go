package orchestrator_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/gauntlet/internal/model"
	"github.com/ashita-ai/gauntlet/internal/orchestrator"
	"github.com/ashita-ai/gauntlet/internal/storage/sqlitestore"
	"github.com/ashita-ai/gauntlet/internal/testutil"
)

const testVersion = "http://localhost:8000"

func openStore(t *testing.T) *sqlitestore.Store {
	t.Helper()
	s, err := sqlitestore.Open(context.Background(), filepath.Join(t.TempDir(), "gauntlet.db"), testutil.TestLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func seedScenario(t *testing.T, s *sqlitestore.Store, timeout int) model.Scenario {
	t.Helper()
	sc, err := s.UpsertScenario(context.Background(), model.Scenario{
		Name:           "todo-" + uuid.NewString(),
		Prompt:         "Create a todo app",
		LLMTemperature: 0.5,
		TimeoutSeconds: timeout,
	})
	require.NoError(t, err)
	return sc
}

// seedPausedRun creates a paused run for a fresh scenario with the given budget.
func seedPausedRun(t *testing.T, s *sqlitestore.Store, timeout int) model.Run {
	t.Helper()
	ctx := context.Background()
	sc := seedScenario(t, s, timeout)
	run := model.Run{
		ID:             uuid.New(),
		ScenarioID:     sc.ID,
		SystemVersion:  testVersion,
		ProjectID:      "proj-" + uuid.NewString(),
		UserID:         uuid.New(),
		State:          model.RunStatePaused,
		LLMTemperature: sc.LLMTemperature,
	}
	initial, err := model.NewResult(run.ID, model.ResultInitialImpersonation, model.InitialImpersonationData{
		Request:   "Build me a todo app",
		ProjectID: run.ProjectID,
		Reply:     json.RawMessage(`{}`),
	})
	require.NoError(t, err)
	require.NoError(t, s.CreateRun(ctx, run, initial))
	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	return got
}

// claim moves a seeded run to running and returns it re-read.
func claim(t *testing.T, s *sqlitestore.Store, run model.Run) model.Run {
	t.Helper()
	ctx := context.Background()
	won, err := s.ClaimRun(ctx, run.ID)
	require.NoError(t, err)
	require.True(t, won)
	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	return got
}

func resultTypes(t *testing.T, s *sqlitestore.Store, runID uuid.UUID) []model.ResultType {
	t.Helper()
	results, err := s.ListResults(context.Background(), runID)
	require.NoError(t, err)
	types := make([]model.ResultType, 0, len(results))
	for _, r := range results {
		types = append(types, r.Result.Type)
	}
	return types
}

func targetsFor(c orchestrator.TargetClient) orchestrator.TargetFactory {
	return func(string) (orchestrator.TargetClient, error) { return c, nil }
}

// steppingClock returns start on its first call and start+step on every later one.
func steppingClock(step time.Duration) func() time.Time {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	calls := 0
	return func() time.Time {
		calls++
		if calls == 1 {
			return start
		}
		return start.Add(step)
	}
}
