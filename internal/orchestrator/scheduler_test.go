package orchestrator_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ashita-ai/gauntlet/internal/model"
	"github.com/ashita-ai/gauntlet/internal/orchestrator"
	"github.com/ashita-ai/gauntlet/internal/storage/sqlitestore"
	"github.com/ashita-ai/gauntlet/internal/testutil"
)

func newScheduler(store orchestrator.Store, f driverFixture, cfg orchestrator.SchedulerConfig) *orchestrator.Scheduler {
	d := orchestrator.NewDriver(store, f.trajectory, f.oracle, targetsFor(f.target), testutil.TestLogger())
	if cfg.InstanceID == "" {
		cfg.InstanceID = "test-instance"
	}
	return orchestrator.NewScheduler(store, d, testutil.TestLogger(), cfg)
}

func activate(t *testing.T, store orchestrator.Store) {
	t.Helper()
	_, err := store.SetBenchmarkActive(context.Background(), true, "test")
	require.NoError(t, err)
}

func TestTick_InactiveDoesNothing(t *testing.T) {
	store := openStore(t)
	run := seedPausedRun(t, store, 1800)
	s := newScheduler(store, newDriverFixture(t), orchestrator.SchedulerConfig{TargetTokenSet: true})

	assert.Equal(t, orchestrator.TickInactive, s.Tick(context.Background()))

	got, err := store.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatePaused, got.State)
}

func TestTick_IdleWhenNoPausedRuns(t *testing.T) {
	store := openStore(t)
	activate(t, store)
	s := newScheduler(store, newDriverFixture(t), orchestrator.SchedulerConfig{TargetTokenSet: true})

	assert.Equal(t, orchestrator.TickIdle, s.Tick(context.Background()))
}

func TestTick_OverBudgetRunTimesOutWithoutTargetCall(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	run := seedPausedRun(t, store, 10)
	// Paused runs accumulate without being flipped.
	state, err := store.AddTimeUsed(ctx, run.ID, 12)
	require.NoError(t, err)
	require.Equal(t, model.RunStatePaused, state)
	activate(t, store)

	// No expectations: any trajectory, oracle or target call fails the test.
	s := newScheduler(store, newDriverFixture(t), orchestrator.SchedulerConfig{TargetTokenSet: true})
	assert.Equal(t, orchestrator.TickTimedOut, s.Tick(ctx))

	got, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStateTimedOut, got.State)

	results, err := store.ListResults(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, model.ResultTimeout, results[1].Result.Type)
	var data model.TimeoutData
	require.NoError(t, json.Unmarshal(results[1].Result.Data, &data))
	assert.Equal(t, model.TimeoutData{TimeUsed: 12, TimeoutSeconds: 10}, data)
}

func TestTick_RunsOneTurn(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	runs := []model.Run{seedPausedRun(t, store, 1800), seedPausedRun(t, store, 1800)}
	activate(t, store)

	f := newDriverFixture(t)
	f.trajectory.EXPECT().ReadTrajectory(gomock.Any(), gomock.Any()).Return(nil, nil)
	f.oracle.EXPECT().NextAction(gomock.Any(), gomock.Any(), gomock.Any()).Return("<lov-scenario-finished/>", nil)

	s := newScheduler(store, f, orchestrator.SchedulerConfig{TargetTokenSet: true})
	assert.Equal(t, orchestrator.TickTurned, s.Tick(ctx))

	states := map[model.RunState]int{}
	for _, r := range runs {
		got, err := store.GetRun(ctx, r.ID)
		require.NoError(t, err)
		states[got.State]++
	}
	assert.Equal(t, map[model.RunState]int{model.RunStateCompleted: 1, model.RunStatePaused: 1}, states)
}

func TestTick_MissingTokenDeactivates(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	run := seedPausedRun(t, store, 1800)
	activate(t, store)

	s := newScheduler(store, newDriverFixture(t), orchestrator.SchedulerConfig{InstanceID: "node-a"})
	assert.Equal(t, orchestrator.TickInactive, s.Tick(ctx))

	settings, err := store.BenchmarkSettings(ctx)
	require.NoError(t, err)
	assert.False(t, settings.Active)
	assert.Equal(t, "node-a", settings.UpdatedBy)

	got, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatePaused, got.State)
}

// losingStore simulates another instance winning every claim.
type losingStore struct {
	*sqlitestore.Store
}

func (losingStore) ClaimRun(context.Context, uuid.UUID) (bool, error) { return false, nil }

func TestTick_LostClaimDoesNothing(t *testing.T) {
	store := openStore(t)
	seedPausedRun(t, store, 1800)
	activate(t, store)

	s := newScheduler(losingStore{store}, newDriverFixture(t), orchestrator.SchedulerConfig{TargetTokenSet: true})
	assert.Equal(t, orchestrator.TickClaimLost, s.Tick(context.Background()))
}

func TestScheduler_StartAndDrain(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	run := seedPausedRun(t, store, 1800)
	activate(t, store)

	f := newDriverFixture(t)
	f.trajectory.EXPECT().ReadTrajectory(gomock.Any(), run.ProjectID).Return(nil, nil)
	f.oracle.EXPECT().NextAction(gomock.Any(), gomock.Any(), gomock.Any()).Return("<lov-scenario-finished/>", nil)

	s := newScheduler(store, f, orchestrator.SchedulerConfig{TargetTokenSet: true, PollInterval: 10 * time.Millisecond})
	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.Start(loopCtx)
	s.Start(loopCtx) // second call is ignored

	require.Eventually(t, func() bool {
		got, err := store.GetRun(ctx, run.ID)
		return err == nil && got.State == model.RunStateCompleted
	}, 5*time.Second, 10*time.Millisecond)

	drainCtx, drainCancel := context.WithTimeout(ctx, 5*time.Second)
	defer drainCancel()
	s.Drain(drainCtx)
	assert.NoError(t, drainCtx.Err(), "drain should finish before its deadline")
}

func TestTickOutcome_String(t *testing.T) {
	assert.Equal(t, "inactive", orchestrator.TickInactive.String())
	assert.Equal(t, "idle", orchestrator.TickIdle.String())
	assert.Equal(t, "claim_lost", orchestrator.TickClaimLost.String())
	assert.Equal(t, "timed_out", orchestrator.TickTimedOut.String())
	assert.Equal(t, "turned", orchestrator.TickTurned.String())
	assert.Equal(t, "error", orchestrator.TickError.String())
}
