package orchestrator_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ashita-ai/gauntlet/internal/model"
	"github.com/ashita-ai/gauntlet/internal/oracle"
	"github.com/ashita-ai/gauntlet/internal/orchestrator"
	"github.com/ashita-ai/gauntlet/internal/runstate"
	"github.com/ashita-ai/gauntlet/internal/target"
	"github.com/ashita-ai/gauntlet/internal/testutil"
)

type driverFixture struct {
	trajectory *MockTrajectoryReader
	oracle     *MockOracle
	target     *MockTargetClient
}

func newDriverFixture(t *testing.T) driverFixture {
	ctrl := gomock.NewController(t)
	return driverFixture{
		trajectory: NewMockTrajectoryReader(ctrl),
		oracle:     NewMockOracle(ctrl),
		target:     NewMockTargetClient(ctrl),
	}
}

func (f driverFixture) driver(store orchestrator.Store, step time.Duration) *orchestrator.Driver {
	return orchestrator.NewDriver(store, f.trajectory, f.oracle, targetsFor(f.target), testutil.TestLogger()).
		WithClock(steppingClock(step))
}

func TestRunTurn_RequestIsForwardedAndRunPauses(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	run := claim(t, store, seedPausedRun(t, store, 1800))
	f := newDriverFixture(t)

	f.trajectory.EXPECT().ReadTrajectory(gomock.Any(), run.ProjectID).Return([]model.TrajectoryEntry{
		{Sender: model.SenderHuman, Content: "Build me a todo app"},
		{Sender: "ai", Content: "Done. Anything else?"},
	}, nil)
	f.oracle.EXPECT().NextAction(gomock.Any(), gomock.Any(), oracle.CallOptions{Temperature: 0.5}).
		Return("<lov-chat-request>Add a delete button</lov-chat-request>", nil)
	f.target.EXPECT().SendChat(gomock.Any(), run.ProjectID, "Add a delete button").
		Return(target.Reply(`{"ok":true}`), nil)

	res, err := f.driver(store, 3*time.Second).RunTurn(ctx, run)
	require.NoError(t, err)
	assert.Equal(t, runstate.EventTurnContinue, res.Event)
	assert.Equal(t, model.RunStatePaused, res.State)
	assert.True(t, res.Released)
	assert.Equal(t, 3, res.Elapsed)

	got, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatePaused, got.State)
	assert.Equal(t, 3, got.TimeUsed)

	results, err := store.ListResults(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, model.ResultChatMessageSent, results[1].Result.Type)
	var data model.ChatMessageSentData
	require.NoError(t, json.Unmarshal(results[1].Result.Data, &data))
	assert.Equal(t, "Add a delete button", data.Request)
	assert.JSONEq(t, `{"ok":true}`, string(data.Reply))
}

func TestRunTurn_FinishedCompletesWithoutTargetCall(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	run := claim(t, store, seedPausedRun(t, store, 1800))
	f := newDriverFixture(t)

	f.trajectory.EXPECT().ReadTrajectory(gomock.Any(), run.ProjectID).Return(nil, nil)
	f.oracle.EXPECT().NextAction(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("Looks good. <lov-chat-request>more?</lov-chat-request><lov-scenario-finished/>", nil)

	res, err := f.driver(store, 2*time.Second).RunTurn(ctx, run)
	require.NoError(t, err)
	assert.Equal(t, runstate.EventTurnFinished, res.Event)
	assert.Equal(t, model.RunStateCompleted, res.State)

	assert.Equal(t, []model.ResultType{model.ResultInitialImpersonation, model.ResultScenarioFinished},
		resultTypes(t, store, run.ID))
}

func TestRunTurn_MalformedRecordsUnexpectedMessage(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	run := claim(t, store, seedPausedRun(t, store, 1800))
	f := newDriverFixture(t)

	f.trajectory.EXPECT().ReadTrajectory(gomock.Any(), gomock.Any()).Return(nil, nil)
	f.oracle.EXPECT().NextAction(gomock.Any(), gomock.Any(), gomock.Any()).Return("I am not sure what to say.", nil)

	res, err := f.driver(store, time.Second).RunTurn(ctx, run)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatePaused, res.State)

	results, err := store.ListResults(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, model.ResultUnexpectedMessage, results[1].Result.Type)
	var data model.UnexpectedMessageData
	require.NoError(t, json.Unmarshal(results[1].Result.Data, &data))
	assert.Equal(t, "I am not sure what to say.", data.Raw)
}

func TestRunTurn_TargetFailureIsTerminal(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	run := claim(t, store, seedPausedRun(t, store, 1800))
	f := newDriverFixture(t)

	f.trajectory.EXPECT().ReadTrajectory(gomock.Any(), gomock.Any()).Return(nil, nil)
	f.oracle.EXPECT().NextAction(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("<lov-chat-request>hi</lov-chat-request>", nil)
	f.target.EXPECT().SendChat(gomock.Any(), run.ProjectID, "hi").
		Return(nil, &target.StatusError{Op: "send chat", StatusCode: 500, Body: "boom"})

	res, err := f.driver(store, 4*time.Second).RunTurn(ctx, run)
	require.NoError(t, err)
	assert.Equal(t, runstate.EventTurnFailed, res.Event)
	assert.Equal(t, model.RunStateImpersonatorFailed, res.State)

	got, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStateImpersonatorFailed, got.State)
	assert.Equal(t, 4, got.TimeUsed, "time is accumulated even when the turn fails")
	assert.Equal(t, []model.ResultType{model.ResultInitialImpersonation}, resultTypes(t, store, run.ID))
}

func TestRunTurn_UnknownVersionFailsRun(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	run := claim(t, store, seedPausedRun(t, store, 1800))
	f := newDriverFixture(t)

	f.trajectory.EXPECT().ReadTrajectory(gomock.Any(), gomock.Any()).Return(nil, nil)
	f.oracle.EXPECT().NextAction(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("<lov-chat-request>hi</lov-chat-request>", nil)

	noTargets := func(v string) (orchestrator.TargetClient, error) {
		return nil, fmt.Errorf("%w: %q", target.ErrUnknownVersion, v)
	}
	d := orchestrator.NewDriver(store, f.trajectory, f.oracle, noTargets, testutil.TestLogger())

	res, err := d.RunTurn(ctx, run)
	require.NoError(t, err)
	assert.Equal(t, model.RunStateImpersonatorFailed, res.State)
}

func TestRunTurn_OracleErrorPausesWithoutResult(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	run := claim(t, store, seedPausedRun(t, store, 1800))
	f := newDriverFixture(t)

	f.trajectory.EXPECT().ReadTrajectory(gomock.Any(), gomock.Any()).Return(nil, nil)
	f.oracle.EXPECT().NextAction(gomock.Any(), gomock.Any(), gomock.Any()).Return("", errors.New("rate limited"))

	res, err := f.driver(store, time.Second).RunTurn(ctx, run)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatePaused, res.State)
	assert.Equal(t, []model.ResultType{model.ResultInitialImpersonation}, resultTypes(t, store, run.ID))
}

func TestRunTurn_TrajectoryErrorPauses(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	run := claim(t, store, seedPausedRun(t, store, 1800))
	f := newDriverFixture(t)

	f.trajectory.EXPECT().ReadTrajectory(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection reset"))

	res, err := f.driver(store, time.Second).RunTurn(ctx, run)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatePaused, res.State)

	got, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TimeUsed)
}

func TestRunTurn_TimeoutDuringTurnWins(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	run := claim(t, store, seedPausedRun(t, store, 10))
	f := newDriverFixture(t)

	f.trajectory.EXPECT().ReadTrajectory(gomock.Any(), gomock.Any()).Return(nil, nil)
	f.oracle.EXPECT().NextAction(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("<lov-scenario-finished/>", nil)

	res, err := f.driver(store, 12*time.Second).RunTurn(ctx, run)
	require.NoError(t, err)
	assert.Equal(t, model.RunStateTimedOut, res.State)
	assert.False(t, res.Released)

	got, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStateTimedOut, got.State)
	assert.Equal(t, 12, got.TimeUsed)
	assert.Equal(t, []model.ResultType{model.ResultInitialImpersonation, model.ResultTimeout},
		resultTypes(t, store, run.ID))
}

func TestRunTurn_PassesScenarioPromptAndHistory(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	run := claim(t, store, seedPausedRun(t, store, 1800))
	f := newDriverFixture(t)

	f.trajectory.EXPECT().ReadTrajectory(gomock.Any(), gomock.Any()).Return([]model.TrajectoryEntry{
		{Sender: model.SenderHuman, Content: "Build me a todo app"},
		{Sender: "ai", Content: "Here it is"},
	}, nil)

	var history []oracle.Message
	f.oracle.EXPECT().NextAction(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, h []oracle.Message, _ oracle.CallOptions) (string, error) {
			history = h
			return "<lov-scenario-finished/>", nil
		})

	_, err := f.driver(store, time.Second).RunTurn(ctx, run)
	require.NoError(t, err)
	assert.Equal(t, []oracle.Message{
		{Role: oracle.RoleUser, Content: "Create a todo app"},
		{Role: oracle.RoleAssistant, Content: "Build me a todo app"},
		{Role: oracle.RoleUser, Content: "Here it is"},
	}, history)
}

func TestRunTurn_RunNoLongerRunningSkipsRelease(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	run := seedPausedRun(t, store, 1800)
	f := newDriverFixture(t)

	// The run was never claimed, so the release from running cannot apply.
	f.trajectory.EXPECT().ReadTrajectory(gomock.Any(), gomock.Any()).Return(nil, nil)
	f.oracle.EXPECT().NextAction(gomock.Any(), gomock.Any(), gomock.Any()).Return("nonsense", nil)

	res, err := f.driver(store, time.Second).RunTurn(ctx, run)
	require.NoError(t, err)
	assert.False(t, res.Released)
	assert.Equal(t, model.RunStatePaused, res.State)
}

func TestBuildHistory(t *testing.T) {
	assert.Empty(t, orchestrator.BuildHistory("", nil))
	got := orchestrator.BuildHistory("", []model.TrajectoryEntry{
		{Sender: "ai", Content: "a"},
		{Sender: model.SenderHuman, Content: "b"},
		{Sender: "system", Content: "c"},
	})
	assert.Equal(t, []oracle.Message{
		{Role: oracle.RoleUser, Content: "a"},
		{Role: oracle.RoleAssistant, Content: "b"},
		{Role: oracle.RoleUser, Content: "c"},
	}, got)
}

func TestElapsedSeconds(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want int
	}{
		{0, 1},
		{200 * time.Millisecond, 1},
		{1400 * time.Millisecond, 1},
		{1500 * time.Millisecond, 2},
		{90 * time.Second, 90},
	}
	for _, tt := range tests {
		t.Run(tt.in.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, orchestrator.ElapsedSeconds(tt.in))
		})
	}
}
