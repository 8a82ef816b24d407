// Package orchestrator advances benchmark runs one conversation turn at a time.
//
// A Scheduler tick claims at most one paused run at the store, checks its
// budget, and hands it to the Driver, which reads the transcript, asks the
// oracle for the impersonated user's next message, forwards it to the target
// and writes the outcome back through the run state machine. Starter creates
// runs by performing the first turn synchronously.
package orchestrator

import (
	"context"

	"github.com/google/uuid"

	"github.com/ashita-ai/gauntlet/internal/model"
	"github.com/ashita-ai/gauntlet/internal/oracle"
	"github.com/ashita-ai/gauntlet/internal/target"
)

//go:generate go tool mockgen -destination=mocks_test.go -package=orchestrator_test . TrajectoryReader,TargetClient,Oracle

// Store is the run store. *storage.DB and *sqlitestore.Store implement it.
type Store interface {
	NextPausedRun(ctx context.Context) (model.Run, error)
	GetRun(ctx context.Context, id uuid.UUID) (model.Run, error)
	ClaimRun(ctx context.Context, id uuid.UUID) (bool, error)
	AddTimeUsed(ctx context.Context, id uuid.UUID, seconds int) (model.RunState, error)
	TransitionRun(ctx context.Context, id uuid.UUID, from, to model.RunState, result *model.Result) (bool, error)
	InsertResult(ctx context.Context, res model.Result) error
	CreateRun(ctx context.Context, run model.Run, initial model.Result) error
	GetScenario(ctx context.Context, id uuid.UUID) (model.Scenario, error)
	BenchmarkSettings(ctx context.Context) (model.BenchmarkSettings, error)
	SetBenchmarkActive(ctx context.Context, active bool, by string) (model.BenchmarkSettings, error)
	CountRunsByState(ctx context.Context) (map[model.RunState]int, error)
}

// TrajectoryReader returns a project's transcript in order.
type TrajectoryReader interface {
	ReadTrajectory(ctx context.Context, projectID string) ([]model.TrajectoryEntry, error)
}

// TargetClient is the system under test for one system version.
type TargetClient interface {
	CreateProject(ctx context.Context, description string) (target.Project, error)
	SendChat(ctx context.Context, projectID, message string) (target.Reply, error)
	GetProject(ctx context.Context, projectID string) (target.Project, error)
}

// TargetFactory returns the client for a system version.
type TargetFactory func(systemVersion string) (TargetClient, error)

// Oracle is the impersonation model.
type Oracle interface {
	NextAction(ctx context.Context, history []oracle.Message, opts oracle.CallOptions) (string, error)
}

// RegistryTargets adapts a target.Registry to a TargetFactory.
func RegistryTargets(r *target.Registry) TargetFactory {
	return func(systemVersion string) (TargetClient, error) {
		c, err := r.Client(systemVersion)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}
