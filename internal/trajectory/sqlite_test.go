package trajectory_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/gauntlet/internal/model"
	"github.com/ashita-ai/gauntlet/internal/storage/sqlitestore"
	"github.com/ashita-ai/gauntlet/internal/testutil"
	"github.com/ashita-ai/gauntlet/internal/trajectory"
)

func TestSQLReader_OrdersByTimestampThenID(t *testing.T) {
	ctx := context.Background()
	s, err := sqlitestore.Open(ctx, filepath.Join(t.TempDir(), "t.db"), testutil.TestLogger())
	require.NoError(t, err)
	defer func() { _ = s.Close(ctx) }()

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rows := []model.TrajectoryEntry{
		{ID: "c", ProjectID: "p1", Sender: "gpt-engineer", Content: "third", Timestamp: base.Add(time.Second)},
		{ID: "b", ProjectID: "p1", Sender: model.SenderHuman, Content: "second", Timestamp: base},
		{ID: "a", ProjectID: "p1", Sender: model.SenderHuman, Content: "first", Timestamp: base},
		{ID: "z", ProjectID: "p2", Sender: model.SenderHuman, Content: "other", Timestamp: base},
	}
	for _, e := range rows {
		_, err := s.DB().ExecContext(ctx,
			`INSERT INTO trajectory_messages (id, project_id, sender, content, timestamp) VALUES (?, ?, ?, ?, ?)`,
			e.ID, e.ProjectID, e.Sender, e.Content, e.Timestamp.UnixNano())
		require.NoError(t, err)
	}

	got, err := trajectory.NewSQLReader(s.DB()).ReadTrajectory(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"first", "second", "third"}, []string{got[0].Content, got[1].Content, got[2].Content})
	assert.True(t, got[2].Timestamp.Equal(base.Add(time.Second)))

	empty, err := trajectory.NewSQLReader(s.DB()).ReadTrajectory(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
