package sync

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/margin-app/margin/internal/models"
	"github.com/margin-app/margin/internal/remote"
	"github.com/margin-app/margin/internal/repositories/sessions"
	"github.com/margin-app/margin/internal/repositories/syncstate"
	_ "modernc.org/sqlite"
)

func setupSessionsDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE practice_sessions (
  id TEXT PRIMARY KEY,
  practice_id TEXT NOT NULL,
  started_at TEXT NOT NULL,
  completed_at TEXT,
  status TEXT NOT NULL DEFAULT 'started',
  user_rating TEXT,
  notes TEXT,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL,
  deleted_at TEXT
);
CREATE TABLE sync_state (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL
);
`)
	require.NoError(t, err)
	return db
}

func TestSessionsSync_RoundTripsCompletedSession(t *testing.T) {
	db := setupSessionsDB(t)
	ctx := context.Background()
	repo := sessions.NewSQLiteRepository(db)
	store := newFakeStore()
	auth := &fakeAuth{user: &remote.User{ID: "user-1"}}

	s, err := repo.Start(ctx, "prac_0001")
	require.NoError(t, err)
	require.NoError(t, repo.Complete(ctx, s.ID, models.RatingHard, "tough one"))

	m := NewSessionsModule(repo, store, auth, syncstate.NewSQLiteRepository(db), 0, discardLogger())
	res := m.Sync(ctx)
	require.Empty(t, res.Errors)
	require.Equal(t, 1, res.Pushed)

	pushed := store.rows[TableSessions][s.ID]
	require.NotNil(t, pushed)
	assert.Equal(t, "completed", pushed.String("status"))
	assert.Equal(t, "hard", pushed.String("user_rating"))
	assert.Equal(t, "tough one", pushed.String("notes"))
	assert.NotNil(t, pushed.Time("completed_at"))
}

func TestSessionsSync_PullAppliesRemoteSession(t *testing.T) {
	db := setupSessionsDB(t)
	ctx := context.Background()
	repo := sessions.NewSQLiteRepository(db)
	store := newFakeStore()
	auth := &fakeAuth{user: &remote.User{ID: "user-1"}}

	now := time.Now()
	store.put(TableSessions, remote.Row{
		"id":           "remote-session",
		"user_id":      "user-1",
		"practice_id":  "prac_0002",
		"started_at":   models.FormatTime(now.Add(-time.Hour)),
		"completed_at": models.FormatTime(now.Add(-50 * time.Minute)),
		"status":       "completed",
		"user_rating":  "easy",
		"notes":        "from another device",
		"created_at":   models.FormatTime(now.Add(-time.Hour)),
		"updated_at":   models.FormatTime(now),
		"deleted_at":   nil,
	})

	m := NewSessionsModule(repo, store, auth, syncstate.NewSQLiteRepository(db), 0, discardLogger())
	res := m.Sync(ctx)
	require.Empty(t, res.Errors)
	assert.Equal(t, 1, res.Pulled)

	got, err := repo.GetByID(ctx, "remote-session")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.SessionCompleted, got.Status)
	assert.Equal(t, models.RatingEasy, got.Rating)
	require.NotNil(t, got.CompletedAt)

	n, err := repo.CountCompleted(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "a pulled completed session counts toward the practice total")
}
