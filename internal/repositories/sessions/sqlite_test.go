package sessions

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/margin-app/margin/internal/models"
	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
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
`)
	require.NoError(t, err)

	return db
}

func TestStart_Complete_SetsCompletedAt(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	s, err := r.Start(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, models.SessionStarted, s.Status)

	require.NoError(t, r.Complete(ctx, s.ID, models.RatingNeutral, "calm"))

	got, err := r.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, got.Status)
	require.NotNil(t, got.CompletedAt, "completed_at set iff completed")
	assert.Equal(t, models.RatingNeutral, got.Rating)
	assert.Equal(t, "calm", got.Notes)
}

func TestAbandon_LeavesCompletedAtNil(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	s, err := r.Start(ctx, "p1")
	require.NoError(t, err)
	require.NoError(t, r.Abandon(ctx, s.ID))

	got, err := r.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionAbandoned, got.Status)
	assert.Nil(t, got.CompletedAt)
}

func TestStatus_TerminalOnceSet(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	s, err := r.Start(ctx, "p1")
	require.NoError(t, err)
	require.NoError(t, r.Complete(ctx, s.ID, models.RatingEasy, ""))

	err = r.Abandon(ctx, s.ID)
	require.ErrorIs(t, err, ErrSessionClosed)

	err = r.Complete(ctx, s.ID, models.RatingHard, "again")
	require.ErrorIs(t, err, ErrSessionClosed)

	got, err := r.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, got.Status)
	assert.Equal(t, models.RatingEasy, got.Rating)
}

func TestCountCompleted_And_FirstCompletedStart(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	n, err := r.CountCompleted(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	first, err := r.FirstCompletedStart(ctx)
	require.NoError(t, err)
	assert.Nil(t, first)

	base := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	for i, id := range []string{"s1", "s2"} {
		started := base.AddDate(0, 0, i)
		completed := started.Add(10 * time.Minute)
		require.NoError(t, r.UpsertFromRemote(ctx, &models.PracticeSession{
			ID:          id,
			PracticeID:  "p1",
			StartedAt:   started,
			CompletedAt: &completed,
			Status:      models.SessionCompleted,
			CreatedAt:   started,
			UpdatedAt:   completed,
		}))
	}
	// an abandoned session must not count
	s, err := r.Start(ctx, "p1")
	require.NoError(t, err)
	require.NoError(t, r.Abandon(ctx, s.ID))

	n, err = r.CountCompleted(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	first, err = r.FirstCompletedStart(ctx)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.True(t, first.Equal(base))
}

func TestChangedSince_IncludesTombstones(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	s, err := r.Start(ctx, "p1")
	require.NoError(t, err)
	require.NoError(t, r.SoftDelete(ctx, s.ID))

	changed, err := r.ChangedSince(ctx, nil, 10)
	require.NoError(t, err)
	require.Len(t, changed, 1)
	require.NotNil(t, changed[0].DeletedAt, "tombstones must be pushed")
}
