package services

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/margin-app/margin/internal/fragments"
	"github.com/margin-app/margin/internal/logging"
	"github.com/margin-app/margin/internal/models"
	fragrepo "github.com/margin-app/margin/internal/repositories/fragments"
	"github.com/margin-app/margin/internal/repositories/sessions"
	"github.com/margin-app/margin/internal/repositories/syncstate"
	_ "modernc.org/sqlite"
)

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func setupServiceDB(t *testing.T) *sql.DB {
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
CREATE TABLE fragments_catalog_cache (
  id TEXT PRIMARY KEY,
  voice TEXT NOT NULL,
  text TEXT NOT NULL,
  enabled INTEGER NOT NULL DEFAULT 1,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
CREATE TABLE fragment_reveals_local (
  id TEXT PRIMARY KEY,
  fragment_id TEXT NOT NULL UNIQUE,
  revealed_at TEXT NOT NULL,
  created_at TEXT NOT NULL,
  synced INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE sync_state (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL
);
`)
	require.NoError(t, err)
	return db
}

// completeSessions records n completed sessions.
func completeSessions(t *testing.T, repo sessions.Repository, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		s, err := repo.Start(ctx, "prac_0001")
		require.NoError(t, err)
		require.NoError(t, repo.Complete(ctx, s.ID, models.RatingNeutral, ""))
	}
}

func seedCatalogue(t *testing.T, repo fragrepo.Repository, perVoice int) {
	t.Helper()
	now := time.Now()
	var frags []models.Fragment
	for _, v := range models.Voices {
		for i := 0; i < perVoice; i++ {
			frags = append(frags, models.Fragment{
				ID:        string(v) + "-" + string(rune('a'+i)),
				Voice:     v,
				Text:      "text",
				Enabled:   true,
				CreatedAt: now,
				UpdatedAt: now,
			})
		}
	}
	require.NoError(t, repo.ReplaceCatalogue(context.Background(), frags))
}

func newTestService(t *testing.T, db *sql.DB, enabled bool, draw float64) (*FragmentService, fragrepo.Repository, sessions.Repository) {
	fr := fragrepo.NewSQLiteRepository(db)
	sr := sessions.NewSQLiteRepository(db)
	st := syncstate.NewSQLiteRepository(db)
	svc := NewFragmentService(fr, sr, st, enabled, discardLogger())
	svc.randVal = func() float64 { return draw }
	return svc, fr, sr
}

func TestCheckRelease_RevealsAndRecords(t *testing.T) {
	db := setupServiceDB(t)
	ctx := context.Background()
	svc, fr, sr := newTestService(t, db, true, 0.05)
	completeSessions(t, sr, 3)
	seedCatalogue(t, fr, 2)

	out, err := svc.CheckRelease(ctx)
	require.NoError(t, err)
	require.NotNil(t, out.Fragment)
	assert.Empty(t, out.Reason)

	reveals, err := fr.GetAllReveals(ctx)
	require.NoError(t, err)
	require.Len(t, reveals, 1)
	assert.Equal(t, out.Fragment.ID, reveals[0].FragmentID)

	// the next check is inside the cooldown
	out, err = svc.CheckRelease(ctx)
	require.NoError(t, err)
	assert.Nil(t, out.Fragment)
	assert.Equal(t, fragments.SkipCooldownActive, out.Reason)
}

func TestCheckRelease_Disabled(t *testing.T) {
	db := setupServiceDB(t)
	svc, fr, sr := newTestService(t, db, false, 0.05)
	completeSessions(t, sr, 3)
	seedCatalogue(t, fr, 1)

	out, err := svc.CheckRelease(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fragments.SkipFragmentsDisabled, out.Reason)
}

func TestCheckRelease_InsufficientPractices(t *testing.T) {
	db := setupServiceDB(t)
	svc, fr, sr := newTestService(t, db, true, 0.05)
	completeSessions(t, sr, 2)
	seedCatalogue(t, fr, 1)

	out, err := svc.CheckRelease(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fragments.SkipInsufficientPractices, out.Reason)
}

func TestCheckRelease_ProbabilityGate(t *testing.T) {
	db := setupServiceDB(t)
	svc, fr, sr := newTestService(t, db, true, 0.5)
	completeSessions(t, sr, 3)
	seedCatalogue(t, fr, 1)

	out, err := svc.CheckRelease(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fragments.SkipProbabilityGate, out.Reason)
}

func TestCheckRelease_EmptyCatalogue(t *testing.T) {
	db := setupServiceDB(t)
	svc, _, sr := newTestService(t, db, true, 0.05)
	completeSessions(t, sr, 3)

	out, err := svc.CheckRelease(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fragments.SkipNoFragmentsAvailable, out.Reason)
}

func TestCheckRelease_CachesFirstPracticeAt(t *testing.T) {
	db := setupServiceDB(t)
	ctx := context.Background()
	svc, fr, sr := newTestService(t, db, true, 0.5)
	completeSessions(t, sr, 3)
	seedCatalogue(t, fr, 1)

	_, err := svc.CheckRelease(ctx)
	require.NoError(t, err)

	st := syncstate.NewSQLiteRepository(db)
	cached, err := st.GetFirstPracticeAt(ctx)
	require.NoError(t, err)
	require.NotNil(t, cached)

	first, err := sr.FirstCompletedStart(ctx)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.True(t, cached.Equal(*first))
}

func TestHistory_PairsRevealsWithFragments(t *testing.T) {
	db := setupServiceDB(t)
	ctx := context.Background()
	svc, fr, _ := newTestService(t, db, true, 0.05)
	seedCatalogue(t, fr, 1)

	_, err := fr.InsertReveal(ctx, "observer-a", time.Now())
	require.NoError(t, err)
	_, err = fr.InsertReveal(ctx, "missing-fragment", time.Now().Add(time.Minute))
	require.NoError(t, err)

	history, err := svc.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 2)

	// newest first; the stale reveal has no cached fragment
	assert.Equal(t, "missing-fragment", history[0].Reveal.FragmentID)
	assert.Nil(t, history[0].Fragment)
	require.NotNil(t, history[1].Fragment)
	assert.Equal(t, "observer-a", history[1].Fragment.ID)
}
