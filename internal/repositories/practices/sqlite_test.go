package practices

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
CREATE TABLE practices (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  instruction TEXT NOT NULL,
  mode TEXT NOT NULL,
  difficulty INTEGER NOT NULL DEFAULT 1,
  duration_seconds INTEGER NOT NULL DEFAULT 0,
  contra_notes TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
`)
	require.NoError(t, err)

	return db
}

func TestUpsert_InsertThenUpdate(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	now := time.Now()
	p := &models.Practice{
		ID: "prac_x", Title: "Before", Instruction: "do", Mode: models.ModeFocus,
		Difficulty: 1, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, r.Upsert(ctx, p))

	p.Title = "After"
	p.Difficulty = 3
	require.NoError(t, r.Upsert(ctx, p))

	got, err := r.GetByID(ctx, "prac_x")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "After", got.Title)
	assert.Equal(t, 3, got.Difficulty)

	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSeed_IsIdempotent(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	seeded, err := Seed(ctx, r)
	require.NoError(t, err)
	require.Greater(t, seeded, 0)

	again, err := Seed(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, seeded, again)

	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, seeded, n)
}

func TestGetAll_OrderedByID(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	_, err := Seed(ctx, r)
	require.NoError(t, err)

	all, err := r.GetAll(ctx)
	require.NoError(t, err)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].ID, all[i].ID, "catalogue order must be stable")
	}
}
