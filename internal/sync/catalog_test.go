package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/margin-app/margin/internal/models"
	"github.com/margin-app/margin/internal/remote"
	"github.com/margin-app/margin/internal/repositories/fragments"
	"github.com/margin-app/margin/internal/repositories/syncstate"
	_ "modernc.org/sqlite"
)

func catalogueRow(id string, voice models.Voice) remote.Row {
	now := models.FormatTime(time.Now())
	return remote.Row{
		"id":         id,
		"voice":      string(voice),
		"text":       "fragment text",
		"enabled":    true,
		"created_at": now,
		"updated_at": now,
	}
}

func TestCatalogSync_SkipsWhenVersionCurrent(t *testing.T) {
	db := setupRevealsDB(t)
	ctx := context.Background()
	state := syncstate.NewSQLiteRepository(db)
	require.NoError(t, state.SetCatalogVersion(ctx, 3))

	fetcher := &fakeCatalogue{rows: []remote.Row{catalogueRow("f1", models.VoiceObserver)}}
	m := NewCatalogModule(fragments.NewSQLiteRepository(db), fetcher, state, 3, discardLogger())

	res := m.Sync(ctx)
	require.Empty(t, res.Errors)
	assert.Zero(t, res.Pulled)
	assert.Zero(t, fetcher.calls, "no network activity when current")
}

func TestCatalogSync_RefreshesWhenBehind(t *testing.T) {
	db := setupRevealsDB(t)
	ctx := context.Background()
	repo := fragments.NewSQLiteRepository(db)
	state := syncstate.NewSQLiteRepository(db)

	fetcher := &fakeCatalogue{rows: []remote.Row{
		catalogueRow("f1", models.VoiceObserver),
		catalogueRow("f2", models.VoiceWitness),
	}}
	m := NewCatalogModule(repo, fetcher, state, 2, discardLogger())

	res := m.Sync(ctx)
	require.Empty(t, res.Errors)
	assert.Equal(t, 2, res.Pulled)

	cached, err := repo.GetAllCached(ctx)
	require.NoError(t, err)
	assert.Len(t, cached, 2)

	v, err := state.GetCatalogVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	// the next round is a no-op
	res = m.Sync(ctx)
	require.Empty(t, res.Errors)
	assert.Zero(t, res.Pulled)
	assert.Equal(t, 1, fetcher.calls)
}

func TestCatalogSync_EmptyRemoteKeepsLocalCache(t *testing.T) {
	db := setupRevealsDB(t)
	ctx := context.Background()
	repo := fragments.NewSQLiteRepository(db)
	state := syncstate.NewSQLiteRepository(db)

	now := time.Now()
	require.NoError(t, repo.ReplaceCatalogue(ctx, []models.Fragment{
		{ID: "f1", Voice: models.VoiceObserver, Text: "x", Enabled: true, CreatedAt: now, UpdatedAt: now},
	}))

	fetcher := &fakeCatalogue{rows: nil}
	m := NewCatalogModule(repo, fetcher, state, 2, discardLogger())

	res := m.Sync(ctx)
	require.Empty(t, res.Errors)
	assert.Zero(t, res.Pulled)

	cached, err := repo.GetAllCached(ctx)
	require.NoError(t, err)
	assert.Len(t, cached, 1, "an empty remote catalogue must not wipe the cache")

	v, err := state.GetCatalogVersion(ctx)
	require.NoError(t, err)
	assert.Zero(t, v, "version stays behind so a later round can retry")
}

func TestCatalogSync_ForceRefresh(t *testing.T) {
	db := setupRevealsDB(t)
	ctx := context.Background()
	repo := fragments.NewSQLiteRepository(db)
	state := syncstate.NewSQLiteRepository(db)
	require.NoError(t, state.SetCatalogVersion(ctx, 5))

	fetcher := &fakeCatalogue{rows: []remote.Row{catalogueRow("f1", models.VoiceObserver)}}
	m := NewCatalogModule(repo, fetcher, state, 5, discardLogger())

	// current version, so a plain sync does nothing
	res := m.Sync(ctx)
	assert.Zero(t, fetcher.calls)

	require.NoError(t, m.ForceRefresh(ctx))
	res = m.Sync(ctx)
	require.Empty(t, res.Errors)
	assert.Equal(t, 1, res.Pulled)
	assert.Equal(t, 1, fetcher.calls)

	v, err := state.GetCatalogVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, v)
}
