package syncstate

import (
	"context"
	"time"
)

// Repository is a small key/value store over the sync_state table. Sync
// cursors, the cached catalogue version, and other durable bits of client
// state all live here.
type Repository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error

	// Per-table sync cursors, stored under "last_sync_at:<table>".
	GetSyncTime(ctx context.Context, table string) (*time.Time, error)
	SetSyncTime(ctx context.Context, table string, at time.Time) error
	ClearSyncTime(ctx context.Context, table string) error
	ClearAllSyncTimes(ctx context.Context) error

	// Cached fragments catalogue version, zero when never synced.
	GetCatalogVersion(ctx context.Context) (int, error)
	SetCatalogVersion(ctx context.Context, version int) error

	// Start of the user's first completed practice, nil when unknown.
	GetFirstPracticeAt(ctx context.Context) (*time.Time, error)
	SetFirstPracticeAt(ctx context.Context, at time.Time) error

	// Persisted practice swap for a calendar date, empty when none.
	GetDailySwap(ctx context.Context, date string) (string, error)
	SetDailySwap(ctx context.Context, date, practiceID string) error
}
