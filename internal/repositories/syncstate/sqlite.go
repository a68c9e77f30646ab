package syncstate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/margin-app/margin/internal/dbx"
	"github.com/margin-app/margin/internal/models"
)

const (
	syncTimePrefix     = "last_sync_at:"
	catalogVersionKey  = "fragments_catalog_version"
	firstPracticeAtKey = "first_practice_at"
	dailySwapPrefix    = "daily_swap:"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM sync_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read sync state %q: %w", key, err)
	}
	return value, true, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("failed to write sync state %q: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sync_state WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete sync state %q: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteByPrefix(ctx context.Context, prefix string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sync_state WHERE key LIKE ? || '%'`, prefix)
	if err != nil {
		return fmt.Errorf("failed to delete sync state by prefix %q: %w", prefix, err)
	}
	return nil
}

func (r *SQLiteRepository) GetSyncTime(ctx context.Context, table string) (*time.Time, error) {
	raw, ok, err := r.Get(ctx, syncTimePrefix+table)
	if err != nil || !ok {
		return nil, err
	}
	t, err := models.ParseTime(raw)
	if err != nil {
		return nil, fmt.Errorf("bad sync cursor for %s: %w", table, err)
	}
	return &t, nil
}

func (r *SQLiteRepository) SetSyncTime(ctx context.Context, table string, at time.Time) error {
	return r.Set(ctx, syncTimePrefix+table, models.FormatTime(at))
}

func (r *SQLiteRepository) ClearSyncTime(ctx context.Context, table string) error {
	return r.Delete(ctx, syncTimePrefix+table)
}

func (r *SQLiteRepository) ClearAllSyncTimes(ctx context.Context) error {
	return r.DeleteByPrefix(ctx, syncTimePrefix)
}

func (r *SQLiteRepository) GetCatalogVersion(ctx context.Context) (int, error) {
	raw, ok, err := r.Get(ctx, catalogVersionKey)
	if err != nil || !ok {
		return 0, err
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("bad catalogue version %q: %w", raw, err)
	}
	return v, nil
}

func (r *SQLiteRepository) SetCatalogVersion(ctx context.Context, version int) error {
	return r.Set(ctx, catalogVersionKey, strconv.Itoa(version))
}

func (r *SQLiteRepository) GetFirstPracticeAt(ctx context.Context) (*time.Time, error) {
	raw, ok, err := r.Get(ctx, firstPracticeAtKey)
	if err != nil || !ok {
		return nil, err
	}
	t, err := models.ParseTime(raw)
	if err != nil {
		return nil, fmt.Errorf("bad first practice timestamp: %w", err)
	}
	return &t, nil
}

func (r *SQLiteRepository) SetFirstPracticeAt(ctx context.Context, at time.Time) error {
	return r.Set(ctx, firstPracticeAtKey, models.FormatTime(at))
}

func (r *SQLiteRepository) GetDailySwap(ctx context.Context, date string) (string, error) {
	raw, _, err := r.Get(ctx, dailySwapPrefix+date)
	return raw, err
}

func (r *SQLiteRepository) SetDailySwap(ctx context.Context, date, practiceID string) error {
	return r.Set(ctx, dailySwapPrefix+date, practiceID)
}
