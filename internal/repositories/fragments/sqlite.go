package fragments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/margin-app/margin/internal/dbx"
	"github.com/margin-app/margin/internal/models"
)

// SQLiteRepository implements Repository. It holds a *sql.DB (not a DBTX)
// because ReplaceCatalogue runs inside its own transaction.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const fragmentColumns = `id, voice, text, enabled, created_at, updated_at`

func scanFragment(row interface{ Scan(dest ...any) error }) (*models.Fragment, error) {
	var (
		f         models.Fragment
		enabled   int
		createdAt string
		updatedAt string
	)
	if err := row.Scan(&f.ID, &f.Voice, &f.Text, &enabled, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	f.Enabled = enabled == 1

	var err error
	if f.CreatedAt, err = models.ParseTime(createdAt); err != nil {
		return nil, fmt.Errorf("bad created_at for fragment %s: %w", f.ID, err)
	}
	if f.UpdatedAt, err = models.ParseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("bad updated_at for fragment %s: %w", f.ID, err)
	}
	return &f, nil
}

func scanReveal(row interface{ Scan(dest ...any) error }) (*models.FragmentReveal, error) {
	var (
		rv         models.FragmentReveal
		revealedAt string
		createdAt  string
		synced     int
	)
	if err := row.Scan(&rv.ID, &rv.FragmentID, &revealedAt, &createdAt, &synced); err != nil {
		return nil, err
	}
	rv.Synced = synced == 1

	var err error
	if rv.RevealedAt, err = models.ParseTime(revealedAt); err != nil {
		return nil, fmt.Errorf("bad revealed_at for reveal %s: %w", rv.ID, err)
	}
	if rv.CreatedAt, err = models.ParseTime(createdAt); err != nil {
		return nil, fmt.Errorf("bad created_at for reveal %s: %w", rv.ID, err)
	}
	return &rv, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ReplaceCatalogue clears and rewrites the whole cache in one transaction.
func (r *SQLiteRepository) ReplaceCatalogue(ctx context.Context, fragments []models.Fragment) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM fragments_catalog_cache`); err != nil {
			return fmt.Errorf("failed to clear catalogue cache: %w", err)
		}
		for _, f := range fragments {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO fragments_catalog_cache (id, voice, text, enabled, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?)`,
				f.ID, string(f.Voice), f.Text, boolToInt(f.Enabled),
				models.FormatTime(f.CreatedAt), models.FormatTime(f.UpdatedAt),
			)
			if err != nil {
				return fmt.Errorf("failed to insert fragment %s: %w", f.ID, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) HasCachedCatalogue(ctx context.Context) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fragments_catalog_cache`).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to count catalogue cache: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) GetAllCached(ctx context.Context) ([]models.Fragment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+fragmentColumns+` FROM fragments_catalog_cache ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select fragments: %w", err)
	}
	defer rows.Close()

	var result []models.Fragment
	for rows.Next() {
		f, err := scanFragment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Fragment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+fragmentColumns+` FROM fragments_catalog_cache WHERE id = ?`, id)
	f, err := scanFragment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fragment: %w", err)
	}
	return f, nil
}

func (r *SQLiteRepository) GetByVoice(ctx context.Context, voice models.Voice) ([]models.Fragment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+fragmentColumns+` FROM fragments_catalog_cache WHERE voice = ? AND enabled = 1 ORDER BY id`,
		string(voice))
	if err != nil {
		return nil, fmt.Errorf("failed to select fragments by voice: %w", err)
	}
	defer rows.Close()

	var result []models.Fragment
	for rows.Next() {
		f, err := scanFragment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// InsertReveal records that a fragment was shown. The UNIQUE constraint on
// fragment_id backs the at-most-once invariant.
func (r *SQLiteRepository) InsertReveal(ctx context.Context, fragmentID string, revealedAt time.Time) (*models.FragmentReveal, error) {
	rv := &models.FragmentReveal{
		ID:         uuid.NewString(),
		FragmentID: fragmentID,
		RevealedAt: revealedAt,
		CreatedAt:  time.Now(),
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO fragment_reveals_local (id, fragment_id, revealed_at, created_at, synced)
		VALUES (?, ?, ?, ?, 0)`,
		rv.ID, rv.FragmentID, models.FormatTime(rv.RevealedAt), models.FormatTime(rv.CreatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, ErrAlreadyRevealed
		}
		return nil, fmt.Errorf("failed to insert reveal: %w", err)
	}
	return rv, nil
}

func (r *SQLiteRepository) GetAllReveals(ctx context.Context) ([]models.FragmentReveal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, fragment_id, revealed_at, created_at, synced FROM fragment_reveals_local ORDER BY revealed_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to select reveals: %w", err)
	}
	defer rows.Close()

	var result []models.FragmentReveal
	for rows.Next() {
		rv, err := scanReveal(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) GetLastReveal(ctx context.Context) (*models.FragmentReveal, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, fragment_id, revealed_at, created_at, synced FROM fragment_reveals_local ORDER BY revealed_at DESC LIMIT 1`)
	rv, err := scanReveal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last reveal: %w", err)
	}
	return rv, nil
}

func (r *SQLiteRepository) CountRevealsSince(ctx context.Context, cutoff time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM fragment_reveals_local WHERE revealed_at >= ?`,
		models.FormatTime(cutoff),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count reveals: %w", err)
	}
	return n, nil
}

// UnrevealedCountsByVoice counts enabled fragments never revealed, per voice.
func (r *SQLiteRepository) UnrevealedCountsByVoice(ctx context.Context) (map[models.Voice]int, error) {
	counts := make(map[models.Voice]int, len(models.Voices))
	for _, v := range models.Voices {
		counts[v] = 0
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT f.voice, COUNT(*)
		FROM fragments_catalog_cache f
		LEFT JOIN fragment_reveals_local rv ON rv.fragment_id = f.id
		WHERE f.enabled = 1 AND rv.id IS NULL
		GROUP BY f.voice`)
	if err != nil {
		return nil, fmt.Errorf("failed to count unrevealed fragments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var voice string
		var n int
		if err := rows.Scan(&voice, &n); err != nil {
			return nil, err
		}
		counts[models.Voice(voice)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

// RandomUnrevealedByVoice picks with the supplied draw so callers control the
// randomness (and tests stay deterministic).
func (r *SQLiteRepository) RandomUnrevealedByVoice(ctx context.Context, voice models.Voice, draw float64) (*models.Fragment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+fragmentColumns+`
		FROM fragments_catalog_cache f
		WHERE f.voice = ? AND f.enabled = 1
		  AND NOT EXISTS (SELECT 1 FROM fragment_reveals_local rv WHERE rv.fragment_id = f.id)
		ORDER BY f.id`,
		string(voice))
	if err != nil {
		return nil, fmt.Errorf("failed to select unrevealed fragments: %w", err)
	}
	defer rows.Close()

	var candidates []models.Fragment
	for rows.Next() {
		f, err := scanFragment(rows)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(candidates) == 0 {
		return nil, nil
	}
	if draw < 0 {
		draw = 0
	}
	idx := int(draw * float64(len(candidates)))
	if idx >= len(candidates) {
		idx = len(candidates) - 1
	}
	return &candidates[idx], nil
}

func (r *SQLiteRepository) GetUnsyncedReveals(ctx context.Context) ([]models.FragmentReveal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, fragment_id, revealed_at, created_at, synced FROM fragment_reveals_local WHERE synced = 0 ORDER BY revealed_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to select unsynced reveals: %w", err)
	}
	defer rows.Close()

	var result []models.FragmentReveal
	for rows.Next() {
		rv, err := scanReveal(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) MarkRevealsSynced(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.Repeat("?,", len(ids)-1) + "?"
	params := make([]any, len(ids))
	for i, id := range ids {
		params[i] = id
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE fragment_reveals_local SET synced = 1 WHERE id IN (`+placeholders+`)`, params...)
	if err != nil {
		return fmt.Errorf("failed to mark reveals synced: %w", err)
	}
	return nil
}

// MergeRemoteReveals skips fragment ids already revealed locally; merged rows
// arrive already synced.
func (r *SQLiteRepository) MergeRemoteReveals(ctx context.Context, reveals []RemoteReveal) (int, error) {
	merged := 0
	for _, rr := range reveals {
		res, err := r.db.ExecContext(ctx, `
			INSERT INTO fragment_reveals_local (id, fragment_id, revealed_at, created_at, synced)
			VALUES (?, ?, ?, ?, 1)
			ON CONFLICT(fragment_id) DO NOTHING`,
			uuid.NewString(), rr.FragmentID, models.FormatTime(rr.RevealedAt), models.FormatTime(time.Now()),
		)
		if err != nil {
			return merged, fmt.Errorf("failed to merge reveal for %s: %w", rr.FragmentID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			merged++
		}
	}
	return merged, nil
}
