package entries

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/margin-app/margin/internal/dbx"
	"github.com/margin-app/margin/internal/models"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const entryColumns = `id, category, text, tags, time_of_day, created_at, updated_at, deleted_at`

func scanEntry(row interface{ Scan(dest ...any) error }) (*models.MeaningEntry, error) {
	var (
		e         models.MeaningEntry
		text      sql.NullString
		tagsJSON  string
		timeOfDay sql.NullString
		createdAt string
		updatedAt string
		deletedAt sql.NullString
	)
	if err := row.Scan(&e.ID, &e.Category, &text, &tagsJSON, &timeOfDay, &createdAt, &updatedAt, &deletedAt); err != nil {
		return nil, err
	}

	e.Text = text.String
	e.TimeOfDay = models.TimeOfDay(timeOfDay.String)

	// Invalid tag payloads are treated as no tags, never as an error.
	var tags []string
	if err := json.Unmarshal([]byte(tagsJSON), &tags); err == nil {
		for _, tag := range tags {
			if strings.TrimSpace(tag) != "" {
				e.Tags = append(e.Tags, tag)
			}
		}
	}

	var err error
	if e.CreatedAt, err = models.ParseTime(createdAt); err != nil {
		return nil, fmt.Errorf("bad created_at for entry %s: %w", e.ID, err)
	}
	if e.UpdatedAt, err = models.ParseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("bad updated_at for entry %s: %w", e.ID, err)
	}
	if deletedAt.Valid {
		if e.DeletedAt, err = models.ParseTimePtr(&deletedAt.String); err != nil {
			return nil, fmt.Errorf("bad deleted_at for entry %s: %w", e.ID, err)
		}
	}

	return &e, nil
}

func encodeTags(tags []string) string {
	if tags == nil {
		tags = []string{}
	}
	b, _ := json.Marshal(tags)
	return string(b)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Create inserts a new entry with a fresh id and current timestamps.
func (r *SQLiteRepository) Create(ctx context.Context, input CreateInput) (*models.MeaningEntry, error) {
	if !input.Category.Valid() {
		return nil, fmt.Errorf("unknown category %q", input.Category)
	}

	now := time.Now()
	tod := input.TimeOfDay
	if tod == "" {
		tod = models.TimeOfDayForHour(now.Hour())
	}

	e := &models.MeaningEntry{
		ID:        uuid.NewString(),
		Category:  input.Category,
		Text:      input.Text,
		Tags:      input.Tags,
		TimeOfDay: tod,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO meaning_entries (id, category, text, tags, time_of_day, created_at, updated_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, NULL)`,
		e.ID, string(e.Category), nullable(e.Text), encodeTags(e.Tags), string(e.TimeOfDay),
		models.FormatTime(e.CreatedAt), models.FormatTime(e.UpdatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert entry: %w", err)
	}
	return e, nil
}

// Update modifies the given fields of a live entry and bumps updated_at.
func (r *SQLiteRepository) Update(ctx context.Context, id string, input UpdateInput) error {
	sets := []string{"updated_at = ?"}
	params := []any{models.FormatTime(time.Now())}

	if input.Category != nil {
		if !input.Category.Valid() {
			return fmt.Errorf("unknown category %q", *input.Category)
		}
		sets = append(sets, "category = ?")
		params = append(params, string(*input.Category))
	}
	if input.Text != nil {
		sets = append(sets, "text = ?")
		params = append(params, nullable(*input.Text))
	}
	if input.Tags != nil {
		sets = append(sets, "tags = ?")
		params = append(params, encodeTags(*input.Tags))
	}
	params = append(params, id)

	res, err := r.db.ExecContext(ctx,
		`UPDATE meaning_entries SET `+strings.Join(sets, ", ")+` WHERE id = ? AND deleted_at IS NULL`,
		params...,
	)
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("entry %s not found", id)
	}
	return nil
}

// GetByID returns a live entry by id, or nil when absent or soft-deleted.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.MeaningEntry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM meaning_entries WHERE id = ? AND deleted_at IS NULL`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	return e, nil
}

// GetAll lists live entries, newest first.
func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.MeaningEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM meaning_entries WHERE deleted_at IS NULL ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to select entries: %w", err)
	}
	defer rows.Close()

	var result []models.MeaningEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// SoftDelete sets deleted_at (and updated_at, so the tombstone syncs).
func (r *SQLiteRepository) SoftDelete(ctx context.Context, id string) error {
	now := models.FormatTime(time.Now())
	res, err := r.db.ExecContext(ctx,
		`UPDATE meaning_entries SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		now, now, id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("entry %s not found", id)
	}
	return nil
}

// GetAny returns the row regardless of soft deletion, or nil when absent.
func (r *SQLiteRepository) GetAny(ctx context.Context, id string) (*models.MeaningEntry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM meaning_entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	return e, nil
}

// ChangedSince implements the push-side query of the sync protocol.
func (r *SQLiteRepository) ChangedSince(ctx context.Context, since *time.Time, limit int) ([]models.MeaningEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM meaning_entries`
	params := []any{}
	if since != nil {
		query += ` WHERE updated_at > ?`
		params = append(params, models.FormatTime(*since))
	}
	query += ` ORDER BY updated_at ASC LIMIT ?`
	params = append(params, limit)

	rows, err := r.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to select changed entries: %w", err)
	}
	defer rows.Close()

	var result []models.MeaningEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// UpsertFromRemote writes a remote row verbatim; created_at is kept from the
// first write, everything else follows the remote copy.
func (r *SQLiteRepository) UpsertFromRemote(ctx context.Context, e *models.MeaningEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO meaning_entries (id, category, text, tags, time_of_day, created_at, updated_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			category = excluded.category,
			text = excluded.text,
			tags = excluded.tags,
			time_of_day = excluded.time_of_day,
			updated_at = excluded.updated_at,
			deleted_at = excluded.deleted_at`,
		e.ID, string(e.Category), nullable(e.Text), encodeTags(e.Tags), string(e.TimeOfDay),
		models.FormatTime(e.CreatedAt), models.FormatTime(e.UpdatedAt), models.FormatTimePtr(e.DeletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert entry: %w", err)
	}
	return nil
}
