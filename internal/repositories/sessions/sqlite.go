package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/margin-app/margin/internal/dbx"
	"github.com/margin-app/margin/internal/models"
)

// ErrSessionClosed is returned when completing or abandoning a session that
// already left the started state.
var ErrSessionClosed = errors.New("session already closed")

// SQLiteRepository implements Repository using a DBTX.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const sessionColumns = `id, practice_id, started_at, completed_at, status, user_rating, notes, created_at, updated_at, deleted_at`

func scanSession(row interface{ Scan(dest ...any) error }) (*models.PracticeSession, error) {
	var (
		s           models.PracticeSession
		startedAt   string
		completedAt sql.NullString
		rating      sql.NullString
		notes       sql.NullString
		createdAt   string
		updatedAt   string
		deletedAt   sql.NullString
	)
	if err := row.Scan(&s.ID, &s.PracticeID, &startedAt, &completedAt, &s.Status, &rating, &notes, &createdAt, &updatedAt, &deletedAt); err != nil {
		return nil, err
	}

	s.Rating = models.Rating(rating.String)
	s.Notes = notes.String

	var err error
	if s.StartedAt, err = models.ParseTime(startedAt); err != nil {
		return nil, fmt.Errorf("bad started_at for session %s: %w", s.ID, err)
	}
	if completedAt.Valid {
		if s.CompletedAt, err = models.ParseTimePtr(&completedAt.String); err != nil {
			return nil, fmt.Errorf("bad completed_at for session %s: %w", s.ID, err)
		}
	}
	if s.CreatedAt, err = models.ParseTime(createdAt); err != nil {
		return nil, fmt.Errorf("bad created_at for session %s: %w", s.ID, err)
	}
	if s.UpdatedAt, err = models.ParseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("bad updated_at for session %s: %w", s.ID, err)
	}
	if deletedAt.Valid {
		if s.DeletedAt, err = models.ParseTimePtr(&deletedAt.String); err != nil {
			return nil, fmt.Errorf("bad deleted_at for session %s: %w", s.ID, err)
		}
	}

	return &s, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Start inserts a new session in the started state.
func (r *SQLiteRepository) Start(ctx context.Context, practiceID string) (*models.PracticeSession, error) {
	now := time.Now()
	s := &models.PracticeSession{
		ID:         uuid.NewString(),
		PracticeID: practiceID,
		StartedAt:  now,
		Status:     models.SessionStarted,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO practice_sessions (id, practice_id, started_at, completed_at, status, user_rating, notes, created_at, updated_at, deleted_at)
		VALUES (?, ?, ?, NULL, ?, NULL, NULL, ?, ?, NULL)`,
		s.ID, s.PracticeID, models.FormatTime(s.StartedAt), string(s.Status),
		models.FormatTime(s.CreatedAt), models.FormatTime(s.UpdatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}
	return s, nil
}

// Complete moves a started session to completed, setting completed_at.
func (r *SQLiteRepository) Complete(ctx context.Context, id string, rating models.Rating, notes string) error {
	now := models.FormatTime(time.Now())
	res, err := r.db.ExecContext(ctx, `
		UPDATE practice_sessions
		SET status = ?, completed_at = ?, user_rating = ?, notes = ?, updated_at = ?
		WHERE id = ? AND status = ? AND deleted_at IS NULL`,
		string(models.SessionCompleted), now, nullable(string(rating)), nullable(notes), now,
		id, string(models.SessionStarted),
	)
	if err != nil {
		return fmt.Errorf("failed to complete session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrSessionClosed
	}
	return nil
}

// Abandon moves a started session to abandoned. completed_at stays NULL.
func (r *SQLiteRepository) Abandon(ctx context.Context, id string) error {
	now := models.FormatTime(time.Now())
	res, err := r.db.ExecContext(ctx, `
		UPDATE practice_sessions
		SET status = ?, updated_at = ?
		WHERE id = ? AND status = ? AND deleted_at IS NULL`,
		string(models.SessionAbandoned), now, id, string(models.SessionStarted),
	)
	if err != nil {
		return fmt.Errorf("failed to abandon session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrSessionClosed
	}
	return nil
}

// GetByID returns a live session, or nil when absent or soft-deleted.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.PracticeSession, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM practice_sessions WHERE id = ? AND deleted_at IS NULL`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

// GetAll lists live sessions, newest first.
func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.PracticeSession, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM practice_sessions WHERE deleted_at IS NULL ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to select sessions: %w", err)
	}
	defer rows.Close()

	var result []models.PracticeSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
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
		`UPDATE practice_sessions SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		now, now, id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("session %s not found", id)
	}
	return nil
}

// CountCompleted returns the lifetime number of completed sessions.
func (r *SQLiteRepository) CountCompleted(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM practice_sessions WHERE status = ? AND deleted_at IS NULL`,
		string(models.SessionCompleted),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count completed sessions: %w", err)
	}
	return n, nil
}

// FirstCompletedStart returns the started_at of the earliest completed session.
func (r *SQLiteRepository) FirstCompletedStart(ctx context.Context) (*time.Time, error) {
	var startedAt string
	err := r.db.QueryRowContext(ctx, `
		SELECT started_at FROM practice_sessions
		WHERE status = ? AND deleted_at IS NULL
		ORDER BY started_at ASC LIMIT 1`,
		string(models.SessionCompleted),
	).Scan(&startedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find first completed session: %w", err)
	}
	t, err := models.ParseTime(startedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetAny returns the row regardless of soft deletion, or nil when absent.
func (r *SQLiteRepository) GetAny(ctx context.Context, id string) (*models.PracticeSession, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM practice_sessions WHERE id = ?`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

// ChangedSince implements the push-side query of the sync protocol.
func (r *SQLiteRepository) ChangedSince(ctx context.Context, since *time.Time, limit int) ([]models.PracticeSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM practice_sessions`
	params := []any{}
	if since != nil {
		query += ` WHERE updated_at > ?`
		params = append(params, models.FormatTime(*since))
	}
	query += ` ORDER BY updated_at ASC LIMIT ?`
	params = append(params, limit)

	rows, err := r.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to select changed sessions: %w", err)
	}
	defer rows.Close()

	var result []models.PracticeSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// UpsertFromRemote writes a remote row verbatim, overwriting local state.
func (r *SQLiteRepository) UpsertFromRemote(ctx context.Context, s *models.PracticeSession) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO practice_sessions (id, practice_id, started_at, completed_at, status, user_rating, notes, created_at, updated_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			practice_id = excluded.practice_id,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at,
			status = excluded.status,
			user_rating = excluded.user_rating,
			notes = excluded.notes,
			updated_at = excluded.updated_at,
			deleted_at = excluded.deleted_at`,
		s.ID, s.PracticeID, models.FormatTime(s.StartedAt), models.FormatTimePtr(s.CompletedAt),
		string(s.Status), nullable(string(s.Rating)), nullable(s.Notes),
		models.FormatTime(s.CreatedAt), models.FormatTime(s.UpdatedAt), models.FormatTimePtr(s.DeletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}
	return nil
}
