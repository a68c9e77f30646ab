package practices

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/margin-app/margin/internal/dbx"
	"github.com/margin-app/margin/internal/models"
)

// SQLiteRepository implements Repository using a DBTX.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const practiceColumns = `id, title, instruction, mode, difficulty, duration_seconds, contra_notes, created_at, updated_at`

func scanPractice(row interface{ Scan(dest ...any) error }) (*models.Practice, error) {
	var (
		p         models.Practice
		createdAt string
		updatedAt string
	)
	if err := row.Scan(&p.ID, &p.Title, &p.Instruction, &p.Mode, &p.Difficulty, &p.DurationSeconds, &p.ContraNotes, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if p.CreatedAt, err = models.ParseTime(createdAt); err != nil {
		return nil, fmt.Errorf("bad created_at for practice %s: %w", p.ID, err)
	}
	if p.UpdatedAt, err = models.ParseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("bad updated_at for practice %s: %w", p.ID, err)
	}
	return &p, nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, p *models.Practice) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO practices (id, title, instruction, mode, difficulty, duration_seconds, contra_notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			instruction = excluded.instruction,
			mode = excluded.mode,
			difficulty = excluded.difficulty,
			duration_seconds = excluded.duration_seconds,
			contra_notes = excluded.contra_notes,
			updated_at = excluded.updated_at`,
		p.ID, p.Title, p.Instruction, string(p.Mode), p.Difficulty, p.DurationSeconds, p.ContraNotes,
		models.FormatTime(p.CreatedAt), models.FormatTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert practice: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Practice, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+practiceColumns+` FROM practices WHERE id = ?`, id)
	p, err := scanPractice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get practice: %w", err)
	}
	return p, nil
}

// GetAll lists the catalogue ordered by id. The daily selector indexes into
// this list, so the ordering must be stable.
func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.Practice, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+practiceColumns+` FROM practices ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select practices: %w", err)
	}
	defer rows.Close()

	var result []models.Practice
	for rows.Next() {
		p, err := scanPractice(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM practices`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count practices: %w", err)
	}
	return n, nil
}
