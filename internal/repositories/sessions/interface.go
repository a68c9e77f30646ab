package sessions

import (
	"context"
	"time"

	"github.com/margin-app/margin/internal/models"
)

// Repository describes operations for practice sessions.
//
// The status machine is enforced here: a session starts as "started" and can
// move exactly once, to "completed" or "abandoned". completed_at is set iff
// the session completed. Read operations exclude soft-deleted rows.
type Repository interface {
	Start(ctx context.Context, practiceID string) (*models.PracticeSession, error)
	Complete(ctx context.Context, id string, rating models.Rating, notes string) error
	Abandon(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*models.PracticeSession, error)
	GetAll(ctx context.Context) ([]models.PracticeSession, error)
	SoftDelete(ctx context.Context, id string) error

	// CountCompleted returns the lifetime number of completed sessions.
	CountCompleted(ctx context.Context) (int, error)

	// FirstCompletedStart returns the started_at of the earliest completed
	// session, or nil when none exist.
	FirstCompletedStart(ctx context.Context) (*time.Time, error)

	// Sync support; see the entries repository for semantics.
	GetAny(ctx context.Context, id string) (*models.PracticeSession, error)
	ChangedSince(ctx context.Context, since *time.Time, limit int) ([]models.PracticeSession, error)
	UpsertFromRemote(ctx context.Context, s *models.PracticeSession) error
}
