package entries

import (
	"context"
	"time"

	"github.com/margin-app/margin/internal/models"
)

// CreateInput carries the user-supplied fields for a new meaning entry.
type CreateInput struct {
	Category  models.Category
	Text      string
	Tags      []string
	TimeOfDay models.TimeOfDay // derived from the clock when empty
}

// UpdateInput carries optional field updates; nil means "leave unchanged".
type UpdateInput struct {
	Category *models.Category
	Text     *string
	Tags     *[]string
}

// Repository describes CRUD and sync-support operations for meaning entries.
//
// Read operations exclude soft-deleted rows; deletion sets deleted_at so the
// tombstone can propagate during sync. The sync module uses GetAny /
// ChangedSince / UpsertFromRemote, which see tombstones too.
type Repository interface {
	Create(ctx context.Context, input CreateInput) (*models.MeaningEntry, error)
	Update(ctx context.Context, id string, input UpdateInput) error
	GetByID(ctx context.Context, id string) (*models.MeaningEntry, error)
	GetAll(ctx context.Context) ([]models.MeaningEntry, error)
	SoftDelete(ctx context.Context, id string) error

	// GetAny returns the row regardless of soft deletion, or nil when absent.
	GetAny(ctx context.Context, id string) (*models.MeaningEntry, error)

	// ChangedSince returns rows (tombstones included) with updated_at
	// strictly greater than since, ordered ascending, at most limit rows.
	// A nil since means "everything".
	ChangedSince(ctx context.Context, since *time.Time, limit int) ([]models.MeaningEntry, error)

	// UpsertFromRemote writes a remote row verbatim, overwriting any local
	// state. Used by the pull side of sync; idempotent.
	UpsertFromRemote(ctx context.Context, e *models.MeaningEntry) error
}
