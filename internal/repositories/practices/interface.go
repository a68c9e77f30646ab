package practices

import (
	"context"

	"github.com/margin-app/margin/internal/models"
)

// Repository describes access to the practice catalogue. The catalogue is
// read-only from the user's perspective; Upsert exists for seeding and for
// future catalogue refreshes.
type Repository interface {
	Upsert(ctx context.Context, p *models.Practice) error
	GetByID(ctx context.Context, id string) (*models.Practice, error)
	GetAll(ctx context.Context) ([]models.Practice, error)
	Count(ctx context.Context) (int, error)
}
