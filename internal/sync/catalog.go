package sync

import (
	"context"
	"fmt"

	"github.com/margin-app/margin/internal/logging"
	"github.com/margin-app/margin/internal/models"
	"github.com/margin-app/margin/internal/remote"
	"github.com/margin-app/margin/internal/repositories/fragments"
	"github.com/margin-app/margin/internal/repositories/syncstate"
)

// CatalogueFetcher retrieves the complete enabled fragment catalogue.
type CatalogueFetcher interface {
	SelectCatalogue(ctx context.Context) ([]remote.Row, error)
}

// CatalogModule refreshes the local fragment catalogue cache. Read-only:
// there is no push path. The module only hits the network when the stored
// catalogue version is behind the reference version.
type CatalogModule struct {
	repo             fragments.Repository
	fetcher          CatalogueFetcher
	state            syncstate.Repository
	referenceVersion int
	logger           logging.Logger
}

func NewCatalogModule(repo fragments.Repository, fetcher CatalogueFetcher, state syncstate.Repository, referenceVersion int, logger logging.Logger) *CatalogModule {
	return &CatalogModule{
		repo:             repo,
		fetcher:          fetcher,
		state:            state,
		referenceVersion: referenceVersion,
		logger:           logger,
	}
}

// ForceRefresh resets the stored version so the next Sync refetches the
// catalogue regardless of version comparison.
func (m *CatalogModule) ForceRefresh(ctx context.Context) error {
	return m.state.SetCatalogVersion(ctx, 0)
}

func (m *CatalogModule) Sync(ctx context.Context) SyncResult {
	result := SyncResult{Table: TableCatalog}

	current, err := m.state.GetCatalogVersion(ctx)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("read version: %v", err))
		return result
	}
	if current >= m.referenceVersion {
		m.logger.Debug(ctx, "catalogue cache is current", "version", current)
		return result
	}

	rows, err := m.fetcher.SelectCatalogue(ctx)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("fetch catalogue: %v", err))
		return result
	}
	if len(rows) == 0 {
		// an empty remote catalogue is suspect, keep the local cache
		m.logger.Warn(ctx, "remote catalogue empty, keeping local cache")
		return result
	}

	catalogue := make([]models.Fragment, 0, len(rows))
	for _, row := range rows {
		f, err := rowToFragment(row)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("catalogue row: %v", err))
			continue
		}
		catalogue = append(catalogue, *f)
	}
	if len(result.Errors) > 0 {
		return result
	}

	if err := m.repo.ReplaceCatalogue(ctx, catalogue); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("replace catalogue: %v", err))
		return result
	}
	if err := m.state.SetCatalogVersion(ctx, m.referenceVersion); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("store version: %v", err))
		return result
	}

	result.Pulled = len(catalogue)
	m.logger.Info(ctx, "catalogue refreshed",
		"fragments", len(catalogue), "version", m.referenceVersion)
	return result
}

func rowToFragment(row remote.Row) (*models.Fragment, error) {
	id := row.String("id")
	if id == "" {
		return nil, fmt.Errorf("fragment row missing id")
	}
	createdAt := row.Time("created_at")
	updatedAt := row.Time("updated_at")
	if createdAt == nil || updatedAt == nil {
		return nil, fmt.Errorf("fragment row %s missing timestamps", id)
	}
	return &models.Fragment{
		ID:        id,
		Voice:     models.Voice(row.String("voice")),
		Text:      row.String("text"),
		Enabled:   row.Bool("enabled"),
		CreatedAt: *createdAt,
		UpdatedAt: *updatedAt,
	}, nil
}
