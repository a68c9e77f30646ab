package services

import (
	"context"
	"fmt"

	"github.com/margin-app/margin/internal/logging"
	"github.com/margin-app/margin/internal/mapstats"
	"github.com/margin-app/margin/internal/models"
	"github.com/margin-app/margin/internal/repositories/entries"
)

// EntryService wraps the entries repository with validation and the
// derived map views.
type EntryService struct {
	repo   entries.Repository
	logger logging.Logger
}

func NewEntryService(repo entries.Repository, logger logging.Logger) *EntryService {
	return &EntryService{repo: repo, logger: logger}
}

func (s *EntryService) Log(ctx context.Context, category models.Category, text string, tags []string) (*models.MeaningEntry, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("unknown category %q", category)
	}
	e, err := s.repo.Create(ctx, entries.CreateInput{
		Category: category,
		Text:     text,
		Tags:     tags,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug(ctx, "entry logged", "id", e.ID, "category", string(category))
	return e, nil
}

func (s *EntryService) Update(ctx context.Context, id string, input entries.UpdateInput) error {
	if input.Category != nil && !input.Category.Valid() {
		return fmt.Errorf("unknown category %q", *input.Category)
	}
	return s.repo.Update(ctx, id, input)
}

func (s *EntryService) List(ctx context.Context) ([]models.MeaningEntry, error) {
	return s.repo.GetAll(ctx)
}

func (s *EntryService) Delete(ctx context.Context, id string) error {
	return s.repo.SoftDelete(ctx, id)
}

// Stats computes the aggregate map view over all live entries.
func (s *EntryService) Stats(ctx context.Context) (*mapstats.MapStats, error) {
	all, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	stats := mapstats.ComputeMapStats(all, 0)
	return &stats, nil
}

// Clusters computes tag clusters over all live entries with default tuning.
func (s *EntryService) Clusters(ctx context.Context) ([]mapstats.TagCluster, error) {
	all, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return mapstats.ClusterTags(all, mapstats.ClusterOptions{}), nil
}
