package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/margin-app/margin/internal/logging"
	"github.com/margin-app/margin/internal/models"
	"github.com/margin-app/margin/internal/remote"
	"github.com/margin-app/margin/internal/repositories/entries"
	"github.com/margin-app/margin/internal/repositories/syncstate"
)

// NewEntriesModule syncs meaning entries bi-directionally with
// last-write-wins conflict resolution.
func NewEntriesModule(repo entries.Repository, store remote.Store, auth remote.Auth, state syncstate.Repository, batchSize int, logger logging.Logger) Module {
	return newLWWModule(&entriesAdapter{repo: repo}, store, auth, state, batchSize, logger)
}

type entriesAdapter struct {
	repo entries.Repository
}

func (a *entriesAdapter) Table() string { return TableEntries }

func (a *entriesAdapter) LocalUpdatedAt(ctx context.Context, id string) (time.Time, bool, error) {
	e, err := a.repo.GetAny(ctx, id)
	if err != nil {
		return time.Time{}, false, err
	}
	if e == nil {
		return time.Time{}, false, nil
	}
	return e.UpdatedAt, true, nil
}

func (a *entriesAdapter) ApplyRemote(ctx context.Context, _ string, row remote.Row) error {
	e, err := rowToEntry(row)
	if err != nil {
		return err
	}
	return a.repo.UpsertFromRemote(ctx, e)
}

func (a *entriesAdapter) LocalChangedSince(ctx context.Context, userID string, since *time.Time, limit int) ([]localRow, error) {
	changed, err := a.repo.ChangedSince(ctx, since, limit)
	if err != nil {
		return nil, err
	}
	rows := make([]localRow, 0, len(changed))
	for _, e := range changed {
		rows = append(rows, localRow{
			ID:        e.ID,
			UpdatedAt: e.UpdatedAt,
			Row:       entryToRow(&e, userID),
		})
	}
	return rows, nil
}

func entryToRow(e *models.MeaningEntry, userID string) remote.Row {
	tags := make([]any, len(e.Tags))
	for i, t := range e.Tags {
		tags[i] = t
	}
	row := remote.Row{
		"id":          e.ID,
		"user_id":     userID,
		"category":    string(e.Category),
		"text":        e.Text,
		"tags":        tags,
		"time_of_day": string(e.TimeOfDay),
		"created_at":  models.FormatTime(e.CreatedAt),
		"updated_at":  models.FormatTime(e.UpdatedAt),
		"deleted_at":  nil,
	}
	if e.DeletedAt != nil {
		row["deleted_at"] = models.FormatTime(*e.DeletedAt)
	}
	return row
}

func rowToEntry(row remote.Row) (*models.MeaningEntry, error) {
	id := row.String("id")
	if id == "" {
		return nil, fmt.Errorf("remote entry row missing id")
	}
	createdAt := row.Time("created_at")
	updatedAt := row.Time("updated_at")
	if createdAt == nil || updatedAt == nil {
		return nil, fmt.Errorf("remote entry row %s missing timestamps", id)
	}

	var tags []string
	if raw, ok := row["tags"].([]any); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok {
				tags = append(tags, s)
			}
		}
	}

	return &models.MeaningEntry{
		ID:        id,
		Category:  models.Category(row.String("category")),
		Text:      row.String("text"),
		Tags:      tags,
		TimeOfDay: models.TimeOfDay(row.String("time_of_day")),
		CreatedAt: *createdAt,
		UpdatedAt: *updatedAt,
		DeletedAt: row.Time("deleted_at"),
	}, nil
}
