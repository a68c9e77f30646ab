package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/margin-app/margin/internal/logging"
	"github.com/margin-app/margin/internal/models"
	"github.com/margin-app/margin/internal/remote"
	"github.com/margin-app/margin/internal/repositories/sessions"
	"github.com/margin-app/margin/internal/repositories/syncstate"
)

// NewSessionsModule syncs practice sessions bi-directionally with
// last-write-wins conflict resolution.
func NewSessionsModule(repo sessions.Repository, store remote.Store, auth remote.Auth, state syncstate.Repository, batchSize int, logger logging.Logger) Module {
	return newLWWModule(&sessionsAdapter{repo: repo}, store, auth, state, batchSize, logger)
}

type sessionsAdapter struct {
	repo sessions.Repository
}

func (a *sessionsAdapter) Table() string { return TableSessions }

func (a *sessionsAdapter) LocalUpdatedAt(ctx context.Context, id string) (time.Time, bool, error) {
	s, err := a.repo.GetAny(ctx, id)
	if err != nil {
		return time.Time{}, false, err
	}
	if s == nil {
		return time.Time{}, false, nil
	}
	return s.UpdatedAt, true, nil
}

func (a *sessionsAdapter) ApplyRemote(ctx context.Context, _ string, row remote.Row) error {
	s, err := rowToSession(row)
	if err != nil {
		return err
	}
	return a.repo.UpsertFromRemote(ctx, s)
}

func (a *sessionsAdapter) LocalChangedSince(ctx context.Context, userID string, since *time.Time, limit int) ([]localRow, error) {
	changed, err := a.repo.ChangedSince(ctx, since, limit)
	if err != nil {
		return nil, err
	}
	rows := make([]localRow, 0, len(changed))
	for _, s := range changed {
		rows = append(rows, localRow{
			ID:        s.ID,
			UpdatedAt: s.UpdatedAt,
			Row:       sessionToRow(&s, userID),
		})
	}
	return rows, nil
}

func sessionToRow(s *models.PracticeSession, userID string) remote.Row {
	row := remote.Row{
		"id":           s.ID,
		"user_id":      userID,
		"practice_id":  s.PracticeID,
		"started_at":   models.FormatTime(s.StartedAt),
		"completed_at": nil,
		"status":       string(s.Status),
		"user_rating":  nil,
		"notes":        s.Notes,
		"created_at":   models.FormatTime(s.CreatedAt),
		"updated_at":   models.FormatTime(s.UpdatedAt),
		"deleted_at":   nil,
	}
	if s.CompletedAt != nil {
		row["completed_at"] = models.FormatTime(*s.CompletedAt)
	}
	if s.Rating != "" {
		row["user_rating"] = string(s.Rating)
	}
	if s.DeletedAt != nil {
		row["deleted_at"] = models.FormatTime(*s.DeletedAt)
	}
	return row
}

func rowToSession(row remote.Row) (*models.PracticeSession, error) {
	id := row.String("id")
	if id == "" {
		return nil, fmt.Errorf("remote session row missing id")
	}
	startedAt := row.Time("started_at")
	createdAt := row.Time("created_at")
	updatedAt := row.Time("updated_at")
	if startedAt == nil || createdAt == nil || updatedAt == nil {
		return nil, fmt.Errorf("remote session row %s missing timestamps", id)
	}

	return &models.PracticeSession{
		ID:          id,
		PracticeID:  row.String("practice_id"),
		StartedAt:   *startedAt,
		CompletedAt: row.Time("completed_at"),
		Status:      models.SessionStatus(row.String("status")),
		Rating:      models.Rating(row.String("user_rating")),
		Notes:       row.String("notes"),
		CreatedAt:   *createdAt,
		UpdatedAt:   *updatedAt,
		DeletedAt:   row.Time("deleted_at"),
	}, nil
}
