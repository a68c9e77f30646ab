package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/margin-app/margin/internal/logging"
	"github.com/margin-app/margin/internal/remote"
	"github.com/margin-app/margin/internal/repositories/syncstate"
)

// localRow is a local record in wire form, ready to push.
type localRow struct {
	ID        string
	UpdatedAt time.Time
	Row       remote.Row
}

// tableAdapter binds the last-write-wins protocol to one table's local
// repository and row conversion.
type tableAdapter interface {
	Table() string

	// LocalUpdatedAt reports the updated_at of the local row, tombstones
	// included; found is false when the row does not exist at all.
	LocalUpdatedAt(ctx context.Context, id string) (updatedAt time.Time, found bool, err error)

	// ApplyRemote writes the remote row over local state.
	ApplyRemote(ctx context.Context, userID string, row remote.Row) error

	// LocalChangedSince lists local rows changed strictly after since in
	// wire form, ascending, at most limit.
	LocalChangedSince(ctx context.Context, userID string, since *time.Time, limit int) ([]localRow, error)
}

// lwwModule runs the standard bi-directional protocol for one table:
// pull remote-newer rows, push local-newer rows, advance the cursor only
// when the whole round was clean.
type lwwModule struct {
	adapter   tableAdapter
	store     remote.Store
	auth      remote.Auth
	state     syncstate.Repository
	batchSize int
	logger    logging.Logger
}

func newLWWModule(adapter tableAdapter, store remote.Store, auth remote.Auth, state syncstate.Repository, batchSize int, logger logging.Logger) *lwwModule {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &lwwModule{
		adapter:   adapter,
		store:     store,
		auth:      auth,
		state:     state,
		batchSize: batchSize,
		logger:    logger,
	}
}

func (m *lwwModule) Sync(ctx context.Context) SyncResult {
	table := m.adapter.Table()
	result := SyncResult{Table: table}

	user, err := m.auth.CurrentUser(ctx)
	if err != nil || user == nil {
		result.Errors = append(result.Errors, errNotAuthenticated)
		return result
	}

	// captured before the pull so rows written during this round are
	// revisited next round instead of skipped
	roundStart := time.Now()

	cursor, err := m.state.GetSyncTime(ctx, table)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("read cursor: %v", err))
		return result
	}

	m.pull(ctx, user.ID, cursor, &result)
	m.push(ctx, user.ID, cursor, &result)

	if len(result.Errors) == 0 {
		if err := m.state.SetSyncTime(ctx, table, roundStart); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("advance cursor: %v", err))
		}
	}

	m.logger.Info(ctx, "table sync finished",
		"table", table, "pulled", result.Pulled, "pushed", result.Pushed,
		"conflicts", result.ConflictsResolved, "errors", len(result.Errors))
	return result
}

func (m *lwwModule) pull(ctx context.Context, userID string, cursor *time.Time, result *SyncResult) {
	rows, err := m.store.SelectSince(ctx, m.adapter.Table(), userID, cursor, m.batchSize)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("pull: %v", err))
		return
	}

	for _, row := range rows {
		id := row.String("id")
		remoteUpdated := row.Time("updated_at")
		if id == "" || remoteUpdated == nil {
			result.Errors = append(result.Errors, fmt.Sprintf("pull row: malformed row %q", id))
			continue
		}

		localUpdated, found, err := m.adapter.LocalUpdatedAt(ctx, id)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("pull row %s: %v", id, err))
			continue
		}

		// remote wins when local is absent or not newer
		if found && remoteUpdated.Before(localUpdated) {
			continue
		}
		if err := m.adapter.ApplyRemote(ctx, userID, row); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("pull row %s: %v", id, err))
			continue
		}
		result.Pulled++
		// a conflict is an actual overwrite of newer-remote over
		// existing-local, not an initial insert
		if found && remoteUpdated.After(localUpdated) {
			result.ConflictsResolved++
		}
	}
}

func (m *lwwModule) push(ctx context.Context, userID string, cursor *time.Time, result *SyncResult) {
	locals, err := m.adapter.LocalChangedSince(ctx, userID, cursor, m.batchSize)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("push: %v", err))
		return
	}

	for _, local := range locals {
		remoteUpdated, err := m.store.GetUpdatedAt(ctx, m.adapter.Table(), userID, local.ID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("push row %s: %v", local.ID, err))
			continue
		}
		// never clobber a remote write that landed between pull and push
		if remoteUpdated != nil && !local.UpdatedAt.After(*remoteUpdated) {
			continue
		}
		if err := m.store.Upsert(ctx, m.adapter.Table(), local.Row); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("push row %s: %v", local.ID, err))
			continue
		}
		result.Pushed++
	}
}
