package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/margin-app/margin/internal/logging"
	"github.com/margin-app/margin/internal/models"
	"github.com/margin-app/margin/internal/remote"
	"github.com/margin-app/margin/internal/repositories/fragments"
)

// RevealsModule syncs fragment reveals. Reveals are immutable and
// append-only, so convergence rests on the fragment-id uniqueness invariant
// instead of timestamps: pulls merge by fragment id, and a uniqueness
// violation on push means another device already revealed the fragment,
// which is convergence, not a conflict to resolve by hand.
type RevealsModule struct {
	repo      fragments.Repository
	store     remote.Store
	auth      remote.Auth
	batchSize int
	logger    logging.Logger
}

func NewRevealsModule(repo fragments.Repository, store remote.Store, auth remote.Auth, batchSize int, logger logging.Logger) *RevealsModule {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &RevealsModule{repo: repo, store: store, auth: auth, batchSize: batchSize, logger: logger}
}

func (m *RevealsModule) Sync(ctx context.Context) SyncResult {
	result := SyncResult{Table: TableReveals}

	user, err := m.auth.CurrentUser(ctx)
	if err != nil || user == nil {
		result.Errors = append(result.Errors, errNotAuthenticated)
		return result
	}

	m.pull(ctx, user.ID, &result)
	m.push(ctx, user.ID, &result)

	m.logger.Info(ctx, "reveals sync finished",
		"pulled", result.Pulled, "pushed", result.Pushed,
		"conflicts", result.ConflictsResolved, "errors", len(result.Errors))
	return result
}

// pull fetches every remote reveal and merges the ones missing locally.
// Already-present fragment ids count as resolved conflicts.
func (m *RevealsModule) pull(ctx context.Context, userID string, result *SyncResult) {
	rows, err := m.store.SelectAll(ctx, TableReveals, userID, "revealed_at", m.batchSize)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("pull: %v", err))
		return
	}

	reveals := make([]fragments.RemoteReveal, 0, len(rows))
	for _, row := range rows {
		fragmentID := row.String("fragment_id")
		revealedAt := row.Time("revealed_at")
		if fragmentID == "" || revealedAt == nil {
			result.Errors = append(result.Errors, "pull row: malformed reveal")
			continue
		}
		reveals = append(reveals, fragments.RemoteReveal{
			FragmentID: fragmentID,
			RevealedAt: *revealedAt,
		})
	}

	merged, err := m.repo.MergeRemoteReveals(ctx, reveals)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("pull merge: %v", err))
		return
	}
	result.Pulled = merged
	result.ConflictsResolved += len(reveals) - merged
}

// push inserts locally-unsynced reveals remotely. A uniqueness violation is
// an expected outcome: the record still gets marked synced.
func (m *RevealsModule) push(ctx context.Context, userID string, result *SyncResult) {
	unsynced, err := m.repo.GetUnsyncedReveals(ctx)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("push: %v", err))
		return
	}

	var syncedIDs []string
	for _, rv := range unsynced {
		err := m.store.Insert(ctx, TableReveals, revealToRow(&rv, userID))
		switch {
		case err == nil:
			result.Pushed++
			syncedIDs = append(syncedIDs, rv.ID)
		case errors.Is(err, remote.ErrUniqueViolation):
			result.ConflictsResolved++
			syncedIDs = append(syncedIDs, rv.ID)
		default:
			result.Errors = append(result.Errors, fmt.Sprintf("push reveal %s: %v", rv.FragmentID, err))
		}
	}

	if err := m.repo.MarkRevealsSynced(ctx, syncedIDs); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("push mark synced: %v", err))
	}
}

func revealToRow(rv *models.FragmentReveal, userID string) remote.Row {
	return remote.Row{
		"id":          rv.ID,
		"user_id":     userID,
		"fragment_id": rv.FragmentID,
		"revealed_at": models.FormatTime(rv.RevealedAt),
		"created_at":  models.FormatTime(rv.CreatedAt),
	}
}
