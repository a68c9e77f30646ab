// Package sync keeps the local store and the remote backend converged. Each
// syncable table has a module; the orchestrator runs them in sequence and
// aggregates the outcome.
package sync

import (
	"context"
	"errors"
)

// Syncable table names as the backend knows them.
const (
	TableEntries  = "meaning_entries"
	TableSessions = "practice_sessions"
	TableCatalog  = "fragments_catalog"
	TableReveals  = "fragment_reveals"
)

// DefaultBatchSize bounds one pull or push round per table.
const DefaultBatchSize = 500

// ErrSyncInProgress is returned when a full sync starts while another is
// still running.
var ErrSyncInProgress = errors.New("sync already in progress")

// errNotAuthenticated is the module-level error string for a missing
// session. Part of the result contract, so the text is fixed.
const errNotAuthenticated = "Not authenticated"

// SyncResult is one table module's outcome. Per-row failures land in Errors
// without aborting the rest of the round.
type SyncResult struct {
	Table             string
	Pulled            int
	Pushed            int
	ConflictsResolved int
	Errors            []string
}

// FullSyncResult aggregates a whole orchestrated round.
type FullSyncResult struct {
	Success        bool
	Results        []SyncResult
	TotalPulled    int
	TotalPushed    int
	TotalConflicts int
	Errors         []string
}

// Module is one table's sync unit.
type Module interface {
	Sync(ctx context.Context) SyncResult
}
