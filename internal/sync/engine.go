package sync

import (
	"context"
	"sync"

	"github.com/margin-app/margin/internal/logging"
	"github.com/margin-app/margin/internal/remote"
)

// Orchestrator runs every table module in a fixed sequence and aggregates
// their results. One module failing does not stop the others; overall
// success means the aggregated error list is empty.
type Orchestrator struct {
	auth    remote.Auth
	modules []Module
	logger  logging.Logger

	mu sync.Mutex // in-flight guard
}

// NewOrchestrator builds the orchestrator. Modules run in the order given;
// the conventional order is entries, sessions, catalogue, reveals.
func NewOrchestrator(auth remote.Auth, logger logging.Logger, modules ...Module) *Orchestrator {
	return &Orchestrator{auth: auth, modules: modules, logger: logger}
}

// RunFullSync synchronizes every table once. Returns ErrSyncInProgress when
// another round is still running. An unauthenticated state is reported in
// the result, not as an error: no module runs and success is false.
func (o *Orchestrator) RunFullSync(ctx context.Context) (*FullSyncResult, error) {
	if !o.mu.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer o.mu.Unlock()

	result := &FullSyncResult{}

	user, err := o.auth.CurrentUser(ctx)
	if err != nil || user == nil {
		result.Errors = append(result.Errors, errNotAuthenticated)
		return result, nil
	}

	o.logger.Info(ctx, "full sync started", "user", user.ID)
	for _, m := range o.modules {
		r := m.Sync(ctx)
		result.Results = append(result.Results, r)
		result.TotalPulled += r.Pulled
		result.TotalPushed += r.Pushed
		result.TotalConflicts += r.ConflictsResolved
		result.Errors = append(result.Errors, r.Errors...)
	}

	result.Success = len(result.Errors) == 0
	o.logger.Info(ctx, "full sync finished",
		"success", result.Success,
		"pulled", result.TotalPulled, "pushed", result.TotalPushed,
		"conflicts", result.TotalConflicts, "errors", len(result.Errors))
	return result, nil
}
