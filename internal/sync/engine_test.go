package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/margin-app/margin/internal/remote"
)

func TestRunFullSync_UnauthenticatedCallsNoModules(t *testing.T) {
	m1 := &stubModule{result: SyncResult{Table: TableEntries, Pulled: 5}}
	m2 := &stubModule{result: SyncResult{Table: TableSessions, Pushed: 3}}

	o := NewOrchestrator(&fakeAuth{}, discardLogger(), m1, m2)
	res, err := o.RunFullSync(context.Background())
	require.NoError(t, err)

	assert.False(t, res.Success)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "Not authenticated", res.Errors[0])
	assert.Empty(t, res.Results)
	assert.Zero(t, m1.calls, "no partial work without a session")
	assert.Zero(t, m2.calls)
}

func TestRunFullSync_AggregatesModuleResults(t *testing.T) {
	m1 := &stubModule{result: SyncResult{Table: TableEntries, Pulled: 5, Pushed: 2, ConflictsResolved: 1}}
	m2 := &stubModule{result: SyncResult{Table: TableSessions, Pulled: 3, Pushed: 1}}
	m3 := &stubModule{result: SyncResult{Table: TableReveals, ConflictsResolved: 0}}

	auth := &fakeAuth{user: &remote.User{ID: "user-1"}}
	o := NewOrchestrator(auth, discardLogger(), m1, m2, m3)

	res, err := o.RunFullSync(context.Background())
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, 8, res.TotalPulled)
	assert.Equal(t, 3, res.TotalPushed)
	assert.Equal(t, 1, res.TotalConflicts)
	require.Len(t, res.Results, 3)
	assert.Equal(t, TableEntries, res.Results[0].Table)
	assert.Equal(t, TableSessions, res.Results[1].Table)
	assert.Equal(t, TableReveals, res.Results[2].Table)
}

func TestRunFullSync_ModuleFailureDoesNotStopOthers(t *testing.T) {
	failing := &stubModule{result: SyncResult{Table: TableEntries, Errors: []string{"pull: boom"}}}
	healthy := &stubModule{result: SyncResult{Table: TableSessions, Pulled: 4}}

	auth := &fakeAuth{user: &remote.User{ID: "user-1"}}
	o := NewOrchestrator(auth, discardLogger(), failing, healthy)

	res, err := o.RunFullSync(context.Background())
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, 1, healthy.calls, "a failing table must not block the next one")
	assert.Equal(t, 4, res.TotalPulled)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "pull: boom", res.Errors[0])
}

// blockingModule holds its first Sync open until released, to provoke
// overlap. Later calls return immediately.
type blockingModule struct {
	entered chan struct{}
	release chan struct{}
	blocked bool
}

func (m *blockingModule) Sync(context.Context) SyncResult {
	if !m.blocked {
		m.blocked = true
		close(m.entered)
		<-m.release
	}
	return SyncResult{Table: TableEntries}
}

func TestRunFullSync_RejectsOverlappingRounds(t *testing.T) {
	block := &blockingModule{entered: make(chan struct{}), release: make(chan struct{})}
	auth := &fakeAuth{user: &remote.User{ID: "user-1"}}
	o := NewOrchestrator(auth, discardLogger(), block)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := o.RunFullSync(context.Background())
		assert.NoError(t, err)
	}()

	<-block.entered
	_, err := o.RunFullSync(context.Background())
	assert.ErrorIs(t, err, ErrSyncInProgress)

	close(block.release)
	<-done

	// the guard releases once the round finishes
	res, err := o.RunFullSync(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Success)
}
