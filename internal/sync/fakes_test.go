package sync

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/margin-app/margin/internal/logging"
	"github.com/margin-app/margin/internal/remote"
)

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type fakeAuth struct {
	user *remote.User
}

func (a *fakeAuth) CurrentUser(context.Context) (*remote.User, error) {
	return a.user, nil
}

// fakeStore is an in-memory remote keyed by table then row id. Only the
// behavior the sync modules exercise is implemented.
type fakeStore struct {
	mu        sync.Mutex
	rows      map[string]map[string]remote.Row
	upserts   []string
	inserts   []string
	failIDs   map[string]bool // row ids whose writes fail
	uniqueIDs map[string]bool // row ids whose inserts hit uniqueness

	selectAllOrder string // last orderBy column SelectAll was asked for
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rows:      map[string]map[string]remote.Row{},
		failIDs:   map[string]bool{},
		uniqueIDs: map[string]bool{},
	}
}

func (s *fakeStore) put(table string, row remote.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rows[table] == nil {
		s.rows[table] = map[string]remote.Row{}
	}
	s.rows[table][row.String("id")] = row
}

func (s *fakeStore) SelectSince(_ context.Context, table, userID string, since *time.Time, limit int) ([]remote.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []remote.Row
	for _, row := range s.rows[table] {
		if row.String("user_id") != userID {
			continue
		}
		if since != nil {
			at := row.Time("updated_at")
			if at == nil || !at.After(*since) {
				continue
			}
		}
		out = append(out, row)
	}
	// ascending by updated_at
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			ti, tj := out[i].Time("updated_at"), out[j].Time("updated_at")
			if ti != nil && tj != nil && tj.Before(*ti) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) SelectAll(_ context.Context, table, userID, orderBy string, limit int) ([]remote.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectAllOrder = orderBy
	var out []remote.Row
	for _, row := range s.rows[table] {
		if row.String("user_id") != userID {
			continue
		}
		out = append(out, row)
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			ti, tj := out[i].Time(orderBy), out[j].Time(orderBy)
			if ti != nil && tj != nil && tj.Before(*ti) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) Upsert(_ context.Context, table string, row remote.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := row.String("id")
	if s.failIDs[id] {
		return fmt.Errorf("write refused for %s", id)
	}
	if s.rows[table] == nil {
		s.rows[table] = map[string]remote.Row{}
	}
	s.rows[table][id] = row
	s.upserts = append(s.upserts, id)
	return nil
}

func (s *fakeStore) Insert(_ context.Context, table string, row remote.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := row.String("id")
	if s.failIDs[id] {
		return fmt.Errorf("write refused for %s", id)
	}
	if s.uniqueIDs[id] || s.uniqueIDs[row.String("fragment_id")] {
		return remote.ErrUniqueViolation
	}
	if s.rows[table] == nil {
		s.rows[table] = map[string]remote.Row{}
	}
	s.rows[table][id] = row
	s.inserts = append(s.inserts, id)
	return nil
}

func (s *fakeStore) GetUpdatedAt(_ context.Context, table, userID, id string) (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[table][id]
	if !ok || row.String("user_id") != userID {
		return nil, nil
	}
	return row.Time("updated_at"), nil
}

// fakeCatalogue serves a fixed catalogue payload.
type fakeCatalogue struct {
	rows  []remote.Row
	err   error
	calls int
}

func (f *fakeCatalogue) SelectCatalogue(context.Context) ([]remote.Row, error) {
	f.calls++
	return f.rows, f.err
}

// stubModule returns a canned result and counts invocations.
type stubModule struct {
	result SyncResult
	calls  int
}

func (m *stubModule) Sync(context.Context) SyncResult {
	m.calls++
	return m.result
}
