package remote

import (
	"context"
	"time"
)

// Row is one backend record in wire form. Sync modules convert between rows
// and domain models; timestamps travel as RFC3339 strings.
type Row map[string]any

// User identifies the authenticated backend user.
type User struct {
	ID    string
	Email string
}

// Auth reports the current session. CurrentUser fails closed: any doubt
// about the session (missing, expired, unparseable) reads as "no user",
// never as an error that could be mistaken for a transient failure.
type Auth interface {
	CurrentUser(ctx context.Context) (*User, error)
}

// Store is the row-level backend API the sync modules talk to.
type Store interface {
	// SelectSince returns the user's rows with updated_at strictly after
	// since, ordered by updated_at ascending, at most limit rows. A nil
	// since means "from the beginning".
	SelectSince(ctx context.Context, table, userID string, since *time.Time, limit int) ([]Row, error)

	// SelectAll returns all of the user's rows ordered by the orderBy
	// column ascending, at most limit rows. For tables without an
	// updated_at column.
	SelectAll(ctx context.Context, table, userID, orderBy string, limit int) ([]Row, error)

	// Upsert writes the row, replacing an existing row with the same key.
	Upsert(ctx context.Context, table string, row Row) error

	// Insert writes the row and reports ErrUniqueViolation when a
	// uniqueness constraint rejects it.
	Insert(ctx context.Context, table string, row Row) error

	// GetUpdatedAt fetches the updated_at of one row, nil when the row
	// does not exist.
	GetUpdatedAt(ctx context.Context, table, userID, id string) (*time.Time, error)
}
