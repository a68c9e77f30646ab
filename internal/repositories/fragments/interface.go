package fragments

import (
	"context"
	"errors"
	"time"

	"github.com/margin-app/margin/internal/models"
)

// ErrAlreadyRevealed is returned when inserting a reveal for a fragment that
// already has one. A fragment is revealed at most once, ever.
var ErrAlreadyRevealed = errors.New("fragment already revealed")

// RemoteReveal is the subset of a remote reveal row needed for merging.
type RemoteReveal struct {
	FragmentID string
	RevealedAt time.Time
}

// Repository manages the fragment catalogue cache and the reveal history.
type Repository interface {
	// Catalogue cache. ReplaceCatalogue clears and rewrites the whole cache
	// as one logical unit.
	ReplaceCatalogue(ctx context.Context, fragments []models.Fragment) error
	HasCachedCatalogue(ctx context.Context) (bool, error)
	GetAllCached(ctx context.Context) ([]models.Fragment, error)
	GetByID(ctx context.Context, id string) (*models.Fragment, error)
	GetByVoice(ctx context.Context, voice models.Voice) ([]models.Fragment, error)

	// Reveals.
	InsertReveal(ctx context.Context, fragmentID string, revealedAt time.Time) (*models.FragmentReveal, error)
	GetAllReveals(ctx context.Context) ([]models.FragmentReveal, error)
	GetLastReveal(ctx context.Context) (*models.FragmentReveal, error)

	// CountRevealsSince counts reveals with revealed_at >= cutoff.
	CountRevealsSince(ctx context.Context, cutoff time.Time) (int, error)

	// UnrevealedCountsByVoice counts enabled, not-yet-revealed fragments per
	// voice. Every voice appears in the map, zero included.
	UnrevealedCountsByVoice(ctx context.Context) (map[models.Voice]int, error)

	// RandomUnrevealedByVoice picks among the enabled, unrevealed fragments
	// of the voice using the supplied draw in [0,1). Nil when none remain.
	RandomUnrevealedByVoice(ctx context.Context, voice models.Voice, draw float64) (*models.Fragment, error)

	// Sync support.
	GetUnsyncedReveals(ctx context.Context) ([]models.FragmentReveal, error)
	MarkRevealsSynced(ctx context.Context, ids []string) error

	// MergeRemoteReveals inserts remote reveals not present locally (matched
	// by fragment id) and returns how many were newly inserted. Idempotent.
	MergeRemoteReveals(ctx context.Context, reveals []RemoteReveal) (int, error)
}
