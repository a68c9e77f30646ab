// Package services composes repositories and engines into the operations
// the CLI binds to.
package services

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/margin-app/margin/internal/fragments"
	"github.com/margin-app/margin/internal/logging"
	"github.com/margin-app/margin/internal/models"
	fragrepo "github.com/margin-app/margin/internal/repositories/fragments"
	"github.com/margin-app/margin/internal/repositories/sessions"
	"github.com/margin-app/margin/internal/repositories/syncstate"
)

// RevealOutcome is the user-facing result of a release check: either a
// concrete fragment or the reason nothing was released.
type RevealOutcome struct {
	Fragment *models.Fragment
	Reason   fragments.SkipReason
}

// FragmentService runs the release engine against live state and records
// reveals. The engine stays pure; the service owns the clock and the
// randomness.
type FragmentService struct {
	frags    fragrepo.Repository
	sessions sessions.Repository
	state    syncstate.Repository
	enabled  bool
	logger   logging.Logger

	now     func() time.Time
	randVal func() float64
}

func NewFragmentService(frags fragrepo.Repository, sess sessions.Repository, state syncstate.Repository, enabled bool, logger logging.Logger) *FragmentService {
	return &FragmentService{
		frags:    frags,
		sessions: sess,
		state:    state,
		enabled:  enabled,
		logger:   logger,
		now:      time.Now,
		randVal:  rand.Float64,
	}
}

// buildState assembles a fresh engine snapshot. The first-practice
// timestamp is cached in sync state so it survives session tombstoning.
func (s *FragmentService) buildState(ctx context.Context) (*fragments.EngineState, error) {
	now := s.now()

	completed, err := s.sessions.CountCompleted(ctx)
	if err != nil {
		return nil, fmt.Errorf("count practices: %w", err)
	}

	firstPractice, err := s.state.GetFirstPracticeAt(ctx)
	if err != nil {
		return nil, err
	}
	if firstPractice == nil {
		firstPractice, err = s.sessions.FirstCompletedStart(ctx)
		if err != nil {
			return nil, fmt.Errorf("first practice: %w", err)
		}
		if firstPractice != nil {
			if err := s.state.SetFirstPracticeAt(ctx, *firstPractice); err != nil {
				return nil, err
			}
		}
	}

	var lastRevealAt *time.Time
	last, err := s.frags.GetLastReveal(ctx)
	if err != nil {
		return nil, err
	}
	if last != nil {
		lastRevealAt = &last.RevealedAt
	}

	weekly, err := s.frags.CountRevealsSince(ctx, now.Add(-7*24*time.Hour))
	if err != nil {
		return nil, err
	}

	byVoice, err := s.frags.UnrevealedCountsByVoice(ctx)
	if err != nil {
		return nil, err
	}

	return &fragments.EngineState{
		Now:                now,
		CompletedPractices: completed,
		FirstPracticeAt:    firstPractice,
		LastRevealAt:       lastRevealAt,
		RevealsLast7Days:   weekly,
		UnrevealedByVoice:  byVoice,
	}, nil
}

// CheckRelease runs one eligibility check. When the engine decides to
// reveal, a concrete unrevealed fragment of the chosen voice is picked and
// the reveal recorded before returning.
func (s *FragmentService) CheckRelease(ctx context.Context) (*RevealOutcome, error) {
	state, err := s.buildState(ctx)
	if err != nil {
		return nil, err
	}

	draw := s.randVal()
	result := fragments.ShouldRelease(*state, draw, s.enabled)
	if !result.Reveal {
		s.logger.Debug(ctx, "release check skipped", "reason", string(result.Reason))
		return &RevealOutcome{Reason: result.Reason}, nil
	}

	fragment, err := s.frags.RandomUnrevealedByVoice(ctx, result.Voice, s.randVal())
	if err != nil {
		return nil, err
	}
	if fragment == nil {
		return &RevealOutcome{Reason: fragments.SkipNoFragmentsAvailable}, nil
	}

	if _, err := s.frags.InsertReveal(ctx, fragment.ID, state.Now); err != nil {
		return nil, fmt.Errorf("record reveal: %w", err)
	}

	s.logger.Info(ctx, "fragment revealed", "fragment", fragment.ID, "voice", string(fragment.Voice))
	return &RevealOutcome{Fragment: fragment}, nil
}

// History lists every recorded reveal with its fragment, newest first.
// Fragments missing from the cache (catalogue shrank) are returned with a
// nil Fragment.
func (s *FragmentService) History(ctx context.Context) ([]RevealedFragment, error) {
	reveals, err := s.frags.GetAllReveals(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]RevealedFragment, 0, len(reveals))
	for _, rv := range reveals {
		f, err := s.frags.GetByID(ctx, rv.FragmentID)
		if err != nil {
			return nil, err
		}
		out = append(out, RevealedFragment{Reveal: rv, Fragment: f})
	}
	return out, nil
}

// RevealedFragment pairs a reveal record with its cached fragment.
type RevealedFragment struct {
	Reveal   models.FragmentReveal
	Fragment *models.Fragment
}
