package services

import (
	"context"
	"fmt"

	"github.com/margin-app/margin/internal/daily"
	"github.com/margin-app/margin/internal/logging"
	"github.com/margin-app/margin/internal/models"
	"github.com/margin-app/margin/internal/repositories/practices"
	"github.com/margin-app/margin/internal/repositories/sessions"
	"github.com/margin-app/margin/internal/repositories/syncstate"
)

// SessionService drives the daily practice flow: resolving today's
// practice, starting sessions, and closing them out.
type SessionService struct {
	sessions  sessions.Repository
	practices practices.Repository
	state     syncstate.Repository
	selector  *daily.Selector
	logger    logging.Logger
}

func NewSessionService(sess sessions.Repository, prac practices.Repository, state syncstate.Repository, logger logging.Logger) *SessionService {
	return &SessionService{
		sessions:  sess,
		practices: prac,
		state:     state,
		selector:  daily.NewSelector(prac, state),
		logger:    logger,
	}
}

// Today resolves the practice for a calendar date.
func (s *SessionService) Today(ctx context.Context, date string) (*models.Practice, error) {
	return s.selector.PracticeForDate(ctx, date)
}

// SwapToday replaces the date's practice with the persisted alternative.
func (s *SessionService) SwapToday(ctx context.Context, date string) (*models.Practice, error) {
	return s.selector.Swap(ctx, date)
}

// Start opens a session for the practice.
func (s *SessionService) Start(ctx context.Context, practiceID string) (*models.PracticeSession, error) {
	p, err := s.practices.GetByID(ctx, practiceID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("unknown practice %q", practiceID)
	}
	sess, err := s.sessions.Start(ctx, practiceID)
	if err != nil {
		return nil, err
	}
	s.logger.Debug(ctx, "session started", "session", sess.ID, "practice", practiceID)
	return sess, nil
}

// Complete closes a session as completed. The first completion ever also
// pins the first-practice timestamp used for release-engine age bucketing.
func (s *SessionService) Complete(ctx context.Context, id string, rating models.Rating, notes string) error {
	if err := s.sessions.Complete(ctx, id, rating, notes); err != nil {
		return err
	}

	first, err := s.state.GetFirstPracticeAt(ctx)
	if err != nil {
		return err
	}
	if first == nil {
		started, err := s.sessions.FirstCompletedStart(ctx)
		if err != nil {
			return err
		}
		if started != nil {
			if err := s.state.SetFirstPracticeAt(ctx, *started); err != nil {
				return err
			}
		}
	}
	return nil
}

// Abandon closes a session as abandoned.
func (s *SessionService) Abandon(ctx context.Context, id string) error {
	return s.sessions.Abandon(ctx, id)
}

func (s *SessionService) List(ctx context.Context) ([]models.PracticeSession, error) {
	return s.sessions.GetAll(ctx)
}

func (s *SessionService) CompletedCount(ctx context.Context) (int, error) {
	return s.sessions.CountCompleted(ctx)
}
