// Package daily picks the practice of the day. Selection hashes the
// calendar date so every device shows the same practice without
// coordination; a user-requested swap is persisted per date.
package daily

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/margin-app/margin/internal/models"
	"github.com/margin-app/margin/internal/repositories/practices"
	"github.com/margin-app/margin/internal/repositories/syncstate"
)

// DateFormat is the calendar-date key used for selection and swaps.
const DateFormat = "2006-01-02"

// DateString renders the calendar date of an instant in its location.
func DateString(t time.Time) string {
	return t.Format(DateFormat)
}

func hashString(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}

// Selector resolves the daily practice against the local catalogue.
type Selector struct {
	practices practices.Repository
	state     syncstate.Repository
}

func NewSelector(p practices.Repository, s syncstate.Repository) *Selector {
	return &Selector{practices: p, state: s}
}

// basePractice is the hash-selected practice for a date, before any swap.
func (s *Selector) basePractice(all []models.Practice, date string) models.Practice {
	return all[int(hashString(date)%uint32(len(all)))]
}

// PracticeForDate returns the practice for a calendar date, honoring a
// persisted swap when one exists.
func (s *Selector) PracticeForDate(ctx context.Context, date string) (*models.Practice, error) {
	all, err := s.practices.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load practices: %w", err)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("practice catalogue is empty")
	}

	swapID, err := s.state.GetDailySwap(ctx, date)
	if err != nil {
		return nil, err
	}
	if swapID != "" {
		for i := range all {
			if all[i].ID == swapID {
				return &all[i], nil
			}
		}
		// swapped practice no longer in the catalogue, fall through
	}

	p := s.basePractice(all, date)
	return &p, nil
}

// Swap replaces the date's practice with a deterministic alternative and
// persists the choice. Swapping twice on the same date returns the same
// alternative; the swap always derives from the base selection so repeated
// swaps cannot walk through the whole catalogue.
func (s *Selector) Swap(ctx context.Context, date string) (*models.Practice, error) {
	all, err := s.practices.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load practices: %w", err)
	}
	if len(all) < 2 {
		return nil, fmt.Errorf("not enough practices to swap")
	}

	base := s.basePractice(all, date)
	alternatives := make([]models.Practice, 0, len(all)-1)
	for _, p := range all {
		if p.ID != base.ID {
			alternatives = append(alternatives, p)
		}
	}

	chosen := alternatives[int(hashString(date+"-swap")%uint32(len(alternatives)))]
	if err := s.state.SetDailySwap(ctx, date, chosen.ID); err != nil {
		return nil, err
	}
	return &chosen, nil
}
