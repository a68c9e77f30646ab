// Package fragments decides when a new fragment may be surfaced. The engine
// is a pure function of its state snapshot and a supplied random value, so
// identical inputs always produce identical results.
package fragments

import (
	"fmt"
	"math"
	"time"

	"github.com/margin-app/margin/internal/models"
)

const (
	// MinPractices is the lifetime completed-practice count required before
	// any fragment is released.
	MinPractices = 3

	// RevealCooldown is the minimum time between reveals.
	RevealCooldown = 48 * time.Hour

	// MaxRevealsPerWeek caps reveals in any trailing 7-day window.
	MaxRevealsPerWeek = 2

	// BaseProbability is the chance a fully eligible check actually reveals.
	BaseProbability = 0.18

	weightTolerance = 1e-4
)

// AgeBucket groups users by weeks since their first completed practice.
type AgeBucket string

const (
	BucketEarly  AgeBucket = "0-8"
	BucketMiddle AgeBucket = "9-26"
	BucketLate   AgeBucket = "27-52"
	BucketMature AgeBucket = "53+"
)

// VoiceWeights gives the sampling weight per voice for each age bucket.
// Newer users lean toward observer content; tenure shifts weight to the
// reflective voices. Each bucket's weights sum to exactly 1.
var VoiceWeights = map[AgeBucket]map[models.Voice]float64{
	BucketEarly: {
		models.VoiceObserver:      0.5,
		models.VoicePatternKeeper: 0.2,
		models.VoiceNaturalist:    0.2,
		models.VoiceWitness:       0.1,
	},
	BucketMiddle: {
		models.VoiceObserver:      0.3,
		models.VoicePatternKeeper: 0.3,
		models.VoiceNaturalist:    0.2,
		models.VoiceWitness:       0.2,
	},
	BucketLate: {
		models.VoiceObserver:      0.2,
		models.VoicePatternKeeper: 0.3,
		models.VoiceNaturalist:    0.25,
		models.VoiceWitness:       0.25,
	},
	BucketMature: {
		models.VoiceObserver:      0.15,
		models.VoicePatternKeeper: 0.25,
		models.VoiceNaturalist:    0.3,
		models.VoiceWitness:       0.3,
	},
}

// SkipReason is a closed enumeration explaining why no fragment was
// released. Callers can switch exhaustively over these values.
type SkipReason string

const (
	SkipFragmentsDisabled     SkipReason = "fragments_disabled"
	SkipInsufficientPractices SkipReason = "insufficient_practices"
	SkipCooldownActive        SkipReason = "cooldown_active"
	SkipWeeklyCapReached      SkipReason = "weekly_cap_reached"
	SkipNoFragmentsAvailable  SkipReason = "no_fragments_available"
	SkipProbabilityGate       SkipReason = "probability_gate"
)

// EngineState is the snapshot the decision runs against. Constructed fresh
// before each check; the engine itself does no I/O.
type EngineState struct {
	Now                time.Time
	CompletedPractices int
	FirstPracticeAt    *time.Time
	LastRevealAt       *time.Time
	RevealsLast7Days   int
	UnrevealedByVoice  map[models.Voice]int
}

// ReleaseResult is either a reveal intent for a voice or a tagged skip.
type ReleaseResult struct {
	Reveal bool
	Voice  models.Voice
	Reason SkipReason
}

func skip(reason SkipReason) ReleaseResult {
	return ReleaseResult{Reason: reason}
}

// WeeksBetween floors the elapsed time between two instants to whole weeks.
// Negative spans clamp to zero.
func WeeksBetween(from, to time.Time) int {
	d := to.Sub(from)
	if d < 0 {
		return 0
	}
	return int(d / (7 * 24 * time.Hour))
}

// AgeBucketFor maps weeks since first practice to a bucket. Absent first
// practice means the user is brand new.
func AgeBucketFor(firstPracticeAt *time.Time, now time.Time) AgeBucket {
	if firstPracticeAt == nil {
		return BucketEarly
	}
	weeks := WeeksBetween(*firstPracticeAt, now)
	switch {
	case weeks <= 8:
		return BucketEarly
	case weeks <= 26:
		return BucketMiddle
	case weeks <= 52:
		return BucketLate
	default:
		return BucketMature
	}
}

// IsCooldownComplete reports whether enough time has passed since the last
// reveal. No prior reveal trivially satisfies the cooldown; the boundary
// itself counts as complete.
func IsCooldownComplete(lastRevealAt *time.Time, now time.Time) bool {
	if lastRevealAt == nil {
		return true
	}
	return now.Sub(*lastRevealAt) >= RevealCooldown
}

// SelectVoice samples a voice from base weights restricted to voices with
// availability. Voices are walked in their fixed enumeration order with
// weights renormalized over the available ones; the last available voice
// catches any floating-point shortfall. Returns false when nothing is
// available.
func SelectVoice(weights map[models.Voice]float64, availability map[models.Voice]int, randomValue float64) (models.Voice, bool) {
	var available []models.Voice
	total := 0.0
	for _, v := range models.Voices {
		if availability[v] > 0 {
			available = append(available, v)
			total += weights[v]
		}
	}
	if len(available) == 0 || total <= 0 {
		return "", false
	}

	target := randomValue * total
	cumulative := 0.0
	for _, v := range available {
		cumulative += weights[v]
		if target < cumulative {
			return v, true
		}
	}
	return available[len(available)-1], true
}

// ValidateWeights checks every bucket's weights cover all voices and sum to
// 1 within tolerance.
func ValidateWeights() error {
	for bucket, weights := range VoiceWeights {
		sum := 0.0
		for _, v := range models.Voices {
			w, ok := weights[v]
			if !ok {
				return fmt.Errorf("bucket %s missing weight for voice %s", bucket, v)
			}
			if w < 0 {
				return fmt.Errorf("bucket %s has negative weight for voice %s", bucket, v)
			}
			sum += w
		}
		if math.Abs(sum-1.0) > weightTolerance {
			return fmt.Errorf("bucket %s weights sum to %v, want 1.0", bucket, sum)
		}
	}
	return nil
}

// ShouldRelease runs the gate sequence and, when every gate passes, samples
// the voice to reveal from. Gates short-circuit in a fixed order so the skip
// reason always names the first failing condition.
func ShouldRelease(state EngineState, randomValue float64, fragmentsEnabled bool) ReleaseResult {
	if !fragmentsEnabled {
		return skip(SkipFragmentsDisabled)
	}
	if state.CompletedPractices < MinPractices {
		return skip(SkipInsufficientPractices)
	}
	if !IsCooldownComplete(state.LastRevealAt, state.Now) {
		return skip(SkipCooldownActive)
	}
	if state.RevealsLast7Days >= MaxRevealsPerWeek {
		return skip(SkipWeeklyCapReached)
	}

	totalAvailable := 0
	for _, n := range state.UnrevealedByVoice {
		totalAvailable += n
	}
	if totalAvailable == 0 {
		return skip(SkipNoFragmentsAvailable)
	}

	if randomValue >= BaseProbability {
		return skip(SkipProbabilityGate)
	}

	bucket := AgeBucketFor(state.FirstPracticeAt, state.Now)
	voice, ok := SelectVoice(VoiceWeights[bucket], state.UnrevealedByVoice, randomValue)
	if !ok {
		return skip(SkipNoFragmentsAvailable)
	}
	return ReleaseResult{Reveal: true, Voice: voice}
}
