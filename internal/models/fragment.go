package models

import "time"

// Voice is an internal-only categorical tag on a fragment, used for weighted
// selection. It is never surfaced to users.
type Voice string

const (
	VoiceObserver      Voice = "observer"
	VoicePatternKeeper Voice = "pattern_keeper"
	VoiceNaturalist    Voice = "naturalist"
	VoiceWitness       Voice = "witness"
)

// Voices lists all voices in their fixed enumeration order. The weighted
// sampler walks this slice, so the order is part of the engine's determinism.
var Voices = []Voice{
	VoiceObserver,
	VoicePatternKeeper,
	VoiceNaturalist,
	VoiceWitness,
}

// Fragment is an immutable piece of catalogue content shown at most once
// per user. The client refreshes the catalogue wholesale from the backend.
type Fragment struct {
	ID        string
	Voice     Voice
	Text      string
	Enabled   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FragmentReveal is the append-only record that a fragment was shown.
// At most one reveal per fragment id ever exists.
type FragmentReveal struct {
	ID         string
	FragmentID string
	RevealedAt time.Time
	CreatedAt  time.Time
	Synced     bool
}
