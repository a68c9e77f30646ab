package models

import "time"

// SessionStatus is the state of a practice session. The machine is closed:
// started -> completed | abandoned, terminal once set.
type SessionStatus string

const (
	SessionStarted   SessionStatus = "started"
	SessionCompleted SessionStatus = "completed"
	SessionAbandoned SessionStatus = "abandoned"
)

// Rating is the user's difficulty rating for a completed session.
type Rating string

const (
	RatingEasy    Rating = "easy"
	RatingNeutral Rating = "neutral"
	RatingHard    Rating = "hard"
)

// PracticeSession records one attempt at a practice.
// Invariant: CompletedAt is non-nil iff Status is SessionCompleted.
type PracticeSession struct {
	ID          string
	PracticeID  string
	StartedAt   time.Time
	CompletedAt *time.Time
	Status      SessionStatus
	Rating      Rating
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// PracticeMode groups practices by the kind of attention they train.
type PracticeMode string

const (
	ModeFocus      PracticeMode = "focus"
	ModeOpen       PracticeMode = "open"
	ModeSomatic    PracticeMode = "somatic"
	ModeRelational PracticeMode = "relational"
	ModePerception PracticeMode = "perception"
)

// Practice is a catalogue entry describing a guided practice.
// Read-only from the client's perspective.
type Practice struct {
	ID              string
	Title           string
	Instruction     string
	Mode            PracticeMode
	Difficulty      int
	DurationSeconds int
	ContraNotes     string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
