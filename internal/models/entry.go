// Package models defines the domain entities shared by repositories,
// engines and sync modules.
package models

import "time"

// Category classifies a meaning entry. The string values are part of the
// contract with the backend and with UI code; do not rename.
type Category string

const (
	CategoryMeaningful         Category = "meaningful"
	CategoryJoyful             Category = "joyful"
	CategoryPainfulSignificant Category = "painful_significant"
	CategoryEmptyNumb          Category = "empty_numb"
)

// Categories lists all categories in their fixed enumeration order.
var Categories = []Category{
	CategoryMeaningful,
	CategoryJoyful,
	CategoryPainfulSignificant,
	CategoryEmptyNumb,
}

// Valid reports whether c is one of the four known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryMeaningful, CategoryJoyful, CategoryPainfulSignificant, CategoryEmptyNumb:
		return true
	}
	return false
}

// Positive reports whether the category counts toward the positive side of
// the net-meaning score.
func (c Category) Positive() bool {
	return c == CategoryMeaningful || c == CategoryJoyful
}

// TimeOfDay buckets entry creation time.
type TimeOfDay string

const (
	TimeMorning   TimeOfDay = "morning"
	TimeAfternoon TimeOfDay = "afternoon"
	TimeEvening   TimeOfDay = "evening"
	TimeNight     TimeOfDay = "night"
)

// TimeOfDayForHour maps a wall-clock hour to its bucket.
func TimeOfDayForHour(hour int) TimeOfDay {
	switch {
	case hour >= 5 && hour < 12:
		return TimeMorning
	case hour >= 12 && hour < 17:
		return TimeAfternoon
	case hour >= 17 && hour < 21:
		return TimeEvening
	default:
		return TimeNight
	}
}

// MeaningEntry is a tagged, categorized moment logged by the user.
// Entries are soft-deleted: DeletedAt is set instead of removing the row,
// so deletions propagate as tombstones during sync.
type MeaningEntry struct {
	ID        string
	Category  Category
	Text      string
	Tags      []string
	TimeOfDay TimeOfDay
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}
