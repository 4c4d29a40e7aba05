package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for DailyMood
var (
	ErrEmptyDailyMoodID     = errors.New("daily mood ID cannot be empty")
	ErrEmptyDailyMoodUserID = errors.New("daily mood user ID cannot be empty")
	ErrEmptyDailyMoodValue  = errors.New("daily mood value cannot be empty")
)

// DailyMood is a user's self-reported mood for one calendar day.
type DailyMood struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Date      time.Time `json:"date"`
	Mood      string    `json:"mood"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks if the DailyMood has valid data.
func (m *DailyMood) Validate() error {
	if m.ID == uuid.Nil {
		return ErrEmptyDailyMoodID
	}

	if m.UserID == uuid.Nil {
		return ErrEmptyDailyMoodUserID
	}

	if m.Mood == "" {
		return ErrEmptyDailyMoodValue
	}

	return nil
}
