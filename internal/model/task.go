package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Layouts for the two wall-clock string formats carried in Settings.
const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// Task is a single to-do item owned by the user.
//
// Timestamps serialize as RFC 3339 strings, matching the persisted
// storage format.
type Task struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Settings holds the user's daily-cycle and notification preferences.
type Settings struct {
	// ResetTime is the local time of day ("HH:MM", 24h) at which
	// completed tasks are cleared.
	ResetTime string `json:"resetTime"`

	// LastResetDate is the local calendar date ("YYYY-MM-DD") of the most
	// recent automatic reset. Guards the reset against firing more than
	// once per day.
	LastResetDate string `json:"lastResetDate"`

	// NotificationsEnabled controls whether any outbound notification is
	// attempted.
	NotificationsEnabled bool `json:"notificationsEnabled"`

	// RecipientID is the user's identifier on the messaging provider.
	// Empty means no notification can be delivered.
	RecipientID string `json:"recipientId,omitempty"`
}

// DefaultSettings returns the first-run settings: a 06:00 reset with the
// last reset dated today so the evaluator does not fire immediately.
func DefaultSettings(now time.Time) Settings {
	return Settings{
		ResetTime:     "06:00",
		LastResetDate: now.Format(DateLayout),
	}
}

// ParseClock parses an "HH:MM" string into minutes since midnight.
func ParseClock(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock value %q: want HH:MM", s)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q: %w", s, err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q: %w", s, err)
	}

	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid clock value %q: out of range", s)
	}

	return hour*60 + minute, nil
}

// MinutesOfDay returns t's local time of day in minutes since midnight.
func MinutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
