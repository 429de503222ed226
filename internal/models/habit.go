package models

import (
	"slices"
	"strings"
	"time"

	"github.com/julianstephens/habitual/internal/calendar"
)

// HabitStatus is the lifecycle state of a habit. Habits are never physically
// removed; deletion is a terminal status.
type HabitStatus string

const (
	StatusActive   HabitStatus = "active"
	StatusArchived HabitStatus = "archived"
	StatusDeleted  HabitStatus = "deleted"
)

func (s HabitStatus) Valid() bool {
	switch s {
	case StatusActive, StatusArchived, StatusDeleted:
		return true
	}
	return false
}

// CanTransition reports whether a habit may move from one status to another.
// Legal moves: active->archived, archived->active, active|archived->deleted.
func CanTransition(from, to HabitStatus) bool {
	switch from {
	case StatusActive:
		return to == StatusArchived || to == StatusDeleted
	case StatusArchived:
		return to == StatusActive || to == StatusDeleted
	}
	return false
}

// Habit represents a recurring commitment to track
type Habit struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	Description      string             `json:"description,omitempty"`
	StartDate        string             `json:"start_date"` // YYYY-MM-DD format
	FrequencyType    calendar.Frequency `json:"frequency_type"`
	TargetCount      int                `json:"target_count"`
	SelectedWeekdays []int              `json:"selected_weekdays,omitempty"` // Monday=1 ... Sunday=7
	CategoryID       string             `json:"category_id,omitempty"`
	Status           HabitStatus        `json:"status"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
	ArchivedAt       *time.Time         `json:"archived_at,omitempty"`
	DeletedAt        *time.Time         `json:"deleted_at,omitempty"`
}

// IsRequiredDay reports whether the habit expects progress on date. Only
// weekday-restricted daily habits have non-required days.
func (h Habit) IsRequiredDay(date calendar.LocalDate) bool {
	if h.FrequencyType != calendar.Daily || len(h.SelectedWeekdays) == 0 {
		return true
	}
	return slices.Contains(h.SelectedWeekdays, int(date.Weekday()))
}

// IsStarted reports whether today is on or after the start date.
func (h Habit) IsStarted(today string) bool {
	return calendar.CompareLocalDates(today, h.StartDate) >= 0
}

// HabitCompletion is one logged unit of progress
type HabitCompletion struct {
	ID               string    `json:"id"`
	HabitID          string    `json:"habit_id"`
	CompletedAt      time.Time `json:"completed_at"`
	LocalDate        string    `json:"local_date"` // YYYY-MM-DD format
	PeriodKey        string    `json:"period_key"` // D:YYYY-MM-DD, W:YYYY-Www, M:YYYY-MM
	Count            int       `json:"count"`
	IsStreakEligible bool      `json:"is_streak_eligible"`
	CreatedAt        time.Time `json:"created_at"`
}

// Category is a label shared by habits. Name is the normalized uniqueness key.
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NormalizeCategoryName trims, lowercases and collapses internal whitespace.
func NormalizeCategoryName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// CategoryRef is the slice of a category shown alongside a habit.
type CategoryRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// HabitWithStats is a habit projected with its current-period statistics.
type HabitWithStats struct {
	Habit
	Category                    *CategoryRef `json:"category"`
	CurrentPeriodProgress       int          `json:"current_period_progress"`
	Streak                      int          `json:"streak"`
	IsStarted                   bool         `json:"is_started"`
	CanCompleteToday            bool         `json:"can_complete_today"`
	IsCompletedForCurrentPeriod bool         `json:"is_completed_for_current_period"`
}

// CompletionResult describes the outcome of logging a completion.
type CompletionResult struct {
	Incremented      bool  `json:"incremented"`
	NewProgress      int   `json:"new_progress"`
	TargetCount      int   `json:"target_count"`
	IsStreakEligible *bool `json:"is_streak_eligible,omitempty"`
}
