// Package habits computes per-period progress and streaks for habits and
// applies the habit lifecycle against a storage.HabitStore.
package habits

import (
	"github.com/julianstephens/habitual/internal/calendar"
	"github.com/julianstephens/habitual/internal/models"
)

// CurrentProgress sums every completion counted toward the period containing
// today. Streak eligibility is ignored.
func CurrentProgress(habit models.Habit, completions []models.HabitCompletion, today calendar.LocalDate) int {
	progress := 0
	if habit.FrequencyType == calendar.Daily {
		date := today.String()
		for _, c := range completions {
			if c.LocalDate == date {
				progress += c.Count
			}
		}
		return progress
	}

	key := calendar.PeriodKeyForDate(today, habit.FrequencyType).String()
	for _, c := range completions {
		if c.PeriodKey == key {
			progress += c.Count
		}
	}
	return progress
}

// EligibleCountsByDate sums streak-eligible completions per local date.
func EligibleCountsByDate(completions []models.HabitCompletion) map[string]int {
	counts := make(map[string]int)
	for _, c := range completions {
		if c.IsStreakEligible {
			counts[c.LocalDate] += c.Count
		}
	}
	return counts
}

// EligibleCountsByPeriod sums streak-eligible completions per period key.
func EligibleCountsByPeriod(completions []models.HabitCompletion) map[string]int {
	counts := make(map[string]int)
	for _, c := range completions {
		if c.IsStreakEligible {
			counts[c.PeriodKey] += c.Count
		}
	}
	return counts
}

// DailyStreak counts consecutive met required days ending today, or ending
// yesterday when today is required and not yet met. Days outside the
// weekday selection are skipped without breaking the chain.
func DailyStreak(habit models.Habit, completions []models.HabitCompletion, today calendar.LocalDate) int {
	start, err := calendar.ParseLocalDate(habit.StartDate)
	if err != nil || today.Before(start) {
		return 0
	}

	counts := EligibleCountsByDate(completions)

	cursor := today
	if habit.IsRequiredDay(today) && counts[today.String()] < habit.TargetCount {
		cursor = today.AddDays(-1)
	}

	streak := 0
	for ; !cursor.Before(start); cursor = cursor.AddDays(-1) {
		if !habit.IsRequiredDay(cursor) {
			continue
		}
		if counts[cursor.String()] < habit.TargetCount {
			break
		}
		streak++
	}
	return streak
}

// PeriodStreak counts consecutive met weekly or monthly periods ending at the
// current one. An open, unmet current period adds nothing and does not break
// the chain: the walk starts from the previous period instead. A closed unmet
// current period yields 0.
func PeriodStreak(habit models.Habit, completions []models.HabitCompletion, today calendar.LocalDate) int {
	start, err := calendar.ParseLocalDate(habit.StartDate)
	if err != nil {
		return 0
	}

	counts := EligibleCountsByPeriod(completions)

	current := calendar.PeriodKeyForDate(today, habit.FrequencyType)
	currentComplete := counts[current.String()] >= habit.TargetCount
	if !currentComplete && !current.IsOpen(today) {
		return 0
	}

	cursor := current
	if !currentComplete {
		cursor = current.Previous()
	}

	streak := 0
	for !cursor.EndDate().Before(start) {
		if counts[cursor.String()] < habit.TargetCount {
			break
		}
		streak++
		cursor = cursor.Previous()
	}
	return streak
}

// Streak dispatches on the habit's frequency.
func Streak(habit models.Habit, completions []models.HabitCompletion, today calendar.LocalDate) int {
	if habit.FrequencyType == calendar.Daily {
		return DailyStreak(habit, completions, today)
	}
	return PeriodStreak(habit, completions, today)
}

// IsStreakEligible reports whether a completion logged on date can extend
// the streak. Only weekday-restricted daily habits have ineligible days.
func IsStreakEligible(habit models.Habit, date calendar.LocalDate) bool {
	if habit.FrequencyType != calendar.Daily {
		return true
	}
	return habit.IsRequiredDay(date)
}

// ComputeStats projects a habit and its completions into the view shown to
// callers. category may be nil.
func ComputeStats(habit models.Habit, category *models.Category, completions []models.HabitCompletion, today calendar.LocalDate) models.HabitWithStats {
	progress := CurrentProgress(habit, completions, today)
	started := habit.IsStarted(today.String())
	completed := progress >= habit.TargetCount

	stats := models.HabitWithStats{
		Habit:                       habit,
		CurrentPeriodProgress:       progress,
		Streak:                      Streak(habit, completions, today),
		IsStarted:                   started,
		IsCompletedForCurrentPeriod: completed,
		CanCompleteToday:            started && habit.Status == models.StatusActive && !completed,
	}
	if category != nil {
		stats.Category = &models.CategoryRef{ID: category.ID, Name: category.DisplayName}
	}
	return stats
}
