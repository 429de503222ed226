package validation

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/julianstephens/habitual/internal/calendar"
	"github.com/julianstephens/habitual/internal/models"
)

// ErrInvalidInput marks every rejection made by ValidateHabitInput.
var ErrInvalidInput = errors.New("validation failed")

// HabitInput is the user-editable part of a habit.
type HabitInput struct {
	Name             string
	StartDate        string
	FrequencyType    calendar.Frequency
	TargetCount      int
	SelectedWeekdays []int
}

// ValidateHabitInput checks a create/update payload and returns the weekday
// selection in canonical form: deduplicated, ascending, nil when empty.
func ValidateHabitInput(in HabitInput) ([]int, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if err := calendar.ValidateLocalDate(in.StartDate); err != nil {
		return nil, fmt.Errorf("%w: start date: %v", ErrInvalidInput, err)
	}
	if !in.FrequencyType.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, calendar.ErrInvalidFrequency)
	}
	if in.TargetCount < 1 {
		return nil, fmt.Errorf("%w: target count must be at least 1", ErrInvalidInput)
	}
	return normalizeWeekdays(in.SelectedWeekdays, in.FrequencyType)
}

func normalizeWeekdays(weekdays []int, freq calendar.Frequency) ([]int, error) {
	if len(weekdays) == 0 {
		return nil, nil
	}
	if freq != calendar.Daily {
		return nil, fmt.Errorf("%w: selected weekdays are only supported for daily habits", ErrInvalidInput)
	}
	for _, wd := range weekdays {
		if !calendar.Weekday(wd).Valid() {
			return nil, fmt.Errorf("%w: selected weekdays must be between 1 and 7, got %d", ErrInvalidInput, wd)
		}
	}
	out := slices.Clone(weekdays)
	slices.Sort(out)
	return slices.Compact(out), nil
}

// ConflictType represents the type of integrity problem
type ConflictType string

const (
	ConflictPeriodKeyMismatch  ConflictType = "period_key_mismatch"
	ConflictInvalidDate        ConflictType = "invalid_date"
	ConflictNonPositiveCount   ConflictType = "non_positive_count"
	ConflictBeforeStart        ConflictType = "before_start_date"
	ConflictOverTarget         ConflictType = "over_target"
	ConflictInvalidEligibility ConflictType = "invalid_eligibility"
)

// Conflict represents a detected problem in stored habit data
type Conflict struct {
	Type          ConflictType
	Description   string
	Date          string // YYYY-MM-DD format (if applicable)
	HabitID       string
	CompletionIDs []string
}

// ValidationResult contains all detected conflicts
type ValidationResult struct {
	Conflicts []Conflict
}

// HasConflicts returns true if there are any conflicts
func (vr *ValidationResult) HasConflicts() bool {
	return len(vr.Conflicts) > 0
}

// FormatReport returns a human-readable report of all conflicts
func (vr *ValidationResult) FormatReport() string {
	if !vr.HasConflicts() {
		return "No conflicts detected."
	}

	var b strings.Builder
	b.WriteString("Conflicts detected:\n")
	for _, conflict := range vr.Conflicts {
		fmt.Fprintf(&b, "- %s\n", conflict.Description)
	}
	return b.String()
}

// Merge appends the conflicts of other.
func (vr *ValidationResult) Merge(other ValidationResult) {
	vr.Conflicts = append(vr.Conflicts, other.Conflicts...)
}

// Validator checks stored habit data for integrity problems
type Validator struct{}

// New creates a new Validator
func New() *Validator {
	return &Validator{}
}

// ValidateCompletions checks one habit's completions against the habit's
// frequency, start date and weekday selection.
func (v *Validator) ValidateCompletions(habit models.Habit, completions []models.HabitCompletion) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}
	perDate := make(map[string][]models.HabitCompletion)

	for _, c := range completions {
		date, err := calendar.ParseLocalDate(c.LocalDate)
		if err != nil {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:          ConflictInvalidDate,
				Description:   fmt.Sprintf("Habit \"%s\" completion %s has invalid local date: %s", habit.Name, c.ID, c.LocalDate),
				HabitID:       habit.ID,
				CompletionIDs: []string{c.ID},
			})
			continue
		}

		if want := calendar.PeriodKeyForDate(date, habit.FrequencyType).String(); c.PeriodKey != want {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:          ConflictPeriodKeyMismatch,
				Description:   fmt.Sprintf("Habit \"%s\" completion on %s has period key %s, expected %s", habit.Name, c.LocalDate, c.PeriodKey, want),
				Date:          c.LocalDate,
				HabitID:       habit.ID,
				CompletionIDs: []string{c.ID},
			})
		}

		if c.Count < 1 {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:          ConflictNonPositiveCount,
				Description:   fmt.Sprintf("Habit \"%s\" completion on %s has count %d", habit.Name, c.LocalDate, c.Count),
				Date:          c.LocalDate,
				HabitID:       habit.ID,
				CompletionIDs: []string{c.ID},
			})
		}

		if calendar.CompareLocalDates(c.LocalDate, habit.StartDate) < 0 {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:          ConflictBeforeStart,
				Description:   fmt.Sprintf("Habit \"%s\" has a completion on %s before its start date %s", habit.Name, c.LocalDate, habit.StartDate),
				Date:          c.LocalDate,
				HabitID:       habit.ID,
				CompletionIDs: []string{c.ID},
			})
		}

		if c.IsStreakEligible && !habit.IsRequiredDay(date) {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:          ConflictInvalidEligibility,
				Description:   fmt.Sprintf("Habit \"%s\" completion on %s counts toward the streak but %s is not a selected weekday", habit.Name, c.LocalDate, date.Weekday()),
				Date:          c.LocalDate,
				HabitID:       habit.ID,
				CompletionIDs: []string{c.ID},
			})
		}

		perDate[c.LocalDate] = append(perDate[c.LocalDate], c)
	}

	if habit.FrequencyType == calendar.Daily {
		dates := make([]string, 0, len(perDate))
		for d := range perDate {
			dates = append(dates, d)
		}
		sort.Strings(dates)

		for _, d := range dates {
			total := 0
			ids := make([]string, 0, len(perDate[d]))
			for _, c := range perDate[d] {
				total += c.Count
				ids = append(ids, c.ID)
			}
			if total > habit.TargetCount {
				result.Conflicts = append(result.Conflicts, Conflict{
					Type:          ConflictOverTarget,
					Description:   fmt.Sprintf("Habit \"%s\" has %d completions on %s, above its target of %d", habit.Name, total, d, habit.TargetCount),
					Date:          d,
					HabitID:       habit.ID,
					CompletionIDs: ids,
				})
			}
		}
	}

	return result
}
