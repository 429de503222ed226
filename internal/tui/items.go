package tui

import (
	"fmt"
	"strings"

	"github.com/julianstephens/habitual/internal/calendar"
	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/models"
)

// Item adapts a habit with stats to the bubbles list.
type Item struct {
	Habit models.HabitWithStats
}

func (i Item) Title() string {
	h := i.Habit
	switch {
	case h.Status == models.StatusArchived:
		return "[ARCHIVED] " + h.Name
	case !h.IsStarted:
		return "· " + h.Name
	case h.IsCompletedForCurrentPeriod:
		return "✓ " + h.Name
	default:
		return "○ " + h.Name
	}
}

func (i Item) Description() string {
	h := i.Habit
	parts := []string{cli.FormatFrequency(h.Habit)}
	if !h.IsStarted {
		parts = append(parts, "starts "+h.StartDate)
	} else {
		parts = append(parts, fmt.Sprintf("%d/%d %s", h.CurrentPeriodProgress, h.TargetCount, periodLabel(h.FrequencyType)))
	}
	parts = append(parts, fmt.Sprintf("streak %d", h.Streak))
	if h.Category != nil {
		parts = append(parts, h.Category.Name)
	}
	return strings.Join(parts, " · ")
}

func (i Item) FilterValue() string { return i.Habit.Name }

func periodLabel(f calendar.Frequency) string {
	switch f {
	case calendar.Weekly:
		return "this week"
	case calendar.Monthly:
		return "this month"
	default:
		return "today"
	}
}
