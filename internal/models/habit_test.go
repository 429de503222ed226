package models

import (
	"testing"

	"github.com/julianstephens/habitual/internal/calendar"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to HabitStatus
		want     bool
	}{
		{StatusActive, StatusArchived, true},
		{StatusActive, StatusDeleted, true},
		{StatusArchived, StatusActive, true},
		{StatusArchived, StatusDeleted, true},
		{StatusActive, StatusActive, false},
		{StatusArchived, StatusArchived, false},
		{StatusDeleted, StatusActive, false},
		{StatusDeleted, StatusArchived, false},
		{StatusDeleted, StatusDeleted, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestIsRequiredDay(t *testing.T) {
	monday := calendar.MustParseLocalDate("2024-01-01")
	tuesday := calendar.MustParseLocalDate("2024-01-02")

	restricted := Habit{FrequencyType: calendar.Daily, SelectedWeekdays: []int{1, 3, 5}}
	if !restricted.IsRequiredDay(monday) {
		t.Error("Monday should be required")
	}
	if restricted.IsRequiredDay(tuesday) {
		t.Error("Tuesday should not be required")
	}

	unrestricted := Habit{FrequencyType: calendar.Daily}
	if !unrestricted.IsRequiredDay(tuesday) {
		t.Error("every day is required without a weekday selection")
	}

	weekly := Habit{FrequencyType: calendar.Weekly, SelectedWeekdays: []int{1}}
	if !weekly.IsRequiredDay(tuesday) {
		t.Error("weekday restrictions only apply to daily habits")
	}
}

func TestNormalizeCategoryName(t *testing.T) {
	tests := map[string]string{
		"Health":             "health",
		" health ":           "health",
		"  Deep   Work\t":    "deep work",
		"":                   "",
		"MIXED case  Words ": "mixed case words",
	}
	for in, want := range tests {
		if got := NormalizeCategoryName(in); got != want {
			t.Errorf("NormalizeCategoryName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsStarted(t *testing.T) {
	h := Habit{StartDate: "2024-01-10"}
	if h.IsStarted("2024-01-09") {
		t.Error("habit should not be started before its start date")
	}
	if !h.IsStarted("2024-01-10") || !h.IsStarted("2024-02-01") {
		t.Error("habit should be started on and after its start date")
	}
}
