package habits

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/julianstephens/habitual/internal/calendar"
	"github.com/julianstephens/habitual/internal/models"
)

func done(habit models.Habit, date string) models.HabitCompletion {
	d := calendar.MustParseLocalDate(date)
	return models.HabitCompletion{
		HabitID:          habit.ID,
		LocalDate:        date,
		PeriodKey:        calendar.PeriodKeyForDate(d, habit.FrequencyType).String(),
		Count:            1,
		IsStreakEligible: IsStreakEligible(habit, d),
	}
}

func doneAll(habit models.Habit, dates ...string) []models.HabitCompletion {
	var out []models.HabitCompletion
	for _, date := range dates {
		out = append(out, done(habit, date))
	}
	return out
}

func dailyHabit(weekdays ...int) models.Habit {
	return models.Habit{
		ID:               "h",
		Name:             "Daily",
		StartDate:        "2024-01-01",
		FrequencyType:    calendar.Daily,
		TargetCount:      1,
		SelectedWeekdays: weekdays,
		Status:           models.StatusActive,
	}
}

func TestDailyStreak(t *testing.T) {
	unrestricted := dailyHabit()
	mwf := dailyHabit(1, 3, 5) // 2024-01-01 is a Monday

	tests := []struct {
		name        string
		habit       models.Habit
		completions []models.HabitCompletion
		today       string
		want        int
	}{
		{
			name:        "today pending does not break the chain",
			habit:       unrestricted,
			completions: doneAll(unrestricted, "2024-01-01", "2024-01-02", "2024-01-03"),
			today:       "2024-01-04",
			want:        3,
		},
		{
			name:        "gap stops the walk",
			habit:       unrestricted,
			completions: doneAll(unrestricted, "2024-01-01", "2024-01-03"),
			today:       "2024-01-04",
			want:        1,
		},
		{
			name:        "today met counts",
			habit:       unrestricted,
			completions: doneAll(unrestricted, "2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04"),
			today:       "2024-01-04",
			want:        4,
		},
		{
			name:        "missed yesterday",
			habit:       unrestricted,
			completions: doneAll(unrestricted, "2024-01-01", "2024-01-02"),
			today:       "2024-01-04",
			want:        0,
		},
		{
			name:        "walk stops at start date",
			habit:       unrestricted,
			completions: doneAll(unrestricted, "2023-12-30", "2023-12-31", "2024-01-01"),
			today:       "2024-01-02",
			want:        1,
		},
		{
			name:        "before start date",
			habit:       unrestricted,
			completions: nil,
			today:       "2023-12-31",
			want:        0,
		},
		{
			name:        "non-required days are skipped",
			habit:       mwf,
			completions: doneAll(mwf, "2024-01-01", "2024-01-03", "2024-01-05"),
			today:       "2024-01-06",
			want:        3,
		},
		{
			name:        "non-required today does not push the cursor back",
			habit:       mwf,
			completions: doneAll(mwf, "2024-01-05"),
			today:       "2024-01-07",
			want:        1,
		},
		{
			name:        "ineligible tuesday cannot stand in for a missed wednesday",
			habit:       mwf,
			completions: doneAll(mwf, "2024-01-01", "2024-01-02", "2024-01-05"),
			today:       "2024-01-06",
			want:        1,
		},
		{
			name:  "target above one needs every unit eligible",
			habit: models.Habit{StartDate: "2024-01-01", FrequencyType: calendar.Daily, TargetCount: 2},
			completions: []models.HabitCompletion{
				{LocalDate: "2024-01-01", Count: 1, IsStreakEligible: true},
				{LocalDate: "2024-01-01", Count: 1, IsStreakEligible: true},
				{LocalDate: "2024-01-02", Count: 1, IsStreakEligible: true},
				{LocalDate: "2024-01-02", Count: 1, IsStreakEligible: false},
			},
			today: "2024-01-03",
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DailyStreak(tt.habit, tt.completions, calendar.MustParseLocalDate(tt.today))
			if got != tt.want {
				t.Errorf("DailyStreak() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPeriodStreak(t *testing.T) {
	weekly := models.Habit{
		ID:            "w",
		StartDate:     "2024-01-01",
		FrequencyType: calendar.Weekly,
		TargetCount:   3,
	}
	monthly := models.Habit{
		ID:            "m",
		StartDate:     "2024-01-15",
		FrequencyType: calendar.Monthly,
		TargetCount:   1,
	}

	// W01 = Jan 1-7, W02 = Jan 8-14, W03 = Jan 15-21 (2024)
	twoFullWeeks := doneAll(weekly,
		"2024-01-01", "2024-01-02", "2024-01-03",
		"2024-01-08", "2024-01-10", "2024-01-14",
	)

	tests := []struct {
		name        string
		habit       models.Habit
		completions []models.HabitCompletion
		today       string
		want        int
	}{
		{
			name:        "open incomplete week keeps prior weeks",
			habit:       weekly,
			completions: append(doneAll(weekly, "2024-01-15"), twoFullWeeks...),
			today:       "2024-01-17",
			want:        2,
		},
		{
			name:        "open incomplete week on its last day",
			habit:       weekly,
			completions: twoFullWeeks,
			today:       "2024-01-21",
			want:        2,
		},
		{
			name:  "completed current week counts",
			habit: weekly,
			completions: append(doneAll(weekly, "2024-01-15", "2024-01-16", "2024-01-17"),
				twoFullWeeks...),
			today: "2024-01-17",
			want:  3,
		},
		{
			name:  "missed week breaks the chain",
			habit: weekly,
			completions: append(doneAll(weekly, "2024-01-22", "2024-01-23", "2024-01-24"),
				doneAll(weekly, "2024-01-01", "2024-01-02", "2024-01-03")...),
			today: "2024-01-24",
			want:  1,
		},
		{
			name: "ineligible completions do not count",
			habit: models.Habit{
				ID: "w", StartDate: "2024-01-01", FrequencyType: calendar.Weekly, TargetCount: 1,
			},
			completions: []models.HabitCompletion{{
				LocalDate: "2024-01-15", PeriodKey: "W:2024-W03", Count: 1, IsStreakEligible: false,
			}},
			today: "2024-01-16",
			want:  0,
		},
		{
			name:        "monthly walk stops at start",
			habit:       monthly,
			completions: doneAll(monthly, "2024-01-20", "2024-02-03", "2024-03-05"),
			today:       "2024-03-10",
			want:        3,
		},
		{
			name:        "monthly open month keeps prior months",
			habit:       monthly,
			completions: doneAll(monthly, "2024-01-20", "2024-02-03", "2024-03-05", "2024-04-30", "2024-05-01"),
			today:       "2024-06-01",
			want:        5,
		},
		{
			name:        "open week after a missed week",
			habit:       weekly,
			completions: append(doneAll(weekly, "2024-01-22"), doneAll(weekly, "2024-01-01", "2024-01-02", "2024-01-03")...),
			today:       "2024-01-23",
			want:        0,
		},
		{
			name:        "monthly before start",
			habit:       monthly,
			completions: nil,
			today:       "2024-01-10",
			want:        0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Streak(tt.habit, tt.completions, calendar.MustParseLocalDate(tt.today))
			if got != tt.want {
				t.Errorf("Streak() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWeeklyStreakAcrossISOYear(t *testing.T) {
	habit := models.Habit{StartDate: "2020-12-01", FrequencyType: calendar.Weekly, TargetCount: 1}
	// W:2020-W52, W:2020-W53, W:2021-W01, W:2021-W02
	completions := doneAll(habit, "2020-12-21", "2020-12-29", "2021-01-05", "2021-01-11")

	got := Streak(habit, completions, calendar.MustParseLocalDate("2021-01-12"))
	if got != 4 {
		t.Errorf("Streak() = %d, want 4", got)
	}
}

func TestCurrentProgress(t *testing.T) {
	mwf := dailyHabit(1, 3, 5)
	completions := doneAll(mwf, "2024-01-02", "2024-01-02", "2024-01-03")

	// ineligible completions still count as progress
	if got := CurrentProgress(mwf, completions, calendar.MustParseLocalDate("2024-01-02")); got != 2 {
		t.Errorf("daily progress = %d, want 2", got)
	}

	monthly := models.Habit{StartDate: "2024-01-01", FrequencyType: calendar.Monthly, TargetCount: 5}
	monthCompletions := doneAll(monthly, "2024-01-31", "2024-02-01", "2024-02-15")
	if got := CurrentProgress(monthly, monthCompletions, calendar.MustParseLocalDate("2024-02-29")); got != 2 {
		t.Errorf("monthly progress = %d, want 2", got)
	}
}

func TestComputeStats(t *testing.T) {
	habit := dailyHabit()
	category := &models.Category{ID: "c1", Name: "health", DisplayName: "Health"}
	completions := doneAll(habit, "2024-01-01", "2024-01-02")

	got := ComputeStats(habit, category, completions, calendar.MustParseLocalDate("2024-01-02"))
	want := models.HabitWithStats{
		Habit:                       habit,
		Category:                    &models.CategoryRef{ID: "c1", Name: "Health"},
		CurrentPeriodProgress:       1,
		Streak:                      2,
		IsStarted:                   true,
		CanCompleteToday:            false,
		IsCompletedForCurrentPeriod: true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ComputeStats() mismatch (-want +got):\n%s", diff)
	}

	archived := habit
	archived.Status = models.StatusArchived
	stats := ComputeStats(archived, nil, nil, calendar.MustParseLocalDate("2024-01-03"))
	if stats.CanCompleteToday {
		t.Error("archived habits cannot be completed")
	}
	if stats.Category != nil {
		t.Error("expected nil category")
	}

	notStarted := ComputeStats(habit, nil, nil, calendar.MustParseLocalDate("2023-12-31"))
	if notStarted.IsStarted || notStarted.CanCompleteToday {
		t.Errorf("habit should not be started: %+v", notStarted)
	}
}
