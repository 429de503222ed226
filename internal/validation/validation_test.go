package validation

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/julianstephens/habitual/internal/calendar"
	"github.com/julianstephens/habitual/internal/models"
)

func TestValidateHabitInput(t *testing.T) {
	valid := HabitInput{
		Name:          "Read",
		StartDate:     "2024-01-01",
		FrequencyType: calendar.Daily,
		TargetCount:   1,
	}

	tests := []struct {
		name    string
		modify  func(in *HabitInput)
		want    []int
		wantErr string
	}{
		{name: "valid without weekdays", modify: func(in *HabitInput) {}},
		{
			name:   "weekdays sorted and deduplicated",
			modify: func(in *HabitInput) { in.SelectedWeekdays = []int{5, 1, 3, 1} },
			want:   []int{1, 3, 5},
		},
		{
			name:   "empty weekdays become nil",
			modify: func(in *HabitInput) { in.SelectedWeekdays = []int{} },
		},
		{
			name:    "blank name",
			modify:  func(in *HabitInput) { in.Name = "   " },
			wantErr: "name is required",
		},
		{
			name:    "malformed start date",
			modify:  func(in *HabitInput) { in.StartDate = "2024/01/01" },
			wantErr: "start date",
		},
		{
			name:    "unknown frequency",
			modify:  func(in *HabitInput) { in.FrequencyType = "yearly" },
			wantErr: "frequency",
		},
		{
			name:    "zero target",
			modify:  func(in *HabitInput) { in.TargetCount = 0 },
			wantErr: "target count",
		},
		{
			name:    "weekday out of range",
			modify:  func(in *HabitInput) { in.SelectedWeekdays = []int{0, 2} },
			wantErr: "between 1 and 7",
		},
		{
			name: "weekdays on weekly habit",
			modify: func(in *HabitInput) {
				in.FrequencyType = calendar.Weekly
				in.SelectedWeekdays = []int{1}
			},
			wantErr: "only supported for daily",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.modify(&in)
			got, err := ValidateHabitInput(in)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				if !errors.Is(err, ErrInvalidInput) {
					t.Errorf("expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("weekdays = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateCompletions(t *testing.T) {
	habit := models.Habit{
		ID:               "h1",
		Name:             "Stretch",
		StartDate:        "2024-01-01",
		FrequencyType:    calendar.Daily,
		TargetCount:      1,
		SelectedWeekdays: []int{1, 3, 5},
	}

	t.Run("clean data", func(t *testing.T) {
		result := New().ValidateCompletions(habit, []models.HabitCompletion{
			{ID: "c1", LocalDate: "2024-01-01", PeriodKey: "D:2024-01-01", Count: 1, IsStreakEligible: true},
			{ID: "c2", LocalDate: "2024-01-02", PeriodKey: "D:2024-01-02", Count: 1, IsStreakEligible: false},
		})
		if result.HasConflicts() {
			t.Fatalf("expected no conflicts, got:\n%s", result.FormatReport())
		}
		if result.FormatReport() != "No conflicts detected." {
			t.Errorf("unexpected report: %q", result.FormatReport())
		}
	})

	t.Run("every problem reported", func(t *testing.T) {
		result := New().ValidateCompletions(habit, []models.HabitCompletion{
			{ID: "bad", LocalDate: "2024-13-01", PeriodKey: "D:2024-13-01", Count: 1},
			{ID: "key", LocalDate: "2024-01-03", PeriodKey: "W:2024-W01", Count: 1, IsStreakEligible: true},
			{ID: "zero", LocalDate: "2024-01-05", PeriodKey: "D:2024-01-05", Count: 0, IsStreakEligible: true},
			{ID: "early", LocalDate: "2023-12-29", PeriodKey: "D:2023-12-29", Count: 1, IsStreakEligible: true},
			{ID: "tue", LocalDate: "2024-01-09", PeriodKey: "D:2024-01-09", Count: 1, IsStreakEligible: true},
			{ID: "dup1", LocalDate: "2024-01-08", PeriodKey: "D:2024-01-08", Count: 1, IsStreakEligible: true},
			{ID: "dup2", LocalDate: "2024-01-08", PeriodKey: "D:2024-01-08", Count: 1, IsStreakEligible: true},
		})

		got := make(map[ConflictType]int)
		for _, c := range result.Conflicts {
			got[c.Type]++
		}
		want := map[ConflictType]int{
			ConflictInvalidDate:        1,
			ConflictPeriodKeyMismatch:  1,
			ConflictNonPositiveCount:   1,
			ConflictBeforeStart:        1,
			ConflictInvalidEligibility: 1,
			ConflictOverTarget:         1,
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("conflict counts = %v, want %v", got, want)
		}

		report := result.FormatReport()
		if !strings.HasPrefix(report, "Conflicts detected:\n") {
			t.Errorf("unexpected report header: %q", report)
		}
	})
}
