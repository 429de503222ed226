package cli

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/julianstephens/habitual/internal/backup"
	"github.com/julianstephens/habitual/internal/calendar"
	"github.com/julianstephens/habitual/internal/config"
	"github.com/julianstephens/habitual/internal/habits"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/storage/jsonstore"
	"github.com/julianstephens/habitual/internal/storage/sqlite"
)

func TestParseWeekdays(t *testing.T) {
	tests := []struct {
		input   string
		want    []int
		wantErr bool
	}{
		{input: "", want: nil},
		{input: "mon,wed,fri", want: []int{1, 3, 5}},
		{input: "Monday, Sunday", want: []int{1, 7}},
		{input: "1,7", want: []int{1, 7}},
		{input: "sat,2", want: []int{6, 2}},
		{input: "0", wantErr: true},
		{input: "8", wantErr: true},
		{input: "funday", wantErr: true},
		{input: "mon,", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseWeekdays(tt.input)
			if tt.wantErr {
				if !errors.Is(err, habits.ErrValidation) {
					t.Fatalf("ParseWeekdays(%q) error = %v, want validation error", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseWeekdays(%q) unexpected error: %v", tt.input, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseWeekdays(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatFrequency(t *testing.T) {
	tests := []struct {
		name  string
		habit models.Habit
		want  string
	}{
		{"daily", models.Habit{FrequencyType: calendar.Daily, TargetCount: 1}, "daily"},
		{"weekly target", models.Habit{FrequencyType: calendar.Weekly, TargetCount: 3}, "3x weekly"},
		{"weekdays", models.Habit{FrequencyType: calendar.Daily, TargetCount: 1, SelectedWeekdays: []int{1, 3, 7}}, "daily on Mon,Wed,Sun"},
		{"monthly", models.Habit{FrequencyType: calendar.Monthly, TargetCount: 2}, "2x monthly"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatFrequency(tt.habit); got != tt.want {
				t.Errorf("FormatFrequency() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestContextToday(t *testing.T) {
	store := jsonstore.NewStore(filepath.Join(t.TempDir(), "habitual.json"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}

	ctx := NewContext(store, nil)

	ctx.TodayOverride = "2024-02-29"
	today, err := ctx.Today()
	if err != nil || today != "2024-02-29" {
		t.Errorf("Today() = %q, %v; want override", today, err)
	}

	ctx.TodayOverride = "2024-02-30"
	if _, err := ctx.Today(); !errors.Is(err, habits.ErrValidation) {
		t.Errorf("expected validation error for bad override, got %v", err)
	}

	ctx.TodayOverride = ""
	today, err = ctx.Today()
	if err != nil {
		t.Fatalf("Today() failed: %v", err)
	}
	if err := calendar.ValidateLocalDate(today); err != nil {
		t.Errorf("Today() returned malformed date %q", today)
	}

	ctx.Config = &config.Config{Timezone: "Not/AZone"}
	if _, err := ctx.Today(); err == nil {
		t.Error("expected error for invalid configured timezone")
	}
}

func TestPerformAutomaticBackup(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "habitual.db")
	store := sqlite.NewStore(dbPath)
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	defer store.Close()

	NewContext(store, nil).PerformAutomaticBackup()

	backups, err := backup.NewManager(dbPath).List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(backups) != 1 {
		t.Errorf("expected 1 automatic backup, got %d", len(backups))
	}
}

func TestPerformAutomaticBackup_SkipsJSONStore(t *testing.T) {
	dir := t.TempDir()
	store := jsonstore.NewStore(filepath.Join(dir, "habitual.json"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}

	NewContext(store, nil).PerformAutomaticBackup()

	if _, err := os.Stat(filepath.Join(dir, "backups")); !os.IsNotExist(err) {
		t.Errorf("expected no backup directory for JSON store, stat err = %v", err)
	}
}
