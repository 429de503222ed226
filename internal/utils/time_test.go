package utils

import (
	"testing"
	"time"

	"github.com/julianstephens/habitual/internal/models"
)

func TestLoadLocation(t *testing.T) {
	tests := []struct {
		name     string
		timezone string
		wantErr  bool
	}{
		{name: "empty string returns local", timezone: ""},
		{name: "Local returns local", timezone: "Local"},
		{name: "UTC", timezone: "UTC"},
		{name: "America/New_York", timezone: "America/New_York"},
		{name: "Asia/Tokyo", timezone: "Asia/Tokyo"},
		{name: "invalid timezone", timezone: "Invalid/Timezone", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := LoadLocation(tt.timezone)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadLocation() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && loc == nil {
				t.Error("LoadLocation() returned nil location without error")
			}
			if got := ValidateTimezone(tt.timezone); got == tt.wantErr {
				t.Errorf("ValidateTimezone(%q) = %v", tt.timezone, got)
			}
		})
	}
}

func TestTodayAt(t *testing.T) {
	// 2024-01-01 03:30 UTC is still New Year's Eve in New York.
	now := time.Date(2024, 1, 1, 3, 30, 0, 0, time.UTC)

	tests := []struct {
		timezone string
		want     string
	}{
		{timezone: "UTC", want: "2024-01-01"},
		{timezone: "America/New_York", want: "2023-12-31"},
		{timezone: "Asia/Tokyo", want: "2024-01-01"},
		{timezone: "Pacific/Kiritimati", want: "2024-01-01"},
	}

	for _, tt := range tests {
		t.Run(tt.timezone, func(t *testing.T) {
			got, err := TodayAt(now, tt.timezone)
			if err != nil {
				t.Fatalf("TodayAt() error = %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("TodayAt(%s) = %s, want %s", tt.timezone, got, tt.want)
			}
		})
	}

	if _, err := TodayAt(now, "Mars/Olympus"); err == nil {
		t.Error("expected error for unknown zone")
	}
}

func TestGetTodayFromSettings(t *testing.T) {
	got, err := GetTodayFromSettings(models.Settings{Timezone: "UTC"})
	if err != nil {
		t.Fatalf("GetTodayFromSettings() error = %v", err)
	}
	want := time.Now().UTC().Format("2006-01-02")
	// The day can roll over between the two reads.
	if got != want && got != time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02") {
		t.Errorf("GetTodayFromSettings() = %s, want %s", got, want)
	}

	if _, err := GetTodayInTimezone("Nope/Nope"); err == nil {
		t.Error("expected error for invalid timezone")
	}
}

func TestNowInTimezone(t *testing.T) {
	now, err := NowInTimezone("Asia/Tokyo")
	if err != nil {
		t.Fatalf("NowInTimezone() error = %v", err)
	}
	if now.Location().String() != "Asia/Tokyo" {
		t.Errorf("location = %s, want Asia/Tokyo", now.Location())
	}
}
