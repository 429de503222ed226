package utils

import (
	"fmt"
	"time"

	"github.com/julianstephens/habitual/internal/calendar"
	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/models"
)

// LoadLocation resolves an IANA zone name. "" and "Local" mean the system zone.
func LoadLocation(timezone string) (*time.Location, error) {
	if timezone == "" || timezone == constants.DefaultTimezone {
		return time.Local, nil
	}
	return time.LoadLocation(timezone)
}

func ValidateTimezone(timezone string) bool {
	_, err := LoadLocation(timezone)
	return err == nil
}

// NowInTimezone returns the current time in the given zone.
func NowInTimezone(timezone string) (time.Time, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return time.Now().In(loc), nil
}

// TodayAt is the local date of now as observed in timezone. Callers decide
// what "today" is; the habit engine never reads the clock itself.
func TodayAt(now time.Time, timezone string) (calendar.LocalDate, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return calendar.LocalDate{}, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return calendar.FromTime(now.In(loc)), nil
}

// GetTodayInTimezone returns today's YYYY-MM-DD date in timezone.
func GetTodayInTimezone(timezone string) (string, error) {
	today, err := TodayAt(time.Now(), timezone)
	if err != nil {
		return "", err
	}
	return today.String(), nil
}

func GetTodayFromSettings(settings models.Settings) (string, error) {
	return GetTodayInTimezone(settings.Timezone)
}
