package calendar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidPeriodKey is returned when a serialized period key cannot be parsed.
var ErrInvalidPeriodKey = errors.New("invalid period key")

// ErrInvalidFrequency is returned for an unknown frequency name.
var ErrInvalidFrequency = errors.New("frequency must be one of daily, weekly, monthly")

// Frequency is the period granularity of a habit.
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// ParseFrequency accepts daily, weekly or monthly (case-insensitive).
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidFrequency, s)
	}
	return f, nil
}

func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly:
		return true
	}
	return false
}

// PeriodKind tags which fields of a PeriodKey are meaningful.
type PeriodKind uint8

const (
	KindDaily PeriodKind = iota + 1
	KindWeekly
	KindMonthly
)

// PeriodKey identifies a single day, ISO week or calendar month.
//
// Daily keys use Date. Weekly keys use Year (the ISO year) and Week. Monthly
// keys use Year and Month. The string form ("D:2024-01-31", "W:2025-W01",
// "M:2024-02") is what gets persisted.
type PeriodKey struct {
	Kind  PeriodKind
	Date  LocalDate
	Year  int
	Week  int
	Month time.Month
}

// DailyKey returns the key for a single day.
func DailyKey(d LocalDate) PeriodKey {
	return PeriodKey{Kind: KindDaily, Date: d}
}

// WeeklyKey returns the key for an ISO week.
func WeeklyKey(isoYear, isoWeek int) PeriodKey {
	return PeriodKey{Kind: KindWeekly, Year: isoYear, Week: isoWeek}
}

// MonthlyKey returns the key for a calendar month.
func MonthlyKey(year int, month time.Month) PeriodKey {
	return PeriodKey{Kind: KindMonthly, Year: year, Month: month}
}

func (k PeriodKey) String() string {
	switch k.Kind {
	case KindDaily:
		return "D:" + k.Date.String()
	case KindWeekly:
		return fmt.Sprintf("W:%04d-W%02d", k.Year, k.Week)
	case KindMonthly:
		return fmt.Sprintf("M:%04d-%02d", k.Year, int(k.Month))
	}
	return ""
}

// ParsePeriodKey parses the persisted string form of a key.
func ParsePeriodKey(s string) (PeriodKey, error) {
	prefix, value, ok := strings.Cut(s, ":")
	if !ok {
		return PeriodKey{}, fmt.Errorf("%w: %q", ErrInvalidPeriodKey, s)
	}
	switch prefix {
	case "D":
		d, err := ParseLocalDate(value)
		if err != nil {
			return PeriodKey{}, fmt.Errorf("%w: %q: %v", ErrInvalidPeriodKey, s, err)
		}
		return DailyKey(d), nil
	case "M":
		yearPart, monthPart, ok := strings.Cut(value, "-")
		if !ok || len(yearPart) != 4 || len(monthPart) != 2 {
			return PeriodKey{}, fmt.Errorf("%w: %q", ErrInvalidPeriodKey, s)
		}
		year, err1 := strconv.Atoi(yearPart)
		month, err2 := strconv.Atoi(monthPart)
		if err1 != nil || err2 != nil || month < 1 || month > 12 {
			return PeriodKey{}, fmt.Errorf("%w: %q", ErrInvalidPeriodKey, s)
		}
		return MonthlyKey(year, time.Month(month)), nil
	case "W":
		yearPart, weekPart, ok := strings.Cut(value, "-W")
		if !ok || len(yearPart) != 4 || len(weekPart) != 2 {
			return PeriodKey{}, fmt.Errorf("%w: %q", ErrInvalidPeriodKey, s)
		}
		year, err1 := strconv.Atoi(yearPart)
		week, err2 := strconv.Atoi(weekPart)
		if err1 != nil || err2 != nil || week < 1 || week > isoWeeksInYear(year) {
			return PeriodKey{}, fmt.Errorf("%w: %q", ErrInvalidPeriodKey, s)
		}
		return WeeklyKey(year, week), nil
	}
	return PeriodKey{}, fmt.Errorf("%w: %q", ErrInvalidPeriodKey, s)
}

// ISOWeek returns the ISO 8601 year and week of d. The week belongs to the
// year of its Thursday, and week 1 is the week containing January 4th.
func ISOWeek(d LocalDate) (year, week int) {
	thursday := d.AddDays(int(Thursday - d.Weekday()))
	year = thursday.Year()
	diff := thursday.t.Sub(week1Monday(year).t)
	week = int(diff.Hours()/24)/7 + 1
	return year, week
}

func week1Monday(isoYear int) LocalDate {
	jan4 := NewLocalDate(isoYear, time.January, 4)
	return jan4.AddDays(-int(jan4.Weekday() - Monday))
}

// MondayOfISOWeek returns the Monday that starts the given ISO week.
func MondayOfISOWeek(isoYear, isoWeek int) LocalDate {
	return week1Monday(isoYear).AddDays((isoWeek - 1) * 7)
}

// isoWeeksInYear is 52 or 53. December 28th always falls in the final ISO
// week of its year.
func isoWeeksInYear(year int) int {
	_, week := ISOWeek(NewLocalDate(year, time.December, 28))
	return week
}

// PeriodKeyForDate maps a date to the period it falls in for frequency f.
func PeriodKeyForDate(d LocalDate, f Frequency) PeriodKey {
	switch f {
	case Monthly:
		return MonthlyKey(d.Year(), d.Month())
	case Weekly:
		return WeeklyKey(ISOWeek(d))
	default:
		return DailyKey(d)
	}
}

// Previous returns the period immediately before k, of the same kind.
func (k PeriodKey) Previous() PeriodKey {
	switch k.Kind {
	case KindMonthly:
		if k.Month == time.January {
			return MonthlyKey(k.Year-1, time.December)
		}
		return MonthlyKey(k.Year, k.Month-1)
	case KindWeekly:
		if k.Week > 1 {
			return WeeklyKey(k.Year, k.Week-1)
		}
		return WeeklyKey(k.Year-1, isoWeeksInYear(k.Year-1))
	default:
		return DailyKey(k.Date.AddDays(-1))
	}
}

// PreviousPeriodKey is the string form of PeriodKey.Previous.
func PreviousPeriodKey(key string) (string, error) {
	k, err := ParsePeriodKey(key)
	if err != nil {
		return "", err
	}
	return k.Previous().String(), nil
}

// StartDate is the first calendar day of the period.
func (k PeriodKey) StartDate() LocalDate {
	switch k.Kind {
	case KindMonthly:
		return NewLocalDate(k.Year, k.Month, 1)
	case KindWeekly:
		return MondayOfISOWeek(k.Year, k.Week)
	default:
		return k.Date
	}
}

// EndDate is the last calendar day of the period.
func (k PeriodKey) EndDate() LocalDate {
	switch k.Kind {
	case KindMonthly:
		return NewLocalDate(k.Year, k.Month+1, 1).AddDays(-1)
	case KindWeekly:
		return MondayOfISOWeek(k.Year, k.Week).AddDays(6)
	default:
		return k.Date
	}
}

// PeriodEndDate is the string form of PeriodKey.EndDate.
func PeriodEndDate(key string) (string, error) {
	k, err := ParsePeriodKey(key)
	if err != nil {
		return "", err
	}
	return k.EndDate().String(), nil
}

// Contains reports whether d falls within the period.
func (k PeriodKey) Contains(d LocalDate) bool {
	return !d.Before(k.StartDate()) && !d.After(k.EndDate())
}

// IsOpen reports whether the period has not fully elapsed as of today.
func (k PeriodKey) IsOpen(today LocalDate) bool {
	return !k.EndDate().Before(today)
}

// PeriodStartDate is the string form of PeriodKey.StartDate.
func PeriodStartDate(key string) (string, error) {
	k, err := ParsePeriodKey(key)
	if err != nil {
		return "", err
	}
	return k.StartDate().String(), nil
}

// IsPeriodOpen reports whether the period named by key ends on or after today.
func IsPeriodOpen(key, today string) (bool, error) {
	end, err := PeriodEndDate(key)
	if err != nil {
		return false, err
	}
	if err := ValidateLocalDate(today); err != nil {
		return false, err
	}
	return CompareLocalDates(end, today) >= 0, nil
}
