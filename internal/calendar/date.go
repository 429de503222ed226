// Package calendar implements the local-date and period arithmetic used by the
// habit engine. Dates carry no time of day and no time zone; every computation
// happens on UTC midnights purely so the Gregorian math is correct.
package calendar

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/julianstephens/habitual/internal/constants"
)

// ErrInvalidDate is returned when a string is not a well-formed YYYY-MM-DD date.
var ErrInvalidDate = errors.New("date must use YYYY-MM-DD format")

var localDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// LocalDate is a calendar date with no time-of-day component.
type LocalDate struct {
	t time.Time
}

// NewLocalDate builds a date from its parts. Out-of-range parts are normalized
// the same way time.Date normalizes them.
func NewLocalDate(year int, month time.Month, day int) LocalDate {
	return LocalDate{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// FromTime returns the calendar date of t in t's own location.
func FromTime(t time.Time) LocalDate {
	return NewLocalDate(t.Year(), t.Month(), t.Day())
}

// ParseLocalDate parses a YYYY-MM-DD string.
func ParseLocalDate(s string) (LocalDate, error) {
	if !localDatePattern.MatchString(s) {
		return LocalDate{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	t, err := time.Parse(constants.DateFormat, s)
	if err != nil {
		return LocalDate{}, fmt.Errorf("%w: %q is not a calendar date", ErrInvalidDate, s)
	}
	return LocalDate{t: t}, nil
}

// MustParseLocalDate is like ParseLocalDate but panics on error. Intended for
// constants and tests.
func MustParseLocalDate(s string) LocalDate {
	d, err := ParseLocalDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// ValidateLocalDate reports whether s is a well-formed local date.
func ValidateLocalDate(s string) error {
	_, err := ParseLocalDate(s)
	return err
}

func (d LocalDate) String() string {
	return d.t.Format(constants.DateFormat)
}

func (d LocalDate) IsZero() bool { return d.t.IsZero() }

func (d LocalDate) Year() int         { return d.t.Year() }
func (d LocalDate) Month() time.Month { return d.t.Month() }
func (d LocalDate) Day() int          { return d.t.Day() }

// AddDays moves the date by n calendar days, rolling months and years.
func (d LocalDate) AddDays(n int) LocalDate {
	return LocalDate{t: d.t.AddDate(0, 0, n)}
}

// Weekday returns the ISO weekday (Monday=1 ... Sunday=7).
func (d LocalDate) Weekday() Weekday {
	return ISOWeekday(d.t.Weekday())
}

// Compare returns -1, 0 or +1.
func (d LocalDate) Compare(other LocalDate) int {
	return d.t.Compare(other.t)
}

func (d LocalDate) Before(other LocalDate) bool { return d.Compare(other) < 0 }
func (d LocalDate) After(other LocalDate) bool  { return d.Compare(other) > 0 }
func (d LocalDate) Equal(other LocalDate) bool  { return d.Compare(other) == 0 }

func (d LocalDate) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *LocalDate) UnmarshalText(b []byte) error {
	parsed, err := ParseLocalDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// AddDays is the string form of LocalDate.AddDays.
func AddDays(date string, n int) (string, error) {
	d, err := ParseLocalDate(date)
	if err != nil {
		return "", err
	}
	return d.AddDays(n).String(), nil
}

// CompareLocalDates compares two YYYY-MM-DD strings. The format is fixed
// width, so a byte-wise comparison orders dates correctly.
func CompareLocalDates(a, b string) int {
	return strings.Compare(a, b)
}

// Weekday uses ISO numbering: Monday=1 ... Sunday=7.
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// ISOWeekday converts a time.Weekday (Sunday=0) to ISO numbering.
func ISOWeekday(wd time.Weekday) Weekday {
	if wd == time.Sunday {
		return Sunday
	}
	return Weekday(wd)
}

// Valid reports whether w is in [1,7].
func (w Weekday) Valid() bool {
	return w >= Monday && w <= Sunday
}

func (w Weekday) String() string {
	if !w.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(w))
	}
	return time.Weekday(int(w) % 7).String()
}
