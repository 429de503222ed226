package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodKeyForDate(t *testing.T) {
	tests := []struct {
		date string
		freq Frequency
		want string
	}{
		{"2024-03-15", Daily, "D:2024-03-15"},
		{"2024-03-15", Monthly, "M:2024-03"},
		{"2024-12-30", Weekly, "W:2025-W01"},
		{"2024-01-01", Weekly, "W:2024-W01"},
		{"2021-01-03", Weekly, "W:2020-W53"},
		{"2027-01-01", Weekly, "W:2026-W53"},
		{"2026-12-31", Weekly, "W:2026-W53"},
		{"2023-01-01", Weekly, "W:2022-W52"},
		{"2025-12-29", Weekly, "W:2026-W01"},
	}

	for _, tt := range tests {
		t.Run(tt.date+"/"+string(tt.freq), func(t *testing.T) {
			got := PeriodKeyForDate(MustParseLocalDate(tt.date), tt.freq)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestISOWeekMatchesStdlib(t *testing.T) {
	d := MustParseLocalDate("2015-01-01")
	end := MustParseLocalDate("2035-12-31")
	for ; !d.After(end); d = d.AddDays(1) {
		year, week := ISOWeek(d)
		wantYear, wantWeek := d.t.ISOWeek()
		require.Equal(t, wantYear, year, "iso year for %s", d)
		require.Equal(t, wantWeek, week, "iso week for %s", d)
	}
}

func TestPeriodRoundTrip(t *testing.T) {
	d := MustParseLocalDate("2019-12-01")
	end := MustParseLocalDate("2027-02-01")
	for ; !d.After(end); d = d.AddDays(1) {
		for _, f := range []Frequency{Daily, Weekly, Monthly} {
			key := PeriodKeyForDate(d, f)
			require.True(t, key.Contains(d), "%s should contain %s", key, d)
			require.False(t, key.EndDate().Before(d), "end of %s before %s", key, d)

			parsed, err := ParsePeriodKey(key.String())
			require.NoError(t, err)
			require.Equal(t, key.String(), parsed.String())

			prev := key.Previous()
			require.Equal(t, key.StartDate().AddDays(-1).String(), prev.EndDate().String(),
				"previous of %s should end the day before it starts", key)
			require.Equal(t, prev.String(), PeriodKeyForDate(prev.EndDate(), f).String())
		}
	}
}

func TestPreviousPeriodKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"D:2024-03-01", "D:2024-02-29"},
		{"D:2025-01-01", "D:2024-12-31"},
		{"M:2024-01", "M:2023-12"},
		{"M:2024-10", "M:2024-09"},
		{"W:2024-W10", "W:2024-W09"},
		{"W:2021-W01", "W:2020-W53"},
		{"W:2025-W01", "W:2024-W52"},
	}
	for _, tt := range tests {
		got, err := PreviousPeriodKey(tt.key)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "previous of %s", tt.key)
	}
}

func TestPeriodEndDate(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"D:2024-05-05", "2024-05-05"},
		{"M:2024-02", "2024-02-29"},
		{"M:2023-02", "2023-02-28"},
		{"M:2024-12", "2024-12-31"},
		{"W:2025-W01", "2025-01-05"},
		{"W:2020-W53", "2021-01-03"},
	}
	for _, tt := range tests {
		got, err := PeriodEndDate(tt.key)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "end of %s", tt.key)
	}
}

func TestParsePeriodKeyErrors(t *testing.T) {
	for _, bad := range []string{"", "X:2024", "D:2024-1-1", "M:2024-13", "M:24-01", "W:2024-53", "W:2024-W54", "W:2023-W53", "W:2024-W00"} {
		_, err := ParsePeriodKey(bad)
		assert.ErrorIs(t, err, ErrInvalidPeriodKey, "input %q", bad)
	}
}

func TestIsOpen(t *testing.T) {
	week := PeriodKeyForDate(MustParseLocalDate("2024-01-03"), Weekly)
	assert.True(t, week.IsOpen(MustParseLocalDate("2024-01-03")))
	assert.True(t, week.IsOpen(MustParseLocalDate("2024-01-07")))
	assert.False(t, week.IsOpen(MustParseLocalDate("2024-01-08")))

	month := MonthlyKey(2024, time.February)
	assert.True(t, month.IsOpen(MustParseLocalDate("2024-02-29")))
	assert.False(t, month.IsOpen(MustParseLocalDate("2024-03-01")))
}

func TestParseFrequency(t *testing.T) {
	f, err := ParseFrequency(" Weekly ")
	require.NoError(t, err)
	assert.Equal(t, Weekly, f)

	_, err = ParseFrequency("yearly")
	assert.ErrorIs(t, err, ErrInvalidFrequency)
}

func TestStringHelpers(t *testing.T) {
	start, err := PeriodStartDate("W:2025-W01")
	require.NoError(t, err)
	assert.Equal(t, "2024-12-30", start)

	open, err := IsPeriodOpen("M:2024-02", "2024-02-29")
	require.NoError(t, err)
	assert.True(t, open)

	open, err = IsPeriodOpen("M:2024-02", "2024-03-01")
	require.NoError(t, err)
	assert.False(t, open)

	_, err = IsPeriodOpen("X:2024", "2024-03-01")
	assert.ErrorIs(t, err, ErrInvalidPeriodKey)

	_, err = IsPeriodOpen("M:2024-02", "2024-3-1")
	assert.ErrorIs(t, err, ErrInvalidDate)
}
