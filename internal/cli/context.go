package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/julianstephens/habitual/internal/backup"
	"github.com/julianstephens/habitual/internal/calendar"
	"github.com/julianstephens/habitual/internal/config"
	"github.com/julianstephens/habitual/internal/habits"
	"github.com/julianstephens/habitual/internal/logger"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/storage"
	"github.com/julianstephens/habitual/internal/storage/sqlite"
	"github.com/julianstephens/habitual/internal/utils"
)

type Context struct {
	Store   storage.Provider
	Service *habits.Service
	Config  *config.Config

	// TodayOverride replaces the clock-derived local date when set.
	TodayOverride string

	Out io.Writer
	In  io.Reader
}

// NewContext wires a habit service over store.
func NewContext(store storage.Provider, cfg *config.Config) *Context {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Context{
		Store:   store,
		Service: habits.NewService(store, nil, nil),
		Config:  cfg,
	}
}

func (c *Context) Stdout() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

func (c *Context) Stdin() io.Reader {
	if c.In == nil {
		return os.Stdin
	}
	return c.In
}

// Today returns the local date commands operate on. A timezone in the config
// file takes precedence over the stored setting.
func (c *Context) Today() (string, error) {
	if c.TodayOverride != "" {
		if err := calendar.ValidateLocalDate(c.TodayOverride); err != nil {
			return "", fmt.Errorf("%w: --today: %v", habits.ErrValidation, err)
		}
		return c.TodayOverride, nil
	}

	if c.Config != nil && c.Config.Timezone != "" {
		return utils.GetTodayInTimezone(c.Config.Timezone)
	}

	settings, err := c.Store.GetSettings()
	if err != nil {
		return "", fmt.Errorf("failed to get settings: %w", err)
	}
	return utils.GetTodayFromSettings(settings)
}

// PerformAutomaticBackup creates a backup of SQLite stores and only logs failures.
func (c *Context) PerformAutomaticBackup() {
	if _, ok := c.Store.(*sqlite.Store); !ok {
		return
	}
	mgr := backup.NewManager(c.Store.GetConfigPath())
	if _, err := mgr.Create(); err != nil {
		logger.Warn("Automatic backup failed", "error", err)
	}
}

var weekdayNames = map[string]calendar.Weekday{
	"mon":       calendar.Monday,
	"monday":    calendar.Monday,
	"tue":       calendar.Tuesday,
	"tuesday":   calendar.Tuesday,
	"wed":       calendar.Wednesday,
	"wednesday": calendar.Wednesday,
	"thu":       calendar.Thursday,
	"thursday":  calendar.Thursday,
	"fri":       calendar.Friday,
	"friday":    calendar.Friday,
	"sat":       calendar.Saturday,
	"saturday":  calendar.Saturday,
	"sun":       calendar.Sunday,
	"sunday":    calendar.Sunday,
}

// ParseWeekdays parses a comma-separated list of weekday names or ISO
// numbers (1=Monday, 7=Sunday). An empty string yields no weekdays.
func ParseWeekdays(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	var weekdays []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		if wd, ok := weekdayNames[part]; ok {
			weekdays = append(weekdays, int(wd))
			continue
		}
		num, err := strconv.Atoi(part)
		if err != nil || !calendar.Weekday(num).Valid() {
			return nil, fmt.Errorf("%w: invalid weekday: %q", habits.ErrValidation, part)
		}
		weekdays = append(weekdays, num)
	}
	return weekdays, nil
}

// FormatFrequency renders a habit's cadence, e.g. "2x weekly" or "daily on Mon,Wed".
func FormatFrequency(h models.Habit) string {
	out := string(h.FrequencyType)
	if h.TargetCount > 1 {
		out = fmt.Sprintf("%dx %s", h.TargetCount, out)
	}
	if len(h.SelectedWeekdays) > 0 {
		days := make([]string, 0, len(h.SelectedWeekdays))
		for _, wd := range h.SelectedWeekdays {
			days = append(days, calendar.Weekday(wd).String()[:3])
		}
		out += " on " + strings.Join(days, ",")
	}
	return out
}
