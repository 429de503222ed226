package system

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/habitual/internal/backup"
	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/storage"
	"github.com/julianstephens/habitual/internal/storage/sqlite"
	"github.com/julianstephens/habitual/internal/utils"
	"github.com/julianstephens/habitual/internal/validation"
)

// skipped is returned by checks that do not apply to the current backend.
type skipped string

func (s skipped) Error() string { return string(s) }

type doctorCheck struct {
	name string
	// needsDB checks are skipped when the database could not be loaded.
	needsDB bool
	// warnOnly failures are reported but do not fail the run.
	warnOnly bool
	run      func(ctx *cli.Context) error
}

var doctorChecks = []doctorCheck{
	{name: "Schema version", needsDB: true, run: checkSchemaVersion},
	{name: "Migrations complete", needsDB: true, run: checkMigrationsComplete},
	{name: "Backups present", warnOnly: true, run: checkBackupsPresent},
	{name: "Habit integrity", needsDB: true, run: checkHabitsIntegrity},
	{name: "Completion validation", needsDB: true, run: checkCompletions},
	{name: "Timezone setting", needsDB: true, run: checkTimezoneSetting},
	{name: "Clock/timezone", run: func(*cli.Context) error { return checkClock(time.Now()) }},
}

type DoctorCmd struct{}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	out := ctx.Stdout()
	fmt.Fprintln(out, "Running diagnostics...")
	fmt.Fprintln(out)

	hasError := false
	dbReachable := true
	if err := ctx.Store.Load(); err != nil {
		fmt.Fprintln(out, "❌ Database reachable: FAIL")
		fmt.Fprintf(out, "   Error: %v\n", err)
		hasError = true
		dbReachable = false
	} else {
		fmt.Fprintln(out, "✓ Database reachable: OK")
	}

	for _, check := range doctorChecks {
		if check.needsDB && !dbReachable {
			fmt.Fprintf(out, "⊘ %s: SKIPPED (database not reachable)\n", check.name)
			continue
		}
		err := check.run(ctx)
		var skip skipped
		switch {
		case err == nil:
			fmt.Fprintf(out, "✓ %s: OK\n", check.name)
		case errors.As(err, &skip):
			fmt.Fprintf(out, "⊘ %s: SKIPPED (%s)\n", check.name, skip)
		case check.warnOnly:
			fmt.Fprintf(out, "⚠ %s: WARNING\n", check.name)
			fmt.Fprintf(out, "   %v\n", err)
		default:
			fmt.Fprintf(out, "❌ %s: FAIL\n", check.name)
			fmt.Fprintf(out, "   Error: %v\n", err)
			hasError = true
		}
	}

	fmt.Fprintln(out)
	if hasError {
		fmt.Fprintln(out, "Diagnostics completed with errors.")
		return errors.New("one or more health checks failed")
	}
	fmt.Fprintln(out, "All diagnostics passed!")
	return nil
}

func schemaVersions(ctx *cli.Context) (current, latest int, err error) {
	migrator, ok := ctx.Store.(storage.Migrator)
	if !ok {
		return 0, 0, skipped("storage has no schema")
	}
	return migrator.SchemaVersion()
}

func checkSchemaVersion(ctx *cli.Context) error {
	current, latest, err := schemaVersions(ctx)
	if err != nil {
		return err
	}
	if current > latest {
		return fmt.Errorf("database schema version (%d) is newer than supported version (%d)", current, latest)
	}
	return nil
}

func checkMigrationsComplete(ctx *cli.Context) error {
	current, latest, err := schemaVersions(ctx)
	if err != nil {
		return err
	}
	if current < latest {
		return fmt.Errorf("migrations incomplete: current version %d, latest version %d - run '%s migrate'", current, latest, constants.AppName)
	}
	return nil
}

func checkBackupsPresent(ctx *cli.Context) error {
	if _, ok := ctx.Store.(*sqlite.Store); !ok {
		return skipped("backups are only supported for SQLite storage")
	}
	backups, err := backup.NewManager(ctx.Store.GetConfigPath()).List()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return fmt.Errorf("no backups found - consider creating one with '%s backup create'", constants.AppName)
	}
	return nil
}

// liveHabits returns active and archived habits. Deleted habits are never
// read again so their data is not checked.
func liveHabits(ctx context.Context, store storage.HabitStore) ([]models.Habit, error) {
	var all []models.Habit
	for _, status := range []models.HabitStatus{models.StatusActive, models.StatusArchived} {
		habits, err := store.QueryHabitsByStatus(ctx, status)
		if err != nil {
			return nil, fmt.Errorf("failed to get %s habits: %w", status, err)
		}
		all = append(all, habits...)
	}
	return all, nil
}

func checkHabitsIntegrity(ctx *cli.Context) error {
	bg := context.Background()
	habits, err := liveHabits(bg, ctx.Store)
	if err != nil {
		return err
	}

	var problems []error
	for _, h := range habits {
		if _, err := validation.ValidateHabitInput(validation.HabitInput{
			Name:             h.Name,
			StartDate:        h.StartDate,
			FrequencyType:    h.FrequencyType,
			TargetCount:      h.TargetCount,
			SelectedWeekdays: h.SelectedWeekdays,
		}); err != nil {
			problems = append(problems, fmt.Errorf("habit %s: %w", h.ID, err))
		}
		if h.CategoryID != "" {
			if _, err := ctx.Store.GetCategory(bg, h.CategoryID); err != nil {
				problems = append(problems, fmt.Errorf("habit %s: category %s: %w", h.ID, h.CategoryID, err))
			}
		}
	}
	return errors.Join(problems...)
}

func checkCompletions(ctx *cli.Context) error {
	bg := context.Background()
	habits, err := liveHabits(bg, ctx.Store)
	if err != nil {
		return err
	}

	v := validation.New()
	var result validation.ValidationResult
	for _, h := range habits {
		completions, err := ctx.Store.QueryCompletionsByHabit(bg, h.ID)
		if err != nil {
			return fmt.Errorf("failed to get completions for habit %s: %w", h.ID, err)
		}
		result.Merge(v.ValidateCompletions(h, completions))
	}
	if result.HasConflicts() {
		return errors.New(result.FormatReport())
	}
	return nil
}

func checkTimezoneSetting(ctx *cli.Context) error {
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	if !utils.ValidateTimezone(settings.Timezone) {
		return fmt.Errorf("stored timezone %q is not a valid IANA timezone", settings.Timezone)
	}
	if ctx.Config != nil && ctx.Config.Timezone != "" && !utils.ValidateTimezone(ctx.Config.Timezone) {
		return fmt.Errorf("config timezone %q is not a valid IANA timezone", ctx.Config.Timezone)
	}
	return nil
}

func checkClock(now time.Time) error {
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}
	return nil
}
