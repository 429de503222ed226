package system

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/config"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/storage"
)

type InitCmd struct {
	Force      bool   `help:"Delete an existing database file before initializing."`
	Source     string `help:"Database path or connection string to copy habits from."`
	ConfigFile string `help:"Also write a default config file to this path." placeholder:"PATH"`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	out := ctx.Stdout()
	dbPath := ctx.Store.GetConfigPath()

	if c.Force {
		if cli.IsPostgres(dbPath) {
			return errors.New("--force only supports file based storage")
		}
		if c.Source != "" {
			absDB, _ := filepath.Abs(dbPath)
			absSource, _ := filepath.Abs(config.ExpandHome(c.Source))
			if absDB == absSource {
				return fmt.Errorf("cannot use --force when source and destination are the same: %s", dbPath)
			}
		}
		if _, err := os.Stat(dbPath); err == nil {
			if err := ctx.Store.Close(); err != nil {
				return fmt.Errorf("failed to close existing database: %w", err)
			}
			if err := os.Remove(dbPath); err != nil {
				return fmt.Errorf("failed to delete existing database: %w", err)
			}
			fmt.Fprintf(out, "Deleted existing database at: %s\n", dbPath)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to access existing database: %w", err)
		}
	}

	if err := ctx.Store.Init(); err != nil {
		return err
	}
	fmt.Fprintf(out, "Initialized habitual storage at: %s\n", dbPath)

	if c.ConfigFile != "" {
		cfg := config.Default()
		cfg.Database = dbPath
		if err := config.Init(c.ConfigFile, cfg); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote config file: %s\n", c.ConfigFile)
	}

	if c.Source != "" {
		fmt.Fprintf(out, "Copying data from: %s\n", c.Source)
		if err := c.copyData(ctx, c.Source); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		fmt.Fprintln(out, "Migration completed successfully!")
	}
	return nil
}

// copyData copies settings, categories, habits of every status and their
// completions into the freshly initialized store in one transaction.
func (c *InitCmd) copyData(ctx *cli.Context, source string) error {
	src, err := cli.OpenStore(source, false)
	if err != nil {
		return err
	}
	if err := src.Load(); err != nil {
		return fmt.Errorf("failed to load source database: %w", err)
	}
	defer src.Close()

	out := ctx.Stdout()
	bg := context.Background()

	settings, err := src.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings from source: %w", err)
	}
	if err := ctx.Store.SaveSettings(settings); err != nil {
		return fmt.Errorf("failed to save settings to destination: %w", err)
	}

	categories, err := src.ListCategories(bg)
	if err != nil {
		return fmt.Errorf("failed to get categories from source: %w", err)
	}
	var all []models.Habit
	for _, status := range []models.HabitStatus{models.StatusActive, models.StatusArchived, models.StatusDeleted} {
		habits, err := src.QueryHabitsByStatus(bg, status)
		if err != nil {
			return fmt.Errorf("failed to get %s habits from source: %w", status, err)
		}
		all = append(all, habits...)
	}

	completionCount := 0
	err = ctx.Store.WithTx(bg, func(tx storage.HabitStore) error {
		for _, category := range categories {
			if err := tx.InsertCategory(bg, category); err != nil {
				return fmt.Errorf("failed to add category %s: %w", category.ID, err)
			}
		}
		for _, habit := range all {
			if err := tx.InsertHabit(bg, habit); err != nil {
				return fmt.Errorf("failed to add habit %s: %w", habit.ID, err)
			}
			completions, err := src.QueryCompletionsByHabit(bg, habit.ID)
			if err != nil {
				return fmt.Errorf("failed to get completions for habit %s: %w", habit.ID, err)
			}
			for _, completion := range completions {
				if err := tx.InsertCompletion(bg, completion); err != nil {
					return fmt.Errorf("failed to add completion %s: %w", completion.ID, err)
				}
			}
			completionCount += len(completions)
		}
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "  Copied %d categories\n", len(categories))
	fmt.Fprintf(out, "  Copied %d habits\n", len(all))
	fmt.Fprintf(out, "  Copied %d completions\n", completionCount)
	return nil
}
