package settings

import (
	"fmt"

	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/habits"
	"github.com/julianstephens/habitual/internal/utils"
)

type SettingsCmd struct {
	Show SettingsShowCmd `cmd:"" help:"Show current settings." default:"1"`
	Set  SettingsSetCmd  `cmd:"" help:"Change a setting."`
}

type SettingsShowCmd struct{}

func (c *SettingsShowCmd) Run(ctx *cli.Context) error {
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	out := ctx.Stdout()
	fmt.Fprintln(out, "Current Settings:")
	fmt.Fprintf(out, "  Timezone:  %s\n", settings.Timezone)
	if ctx.Config != nil && ctx.Config.Timezone != "" {
		fmt.Fprintf(out, "  (overridden by config file: %s)\n", ctx.Config.Timezone)
	}
	if today, err := ctx.Today(); err == nil {
		fmt.Fprintf(out, "  Today:     %s\n", today)
	}
	return nil
}

type SettingsSetCmd struct {
	Timezone string `help:"IANA timezone used to decide today's date, or Local."`
}

func (c *SettingsSetCmd) Run(ctx *cli.Context) error {
	if c.Timezone == "" {
		fmt.Fprintln(ctx.Stdout(), "No changes specified. Use --timezone to update the timezone.")
		return nil
	}
	if !utils.ValidateTimezone(c.Timezone) {
		return fmt.Errorf("%w: invalid timezone %q", habits.ErrValidation, c.Timezone)
	}

	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	settings.Timezone = c.Timezone
	if err := ctx.Store.SaveSettings(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	fmt.Fprintln(ctx.Stdout(), "Settings updated successfully.")
	return nil
}
