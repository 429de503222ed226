package habits

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/julianstephens/habitual/internal/calendar"
	"github.com/julianstephens/habitual/internal/cli"
	habitsvc "github.com/julianstephens/habitual/internal/habits"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/tui"
)

type HabitCmd struct {
	Add     HabitAddCmd     `cmd:"" help:"Add a new habit."`
	Edit    HabitEditCmd    `cmd:"" help:"Edit an existing habit."`
	List    HabitListCmd    `cmd:"" help:"List habits with progress and streaks."`
	Show    HabitShowCmd    `cmd:"" help:"Show a habit and its statistics."`
	Done    HabitDoneCmd    `cmd:"" help:"Log a completion for a habit."`
	Archive HabitArchiveCmd `cmd:"" help:"Archive a habit."`
	Restore HabitRestoreCmd `cmd:"" help:"Restore an archived habit."`
	Delete  HabitDeleteCmd  `cmd:"" help:"Delete a habit permanently."`
}

func parseFrequency(s string) (calendar.Frequency, error) {
	f, err := calendar.ParseFrequency(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", habitsvc.ErrValidation, err)
	}
	return f, nil
}

type HabitAddCmd struct {
	Name        string `arg:"" optional:"" help:"Habit name. Omit to fill in a form."`
	Description string `help:"Longer description."`
	Start       string `help:"Start date in YYYY-MM-DD format (default: today)."`
	Frequency   string `help:"Period length: daily, weekly or monthly." default:"daily"`
	Target      int    `help:"Completions required per period." default:"1"`
	Weekdays    string `help:"Required days for a daily habit, e.g. mon,wed,fri or 1,3,5."`
	Category    string `help:"Category name, created on first use."`
	Interactive bool   `short:"i" help:"Fill in the habit with an interactive form."`
}

func (c *HabitAddCmd) Run(ctx *cli.Context) error {
	today, err := ctx.Today()
	if err != nil {
		return err
	}

	var in habitsvc.HabitInput
	if c.Interactive || c.Name == "" {
		fm := tui.NewHabitFormModel(today)
		fm.Name = c.Name
		if err := tui.NewHabitForm(fm).Run(); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				fmt.Fprintln(ctx.Stdout(), "Cancelled.")
				return nil
			}
			return fmt.Errorf("interactive form error: %w", err)
		}
		if in, err = fm.Input(); err != nil {
			return err
		}
	} else {
		if in, err = c.input(today); err != nil {
			return err
		}
	}

	id, err := ctx.Service.CreateHabit(context.Background(), in)
	if err != nil {
		return err
	}

	fmt.Fprintf(ctx.Stdout(), "Added habit %q (%s)\n", strings.TrimSpace(in.Name), id)
	return nil
}

func (c *HabitAddCmd) input(today string) (habitsvc.HabitInput, error) {
	freq, err := parseFrequency(c.Frequency)
	if err != nil {
		return habitsvc.HabitInput{}, err
	}
	weekdays, err := cli.ParseWeekdays(c.Weekdays)
	if err != nil {
		return habitsvc.HabitInput{}, err
	}
	start := c.Start
	if start == "" {
		start = today
	}
	return habitsvc.HabitInput{
		Name:             c.Name,
		Description:      c.Description,
		StartDate:        start,
		FrequencyType:    freq,
		TargetCount:      c.Target,
		SelectedWeekdays: weekdays,
		CategoryName:     c.Category,
	}, nil
}

type HabitEditCmd struct {
	ID          string  `arg:"" help:"Habit ID."`
	Name        *string `help:"New name."`
	Description *string `help:"New description."`
	Start       *string `help:"New start date in YYYY-MM-DD format."`
	Frequency   *string `help:"New period length: daily, weekly or monthly."`
	Target      *int    `help:"New completions required per period."`
	Weekdays    *string `help:"New required days for a daily habit. Pass an empty value to clear."`
	Category    *string `help:"New category name. Pass an empty value to clear."`
}

func (c *HabitEditCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	habit, err := ctx.Service.GetHabit(bg, c.ID)
	if err != nil {
		return err
	}

	in := habitsvc.HabitInput{
		Name:             habit.Name,
		Description:      habit.Description,
		StartDate:        habit.StartDate,
		FrequencyType:    habit.FrequencyType,
		TargetCount:      habit.TargetCount,
		SelectedWeekdays: habit.SelectedWeekdays,
		CategoryID:       habit.CategoryID,
	}

	updated := false
	if c.Name != nil {
		in.Name = *c.Name
		updated = true
	}
	if c.Description != nil {
		in.Description = *c.Description
		updated = true
	}
	if c.Start != nil {
		in.StartDate = *c.Start
		updated = true
	}
	if c.Frequency != nil {
		if in.FrequencyType, err = parseFrequency(*c.Frequency); err != nil {
			return err
		}
		// weekday selections only apply to daily habits
		if in.FrequencyType != calendar.Daily && c.Weekdays == nil {
			in.SelectedWeekdays = nil
		}
		updated = true
	}
	if c.Target != nil {
		in.TargetCount = *c.Target
		updated = true
	}
	if c.Weekdays != nil {
		if in.SelectedWeekdays, err = cli.ParseWeekdays(*c.Weekdays); err != nil {
			return err
		}
		updated = true
	}
	if c.Category != nil {
		in.CategoryID = ""
		in.CategoryName = *c.Category
		updated = true
	}

	if !updated {
		fmt.Fprintln(ctx.Stdout(), "No changes specified.")
		return nil
	}

	if err := ctx.Service.UpdateHabit(bg, c.ID, in); err != nil {
		return err
	}
	fmt.Fprintf(ctx.Stdout(), "Updated habit %q\n", strings.TrimSpace(in.Name))
	return nil
}

type HabitListCmd struct {
	Archived bool   `help:"List archived habits instead of active ones."`
	Date     string `help:"Compute progress as of this date (YYYY-MM-DD, default: today)."`
}

func (c *HabitListCmd) Run(ctx *cli.Context) error {
	date, err := dateOrToday(ctx, c.Date)
	if err != nil {
		return err
	}

	status := models.StatusActive
	if c.Archived {
		status = models.StatusArchived
	}
	stats, err := ctx.Service.ListHabitsWithStats(context.Background(), status, date)
	if err != nil {
		return err
	}

	if len(stats) == 0 {
		fmt.Fprintf(ctx.Stdout(), "No %s habits found.\n", status)
		return nil
	}

	rows := make([][]string, 0, len(stats))
	for _, h := range stats {
		rows = append(rows, []string{
			h.ID,
			h.Name,
			cli.FormatFrequency(h.Habit),
			progressCell(h),
			fmt.Sprint(h.Streak),
			categoryName(h),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("ID", "NAME", "FREQUENCY", "PROGRESS", "STREAK", "CATEGORY").
		Rows(rows...)
	fmt.Fprintln(ctx.Stdout(), t.String())
	return nil
}

func progressCell(h models.HabitWithStats) string {
	switch {
	case !h.IsStarted:
		return "starts " + h.StartDate
	case h.IsCompletedForCurrentPeriod:
		return fmt.Sprintf("%d/%d ✓", h.CurrentPeriodProgress, h.TargetCount)
	default:
		return fmt.Sprintf("%d/%d", h.CurrentPeriodProgress, h.TargetCount)
	}
}

func categoryName(h models.HabitWithStats) string {
	if h.Category == nil {
		return ""
	}
	return h.Category.Name
}

type HabitShowCmd struct {
	ID   string `arg:"" help:"Habit ID."`
	Date string `help:"Compute progress as of this date (YYYY-MM-DD, default: today)."`
}

func (c *HabitShowCmd) Run(ctx *cli.Context) error {
	date, err := dateOrToday(ctx, c.Date)
	if err != nil {
		return err
	}
	h, err := ctx.Service.GetHabitWithStats(context.Background(), c.ID, date)
	if err != nil {
		return err
	}

	out := ctx.Stdout()
	fmt.Fprintf(out, "Name:        %s\n", h.Name)
	fmt.Fprintf(out, "ID:          %s\n", h.ID)
	fmt.Fprintf(out, "Status:      %s\n", h.Status)
	fmt.Fprintf(out, "Frequency:   %s\n", cli.FormatFrequency(h.Habit))
	fmt.Fprintf(out, "Start date:  %s\n", h.StartDate)
	if name := categoryName(h); name != "" {
		fmt.Fprintf(out, "Category:    %s\n", name)
	}
	if h.Description != "" {
		fmt.Fprintf(out, "Description: %s\n", h.Description)
	}
	fmt.Fprintf(out, "Progress:    %s\n", progressCell(h))
	fmt.Fprintf(out, "Streak:      %d\n", h.Streak)
	return nil
}

type HabitDoneCmd struct {
	ID   string `arg:"" help:"Habit ID."`
	Date string `help:"Date in YYYY-MM-DD format (default: today)."`
}

func (c *HabitDoneCmd) Run(ctx *cli.Context) error {
	date, err := dateOrToday(ctx, c.Date)
	if err != nil {
		return err
	}

	result, err := ctx.Service.CompleteHabit(context.Background(), c.ID, date, nil)
	if err != nil {
		return err
	}

	out := ctx.Stdout()
	if !result.Incremented {
		fmt.Fprintf(out, "Already complete for this period (%d/%d)\n", result.NewProgress, result.TargetCount)
		return nil
	}
	fmt.Fprintf(out, "Logged completion for %s (%d/%d)\n", date, result.NewProgress, result.TargetCount)
	if result.IsStreakEligible != nil && !*result.IsStreakEligible {
		fmt.Fprintln(out, "Not a scheduled day, the streak is unaffected.")
	}
	return nil
}

type HabitArchiveCmd struct {
	ID string `arg:"" help:"Habit ID."`
}

func (c *HabitArchiveCmd) Run(ctx *cli.Context) error {
	if err := ctx.Service.ArchiveHabit(context.Background(), c.ID); err != nil {
		return err
	}
	fmt.Fprintf(ctx.Stdout(), "Archived habit %s\n", c.ID)
	return nil
}

type HabitRestoreCmd struct {
	ID string `arg:"" help:"Habit ID."`
}

func (c *HabitRestoreCmd) Run(ctx *cli.Context) error {
	if err := ctx.Service.RestoreHabit(context.Background(), c.ID); err != nil {
		return err
	}
	fmt.Fprintf(ctx.Stdout(), "Restored habit %s\n", c.ID)
	return nil
}

type HabitDeleteCmd struct {
	ID  string `arg:"" help:"Habit ID."`
	Yes bool   `short:"y" help:"Do not ask for confirmation."`
}

func (c *HabitDeleteCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	habit, err := ctx.Service.GetHabit(bg, c.ID)
	if err != nil {
		return err
	}

	out := ctx.Stdout()
	if !c.Yes {
		fmt.Fprintf(out, "Delete habit %q? This cannot be undone. [y/N]: ", habit.Name)
		response, err := bufio.NewReader(ctx.Stdin()).ReadString('\n')
		if err != nil && response == "" {
			return err
		}
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Fprintln(out, "Delete cancelled.")
			return nil
		}
	}

	if err := ctx.Service.DeleteHabit(bg, c.ID); err != nil {
		return err
	}
	fmt.Fprintf(out, "Deleted habit %q\n", habit.Name)
	return nil
}

func dateOrToday(ctx *cli.Context, date string) (string, error) {
	if date != "" {
		return date, nil
	}
	return ctx.Today()
}
