package habits

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/julianstephens/habitual/internal/calendar"
	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/notifier"
)

type RemindCmd struct {
	URL    string `name:"url" help:"Webhook URL. Defaults to notify_url from the config file."`
	DryRun bool   `help:"Print the reminder instead of sending it."`
}

func (c *RemindCmd) Run(ctx *cli.Context) error {
	today, err := ctx.Today()
	if err != nil {
		return err
	}
	bg := context.Background()
	active, err := ctx.Service.ListHabitsWithStats(bg, models.StatusActive, today)
	if err != nil {
		return err
	}
	todayDate, err := calendar.ParseLocalDate(today)
	if err != nil {
		return err
	}

	pending := pendingHabits(active, todayDate)
	out := ctx.Stdout()
	if len(pending) == 0 {
		fmt.Fprintln(out, "All habits are on track. Nothing to remind.")
		return nil
	}

	text := reminderText(pending)
	if c.DryRun {
		fmt.Fprintln(out, text)
		return nil
	}

	endpoint := c.URL
	if endpoint == "" && ctx.Config != nil {
		endpoint = ctx.Config.NotifyURL
	}
	n, err := notifier.New(endpoint, os.Getenv(constants.EnvNotifySecret))
	if errors.Is(err, notifier.ErrNoEndpoint) {
		return fmt.Errorf("%w: pass --url or set notify_url in the config file", err)
	}
	if err != nil {
		return err
	}
	if err := n.Notify(bg, text); err != nil {
		return fmt.Errorf("failed to send reminder: %w", err)
	}
	fmt.Fprintf(out, "Sent reminder for %d habit(s).\n", len(pending))
	return nil
}

// pendingHabits keeps started habits that still need progress this period
// and expect it today.
func pendingHabits(habits []models.HabitWithStats, today calendar.LocalDate) []models.HabitWithStats {
	var pending []models.HabitWithStats
	for _, h := range habits {
		if h.CanCompleteToday && h.IsRequiredDay(today) {
			pending = append(pending, h)
		}
	}
	return pending
}

func reminderText(pending []models.HabitWithStats) string {
	parts := make([]string, len(pending))
	for i, h := range pending {
		parts[i] = fmt.Sprintf("%s (%d/%d)", h.Name, h.CurrentPeriodProgress, h.TargetCount)
	}
	noun := "habits"
	if len(pending) == 1 {
		noun = "habit"
	}
	return fmt.Sprintf("%d %s left: %s", len(pending), noun, strings.Join(parts, ", "))
}
