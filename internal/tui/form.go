package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/habitual/internal/calendar"
	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/habits"
)

// HabitFormModel holds the raw values bound to the habit form fields.
type HabitFormModel struct {
	Name        string
	Description string
	StartDate   string
	Frequency   calendar.Frequency
	Target      string
	Weekdays    string
	Category    string
}

// NewHabitFormModel returns form defaults for a daily habit starting today.
func NewHabitFormModel(today string) *HabitFormModel {
	return &HabitFormModel{
		StartDate: today,
		Frequency: calendar.Daily,
		Target:    "1",
	}
}

// Input converts the form values into a service request.
func (fm *HabitFormModel) Input() (habits.HabitInput, error) {
	target, err := strconv.Atoi(strings.TrimSpace(fm.Target))
	if err != nil {
		return habits.HabitInput{}, fmt.Errorf("%w: target must be a number", habits.ErrValidation)
	}
	weekdays, err := cli.ParseWeekdays(fm.Weekdays)
	if err != nil {
		return habits.HabitInput{}, err
	}
	return habits.HabitInput{
		Name:             fm.Name,
		Description:      fm.Description,
		StartDate:        strings.TrimSpace(fm.StartDate),
		FrequencyType:    fm.Frequency,
		TargetCount:      target,
		SelectedWeekdays: weekdays,
		CategoryName:     fm.Category,
	}, nil
}

func validateName(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("habit name cannot be empty")
	}
	return nil
}

func validateTarget(s string) error {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	if i < 1 {
		return fmt.Errorf("target must be at least 1")
	}
	return nil
}

func validateWeekdays(s string) error {
	_, err := cli.ParseWeekdays(s)
	return err
}

// NewHabitForm creates a form for adding habits
func NewHabitForm(fm *HabitFormModel) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Habit Name").
				Value(&fm.Name).
				Validate(validateName),
			huh.NewInput().
				Title("Description").
				Value(&fm.Description),
			huh.NewInput().
				Title("Start Date").
				Placeholder("YYYY-MM-DD").
				Value(&fm.StartDate).
				Validate(calendar.ValidateLocalDate),
		),
		huh.NewGroup(
			huh.NewSelect[calendar.Frequency]().
				Title("Frequency").
				Options(
					huh.NewOption("Daily", calendar.Daily),
					huh.NewOption("Weekly", calendar.Weekly),
					huh.NewOption("Monthly", calendar.Monthly),
				).
				Value(&fm.Frequency),
			huh.NewInput().
				Title("Target per period").
				Value(&fm.Target).
				Validate(validateTarget),
			huh.NewInput().
				Title("Weekdays").
				Description("Daily habits only, e.g. mon,wed,fri. Leave empty for every day").
				Value(&fm.Weekdays).
				Validate(validateWeekdays),
			huh.NewInput().
				Title("Category").
				Value(&fm.Category),
		),
	).WithTheme(huh.ThemeDracula())
}
