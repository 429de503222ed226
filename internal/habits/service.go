package habits

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/julianstephens/habitual/internal/calendar"
	"github.com/julianstephens/habitual/internal/logger"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/storage"
	"github.com/julianstephens/habitual/internal/validation"
)

// HabitInput carries the fields accepted by CreateHabit and UpdateHabit.
// CategoryID, when set, must name an existing category. Otherwise a
// non-blank CategoryName is resolved by its normalized form, creating the
// category on first use.
type HabitInput struct {
	Name             string
	Description      string
	StartDate        string
	FrequencyType    calendar.Frequency
	TargetCount      int
	SelectedWeekdays []int
	CategoryID       string
	CategoryName     string
}

// Service applies habit mutations and queries against a HabitStore.
type Service struct {
	store storage.HabitStore
	clock Clock
	ids   IDGenerator
}

// NewService creates a Service. Nil clock or ids fall back to the real clock
// and random UUIDs.
func NewService(store storage.HabitStore, clock Clock, ids IDGenerator) *Service {
	if clock == nil {
		clock = RealClock{}
	}
	if ids == nil {
		ids = UUIDGenerator{}
	}
	return &Service{store: store, clock: clock, ids: ids}
}

// CreateHabit validates in and stores a new active habit, returning its ID.
func (s *Service) CreateHabit(ctx context.Context, in HabitInput) (string, error) {
	name, weekdays, err := validateInput(in)
	if err != nil {
		return "", err
	}

	id := s.ids.New()
	err = s.store.WithTx(ctx, func(tx storage.HabitStore) error {
		categoryID, err := s.resolveCategoryID(ctx, tx, in.CategoryID, in.CategoryName)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		return tx.InsertHabit(ctx, models.Habit{
			ID:               id,
			Name:             name,
			Description:      strings.TrimSpace(in.Description),
			StartDate:        in.StartDate,
			FrequencyType:    in.FrequencyType,
			TargetCount:      in.TargetCount,
			SelectedWeekdays: weekdays,
			CategoryID:       categoryID,
			Status:           models.StatusActive,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	})
	if err != nil {
		return "", err
	}

	logger.Info("habit created", "id", id, "name", name, "frequency", in.FrequencyType)
	return id, nil
}

// UpdateHabit replaces the editable fields of a habit that is not deleted.
// The lifecycle status is left untouched.
func (s *Service) UpdateHabit(ctx context.Context, id string, in HabitInput) error {
	name, weekdays, err := validateInput(in)
	if err != nil {
		return err
	}

	err = s.store.WithTx(ctx, func(tx storage.HabitStore) error {
		habit, err := getLiveHabit(ctx, tx, id)
		if err != nil {
			return err
		}

		// an unchanged category reference is kept even if the record is gone
		categoryID := habit.CategoryID
		if in.CategoryID != habit.CategoryID || in.CategoryName != "" {
			if categoryID, err = s.resolveCategoryID(ctx, tx, in.CategoryID, in.CategoryName); err != nil {
				return err
			}
		}

		habit.Name = name
		habit.Description = strings.TrimSpace(in.Description)
		habit.StartDate = in.StartDate
		habit.FrequencyType = in.FrequencyType
		habit.TargetCount = in.TargetCount
		habit.SelectedWeekdays = weekdays
		habit.CategoryID = categoryID
		habit.UpdatedAt = s.clock.Now()
		return tx.PatchHabit(ctx, habit)
	})
	if err != nil {
		return err
	}

	logger.Info("habit updated", "id", id)
	return nil
}

// ArchiveHabit moves an active habit to archived.
func (s *Service) ArchiveHabit(ctx context.Context, id string) error {
	return s.transition(ctx, id, models.StatusArchived)
}

// RestoreHabit moves an archived habit back to active.
func (s *Service) RestoreHabit(ctx context.Context, id string) error {
	return s.transition(ctx, id, models.StatusActive)
}

// DeleteHabit soft-deletes an active or archived habit. There is no way back.
func (s *Service) DeleteHabit(ctx context.Context, id string) error {
	return s.transition(ctx, id, models.StatusDeleted)
}

func (s *Service) transition(ctx context.Context, id string, to models.HabitStatus) error {
	var from models.HabitStatus
	err := s.store.WithTx(ctx, func(tx storage.HabitStore) error {
		habit, err := tx.GetHabit(ctx, id)
		if err != nil {
			return wrapHabitLookup(id, err)
		}
		if !models.CanTransition(habit.Status, to) {
			return fmt.Errorf("%s habit %q: %w", requiredStatusLabel(to), id, ErrNotFound)
		}
		from = habit.Status

		now := s.clock.Now()
		habit.Status = to
		habit.UpdatedAt = now
		switch to {
		case models.StatusArchived:
			habit.ArchivedAt = &now
		case models.StatusActive:
			habit.ArchivedAt = nil
		case models.StatusDeleted:
			habit.DeletedAt = &now
		}
		return tx.PatchHabit(ctx, habit)
	})
	if err != nil {
		return err
	}

	logger.Info("habit status changed", "id", id, "from", from, "to", to)
	return nil
}

func requiredStatusLabel(to models.HabitStatus) string {
	switch to {
	case models.StatusArchived:
		return "active"
	case models.StatusActive:
		return "archived"
	default:
		return "live"
	}
}

// CompleteHabit logs one unit of progress for date on an active habit.
// When the period's target is already met nothing is written and the result
// reports Incremented=false. completedAt defaults to the current time.
func (s *Service) CompleteHabit(ctx context.Context, id, date string, completedAt *time.Time) (models.CompletionResult, error) {
	localDate, err := calendar.ParseLocalDate(date)
	if err != nil {
		return models.CompletionResult{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	var result models.CompletionResult
	err = s.store.WithTx(ctx, func(tx storage.HabitStore) error {
		habit, err := tx.GetHabit(ctx, id)
		if err != nil {
			return wrapHabitLookup(id, err)
		}
		if habit.Status != models.StatusActive {
			return fmt.Errorf("active habit %q: %w", id, ErrNotFound)
		}
		if !habit.IsStarted(date) {
			return fmt.Errorf("%w: %s is before start date %s", ErrNotStarted, date, habit.StartDate)
		}

		completions, err := tx.QueryCompletionsByHabit(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load completions: %w", err)
		}

		progress := CurrentProgress(habit, completions, localDate)
		if progress >= habit.TargetCount {
			result = models.CompletionResult{
				Incremented: false,
				NewProgress: progress,
				TargetCount: habit.TargetCount,
			}
			return nil
		}

		eligible := IsStreakEligible(habit, localDate)
		now := s.clock.Now()
		at := now
		if completedAt != nil {
			at = *completedAt
		}

		err = tx.InsertCompletion(ctx, models.HabitCompletion{
			ID:               s.ids.New(),
			HabitID:          id,
			CompletedAt:      at,
			LocalDate:        date,
			PeriodKey:        calendar.PeriodKeyForDate(localDate, habit.FrequencyType).String(),
			Count:            1,
			IsStreakEligible: eligible,
			CreatedAt:        now,
		})
		if err != nil {
			return fmt.Errorf("failed to record completion: %w", err)
		}

		result = models.CompletionResult{
			Incremented:      true,
			NewProgress:      progress + 1,
			TargetCount:      habit.TargetCount,
			IsStreakEligible: &eligible,
		}
		return nil
	})
	if err != nil {
		return models.CompletionResult{}, err
	}

	logger.Debug("habit completion", "id", id, "date", date, "incremented", result.Incremented, "progress", result.NewProgress)
	return result, nil
}

// ListHabitsWithStats returns every habit in status with its statistics as
// of today, sorted by name.
func (s *Service) ListHabitsWithStats(ctx context.Context, status models.HabitStatus, today string) ([]models.HabitWithStats, error) {
	if status != models.StatusActive && status != models.StatusArchived {
		return nil, fmt.Errorf("%w: cannot list habits with status %q", ErrValidation, status)
	}
	todayDate, err := calendar.ParseLocalDate(today)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	habits, err := s.store.QueryHabitsByStatus(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list habits: %w", err)
	}

	result := make([]models.HabitWithStats, 0, len(habits))
	for _, habit := range habits {
		stats, err := s.statsFor(ctx, habit, todayDate)
		if err != nil {
			return nil, err
		}
		result = append(result, stats)
	}

	c := collate.New(language.English, collate.IgnoreCase)
	sort.SliceStable(result, func(i, j int) bool {
		return c.CompareString(result[i].Name, result[j].Name) < 0
	})
	return result, nil
}

// GetHabitWithStats returns one live habit with its statistics as of today.
func (s *Service) GetHabitWithStats(ctx context.Context, id, today string) (models.HabitWithStats, error) {
	todayDate, err := calendar.ParseLocalDate(today)
	if err != nil {
		return models.HabitWithStats{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	habit, err := getLiveHabit(ctx, s.store, id)
	if err != nil {
		return models.HabitWithStats{}, err
	}
	return s.statsFor(ctx, habit, todayDate)
}

func (s *Service) statsFor(ctx context.Context, habit models.Habit, today calendar.LocalDate) (models.HabitWithStats, error) {
	var category *models.Category
	if habit.CategoryID != "" {
		c, err := s.store.GetCategory(ctx, habit.CategoryID)
		switch {
		case err == nil:
			category = &c
		case errors.Is(err, storage.ErrNotFound):
			// dangling category references are tolerated
		default:
			return models.HabitWithStats{}, fmt.Errorf("failed to load category for habit %s: %w", habit.ID, err)
		}
	}

	completions, err := s.store.QueryCompletionsByHabit(ctx, habit.ID)
	if err != nil {
		return models.HabitWithStats{}, fmt.Errorf("failed to load completions for habit %s: %w", habit.ID, err)
	}

	return ComputeStats(habit, category, completions, today), nil
}

// GetHabit returns a habit that has not been deleted.
func (s *Service) GetHabit(ctx context.Context, id string) (models.Habit, error) {
	return getLiveHabit(ctx, s.store, id)
}

// ListCategories returns every category sorted by display name.
func (s *Service) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	c := collate.New(language.English, collate.IgnoreCase)
	sort.SliceStable(categories, func(i, j int) bool {
		return c.CompareString(categories[i].DisplayName, categories[j].DisplayName) < 0
	})
	return categories, nil
}

// CountArchivedHabits returns the number of archived habits.
func (s *Service) CountArchivedHabits(ctx context.Context) (int, error) {
	count, err := s.store.CountHabitsByStatus(ctx, models.StatusArchived)
	if err != nil {
		return 0, fmt.Errorf("failed to count archived habits: %w", err)
	}
	return count, nil
}

func (s *Service) resolveCategoryID(ctx context.Context, tx storage.HabitStore, categoryID, categoryName string) (string, error) {
	if categoryID != "" {
		if _, err := tx.GetCategory(ctx, categoryID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return "", fmt.Errorf("category %q: %w", categoryID, ErrNotFound)
			}
			return "", fmt.Errorf("failed to load category: %w", err)
		}
		return categoryID, nil
	}

	normalized := models.NormalizeCategoryName(categoryName)
	if normalized == "" {
		return "", nil
	}

	existing, err := tx.QueryCategoryByName(ctx, normalized)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("failed to look up category: %w", err)
	}

	now := s.clock.Now()
	category := models.Category{
		ID:          s.ids.New(),
		Name:        normalized,
		DisplayName: strings.TrimSpace(categoryName),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.InsertCategory(ctx, category); err != nil {
		return "", fmt.Errorf("failed to create category: %w", err)
	}
	logger.Debug("category created", "id", category.ID, "name", normalized)
	return category.ID, nil
}

func validateInput(in HabitInput) (string, []int, error) {
	weekdays, err := validation.ValidateHabitInput(validation.HabitInput{
		Name:             in.Name,
		StartDate:        in.StartDate,
		FrequencyType:    in.FrequencyType,
		TargetCount:      in.TargetCount,
		SelectedWeekdays: in.SelectedWeekdays,
	})
	if err != nil {
		return "", nil, err
	}
	return strings.TrimSpace(in.Name), weekdays, nil
}

func getLiveHabit(ctx context.Context, store storage.HabitStore, id string) (models.Habit, error) {
	habit, err := store.GetHabit(ctx, id)
	if err != nil {
		return models.Habit{}, wrapHabitLookup(id, err)
	}
	if habit.Status == models.StatusDeleted {
		return models.Habit{}, fmt.Errorf("habit %q: %w", id, ErrNotFound)
	}
	return habit, nil
}

func wrapHabitLookup(id string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("habit %q: %w", id, ErrNotFound)
	}
	return fmt.Errorf("failed to load habit %q: %w", id, err)
}
