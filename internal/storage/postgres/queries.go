package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pq "github.com/lib/pq"

	"github.com/julianstephens/habitual/internal/calendar"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/storage"
)

// queries implements storage.HabitStore over a *sql.DB or a *sql.Tx.
// Inside a transaction inTx is set and GetHabit locks the habit row, so
// concurrent mutations of one habit run one after another.
type queries struct {
	q    querier
	inTx bool
}

// ready reports ErrNotLoaded for a store that is not open.
func (r queries) ready() error {
	if r.q == nil {
		return storage.ErrNotLoaded
	}
	return nil
}

// ErrDuplicateCategory is returned when a category name is already taken.
var ErrDuplicateCategory = errors.New("category name already exists")

const uniqueViolation = "23505"

const habitColumns = `id, name, description, start_date, frequency_type, target_count,
	selected_weekdays, category_id, status, created_at, updated_at, archived_at, deleted_at`

const categoryColumns = "id, name, display_name, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatOptionalTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(field, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s: %w", field, err)
	}
	return t, nil
}

func parseOptionalTime(field string, value sql.NullString) (*time.Time, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	t, err := parseTime(field, value.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func encodeWeekdays(weekdays []int) (string, error) {
	if len(weekdays) == 0 {
		return "", nil
	}
	data, err := json.Marshal(weekdays)
	if err != nil {
		return "", fmt.Errorf("failed to encode selected_weekdays: %w", err)
	}
	return string(data), nil
}

func decodeWeekdays(value string) ([]int, error) {
	if value == "" {
		return nil, nil
	}
	var weekdays []int
	if err := json.Unmarshal([]byte(value), &weekdays); err != nil {
		return nil, fmt.Errorf("failed to parse selected_weekdays: %w", err)
	}
	return weekdays, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func scanHabit(row rowScanner) (models.Habit, error) {
	var h models.Habit
	var frequency, status, weekdays, createdAt, updatedAt string
	var categoryID, archivedAt, deletedAt sql.NullString

	err := row.Scan(
		&h.ID, &h.Name, &h.Description, &h.StartDate, &frequency, &h.TargetCount,
		&weekdays, &categoryID, &status, &createdAt, &updatedAt, &archivedAt, &deletedAt,
	)
	if err != nil {
		return models.Habit{}, err
	}

	h.FrequencyType = calendar.Frequency(frequency)
	h.Status = models.HabitStatus(status)
	h.CategoryID = categoryID.String
	if h.SelectedWeekdays, err = decodeWeekdays(weekdays); err != nil {
		return models.Habit{}, err
	}
	if h.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return models.Habit{}, err
	}
	if h.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return models.Habit{}, err
	}
	if h.ArchivedAt, err = parseOptionalTime("archived_at", archivedAt); err != nil {
		return models.Habit{}, err
	}
	if h.DeletedAt, err = parseOptionalTime("deleted_at", deletedAt); err != nil {
		return models.Habit{}, err
	}
	return h, nil
}

func (r queries) GetHabit(ctx context.Context, id string) (models.Habit, error) {
	if err := r.ready(); err != nil {
		return models.Habit{}, err
	}
	query := "SELECT " + habitColumns + " FROM habits WHERE id = $1"
	if r.inTx {
		query += " FOR UPDATE"
	}
	row := r.q.QueryRowContext(ctx, query, id)
	h, err := scanHabit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Habit{}, fmt.Errorf("habit %s: %w", id, storage.ErrNotFound)
	}
	return h, err
}

func (r queries) QueryHabitsByStatus(ctx context.Context, status models.HabitStatus) ([]models.Habit, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	rows, err := r.q.QueryContext(ctx,
		"SELECT "+habitColumns+" FROM habits WHERE status = $1 ORDER BY created_at, id", string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	habits := []models.Habit{}
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, err
		}
		habits = append(habits, h)
	}
	return habits, rows.Err()
}

func (r queries) CountHabitsByStatus(ctx context.Context, status models.HabitStatus) (int, error) {
	if err := r.ready(); err != nil {
		return 0, err
	}
	var count int
	err := r.q.QueryRowContext(ctx, "SELECT count(*) FROM habits WHERE status = $1", string(status)).Scan(&count)
	return count, err
}

func (r queries) InsertHabit(ctx context.Context, h models.Habit) error {
	if err := r.ready(); err != nil {
		return err
	}
	weekdays, err := encodeWeekdays(h.SelectedWeekdays)
	if err != nil {
		return err
	}

	_, err = r.q.ExecContext(ctx, `
		INSERT INTO habits (`+habitColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		h.ID, h.Name, h.Description, h.StartDate, string(h.FrequencyType), h.TargetCount,
		weekdays, nullableString(h.CategoryID), string(h.Status),
		formatTime(h.CreatedAt), formatTime(h.UpdatedAt),
		formatOptionalTime(h.ArchivedAt), formatOptionalTime(h.DeletedAt),
	)
	return err
}

func (r queries) PatchHabit(ctx context.Context, h models.Habit) error {
	if err := r.ready(); err != nil {
		return err
	}
	weekdays, err := encodeWeekdays(h.SelectedWeekdays)
	if err != nil {
		return err
	}

	result, err := r.q.ExecContext(ctx, `
		UPDATE habits SET
			name = $1, description = $2, start_date = $3, frequency_type = $4, target_count = $5,
			selected_weekdays = $6, category_id = $7, status = $8, updated_at = $9,
			archived_at = $10, deleted_at = $11
		WHERE id = $12`,
		h.Name, h.Description, h.StartDate, string(h.FrequencyType), h.TargetCount,
		weekdays, nullableString(h.CategoryID), string(h.Status), formatTime(h.UpdatedAt),
		formatOptionalTime(h.ArchivedAt), formatOptionalTime(h.DeletedAt),
		h.ID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("habit %s: %w", h.ID, storage.ErrNotFound)
	}
	return nil
}

func (r queries) QueryCompletionsByHabit(ctx context.Context, habitID string) ([]models.HabitCompletion, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, habit_id, completed_at, local_date, period_key, count, is_streak_eligible, created_at
		FROM habit_completions
		WHERE habit_id = $1
		ORDER BY local_date, created_at, id`, habitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	completions := []models.HabitCompletion{}
	for rows.Next() {
		var c models.HabitCompletion
		var completedAt, createdAt string
		if err := rows.Scan(&c.ID, &c.HabitID, &completedAt, &c.LocalDate, &c.PeriodKey, &c.Count, &c.IsStreakEligible, &createdAt); err != nil {
			return nil, err
		}
		if c.CompletedAt, err = parseTime("completed_at", completedAt); err != nil {
			return nil, err
		}
		if c.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		completions = append(completions, c)
	}
	return completions, rows.Err()
}

func (r queries) InsertCompletion(ctx context.Context, c models.HabitCompletion) error {
	if err := r.ready(); err != nil {
		return err
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO habit_completions (id, habit_id, completed_at, local_date, period_key, count, is_streak_eligible, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.HabitID, formatTime(c.CompletedAt), c.LocalDate, c.PeriodKey, c.Count, c.IsStreakEligible, formatTime(c.CreatedAt),
	)
	return err
}

func scanCategory(row rowScanner) (models.Category, error) {
	var c models.Category
	var createdAt, updatedAt string
	if err := row.Scan(&c.ID, &c.Name, &c.DisplayName, &createdAt, &updatedAt); err != nil {
		return models.Category{}, err
	}
	var err error
	if c.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return models.Category{}, err
	}
	if c.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return models.Category{}, err
	}
	return c, nil
}

func (r queries) GetCategory(ctx context.Context, id string) (models.Category, error) {
	if err := r.ready(); err != nil {
		return models.Category{}, err
	}
	row := r.q.QueryRowContext(ctx, "SELECT "+categoryColumns+" FROM habit_categories WHERE id = $1", id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Category{}, fmt.Errorf("category %s: %w", id, storage.ErrNotFound)
	}
	return c, err
}

func (r queries) QueryCategoryByName(ctx context.Context, normalized string) (models.Category, error) {
	if err := r.ready(); err != nil {
		return models.Category{}, err
	}
	row := r.q.QueryRowContext(ctx, "SELECT "+categoryColumns+" FROM habit_categories WHERE name = $1", normalized)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Category{}, fmt.Errorf("category %q: %w", normalized, storage.ErrNotFound)
	}
	return c, err
}

func (r queries) InsertCategory(ctx context.Context, c models.Category) error {
	if err := r.ready(); err != nil {
		return err
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO habit_categories (`+categoryColumns+`)
		VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.Name, c.DisplayName, formatTime(c.CreatedAt), formatTime(c.UpdatedAt),
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %q", ErrDuplicateCategory, c.Name)
	}
	return err
}

func (r queries) ListCategories(ctx context.Context) ([]models.Category, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	rows, err := r.q.QueryContext(ctx, "SELECT "+categoryColumns+" FROM habit_categories ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// WithTx is called on a view that is already transactional.
func (r queries) WithTx(_ context.Context, fn func(tx storage.HabitStore) error) error {
	return fn(r)
}
