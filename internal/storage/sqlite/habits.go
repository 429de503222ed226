package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/habitual/internal/calendar"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/storage"
)

// queries implements storage.HabitStore over a *sql.DB or a *sql.Tx.
type queries struct {
	q querier
}

// ready reports ErrNotLoaded for a store that is not open.
func (r queries) ready() error {
	if r.q == nil {
		return storage.ErrNotLoaded
	}
	return nil
}

const habitColumns = `id, name, description, start_date, frequency_type, target_count,
	selected_weekdays, category_id, status, created_at, updated_at, archived_at, deleted_at`

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
	if categoryID.Valid {
		h.CategoryID = categoryID.String
	}
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

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r queries) GetHabit(ctx context.Context, id string) (models.Habit, error) {
	if err := r.ready(); err != nil {
		return models.Habit{}, err
	}
	row := r.q.QueryRowContext(ctx, "SELECT "+habitColumns+" FROM habits WHERE id = ?", id)
	h, err := scanHabit(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Habit{}, fmt.Errorf("habit %s: %w", id, storage.ErrNotFound)
		}
		return models.Habit{}, err
	}
	return h, nil
}

func (r queries) QueryHabitsByStatus(ctx context.Context, status models.HabitStatus) ([]models.Habit, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	rows, err := r.q.QueryContext(ctx,
		"SELECT "+habitColumns+" FROM habits WHERE status = ? ORDER BY created_at, id", string(status))
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
	err := r.q.QueryRowContext(ctx, "SELECT count(*) FROM habits WHERE status = ?", string(status)).Scan(&count)
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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
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
			name = ?, description = ?, start_date = ?, frequency_type = ?, target_count = ?,
			selected_weekdays = ?, category_id = ?, status = ?, updated_at = ?,
			archived_at = ?, deleted_at = ?
		WHERE id = ?`,
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

// WithTx is called on a view that is already transactional.
func (r queries) WithTx(_ context.Context, fn func(tx storage.HabitStore) error) error {
	return fn(r)
}
