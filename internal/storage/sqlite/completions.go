package sqlite

import (
	"context"

	"github.com/julianstephens/habitual/internal/models"
)

func (r queries) QueryCompletionsByHabit(ctx context.Context, habitID string) ([]models.HabitCompletion, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, habit_id, completed_at, local_date, period_key, count, is_streak_eligible, created_at
		FROM habit_completions
		WHERE habit_id = ?
		ORDER BY local_date, created_at, id`, habitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	completions := []models.HabitCompletion{}
	for rows.Next() {
		var c models.HabitCompletion
		var completedAt, createdAt string
		var eligible int
		if err := rows.Scan(&c.ID, &c.HabitID, &completedAt, &c.LocalDate, &c.PeriodKey, &c.Count, &eligible, &createdAt); err != nil {
			return nil, err
		}
		c.IsStreakEligible = eligible != 0
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
	eligible := 0
	if c.IsStreakEligible {
		eligible = 1
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO habit_completions (id, habit_id, completed_at, local_date, period_key, count, is_streak_eligible, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.HabitID, formatTime(c.CompletedAt), c.LocalDate, c.PeriodKey, c.Count, eligible, formatTime(c.CreatedAt),
	)
	return err
}
