package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/storage"
)

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
	row := r.q.QueryRowContext(ctx,
		"SELECT id, name, display_name, created_at, updated_at FROM habit_categories WHERE id = ?", id)
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
	row := r.q.QueryRowContext(ctx,
		"SELECT id, name, display_name, created_at, updated_at FROM habit_categories WHERE name = ?", normalized)
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
		INSERT INTO habit_categories (id, name, display_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.DisplayName, formatTime(c.CreatedAt), formatTime(c.UpdatedAt),
	)
	return err
}

func (r queries) ListCategories(ctx context.Context) ([]models.Category, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	rows, err := r.q.QueryContext(ctx,
		"SELECT id, name, display_name, created_at, updated_at FROM habit_categories ORDER BY name")
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
