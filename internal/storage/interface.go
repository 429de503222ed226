package storage

import (
	"context"
	"errors"

	"github.com/julianstephens/habitual/internal/models"
)

var (
	// ErrNotFound is returned by lookups that match no record.
	ErrNotFound = errors.New("record not found")
	// ErrNotLoaded is returned when a backend is used before Init or Load.
	ErrNotLoaded = errors.New("storage not loaded")
)

// HabitStore is the document-store contract the habit engine runs against.
// Implementations return ErrNotFound (possibly wrapped) for missing records.
type HabitStore interface {
	// Habits
	GetHabit(ctx context.Context, id string) (models.Habit, error)
	QueryHabitsByStatus(ctx context.Context, status models.HabitStatus) ([]models.Habit, error)
	CountHabitsByStatus(ctx context.Context, status models.HabitStatus) (int, error)
	InsertHabit(ctx context.Context, habit models.Habit) error
	// PatchHabit overwrites every mutable column of an existing habit.
	PatchHabit(ctx context.Context, habit models.Habit) error

	// Completions
	QueryCompletionsByHabit(ctx context.Context, habitID string) ([]models.HabitCompletion, error)
	InsertCompletion(ctx context.Context, completion models.HabitCompletion) error

	// Categories
	GetCategory(ctx context.Context, id string) (models.Category, error)
	QueryCategoryByName(ctx context.Context, normalized string) (models.Category, error)
	InsertCategory(ctx context.Context, category models.Category) error
	ListCategories(ctx context.Context) ([]models.Category, error)

	// WithTx runs fn against a view of the store whose writes commit together.
	// If fn returns an error nothing it wrote is kept.
	WithTx(ctx context.Context, fn func(tx HabitStore) error) error
}

// Provider is a complete storage backend.
type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Settings
	GetSettings() (models.Settings, error)
	SaveSettings(models.Settings) error

	HabitStore

	// Utils
	GetConfigPath() string
}

// Migrator is implemented by SQL backends with a versioned schema.
type Migrator interface {
	Migrate(logFn func(string)) (int, error)
	SchemaVersion() (current, latest int, err error)
}
