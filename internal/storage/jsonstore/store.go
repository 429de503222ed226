// Package jsonstore keeps all habit data in a single JSON document on disk.
// It suits small, single-process setups and tests.
package jsonstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/storage"
)

const documentVersion = 1

type document struct {
	Version     int                                 `json:"version"`
	Settings    models.Settings                     `json:"settings"`
	Habits      map[string]models.Habit             `json:"habits"`
	Completions map[string][]models.HabitCompletion `json:"completions"` // habit id -> completions
	Categories  map[string]models.Category          `json:"categories"`
}

func newDocument() *document {
	return &document{
		Version:     documentVersion,
		Settings:    models.Settings{Timezone: constants.DefaultTimezone},
		Habits:      make(map[string]models.Habit),
		Completions: make(map[string][]models.HabitCompletion),
		Categories:  make(map[string]models.Category),
	}
}

func (d *document) ensureMaps() {
	if d.Habits == nil {
		d.Habits = make(map[string]models.Habit)
	}
	if d.Completions == nil {
		d.Completions = make(map[string][]models.HabitCompletion)
	}
	if d.Categories == nil {
		d.Categories = make(map[string]models.Category)
	}
}

// Store is a file-backed storage.Provider. Every write outside a
// transaction rewrites the whole file.
type Store struct {
	path string

	mu  sync.Mutex
	doc *document
}

var _ storage.Provider = (*Store)(nil)

// NewStore creates a store for the JSON file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(s.path); err == nil {
		return fmt.Errorf("storage already initialized at %s", s.path)
	}

	s.doc = newDocument()
	return s.save()
}

func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("storage not initialized, run '%s init' first", constants.AppName)
		}
		return fmt.Errorf("failed to read storage: %w", err)
	}

	doc := &document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return fmt.Errorf("failed to parse storage: %w", err)
	}
	if doc.Version > documentVersion {
		return fmt.Errorf("storage version (%d) is newer than supported version (%d) - please upgrade the application", doc.Version, documentVersion)
	}
	doc.ensureMaps()
	s.doc = doc
	return nil
}

// Close drops the in-memory document. A later Load reads the file again.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = nil
	return nil
}

func (s *Store) GetConfigPath() string {
	return s.path
}

func (s *Store) save() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize storage: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write storage: %w", err)
	}
	return nil
}

// read runs fn under the lock against the loaded document.
func (s *Store) read(fn func(v view) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return storage.ErrNotLoaded
	}
	return fn(view{doc: s.doc})
}

// write runs fn under the lock and persists the document if fn succeeds.
// On failure the in-memory document is rolled back.
func (s *Store) write(fn func(v view) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return storage.ErrNotLoaded
	}

	snapshot, err := json.Marshal(s.doc)
	if err != nil {
		return fmt.Errorf("failed to snapshot storage: %w", err)
	}
	restore := func() {
		doc := &document{}
		if json.Unmarshal(snapshot, doc) == nil {
			doc.ensureMaps()
			s.doc = doc
		}
	}

	if err := fn(view{doc: s.doc}); err != nil {
		restore()
		return err
	}
	if err := s.save(); err != nil {
		restore()
		return err
	}
	return nil
}

func (s *Store) GetSettings() (models.Settings, error) {
	var settings models.Settings
	err := s.read(func(v view) error {
		settings = v.doc.Settings
		return nil
	})
	return settings, err
}

func (s *Store) SaveSettings(settings models.Settings) error {
	return s.write(func(v view) error {
		v.doc.Settings = settings
		return nil
	})
}

func (s *Store) GetHabit(ctx context.Context, id string) (habit models.Habit, err error) {
	err = s.read(func(v view) error {
		habit, err = v.GetHabit(ctx, id)
		return err
	})
	return habit, err
}

func (s *Store) QueryHabitsByStatus(ctx context.Context, status models.HabitStatus) (habits []models.Habit, err error) {
	err = s.read(func(v view) error {
		habits, err = v.QueryHabitsByStatus(ctx, status)
		return err
	})
	return habits, err
}

func (s *Store) CountHabitsByStatus(ctx context.Context, status models.HabitStatus) (count int, err error) {
	err = s.read(func(v view) error {
		count, err = v.CountHabitsByStatus(ctx, status)
		return err
	})
	return count, err
}

func (s *Store) InsertHabit(ctx context.Context, habit models.Habit) error {
	return s.write(func(v view) error { return v.InsertHabit(ctx, habit) })
}

func (s *Store) PatchHabit(ctx context.Context, habit models.Habit) error {
	return s.write(func(v view) error { return v.PatchHabit(ctx, habit) })
}

func (s *Store) QueryCompletionsByHabit(ctx context.Context, habitID string) (completions []models.HabitCompletion, err error) {
	err = s.read(func(v view) error {
		completions, err = v.QueryCompletionsByHabit(ctx, habitID)
		return err
	})
	return completions, err
}

func (s *Store) InsertCompletion(ctx context.Context, completion models.HabitCompletion) error {
	return s.write(func(v view) error { return v.InsertCompletion(ctx, completion) })
}

func (s *Store) GetCategory(ctx context.Context, id string) (category models.Category, err error) {
	err = s.read(func(v view) error {
		category, err = v.GetCategory(ctx, id)
		return err
	})
	return category, err
}

func (s *Store) QueryCategoryByName(ctx context.Context, normalized string) (category models.Category, err error) {
	err = s.read(func(v view) error {
		category, err = v.QueryCategoryByName(ctx, normalized)
		return err
	})
	return category, err
}

func (s *Store) InsertCategory(ctx context.Context, category models.Category) error {
	return s.write(func(v view) error { return v.InsertCategory(ctx, category) })
}

func (s *Store) ListCategories(ctx context.Context) (categories []models.Category, err error) {
	err = s.read(func(v view) error {
		categories, err = v.ListCategories(ctx)
		return err
	})
	return categories, err
}

// WithTx holds the store lock for the duration of fn and writes the file
// once at the end. If fn fails the document is restored.
func (s *Store) WithTx(ctx context.Context, fn func(tx storage.HabitStore) error) error {
	return s.write(func(v view) error { return fn(v) })
}

// view operates directly on a document without locking or persisting. It is
// what a transaction sees.
type view struct {
	doc *document
}

func (v view) GetHabit(_ context.Context, id string) (models.Habit, error) {
	habit, ok := v.doc.Habits[id]
	if !ok {
		return models.Habit{}, fmt.Errorf("habit %s: %w", id, storage.ErrNotFound)
	}
	return habit, nil
}

func (v view) QueryHabitsByStatus(_ context.Context, status models.HabitStatus) ([]models.Habit, error) {
	habits := []models.Habit{}
	for _, h := range v.doc.Habits {
		if h.Status == status {
			habits = append(habits, h)
		}
	}
	sort.Slice(habits, func(i, j int) bool {
		if !habits[i].CreatedAt.Equal(habits[j].CreatedAt) {
			return habits[i].CreatedAt.Before(habits[j].CreatedAt)
		}
		return habits[i].ID < habits[j].ID
	})
	return habits, nil
}

func (v view) CountHabitsByStatus(_ context.Context, status models.HabitStatus) (int, error) {
	count := 0
	for _, h := range v.doc.Habits {
		if h.Status == status {
			count++
		}
	}
	return count, nil
}

func (v view) InsertHabit(_ context.Context, habit models.Habit) error {
	if _, exists := v.doc.Habits[habit.ID]; exists {
		return fmt.Errorf("habit %s already exists", habit.ID)
	}
	v.doc.Habits[habit.ID] = habit
	return nil
}

func (v view) PatchHabit(_ context.Context, habit models.Habit) error {
	if _, exists := v.doc.Habits[habit.ID]; !exists {
		return fmt.Errorf("habit %s: %w", habit.ID, storage.ErrNotFound)
	}
	v.doc.Habits[habit.ID] = habit
	return nil
}

func (v view) QueryCompletionsByHabit(_ context.Context, habitID string) ([]models.HabitCompletion, error) {
	completions := append([]models.HabitCompletion{}, v.doc.Completions[habitID]...)
	return completions, nil
}

func (v view) InsertCompletion(_ context.Context, completion models.HabitCompletion) error {
	if _, exists := v.doc.Habits[completion.HabitID]; !exists {
		return fmt.Errorf("habit %s: %w", completion.HabitID, storage.ErrNotFound)
	}
	v.doc.Completions[completion.HabitID] = append(v.doc.Completions[completion.HabitID], completion)
	return nil
}

func (v view) GetCategory(_ context.Context, id string) (models.Category, error) {
	category, ok := v.doc.Categories[id]
	if !ok {
		return models.Category{}, fmt.Errorf("category %s: %w", id, storage.ErrNotFound)
	}
	return category, nil
}

func (v view) QueryCategoryByName(_ context.Context, normalized string) (models.Category, error) {
	for _, c := range v.doc.Categories {
		if c.Name == normalized {
			return c, nil
		}
	}
	return models.Category{}, fmt.Errorf("category %q: %w", normalized, storage.ErrNotFound)
}

func (v view) InsertCategory(ctx context.Context, category models.Category) error {
	if _, exists := v.doc.Categories[category.ID]; exists {
		return fmt.Errorf("category %s already exists", category.ID)
	}
	if _, err := v.QueryCategoryByName(ctx, category.Name); err == nil {
		return fmt.Errorf("category name %q already exists", category.Name)
	}
	v.doc.Categories[category.ID] = category
	return nil
}

func (v view) ListCategories(_ context.Context) ([]models.Category, error) {
	categories := make([]models.Category, 0, len(v.doc.Categories))
	for _, c := range v.doc.Categories {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool {
		return categories[i].Name < categories[j].Name
	})
	return categories, nil
}

// WithTx on a view is already inside a transaction.
func (v view) WithTx(_ context.Context, fn func(tx storage.HabitStore) error) error {
	return fn(v)
}
