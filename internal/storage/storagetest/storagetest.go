// Package storagetest holds the behaviour every storage.HabitStore backend
// must share. Backend packages call Run from their own tests.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/habitual/internal/calendar"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/storage"
)

// Factory returns an empty, ready to use store.
type Factory func(t *testing.T) storage.HabitStore

var baseTime = time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)

func habit(id string, status models.HabitStatus) models.Habit {
	return models.Habit{
		ID:            id,
		Name:          "Habit " + id,
		StartDate:     "2024-01-01",
		FrequencyType: calendar.Daily,
		TargetCount:   1,
		Status:        status,
		CreatedAt:     baseTime,
		UpdatedAt:     baseTime,
	}
}

// ProviderFactory returns an initialized provider.
type ProviderFactory func(t *testing.T) storage.Provider

// AssertNotLoaded checks that every HabitStore operation on store fails with
// storage.ErrNotLoaded.
func AssertNotLoaded(t *testing.T, store storage.HabitStore) {
	t.Helper()
	ctx := context.Background()

	_, err := store.GetHabit(ctx, "h1")
	assert.ErrorIs(t, err, storage.ErrNotLoaded, "GetHabit")
	_, err = store.QueryHabitsByStatus(ctx, models.StatusActive)
	assert.ErrorIs(t, err, storage.ErrNotLoaded, "QueryHabitsByStatus")
	_, err = store.CountHabitsByStatus(ctx, models.StatusActive)
	assert.ErrorIs(t, err, storage.ErrNotLoaded, "CountHabitsByStatus")
	assert.ErrorIs(t, store.InsertHabit(ctx, habit("h1", models.StatusActive)), storage.ErrNotLoaded, "InsertHabit")
	assert.ErrorIs(t, store.PatchHabit(ctx, habit("h1", models.StatusActive)), storage.ErrNotLoaded, "PatchHabit")
	_, err = store.QueryCompletionsByHabit(ctx, "h1")
	assert.ErrorIs(t, err, storage.ErrNotLoaded, "QueryCompletionsByHabit")
	assert.ErrorIs(t, store.InsertCompletion(ctx, models.HabitCompletion{ID: "c1", HabitID: "h1"}), storage.ErrNotLoaded, "InsertCompletion")
	_, err = store.GetCategory(ctx, "cat1")
	assert.ErrorIs(t, err, storage.ErrNotLoaded, "GetCategory")
	_, err = store.QueryCategoryByName(ctx, "health")
	assert.ErrorIs(t, err, storage.ErrNotLoaded, "QueryCategoryByName")
	assert.ErrorIs(t, store.InsertCategory(ctx, models.Category{ID: "cat1", Name: "health"}), storage.ErrNotLoaded, "InsertCategory")
	_, err = store.ListCategories(ctx)
	assert.ErrorIs(t, err, storage.ErrNotLoaded, "ListCategories")
	err = store.WithTx(ctx, func(storage.HabitStore) error { return nil })
	assert.ErrorIs(t, err, storage.ErrNotLoaded, "WithTx")
}

// RunLifecycle checks that a closed provider refuses habit operations and
// serves its data again after Load.
func RunLifecycle(t *testing.T, newProvider ProviderFactory) {
	ctx := context.Background()
	store := newProvider(t)
	require.NoError(t, store.InsertHabit(ctx, habit("h1", models.StatusActive)))

	require.NoError(t, store.Close())
	AssertNotLoaded(t, store)

	require.NoError(t, store.Load())
	got, err := store.GetHabit(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, "Habit h1", got.Name)
}

// Run exercises the full HabitStore contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("HabitRoundTrip", func(t *testing.T) { testHabitRoundTrip(t, newStore(t)) })
	t.Run("HabitsByStatus", func(t *testing.T) { testHabitsByStatus(t, newStore(t)) })
	t.Run("PatchHabit", func(t *testing.T) { testPatchHabit(t, newStore(t)) })
	t.Run("Completions", func(t *testing.T) { testCompletions(t, newStore(t)) })
	t.Run("Categories", func(t *testing.T) { testCategories(t, newStore(t)) })
	t.Run("TxCommit", func(t *testing.T) { testTxCommit(t, newStore(t)) })
	t.Run("TxRollback", func(t *testing.T) { testTxRollback(t, newStore(t)) })
}

func testHabitRoundTrip(t *testing.T, store storage.HabitStore) {
	ctx := context.Background()

	in := habit("h1", models.StatusActive)
	in.Description = "ten pages"
	in.SelectedWeekdays = []int{1, 3, 5}
	in.CategoryID = "c1"
	archivedAt := baseTime.Add(time.Hour)
	in.ArchivedAt = &archivedAt
	require.NoError(t, store.InsertHabit(ctx, in))

	got, err := store.GetHabit(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, in.Name, got.Name)
	assert.Equal(t, in.Description, got.Description)
	assert.Equal(t, in.StartDate, got.StartDate)
	assert.Equal(t, in.FrequencyType, got.FrequencyType)
	assert.Equal(t, in.TargetCount, got.TargetCount)
	assert.Equal(t, in.SelectedWeekdays, got.SelectedWeekdays)
	assert.Equal(t, in.CategoryID, got.CategoryID)
	assert.Equal(t, in.Status, got.Status)
	assert.True(t, in.CreatedAt.Equal(got.CreatedAt), "created_at %v != %v", in.CreatedAt, got.CreatedAt)
	require.NotNil(t, got.ArchivedAt)
	assert.True(t, archivedAt.Equal(*got.ArchivedAt))
	assert.Nil(t, got.DeletedAt)

	plain := habit("h2", models.StatusActive)
	require.NoError(t, store.InsertHabit(ctx, plain))
	got, err = store.GetHabit(ctx, "h2")
	require.NoError(t, err)
	assert.Empty(t, got.SelectedWeekdays)
	assert.Empty(t, got.CategoryID)

	_, err = store.GetHabit(ctx, "missing")
	assert.True(t, errors.Is(err, storage.ErrNotFound), "expected ErrNotFound, got %v", err)
}

func testHabitsByStatus(t *testing.T, store storage.HabitStore) {
	ctx := context.Background()

	require.NoError(t, store.InsertHabit(ctx, habit("a1", models.StatusActive)))
	require.NoError(t, store.InsertHabit(ctx, habit("a2", models.StatusActive)))
	require.NoError(t, store.InsertHabit(ctx, habit("r1", models.StatusArchived)))
	require.NoError(t, store.InsertHabit(ctx, habit("d1", models.StatusDeleted)))

	active, err := store.QueryHabitsByStatus(ctx, models.StatusActive)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	archived, err := store.QueryHabitsByStatus(ctx, models.StatusArchived)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, "r1", archived[0].ID)

	count, err := store.CountHabitsByStatus(ctx, models.StatusDeleted)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = store.CountHabitsByStatus(ctx, models.HabitStatus("active"))
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func testPatchHabit(t *testing.T, store storage.HabitStore) {
	ctx := context.Background()

	h := habit("h1", models.StatusActive)
	h.SelectedWeekdays = []int{2}
	require.NoError(t, store.InsertHabit(ctx, h))

	deletedAt := baseTime.Add(48 * time.Hour)
	h.Name = "Renamed"
	h.SelectedWeekdays = nil
	h.FrequencyType = calendar.Monthly
	h.TargetCount = 4
	h.Status = models.StatusDeleted
	h.DeletedAt = &deletedAt
	h.UpdatedAt = deletedAt
	require.NoError(t, store.PatchHabit(ctx, h))

	got, err := store.GetHabit(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Empty(t, got.SelectedWeekdays)
	assert.Equal(t, calendar.Monthly, got.FrequencyType)
	assert.Equal(t, 4, got.TargetCount)
	assert.Equal(t, models.StatusDeleted, got.Status)
	require.NotNil(t, got.DeletedAt)
	assert.True(t, deletedAt.Equal(*got.DeletedAt))

	err = store.PatchHabit(ctx, habit("ghost", models.StatusActive))
	assert.True(t, errors.Is(err, storage.ErrNotFound), "expected ErrNotFound, got %v", err)
}

func testCompletions(t *testing.T, store storage.HabitStore) {
	ctx := context.Background()

	require.NoError(t, store.InsertHabit(ctx, habit("h1", models.StatusActive)))
	require.NoError(t, store.InsertHabit(ctx, habit("h2", models.StatusActive)))

	inputs := []models.HabitCompletion{
		{ID: "c1", HabitID: "h1", LocalDate: "2024-01-01", PeriodKey: "D:2024-01-01", Count: 1, IsStreakEligible: true},
		{ID: "c2", HabitID: "h1", LocalDate: "2024-01-02", PeriodKey: "D:2024-01-02", Count: 2, IsStreakEligible: false},
		{ID: "c3", HabitID: "h2", LocalDate: "2024-01-02", PeriodKey: "D:2024-01-02", Count: 1, IsStreakEligible: true},
	}
	for i, c := range inputs {
		c.CompletedAt = baseTime.Add(time.Duration(i) * time.Minute)
		c.CreatedAt = c.CompletedAt
		require.NoError(t, store.InsertCompletion(ctx, c))
	}

	got, err := store.QueryCompletionsByHabit(ctx, "h1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	byID := map[string]models.HabitCompletion{}
	for _, c := range got {
		byID[c.ID] = c
	}
	assert.True(t, byID["c1"].IsStreakEligible)
	assert.False(t, byID["c2"].IsStreakEligible)
	assert.Equal(t, 2, byID["c2"].Count)
	assert.Equal(t, "D:2024-01-02", byID["c2"].PeriodKey)
	assert.True(t, baseTime.Add(time.Minute).Equal(byID["c2"].CompletedAt))

	none, err := store.QueryCompletionsByHabit(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testCategories(t *testing.T, store storage.HabitStore) {
	ctx := context.Background()

	require.NoError(t, store.InsertCategory(ctx, models.Category{
		ID: "c1", Name: "deep work", DisplayName: "Deep Work", CreatedAt: baseTime, UpdatedAt: baseTime,
	}))
	require.NoError(t, store.InsertCategory(ctx, models.Category{
		ID: "c2", Name: "health", DisplayName: "Health", CreatedAt: baseTime, UpdatedAt: baseTime,
	}))

	err := store.InsertCategory(ctx, models.Category{
		ID: "c3", Name: "health", DisplayName: "HEALTH", CreatedAt: baseTime, UpdatedAt: baseTime,
	})
	assert.Error(t, err, "category names are unique")

	got, err := store.GetCategory(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Deep Work", got.DisplayName)

	byName, err := store.QueryCategoryByName(ctx, "health")
	require.NoError(t, err)
	assert.Equal(t, "c2", byName.ID)

	_, err = store.QueryCategoryByName(ctx, "sleep")
	assert.True(t, errors.Is(err, storage.ErrNotFound), "expected ErrNotFound, got %v", err)
	_, err = store.GetCategory(ctx, "c9")
	assert.True(t, errors.Is(err, storage.ErrNotFound), "expected ErrNotFound, got %v", err)

	all, err := store.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func testTxCommit(t *testing.T, store storage.HabitStore) {
	ctx := context.Background()

	err := store.WithTx(ctx, func(tx storage.HabitStore) error {
		if err := tx.InsertHabit(ctx, habit("h1", models.StatusActive)); err != nil {
			return err
		}
		// reads inside the transaction see its own writes
		if _, err := tx.GetHabit(ctx, "h1"); err != nil {
			return err
		}
		return tx.InsertCompletion(ctx, models.HabitCompletion{
			ID: "c1", HabitID: "h1", LocalDate: "2024-01-01", PeriodKey: "D:2024-01-01",
			Count: 1, IsStreakEligible: true, CompletedAt: baseTime, CreatedAt: baseTime,
		})
	})
	require.NoError(t, err)

	_, err = store.GetHabit(ctx, "h1")
	require.NoError(t, err)
	completions, err := store.QueryCompletionsByHabit(ctx, "h1")
	require.NoError(t, err)
	assert.Len(t, completions, 1)
}

func testTxRollback(t *testing.T, store storage.HabitStore) {
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithTx(ctx, func(tx storage.HabitStore) error {
		if err := tx.InsertHabit(ctx, habit("h1", models.StatusActive)); err != nil {
			return err
		}
		if err := tx.InsertCategory(ctx, models.Category{
			ID: "c1", Name: "health", DisplayName: "Health", CreatedAt: baseTime, UpdatedAt: baseTime,
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.GetHabit(ctx, "h1")
	assert.True(t, errors.Is(err, storage.ErrNotFound), "habit from a failed transaction leaked: %v", err)
	_, err = store.QueryCategoryByName(ctx, "health")
	assert.True(t, errors.Is(err, storage.ErrNotFound), "category from a failed transaction leaked: %v", err)
}
