package system

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/julianstephens/habitual/internal/calendar"
	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/habits"
	"github.com/julianstephens/habitual/internal/storage"
	"github.com/julianstephens/habitual/internal/storage/sqlite"
)

// newContext returns a context over an uninitialized SQLite store.
func newContext(t *testing.T, store storage.Provider) (*cli.Context, *bytes.Buffer) {
	t.Helper()
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	})
	out := &bytes.Buffer{}
	ctx := cli.NewContext(store, nil)
	ctx.Out = out
	ctx.TodayOverride = "2024-01-04"
	return ctx, out
}

func setupInitialized(t *testing.T) (*cli.Context, *sqlite.Store, *bytes.Buffer) {
	t.Helper()
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	ctx, out := newContext(t, store)
	return ctx, store, out
}

func addHabit(t *testing.T, svc *habits.Service, name, category string) string {
	t.Helper()
	id, err := svc.CreateHabit(context.Background(), habits.HabitInput{
		Name:          name,
		StartDate:     "2024-01-01",
		FrequencyType: calendar.Daily,
		TargetCount:   1,
		CategoryName:  category,
	})
	if err != nil {
		t.Fatalf("CreateHabit(%q) failed: %v", name, err)
	}
	return id
}
