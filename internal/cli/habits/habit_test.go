package habits

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/habitual/internal/calendar"
	"github.com/julianstephens/habitual/internal/cli"
	habitsvc "github.com/julianstephens/habitual/internal/habits"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/storage/sqlite"
)

const testToday = "2024-01-04"

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type sequentialIDs struct{ n int }

func (g *sequentialIDs) New() string {
	g.n++
	return fmt.Sprintf("id-%d", g.n)
}

func setupTestContext(t *testing.T) (*cli.Context, *bytes.Buffer) {
	t.Helper()
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	})

	out := &bytes.Buffer{}
	ctx := cli.NewContext(store, nil)
	ctx.Service = habitsvc.NewService(store, fixedClock{t: time.Date(2024, 1, 4, 12, 0, 0, 0, time.UTC)}, &sequentialIDs{})
	ctx.TodayOverride = testToday
	ctx.Out = out
	return ctx, out
}

func addHabit(t *testing.T, ctx *cli.Context, cmd HabitAddCmd) string {
	t.Helper()
	if cmd.Frequency == "" {
		cmd.Frequency = "daily"
	}
	if cmd.Target == 0 {
		cmd.Target = 1
	}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	stats, err := ctx.Service.ListHabitsWithStats(context.Background(), models.StatusActive, testToday)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	for _, h := range stats {
		if h.Name == strings.TrimSpace(cmd.Name) {
			return h.ID
		}
	}
	t.Fatalf("habit %q not found after add", cmd.Name)
	return ""
}

func TestHabitAddCmd(t *testing.T) {
	ctx, out := setupTestContext(t)

	id := addHabit(t, ctx, HabitAddCmd{
		Name:      "Stretch",
		Frequency: "Daily",
		Weekdays:  "mon,wed",
		Category:  "Health",
	})

	if !strings.Contains(out.String(), `Added habit "Stretch"`) {
		t.Errorf("unexpected output: %q", out.String())
	}

	habit, err := ctx.Service.GetHabit(context.Background(), id)
	if err != nil {
		t.Fatalf("GetHabit failed: %v", err)
	}
	if habit.StartDate != testToday {
		t.Errorf("expected start date to default to today, got %s", habit.StartDate)
	}
	if len(habit.SelectedWeekdays) != 2 || habit.SelectedWeekdays[0] != 1 || habit.SelectedWeekdays[1] != 3 {
		t.Errorf("unexpected weekdays %v", habit.SelectedWeekdays)
	}
	if habit.CategoryID == "" {
		t.Error("expected category to be created")
	}
}

func TestHabitAddCmd_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		cmd  HabitAddCmd
	}{
		{"bad frequency", HabitAddCmd{Name: "x", Frequency: "hourly", Target: 1}},
		{"bad weekdays", HabitAddCmd{Name: "x", Frequency: "daily", Target: 1, Weekdays: "noday"}},
		{"weekdays on weekly", HabitAddCmd{Name: "x", Frequency: "weekly", Target: 1, Weekdays: "mon"}},
		{"zero target", HabitAddCmd{Name: "x", Frequency: "daily", Target: 0}},
		{"bad start", HabitAddCmd{Name: "x", Frequency: "daily", Target: 1, Start: "2024-13-01"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, _ := setupTestContext(t)
			err := tt.cmd.Run(ctx)
			if !errors.Is(err, habitsvc.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestHabitEditCmd(t *testing.T) {
	ctx, out := setupTestContext(t)
	id := addHabit(t, ctx, HabitAddCmd{Name: "Read", Weekdays: "mon", Category: "Learning"})

	out.Reset()
	if err := (&HabitEditCmd{ID: id}).Run(ctx); err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	if !strings.Contains(out.String(), "No changes specified.") {
		t.Errorf("unexpected output: %q", out.String())
	}

	name := "Read more"
	freq := "weekly"
	target := 3
	clear := ""
	cmd := &HabitEditCmd{ID: id, Name: &name, Frequency: &freq, Target: &target, Category: &clear}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("edit failed: %v", err)
	}

	habit, err := ctx.Service.GetHabit(context.Background(), id)
	if err != nil {
		t.Fatalf("GetHabit failed: %v", err)
	}
	if habit.Name != "Read more" || habit.FrequencyType != calendar.Weekly || habit.TargetCount != 3 {
		t.Errorf("habit not updated: %+v", habit)
	}
	if len(habit.SelectedWeekdays) != 0 {
		t.Errorf("expected weekdays cleared when switching to weekly, got %v", habit.SelectedWeekdays)
	}
	if habit.CategoryID != "" {
		t.Errorf("expected category cleared, got %q", habit.CategoryID)
	}

	if err := (&HabitEditCmd{ID: "missing", Name: &name}).Run(ctx); !errors.Is(err, habitsvc.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestHabitDoneCmd(t *testing.T) {
	ctx, out := setupTestContext(t)
	id := addHabit(t, ctx, HabitAddCmd{Name: "Run", Start: "2024-01-01", Weekdays: "mon,tue,wed"})

	out.Reset()
	if err := (&HabitDoneCmd{ID: id, Date: "2024-01-03"}).Run(ctx); err != nil {
		t.Fatalf("done failed: %v", err)
	}
	if !strings.Contains(out.String(), "Logged completion for 2024-01-03 (1/1)") {
		t.Errorf("unexpected output: %q", out.String())
	}

	out.Reset()
	if err := (&HabitDoneCmd{ID: id, Date: "2024-01-03"}).Run(ctx); err != nil {
		t.Fatalf("done failed: %v", err)
	}
	if !strings.Contains(out.String(), "Already complete") {
		t.Errorf("unexpected output: %q", out.String())
	}

	// Thursday is not a selected weekday
	out.Reset()
	if err := (&HabitDoneCmd{ID: id}).Run(ctx); err != nil {
		t.Fatalf("done failed: %v", err)
	}
	if !strings.Contains(out.String(), "streak is unaffected") {
		t.Errorf("expected ineligible notice, got %q", out.String())
	}

	err := (&HabitDoneCmd{ID: id, Date: "2023-12-31"}).Run(ctx)
	if !errors.Is(err, habitsvc.ErrNotStarted) {
		t.Errorf("expected not started, got %v", err)
	}
	err = (&HabitDoneCmd{ID: id, Date: "01/03/2024"}).Run(ctx)
	if !errors.Is(err, habitsvc.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestHabitListAndShowCmd(t *testing.T) {
	ctx, out := setupTestContext(t)
	readID := addHabit(t, ctx, HabitAddCmd{Name: "Read", Start: "2024-01-01", Category: "Learning"})
	addHabit(t, ctx, HabitAddCmd{Name: "Swim", Start: "2024-02-01", Frequency: "weekly", Target: 2})

	for _, date := range []string{"2024-01-02", "2024-01-03", "2024-01-04"} {
		if _, err := ctx.Service.CompleteHabit(context.Background(), readID, date, nil); err != nil {
			t.Fatalf("CompleteHabit failed: %v", err)
		}
	}

	out.Reset()
	if err := (&HabitListCmd{}).Run(ctx); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	listing := out.String()
	for _, want := range []string{"Read", "Swim", "Learning", "1/1 ✓", "starts 2024-02-01", "2x weekly"} {
		if !strings.Contains(listing, want) {
			t.Errorf("list output missing %q:\n%s", want, listing)
		}
	}
	if strings.Index(listing, "Read") > strings.Index(listing, "Swim") {
		t.Errorf("expected habits sorted by name:\n%s", listing)
	}

	out.Reset()
	if err := (&HabitShowCmd{ID: readID}).Run(ctx); err != nil {
		t.Fatalf("show failed: %v", err)
	}
	show := out.String()
	for _, want := range []string{"Name:        Read", "Category:    Learning", "Streak:      3"} {
		if !strings.Contains(show, want) {
			t.Errorf("show output missing %q:\n%s", want, show)
		}
	}

	out.Reset()
	if err := (&HabitListCmd{Archived: true}).Run(ctx); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out.String(), "No archived habits found.") {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestHabitLifecycleCmds(t *testing.T) {
	ctx, out := setupTestContext(t)
	id := addHabit(t, ctx, HabitAddCmd{Name: "Floss"})

	if err := (&HabitRestoreCmd{ID: id}).Run(ctx); !errors.Is(err, habitsvc.ErrNotFound) {
		t.Errorf("restoring an active habit should fail with not found, got %v", err)
	}
	if err := (&HabitArchiveCmd{ID: id}).Run(ctx); err != nil {
		t.Fatalf("archive failed: %v", err)
	}
	if err := (&HabitDoneCmd{ID: id}).Run(ctx); !errors.Is(err, habitsvc.ErrNotFound) {
		t.Errorf("completing an archived habit should fail with not found, got %v", err)
	}
	if err := (&HabitRestoreCmd{ID: id}).Run(ctx); err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	out.Reset()
	ctx.In = strings.NewReader("n\n")
	if err := (&HabitDeleteCmd{ID: id}).Run(ctx); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if !strings.Contains(out.String(), "Delete cancelled.") {
		t.Errorf("unexpected output: %q", out.String())
	}

	ctx.In = strings.NewReader("yes\n")
	if err := (&HabitDeleteCmd{ID: id}).Run(ctx); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := ctx.Service.GetHabit(context.Background(), id); !errors.Is(err, habitsvc.ErrNotFound) {
		t.Errorf("expected deleted habit to be gone, got %v", err)
	}

	if err := (&HabitDeleteCmd{ID: id, Yes: true}).Run(ctx); !errors.Is(err, habitsvc.ErrNotFound) {
		t.Errorf("deleting twice should fail with not found, got %v", err)
	}
}

func TestCategoryListCmd(t *testing.T) {
	ctx, out := setupTestContext(t)

	if err := (&CategoryListCmd{}).Run(ctx); err != nil {
		t.Fatalf("category list failed: %v", err)
	}
	if !strings.Contains(out.String(), "No categories found.") {
		t.Errorf("unexpected output: %q", out.String())
	}

	addHabit(t, ctx, HabitAddCmd{Name: "Yoga", Category: "wellness"})
	addHabit(t, ctx, HabitAddCmd{Name: "Read", Category: "Books"})
	addHabit(t, ctx, HabitAddCmd{Name: "Run", Category: "  WELLNESS "})

	out.Reset()
	if err := (&CategoryListCmd{}).Run(ctx); err != nil {
		t.Fatalf("category list failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 categories, got %d:\n%s", len(lines), out.String())
	}
	if !strings.HasSuffix(lines[0], "Books") || !strings.HasSuffix(lines[1], "wellness") {
		t.Errorf("unexpected category order:\n%s", out.String())
	}
}

func TestHabitEditCmd_MissingCategoryRecord(t *testing.T) {
	ctx, _ := setupTestContext(t)
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	err := ctx.Store.InsertHabit(context.Background(), models.Habit{
		ID:            "h1",
		Name:          "Stretch",
		StartDate:     "2024-01-01",
		FrequencyType: calendar.Daily,
		TargetCount:   1,
		CategoryID:    "gone",
		Status:        models.StatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		t.Fatalf("InsertHabit failed: %v", err)
	}

	target := 2
	if err := (&HabitEditCmd{ID: "h1", Target: &target}).Run(ctx); err != nil {
		t.Fatalf("edit failed: %v", err)
	}

	habit, err := ctx.Service.GetHabit(context.Background(), "h1")
	if err != nil {
		t.Fatalf("GetHabit failed: %v", err)
	}
	if habit.TargetCount != 2 {
		t.Errorf("expected target 2, got %d", habit.TargetCount)
	}
	if habit.CategoryID != "gone" {
		t.Errorf("expected category reference kept, got %q", habit.CategoryID)
	}
}
