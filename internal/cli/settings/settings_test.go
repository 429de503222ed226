package settings

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/config"
	"github.com/julianstephens/habitual/internal/habits"
	"github.com/julianstephens/habitual/internal/storage/sqlite"
)

func setupTestDB(t *testing.T) (*cli.Context, *bytes.Buffer) {
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
	ctx.Out = out
	return ctx, out
}

func TestSettingsShowCmd(t *testing.T) {
	ctx, out := setupTestDB(t)

	if err := (&SettingsShowCmd{}).Run(ctx); err != nil {
		t.Fatalf("settings show failed: %v", err)
	}
	if !strings.Contains(out.String(), "Timezone:  Local") {
		t.Errorf("unexpected output: %q", out.String())
	}
	if strings.Contains(out.String(), "overridden") {
		t.Errorf("no override expected: %q", out.String())
	}

	out.Reset()
	ctx.Config = &config.Config{Timezone: "Asia/Tokyo"}
	if err := (&SettingsShowCmd{}).Run(ctx); err != nil {
		t.Fatalf("settings show failed: %v", err)
	}
	if !strings.Contains(out.String(), "overridden by config file: Asia/Tokyo") {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestSettingsSetCmd_Timezone(t *testing.T) {
	ctx, out := setupTestDB(t)

	if err := (&SettingsSetCmd{Timezone: "America/New_York"}).Run(ctx); err != nil {
		t.Fatalf("settings set failed: %v", err)
	}
	if !strings.Contains(out.String(), "Settings updated successfully.") {
		t.Errorf("unexpected output: %q", out.String())
	}

	settings, err := ctx.Store.GetSettings()
	if err != nil {
		t.Fatalf("GetSettings failed: %v", err)
	}
	if settings.Timezone != "America/New_York" {
		t.Errorf("Timezone = %q, want America/New_York", settings.Timezone)
	}
}

func TestSettingsSetCmd_InvalidTimezone(t *testing.T) {
	ctx, _ := setupTestDB(t)

	err := (&SettingsSetCmd{Timezone: "Mars/Olympus_Mons"}).Run(ctx)
	if !errors.Is(err, habits.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	settings, err := ctx.Store.GetSettings()
	if err != nil {
		t.Fatalf("GetSettings failed: %v", err)
	}
	if settings.Timezone != "Local" {
		t.Errorf("Timezone changed to %q", settings.Timezone)
	}
}

func TestSettingsSetCmd_NoChanges(t *testing.T) {
	ctx, out := setupTestDB(t)

	if err := (&SettingsSetCmd{}).Run(ctx); err != nil {
		t.Fatalf("settings set failed: %v", err)
	}
	if !strings.Contains(out.String(), "No changes specified.") {
		t.Errorf("unexpected output: %q", out.String())
	}
}
