package main

import (
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/cli/backups"
	"github.com/julianstephens/habitual/internal/cli/habits"
	"github.com/julianstephens/habitual/internal/cli/settings"
	"github.com/julianstephens/habitual/internal/cli/system"
	"github.com/julianstephens/habitual/internal/config"
	"github.com/julianstephens/habitual/internal/constants"
	apperrors "github.com/julianstephens/habitual/internal/errors"
	"github.com/julianstephens/habitual/internal/keyring"
	"github.com/julianstephens/habitual/internal/logger"
)

var CLI struct {
	Version    kong.VersionFlag
	DB         string `name:"db" help:"SQLite path, *.json file or PostgreSQL connection string. Passwords must NOT be embedded; use the OS keyring, HABITUAL_DB_CONNECTION or .pgpass instead."`
	ConfigFile string `help:"Path to the TOML config file." env:"HABITUAL_CONFIG" default:"${config_file}"`
	Debug      bool   `help:"Log debug output to stderr."`
	Today      string `help:"Treat this YYYY-MM-DD date as today."`

	Init     system.InitCmd       `cmd:"" help:"Initialize habitual storage."`
	Migrate  system.MigrateCmd    `cmd:"" help:"Run database migrations."`
	Doctor   system.DoctorCmd     `cmd:"" help:"Run health checks and diagnostics."`
	Tui      system.TuiCmd        `cmd:"" help:"Launch the interactive TUI." default:"1"`
	Serve    system.ServeCmd      `cmd:"" help:"Serve the JSON HTTP API."`
	Habit    habits.HabitCmd      `cmd:"" help:"Manage habits and log completions."`
	Category habits.CategoryCmd   `cmd:"" help:"Inspect habit categories."`
	Remind   habits.RemindCmd     `cmd:"" help:"Send a reminder for habits still open today."`
	Settings settings.SettingsCmd `cmd:"" help:"Manage application settings."`
	Keyring  system.KeyringCmd    `cmd:"" help:"Manage the PostgreSQL connection string in the OS keyring."`
	Backup   struct {
		Create  backups.BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
		List    backups.BackupListCmd    `cmd:"" help:"List available backups."`
		Restore backups.BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
	} `cmd:"" help:"Manage SQLite database backups."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Habit tracker with period-based progress and streaks"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version":     constants.Version,
			"config_file": constants.DefaultConfigFile,
		},
	)

	cfg, err := config.Load(CLI.ConfigFile)
	apperrors.Fatal(err)

	logDir := cfg.LogDir
	if logDir != "" {
		logDir = config.ExpandHome(logDir)
	}
	if err := logger.Init(logger.Config{
		Debug:     CLI.Debug || cfg.Debug,
		ConfigDir: config.ExpandHome(constants.DefaultConfigDir),
		LogDir:    logDir,
	}); err != nil {
		apperrors.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Close()

	target, err := keyring.ResolveDatabase(CLI.DB, cfg.Database)
	apperrors.Fatal(err)
	// Values typed on the command line or kept in the config file must not
	// carry a password; the keyring and the environment may.
	fromSecretStore := CLI.DB == "" && target != cfg.Database
	store, err := cli.OpenStore(target, fromSecretStore)
	apperrors.Fatal(err)
	logger.Debug("Running command", "command", ctx.Command())

	appCtx := cli.NewContext(store, cfg)
	appCtx.TodayOverride = CLI.Today

	if needsStore(ctx.Command()) {
		if err := store.Load(); err != nil {
			code := apperrors.Report(os.Stderr, err)
			logger.Close()
			os.Exit(code)
		}
	}

	err = ctx.Run(appCtx)
	closeErr := store.Close()
	if err == nil {
		err = closeErr
	}
	if code := apperrors.Report(os.Stderr, err); code != 0 {
		logger.Close()
		os.Exit(code)
	}
}

// needsStore reports whether command runs against a loaded store. init
// creates it, doctor reports load failures itself and keyring never reads it.
func needsStore(command string) bool {
	name, _, _ := strings.Cut(command, " ")
	switch name {
	case "init", "doctor", "keyring":
		return false
	}
	return true
}
