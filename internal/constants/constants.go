package constants

const (
	AppName            = "habitual"
	DefaultKeyringUser = "database-connection"
	DefaultConfigDir   = "~/.config/habitual"
	DefaultConfigPath  = "~/.config/habitual/habitual.db"
	DefaultConfigFile  = "~/.config/habitual/config.toml"
	DefaultListenAddr  = "127.0.0.1:8080"
	Version            = "v0.3.0"
	LogFileName        = "habitual.log"
	DefaultSchema      = "habitual"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// Environment variables
	EnvDBConnection   = "HABITUAL_DB_CONNECTION"
	EnvTestPostgres   = "HABITUAL_TEST_POSTGRES"
	EnvConfigFile     = "HABITUAL_CONFIG"
	PostgresSchemaEnv = "HABITUAL_PG_SCHEMA"

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "habitual-"
	BackupFileSuffix = ".db"

	// Reminder webhook
	EnvNotifySecret        = "HABITUAL_NOTIFY_SECRET"
	NotifySecretHeader     = "X-Habitual-Secret"
	NotifyMaxRetries       = 3
	NotificationDurationMs = 5000

	// Settings keys
	SettingTimezone = "timezone"

	// Default settings values
	DefaultTimezone = "Local" // Use system local timezone by default
)
