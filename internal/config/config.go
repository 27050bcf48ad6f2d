package config

import (
	"time"

	"github.com/spf13/viper"
)

type AuthMode string

const (
	AuthModeNone  AuthMode = "none"  // No authentication required (default)
	AuthModeToken AuthMode = "token" // Bearer API token per user
)

type (
	Config struct {
		HTTP
		Database
		Import
		Export
		Backup
		Audit
		Tasks
		Auth
		Global
	}

	HTTP struct {
		Port int32
		Host string
	}
	Database struct {
		Path  string
		Debug bool // Log every SQL statement
	}
	Import struct {
		MaxUploadBytes int64   // Largest accepted upload
		FuzzyThreshold float64 // Title/author similarity treated as the same book
		ArchiveDir     string  // Keep a copy of every upload here; empty disables
	}
	Export struct {
		DefaultFormat string
	}
	Backup struct {
		Enabled  bool
		Schedule string // Cron format: "0 3 * * *" = daily at 03:00
		Dir      string
		Keep     int // Snapshots kept per user, 0 keeps all
	}
	Audit struct {
		RetentionDays int // Days to keep audit events (default: 30)
	}
	Tasks struct {
		Enabled         bool
		DatabasePath    string
		Workers         int
		ReleaseAfter    time.Duration // Pending imports older than this are failed at startup
		CleanupInterval time.Duration
	}
	Auth struct {
		Mode          AuthMode
		DefaultUserID uint // Owner used for every request in "none" mode

		// Rate limiting of failed token attempts
		MaxFailedAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow   time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration   time.Duration // How long to lock out (default: 30m)
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_debug", false)

	// Import/export defaults
	v.SetDefault("import_max_upload_bytes", 32<<20) // 32 MiB
	v.SetDefault("import_fuzzy_threshold", 0.9)
	v.SetDefault("import_archive_dir", "")
	v.SetDefault("export_default_format", "native")

	// Backup defaults
	v.SetDefault("backup_enabled", false)
	v.SetDefault("backup_schedule", "0 3 * * *") // Daily at 03:00
	v.SetDefault("backup_dir", DefaultBackupDir)
	v.SetDefault("backup_keep", 7)

	v.SetDefault("audit_retention_days", 30)

	// Auth defaults
	v.SetDefault("auth_mode", "none")
	v.SetDefault("auth_default_user_id", 1)
	v.SetDefault("auth_max_failed_attempts", 5)
	v.SetDefault("auth_rate_limit_window", "15m")
	v.SetDefault("auth_lockout_duration", "30m")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("tasks_database_path", "") // Empty: "<db>-tasks.db" next to the main database
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Database: Database{
			Path:  v.GetString("DATABASE_PATH"),
			Debug: v.GetBool("DATABASE_DEBUG"),
		},
		Import: Import{
			MaxUploadBytes: v.GetInt64("IMPORT_MAX_UPLOAD_BYTES"),
			FuzzyThreshold: v.GetFloat64("IMPORT_FUZZY_THRESHOLD"),
			ArchiveDir:     v.GetString("IMPORT_ARCHIVE_DIR"),
		},
		Export: Export{
			DefaultFormat: v.GetString("EXPORT_DEFAULT_FORMAT"),
		},
		Backup: Backup{
			Enabled:  v.GetBool("BACKUP_ENABLED"),
			Schedule: v.GetString("BACKUP_SCHEDULE"),
			Dir:      v.GetString("BACKUP_DIR"),
			Keep:     v.GetInt("BACKUP_KEEP"),
		},
		Audit: Audit{
			RetentionDays: v.GetInt("AUDIT_RETENTION_DAYS"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			DatabasePath:    v.GetString("TASKS_DATABASE_PATH"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Auth: Auth{
			Mode:              AuthMode(v.GetString("AUTH_MODE")),
			DefaultUserID:     v.GetUint("AUTH_DEFAULT_USER_ID"),
			MaxFailedAttempts: v.GetInt("AUTH_MAX_FAILED_ATTEMPTS"),
			RateLimitWindow:   v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:   v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
	}
}
