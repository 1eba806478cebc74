package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Database
		Uploads
		Import
		Cleanup
		Audit
		Global
		Tasks
	}

	HTTP struct {
		Port int32
		Host string
	}
	Database struct {
		Path string
	}
	Uploads struct {
		Dir         string
		TTL         time.Duration // How long bulk uploads are kept before cleanup
		MaxFileSize int64         // Per-file upload cap in bytes
	}
	Import struct {
		ParseWorkers int // Concurrent parse workers for bulk imports
	}
	Cleanup struct {
		Schedule string // Cron format: "0 * * * *" = hourly
	}
	Audit struct {
		Dir           string
		RetentionDays int // Days to keep audit events (default: 30)
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8288)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("uploads_dir", DefaultUploadsDir)
	v.SetDefault("uploads_ttl", "24h")
	v.SetDefault("uploads_max_file_size", DefaultMaxUploadSize)
	v.SetDefault("import_parse_workers", 4)
	v.SetDefault("cleanup_schedule", "0 * * * *") // Hourly at :00
	v.SetDefault("audit_dir", "./audit")
	v.SetDefault("audit_retention_days", 30)

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Uploads: Uploads{
			Dir:         v.GetString("UPLOADS_DIR"),
			TTL:         v.GetDuration("UPLOADS_TTL"),
			MaxFileSize: v.GetInt64("UPLOADS_MAX_FILE_SIZE"),
		},
		Import: Import{
			ParseWorkers: v.GetInt("IMPORT_PARSE_WORKERS"),
		},
		Cleanup: Cleanup{
			Schedule: v.GetString("CLEANUP_SCHEDULE"),
		},
		Audit: Audit{
			Dir:           v.GetString("AUDIT_DIR"),
			RetentionDays: v.GetInt("AUDIT_RETENTION_DAYS"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
	}
}
