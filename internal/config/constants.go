package config

const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./keepsake.db"

	// DefaultUploadsDir is where bulk uploads and artifact blobs are stored
	DefaultUploadsDir = "./uploads"

	// DefaultMaxUploadSize caps a single uploaded file at 512 MiB. Messenger
	// export archives commonly run into the hundreds of megabytes.
	DefaultMaxUploadSize int64 = 512 << 20
)
