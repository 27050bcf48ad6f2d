package config

// Default paths
const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./shelfport.db"

	// DefaultBackupDir is where scheduled snapshots are written
	DefaultBackupDir = "./backups"
)
