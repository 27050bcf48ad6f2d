package http

import (
	"github.com/mrlokans/shelfport/internal/auth"
	"github.com/mrlokans/shelfport/internal/database"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Transfer Transfer
	Database *database.Database

	// Optional stores; routes are registered only when set
	History ImportHistoryStore
	Audit   AuditReader
	Stats   LibraryStats

	// Task queue for background imports (optional)
	Jobs      JobQueue
	TaskQueue Pinger // Probed by /health

	// Authentication; nil attributes every request to owner 0
	AuthMiddleware *auth.Middleware

	// Transfer settings
	DefaultExportFormat string
	MaxUploadBytes      int64

	// Application info
	Version string
}
