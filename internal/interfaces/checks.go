package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/shelfport/internal/audit"
	"github.com/mrlokans/shelfport/internal/auth"
	auditRepo "github.com/mrlokans/shelfport/internal/database/audit"
	"github.com/mrlokans/shelfport/internal/database/imports"
	"github.com/mrlokans/shelfport/internal/database/library"
	"github.com/mrlokans/shelfport/internal/database/users"
	"github.com/mrlokans/shelfport/internal/exporters"
	"github.com/mrlokans/shelfport/internal/formats"
	"github.com/mrlokans/shelfport/internal/http"
	"github.com/mrlokans/shelfport/internal/importers"
	"github.com/mrlokans/shelfport/internal/scheduler"
	"github.com/mrlokans/shelfport/internal/services"
	"github.com/mrlokans/shelfport/internal/tasks"
)

// =============================================================================
// Data Access Layer
// =============================================================================

// Library storage
var _ importers.Store = (*library.Repository)(nil)
var _ exporters.Reader = (*library.Repository)(nil)
var _ http.LibraryStats = (*library.Repository)(nil)

// Import history
var _ services.ImportHistory = (*imports.Repository)(nil)
var _ http.ImportHistoryStore = (*imports.Repository)(nil)

// Users
var _ auth.TokenValidator = (*users.Repository)(nil)
var _ scheduler.UserLister = (*users.Repository)(nil)

// Audit events
var _ audit.EventStore = (*auditRepo.Repository)(nil)

// =============================================================================
// Formats
// =============================================================================

var _ formats.Codec = formats.NativeCodec{}
var _ formats.Codec = formats.CSVCodec{}
var _ formats.Codec = formats.GoodreadsCodec{}

// =============================================================================
// Transfer Orchestration
// =============================================================================

var _ http.Transfer = (*services.TransferService)(nil)
var _ tasks.UploadImporter = (*services.TransferService)(nil)
var _ scheduler.Exporter = (*services.TransferService)(nil)

// =============================================================================
// Audit Logging
// =============================================================================

var _ services.AuditLogger = (*audit.Service)(nil)
var _ services.PayloadArchiver = (*audit.Archiver)(nil)
var _ http.AuditReader = (*audit.Service)(nil)
var _ scheduler.BackupAuditor = (*audit.Service)(nil)
var _ tasks.AuditEventCleaner = (*audit.Service)(nil)
var _ tasks.StaleImportCloser = (*imports.Repository)(nil)

// =============================================================================
// Background Tasks
// =============================================================================

var _ http.JobQueue = (*tasks.Client)(nil)
var _ scheduler.TaskEnqueuer = (*tasks.Client)(nil)
var _ http.Pinger = (*tasks.Client)(nil)
