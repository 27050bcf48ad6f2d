package http

import (
	"context"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/shelfport/internal/database/audit"
	"github.com/mrlokans/shelfport/internal/entities"
	"github.com/mrlokans/shelfport/internal/formats"
	"github.com/mrlokans/shelfport/internal/services"
	"github.com/mrlokans/shelfport/internal/snapshot"
)

// Transfer runs exports and imports for an owner.
type Transfer interface {
	Codec(format snapshot.Format) (formats.Codec, error)
	Formats() []snapshot.Format
	PrepareExport(ctx context.Context, ownerID uint, opts services.ExportOptions) ([]byte, error)
	DecodeUpload(data []byte, format snapshot.Format) (snapshot.Snapshot, error)
	RunImport(ctx context.Context, ownerID uint, snap snapshot.Snapshot) (snapshot.ImportSummary, error)
	DryRunImport(ctx context.Context, ownerID uint, snap snapshot.Snapshot) (snapshot.ImportSummary, error)
	QueueImport(ctx context.Context, ownerID uint, format snapshot.Format, dryRun bool) (services.QueuedImport, error)
}

// ImportHistoryStore reads and closes import sessions.
type ImportHistoryStore interface {
	Get(ctx context.Context, userID, id uint) (*entities.ImportSession, error)
	GetByJobID(ctx context.Context, userID uint, jobID string) (*entities.ImportSession, error)
	ListForUser(ctx context.Context, userID uint, limit int) ([]entities.ImportSession, error)
	Finish(ctx context.Context, id uint, summary snapshot.ImportSummary, runErr error) error
}

// AuditReader lists audit events.
type AuditReader interface {
	GetEvents(ctx context.Context, f audit.Filter) ([]entities.AuditEvent, int64, error)
}

// LibraryStats counts an owner's rows per category.
type LibraryStats interface {
	Stats(ctx context.Context, ownerID uint) (map[snapshot.Category]int64, error)
}

// JobQueue enqueues background tasks.
type JobQueue interface {
	Add(tasks ...backlite.Task) *backlite.TaskAddOp
}
