package services

import (
	"context"

	"github.com/mrlokans/shelfport/internal/entities"
	"github.com/mrlokans/shelfport/internal/snapshot"
)

// ImportHistory records import runs.
type ImportHistory interface {
	Begin(ctx context.Context, userID uint, format string, dryRun bool, jobID string) (*entities.ImportSession, error)
	MarkRunning(ctx context.Context, id uint) error
	Finish(ctx context.Context, id uint, summary snapshot.ImportSummary, runErr error) error
}

// AuditLogger records import and export events.
type AuditLogger interface {
	LogImport(userID uint, format snapshot.Format, summary snapshot.ImportSummary, dryRun bool, err error)
	LogExport(userID uint, format snapshot.Format, records int, err error)
}

// PayloadArchiver keeps a copy of uploaded files.
type PayloadArchiver interface {
	SavePayload(data []byte, ext string) (string, error)
}
