package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/shelfport/internal/snapshot"
)

// UploadImporter runs a queued upload under its pending import session.
type UploadImporter interface {
	RunQueuedUpload(ctx context.Context, sessionID, ownerID uint, data []byte, format snapshot.Format, dryRun bool) (snapshot.ImportSummary, error)
}

// ImportTimeout bounds one background import.
const ImportTimeout = 10 * time.Minute

// ImportUploadTask imports an uploaded file in the background. The raw
// payload is carried so row notes from tabular formats survive the queue.
type ImportUploadTask struct {
	JobID     string          `json:"job_id"`
	SessionID uint            `json:"session_id"`
	OwnerID   uint            `json:"owner_id"`
	Format    snapshot.Format `json:"format"`
	DryRun    bool            `json:"dry_run"`
	Payload   []byte          `json:"payload"`
}

// Config returns the queue configuration for import tasks. Imports are
// atomic and their outcome is recorded on the session, so they are not
// retried.
func (t ImportUploadTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "import_upload",
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     ImportTimeout,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// ImportUploadProcessor creates a processor function for ImportUploadTask.
func ImportUploadProcessor(importer UploadImporter) backlite.QueueProcessor[ImportUploadTask] {
	return func(ctx context.Context, task ImportUploadTask) error {
		if importer == nil {
			return fmt.Errorf("importer not configured")
		}

		summary, err := importer.RunQueuedUpload(ctx, task.SessionID, task.OwnerID, task.Payload, task.Format, task.DryRun)
		if err != nil {
			// Rejected input is a finished job: the session already says why.
			var snapErr *snapshot.Error
			if errors.As(err, &snapErr) && snapErr.Kind != snapshot.KindPersistenceFailure {
				log.Printf("[TASK] Import job %s rejected: %v", task.JobID, err)
				return nil
			}
			return fmt.Errorf("import job %s: %w", task.JobID, err)
		}

		log.Printf("[TASK] Import job %s finished: phase=%s added=%d updated=%d",
			task.JobID, summary.Phase, summary.TotalAdded(), summary.TotalUpdated())
		return nil
	}
}

// NewImportUploadQueue creates a backlite queue for background imports.
func NewImportUploadQueue(importer UploadImporter) backlite.Queue {
	return backlite.NewQueue(ImportUploadProcessor(importer))
}
