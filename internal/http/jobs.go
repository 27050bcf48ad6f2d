package http

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/shelfport/internal/database/imports"
	"github.com/mrlokans/shelfport/internal/snapshot"
	"github.com/mrlokans/shelfport/internal/tasks"
)

// ImportJobsController accepts imports for background processing and
// reports their progress.
type ImportJobsController struct {
	transfer       Transfer
	history        ImportHistoryStore
	queue          JobQueue
	maxUploadBytes int64
}

// NewImportJobsController creates an ImportJobsController.
func NewImportJobsController(transfer Transfer, history ImportHistoryStore, queue JobQueue, maxUploadBytes int64) *ImportJobsController {
	return &ImportJobsController{
		transfer:       transfer,
		history:        history,
		queue:          queue,
		maxUploadBytes: maxUploadBytes,
	}
}

// Enqueue handles POST /api/import/jobs
//
// The upload is decoded before it is queued, so unreadable files are rejected
// immediately. Responds 202 with the job and session ids.
func (jc *ImportJobsController) Enqueue(c *gin.Context) {
	format := snapshot.ParseFormat(c.Query("format"))
	dryRun, ok := parseBoolQuery(c, "dry_run")
	if !ok {
		return
	}
	data, ok := readUpload(c, jc.maxUploadBytes)
	if !ok {
		return
	}
	if _, err := jc.transfer.DecodeUpload(data, format); err != nil {
		respondTransferError(c, err, nil)
		return
	}

	ownerID := GetUserID(c)
	queued, err := jc.transfer.QueueImport(c.Request.Context(), ownerID, format, dryRun)
	if err != nil {
		respondTransferError(c, err, nil)
		return
	}

	_, err = jc.queue.Add(tasks.ImportUploadTask{
		JobID:     queued.JobID,
		SessionID: queued.SessionID,
		OwnerID:   ownerID,
		Format:    format,
		DryRun:    dryRun,
		Payload:   data,
	}).Save()
	if err != nil {
		if queued.SessionID != 0 {
			if ferr := jc.history.Finish(context.WithoutCancel(c.Request.Context()), queued.SessionID, snapshot.NewImportSummary(), err); ferr != nil {
				log.Printf("[IMPORT] Failed to close session %d: %v", queued.SessionID, ferr)
			}
		}
		respondInternalError(c, err, "enqueue import")
		return
	}

	log.Printf("[IMPORT] Queued job %s for owner %d (format=%s dry_run=%t)", queued.JobID, ownerID, format, dryRun)
	respondAccepted(c, "import queued", queued)
}

// Status handles GET /api/import/jobs/:id
func (jc *ImportJobsController) Status(c *gin.Context) {
	session, err := jc.history.GetByJobID(c.Request.Context(), GetUserID(c), c.Param("id"))
	if err != nil {
		if imports.IsNotFound(err) {
			respondNotFound(c, "import job")
			return
		}
		respondInternalError(c, err, "get import job")
		return
	}
	c.JSON(http.StatusOK, session)
}
