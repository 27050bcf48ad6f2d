// Package services exposes library transfer to the API and CLI layers.
package services

import (
	"context"
	"log"

	"github.com/google/uuid"

	"github.com/mrlokans/shelfport/internal/exporters"
	"github.com/mrlokans/shelfport/internal/formats"
	"github.com/mrlokans/shelfport/internal/importers"
	"github.com/mrlokans/shelfport/internal/snapshot"
)

// ExportOptions selects what PrepareExport serializes.
type ExportOptions struct {
	Format     snapshot.Format
	Categories exporters.Selection
	DateRange  *exporters.DateRange
}

// QueuedImport identifies an import accepted for background processing.
type QueuedImport struct {
	JobID     string `json:"jobId"`
	SessionID uint   `json:"sessionId"`
}

// TransferService runs exports and imports for an owner. History, audit and
// archiving are optional and never fail a transfer.
type TransferService struct {
	codecs   *formats.Registry
	selector *exporters.Selector
	pipeline *importers.Pipeline
	history  ImportHistory
	audit    AuditLogger
	archiver PayloadArchiver
}

// NewTransferService creates a TransferService.
func NewTransferService(codecs *formats.Registry, selector *exporters.Selector, pipeline *importers.Pipeline) *TransferService {
	return &TransferService{codecs: codecs, selector: selector, pipeline: pipeline}
}

// WithHistory records every import as an import session.
func (s *TransferService) WithHistory(history ImportHistory) *TransferService {
	s.history = history
	return s
}

// WithAuditLogger records imports and exports as audit events.
func (s *TransferService) WithAuditLogger(audit AuditLogger) *TransferService {
	s.audit = audit
	return s
}

// WithArchiver keeps a copy of every decoded upload.
func (s *TransferService) WithArchiver(archiver PayloadArchiver) *TransferService {
	s.archiver = archiver
	return s
}

// Codec returns the codec for a format.
func (s *TransferService) Codec(format snapshot.Format) (formats.Codec, error) {
	return s.codecs.Codec(format)
}

// Formats lists the formats every transfer accepts.
func (s *TransferService) Formats() []snapshot.Format {
	return s.codecs.Formats()
}

// PrepareExport serializes the selected part of the owner's library.
func (s *TransferService) PrepareExport(ctx context.Context, ownerID uint, opts ExportOptions) ([]byte, error) {
	codec, err := s.codecs.Codec(opts.Format)
	if err != nil {
		return nil, err
	}

	snap, err := s.selector.Export(ctx, ownerID, opts.Categories, opts.DateRange)
	if err != nil {
		s.logExport(ownerID, opts.Format, 0, err)
		return nil, err
	}

	data, err := codec.Encode(snap)
	if err != nil {
		s.logExport(ownerID, opts.Format, 0, err)
		return nil, err
	}

	log.Printf("[EXPORT] owner=%d format=%s records=%d bytes=%d", ownerID, opts.Format, snap.RecordCount(), len(data))
	s.logExport(ownerID, opts.Format, snap.RecordCount(), nil)
	return data, nil
}

// DecodeUpload parses an uploaded file. The snapshot is tagged with the
// format it was decoded from when the payload does not say otherwise.
func (s *TransferService) DecodeUpload(data []byte, format snapshot.Format) (snapshot.Snapshot, error) {
	snap, codec, err := s.decode(data, format)
	if err != nil {
		return snapshot.Snapshot{}, err
	}

	if s.archiver != nil {
		if name, err := s.archiver.SavePayload(data, codec.Extension()); err != nil {
			log.Printf("[IMPORT] Failed to archive upload: %v", err)
		} else {
			log.Printf("[IMPORT] Archived upload as %s", name)
		}
	}
	return snap, nil
}

func (s *TransferService) decode(data []byte, format snapshot.Format) (snapshot.Snapshot, formats.Codec, error) {
	codec, err := s.codecs.Codec(format)
	if err != nil {
		return snapshot.Snapshot{}, nil, err
	}
	snap, err := codec.Decode(data)
	if err != nil {
		return snapshot.Snapshot{}, nil, err
	}
	if snap.Metadata.FormatTag == "" {
		snap.Metadata.FormatTag = format
	}
	return snap, codec, nil
}

// RunImport imports a decoded snapshot for the owner.
func (s *TransferService) RunImport(ctx context.Context, ownerID uint, snap snapshot.Snapshot) (snapshot.ImportSummary, error) {
	return s.run(ctx, ownerID, snap, false, 0)
}

// DryRunImport reports what RunImport would do without writing anything.
func (s *TransferService) DryRunImport(ctx context.Context, ownerID uint, snap snapshot.Snapshot) (snapshot.ImportSummary, error) {
	return s.run(ctx, ownerID, snap, true, 0)
}

// QueueImport opens a pending import session for a background job.
func (s *TransferService) QueueImport(ctx context.Context, ownerID uint, format snapshot.Format, dryRun bool) (QueuedImport, error) {
	queued := QueuedImport{JobID: uuid.NewString()}
	if s.history == nil {
		return queued, nil
	}
	session, err := s.history.Begin(ctx, ownerID, string(format), dryRun, queued.JobID)
	if err != nil {
		return QueuedImport{}, snapshot.WrapError(snapshot.KindPersistenceFailure, err, "queue import")
	}
	queued.SessionID = session.ID
	return queued, nil
}

// RunQueuedImport runs an import previously opened with QueueImport.
func (s *TransferService) RunQueuedImport(ctx context.Context, sessionID, ownerID uint, snap snapshot.Snapshot, dryRun bool) (snapshot.ImportSummary, error) {
	if s.history != nil && sessionID != 0 {
		if err := s.history.MarkRunning(ctx, sessionID); err != nil {
			log.Printf("[IMPORT] Failed to mark session %d running: %v", sessionID, err)
		}
	}
	return s.run(ctx, ownerID, snap, dryRun, sessionID)
}

// RunQueuedUpload decodes a raw upload in the background and imports it
// under its pending session. A payload that no longer decodes fails the
// session.
func (s *TransferService) RunQueuedUpload(ctx context.Context, sessionID, ownerID uint, data []byte, format snapshot.Format, dryRun bool) (snapshot.ImportSummary, error) {
	snap, _, err := s.decode(data, format)
	if err != nil {
		log.Printf("[IMPORT] Queued upload for session %d failed to decode: %v", sessionID, err)
		if s.history != nil && sessionID != 0 {
			if ferr := s.history.Finish(context.WithoutCancel(ctx), sessionID, snapshot.NewImportSummary(), err); ferr != nil {
				log.Printf("[IMPORT] Failed to finish import session %d: %v", sessionID, ferr)
			}
		}
		return snapshot.ImportSummary{}, err
	}
	return s.RunQueuedImport(ctx, sessionID, ownerID, snap, dryRun)
}

func (s *TransferService) run(ctx context.Context, ownerID uint, snap snapshot.Snapshot, dryRun bool, sessionID uint) (snapshot.ImportSummary, error) {
	format := snap.Metadata.FormatTag
	if format == "" {
		format = snapshot.FormatNative
	}

	if s.history != nil && sessionID == 0 {
		session, err := s.history.Begin(ctx, ownerID, string(format), dryRun, "")
		if err != nil {
			log.Printf("[IMPORT] Failed to record import session: %v", err)
		} else {
			sessionID = session.ID
		}
	}

	var summary snapshot.ImportSummary
	var err error
	if dryRun {
		summary, err = s.pipeline.DryRun(ctx, ownerID, snap)
	} else {
		summary, err = s.pipeline.Import(ctx, ownerID, snap)
	}

	if err != nil {
		log.Printf("[IMPORT] owner=%d format=%s phase=%s failed: %v", ownerID, format, summary.Phase, err)
	} else {
		log.Printf("[IMPORT] owner=%d format=%s phase=%s added=%d updated=%d errors=%d",
			ownerID, format, summary.Phase, summary.TotalAdded(), summary.TotalUpdated(), len(summary.Errors))
	}

	if s.history != nil && sessionID != 0 {
		if ferr := s.history.Finish(context.WithoutCancel(ctx), sessionID, summary, err); ferr != nil {
			log.Printf("[IMPORT] Failed to finish import session %d: %v", sessionID, ferr)
		}
	}
	if s.audit != nil {
		s.audit.LogImport(ownerID, format, summary, dryRun, err)
	}
	return summary, err
}

func (s *TransferService) logExport(ownerID uint, format snapshot.Format, records int, err error) {
	if s.audit != nil {
		s.audit.LogExport(ownerID, format, records, err)
	}
}
