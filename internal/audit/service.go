package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	auditRepo "github.com/mrlokans/shelfport/internal/database/audit"
	"github.com/mrlokans/shelfport/internal/entities"
	"github.com/mrlokans/shelfport/internal/snapshot"
)

// EventStore persists audit events.
type EventStore interface {
	LogEvent(ctx context.Context, event *entities.AuditEvent) error
	ListEvents(ctx context.Context, f auditRepo.Filter) ([]entities.AuditEvent, int64, error)
	DeleteOldEvents(ctx context.Context, olderThan time.Time) (int64, error)
}

var _ EventStore = (*auditRepo.Repository)(nil)

// Service provides high-level audit logging functionality.
type Service struct {
	repo    EventStore
	pending sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo EventStore) *Service {
	return &Service{repo: repo}
}

// Log records a generic audit event.
func (s *Service) Log(ctx context.Context, event *entities.AuditEvent) error {
	return s.repo.LogEvent(ctx, event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.repo.LogEvent(context.Background(), event); err != nil {
			log.Printf("Failed to log audit event: %v", err)
		}
	}()
}

// Wait blocks until every event passed to LogAsync has been written.
func (s *Service) Wait() {
	s.pending.Wait()
}

// LogImport records an import run and its per-category counts.
func (s *Service) LogImport(userID uint, format snapshot.Format, summary snapshot.ImportSummary, dryRun bool, err error) {
	action := string(format) + "_import"
	if dryRun {
		action = string(format) + "_dry_run"
	}

	event := &entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventImport,
		Action:      action,
		Format:      string(format),
		DryRun:      dryRun,
		Records:     summary.TotalAdded() + summary.TotalUpdated(),
		Description: fmt.Sprintf("Import %s: %d added, %d updated, %d errors", summary.Phase, summary.TotalAdded(), summary.TotalUpdated(), len(summary.Errors)),
		Status:      entities.AuditStatusSuccess,
	}

	metadata := map[string]any{
		"phase":            summary.Phase,
		"books":            summary.Books,
		"user_books":       summary.OwnedBooks,
		"reading_sessions": summary.ReadingSessions,
		"wishlist":         summary.Wishlist,
		"collections":      summary.Collections,
		"errors_count":     len(summary.Errors),
	}
	if mdBytes, e := json.Marshal(metadata); e == nil {
		event.Metadata = string(mdBytes)
	}

	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

// LogExport records an export event.
func (s *Service) LogExport(userID uint, format snapshot.Format, records int, err error) {
	event := &entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventExport,
		Format:      string(format),
		Action:      string(format) + "_export",
		Records:     records,
		Description: fmt.Sprintf("Exported %d records", records),
		Status:      entities.AuditStatusSuccess,
	}

	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

// LogBackup records a scheduled backup.
func (s *Service) LogBackup(userID uint, path string, err error) {
	event := &entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventBackup,
		Format:      string(snapshot.FormatNative),
		Action:      "scheduled_backup",
		Description: "Backup written to " + path,
		Status:      entities.AuditStatusSuccess,
	}

	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.Format = ""
		event.Description = "Backup failed"
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

// GetEvents retrieves a page of audit events matching f.
func (s *Service) GetEvents(ctx context.Context, f auditRepo.Filter) ([]entities.AuditEvent, int64, error) {
	return s.repo.ListEvents(ctx, f)
}

// DeleteOldEvents removes events older than the specified duration.
func (s *Service) DeleteOldEvents(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	return s.repo.DeleteOldEvents(ctx, cutoff)
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
