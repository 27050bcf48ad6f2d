package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// DefaultAuditRetentionDays applies when a task carries no retention.
const DefaultAuditRetentionDays = 30

// AuditEventCleaner deletes audit events older than a retention period.
type AuditEventCleaner interface {
	DeleteOldEvents(ctx context.Context, retention time.Duration) (int64, error)
}

// StaleImportCloser fails import sessions that stopped making progress.
type StaleImportCloser interface {
	FailStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// MaintenanceTask prunes the audit trail and closes import sessions whose
// worker went away.
type MaintenanceTask struct {
	AuditRetentionDays int           `json:"audit_retention_days"`
	StaleImportAfter   time.Duration `json:"stale_import_after"` // 0 leaves sessions alone
}

func (t MaintenanceTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "maintenance",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// MaintenanceProcessor runs both chores and reports every failure. Either
// collaborator may be nil.
func MaintenanceProcessor(audit AuditEventCleaner, imports StaleImportCloser) backlite.QueueProcessor[MaintenanceTask] {
	return func(ctx context.Context, task MaintenanceTask) error {
		var errs []error

		if audit != nil {
			days := task.AuditRetentionDays
			if days <= 0 {
				days = DefaultAuditRetentionDays
			}
			deleted, err := audit.DeleteOldEvents(ctx, time.Duration(days)*24*time.Hour)
			if err != nil {
				errs = append(errs, fmt.Errorf("cleanup audit events: %w", err))
			} else {
				log.Printf("[TASK] Deleted %d audit events older than %d days", deleted, days)
			}
		}

		if imports != nil && task.StaleImportAfter > 0 {
			failed, err := imports.FailStale(ctx, time.Now().Add(-task.StaleImportAfter))
			if err != nil {
				errs = append(errs, fmt.Errorf("close stale imports: %w", err))
			} else if failed > 0 {
				log.Printf("[TASK] Marked %d stale import sessions as failed", failed)
			}
		}

		return errors.Join(errs...)
	}
}

// NewMaintenanceQueue creates a backlite queue for maintenance tasks.
func NewMaintenanceQueue(audit AuditEventCleaner, imports StaleImportCloser) backlite.Queue {
	return backlite.NewQueue(MaintenanceProcessor(audit, imports))
}
