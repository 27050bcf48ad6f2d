package audit

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	auditRepo "github.com/mrlokans/shelfport/internal/database/audit"
	"github.com/mrlokans/shelfport/internal/entities"
	"github.com/mrlokans/shelfport/internal/snapshot"
)

func setupTestService(t *testing.T) (*Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "audit.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.AuditEvent{})
	require.NoError(t, err)

	return NewService(auditRepo.NewRepository(db)), db
}

func TestService_Log(t *testing.T) {
	svc, db := setupTestService(t)

	event := &entities.AuditEvent{
		UserID:    1,
		EventType: entities.AuditEventImport,
		Action:    "test_import",
		Status:    entities.AuditStatusSuccess,
	}
	require.NoError(t, svc.Log(context.Background(), event))

	var saved entities.AuditEvent
	require.NoError(t, db.First(&saved, event.ID).Error)
	assert.Equal(t, "test_import", saved.Action)
}

func TestService_LogImport(t *testing.T) {
	svc, db := setupTestService(t)

	t.Run("committed import", func(t *testing.T) {
		summary := snapshot.NewImportSummary()
		summary.Phase = snapshot.PhaseCommitted
		summary.Books.Added = 3
		summary.OwnedBooks.Updated = 1

		svc.LogImport(1, snapshot.FormatGoodreads, summary, false, nil)
		svc.Wait()

		var event entities.AuditEvent
		require.NoError(t, db.Where("action = ?", "goodreads_import").First(&event).Error)
		assert.Equal(t, entities.AuditStatusSuccess, event.Status)
		assert.Equal(t, "Import committed: 3 added, 1 updated, 0 errors", event.Description)
		assert.Contains(t, event.Metadata, `"user_books":{"added":0,"updated":1,"skipped":0}`)
		assert.Equal(t, "goodreads", event.Format)
		assert.Equal(t, 4, event.Records)
		assert.False(t, event.DryRun)
	})

	t.Run("dry run", func(t *testing.T) {
		svc.LogImport(1, snapshot.FormatCSV, snapshot.NewImportSummary(), true, nil)
		svc.Wait()

		var event entities.AuditEvent
		require.NoError(t, db.Where("action = ?", "csv_dry_run").First(&event).Error)
		assert.True(t, event.DryRun)
	})

	t.Run("failed import", func(t *testing.T) {
		svc.LogImport(1, snapshot.FormatNative, snapshot.NewImportSummary(), false, errors.New("database is locked"))
		svc.Wait()

		var event entities.AuditEvent
		require.NoError(t, db.Where("action = ?", "native_import").First(&event).Error)
		assert.Equal(t, entities.AuditStatusFailed, event.Status)
		assert.Contains(t, event.ErrorMsg, "database is locked")
	})
}

func TestService_LogExportAndBackup(t *testing.T) {
	svc, db := setupTestService(t)

	svc.LogExport(2, snapshot.FormatCSV, 12, nil)
	svc.LogBackup(2, "/backups/reader.json", nil)
	svc.LogBackup(2, "", errors.New("disk full"))
	svc.Wait()

	events, total, err := svc.GetEvents(context.Background(), auditRepo.Filter{UserID: 2, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	var export entities.AuditEvent
	require.NoError(t, db.Where("action = ?", "csv_export").First(&export).Error)
	assert.Equal(t, "Exported 12 records", export.Description)
	assert.Equal(t, 12, export.Records)

	csvOnly, total, err := svc.GetEvents(context.Background(), auditRepo.Filter{UserID: 2, Format: "csv"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, entities.AuditEventExport, csvOnly[0].EventType)

	var failed int
	for _, e := range events {
		if e.Status == entities.AuditStatusFailed {
			failed++
			assert.Equal(t, "disk full", e.ErrorMsg)
		}
	}
	assert.Equal(t, 1, failed)
}

func TestService_DeleteOldEvents(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Log(ctx, &entities.AuditEvent{UserID: 1, CreatedAt: time.Now().Add(-40 * 24 * time.Hour)}))
	require.NoError(t, svc.Log(ctx, &entities.AuditEvent{UserID: 1}))

	deleted, err := svc.DeleteOldEvents(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
