package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/shelfport/internal/snapshot"
)

type fakeImporter struct {
	got ImportUploadTask
	err error
}

func (f *fakeImporter) RunQueuedUpload(_ context.Context, sessionID, ownerID uint, data []byte, format snapshot.Format, dryRun bool) (snapshot.ImportSummary, error) {
	f.got = ImportUploadTask{SessionID: sessionID, OwnerID: ownerID, Payload: data, Format: format, DryRun: dryRun}
	if f.err != nil {
		return snapshot.ImportSummary{Phase: snapshot.PhaseRolledBack}, f.err
	}
	return snapshot.ImportSummary{Phase: snapshot.PhaseCommitted}, nil
}

func TestImportUploadProcessor(t *testing.T) {
	task := ImportUploadTask{JobID: "j1", SessionID: 4, OwnerID: 2, Format: snapshot.FormatCSV, DryRun: true, Payload: []byte("Title\n")}

	t.Run("passes the task through", func(t *testing.T) {
		importer := &fakeImporter{}
		require.NoError(t, ImportUploadProcessor(importer)(context.Background(), task))
		assert.Equal(t, uint(4), importer.got.SessionID)
		assert.Equal(t, uint(2), importer.got.OwnerID)
		assert.Equal(t, snapshot.FormatCSV, importer.got.Format)
		assert.True(t, importer.got.DryRun)
		assert.Equal(t, []byte("Title\n"), importer.got.Payload)
	})

	t.Run("rejected input completes the job", func(t *testing.T) {
		importer := &fakeImporter{err: snapshot.NewError(snapshot.KindValidation, "bad rating")}
		assert.NoError(t, ImportUploadProcessor(importer)(context.Background(), task))
	})

	t.Run("persistence failures fail the job", func(t *testing.T) {
		importer := &fakeImporter{err: snapshot.WrapError(snapshot.KindPersistenceFailure, errors.New("disk full"), "apply")}
		err := ImportUploadProcessor(importer)(context.Background(), task)
		assert.ErrorIs(t, err, snapshot.ErrPersistenceFailure)
	})

	t.Run("missing importer", func(t *testing.T) {
		assert.Error(t, ImportUploadProcessor(nil)(context.Background(), task))
	})
}

type fakeCleaner struct {
	retention time.Duration
	err       error
}

func (f *fakeCleaner) DeleteOldEvents(_ context.Context, retention time.Duration) (int64, error) {
	f.retention = retention
	return 3, f.err
}

type fakeSessions struct {
	cutoff time.Time
}

func (f *fakeSessions) FailStale(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 1, nil
}

func TestMaintenanceProcessor(t *testing.T) {
	ctx := context.Background()

	t.Run("default retention, sessions untouched", func(t *testing.T) {
		cleaner, sessions := &fakeCleaner{}, &fakeSessions{}
		require.NoError(t, MaintenanceProcessor(cleaner, sessions)(ctx, MaintenanceTask{}))
		assert.Equal(t, 30*24*time.Hour, cleaner.retention)
		assert.True(t, sessions.cutoff.IsZero())
	})

	t.Run("closes stale sessions", func(t *testing.T) {
		cleaner, sessions := &fakeCleaner{}, &fakeSessions{}
		task := MaintenanceTask{AuditRetentionDays: 7, StaleImportAfter: time.Hour}
		require.NoError(t, MaintenanceProcessor(cleaner, sessions)(ctx, task))
		assert.Equal(t, 7*24*time.Hour, cleaner.retention)
		assert.WithinDuration(t, time.Now().Add(-time.Hour), sessions.cutoff, time.Minute)
	})

	t.Run("audit failure does not skip sessions", func(t *testing.T) {
		cleaner, sessions := &fakeCleaner{err: errors.New("locked")}, &fakeSessions{}
		err := MaintenanceProcessor(cleaner, sessions)(ctx, MaintenanceTask{StaleImportAfter: time.Minute})
		assert.ErrorContains(t, err, "locked")
		assert.False(t, sessions.cutoff.IsZero())
	})

	t.Run("nil collaborators", func(t *testing.T) {
		assert.NoError(t, MaintenanceProcessor(nil, nil)(ctx, MaintenanceTask{StaleImportAfter: time.Minute}))
	})
}
