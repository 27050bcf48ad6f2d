package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mrlokans/shelfport/internal/entities"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.AuditEvent{})
	require.NoError(t, err)

	return db
}

func TestRepository_LogEvent(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	event := &entities.AuditEvent{
		UserID:      1,
		EventType:   entities.AuditEventImport,
		Action:      "goodreads_import",
		Description: "Imported 10 books from Goodreads",
		Status:      entities.AuditStatusSuccess,
	}

	err := repo.LogEvent(context.Background(), event)
	require.NoError(t, err)
	assert.NotZero(t, event.ID)
	assert.False(t, event.CreatedAt.IsZero())
}

func TestRepository_ListEvents(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 15; i++ {
		eventType := entities.AuditEventImport
		if i%3 == 0 {
			eventType = entities.AuditEventExport
		}
		require.NoError(t, repo.LogEvent(ctx, &entities.AuditEvent{
			UserID:    1,
			EventType: eventType,
			Action:    "event",
			Status:    entities.AuditStatusSuccess,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, repo.LogEvent(ctx, &entities.AuditEvent{UserID: 2, EventType: entities.AuditEventImport}))

	t.Run("paginates most recent first", func(t *testing.T) {
		events, total, err := repo.ListEvents(ctx, Filter{UserID: 1, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(15), total)
		require.Len(t, events, 10)
		assert.True(t, events[0].CreatedAt.After(events[9].CreatedAt))

		events, _, err = repo.ListEvents(ctx, Filter{UserID: 1, Limit: 10, Offset: 10})
		require.NoError(t, err)
		assert.Len(t, events, 5)
	})

	t.Run("filters by type", func(t *testing.T) {
		events, total, err := repo.ListEvents(ctx, Filter{UserID: 1, EventType: entities.AuditEventExport})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		for _, e := range events {
			assert.Equal(t, entities.AuditEventExport, e.EventType)
		}
	})

	t.Run("zero user matches all users", func(t *testing.T) {
		_, total, err := repo.ListEvents(ctx, Filter{})
		require.NoError(t, err)
		assert.Equal(t, int64(16), total)
	})
}

func TestRepository_DeleteOldEvents(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.LogEvent(ctx, &entities.AuditEvent{
		UserID:    1,
		EventType: entities.AuditEventImport,
		Action:    "old_import",
		CreatedAt: time.Now().Add(-48 * time.Hour),
	}))
	require.NoError(t, repo.LogEvent(ctx, &entities.AuditEvent{
		UserID:    1,
		EventType: entities.AuditEventExport,
		Action:    "new_export",
	}))

	deleted, err := repo.DeleteOldEvents(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	events, _, err := repo.ListEvents(ctx, Filter{UserID: 1})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "new_export", events[0].Action)
}
