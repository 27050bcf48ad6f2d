// Package imports records the history of import runs.
//
// # Usage
//
//	repo := imports.NewRepository(db)
//	session, err := repo.Begin(ctx, userID, "goodreads", false, "")
//	...
//	err = repo.Finish(ctx, session.ID, summary, importErr)
package imports

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/shelfport/internal/entities"
	"github.com/mrlokans/shelfport/internal/snapshot"
)

const defaultHistoryLimit = 20

// Repository handles import session database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new imports repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Begin creates a session for an import. Queued imports, identified by a
// job id, start out pending; all others are running immediately.
func (r *Repository) Begin(ctx context.Context, userID uint, format string, dryRun bool, jobID string) (*entities.ImportSession, error) {
	db := r.db.WithContext(ctx)

	session := &entities.ImportSession{
		UserID:    userID,
		Format:    format,
		DryRun:    dryRun,
		JobID:     jobID,
		Status:    entities.ImportStatusRunning,
		StartedAt: time.Now(),
	}
	if jobID != "" {
		session.Status = entities.ImportStatusPending
	}

	var source entities.Source
	if err := db.Where("name = ?", format).First(&source).Error; err == nil {
		session.SourceID = &source.ID
	}

	if err := db.Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

// MarkRunning moves a pending session to running.
func (r *Repository) MarkRunning(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&entities.ImportSession{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     entities.ImportStatusRunning,
			"started_at": time.Now(),
		}).Error
}

// Finish stores the outcome of an import. A non-nil runErr marks the session
// failed; the summary is stored either way.
func (r *Repository) Finish(ctx context.Context, id uint, summary snapshot.ImportSummary, runErr error) error {
	now := time.Now()
	status := entities.ImportStatusCompleted
	if runErr != nil {
		status = entities.ImportStatusFailed
	}

	updates := map[string]any{
		"status":       status,
		"phase":        string(summary.Phase),
		"added":        summary.TotalAdded(),
		"updated":      summary.TotalUpdated(),
		"skipped":      totalSkipped(summary),
		"error_count":  len(summary.Errors),
		"completed_at": now,
	}
	if data, err := json.Marshal(summary); err == nil {
		updates["summary"] = string(data)
	}
	if runErr != nil {
		msg := runErr.Error()
		if len(msg) > 500 {
			msg = msg[:500]
		}
		updates["error_msg"] = msg
	}

	return r.db.WithContext(ctx).Model(&entities.ImportSession{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// Get returns one of the user's sessions.
func (r *Repository) Get(ctx context.Context, userID, id uint) (*entities.ImportSession, error) {
	var session entities.ImportSession
	err := r.db.WithContext(ctx).Preload("Source").
		Where("id = ? AND user_id = ?", id, userID).First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// GetByJobID returns the user's session for a queued import.
func (r *Repository) GetByJobID(ctx context.Context, userID uint, jobID string) (*entities.ImportSession, error) {
	var session entities.ImportSession
	err := r.db.WithContext(ctx).Preload("Source").
		Where("job_id = ? AND user_id = ?", jobID, userID).First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// ListForUser returns the user's most recent sessions first.
func (r *Repository) ListForUser(ctx context.Context, userID uint, limit int) ([]entities.ImportSession, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	var sessions []entities.ImportSession
	err := r.db.WithContext(ctx).Preload("Source").
		Where("user_id = ?", userID).
		Order("started_at DESC, id DESC").
		Limit(limit).
		Find(&sessions).Error
	return sessions, err
}

// FailStale marks sessions that have been running since before cutoff as
// failed. Such sessions were interrupted by a restart.
func (r *Repository) FailStale(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&entities.ImportSession{}).
		Where("status IN ? AND started_at < ?", []entities.ImportStatus{entities.ImportStatusPending, entities.ImportStatusRunning}, cutoff).
		Updates(map[string]any{
			"status":       entities.ImportStatusFailed,
			"error_msg":    "import was interrupted",
			"completed_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

// IsNotFound reports whether err means the session does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func totalSkipped(s snapshot.ImportSummary) int {
	return s.Books.Skipped + s.OwnedBooks.Skipped + s.ReadingSessions.Skipped +
		s.Wishlist.Skipped + s.Collections.Skipped + s.Profile.Skipped
}
