package scheduler

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/shelfport/internal/entities"
	"github.com/mrlokans/shelfport/internal/exporters"
	"github.com/mrlokans/shelfport/internal/services"
	"github.com/mrlokans/shelfport/internal/snapshot"
	"github.com/mrlokans/shelfport/internal/utils"
)

// Exporter serializes an owner's library.
type Exporter interface {
	PrepareExport(ctx context.Context, ownerID uint, opts services.ExportOptions) ([]byte, error)
}

// UserLister lists every account to back up.
type UserLister interface {
	ListUsers() ([]entities.User, error)
}

// BackupAuditor records the outcome of each backup.
type BackupAuditor interface {
	LogBackup(userID uint, path string, err error)
}

// BackupConfig configures scheduled snapshots.
type BackupConfig struct {
	Schedule string
	Dir      string
	Keep     int // Snapshots kept per user, 0 keeps all
}

// BackupScheduler writes a full native snapshot of every user's library on
// a cron schedule.
type BackupScheduler struct {
	exporter Exporter
	users    UserLister
	auditor  BackupAuditor
	config   BackupConfig
	now      func() time.Time

	cron      *cron.Cron
	entryID   cron.EntryID
	mu        sync.RWMutex
	isRunning bool
	isBacking bool
}

// NewBackupScheduler creates a new scheduler instance. auditor may be nil.
func NewBackupScheduler(exporter Exporter, users UserLister, auditor BackupAuditor, cfg BackupConfig) *BackupScheduler {
	return &BackupScheduler{
		exporter: exporter,
		users:    users,
		auditor:  auditor,
		config:   cfg,
		now:      time.Now,
		cron:     newCron(),
	}
}

// Start schedules backups and returns immediately.
func (s *BackupScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if err := ValidateCronSchedule(s.config.Schedule); err != nil {
		return err
	}
	if s.config.Dir == "" {
		return fmt.Errorf("backup directory is not configured")
	}

	entryID, err := s.cron.AddFunc(s.config.Schedule, func() {
		s.RunNow(context.Background())
	})
	if err != nil {
		return fmt.Errorf("failed to schedule backup job: %w", err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.isRunning = true

	log.Printf("Backup scheduler: started with schedule '%s' into %s. Next run: %v",
		s.config.Schedule, s.config.Dir, s.cron.Entry(entryID).Next)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop stops the scheduler and waits for a running backup to finish. The
// lock is released before waiting: the backup clears isBacking under it.
func (s *BackupScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.cron.Remove(s.entryID)
	stopped := s.cron.Stop()
	s.mu.Unlock()

	<-stopped.Done()
	log.Printf("Backup scheduler: stopped")
}

// IsRunning returns whether the scheduler is active
func (s *BackupScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRunTime returns when the next backup will occur
func (s *BackupScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	next := s.cron.Entry(s.entryID).Next
	return &next
}

// RunNow backs up every user and returns the files written. Overlapping runs
// are skipped.
func (s *BackupScheduler) RunNow(ctx context.Context) []string {
	s.mu.Lock()
	if s.isBacking {
		s.mu.Unlock()
		log.Printf("Backup: skipped (already running)")
		return nil
	}
	s.isBacking = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isBacking = false
		s.mu.Unlock()
	}()

	users, err := s.users.ListUsers()
	if err != nil {
		log.Printf("Backup: failed to list users: %v", err)
		return nil
	}
	if err := os.MkdirAll(s.config.Dir, 0o750); err != nil {
		log.Printf("Backup: failed to create %s: %v", s.config.Dir, err)
		return nil
	}

	var written []string
	for _, user := range users {
		path, err := s.backupUser(ctx, user)
		if s.auditor != nil {
			s.auditor.LogBackup(user.ID, path, err)
		}
		if err != nil {
			log.Printf("Backup: user %d (%s) failed: %v", user.ID, user.Username, err)
			continue
		}
		written = append(written, path)
		s.prune(user)
	}

	log.Printf("Backup: wrote %d of %d snapshots", len(written), len(users))
	return written
}

func (s *BackupScheduler) backupUser(ctx context.Context, user entities.User) (string, error) {
	data, err := s.exporter.PrepareExport(ctx, user.ID, services.ExportOptions{
		Format:     snapshot.FormatNative,
		Categories: exporters.SelectAll(),
	})
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.config.Dir, utils.SnapshotFilename(user.Username, ".json", s.now()))
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// prune deletes the user's oldest snapshots beyond the configured count.
func (s *BackupScheduler) prune(user entities.User) {
	if s.config.Keep <= 0 {
		return
	}

	entries, err := os.ReadDir(s.config.Dir)
	if err != nil {
		return
	}

	owner := utils.OwnerSlug(user.Username)
	var mine []string
	for _, e := range entries {
		parsed, ok := utils.ParseSnapshotFilename(e.Name())
		if ok && parsed.Owner == owner && parsed.Extension == ".json" {
			mine = append(mine, e.Name())
		}
	}
	if len(mine) <= s.config.Keep {
		return
	}

	// Timestamped names sort chronologically.
	sort.Strings(mine)
	for _, old := range mine[:len(mine)-s.config.Keep] {
		if err := os.Remove(filepath.Join(s.config.Dir, old)); err != nil {
			log.Printf("Backup: failed to remove %s: %v", old, err)
		}
	}
}
