package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"

	"github.com/mrlokans/shelfport/internal/tasks"
)

// TaskEnqueuer adds tasks to the background queue.
type TaskEnqueuer interface {
	Add(tasks ...backlite.Task) *backlite.TaskAddOp
}

// DefaultMaintenanceSchedule runs maintenance daily at 04:00.
const DefaultMaintenanceSchedule = "0 4 * * *"

// MaintenanceConfig configures the periodic maintenance task.
type MaintenanceConfig struct {
	Schedule           string
	AuditRetentionDays int
	StaleImportAfter   time.Duration
}

// MaintenanceScheduler enqueues a maintenance task on a cron schedule. The
// work itself runs on the task queue.
type MaintenanceScheduler struct {
	queue  TaskEnqueuer
	config MaintenanceConfig

	cron      *cron.Cron
	mu        sync.Mutex
	isRunning bool
}

func NewMaintenanceScheduler(queue TaskEnqueuer, cfg MaintenanceConfig) *MaintenanceScheduler {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultMaintenanceSchedule
	}
	return &MaintenanceScheduler{
		queue:  queue,
		config: cfg,
		cron:   newCron(),
	}
}

// Start schedules maintenance and returns immediately.
func (s *MaintenanceScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if _, err := s.cron.AddFunc(s.config.Schedule, func() { _ = s.Enqueue() }); err != nil {
		return fmt.Errorf("failed to schedule maintenance: %w", err)
	}
	s.cron.Start()
	s.isRunning = true
	log.Printf("Maintenance scheduler: started with schedule '%s', audit retention %d days",
		s.config.Schedule, s.config.AuditRetentionDays)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

func (s *MaintenanceScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	stopped := s.cron.Stop()
	s.mu.Unlock()

	<-stopped.Done()
}

// Enqueue adds one maintenance task to the queue.
func (s *MaintenanceScheduler) Enqueue() error {
	task := tasks.MaintenanceTask{
		AuditRetentionDays: s.config.AuditRetentionDays,
		StaleImportAfter:   s.config.StaleImportAfter,
	}
	ids, err := s.queue.Add(task).Save()
	if err != nil {
		log.Printf("Maintenance: failed to enqueue: %v", err)
		return err
	}
	log.Printf("Maintenance: enqueued task %v", ids)
	return nil
}
