package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"

	"github.com/keepsake-app/keepsake/internal/tasks"
)

// TaskEnqueuer is the subset of the task queue client the scheduler needs.
type TaskEnqueuer interface {
	Add(tasks ...backlite.Task) *backlite.TaskAddOp
}

// Config controls what the cleanup scheduler enqueues and when.
type Config struct {
	// Schedule is a standard 5-field cron expression. Default: hourly.
	Schedule string

	// AuditRetentionDays is how long audit events are kept.
	AuditRetentionDays int
}

// CleanupScheduler periodically enqueues maintenance tasks: expired upload
// removal and audit event retention.
type CleanupScheduler struct {
	queue  TaskEnqueuer
	config Config

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

func NewCleanupScheduler(queue TaskEnqueuer, config Config) *CleanupScheduler {
	if config.Schedule == "" {
		config.Schedule = "0 * * * *"
	}
	return &CleanupScheduler{
		queue:  queue,
		config: config,
		cron:   cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler.
func (s *CleanupScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	entryID, err := s.cron.AddFunc(s.config.Schedule, func() {
		s.runCleanup()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule cleanup job: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	log.Printf("Cleanup scheduler: started with schedule '%s'", s.config.Schedule)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler, waiting for a running job to complete.
func (s *CleanupScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.cancelFunc = nil

	log.Printf("Cleanup scheduler: stopped")
}

// RunNow enqueues the cleanup tasks immediately.
func (s *CleanupScheduler) RunNow() {
	s.runCleanup()
}

// IsRunning returns whether the scheduler is active.
func (s *CleanupScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRunTime returns when the next cleanup will occur.
func (s *CleanupScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

func (s *CleanupScheduler) runCleanup() {
	if _, err := s.queue.Add(tasks.CleanupExpiredUploadsTask{}).Save(); err != nil {
		log.Printf("Cleanup scheduler: failed to enqueue upload cleanup: %v", err)
	}
	if _, err := s.queue.Add(tasks.CleanupAuditEventsTask{RetentionDays: s.config.AuditRetentionDays}).Save(); err != nil {
		log.Printf("Cleanup scheduler: failed to enqueue audit cleanup: %v", err)
	}
}
