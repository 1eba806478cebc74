package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// ExpiredUploadCleaner provides the ability to delete expired bulk uploads.
type ExpiredUploadCleaner interface {
	DeleteExpired(now time.Time) (int64, error)
}

// CleanupExpiredUploadsTask removes bulk uploads whose TTL has elapsed,
// together with their on-disk blobs.
type CleanupExpiredUploadsTask struct{}

// Config returns the queue configuration for upload cleanup tasks.
func (t CleanupExpiredUploadsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cleanup_expired_uploads",
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

// CleanupExpiredUploadsProcessor creates a processor function for CleanupExpiredUploadsTask.
func CleanupExpiredUploadsProcessor(cleaner ExpiredUploadCleaner) backlite.QueueProcessor[CleanupExpiredUploadsTask] {
	return func(ctx context.Context, task CleanupExpiredUploadsTask) error {
		if cleaner == nil {
			return fmt.Errorf("upload cleaner not configured")
		}

		deleted, err := cleaner.DeleteExpired(time.Now().UTC())
		if err != nil {
			return fmt.Errorf("cleanup expired uploads: %w", err)
		}

		if deleted > 0 {
			log.Printf("Task queue: removed %d expired uploads", deleted)
		}
		return nil
	}
}

// NewCleanupExpiredUploadsQueue creates a backlite queue for upload cleanup tasks.
func NewCleanupExpiredUploadsQueue(cleaner ExpiredUploadCleaner) backlite.Queue {
	return backlite.NewQueue(CleanupExpiredUploadsProcessor(cleaner))
}
