package tasks

import "time"

// Config tunes the maintenance queue client. Per-queue retry and timeout
// policy is fixed by each task's QueueConfig; this only covers the worker
// pool and backlite's own housekeeping.
type Config struct {
	// Workers is the number of concurrent queue workers.
	Workers int

	// ReleaseAfter is how long a claimed task may run before it is
	// considered stuck and released back to the queue.
	ReleaseAfter time.Duration

	// CleanupInterval is how often backlite prunes finished tasks.
	CleanupInterval time.Duration
}

// DefaultConfig returns the tuning used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Workers:         2,
		ReleaseAfter:    15 * time.Minute,
		CleanupInterval: time.Hour,
	}
}
