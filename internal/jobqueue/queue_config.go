package jobqueue

import (
	"time"

	"github.com/riverqueue/river"
)

// QueueConfig holds all configurable parameters for the job queue.
type QueueConfig struct {
	// MaxWorkers is the number of concurrent workers. Sweeps are cheap; two
	// workers cover an overlapping run without stacking up further.
	MaxWorkers int

	// SweepInterval is how often a reminder sweep is enqueued.
	SweepInterval time.Duration

	// ReminderThreshold is how long a cart must sit pending before it is due
	// for a reminder.
	ReminderThreshold time.Duration
}

// DefaultQueueConfig returns the default configuration: sweep every five
// minutes, remind after one hour.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		MaxWorkers:        2,
		SweepInterval:     5 * time.Minute,
		ReminderThreshold: 1 * time.Hour,
	}
}

// RiverQueueConfig converts our config to River's queue configuration format.
func (c *QueueConfig) RiverQueueConfig() map[string]river.QueueConfig {
	return map[string]river.QueueConfig{
		river.QueueDefault: {
			MaxWorkers: c.MaxWorkers,
		},
	}
}
