/*
Package jobqueue runs the River-based background scheduler. Its only job kind
today is the periodic reminder sweep over abandoned carts.

For tunable parameters see queue_config.go.
*/
package jobqueue

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
)

// ReminderSweepArgs is the (empty) payload of a sweep job.
type ReminderSweepArgs struct{}

// Kind returns the job kind for River.
func (ReminderSweepArgs) Kind() string {
	return "reminder_sweep"
}

// ReminderSweepWorker executes one sweep per job.
type ReminderSweepWorker struct {
	river.WorkerDefaults[ReminderSweepArgs]
	sweeper *Sweeper
}

// Work performs the sweep.
func (w *ReminderSweepWorker) Work(ctx context.Context, job *river.Job[ReminderSweepArgs]) error {
	return w.sweeper.Run(ctx)
}

// JobQueue manages the River job queue.
type JobQueue struct {
	client *river.Client[pgx.Tx]
	pool   *pgxpool.Pool
	config *QueueConfig
}

// NewJobQueue creates a job queue that enqueues a reminder sweep on the
// configured interval. It owns its own pgx pool; the repositories keep their
// own database/sql handle.
func NewJobQueue(databaseURL string, sweeper *Sweeper, config *QueueConfig) (*JobQueue, error) {
	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &ReminderSweepWorker{sweeper: sweeper})

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues:  config.RiverQueueConfig(),
		Workers: workers,
		PeriodicJobs: []*river.PeriodicJob{
			river.NewPeriodicJob(
				river.PeriodicInterval(config.SweepInterval),
				func() (river.JobArgs, *river.InsertOpts) {
					return ReminderSweepArgs{}, nil
				},
				&river.PeriodicJobOpts{RunOnStart: true},
			),
		},
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	return &JobQueue{
		client: client,
		pool:   pool,
		config: config,
	}, nil
}

// Start starts the job queue workers.
func (jq *JobQueue) Start(ctx context.Context) error {
	return jq.client.Start(ctx)
}

// Stop stops the job queue workers and releases the pool.
func (jq *JobQueue) Stop(ctx context.Context) error {
	err := jq.client.Stop(ctx)
	jq.pool.Close()
	return err
}
