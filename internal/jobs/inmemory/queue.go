// Package inmemory backs the jobs interfaces with channels and a map. It
// suits a single-process deployment: the API publishes, its own workers
// consume, and all state dies with the process.
package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/ledgerbook/internal/jobs"
)

const (
	// defaultWorkers bounds how many jobs generate concurrently. Report
	// generation is network-bound on the model call, so a small pool is
	// plenty for one ledger.
	defaultWorkers = 5

	// retryBaseDelay doubles per retry attempt when a handler fails.
	retryBaseDelay = time.Second

	defaultMaxRetries = 3
)

// Queue fans jobs out to a fixed worker pool over a buffered channel. It
// implements both jobs.Publisher and jobs.Consumer so one process can
// enqueue and drain.
type Queue struct {
	pending chan *jobs.ReportJob
	quit    chan struct{}
	wg      sync.WaitGroup
	mu      sync.RWMutex
	store   jobs.JobStore
	closed  bool
}

// NewQueue creates an in-memory queue. bufferSize is how many jobs may sit
// unclaimed before PublishReport blocks.
func NewQueue(bufferSize int, store jobs.JobStore) *Queue {
	return &Queue{
		pending: make(chan *jobs.ReportJob, bufferSize),
		quit:    make(chan struct{}),
		store:   store,
	}
}

// PublishReport stamps defaults on the job (ID, kind, pending status,
// creation time, retry budget), records it in the store, and enqueues it.
func (q *Queue) PublishReport(ctx context.Context, job *jobs.ReportJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return fmt.Errorf("queue is closed")
	}

	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	if job.Kind == "" {
		job.Kind = jobs.JobTypeGenerateReport
	}
	if job.Status == "" {
		job.Status = jobs.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = defaultMaxRetries
	}

	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("failed to save job: %w", err)
		}
	}

	select {
	case q.pending <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.quit:
		return fmt.Errorf("queue is closed")
	}
}

// Start launches the worker pool. Workers run until the context is
// cancelled or Stop is called.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.RLock()
	closed := q.closed
	q.mu.RUnlock()
	if closed {
		return fmt.Errorf("queue is closed")
	}

	for i := 0; i < defaultWorkers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-q.quit:
					return
				case job := <-q.pending:
					if job == nil {
						return
					}
					q.run(ctx, job, handler)
				}
			}
		}()
	}
	return nil
}

// run executes one job and settles its final status. A failed attempt with
// retries remaining is re-enqueued after a doubling delay.
func (q *Queue) run(ctx context.Context, job *jobs.ReportJob, handler jobs.JobHandler) {
	started := time.Now()
	job.Status = jobs.JobStatusRunning
	job.StartedAt = &started
	q.persist(ctx, job)

	err := handler(ctx, job)

	finished := time.Now()
	job.CompletedAt = &finished
	if err == nil {
		job.Status = jobs.JobStatusCompleted
		job.Error = ""
		q.persist(ctx, job)
		return
	}

	job.Error = err.Error()
	if job.RetryCount >= job.MaxRetries {
		job.Status = jobs.JobStatusFailed
		q.persist(ctx, job)
		return
	}

	job.RetryCount++
	job.Status = jobs.JobStatusRetrying
	q.persist(ctx, job)

	delay := retryBaseDelay << (job.RetryCount - 1)
	time.AfterFunc(delay, func() {
		job.Status = jobs.JobStatusPending
		job.StartedAt = nil
		job.CompletedAt = nil
		_ = q.PublishReport(ctx, job)
	})
}

func (q *Queue) persist(ctx context.Context, job *jobs.ReportJob) {
	if q.store != nil {
		_ = q.store.SaveJob(ctx, job)
	}
}

// Stop closes the queue and waits for in-flight jobs, honoring the context
// deadline.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.quit)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements jobs.Publisher.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

var (
	_ jobs.Publisher = (*Queue)(nil)
	_ jobs.Consumer  = (*Queue)(nil)
)
