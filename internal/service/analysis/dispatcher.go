package analysis

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

const jobTimeout = 2 * time.Minute

// Dispatcher runs analysis jobs in the background with a bounded number of
// concurrent workers. Jobs are detached from the request context: a client
// disconnect must not abort an analysis another client will read.
type Dispatcher struct {
	sem    *semaphore.Weighted
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher allowing at most workers concurrent jobs.
func NewDispatcher(workers int64, logger *slog.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{
		sem:    semaphore.NewWeighted(workers),
		logger: logger,
	}
}

// Dispatch schedules a job and returns immediately. The job waits for a
// worker slot, then runs with its own timeout. Failures are logged, never
// returned; the caller has already answered its request.
func (d *Dispatcher) Dispatch(name string, fn func(ctx context.Context) error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		if err := d.sem.Acquire(context.Background(), 1); err != nil {
			d.logger.Error("failed to acquire analysis worker", "job", name, "error", err)
			return
		}
		defer d.sem.Release(1)

		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		start := time.Now()
		if err := fn(ctx); err != nil {
			d.logger.Error("analysis job failed",
				"job", name,
				"duration_ms", time.Since(start).Milliseconds(),
				"error", err)
			return
		}
		d.logger.Debug("analysis job complete",
			"job", name,
			"duration_ms", time.Since(start).Milliseconds())
	}()
}

// Wait blocks until every dispatched job has finished. Used on shutdown and
// in tests.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
