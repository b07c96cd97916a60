package tracking

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/star/trackgen/internal/metrics"
)

// jobsPerWorker sizes a batch: enough work per worker to amortize the
// goroutine fan-out, small enough to keep memory flat on long runs.
const jobsPerWorker = 256

// sampleJob is a unit of work for the worker pool.
type sampleJob struct {
	index int
	t     time.Time
}

// sampleResult is the output of a single sample evaluation.
type sampleResult struct {
	slot   int
	sample Sample
	err    error
}

// WorkerPool manages a fixed number of goroutines for parallel sampling.
type WorkerPool struct {
	workers int
	logger  *slog.Logger
}

// NewWorkerPool creates a worker pool with the given number of workers.
// A non-positive count uses one worker per CPU.
func NewWorkerPool(workers int, logger *slog.Logger) *WorkerPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &WorkerPool{
		workers: workers,
		logger:  logger,
	}
}

// SampleBatch evaluates batch on the pool and returns the samples in batch
// order. When any instant fails, only the samples before the earliest failure
// are returned, together with that failure.
func (wp *WorkerPool) SampleBatch(ctx context.Context, p *Pipeline, batch []sampleJob) ([]Sample, error) {
	if len(batch) == 0 {
		return nil, nil
	}

	jobs := make(chan int, wp.workers*2)
	results := make(chan sampleResult, wp.workers*2)

	// Start workers.
	var wg sync.WaitGroup
	for i := 0; i < wp.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for slot := range jobs {
				job := batch[slot]
				s, err := p.sampleAt(job.index, job.t)
				select {
				case results <- sampleResult{slot: slot, sample: s, err: err}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	// Feed jobs in a goroutine.
	go func() {
		defer close(jobs)
		for slot := range batch {
			select {
			case jobs <- slot:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Close results when all workers are done.
	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]Sample, len(batch))
	done := make([]bool, len(batch))
	failed := len(batch)
	var firstErr error

	for r := range results {
		if r.err != nil {
			metrics.IncPropagationErrors()
			if r.slot < failed {
				failed = r.slot
				firstErr = r.err
			}
			continue
		}
		out[r.slot] = r.sample
		done[r.slot] = true
	}

	// Samples are usable up to the first hole, whatever caused it.
	n := 0
	for n < len(batch) && done[n] {
		n++
	}
	if n == len(batch) {
		return out, nil
	}

	if firstErr != nil && failed == n {
		job := batch[failed]
		wp.logger.Debug("sample failed",
			"component", "tracking",
			"index", job.index,
			"error", firstErr,
		)
		return out[:n], fmt.Errorf("sample %d at %s: %w", job.index, job.t.UTC().Format(timeLayout), firstErr)
	}
	if err := ctx.Err(); err != nil {
		return out[:n], err
	}
	return out[:n], fmt.Errorf("sample %d was not evaluated", batch[n].index)
}
