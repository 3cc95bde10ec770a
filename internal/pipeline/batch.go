package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of tasks a batch runs at once.
const DefaultConcurrency = 16

// Task is one independent fetch-and-extract job in a fan-out batch.
type Task[T any] struct {
	// URL identifies the task in logs and failures.
	URL string

	// Run does the work. It must not touch state shared with other tasks.
	Run func(ctx context.Context) (T, error)
}

// Result is the value produced by a successful task.
type Result[T any] struct {
	// Index is the task's position in the submitted slice.
	Index int
	URL   string
	Value T
}

// Failure records a task that returned an error.
type Failure struct {
	Index int
	URL   string
	Err   error
}

// BatchProcessor runs batches of tasks on a bounded number of goroutines.
// A failing task is logged and recorded; it never stops its siblings.
type BatchProcessor struct {
	// concurrency is the maximum number of tasks running at once.
	concurrency int

	// progressEvery is the completion cadence of progress log lines.
	progressEvery int

	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent tasks.
// Default is DefaultConcurrency if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithProgressEvery sets how many completions pass between progress lines.
func WithProgressEvery(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.progressEvery = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		concurrency:   DefaultConcurrency,
		progressEvery: DefaultProgressEvery,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// Concurrency returns the configured worker limit.
func (bp *BatchProcessor) Concurrency() int {
	return bp.concurrency
}

// RunBatch runs every task and returns once all of them have finished.
//
// Results and failures are in completion order; use Index to map them
// back to tasks. Progress is logged as "<done>/<total> (<pct>%) <label> done"
// every progressEvery completions. The completion counter and both
// collections are updated under a single mutex.
func RunBatch[T any](ctx context.Context, bp *BatchProcessor, label string, tasks []Task[T]) ([]Result[T], []Failure) {
	bp.logger.Debug("starting batch",
		"label", label,
		"tasks", len(tasks),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()
	meter := NewProgressMeter(len(tasks), label, bp.progressEvery, bp.logger)

	var mu sync.Mutex
	results := make([]Result[T], 0, len(tasks))
	failures := make([]Failure, 0)

	var g errgroup.Group
	g.SetLimit(bp.concurrency)

	for i, task := range tasks {
		g.Go(func() error {
			value, err := task.Run(ctx)

			mu.Lock()
			defer mu.Unlock()

			meter.Increment()

			if err != nil {
				bp.logger.Error("task failed",
					"label", label,
					"url", task.URL,
					"error", err,
				)
				failures = append(failures, Failure{Index: i, URL: task.URL, Err: err})
				// Siblings keep running.
				return nil
			}

			results = append(results, Result[T]{Index: i, URL: task.URL, Value: value})
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // tasks never return errors to the group

	bp.logger.Info("batch complete",
		"label", label,
		"succeeded", len(results),
		"failed", len(failures),
		"elapsed", time.Since(startTime).Round(10*time.Millisecond),
	)

	return results, failures
}
