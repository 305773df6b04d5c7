// Package worker runs the best-effort post-commit steps of a duel: rank
// re-materialization and activity feed appends. Task failures are logged and
// counted, never propagated; the duel that produced them already committed.
package worker

import (
	"context"
	"runtime"
	"strconv"
	"time"

	"github.com/vitislabs/decant/internal/adapters/mq/queue"
	"github.com/vitislabs/decant/internal/domain/model"
	"github.com/vitislabs/decant/pkg/logger"
	"github.com/vitislabs/decant/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	workerShutdownTimeout   = 5 * time.Second
)

// Task abstracts what workers read off the queue.
type Task = queue.Task

// Repositioner recomputes positions for a user's whole collection.
type Repositioner interface {
	Materialize(ctx context.Context, userID string) error
}

// ActivityAppender appends social feed entries.
type ActivityAppender interface {
	AppendActivity(ctx context.Context, a model.Activity) error
}

// Queue defines how workers receive tasks.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Task
}

// Worker consumes tasks off the queue until stopped.
type Worker struct {
	queue        Queue
	repositioner Repositioner
	appender     ActivityAppender
	name         string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewWorker creates a worker with configuration options.
func NewWorker(q Queue, repositioner Repositioner, appender ActivityAppender, opts ...Option) *Worker {
	w := &Worker{
		queue:        q,
		repositioner: repositioner,
		appender:     appender,
		name:         "worker",
		shutdown:     make(chan struct{}),
		done:         make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}

	return w
}

// Run starts the worker loop until ctx is canceled or the queue closes.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	tasks := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case task, ok := <-tasks:
			if !ok {
				return
			}
			w.process(ctx, task)
		}
	}
}

// Shutdown stops the worker, waiting for the in-flight task to finish.
func (w *Worker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "worker shutdown timed out")
		return ctx.Err()
	}
}

// process runs a single task. Errors are absorbed here: a failed reposition
// leaves positions stale until the next duel recomputes them, and a failed
// activity append drops one feed entry.
func (w *Worker) process(ctx context.Context, task Task) {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	var err error
	switch task.Kind {
	case model.TaskReposition:
		err = w.repositioner.Materialize(ctx, task.UserID)
	case model.TaskActivity:
		err = w.appender.AppendActivity(ctx, task.Activity)
		if err == nil {
			metrics.RecordActivityAppend()
		}
	default:
		w.logger.Warn(ctx, "unknown task kind", logger.String("kind", task.Kind))
		return
	}

	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordBestEffortFailure(task.Kind)
		w.logger.Error(ctx, "best-effort task failed",
			logger.String("kind", task.Kind),
			logger.String("userID", task.UserID),
			logger.Error(err),
		)
	}
}

// Pool manages a fixed set of workers over one queue.
type Pool struct {
	workers []*Worker

	logger logger.Logger
}

// NewPool creates a worker pool.
func NewPool(workerCount int, q Queue, repositioner Repositioner, appender ActivityAppender) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	p := &Pool{
		workers: make([]*Worker, workerCount),
		logger:  logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		p.workers[i] = NewWorker(q, repositioner, appender, WithName("worker-"+strconv.Itoa(i)))
	}

	metrics.UpdateWorkerActiveCount(workerCount)

	return p
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop stops all workers, waiting briefly for each to drain.
func (p *Pool) Stop() {
	for _, w := range p.workers {
		select {
		case <-w.shutdown:
			// already signalled
		default:
			close(w.shutdown)
		}
	}

	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}

	metrics.UpdateWorkerActiveCount(0)
}
