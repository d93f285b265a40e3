package pipeline

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/perfectpitch/pitch-coach/pkg/metrics"
)

// ErrQueueFull is returned by Enqueue when the backlog is at capacity.
// Callers surface it as backpressure instead of queueing unboundedly.
var ErrQueueFull = errors.New("pipeline queue is full")

type task struct {
	sessionID string
	taskID    string
}

// Dispatcher fans queued jobs out to a fixed pool of pipeline workers
// over a bounded queue.
type Dispatcher struct {
	runner  *Runner
	queue   chan task
	workers int

	mu      sync.Mutex
	started bool
	closed  bool
	wg      sync.WaitGroup
	log     *zap.SugaredLogger
}

func NewDispatcher(runner *Runner, workers, queueDepth int) *Dispatcher {
	if workers <= 0 {
		workers = 2
	}
	if queueDepth <= 0 {
		queueDepth = 16
	}
	return &Dispatcher{
		runner:  runner,
		queue:   make(chan task, queueDepth),
		workers: workers,
		log:     zap.S().Named("dispatcher"),
	}
}

// Start launches the worker pool. The context cancels in-flight runs on
// shutdown.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func(worker int) {
			defer d.wg.Done()
			for t := range d.queue {
				metrics.UpdateQueueDepthMetric(len(d.queue))
				d.log.Infow("job picked up", "worker", worker, "task_id", t.taskID)
				d.runner.Run(ctx, t.sessionID, t.taskID)
			}
		}(i)
	}
	d.log.Infow("dispatcher started", "workers", d.workers, "queue_depth", cap(d.queue))
}

// Enqueue adds a job to the backlog without blocking. A full backlog
// yields ErrQueueFull.
func (d *Dispatcher) Enqueue(sessionID, taskID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrQueueFull
	}

	select {
	case d.queue <- task{sessionID: sessionID, taskID: taskID}:
		metrics.UpdateQueueDepthMetric(len(d.queue))
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop closes the queue and waits for workers to drain it.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	close(d.queue)
	d.wg.Wait()
	d.log.Info("dispatcher stopped")
}
