package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ubernicholi/bravo-bot/internal/metrics"
)

// Handler runs one queued task. It owns all user-visible output for the
// request; the error it returns is reported once through the task's
// failure reporter and never stops the dispatch loop.
type Handler func(ctx context.Context) error

// FailureReporter delivers a handler failure back to the request origin.
type FailureReporter func(err error)

// Task is one unit of queued work. Created at enqueue time, consumed
// exactly once by the dispatch loop, never mutated after creation.
type Task struct {
	ID        string
	Kind      string
	Handler   Handler
	OnFailure FailureReporter
}

// Config holds queue configuration
type Config struct {
	Logger        *slog.Logger
	MaxConcurrent int
}

// Queue admits tasks from an unbounded producer side while guaranteeing at
// most MaxConcurrent are executing, in FIFO start order for waiting tasks.
type Queue struct {
	logger        *slog.Logger
	maxConcurrent int

	mu      sync.Mutex
	pending []*Task
	running map[*Task]struct{}

	wake     chan struct{}
	stopChan chan struct{}
	wg       sync.WaitGroup
	loopDone chan struct{}
}

// New creates a new queue. MaxConcurrent defaults to 1, the single
// caller-visible slot of the generation backend.
func New(cfg *Config) *Queue {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	return &Queue{
		logger:        cfg.Logger,
		maxConcurrent: maxConcurrent,
		running:       make(map[*Task]struct{}),
		wake:          make(chan struct{}, 1),
		stopChan:      make(chan struct{}),
		loopDone:      make(chan struct{}),
	}
}

// Start launches the dispatch loop.
func (q *Queue) Start(ctx context.Context) {
	q.logger.Info("Starting task queue",
		slog.Int("max_concurrent", q.maxConcurrent),
	)

	go q.dispatchLoop(ctx)
}

// Stop halts dispatching and waits for in-flight handlers to finish.
// Pending tasks that never started are dropped.
func (q *Queue) Stop() {
	q.logger.Info("Stopping task queue...")
	close(q.stopChan)
	<-q.loopDone
	q.wg.Wait()
	q.logger.Info("Task queue stopped")
}

// Enqueue appends a task to the tail of the FIFO. It never blocks the caller.
func (q *Queue) Enqueue(task *Task) {
	q.mu.Lock()
	q.pending = append(q.pending, task)
	depth := len(q.pending)
	q.mu.Unlock()

	metrics.QueueDepth.Set(float64(depth))

	q.logger.Debug("Task enqueued",
		slog.String("task_id", task.ID),
		slog.String("kind", task.Kind),
		slog.Int("queue_depth", depth),
	)

	q.signal()
}

// Depth returns the number of tasks waiting to start.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Running returns the number of tasks currently executing.
func (q *Queue) Running() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.running)
}

// signal wakes the dispatch loop without blocking; a single buffered slot
// collapses bursts of wake-ups.
func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// dispatchLoop starts queued tasks whenever capacity is available. It sleeps
// on the wake channel between changes instead of polling.
func (q *Queue) dispatchLoop(ctx context.Context) {
	defer close(q.loopDone)

	for {
		q.dispatchReady(ctx)

		select {
		case <-q.stopChan:
			q.logger.Info("Dispatch loop stopping - stopChan closed")
			return
		case <-ctx.Done():
			q.logger.Info("Dispatch loop stopping - context canceled")
			return
		case <-q.wake:
		}
	}
}

// dispatchReady starts pending tasks head-first until the running set is at
// capacity or the FIFO is empty.
func (q *Queue) dispatchReady(ctx context.Context) {
	for {
		q.mu.Lock()
		if len(q.running) >= q.maxConcurrent || len(q.pending) == 0 {
			q.mu.Unlock()
			return
		}

		task := q.pending[0]
		q.pending = q.pending[1:]
		q.running[task] = struct{}{}
		depth := len(q.pending)
		runningCount := len(q.running)
		q.mu.Unlock()

		metrics.QueueDepth.Set(float64(depth))
		metrics.TasksRunning.Set(float64(runningCount))

		q.logger.Info("Task started",
			slog.String("task_id", task.ID),
			slog.String("kind", task.Kind),
			slog.Int("running", runningCount),
			slog.Int("queue_depth", depth),
		)

		q.wg.Add(1)
		go q.runTask(ctx, task)
	}
}

// runTask invokes the handler and isolates its failure from the loop and
// from sibling tasks. The completion path removes the task from the running
// set exactly once and wakes the dispatcher to fill the freed slot.
func (q *Queue) runTask(ctx context.Context, task *Task) {
	defer q.wg.Done()
	defer q.complete(task)

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("handler panic: %v", r)
			}
		}()
		return task.Handler(ctx)
	}()

	if err != nil {
		q.logger.Error("Task handler failed",
			slog.String("task_id", task.ID),
			slog.String("kind", task.Kind),
			slog.String("error", err.Error()),
		)
		if task.OnFailure != nil {
			task.OnFailure(err)
		}
		return
	}

	q.logger.Info("Task completed",
		slog.String("task_id", task.ID),
		slog.String("kind", task.Kind),
	)
}

// complete removes a finished task from the running set. A task absent from
// the set means the scheduler bookkeeping is broken; there is no safe
// degraded mode for that, so stop the process.
func (q *Queue) complete(task *Task) {
	q.mu.Lock()
	if _, ok := q.running[task]; !ok {
		q.mu.Unlock()
		panic(fmt.Sprintf("queue: task %s completed but was not running", task.ID))
	}
	delete(q.running, task)
	runningCount := len(q.running)
	q.mu.Unlock()

	metrics.TasksRunning.Set(float64(runningCount))

	q.signal()
}
