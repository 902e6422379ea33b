package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/kashishh18/bachelor-league/internal/domain"
	"github.com/kashishh18/bachelor-league/internal/metrics"
)

const (
	defaultPollInterval    = 30 * time.Second
	tickErrorBackoff       = time.Minute
	defaultResultRetention = 100
)

// Runner owns the task table and the poll loop. Register tasks before
// Start; at steady state the table is static apart from enable/disable.
type Runner struct {
	clock        clockwork.Clock
	pollInterval time.Duration
	retention    int

	baseCtx   context.Context
	cancelAll context.CancelFunc

	mu      sync.Mutex
	tasks   map[string]*task
	order   []string
	results []*Result

	wg       sync.WaitGroup
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewRunner(clock clockwork.Clock) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		clock:        clock,
		pollInterval: defaultPollInterval,
		retention:    defaultResultRetention,
		baseCtx:      ctx,
		cancelAll:    cancel,
		tasks:        make(map[string]*task),
		stopCh:       make(chan struct{}),
	}
}

// RegisterTask adds a task to the table with a computed initial next-run
// time. Registering a duplicate ID is a conflict.
func (r *Runner) RegisterTask(id, name string, job Job, trigger Trigger, priority Priority, maxFailures int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tasks[id]; exists {
		return fmt.Errorf("task %q already registered", id)
	}

	t := &task{
		id:          id,
		name:        name,
		job:         job,
		trigger:     trigger,
		priority:    priority,
		maxFailures: maxFailures,
		enabled:     true,
		nextRun:     trigger.firstRun(r.clock.Now()),
		hasNext:     true,
	}
	r.tasks[id] = t
	r.order = append(r.order, id)

	slog.Info("Task registered", "task_id", id, "name", name, "priority", string(priority), "next_run", t.nextRun)
	return nil
}

// Start launches the poll loop.
func (r *Runner) Start() {
	r.wg.Add(1)
	go r.run()
	slog.Info("Task runner started", "poll_interval", r.pollInterval, "tasks", len(r.order))
}

// Shutdown stops the poll loop, cancels every in-flight execution, and
// waits until each has observed cancellation.
func (r *Runner) Shutdown() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	r.cancelAll()
	r.wg.Wait()
	slog.Info("Task runner stopped")
}

func (r *Runner) run() {
	defer r.wg.Done()

	ticker := r.clock.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			if err := r.tick(); err != nil {
				slog.Error("Scheduler tick failed, backing off", "error", err, "backoff", tickErrorBackoff)
				select {
				case <-r.clock.After(tickErrorBackoff):
				case <-r.stopCh:
					return
				}
			}
		case <-r.stopCh:
			return
		}
	}
}

// tick launches every enabled, due, non-running task. A tick failure never
// terminates the loop; the caller backs off and keeps polling.
func (r *Runner) tick() (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("tick panic: %v", rec)
		}
	}()

	start := r.clock.Now()
	defer func() {
		metrics.SchedulerTickDuration.Observe(r.clock.Since(start).Seconds())
	}()

	r.mu.Lock()
	var due []*task
	for _, id := range r.order {
		t := r.tasks[id]
		if t.enabled && t.hasNext && !t.running && !t.nextRun.After(start) {
			t.running = true
			due = append(due, t)
		}
	}
	r.mu.Unlock()

	for _, t := range due {
		r.launch(t, false)
	}
	return nil
}

// RunNow invokes a task's job out-of-band. The schedule is untouched: no
// next-run change, no failure accounting, only a new execution record.
func (r *Runner) RunNow(id string) error {
	r.mu.Lock()
	t, ok := r.tasks[id]
	if !ok {
		r.mu.Unlock()
		return domain.ErrTaskNotFound
	}
	if t.running {
		r.mu.Unlock()
		return domain.ErrTaskRunning
	}
	t.running = true
	r.mu.Unlock()

	slog.Info("Task triggered manually", "task_id", id)
	r.launch(t, true)
	return nil
}

// Enable re-arms a task: failure counter cleared, next run recomputed.
func (r *Runner) Enable(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return domain.ErrTaskNotFound
	}
	t.enabled = true
	t.failures = 0
	t.nextRun = t.trigger.firstRun(r.clock.Now())
	t.hasNext = true
	slog.Info("Task enabled", "task_id", id, "next_run", t.nextRun)
	return nil
}

// Disable halts scheduling of a task without removing it.
func (r *Runner) Disable(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return domain.ErrTaskNotFound
	}
	t.enabled = false
	slog.Info("Task disabled", "task_id", id)
	return nil
}

// TaskStatuses returns a snapshot of every registered task.
func (r *Runner) TaskStatuses() []TaskStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	statuses := make([]TaskStatus, 0, len(r.order))
	for _, id := range r.order {
		t := r.tasks[id]
		s := TaskStatus{
			ID:          t.id,
			Name:        t.name,
			Priority:    t.priority,
			Enabled:     t.enabled,
			Running:     t.running,
			Failures:    t.failures,
			MaxFailures: t.maxFailures,
			RunCount:    t.runCount,
			LastRun:     t.lastRun,
		}
		if t.hasNext {
			s.NextRun = t.nextRun
		}
		statuses = append(statuses, s)
	}
	return statuses
}

// Results returns the most recent executions, newest last. limit <= 0
// returns the full retained history.
func (r *Runner) Results(limit int) []Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.results)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Result, 0, n)
	for _, res := range r.results[len(r.results)-n:] {
		out = append(out, *res)
	}
	return out
}

func (r *Runner) launch(t *task, manual bool) {
	ctx, cancel := context.WithCancel(r.baseCtx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()
		r.execute(ctx, t, manual)
	}()
}

// execute is the error boundary around one job run. Panics and errors are
// recorded here and drive the failure state machine; nothing propagates.
func (r *Runner) execute(ctx context.Context, t *task, manual bool) {
	started := r.clock.Now()
	res := &Result{
		ID:        uuid.New(),
		TaskID:    t.id,
		Status:    StatusRunning,
		StartedAt: started,
	}

	r.mu.Lock()
	r.appendResultLocked(res)
	r.mu.Unlock()

	slog.Info("Task starting", "task_id", t.id, "name", t.name, "manual", manual)
	payload, err := runJob(ctx, t.job)

	completed := r.clock.Now()
	duration := completed.Sub(started)

	r.mu.Lock()
	t.running = false
	res.CompletedAt = completed
	res.Duration = duration.Seconds()

	switch {
	case err != nil && (errors.Is(err, context.Canceled) || ctx.Err() != nil):
		res.Status = StatusCancelled
		res.Error = err.Error()
		slog.Info("Task cancelled", "task_id", t.id, "duration", duration)

	case err != nil:
		res.Status = StatusFailed
		res.Error = err.Error()
		if !manual {
			t.failures++
			if t.failures >= t.maxFailures {
				t.enabled = false
				t.hasNext = false
				metrics.TasksDisabledTotal.Inc()
				slog.Warn("Task disabled after repeated failures", "task_id", t.id, "failures", t.failures)
			} else {
				backoff := time.Duration(1<<t.failures) * time.Minute
				t.nextRun = completed.Add(backoff)
				t.hasNext = true
				slog.Warn("Task failed, backing off", "task_id", t.id, "failures", t.failures, "backoff", backoff, "error", err)
			}
		} else {
			slog.Warn("Manual task run failed", "task_id", t.id, "error", err)
		}

	default:
		res.Status = StatusCompleted
		res.Payload = payload
		if !manual {
			t.failures = 0
			t.lastRun = completed
			t.runCount++
			if next, ok := t.trigger.nextRun(completed); ok {
				t.nextRun = next
				t.hasNext = true
			} else {
				t.hasNext = false
			}
		}
		slog.Info("Task completed", "task_id", t.id, "duration", duration)
	}
	r.mu.Unlock()

	metrics.TaskRunsTotal.WithLabelValues(t.id, string(res.Status)).Inc()
	metrics.TaskDuration.WithLabelValues(t.id).Observe(duration.Seconds())
}

// appendResultLocked adds a result and prunes the oldest past retention.
func (r *Runner) appendResultLocked(res *Result) {
	r.results = append(r.results, res)
	if excess := len(r.results) - r.retention; excess > 0 {
		r.results = append([]*Result(nil), r.results[excess:]...)
	}
}

// runJob invokes the job with panic containment.
func runJob(ctx context.Context, job Job) (payload any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("job panic: %v", rec)
		}
	}()
	return job(ctx)
}
