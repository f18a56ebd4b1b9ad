package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/lexcodex/promptforge/framework"
)

const (
	// DefaultWorkers is the pool size.
	DefaultWorkers = 4
	// notificationBuffer absorbs bursts so workers rarely wait on the consumer.
	notificationBuffer = 64
)

// ErrShutdown is returned by Submit once the dispatcher is shut down.
var ErrShutdown = errors.New("dispatcher shut down")

// Outcome is what a Runner produced for a successful task.
type Outcome struct {
	Text    string
	Model   string
	Retried bool
}

// Runner performs the work of a task. It runs on a pool slot.
type Runner interface {
	Run(ctx context.Context, task Task) (Outcome, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, task Task) (Outcome, error)

func (f RunnerFunc) Run(ctx context.Context, task Task) (Outcome, error) { return f(ctx, task) }

// Options configures a Dispatcher.
type Options struct {
	Workers   int
	Telemetry framework.Telemetry
	Logger    *log.Logger
}

// Dispatcher schedules tasks on a bounded pool and reports their lifecycle on
// one notification channel.
type Dispatcher struct {
	runner    Runner
	sem       *semaphore.Weighted
	notes     chan Notification
	telemetry framework.Telemetry
	logger    *log.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu    sync.Mutex
	tasks map[string]*Task
	stats Stats
}

// New builds a dispatcher around runner.
func New(runner Runner, opts Options) *Dispatcher {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		runner:    runner,
		sem:       semaphore.NewWeighted(int64(workers)),
		notes:     make(chan Notification, notificationBuffer),
		telemetry: opts.Telemetry,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		tasks:     make(map[string]*Task),
	}
}

// Notifications is the single-consumer channel. It is never closed; consumers
// stop reading when they stop.
func (d *Dispatcher) Notifications() <-chan Notification {
	return d.notes
}

// Submit schedules a task and returns immediately.
func (d *Dispatcher) Submit(kind Kind, payload Payload) (TaskHandle, error) {
	if err := payload.Validate(kind); err != nil {
		return TaskHandle{}, err
	}
	if d.ctx.Err() != nil {
		return TaskHandle{}, ErrShutdown
	}
	task := &Task{ID: uuid.NewString(), Kind: kind, Payload: payload, Status: StatusPending}
	handle := TaskHandle{ID: task.ID, Kind: kind, done: make(chan struct{})}

	d.mu.Lock()
	d.tasks[task.ID] = task
	d.stats.Submitted++
	d.mu.Unlock()

	d.emit(framework.EventTaskSubmitted, task, "task submitted", map[string]interface{}{"model": payload.Model})
	d.logger.Printf("[dispatch] submitted %s task %s", kind, task.ID)

	d.wg.Add(1)
	go d.schedule(task, handle.done)
	return handle, nil
}

func (d *Dispatcher) schedule(task *Task, done chan struct{}) {
	defer d.wg.Done()
	defer close(done)
	if err := d.sem.Acquire(d.ctx, 1); err != nil {
		d.mu.Lock()
		delete(d.tasks, task.ID)
		d.stats.Abandoned++
		d.mu.Unlock()
		d.logger.Printf("[dispatch] abandoned pending task %s", task.ID)
		return
	}
	defer d.sem.Release(1)
	d.execute(task)
}

func (d *Dispatcher) execute(task *Task) {
	snapshot := d.transition(task, StatusRunning)
	d.notify(Notification{Kind: NotifyStateChange, TaskID: task.ID, TaskKind: task.Kind, Status: StatusRunning})
	d.emit(framework.EventTaskStarted, task, "task started", nil)
	final := StatusFailed
	defer func() {
		d.notify(Notification{Kind: NotifyUIEnabled, TaskID: task.ID, TaskKind: task.Kind, Status: final})
	}()

	// Running tasks are not cancellable, Shutdown included.
	ctx := context.WithoutCancel(d.ctx)
	ctx = framework.WithTaskContext(ctx, framework.TaskContext{ID: task.ID, Kind: string(task.Kind), Model: task.Payload.Model})

	started := time.Now()
	out, err := d.run(ctx, snapshot)
	if err != nil {
		d.finish(task, StatusFailed)
		msg := FailureMessage(task.Kind, err)
		d.notify(Notification{Kind: NotifyError, TaskID: task.ID, TaskKind: task.Kind, Status: StatusFailed, Message: msg, Model: task.Payload.Model})
		d.emit(framework.EventTaskFailed, task, msg, map[string]interface{}{"duration_ms": time.Since(started).Milliseconds()})
		d.logger.Printf("[dispatch] task %s failed: %v", task.ID, err)
		return
	}
	final = StatusSucceeded
	d.finish(task, StatusSucceeded)
	d.notify(Notification{Kind: NotifyResult, TaskID: task.ID, TaskKind: task.Kind, Status: StatusSucceeded, Payload: out.Text, Model: out.Model, Retried: out.Retried})
	d.emit(framework.EventTaskSucceeded, task, "task succeeded", map[string]interface{}{
		"duration_ms": time.Since(started).Milliseconds(),
		"model":       out.Model,
		"retried":     out.Retried,
	})
	d.logger.Printf("[dispatch] task %s succeeded via %s", task.ID, out.Model)
}

func (d *Dispatcher) run(ctx context.Context, task Task) (out Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	if d.runner == nil {
		return Outcome{}, errors.New("no runner configured")
	}
	return d.runner.Run(ctx, task)
}

func (d *Dispatcher) transition(task *Task, status Status) Task {
	d.mu.Lock()
	defer d.mu.Unlock()
	task.Status = status
	if status == StatusRunning {
		d.stats.Running++
	}
	return *task
}

// finish records the terminal status and hands the record off.
func (d *Dispatcher) finish(task *Task, status Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	task.Status = status
	d.stats.Running--
	if status == StatusSucceeded {
		d.stats.Succeeded++
	} else {
		d.stats.Failed++
	}
	delete(d.tasks, task.ID)
}

// notify blocks until the consumer has room. After Shutdown it gives up
// rather than wait on a consumer that may be gone.
func (d *Dispatcher) notify(n Notification) {
	select {
	case d.notes <- n:
		return
	default:
	}
	select {
	case d.notes <- n:
	case <-d.ctx.Done():
		d.logger.Printf("[dispatch] dropped %s notification for %s after shutdown", n.Kind, n.TaskID)
	}
}

// Task returns a copy of a live (pending or running) task.
func (d *Dispatcher) Task(id string) (Task, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *t, true
}

// Stats returns a snapshot of the counters.
func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Wait blocks until every submitted task has delivered its terminal
// notifications or was abandoned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Shutdown stops accepting work and abandons pending tasks without waiting
// for running ones.
func (d *Dispatcher) Shutdown() {
	d.stopOnce.Do(func() {
		d.cancel()
		d.logger.Printf("[dispatch] shutdown")
	})
}

func (d *Dispatcher) emit(t framework.EventType, task *Task, msg string, meta map[string]interface{}) {
	if d.telemetry == nil {
		return
	}
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["kind"] = string(task.Kind)
	d.telemetry.Emit(framework.Event{
		Type:      t,
		TaskID:    task.ID,
		Message:   msg,
		Timestamp: time.Now().UTC(),
		Metadata:  meta,
	})
}
