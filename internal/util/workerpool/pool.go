package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrTaskTimeout is returned by Handle.Await when the task does not
	// complete within the caller's budget. The task itself keeps running
	// until it finishes or is cancelled via Handle.Cancel.
	ErrTaskTimeout = errors.New("workerpool: task did not complete within timeout")

	// ErrPoolStopped is delivered to handles whose tasks were still queued
	// when the pool shut down.
	ErrPoolStopped = errors.New("workerpool: pool is stopped")
)

// Task represents a unit of work producing a result
type Task struct {
	ID string
	Fn func(context.Context) (interface{}, error)
}

// Handle tracks a submitted task and delivers its result
type Handle struct {
	id     string
	done   chan struct{}
	result interface{}
	err    error
	cancel context.CancelFunc
}

// Await blocks until the task completes or the timeout elapses.
// On timeout it returns ErrTaskTimeout; the task is not cancelled
// implicitly.
func (h *Handle) Await(timeout time.Duration) (interface{}, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-h.done:
		return h.result, h.err
	case <-timer.C:
		return nil, ErrTaskTimeout
	}
}

// Cancel cancels the task's context. Idempotent and safe to call at any
// point: a task not yet started is skipped, a finished one is unaffected,
// and a running one is interrupted only at its next cancellation point.
func (h *Handle) Cancel() {
	h.cancel()
}

// ID returns the task id this handle tracks
func (h *Handle) ID() string {
	return h.id
}

func (h *Handle) complete(result interface{}, err error) {
	h.result = result
	h.err = err
	close(h.done)
}

type submission struct {
	task   Task
	ctx    context.Context
	handle *Handle
}

// WorkerPool manages a bounded pool of goroutines executing cancellable
// tasks with per-task result handles
type WorkerPool struct {
	name       string
	maxWorkers int
	queueSize  int
	taskQueue  chan *submission
	logger     *zap.Logger
	wg         sync.WaitGroup
	stopOnce   sync.Once
	stopChan   chan struct{}

	activeWorkers  int32
	totalTasks     uint64
	completedTasks uint64
	failedTasks    uint64
	cancelledTasks uint64
	rejectedTasks  uint64
}

// Config holds worker pool configuration
type Config struct {
	Name       string
	MaxWorkers int
	QueueSize  int
	Logger     *zap.Logger
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(cfg *Config) *WorkerPool {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 10
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	pool := &WorkerPool{
		name:       cfg.Name,
		maxWorkers: cfg.MaxWorkers,
		queueSize:  cfg.QueueSize,
		taskQueue:  make(chan *submission, cfg.QueueSize),
		logger:     cfg.Logger,
		stopChan:   make(chan struct{}),
	}

	for i := 0; i < pool.maxWorkers; i++ {
		pool.wg.Add(1)
		go pool.worker(i)
	}

	pool.logger.Info("Worker pool started",
		zap.String("name", pool.name),
		zap.Int("max_workers", pool.maxWorkers),
		zap.Int("queue_size", pool.queueSize))

	return pool
}

// worker is the main worker goroutine
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			p.logger.Debug("Worker stopping",
				zap.String("pool", p.name),
				zap.Int("worker_id", id))
			return

		case sub := <-p.taskQueue:
			p.executeTask(id, sub)
		}
	}
}

// executeTask executes a single submission and completes its handle
func (p *WorkerPool) executeTask(workerID int, sub *submission) {
	atomic.AddInt32(&p.activeWorkers, 1)
	defer atomic.AddInt32(&p.activeWorkers, -1)

	// A task cancelled while queued never runs
	if err := sub.ctx.Err(); err != nil {
		atomic.AddUint64(&p.cancelledTasks, 1)
		p.logger.Debug("Task cancelled before start",
			zap.String("pool", p.name),
			zap.Int("worker_id", workerID),
			zap.String("task_id", sub.task.ID))
		sub.handle.complete(nil, err)
		return
	}

	start := time.Now()

	result, err := p.safeExecute(sub)

	duration := time.Since(start)

	if err != nil {
		atomic.AddUint64(&p.failedTasks, 1)
		p.logger.Debug("Task failed",
			zap.String("pool", p.name),
			zap.Int("worker_id", workerID),
			zap.String("task_id", sub.task.ID),
			zap.Duration("duration", duration),
			zap.Error(err))
	} else {
		atomic.AddUint64(&p.completedTasks, 1)
		p.logger.Debug("Task completed",
			zap.String("pool", p.name),
			zap.Int("worker_id", workerID),
			zap.String("task_id", sub.task.ID),
			zap.Duration("duration", duration))
	}

	sub.handle.complete(result, err)
}

// safeExecute executes a task with panic recovery
func (p *WorkerPool) safeExecute(sub *submission) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("task panicked: %v", r)
			p.logger.Error("Task panic recovered",
				zap.String("pool", p.name),
				zap.String("task_id", sub.task.ID),
				zap.Any("panic", r))
		}
	}()

	return sub.task.Fn(sub.ctx)
}

// Submit submits a task and returns a handle to its result.
// Returns an error if the queue is full or the pool is stopped.
func (p *WorkerPool) Submit(task Task) (*Handle, error) {
	select {
	case <-p.stopChan:
		atomic.AddUint64(&p.rejectedTasks, 1)
		return nil, fmt.Errorf("worker pool '%s' is stopped", p.name)
	default:
	}

	ctx, cancel := context.WithCancel(context.Background())
	handle := &Handle{
		id:     task.ID,
		done:   make(chan struct{}),
		cancel: cancel,
	}

	select {
	case p.taskQueue <- &submission{task: task, ctx: ctx, handle: handle}:
		atomic.AddUint64(&p.totalTasks, 1)
		return handle, nil
	default:
		atomic.AddUint64(&p.rejectedTasks, 1)
		cancel()
		return nil, fmt.Errorf("worker pool '%s' queue is full", p.name)
	}
}

// Stop gracefully stops the worker pool. Workers finish their current
// task; submissions still queued are completed with ErrPoolStopped so no
// awaiting caller is left hanging.
func (p *WorkerPool) Stop(timeout time.Duration) error {
	var err error
	p.stopOnce.Do(func() {
		p.logger.Info("Stopping worker pool", zap.String("name", p.name))
		close(p.stopChan)

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			p.logger.Info("Worker pool stopped gracefully", zap.String("name", p.name))
		case <-time.After(timeout):
			err = fmt.Errorf("worker pool '%s' stop timeout after %v", p.name, timeout)
			p.logger.Warn("Worker pool stop timeout", zap.String("name", p.name))
		}

		p.drainQueue()
	})
	return err
}

// drainQueue fails all submissions the workers never picked up
func (p *WorkerPool) drainQueue() {
	for {
		select {
		case sub := <-p.taskQueue:
			atomic.AddUint64(&p.cancelledTasks, 1)
			sub.handle.complete(nil, ErrPoolStopped)
		default:
			return
		}
	}
}

// Stats returns current worker pool statistics
func (p *WorkerPool) Stats() Stats {
	return Stats{
		Name:           p.name,
		MaxWorkers:     p.maxWorkers,
		ActiveWorkers:  int(atomic.LoadInt32(&p.activeWorkers)),
		QueueSize:      p.queueSize,
		QueuedTasks:    len(p.taskQueue),
		TotalTasks:     atomic.LoadUint64(&p.totalTasks),
		CompletedTasks: atomic.LoadUint64(&p.completedTasks),
		FailedTasks:    atomic.LoadUint64(&p.failedTasks),
		CancelledTasks: atomic.LoadUint64(&p.cancelledTasks),
		RejectedTasks:  atomic.LoadUint64(&p.rejectedTasks),
	}
}

// Stats represents worker pool statistics
type Stats struct {
	Name           string
	MaxWorkers     int
	ActiveWorkers  int
	QueueSize      int
	QueuedTasks    int
	TotalTasks     uint64
	CompletedTasks uint64
	FailedTasks    uint64
	CancelledTasks uint64
	RejectedTasks  uint64
}

// QueueUtilization returns the queue utilization as a percentage
func (s Stats) QueueUtilization() float64 {
	if s.QueueSize == 0 {
		return 0
	}
	return (float64(s.QueuedTasks) / float64(s.QueueSize)) * 100.0
}

// WorkerUtilization returns the worker utilization as a percentage
func (s Stats) WorkerUtilization() float64 {
	if s.MaxWorkers == 0 {
		return 0
	}
	return (float64(s.ActiveWorkers) / float64(s.MaxWorkers)) * 100.0
}

// SuccessRate returns the task success rate as a percentage
func (s Stats) SuccessRate() float64 {
	if s.TotalTasks == 0 {
		return 100.0
	}
	return (float64(s.CompletedTasks) / float64(s.TotalTasks)) * 100.0
}
