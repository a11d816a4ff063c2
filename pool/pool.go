// Package pool provides a bounded pool of OS-thread-locked workers for
// guarded calls.
//
// Every protected call must pin its goroutine to an OS thread while the
// guard scope is active. Routing asynchronous calls through a pool of
// pre-locked workers amortizes that pinning across calls instead of paying
// it per call.
package pool

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Common errors.
var (
	ErrPoolFull     = errors.New("worker pool is full")
	ErrPoolShutdown = errors.New("worker pool is shutdown")
)

// Task represents a unit of work for the pool.
type Task struct {
	SubmittedAt time.Time
	Fn          func()
}

// Pool manages a bounded set of thread-locked workers.
type Pool interface {
	// Submit submits a task to the pool.
	Submit(ctx context.Context, task func()) error

	// Stats returns current pool statistics.
	Stats() Stats

	// Shutdown gracefully shuts down the pool.
	Shutdown(ctx context.Context) error
}

// Config configures the worker pool.
type Config struct {
	// Workers is the number of thread-locked workers.
	Workers int `yaml:"workers"`

	// QueueSize is the size of the task queue.
	QueueSize int `yaml:"queue_size"`

	// BackpressureStrategy defines behavior when the queue is full.
	BackpressureStrategy BackpressureStrategy `yaml:"backpressure"`
}

// BackpressureStrategy defines how to handle a full queue.
type BackpressureStrategy int

const (
	// StrategyBlock blocks until space is available.
	StrategyBlock BackpressureStrategy = iota

	// StrategyReject immediately rejects new tasks.
	StrategyReject
)

// Stats contains pool statistics.
type Stats struct {
	Workers        int32
	QueueLength    int32
	QueueCapacity  int32
	TotalSubmitted int64
	TotalCompleted int64
	TotalRejected  int64
}

// DefaultConfig returns default pool configuration.
func DefaultConfig() Config {
	return Config{
		Workers:              4,
		QueueSize:            256,
		BackpressureStrategy: StrategyBlock,
	}
}

// pool is the concrete implementation.
type pool struct {
	taskQueue  chan Task
	shutdownCh chan struct{}
	config     Config
	wg         sync.WaitGroup
	submitted  int64
	completed  int64
	rejected   int64
	shutdown   int32
}

// New creates a new worker pool and starts its workers.
func New(config Config) (Pool, error) {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.QueueSize <= 0 {
		config.QueueSize = config.Workers * 16
	}

	p := &pool{
		config:     config,
		taskQueue:  make(chan Task, config.QueueSize),
		shutdownCh: make(chan struct{}),
	}

	for i := 0; i < config.Workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	return p, nil
}

// worker drains the task queue on a pinned OS thread.
func (p *pool) worker() {
	defer p.wg.Done()

	// The lock is held for the worker's whole life; guarded calls run on
	// this thread without re-pinning.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for {
		select {
		case task := <-p.taskQueue:
			task.Fn()
			atomic.AddInt64(&p.completed, 1)
		case <-p.shutdownCh:
			// Drain what is already queued before exiting.
			for {
				select {
				case task := <-p.taskQueue:
					task.Fn()
					atomic.AddInt64(&p.completed, 1)
				default:
					return
				}
			}
		}
	}
}

// Submit implements Pool.Submit.
func (p *pool) Submit(ctx context.Context, task func()) error {
	if atomic.LoadInt32(&p.shutdown) == 1 {
		return ErrPoolShutdown
	}

	t := Task{Fn: task, SubmittedAt: time.Now()}
	atomic.AddInt64(&p.submitted, 1)

	switch p.config.BackpressureStrategy {
	case StrategyReject:
		select {
		case p.taskQueue <- t:
			return nil
		default:
			atomic.AddInt64(&p.rejected, 1)
			return ErrPoolFull
		}
	default:
		select {
		case p.taskQueue <- t:
			return nil
		case <-ctx.Done():
			atomic.AddInt64(&p.rejected, 1)
			return ctx.Err()
		case <-p.shutdownCh:
			return ErrPoolShutdown
		}
	}
}

// Stats implements Pool.Stats.
func (p *pool) Stats() Stats {
	// len() and cap() on channels are safe to call concurrently; the
	// snapshot is instantaneous, which is acceptable for stats.
	return Stats{
		Workers:        int32(p.config.Workers),
		QueueLength:    int32(len(p.taskQueue)),
		QueueCapacity:  int32(cap(p.taskQueue)),
		TotalSubmitted: atomic.LoadInt64(&p.submitted),
		TotalCompleted: atomic.LoadInt64(&p.completed),
		TotalRejected:  atomic.LoadInt64(&p.rejected),
	}
}

// Shutdown implements Pool.Shutdown.
func (p *pool) Shutdown(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&p.shutdown, 0, 1) {
		return nil // Already shutdown
	}

	close(p.shutdownCh)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
