// Package types defines core interfaces and types shared by the pool packages
package types

import (
	"context"
	"time"
)

// Submitter accepts work for asynchronous execution
type Submitter[T any] interface {
	// Submit hands a task to the pool. ctx identifies the submitting
	// worker, if any.
	Submit(ctx context.Context, task T) error
}

// Lifecycle defines the shutdown side of a pool
type Lifecycle interface {
	// Wait blocks until every accepted task has finished
	Wait()

	// Shutdown stops accepting work and joins every worker
	Shutdown()

	// ShutdownNow stops accepting work, drops queued tasks and joins every worker
	ShutdownNow()

	// Close implements io.Closer
	Close() error
}

// Scaler defines explicit worker-count control
type Scaler interface {
	// CreateThread adds one worker
	CreateThread() error

	// DestroyThread retires one idle worker
	DestroyThread() error
}

// StatsProvider exposes pool statistics
type StatsProvider interface {
	// ID returns the unique pool identifier
	ID() string

	// Stats returns a point-in-time statistics snapshot
	Stats() PoolStats
}

// WorkStealingPool is the full pool contract
type WorkStealingPool[T any] interface {
	Submitter[T]
	Lifecycle
	Scaler
	StatsProvider

	// Size returns the number of live workers
	Size() int
}

// PoolStats defines statistics for a work-stealing pool
type PoolStats struct {
	// Workers is the number of live workers
	Workers int

	// MinWorkers and MaxWorkers are the configured bounds
	MinWorkers int
	MaxWorkers int

	// IdleWorkers is the number of workers looking for work
	IdleWorkers int

	// Queued is the number of tasks sitting in worker deques
	Queued int

	// Pending is the number of accepted tasks that have not finished
	Pending int64

	// Counters since construction
	Submitted int64
	Executed  int64
	Stolen    int64
	Failed    int64
	Discarded int64
}

// Utilization returns the fraction of live workers executing a task
func (s PoolStats) Utilization() float64 {
	if s.Workers == 0 {
		return 0
	}
	return float64(s.Workers-s.IdleWorkers) / float64(s.Workers)
}

// TaskFailure is one report on the pool-wide failure channel
type TaskFailure struct {
	// PoolID identifies the pool that ran the task
	PoolID string

	// WorkerID identifies the worker that ran the task
	WorkerID int

	// TaskID identifies the task
	TaskID uint64

	// Signature names the callable shape of the task
	Signature string

	// Err is a *TaskError carrying the worker, wrapping the error returned
	// or the *PanicError recovered
	Err error

	// Time is when the failure was observed
	Time time.Time
}

// FailureHandler receives task failures. It runs on the worker goroutine
// that observed the failure and must not block for long.
type FailureHandler func(TaskFailure)
