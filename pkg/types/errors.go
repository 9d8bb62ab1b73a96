package types

import (
	"errors"
	"fmt"
)

// Predefined errors
var (
	// ErrInvalidConfig indicates the pool configuration was rejected
	ErrInvalidConfig = errors.New("invalid pool configuration")

	// ErrPoolClosed indicates the pool is shutting down or shut down
	ErrPoolClosed = errors.New("pool is closed")

	// ErrNilTask indicates a task was built without a callable
	ErrNilTask = errors.New("task has no callable")

	// ErrTaskConsumed indicates a task was invoked more than once
	ErrTaskConsumed = errors.New("task already executed")

	// ErrTaskSubmitted indicates a task was handed to a pool twice
	ErrTaskSubmitted = errors.New("task already submitted")

	// ErrTaskDiscarded is delivered to completion callbacks of tasks
	// dropped by a discarding shutdown
	ErrTaskDiscarded = errors.New("task discarded at shutdown")

	// ErrJoinTimeout indicates a worker outlived the shutdown join timeout
	ErrJoinTimeout = errors.New("worker exceeded join timeout")

	// ErrCapacityExhausted indicates the pool already runs MaxWorkers workers
	ErrCapacityExhausted = errors.New("worker capacity exhausted")

	// ErrWorkerFloor indicates the pool already runs only MinWorkers workers
	ErrWorkerFloor = errors.New("worker count at minimum")

	// ErrNoIdleWorker indicates every worker is executing a task
	ErrNoIdleWorker = errors.New("no idle worker to retire")
)

// ConfigError describes a rejected configuration field
type ConfigError struct {
	// Field is the configuration field name
	Field string

	// Value is the rejected value
	Value interface{}

	// Reason explains the rejection
	Reason string
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid pool configuration: %s=%v: %s", e.Field, e.Value, e.Reason)
}

// Unwrap returns ErrInvalidConfig
func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// NewConfigError creates a new configuration error
func NewConfigError(field string, value interface{}, reason string) *ConfigError {
	return &ConfigError{Field: field, Value: value, Reason: reason}
}

// TaskError represents an error raised while building or running a task
type TaskError struct {
	// Operation is the name of the operation where the error occurred
	Operation string

	// TaskID is the identifier of the task, zero if it was never built
	TaskID uint64

	// WorkerID is the worker that ran the task, -1 if none did
	WorkerID int

	// Cause is the underlying error
	Cause error

	// Context contains error context information
	Context map[string]interface{}
}

// Error implements the error interface
func (e *TaskError) Error() string {
	if e.WorkerID >= 0 {
		return fmt.Sprintf("task %d %s on worker %d: %v", e.TaskID, e.Operation, e.WorkerID, e.Cause)
	}
	return fmt.Sprintf("task %d %s: %v", e.TaskID, e.Operation, e.Cause)
}

// Unwrap returns the underlying error
func (e *TaskError) Unwrap() error {
	return e.Cause
}

// NewTaskError creates a new task error
func NewTaskError(operation string, taskID uint64, cause error) *TaskError {
	return &TaskError{
		Operation: operation,
		TaskID:    taskID,
		WorkerID:  -1,
		Cause:     cause,
		Context:   make(map[string]interface{}),
	}
}

// WithWorker records the worker that ran the task
func (e *TaskError) WithWorker(id int) *TaskError {
	e.WorkerID = id
	return e
}

// WithContext adds error context
func (e *TaskError) WithContext(key string, value interface{}) *TaskError {
	e.Context[key] = value
	return e
}

// PanicError wraps a value recovered from a panicking task body
type PanicError struct {
	// Value is what was passed to panic
	Value interface{}

	// Stack is the goroutine stack at the point of recovery
	Stack string
}

// Error implements the error interface
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the panic value when it is itself an error
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// IsPanic reports whether err carries a recovered panic
func IsPanic(err error) bool {
	var pe *PanicError
	return errors.As(err, &pe)
}
