package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/jzx17/stealpool/pkg/types"
)

// Signature identifies the callable shape held by a Task
type Signature uint8

const (
	// SignatureFunc holds a func()
	SignatureFunc Signature = iota
	// SignatureErrFunc holds a func() error
	SignatureErrFunc
	// SignatureCtxFunc holds a func(context.Context)
	SignatureCtxFunc
	// SignatureCtxErrFunc holds a func(context.Context) error
	SignatureCtxErrFunc
)

// String returns the Go spelling of the signature
func (s Signature) String() string {
	switch s {
	case SignatureFunc:
		return "func()"
	case SignatureErrFunc:
		return "func() error"
	case SignatureCtxFunc:
		return "func(context.Context)"
	case SignatureCtxErrFunc:
		return "func(context.Context) error"
	default:
		return "unknown"
	}
}

// Callable is the closed set of function shapes a Task can carry
type Callable interface {
	func() | func() error | func(context.Context) | func(context.Context) error
}

// taskIDCounter is the global task ID counter
var taskIDCounter atomic.Uint64

// Task is a type-erased unit of work. Exactly one of the function fields is
// set, selected by sig.
type Task struct {
	id  uint64
	sig Signature

	fn       func()
	fnErr    func() error
	fnCtx    func(context.Context)
	fnCtxErr func(context.Context) error

	onDone func(error)

	submitted atomic.Bool
	invoked   atomic.Bool
}

// NewTask wraps fn in a Task. A nil fn is rejected with ErrNilTask.
func NewTask[F Callable](fn F) (*Task, error) {
	t := &Task{}
	switch f := any(fn).(type) {
	case func():
		t.sig, t.fn = SignatureFunc, f
		if f == nil {
			return nil, nilCallable(t.sig)
		}
	case func() error:
		t.sig, t.fnErr = SignatureErrFunc, f
		if f == nil {
			return nil, nilCallable(t.sig)
		}
	case func(context.Context):
		t.sig, t.fnCtx = SignatureCtxFunc, f
		if f == nil {
			return nil, nilCallable(t.sig)
		}
	case func(context.Context) error:
		t.sig, t.fnCtxErr = SignatureCtxErrFunc, f
		if f == nil {
			return nil, nilCallable(t.sig)
		}
	default:
		return nil, types.NewTaskError("construct", 0, fmt.Errorf("unsupported callable %T", fn))
	}
	t.id = taskIDCounter.Add(1)
	return t, nil
}

func nilCallable(sig Signature) error {
	return types.NewTaskError("construct", 0, types.ErrNilTask).WithContext("signature", sig.String())
}

// ID returns the task ID
func (t *Task) ID() uint64 {
	return t.id
}

// Signature returns the callable shape of the task
func (t *Task) Signature() Signature {
	return t.sig
}

// OnComplete registers the completion callback. It receives the result of
// the body, or ErrTaskDiscarded if the task never ran. It must be set before
// the task is submitted; later calls are ignored.
func (t *Task) OnComplete(fn func(error)) *Task {
	if !t.submitted.Load() {
		t.onDone = fn
	}
	return t
}

// Invoke runs the callable. A second call returns ErrTaskConsumed without
// running anything. Panics in the body are returned as *types.PanicError.
// A panicking completion callback is joined onto the body's result.
func (t *Task) Invoke(ctx context.Context) error {
	if !t.invoked.CompareAndSwap(false, true) {
		return types.ErrTaskConsumed
	}

	err := t.call(ctx)
	if cbErr := t.complete(err); cbErr != nil {
		if err == nil {
			return cbErr
		}
		err = errors.Join(err, cbErr)
	}
	return err
}

// discard consumes the task without running its body
func (t *Task) discard() {
	if t.invoked.CompareAndSwap(false, true) {
		_ = t.complete(types.ErrTaskDiscarded)
	}
}

func (t *Task) call(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(r)
		}
	}()

	switch t.sig {
	case SignatureFunc:
		t.fn()
	case SignatureErrFunc:
		err = t.fnErr()
	case SignatureCtxFunc:
		t.fnCtx(ctx)
	case SignatureCtxErrFunc:
		err = t.fnCtxErr(ctx)
	}
	return err
}

func (t *Task) complete(result error) (err error) {
	if t.onDone == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = recovered(r)
		}
	}()
	t.onDone(result)
	return nil
}

// recovered converts a recovered panic value into a *types.PanicError
func recovered(r interface{}) error {
	var buf [4096]byte
	n := runtime.Stack(buf[:], false)
	return &types.PanicError{Value: r, Stack: string(buf[:n])}
}
