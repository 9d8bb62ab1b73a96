package worker

import (
	"context"
)

// Enqueue wraps fn in a Task and submits it, fire-and-forget
func Enqueue[F Callable](ctx context.Context, p *Pool, fn F) error {
	t, err := NewTask(fn)
	if err != nil {
		return err
	}
	return p.Submit(ctx, t)
}

// Spawn wraps fn in a Task, submits it and returns a Handle that resolves
// once the task has run or been discarded
func Spawn[F Callable](ctx context.Context, p *Pool, fn F) (*Handle, error) {
	t, err := NewTask(fn)
	if err != nil {
		return nil, err
	}

	h := &Handle{id: t.id, done: make(chan struct{})}
	t.OnComplete(h.resolve)
	if err := p.Submit(ctx, t); err != nil {
		return nil, err
	}
	return h, nil
}

// Handle tracks completion of a spawned task
type Handle struct {
	id   uint64
	done chan struct{}
	err  error
}

func (h *Handle) resolve(err error) {
	h.err = err
	close(h.done)
}

// ID returns the task ID
func (h *Handle) ID() uint64 {
	return h.id
}

// Done returns a channel closed when the task has finished
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err returns the task result; nil until Done is closed
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Wait blocks until the task finishes or ctx is done
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
