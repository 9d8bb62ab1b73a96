package worker

import "context"

type workerKey struct{}

func contextWithWorker(ctx context.Context, w *Worker) context.Context {
	return context.WithValue(ctx, workerKey{}, w)
}

func workerFromContext(ctx context.Context) *Worker {
	if ctx == nil {
		return nil
	}
	w, _ := ctx.Value(workerKey{}).(*Worker)
	return w
}

// WorkerID returns the ID of the worker whose task received ctx. Submitting
// with such a context places the new task on that worker's own deque.
func WorkerID(ctx context.Context) (int, bool) {
	if w := workerFromContext(ctx); w != nil {
		return w.id, true
	}
	return 0, false
}
