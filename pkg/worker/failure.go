package worker

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"

	"github.com/jzx17/stealpool/pkg/types"
)

// failureLog is the pool-wide failure channel. It counts every failure,
// keeps the most recent ones and forwards each to the configured handler.
type failureLog struct {
	mu     sync.Mutex
	recent *queue.Queue
	limit  int

	total   atomic.Int64
	handler types.FailureHandler
	logger  *slog.Logger
}

func newFailureLog(limit int, handler types.FailureHandler, logger *slog.Logger) *failureLog {
	return &failureLog{
		recent:  queue.New(),
		limit:   limit,
		handler: handler,
		logger:  logger,
	}
}

// report records f and delivers it. Never panics.
func (l *failureLog) report(f types.TaskFailure) {
	l.total.Add(1)

	if l.limit > 0 {
		l.mu.Lock()
		l.recent.Add(f)
		for l.recent.Length() > l.limit {
			l.recent.Remove()
		}
		l.mu.Unlock()
	}

	if l.handler == nil {
		l.logger.Warn("task failed",
			"task_id", f.TaskID,
			"worker_id", f.WorkerID,
			"signature", f.Signature,
			"panic", types.IsPanic(f.Err),
			"error", f.Err)
		return
	}
	l.dispatch(f)
}

func (l *failureLog) dispatch(f types.TaskFailure) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("failure handler panicked",
				"task_id", f.TaskID,
				"worker_id", f.WorkerID,
				"panic", r)
		}
	}()
	l.handler(f)
}

// snapshot returns the retained failures oldest first
func (l *failureLog) snapshot() []types.TaskFailure {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]types.TaskFailure, l.recent.Length())
	for i := range out {
		out[i] = l.recent.Get(i).(types.TaskFailure)
	}
	return out
}

func (l *failureLog) count() int64 {
	return l.total.Load()
}
