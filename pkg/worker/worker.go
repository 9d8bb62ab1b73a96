package worker

import (
	"context"
	"math/rand/v2"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// WorkerState defines the state of a Worker
type WorkerState int32

const (
	// WorkerStateRunning represents a worker executing a task
	WorkerStateRunning WorkerState = iota
	// WorkerStateIdle represents a worker looking for work or parked
	WorkerStateIdle
	// WorkerStateStopping represents a worker draining its deque before exit
	WorkerStateStopping
	// WorkerStateStopped represents an exited worker
	WorkerStateStopped
)

// String returns the string representation of WorkerState
func (ws WorkerState) String() string {
	switch ws {
	case WorkerStateRunning:
		return "running"
	case WorkerStateIdle:
		return "idle"
	case WorkerStateStopping:
		return "stopping"
	case WorkerStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Worker is a single goroutine bound to one Deque. It runs the
// execute-or-steal loop until the pool retires it.
type Worker struct {
	id    int
	pool  *Pool // back reference, the pool owns the worker
	deque *Deque
	state atomic.Int32

	wake     chan struct{}
	quit     chan struct{}
	done     chan struct{}
	quitOnce sync.Once

	// statistics
	executed   atomic.Int64
	failed     atomic.Int64
	stolen     atomic.Int64
	lastActive atomic.Int64 // Unix nanosecond timestamp
}

func newWorker(id int, pool *Pool) *Worker {
	w := &Worker{
		id:    id,
		pool:  pool,
		deque: NewDeque(pool.cfg.DequeCapacity),
		wake:  make(chan struct{}, 1),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	w.state.Store(int32(WorkerStateIdle))
	w.lastActive.Store(pool.clock.Now().UnixNano())
	return w
}

// ID returns the Worker ID
func (w *Worker) ID() int {
	return w.id
}

// State returns the current Worker state
func (w *Worker) State() WorkerState {
	return WorkerState(w.state.Load())
}

func (w *Worker) setState(s WorkerState) {
	w.state.Store(int32(s))
}

// signal wakes the worker if it is parked
func (w *Worker) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// stop asks the worker to retire
func (w *Worker) stop() {
	w.quitOnce.Do(func() {
		close(w.quit)
	})
}

func (w *Worker) stopping() bool {
	select {
	case <-w.quit:
		return true
	default:
		return false
	}
}

// run is the worker main loop
func (w *Worker) run() {
	defer close(w.done)
	ctx := contextWithWorker(w.pool.ctx, w)

	for {
		if w.stopping() {
			w.retire(ctx)
			return
		}

		if t := w.deque.PopOwner(); t != nil {
			w.setState(WorkerStateRunning)
			w.execute(ctx, t)
			continue
		}

		w.setState(WorkerStateIdle)
		if t := w.steal(); t != nil {
			w.setState(WorkerStateRunning)
			w.execute(ctx, t)
			continue
		}

		w.park()
	}
}

// park blocks until the worker is signaled or asked to stop
func (w *Worker) park() {
	select {
	case <-w.wake:
	case <-w.quit:
	}
}

// steal makes up to StealRounds passes over the live peers, starting at a
// random offset, and takes the oldest task of the first non-empty deque
func (w *Worker) steal() *Task {
	peers := w.pool.live()
	n := len(peers)
	if n == 0 || (n == 1 && peers[0] == w) {
		return nil
	}

	for round := 0; round < w.pool.cfg.StealRounds; round++ {
		if round > 0 {
			runtime.Gosched()
		}
		start := rand.IntN(n)
		for i := 0; i < n; i++ {
			if w.stopping() {
				return nil
			}
			victim := peers[(start+i)%n]
			if victim == w {
				continue
			}
			if t := victim.deque.Steal(); t != nil {
				w.stolen.Add(1)
				w.pool.stolen.Add(1)
				if victim.deque.Len() > 0 {
					w.pool.wakeIdle(w)
				}
				return t
			}
		}
	}
	return nil
}

// execute runs one task and reports its outcome
func (w *Worker) execute(ctx context.Context, t *Task) {
	err := t.Invoke(ctx)
	w.lastActive.Store(w.pool.clock.Now().UnixNano())
	w.executed.Add(1)
	if err != nil {
		w.failed.Add(1)
		w.pool.failures.report(w.pool.failure(w, t, err))
	}
	w.pool.executed.Add(1)
	w.pool.finish()
}

// retire drains the deque and hands the residue back to the pool
func (w *Worker) retire(ctx context.Context) {
	w.setState(WorkerStateStopping)
	if tasks := w.deque.Drain(); len(tasks) > 0 {
		w.pool.rehome(ctx, w, tasks)
	}
	w.setState(WorkerStateStopped)
}

// idleFor returns how long the worker has been idle, zero if it is not
func (w *Worker) idleFor() time.Duration {
	if w.State() != WorkerStateIdle {
		return 0
	}
	d := w.pool.clock.Since(time.Unix(0, w.lastActive.Load()))
	if d < 0 {
		return 0
	}
	return d
}

// Stats gets Worker statistics
func (w *Worker) Stats() WorkerStats {
	return WorkerStats{
		ID:            w.id,
		State:         w.State(),
		Queued:        w.deque.Len(),
		TotalExecuted: w.executed.Load(),
		TotalFailed:   w.failed.Load(),
		TotalStolen:   w.stolen.Load(),
		LastActive:    time.Unix(0, w.lastActive.Load()),
	}
}

// WorkerStats defines Worker statistics
type WorkerStats struct {
	ID            int
	State         WorkerState
	Queued        int
	TotalExecuted int64
	TotalFailed   int64
	TotalStolen   int64
	LastActive    time.Time
}

// IsActive checks if Worker is executing a task
func (ws WorkerStats) IsActive() bool {
	return ws.State == WorkerStateRunning
}

// IsIdle checks if Worker is idle
func (ws WorkerStats) IsIdle() bool {
	return ws.State == WorkerStateIdle
}

// GetSuccessRate gets the success rate
func (ws WorkerStats) GetSuccessRate() float64 {
	if ws.TotalExecuted == 0 {
		return 0
	}
	return float64(ws.TotalExecuted-ws.TotalFailed) / float64(ws.TotalExecuted)
}

// GetErrorRate gets the error rate
func (ws WorkerStats) GetErrorRate() float64 {
	if ws.TotalExecuted == 0 {
		return 0
	}
	return float64(ws.TotalFailed) / float64(ws.TotalExecuted)
}
