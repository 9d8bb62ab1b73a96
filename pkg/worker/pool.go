package worker

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jzx17/stealpool/pkg/types"
)

const (
	poolStateRunning int32 = iota + 1
	poolStateClosing
	poolStateClosed
)

// Pool is a work-stealing worker pool whose worker count floats between
// MinWorkers and MaxWorkers.
type Pool struct {
	id     string
	cfg    Config
	clock  types.Clock
	logger *slog.Logger

	// ctx is the parent of every task context
	ctx    context.Context
	cancel context.CancelFunc

	// mu guards workers; peers is its lock-free published copy
	mu           sync.Mutex
	workers      []*Worker
	peers        atomic.Pointer[[]*Worker]
	nextWorkerID atomic.Int64
	peakWorkers  atomic.Int64

	// submitMu orders Submit against the start of shutdown
	submitMu     sync.RWMutex
	state        atomic.Int32
	discarding   atomic.Bool
	shutdownOnce sync.Once
	shutdownErr  error

	rr atomic.Uint64

	pending  atomic.Int64
	idleMu   sync.Mutex
	idleCond *sync.Cond

	submitted atomic.Int64
	executed  atomic.Int64
	stolen    atomic.Int64
	discarded atomic.Int64

	failures *failureLog
	scaler   *scaler
}

// New creates a pool and starts MinWorkers workers
func New(config *Config) (*Pool, error) {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	p := &Pool{
		id:    uuid.NewString(),
		cfg:   cfg,
		clock: cfg.Clock,
	}
	p.logger = cfg.Logger.With("component", "stealpool", "pool_id", p.id)
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.idleCond = sync.NewCond(&p.idleMu)
	p.failures = newFailureLog(cfg.FailureHistory, cfg.FailureHandler, p.logger)
	p.state.Store(poolStateRunning)

	p.mu.Lock()
	for i := 0; i < cfg.MinWorkers; i++ {
		p.spawnLocked()
	}
	p.mu.Unlock()

	p.scaler = newScaler(p, cfg.Scaling)
	p.scaler.start()

	p.logger.Debug("pool started",
		"min_workers", cfg.MinWorkers,
		"max_workers", cfg.MaxWorkers,
		"shutdown_policy", string(cfg.ShutdownPolicy))
	return p, nil
}

// spawnLocked starts one worker; p.mu must be held
func (p *Pool) spawnLocked() *Worker {
	w := newWorker(int(p.nextWorkerID.Add(1)-1), p)
	p.workers = append(p.workers, w)
	p.publishLocked()
	if n := int64(len(p.workers)); n > p.peakWorkers.Load() {
		p.peakWorkers.Store(n)
	}
	go w.run()
	return w
}

// publishLocked refreshes the lock-free worker snapshot; p.mu must be held
func (p *Pool) publishLocked() {
	live := slices.Clone(p.workers)
	p.peers.Store(&live)
}

// live returns the current worker snapshot
func (p *Pool) live() []*Worker {
	if live := p.peers.Load(); live != nil {
		return *live
	}
	return nil
}

// CreateThread adds one worker. It returns ErrCapacityExhausted when the
// pool already runs MaxWorkers workers.
func (p *Pool) CreateThread() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state.Load() != poolStateRunning {
		return types.ErrPoolClosed
	}
	if len(p.workers) >= p.cfg.MaxWorkers {
		p.logger.Debug("worker capacity exhausted", "workers", len(p.workers))
		return types.ErrCapacityExhausted
	}

	w := p.spawnLocked()
	p.logger.Debug("worker created", "worker_id", w.id, "workers", len(p.workers))
	return nil
}

// DestroyThread retires the longest-idle worker and waits for it to exit.
// Its queued tasks move to the remaining workers.
func (p *Pool) DestroyThread() error {
	p.mu.Lock()
	if p.state.Load() != poolStateRunning {
		p.mu.Unlock()
		return types.ErrPoolClosed
	}
	if len(p.workers) <= p.cfg.MinWorkers {
		p.mu.Unlock()
		return types.ErrWorkerFloor
	}

	idx := p.idlestLocked()
	if idx < 0 {
		p.mu.Unlock()
		return types.ErrNoIdleWorker
	}
	w := p.workers[idx]
	p.workers = slices.Delete(p.workers, idx, idx+1)
	p.publishLocked()
	remaining := len(p.workers)
	p.mu.Unlock()

	w.stop()
	<-w.done
	p.logger.Debug("worker destroyed", "worker_id", w.id, "workers", remaining)
	return nil
}

// idlestLocked returns the index of the idle worker with the oldest
// activity, or -1; p.mu must be held
func (p *Pool) idlestLocked() int {
	idx := -1
	var oldest int64
	for i, w := range p.workers {
		if w.State() != WorkerStateIdle {
			continue
		}
		if last := w.lastActive.Load(); idx < 0 || last < oldest {
			idx, oldest = i, last
		}
	}
	return idx
}

// Submit hands t to the pool. When ctx is a task context of one of this
// pool's workers, t goes to that worker's own deque; otherwise to the
// least-loaded worker.
func (p *Pool) Submit(ctx context.Context, t *Task) error {
	if t == nil {
		return types.NewTaskError("submit", 0, types.ErrNilTask)
	}

	p.submitMu.RLock()
	defer p.submitMu.RUnlock()

	if p.state.Load() != poolStateRunning {
		return types.ErrPoolClosed
	}
	if !t.submitted.CompareAndSwap(false, true) {
		return types.NewTaskError("submit", t.id, types.ErrTaskSubmitted)
	}

	p.pending.Add(1)
	p.submitted.Add(1)

	if w := workerFromContext(ctx); w != nil && w.pool == p && w.deque.PushOwner(t) {
		p.wakeIdle(w)
		return nil
	}
	if !p.place(t, nil) {
		// unreachable while running: the live set never drops below MinWorkers
		p.finish()
		return types.ErrPoolClosed
	}
	return nil
}

// place pushes t onto the least-loaded live worker other than exclude.
// It returns false when no such worker exists.
func (p *Pool) place(t *Task, exclude *Worker) bool {
	for {
		w := p.leastLoaded(exclude)
		if w == nil {
			return false
		}
		if w.deque.PushOwner(t) {
			// w may be about to start a long task; give a peer the chance to steal
			w.signal()
			p.wakeIdle(w)
			return true
		}
		// w is retiring and will drop out of the next snapshot
		runtime.Gosched()
	}
}

func (p *Pool) leastLoaded(exclude *Worker) *Worker {
	live := p.live()
	n := len(live)
	if n == 0 {
		return nil
	}

	start := int(p.rr.Add(1) % uint64(n))
	var best *Worker
	bestLen := 0
	for i := 0; i < n; i++ {
		w := live[(start+i)%n]
		if w == exclude {
			continue
		}
		l := w.deque.Len()
		if best == nil || l < bestLen {
			best, bestLen = w, l
			if l == 0 {
				break
			}
		}
	}
	return best
}

// wakeIdle signals one idle worker other than except
func (p *Pool) wakeIdle(except *Worker) {
	live := p.live()
	n := len(live)
	if n == 0 {
		return
	}

	start := int(p.rr.Add(1) % uint64(n))
	for i := 0; i < n; i++ {
		w := live[(start+i)%n]
		if w != except && w.State() == WorkerStateIdle {
			w.signal()
			return
		}
	}
}

// wakeAllIdle signals every idle worker
func (p *Pool) wakeAllIdle() {
	for _, w := range p.live() {
		if w.State() == WorkerStateIdle {
			w.signal()
		}
	}
}

// rehome takes the residue of a retiring worker. Tasks are dropped when
// discarding, otherwise moved to a live peer, or run by the retiring worker
// itself if none is left.
func (p *Pool) rehome(ctx context.Context, from *Worker, tasks []*Task) {
	if p.discarding.Load() {
		for _, t := range tasks {
			p.drop(t)
		}
		p.logger.Debug("discarded queued tasks", "worker_id", from.id, "tasks", len(tasks))
		return
	}

	moved := 0
	for _, t := range tasks {
		if p.place(t, from) {
			moved++
			continue
		}
		from.execute(ctx, t)
	}
	p.logger.Debug("migrated queued tasks", "worker_id", from.id, "moved", moved, "ran", len(tasks)-moved)
}

func (p *Pool) drop(t *Task) {
	t.discard()
	p.discarded.Add(1)
	p.finish()
}

// finish marks one accepted task as done
func (p *Pool) finish() {
	if p.pending.Add(-1) == 0 {
		p.idleMu.Lock()
		p.idleCond.Broadcast()
		p.idleMu.Unlock()
	}
}

func (p *Pool) failure(w *Worker, t *Task, err error) types.TaskFailure {
	sig := t.sig.String()
	return types.TaskFailure{
		PoolID:    p.id,
		WorkerID:  w.id,
		TaskID:    t.id,
		Signature: sig,
		Err: types.NewTaskError("execute", t.id, err).
			WithWorker(w.id).
			WithContext("signature", sig),
		Time: p.clock.Now(),
	}
}

// Wait blocks until every accepted task has finished. Calling it from a
// task of the same pool deadlocks.
func (p *Pool) Wait() {
	p.idleMu.Lock()
	defer p.idleMu.Unlock()
	for p.pending.Load() > 0 {
		p.idleCond.Wait()
	}
}

// waitDrained is Wait for a draining shutdown; it gives up once ShutdownNow
// switches the pool to discarding
func (p *Pool) waitDrained() {
	p.idleMu.Lock()
	defer p.idleMu.Unlock()
	for p.pending.Load() > 0 && !p.discarding.Load() {
		p.idleCond.Wait()
	}
}

// Shutdown stops accepting tasks, applies the configured ShutdownPolicy and
// joins every worker. Later calls are no-ops.
func (p *Pool) Shutdown() {
	p.shutdown(p.cfg.ShutdownPolicy == ShutdownDiscard)
}

// ShutdownNow is Shutdown with the discard policy: queued tasks are
// dropped, in-flight tasks still finish. Called while a draining Shutdown
// is in progress, it turns that drain into a discard and returns once the
// shutdown completes.
func (p *Pool) ShutdownNow() {
	if !p.discarding.Swap(true) {
		p.idleMu.Lock()
		p.idleCond.Broadcast()
		p.idleMu.Unlock()
	}
	p.shutdown(true)
}

// Close implements io.Closer. It returns an error wrapping
// types.ErrJoinTimeout if a worker outlived Config.JoinTimeout.
func (p *Pool) Close() error {
	p.Shutdown()
	return p.shutdownErr
}

func (p *Pool) shutdown(discard bool) {
	p.shutdownOnce.Do(func() {
		p.submitMu.Lock()
		p.state.Store(poolStateClosing)
		p.submitMu.Unlock()

		p.scaler.stop()

		if discard {
			p.discarding.Store(true)
		} else {
			p.waitDrained()
		}

		p.mu.Lock()
		workers := p.workers
		p.workers = nil
		p.publishLocked()
		p.mu.Unlock()

		var g errgroup.Group
		for _, w := range workers {
			g.Go(func() error {
				return p.join(w)
			})
		}
		if err := g.Wait(); err != nil {
			p.shutdownErr = err
			p.logger.Error("workers exceeded join timeout", "error", err)
		}

		p.cancel()
		p.state.Store(poolStateClosed)
		p.logger.Info("pool shut down",
			"executed", p.executed.Load(),
			"discarded", p.discarded.Load(),
			"failed", p.failures.count())
	})
}

// join stops w and waits for its goroutine to exit. A worker still running
// after JoinTimeout is logged and still waited for; the overrun is reported
// as the returned error.
func (p *Pool) join(w *Worker) error {
	w.stop()
	if p.cfg.JoinTimeout <= 0 {
		<-w.done
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.JoinTimeout)
	defer cancel()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
	}

	p.logger.Warn("worker slow to exit", "worker_id", w.id, "timeout", p.cfg.JoinTimeout)
	<-w.done
	return fmt.Errorf("worker %d: %w after %v", w.id, types.ErrJoinTimeout, p.cfg.JoinTimeout)
}

// ID returns the unique pool identifier
func (p *Pool) ID() string {
	return p.id
}

// Size returns the number of live workers
func (p *Pool) Size() int {
	return len(p.live())
}

// MinWorkers returns the minimum number of workers
func (p *Pool) MinWorkers() int {
	return p.cfg.MinWorkers
}

// MaxWorkers returns the maximum number of workers
func (p *Pool) MaxWorkers() int {
	return p.cfg.MaxWorkers
}

// PeakWorkers returns the highest worker count reached so far
func (p *Pool) PeakWorkers() int {
	return int(p.peakWorkers.Load())
}

// IsRunning checks if the pool accepts tasks
func (p *Pool) IsRunning() bool {
	return p.state.Load() == poolStateRunning
}

// IsClosed checks if shutdown has completed
func (p *Pool) IsClosed() bool {
	return p.state.Load() == poolStateClosed
}

// Failures returns the most recent task failures, oldest first
func (p *Pool) Failures() []types.TaskFailure {
	return p.failures.snapshot()
}

// Stats returns pool statistics
func (p *Pool) Stats() types.PoolStats {
	live := p.live()
	stats := types.PoolStats{
		Workers:    len(live),
		MinWorkers: p.cfg.MinWorkers,
		MaxWorkers: p.cfg.MaxWorkers,
		Pending:    p.pending.Load(),
		Submitted:  p.submitted.Load(),
		Executed:   p.executed.Load(),
		Stolen:     p.stolen.Load(),
		Failed:     p.failures.count(),
		Discarded:  p.discarded.Load(),
	}
	for _, w := range live {
		stats.Queued += w.deque.Len()
		if w.State() == WorkerStateIdle {
			stats.IdleWorkers++
		}
	}
	return stats
}

// WorkerStats returns statistics for all live workers
func (p *Pool) WorkerStats() []WorkerStats {
	live := p.live()
	stats := make([]WorkerStats, len(live))
	for i, w := range live {
		stats[i] = w.Stats()
	}
	return stats
}

var _ types.WorkStealingPool[*Task] = (*Pool)(nil)
