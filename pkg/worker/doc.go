/*
Package worker provides a heterogeneous work-stealing worker pool.

# Overview

The pool accepts tasks of four fixed callable shapes, spreads them over a
set of worker goroutines whose size floats between MinWorkers and
MaxWorkers, and lets idle workers steal from busy ones:
- Tagged-union tasks, no reflection on the hot path
- Per-worker Chase-Lev deques, LIFO for the owner and FIFO for thieves
- Dynamic worker count driven by a backlog/idleness control loop
- Panic recovery and a pool-wide failure channel
- Drain or discard shutdown

# Core Components

## Task

A Task holds exactly one of func(), func() error, func(context.Context) or
func(context.Context) error. It runs at most once, and exactly once unless
a discarding shutdown drops it while queued. A single completion callback
may be attached with OnComplete.

## Deque

Each worker owns a Deque. The owner pushes and pops at the bottom; any other
worker steals from the top with a compare-and-swap. When the owner and a
thief race for the last task, exactly one of them gets it.

## Worker

A worker pops its own deque until empty, then makes a bounded number of
steal passes over its peers from a random offset, then parks until it is
signaled. Task contexts identify the worker, so tasks submitted from inside
a task land on the submitting worker's deque.

## Pool

The pool owns the workers, enforces the worker bounds, places external
submissions on the least-loaded worker and moves the residue of retired
workers to live peers.

# Usage Examples

Basic usage:

	pool, err := worker.New(&worker.Config{MinWorkers: 2, MaxWorkers: 8})
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Shutdown()

	ctx := context.Background()
	if err := worker.Enqueue(ctx, pool, func() { fmt.Println("hello") }); err != nil {
		log.Printf("Failed to submit task: %v", err)
	}

Waiting for a result:

	h, err := worker.Spawn(ctx, pool, func(ctx context.Context) error {
		return process(ctx)
	})
	if err == nil {
		err = h.Wait(ctx)
	}

Failure reporting:

	cfg := worker.DefaultConfig()
	cfg.FailureHandler = func(f types.TaskFailure) {
		log.Printf("pool %s: %v", f.PoolID, f.Err)
	}

# Shutdown

Shutdown applies Config.ShutdownPolicy. With ShutdownDrain every accepted
task runs before the workers stop; with ShutdownDiscard, or ShutdownNow,
queued tasks are dropped and their completion callbacks receive
types.ErrTaskDiscarded. In-flight tasks always run to completion. Both are
idempotent and block until every worker has exited.
*/
package worker
