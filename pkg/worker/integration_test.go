package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/jzx17/stealpool/internal/testutils"
	"github.com/jzx17/stealpool/pkg/types"
)

// TestPool_ConcurrentProducers submits from many goroutines at once
func TestPool_ConcurrentProducers(t *testing.T) {
	pool := newTestPool(t, 2, 4)

	const (
		producers   = 8
		perProducer = 125
	)

	var counter atomic.Int64
	var g errgroup.Group
	for p := 0; p < producers; p++ {
		g.Go(func() error {
			for i := 0; i < perProducer; i++ {
				if err := Enqueue(context.Background(), pool, func() { counter.Add(1) }); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	pool.Shutdown()
	assert.Equal(t, int64(producers*perProducer), counter.Load())
	assert.Equal(t, int64(producers*perProducer), pool.Stats().Executed)
}

// TestPool_ExactlyOnce mixes every callable shape with nested submissions
// and checks that each task body runs exactly once
func TestPool_ExactlyOnce(t *testing.T) {
	pool := newTestPool(t, 3, 3)
	marks := testutils.NewMarks()
	ctx := context.Background()

	const (
		parents  = 200
		children = 4
	)
	total := parents * (children + 1)

	for i := 0; i < parents; i++ {
		key := i * (children + 1)
		var err error
		switch i % 4 {
		case 0:
			err = Enqueue(ctx, pool, func() { marks.Hit(key) })
			for c := 1; c <= children; c++ {
				require.NoError(t, Enqueue(ctx, pool, Bind(marks.Hit, key+c)))
			}
		case 1:
			err = Enqueue(ctx, pool, func() error {
				marks.Hit(key)
				for c := 1; c <= children; c++ {
					if err := Enqueue(ctx, pool, Bind(marks.Hit, key+c)); err != nil {
						return err
					}
				}
				return nil
			})
		case 2:
			err = Enqueue(ctx, pool, func(ctx context.Context) {
				marks.Hit(key)
				for c := 1; c <= children; c++ {
					_ = Enqueue(ctx, pool, Bind(marks.Hit, key+c))
				}
			})
		default:
			err = Enqueue(ctx, pool, func(ctx context.Context) error {
				marks.Hit(key)
				for c := 1; c <= children; c++ {
					c := c
					if err := Enqueue(ctx, pool, func(ctx context.Context) error {
						marks.Hit(key + c)
						return nil
					}); err != nil {
						return err
					}
				}
				return nil
			})
		}
		require.NoError(t, err)
	}

	pool.Wait()

	marks.RequireExactlyOnce(t, total)
	stats := pool.Stats()
	assert.Equal(t, int64(total), stats.Submitted)
	assert.Equal(t, int64(total), stats.Executed)
	assert.Equal(t, int64(0), stats.Failed)
}

// TestPool_RecursiveFanOut spawns a binary tree of tasks from inside tasks
func TestPool_RecursiveFanOut(t *testing.T) {
	pool := newTestPool(t, 4, 4)

	const depth = 10
	var leaves atomic.Int64

	var spawn func(ctx context.Context, level int) error
	spawn = func(ctx context.Context, level int) error {
		if level == depth {
			leaves.Add(1)
			return nil
		}
		for i := 0; i < 2; i++ {
			if err := Enqueue(ctx, pool, func(ctx context.Context) error {
				return spawn(ctx, level+1)
			}); err != nil {
				return err
			}
		}
		return nil
	}

	require.NoError(t, Enqueue(context.Background(), pool, func(ctx context.Context) error {
		return spawn(ctx, 0)
	}))
	pool.Wait()

	assert.Equal(t, int64(1<<depth), leaves.Load())
	assert.Equal(t, int64(0), pool.Stats().Failed)
	assert.Greater(t, pool.Stats().Stolen, int64(0))
}

// TestPool_BurstScaling floods the pool and checks it grows to MaxWorkers,
// never leaves its bounds, and settles back at MinWorkers
func TestPool_BurstScaling(t *testing.T) {
	pool := newTestPool(t, 2, 4, func(c *Config) {
		c.Scaling = ScalingConfig{
			Interval:         2 * time.Millisecond,
			BacklogPerWorker: 2,
			ScaleUpAfter:     0,
			ScaleDownAfter:   30 * time.Millisecond,
		}
	})
	ctx := context.Background()

	monitorCtx, stopMonitor := context.WithCancel(ctx)
	var outOfBounds atomic.Int64
	monitorDone := make(chan struct{})
	go func() {
		defer close(monitorDone)
		for monitorCtx.Err() == nil {
			if n := pool.Size(); n < 2 || n > 4 {
				outOfBounds.Store(int64(n))
			}
			time.Sleep(100 * time.Microsecond)
		}
	}()

	const numTasks = 10000
	var counter atomic.Int64
	for i := 0; i < numTasks; i++ {
		require.NoError(t, Enqueue(ctx, pool, func() {
			time.Sleep(50 * time.Microsecond)
			counter.Add(1)
		}))
	}

	pool.Wait()
	assert.Equal(t, int64(numTasks), counter.Load())
	assert.Equal(t, 4, pool.PeakWorkers())

	require.Eventually(t, func() bool {
		return pool.Size() == 2
	}, 5*time.Second, 5*time.Millisecond)

	stopMonitor()
	<-monitorDone
	assert.Zero(t, outOfBounds.Load(), "worker count left its bounds")
}

// TestPool_MixedFailures keeps running under a steady mix of panics and errors
func TestPool_MixedFailures(t *testing.T) {
	recorder := testutils.NewFailureRecorder()
	pool := newTestPool(t, 2, 4, func(c *Config) {
		c.FailureHandler = recorder.Handler()
	})
	ctx := context.Background()

	const numTasks = 300
	var succeeded atomic.Int64
	for i := 0; i < numTasks; i++ {
		switch i % 3 {
		case 0:
			require.NoError(t, Enqueue(ctx, pool, func() { panic("unstable") }))
		case 1:
			require.NoError(t, Enqueue(ctx, pool, func() error { return errors.New("unlucky") }))
		default:
			require.NoError(t, Enqueue(ctx, pool, func() { succeeded.Add(1) }))
		}
	}
	pool.Wait()

	assert.Equal(t, int64(numTasks/3), succeeded.Load())
	recorder.RequireCount(t, 2*numTasks/3, time.Second)

	panics := 0
	for _, f := range recorder.Failures() {
		if types.IsPanic(f.Err) {
			panics++
		}
	}
	assert.Equal(t, numTasks/3, panics)
	assert.Equal(t, int64(2*numTasks/3), pool.Stats().Failed)
	assert.Equal(t, 2, pool.Size())
}

func BenchmarkPool_Submit(b *testing.B) {
	cfg := DefaultConfig()
	cfg.Scaling.Interval = 0
	pool, err := New(cfg)
	require.NoError(b, err)
	defer pool.Shutdown()

	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := Enqueue(ctx, pool, func() {}); err != nil {
			b.Fatal(err)
		}
	}
	pool.Wait()
}

func BenchmarkPool_FanOut(b *testing.B) {
	cfg := DefaultConfig()
	cfg.MaxWorkers = 0
	cfg.MinWorkers = 4
	cfg.Scaling.Interval = 0
	pool, err := New(cfg)
	require.NoError(b, err)
	defer pool.Shutdown()

	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		err := Enqueue(ctx, pool, func(ctx context.Context) error {
			for j := 0; j < 64; j++ {
				if err := Enqueue(ctx, pool, func() {}); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			b.Fatal(err)
		}
		pool.Wait()
	}
}
