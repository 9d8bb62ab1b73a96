package testutils

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jzx17/stealpool/pkg/types"
)

// FailureRecorder collects reports from a pool failure channel
type FailureRecorder struct {
	mu       sync.Mutex
	failures []types.TaskFailure
}

// NewFailureRecorder creates an empty recorder
func NewFailureRecorder() *FailureRecorder {
	return &FailureRecorder{}
}

// Handler returns the types.FailureHandler feeding the recorder
func (r *FailureRecorder) Handler() types.FailureHandler {
	return func(f types.TaskFailure) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.failures = append(r.failures, f)
	}
}

// Count returns the number of recorded failures
func (r *FailureRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.failures)
}

// Failures returns a copy of the recorded failures
func (r *FailureRecorder) Failures() []types.TaskFailure {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.TaskFailure, len(r.failures))
	copy(out, r.failures)
	return out
}

// RequireCount waits up to timeout for exactly n failures to be recorded
func (r *FailureRecorder) RequireCount(t testing.TB, n int, timeout time.Duration) {
	t.Helper()
	require.Eventually(t, func() bool { return r.Count() >= n }, timeout, time.Millisecond)
	assert.Equal(t, n, r.Count())
}

// Marks records how many times each integer key was hit, for checking
// exactly-once execution
type Marks struct {
	mu   sync.Mutex
	hits map[int]int
}

// NewMarks creates an empty mark set
func NewMarks() *Marks {
	return &Marks{hits: make(map[int]int)}
}

// Hit records one execution of key
func (m *Marks) Hit(key int) {
	m.mu.Lock()
	m.hits[key]++
	m.mu.Unlock()
}

// RequireExactlyOnce asserts that keys [0, n) were each hit exactly once
func (m *Marks) RequireExactlyOnce(t testing.TB, n int) {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()

	require.Len(t, m.hits, n, "distinct keys executed")
	for key := 0; key < n; key++ {
		require.Equal(t, 1, m.hits[key], "key %d executed %d times", key, m.hits[key])
	}
}
