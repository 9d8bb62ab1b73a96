package types

import (
	"testing"
	"time"
)

func TestPoolStats_Utilization(t *testing.T) {
	tests := []struct {
		name     string
		stats    PoolStats
		expected float64
	}{
		{"no workers", PoolStats{}, 0},
		{"all idle", PoolStats{Workers: 4, IdleWorkers: 4}, 0},
		{"half busy", PoolStats{Workers: 4, IdleWorkers: 2}, 0.5},
		{"all busy", PoolStats{Workers: 3, IdleWorkers: 0}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.stats.Utilization(); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestRealClock(t *testing.T) {
	clock := NewRealClock()

	start := clock.Now()
	ticker := clock.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	select {
	case <-ticker.C():
	case <-time.After(time.Second):
		t.Fatal("ticker did not fire")
	}
	if clock.Since(start) < 5*time.Millisecond {
		t.Errorf("ticker fired early")
	}
	if clock.Since(clock.Now().Add(time.Hour)) >= 0 {
		t.Errorf("expected negative elapsed time for a future instant")
	}
}

func TestFailureHandlerType(t *testing.T) {
	var got TaskFailure
	var handler FailureHandler = func(f TaskFailure) { got = f }

	handler(TaskFailure{PoolID: "p", WorkerID: 2, TaskID: 9, Signature: "func()"})

	if got.PoolID != "p" || got.WorkerID != 2 || got.TaskID != 9 {
		t.Errorf("handler received unexpected failure %+v", got)
	}
}
