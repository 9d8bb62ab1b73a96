package types

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrInvalidConfig", ErrInvalidConfig},
		{"ErrPoolClosed", ErrPoolClosed},
		{"ErrNilTask", ErrNilTask},
		{"ErrTaskConsumed", ErrTaskConsumed},
		{"ErrTaskSubmitted", ErrTaskSubmitted},
		{"ErrTaskDiscarded", ErrTaskDiscarded},
		{"ErrCapacityExhausted", ErrCapacityExhausted},
		{"ErrWorkerFloor", ErrWorkerFloor},
		{"ErrNoIdleWorker", ErrNoIdleWorker},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err == nil {
				t.Errorf("expected error, got nil")
			}
			if tt.err.Error() == "" {
				t.Errorf("expected non-empty error message")
			}
		})
	}
}

func TestConfigError(t *testing.T) {
	err := NewConfigError("MinWorkers", 0, "must be positive")

	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ConfigError to unwrap to ErrInvalidConfig")
	}

	expectedMsg := "invalid pool configuration: MinWorkers=0: must be positive"
	if err.Error() != expectedMsg {
		t.Errorf("expected message %q, got %q", expectedMsg, err.Error())
	}

	var wrapped error = fmt.Errorf("new pool: %w", err)
	var ce *ConfigError
	if !errors.As(wrapped, &ce) {
		t.Fatalf("expected errors.As to find ConfigError")
	}
	if ce.Field != "MinWorkers" {
		t.Errorf("expected field MinWorkers, got %q", ce.Field)
	}
}

func TestTaskError(t *testing.T) {
	t.Run("Without Worker", func(t *testing.T) {
		err := NewTaskError("construct", 0, ErrNilTask)

		if !errors.Is(err, ErrNilTask) {
			t.Errorf("expected TaskError to unwrap to ErrNilTask")
		}
		if err.WorkerID != -1 {
			t.Errorf("expected worker -1, got %d", err.WorkerID)
		}
		expectedMsg := "task 0 construct: task has no callable"
		if err.Error() != expectedMsg {
			t.Errorf("expected message %q, got %q", expectedMsg, err.Error())
		}
	})

	t.Run("With Worker And Context", func(t *testing.T) {
		cause := errors.New("boom")
		err := NewTaskError("invoke", 7, cause).WithWorker(3).WithContext("signature", "func()")

		if err.Cause != cause {
			t.Errorf("expected cause to be original error")
		}
		if err.Context["signature"] != "func()" {
			t.Errorf("expected context value, got %v", err.Context["signature"])
		}
		expectedMsg := "task 7 invoke on worker 3: boom"
		if err.Error() != expectedMsg {
			t.Errorf("expected message %q, got %q", expectedMsg, err.Error())
		}
	})
}

func TestPanicError(t *testing.T) {
	t.Run("String Value", func(t *testing.T) {
		err := &PanicError{Value: "kaboom", Stack: "goroutine 1 [running]:"}

		if !IsPanic(err) {
			t.Errorf("expected IsPanic to be true")
		}
		if errors.Unwrap(err) != nil {
			t.Errorf("expected nil unwrap for non-error panic value")
		}
		if !strings.Contains(err.Error(), "kaboom") {
			t.Errorf("expected message to contain panic value, got %q", err.Error())
		}
	})

	t.Run("Error Value", func(t *testing.T) {
		cause := errors.New("inner")
		err := fmt.Errorf("wrapped: %w", &PanicError{Value: cause})

		if !IsPanic(err) {
			t.Errorf("expected IsPanic through wrapping")
		}
		if !errors.Is(err, cause) {
			t.Errorf("expected errors.Is to reach the panic value")
		}
	})

	t.Run("Plain Error", func(t *testing.T) {
		if IsPanic(errors.New("plain")) {
			t.Errorf("expected IsPanic to be false")
		}
	})
}
