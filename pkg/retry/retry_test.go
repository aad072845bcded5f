package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig(maxAttempts int) *Config {
	return &Config{
		MaxAttempts: maxAttempts,
		Backoff:     Linear(time.Millisecond),
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MaxAttempts != 3 {
		t.Errorf("expected MaxAttempts=3, got %d", cfg.MaxAttempts)
	}
	if got := cfg.Backoff(1); got != 250*time.Millisecond {
		t.Errorf("expected first backoff=250ms, got %v", got)
	}
	if got := cfg.Backoff(2); got != 500*time.Millisecond {
		t.Errorf("expected second backoff=500ms, got %v", got)
	}
}

func TestLinear(t *testing.T) {
	b := Linear(100 * time.Millisecond)
	for attempt, want := range map[int]time.Duration{
		1: 100 * time.Millisecond,
		2: 200 * time.Millisecond,
		3: 300 * time.Millisecond,
	} {
		if got := b(attempt); got != want {
			t.Errorf("Linear backoff attempt %d = %v, want %v", attempt, got, want)
		}
	}
}

func TestExponential(t *testing.T) {
	b := Exponential(100*time.Millisecond, time.Second)
	for attempt, want := range map[int]time.Duration{
		1: 100 * time.Millisecond,
		2: 200 * time.Millisecond,
		3: 400 * time.Millisecond,
		5: time.Second, // capped
	} {
		if got := b(attempt); got != want {
			t.Errorf("Exponential backoff attempt %d = %v, want %v", attempt, got, want)
		}
	}
}

func TestDoIfRetryable_Success(t *testing.T) {
	callCount := 0
	err := DoIfRetryable(context.Background(), fastConfig(3), func() error {
		callCount++
		return nil
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
}

func TestDoIfRetryable_SuccessAfterRetries(t *testing.T) {
	callCount := 0
	err := DoIfRetryable(context.Background(), fastConfig(3), func() error {
		callCount++
		if callCount < 3 {
			return errors.New("connection reset")
		}
		return nil
	})

	if err != nil {
		t.Errorf("expected no error after retries, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
}

func TestDoIfRetryable_AttemptsExhausted(t *testing.T) {
	wantErr := errors.New("connection refused")
	callCount := 0
	err := DoIfRetryable(context.Background(), fastConfig(3), func() error {
		callCount++
		return wantErr
	})

	if !errors.Is(err, wantErr) {
		t.Errorf("expected last error, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
}

func TestDoIfRetryable_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := &Config{
		MaxAttempts: 5,
		Backoff:     Linear(time.Hour), // would hang without cancellation
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := DoIfRetryable(ctx, cfg, func() error {
		return errors.New("timeout")
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestDoWithResult(t *testing.T) {
	callCount := 0
	got, err := DoWithResult(context.Background(), fastConfig(3), func() (int, error) {
		callCount++
		if callCount < 2 {
			return 0, errors.New("i/o timeout")
		}
		return 42, nil
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
}

func TestDoWithResult_AttemptsExhausted(t *testing.T) {
	wantErr := errors.New("connection timed out")
	callCount := 0
	_, err := DoWithResult(context.Background(), fastConfig(3), func() (int, error) {
		callCount++
		return 0, wantErr
	})

	if !errors.Is(err, wantErr) {
		t.Errorf("expected last error, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
}

func TestDoIfRetryable_PermanentError(t *testing.T) {
	wantErr := errors.New(`syntax error at or near "SELEC"`)
	callCount := 0
	err := DoIfRetryable(context.Background(), fastConfig(3), func() error {
		callCount++
		return wantErr
	})

	if !errors.Is(err, wantErr) {
		t.Errorf("expected permanent error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("permanent error should not be retried, got %d calls", callCount)
	}
}

type explicitRetryable struct {
	retryable bool
}

func (e *explicitRetryable) Error() string     { return "explicit" }
func (e *explicitRetryable) IsRetryable() bool { return e.retryable }

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"too many clients", errors.New("FATAL: sorry, too many clients already"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"bad sql", errors.New(`relation "produtos" does not exist`), false},
		{"auth failure", errors.New("password authentication failed"), false},
		{"explicit retryable", &explicitRetryable{retryable: true}, true},
		{"explicit permanent", &explicitRetryable{retryable: false}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
