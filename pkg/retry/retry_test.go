package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig() *Config {
	return &Config{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDo_SucceedsAfterRetries(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastConfig(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("timeout")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestDo_ExhaustsRetries(t *testing.T) {
	attempts := 0
	wantErr := errors.New("connection refused")
	err := Do(context.Background(), fastConfig(), func() error {
		attempts++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected last error, got %v", err)
	}
	if attempts != 4 { // initial attempt + 3 retries
		t.Errorf("expected 4 attempts, got %d", attempts)
	}
}

func TestDoIfRetryable_PermanentErrorStopsImmediately(t *testing.T) {
	attempts := 0
	err := DoIfRetryable(context.Background(), fastConfig(), func() error {
		attempts++
		return errors.New("invalid api key")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt for permanent error, got %d", attempts)
	}
}

func TestDo_RespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Do(ctx, &Config{MaxRetries: 2, InitialDelay: time.Minute, MaxDelay: time.Minute, Multiplier: 1}, func() error {
		return errors.New("timeout")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

type explicitErr struct{ retryable bool }

func (e explicitErr) Error() string     { return "explicit" }
func (e explicitErr) IsRetryable() bool { return e.retryable }

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"timeout string", errors.New("request timed out"), true},
		{"rate limit", errors.New("429 too many requests"), true},
		{"auth failure", errors.New("401 unauthorized"), false},
		{"explicit retryable", explicitErr{true}, true},
		{"explicit permanent", explicitErr{false}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDoWithResultIfRetryable_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	result, err := DoWithResultIfRetryable(context.Background(), fastConfig(), func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", errors.New("503 service unavailable")
		}
		return "xin chào", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "xin chào" {
		t.Errorf("expected result after retries, got %q", result)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestDoWithResultIfRetryable_PermanentErrorStopsImmediately(t *testing.T) {
	attempts := 0
	_, err := DoWithResultIfRetryable(context.Background(), fastConfig(), func() (string, error) {
		attempts++
		return "", errors.New("invalid api key")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt for permanent error, got %d", attempts)
	}
}
