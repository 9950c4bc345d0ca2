package infra_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"weback-home/internal/infra"
)

func TestWithRetry_StopsOnSuccess(t *testing.T) {
	calls := 0
	err := infra.WithRetry(context.Background(), infra.ImmediateRetryConfig(8), func() error {
		calls++
		if calls < 3 {
			return errors.New("boom")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithRetry error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls: got %d, want 3", calls)
	}
}

func TestWithRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	want := errors.New("still failing")
	err := infra.WithRetry(context.Background(), infra.ImmediateRetryConfig(8), func() error {
		calls++
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("error: got %v, want %v", err, want)
	}
	if calls != 8 {
		t.Errorf("calls: got %d, want 8", calls)
	}
}

func TestWithRetry_AttemptTimeoutDoesNotStopLoop(t *testing.T) {
	calls := 0
	err := infra.WithRetry(context.Background(), infra.ImmediateRetryConfig(4), func() error {
		calls++
		return context.DeadlineExceeded
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error: got %v, want deadline exceeded", err)
	}
	if calls != 4 {
		t.Errorf("calls: got %d, want 4", calls)
	}
}

func TestWithRetry_CallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	cfg := infra.RetryConfig{MaxAttempts: 5, InitialDelay: time.Hour, Multiplier: 2}

	err := infra.WithRetry(ctx, cfg, func() error {
		calls++
		cancel()
		return errors.New("transient")
	})
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
}

func TestWithRetry_PermanentStops(t *testing.T) {
	calls := 0
	want := errors.New("bad request")
	err := infra.WithRetry(context.Background(), infra.ImmediateRetryConfig(5), func() error {
		calls++
		return infra.Permanent(want)
	})
	if err != want {
		t.Fatalf("error: got %v, want %v", err, want)
	}
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
}

func TestIsRetryableHTTPStatus(t *testing.T) {
	cases := map[int]bool{
		200: false,
		404: false,
		429: true,
		500: true,
		503: true,
	}
	for status, want := range cases {
		if got := infra.IsRetryableHTTPStatus(status); got != want {
			t.Errorf("IsRetryableHTTPStatus(%d): got %v, want %v", status, got, want)
		}
	}
}
