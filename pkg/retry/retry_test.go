package retry

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/c360/replaystream/errors"
)

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), DefaultConfig(), func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestDoRetriesTransient(t *testing.T) {
	cfg := Config{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}

	calls := 0
	err := Do(context.Background(), cfg, func() error {
		calls++
		if calls < 3 {
			return errors.WrapTransient(stderrors.New("broken pipe"), "test", "op", "connect")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestDoStopsOnInvalid(t *testing.T) {
	calls := 0
	err := Do(context.Background(), DefaultConfig(), func() error {
		calls++
		return errors.InvalidArgumentf("bad table name")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("invalid argument retried: calls = %d", calls)
	}
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	calls := 0
	wrapped := NonRetryable(errors.WrapTransient(stderrors.New("timeout"), "test", "op", "connect"))
	err := Do(context.Background(), DefaultConfig(), func() error {
		calls++
		return wrapped
	})
	if !IsNonRetryable(err) {
		t.Fatalf("error lost NonRetryable marker: %v", err)
	}
	if calls != 1 {
		t.Fatalf("non-retryable retried: calls = %d", calls)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	cfg := Config{
		MaxAttempts:  2,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   2.0,
	}

	calls := 0
	underlying := errors.WrapTransient(stderrors.New("connection refused"), "test", "op", "connect")
	err := Do(context.Background(), cfg, func() error {
		calls++
		return underlying
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
	if !stderrors.Is(err, underlying) {
		t.Fatalf("last error not wrapped: %v", err)
	}
}

func TestDoCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{
		MaxAttempts:  5,
		InitialDelay: time.Minute,
		MaxDelay:     time.Minute,
		Multiplier:   2.0,
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := Do(ctx, cfg, func() error {
		return errors.WrapTransient(stderrors.New("timeout"), "test", "op", "connect")
	})
	if !stderrors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestDoRejectsBadConfig(t *testing.T) {
	cfg := Config{MaxAttempts: 3, InitialDelay: time.Second, MaxDelay: time.Millisecond}
	if err := Do(context.Background(), cfg, func() error { return nil }); err == nil {
		t.Fatal("MaxDelay below InitialDelay must be rejected")
	}

	cfg = Config{InitialDelay: -1}
	if err := Do(context.Background(), cfg, func() error { return nil }); err == nil {
		t.Fatal("negative InitialDelay must be rejected")
	}
}

func TestDoWithResult(t *testing.T) {
	calls := 0
	got, err := DoWithResult(context.Background(), DefaultConfig(), func() (int, error) {
		calls++
		if calls < 2 {
			return 0, errors.WrapTransient(stderrors.New("timeout"), "test", "op", "fetch")
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("DoWithResult: %v", err)
	}
	if got != 42 {
		t.Fatalf("result = %d, want 42", got)
	}
}
