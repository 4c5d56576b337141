package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lbbniu/jimeng-tts/internal/retry"
	"github.com/lbbniu/jimeng-tts/internal/services"
)

func noSleep(t *testing.T, slept *[]time.Duration) retry.Option {
	t.Helper()
	return retry.WithSleeper(func(_ context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	})
}

func TestDoRetriesTransientUntilExhausted(t *testing.T) {
	var slept []time.Duration
	controller := retry.New(2, 50*time.Millisecond, noSleep(t, &slept))

	calls := 0
	err := controller.Do(context.Background(), "submit", func(_ context.Context, attempt int) error {
		calls++
		if attempt != calls {
			t.Fatalf("attempt = %d, want %d", attempt, calls)
		}
		return services.Wrap(services.ErrTransient, "generation", "submit", "flaky", nil)
	})

	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if len(slept) != 2 {
		t.Fatalf("sleeps = %d, want 2", len(slept))
	}
	for _, d := range slept {
		if d != 50*time.Millisecond {
			t.Fatalf("sleep duration = %v, want 50ms", d)
		}
	}
}

func TestDoStopsOnFirstSuccess(t *testing.T) {
	var slept []time.Duration
	controller := retry.New(3, time.Second, noSleep(t, &slept))

	calls := 0
	err := controller.Do(context.Background(), "submit", func(context.Context, int) error {
		calls++
		if calls < 2 {
			return services.Wrap(services.ErrTransient, "generation", "submit", "flaky", nil)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestDoDoesNotRetryPermanentErrors(t *testing.T) {
	controller := retry.New(5, time.Second, retry.WithSleeper(func(context.Context, time.Duration) error {
		t.Fatal("sleeper should not run")
		return nil
	}))

	calls := 0
	permanent := services.Wrap(services.ErrPermanent, "generation", "submit", "rejected", nil)
	err := controller.Do(context.Background(), "submit", func(context.Context, int) error {
		calls++
		return permanent
	})
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if !errors.Is(err, services.ErrPermanent) {
		t.Fatalf("expected permanent error surfaced, got %v", err)
	}
}

func TestDoZeroRetriesMeansSingleAttempt(t *testing.T) {
	controller := retry.New(0, time.Second, retry.WithSleeper(func(context.Context, time.Duration) error {
		t.Fatal("sleeper should not run")
		return nil
	}))

	calls := 0
	controller.Do(context.Background(), "submit", func(context.Context, int) error {
		calls++
		return services.Wrap(services.ErrTransient, "generation", "submit", "flaky", nil)
	})
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestDoSurfacesInterruptionOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	controller := retry.New(1, time.Second)
	err := controller.Do(ctx, "submit", func(context.Context, int) error {
		t.Fatal("fn should not run after cancellation")
		return nil
	})
	if !errors.Is(err, services.ErrInterrupted) {
		t.Fatalf("expected interrupted, got %v", err)
	}
}

func TestDoSurfacesInterruptionDuringBackoff(t *testing.T) {
	controller := retry.New(2, time.Second, retry.WithSleeper(func(context.Context, time.Duration) error {
		return context.Canceled
	}))

	err := controller.Do(context.Background(), "submit", func(context.Context, int) error {
		return services.Wrap(services.ErrTransient, "generation", "submit", "flaky", nil)
	})
	if !errors.Is(err, services.ErrInterrupted) {
		t.Fatalf("expected interrupted, got %v", err)
	}
}
