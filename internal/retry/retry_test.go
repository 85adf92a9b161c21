package retry

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"
)

func TestForever_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Forever(context.Background(), "hv off", func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Forever() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestForever_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	var retried []int
	err := Forever(context.Background(), "hv off", func(context.Context) error {
		calls++
		if calls < 5 {
			return errors.New("connection refused")
		}
		return nil
	},
		WithDelay(time.Millisecond),
		WithOnRetry(func(attempt int, _ error) { retried = append(retried, attempt) }),
	)

	if err != nil {
		t.Fatalf("Forever() error = %v", err)
	}
	if calls != 5 {
		t.Errorf("calls = %d, want 5", calls)
	}
	if !slices.Equal(retried, []int{1, 2, 3, 4}) {
		t.Errorf("retried = %v, want [1 2 3 4]", retried)
	}
}

func TestForever_NoAttemptCeiling(t *testing.T) {
	// Far more attempts than any default backoff limit would allow.
	calls := 0
	err := Forever(context.Background(), "hv off", func(context.Context) error {
		calls++
		if calls < 200 {
			return errors.New("timeout")
		}
		return nil
	}, WithDelay(time.Microsecond))

	if err != nil {
		t.Fatalf("Forever() error = %v", err)
	}
	if calls != 200 {
		t.Errorf("calls = %d, want 200", calls)
	}
}

func TestForever_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Forever(ctx, "hv off", func(context.Context) error {
		calls++
		if calls == 3 {
			cancel()
		}
		return errors.New("unreachable")
	}, WithDelay(time.Millisecond))

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Forever() error = %v, want context.Canceled", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}
