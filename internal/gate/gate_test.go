package gate

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestGate_TryAcquireRelease(t *testing.T) {
	var g Gate

	if g.Held() {
		t.Fatal("new gate should not be held")
	}
	if !g.TryAcquire() {
		t.Fatal("first acquire should succeed")
	}
	if !g.Held() {
		t.Error("gate should be held after acquire")
	}
	if g.TryAcquire() {
		t.Error("second acquire must fail while held")
	}

	g.Release()
	if g.Held() {
		t.Error("gate should not be held after release")
	}
	if !g.TryAcquire() {
		t.Error("acquire after release should succeed")
	}
}

func TestGate_ConcurrentAcquireHasSingleWinner(t *testing.T) {
	var g Gate
	var winners atomic.Int32
	var wg sync.WaitGroup

	start := make(chan struct{})
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if g.TryAcquire() {
				winners.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := winners.Load(); got != 1 {
		t.Errorf("winners = %d, want 1", got)
	}
}

func TestSlot_RejectsWhileBusy(t *testing.T) {
	var s Slot[int]
	release := make(chan struct{})

	first, ok := s.TryStart(context.Background(), func(context.Context) int {
		<-release
		return 1
	})
	if !ok {
		t.Fatal("first TryStart should start")
	}
	if !s.Busy() {
		t.Error("slot should be busy")
	}

	var runs atomic.Int32
	for i := 0; i < 10; i++ {
		_, ok := s.TryStart(context.Background(), func(context.Context) int {
			runs.Add(1)
			return 2
		})
		if ok {
			t.Error("TryStart should be rejected while busy")
		}
	}

	close(release)
	if got := <-first; got != 1 {
		t.Errorf("first result = %d, want 1", got)
	}
	if got := runs.Load(); got != 0 {
		t.Errorf("rejected tasks ran %d times", got)
	}
	if s.Busy() {
		t.Error("slot should be free after the task returns")
	}

	second, ok := s.TryStart(context.Background(), func(context.Context) int { return 3 })
	if !ok {
		t.Fatal("TryStart after completion should start")
	}
	if got := <-second; got != 3 {
		t.Errorf("second result = %d, want 3", got)
	}
}

func TestSlot_ReleasesOnPanic(t *testing.T) {
	s := Slot[error]{
		OnPanic: func(r any) error { return fmt.Errorf("panic: %v", r) },
	}

	result, ok := s.TryStart(context.Background(), func(context.Context) error {
		panic("relay exploded")
	})
	if !ok {
		t.Fatal("TryStart should start")
	}

	err := <-result
	if err == nil || !strings.Contains(err.Error(), "relay exploded") {
		t.Errorf("result = %v, want recovered panic", err)
	}
	if s.Busy() {
		t.Error("slot should be free after a panic")
	}
}

func TestSlot_Wait(t *testing.T) {
	var s Slot[struct{}]
	release := make(chan struct{})

	_, ok := s.TryStart(context.Background(), func(context.Context) struct{} {
		<-release
		return struct{}{}
	})
	if !ok {
		t.Fatal("TryStart should start")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := s.Wait(ctx); err == nil {
		t.Error("Wait should time out while the task runs")
	}

	close(release)
	if err := s.Wait(context.Background()); err != nil {
		t.Errorf("Wait() error = %v", err)
	}
}
