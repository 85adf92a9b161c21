package trigger

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func tempPaths(t *testing.T) Paths {
	t.Helper()
	dir := t.TempDir()
	return Paths{
		Skip:   filepath.Join(dir, "skip.now"),
		Cancel: filepath.Join(dir, "cancel.now"),
		Extend: filepath.Join(dir, "extend.now"),
	}
}

// consume calls s.Consume and fails the test on error.
func consume(t *testing.T, s Store, kind Kind) bool {
	t.Helper()
	present, err := s.Consume(kind)
	if err != nil {
		t.Fatalf("Consume(%s) error = %v", kind, err)
	}
	return present
}

func assertKind(t *testing.T, s Store, kind Kind) {
	t.Helper()
	if err := s.Assert(kind); err != nil {
		t.Fatalf("Assert(%s) error = %v", kind, err)
	}
}

func TestParseKind(t *testing.T) {
	for _, s := range []string{"skip", "cancel", "extend"} {
		k, err := ParseKind(s)
		if err != nil {
			t.Fatalf("ParseKind(%q) error = %v", s, err)
		}
		if k.String() != s {
			t.Errorf("ParseKind(%q) = %q", s, k)
		}
	}

	if _, err := ParseKind("abort"); err == nil {
		t.Error("ParseKind(abort) should fail")
	}
}

func TestFileStore_ConsumeRemovesMarker(t *testing.T) {
	paths := tempPaths(t)
	s := NewFileStore(paths)

	if consume(t, s, Skip) {
		t.Error("absent marker reported present")
	}

	assertKind(t, s, Skip)
	if !s.Present(Skip) {
		t.Error("marker should be present after Assert")
	}

	if !consume(t, s, Skip) {
		t.Error("Consume should report the marker")
	}
	if _, err := os.Stat(paths.Skip); !os.IsNotExist(err) {
		t.Errorf("marker file still exists: %v", err)
	}
	if consume(t, s, Skip) {
		t.Error("a marker is observed once")
	}
}

func TestFileStore_ConcurrentConsumeObservedOnce(t *testing.T) {
	s := NewFileStore(tempPaths(t))
	assertKind(t, s, Cancel)

	var seen atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := s.Consume(Cancel); ok {
				seen.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := seen.Load(); got != 1 {
		t.Errorf("marker observed %d times, want 1", got)
	}
}

func TestFileStore_ClearIsIdempotent(t *testing.T) {
	s := NewFileStore(tempPaths(t))

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear() with absent markers error = %v", err)
	}

	for _, k := range Kinds {
		assertKind(t, s, k)
	}
	for i := 0; i < 2; i++ {
		if err := s.Clear(); err != nil {
			t.Fatalf("Clear() error = %v", err)
		}
	}

	for _, k := range Kinds {
		if s.Present(k) {
			t.Errorf("%s marker should be gone", k)
		}
	}
}

func TestFileStore_ChangesWithoutWatchIsNil(t *testing.T) {
	s := NewFileStore(tempPaths(t))
	if s.Changes() != nil {
		t.Error("Changes() should be nil before Watch")
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestFileStore_WatchWakesOnMarker(t *testing.T) {
	paths := tempPaths(t)
	s := NewFileStore(paths)
	if err := s.Watch(); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	// Unrelated files in the same directory do not wake the store.
	if err := os.WriteFile(filepath.Join(filepath.Dir(paths.Skip), "other.txt"), nil, 0o644); err != nil {
		t.Fatalf("failed to write unrelated file: %v", err)
	}

	assertKind(t, s, Extend)

	select {
	case <-s.Changes():
	case <-time.After(2 * time.Second):
		t.Fatal("expected wake after extend marker was created")
	}
}

func TestMemoryStore(t *testing.T) {
	m := NewMemoryStore()

	if consume(t, m, Skip) {
		t.Error("absent marker reported present")
	}

	assertKind(t, m, Skip)
	select {
	case <-m.Changes():
	default:
		t.Fatal("assert should wake the store")
	}
	if !m.Present(Skip) {
		t.Error("marker should be present after Assert")
	}

	if !consume(t, m, Skip) {
		t.Error("Consume should report the marker")
	}
	if m.Present(Skip) {
		t.Error("marker should be gone after Consume")
	}

	assertKind(t, m, Cancel)
	for i := 0; i < 2; i++ {
		if err := m.Clear(); err != nil {
			t.Fatalf("Clear() error = %v", err)
		}
	}
	if m.Present(Cancel) {
		t.Error("cancel marker should be cleared")
	}
}
