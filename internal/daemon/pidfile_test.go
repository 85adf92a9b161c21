package daemon

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

// deadPID is above the kernel's pid_max, so no process can hold it.
const deadPID = 99999999

func writePID(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to create test PID file: %v", err)
	}
}

func TestPIDFile_WriteAndRead(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "nested", "lh2monitor.pid")
	pf := NewPIDFile(pidPath)

	if err := pf.Write(); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	info, err := os.Stat(pidPath)
	if err != nil {
		t.Fatalf("Write() did not create file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("PID file permissions = %o, want 600", perm)
	}

	pid, err := pf.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("Read() = %d, want %d", pid, os.Getpid())
	}
	if pf.Path() != pidPath {
		t.Errorf("Path() = %q, want %q", pf.Path(), pidPath)
	}
}

func TestPIDFile_ReadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"whitespace", "  \n"},
		{"non numeric", "lh2"},
		{"zero", "0"},
		{"negative", "-12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pidPath := filepath.Join(t.TempDir(), "test.pid")
			writePID(t, pidPath, tt.content)

			if _, err := NewPIDFile(pidPath).Read(); err == nil {
				t.Errorf("Read(%q) expected error", tt.content)
			}
		})
	}
}

func TestPIDFile_ReadTrimsWhitespace(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "test.pid")
	writePID(t, pidPath, "  4242\n")

	pid, err := NewPIDFile(pidPath).Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if pid != 4242 {
		t.Errorf("Read() = %d, want 4242", pid)
	}
}

func TestPIDFile_RemoveIsIdempotent(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "test.pid")
	pf := NewPIDFile(pidPath)
	if err := pf.Write(); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	for i := range 2 {
		if err := pf.Remove(); err != nil {
			t.Fatalf("Remove() call %d error = %v", i+1, err)
		}
	}
	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Error("Remove() left the file behind")
	}
}

func TestPIDFile_IsStale(t *testing.T) {
	tests := []struct {
		name    string
		content *string
		want    bool
	}{
		{"no file", nil, false},
		{"current process", ptr(strconv.Itoa(os.Getpid())), false},
		{"dead process", ptr(strconv.Itoa(deadPID)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pidPath := filepath.Join(t.TempDir(), "test.pid")
			if tt.content != nil {
				writePID(t, pidPath, *tt.content)
			}

			stale, err := NewPIDFile(pidPath).IsStale()
			if err != nil {
				t.Fatalf("IsStale() error = %v", err)
			}
			if stale != tt.want {
				t.Errorf("IsStale() = %v, want %v", stale, tt.want)
			}
		})
	}
}

func TestPIDFile_Owner(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "test.pid")
	pf := NewPIDFile(pidPath)

	if _, ok, err := pf.Owner(); err != nil || ok {
		t.Fatalf("Owner() without file = ok %v, err %v", ok, err)
	}

	writePID(t, pidPath, strconv.Itoa(os.Getpid()))
	pid, ok, err := pf.Owner()
	if err != nil || !ok || pid != os.Getpid() {
		t.Errorf("Owner() = %d, %v, %v; want current process", pid, ok, err)
	}

	writePID(t, pidPath, strconv.Itoa(deadPID))
	if _, ok, _ := pf.Owner(); ok {
		t.Error("Owner() reported a dead process as running")
	}
}

func TestPIDFile_CheckAndClaim(t *testing.T) {
	t.Run("no existing file", func(t *testing.T) {
		pidPath := filepath.Join(t.TempDir(), "test.pid")
		if err := NewPIDFile(pidPath).CheckAndClaim(); err != nil {
			t.Fatalf("CheckAndClaim() error = %v", err)
		}
		assertPIDIsCurrent(t, pidPath)
	})

	t.Run("stale file is replaced", func(t *testing.T) {
		pidPath := filepath.Join(t.TempDir(), "test.pid")
		writePID(t, pidPath, strconv.Itoa(deadPID))
		if err := NewPIDFile(pidPath).CheckAndClaim(); err != nil {
			t.Fatalf("CheckAndClaim() error = %v", err)
		}
		assertPIDIsCurrent(t, pidPath)
	})

	t.Run("live owner", func(t *testing.T) {
		pidPath := filepath.Join(t.TempDir(), "test.pid")
		writePID(t, pidPath, strconv.Itoa(os.Getpid()))
		err := NewPIDFile(pidPath).CheckAndClaim()
		if !errors.Is(err, ErrDaemonAlreadyRunning) {
			t.Errorf("CheckAndClaim() error = %v, want ErrDaemonAlreadyRunning", err)
		}
	})

	t.Run("invalid content", func(t *testing.T) {
		pidPath := filepath.Join(t.TempDir(), "test.pid")
		writePID(t, pidPath, "garbage")
		if err := NewPIDFile(pidPath).CheckAndClaim(); err == nil {
			t.Error("CheckAndClaim() expected error for unreadable PID file")
		}
	})
}

func assertPIDIsCurrent(t *testing.T, path string) {
	t.Helper()
	pid, err := NewPIDFile(path).Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("PID file holds %d, want %d", pid, os.Getpid())
	}
}

func ptr(s string) *string { return &s }
