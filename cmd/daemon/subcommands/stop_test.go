package subcommands

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/leefowlercu/lh2-monitor/internal/daemon"
)

func TestStopDaemon_NoPIDFile(t *testing.T) {
	pf := daemon.NewPIDFile(filepath.Join(t.TempDir(), "missing.pid"))

	err := stopDaemon(pf, syscall.SIGTERM, time.Second)
	if !errors.Is(err, ErrNoDaemonRunning) {
		t.Errorf("stopDaemon() error = %v, want ErrNoDaemonRunning", err)
	}
}

func TestStopDaemon_StalePIDFileIsRemoved(t *testing.T) {
	pf := writePID(t, deadPID)

	err := stopDaemon(pf, syscall.SIGTERM, time.Second)
	if !errors.Is(err, ErrStalePIDFile) {
		t.Errorf("stopDaemon() error = %v, want ErrStalePIDFile", err)
	}
	if _, statErr := os.Stat(pf.Path()); !os.IsNotExist(statErr) {
		t.Error("stale PID file should have been removed")
	}
}

func TestStopDaemon_SignalsProcess(t *testing.T) {
	child := exec.Command("sleep", "30")
	if err := child.Start(); err != nil {
		t.Skipf("sleep unavailable: %v", err)
	}
	exited := make(chan struct{})
	go func() {
		_ = child.Wait()
		close(exited)
	}()
	t.Cleanup(func() {
		_ = child.Process.Kill()
		<-exited
	})

	pf := writePID(t, child.Process.Pid)

	// Remove the PID file once the child exits, as the monitor does.
	go func() {
		<-exited
		_ = pf.Remove()
	}()

	if err := stopDaemon(pf, syscall.SIGTERM, 5*time.Second); err != nil {
		t.Fatalf("stopDaemon() error = %v", err)
	}

	select {
	case <-exited:
	case <-time.After(time.Second):
		t.Error("child process still running after stopDaemon()")
	}
}

func TestStopDaemon_Timeout(t *testing.T) {
	// Signal 0 checks the process without stopping it.
	err := stopDaemon(writePID(t, os.Getpid()), syscall.Signal(0), 150*time.Millisecond)
	if !errors.Is(err, ErrStopTimeout) {
		t.Errorf("stopDaemon() error = %v, want ErrStopTimeout", err)
	}
}
