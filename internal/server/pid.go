package server

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// ErrAlreadyRunning is returned by AcquirePIDFile when another live daemon
// owns the pidfile.
var ErrAlreadyRunning = errors.New("another instance is already running")

// PIDFile guards the data directory against a second daemon.
type PIDFile struct {
	path string
}

// AcquirePIDFile writes the current PID to path. A stale file left by a dead
// process is taken over. With replace set, a live owner is sent SIGTERM and
// given a few seconds to exit first.
func AcquirePIDFile(path string, replace bool) (*PIDFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create PID directory: %w", err)
	}
	p := &PIDFile{path: path}

	pid, err := p.read()
	if err != nil {
		return nil, err
	}
	if pid != 0 && pid != os.Getpid() && isRunning(pid) {
		if !replace {
			return nil, fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
		}
		if err := killProcess(pid); err != nil {
			return nil, err
		}
		if !waitForExit(pid, 5*time.Second) {
			return nil, fmt.Errorf("%w (pid %d did not exit)", ErrAlreadyRunning, pid)
		}
	}

	if err := p.write(); err != nil {
		return nil, fmt.Errorf("failed to write PID file: %w", err)
	}
	return p, nil
}

// ReadPID returns the PID recorded at path and whether that process is alive.
func ReadPID(path string) (int, bool, error) {
	pid, err := (&PIDFile{path: path}).read()
	if err != nil || pid == 0 {
		return pid, false, err
	}
	return pid, isRunning(pid), nil
}

func (p *PIDFile) Path() string { return p.path }

// Release removes the pidfile if it still names this process.
func (p *PIDFile) Release() error {
	pid, err := p.read()
	if err != nil || pid != os.Getpid() {
		return err
	}
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}
	return nil
}

func (p *PIDFile) write() error {
	return os.WriteFile(p.path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func (p *PIDFile) read() (int, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID in file: %w", err)
	}
	return pid, nil
}

// isRunning checks if a process with the given PID is running
func isRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// FindProcess always succeeds on Unix; signal 0 probes for existence.
	return process.Signal(syscall.Signal(0)) == nil
}

func killProcess(pid int) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process: %w", err)
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		if err := process.Kill(); err != nil {
			return fmt.Errorf("failed to kill process: %w", err)
		}
	}
	return nil
}

func waitForExit(pid int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !isRunning(pid) {
			return true
		}
		time.Sleep(100 * time.Millisecond)
	}
	return false
}
