// Package pidfile guards a clone against two watch sessions at once.
package pidfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/grovetools/repowatch/errors"
	"github.com/grovetools/repowatch/pkg/process"
)

// Acquire writes the current PID to the file.
// It returns a SESSION_ALREADY_RUNNING error if a live process holds it.
func Acquire(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.DirectoryCreation(filepath.Dir(path), err)
	}

	// Check if file exists
	if pid, err := Read(path); err == nil {
		if process.IsProcessAlive(pid) {
			return errors.New(errors.ErrCodeSessionRunning,
				fmt.Sprintf("a watch session is already running with PID %d", pid)).
				WithDetail("pid", pid).
				WithDetail("lock", path)
		}
		// Process is dead, cleanup stale file
		_ = os.Remove(path)
	} else if _, statErr := os.Stat(path); statErr == nil {
		// Unreadable content, treat as stale
		_ = os.Remove(path)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return errors.New(errors.ErrCodeSessionRunning, "a watch session acquired the lock concurrently").
				WithDetail("lock", path)
		}
		return fmt.Errorf("failed to write pid file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		return fmt.Errorf("failed to write pid file: %w", err)
	}
	return nil
}

// Release removes the PID file if it still belongs to this process.
func Release(path string) error {
	pid, err := Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return os.Remove(path)
	}
	if pid != os.Getpid() {
		return nil
	}
	return os.Remove(path)
}

// Read returns the PID from the file.
func Read(path string) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pidStr := strings.TrimSpace(string(content))
	return strconv.Atoi(pidStr)
}

// IsRunning checks if the session described by the pidfile is active.
func IsRunning(path string) (bool, int, error) {
	pid, err := Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	return process.IsProcessAlive(pid), pid, nil
}
