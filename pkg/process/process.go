// Package process holds the OS-specific bits of subprocess management:
// liveness checks and process-group signalling.
package process

import (
	"os"
	"os/exec"
	"time"
)

// IsProcessAlive checks if a process with the given PID is still running.
func IsProcessAlive(pid int) bool {
	// PID 0 or less is invalid.
	if pid <= 0 {
		return false
	}

	// Find the process. This doesn't fail on Unix if the process doesn't exist.
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	return signalZero(p)
}

// Stop terminates cmd's process group and escalates to a forced kill if the
// group is still around after grace. It returns immediately; the escalation
// runs in the background until done is closed.
func Stop(cmd *exec.Cmd, grace time.Duration, done <-chan struct{}) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	_ = TerminateGroup(cmd)
	if grace <= 0 {
		_ = KillGroup(cmd)
		return
	}
	go func() {
		timer := time.NewTimer(grace)
		defer timer.Stop()
		select {
		case <-timer.C:
			_ = KillGroup(cmd)
		case <-done:
		}
	}()
}
