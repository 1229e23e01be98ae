//go:build windows

package process

import (
	"os"
	"os/exec"
)

// SetProcessGroup is a no-op on Windows (no process groups via Setpgid).
func SetProcessGroup(cmd *exec.Cmd) {}

// TerminateGroup kills the process on Windows; there is no SIGTERM.
func TerminateGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}

// KillGroup force-kills the process on Windows.
func KillGroup(cmd *exec.Cmd) error {
	return TerminateGroup(cmd)
}

func signalZero(p *os.Process) bool {
	// FindProcess opens a handle on Windows and fails for dead processes.
	return p != nil
}
