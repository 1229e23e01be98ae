//go:build !windows

package process

import (
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsProcessAlive(t *testing.T) {
	assert.True(t, IsProcessAlive(os.Getpid()))
	assert.False(t, IsProcessAlive(0))
	assert.False(t, IsProcessAlive(-1))
}

func TestStopKillsProcessGroup(t *testing.T) {
	// The trap ignores SIGTERM so only the escalation can end it.
	cmd := exec.Command("sh", "-c", "trap '' TERM; sleep 30")
	SetProcessGroup(cmd)
	require.NoError(t, cmd.Start())

	waited := make(chan error, 1)
	go func() { waited <- cmd.Wait() }()

	done := make(chan struct{})
	defer close(done)
	Stop(cmd, 100*time.Millisecond, done)

	select {
	case err := <-waited:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("process group was not killed")
	}
}
