package cli

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/grovetools/repowatch/errors"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorHandlerHints(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"config missing", errors.ConfigNotFound("/x/repowatch.yml"), "--config"},
		{"directory", errors.DirectoryCreation("/ro/repos", fmt.Errorf("read-only")), "/ro/repos is writable"},
		{"remote", errors.RemoteConfigFailed("upstream", "u", fmt.Errorf("x")), "remote 'upstream'"},
		{"wrapped session", fmt.Errorf("start: %w", errors.New(errors.ErrCodeSessionRunning, "busy")), "Stop it first"},
		{"plain", fmt.Errorf("boom"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := &ErrorHandler{Out: &buf}
			assert.Same(t, tt.err, h.Handle(tt.err))
			assert.Contains(t, buf.String(), tt.err.Error())
			if tt.want != "" {
				assert.Contains(t, buf.String(), tt.want)
			}
		})
	}
}

func TestErrorHandlerVerboseDetails(t *testing.T) {
	var buf bytes.Buffer
	h := &ErrorHandler{Verbose: true, Out: &buf}
	_ = h.Handle(errors.InvalidInput("interval", "must be positive"))
	assert.Contains(t, buf.String(), `"field": "interval"`)
}

func TestWrapText(t *testing.T) {
	wrapped := wrapText("one two three four five six", 9)
	for _, line := range strings.Split(wrapped, "\n") {
		assert.LessOrEqual(t, len(line), 9)
	}
	assert.Equal(t, "keep\nbreaks", wrapText("keep\nbreaks", 40))
}

func TestStandardCommandFlagsAndHelp(t *testing.T) {
	root := NewStandardCommand("repowatch", "Watch a repository and build new commits")
	child := &cobra.Command{Use: "sync", Short: "Sync once", RunE: func(*cobra.Command, []string) error { return nil }}
	child.Flags().Duration("interval", 0, "Polling interval")
	root.AddCommand(child)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"sync", "--help"})
	require.NoError(t, root.Execute())

	help := out.String()
	assert.Contains(t, help, "REPOWATCH SYNC")
	assert.Contains(t, help, "--interval")
	assert.Contains(t, help, "GLOBAL FLAGS")
	assert.Contains(t, help, "--config")

	opts := GetOptions(child)
	assert.Equal(t, "", opts.ConfigFile)
	assert.False(t, opts.Verbose)
}
