// Package cmd implements the repowatch command tree.
package cmd

import (
	"context"

	"github.com/grovetools/repowatch/cli"
	"github.com/grovetools/repowatch/pkg/profiling"
	"github.com/spf13/cobra"
)

// NewRootCmd assembles the repowatch command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := cli.NewStandardCommand(
		"repowatch",
		"Watch a git repository and build every new commit",
	)
	rootCmd.Long = `repowatch keeps a local clone of a remote repository up to date by
polling it at a fixed interval. Whenever the HEAD commit changes it runs the
configured build script and, optionally, the test script in the clone.`
	cli.SetVersionTemplate(rootCmd)

	profiler := profiling.NewCobraProfiler()
	profiler.AddFlags(rootCmd)
	profiler.Wrap(rootCmd)

	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newDetectCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newLogsCmd())
	rootCmd.AddCommand(newPathsCmd())
	rootCmd.AddCommand(cli.NewVersionCommand())
	return rootCmd
}

// Execute runs the command tree with os.Args and returns the process exit
// code.
func Execute() int {
	rootCmd := NewRootCmd()
	cmd, err := rootCmd.ExecuteContextC(context.Background())
	if err == nil {
		return 0
	}
	if cmd == nil {
		cmd = rootCmd
	}
	verbose, _ := cmd.Flags().GetBool("verbose")
	cli.NewErrorHandler(verbose).Handle(err)
	return exitCode(err)
}

// exitCodeError lets a command fail with a specific exit code after it has
// already reported the failure itself.
type exitCodeError struct {
	code int
	msg  string
}

func (e *exitCodeError) Error() string { return e.msg }

func exitCode(err error) int {
	if ec, ok := err.(*exitCodeError); ok {
		return ec.code
	}
	return 1
}
