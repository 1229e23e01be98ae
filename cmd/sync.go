package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/grovetools/repowatch/cli"
	"github.com/grovetools/repowatch/command"
	"github.com/grovetools/repowatch/errors"
	"github.com/grovetools/repowatch/git"
	"github.com/grovetools/repowatch/logging"
	"github.com/grovetools/repowatch/pkg/profiling"
	"github.com/spf13/cobra"
)

// SyncOutput is the --json result of `repowatch sync`.
type SyncOutput struct {
	Target git.RepositoryTarget `json:"target"`
	Commit string               `json:"commit"`
	Env    map[string]string    `json:"env,omitempty"`
}

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync [url]",
		Short: "Clone or pull a repository once and print its HEAD commit",
		Long: `Run a single synchronization: clone the repository if the local copy is
missing, make sure the remote is configured, pull the current branch and
print the resulting HEAD commit.`,
		Example: `repowatch sync grovetools/repowatch
repowatch sync https://example.com/team/app.git --root /srv/ci --env`,
		Args: cobra.MaximumNArgs(1),
		RunE: runSync,
	}
	addTargetFlags(cmd)
	addOutputFlags(cmd)
	cmd.Flags().Bool("env", false, "Also print the environment passed to build commands")
	return cmd
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadCommandConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.RequireRepository(); err != nil {
		return err
	}
	target, err := cfg.Target()
	if err != nil {
		return err
	}

	logger := cli.GetLogger(cmd, "sync")
	jsonOutput := cli.GetOptions(cmd).JSONOutput

	// In JSON mode stdout carries only the result object.
	var runner *command.Runner
	if jsonOutput {
		runner = command.NewRunner(command.WithLogger(logger))
	} else {
		runner = command.NewRunner(command.WithReporter(reporterFor(cmd, logger)), command.WithLogger(logger))
	}
	syncer := git.NewCLISynchronizer(runner, logger)

	warnIfWatched(logger, target)
	ctx := commandContext(cmd)
	root := filepath.Dir(target.LocalPath)
	if err := git.EnsureRoot(root); err != nil {
		return errors.DirectoryCreation(root, err)
	}
	span := profiling.Start("sync")
	hash, err := syncer.Sync(ctx, target)
	span.Stop()
	if err != nil {
		return err
	}

	var env map[string]string
	if showEnv, _ := cmd.Flags().GetBool("env"); showEnv {
		env = syncer.GetEnvironmentVars(ctx, target, hash).ToMap()
	}

	if jsonOutput {
		data, err := json.MarshalIndent(SyncOutput{Target: target, Commit: hash, Env: env}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal sync result: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	pretty := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())
	pretty.Success(fmt.Sprintf("Synchronized %s", target.Name()))
	pretty.Path("Clone", target.LocalPath)
	pretty.Field("Commit", hash)
	if env != nil {
		keys := make([]string, 0, len(env))
		for k := range env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			pretty.Field(k, env[k])
		}
	}
	return nil
}
