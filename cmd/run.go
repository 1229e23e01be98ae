package cmd

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/grovetools/repowatch/cli"
	"github.com/grovetools/repowatch/command"
	"github.com/grovetools/repowatch/detect"
	"github.com/grovetools/repowatch/errors"
	"github.com/grovetools/repowatch/git"
	"github.com/grovetools/repowatch/pkg/profiling"
	"github.com/grovetools/repowatch/report"
	"github.com/grovetools/repowatch/util/pathutil"
	"github.com/grovetools/repowatch/watch"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [url]",
		Short: "Run the build and test scripts once",
		Long: `Synchronize the repository once and run the build script and, unless
disabled, the test script in the clone, exactly as a watch session does
when it sees a new commit.

With --dir the scripts run in that directory and no synchronization
happens. The exit code is non-zero when any command failed.`,
		Example: `# Build the current checkout with its configured scripts
repowatch run --dir .

# Sync and build a repository once
repowatch run grovetools/repowatch --build "go build ./..." --test "go test ./..."`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRun,
	}
	addTargetFlags(cmd)
	addScriptFlags(cmd)
	addWatchFlags(cmd)
	addOutputFlags(cmd)
	cmd.Flags().String("dir", "", "Run in this directory instead of a synchronized clone")
	cmd.Flags().Bool("no-detect", false, "Do not detect scripts from the project type")
	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	dir, _ := cmd.Flags().GetString("dir")
	if dir != "" && len(args) > 0 {
		return errors.InvalidInput("dir", "--dir cannot be combined with a repository URL")
	}

	cfg, err := loadCommandConfig(cmd, args)
	if err != nil {
		return err
	}

	logger := cli.GetLogger(cmd, "run")
	reporter := reporterFor(cmd, logger)
	runner := command.NewRunner(
		command.WithReporter(reporter),
		command.WithLogger(logger),
		command.WithCommandTimeout(cfg.CommandTimeoutDuration()),
		command.WithKillGrace(cfg.KillGraceDuration()),
	)

	// An interrupt cancels the run and terminates the running command.
	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repoName := ""
	if dir == "" {
		if err := cfg.RequireRepository(); err != nil {
			return err
		}
		target, err := cfg.Target()
		if err != nil {
			return err
		}
		warnIfWatched(logger, target)
		root := filepath.Dir(target.LocalPath)
		if err := git.EnsureRoot(root); err != nil {
			return errors.DirectoryCreation(root, err)
		}
		syncer := git.NewCLISynchronizer(runner, logger)
		span := profiling.Start("sync")
		hash, err := syncer.Sync(ctx, target)
		span.Stop()
		if err != nil {
			return err
		}
		runner = runner.WithEnv(syncer.GetEnvironmentVars(ctx, target, hash).ToMap())
		dir, repoName = target.LocalPath, target.Name()
	} else {
		abs, err := pathutil.Expand(dir)
		if err != nil {
			return errors.InvalidInput("dir", err.Error())
		}
		dir, repoName = abs, filepath.Base(abs)
	}

	var source watch.ScriptSource = &detect.Source{Dir: dir, RepoName: repoName, Static: cfg.Scripts()}
	if noDetect, _ := cmd.Flags().GetBool("no-detect"); noDetect {
		source = staticScripts(cfg.Scripts())
	}
	scripts := source.Scripts()
	if scripts.Build.Empty() && scripts.Test.Empty() {
		return errors.InvalidInput("build", "no build or test script configured and none detected")
	}

	failed := 0
	span := profiling.Start("build")
	build := runner.Run(ctx, report.OpBuild, scripts.Build, dir)
	span.Stop()
	if !build.AggregateSucceeded {
		failed++
	}
	if scripts.RunTests && ctx.Err() == nil {
		if scripts.Test.Empty() {
			reason := scripts.NoTestsReason
			if reason == "" {
				reason = "No tests configured."
			}
			reporter.Report(report.Success(report.OpTest, reason))
		} else {
			span := profiling.Start("test")
			test := runner.Run(ctx, report.OpTest, scripts.Test, dir)
			span.Stop()
			if !test.AggregateSucceeded {
				failed++
			}
		}
	}

	if failed > 0 {
		return &exitCodeError{code: 1, msg: fmt.Sprintf("%d of the scripts failed", failed)}
	}
	return nil
}

type staticScripts watch.Scripts

func (s staticScripts) Scripts() watch.Scripts { return watch.Scripts(s) }
