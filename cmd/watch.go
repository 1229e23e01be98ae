package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/grovetools/repowatch/cli"
	"github.com/grovetools/repowatch/command"
	"github.com/grovetools/repowatch/config"
	"github.com/grovetools/repowatch/detect"
	"github.com/grovetools/repowatch/errors"
	"github.com/grovetools/repowatch/git"
	"github.com/grovetools/repowatch/logging"
	"github.com/grovetools/repowatch/pkg/paths"
	"github.com/grovetools/repowatch/watch"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [url]",
		Short: "Poll a repository and build every new commit",
		Long: `Clone the repository if needed, then pull it at a fixed interval. The first
poll and every poll that moves HEAD run the build script and, unless
disabled, the test script in the clone.

The URL may be a full git URL or GitHub owner/repo shorthand. When no build
or test script is configured, repowatch picks one from the project type.

Interrupt once to stop after the current build, twice to kill it.`,
		Example: `# Watch a GitHub repository with detected scripts
repowatch watch grovetools/repowatch

# Poll every 5 minutes with explicit scripts
repowatch watch https://example.com/team/app.git --interval 5m \
  --build "make" --test "make test"`,
		Args: cobra.MaximumNArgs(1),
		RunE: runWatch,
	}
	addTargetFlags(cmd)
	addScriptFlags(cmd)
	addWatchFlags(cmd)
	addOutputFlags(cmd)
	cmd.Flags().Bool("no-detect", false, "Do not detect scripts from the project type")
	cmd.Flags().Bool("no-reload", false, "Do not reload scripts when the config file changes")
	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
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

	logger := cli.GetLogger(cmd, "watch")
	reporter := reporterFor(cmd, logger)
	runner := command.NewRunner(
		command.WithReporter(reporter),
		command.WithLogger(logger),
		command.WithCommandTimeout(cfg.CommandTimeoutDuration()),
		command.WithKillGrace(cfg.KillGraceDuration()),
	)

	ctx := commandContext(cmd)

	var configured watch.ScriptSource
	noReload, _ := cmd.Flags().GetBool("no-reload")
	if !noReload && cli.GetOptions(cmd).ConfigFile == "" {
		sw, err := config.NewScriptWatcher(workingDir(), cfg.Scripts(),
			config.WithOverrides(func(c *config.Config) { applyScriptFlags(cmd, c) }),
			config.WithWatcherLogger(cli.GetLogger(cmd, "config")),
			config.WithWatcherReporter(reporter),
		)
		switch {
		case err == nil:
			defer sw.Close()
			go sw.Start(ctx)
			configured = sw
		case errors.Is(err, errors.ErrCodeConfigNotFound):
		default:
			logger.WithError(err).Warn("Script reloading disabled")
		}
	}

	source := configured
	noDetect, _ := cmd.Flags().GetBool("no-detect")
	if !noDetect {
		source = &detect.Source{
			Dir:        target.LocalPath,
			RepoName:   target.Name(),
			Configured: configured,
			Static:     cfg.Scripts(),
		}
	}

	// Without a clone detection has nothing to look at yet, so the check
	// waits for the session's own report in that case.
	scripts := cfg.Scripts()
	if source != nil {
		scripts = source.Scripts()
	}
	if scripts.Build.Empty() && scripts.Test.Empty() {
		if _, statErr := os.Stat(target.LocalPath); noDetect || statErr == nil {
			return errors.InvalidInput("build", "no build or test script configured and none detected")
		}
	}

	session, err := watch.NewSession(watch.Options{
		Target:       target,
		Interval:     cfg.IntervalDuration(),
		Scripts:      cfg.Scripts(),
		Source:       source,
		Synchronizer: git.NewCLISynchronizer(runner, logger),
		Runner:       runner,
		Reporter:     reporter,
		Logger:       logger,
		LockPath:     paths.SessionLockPath(target.LocalPath),
	})
	if err != nil {
		return err
	}

	if err := paths.EnsureDirs(); err != nil {
		return errors.DirectoryCreation(paths.StateDir(), err)
	}

	if !cli.GetOptions(cmd).JSONOutput {
		pretty := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())
		repo := target.RemoteURL
		if short := git.Shorthand(repo); short != "" {
			repo = short
		}
		pretty.Field("Repository", repo)
		pretty.Path("Clone", target.LocalPath)
		pretty.Field("Interval", cfg.IntervalDuration())
		pretty.Field("Command timeout", durationOrNone(cfg.CommandTimeoutDuration()))
	}

	if err := session.Start(ctx); err != nil {
		return err
	}

	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	go func() {
		stopping := false
		for {
			select {
			case sig := <-sigs:
				if stopping || cfg.Watch.KillOnStop {
					logger.WithField("signal", sig.String()).Warn("Killing running commands")
					session.Kill()
					continue
				}
				stopping = true
				logger.WithField("signal", sig.String()).Info("Stopping after the current tick; interrupt again to kill")
				session.Stop()
			case <-session.Done():
				return
			}
		}
	}()

	err = session.Wait()
	status := session.Status()
	logger.WithFields(logrus.Fields{
		"ticks":    status.Ticks,
		"skipped":  status.Skipped,
		"failures": status.State.ConsecutiveFailureCount,
	}).Info("Watch session ended")
	return err
}
