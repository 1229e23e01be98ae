package cmd

import (
	"context"
	"os"
	"time"

	"github.com/grovetools/repowatch/cli"
	"github.com/grovetools/repowatch/config"
	"github.com/grovetools/repowatch/git"
	"github.com/grovetools/repowatch/internal/pidfile"
	"github.com/grovetools/repowatch/pkg/paths"
	"github.com/grovetools/repowatch/report"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func addTargetFlags(cmd *cobra.Command) {
	cmd.Flags().String("root", "", "Directory clones are created under")
	cmd.Flags().String("remote", "", "Name of the git remote to pull from (default: origin)")
}

func addScriptFlags(cmd *cobra.Command) {
	cmd.Flags().StringArray("build", nil, "Build command; repeat for several, replaces the configured build script")
	cmd.Flags().StringArray("test", nil, "Test command; repeat for several, replaces the configured test script")
	cmd.Flags().Bool("no-tests", false, "Do not run the test script")
}

func addWatchFlags(cmd *cobra.Command) {
	cmd.Flags().Duration("interval", 0, "Polling interval (default: 60s)")
	cmd.Flags().Bool("kill-on-stop", false, "Terminate running commands on the first interrupt")
	cmd.Flags().Duration("kill-grace", 0, "Delay between SIGTERM and SIGKILL when killing commands (default: 5s)")
	cmd.Flags().Duration("command-timeout", 0, "Per-command timeout (default: none)")
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("quiet", "q", false, "Print summaries only, not command output")
}

// loadCommandConfig loads the config and lays the command's flags and an
// optional positional URL over it.
func loadCommandConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := cli.LoadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if len(args) > 0 {
		cfg.Repository.URL = args[0]
	}
	applyTargetFlags(cmd, cfg)
	applyScriptFlags(cmd, cfg)
	applyWatchFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyTargetFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Lookup("root") == nil {
		return
	}
	if flags.Changed("root") {
		cfg.Repository.Root, _ = flags.GetString("root")
	}
	if flags.Changed("remote") {
		cfg.Repository.Remote, _ = flags.GetString("remote")
	}
}

// applyScriptFlags also runs on every config reload so that flags keep
// precedence over the edited file.
func applyScriptFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Lookup("build") == nil {
		return
	}
	if flags.Changed("build") {
		build, _ := flags.GetStringArray("build")
		cfg.Build = config.ScriptConfig{Commands: build}
	}
	if flags.Changed("test") {
		test, _ := flags.GetStringArray("test")
		cfg.Test.ScriptConfig = config.ScriptConfig{Commands: test}
	}
	if noTests, _ := flags.GetBool("no-tests"); noTests {
		disabled := false
		cfg.Test.Enabled = &disabled
	}
}

func applyWatchFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Lookup("interval") == nil {
		return
	}
	durationFlag := func(name string, dst *string) {
		if flags.Changed(name) {
			d, _ := flags.GetDuration(name)
			*dst = d.String()
		}
	}
	durationFlag("interval", &cfg.Watch.Interval)
	durationFlag("kill-grace", &cfg.Watch.KillGrace)
	durationFlag("command-timeout", &cfg.Watch.CommandTimeout)
	if flags.Changed("kill-on-stop") {
		cfg.Watch.KillOnStop, _ = flags.GetBool("kill-on-stop")
	}
}

// reporterFor builds the reporter a command publishes to: terminal or JSON
// output on stdout, plus the component log.
func reporterFor(cmd *cobra.Command, logger *logrus.Entry) report.Reporter {
	out := cmd.OutOrStdout()
	if cli.GetOptions(cmd).JSONOutput {
		return report.Multi{report.NewJSONReporter(out), report.NewLogReporter(logger)}
	}
	console := report.NewConsoleReporter(out)
	console.Quiet, _ = cmd.Flags().GetBool("quiet")
	return report.Multi{console, report.NewLogReporter(logger)}
}

// warnIfWatched logs a warning when a watch session holds the clone, since
// a concurrent pull from this command can race it.
func warnIfWatched(logger *logrus.Entry, target git.RepositoryTarget) {
	running, pid, err := pidfile.IsRunning(paths.SessionLockPath(target.LocalPath))
	if err == nil && running {
		logger.WithFields(logrus.Fields{"pid": pid, "path": target.LocalPath}).
			Warn("A watch session is running on this clone")
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func workingDir() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return cwd
}

func durationOrNone(d time.Duration) string {
	if d <= 0 {
		return "none"
	}
	return d.String()
}
