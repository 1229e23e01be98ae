package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/grovetools/repowatch/command"
	"github.com/grovetools/repowatch/errors"
	"github.com/grovetools/repowatch/report"
	"github.com/sirupsen/logrus"
)

// CLISynchronizer implements Synchronizer by running the git CLI. Every git
// process's output is streamed through the runner's reporter, and each
// operation that changes the clone ends with a summary event.
type CLISynchronizer struct {
	runner   *command.Runner
	reporter report.Reporter
	logger   *logrus.Entry
}

// Ensure it implements the interfaces
var (
	_ Synchronizer        = (*CLISynchronizer)(nil)
	_ EnvironmentProvider = (*CLISynchronizer)(nil)
)

// NewCLISynchronizer creates a synchronizer that runs git through runner.
// Interactive credential prompts are disabled so that an unreachable or
// private remote fails instead of hanging the tick.
func NewCLISynchronizer(runner *command.Runner, logger *logrus.Entry) *CLISynchronizer {
	if runner == nil {
		runner = command.NewRunner()
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &CLISynchronizer{
		runner:   runner.WithEnv(map[string]string{"GIT_TERMINAL_PROMPT": "0"}),
		reporter: runner.Reporter(),
		logger:   logger,
	}
}

// Sync runs EnsureCloned, EnsureRemoteConfigured, Pull and HeadCommitHash in
// that order and stops at the first failure.
func (s *CLISynchronizer) Sync(ctx context.Context, t RepositoryTarget) (string, error) {
	if err := s.EnsureCloned(ctx, t); err != nil {
		return "", err
	}
	if err := s.EnsureRemoteConfigured(ctx, t); err != nil {
		return "", err
	}
	if err := s.Pull(ctx, t); err != nil {
		return "", err
	}
	return s.HeadCommitHash(ctx, t)
}

// EnsureCloned clones the remote into LocalPath unless that path already
// exists. An existing path is taken as a clone without further checks.
func (s *CLISynchronizer) EnsureCloned(ctx context.Context, t RepositoryTarget) error {
	log := s.logger.WithFields(logrus.Fields{"url": t.RemoteURL, "path": t.LocalPath})

	_, err := os.Stat(t.LocalPath)
	if err == nil {
		if !IsGitRepo(ctx, t.LocalPath) {
			log.Warn("Local path exists but is not a git repository")
		}
		log.Debug("Local path exists, skipping clone")
		return nil
	}
	if !os.IsNotExist(err) {
		return s.fail(report.OpClone, "Failed to clone the repository.", errors.CloneFailed(t.RemoteURL, t.LocalPath, err))
	}
	if err := s.runner.Builder().Validate("remoteURL", t.RemoteURL); err != nil {
		return s.fail(report.OpClone, "Failed to clone the repository.", errors.CloneFailed(t.RemoteURL, t.LocalPath, err))
	}

	parent := filepath.Dir(t.LocalPath)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return s.fail(report.OpClone, "Failed to clone the repository.", errors.DirectoryCreation(parent, err))
	}

	log.Info("Cloning repository")
	res := s.runner.RunArgs(ctx, report.OpClone, "", "git", "clone", t.RemoteURL, t.LocalPath)
	if !res.Succeeded {
		return s.fail(report.OpClone, "Failed to clone the repository.", errors.CloneFailed(t.RemoteURL, t.LocalPath, res.Err))
	}
	s.reporter.Report(report.Success(report.OpClone, "Repository cloned successfully!"))
	return nil
}

// EnsureRemoteConfigured adds RemoteName pointing at RemoteURL if it is not
// among the clone's remotes. It is a no-op when the remote already exists,
// whatever URL it points at.
func (s *CLISynchronizer) EnsureRemoteConfigured(ctx context.Context, t RepositoryTarget) error {
	const msg = "Failed to configure the remote."
	if err := s.runner.Builder().Validate("remoteName", t.RemoteName); err != nil {
		return s.fail(report.OpRemoteAdd, msg, errors.RemoteConfigFailed(t.RemoteName, t.RemoteURL, err))
	}

	out, err := s.runner.CaptureArgs(ctx, t.LocalPath, "git", "remote")
	if err != nil {
		return s.fail(report.OpRemoteAdd, msg, errors.RemoteConfigFailed(t.RemoteName, t.RemoteURL, err))
	}
	for _, name := range strings.Fields(out) {
		if name == t.RemoteName {
			return nil
		}
	}

	if err := s.runner.Builder().Validate("remoteURL", t.RemoteURL); err != nil {
		return s.fail(report.OpRemoteAdd, msg, errors.RemoteConfigFailed(t.RemoteName, t.RemoteURL, err))
	}
	s.logger.WithFields(logrus.Fields{"remote": t.RemoteName, "url": t.RemoteURL}).Info("Adding remote")
	res := s.runner.RunArgs(ctx, report.OpRemoteAdd, t.LocalPath, "git", "remote", "add", t.RemoteName, t.RemoteURL)
	if !res.Succeeded {
		return s.fail(report.OpRemoteAdd, msg, errors.RemoteConfigFailed(t.RemoteName, t.RemoteURL, res.Err))
	}
	s.reporter.Report(report.Success(report.OpRemoteAdd, fmt.Sprintf("Added remote '%s' -> %s", t.RemoteName, t.RemoteURL)))
	return nil
}

// Pull fetches and merges the current branch from RemoteName. A failure is
// returned as is; nothing is rolled back or retried.
func (s *CLISynchronizer) Pull(ctx context.Context, t RepositoryTarget) error {
	const msg = "Failed to update the repository."

	branch, err := s.CurrentBranch(ctx, t.LocalPath)
	if err != nil {
		return s.fail(report.OpPull, msg, errors.SyncFailed(t.RemoteName, t.LocalPath, err))
	}

	res := s.runner.RunArgs(ctx, report.OpPull, t.LocalPath, "git", "pull", t.RemoteName, branch)
	if !res.Succeeded {
		return s.fail(report.OpPull, msg, errors.SyncFailed(t.RemoteName, t.LocalPath, res.Err).WithDetail("branch", branch))
	}
	s.reporter.Report(report.Success(report.OpPull, "Repository updated successfully!"))
	return nil
}

// CurrentBranch returns the checked-out branch name. A detached HEAD is an
// error since there is no branch to pull.
func (s *CLISynchronizer) CurrentBranch(ctx context.Context, dir string) (string, error) {
	branch, err := s.runner.CaptureArgs(ctx, dir, "git", "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	if branch == "HEAD" {
		return "", fmt.Errorf("HEAD is detached in %s", dir)
	}
	if err := s.runner.Builder().Validate("gitRef", branch); err != nil {
		return "", err
	}
	return branch, nil
}

// HeadCommitHash returns HEAD's full hex commit identifier.
func (s *CLISynchronizer) HeadCommitHash(ctx context.Context, t RepositoryTarget) (string, error) {
	const msg = "Failed to read the latest commit."

	out, err := s.runner.CaptureArgs(ctx, t.LocalPath, "git", "rev-parse", "HEAD")
	if err != nil {
		return "", s.fail(report.OpHead, msg, errors.CommitLookupFailed(t.LocalPath, err))
	}
	if !plumbing.IsHash(out) {
		return "", s.fail(report.OpHead, msg,
			errors.CommitLookupFailed(t.LocalPath, fmt.Errorf("unexpected HEAD identifier %q", out)))
	}
	return out, nil
}

func (s *CLISynchronizer) fail(op report.Operation, msg string, err *errors.Error) error {
	s.logger.WithError(err).WithField("operation", op).Warn(msg)
	s.reporter.Report(report.Failure(op, msg, err))
	return err
}
