package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/grovetools/repowatch/command"
	"github.com/grovetools/repowatch/errors"
	"github.com/grovetools/repowatch/git"
	"github.com/grovetools/repowatch/internal/pidfile"
	"github.com/grovetools/repowatch/report"
	"github.com/sirupsen/logrus"
)

// Scripts is the set of commands run when a change is detected.
type Scripts struct {
	Build    command.Script
	Test     command.Script
	RunTests bool
	// NoTestsReason is reported instead of a test run when RunTests is set
	// but Test is empty.
	NoTestsReason string
}

// ScriptSource supplies the current Scripts on every change, so scripts
// edited while a session runs take effect on the next build.
type ScriptSource interface {
	Scripts() Scripts
}

// NoBuildScript is reported for a change when there is no build script to
// run.
const NoBuildScript = "No build script configured and none detected."

// ChangeFunc is called with the new HEAD hash when a tick observes a change.
type ChangeFunc func(ctx context.Context, hash string)

// Options configures a Session.
type Options struct {
	Target   git.RepositoryTarget
	Interval time.Duration
	Scripts  Scripts

	// Source overrides Scripts when set.
	Source ScriptSource

	// OnChange replaces the default build-then-test reaction.
	OnChange ChangeFunc

	Synchronizer git.Synchronizer
	Runner       *command.Runner
	Reporter     report.Reporter
	Logger       *logrus.Entry

	// LockPath, when set, names a pid file that keeps a second session off
	// the same clone.
	LockPath string
}

// Status is a point-in-time view of a session.
type Status struct {
	Target    git.RepositoryTarget      `json:"target"`
	Interval  time.Duration             `json:"interval"`
	State     SyncState                 `json:"state"`
	Running   bool                      `json:"running"`
	Busy      bool                      `json:"busy"`
	Ticks     int64                     `json:"ticks"`
	Skipped   int64                     `json:"skipped"`
	LastBuild *command.ScriptRunSummary `json:"last_build,omitempty"`
	LastTest  *command.ScriptRunSummary `json:"last_test,omitempty"`
}

// Session owns one target, its sync state and its schedule.
type Session struct {
	opts     Options
	target   git.RepositoryTarget
	interval time.Duration
	sync     git.Synchronizer
	runner   *command.Runner
	reporter report.Reporter
	logger   *logrus.Entry
	detector *Detector

	mu        sync.Mutex
	handle    *Handle
	done      chan struct{}
	lastBuild *command.ScriptRunSummary
	lastTest  *command.ScriptRunSummary
	locked    bool
}

// NewSession validates opts and fills in defaults. Nothing runs until Start.
func NewSession(opts Options) (*Session, error) {
	if opts.Target.RemoteURL == "" {
		return nil, errors.InvalidInput("target", "remote URL is required")
	}
	if opts.Target.LocalPath == "" {
		return nil, errors.InvalidInput("target", "local path is required")
	}
	if opts.Target.RemoteName == "" {
		opts.Target.RemoteName = git.DefaultRemoteName
	}
	if opts.Interval < 0 {
		return nil, errors.InvalidInput("interval", fmt.Sprintf("must not be negative, got %s", opts.Interval))
	}
	if opts.Interval == 0 {
		opts.Interval = DefaultInterval
	}

	s := &Session{
		opts:     opts,
		target:   opts.Target,
		interval: opts.Interval,
		reporter: opts.Reporter,
		logger:   opts.Logger,
		detector: NewDetector(),
	}
	if s.logger == nil {
		s.logger = logrus.NewEntry(logrus.StandardLogger())
	}
	s.logger = s.logger.WithField("repo", s.target.Name())

	s.runner = opts.Runner
	if s.runner == nil {
		s.runner = command.NewRunner(command.WithReporter(s.reporter), command.WithLogger(s.logger))
	}
	if s.reporter == nil {
		s.reporter = s.runner.Reporter()
	}
	s.sync = opts.Synchronizer
	if s.sync == nil {
		s.sync = git.NewCLISynchronizer(s.runner, s.logger)
	}
	return s, nil
}

// Target returns the session's repository target.
func (s *Session) Target() git.RepositoryTarget { return s.target }

// Start creates the clone root, takes the session lock and begins polling.
// Failure to create the root is fatal and returned here.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle != nil {
		return errors.New(errors.ErrCodeSessionRunning, "session already started")
	}

	root := filepath.Dir(s.target.LocalPath)
	if err := git.EnsureRoot(root); err != nil {
		return s.fatal(errors.DirectoryCreation(root, err))
	}

	if s.opts.LockPath != "" {
		if err := pidfile.Acquire(s.opts.LockPath); err != nil {
			return s.fatal(err)
		}
		s.locked = true
	}

	s.logger.WithFields(logrus.Fields{
		"url":      s.target.RemoteURL,
		"path":     s.target.LocalPath,
		"interval": s.interval,
	}).Info("Watch session started")
	s.reporter.Report(report.Success(report.OpSession,
		fmt.Sprintf("Watching %s every %s", s.target.RemoteURL, s.interval)))

	h, err := NewScheduler(s.logger).Start(ctx, s.interval, s.tick)
	if err != nil {
		s.releaseLock()
		return s.fatal(err)
	}
	s.handle = h
	s.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		err := h.Wait()
		s.mu.Lock()
		s.releaseLock()
		s.mu.Unlock()
		if err != nil {
			s.reporter.Report(report.Failure(report.OpSession, "Watch session stopped.", err))
			return
		}
		s.reporter.Report(report.Success(report.OpSession, "Watch session stopped."))
	}(s.done)

	return nil
}

func (s *Session) fatal(err error) error {
	s.logger.WithError(err).Error("Cannot start watch session")
	s.reporter.Report(report.Failure(report.OpSession, "Cannot start watch session.", err))
	return err
}

func (s *Session) releaseLock() {
	if !s.locked {
		return
	}
	if err := pidfile.Release(s.opts.LockPath); err != nil {
		s.logger.WithError(err).Warn("Failed to release session lock")
	}
	s.locked = false
}

// Stop cancels future ticks and lets a running one finish.
func (s *Session) Stop() {
	if h := s.currentHandle(); h != nil {
		h.Stop()
	}
}

// Kill cancels future ticks and terminates any running build, test or git
// process.
func (s *Session) Kill() {
	if h := s.currentHandle(); h != nil {
		h.Kill()
	}
}

// Wait blocks until the session has stopped and its last tick finished. It
// returns the fatal error that ended the session, if any.
func (s *Session) Wait() error {
	h := s.currentHandle()
	if h == nil {
		return nil
	}
	<-s.Done()
	return h.Err()
}

// Done is closed when the session has fully stopped and released its lock.
// It is nil before Start.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

func (s *Session) currentHandle() *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle
}

// Status returns a snapshot of the session.
func (s *Session) Status() Status {
	s.mu.Lock()
	st := Status{
		Target:    s.target,
		Interval:  s.interval,
		LastBuild: s.lastBuild,
		LastTest:  s.lastTest,
	}
	h := s.handle
	s.mu.Unlock()

	st.State = s.detector.State()
	if h != nil {
		select {
		case <-h.Done():
		default:
			st.Running = true
		}
		st.Busy = h.Running()
		st.Ticks = h.Ticks()
		st.Skipped = h.Skipped()
	}
	return st
}

// Tick runs one poll cycle synchronously: sync, compare, and react to a
// change. The scheduler calls it on every tick.
func (s *Session) Tick(ctx context.Context) Outcome {
	hash, err := s.sync.Sync(ctx, s.target)
	outcome := s.detector.Observe(hash, err)
	log := s.logger.WithField("outcome", outcome.String())

	switch outcome {
	case OutcomeSyncFailed:
		state := s.detector.State()
		log.WithError(err).WithField("consecutive_failures", state.ConsecutiveFailureCount).Warn("Sync failed")
		s.reporter.Report(report.Failure(report.OpSync,
			fmt.Sprintf("Sync failed (%d consecutive), retrying in %s", state.ConsecutiveFailureCount, s.interval), err))
		if errors.IsFatal(err) {
			if h := s.currentHandle(); h != nil {
				h.Fail(err)
			}
		}
	case OutcomeUnchanged:
		log.WithField("commit", hash).Debug("No new commits")
	case OutcomeChanged:
		log.WithField("commit", hash).Info("New commit detected")
		s.reporter.Report(report.Success(report.OpSync, fmt.Sprintf("New commit %s", shortHash(hash))))
		s.onChange(ctx, hash)
	}
	return outcome
}

func (s *Session) tick(ctx context.Context) {
	s.Tick(ctx)
}

func (s *Session) onChange(ctx context.Context, hash string) {
	if s.opts.OnChange != nil {
		s.opts.OnChange(ctx, hash)
		return
	}
	s.buildAndTest(ctx, hash)
}

func (s *Session) scripts() Scripts {
	if s.opts.Source != nil {
		return s.opts.Source.Scripts()
	}
	return s.opts.Scripts
}

// buildAndTest runs the build script and, if enabled, the test script in the
// clone. Tests run whatever the build outcome, so a broken build still shows
// which tests fail.
func (s *Session) buildAndTest(ctx context.Context, hash string) {
	scripts := s.scripts()

	runner := s.runner
	if ep, ok := s.sync.(git.EnvironmentProvider); ok {
		runner = runner.WithEnv(ep.GetEnvironmentVars(ctx, s.target, hash).ToMap())
	}

	if scripts.Build.Empty() {
		s.logger.WithField("commit", shortHash(hash)).Warn(NoBuildScript)
		s.reporter.Report(report.Failure(report.OpBuild, NoBuildScript,
			errors.InvalidInput("build", "no build script configured and none detected")))
	} else {
		build := runner.Run(ctx, report.OpBuild, scripts.Build, s.target.LocalPath)
		s.mu.Lock()
		s.lastBuild = &build
		s.mu.Unlock()
	}

	if !scripts.RunTests || ctx.Err() != nil {
		return
	}
	if scripts.Test.Empty() {
		reason := scripts.NoTestsReason
		if reason == "" {
			reason = "No tests configured."
		}
		s.reporter.Report(report.Success(report.OpTest, reason))
		return
	}
	test := runner.Run(ctx, report.OpTest, scripts.Test, s.target.LocalPath)
	s.mu.Lock()
	s.lastTest = &test
	s.mu.Unlock()
}

func shortHash(h string) string {
	if len(h) > 7 {
		return h[:7]
	}
	return h
}
