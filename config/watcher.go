package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/grovetools/repowatch/report"
	"github.com/grovetools/repowatch/watch"
	"github.com/sirupsen/logrus"
)

// DefaultDebounce is how long the watcher waits after the last write before
// reloading.
const DefaultDebounce = 250 * time.Millisecond

// ScriptWatcher keeps the build and test scripts in sync with the config
// file while a session runs. Only scripts are reloaded; the repository and
// schedule settings of a running session never change.
type ScriptWatcher struct {
	watcher  *fsnotify.Watcher
	startDir string
	files    map[string]bool
	debounce time.Duration
	apply    func(*Config)
	logger   *logrus.Entry
	reporter report.Reporter

	mu      sync.RWMutex
	scripts watch.Scripts
	timer   *time.Timer
	reloads int
}

// WatcherOption configures a ScriptWatcher.
type WatcherOption func(*ScriptWatcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *ScriptWatcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithOverrides registers a function applied to every reloaded config before
// its scripts are taken, so command-line flags keep precedence.
func WithOverrides(fn func(*Config)) WatcherOption {
	return func(w *ScriptWatcher) { w.apply = fn }
}

// WithWatcherLogger sets the watcher's logger.
func WithWatcherLogger(l *logrus.Entry) WatcherOption {
	return func(w *ScriptWatcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithWatcherReporter receives a config summary after every reload attempt.
func WithWatcherReporter(r report.Reporter) WatcherOption {
	return func(w *ScriptWatcher) {
		if r != nil {
			w.reporter = r
		}
	}
}

// NewScriptWatcher watches the project config found from startDir, plus its
// override files. initial is served until the first successful reload.
// The directory is watched rather than the file so editors that replace the
// file on save are still seen.
func NewScriptWatcher(startDir string, initial watch.Scripts, opts ...WatcherOption) (*ScriptWatcher, error) {
	projectPath, err := FindConfigFile(startDir)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(projectPath)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	files := map[string]bool{filepath.Base(projectPath): true}
	for _, name := range overrideNames {
		files[name] = true
	}

	w := &ScriptWatcher{
		watcher:  watcher,
		startDir: startDir,
		files:    files,
		debounce: DefaultDebounce,
		logger:   logrus.NewEntry(logrus.StandardLogger()).WithField("component", "script-watcher"),
		reporter: report.Discard,
		scripts:  initial,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger.WithField("path", projectPath).Debug("Watching config for script changes")
	return w, nil
}

// Scripts returns the most recently loaded scripts. It implements
// watch.ScriptSource.
func (w *ScriptWatcher) Scripts() watch.Scripts {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.scripts
}

// Reloads returns how many reloads have succeeded.
func (w *ScriptWatcher) Reloads() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.reloads
}

// Start processes file events until ctx is cancelled or the watcher is
// closed. It blocks.
func (w *ScriptWatcher) Start(ctx context.Context) {
	defer w.stopTimer()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !w.files[filepath.Base(event.Name)] {
				continue
			}
			w.logger.Debugf("fsnotify event: %s op=%v", event.Name, event.Op)
			w.schedule()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Error("Watcher error")
		case <-ctx.Done():
			w.watcher.Close()
			return
		}
	}
}

// schedule coalesces bursts of writes into one reload after the debounce.
func (w *ScriptWatcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() { _ = w.Reload() })
}

func (w *ScriptWatcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

// Reload loads the layered config now. On failure the previous scripts stay
// in effect.
func (w *ScriptWatcher) Reload() error {
	cfg, err := LoadFromWithLogger(w.startDir, w.logger.Logger)
	if err != nil {
		w.logger.WithError(err).Warn("Config reload failed, keeping previous scripts")
		w.reporter.Report(report.Failure(report.OpConfig, "Config reload failed, keeping previous scripts.", err))
		return err
	}
	if w.apply != nil {
		w.apply(cfg)
	}
	scripts := cfg.Scripts()

	w.mu.Lock()
	w.scripts = scripts
	w.reloads++
	w.mu.Unlock()

	w.logger.WithFields(logrus.Fields{
		"build": len(scripts.Build),
		"test":  len(scripts.Test),
	}).Info("Scripts reloaded")
	w.reporter.Report(report.Success(report.OpConfig, "Build and test scripts reloaded."))
	return nil
}

// Close stops the watcher and releases resources.
func (w *ScriptWatcher) Close() error {
	w.stopTimer()
	return w.watcher.Close()
}
