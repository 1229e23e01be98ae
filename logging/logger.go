// Package logging builds the per-component logrus loggers used across
// repowatch.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/grovetools/repowatch/config"
	"github.com/grovetools/repowatch/pkg/paths"
	"github.com/grovetools/repowatch/util/pathutil"
	"github.com/grovetools/repowatch/util/sanitize"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var (
	loggers   = make(map[string]*logrus.Entry)
	loggersMu sync.Mutex

	// override, when set, replaces the logging section read from disk.
	override *Config
	// stderr is where structured logs go when the stderr sink is active.
	stderr io.Writer = os.Stderr
)

// Configure sets the logging configuration for loggers created afterwards
// and drops the cached ones. The CLI calls it once the --config file is
// known.
func Configure(cfg Config) {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	override = &cfg
	loggers = make(map[string]*logrus.Entry)
}

// FromConfig extracts the logging section of a loaded repowatch config.
func FromConfig(cfg *config.Config) (Config, error) {
	var logCfg Config
	if cfg == nil {
		return logCfg, nil
	}
	err := cfg.UnmarshalExtension("logging", &logCfg)
	return logCfg, err
}

// Reset drops cached loggers and any configuration set with Configure.
func Reset() {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	override = nil
	loggers = make(map[string]*logrus.Entry)
}

// NewLogger creates and returns a pre-configured logger for a specific component.
// It uses a singleton pattern per component to avoid re-initializing.
func NewLogger(component string) *logrus.Entry {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if logger, exists := loggers[component]; exists {
		return logger
	}

	var logCfg Config
	if override != nil {
		logCfg = *override
	} else if cfg, err := config.LoadDefault(); err == nil {
		if err := cfg.UnmarshalExtension("logging", &logCfg); err != nil {
			logrus.Warnf("Failed to parse 'logging' config: %v", err)
		}
	}

	entry := build(component, logCfg).WithField("component", component)
	loggers[component] = entry
	return entry
}

func build(component string, logCfg Config) *logrus.Logger {
	logger := logrus.New()

	levelStr := "info"
	if env := os.Getenv("REPOWATCH_LOG_LEVEL"); env != "" {
		levelStr = env
	} else if logCfg.Level != "" {
		levelStr = logCfg.Level
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if os.Getenv("REPOWATCH_LOG_CALLER") == "true" || logCfg.ReportCaller {
		logger.SetReportCaller(true)
	}

	logger.SetFormatter(formatterFor(logCfg))

	logFilePath := DefaultLogPath(component, time.Now())
	if logCfg.File.Enabled && logCfg.File.Path != "" {
		if expanded, err := pathutil.Expand(logCfg.File.Path); err == nil {
			logFilePath = expanded
		}
	}
	if file := openLogFile(logger, logFilePath, logCfg.File.Enabled); file != nil {
		var fileFormatter logrus.Formatter = &TextFormatter{Config: FormatConfig{NoColor: true}}
		if logCfg.File.Format == "json" {
			fileFormatter = &logrus.JSONFormatter{}
		}
		logger.AddHook(&fileHook{w: file, formatter: fileFormatter})
	}

	if shouldLogToStderr(logCfg, logger.GetLevel()) {
		logger.SetOutput(stderr)
	} else {
		// Quiet interactive use: the reporter owns the terminal.
		logger.SetOutput(io.Discard)
	}
	return logger
}

func formatterFor(logCfg Config) logrus.Formatter {
	switch logCfg.Format.Preset {
	case "json":
		return &logrus.JSONFormatter{}
	case "simple":
		return &TextFormatter{Config: FormatConfig{
			DisableTimestamp: true,
			DisableComponent: true,
			NoColor:          logCfg.Format.NoColor,
		}}
	default:
		return &TextFormatter{Config: logCfg.Format}
	}
}

func openLogFile(logger *logrus.Logger, path string, explicit bool) *os.File {
	if path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		// Only an explicitly configured sink is worth a warning.
		if explicit {
			logger.Warnf("Failed to create log directory %s: %v", dir, err)
		}
		return nil
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		if explicit {
			logger.Warnf("Failed to open log file %s: %v", path, err)
		}
		return nil
	}
	return file
}

// shouldLogToStderr implements structured_to_stderr. In "auto" mode
// structured logs reach stderr only when debugging or when stderr is not a
// terminal (piped, CI).
func shouldLogToStderr(logCfg Config, level logrus.Level) bool {
	mode := "auto"
	if logCfg.Format.StructuredToStderr != "" {
		mode = logCfg.Format.StructuredToStderr
	}

	switch mode {
	case "always":
		return true
	case "never":
		return false
	}

	isDebug := os.Getenv("REPOWATCH_DEBUG") == "1" || level >= logrus.DebugLevel
	f, ok := stderr.(*os.File)
	isInteractive := ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
	return isDebug || !isInteractive
}

// DefaultLogPath is the log file a component writes to on the given day.
func DefaultLogPath(component string, day time.Time) string {
	dir := paths.LogsDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, fmt.Sprintf("%s-%s.log", sanitize.ForFilename(component), day.Format("2006-01-02")))
}

// fileHook writes every entry to a file sink in its own format, independent
// of the formatter used for stderr.
type fileHook struct {
	mu        sync.Mutex
	w         io.Writer
	formatter logrus.Formatter
}

func (h *fileHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *fileHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.w.Write(line)
	return err
}
