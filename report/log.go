package report

import (
	"github.com/sirupsen/logrus"
)

// LogReporter writes events to a logrus entry. Output lines are logged at
// debug level so they only show up with verbose logging; summaries are
// logged at info or error level.
type LogReporter struct {
	Logger *logrus.Entry
}

// NewLogReporter creates a LogReporter.
func NewLogReporter(logger *logrus.Entry) *LogReporter {
	return &LogReporter{Logger: logger}
}

// Report logs e.
func (l *LogReporter) Report(e Event) {
	switch ev := e.(type) {
	case LineEvent:
		l.Logger.WithFields(logrus.Fields{
			"operation": ev.Operation,
			"command":   ev.Command,
			"stream":    ev.Stream,
		}).Debug(ev.Text)
	case SummaryEvent:
		entry := l.Logger.WithField("operation", ev.Operation)
		if ev.RunID != "" {
			entry = entry.WithField("run_id", ev.RunID)
		}
		if ev.Succeeded {
			entry.Info(ev.Message)
			return
		}
		if ev.Err != nil {
			entry = entry.WithError(ev.Err)
		}
		entry.Error(ev.Message)
	}
}
