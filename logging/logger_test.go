package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// useStderr swaps the stderr sink and isolates the state dir for one test.
func useStderr(t *testing.T) *bytes.Buffer {
	t.Helper()
	t.Setenv("REPOWATCH_HOME", t.TempDir())
	var buf bytes.Buffer
	orig := stderr
	stderr = &buf
	Reset()
	t.Cleanup(func() {
		stderr = orig
		Reset()
	})
	return &buf
}

func TestNewLogger(t *testing.T) {
	useStderr(t)
	Configure(Config{})

	logger := NewLogger("test-component")
	require.NotNil(t, logger)
	assert.Equal(t, "test-component", logger.Data["component"])
	assert.Same(t, logger, NewLogger("test-component"))
}

func TestLoggerWritesToStderrWhenNotATerminal(t *testing.T) {
	buf := useStderr(t)
	Configure(Config{Format: FormatConfig{NoColor: true}})

	NewLogger("sched").WithField("interval", "60s").Info("Scheduler started")

	out := buf.String()
	assert.Contains(t, out, "[INFO]")
	assert.Contains(t, out, "[sched]")
	assert.Contains(t, out, "Scheduler started interval=60s")
}

func TestStructuredToStderrNever(t *testing.T) {
	buf := useStderr(t)
	Configure(Config{Format: FormatConfig{StructuredToStderr: "never"}})

	NewLogger("quiet").Error("not shown")
	assert.Empty(t, buf.String())
}

func TestDefaultFileSink(t *testing.T) {
	useStderr(t)
	Configure(Config{Format: FormatConfig{StructuredToStderr: "never"}})

	NewLogger("filesink").Warn("written to file")

	data, err := os.ReadFile(DefaultLogPath("filesink", time.Now()))
	require.NoError(t, err)
	assert.Contains(t, string(data), "[WARN] [filesink] written to file")
}

func TestJSONFileSink(t *testing.T) {
	useStderr(t)
	path := filepath.Join(t.TempDir(), "out.log")
	Configure(Config{
		File:   FileSinkConfig{Enabled: true, Path: path, Format: "json"},
		Format: FormatConfig{StructuredToStderr: "never"},
	})

	NewLogger("jsonsink").WithField("commit", "abc123").Info("changed")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &entry))
	assert.Equal(t, "changed", entry["msg"])
	assert.Equal(t, "abc123", entry["commit"])
	assert.Equal(t, "jsonsink", entry["component"])
}

func TestTextFormatter(t *testing.T) {
	tests := []struct {
		name    string
		config  FormatConfig
		entry   *logrus.Entry
		want    []string
		notWant []string
	}{
		{
			name:   "default format",
			config: FormatConfig{NoColor: true},
			entry: &logrus.Entry{
				Level:   logrus.InfoLevel,
				Message: "test message",
				Data: logrus.Fields{
					"component": "test-component",
					"b":         "2",
					"a":         "1",
				},
			},
			want: []string{"[INFO]", "[test-component]", "test message a=1 b=2"},
		},
		{
			name: "simple format",
			config: FormatConfig{
				DisableTimestamp: true,
				DisableComponent: true,
			},
			entry: &logrus.Entry{
				Level:   logrus.WarnLevel,
				Message: "warning message",
				Data:    logrus.Fields{"component": "test-component"},
			},
			want:    []string{"[WARN]", "warning message"},
			notWant: []string{"test-component"},
		},
		{
			name:   "caller information with function name",
			config: FormatConfig{NoColor: true},
			entry: func() *logrus.Entry {
				logger := logrus.New()
				logger.SetReportCaller(true)
				return &logrus.Entry{
					Logger:  logger,
					Level:   logrus.InfoLevel,
					Message: "test message with caller",
					Data:    logrus.Fields{"component": "test-component"},
					Caller: &runtime.Frame{
						File:     "/path/to/file.go",
						Line:     42,
						Function: "github.com/example/package.TestFunction",
					},
				}
			}(),
			want: []string{"[file.go:42 package.TestFunction]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formatter := &TextFormatter{Config: tt.config}
			output, err := formatter.Format(tt.entry)
			require.NoError(t, err)

			for _, want := range tt.want {
				assert.Contains(t, string(output), want)
			}
			for _, notWant := range tt.notWant {
				assert.NotContains(t, string(output), notWant)
			}
		})
	}
}

func TestEnvironmentVariables(t *testing.T) {
	useStderr(t)
	t.Setenv("REPOWATCH_LOG_LEVEL", "debug")
	t.Setenv("REPOWATCH_LOG_CALLER", "true")
	Configure(Config{Level: "error"})

	logger := NewLogger("env-test")
	assert.Equal(t, logrus.DebugLevel, logger.Logger.Level)
	assert.True(t, logger.Logger.ReportCaller)
}

func TestGenerateSchema(t *testing.T) {
	data, err := GenerateSchema()
	require.NoError(t, err)
	s := string(data)
	assert.Contains(t, s, `"structured_to_stderr"`)
	assert.NotContains(t, s, `"required"`)
	assert.False(t, strings.Contains(s, "$ref"), "nested sections should be inlined")
}

func TestPrettyLogger(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrettyLogger().WithWriter(&buf)
	p.Field("Language", "Maven")
	p.Code("")
	p.Code("mvn clean install")

	out := buf.String()
	assert.Contains(t, out, "Language")
	assert.Contains(t, out, "(none)")
	assert.Contains(t, out, "mvn clean install")
}
