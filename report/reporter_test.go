package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelReporterPreservesOrder(t *testing.T) {
	r := NewChannelReporter(4)

	var got []Event
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for e := range r.Events() {
			got = append(got, e)
		}
	}()

	for i := 0; i < 50; i++ {
		r.Report(LineEvent{Operation: OpBuild, Command: "make", Stream: Stdout, Text: fmt.Sprintf("line %d", i)})
	}
	r.Report(Success(OpBuild, "done"))
	r.Close()
	wg.Wait()

	require.Len(t, got, 51)
	for i := 0; i < 50; i++ {
		assert.Equal(t, fmt.Sprintf("line %d", i), got[i].(LineEvent).Text)
	}
	assert.Equal(t, OpBuild, got[50].Op())
}

func TestChannelReporterCloseUnblocksSenders(t *testing.T) {
	r := NewChannelReporter(0)

	done := make(chan struct{})
	go func() {
		r.Report(Success(OpPull, "nobody is listening"))
		close(done)
	}()

	r.Close()
	<-done

	// Reporting after close is a no-op rather than a panic.
	r.Report(Success(OpPull, "late"))
	r.Close()
}

func TestMultiAndRecorder(t *testing.T) {
	var a, b Recorder
	m := Multi{&a, nil, &b}

	m.Report(LineEvent{Operation: OpTest, Text: "x"})
	m.Report(Failure(OpTest, "tests failed", fmt.Errorf("exit 1")))

	for _, rec := range []*Recorder{&a, &b} {
		assert.Len(t, rec.Events(), 2)
		assert.Len(t, rec.Lines(OpTest), 1)
		assert.Len(t, rec.Lines(OpBuild), 0)
		sums := rec.Summaries("")
		require.Len(t, sums, 1)
		assert.False(t, sums[0].Succeeded)
	}

	a.Reset()
	assert.Empty(t, a.Events())
}

func TestLogReporter(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetLevel(logrus.DebugLevel)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableColors: true})

	r := NewLogReporter(logger.WithField("component", "test"))
	r.Report(LineEvent{Operation: OpBuild, Command: "echo hi", Stream: Stdout, Text: "hi"})
	r.Report(Failure(OpPull, "Failed to update the repository.", fmt.Errorf("exit status 1")))

	out := buf.String()
	assert.Contains(t, out, "level=debug msg=hi")
	assert.Contains(t, out, "command=\"echo hi\"")
	assert.Contains(t, out, "level=error")
	assert.Contains(t, out, "exit status 1")
}

func TestConsoleReporterAttributesLines(t *testing.T) {
	lipgloss.SetColorProfile(termenv.Ascii)

	var buf bytes.Buffer
	c := NewConsoleReporter(&buf)

	c.Report(LineEvent{Operation: OpBuild, Command: "echo hi", Index: 0, Stream: Stdout, Text: "hi"})
	c.Report(LineEvent{Operation: OpBuild, Command: "echo hi", Index: 0, Stream: Stderr, Text: "warn"})
	c.Report(LineEvent{Operation: OpBuild, Command: "echo bye", Index: 1, Stream: Stdout, Text: "bye"})
	c.Report(Failure(OpBuild, "Build failed", nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "[build] $ echo hi", lines[0])
	assert.Equal(t, "  │ hi", lines[1])
	assert.Equal(t, "  │ warn", lines[2])
	assert.Equal(t, "[build] $ echo bye", lines[3])
	assert.Equal(t, "  │ bye", lines[4])
	assert.Equal(t, "✗ [build] Build failed", lines[5])
}

func TestConsoleReporterQuiet(t *testing.T) {
	lipgloss.SetColorProfile(termenv.Ascii)

	var buf bytes.Buffer
	c := NewConsoleReporter(&buf)
	c.Quiet = true

	c.Report(LineEvent{Operation: OpBuild, Command: "echo hi", Text: "hi"})
	c.Report(Success(OpBuild, "Build Successful!"))

	assert.Equal(t, "✓ [build] Build Successful!\n", buf.String())
}

func TestJSONReporterWritesOneObjectPerEvent(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSONReporter(&buf)
	r.Report(LineEvent{Operation: OpBuild, Command: "make", Stream: Stderr, Text: "warning"})
	r.Report(Failure(OpPull, "Pull failed", fmt.Errorf("diverged")))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &line))
	assert.Equal(t, "line", line["type"])
	assert.Equal(t, "stderr", line["stream"])
	assert.Equal(t, "warning", line["text"])

	var summary map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &summary))
	assert.Equal(t, "summary", summary["type"])
	assert.Equal(t, false, summary["succeeded"])
	assert.Equal(t, "diverged", summary["error"])
}
