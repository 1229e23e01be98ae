package profiling

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpansDisabledByDefault(t *testing.T) {
	Reset()
	Start("sync").Stop()

	var buf bytes.Buffer
	Summarize(&buf)
	assert.Empty(t, buf.String())
}

func TestSummarizeNestsSpans(t *testing.T) {
	Reset()
	Enable()
	t.Cleanup(Reset)

	run := Start("run")
	Start("sync").Stop()
	build := Start("build")
	build.Stop()
	run.Stop()
	Start("test").Stop()

	var buf bytes.Buffer
	Summarize(&buf)
	out := buf.String()

	assert.Contains(t, out, "Timing Profile")
	assert.Contains(t, out, "\n  - run (")
	assert.Contains(t, out, "\n    - sync (")
	assert.Contains(t, out, "\n    - build (")
	assert.Contains(t, out, "\n  - test (")
}
