package command

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/grovetools/repowatch/errors"
	"github.com/grovetools/repowatch/pkg/process"
	"github.com/grovetools/repowatch/report"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultKillGrace is how long a cancelled command gets between SIGTERM and
// SIGKILL.
const DefaultKillGrace = 5 * time.Second

// ExecutionResult is the outcome of one command invocation.
type ExecutionResult struct {
	Command     string        `json:"command"`
	Index       int           `json:"index"`
	ExitCode    int           `json:"exit_code"`
	StdoutLines []string      `json:"stdout"`
	StderrLines []string      `json:"stderr"`
	Succeeded   bool          `json:"succeeded"`
	Duration    time.Duration `json:"duration"`
	// Err is set when the command did not exit zero, including when it could
	// not be started at all.
	Err error `json:"-"`
}

// DurationMs returns the wall time in milliseconds.
func (r ExecutionResult) DurationMs() int64 {
	return r.Duration.Milliseconds()
}

// ScriptRunSummary collects the results of one script run.
type ScriptRunSummary struct {
	Name               report.Operation  `json:"name"`
	RunID              string            `json:"run_id"`
	Results            []ExecutionResult `json:"results"`
	AggregateSucceeded bool              `json:"aggregate_succeeded"`
	// Cancelled is set when the run context ended before every command was
	// started; remaining commands were skipped.
	Cancelled bool          `json:"cancelled,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Failed returns the results that did not succeed.
func (s ScriptRunSummary) Failed() []ExecutionResult {
	var out []ExecutionResult
	for _, r := range s.Results {
		if !r.Succeeded {
			out = append(out, r)
		}
	}
	return out
}

// Runner executes scripts and single commands, streaming their output to a
// Reporter.
type Runner struct {
	builder   *SafeBuilder
	reporter  report.Reporter
	logger    *logrus.Entry
	timeout   time.Duration
	killGrace time.Duration
	env       []string
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithExecutor substitutes the process factory.
func WithExecutor(e Executor) RunnerOption {
	return func(r *Runner) { r.builder = NewSafeBuilderWithExecutor(e) }
}

// WithReporter sets where output lines and summaries go.
func WithReporter(rep report.Reporter) RunnerOption {
	return func(r *Runner) {
		if rep != nil {
			r.reporter = rep
		}
	}
}

// WithLogger sets the runner's logger.
func WithLogger(l *logrus.Entry) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithCommandTimeout bounds every script command. Zero means no limit.
func WithCommandTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) { r.timeout = clampTimeout(d) }
}

// WithKillGrace sets the delay between SIGTERM and SIGKILL when a command
// is cancelled.
func WithKillGrace(d time.Duration) RunnerOption {
	return func(r *Runner) { r.killGrace = d }
}

// NewRunner creates a Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		builder:   NewSafeBuilder(),
		reporter:  report.Discard,
		logger:    logrus.NewEntry(logrus.StandardLogger()),
		killGrace: DefaultKillGrace,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithEnv returns a copy of the runner whose commands see vars on top of the
// current process environment.
func (r *Runner) WithEnv(vars map[string]string) *Runner {
	cpy := *r
	cpy.env = append([]string(nil), r.env...)
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		cpy.env = append(cpy.env, k+"="+vars[k])
	}
	return &cpy
}

func (r *Runner) applyEnv(ec *exec.Cmd) {
	if len(r.env) > 0 {
		ec.Env = append(os.Environ(), r.env...)
	}
}

// Builder returns the runner's command builder.
func (r *Runner) Builder() *SafeBuilder { return r.builder }

// Reporter returns the runner's reporter.
func (r *Runner) Reporter() report.Reporter { return r.reporter }

// Run executes every command of script in order inside workDir. A failing
// command does not stop the run; its result is recorded and the next command
// starts. Only cancellation of ctx stops further commands from starting.
func (r *Runner) Run(ctx context.Context, op report.Operation, script Script, workDir string) ScriptRunSummary {
	summary := ScriptRunSummary{
		Name:               op,
		RunID:              uuid.NewString(),
		AggregateSucceeded: true,
	}
	start := time.Now()
	log := r.logger.WithFields(logrus.Fields{"operation": op, "run_id": summary.RunID})
	log.WithField("commands", len(script)).Debug("Starting script run")

	for i, line := range script {
		if ctx.Err() != nil {
			summary.Cancelled = true
			summary.AggregateSucceeded = false
			log.WithField("skipped", len(script)-i).Warn("Script run cancelled")
			break
		}
		res := r.runLine(ctx, op, summary.RunID, i, line, workDir)
		summary.Results = append(summary.Results, res)
		summary.AggregateSucceeded = summary.AggregateSucceeded && res.Succeeded
	}
	summary.Duration = time.Since(start)

	r.reporter.Report(scriptSummary(summary, len(script)))
	return summary
}

func scriptSummary(s ScriptRunSummary, total int) report.SummaryEvent {
	title := string(s.Name)
	if title != "" {
		title = strings.ToUpper(title[:1]) + title[1:]
	}
	var ev report.SummaryEvent
	switch {
	case s.Cancelled:
		ev = report.Failure(s.Name, fmt.Sprintf("%s cancelled after %d of %d commands", title, len(s.Results), total), nil)
	case s.AggregateSucceeded:
		ev = report.Success(s.Name, fmt.Sprintf("%s succeeded (%d commands in %s)", title, total, s.Duration.Round(time.Millisecond)))
	default:
		failed := s.Failed()
		ev = report.Failure(s.Name, fmt.Sprintf("%s failed: %d of %d commands failed, first: %q exit code %d",
			title, len(failed), total, failed[0].Command, failed[0].ExitCode), failed[0].Err)
	}
	ev.RunID = s.RunID
	return ev
}

func (r *Runner) runLine(ctx context.Context, op report.Operation, runID string, index int, line, workDir string) ExecutionResult {
	cmd, err := r.builder.Shell(ctx, line)
	if err != nil {
		return r.startFailure(op, runID, index, line, err)
	}
	cmd.WithTimeout(r.timeout)
	return r.execute(op, runID, index, cmd, workDir)
}

// RunArgs runs name with args directly, without a shell, streaming output
// under op. It is used for tool invocations whose arguments must be passed
// through verbatim.
func (r *Runner) RunArgs(ctx context.Context, op report.Operation, workDir string, name string, args ...string) ExecutionResult {
	cmd, err := r.builder.Build(ctx, name, args...)
	if err != nil {
		return r.startFailure(op, "", 0, strings.TrimSpace(name+" "+strings.Join(args, " ")), err)
	}
	return r.execute(op, "", 0, cmd, workDir)
}

func (r *Runner) startFailure(op report.Operation, runID string, index int, line string, err error) ExecutionResult {
	res := ExecutionResult{
		Command:     line,
		Index:       index,
		ExitCode:    -1,
		StderrLines: []string{err.Error()},
		Err:         errors.CommandFailed(line, err),
	}
	r.reporter.Report(report.LineEvent{
		Operation: op, RunID: runID, Command: line, Index: index,
		Stream: report.Stderr, Text: err.Error(), Time: time.Now(),
	})
	return res
}

// execute starts cmd, drains stdout and stderr concurrently, and waits. Once
// the command has exited, output still held open by its background children
// is read for at most the kill grace period.
func (r *Runner) execute(op report.Operation, runID string, index int, cmd *Command, workDir string) ExecutionResult {
	line := cmd.String()
	res := ExecutionResult{Command: line, Index: index}
	log := r.logger.WithFields(logrus.Fields{"operation": op, "command": line, "dir": workDir})

	ec := cmd.Exec()
	defer cmd.Release()
	ec.Dir = workDir
	r.applyEnv(ec)
	process.SetProcessGroup(ec)
	// Cancellation and timeouts terminate the whole group; the escalation to
	// SIGKILL is handled below once the process has started.
	ec.Cancel = func() error { return process.TerminateGroup(ec) }

	// exec copies the output into these pipes, so WaitDelay can stop the
	// copy when a background child keeps the output open after the command
	// itself has exited.
	stdout, stdoutW := io.Pipe()
	stderr, stderrW := io.Pipe()
	ec.Stdout = stdoutW
	ec.Stderr = stderrW
	ec.WaitDelay = r.killGrace

	start := time.Now()
	if err := ec.Start(); err != nil {
		stdoutW.Close()
		stderrW.Close()
		log.WithError(err).Debug("Command failed to start")
		res := r.startFailure(op, runID, index, line, err)
		res.Duration = time.Since(start)
		return res
	}

	exited := make(chan struct{})
	go func() {
		select {
		case <-cmd.Done():
			process.Stop(ec, r.killGrace, exited)
		case <-exited:
		}
	}()

	emit := func(stream report.Stream) func(string) {
		return func(text string) {
			r.reporter.Report(report.LineEvent{
				Operation: op, RunID: runID, Command: line, Index: index,
				Stream: stream, Text: text, Time: time.Now(),
			})
		}
	}

	var g errgroup.Group
	g.Go(func() error {
		var err error
		res.StdoutLines, err = drainLines(stdout, emit(report.Stdout))
		return err
	})
	g.Go(func() error {
		var err error
		res.StderrLines, err = drainLines(stderr, emit(report.Stderr))
		return err
	})
	waitErr := ec.Wait()
	close(exited)
	stdoutW.Close()
	stderrW.Close()
	readErr := g.Wait()
	res.Duration = time.Since(start)

	if waitErr == exec.ErrWaitDelay {
		log.Warn("A background process still held the command output; stopped reading it")
		waitErr = nil
	}

	switch {
	case waitErr != nil:
		res.Err = errors.CommandFailed(line, waitErr)
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -1
		}
	case readErr != nil:
		// The process exited cleanly but its output was cut short.
		res.Err = errors.CommandFailed(line, readErr)
		res.ExitCode = 0
	default:
		res.Succeeded = true
	}

	log.WithFields(logrus.Fields{
		"exit_code":   res.ExitCode,
		"duration_ms": res.DurationMs(),
	}).Debug("Command finished")
	return res
}

// drainLines reads r to EOF, calling emit for every line as it arrives.
// Unlike bufio.Scanner there is no line length limit, so a very long line
// cannot stall the reader and leave the child blocked on a full pipe.
func drainLines(rd io.Reader, emit func(string)) ([]string, error) {
	var lines []string
	br := bufio.NewReader(rd)
	for {
		text, err := br.ReadString('\n')
		if len(text) > 0 {
			text = strings.TrimRight(text, "\r\n")
			lines = append(lines, text)
			emit(text)
		}
		if err == io.EOF {
			return lines, nil
		}
		if err != nil {
			return lines, err
		}
	}
}

// CaptureOutput runs one command and returns its trimmed stdout. Any failure
// to start, read or exit cleanly is returned as an OUTPUT_CAPTURE_FAILED
// error, so an empty string always means the command printed nothing.
func (r *Runner) CaptureOutput(ctx context.Context, line, workDir string) (string, error) {
	cmd, err := r.builder.Shell(ctx, line)
	if err != nil {
		return "", errors.OutputCaptureFailed(line, err)
	}
	return r.capture(cmd, workDir)
}

// CaptureArgs is CaptureOutput for a command run without a shell.
func (r *Runner) CaptureArgs(ctx context.Context, workDir string, name string, args ...string) (string, error) {
	cmd, err := r.builder.Build(ctx, name, args...)
	if err != nil {
		return "", errors.OutputCaptureFailed(name, err)
	}
	return r.capture(cmd, workDir)
}

func (r *Runner) capture(cmd *Command, workDir string) (string, error) {
	cmd.WithTimeout(DefaultTimeout)
	ec := cmd.Exec()
	defer cmd.Release()
	ec.Dir = workDir
	r.applyEnv(ec)

	var stderr lockedBuffer
	ec.Stderr = &stderr
	ec.WaitDelay = r.killGrace
	out, err := ec.Output()
	if err == exec.ErrWaitDelay {
		err = nil
	}
	if err != nil {
		e := errors.OutputCaptureFailed(cmd.String(), err)
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			e = e.WithDetail("stderr", msg)
		}
		return "", e
	}
	return strings.TrimSpace(string(out)), nil
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
