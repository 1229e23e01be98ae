package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/grovetools/repowatch/command"
	"github.com/grovetools/repowatch/errors"
	"github.com/grovetools/repowatch/git"
	"github.com/grovetools/repowatch/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncResult struct {
	hash string
	err  error
}

// scriptedSync replays results in order and then repeats the last one.
type scriptedSync struct {
	mu      sync.Mutex
	results []syncResult
	calls   int
}

func (s *scriptedSync) Sync(ctx context.Context, target git.RepositoryTarget) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	s.calls++
	r := s.results[i]
	return r.hash, r.err
}

func (s *scriptedSync) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func testTarget(t *testing.T) git.RepositoryTarget {
	return git.RepositoryTarget{
		RemoteURL:  "https://example.com/a/b.git",
		LocalPath:  t.TempDir(),
		RemoteName: "origin",
	}
}

func TestSessionOnChangeAtBaselineAndChange(t *testing.T) {
	const k = 4
	var results []syncResult
	for tick := 1; tick <= 7; tick++ {
		h := "aaaa"
		if tick >= k {
			h = "bbbb"
		}
		results = append(results, syncResult{hash: h})
	}

	var changes []string
	s, err := NewSession(Options{
		Target:       testTarget(t),
		Synchronizer: &scriptedSync{results: results},
		OnChange:     func(ctx context.Context, hash string) { changes = append(changes, hash) },
	})
	require.NoError(t, err)

	var outcomes []Outcome
	for range results {
		outcomes = append(outcomes, s.Tick(context.Background()))
	}

	assert.Equal(t, []string{"aaaa", "bbbb"}, changes)
	assert.Equal(t, OutcomeChanged, outcomes[0])
	assert.Equal(t, OutcomeChanged, outcomes[k-1])
	assert.Equal(t, OutcomeUnchanged, outcomes[1])
}

func TestSessionSyncFailureIsReportedAndCounted(t *testing.T) {
	var rec report.Recorder
	pullErr := errors.SyncFailed("origin", "/tmp/b", fmt.Errorf("exit status 1"))
	calls := 0
	s, err := NewSession(Options{
		Target: testTarget(t),
		Synchronizer: &scriptedSync{results: []syncResult{
			{hash: "abc123"}, {err: pullErr}, {hash: "abc123"},
		}},
		OnChange: func(context.Context, string) { calls++ },
		Reporter: &rec,
	})
	require.NoError(t, err)
	ctx := context.Background()

	s.Tick(ctx)
	assert.Equal(t, OutcomeSyncFailed, s.Tick(ctx))

	st := s.Status().State
	assert.Equal(t, "abc123", st.LastCommitHash)
	assert.Equal(t, 1, st.ConsecutiveFailureCount)

	sums := rec.Summaries(report.OpSync)
	require.Len(t, sums, 2)
	assert.True(t, sums[0].Succeeded)
	assert.False(t, sums[1].Succeeded)
	assert.Contains(t, sums[1].Message, "1 consecutive")
	assert.Equal(t, pullErr, sums[1].Err)

	assert.Equal(t, OutcomeUnchanged, s.Tick(ctx))
	assert.Equal(t, 1, calls)
}

func TestSessionKeepsPollingAfterFailures(t *testing.T) {
	fake := &scriptedSync{results: []syncResult{
		{err: errors.CloneFailed("u", "p", fmt.Errorf("network down"))},
		{err: errors.CloneFailed("u", "p", fmt.Errorf("network down"))},
		{hash: "abc123"},
	}}
	changed := make(chan string, 1)
	s, err := NewSession(Options{
		Target:       testTarget(t),
		Interval:     5 * time.Millisecond,
		Synchronizer: fake,
		OnChange:     func(ctx context.Context, hash string) { changed <- hash },
	})
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))

	select {
	case h := <-changed:
		assert.Equal(t, "abc123", h)
	case <-time.After(5 * time.Second):
		t.Fatal("session gave up after sync failures")
	}
	s.Stop()
	require.NoError(t, s.Wait())
	assert.Equal(t, 2, s.Status().State.TotalFailures)
	assert.False(t, s.Status().Running)
}

func TestSessionFatalSyncErrorStopsSchedule(t *testing.T) {
	var rec report.Recorder
	fatal := errors.DirectoryCreation("/nope", fmt.Errorf("permission denied"))
	fake := &scriptedSync{results: []syncResult{{err: fatal}}}
	s, err := NewSession(Options{
		Target:       testTarget(t),
		Interval:     5 * time.Millisecond,
		Synchronizer: fake,
		Reporter:     &rec,
	})
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))

	err = s.Wait()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeDirectoryCreation))
	assert.Equal(t, 1, fake.Calls())

	sums := rec.Summaries(report.OpSession)
	require.Len(t, sums, 2)
	assert.False(t, sums[1].Succeeded)
}

func TestSessionStartFailsWhenRootCannotBeCreated(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	var rec report.Recorder
	s, err := NewSession(Options{
		Target:       git.RepositoryTarget{RemoteURL: "https://example.com/a/b.git", LocalPath: filepath.Join(file, "root", "b")},
		Synchronizer: &scriptedSync{results: []syncResult{{hash: "abc"}}},
		Reporter:     &rec,
	})
	require.NoError(t, err)

	err = s.Start(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeDirectoryCreation))
	assert.True(t, errors.IsFatal(err))
	require.Len(t, rec.Summaries(report.OpSession), 1)
	assert.False(t, rec.Summaries(report.OpSession)[0].Succeeded)
	assert.NoError(t, s.Wait())
}

func TestSessionLockPreventsSecondSession(t *testing.T) {
	lock := filepath.Join(t.TempDir(), "b.pid")
	target := testTarget(t)
	opts := Options{
		Target:       target,
		Interval:     time.Hour,
		Synchronizer: &scriptedSync{results: []syncResult{{hash: "abc"}}},
		OnChange:     func(context.Context, string) {},
		LockPath:     lock,
	}

	first, err := NewSession(opts)
	require.NoError(t, err)
	require.NoError(t, first.Start(context.Background()))
	assert.FileExists(t, lock)

	second, err := NewSession(opts)
	require.NoError(t, err)
	err = second.Start(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeSessionRunning))

	first.Stop()
	require.NoError(t, first.Wait())
	assert.NoFileExists(t, lock)

	require.Error(t, first.Start(context.Background()))
}

func TestSessionBuildsAndTests(t *testing.T) {
	var rec report.Recorder
	s, err := NewSession(Options{
		Target:       testTarget(t),
		Synchronizer: &scriptedSync{results: []syncResult{{hash: "abc123"}}},
		Scripts: Scripts{
			Build:    command.ScriptOf("echo built > out.txt", "exit 3", "echo still-ran"),
			Test:     command.ScriptOf("cat out.txt"),
			RunTests: true,
		},
		Reporter: &rec,
	})
	require.NoError(t, err)

	s.Tick(context.Background())

	st := s.Status()
	require.NotNil(t, st.LastBuild)
	assert.False(t, st.LastBuild.AggregateSucceeded)
	require.Len(t, st.LastBuild.Results, 3)
	assert.Equal(t, 3, st.LastBuild.Results[1].ExitCode)

	require.NotNil(t, st.LastTest)
	assert.True(t, st.LastTest.AggregateSucceeded)
	assert.Equal(t, []string{"built"}, st.LastTest.Results[0].StdoutLines)

	require.Len(t, rec.Summaries(report.OpBuild), 1)
	require.Len(t, rec.Summaries(report.OpTest), 1)
}

type staticSource Scripts

func (s staticSource) Scripts() Scripts { return Scripts(s) }

func TestSessionUsesScriptSource(t *testing.T) {
	var rec report.Recorder
	s, err := NewSession(Options{
		Target:       testTarget(t),
		Synchronizer: &scriptedSync{results: []syncResult{{hash: "abc123"}}},
		Scripts:      Scripts{Build: command.ScriptOf("exit 1")},
		Source:       staticSource{Build: command.ScriptOf("echo from-source")},
		Reporter:     &rec,
	})
	require.NoError(t, err)

	s.Tick(context.Background())
	require.NotNil(t, s.Status().LastBuild)
	assert.True(t, s.Status().LastBuild.AggregateSucceeded)
	assert.Nil(t, s.Status().LastTest)
	assert.Empty(t, rec.Summaries(report.OpTest))
}

func TestSessionReportsMissingBuildScript(t *testing.T) {
	var rec report.Recorder
	s, err := NewSession(Options{
		Target:       testTarget(t),
		Synchronizer: &scriptedSync{results: []syncResult{{hash: "abc123"}}},
		Scripts:      Scripts{Test: command.ScriptOf("echo tested"), RunTests: true},
		Reporter:     &rec,
	})
	require.NoError(t, err)

	s.Tick(context.Background())

	st := s.Status()
	assert.Nil(t, st.LastBuild)
	require.NotNil(t, st.LastTest)
	assert.True(t, st.LastTest.AggregateSucceeded)

	sums := rec.Summaries(report.OpBuild)
	require.Len(t, sums, 1)
	assert.False(t, sums[0].Succeeded)
	assert.Equal(t, NoBuildScript, sums[0].Message)
	assert.True(t, errors.Is(sums[0].Err, errors.ErrCodeInvalidInput))
	assert.Empty(t, rec.Lines(report.OpBuild))
}

func TestNewSessionValidation(t *testing.T) {
	_, err := NewSession(Options{})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	_, err = NewSession(Options{Target: git.RepositoryTarget{RemoteURL: "x"}})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	_, err = NewSession(Options{Target: testTarget(t), Interval: -time.Second})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	s, err := NewSession(Options{Target: git.RepositoryTarget{RemoteURL: "x", LocalPath: "/tmp/x"}})
	require.NoError(t, err)
	assert.Equal(t, DefaultInterval, s.Status().Interval)
	assert.Equal(t, "origin", s.Target().RemoteName)
}
