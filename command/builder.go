package command

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"runtime"
	"strings"
	"time"
)

const (
	// DefaultTimeout is the timeout for short metadata lookups such as
	// reading a commit hash.
	DefaultTimeout = 2 * time.Minute

	// MaxTimeout is the maximum allowed timeout
	MaxTimeout = 6 * time.Hour
)

var (
	remoteNameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)
	gitRefRe     = regexp.MustCompile(`^[a-zA-Z0-9/_.-]+$`)
	schemeURLRe  = regexp.MustCompile(`^(https?|ssh|git|file)://[^\s]+$`)
	scpURLRe     = regexp.MustCompile(`^[a-zA-Z0-9._-]+@[a-zA-Z0-9._-]+:[^\s]+$`)
)

// SafeBuilder provides command construction with argument validation. A
// builder has no timeout by default because build and test commands can run
// for as long as they need; callers opt in with WithTimeout.
type SafeBuilder struct {
	defaultTimeout time.Duration
	validators     map[string]func(string) error
	executor       Executor
}

// NewSafeBuilder creates a new SafeBuilder instance with a RealExecutor
func NewSafeBuilder() *SafeBuilder {
	return NewSafeBuilderWithExecutor(&RealExecutor{})
}

// NewSafeBuilderWithExecutor creates a new SafeBuilder with a custom Executor
func NewSafeBuilderWithExecutor(exec Executor) *SafeBuilder {
	if exec == nil {
		exec = &RealExecutor{}
	}
	return &SafeBuilder{
		validators: makeDefaultValidators(),
		executor:   exec,
	}
}

// makeDefaultValidators returns the default set of validators
func makeDefaultValidators() map[string]func(string) error {
	return map[string]func(string) error{
		"remoteName": validateRemoteName,
		"remoteURL":  validateRemoteURL,
		"gitRef":     validateGitRef,
		"fileName":   validateFileName,
	}
}

// validateRemoteName ensures remote names are safe to pass to git
func validateRemoteName(name string) error {
	if name == "" {
		return fmt.Errorf("remote name cannot be empty")
	}
	if !remoteNameRe.MatchString(name) {
		return fmt.Errorf("invalid remote name: %s", name)
	}
	return nil
}

// validateRemoteURL accepts scheme URLs, scp-like ssh URLs and local paths
func validateRemoteURL(url string) error {
	if url == "" {
		return fmt.Errorf("remote URL cannot be empty")
	}
	if strings.HasPrefix(url, "-") {
		return fmt.Errorf("remote URL cannot start with '-': %s", url)
	}
	if strings.ContainsAny(url, " \t\n;|&$`") {
		return fmt.Errorf("remote URL contains invalid characters: %s", url)
	}
	if schemeURLRe.MatchString(url) || scpURLRe.MatchString(url) {
		return nil
	}
	if strings.HasPrefix(url, "/") || strings.HasPrefix(url, ".") {
		return nil
	}
	return fmt.Errorf("unsupported remote URL: %s", url)
}

// validateFileName ensures file paths are safe
func validateFileName(path string) error {
	if path == "" {
		return fmt.Errorf("file path cannot be empty")
	}

	// Prevent command injection via shell metacharacters
	if strings.ContainsAny(path, ";|&$`") {
		return fmt.Errorf("file path contains invalid characters")
	}

	return nil
}

// validateGitRef ensures git references are safe
func validateGitRef(ref string) error {
	if ref == "" {
		return fmt.Errorf("git ref cannot be empty")
	}
	if strings.HasPrefix(ref, "-") {
		return fmt.Errorf("git ref cannot start with '-': %s", ref)
	}
	if !gitRefRe.MatchString(ref) {
		return fmt.Errorf("invalid git ref: %s", ref)
	}
	return nil
}

// Command represents a command configuration that has not been started yet
type Command struct {
	ctx      context.Context
	execCtx  context.Context
	cancel   context.CancelFunc
	name     string
	args     []string
	timeout  time.Duration
	executor Executor
}

// Build creates a new command running name with args directly, without a shell
func (sb *SafeBuilder) Build(ctx context.Context, name string, args ...string) (*Command, error) {
	if name == "" {
		return nil, fmt.Errorf("command name cannot be empty")
	}

	return &Command{
		ctx:      ctx,
		name:     name,
		args:     args,
		timeout:  sb.defaultTimeout,
		executor: sb.executor,
	}, nil
}

// Shell creates a command that runs line through the platform shell, so
// user-authored script lines may use pipes, redirects and `cd x && y`.
func (sb *SafeBuilder) Shell(ctx context.Context, line string) (*Command, error) {
	if strings.TrimSpace(line) == "" {
		return nil, fmt.Errorf("shell command cannot be empty")
	}
	name, args := shellArgs(line)
	return sb.Build(ctx, name, args...)
}

func shellArgs(line string) (string, []string) {
	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C", line}
	}
	return "sh", []string{"-c", line}
}

// WithDefaultTimeout returns a copy of the builder whose commands time out
// after d. Zero disables the timeout.
func (sb *SafeBuilder) WithDefaultTimeout(d time.Duration) *SafeBuilder {
	cpy := *sb
	cpy.defaultTimeout = clampTimeout(d)
	return &cpy
}

// WithTimeout sets a custom timeout for the command
func (c *Command) WithTimeout(timeout time.Duration) *Command {
	c.timeout = clampTimeout(timeout)
	return c
}

func clampTimeout(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if d > MaxTimeout {
		return MaxTimeout
	}
	return d
}

// Validate validates specific arguments
func (sb *SafeBuilder) Validate(argType string, value string) error {
	validator, exists := sb.validators[argType]
	if !exists {
		return fmt.Errorf("no validator for argument type: %s", argType)
	}

	return validator(value)
}

// String renders the command line for display.
func (c *Command) String() string {
	if (c.name == "sh" && len(c.args) == 2 && c.args[0] == "-c") ||
		(c.name == "cmd" && len(c.args) == 2 && c.args[0] == "/C") {
		return c.args[1]
	}
	return strings.TrimSpace(c.name + " " + strings.Join(c.args, " "))
}

// Exec creates and returns an exec.Cmd bound to the command's context and
// timeout. Call Release once the process has been waited for.
func (c *Command) Exec() *exec.Cmd {
	ctx := c.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if c.timeout > 0 {
		ctx, c.cancel = context.WithTimeout(ctx, c.timeout)
	} else {
		ctx, c.cancel = context.WithCancel(ctx)
	}
	c.execCtx = ctx
	return c.executor.CommandContext(ctx, c.name, c.args...) //nolint:gosec // SafeBuilder provides validation
}

// Done returns a channel closed when the running command's context ends,
// either by timeout or by cancellation of the parent. It is nil before Exec.
func (c *Command) Done() <-chan struct{} {
	if c.execCtx == nil {
		return nil
	}
	return c.execCtx.Done()
}

// Release frees the context created by Exec.
func (c *Command) Release() {
	if c.cancel != nil {
		c.cancel()
	}
}
