package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// RequireGit skips the test if the git CLI is not available
func RequireGit(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

// InitGitRepo initializes a git repository in the given directory
func InitGitRepo(t *testing.T, dir string) {
	t.Helper()

	RunGitCommand(t, dir, "init")
	RunGitCommand(t, dir, "config", "user.name", "Test User")
	RunGitCommand(t, dir, "config", "user.email", "test@example.com")
	RunGitCommand(t, dir, "config", "commit.gpgsign", "false")

	// Create initial commit
	testFile := filepath.Join(dir, "README.md")
	if err := os.WriteFile(testFile, []byte("# Test Project\n"), 0600); err != nil {
		t.Fatalf("Failed to create README: %v", err)
	}
	RunGitCommand(t, dir, "add", ".")
	RunGitCommand(t, dir, "commit", "-m", "Initial commit")

	// Ensure we have a main branch (rename from master if needed)
	cmd := exec.Command("git", "branch", "-m", "main")
	cmd.Dir = dir
	_ = cmd.Run() // Ignore error as branch might already be named main
}

// NewRemote creates a work repository with one commit and a bare repository
// cloned from it, wired as the work repo's origin. Pushing from work with
// PushCommit makes new commits visible to clones of bare.
func NewRemote(t *testing.T) (bare, work string) {
	t.Helper()
	RequireGit(t)

	root := t.TempDir()
	work = filepath.Join(root, "work")
	bare = filepath.Join(root, "remote.git")
	if err := os.MkdirAll(work, 0o755); err != nil {
		t.Fatalf("Failed to create work dir: %v", err)
	}
	InitGitRepo(t, work)
	RunGitCommand(t, root, "clone", "--bare", "--quiet", work, bare)
	RunGitCommand(t, work, "remote", "add", "origin", bare)
	return bare, work
}

// PushCommit commits a file in work and pushes it to origin, returning the
// new HEAD hash.
func PushCommit(t *testing.T, work, filename, content string) string {
	t.Helper()

	CreateCommit(t, work, filename, content)
	RunGitCommand(t, work, "push", "--quiet", "origin", "main")
	return GitOutput(t, work, "rev-parse", "HEAD")
}

// RunGitCommand runs a git command in the given directory
func RunGitCommand(t *testing.T, dir string, args ...string) {
	t.Helper()

	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to run git %v: %v\n%s", args, err, out)
	}
}

// GitOutput runs a git command and returns its trimmed stdout
func GitOutput(t *testing.T, dir string, args ...string) string {
	t.Helper()

	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		t.Fatalf("Failed to run git %v: %v", args, err)
	}
	return strings.TrimSpace(string(out))
}

// CreateCommit creates a file and commits it
func CreateCommit(t *testing.T, dir, filename, content string) {
	t.Helper()

	filePath := filepath.Join(dir, filename)
	if err := os.WriteFile(filePath, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to create file %s: %v", filename, err)
	}

	RunGitCommand(t, dir, "add", filename)
	RunGitCommand(t, dir, "commit", "-m", "Add "+filename)
}
