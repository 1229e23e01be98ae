package git

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/grovetools/repowatch/command"
)

var shorthandRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)

// RepoNameFromURL extracts the repository name from a git URL: the last path
// element with any .git suffix removed.
func RepoNameFromURL(url string) string {
	url = strings.TrimRight(url, "/")
	url = strings.TrimSuffix(url, ".git")

	// Handle SSH URLs (git@github.com:user/repo)
	if strings.HasPrefix(url, "git@") {
		parts := strings.SplitN(url, ":", 2)
		if len(parts) == 2 {
			url = parts[1]
		}
	}

	parts := strings.FieldsFunc(url, func(r rune) bool { return r == '/' || r == '\\' })
	if len(parts) > 0 {
		return parts[len(parts)-1]
	}

	return "unknown"
}

// ExpandShorthand turns "owner/repo" into a GitHub HTTPS URL. Anything that
// already looks like a URL or a path is returned unchanged.
func ExpandShorthand(s string) string {
	s = strings.TrimSpace(s)
	if shorthandRe.MatchString(s) && !strings.HasPrefix(s, ".") {
		return "https://github.com/" + s
	}
	return s
}

// Shorthand extracts "owner/repo" from common git hosting URLs. It returns an
// empty string if the host is not recognised.
func Shorthand(repoURL string) string {
	url := strings.TrimPrefix(repoURL, "https://")
	url = strings.TrimPrefix(url, "http://")
	url = strings.TrimPrefix(url, "git@")

	// Replace colon (from git@host:owner/repo) with slash
	url = strings.Replace(url, ":", "/", 1)

	for _, host := range []string{"github.com", "gitlab.com", "bitbucket.org"} {
		if strings.HasPrefix(url, host+"/") {
			parts := strings.SplitN(url, "/", 3)
			if len(parts) >= 3 {
				return strings.TrimSuffix(parts[1]+"/"+parts[2], ".git")
			}
		}
	}

	return ""
}

// IsGitRepo checks if the given directory is inside a git repository
func IsGitRepo(ctx context.Context, dir string) bool {
	if _, err := os.Stat(dir); err != nil {
		return false
	}
	cmd, err := command.NewSafeBuilder().Build(ctx, "git", "rev-parse", "--git-dir")
	if err != nil {
		return false
	}
	execCmd := cmd.Exec()
	defer cmd.Release()
	execCmd.Dir = dir
	return execCmd.Run() == nil
}

// EnsureRoot creates the directory that holds clones.
func EnsureRoot(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	return os.MkdirAll(abs, 0o755)
}
