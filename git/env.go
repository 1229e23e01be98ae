package git

import (
	"context"
	"fmt"
)

// EnvironmentVars describes the checked-out commit for build and test
// commands.
type EnvironmentVars struct {
	Repo        string
	RemoteURL   string
	Branch      string
	Commit      string
	CommitShort string
	Author      string
	AuthorEmail string
	WorkDir     string
}

// GetEnvironmentVars collects the variables for target at commit. Lookups
// that fail leave their field empty.
func (s *CLISynchronizer) GetEnvironmentVars(ctx context.Context, t RepositoryTarget, commit string) *EnvironmentVars {
	vars := &EnvironmentVars{
		Repo:      t.Name(),
		RemoteURL: t.RemoteURL,
		Commit:    commit,
		WorkDir:   t.LocalPath,
	}
	if len(commit) >= 7 {
		vars.CommitShort = commit[:7]
	}

	if branch, err := s.CurrentBranch(ctx, t.LocalPath); err == nil {
		vars.Branch = branch
	}
	if author, err := s.runner.CaptureArgs(ctx, t.LocalPath, "git", "log", "-1", "--format=%an"); err == nil {
		vars.Author = author
	}
	if email, err := s.runner.CaptureArgs(ctx, t.LocalPath, "git", "log", "-1", "--format=%ae"); err == nil {
		vars.AuthorEmail = email
	}

	return vars
}

// ToMap converts environment vars to a map
func (v *EnvironmentVars) ToMap() map[string]string {
	return map[string]string{
		"REPOWATCH_REPO":                v.Repo,
		"REPOWATCH_REMOTE_URL":          v.RemoteURL,
		"REPOWATCH_BRANCH":              v.Branch,
		"REPOWATCH_COMMIT":              v.Commit,
		"REPOWATCH_COMMIT_SHORT":        v.CommitShort,
		"REPOWATCH_COMMIT_AUTHOR":       v.Author,
		"REPOWATCH_COMMIT_AUTHOR_EMAIL": v.AuthorEmail,
		"REPOWATCH_WORKDIR":             v.WorkDir,
	}
}

// String renders the short form used in summaries.
func (v *EnvironmentVars) String() string {
	if v.Branch == "" {
		return v.CommitShort
	}
	return fmt.Sprintf("%s@%s", v.Branch, v.CommitShort)
}
