package git

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultRemoteName is the remote a target pulls from unless told otherwise.
const DefaultRemoteName = "origin"

// RepositoryTarget identifies one remote repository and its local working
// copy. It is created once per watch session and not modified afterwards.
type RepositoryTarget struct {
	RemoteURL  string `json:"remote_url" yaml:"remote_url"`
	LocalPath  string `json:"local_path" yaml:"local_path"`
	RemoteName string `json:"remote_name" yaml:"remote_name"`
}

// NewTarget lays the clone out as <root>/<repoName>. The URL may be given in
// owner/repo shorthand.
func NewTarget(root, remoteURL, remoteName string) (RepositoryTarget, error) {
	remoteURL = ExpandShorthand(remoteURL)
	if remoteURL == "" {
		return RepositoryTarget{}, fmt.Errorf("remote URL cannot be empty")
	}
	if strings.TrimSpace(root) == "" {
		return RepositoryTarget{}, fmt.Errorf("clone root cannot be empty")
	}
	if remoteName == "" {
		remoteName = DefaultRemoteName
	}
	name := RepoNameFromURL(remoteURL)
	if name == "" || name == "." || name == ".." || name == "unknown" {
		return RepositoryTarget{}, fmt.Errorf("cannot derive a repository name from %q", remoteURL)
	}
	return RepositoryTarget{
		RemoteURL:  remoteURL,
		LocalPath:  filepath.Join(root, name),
		RemoteName: remoteName,
	}, nil
}

// Name returns the directory name of the local clone.
func (t RepositoryTarget) Name() string {
	return filepath.Base(t.LocalPath)
}

// String renders the target for logs.
func (t RepositoryTarget) String() string {
	return fmt.Sprintf("%s (%s) -> %s", t.RemoteURL, t.RemoteName, t.LocalPath)
}
