package git

import "context"

// Synchronizer keeps a local working copy aligned with its remote.
type Synchronizer interface {
	// Sync ensures the clone exists, that the remote is configured, pulls
	// the current branch and returns the full HEAD commit hash.
	Sync(ctx context.Context, target RepositoryTarget) (string, error)
}

// EnvironmentProvider describes the checked-out state of a clone for the
// processes run inside it.
type EnvironmentProvider interface {
	GetEnvironmentVars(ctx context.Context, target RepositoryTarget, commit string) *EnvironmentVars
}
