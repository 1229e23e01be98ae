package errors

import (
	"fmt"
	"os/exec"
)

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *Error {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *Error {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// DirectoryCreation creates an error for a clone root that cannot be created
func DirectoryCreation(path string, err error) *Error {
	return Wrap(err, ErrCodeDirectoryCreation, fmt.Sprintf("cannot create directory %s", path)).
		WithDetail("path", path)
}

// CloneFailed creates a clone failure error
func CloneFailed(url, path string, err error) *Error {
	return withExitCode(Wrap(err, ErrCodeGitCloneFailed, fmt.Sprintf("failed to clone %s", url)).
		WithDetail("url", url).
		WithDetail("path", path), err)
}

// RemoteConfigFailed creates an error for a remote that could not be listed or added
func RemoteConfigFailed(remote, url string, err error) *Error {
	return withExitCode(Wrap(err, ErrCodeGitRemoteConfig, fmt.Sprintf("failed to configure remote '%s'", remote)).
		WithDetail("remote", remote).
		WithDetail("url", url), err)
}

// SyncFailed creates a pull failure error
func SyncFailed(remote, path string, err error) *Error {
	return withExitCode(Wrap(err, ErrCodeGitSyncFailed, fmt.Sprintf("failed to pull from '%s'", remote)).
		WithDetail("remote", remote).
		WithDetail("path", path), err)
}

// CommitLookupFailed creates an error for an unreadable HEAD
func CommitLookupFailed(path string, err error) *Error {
	return Wrap(err, ErrCodeGitCommitLookup, fmt.Sprintf("cannot read HEAD commit in %s", path)).
		WithDetail("path", path)
}

// CommandFailed creates a command execution failure error
func CommandFailed(cmd string, err error) *Error {
	return withExitCode(Wrap(err, ErrCodeCommandFailed, fmt.Sprintf("command failed: %s", cmd)).
		WithDetail("command", cmd), err)
}

// OutputCaptureFailed creates an error for a command whose stdout could not be captured
func OutputCaptureFailed(cmd string, err error) *Error {
	return withExitCode(Wrap(err, ErrCodeOutputCapture, fmt.Sprintf("cannot capture output of: %s", cmd)).
		WithDetail("command", cmd), err)
}

// SchedulingFailed creates an internal scheduler fault error
func SchedulingFailed(reason string, err error) *Error {
	return Wrap(err, ErrCodeScheduling, fmt.Sprintf("scheduler fault: %s", reason))
}

// InvalidInput creates an invalid input error
func InvalidInput(field, reason string) *Error {
	return New(ErrCodeInvalidInput, fmt.Sprintf("invalid %s: %s", field, reason)).
		WithDetail("field", field)
}

// withExitCode extracts the exit code if available
func withExitCode(e *Error, err error) *Error {
	var exitErr *exec.ExitError
	for cur := err; cur != nil; {
		if ee, ok := cur.(*exec.ExitError); ok {
			exitErr = ee
			break
		}
		u, ok := cur.(interface{ Unwrap() error })
		if !ok {
			break
		}
		cur = u.Unwrap()
	}
	if exitErr != nil {
		return e.WithDetail("exitCode", exitErr.ExitCode())
	}
	return e
}
