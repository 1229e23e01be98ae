// Package paths provides XDG-compliant path resolution for repowatch.
//
// Resolution order:
// 1. REPOWATCH_HOME (portable root) → $REPOWATCH_HOME/{config,data,state,cache}
// 2. XDG env vars → $XDG_*_HOME/repowatch
// 3. Platform defaults → ~/.config/repowatch, ~/.local/share/repowatch, etc.
package paths

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/grovetools/repowatch/util/pathutil"
	"github.com/grovetools/repowatch/util/sanitize"
)

const appName = "repowatch"

func baseDir(sub, xdgVar string, fallback ...string) string {
	if home := os.Getenv("REPOWATCH_HOME"); home != "" {
		return filepath.Join(home, sub)
	}
	if xdg := os.Getenv(xdgVar); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(append(append([]string{homeDir}, fallback...), appName)...)
	}
	return ""
}

// ConfigDir returns the configuration directory.
// Used for the user-wide repowatch.yml.
func ConfigDir() string {
	return baseDir("config", "XDG_CONFIG_HOME", ".config")
}

// DataDir returns the data directory.
func DataDir() string {
	return baseDir("data", "XDG_DATA_HOME", ".local", "share")
}

// StateDir returns the state directory.
// Used for logs and session lock files.
func StateDir() string {
	return baseDir("state", "XDG_STATE_HOME", ".local", "state")
}

// CacheDir returns the cache directory.
func CacheDir() string {
	return baseDir("cache", "XDG_CACHE_HOME", ".cache")
}

// ReposDir returns the default root under which clones are laid out as
// <root>/<repoName>.
func ReposDir() string {
	data := DataDir()
	if data == "" {
		return ""
	}
	return filepath.Join(data, "repos")
}

// LogsDir returns the directory for log files.
func LogsDir() string {
	state := StateDir()
	if state == "" {
		return ""
	}
	return filepath.Join(state, "logs")
}

// SessionLockPath returns the lock file guarding watch sessions on localPath.
// The name is derived from the normalised path so that two spellings of the
// same directory, symlinks included, share a lock.
func SessionLockPath(localPath string) string {
	abs, err := pathutil.NormalizeForLookup(localPath)
	if err != nil {
		abs = localPath
	}
	sum := sha256.Sum256([]byte(abs))
	return filepath.Join(StateDir(), "sessions", sanitize.ForFilename(filepath.Base(abs))+"-"+hex.EncodeToString(sum[:])[:12]+".pid")
}

// EnsureDirs creates all repowatch directories if they don't exist.
func EnsureDirs() error {
	dirs := []string{
		ConfigDir(),
		DataDir(),
		StateDir(),
		CacheDir(),
		LogsDir(),
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
