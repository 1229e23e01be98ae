// Package version carries build metadata stamped in by the linker:
//
//	go build -ldflags "-X github.com/grovetools/repowatch/version.Version=v0.3.0 ..."
package version

import (
	"fmt"
	"runtime"
	"strings"
)

var (
	Version   = "dev"
	Commit    = "none"
	Branch    = "unknown"
	BuildDate = "unknown"
)

// Info holds all the versioning information.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Branch    string `json:"branch"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

// GetInfo returns a struct populated with the version information.
func GetInfo() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		Branch:    Branch,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// Short renders "repowatch <version> (<commit>)".
func (i Info) Short() string {
	commit := i.Commit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return fmt.Sprintf("repowatch %s (%s)", i.Version, commit)
}

// String renders the full build information, one field per line.
func (i Info) String() string {
	var b strings.Builder
	fmt.Fprintln(&b, i.Short())
	fmt.Fprintf(&b, "  Branch:     %s\n", i.Branch)
	fmt.Fprintf(&b, "  Built:      %s\n", i.BuildDate)
	fmt.Fprintf(&b, "  Go:         %s\n", i.GoVersion)
	fmt.Fprintf(&b, "  Platform:   %s", i.Platform)
	return b.String()
}
