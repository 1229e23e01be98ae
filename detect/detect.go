// Package detect guesses a build and test script from the files at the top
// of a checkout.
package detect

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/grovetools/repowatch/command"
	"github.com/grovetools/repowatch/util/sanitize"
	"github.com/grovetools/repowatch/watch"
)

// Language identifies a project type.
type Language string

const (
	Maven   Language = "maven"
	Gradle  Language = "gradle"
	Node    Language = "node"
	Python  Language = "python"
	Docker  Language = "docker"
	Unknown Language = "unknown"
)

// NoTestsFound is reported when a project type has a test command but the
// checkout has no tests for it.
const NoTestsFound = "No tests found. Please add tests to your project."

// Preset describes how to recognise and build one project type.
type Preset struct {
	Language    Language
	DisplayName string
	// Markers are file names at the top level; any one matches.
	Markers []string
	Build   []string
	Test    []string
	// TestDirs gate the test script: when set, tests run only if one of
	// them exists.
	TestDirs []string
}

// Presets are checked in order; the first match wins.
var Presets = []Preset{
	{
		Language:    Maven,
		DisplayName: "Java (Maven)",
		Markers:     []string{"pom.xml"},
		Build:       []string{"mvn clean install"},
		Test:        []string{"mvn test"},
		TestDirs:    []string{filepath.Join("src", "test")},
	},
	{
		Language:    Gradle,
		DisplayName: "Java (Gradle)",
		Markers:     []string{"build.gradle", "build.gradle.kts"},
		Build:       []string{"./gradlew build"},
		Test:        []string{"./gradlew test"},
		TestDirs:    []string{filepath.Join("src", "test")},
	},
	{
		Language:    Node,
		DisplayName: "JavaScript (Node.js)",
		Markers:     []string{"package.json"},
		Build:       []string{"npm install"},
		Test:        []string{"npm test"},
		TestDirs:    []string{filepath.Join("src", "test")},
	},
	{
		Language:    Python,
		DisplayName: "Python",
		Markers:     []string{"requirements.txt", "setup.py"},
		Build:       []string{"python3 setup.py install"},
		Test:        []string{"pytest"},
		TestDirs:    []string{filepath.Join("src", "test")},
	},
	{
		Language:    Docker,
		DisplayName: "Docker",
		Markers:     []string{"Dockerfile"},
		// %s is replaced by the repository name.
		Build: []string{"docker build -t %s ."},
	},
}

// Plan is the result of detection for one directory.
type Plan struct {
	Language    Language       `json:"language"`
	DisplayName string         `json:"display_name"`
	Build       command.Script `json:"build"`
	Test        command.Script `json:"test,omitempty"`
	// TestsFound is false when the project type has tests but the
	// checkout does not.
	TestsFound bool   `json:"tests_found"`
	Note       string `json:"note,omitempty"`
}

// Detect inspects dir and returns the first matching preset, if any.
func Detect(dir string) (Preset, bool) {
	for _, p := range Presets {
		for _, m := range p.Markers {
			if isFile(filepath.Join(dir, m)) {
				return p, true
			}
		}
	}
	return Preset{Language: Unknown, DisplayName: "Unknown"}, false
}

// PlanFor detects the project in dir and fills in its scripts. repoName is
// used for image tags.
func PlanFor(dir, repoName string) Plan {
	p, ok := Detect(dir)
	plan := Plan{Language: p.Language, DisplayName: p.DisplayName}
	if !ok {
		plan.Note = "Unsupported build tool or language."
		return plan
	}

	for _, line := range p.Build {
		if p.Language == Docker {
			line = fmt.Sprintf(line, imageName(repoName))
		}
		plan.Build = append(plan.Build, line)
	}

	if len(p.Test) == 0 {
		plan.Note = "No tests available for this language."
		return plan
	}
	if len(p.TestDirs) > 0 && !anyDir(dir, p.TestDirs) {
		plan.Note = NoTestsFound
		return plan
	}
	plan.Test = command.ScriptOf(p.Test...)
	plan.TestsFound = true
	return plan
}

// Source supplies watch scripts, falling back to detection for whichever of
// the configured build or test scripts is empty. Detection runs on every
// call, so it sees the checkout as of the latest pull.
type Source struct {
	Dir      string
	RepoName string
	// Configured is consulted first; it may be nil.
	Configured watch.ScriptSource
	// Static is used when Configured is nil.
	Static watch.Scripts
}

var _ watch.ScriptSource = (*Source)(nil)

// Scripts implements watch.ScriptSource.
func (s *Source) Scripts() watch.Scripts {
	scripts := s.Static
	if s.Configured != nil {
		scripts = s.Configured.Scripts()
	}
	if !scripts.Build.Empty() && (!scripts.RunTests || !scripts.Test.Empty()) {
		return scripts
	}

	plan := PlanFor(s.Dir, s.RepoName)
	if scripts.Build.Empty() {
		scripts.Build = plan.Build
	}
	if scripts.RunTests && scripts.Test.Empty() {
		scripts.Test = plan.Test
		if plan.Test.Empty() {
			scripts.NoTestsReason = plan.Note
		}
	}
	return scripts
}

func imageName(repo string) string {
	if tag := sanitize.ForImageTag(repo); tag != "" {
		return tag
	}
	return "repowatch-build"
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func anyDir(root string, dirs []string) bool {
	for _, d := range dirs {
		if info, err := os.Stat(filepath.Join(root, d)); err == nil && info.IsDir() {
			return true
		}
	}
	return false
}
