package detect

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/grovetools/repowatch/command"
	"github.com/grovetools/repowatch/watch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		p := filepath.Join(dir, n)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, nil, 0o644))
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		want  Language
	}{
		{"maven", []string{"pom.xml"}, Maven},
		{"gradle", []string{"build.gradle"}, Gradle},
		{"gradle kotlin", []string{"build.gradle.kts"}, Gradle},
		{"node", []string{"package.json"}, Node},
		{"python requirements", []string{"requirements.txt"}, Python},
		{"python setup", []string{"setup.py"}, Python},
		{"docker", []string{"Dockerfile"}, Docker},
		{"maven wins over docker", []string{"Dockerfile", "pom.xml"}, Maven},
		{"nested marker ignored", []string{"sub/pom.xml"}, Unknown},
		{"empty", nil, Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			touch(t, dir, tt.files...)
			p, ok := Detect(dir)
			assert.Equal(t, tt.want, p.Language)
			assert.Equal(t, tt.want != Unknown, ok)
		})
	}
}

func TestPlanForMavenGatesTests(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "pom.xml")

	plan := PlanFor(dir, "widget")
	assert.Equal(t, command.Script{"mvn clean install"}, plan.Build)
	assert.True(t, plan.Test.Empty())
	assert.False(t, plan.TestsFound)
	assert.Equal(t, NoTestsFound, plan.Note)

	touch(t, dir, "src/test/java/AppTest.java")
	plan = PlanFor(dir, "widget")
	assert.Equal(t, command.Script{"mvn test"}, plan.Test)
	assert.True(t, plan.TestsFound)
}

func TestPlanForGatesTestsForEveryLanguage(t *testing.T) {
	tests := []struct {
		name   string
		marker string
		test   command.Script
	}{
		{"gradle", "build.gradle", command.Script{"./gradlew test"}},
		{"node", "package.json", command.Script{"npm test"}},
		{"python", "requirements.txt", command.Script{"pytest"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			touch(t, dir, tt.marker)

			plan := PlanFor(dir, "widget")
			assert.True(t, plan.Test.Empty())
			assert.False(t, plan.TestsFound)
			assert.Equal(t, NoTestsFound, plan.Note)

			touch(t, dir, "src/test/placeholder")
			plan = PlanFor(dir, "widget")
			assert.Equal(t, tt.test, plan.Test)
			assert.True(t, plan.TestsFound)
		})
	}
}

func TestPlanForDocker(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "Dockerfile")

	plan := PlanFor(dir, "My Widget")
	assert.Equal(t, command.Script{"docker build -t my-widget ."}, plan.Build)
	assert.True(t, plan.Test.Empty())
	assert.NotEmpty(t, plan.Note)
}

func TestPlanForUnknown(t *testing.T) {
	plan := PlanFor(t.TempDir(), "x")
	assert.Equal(t, Unknown, plan.Language)
	assert.True(t, plan.Build.Empty())
	assert.Equal(t, "Unsupported build tool or language.", plan.Note)
}

func TestSourceFillsMissingScripts(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "package.json", "src/test/app.test.js")

	s := &Source{Dir: dir, RepoName: "widget", Static: watch.Scripts{RunTests: true}}
	got := s.Scripts()
	assert.Equal(t, command.Script{"npm install"}, got.Build)
	assert.Equal(t, command.Script{"npm test"}, got.Test)

	s.Static = watch.Scripts{Build: command.ScriptOf("make"), RunTests: false}
	got = s.Scripts()
	assert.Equal(t, command.Script{"make"}, got.Build)
	assert.True(t, got.Test.Empty())
}

func TestSourceReportsMissingTests(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "build.gradle")

	s := &Source{Dir: dir, Static: watch.Scripts{Build: command.ScriptOf("./gradlew assemble"), RunTests: true}}
	got := s.Scripts()
	assert.Equal(t, command.Script{"./gradlew assemble"}, got.Build)
	assert.True(t, got.Test.Empty())
	assert.Equal(t, NoTestsFound, got.NoTestsReason)
}
