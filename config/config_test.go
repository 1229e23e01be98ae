package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/grovetools/repowatch/command"
	"github.com/grovetools/repowatch/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points every repowatch directory at a fresh temp dir so the
// developer's global config cannot leak into a test.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("REPOWATCH_HOME", home)
	return home
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoadFromBytesYAML(t *testing.T) {
	home := isolate(t)

	cfg, err := LoadFromBytes([]byte(`
repository:
  url: acme/widget
watch:
  interval: 30s
  command_timeout: 10m
build:
  commands:
    - make deps
  run: |
    # compile
    make build
test:
  run: make test
`), FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, CurrentVersion, cfg.Version)
	assert.Equal(t, "origin", cfg.Repository.Remote)
	assert.Equal(t, filepath.Join(home, "data", "repos"), cfg.Repository.Root)
	assert.Equal(t, 30*time.Second, cfg.IntervalDuration())
	assert.Equal(t, 10*time.Minute, cfg.CommandTimeoutDuration())
	assert.Equal(t, 5*time.Second, cfg.KillGraceDuration())
	assert.Equal(t, command.Script{"make deps", "make build"}, cfg.Build.Lines())

	scripts := cfg.Scripts()
	assert.Equal(t, command.Script{"make test"}, scripts.Test)
	assert.True(t, scripts.RunTests)

	target, err := cfg.Target()
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/acme/widget", target.RemoteURL)
	assert.Equal(t, filepath.Join(home, "data", "repos", "widget"), target.LocalPath)
}

func TestLoadFromBytesTOML(t *testing.T) {
	isolate(t)

	cfg, err := LoadFromBytes([]byte(`
[repository]
url = "https://example.com/a/b.git"
remote = "upstream"

[watch]
interval = "2m"
kill_on_stop = true

[build]
commands = ["go build ./..."]

[test]
enabled = false

[logging]
level = "debug"
`), FormatTOML)
	require.NoError(t, err)

	assert.Equal(t, "upstream", cfg.Repository.Remote)
	assert.Equal(t, 2*time.Minute, cfg.IntervalDuration())
	assert.True(t, cfg.Watch.KillOnStop)
	assert.False(t, cfg.Test.RunTests())
	assert.Equal(t, command.Script{"go build ./..."}, cfg.Build.Lines())

	var logging struct {
		Level string `yaml:"level"`
	}
	require.NoError(t, cfg.UnmarshalExtension("logging", &logging))
	assert.Equal(t, "debug", logging.Level)
}

func TestLoadFromBytesRejectsInvalid(t *testing.T) {
	isolate(t)

	tests := []struct {
		name string
		doc  string
		code errors.ErrorCode
	}{
		{"unknown script key", "build:\n  script: make\n", errors.ErrCodeConfigInvalid},
		{"interval wrong type", "watch:\n  interval: [1]\n", errors.ErrCodeConfigInvalid},
		{"unparseable interval", "watch:\n  interval: soon\n", errors.ErrCodeConfigValidation},
		{"zero interval", "watch:\n  interval: 0s\n", errors.ErrCodeConfigInvalid},
		{"bad remote", "repository:\n  remote: \"-x\"\n", errors.ErrCodeConfigValidation},
		{"broken yaml", "build: [\n", errors.ErrCodeConfigInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromBytes([]byte(tt.doc), FormatYAML)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err), err.Error())
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("RW_TEST_URL", "acme/gadget")
	t.Setenv("RW_TEST_EMPTY", "")

	assert.Equal(t, "url: acme/gadget", expandEnvVars("url: ${RW_TEST_URL}"))
	assert.Equal(t, "interval: 5m", expandEnvVars("interval: ${RW_TEST_UNSET:-5m}"))
	assert.Equal(t, "interval: 5m", expandEnvVars("interval: ${RW_TEST_EMPTY:-5m}"))
	assert.Equal(t, "x: ", expandEnvVars("x: ${RW_TEST_UNSET}"))
}

func TestFindConfigFile(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))

	_, err := FindConfigFile(nested)
	assert.True(t, errors.Is(err, errors.ErrCodeConfigNotFound))

	writeFile(t, filepath.Join(root, "repowatch.toml"), "")
	path, err := FindConfigFile(nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "repowatch.toml"), path)

	writeFile(t, filepath.Join(root, "a", "repowatch.yml"), "")
	path, err = FindConfigFile(nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "a", "repowatch.yml"), path)
}

func TestLoadFromLayers(t *testing.T) {
	home := isolate(t)
	project := t.TempDir()

	writeFile(t, filepath.Join(home, "config", "repowatch.yml"), `
watch:
  interval: 5m
  kill_grace: 2s
build:
  commands: ["make global"]
logging:
  level: warn
  report_caller: true
`)
	writeFile(t, filepath.Join(project, "repowatch.yml"), `
repository:
  url: acme/widget
watch:
  interval: 1m
build:
  commands: ["make project"]
logging:
  level: info
`)
	writeFile(t, filepath.Join(project, "repowatch.override.yml"), `
test:
  enabled: false
`)

	cfg, err := LoadFrom(project)
	require.NoError(t, err)

	assert.Len(t, cfg.Sources, 3)
	assert.Equal(t, "acme/widget", cfg.Repository.URL)
	assert.Equal(t, time.Minute, cfg.IntervalDuration())
	assert.Equal(t, 2*time.Second, cfg.KillGraceDuration())
	assert.Equal(t, command.Script{"make project"}, cfg.Build.Lines())
	assert.False(t, cfg.Test.RunTests())

	var logging map[string]interface{}
	require.NoError(t, cfg.UnmarshalExtension("logging", &logging))
	assert.Equal(t, "info", logging["level"])
	assert.Equal(t, true, logging["report_caller"])
}

func TestLoadFromWithoutProjectConfig(t *testing.T) {
	isolate(t)

	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, cfg.Sources)
	assert.Equal(t, DefaultInterval, cfg.Watch.Interval)
	assert.True(t, cfg.Build.Empty())

	err = cfg.RequireRepository()
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestLoadReportsPath(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yml"))
	assert.True(t, errors.Is(err, errors.ErrCodeConfigNotFound))

	bad := filepath.Join(dir, "repowatch.yml")
	writeFile(t, bad, "watch:\n  interval: soon\n")
	_, err = Load(bad)
	require.Error(t, err)
	rwErr, ok := err.(*errors.Error)
	require.True(t, ok)
	assert.Equal(t, bad, rwErr.Details["path"])
}

func TestMergeConfigsDoesNotAliasBase(t *testing.T) {
	base := &Config{Extensions: map[string]interface{}{"logging": map[string]interface{}{"level": "info"}}}
	override := &Config{Extensions: map[string]interface{}{"logging": map[string]interface{}{"level": "debug"}}}

	merged := mergeConfigs(base, override)
	assert.Equal(t, "debug", merged.Extensions["logging"].(map[string]interface{})["level"])
	assert.Equal(t, "info", base.Extensions["logging"].(map[string]interface{})["level"])
}

func TestTargetExpandsRoot(t *testing.T) {
	isolate(t)
	t.Setenv("CI_ROOT", "/srv/ci")

	cfg := &Config{Repository: RepositoryConfig{URL: "https://example.com/a/b.git", Root: "$CI_ROOT/clones"}}
	target, err := cfg.Target()
	require.NoError(t, err)
	assert.Equal(t, "/srv/ci/clones/b", target.LocalPath)
	assert.Equal(t, "origin", target.RemoteName)

	cfg.Repository.URL = ""
	assert.True(t, errors.Is(cfg.RequireRepository(), errors.ErrCodeInvalidInput))
}
