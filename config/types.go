package config

import (
	"fmt"
	"time"

	"github.com/grovetools/repowatch/command"
	"github.com/grovetools/repowatch/pkg/paths"
	"github.com/grovetools/repowatch/watch"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

//go:generate go run ../tools/schema-generator/

const (
	// CurrentVersion is the config format version written by `config init`.
	CurrentVersion = "1.0"

	// DefaultInterval is the polling interval used when none is configured.
	DefaultInterval = "60s"

	// DefaultKillGrace is how long a killed command gets between SIGTERM and SIGKILL.
	DefaultKillGrace = "5s"
)

// Config is the top-level repowatch.yml document.
type Config struct {
	Version    string           `yaml:"version,omitempty" toml:"version,omitempty" jsonschema:"description=Configuration version (e.g. '1.0')"`
	Repository RepositoryConfig `yaml:"repository,omitempty" toml:"repository,omitempty" jsonschema:"description=The repository to watch"`
	Watch      WatchConfig      `yaml:"watch,omitempty" toml:"watch,omitempty" jsonschema:"description=Polling and process control settings"`
	Build      ScriptConfig     `yaml:"build,omitempty" toml:"build,omitempty" jsonschema:"description=Commands run when a new commit arrives"`
	Test       TestConfig       `yaml:"test,omitempty" toml:"test,omitempty" jsonschema:"description=Commands run after the build"`

	// Extensions holds top-level sections owned by other packages, such as
	// "logging". They are decoded on demand with UnmarshalExtension.
	Extensions map[string]interface{} `yaml:",inline" toml:"-" jsonschema:"-"`

	// Sources lists the files merged into this config, lowest precedence first.
	Sources []string `yaml:"-" toml:"-" json:"-" jsonschema:"-"`
}

// RepositoryConfig identifies the remote and where its clone lives.
type RepositoryConfig struct {
	URL    string `yaml:"url,omitempty" toml:"url,omitempty" jsonschema:"description=Remote URL or owner/repo shorthand for GitHub"`
	Root   string `yaml:"root,omitempty" toml:"root,omitempty" jsonschema:"description=Directory clones are created under (default: the repowatch data dir)"`
	Remote string `yaml:"remote,omitempty" toml:"remote,omitempty" validate:"omitempty,gitremote" jsonschema:"description=Name of the git remote (default: origin)"`
}

// WatchConfig controls the polling schedule.
type WatchConfig struct {
	Interval       string `yaml:"interval,omitempty" toml:"interval,omitempty" validate:"omitempty,duration" jsonschema:"description=Polling interval as a Go duration (default: 60s)"`
	KillOnStop     bool   `yaml:"kill_on_stop,omitempty" toml:"kill_on_stop,omitempty" jsonschema:"description=Terminate running commands on stop instead of letting them finish"`
	KillGrace      string `yaml:"kill_grace,omitempty" toml:"kill_grace,omitempty" validate:"omitempty,duration" jsonschema:"description=Delay between SIGTERM and SIGKILL when killing commands (default: 5s)"`
	CommandTimeout string `yaml:"command_timeout,omitempty" toml:"command_timeout,omitempty" validate:"omitempty,duration" jsonschema:"description=Per-command timeout; empty means no timeout"`
}

// ScriptConfig is an ordered command list. Commands and Run may be combined;
// Commands come first.
type ScriptConfig struct {
	Commands []string `yaml:"commands,omitempty" toml:"commands,omitempty" jsonschema:"description=Commands run in order through the shell"`
	Run      string   `yaml:"run,omitempty" toml:"run,omitempty" jsonschema:"description=Multi-line script; one command per line, '#' starts a comment"`
}

// TestConfig is the test script plus its on/off switch.
type TestConfig struct {
	ScriptConfig `yaml:",inline"`
	Enabled      *bool `yaml:"enabled,omitempty" toml:"enabled,omitempty" jsonschema:"description=Run tests after each build (default: true)"`
}

// Lines returns the configured commands as a Script.
func (s ScriptConfig) Lines() command.Script {
	script := command.ScriptOf(s.Commands...)
	return append(script, command.ParseScript(s.Run)...)
}

// Empty reports whether no command is configured.
func (s ScriptConfig) Empty() bool { return s.Lines().Empty() }

// RunTests reports whether tests should run after a build.
func (t TestConfig) RunTests() bool {
	return t.Enabled == nil || *t.Enabled
}

// Scripts returns the build and test scripts for a watch session.
func (c *Config) Scripts() watch.Scripts {
	return watch.Scripts{
		Build:    c.Build.Lines(),
		Test:     c.Test.Lines(),
		RunTests: c.Test.RunTests(),
	}
}

// SetDefaults fills in unset fields.
func (c *Config) SetDefaults() {
	if c.Version == "" {
		c.Version = CurrentVersion
	}
	if c.Repository.Remote == "" {
		c.Repository.Remote = "origin"
	}
	if c.Repository.Root == "" {
		c.Repository.Root = paths.ReposDir()
	}
	if c.Watch.Interval == "" {
		c.Watch.Interval = DefaultInterval
	}
	if c.Watch.KillGrace == "" {
		c.Watch.KillGrace = DefaultKillGrace
	}
}

// IntervalDuration returns the parsed polling interval.
func (c *Config) IntervalDuration() time.Duration {
	return parseDurationOr(c.Watch.Interval, time.Minute)
}

// KillGraceDuration returns the parsed kill grace period.
func (c *Config) KillGraceDuration() time.Duration {
	return parseDurationOr(c.Watch.KillGrace, 5*time.Second)
}

// CommandTimeoutDuration returns the parsed per-command timeout, zero when unset.
func (c *Config) CommandTimeoutDuration() time.Duration {
	return parseDurationOr(c.Watch.CommandTimeout, 0)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// UnmarshalExtension decodes an extension section into target. A missing
// section leaves target untouched.
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	if c.Extensions == nil {
		return nil
	}

	raw, ok := c.Extensions[key]
	if !ok {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "yaml",
		Result:           target,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder for extension %q: %w", key, err)
	}

	if err := decoder.Decode(raw); err != nil {
		return fmt.Errorf("failed to decode extension %q: %w", key, err)
	}
	return nil
}

// String renders the config as YAML.
func (c *Config) String() string {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("<unprintable config: %v>", err)
	}
	return string(data)
}
