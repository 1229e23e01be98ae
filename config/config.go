// Package config loads repowatch.yml / repowatch.toml, merges the global,
// project and override layers, and validates the result.
package config

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/grovetools/repowatch/command"
	"github.com/grovetools/repowatch/errors"
	"github.com/grovetools/repowatch/pkg/paths"
	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Format is the syntax of a config file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

var configNames = []string{
	"repowatch.yml",
	"repowatch.yaml",
	"repowatch.toml",
	".repowatch.yml",
	".repowatch.yaml",
}

var overrideNames = []string{
	"repowatch.override.yml",
	"repowatch.override.yaml",
	"repowatch.override.toml",
}

// FormatForPath picks the format from a file extension. Anything that is not
// .toml is read as YAML.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// Load reads, validates and defaults a single configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
			WithDetail("path", path)
	}

	cfg, err := LoadFromBytes(data, FormatForPath(path))
	if err != nil {
		return nil, withPath(err, path)
	}
	cfg.Sources = []string{path}
	return cfg, nil
}

// LoadDefault loads the layered configuration for the current directory.
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to get current directory")
	}
	return LoadFrom(cwd)
}

// LoadFrom loads the layered configuration starting from startDir.
func LoadFrom(startDir string) (*Config, error) {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return LoadFromWithLogger(startDir, logger)
}

// LoadFromWithLogger merges, in increasing precedence:
//  1. the global config in the repowatch config dir
//  2. the project config found by walking up from startDir
//  3. repowatch.override.{yml,yaml,toml} next to the project config
//
// Every layer is optional; with none present the result is the defaults.
func LoadFromWithLogger(startDir string, logger *logrus.Logger) (*Config, error) {
	finalConfig := &Config{}

	if globalPath := GlobalConfigPath(); globalPath != "" {
		logger.WithField("path", globalPath).Debug("Loading global configuration")
		globalConfig, err := LoadLayer(globalPath)
		if err != nil {
			return nil, err
		}
		finalConfig = mergeConfigs(finalConfig, globalConfig)
		finalConfig.Sources = append(finalConfig.Sources, globalPath)
	}

	projectPath, err := FindConfigFile(startDir)
	switch {
	case err == nil:
		logger.WithField("path", projectPath).Debug("Loading project configuration")
		projectConfig, err := LoadLayer(projectPath)
		if err != nil {
			return nil, err
		}
		finalConfig = mergeConfigs(finalConfig, projectConfig)
		finalConfig.Sources = append(finalConfig.Sources, projectPath)

		projectDir := filepath.Dir(projectPath)
		for _, name := range overrideNames {
			overridePath := filepath.Join(projectDir, name)
			if info, err := os.Stat(overridePath); err != nil || info.IsDir() {
				continue
			}
			logger.WithField("path", overridePath).Debug("Loading local override configuration")
			overrideConfig, err := LoadLayer(overridePath)
			if err != nil {
				return nil, err
			}
			finalConfig = mergeConfigs(finalConfig, overrideConfig)
			finalConfig.Sources = append(finalConfig.Sources, overridePath)
		}
	case errors.Is(err, errors.ErrCodeConfigNotFound):
		logger.WithField("searchPath", startDir).Debug("No project configuration found, using defaults")
	default:
		return nil, err
	}

	finalConfig.SetDefaults()
	if err := finalConfig.Validate(); err != nil {
		return nil, err
	}

	if logger.IsLevelEnabled(logrus.DebugLevel) {
		logger.Debugf("Merged configuration:\n%s", finalConfig.String())
	}
	return finalConfig, nil
}

// LoadFromBytes parses, schema-validates, defaults and validates a document.
func LoadFromBytes(data []byte, format Format) (*Config, error) {
	cfg, err := decodeDocument(data, format)
	if err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadLayer reads one file without applying defaults or validation, so that unset fields
// do not mask lower layers during the merge.
func LoadLayer(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
			WithDetail("path", path)
	}
	cfg, err := decodeDocument(data, FormatForPath(path))
	if err != nil {
		return nil, withPath(err, path)
	}
	return cfg, nil
}

// decodeDocument expands ${VAR} references, parses the document into a
// generic map, validates it against the generated schema and decodes it.
// Both formats are decoded through the YAML struct tags so inline
// extensions survive either way.
func decodeDocument(data []byte, format Format) (*Config, error) {
	expanded := []byte(expandEnvVars(string(data)))

	doc := map[string]interface{}{}
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(expanded, &doc); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse TOML configuration")
		}
	default:
		if err := yaml.Unmarshal(expanded, &doc); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse YAML configuration")
		}
	}
	if doc == nil {
		doc = map[string]interface{}{}
	}

	validator, err := NewSchemaValidator()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create schema validator")
	}
	if err := validator.Validate(doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "schema validation failed")
	}

	normalized, err := yaml.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to normalise configuration")
	}
	var cfg Config
	if err := yaml.Unmarshal(normalized, &cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to decode configuration")
	}
	return &cfg, nil
}

func withPath(err error, path string) error {
	if e, ok := err.(*errors.Error); ok {
		return e.WithDetail("path", path)
	}
	return err
}

// FindConfigFile searches for a project config with the following precedence:
//  1. startDir up to the filesystem root
//  2. the root of the git repository containing startDir
func FindConfigFile(startDir string) (string, error) {
	dir := startDir
	for {
		if path := findIn(dir); path != "" {
			return path, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if gitRoot := getGitRoot(startDir); gitRoot != "" {
		if path := findIn(gitRoot); path != "" {
			return path, nil
		}
	}

	return "", errors.ConfigNotFound(startDir).WithDetail("searchPath", startDir)
}

func findIn(dir string) string {
	for _, name := range configNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// GlobalConfigPath returns the first global config file that exists in the
// repowatch config dir, or "".
func GlobalConfigPath() string {
	dir := paths.ConfigDir()
	if dir == "" {
		return ""
	}
	for _, name := range configNames[:3] {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment values.
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		varName := envVarRegex.FindStringSubmatch(match)[1]

		parts := strings.SplitN(varName, ":-", 2)
		varName = parts[0]
		defaultValue := ""
		if len(parts) > 1 {
			defaultValue = parts[1]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

func getGitRoot(dir string) string {
	out, err := command.NewRunner().CaptureArgs(context.Background(), dir, "git", "rev-parse", "--show-toplevel")
	if err != nil {
		return ""
	}
	return out
}
