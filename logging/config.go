package logging

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// Config defines the "logging" section of repowatch.yml.
type Config struct {
	// Level is the minimum log level to output (e.g., "debug", "info", "warn", "error").
	// Can be overridden by the REPOWATCH_LOG_LEVEL environment variable.
	Level string `yaml:"level" jsonschema:"enum=trace,enum=debug,enum=info,enum=warn,enum=warning,enum=error,description=Minimum log level"`

	// ReportCaller, if true, includes the file, line, and function name in the log output.
	// Can be enabled with REPOWATCH_LOG_CALLER=true.
	ReportCaller bool `yaml:"report_caller" jsonschema:"description=Include file and line of the log call"`

	// File configures logging to a file.
	File FileSinkConfig `yaml:"file" jsonschema:"description=File sink settings"`

	// Format configures the appearance of the log output.
	Format FormatConfig `yaml:"format" jsonschema:"description=Output format settings"`
}

// FileSinkConfig configures the file logging sink. When disabled, logs still
// go to <state dir>/logs/<component>-<date>.log.
type FileSinkConfig struct {
	Enabled bool `yaml:"enabled" jsonschema:"description=Write to Path instead of the default log file"`
	// Path is the full path to the log file.
	Path   string `yaml:"path" jsonschema:"description=Log file path; ~ is expanded"`
	Format string `yaml:"format,omitempty" jsonschema:"enum=text,enum=json,description=File format (default: text)"`
}

// FormatConfig controls the log output format.
type FormatConfig struct {
	// Preset can be "default" (rich text), "simple" (minimal text), or "json".
	Preset string `yaml:"preset" jsonschema:"enum=default,enum=simple,enum=json"`
	// DisableTimestamp disables the timestamp from the "default" and "simple" formats.
	DisableTimestamp bool `yaml:"disable_timestamp"`
	// DisableComponent disables the component name from the "default" and "simple" formats.
	DisableComponent bool `yaml:"disable_component"`
	// StructuredToStderr controls when structured logs are sent to stderr.
	// Can be "auto" (default), "always", or "never".
	StructuredToStderr string `yaml:"structured_to_stderr" jsonschema:"enum=auto,enum=always,enum=never"`
	// NoColor disables styling of the component name.
	NoColor bool `yaml:"no_color,omitempty"`
}

// GenerateSchema returns the JSON Schema of the "logging" section.
func GenerateSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		ExpandedStruct:             true,
		DoNotReference:             true,
		FieldNameTag:               "yaml",
		RequiredFromJSONSchemaTags: true,
	}

	schema := r.Reflect(&Config{})
	schema.Title = "repowatch logging configuration"
	schema.Description = "Schema for the 'logging' section of repowatch.yml."

	return json.MarshalIndent(schema, "", "  ")
}
