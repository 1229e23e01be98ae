package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/grovetools/repowatch/cli"
	"github.com/grovetools/repowatch/config"
	"github.com/grovetools/repowatch/errors"
	"github.com/grovetools/repowatch/logging"
	"github.com/grovetools/repowatch/util/pathutil"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect repowatch configuration",
	}
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigSchemaCmd())
	cmd.AddCommand(newConfigValidateCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display the layered configuration for the current directory",
		Long: `Shows how the final configuration is built by merging layers:
1. Global config (<config dir>/repowatch.yml)
2. Project config (repowatch.yml, found by walking up from here)
3. Override files (repowatch.override.yml next to the project config)
This is useful for debugging configuration issues.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			if format != "yaml" && format != "toml" {
				return errors.InvalidInput("format", fmt.Sprintf("unknown format %q, want yaml or toml", format))
			}

			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if layers, _ := cmd.Flags().GetBool("layers"); layers {
				for _, path := range cfg.Sources {
					layer, err := config.LoadLayer(path)
					if err != nil {
						return err
					}
					if err := printLayer(out, layerTitle(path), path, layer, format); err != nil {
						return err
					}
				}
			} else if len(cfg.Sources) == 0 {
				fmt.Fprintln(out, "# No configuration files found; showing defaults.")
			}
			return printLayer(out, "FINAL MERGED CONFIG", "", cfg, format)
		},
	}
	cmd.Flags().String("format", "yaml", "Output format: yaml or toml")
	cmd.Flags().Bool("layers", false, "Print every source file before the merged result")
	return cmd
}

func newConfigSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of repowatch.yml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := cli.ComposedSchema()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a config file against the schema and validation rules",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 0 {
				path = args[0]
			} else {
				found, err := config.FindConfigFile(workingDir())
				if err != nil {
					return err
				}
				path = found
			}

			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if _, err := logging.FromConfig(cfg); err != nil {
				return errors.Wrap(err, errors.ErrCodeConfigInvalid, "invalid logging section").WithDetail("path", path)
			}
			logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout()).Success(fmt.Sprintf("%s is valid", path))
			return nil
		},
	}
}

func layerTitle(path string) string {
	global, _ := pathutil.ComparePaths(path, config.GlobalConfigPath())
	switch {
	case global:
		return "GLOBAL CONFIG"
	case strings.HasPrefix(filepath.Base(path), "repowatch.override."):
		return "OVERRIDE CONFIG"
	default:
		return "PROJECT CONFIG"
	}
}

func printLayer(out io.Writer, title, path string, cfg *config.Config, format string) error {
	fmt.Fprintf(out, "--- # %s\n", title)
	if path != "" {
		fmt.Fprintf(out, "# Source: %s\n", path)
	}
	data, err := encodeConfig(cfg, format)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, string(data))
	return nil
}

// encodeConfig renders cfg in format. TOML goes through a generic map so
// that extension sections are kept.
func encodeConfig(cfg *config.Config, format string) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil || format != "toml" {
		return data, err
	}
	doc := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return toml.Marshal(doc)
}
