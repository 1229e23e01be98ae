package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/grovetools/repowatch/config"
	"github.com/grovetools/repowatch/pkg/paths"
	"github.com/spf13/cobra"
)

// PathsOutput represents the XDG-compliant paths used by repowatch.
type PathsOutput struct {
	ConfigDir    string `json:"config_dir"`
	DataDir      string `json:"data_dir"`
	StateDir     string `json:"state_dir"`
	CacheDir     string `json:"cache_dir"`
	ReposDir     string `json:"repos_dir"`
	LogsDir      string `json:"logs_dir"`
	GlobalConfig string `json:"global_config,omitempty"`
}

func newPathsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print the XDG-compliant paths used by repowatch",
		Long: `Print the paths used by repowatch as JSON.

- config_dir: the global repowatch.yml
- data_dir: persistent data
- state_dir: session lock files and logs
- cache_dir: temporary data
- repos_dir: default root for clones
- logs_dir: component log files

REPOWATCH_HOME moves all of them under one directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := PathsOutput{
				ConfigDir:    paths.ConfigDir(),
				DataDir:      paths.DataDir(),
				StateDir:     paths.StateDir(),
				CacheDir:     paths.CacheDir(),
				ReposDir:     paths.ReposDir(),
				LogsDir:      paths.LogsDir(),
				GlobalConfig: config.GlobalConfigPath(),
			}

			jsonData, err := json.MarshalIndent(output, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal paths to JSON: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(jsonData))
			return nil
		},
	}
}
