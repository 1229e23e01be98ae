package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/grovetools/repowatch/cli"
	"github.com/grovetools/repowatch/detect"
	"github.com/grovetools/repowatch/logging"
	"github.com/spf13/cobra"
)

func newDetectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect [dir]",
		Short: "Show the build and test scripts detected for a checkout",
		Long: `Inspect the top level of a checkout and print the project type and the
build and test scripts repowatch would use when none are configured.`,
		Example: `repowatch detect
repowatch detect ~/src/app --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := workingDir()
			if len(args) > 0 {
				dir = args[0]
			}
			abs, err := filepath.Abs(dir)
			if err != nil {
				return err
			}

			name, _ := cmd.Flags().GetString("name")
			if name == "" {
				name = filepath.Base(abs)
			}
			plan := detect.PlanFor(abs, name)

			if cli.GetOptions(cmd).JSONOutput {
				data, err := json.MarshalIndent(plan, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal detection result: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			pretty := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())
			pretty.Path("Directory", abs)
			pretty.Field("Project", plan.DisplayName)
			fmt.Fprintln(cmd.OutOrStdout(), "Build:")
			pretty.Code(plan.Build.String())
			fmt.Fprintln(cmd.OutOrStdout(), "Test:")
			pretty.Code(plan.Test.String())
			if plan.Note != "" {
				pretty.Warn(plan.Note)
			}
			return nil
		},
	}
	cmd.Flags().String("name", "", "Repository name used for image tags (default: directory name)")
	return cmd
}
