package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeffhb60/csv-pivot-app/internal/config"
	"github.com/jeffhb60/csv-pivot-app/internal/ui"
)

// NewInitCommand creates the init command.
func NewInitCommand(app *App) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a config file with the current settings",
		Long:  "Write the effective settings (defaults, environment and flags) to .csvpivot.yaml or the given path.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Name + ".yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := config.AppFs.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.SaveConfig(app.v, path); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			ui.PrintSuccess("Wrote %s", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	return cmd
}
