package commands

import (
	"github.com/spf13/cobra"

	"github.com/jeffhb60/csv-pivot-app/internal/ui"
)

// NewDescribeCommand creates the describe command.
func NewDescribeCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "describe [file.csv | table]",
		Short: "List columns with their native and inferred types",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rel, err := openSource(ctx, app, args)
			if err != nil {
				return err
			}

			sch, err := app.Container().PivotService().Describe(ctx, rel)
			if err != nil {
				return err
			}
			ui.PrintInfo("Relation %s (%s), %d columns", sch.Relation, rel.Dialect(), len(sch.Columns))
			return ui.PrintSchema(sch)
		},
	}
}
