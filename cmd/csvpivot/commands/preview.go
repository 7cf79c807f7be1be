package commands

import (
	"github.com/spf13/cobra"

	"github.com/jeffhb60/csv-pivot-app/internal/core/query/filterexpr"
	"github.com/jeffhb60/csv-pivot-app/internal/service"
	"github.com/jeffhb60/csv-pivot-app/internal/ui"
)

// NewPreviewCommand creates the preview command.
func NewPreviewCommand(app *App) *cobra.Command {
	var (
		rows    uint64
		filters []string
	)

	cmd := &cobra.Command{
		Use:   "preview [file.csv | table]",
		Short: "Show the first rows of a source",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			specs, err := filterexpr.ParseAll(filters)
			if err != nil {
				return err
			}
			rel, err := openSource(ctx, app, args)
			if err != nil {
				return err
			}

			res, err := app.Container().PivotService().Preview(ctx, rel, specs, rows)
			if err != nil {
				return err
			}
			return ui.PrintResult(res.ResultSet)
		},
	}

	cmd.Flags().Uint64VarP(&rows, "rows", "n", service.DefaultPreviewRows, "Number of rows to show")
	cmd.Flags().StringArrayVarP(&filters, "filter", "f", nil, `Filter expression, e.g. "region = East and amount > 10" (repeatable)`)

	return cmd
}
