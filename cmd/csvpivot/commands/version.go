package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeffhb60/csv-pivot-app/internal/adapters/database"
	"github.com/jeffhb60/csv-pivot-app/internal/adapters/database/sqlite"
	"github.com/jeffhb60/csv-pivot-app/internal/ui"
	"github.com/jeffhb60/csv-pivot-app/internal/version"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(app *App) *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Display version information for csvpivot and the embedded SQLite engine",
		Annotations: map[string]string{
			"skipConfig": "true",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			if short {
				ui.ColorPrint(ui.GetColorPrinters()["primary"], "%s\n", info.String())
				return nil
			}
			info.Engine = engineVersion(cmd.Context())
			ui.ColorPrint(ui.GetColorPrinters()["info"], "%s\n", info.FullString())
			return nil
		},
	}

	cmd.Flags().BoolVar(&short, "short", false, "Print a single line")

	return cmd
}

func engineVersion(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	a, err := sqlite.NewSQLiteAdapter(database.Config{URL: ":memory:"})
	if err != nil {
		return ""
	}
	if err := a.Connect(ctx); err != nil {
		return ""
	}
	defer a.Disconnect(ctx)

	v, err := a.ServerVersion(ctx)
	if err != nil {
		return ""
	}
	if err := database.CheckVersion(a.GetDialect(), v); err != nil {
		return "sqlite " + v + " (unsupported)"
	}
	return "sqlite " + v
}
