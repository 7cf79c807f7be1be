package commands

import (
	"context"
	"fmt"

	"github.com/jeffhb60/csv-pivot-app/internal/core/query/domain"
	"github.com/jeffhb60/csv-pivot-app/internal/ui"
)

// openSource opens the relation named by the command's arguments.
func openSource(ctx context.Context, app *App, args []string) (domain.Relation, error) {
	source := ""
	if len(args) == 1 {
		source = args[0]
	}
	c := app.Container()
	if !c.External() && source == "" {
		return nil, fmt.Errorf("a CSV file is required (or pass --table with --database-url)")
	}

	if c.External() {
		return c.Open(ctx, source)
	}

	spinner, _ := ui.PrintSpinner(fmt.Sprintf("Loading %s", source))
	rel, err := c.Open(ctx, source)
	if spinner != nil {
		spinner.Stop()
	}
	if err != nil {
		return nil, err
	}
	if ds, ok := c.Dataset(source); ok && !ds.Cached {
		ui.PrintSuccess("Imported %d rows from %s", ds.Rows, source)
	}
	return rel, nil
}
