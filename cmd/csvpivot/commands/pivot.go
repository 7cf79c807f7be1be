package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jeffhb60/csv-pivot-app/internal/config"
	"github.com/jeffhb60/csv-pivot-app/internal/core/export"
	"github.com/jeffhb60/csv-pivot-app/internal/core/query/domain"
	"github.com/jeffhb60/csv-pivot-app/internal/core/query/filterexpr"
	"github.com/jeffhb60/csv-pivot-app/internal/ui"
	"github.com/jeffhb60/csv-pivot-app/internal/watch"
)

type pivotOptions struct {
	rows    []string
	measure string
	agg     string
	mode    string
	colDim  string
	filters []string
	maxCols int
	limit   uint64
	explain bool
	output  string
	format  string
	watch   bool
}

// NewPivotCommand creates the pivot command.
func NewPivotCommand(app *App) *cobra.Command {
	opts := &pivotOptions{}

	cmd := &cobra.Command{
		Use:   "pivot [file.csv | table]",
		Short: "Aggregate a measure by row dimensions, optionally spread over a column dimension",
		Example: `  csvpivot pivot sales.csv --rows region --measure amount --agg sum
  csvpivot pivot sales.csv --rows region --col-dim month --measure amount -f "year = 2024"
  csvpivot pivot sales.csv --rows region,product --measure '*' --agg count --output counts.xlsx`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if opts.mode == "" && opts.colDim != "" {
				opts.mode = string(domain.Wide)
			}
			if !cmd.Flags().Changed("agg") && opts.measure == domain.RowCountMarker {
				opts.agg = string(domain.AggCount)
			}

			if !opts.watch {
				rel, err := openSource(ctx, app, args)
				if err != nil {
					return err
				}
				return opts.run(ctx, app, rel)
			}

			if app.Container().External() || len(args) == 0 {
				return fmt.Errorf("--watch needs a CSV file source")
			}
			return opts.watchFile(ctx, app, args[0])
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVarP(&opts.rows, "rows", "r", nil, "Row dimensions, comma separated or repeated")
	flags.StringVarP(&opts.measure, "measure", "m", domain.RowCountMarker, `Measure column, or "*" to count rows`)
	flags.StringVarP(&opts.agg, "agg", "a", string(domain.AggSum), "Aggregate: SUM, COUNT, AVG, MIN or MAX")
	flags.StringVar(&opts.mode, "mode", "", "Output shape: long or wide (wide when --col-dim is set)")
	flags.StringVarP(&opts.colDim, "col-dim", "c", "", "Column dimension whose values become output columns")
	flags.StringArrayVarP(&opts.filters, "filter", "f", nil, `Filter expression, e.g. "region = East and amount > 10" (repeatable)`)
	flags.IntVar(&opts.maxCols, "max-cols", 0, "Maximum number of wide columns (default max_wide_columns)")
	flags.Uint64Var(&opts.limit, "limit", 0, "Maximum number of output rows (default preview_limit on screen, unlimited on export)")
	flags.BoolVar(&opts.explain, "explain", false, "Show the generated SQL instead of running it")
	flags.StringVarP(&opts.output, "output", "o", "", "Write the result to a .csv or .xlsx file")
	flags.StringVar(&opts.format, "format", "", "Output format: csv or xlsx (default from the --output extension)")
	flags.BoolVarP(&opts.watch, "watch", "w", false, "Re-run whenever the CSV file changes")
	_ = cmd.MarkFlagRequired("rows")

	return cmd
}

func (o *pivotOptions) spec(cfg *config.Config) (domain.PivotSpec, error) {
	agg, ok := domain.ParseAggregate(o.agg)
	if !ok {
		return domain.PivotSpec{}, fmt.Errorf("unsupported aggregate %q", o.agg)
	}
	mode := domain.Long
	switch domain.PivotMode(o.mode) {
	case "", domain.Long:
	case domain.Wide:
		mode = domain.Wide
	default:
		return domain.PivotSpec{}, fmt.Errorf("unsupported mode %q (want long or wide)", o.mode)
	}

	spec := domain.PivotSpec{
		Mode:           mode,
		RowDims:        o.rows,
		Measure:        o.measure,
		Agg:            agg,
		ColDim:         o.colDim,
		MaxWideColumns: o.maxCols,
		Limit:          o.limit,
	}
	if spec.MaxWideColumns == 0 {
		spec.MaxWideColumns = cfg.Pivot.MaxWideColumns
	}
	if spec.Limit == 0 && o.output == "" {
		spec.Limit = uint64(cfg.Pivot.PreviewLimit)
	}
	return spec, nil
}

func (o *pivotOptions) target() (export.Target, error) {
	if o.format != "" {
		return export.ParseTarget(o.format)
	}
	return export.ParseTarget(filepath.Ext(o.output))
}

func (o *pivotOptions) run(ctx context.Context, app *App, rel domain.Relation) error {
	c := app.Container()
	spec, err := o.spec(c.Config())
	if err != nil {
		return err
	}
	filters, err := filterexpr.ParseAll(o.filters)
	if err != nil {
		return err
	}
	svc := c.PivotService()

	if o.explain {
		md, err := svc.Explain(ctx, rel, spec, filters)
		if err != nil {
			return err
		}
		return ui.PrintMarkdown(md)
	}

	res, err := svc.Run(ctx, rel, spec, filters)
	if err != nil {
		return err
	}

	if o.output == "" {
		if err := ui.PrintResult(res.ResultSet); err != nil {
			return err
		}
		if spec.Limit > 0 && uint64(len(res.Rows)) == spec.Limit {
			ui.PrintWarning("Output capped at %d rows; use --limit or --output for more", spec.Limit)
		}
		return nil
	}

	target, err := o.target()
	if err != nil {
		return err
	}
	if err := export.Check(len(res.Rows)+1, len(res.Columns), target); err != nil {
		return err
	}
	f, err := config.AppFs.Create(o.output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", o.output, err)
	}
	defer f.Close()
	if err := svc.Export(f, res, target); err != nil {
		return err
	}
	ui.PrintSuccess("Wrote %d rows x %d columns to %s", len(res.Rows), len(res.Columns), o.output)
	return nil
}

func (o *pivotOptions) watchFile(ctx context.Context, app *App, path string) error {
	c := app.Container()
	if _, err := c.Open(ctx, path); err != nil {
		return err
	}

	first := true
	w, err := watch.NewWatcher(path, func() error {
		var rel domain.Relation
		var err error
		if first {
			rel, err = c.Open(ctx, path)
			first = false
		} else {
			ui.PrintInfo("%s changed, re-running pivot", path)
			rel, err = c.Reload(ctx, path)
		}
		if err != nil {
			return err
		}
		return o.run(ctx, app, rel)
	}, func(err error) {
		ui.PrintError("%v", err)
	})
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		w.Stop()
		return err
	}
	defer w.Stop()

	ui.PrintInfo("Watching %s, press Ctrl+C to stop", path)
	<-ctx.Done()
	return nil
}
