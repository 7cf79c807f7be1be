package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/spf13/cobra"

	"github.com/jeffhb60/csv-pivot-app/internal/core/query/domain"
	"github.com/jeffhb60/csv-pivot-app/internal/core/query/filterexpr"
	"github.com/jeffhb60/csv-pivot-app/internal/ui"
)

const noColumnDim = "(none, long output)"

// NewInteractiveCommand creates the interactive command.
func NewInteractiveCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "interactive [file.csv | table]",
		Aliases: []string{"i"},
		Short:   "Build pivots by answering prompts",
		Args:    cobra.MaximumNArgs(1),
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

			ui.PrintHeader("csvpivot", fmt.Sprintf("%s: %d columns", sch.Relation, len(sch.Columns)))
			for {
				err := pivotOnce(ctx, app, rel, sch)
				if errors.Is(err, terminal.InterruptErr) {
					return nil
				}
				if err != nil {
					ui.PrintError("%v", err)
				}

				again := true
				if err := survey.AskOne(&survey.Confirm{Message: "Build another pivot?", Default: true}, &again); err != nil || !again {
					return nil
				}
			}
		},
	}
}

func pivotOnce(ctx context.Context, app *App, rel domain.Relation, sch *domain.Schema) error {
	names := sch.Names()
	aggs := make([]string, len(domain.Aggregates))
	for i, a := range domain.Aggregates {
		aggs[i] = string(a)
	}

	answers := struct {
		Rows    []string
		ColDim  string
		Measure string
		Agg     string
	}{}
	qs := []*survey.Question{
		{
			Name:     "rows",
			Prompt:   &survey.MultiSelect{Message: "Row dimensions:", Options: names},
			Validate: survey.MinItems(1),
		},
		{
			Name:   "coldim",
			Prompt: &survey.Select{Message: "Column dimension:", Options: append([]string{noColumnDim}, names...)},
		},
		{
			Name:   "measure",
			Prompt: &survey.Select{Message: "Measure:", Options: append([]string{domain.RowCountMarker}, names...), Help: "* counts rows"},
		},
		{
			Name:   "agg",
			Prompt: &survey.Select{Message: "Aggregate:", Options: aggs, Default: string(domain.AggSum)},
		},
	}
	if err := survey.Ask(qs, &answers); err != nil {
		return err
	}

	opts := &pivotOptions{
		rows:    answers.Rows,
		measure: answers.Measure,
		agg:     answers.Agg,
	}
	if answers.ColDim != noColumnDim {
		opts.colDim = answers.ColDim
		opts.mode = string(domain.Wide)
	}
	if opts.measure == domain.RowCountMarker {
		opts.agg = string(domain.AggCount)
	}

	for {
		expr := ""
		prompt := &survey.Input{
			Message: "Filter (empty to finish):",
			Help:    `e.g. region = East and amount >= 100; operators: = != > >= < <= contains startswith endswith is_null not_null`,
		}
		if err := survey.AskOne(prompt, &expr, survey.WithValidator(validFilter)); err != nil {
			return err
		}
		if expr == "" {
			break
		}
		opts.filters = append(opts.filters, expr)
	}

	if err := survey.AskOne(&survey.Input{Message: "Export to file (empty to print):"}, &opts.output); err != nil {
		return err
	}
	return opts.run(ctx, app, rel)
}

func validFilter(ans interface{}) error {
	s, _ := ans.(string)
	if s == "" {
		return nil
	}
	_, err := filterexpr.Parse(s)
	return err
}
