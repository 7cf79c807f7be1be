// Package service implements the pivot service.
package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jeffhb60/csv-pivot-app/internal/core/export"
	"github.com/jeffhb60/csv-pivot-app/internal/core/query/builder"
	"github.com/jeffhb60/csv-pivot-app/internal/core/query/dialect"
	"github.com/jeffhb60/csv-pivot-app/internal/core/query/domain"
	"github.com/jeffhb60/csv-pivot-app/internal/core/query/filter"
	"github.com/jeffhb60/csv-pivot-app/internal/core/query/filterexpr"
	"github.com/jeffhb60/csv-pivot-app/internal/core/query/widecols"
	"github.com/jeffhb60/csv-pivot-app/internal/core/schema"
	"github.com/jeffhb60/csv-pivot-app/internal/debug"
)

// DefaultPreviewRows is the row count of Preview when none is given.
const DefaultPreviewRows = 20

// Result is an executed pivot.
type Result struct {
	*domain.ResultSet
	Query   *domain.CompiledQuery
	Mapping domain.WideColumnMapping
}

// Plan is a pivot compiled but not executed. For wide pivots the distinct
// probe has already run.
type Plan struct {
	Schema  *domain.Schema
	Filters []domain.FilterSpec
	Where   filter.Where
	Query   *domain.CompiledQuery
	Mapping domain.WideColumnMapping
}

// PivotService orchestrates schema inspection, filter compilation, query
// building and execution against a relation.
type PivotService struct {
	inspector *schema.Inspector
}

// NewPivotService creates a new pivot service.
func NewPivotService(inspector *schema.Inspector) *PivotService {
	return &PivotService{inspector: inspector}
}

// Inspector returns the schema inspector.
func (s *PivotService) Inspector() *schema.Inspector {
	return s.inspector
}

// Describe returns the inspected schema of rel.
func (s *PivotService) Describe(ctx context.Context, rel domain.Relation) (*domain.Schema, error) {
	return s.inspector.Inspect(ctx, rel)
}

// Preview returns the first limit rows of rel matching filters.
func (s *PivotService) Preview(ctx context.Context, rel domain.Relation, filters []domain.FilterSpec, limit uint64) (*Result, error) {
	if limit == 0 {
		limit = DefaultPreviewRows
	}
	d, sch, where, err := s.prepare(ctx, rel, filters)
	if err != nil {
		return nil, err
	}
	q, err := builder.NewPivotBuilder(d).BuildPreview(sch, where, limit)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, rel, q, nil)
}

// Compile validates spec, compiles filters and builds the pivot query. Wide
// pivots execute the distinct probe here; a TooManyColumnsError means the pivot
// query was never built.
func (s *PivotService) Compile(ctx context.Context, rel domain.Relation, spec domain.PivotSpec, filters []domain.FilterSpec) (*Plan, error) {
	d, sch, where, err := s.prepare(ctx, rel, filters)
	if err != nil {
		return nil, err
	}
	b := builder.NewPivotBuilder(d)
	if err := b.Validate(spec, sch); err != nil {
		return nil, err
	}

	plan := &Plan{Schema: sch, Filters: filters, Where: where}
	switch spec.Mode {
	case domain.Wide:
		plan.Mapping, err = widecols.NewPreparer(d).Prepare(ctx, rel, sch, spec, where)
		if err != nil {
			return nil, err
		}
		plan.Query, err = b.BuildWide(spec, sch, where, plan.Mapping)
	default:
		plan.Query, err = b.BuildLong(spec, sch, where)
	}
	if err != nil {
		return nil, err
	}
	debug.Debug("Pivot compiled", "relation", rel.Name(), "mode", spec.Mode, "sql", plan.Query.SQL, "args", len(plan.Query.Args))
	return plan, nil
}

// Run compiles and executes a pivot.
func (s *PivotService) Run(ctx context.Context, rel domain.Relation, spec domain.PivotSpec, filters []domain.FilterSpec) (*Result, error) {
	plan, err := s.Compile(ctx, rel, spec, filters)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, rel, plan.Query, plan.Mapping)
}

// Explain compiles a pivot and renders it as markdown without executing the
// pivot query itself.
func (s *PivotService) Explain(ctx context.Context, rel domain.Relation, spec domain.PivotSpec, filters []domain.FilterSpec) (string, error) {
	plan, err := s.Compile(ctx, rel, spec, filters)
	if err != nil {
		return "", err
	}
	return plan.Markdown(rel.Name(), spec), nil
}

// Export checks the result against the target limits and writes it to w.
func (s *PivotService) Export(w io.Writer, res *Result, target export.Target) error {
	return export.Write(w, res.ResultSet, target)
}

func (s *PivotService) prepare(ctx context.Context, rel domain.Relation, filters []domain.FilterSpec) (dialect.Dialect, *domain.Schema, filter.Where, error) {
	d, err := dialect.For(rel.Dialect())
	if err != nil {
		return nil, nil, filter.Where{}, err
	}
	sch, err := s.inspector.Inspect(ctx, rel)
	if err != nil {
		return nil, nil, filter.Where{}, err
	}
	where, err := filter.NewCompiler(d).Compile(filters, sch)
	if err != nil {
		return nil, nil, filter.Where{}, err
	}
	return d, sch, where, nil
}

func (s *PivotService) execute(ctx context.Context, rel domain.Relation, q *domain.CompiledQuery, mapping domain.WideColumnMapping) (*Result, error) {
	if !q.Safe {
		return nil, &domain.PivotBuildError{Reason: "refusing to execute a query not produced by the builder"}
	}
	debug.Debug("Executing", "relation", rel.Name(), "sql", q.SQL, "args", len(q.Args))
	rs, err := rel.Execute(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, err
	}
	debug.Debug("Executed", "relation", rel.Name(), "rows", len(rs.Rows), "columns", len(rs.Columns))
	return &Result{ResultSet: rs, Query: q, Mapping: mapping}, nil
}

// Markdown renders the plan for display.
func (p *Plan) Markdown(relation string, spec domain.PivotSpec) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Pivot over `%s`\n\n", relation)
	fmt.Fprintf(&b, "- **Mode:** %s\n", spec.Mode)
	fmt.Fprintf(&b, "- **Rows:** %s\n", strings.Join(spec.RowDims, ", "))
	if spec.Mode == domain.Wide {
		fmt.Fprintf(&b, "- **Columns:** %s (%d values)\n", spec.ColDim, len(p.Mapping))
	}
	fmt.Fprintf(&b, "- **Value:** %s(%s)\n", spec.Agg, spec.Measure)
	if spec.Limit > 0 {
		fmt.Fprintf(&b, "- **Limit:** %d\n", spec.Limit)
	}

	if len(p.Filters) > 0 {
		b.WriteString("\n## Filters\n\n")
		for _, f := range p.Filters {
			fmt.Fprintf(&b, "- `%s`\n", filterexpr.Format(f))
		}
	}

	if len(p.Mapping) > 0 {
		b.WriteString("\n## Wide columns\n\n| Value | Column |\n|---|---|\n")
		for _, wc := range p.Mapping {
			fmt.Fprintf(&b, "| %s | `%s` |\n", markdownCell(widecols.Display(wc.Raw)), wc.Alias)
		}
	}

	b.WriteString("\n## SQL\n\n```sql\n")
	b.WriteString(p.Query.SQL)
	b.WriteString("\n```\n")
	if len(p.Query.Args) > 0 {
		b.WriteString("\n## Parameters\n\n")
		for i, a := range p.Query.Args {
			fmt.Fprintf(&b, "%d. `%s`\n", i+1, export.FormatCell(a))
		}
	}
	return b.String()
}

func markdownCell(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}
