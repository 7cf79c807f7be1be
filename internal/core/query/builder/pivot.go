// Package builder assembles the fixed query shapes of the pivot subsystem.
package builder

import (
	"fmt"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/jeffhb60/csv-pivot-app/internal/core/query/dialect"
	"github.com/jeffhb60/csv-pivot-app/internal/core/query/domain"
	"github.com/jeffhb60/csv-pivot-app/internal/core/query/safety"
)

// ValueAlias names the aggregate column of a long pivot.
const ValueAlias = "value"

// PivotBuilder builds long and wide pivot queries for one dialect.
type PivotBuilder struct {
	dialect dialect.Dialect
}

// NewPivotBuilder creates a pivot builder.
func NewPivotBuilder(d dialect.Dialect) *PivotBuilder {
	return &PivotBuilder{dialect: d}
}

// Validate checks a spec against the schema and reports every violation at once.
func (b *PivotBuilder) Validate(spec domain.PivotSpec, schema *domain.Schema) error {
	var v []string
	add := func(format string, args ...any) { v = append(v, fmt.Sprintf(format, args...)) }

	if spec.Mode != domain.Long && spec.Mode != domain.Wide {
		add("unknown mode %q", spec.Mode)
	}

	if len(spec.RowDims) == 0 {
		add("at least one row dimension is required")
	}
	seen := make(map[string]bool, len(spec.RowDims))
	for _, d := range spec.RowDims {
		if seen[d] {
			add("row dimension %q is listed more than once", d)
			continue
		}
		seen[d] = true
		if _, ok := schema.Lookup(d); !ok {
			add("unknown row dimension %q", d)
		}
	}

	agg, aggOK := domain.ParseAggregate(string(spec.Agg))
	if !aggOK {
		add("unsupported aggregation %q", spec.Agg)
	}

	switch {
	case spec.Measure == "":
		add("a measure is required")
	case spec.Measure == domain.RowCountMarker:
		if aggOK && agg != domain.AggCount {
			add("the row count marker %q is only valid with COUNT", domain.RowCountMarker)
		}
	default:
		col, ok := schema.Lookup(spec.Measure)
		if !ok {
			add("unknown measure %q", spec.Measure)
		} else if agg == domain.AggSum || agg == domain.AggAvg {
			if col.Type != domain.Numeric {
				add("%s requires a numeric measure, %q is %s", agg, spec.Measure, col.Type)
			}
		}
		isColDim := spec.Mode == domain.Wide && spec.Measure == spec.ColDim
		if aggOK && agg != domain.AggCount && (seen[spec.Measure] || isColDim) {
			add("measure %q is also a dimension; only COUNT may aggregate a dimension", spec.Measure)
		}
	}

	if spec.Mode == domain.Wide {
		switch {
		case spec.ColDim == "":
			add("wide mode requires a column dimension")
		case seen[spec.ColDim]:
			add("column dimension %q is also a row dimension", spec.ColDim)
		default:
			if _, ok := schema.Lookup(spec.ColDim); !ok {
				add("unknown column dimension %q", spec.ColDim)
			}
		}
		if spec.MaxWideColumns <= 0 {
			add("max wide columns must be positive, got %d", spec.MaxWideColumns)
		}
	}

	if len(v) > 0 {
		return &domain.InvalidPivotSpecError{Violations: v}
	}
	return nil
}

// LongAlias names the aggregate column of a long pivot: "value", or "value_2",
// "value_3" and so on when a row dimension already uses the name. Engines match
// output names case-insensitively in ORDER BY, so the comparison is too.
func LongAlias(rowDims []string) string {
	used := make(map[string]bool, len(rowDims))
	for _, d := range rowDims {
		used[strings.ToLower(d)] = true
	}
	alias := ValueAlias
	for n := 2; used[alias]; n++ {
		alias = ValueAlias + "_" + strconv.Itoa(n)
	}
	return alias
}

// BuildLong builds one row per row-dimension combination with a single aggregate
// column named by LongAlias.
func (b *PivotBuilder) BuildLong(spec domain.PivotSpec, schema *domain.Schema, where sq.Sqlizer) (*domain.CompiledQuery, error) {
	if err := b.Validate(spec, schema); err != nil {
		return nil, err
	}
	guard := safety.NewGuard(schema, b.dialect)

	dims, err := guard.Columns(spec.RowDims)
	if err != nil {
		return nil, err
	}
	value, err := b.aggregate(guard, spec, "")
	if err != nil {
		return nil, err
	}
	alias, err := guard.Alias(LongAlias(spec.RowDims))
	if err != nil {
		return nil, err
	}

	q := sq.Select(dims...).
		Column(value + " AS " + alias).
		From(guard.Relation()).
		Where(whereOrAll(where)).
		GroupBy(dims...).
		OrderBy(dims...)

	return b.finish(q, spec.Limit)
}

// BuildWide builds one output column per mapped distinct value of the column dimension.
func (b *PivotBuilder) BuildWide(spec domain.PivotSpec, schema *domain.Schema, where sq.Sqlizer, mapping domain.WideColumnMapping) (*domain.CompiledQuery, error) {
	if err := b.Validate(spec, schema); err != nil {
		return nil, err
	}
	if spec.Mode != domain.Wide {
		return nil, &domain.PivotBuildError{Reason: "wide query requested for a long pivot spec"}
	}
	if len(mapping) == 0 {
		return nil, &domain.PivotBuildError{Reason: fmt.Sprintf("column dimension %q has no values to spread", spec.ColDim)}
	}
	guard := safety.NewGuard(schema, b.dialect)

	dims, err := guard.Columns(spec.RowDims)
	if err != nil {
		return nil, err
	}
	colDim, _, err := guard.Column(spec.ColDim)
	if err != nil {
		return nil, err
	}

	q := sq.Select(dims...)
	for _, wc := range mapping {
		alias, err := guard.Alias(wc.Alias)
		if err != nil {
			return nil, err
		}
		cond, args := colDim+" = ?", []any{wc.Raw}
		if wc.Raw == nil {
			cond, args = colDim+" IS NULL", nil
		}
		value, err := b.aggregate(guard, spec, cond)
		if err != nil {
			return nil, err
		}
		q = q.Column(value+" AS "+alias, args...)
	}

	q = q.From(guard.Relation()).
		Where(whereOrAll(where)).
		GroupBy(dims...).
		OrderBy(dims...)

	return b.finish(q, spec.Limit)
}

// aggregate renders AGG(measure), or AGG(CASE WHEN cond THEN measure END) when cond is set.
func (b *PivotBuilder) aggregate(guard *safety.Guard, spec domain.PivotSpec, cond string) (string, error) {
	fn, err := safety.Aggregate(spec.Agg)
	if err != nil {
		return "", err
	}

	var measure string
	if spec.Measure == domain.RowCountMarker {
		if cond == "" {
			return "COUNT(*)", nil
		}
		measure = "1"
	} else {
		ident, col, err := guard.Column(spec.Measure)
		if err != nil {
			return "", err
		}
		measure = ident
		if fn != string(domain.AggCount) {
			switch col.Type {
			case domain.Numeric, domain.Date, domain.Timestamp:
				measure = b.dialect.TryCast(ident, col.Type)
			}
		}
	}

	if cond == "" {
		return fn + "(" + measure + ")", nil
	}
	return fn + "(CASE WHEN " + cond + " THEN " + measure + " END)", nil
}

func (b *PivotBuilder) finish(q sq.SelectBuilder, limit uint64) (*domain.CompiledQuery, error) {
	if limit > 0 {
		q = q.Limit(limit)
	}
	sql, args, err := q.PlaceholderFormat(b.dialect.Placeholder()).ToSql()
	if err != nil {
		return nil, &domain.PivotBuildError{Reason: "assembling SQL", Cause: err}
	}
	return &domain.CompiledQuery{
		SQL:     sql,
		Args:    args,
		Dialect: b.dialect.Name(),
		Safe:    true,
	}, nil
}

// BuildPreview selects the first rows of the relation that pass the filters.
func (b *PivotBuilder) BuildPreview(schema *domain.Schema, where sq.Sqlizer, limit uint64) (*domain.CompiledQuery, error) {
	guard := safety.NewGuard(schema, b.dialect)
	cols, err := guard.Columns(schema.Names())
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, &domain.PivotBuildError{Reason: "relation has no columns"}
	}
	q := sq.Select(strings.Join(cols, ", ")).From(guard.Relation()).Where(whereOrAll(where))
	return b.finish(q, limit)
}

func whereOrAll(where sq.Sqlizer) sq.Sqlizer {
	if where == nil {
		return sq.Expr("1 = 1")
	}
	return where
}
