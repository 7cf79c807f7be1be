// Package widecols turns the distinct values of a column dimension into a
// safe, collision-free set of output columns for a wide pivot.
package widecols

import (
	"context"
	"fmt"
	"strconv"

	sq "github.com/Masterminds/squirrel"

	"github.com/jeffhb60/csv-pivot-app/internal/core/query/dialect"
	"github.com/jeffhb60/csv-pivot-app/internal/core/query/domain"
	"github.com/jeffhb60/csv-pivot-app/internal/core/query/safety"
	"github.com/jeffhb60/csv-pivot-app/internal/debug"
)

// Preparer probes distinct values and builds the wide column mapping.
type Preparer struct {
	dialect dialect.Dialect
}

// NewPreparer creates a preparer for one dialect.
func NewPreparer(d dialect.Dialect) *Preparer {
	return &Preparer{dialect: d}
}

// BuildProbe returns the single query that fetches up to max+1 distinct values
// of the column dimension together with their total count.
func (p *Preparer) BuildProbe(schema *domain.Schema, colDim string, where sq.Sqlizer, max int) (*domain.CompiledQuery, error) {
	if max <= 0 {
		return nil, &domain.InvalidPivotSpecError{Violations: []string{fmt.Sprintf("max wide columns must be positive, got %d", max)}}
	}
	guard := safety.NewGuard(schema, p.dialect)
	col, _, err := guard.Column(colDim)
	if err != nil {
		return nil, err
	}
	if where == nil {
		where = sq.Expr("1 = 1")
	}

	distinct := sq.Select(col + " AS v").Distinct().From(guard.Relation()).Where(where)
	sql, args, err := sq.Select("v", "COUNT(*) OVER () AS total").
		FromSelect(distinct, "d").
		OrderBy("v").
		Limit(uint64(max) + 1).
		PlaceholderFormat(p.dialect.Placeholder()).
		ToSql()
	if err != nil {
		return nil, &domain.PivotBuildError{Reason: "assembling distinct probe", Cause: err}
	}
	return &domain.CompiledQuery{SQL: sql, Args: args, Dialect: p.dialect.Name(), Safe: true}, nil
}

// Prepare runs the probe and returns the mapping in probe order. It fails with
// TooManyColumnsError when the dimension has more than spec.MaxWideColumns values.
func (p *Preparer) Prepare(ctx context.Context, rel domain.Relation, schema *domain.Schema, spec domain.PivotSpec, where sq.Sqlizer) (domain.WideColumnMapping, error) {
	probe, err := p.BuildProbe(schema, spec.ColDim, where, spec.MaxWideColumns)
	if err != nil {
		return nil, err
	}

	debug.Debug("Probing distinct values", "column", spec.ColDim, "sql", probe.SQL, "args", len(probe.Args))
	rs, err := rel.Execute(ctx, probe.SQL, probe.Args...)
	if err != nil {
		return nil, fmt.Errorf("probing distinct values of %q: %w", spec.ColDim, err)
	}

	total := 0
	if len(rs.Rows) > 0 {
		if total, err = toInt(rs.Rows[0][1]); err != nil {
			return nil, &domain.PivotBuildError{Reason: "reading distinct count", Cause: err}
		}
	}
	if total > spec.MaxWideColumns {
		return nil, &domain.TooManyColumnsError{Column: spec.ColDim, Found: total, Limit: spec.MaxWideColumns}
	}

	raws := make([]any, len(rs.Rows))
	for i, row := range rs.Rows {
		raws[i] = normalize(row[0])
	}
	aliases := Assign(raws, spec.RowDims)

	mapping := make(domain.WideColumnMapping, len(raws))
	for i := range raws {
		mapping[i] = domain.WideColumn{Raw: raws[i], Alias: aliases[i]}
	}
	debug.Debug("Wide columns prepared", "column", spec.ColDim, "count", len(mapping))
	return mapping, nil
}

// normalize makes driver byte slices bind back as text.
func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int64:
		return int(n), nil
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case float64:
		return int(n), nil
	case []byte:
		return strconv.Atoi(string(n))
	case string:
		return strconv.Atoi(n)
	}
	return 0, fmt.Errorf("unexpected count type %T", v)
}
