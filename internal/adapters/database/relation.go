package database

import (
	"context"
	"fmt"

	"github.com/jeffhb60/csv-pivot-app/internal/core/query/domain"
)

// TableRelation exposes one table of an adapter as a pivot relation.
type TableRelation struct {
	adapter     Adapter
	table       string
	fingerprint string
}

// NewTableRelation creates a relation. The fingerprint should change whenever
// the table's contents or columns change.
func NewTableRelation(a Adapter, table, fingerprint string) *TableRelation {
	return &TableRelation{adapter: a, table: table, fingerprint: fingerprint}
}

// Name returns the table name.
func (r *TableRelation) Name() string { return r.table }

// Dialect returns the adapter dialect.
func (r *TableRelation) Dialect() domain.Dialect { return r.adapter.GetDialect() }

// Fingerprint returns the data source fingerprint.
func (r *TableRelation) Fingerprint() string { return r.fingerprint }

// Columns lists the table columns.
func (r *TableRelation) Columns(ctx context.Context) ([]domain.NativeColumn, error) {
	return r.adapter.TableColumns(ctx, r.table)
}

// Execute runs query and materializes every row. Engine errors are wrapped
// in domain.ExecutionError without modification.
func (r *TableRelation) Execute(ctx context.Context, query string, args ...any) (*domain.ResultSet, error) {
	rows, err := r.adapter.Query(ctx, query, args...)
	if err != nil {
		return nil, &domain.ExecutionError{Query: query, Cause: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, &domain.ExecutionError{Query: query, Cause: err}
	}

	rs := &domain.ResultSet{Columns: cols}
	for rows.Next() {
		row := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range row {
			ptrs[i] = &row[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &domain.ExecutionError{Query: query, Cause: fmt.Errorf("scanning row %d: %w", len(rs.Rows)+1, err)}
		}
		rs.Rows = append(rs.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.ExecutionError{Query: query, Cause: err}
	}
	return rs, nil
}

var _ domain.Relation = (*TableRelation)(nil)
