// Package domain contains the core types of the pivot query subsystem.
package domain

import (
	"context"
	"strings"
)

// ColumnType is the semantic type assigned to a column by the schema inspector.
type ColumnType string

const (
	// Numeric covers integer, floating point and decimal columns.
	Numeric ColumnType = "NUMERIC"
	// Date covers calendar dates without a time part.
	Date ColumnType = "DATE"
	// Timestamp covers timestamps and times of day.
	Timestamp ColumnType = "TIMESTAMP"
	// Boolean covers true/false columns.
	Boolean ColumnType = "BOOLEAN"
	// String is the fallback for everything else.
	String ColumnType = "STRING"
)

// Column is a single column of an inspected relation.
type Column struct {
	Name       string
	Type       ColumnType
	NativeType string
}

// Schema is the immutable column listing of a relation.
type Schema struct {
	Relation string
	Columns  []Column
}

// Lookup finds a column by exact name.
func (s *Schema) Lookup(name string) (Column, bool) {
	if s == nil {
		return Column{}, false
	}
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Names returns the column names in relation order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Operator is a filter comparison operator.
type Operator string

const (
	OpEq         Operator = "="
	OpNeq        Operator = "!="
	OpGt         Operator = ">"
	OpGte        Operator = ">="
	OpLt         Operator = "<"
	OpLte        Operator = "<="
	OpContains   Operator = "contains"
	OpStartsWith Operator = "startswith"
	OpEndsWith   Operator = "endswith"
	OpIsNull     Operator = "is_null"
	OpNotNull    Operator = "not_null"
)

// Operators lists every supported operator in display order.
var Operators = []Operator{
	OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte,
	OpContains, OpStartsWith, OpEndsWith,
	OpIsNull, OpNotNull,
}

// ParseOperator resolves a user supplied operator, accepting "<>" and "==" aliases.
func ParseOperator(s string) (Operator, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "<>":
		return OpNeq, true
	case "==":
		return OpEq, true
	}
	for _, op := range Operators {
		if string(op) == s {
			return op, true
		}
	}
	return "", false
}

// IsPattern reports whether the operator is a substring match.
func (o Operator) IsPattern() bool {
	return o == OpContains || o == OpStartsWith || o == OpEndsWith
}

// IsNullCheck reports whether the operator ignores its value.
func (o Operator) IsNullCheck() bool {
	return o == OpIsNull || o == OpNotNull
}

// FilterSpec is a single user filter. Value is always untyped text.
type FilterSpec struct {
	Column   string
	Operator Operator
	Value    string
}

// PivotMode selects the output shape of a pivot.
type PivotMode string

const (
	// Long emits one row per dimension combination.
	Long PivotMode = "long"
	// Wide spreads the distinct values of one dimension into columns.
	Wide PivotMode = "wide"
)

// AggregateFunc is an aggregation applied to the measure.
type AggregateFunc string

const (
	AggSum   AggregateFunc = "SUM"
	AggCount AggregateFunc = "COUNT"
	AggAvg   AggregateFunc = "AVG"
	AggMin   AggregateFunc = "MIN"
	AggMax   AggregateFunc = "MAX"
)

// Aggregates lists every supported aggregation.
var Aggregates = []AggregateFunc{AggSum, AggCount, AggAvg, AggMin, AggMax}

// ParseAggregate resolves an aggregation name case-insensitively.
func ParseAggregate(s string) (AggregateFunc, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, a := range Aggregates {
		if string(a) == s {
			return a, true
		}
	}
	return "", false
}

// RowCountMarker used as a measure means "count rows" and is only valid with COUNT.
const RowCountMarker = "*"

// PivotSpec describes one pivot request.
type PivotSpec struct {
	Mode           PivotMode
	RowDims        []string
	Measure        string
	Agg            AggregateFunc
	ColDim         string
	MaxWideColumns int
	// Limit caps the number of output rows; zero means no cap.
	Limit uint64
}

// Dialect identifies the SQL flavor of a relation.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
)

// CompiledQuery is generated SQL plus its bound parameters.
// It is never mutated after construction.
type CompiledQuery struct {
	SQL     string
	Args    []any
	Dialect Dialect
	// Safe is set only by builders that route every identifier through the safety guard.
	Safe bool
}

// WideColumn maps one distinct column-dimension value to its output alias.
type WideColumn struct {
	Raw   any
	Alias string
}

// WideColumnMapping is ordered in probe order.
type WideColumnMapping []WideColumn

// Aliases returns the output aliases in order.
func (m WideColumnMapping) Aliases() []string {
	out := make([]string, len(m))
	for i, c := range m {
		out[i] = c.Alias
	}
	return out
}

// NativeColumn is a column as reported by the engine.
type NativeColumn struct {
	Name string
	Type string
}

// ResultSet holds materialized query output.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// Relation is a queryable table the pivot subsystem reads from.
type Relation interface {
	// Name returns the relation (table or view) name.
	Name() string
	// Dialect returns the SQL flavor used to talk to the engine.
	Dialect() Dialect
	// Fingerprint changes whenever the underlying data source changes.
	Fingerprint() string
	// Columns lists the columns with their engine-native types.
	Columns(ctx context.Context) ([]NativeColumn, error)
	// Execute runs a query with positional parameters and materializes the rows.
	Execute(ctx context.Context, query string, args ...any) (*ResultSet, error)
}
