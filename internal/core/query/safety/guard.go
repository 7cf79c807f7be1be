// Package safety is the only place where identifiers enter generated SQL.
// Every name is checked against the inspected schema (or the alias grammar)
// before it is quoted for the target dialect.
package safety

import (
	"fmt"
	"regexp"

	"github.com/jeffhb60/csv-pivot-app/internal/core/query/dialect"
	"github.com/jeffhb60/csv-pivot-app/internal/core/query/domain"
)

var aliasPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Guard validates and quotes identifiers for one relation.
type Guard struct {
	schema  *domain.Schema
	dialect dialect.Dialect
}

// NewGuard creates a guard for the given schema and dialect.
func NewGuard(schema *domain.Schema, d dialect.Dialect) *Guard {
	return &Guard{schema: schema, dialect: d}
}

// Dialect returns the dialect the guard quotes for.
func (g *Guard) Dialect() dialect.Dialect { return g.dialect }

// Schema returns the schema names are validated against.
func (g *Guard) Schema() *domain.Schema { return g.schema }

// Relation returns the quoted relation name.
func (g *Guard) Relation() string {
	return g.dialect.QuoteIdent(g.schema.Relation)
}

// Column returns the quoted identifier and metadata of a schema column.
func (g *Guard) Column(name string) (string, domain.Column, error) {
	col, ok := g.schema.Lookup(name)
	if !ok {
		return "", domain.Column{}, &domain.UnknownColumnError{Column: name, Available: g.schema.Names()}
	}
	return g.dialect.QuoteIdent(col.Name), col, nil
}

// Columns quotes several schema columns, failing on the first unknown name.
func (g *Guard) Columns(names []string) ([]string, error) {
	out := make([]string, len(names))
	for i, n := range names {
		q, _, err := g.Column(n)
		if err != nil {
			return nil, err
		}
		out[i] = q
	}
	return out, nil
}

// Alias quotes an output alias. Only sanitized names are accepted.
func (g *Guard) Alias(alias string) (string, error) {
	if !aliasPattern.MatchString(alias) {
		return "", &domain.PivotBuildError{Reason: fmt.Sprintf("alias %q is not a sanitized identifier", alias)}
	}
	return g.dialect.QuoteIdent(alias), nil
}

// Aggregate returns the SQL function name of a whitelisted aggregation.
func Aggregate(agg domain.AggregateFunc) (string, error) {
	fn, ok := domain.ParseAggregate(string(agg))
	if !ok {
		return "", &domain.InvalidPivotSpecError{Violations: []string{fmt.Sprintf("unsupported aggregation %q", agg)}}
	}
	return string(fn), nil
}

// Operator returns the SQL text of a whitelisted relational operator.
func Operator(op domain.Operator) (string, bool) {
	switch op {
	case domain.OpEq, domain.OpGt, domain.OpGte, domain.OpLt, domain.OpLte:
		return string(op), true
	case domain.OpNeq:
		return "<>", true
	}
	return "", false
}
