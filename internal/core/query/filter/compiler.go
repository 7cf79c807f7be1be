// Package filter compiles user filters into a parameterized WHERE body.
package filter

import (
	"fmt"
	"strings"

	"github.com/jeffhb60/csv-pivot-app/internal/core/query/dialect"
	"github.com/jeffhb60/csv-pivot-app/internal/core/query/domain"
	"github.com/jeffhb60/csv-pivot-app/internal/core/query/safety"
	"github.com/jeffhb60/csv-pivot-app/internal/debug"
)

// MatchAll is the WHERE body produced for an empty filter list.
const MatchAll = "1 = 1"

// Where is a compiled WHERE body with "?" placeholders and its arguments in order.
type Where struct {
	SQL  string
	Args []any
}

// ToSql implements squirrel.Sqlizer so a Where can be passed to any builder.
func (w Where) ToSql() (string, []interface{}, error) {
	if w.SQL == "" {
		return MatchAll, nil, nil
	}
	return w.SQL, w.Args, nil
}

// Compiler compiles filters for one dialect.
type Compiler struct {
	dialect dialect.Dialect
}

// NewCompiler creates a filter compiler.
func NewCompiler(d dialect.Dialect) *Compiler {
	return &Compiler{dialect: d}
}

// Compile AND-combines every filter into one WHERE body. Filters on the same
// column stay independent predicates.
func (c *Compiler) Compile(filters []domain.FilterSpec, schema *domain.Schema) (Where, error) {
	if len(filters) == 0 {
		return Where{SQL: MatchAll}, nil
	}

	guard := safety.NewGuard(schema, c.dialect)
	parts := make([]string, 0, len(filters))
	var args []any

	for _, f := range filters {
		sql, fargs, err := c.compileOne(guard, f)
		if err != nil {
			return Where{}, err
		}
		parts = append(parts, "("+sql+")")
		args = append(args, fargs...)
	}

	return Where{SQL: strings.Join(parts, " AND "), Args: args}, nil
}

func (c *Compiler) compileOne(guard *safety.Guard, f domain.FilterSpec) (string, []any, error) {
	ident, col, err := guard.Column(f.Column)
	if err != nil {
		return "", nil, err
	}

	switch {
	case f.Operator == domain.OpIsNull:
		return ident + " IS NULL", nil, nil
	case f.Operator == domain.OpNotNull:
		return ident + " IS NOT NULL", nil, nil
	case f.Operator.IsPattern():
		return c.dialect.ILike(ident), []any{pattern(f.Operator, f.Value)}, nil
	}

	op, ok := safety.Operator(f.Operator)
	if !ok {
		return "", nil, &domain.InvalidFilterValueError{
			Column: f.Column,
			Value:  f.Value,
			Reason: fmt.Sprintf("unsupported operator %q", f.Operator),
		}
	}

	lit, err := coerce(col, f.Value)
	if err != nil {
		return "", nil, err
	}

	var lhs string
	switch lit.(type) {
	case textLiteral:
		lhs = c.dialect.Text(ident)
	default:
		lhs = c.dialect.TryCast(ident, lit.kind())
	}

	param := lit.param()
	if param == nil {
		debug.Debug("Filter literal does not parse, predicate matches nothing",
			"column", col.Name, "type", col.Type, "value", f.Value)
	}

	return lhs + " " + op + " " + c.dialect.Param(lit.kind()), []any{param}, nil
}

func pattern(op domain.Operator, v string) string {
	v = dialect.EscapeLike(v)
	switch op {
	case domain.OpStartsWith:
		return v + "%"
	case domain.OpEndsWith:
		return "%" + v
	default:
		return "%" + v + "%"
	}
}
