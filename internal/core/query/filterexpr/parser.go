// Package filterexpr parses command-line filter expressions such as
//
//	region = East and amount >= 100
//	"order date" < 2024-01-01
//	note is_null
//
// into filter specs. Identifiers and values containing spaces or operator
// characters are quoted with '...' or "..."; a doubled quote escapes itself.
package filterexpr

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/jeffhb60/csv-pivot-app/internal/core/query/domain"
)

// FilterLexer tokenizes filter expressions.
var FilterLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `"(?:[^"]|"")*"|'(?:[^']|'')*'`},
	{Name: "Op", Pattern: `!=|<>|>=|<=|==|=|>|<`},
	{Name: "Word", Pattern: `[^\s"'=<>!]+`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// Expression is one or more clauses joined by "and".
type Expression struct {
	Clauses []*Clause `parser:"@@ ( (\"and\" | \"&&\") @@ )*"`
}

// Clause is a single comparison or null check.
type Clause struct {
	Pos    lexer.Position
	Column string  `parser:"@(Word | String)"`
	Null   *string `parser:"( @(\"is_null\" | \"not_null\" | \"isnull\" | \"notnull\")"`
	Op     string  `parser:"| @(Op | \"contains\" | \"startswith\" | \"endswith\")"`
	Value  string  `parser:"  @(String | Word) )"`
}

var parser = participle.MustBuild[Expression](
	participle.Lexer(FilterLexer),
	participle.Elide("Whitespace"),
	participle.CaseInsensitive("Word"),
	participle.Map(unquote, "String"),
	participle.UseLookahead(2),
)

func unquote(tok lexer.Token) (lexer.Token, error) {
	q := tok.Value[:1]
	tok.Value = strings.ReplaceAll(tok.Value[1:len(tok.Value)-1], q+q, q)
	return tok, nil
}

// Parse parses one expression into filter specs in source order.
func Parse(expr string) ([]domain.FilterSpec, error) {
	ast, err := parser.ParseString("", expr)
	if err != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", expr, err)
	}

	specs := make([]domain.FilterSpec, 0, len(ast.Clauses))
	for _, c := range ast.Clauses {
		raw := c.Op
		if c.Null != nil {
			raw = *c.Null
		}
		op, ok := parseOperator(raw)
		if !ok {
			return nil, fmt.Errorf("invalid filter %q: unknown operator %q at %s", expr, raw, c.Pos)
		}
		specs = append(specs, domain.FilterSpec{Column: c.Column, Operator: op, Value: c.Value})
	}
	return specs, nil
}

// ParseAll parses several expressions and concatenates their specs.
func ParseAll(exprs []string) ([]domain.FilterSpec, error) {
	var out []domain.FilterSpec
	for _, e := range exprs {
		if strings.TrimSpace(e) == "" {
			continue
		}
		specs, err := Parse(e)
		if err != nil {
			return nil, err
		}
		out = append(out, specs...)
	}
	return out, nil
}

// Format renders a spec back into expression syntax.
func Format(f domain.FilterSpec) string {
	s := quoteIfNeeded(f.Column) + " " + string(f.Operator)
	if f.Operator.IsNullCheck() {
		return s
	}
	return s + " " + quoteIfNeeded(f.Value)
}

func parseOperator(s string) (domain.Operator, bool) {
	switch strings.ToLower(s) {
	case "isnull":
		return domain.OpIsNull, true
	case "notnull":
		return domain.OpNotNull, true
	}
	return domain.ParseOperator(s)
}

func quoteIfNeeded(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\n\"'=<>!") && !isKeyword(s) {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func isKeyword(s string) bool {
	switch strings.ToLower(s) {
	case "and", "&&", "contains", "startswith", "endswith", "is_null", "not_null", "isnull", "notnull":
		return true
	}
	return false
}
