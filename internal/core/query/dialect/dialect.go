// Package dialect holds the per-engine SQL fragments used by the query builders.
package dialect

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/jeffhb60/csv-pivot-app/internal/core/query/domain"
)

// LikeEscape is the escape character used in every generated LIKE pattern.
const LikeEscape = "!"

// Dialect renders engine-specific SQL fragments. Fragments use "?" placeholders;
// the final statement is converted with Placeholder().
type Dialect interface {
	// Name returns the dialect identifier.
	Name() domain.Dialect
	// Placeholder returns the squirrel placeholder format of the engine.
	Placeholder() sq.PlaceholderFormat
	// QuoteIdent quotes an identifier that has already been validated.
	QuoteIdent(name string) string
	// TryCast converts a column expression to the comparison type. On SQLite,
	// whose CSV imports may hold unparsable text in typed columns, a value that
	// does not parse yields NULL. PostgreSQL and MySQL use a plain CAST, which
	// errors (PostgreSQL) or yields 0 (MySQL) on bad input; it is only applied
	// to columns whose native type already is the target type.
	TryCast(expr string, t domain.ColumnType) string
	// Param returns a typed placeholder for a coerced filter literal.
	Param(t domain.ColumnType) string
	// Text renders an expression as text.
	Text(expr string) string
	// ILike renders a case-insensitive pattern match against one placeholder.
	ILike(expr string) string
}

// For returns the dialect for a name.
func For(name domain.Dialect) (Dialect, error) {
	switch name {
	case domain.SQLite, "sqlite3", "":
		return SQLite{}, nil
	case domain.Postgres, "postgresql":
		return Postgres{}, nil
	case domain.MySQL:
		return MySQL{}, nil
	default:
		return nil, fmt.Errorf("unsupported dialect: %s", name)
	}
}

// EscapeLike escapes the pattern metacharacters of a user value.
func EscapeLike(v string) string {
	r := strings.NewReplacer(LikeEscape, LikeEscape+LikeEscape, "%", LikeEscape+"%", "_", LikeEscape+"_")
	return r.Replace(v)
}

// SQLite targets the embedded engine. The try_* functions are registered on
// every connection by the sqlite adapter.
type SQLite struct{}

func (SQLite) Name() domain.Dialect              { return domain.SQLite }
func (SQLite) Placeholder() sq.PlaceholderFormat { return sq.Question }

func (SQLite) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (SQLite) TryCast(expr string, t domain.ColumnType) string {
	switch t {
	case domain.Numeric:
		return "try_double(" + expr + ")"
	case domain.Date:
		return "try_date(" + expr + ")"
	case domain.Timestamp:
		return "try_timestamp(" + expr + ")"
	case domain.Boolean:
		return "try_bool(" + expr + ")"
	}
	return expr
}

func (SQLite) Param(domain.ColumnType) string { return "?" }

func (SQLite) Text(expr string) string { return "CAST(" + expr + " AS TEXT)" }

func (d SQLite) ILike(expr string) string {
	return "LOWER(" + d.Text(expr) + ") LIKE LOWER(?) ESCAPE '" + LikeEscape + "'"
}

// Postgres targets PostgreSQL through lib/pq.
type Postgres struct{}

func (Postgres) Name() domain.Dialect              { return domain.Postgres }
func (Postgres) Placeholder() sq.PlaceholderFormat { return sq.Dollar }

// QuoteIdent doubles "?" because the dollar placeholder pass treats "??" as a literal "?".
func (Postgres) QuoteIdent(name string) string {
	return strings.ReplaceAll(pq.QuoteIdentifier(name), "?", "??")
}

// TryCast is a plain CAST. The semantic type comes from the native column type,
// so every stored value already converts.
func (Postgres) TryCast(expr string, t domain.ColumnType) string {
	if typ := postgresType(t); typ != "" {
		return "CAST(" + expr + " AS " + typ + ")"
	}
	return expr
}

func (Postgres) Param(t domain.ColumnType) string {
	if typ := postgresType(t); typ != "" {
		return "CAST(? AS " + typ + ")"
	}
	return "CAST(? AS TEXT)"
}

func (Postgres) Text(expr string) string { return "CAST(" + expr + " AS TEXT)" }

func (d Postgres) ILike(expr string) string {
	return d.Text(expr) + " ILIKE ? ESCAPE '" + LikeEscape + "'"
}

func postgresType(t domain.ColumnType) string {
	switch t {
	case domain.Numeric:
		return "DOUBLE PRECISION"
	case domain.Date:
		return "DATE"
	case domain.Timestamp:
		return "TIMESTAMP"
	case domain.Boolean:
		return "BOOLEAN"
	}
	return ""
}

// MySQL targets MySQL 8.0.17 or newer through go-sql-driver/mysql.
type MySQL struct{}

func (MySQL) Name() domain.Dialect              { return domain.MySQL }
func (MySQL) Placeholder() sq.PlaceholderFormat { return sq.Question }

func (MySQL) QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// TryCast is a plain CAST, which yields 0 rather than NULL for text that is not
// a number. Semantic types come from native column types, so stored values convert.
func (MySQL) TryCast(expr string, t domain.ColumnType) string {
	switch t {
	case domain.Numeric:
		return "CAST(" + expr + " AS DOUBLE)"
	case domain.Date:
		return "CAST(" + expr + " AS DATE)"
	case domain.Timestamp:
		return "CAST(" + expr + " AS DATETIME(6))"
	}
	return expr
}

func (d MySQL) Param(t domain.ColumnType) string {
	switch t {
	case domain.Numeric, domain.Date, domain.Timestamp:
		return d.TryCast("?", t)
	}
	return "?"
}

func (MySQL) Text(expr string) string { return "CAST(" + expr + " AS CHAR)" }

func (d MySQL) ILike(expr string) string {
	return "LOWER(" + d.Text(expr) + ") LIKE LOWER(?) ESCAPE '" + LikeEscape + "'"
}
