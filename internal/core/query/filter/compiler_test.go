package filter

import (
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeffhb60/csv-pivot-app/internal/core/query/dialect"
	"github.com/jeffhb60/csv-pivot-app/internal/core/query/domain"
)

func salesSchema() *domain.Schema {
	return &domain.Schema{Relation: "sales", Columns: []domain.Column{
		{Name: "region", Type: domain.String},
		{Name: "amount", Type: domain.Numeric},
		{Name: "day", Type: domain.Date},
		{Name: "created_at", Type: domain.Timestamp},
		{Name: "active", Type: domain.Boolean},
	}}
}

func TestCompile_Empty(t *testing.T) {
	w, err := NewCompiler(dialect.SQLite{}).Compile(nil, salesSchema())
	require.NoError(t, err)
	assert.Equal(t, MatchAll, w.SQL)
	assert.Empty(t, w.Args)
}

func TestCompile_Branches(t *testing.T) {
	tests := []struct {
		name     string
		filter   domain.FilterSpec
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "numeric comparison",
			filter:   domain.FilterSpec{Column: "amount", Operator: domain.OpGt, Value: "100"},
			wantSQL:  `(try_double("amount") > ?)`,
			wantArgs: []any{float64(100)},
		},
		{
			name:     "numeric cast failure binds null",
			filter:   domain.FilterSpec{Column: "amount", Operator: domain.OpGt, Value: "abc"},
			wantSQL:  `(try_double("amount") > ?)`,
			wantArgs: []any{nil},
		},
		{
			name:     "not equal",
			filter:   domain.FilterSpec{Column: "region", Operator: domain.OpNeq, Value: "East"},
			wantSQL:  `(CAST("region" AS TEXT) <> ?)`,
			wantArgs: []any{"East"},
		},
		{
			name:     "date",
			filter:   domain.FilterSpec{Column: "day", Operator: domain.OpGte, Value: "2024/03/01"},
			wantSQL:  `(try_date("day") >= ?)`,
			wantArgs: []any{"2024-03-01"},
		},
		{
			name:     "timestamp",
			filter:   domain.FilterSpec{Column: "created_at", Operator: domain.OpLt, Value: "2024-03-01"},
			wantSQL:  `(try_timestamp("created_at") < ?)`,
			wantArgs: []any{"2024-03-01 00:00:00"},
		},
		{
			name:     "contains on numeric casts to text",
			filter:   domain.FilterSpec{Column: "amount", Operator: domain.OpContains, Value: "50%"},
			wantSQL:  `(LOWER(CAST("amount" AS TEXT)) LIKE LOWER(?) ESCAPE '!')`,
			wantArgs: []any{"%50!%%"},
		},
		{
			name:     "startswith",
			filter:   domain.FilterSpec{Column: "region", Operator: domain.OpStartsWith, Value: "No"},
			wantSQL:  `(LOWER(CAST("region" AS TEXT)) LIKE LOWER(?) ESCAPE '!')`,
			wantArgs: []any{"No%"},
		},
		{
			name:     "endswith",
			filter:   domain.FilterSpec{Column: "region", Operator: domain.OpEndsWith, Value: "st"},
			wantSQL:  `(LOWER(CAST("region" AS TEXT)) LIKE LOWER(?) ESCAPE '!')`,
			wantArgs: []any{"%st"},
		},
		{
			name:    "is null",
			filter:  domain.FilterSpec{Column: "amount", Operator: domain.OpIsNull},
			wantSQL: `("amount" IS NULL)`,
		},
		{
			name:    "not null",
			filter:  domain.FilterSpec{Column: "amount", Operator: domain.OpNotNull, Value: "ignored"},
			wantSQL: `("amount" IS NOT NULL)`,
		},
	}

	c := NewCompiler(dialect.SQLite{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := c.Compile([]domain.FilterSpec{tt.filter}, salesSchema())
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, w.SQL)
			assert.Equal(t, tt.wantArgs, w.Args)
		})
	}
}

func TestCompile_ValuesNeverAppearInSQL(t *testing.T) {
	hostile := []string{
		`'; DROP TABLE sales; --`,
		`" OR 1=1 --`,
		`East' OR 'a'='a`,
		`%_!`,
	}
	c := NewCompiler(dialect.SQLite{})

	for _, v := range hostile {
		for _, op := range []domain.Operator{domain.OpEq, domain.OpContains, domain.OpGt} {
			for _, column := range []string{"region", "amount"} {
				w, err := c.Compile([]domain.FilterSpec{{Column: column, Operator: op, Value: v}}, salesSchema())
				require.NoError(t, err)
				assert.NotContains(t, w.SQL, v)
				assert.Equal(t, 1, countPlaceholders(w.SQL))
				assert.Len(t, w.Args, 1)
			}
		}
	}
}

func TestCompile_BooleanLiteralsAreEquivalent(t *testing.T) {
	c := NewCompiler(dialect.SQLite{})

	var first Where
	for i, v := range []string{"true", "T", "1", "yes", "YES"} {
		w, err := c.Compile([]domain.FilterSpec{{Column: "active", Operator: domain.OpEq, Value: v}}, salesSchema())
		require.NoError(t, err)
		if i == 0 {
			first = w
			continue
		}
		assert.Equal(t, first, w, v)
	}
	assert.Equal(t, []any{true}, first.Args)
	assert.Equal(t, `(try_bool("active") = ?)`, first.SQL)
}

func TestCompile_InvalidBoolean(t *testing.T) {
	_, err := NewCompiler(dialect.SQLite{}).Compile(
		[]domain.FilterSpec{{Column: "active", Operator: domain.OpEq, Value: "maybe"}}, salesSchema())

	var ifv *domain.InvalidFilterValueError
	require.ErrorAs(t, err, &ifv)
	assert.Equal(t, "active", ifv.Column)
	assert.Equal(t, "maybe", ifv.Value)
}

func TestCompile_UnknownColumn(t *testing.T) {
	_, err := NewCompiler(dialect.SQLite{}).Compile(
		[]domain.FilterSpec{{Column: "Region", Operator: domain.OpEq, Value: "East"}}, salesSchema())
	assert.ErrorIs(t, err, domain.ErrUnknownColumn)
}

func TestCompile_UnsupportedOperator(t *testing.T) {
	_, err := NewCompiler(dialect.SQLite{}).Compile(
		[]domain.FilterSpec{{Column: "region", Operator: "LIKE", Value: "x"}}, salesSchema())
	assert.ErrorIs(t, err, domain.ErrInvalidFilterValue)
}

func TestCompile_SameColumnFiltersStayIndependent(t *testing.T) {
	w, err := NewCompiler(dialect.SQLite{}).Compile([]domain.FilterSpec{
		{Column: "amount", Operator: domain.OpGte, Value: "10"},
		{Column: "amount", Operator: domain.OpLt, Value: "20"},
		{Column: "region", Operator: domain.OpEq, Value: "East"},
	}, salesSchema())
	require.NoError(t, err)

	assert.Equal(t,
		`(try_double("amount") >= ?) AND (try_double("amount") < ?) AND (CAST("region" AS TEXT) = ?)`,
		w.SQL)
	assert.Equal(t, []any{float64(10), float64(20), "East"}, w.Args)
}

func TestCompile_PostgresPlaceholders(t *testing.T) {
	w, err := NewCompiler(dialect.Postgres{}).Compile([]domain.FilterSpec{
		{Column: "amount", Operator: domain.OpGt, Value: "5"},
		{Column: "region", Operator: domain.OpContains, Value: "ea"},
	}, salesSchema())
	require.NoError(t, err)

	sql, args, err := sq.Select("*").From(`"sales"`).Where(w).PlaceholderFormat(sq.Dollar).ToSql()
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT * FROM "sales" WHERE (CAST("amount" AS DOUBLE PRECISION) > CAST($1 AS DOUBLE PRECISION)) AND (CAST("region" AS TEXT) ILIKE $2 ESCAPE '!')`,
		sql)
	assert.Equal(t, []any{float64(5), "%ea%"}, args)
}

func countPlaceholders(sql string) int {
	n := 0
	for _, r := range sql {
		if r == '?' {
			n++
		}
	}
	return n
}
