package widecols

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeffhb60/csv-pivot-app/internal/core/query/dialect"
	"github.com/jeffhb60/csv-pivot-app/internal/core/query/domain"
	"github.com/jeffhb60/csv-pivot-app/internal/core/query/filter"
)

type fakeRelation struct {
	rows    [][]any
	err     error
	queries []string
}

func (f *fakeRelation) Name() string            { return "sales" }
func (f *fakeRelation) Dialect() domain.Dialect { return domain.SQLite }
func (f *fakeRelation) Fingerprint() string     { return "v1" }

func (f *fakeRelation) Columns(context.Context) ([]domain.NativeColumn, error) {
	return nil, nil
}

func (f *fakeRelation) Execute(_ context.Context, query string, _ ...any) (*domain.ResultSet, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ResultSet{Columns: []string{"v", "total"}, Rows: f.rows}, nil
}

func probeRows(total int, values ...any) [][]any {
	rows := make([][]any, len(values))
	for i, v := range values {
		rows[i] = []any{v, int64(total)}
	}
	return rows
}

func salesSchema() *domain.Schema {
	return &domain.Schema{Relation: "sales", Columns: []domain.Column{
		{Name: "region", Type: domain.String},
		{Name: "month", Type: domain.String},
		{Name: "amount", Type: domain.Numeric},
	}}
}

func wideSpec(max int) domain.PivotSpec {
	return domain.PivotSpec{
		Mode:           domain.Wide,
		RowDims:        []string{"region"},
		ColDim:         "month",
		Measure:        "amount",
		Agg:            domain.AggSum,
		MaxWideColumns: max,
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"North East", "North_East"},
		{"  --A--B--  ", "A_B"},
		{"Crème brûlée", "Creme_brulee"},
		{"2024-01", "c2024_01"},
		{"", "col"},
		{"!!!", "col"},
		{nil, "NULL"},
		{int64(42), "c42"},
		{1.5, "c1_5"},
		{[]byte("bytes"), "bytes"},
		{time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "c2024_03_01"},
		{strings.Repeat("x", 60), strings.Repeat("x", MaxAliasLength)},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestAssign_CollisionsGetDistinctAliases(t *testing.T) {
	aliases := Assign([]any{"A B", "A-B"}, nil)

	require.Len(t, aliases, 2)
	assert.Equal(t, "A_B", aliases[0])
	assert.NotEqual(t, aliases[0], aliases[1])
	assert.True(t, strings.HasPrefix(aliases[1], "A_B_"))
	assert.Len(t, aliases[1], len("A_B_")+6)
}

func TestAssign_IsDeterministic(t *testing.T) {
	in := []any{"A B", "A-B", "A.B", "a b"}
	assert.Equal(t, Assign(in, nil), Assign(in, nil))

	seen := map[string]bool{}
	for _, a := range Assign(in, nil) {
		assert.False(t, seen[strings.ToLower(a)], a)
		seen[strings.ToLower(a)] = true
	}
}

func TestAssign_ReservedNamesAndNumericFallback(t *testing.T) {
	aliases := Assign([]any{"Region", "NULL", nil}, []string{"region"})

	assert.NotEqual(t, "Region", aliases[0])
	assert.True(t, strings.HasPrefix(aliases[0], "Region_"))
	assert.Equal(t, "NULL", aliases[1])
	// nil displays as "NULL" too, so it takes the hash suffix.
	assert.Equal(t, "NULL_"+hashSuffix(nil), aliases[2])

	again := Assign([]any{"x", "x", "x"}, nil)
	assert.Equal(t, "x", again[0])
	assert.Equal(t, "x_"+hashSuffix("x"), again[1])
	assert.Equal(t, "x_"+hashSuffix("x")+"_2", again[2])
}

func TestBuildProbe(t *testing.T) {
	where := filter.Where{SQL: `(CAST("region" AS TEXT) = ?)`, Args: []any{"East"}}

	q, err := NewPreparer(dialect.Postgres{}).BuildProbe(salesSchema(), "month", where, 200)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT v, COUNT(*) OVER () AS total FROM (SELECT DISTINCT "month" AS v FROM "sales" WHERE (CAST("region" AS TEXT) = $1)) AS d ORDER BY v LIMIT 201`,
		q.SQL)
	assert.Equal(t, []any{"East"}, q.Args)

	_, err = NewPreparer(dialect.SQLite{}).BuildProbe(salesSchema(), "nope", nil, 10)
	assert.ErrorIs(t, err, domain.ErrUnknownColumn)
}

func TestPrepare(t *testing.T) {
	rel := &fakeRelation{rows: probeRows(3, "Feb", []byte("Jan"), nil)}

	mapping, err := NewPreparer(dialect.SQLite{}).Prepare(context.Background(), rel, salesSchema(), wideSpec(10), nil)
	require.NoError(t, err)
	assert.Len(t, rel.queries, 1)
	assert.Equal(t, domain.WideColumnMapping{
		{Raw: "Feb", Alias: "Feb"},
		{Raw: "Jan", Alias: "Jan"},
		{Raw: nil, Alias: "NULL"},
	}, mapping)
}

func TestPrepare_TooManyColumns(t *testing.T) {
	values := make([]any, 11)
	for i := range values {
		values[i] = fmt.Sprintf("sku-%02d", i)
	}
	rel := &fakeRelation{rows: probeRows(500, values...)}

	_, err := NewPreparer(dialect.SQLite{}).Prepare(context.Background(), rel, salesSchema(), wideSpec(10), nil)

	var tmc *domain.TooManyColumnsError
	require.ErrorAs(t, err, &tmc)
	assert.Equal(t, "month", tmc.Column)
	assert.Equal(t, 500, tmc.Found)
	assert.Equal(t, 10, tmc.Limit)
	assert.Len(t, rel.queries, 1)
}

func TestPrepare_ExactlyAtLimit(t *testing.T) {
	rel := &fakeRelation{rows: probeRows(2, "a", "b")}
	mapping, err := NewPreparer(dialect.SQLite{}).Prepare(context.Background(), rel, salesSchema(), wideSpec(2), nil)
	require.NoError(t, err)
	assert.Len(t, mapping, 2)
}

func TestPrepare_ExecutionError(t *testing.T) {
	cause := &domain.ExecutionError{Cause: errors.New("no such table: sales")}
	rel := &fakeRelation{err: cause}

	_, err := NewPreparer(dialect.SQLite{}).Prepare(context.Background(), rel, salesSchema(), wideSpec(10), nil)
	assert.ErrorIs(t, err, domain.ErrExecution)
}

func TestToInt(t *testing.T) {
	for _, v := range []any{int64(7), 7, int32(7), float64(7), []byte("7"), "7"} {
		n, err := toInt(v)
		require.NoError(t, err)
		assert.Equal(t, 7, n)
	}
	_, err := toInt(struct{}{})
	assert.Error(t, err)
}
