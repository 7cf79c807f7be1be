package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeffhb60/csv-pivot-app/internal/core/export"
	"github.com/jeffhb60/csv-pivot-app/internal/core/loader"
	"github.com/jeffhb60/csv-pivot-app/internal/core/query/domain"
	"github.com/jeffhb60/csv-pivot-app/internal/core/schema"
)

const salesCSV = "region,month,amount\n" +
	"East,Jan,100\n" +
	"East,Feb,20\n" +
	"West,Jan,50\n"

// countingRelation records every executed statement.
type countingRelation struct {
	domain.Relation
	executed []string
}

func (c *countingRelation) Execute(ctx context.Context, query string, args ...any) (*domain.ResultSet, error) {
	c.executed = append(c.executed, query)
	return c.Relation.Execute(ctx, query, args...)
}

func setup(t *testing.T) (*PivotService, *countingRelation) {
	t.Helper()
	return setupCSV(t, salesCSV, loader.Options{})
}

func setupCSV(t *testing.T, csv string, opts loader.Options) (*PivotService, *countingRelation) {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data.csv", []byte(csv), 0o644))

	ctx := context.Background()
	ds, err := loader.New(fs, opts).Load(ctx, "/data.csv")
	require.NoError(t, err)
	t.Cleanup(func() { ds.Close(ctx) })

	return NewPivotService(schema.NewInspector(schema.NewCache(8))), &countingRelation{Relation: ds.Relation}
}

func longSpec() domain.PivotSpec {
	return domain.PivotSpec{
		Mode:    domain.Long,
		RowDims: []string{"region"},
		Measure: "amount",
		Agg:     domain.AggSum,
	}
}

func TestDescribe(t *testing.T) {
	svc, rel := setup(t)

	sch, err := svc.Describe(context.Background(), rel)
	require.NoError(t, err)
	assert.Equal(t, []string{"region", "month", "amount"}, sch.Names())
	col, ok := sch.Lookup("amount")
	require.True(t, ok)
	assert.Equal(t, domain.Numeric, col.Type)
}

func TestRun_LongRoundTrip(t *testing.T) {
	svc, rel := setup(t)

	res, err := svc.Run(context.Background(), rel, longSpec(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"region", "value"}, res.Columns)
	assert.Equal(t, [][]any{{"East", float64(120)}, {"West", float64(50)}}, res.Rows)
	assert.Len(t, rel.executed, 1)
	assert.Nil(t, res.Mapping)
}

func TestRun_FilteredCount(t *testing.T) {
	svc, rel := setup(t)
	spec := longSpec()
	spec.Agg = domain.AggCount
	spec.Measure = domain.RowCountMarker

	res, err := svc.Run(context.Background(), rel, spec, []domain.FilterSpec{
		{Column: "month", Operator: domain.OpEq, Value: "Jan"},
	})
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"East", int64(1)}, {"West", int64(1)}}, res.Rows)
}

func TestRun_UnparsableNumericFilterMatchesNothing(t *testing.T) {
	svc, rel := setup(t)

	res, err := svc.Run(context.Background(), rel, longSpec(), []domain.FilterSpec{
		{Column: "amount", Operator: domain.OpGt, Value: "abc"},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
}

func TestRun_WideRoundTrip(t *testing.T) {
	svc, rel := setup(t)
	spec := longSpec()
	spec.Mode = domain.Wide
	spec.ColDim = "month"
	spec.MaxWideColumns = 10

	res, err := svc.Run(context.Background(), rel, spec, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"region", "Feb", "Jan"}, res.Columns)
	assert.Equal(t, [][]any{
		{"East", float64(20), float64(100)},
		{"West", nil, float64(50)},
	}, res.Rows)
	assert.Equal(t, []string{"Feb", "Jan"}, res.Mapping.Aliases())
	assert.Len(t, rel.executed, 2)
}

func TestRun_TooManyColumnsSkipsPivot(t *testing.T) {
	svc, rel := setup(t)
	spec := longSpec()
	spec.Mode = domain.Wide
	spec.ColDim = "month"
	spec.MaxWideColumns = 1

	_, err := svc.Run(context.Background(), rel, spec, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTooManyColumns))

	var tooMany *domain.TooManyColumnsError
	require.ErrorAs(t, err, &tooMany)
	assert.Equal(t, 2, tooMany.Found)
	assert.Len(t, rel.executed, 1, "only the distinct probe may run")
}

func TestRun_InvalidSpecExecutesNothing(t *testing.T) {
	svc, rel := setup(t)
	spec := longSpec()
	spec.RowDims = nil
	spec.Measure = "missing"

	_, err := svc.Run(context.Background(), rel, spec, nil)
	require.Error(t, err)
	assert.Empty(t, rel.executed)
}

func TestRun_UnknownFilterColumn(t *testing.T) {
	svc, rel := setup(t)

	_, err := svc.Run(context.Background(), rel, longSpec(), []domain.FilterSpec{
		{Column: "nope", Operator: domain.OpEq, Value: "x"},
	})
	assert.True(t, errors.Is(err, domain.ErrUnknownColumn))
	assert.Empty(t, rel.executed)
}

func TestPreview(t *testing.T) {
	svc, rel := setup(t)

	res, err := svc.Preview(context.Background(), rel, []domain.FilterSpec{
		{Column: "region", Operator: domain.OpContains, Value: "eas"},
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"region", "month", "amount"}, res.Columns)
	assert.Len(t, res.Rows, 2)
}

func TestExplain(t *testing.T) {
	svc, rel := setup(t)
	spec := longSpec()
	spec.Mode = domain.Wide
	spec.ColDim = "month"
	spec.MaxWideColumns = 10

	md, err := svc.Explain(context.Background(), rel, spec, []domain.FilterSpec{
		{Column: "amount", Operator: domain.OpGte, Value: "10"},
	})
	require.NoError(t, err)
	assert.Contains(t, md, "```sql\nSELECT \"region\"")
	assert.Contains(t, md, "`amount >= 10`")
	assert.Contains(t, md, "| Jan | `Jan` |")
	assert.Len(t, rel.executed, 1, "explain runs only the probe")
}

func TestExport(t *testing.T) {
	svc, rel := setup(t)
	res, err := svc.Run(context.Background(), rel, longSpec(), nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.Export(&buf, res, export.CSV))
	assert.Equal(t, "region,value\nEast,120\nWest,50\n", buf.String())
}

func TestDescribe_UsesCache(t *testing.T) {
	svc, rel := setup(t)
	ctx := context.Background()

	_, err := svc.Describe(ctx, rel)
	require.NoError(t, err)
	_, err = svc.Describe(ctx, rel)
	require.NoError(t, err)
	assert.Equal(t, int64(1), svc.Inspector().Stats().Hits)
}

func TestRun_WideWithNoValuesFails(t *testing.T) {
	svc, rel := setup(t)
	spec := longSpec()
	spec.Mode = domain.Wide
	spec.ColDim = "month"
	spec.MaxWideColumns = 10

	_, err := svc.Run(context.Background(), rel, spec, []domain.FilterSpec{
		{Column: "region", Operator: domain.OpEq, Value: "North"},
	})
	assert.True(t, errors.Is(err, domain.ErrPivotBuild))
	assert.Len(t, rel.executed, 1)
}

func TestRun_ValueRowDimensionKeepsDimensionOrder(t *testing.T) {
	svc, rel := setupCSV(t, "value,amount\na,5\nb,1\nc,3\n", loader.Options{})
	spec := longSpec()
	spec.RowDims = []string{"value"}

	res, err := svc.Run(context.Background(), rel, spec, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"value", "value_2"}, res.Columns)
	assert.Equal(t, [][]any{
		{"a", float64(5)},
		{"b", float64(1)},
		{"c", float64(3)},
	}, res.Rows)
}

func TestRun_UnparsableStoredNumberNeverMatches(t *testing.T) {
	// Only the first row is sampled, so "abc" is stored verbatim in a numeric column.
	svc, rel := setupCSV(t, "region,amount\nEast,5\nWest,abc\nNorth,3\n", loader.Options{SampleRows: 1})
	spec := longSpec()
	spec.Measure = domain.RowCountMarker
	spec.Agg = domain.AggCount
	ctx := context.Background()

	sch, err := svc.Describe(ctx, rel)
	require.NoError(t, err)
	col, ok := sch.Lookup("amount")
	require.True(t, ok)
	require.Equal(t, domain.Numeric, col.Type)

	res, err := svc.Run(ctx, rel, spec, []domain.FilterSpec{
		{Column: "amount", Operator: domain.OpGt, Value: "abc"},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Rows)

	res, err = svc.Run(ctx, rel, spec, []domain.FilterSpec{
		{Column: "amount", Operator: domain.OpGt, Value: "1"},
	})
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"East", int64(1)}, {"North", int64(1)}}, res.Rows)

	res, err = svc.Run(ctx, rel, longSpec(), nil)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"East", float64(5)}, {"North", float64(3)}, {"West", nil}}, res.Rows)
}
