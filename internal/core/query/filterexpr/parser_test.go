package filterexpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeffhb60/csv-pivot-app/internal/core/query/domain"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want []domain.FilterSpec
	}{
		{
			name: "simple",
			expr: "region = East",
			want: []domain.FilterSpec{{Column: "region", Operator: domain.OpEq, Value: "East"}},
		},
		{
			name: "no spaces",
			expr: "amount>=100",
			want: []domain.FilterSpec{{Column: "amount", Operator: domain.OpGte, Value: "100"}},
		},
		{
			name: "quoted column and value",
			expr: `"order date" < '2024-01-01'`,
			want: []domain.FilterSpec{{Column: "order date", Operator: domain.OpLt, Value: "2024-01-01"}},
		},
		{
			name: "doubled quote escapes",
			expr: `name = 'O''Brien'`,
			want: []domain.FilterSpec{{Column: "name", Operator: domain.OpEq, Value: "O'Brien"}},
		},
		{
			name: "keyword operators case insensitive",
			expr: "region CONTAINS ea AND note is_null",
			want: []domain.FilterSpec{
				{Column: "region", Operator: domain.OpContains, Value: "ea"},
				{Column: "note", Operator: domain.OpIsNull},
			},
		},
		{
			name: "null check followed by clause",
			expr: "note notnull && amount <> 0",
			want: []domain.FilterSpec{
				{Column: "note", Operator: domain.OpNotNull},
				{Column: "amount", Operator: domain.OpNeq, Value: "0"},
			},
		},
		{
			name: "empty quoted value",
			expr: `region != ""`,
			want: []domain.FilterSpec{{Column: "region", Operator: domain.OpNeq, Value: ""}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	for _, expr := range []string{"", "region", "region =", "region like x", "= 5"} {
		_, err := Parse(expr)
		assert.Error(t, err, expr)
	}
}

func TestParseAll(t *testing.T) {
	specs, err := ParseAll([]string{"region = East", "  ", "amount > 5"})
	require.NoError(t, err)
	assert.Len(t, specs, 2)
}

func TestFormatRoundTrip(t *testing.T) {
	specs := []domain.FilterSpec{
		{Column: "order date", Operator: domain.OpGte, Value: "2024-01-01"},
		{Column: "name", Operator: domain.OpEq, Value: `say "hi"`},
		{Column: "note", Operator: domain.OpNotNull},
		{Column: "word", Operator: domain.OpEq, Value: "and"},
	}
	for _, s := range specs {
		got, err := Parse(Format(s))
		require.NoError(t, err, Format(s))
		assert.Equal(t, []domain.FilterSpec{s}, got)
	}
}
