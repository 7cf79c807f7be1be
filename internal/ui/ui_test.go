package ui

import (
	"bytes"
	"testing"
	"time"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeffhb60/csv-pivot-app/internal/core/query/domain"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := Output
	Output = &buf
	pterm.DisableStyling()
	t.Cleanup(func() {
		Output = prev
		pterm.EnableStyling()
	})
	return &buf
}

func TestTableRows(t *testing.T) {
	rs := &domain.ResultSet{
		Columns: []string{"region", "value", "day"},
		Rows: [][]any{
			{"East", 120.5, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
			{[]byte("West"), nil, int64(3)},
		},
	}
	assert.Equal(t, [][]string{
		{"East", "120.5", "2024-03-01"},
		{"West", "", "3"},
	}, TableRows(rs))
}

func TestPrintResult(t *testing.T) {
	buf := capture(t)
	rs := &domain.ResultSet{
		Columns: []string{"region", "value"},
		Rows:    [][]any{{"East", int64(120)}, {"West", int64(50)}},
	}
	require.NoError(t, PrintResult(rs))
	out := buf.String()
	assert.Contains(t, out, "region")
	assert.Contains(t, out, "East")
	assert.Contains(t, out, "2 row(s)")
}

func TestPrintSchema(t *testing.T) {
	buf := capture(t)
	require.NoError(t, PrintSchema(&domain.Schema{Relation: "sales", Columns: []domain.Column{
		{Name: "amount", NativeType: "DOUBLE", Type: domain.Numeric},
	}}))
	assert.Contains(t, buf.String(), "NUMERIC")
}
