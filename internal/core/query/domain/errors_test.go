package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorsMatchSentinels(t *testing.T) {
	cause := errors.New("disk I/O error")

	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"schema", &SchemaError{Relation: "data", Reason: "no columns"}, ErrSchema},
		{"unknown column", &UnknownColumnError{Column: "x"}, ErrUnknownColumn},
		{"filter value", &InvalidFilterValueError{Column: "active", Value: "maybe"}, ErrInvalidFilterValue},
		{"pivot spec", &InvalidPivotSpecError{Violations: []string{"a"}}, ErrInvalidPivotSpec},
		{"too many columns", &TooManyColumnsError{Column: "sku", Found: 201, Limit: 200}, ErrTooManyColumns},
		{"build", &PivotBuildError{Reason: "empty mapping"}, ErrPivotBuild},
		{"limit", &LimitExceededError{Dimension: "rows", Found: 2, Limit: 1}, ErrLimitExceeded},
		{"execution", &ExecutionError{Cause: cause}, ErrExecution},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("pivot: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
			assert.NotEmpty(t, tt.err.Error())
		})
	}

	assert.ErrorIs(t, &ExecutionError{Cause: cause}, cause)
}

func TestTooManyColumnsErrorFields(t *testing.T) {
	var err error = &TooManyColumnsError{Column: "sku", Found: 201, Limit: 200}

	var tmc *TooManyColumnsError
	if assert.ErrorAs(t, err, &tmc) {
		assert.Equal(t, 201, tmc.Found)
		assert.Equal(t, 200, tmc.Limit)
	}
	assert.Contains(t, err.Error(), "sku")
}

func TestParseOperator(t *testing.T) {
	tests := []struct {
		in   string
		want Operator
		ok   bool
	}{
		{"=", OpEq, true},
		{"==", OpEq, true},
		{"<>", OpNeq, true},
		{" Contains ", OpContains, true},
		{"is_null", OpIsNull, true},
		{"like", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseOperator(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestSchemaLookup(t *testing.T) {
	s := &Schema{Relation: "sales", Columns: []Column{
		{Name: "region", Type: String},
		{Name: "amount", Type: Numeric},
	}}

	c, ok := s.Lookup("amount")
	assert.True(t, ok)
	assert.Equal(t, Numeric, c.Type)

	_, ok = s.Lookup("Amount")
	assert.False(t, ok)
	assert.Equal(t, []string{"region", "amount"}, s.Names())
}
