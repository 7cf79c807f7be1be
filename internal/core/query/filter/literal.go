package filter

import (
	"github.com/jeffhb60/csv-pivot-app/internal/core/query/domain"
	"github.com/jeffhb60/csv-pivot-app/internal/core/values"
)

// literal is a filter value re-typed for the column it is compared against.
// A literal that failed to parse binds NULL so the predicate never matches.
type literal interface {
	kind() domain.ColumnType
	param() any
}

type numberLiteral struct {
	v  float64
	ok bool
}

func (l numberLiteral) kind() domain.ColumnType { return domain.Numeric }
func (l numberLiteral) param() any {
	if !l.ok {
		return nil
	}
	return l.v
}

type dateLiteral struct {
	v  string
	ok bool
}

func (l dateLiteral) kind() domain.ColumnType { return domain.Date }
func (l dateLiteral) param() any {
	if !l.ok {
		return nil
	}
	return l.v
}

type timestampLiteral struct {
	v  string
	ok bool
}

func (l timestampLiteral) kind() domain.ColumnType { return domain.Timestamp }
func (l timestampLiteral) param() any {
	if !l.ok {
		return nil
	}
	return l.v
}

type boolLiteral struct {
	v bool
}

func (l boolLiteral) kind() domain.ColumnType { return domain.Boolean }
func (l boolLiteral) param() any              { return l.v }

type textLiteral struct {
	v string
}

func (l textLiteral) kind() domain.ColumnType { return domain.String }
func (l textLiteral) param() any              { return l.v }

// coerce types raw against col. Only booleans reject a value outright.
func coerce(col domain.Column, raw string) (literal, error) {
	switch col.Type {
	case domain.Numeric:
		v, ok := values.ParseNumber(raw)
		return numberLiteral{v: v, ok: ok}, nil
	case domain.Date:
		v, ok := values.ParseDate(raw)
		return dateLiteral{v: v, ok: ok}, nil
	case domain.Timestamp:
		v, ok := values.ParseTimestamp(raw)
		return timestampLiteral{v: v, ok: ok}, nil
	case domain.Boolean:
		v, ok := values.ParseBool(raw)
		if !ok {
			return nil, &domain.InvalidFilterValueError{
				Column: col.Name,
				Value:  raw,
				Reason: "expected one of true/false, t/f, 1/0, yes/no",
			}
		}
		return boolLiteral{v: v}, nil
	default:
		return textLiteral{v: raw}, nil
	}
}
