package loader

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/jeffhb60/csv-pivot-app/internal/core/values"
)

// Declared column types. DATE and TIMESTAMP carry a parameter so the sqlite
// driver returns their values as text instead of converting them to time.Time.
const (
	TypeInteger   = "BIGINT"
	TypeReal      = "DOUBLE"
	TypeBoolean   = "BOOLEAN"
	TypeDate      = "DATE(10)"
	TypeTimestamp = "TIMESTAMP(6)"
	TypeText      = "TEXT"
)

// InferType picks the narrowest type every non-empty value satisfies.
func InferType(vals []string) string {
	nonEmpty := make([]string, 0, len(vals))
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			nonEmpty = append(nonEmpty, v)
		}
	}
	if len(nonEmpty) == 0 {
		return TypeText
	}

	switch {
	case allMatch(nonEmpty, values.IsInt):
		return TypeInteger
	case allMatch(nonEmpty, func(s string) bool { _, ok := values.ParseLooseBool(s); return ok }):
		return TypeBoolean
	case allMatch(nonEmpty, func(s string) bool { _, ok := values.ParseNumber(s); return ok }):
		return TypeReal
	}

	anyTime := false
	for _, v := range nonEmpty {
		if _, ok := values.ParseDate(v); ok {
			continue
		}
		if _, ok := values.ParseTimestamp(v); !ok {
			return TypeText
		}
		anyTime = true
	}
	if anyTime {
		return TypeTimestamp
	}
	return TypeDate
}

func allMatch(vals []string, fn func(string) bool) bool {
	for _, v := range vals {
		if !fn(v) {
			return false
		}
	}
	return true
}

// Convert turns a cell into its canonical stored value. Empty cells become
// NULL; cells that do not parse as the column type are stored verbatim.
func Convert(cell, typ string) any {
	s := strings.TrimSpace(cell)
	if s == "" {
		return nil
	}
	switch typ {
	case TypeInteger:
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		if f, ok := values.ParseNumber(s); ok {
			return f
		}
	case TypeReal:
		if f, ok := values.ParseNumber(s); ok {
			return f
		}
	case TypeBoolean:
		if b, ok := values.ParseLooseBool(s); ok {
			if b {
				return int64(1)
			}
			return int64(0)
		}
	case TypeDate:
		if d, ok := values.ParseDate(s); ok {
			return d
		}
	case TypeTimestamp:
		if ts, ok := values.ParseTimestamp(s); ok {
			return ts
		}
	}
	return cell
}

// CleanHeaders strips a UTF-8 BOM and whitespace, names blank headers
// column_N and suffixes case-insensitive duplicates with _2, _3, ...
func CleanHeaders(headers []string) []string {
	out := make([]string, len(headers))
	used := make(map[string]bool, len(headers))
	for i, h := range headers {
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		h = strings.TrimSpace(h)
		if h == "" {
			h = "column_" + strconv.Itoa(i+1)
		}
		name := h
		for n := 2; used[strings.ToLower(name)]; n++ {
			name = h + "_" + strconv.Itoa(n)
		}
		used[strings.ToLower(name)] = true
		out[i] = name
	}
	return out
}

// TableName derives a table name from a file name: lowercase ASCII letters,
// digits and underscores, falling back to "data".
func TableName(file string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(t, strings.ToLower(file))
	if err != nil {
		s = strings.ToLower(file)
	}
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore:
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" {
		return "data"
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "t_" + name
	}
	return name
}
