package schema

import (
	"regexp"
	"strings"

	"github.com/jeffhb60/csv-pivot-app/internal/core/query/domain"
)

var typeParams = regexp.MustCompile(`\s*\([^)]*\)`)

var numericTypes = map[string]bool{
	"TINYINT": true, "SMALLINT": true, "MEDIUMINT": true, "INT": true, "INTEGER": true,
	"BIGINT": true, "HUGEINT": true, "UBIGINT": true, "UINTEGER": true,
	"INT2": true, "INT4": true, "INT8": true,
	"SMALLSERIAL": true, "SERIAL": true, "BIGSERIAL": true,
	"REAL": true, "FLOAT": true, "FLOAT4": true, "FLOAT8": true,
	"DOUBLE": true, "DOUBLE PRECISION": true, "DECIMAL": true, "NUMERIC": true,
}

var timestampTypes = map[string]bool{
	"TIME": true, "TIMETZ": true, "TIMESTAMP": true, "TIMESTAMPTZ": true, "DATETIME": true,
	"TIMESTAMP WITH TIME ZONE": true, "TIMESTAMP WITHOUT TIME ZONE": true,
	"TIME WITH TIME ZONE": true, "TIME WITHOUT TIME ZONE": true,
}

// NormalizeType upper-cases a native type name and removes its parameters,
// so "decimal(18, 2) unsigned" becomes "DECIMAL".
func NormalizeType(native string) string {
	t := strings.ToUpper(strings.TrimSpace(native))
	t = typeParams.ReplaceAllString(t, "")
	t = strings.TrimSuffix(t, " UNSIGNED")
	t = strings.TrimSuffix(t, " ZEROFILL")
	return strings.Join(strings.Fields(t), " ")
}

// Classify maps a native engine type to a semantic column type.
func Classify(native string) domain.ColumnType {
	t := NormalizeType(native)
	switch {
	case numericTypes[t]:
		return domain.Numeric
	case t == "DATE":
		return domain.Date
	case timestampTypes[t], strings.HasPrefix(t, "TIMESTAMP"):
		return domain.Timestamp
	case t == "BOOLEAN", t == "BOOL":
		return domain.Boolean
	default:
		return domain.String
	}
}
