package sqlite

import (
	"database/sql"

	"github.com/mattn/go-sqlite3"

	"github.com/jeffhb60/csv-pivot-app/internal/core/values"
)

// DriverName is the sqlite3 driver with the non-throwing cast functions registered.
const DriverName = "sqlite3_pivot"

func init() {
	sql.Register(DriverName, &sqlite3.SQLiteDriver{
		ConnectHook: registerFunctions,
	})
}

// registerFunctions installs try_double, try_date, try_timestamp and try_bool.
// Each returns NULL when its argument does not parse.
func registerFunctions(conn *sqlite3.SQLiteConn) error {
	funcs := map[string]func(interface{}) interface{}{
		"try_double":    tryDouble,
		"try_date":      tryDate,
		"try_timestamp": tryTimestamp,
		"try_bool":      tryBool,
	}
	for name, fn := range funcs {
		if err := conn.RegisterFunc(name, fn, true); err != nil {
			return err
		}
	}
	return nil
}

func asText(v interface{}) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case []byte:
		return string(x), true
	}
	return "", false
}

func tryDouble(v interface{}) interface{} {
	switch x := v.(type) {
	case int64:
		return float64(x)
	case float64:
		return x
	}
	if s, ok := asText(v); ok {
		if f, ok := values.ParseNumber(s); ok {
			return f
		}
	}
	return nil
}

func tryDate(v interface{}) interface{} {
	if s, ok := asText(v); ok {
		if d, ok := values.ParseDate(s); ok {
			return d
		}
	}
	return nil
}

func tryTimestamp(v interface{}) interface{} {
	if s, ok := asText(v); ok {
		if ts, ok := values.ParseTimestamp(s); ok {
			return ts
		}
	}
	return nil
}

func tryBool(v interface{}) interface{} {
	switch x := v.(type) {
	case int64:
		return boolInt(x != 0)
	case float64:
		return boolInt(x != 0)
	}
	if s, ok := asText(v); ok {
		if b, ok := values.ParseLooseBool(s); ok {
			return boolInt(b)
		}
	}
	return nil
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
