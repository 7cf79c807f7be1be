package widecols

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/zeebo/xxh3"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxAliasLength caps the sanitized part of an alias.
const MaxAliasLength = 40

var nonIdent = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// Display renders a distinct value the way it is shown and hashed.
func Display(raw any) string {
	switch v := raw.(type) {
	case nil:
		return "NULL"
	case string:
		return v
	case []byte:
		return string(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		if v.Hour() == 0 && v.Minute() == 0 && v.Second() == 0 && v.Nanosecond() == 0 {
			return v.Format("2006-01-02")
		}
		return v.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(v)
	}
}

// Sanitize turns a distinct value into an identifier matching [A-Za-z_][A-Za-z0-9_]*.
func Sanitize(raw any) string {
	s := stripAccents(Display(raw))
	s = nonIdent.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "col"
	}
	if s[0] >= '0' && s[0] <= '9' {
		s = "c" + s
	}
	if len(s) > MaxAliasLength {
		s = strings.TrimRight(s[:MaxAliasLength], "_")
	}
	return s
}

func stripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// hashSuffix is the first six hex digits of the xxh3 hash of the displayed value.
func hashSuffix(raw any) string {
	return fmt.Sprintf("%016x", xxh3.HashString(Display(raw)))[:6]
}

// Assign sanitizes every value and resolves collisions. The first value to
// claim a name keeps it; later ones get a hash suffix and, if that still
// clashes, a numeric one. Names are compared case-insensitively and the
// reserved names (the row dimensions) are never handed out.
func Assign(raws []any, reserved []string) []string {
	used := make(map[string]bool, len(raws)+len(reserved))
	for _, r := range reserved {
		used[strings.ToLower(r)] = true
	}

	out := make([]string, len(raws))
	for i, raw := range raws {
		name := Sanitize(raw)
		if used[strings.ToLower(name)] {
			name = name + "_" + hashSuffix(raw)
			if used[strings.ToLower(name)] {
				base := name
				for n := 2; used[strings.ToLower(name)]; n++ {
					name = base + "_" + strconv.Itoa(n)
				}
			}
		}
		used[strings.ToLower(name)] = true
		out[i] = name
	}
	return out
}
