package drivers

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// quoteIdent wraps name in q as a single identifier, doubling any q inside it
func quoteIdent(name string, q string) string {
	return q + strings.ReplaceAll(name, q, q+q) + q
}

// quoteQualified quotes every dot-separated part of a table reference with
// quote
func quoteQualified(name string, quote func(string) string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = quote(p)
	}
	return strings.Join(parts, ".")
}

// quoteString renders s as a single-quoted literal. backslashes is set for
// engines that treat backslash as an escape inside strings.
func quoteString(s string, backslashes bool) string {
	if backslashes {
		s = strings.ReplaceAll(s, `\`, `\\`)
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// formatLiteral converts a Go scalar to SQL literal text. Strings go through
// quote; everything else is rendered without quoting.
func formatLiteral(val any, quote func(string) string) string {
	if val == nil {
		return "NULL"
	}

	switch v := val.(type) {
	case []byte:
		return "X'" + hex.EncodeToString(v) + "'"
	case string:
		return quote(v)
	case int:
		return strconv.Itoa(v)
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case time.Time:
		return quote(v.UTC().Format("2006-01-02 15:04:05.999999"))
	case fmt.Stringer:
		return quote(v.String())
	default:
		return quote(fmt.Sprintf("%v", v))
	}
}
