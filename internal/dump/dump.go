// Package dump renders table snapshots as SQL insert statements.
package dump

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	fileTimeLayout    = "2006-01-02_15-04-05"
	literalTimeLayout = "2006-01-02 15:04:05.999999"
)

// FileName returns the archive name for a dump taken at t, e.g. dump_2024-03-09_14-05-07.sql.
func FileName(t time.Time) string {
	return "dump_" + t.Format(fileTimeLayout) + ".sql"
}

// Render writes every row as one multi-row INSERT statement. An empty snapshot
// renders as a single comment line so the file never holds an invalid statement.
func Render(table string, columns []string, rows [][]any) ([]byte, error) {
	var b strings.Builder
	if len(rows) == 0 {
		fmt.Fprintf(&b, "-- %s: no rows\n", table)
		return []byte(b.String()), nil
	}

	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES\n", table, strings.Join(columns, ", "))
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(row), len(columns))
		}
		b.WriteByte('(')
		for j, v := range row {
			lit, err := Literal(v)
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", i, columns[j], err)
			}
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(lit)
		}
		b.WriteByte(')')
		if i < len(rows)-1 {
			b.WriteString(",\n")
		}
	}
	b.WriteString(";\n")
	return []byte(b.String()), nil
}

// Literal formats one value as a SQL literal.
func Literal(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "NULL", nil
	case string:
		return quote(val), nil
	case []byte:
		return quote(string(val)), nil
	case int:
		return strconv.Itoa(val), nil
	case int16:
		return strconv.FormatInt(int64(val), 10), nil
	case int32:
		return strconv.FormatInt(int64(val), 10), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case bool:
		if val {
			return "TRUE", nil
		}
		return "FALSE", nil
	case time.Time:
		return quote(val.Format(literalTimeLayout)), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
