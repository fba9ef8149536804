package builders

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/resinkit/resinkit-go/core"
)

var (
	ErrColumnInfo = errors.New("could not retrieve column info")

	parameterizedType = regexp.MustCompile(`^([A-Za-z_]+)\s*\(\s*(\d+)\s*(?:,\s*(\d+)\s*)?\)\s*(.*)$`)
)

// lengthTypes carry a length parameter, the rest of the parameterized
// types carry a precision.
var lengthTypes = map[string]bool{
	"CHAR":      true,
	"VARCHAR":   true,
	"BINARY":    true,
	"VARBINARY": true,
}

// ColumnsFromResultStream converts the rows of a DESCRIBE statement to
// columns. Rows need at least the name and the type, an optional third
// field holds nullability:
//
//	name | type           | null  | ...
//	id   | BIGINT         | false |
//	amt  | DECIMAL(10, 2) | true  |
//
// Type parameters end up in Length, Precision and Scale. A "NOT NULL"
// suffix on the type overrides the null field.
func ColumnsFromResultStream(rows core.ResultStream) ([]*core.Column, error) {
	var out []*core.Column

	for i := 0; rows.HasNext(); i++ {
		row, err := rows.Next()
		if err != nil {
			return nil, fmt.Errorf("rows.Next: %w", err)
		}

		column, err := columnFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out = append(out, column)
	}

	return out, nil
}

func columnFromRow(row core.Row) (*core.Column, error) {
	if len(row) < 2 {
		return nil, fmt.Errorf("%w: expected at least 2 fields, got %d", ErrColumnInfo, len(row))
	}

	name, ok := row[0].(string)
	if !ok {
		return nil, fmt.Errorf("%w: name is %T, not a string", ErrColumnInfo, row[0])
	}
	typ, ok := row[1].(string)
	if !ok {
		return nil, fmt.Errorf("%w: type is %T, not a string", ErrColumnInfo, row[1])
	}

	column := parseType(typ)
	column.Name = name
	if len(row) > 2 && column.Nullable {
		nullable, ok := row[2].(bool)
		column.Nullable = !ok || nullable
	}
	return column, nil
}

// parseType splits a printed type like "VARCHAR(20) NOT NULL" into its
// parts. Composite types are kept as they are.
func parseType(typ string) *core.Column {
	column := &core.Column{Nullable: true}

	typ = strings.TrimSpace(typ)
	if t, ok := cutSuffixFold(typ, "NOT NULL"); ok {
		typ = strings.TrimSpace(t)
		column.Nullable = false
	}

	m := parameterizedType.FindStringSubmatch(typ)
	if m == nil {
		column.LogicalType = typ
		return column
	}

	base := strings.ToUpper(m[1])
	first, _ := strconv.Atoi(m[2])

	switch {
	case lengthTypes[base]:
		column.Length = &first
	case m[3] != "":
		scale, _ := strconv.Atoi(m[3])
		column.Precision = &first
		column.Scale = &scale
	default:
		column.Precision = &first
	}

	// "TIMESTAMP(3) *ROWTIME*" only marks the time attribute
	rest := strings.ToUpper(m[4])
	for _, marker := range []string{"*ROWTIME*", "*PROCTIME*"} {
		rest = strings.ReplaceAll(rest, marker, "")
	}
	rest = strings.TrimSpace(rest)
	switch {
	case base == "TIMESTAMP_LTZ", base == "TIMESTAMP" && rest == "WITH LOCAL TIME ZONE":
		base = "TIMESTAMP_WITH_LOCAL_TIME_ZONE"
	case rest != "":
		base += " " + rest
	}

	column.LogicalType = base
	return column
}

func cutSuffixFold(s, suffix string) (string, bool) {
	if len(s) < len(suffix) || !strings.EqualFold(s[len(s)-len(suffix):], suffix) {
		return s, false
	}
	return s[:len(s)-len(suffix)], true
}
