package format

import (
	"fmt"
	"time"
)

// formatText renders a single value for text based formats. Nulls become null.
func formatText(value any, null string) string {
	switch v := value.(type) {
	case nil:
		return null
	case string:
		return v
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

// plain converts values that encoders can't represent natively.
func plain(value any) any {
	switch v := value.(type) {
	case time.Time:
		return v.Format(time.RFC3339Nano)
	default:
		return v
	}
}
