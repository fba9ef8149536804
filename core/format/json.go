package format

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/resinkit/resinkit-go/core"
)

var _ core.Formatter = (*JSON)(nil)

// JSON formats rows as objects keyed by column name. Rows of a result
// without a header become plain arrays.
type JSON struct {
	indent string
	lines  bool
}

type JSONOption func(*JSON)

// JSONWithIndent sets the indentation of the array form.
func JSONWithIndent(indent string) JSONOption {
	return func(jf *JSON) {
		jf.indent = indent
	}
}

// JSONWithLines writes one compact document per row instead of an array.
// Chunks of the same result concatenate into valid json lines.
func JSONWithLines() JSONOption {
	return func(jf *JSON) {
		jf.lines = true
	}
}

func NewJSON(opts ...JSONOption) *JSON {
	jf := &JSON{
		indent: "  ",
	}
	for _, opt := range opts {
		opt(jf)
	}
	return jf
}

func (jf *JSON) record(header core.Header, row core.Row) any {
	if len(header) == 0 {
		if len(row) == 1 {
			return row[0]
		}
		return row
	}

	record := make(map[string]any, len(row))
	for i, val := range row {
		key := fmt.Sprintf("<unknown-field-%d>", i)
		if i < len(header) {
			key = header[i]
		}
		record[key] = val
	}
	return record
}

func (jf *JSON) Format(header core.Header, rows []core.Row, _ *core.FormatterOptions) ([]byte, error) {
	records := make([]any, 0, len(rows))
	for _, row := range rows {
		// empty rows carry nothing without a header
		if len(header) == 0 && len(row) == 0 {
			continue
		}
		records = append(records, jf.record(header, row))
	}

	if !jf.lines {
		out, err := json.MarshalIndent(records, "", jf.indent)
		if err != nil {
			return nil, fmt.Errorf("json.MarshalIndent: %w", err)
		}
		return out, nil
	}

	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("enc.Encode: %w", err)
		}
	}
	return b.Bytes(), nil
}
