package format

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/resinkit/resinkit-go/core"
)

var _ core.Formatter = (*CSV)(nil)

// CSV writes a header line followed by one line per row.
type CSV struct {
	null      string
	delimiter rune
	noHeader  bool
}

type CSVOption func(*CSV)

// CSVWithNull sets the text written for nulls, empty by default.
func CSVWithNull(null string) CSVOption {
	return func(cf *CSV) {
		cf.null = null
	}
}

func CSVWithDelimiter(delimiter rune) CSVOption {
	return func(cf *CSV) {
		cf.delimiter = delimiter
	}
}

// CSVWithoutHeader skips the header line, used for follow-up chunks.
func CSVWithoutHeader() CSVOption {
	return func(cf *CSV) {
		cf.noHeader = true
	}
}

func NewCSV(opts ...CSVOption) *CSV {
	cf := &CSV{
		delimiter: ',',
	}
	for _, opt := range opts {
		opt(cf)
	}
	return cf
}

func (cf *CSV) Format(header core.Header, rows []core.Row, _ *core.FormatterOptions) ([]byte, error) {
	b := new(bytes.Buffer)
	w := csv.NewWriter(b)
	w.Comma = cf.delimiter

	if !cf.noHeader {
		if err := w.Write(header); err != nil {
			return nil, fmt.Errorf("w.Write: %w", err)
		}
	}

	record := make([]string, 0, len(header))
	for _, row := range rows {
		record = record[:0]
		for _, val := range row {
			record = append(record, formatText(val, cf.null))
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("w.Write: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("w.Flush: %w", err)
	}

	return b.Bytes(), nil
}
