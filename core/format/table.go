package format

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/resinkit/resinkit-go/core"
)

var _ core.Formatter = (*Table)(nil)

// Table renders rows as an indexed text table.
type Table struct {
	null string
}

type TableOption func(*Table)

// TableWithNull sets the text shown for null values, "NULL" by default.
func TableWithNull(null string) TableOption {
	return func(t *Table) {
		t.null = null
	}
}

func NewTable(opts ...TableOption) *Table {
	t := &Table{null: "NULL"}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (tf *Table) Format(header core.Header, rows []core.Row, opts *core.FormatterOptions) ([]byte, error) {
	tableHeaders := table.Row{""}
	for _, k := range header {
		tableHeaders = append(tableHeaders, k)
	}

	index := 0
	if opts != nil {
		index = opts.ChunkStart
	}

	tableRows := make([]table.Row, 0, len(rows))
	for _, row := range rows {
		indexedRow := table.Row{index + 1}
		for _, val := range row {
			indexedRow = append(indexedRow, formatText(val, tf.null))
		}
		tableRows = append(tableRows, indexedRow)
		index++
	}

	t := table.NewWriter()
	t.AppendHeader(tableHeaders)
	t.AppendRows(tableRows)
	t.AppendSeparator()
	t.SetStyle(table.StyleLight)
	t.Style().Format = table.FormatOptions{
		Footer: text.FormatDefault,
		Header: text.FormatDefault,
		Row:    text.FormatDefault,
	}
	t.Style().Options.DrawBorder = false
	t.SuppressTrailingSpaces()
	render := t.Render()

	return []byte(render), nil
}
