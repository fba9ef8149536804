package core

import (
	"fmt"
)

// Table is a fully materialized, typed result.
type Table struct {
	Columns []*Column
	Rows    []Row
	// Kinds is only filled when rows were fetched with RowKindsKeepAll
	Kinds    []RowKind
	Meta     *Meta
	Warnings []*TypeConversionWarning
}

func (t *Table) Len() int {
	return len(t.Rows)
}

// Header returns the column names in order.
func (t *Table) Header() Header {
	header := make(Header, len(t.Columns))
	for i, col := range t.Columns {
		header[i] = col.Name
	}
	return header
}

// Column returns the index and schema of the first column named name.
func (t *Table) Column(name string) (int, *Column, bool) {
	for i, col := range t.Columns {
		if col.Name == name {
			return i, col, true
		}
	}
	return -1, nil, false
}

// Values returns all values of the column at index i.
func (t *Table) Values(i int) []any {
	out := make([]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		if i < len(row) {
			out = append(out, row[i])
			continue
		}
		out = append(out, nil)
	}
	return out
}

// TableBuilder assembles column schemas and row batches into a Table.
type TableBuilder struct {
	mapper  *TypeMapper
	log     Logger
	columns []*Column
	rows    [][]any
	kinds   []RowKind
	meta    *Meta
	offset  int
}

func NewTableBuilder(mapper *TypeMapper) *TableBuilder {
	if mapper == nil {
		mapper = NewTypeMapper()
	}
	return &TableBuilder{
		mapper: mapper,
		log:    NopLogger(),
		meta:   &Meta{},
	}
}

func (b *TableBuilder) WithLogger(logger Logger) *TableBuilder {
	b.log = logger
	return b
}

// WithColumns sets the schema unless one was already set.
func (b *TableBuilder) WithColumns(columns []*Column) *TableBuilder {
	if b.columns == nil && len(columns) > 0 {
		b.columns = columns
	}
	return b
}

// WithRowOffset numbers the rows of warnings from offset, for tables built
// one page at a time.
func (b *TableBuilder) WithRowOffset(offset int) *TableBuilder {
	b.offset = offset
	return b
}

func (b *TableBuilder) WithMeta(meta *Meta) *TableBuilder {
	if meta != nil {
		b.meta = meta
	}
	return b
}

func (b *TableBuilder) AppendRows(rows ...[]any) *TableBuilder {
	b.rows = append(b.rows, rows...)
	return b
}

func (b *TableBuilder) AppendBatch(batch *Batch) *TableBuilder {
	b.WithColumns(batch.Columns)
	b.rows = append(b.rows, batch.Rows...)
	b.kinds = append(b.kinds, batch.Kinds...)
	return b
}

// Build coerces every value into its column domain. Failed coercions keep the
// raw value and are reported as warnings.
func (b *TableBuilder) Build() *Table {
	meta := b.meta.copy()
	columns := b.columns

	if len(columns) == 0 {
		columns = positionalColumns(b.rows)
		meta.Positional = len(columns) > 0
	}

	table := &Table{
		Columns: columns,
		Rows:    make([]Row, 0, len(b.rows)),
		Meta:    meta,
	}
	if len(b.kinds) > 0 {
		table.Kinds = append([]RowKind(nil), b.kinds...)
	}

	for i, raw := range b.rows {
		table.Rows = append(table.Rows, b.convertRow(table, b.offset+i, raw))
	}

	return table
}

func (b *TableBuilder) convertRow(table *Table, index int, raw []any) Row {
	columns := table.Columns

	width := len(columns)
	if len(raw) < width {
		b.warn(table, &TypeConversionWarning{
			Row:   index,
			Value: raw,
			Err:   fmt.Errorf("row has %d fields, schema has %d columns", len(raw), width),
		})
	}
	if len(raw) > width {
		b.warn(table, &TypeConversionWarning{
			Row:   index,
			Value: raw[width:],
			Err:   fmt.Errorf("row has %d fields, schema has %d columns", len(raw), width),
		})
		width = len(raw)
	}

	row := make(Row, width)
	for i := 0; i < width; i++ {
		if i >= len(raw) {
			continue
		}
		if i >= len(columns) {
			row[i] = opaque(raw[i])
			continue
		}

		val, err := b.mapper.Convert(columns[i], raw[i])
		if err != nil {
			b.warn(table, &TypeConversionWarning{
				Column:      columns[i].Name,
				LogicalType: columns[i].LogicalType,
				Row:         index,
				Value:       raw[i],
				Err:         err,
			})
			row[i] = opaque(raw[i])
			continue
		}
		row[i] = val
	}

	return row
}

func (b *TableBuilder) warn(table *Table, w *TypeConversionWarning) {
	table.Warnings = append(table.Warnings, w)
	b.log.Warn(w.Error())
}

// positionalColumns synthesizes untyped columns wide enough for every row.
func positionalColumns(rows [][]any) []*Column {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	columns := make([]*Column, width)
	for i := range columns {
		columns[i] = &Column{
			Name:     fmt.Sprintf("col_%d", i),
			Nullable: true,
		}
	}
	return columns
}
