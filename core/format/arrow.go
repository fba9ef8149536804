package format

import (
	"bytes"
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/resinkit/resinkit-go/core"
)

var _ core.Formatter = (*Arrow)(nil)

// Arrow writes rows as a single record in the Arrow IPC stream format.
// Column types follow the value domains of the type mapper.
type Arrow struct {
	alloc  memory.Allocator
	mapper *core.TypeMapper
}

func NewArrow() *Arrow {
	return &Arrow{
		alloc:  memory.DefaultAllocator,
		mapper: core.NewTypeMapper(),
	}
}

// Schema returns the arrow schema of columns. Without columns every header
// entry becomes a string field.
func (af *Arrow) Schema(header core.Header, columns []*core.Column) *arrow.Schema {
	var fields []arrow.Field
	if len(columns) == 0 {
		fields = make([]arrow.Field, len(header))
		for i, name := range header {
			fields[i] = arrow.Field{Name: name, Type: arrow.BinaryTypes.String, Nullable: true}
		}
		return arrow.NewSchema(fields, nil)
	}

	fields = make([]arrow.Field, len(columns))
	for i, col := range columns {
		fields[i] = arrow.Field{
			Name:     col.Name,
			Type:     arrowType(af.mapper.Domain(col.LogicalType)),
			Nullable: true,
		}
	}
	return arrow.NewSchema(fields, nil)
}

// Record builds an arrow record of rows. The caller releases it.
func (af *Arrow) Record(schema *arrow.Schema, rows []core.Row) arrow.Record {
	builder := array.NewRecordBuilder(af.alloc, schema)
	defer builder.Release()

	numFields := schema.NumFields()
	for _, row := range rows {
		for i := 0; i < numFields; i++ {
			var val any
			if i < len(row) {
				val = row[i]
			}
			appendValue(builder.Field(i), val)
		}
	}

	return builder.NewRecord()
}

func (af *Arrow) Format(header core.Header, rows []core.Row, opts *core.FormatterOptions) ([]byte, error) {
	var columns []*core.Column
	if opts != nil {
		columns = opts.Columns
	}

	schema := af.Schema(header, columns)
	rec := af.Record(schema, rows)
	defer rec.Release()

	var b bytes.Buffer
	w := ipc.NewWriter(&b, ipc.WithSchema(schema), ipc.WithAllocator(af.alloc))
	if err := w.Write(rec); err != nil {
		return nil, fmt.Errorf("w.Write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("w.Close: %w", err)
	}

	return b.Bytes(), nil
}

func arrowType(domain core.Domain) arrow.DataType {
	switch domain {
	case core.DomainInt64:
		return arrow.PrimitiveTypes.Int64
	case core.DomainInt16:
		return arrow.PrimitiveTypes.Int16
	case core.DomainInt8:
		return arrow.PrimitiveTypes.Int8
	case core.DomainFloat32:
		return arrow.PrimitiveTypes.Float32
	case core.DomainFloat64:
		return arrow.PrimitiveTypes.Float64
	case core.DomainBool:
		return arrow.FixedWidthTypes.Boolean
	case core.DomainTimestamp:
		return arrow.FixedWidthTypes.Timestamp_us
	default:
		return arrow.BinaryTypes.String
	}
}

// appendValue appends val, values outside the builder's domain become null,
// except for strings which take any value.
func appendValue(builder array.Builder, val any) {
	if val == nil {
		builder.AppendNull()
		return
	}

	switch b := builder.(type) {
	case *array.Int64Builder:
		if v, ok := val.(int64); ok {
			b.Append(v)
		} else {
			b.AppendNull()
		}
	case *array.Int16Builder:
		if v, ok := val.(int16); ok {
			b.Append(v)
		} else {
			b.AppendNull()
		}
	case *array.Int8Builder:
		if v, ok := val.(int8); ok {
			b.Append(v)
		} else {
			b.AppendNull()
		}
	case *array.Float32Builder:
		if v, ok := val.(float32); ok {
			b.Append(v)
		} else {
			b.AppendNull()
		}
	case *array.Float64Builder:
		if v, ok := val.(float64); ok {
			b.Append(v)
		} else {
			b.AppendNull()
		}
	case *array.BooleanBuilder:
		if v, ok := val.(bool); ok {
			b.Append(v)
		} else {
			b.AppendNull()
		}
	case *array.TimestampBuilder:
		if v, ok := val.(time.Time); ok {
			b.AppendTime(v)
		} else {
			b.AppendNull()
		}
	case *array.StringBuilder:
		b.Append(formatText(val, ""))
	default:
		builder.AppendNull()
	}
}
