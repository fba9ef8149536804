package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/golang-sql/civil"
	"github.com/shopspring/decimal"
)

// Domain is the host value domain a logical column type maps to.
// Every domain is nullable, a nil value is always accepted.
type Domain int

const (
	DomainOpaque Domain = iota
	DomainInt64
	DomainInt16
	DomainInt8
	DomainFloat32
	DomainFloat64
	DomainBool
	DomainString
	DomainTimestamp
)

func (d Domain) String() string {
	switch d {
	case DomainInt64:
		return "int64"
	case DomainInt16:
		return "int16"
	case DomainInt8:
		return "int8"
	case DomainFloat32:
		return "float32"
	case DomainFloat64:
		return "float64"
	case DomainBool:
		return "bool"
	case DomainString:
		return "string"
	case DomainTimestamp:
		return "timestamp"
	default:
		return "opaque"
	}
}

var defaultDomains = map[string]Domain{
	"integer":  DomainInt64,
	"bigint":   DomainInt64,
	"smallint": DomainInt16,
	"tinyint":  DomainInt8,
	"float":    DomainFloat32,
	"double":   DomainFloat64,
	"decimal":  DomainFloat64,
	"boolean":  DomainBool,
	"char":     DomainString,
	"varchar":  DomainString,
	"string":   DomainString,

	"date":                           DomainTimestamp,
	"time":                           DomainTimestamp,
	"time_without_time_zone":         DomainTimestamp,
	"timestamp":                      DomainTimestamp,
	"timestamp_without_time_zone":    DomainTimestamp,
	"timestamp_ltz":                  DomainTimestamp,
	"timestamp_with_local_time_zone": DomainTimestamp,
}

var errNotScalar = errors.New("value is not a scalar")

// Converter coerces a single raw field value.
type Converter func(value any) (any, error)

type typeMapperConfig struct {
	converters map[string]Converter
}

type TypeMapperOption func(*typeMapperConfig)

// WithTypeConverter registers a custom converter for a logical type name.
// The first registration for a name wins.
func WithTypeConverter(typ string, fn Converter) TypeMapperOption {
	return func(c *typeMapperConfig) {
		t := normalizeType(typ)
		if _, ok := c.converters[t]; ok {
			return
		}
		c.converters[t] = fn
	}
}

// TypeMapper maps logical column types to host value domains and coerces
// raw values into them.
type TypeMapper struct {
	converters map[string]Converter
}

func NewTypeMapper(opts ...TypeMapperOption) *TypeMapper {
	config := typeMapperConfig{
		converters: make(map[string]Converter),
	}
	for _, opt := range opts {
		opt(&config)
	}

	return &TypeMapper{
		converters: config.converters,
	}
}

// Domain returns the host domain of a logical type name. Unknown names map to
// DomainOpaque.
func (m *TypeMapper) Domain(logicalType string) Domain {
	d, ok := defaultDomains[normalizeType(logicalType)]
	if !ok {
		return DomainOpaque
	}
	return d
}

// Convert coerces value into the domain of col. On error the caller decides
// what to keep; Convert never returns a partially converted value.
func (m *TypeMapper) Convert(col *Column, value any) (any, error) {
	typ := normalizeType(col.LogicalType)

	if fn, ok := m.converters[typ]; ok {
		return fn(value)
	}

	if value == nil {
		return nil, nil
	}

	switch m.Domain(typ) {
	case DomainInt64:
		return toInt(value, 64)
	case DomainInt16:
		n, err := toInt(value, 16)
		return int16(n), err
	case DomainInt8:
		n, err := toInt(value, 8)
		return int8(n), err
	case DomainFloat32:
		f, err := toFloat(value, 32)
		return float32(f), err
	case DomainFloat64:
		if typ == "decimal" {
			return toDecimal(value)
		}
		return toFloat(value, 64)
	case DomainBool:
		return toBool(value)
	case DomainString:
		return toString(value)
	case DomainTimestamp:
		return toTime(typ, value)
	default:
		return opaque(value), nil
	}
}

// normalizeType lowercases a type name and strips parameters and
// nullability, "DECIMAL(10, 2) NOT NULL" becomes "decimal".
func normalizeType(logicalType string) string {
	typ := strings.ToLower(strings.TrimSpace(logicalType))
	if i := strings.IndexByte(typ, '('); i >= 0 {
		typ = typ[:i]
	}
	typ = strings.TrimSuffix(typ, " not null")
	return strings.TrimSpace(typ)
}

// opaque is the raw representation kept for unknown types and failed coercions.
func opaque(value any) any {
	if n, ok := value.(json.Number); ok {
		return n.String()
	}
	return value
}

func toInt(value any, bits int) (int64, error) {
	var n int64

	switch v := value.(type) {
	case json.Number:
		i, err := strconv.ParseInt(v.String(), 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(v.String(), 64)
			if ferr != nil {
				return 0, err
			}
			return floatToInt(f, bits)
		}
		n = i
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, err
		}
		n = i
	case float64:
		return floatToInt(v, bits)
	case float32:
		return floatToInt(float64(v), bits)
	case int:
		n = int64(v)
	case int8:
		n = int64(v)
	case int16:
		n = int64(v)
	case int32:
		n = int64(v)
	case int64:
		n = v
	case uint8:
		n = int64(v)
	case uint16:
		n = int64(v)
	case uint32:
		n = int64(v)
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("%d overflows int%d", v, bits)
		}
		n = int64(v)
	default:
		return 0, fmt.Errorf("unsupported type %T", value)
	}

	if !fitsBits(n, bits) {
		return 0, fmt.Errorf("%d overflows int%d", n, bits)
	}
	return n, nil
}

func floatToInt(f float64, bits int) (int64, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("%v is not an integer", f)
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("%v overflows int%d", f, bits)
	}
	n := int64(f)
	if !fitsBits(n, bits) {
		return 0, fmt.Errorf("%d overflows int%d", n, bits)
	}
	return n, nil
}

func fitsBits(n int64, bits int) bool {
	if bits >= 64 {
		return true
	}
	limit := int64(1) << (bits - 1)
	return n >= -limit && n < limit
}

func toFloat(value any, bits int) (float64, error) {
	switch v := value.(type) {
	case json.Number:
		return strconv.ParseFloat(v.String(), bits)
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), bits)
	case float64:
		if bits == 32 && math.Abs(v) > math.MaxFloat32 && !math.IsInf(v, 0) {
			return 0, fmt.Errorf("%v overflows float32", v)
		}
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("unsupported type %T", value)
	}
}

func toDecimal(value any) (float64, error) {
	var s string
	switch v := value.(type) {
	case json.Number:
		s = v.String()
	case string:
		s = strings.TrimSpace(v)
	default:
		return toFloat(value, 64)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}

func toBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(v))
	default:
		return false, fmt.Errorf("unsupported type %T", value)
	}
}

func toString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case bool, float32, float64, int, int8, int16, int32, int64:
		return fmt.Sprint(v), nil
	default:
		return "", fmt.Errorf("%w: %T", errNotScalar, value)
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
}

func toTime(typ string, value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case json.Number:
		ms, err := v.Int64()
		if err != nil {
			return time.Time{}, err
		}
		return time.UnixMilli(ms).UTC(), nil
	case float64:
		if v != math.Trunc(v) {
			return time.Time{}, fmt.Errorf("%v is not an epoch millisecond value", v)
		}
		return time.UnixMilli(int64(v)).UTC(), nil
	case int64:
		return time.UnixMilli(v).UTC(), nil
	case string:
		return parseTime(typ, strings.TrimSpace(v))
	default:
		return time.Time{}, fmt.Errorf("unsupported type %T", value)
	}
}

func parseTime(typ, s string) (time.Time, error) {
	switch typ {
	case "date":
		if d, err := civil.ParseDate(s); err == nil {
			return d.In(time.UTC), nil
		}
	case "time", "time_without_time_zone":
		if t, err := civil.ParseTime(s); err == nil {
			return time.Date(0, time.January, 1, t.Hour, t.Minute, t.Second, t.Nanosecond, time.UTC), nil
		}
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time format %q", s)
}
