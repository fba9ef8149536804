package core

import (
	"fmt"
	"time"
)

type (
	SessionHandle   string
	OperationHandle string
)

type (
	// FormatterOptions provide various options for formatters
	FormatterOptions struct {
		// Columns carry the resolved column schema, may be nil for row-only output
		Columns    []*Column
		ChunkStart int
	}

	// Formatter converts header and rows to bytes
	Formatter interface {
		Format(header Header, rows []Row, opts *FormatterOptions) ([]byte, error)
	}
)

type (
	// Row and Header are attributes of ResultStream iterator
	Row    []any
	Header []string

	// ResultStream is a row-by-row view of a paginated result
	ResultStream interface {
		Meta() *Meta
		// Warnings lists the conversion warnings of the rows read so far
		Warnings() []*TypeConversionWarning
		Header() Header
		Columns() []*Column
		Next() (Row, error)
		HasNext() bool
		Close()
	}
)

// Column describes a single result column as reported by the gateway.
type Column struct {
	Name        string
	LogicalType string
	Nullable    bool
	Length      *int
	Precision   *int
	Scale       *int
}

// RowKind is the change tag attached to each raw result row.
type RowKind string

const (
	RowKindInsert       RowKind = "INSERT"
	RowKindUpdateBefore RowKind = "UPDATE_BEFORE"
	RowKindUpdateAfter  RowKind = "UPDATE_AFTER"
	RowKindDelete       RowKind = "DELETE"
)

// ResultType tells what kind of page the gateway returned.
type ResultType string

const (
	ResultTypePayload  ResultType = "PAYLOAD"
	ResultTypeEOS      ResultType = "EOS"
	ResultTypeNotReady ResultType = "NOT_READY"
)

// RawRow is a single entry of a page's data list.
type RawRow struct {
	Kind   RowKind
	Fields []any
}

// Page is a single fetch-results response, decoded but not interpreted.
type Page struct {
	ResultType ResultType
	// Columns is nil when the page carried no schema
	Columns []*Column
	Rows    []RawRow
	// NextCursor is empty when the server gave no continuation
	NextCursor string

	RowFormat     string
	JobID         string
	ResultKind    string
	IsQueryResult bool
}

// Batch is an accepted PAYLOAD or EOS page after row-kind filtering.
type Batch struct {
	Columns       []*Column
	Rows          [][]any
	Kinds         []RowKind
	IsEndOfStream bool
	NextCursor    string
	Dropped       map[RowKind]int
}

// Termination tells why a paginator stopped. None of the reasons is an error.
type Termination int

const (
	TerminationNone Termination = iota
	TerminationEndOfStream
	TerminationNoCursor
	TerminationRowLimit
	TerminationPollTimeout
	TerminationNotReadyLimit
)

func (t Termination) String() string {
	switch t {
	case TerminationNone:
		return "none"
	case TerminationEndOfStream:
		return "end_of_stream"
	case TerminationNoCursor:
		return "no_cursor"
	case TerminationRowLimit:
		return "row_limit_reached"
	case TerminationPollTimeout:
		return "poll_timeout_reached"
	case TerminationNotReadyLimit:
		return "not_ready_limit_reached"
	default:
		return "none"
	}
}

// Meta holds metadata about how a result was gathered
type Meta struct {
	Termination     Termination
	Pages           int
	NotReadyRetries int
	Elapsed         time.Duration
	// Dropped counts rows that were filtered out per row kind
	Dropped map[RowKind]int
	// Positional is set when the table columns were synthesized
	Positional bool
}

func (m *Meta) copy() *Meta {
	if m == nil {
		return &Meta{}
	}
	out := *m
	if m.Dropped != nil {
		out.Dropped = make(map[RowKind]int, len(m.Dropped))
		for k, v := range m.Dropped {
			out.Dropped[k] = v
		}
	}
	return &out
}

// SQLType prints the logical type with its parameters, e.g. DECIMAL(10, 2).
func (c *Column) SQLType() string {
	switch {
	case c.Length != nil:
		return fmt.Sprintf("%s(%d)", c.LogicalType, *c.Length)
	case c.Precision != nil && c.Scale != nil:
		return fmt.Sprintf("%s(%d, %d)", c.LogicalType, *c.Precision, *c.Scale)
	case c.Precision != nil:
		return fmt.Sprintf("%s(%d)", c.LogicalType, *c.Precision)
	default:
		return c.LogicalType
	}
}
