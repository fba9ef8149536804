package mock

import (
	"fmt"

	"github.com/resinkit/resinkit-go/core"
)

// Page scripts a single fetch response of an operation.
type Page struct {
	resultType core.ResultType
	columns    []*core.Column
	rows       []core.RawRow
	noCursor   bool
	err        error
	onServe    func()
}

func Payload(rows ...core.RawRow) *Page {
	return &Page{resultType: core.ResultTypePayload, rows: rows}
}

// EOS pages never carry a cursor.
func EOS(rows ...core.RawRow) *Page {
	return &Page{resultType: core.ResultTypeEOS, rows: rows, noCursor: true}
}

func NotReady() *Page {
	return &Page{resultType: core.ResultTypeNotReady}
}

// Failure makes the fetch request fail with err.
func Failure(err error) *Page {
	return &Page{err: err}
}

// Suppressed makes the fetch return no page and no error, the way a
// transport suppressing unexpected statuses does.
func Suppressed() *Page {
	return &Page{}
}

func (p *Page) WithColumns(columns ...*core.Column) *Page {
	p.columns = columns
	return p
}

// WithoutCursor serves the page without a continuation.
func (p *Page) WithoutCursor() *Page {
	p.noCursor = true
	return p
}

// Then registers fn to be called when the page is served.
func (p *Page) Then(fn func()) *Page {
	p.onServe = fn
	return p
}

func Insert(fields ...any) core.RawRow {
	return core.RawRow{Kind: core.RowKindInsert, Fields: fields}
}

func RowOfKind(kind core.RowKind, fields ...any) core.RawRow {
	return core.RawRow{Kind: kind, Fields: fields}
}

// NewColumn returns a non nullable column.
func NewColumn(name, logicalType string) *core.Column {
	return &core.Column{Name: name, LogicalType: logicalType}
}

// NewInserts returns pages of size rows each in form of:
//
//	{ <index>(int), "row_<index>"(string) }
//
// where the first index is "from" and the last one is one less than "to".
// The last page is an EOS page.
func NewInserts(from, to, size int) []*Page {
	var pages []*Page

	var rows []core.RawRow
	for i := from; i < to; i++ {
		rows = append(rows, Insert(i, fmt.Sprintf("row_%d", i)))
		if len(rows) == size {
			pages = append(pages, Payload(rows...))
			rows = nil
		}
	}

	return append(pages, EOS(rows...))
}

func (p *Page) toCore(cursor string) (*core.Page, error) {
	if p.onServe != nil {
		p.onServe()
	}
	if p.err != nil {
		return nil, p.err
	}
	if p.resultType == "" {
		return nil, nil
	}

	page := &core.Page{
		ResultType:    p.resultType,
		Columns:       p.columns,
		Rows:          p.rows,
		RowFormat:     "JSON",
		IsQueryResult: true,
		ResultKind:    "SUCCESS_WITH_CONTENT",
	}
	if !p.noCursor {
		page.NextCursor = cursor
	}
	return page, nil
}
