package builders

import (
	"sync"

	"github.com/resinkit/resinkit-go/core"
)

var _ core.ResultStream = (*ResultStream)(nil)

// ResultStream is a core.ResultStream assembled from iterator functions.
type ResultStream struct {
	next     func() (core.Row, error)
	hasNext  func() bool
	close    func()
	callback func()
	meta     func() *core.Meta
	columns  func() []*core.Column
	warnings func() []*core.TypeConversionWarning
	header   core.Header
	once     sync.Once
}

func (r *ResultStream) SetCallback(callback func()) {
	r.callback = callback
}

func (r *ResultStream) Meta() *core.Meta {
	return r.meta()
}

func (r *ResultStream) Warnings() []*core.TypeConversionWarning {
	return r.warnings()
}

func (r *ResultStream) Columns() []*core.Column {
	return r.columns()
}

// Header returns the header given to the builder if any, otherwise the
// current column names.
func (r *ResultStream) Header() core.Header {
	if r.header != nil {
		return r.header
	}

	columns := r.columns()
	header := make(core.Header, len(columns))
	for i, col := range columns {
		header[i] = col.Name
	}
	return header
}

func (r *ResultStream) HasNext() bool {
	return r.hasNext()
}

func (r *ResultStream) Next() (core.Row, error) {
	row, err := r.next()
	if err != nil || row == nil {
		r.Close()
		return nil, err
	}
	return row, nil
}

func (r *ResultStream) Close() {
	r.once.Do(func() {
		r.close()
		if r.callback != nil {
			r.callback()
		}
	})
	r.hasNext = func() bool {
		return false
	}
}

// ResultStreamBuilder builds the rows
type ResultStreamBuilder struct {
	next     func() (core.Row, error)
	hasNext  func() bool
	header   core.Header
	close    func()
	meta     func() *core.Meta
	columns  func() []*core.Column
	warnings func() []*core.TypeConversionWarning
}

func NewResultStreamBuilder() *ResultStreamBuilder {
	return &ResultStreamBuilder{
		next:     func() (core.Row, error) { return nil, ErrNoNextRow },
		hasNext:  func() bool { return false },
		close:    func() {},
		meta:     func() *core.Meta { return &core.Meta{} },
		columns:  func() []*core.Column { return nil },
		warnings: func() []*core.TypeConversionWarning { return nil },
	}
}

func (b *ResultStreamBuilder) WithNextFunc(fn func() (core.Row, error), has func() bool) *ResultStreamBuilder {
	b.next = fn
	b.hasNext = has
	return b
}

// WithHeader sets a fixed header instead of the column names.
func (b *ResultStreamBuilder) WithHeader(header core.Header) *ResultStreamBuilder {
	b.header = header
	return b
}

func (b *ResultStreamBuilder) WithCloseFunc(fn func()) *ResultStreamBuilder {
	b.close = fn
	return b
}

func (b *ResultStreamBuilder) WithMetaFunc(fn func() *core.Meta) *ResultStreamBuilder {
	b.meta = fn
	return b
}

func (b *ResultStreamBuilder) WithColumnsFunc(fn func() []*core.Column) *ResultStreamBuilder {
	b.columns = fn
	return b
}

func (b *ResultStreamBuilder) WithWarningsFunc(fn func() []*core.TypeConversionWarning) *ResultStreamBuilder {
	b.warnings = fn
	return b
}

func (b *ResultStreamBuilder) Build() *ResultStream {
	return &ResultStream{
		next:     b.next,
		hasNext:  b.hasNext,
		header:   b.header,
		close:    b.close,
		meta:     b.meta,
		columns:  b.columns,
		warnings: b.warnings,
	}
}
