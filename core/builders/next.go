package builders

import (
	"context"
	"errors"
	"time"

	"github.com/resinkit/resinkit-go/core"
)

var ErrNoNextRow = errors.New("no next row")

// NextSlice creates next and hasNext functions from provided rows
// preprocessor is an optional function which converts a single row before it is returned
func NextSlice[T any](values []T, preprocess func(T) core.Row) (func() (core.Row, error), func() bool) {
	index := 0

	hasNext := func() bool {
		return index < len(values)
	}

	// iterator functions
	next := func() (core.Row, error) {
		if !hasNext() {
			return nil, ErrNoNextRow
		}

		row := preprocess(values[index])
		index++
		return row, nil
	}

	return next, hasNext
}

// PaginatorRows reads the rows of a paginator. Pages are fetched lazily and
// converted with mapper, warnings are collected across pages with row
// numbers counted from the first row of the result.
type PaginatorRows struct {
	ctx       context.Context
	paginator *core.Paginator
	mapper    *core.TypeMapper
	log       core.Logger

	buffer   []core.Row
	err      error
	offset   int
	warnings []*core.TypeConversionWarning
}

func NewPaginatorRows(ctx context.Context, p *core.Paginator, mapper *core.TypeMapper, logger core.Logger) *PaginatorRows {
	if logger == nil {
		logger = core.NopLogger()
	}
	return &PaginatorRows{
		ctx:       ctx,
		paginator: p,
		mapper:    mapper,
		log:       logger,
	}
}

func (pr *PaginatorRows) fill() {
	for len(pr.buffer) == 0 && pr.err == nil && pr.paginator.HasNext() {
		start := time.Now()
		batch, err := pr.paginator.Next(pr.ctx)
		if err != nil {
			pr.err = err
			return
		}

		table := core.NewTableBuilder(pr.mapper).
			WithLogger(pr.log).
			WithColumns(pr.paginator.Columns()).
			WithRowOffset(pr.offset).
			AppendBatch(batch).
			Build()
		pr.buffer = table.Rows
		pr.offset += len(table.Rows)
		pr.warnings = append(pr.warnings, table.Warnings...)

		pr.log.Debugf("fetched page of %d rows in %s", len(batch.Rows), time.Since(start))
	}
}

func (pr *PaginatorRows) HasNext() bool {
	pr.fill()
	return len(pr.buffer) > 0 || pr.err != nil
}

func (pr *PaginatorRows) Next() (core.Row, error) {
	pr.fill()
	if pr.err != nil {
		err := pr.err
		pr.err = nil
		return nil, err
	}
	if len(pr.buffer) == 0 {
		return nil, ErrNoNextRow
	}

	row := pr.buffer[0]
	pr.buffer = pr.buffer[1:]
	return row, nil
}

// Warnings returns the conversion warnings of the pages fetched so far.
func (pr *PaginatorRows) Warnings() []*core.TypeConversionWarning {
	return pr.warnings
}

// NextPaginator creates next and hasNext functions over the rows of a
// paginator.
func NextPaginator(ctx context.Context, p *core.Paginator, mapper *core.TypeMapper, logger core.Logger) (func() (core.Row, error), func() bool) {
	rows := NewPaginatorRows(ctx, p, mapper, logger)
	return rows.Next, rows.HasNext
}
