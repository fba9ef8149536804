package builders

import (
	"context"

	"github.com/resinkit/resinkit-go/core"
)

// StreamOperation returns a row stream over the results of op. Pages are
// requested only as rows are consumed, closing the stream stops paging.
func StreamOperation(ctx context.Context, op *core.Operation, opts *core.FetchOptions, logger core.Logger) core.ResultStream {
	if logger == nil {
		logger = core.NopLogger()
	}

	ctx, cancel := context.WithCancel(ctx)
	paginator := op.Paginator(opts)

	rows := NewPaginatorRows(ctx, paginator, op.Mapper(), logger)

	return NewResultStreamBuilder().
		WithNextFunc(rows.Next, rows.HasNext).
		WithColumnsFunc(paginator.Columns).
		WithWarningsFunc(rows.Warnings).
		WithMetaFunc(paginator.Meta).
		WithCloseFunc(cancel).
		Build()
}
