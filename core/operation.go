package core

import (
	"context"
	"fmt"
)

// Operation is one executed statement within a session.
// Operations are closed by the dispatch that created them.
type Operation struct {
	session   *Session
	handle    OperationHandle
	statement string
}

func newOperation(session *Session, handle OperationHandle, statement string) *Operation {
	return &Operation{
		session:   session,
		handle:    handle,
		statement: statement,
	}
}

func (o *Operation) Handle() OperationHandle {
	return o.handle
}

func (o *Operation) Statement() string {
	return o.statement
}

func (o *Operation) Session() *Session {
	return o.session
}

// Status returns the raw status reported by the gateway.
func (o *Operation) Status(ctx context.Context) (string, error) {
	status, err := o.session.gateway.OperationStatus(ctx, o.session.Handle(), o.handle)
	if err != nil {
		return "", fmt.Errorf("gateway.OperationStatus: %w", err)
	}
	return status, nil
}

// Paginator returns a fresh paginator over the results of the operation.
func (o *Operation) Paginator(opts *FetchOptions) *Paginator {
	return NewPaginator(o.session.gateway, o.session.Handle(), o.handle, opts,
		PaginatorWithTimer(o.session.timer),
		PaginatorWithLogger(o.session.log),
	)
}

// Mapper returns the type mapper used to build tables.
func (o *Operation) Mapper() *TypeMapper {
	return o.session.mapper
}

// Fetch pages through the results until a termination condition is met and
// returns them as one table.
func (o *Operation) Fetch(ctx context.Context, opts *FetchOptions) (*Table, error) {
	return o.fetch(ctx, opts, nil)
}

// FetchAsync runs Fetch on its own goroutine.
func (o *Operation) FetchAsync(ctx context.Context, opts *FetchOptions, onEvent func(CallState, *Call)) *Call {
	exec := func(ctx context.Context, onRetrieving func()) (*Table, error) {
		return o.fetch(ctx, opts, onRetrieving)
	}

	return newCallFromExecutor(ctx, exec, o.statement, onEvent)
}

func (o *Operation) fetch(ctx context.Context, opts *FetchOptions, onFirstPage func()) (*Table, error) {
	paginator := o.Paginator(opts)
	builder := NewTableBuilder(o.session.mapper).WithLogger(o.session.log)

	first := true
	err := paginator.Drain(ctx, func(batch *Batch) error {
		if first && onFirstPage != nil {
			onFirstPage()
		}
		first = false

		builder.AppendBatch(batch)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("paginator.Drain: %w", err)
	}

	return builder.WithMeta(paginator.Meta()).Build(), nil
}

// Cancel asks the gateway to cancel the job. A running Fetch is not
// interrupted and keeps polling until it terminates on its own.
func (o *Operation) Cancel(ctx context.Context) (string, error) {
	status, err := o.session.gateway.CancelOperation(ctx, o.session.Handle(), o.handle)
	if err != nil {
		return "", fmt.Errorf("gateway.CancelOperation: %w", err)
	}
	return status, nil
}

// Close releases the operation on the gateway. Every call sends a request.
func (o *Operation) Close(ctx context.Context) error {
	if _, err := o.session.gateway.CloseOperation(ctx, o.session.Handle(), o.handle); err != nil {
		return fmt.Errorf("gateway.CloseOperation: %w", err)
	}
	return nil
}
