package core

import (
	"context"
	"errors"
	"fmt"
)

// CompositeOperation groups the operations of one ExecuteAll call.
type CompositeOperation struct {
	operations []*Operation
}

// Operations returns the operations in submission order.
func (c *CompositeOperation) Operations() []*Operation {
	return c.operations
}

func (c *CompositeOperation) Len() int {
	return len(c.operations)
}

// FetchAll fetches every operation in submission order, one after another.
func (c *CompositeOperation) FetchAll(ctx context.Context, opts *FetchOptions) ([]*Table, error) {
	tables := make([]*Table, 0, len(c.operations))
	for i, op := range c.operations {
		table, err := op.Fetch(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}
		tables = append(tables, table)
	}
	return tables, nil
}

func (c *CompositeOperation) FetchAllAsync(ctx context.Context, opts *FetchOptions) *Future[[]*Table] {
	return goFuture(func() ([]*Table, error) {
		return c.FetchAll(ctx, opts)
	})
}

// Close closes the operations in reverse submission order. A failing close
// does not stop the remaining ones, all failures are returned joined.
func (c *CompositeOperation) Close(ctx context.Context) error {
	var errs []error
	for i := len(c.operations) - 1; i >= 0; i-- {
		if err := c.operations[i].Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("operation %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
