package core

import (
	"context"
	"fmt"
)

type (
	statementConfig struct {
		properties       map[string]string
		executionTimeout int64
	}

	StatementOption func(*statementConfig)
)

// WithStatementProperties sets properties applied to the statement only.
func WithStatementProperties(properties map[string]string) StatementOption {
	return func(c *statementConfig) {
		c.properties = properties
	}
}

// WithExecutionTimeout sets the server side execution timeout in milliseconds.
func WithExecutionTimeout(timeout int64) StatementOption {
	return func(c *statementConfig) {
		c.executionTimeout = timeout
	}
}

func newStatementConfig(opts ...StatementOption) *statementConfig {
	cfg := &statementConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Dispatch is a deferred statement execution. Run it with Sync or Async;
// the operation is closed when fn returns.
type Dispatch struct {
	session *Session
	sql     string
	opts    *statementConfig
}

func (d *Dispatch) Sync(ctx context.Context, fn func(*Operation) error) error {
	op, err := d.session.execute(ctx, d.sql, d.opts)
	if err != nil {
		return err
	}

	return withClose(ctx, d.session.log, op.Close, func() error {
		return fn(op)
	})
}

func (d *Dispatch) Async(ctx context.Context, fn func(context.Context, *Operation) error) *Future[struct{}] {
	return goFuture(func() (struct{}, error) {
		return struct{}{}, d.Sync(ctx, func(op *Operation) error {
			return fn(ctx, op)
		})
	})
}

// CompositeDispatch is a deferred execution of several statements in one session.
type CompositeDispatch struct {
	session *Session
	sqls    []string
	opts    *statementConfig
}

func (d *CompositeDispatch) Sync(ctx context.Context, fn func(*CompositeOperation) error) error {
	composite := &CompositeOperation{}

	for i, sql := range d.sqls {
		op, err := d.session.execute(ctx, sql, d.opts)
		if err != nil {
			if closeErr := composite.Close(context.WithoutCancel(ctx)); closeErr != nil {
				d.session.log.Warnf("closing operations after failed statement %d: %s", i, closeErr)
			}
			return fmt.Errorf("statement %d: %w", i, err)
		}
		composite.operations = append(composite.operations, op)
	}

	return withClose(ctx, d.session.log, composite.Close, func() error {
		return fn(composite)
	})
}

func (d *CompositeDispatch) Async(ctx context.Context, fn func(context.Context, *CompositeOperation) error) *Future[struct{}] {
	return goFuture(func() (struct{}, error) {
		return struct{}{}, d.Sync(ctx, func(c *CompositeOperation) error {
			return fn(ctx, c)
		})
	})
}

// withClose runs fn and always calls closeFn, also when fn panics.
// A close error is returned only if fn succeeded.
func withClose(ctx context.Context, log Logger, closeFn func(context.Context) error, fn func() error) (err error) {
	defer func() {
		closeErr := closeFn(context.WithoutCancel(ctx))
		if closeErr == nil {
			return
		}
		log.Warnf("close: %s", closeErr)
		if err == nil {
			err = closeErr
		}
	}()

	return fn()
}
