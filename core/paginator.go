package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var errNoNextPage = errors.New("no next page")

// Paginator drives the fetch-results cursor loop of one operation.
// It is pull based: every Next call returns at most one accepted page.
// Pages are requested strictly in sequence, the next request always uses the
// cursor of the previous accepted page.
type Paginator struct {
	gateway   Gateway
	session   SessionHandle
	operation OperationHandle
	opts      *FetchOptions
	timer     Timer
	log       Logger

	columns []*Column
	cursor  string
	rows    int

	started bool
	start   time.Time
	done    bool
	backoff backoff.BackOff
	meta    *Meta
}

type PaginatorOption func(*Paginator)

func PaginatorWithTimer(timer Timer) PaginatorOption {
	return func(p *Paginator) {
		p.timer = timer
	}
}

func PaginatorWithLogger(logger Logger) PaginatorOption {
	return func(p *Paginator) {
		p.log = logger
	}
}

// NewPaginator creates a paginator over the results of operation. Nil opts
// mean DefaultFetchOptions.
func NewPaginator(gw Gateway, session SessionHandle, operation OperationHandle, opts *FetchOptions, popts ...PaginatorOption) *Paginator {
	if opts == nil {
		opts = DefaultFetchOptions()
	}

	p := &Paginator{
		gateway:   gw,
		session:   session,
		operation: operation,
		opts:      opts,
		timer:     WallTimer(),
		log:       NopLogger(),
		meta:      &Meta{},
	}
	for _, opt := range popts {
		opt(p)
	}

	return p
}

// HasNext reports whether another call to Next may return a page.
func (p *Paginator) HasNext() bool {
	return !p.done
}

// Columns returns the resolved schema, nil until a page carried one.
func (p *Paginator) Columns() []*Column {
	return p.columns
}

// Meta returns a snapshot of the pagination metadata.
func (p *Paginator) Meta() *Meta {
	return p.meta.copy()
}

// Next returns the next accepted page. When the paginator stops without a
// new page (poll budget spent while the server was not ready, suppressed
// status) an empty batch is returned and HasNext turns false.
func (p *Paginator) Next(ctx context.Context) (*Batch, error) {
	if p.done {
		return nil, errNoNextPage
	}

	if !p.started {
		p.started = true
		p.start = p.timer.Now()
		p.backoff = p.newBackOff()
	}

	for {
		if err := ctx.Err(); err != nil {
			p.done = true
			return nil, err
		}

		page, err := p.request(ctx)
		if err != nil {
			p.done = true
			return nil, err
		}

		if page == nil {
			p.finish(TerminationNoCursor)
			return &Batch{Columns: p.columns}, nil
		}

		switch page.ResultType {
		case ResultTypeNotReady:
			if p.budgetExceeded() {
				p.finish(TerminationPollTimeout)
				return &Batch{Columns: p.columns}, nil
			}

			wait := p.backoff.NextBackOff()
			if wait == backoff.Stop {
				p.finish(TerminationNotReadyLimit)
				return &Batch{Columns: p.columns}, nil
			}
			// only pages that are actually retried count
			p.meta.NotReadyRetries++

			p.log.Debugf("operation %s: results not ready, retrying in %s", p.operation, wait)
			if err := p.timer.Sleep(ctx, wait); err != nil {
				p.done = true
				return nil, err
			}

		case ResultTypePayload, ResultTypeEOS:
			batch, err := p.accept(page)
			if err != nil {
				p.done = true
				return nil, err
			}
			p.backoff.Reset()
			p.checkTermination(batch)

			return batch, nil

		default:
			p.done = true
			return nil, fmt.Errorf("%w: unknown result type %q", ErrMalformedResponse, page.ResultType)
		}
	}
}

// Drain calls fn for every remaining page.
func (p *Paginator) Drain(ctx context.Context, fn func(*Batch) error) error {
	for p.HasNext() {
		batch, err := p.Next(ctx)
		if err != nil {
			return err
		}
		if err := fn(batch); err != nil {
			return err
		}
	}
	return nil
}

func (p *Paginator) newBackOff() backoff.BackOff {
	var b backoff.BackOff = backoff.NewConstantBackOff(p.opts.PollInterval)

	if ceiling := p.opts.notReadyCeiling(); ceiling > 0 {
		b = backoff.WithMaxRetries(b, uint64(ceiling))
	}
	return b
}

// request reissues the last request while no page was accepted past it.
func (p *Paginator) request(ctx context.Context) (*Page, error) {
	if p.cursor == "" {
		page, err := p.gateway.FetchResults(ctx, p.session, p.operation, 0)
		if err != nil {
			return nil, fmt.Errorf("gateway.FetchResults: %w", err)
		}
		return page, nil
	}

	page, err := p.gateway.FetchNext(ctx, p.cursor)
	if err != nil {
		return nil, fmt.Errorf("gateway.FetchNext: %w", err)
	}
	return page, nil
}

func (p *Paginator) accept(page *Page) (*Batch, error) {
	if p.columns == nil && len(page.Columns) > 0 {
		p.columns = page.Columns
	}

	batch := &Batch{
		Columns:       p.columns,
		Rows:          make([][]any, 0, len(page.Rows)),
		IsEndOfStream: page.ResultType == ResultTypeEOS,
		NextCursor:    page.NextCursor,
	}

	for _, raw := range page.Rows {
		if raw.Kind != RowKindInsert {
			switch p.opts.RowKinds {
			case RowKindsStrict:
				return nil, fmt.Errorf("%w: %q", ErrUnexpectedRowKind, raw.Kind)
			case RowKindsInsertOnly:
				if batch.Dropped == nil {
					batch.Dropped = make(map[RowKind]int)
				}
				batch.Dropped[raw.Kind]++
				continue
			}
		}

		batch.Rows = append(batch.Rows, raw.Fields)
		if p.opts.RowKinds == RowKindsKeepAll {
			batch.Kinds = append(batch.Kinds, raw.Kind)
		}
	}

	if len(batch.Dropped) > 0 {
		if p.meta.Dropped == nil {
			p.meta.Dropped = make(map[RowKind]int)
		}
		for kind, n := range batch.Dropped {
			p.meta.Dropped[kind] += n
		}
		p.log.Warnf("operation %s: dropped non-insert rows: %v", p.operation, batch.Dropped)
	}

	p.rows += len(batch.Rows)
	p.meta.Pages++
	p.cursor = page.NextCursor

	return batch, nil
}

// checkTermination applies the stop conditions in their fixed order.
func (p *Paginator) checkTermination(batch *Batch) {
	switch {
	case batch.IsEndOfStream:
		p.finish(TerminationEndOfStream)
	case batch.NextCursor == "":
		p.finish(TerminationNoCursor)
	case p.opts.HasLimit && p.rows >= p.opts.RowLimit:
		p.finish(TerminationRowLimit)
	case p.budgetExceeded():
		p.finish(TerminationPollTimeout)
	}
}

func (p *Paginator) budgetExceeded() bool {
	return p.opts.HasMaxPoll && p.timer.Now().Sub(p.start) >= p.opts.MaxPoll
}

func (p *Paginator) finish(reason Termination) {
	p.done = true
	p.meta.Termination = reason
	p.meta.Elapsed = p.timer.Now().Sub(p.start)

	p.log.Debugf("operation %s: pagination stopped (%s) after %d pages, %d rows",
		p.operation, reason, p.meta.Pages, p.rows)
}
