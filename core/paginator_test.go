package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/resinkit/resinkit-go/core"
	"github.com/resinkit/resinkit-go/core/mock"
)

func newPaginator(t *testing.T, gw *mock.Gateway, statement string, opts *core.FetchOptions, clock core.Timer) *core.Paginator {
	t.Helper()
	ctx := context.Background()

	session, err := gw.OpenSession(ctx, &core.OpenSessionRequest{SessionName: "test"})
	require.NoError(t, err)

	op, err := gw.ExecuteStatement(ctx, session, &core.ExecuteStatementRequest{Statement: statement})
	require.NoError(t, err)

	return core.NewPaginator(gw, session, op, opts, core.PaginatorWithTimer(clock))
}

func mustFetchOptions(t *testing.T, opts ...core.FetchOption) *core.FetchOptions {
	t.Helper()

	o, err := core.NewFetchOptions(opts...)
	require.NoError(t, err)
	return o
}

func drain(t *testing.T, p *core.Paginator) [][]any {
	t.Helper()

	var rows [][]any
	err := p.Drain(context.Background(), func(b *core.Batch) error {
		rows = append(rows, b.Rows...)
		return nil
	})
	require.NoError(t, err)
	return rows
}

func TestPaginator_InsertOnly(t *testing.T) {
	r := require.New(t)

	gw := mock.NewGateway(mock.GatewayWithPages("select",
		mock.EOS(
			mock.Insert(23, "Alice Liddel"),
			mock.RowOfKind(core.RowKindDelete, 1, "X"),
		),
	))
	p := newPaginator(t, gw, "select", nil, mock.NewClock())

	batch, err := p.Next(context.Background())
	r.NoError(err)

	r.Equal([][]any{{23, "Alice Liddel"}}, batch.Rows)
	r.Equal(map[core.RowKind]int{core.RowKindDelete: 1}, batch.Dropped)
	r.True(batch.IsEndOfStream)
	r.False(p.HasNext())

	meta := p.Meta()
	r.Equal(core.TerminationEndOfStream, meta.Termination)
	r.Equal(map[core.RowKind]int{core.RowKindDelete: 1}, meta.Dropped)
}

func TestPaginator_PreservesOrder(t *testing.T) {
	r := require.New(t)

	gw := mock.NewGateway(mock.GatewayWithPages("select",
		mock.Payload(
			mock.Insert(1),
			mock.RowOfKind(core.RowKindUpdateBefore, 2),
			mock.Insert(3),
		),
		mock.Payload(mock.RowOfKind(core.RowKindUpdateAfter, 4), mock.Insert(5)),
		mock.EOS(mock.Insert(6)),
	))
	p := newPaginator(t, gw, "select", nil, mock.NewClock())

	r.Equal([][]any{{1}, {3}, {5}, {6}}, drain(t, p))
	r.Equal(3, p.Meta().Pages)
}

func TestPaginator_RowLimit(t *testing.T) {
	r := require.New(t)

	gw := mock.NewGateway(mock.GatewayWithPages("select",
		mock.Payload(mock.Insert(1), mock.Insert(2)),
		mock.Payload(mock.Insert(3), mock.Insert(4)),
		mock.EOS(),
	))
	p := newPaginator(t, gw, "select", mustFetchOptions(t, core.WithRowLimit(1)), mock.NewClock())

	// whole first page, no truncation inside it
	r.Equal([][]any{{1}, {2}}, drain(t, p))

	meta := p.Meta()
	r.Equal(core.TerminationRowLimit, meta.Termination)
	r.Equal(1, meta.Pages)
	r.Len(gw.Requests(mock.MethodFetchResults, mock.MethodFetchNext), 1)
}

func TestPaginator_WithoutRowLimit(t *testing.T) {
	r := require.New(t)

	gw := mock.NewGateway(mock.GatewayWithPages("select", mock.NewInserts(0, 1000, 100)...))
	p := newPaginator(t, gw, "select", mustFetchOptions(t, core.WithoutRowLimit()), mock.NewClock())

	r.Len(drain(t, p), 1000)
	r.Equal(core.TerminationEndOfStream, p.Meta().Termination)
}

func TestPaginator_DefaultRowLimit(t *testing.T) {
	r := require.New(t)

	gw := mock.NewGateway(mock.GatewayWithPages("select", mock.NewInserts(0, 1000, 100)...))
	p := newPaginator(t, gw, "select", nil, mock.NewClock())

	r.Len(drain(t, p), core.DefaultRowLimit)
	r.Equal(core.TerminationRowLimit, p.Meta().Termination)
}

func TestPaginator_NotReadyKeepsCursor(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()

	clock := mock.NewClock()
	gw := mock.NewGateway(mock.GatewayWithPages("select",
		mock.Payload(mock.Insert(1)),
		mock.NotReady(),
		mock.NotReady(),
		mock.EOS(mock.Insert(2)),
	))
	p := newPaginator(t, gw, "select", nil, clock)

	first, err := p.Next(ctx)
	r.NoError(err)
	r.NotEmpty(first.NextCursor)

	second, err := p.Next(ctx)
	r.NoError(err)
	r.Equal([][]any{{2}}, second.Rows)

	requests := gw.Requests(mock.MethodFetchResults, mock.MethodFetchNext)
	r.Len(requests, 4)
	r.Equal(mock.MethodFetchResults, requests[0].Method)
	for _, req := range requests[1:] {
		r.Equal(mock.MethodFetchNext, req.Method)
		// dereferenced verbatim, never advanced while not ready
		r.Equal(first.NextCursor, req.Cursor)
	}

	r.Equal([]time.Duration{core.DefaultPollInterval, core.DefaultPollInterval}, clock.Sleeps())
	r.Equal(2, p.Meta().NotReadyRetries)
}

func TestPaginator_NotReadyOnFirstPage(t *testing.T) {
	r := require.New(t)

	gw := mock.NewGateway(mock.GatewayWithPages("select",
		mock.NotReady(),
		mock.EOS(mock.Insert(1)),
	))
	p := newPaginator(t, gw, "select", nil, mock.NewClock())

	r.Equal([][]any{{1}}, drain(t, p))

	requests := gw.Requests(mock.MethodFetchResults, mock.MethodFetchNext)
	r.Len(requests, 2)
	for _, req := range requests {
		r.Equal(mock.MethodFetchResults, req.Method)
		r.Equal(requests[0].Cursor, req.Cursor)
	}
}

func TestPaginator_PollTimeoutWhileNotReady(t *testing.T) {
	r := require.New(t)

	pages := make([]*mock.Page, 11)
	for i := range pages {
		pages[i] = mock.NotReady()
	}

	clock := mock.NewClock()
	gw := mock.NewGateway(mock.GatewayWithPages("select", pages...))
	opts := mustFetchOptions(t, core.WithPollInterval(100*time.Millisecond), core.WithMaxPoll(time.Second))
	p := newPaginator(t, gw, "select", opts, clock)

	// sleeps count against the budget
	r.Empty(drain(t, p))

	meta := p.Meta()
	r.Equal(core.TerminationPollTimeout, meta.Termination)
	// the page that ran out of budget is not retried
	r.Equal(10, meta.NotReadyRetries)
	r.Equal(time.Second, meta.Elapsed)
	r.Len(clock.Sleeps(), 10)
}

func TestPaginator_PollTimeoutAfterPage(t *testing.T) {
	r := require.New(t)

	clock := mock.NewClock()
	gw := mock.NewGateway(mock.GatewayWithPages("select",
		mock.Payload(mock.Insert(1)).Then(func() { clock.Advance(2 * time.Second) }),
		mock.EOS(mock.Insert(2)),
	))
	p := newPaginator(t, gw, "select", mustFetchOptions(t, core.WithMaxPoll(time.Second)), clock)

	r.Equal([][]any{{1}}, drain(t, p))
	r.Equal(core.TerminationPollTimeout, p.Meta().Termination)
}

func TestPaginator_TerminationOrder(t *testing.T) {
	r := require.New(t)

	// every condition holds at once, end of stream wins
	clock := mock.NewClock()
	gw := mock.NewGateway(mock.GatewayWithPages("select",
		mock.EOS(mock.Insert(1), mock.Insert(2)).Then(func() { clock.Advance(time.Minute) }),
	))
	opts := mustFetchOptions(t, core.WithRowLimit(1), core.WithMaxPoll(time.Second))
	p := newPaginator(t, gw, "select", opts, clock)
	drain(t, p)
	r.Equal(core.TerminationEndOfStream, p.Meta().Termination)

	// missing cursor wins over row limit
	gw = mock.NewGateway(mock.GatewayWithPages("select",
		mock.Payload(mock.Insert(1), mock.Insert(2)).WithoutCursor(),
	))
	p = newPaginator(t, gw, "select", opts, mock.NewClock())
	drain(t, p)
	r.Equal(core.TerminationNoCursor, p.Meta().Termination)

	// row limit wins over the poll budget
	clock = mock.NewClock()
	gw = mock.NewGateway(mock.GatewayWithPages("select",
		mock.Payload(mock.Insert(1), mock.Insert(2)).Then(func() { clock.Advance(time.Minute) }),
	))
	p = newPaginator(t, gw, "select", opts, clock)
	drain(t, p)
	r.Equal(core.TerminationRowLimit, p.Meta().Termination)
}

func TestPaginator_NotReadyCeiling(t *testing.T) {
	r := require.New(t)

	pages := make([]*mock.Page, 4)
	for i := range pages {
		pages[i] = mock.NotReady()
	}

	clock := mock.NewClock()
	gw := mock.NewGateway(mock.GatewayWithPages("select", pages...))
	opts := mustFetchOptions(t, core.WithoutMaxPoll(), core.WithMaxNotReadyRetries(3))
	p := newPaginator(t, gw, "select", opts, clock)

	r.Empty(drain(t, p))
	r.Equal(core.TerminationNotReadyLimit, p.Meta().Termination)
	r.Equal(3, p.Meta().NotReadyRetries)
	r.Len(clock.Sleeps(), 3)
}

func TestPaginator_NotReadyCeilingResetsAfterPage(t *testing.T) {
	r := require.New(t)

	gw := mock.NewGateway(mock.GatewayWithPages("select",
		mock.NotReady(),
		mock.NotReady(),
		mock.Payload(mock.Insert(1)),
		mock.NotReady(),
		mock.NotReady(),
		mock.EOS(mock.Insert(2)),
	))
	opts := mustFetchOptions(t, core.WithoutMaxPoll(), core.WithMaxNotReadyRetries(2))
	p := newPaginator(t, gw, "select", opts, mock.NewClock())

	r.Equal([][]any{{1}, {2}}, drain(t, p))
	r.Equal(core.TerminationEndOfStream, p.Meta().Termination)
	r.Equal(4, p.Meta().NotReadyRetries)
}

func TestPaginator_SuppressedStatus(t *testing.T) {
	r := require.New(t)

	gw := mock.NewGateway(mock.GatewayWithPages("select",
		mock.Payload(mock.Insert(1)),
		mock.Suppressed(),
	))
	p := newPaginator(t, gw, "select", nil, mock.NewClock())

	r.Equal([][]any{{1}}, drain(t, p))
	r.Equal(core.TerminationNoCursor, p.Meta().Termination)
}

func TestPaginator_ColumnsResolvedOnce(t *testing.T) {
	r := require.New(t)

	first := []*core.Column{mock.NewColumn("a", "INTEGER")}
	second := []*core.Column{mock.NewColumn("b", "STRING")}

	gw := mock.NewGateway(mock.GatewayWithPages("select",
		mock.Payload(mock.Insert(1)),
		mock.Payload(mock.Insert(2)).WithColumns(first...),
		mock.EOS(mock.Insert(3)).WithColumns(second...),
	))
	p := newPaginator(t, gw, "select", nil, mock.NewClock())

	batch, err := p.Next(context.Background())
	r.NoError(err)
	r.Nil(batch.Columns)
	r.Nil(p.Columns())

	drain(t, p)
	r.Equal(first, p.Columns())
}

func TestPaginator_RowKindPolicies(t *testing.T) {
	pages := func() []*mock.Page {
		return []*mock.Page{
			mock.EOS(
				mock.Insert(1),
				mock.RowOfKind(core.RowKindUpdateBefore, 1),
				mock.RowOfKind(core.RowKindUpdateAfter, 2),
			),
		}
	}

	t.Run("keep all", func(t *testing.T) {
		r := require.New(t)

		gw := mock.NewGateway(mock.GatewayWithPages("select", pages()...))
		p := newPaginator(t, gw, "select", mustFetchOptions(t, core.WithRowKindPolicy(core.RowKindsKeepAll)), mock.NewClock())

		batch, err := p.Next(context.Background())
		r.NoError(err)
		r.Equal([][]any{{1}, {1}, {2}}, batch.Rows)
		r.Equal([]core.RowKind{core.RowKindInsert, core.RowKindUpdateBefore, core.RowKindUpdateAfter}, batch.Kinds)
		r.Empty(batch.Dropped)
	})

	t.Run("strict", func(t *testing.T) {
		r := require.New(t)

		gw := mock.NewGateway(mock.GatewayWithPages("select", pages()...))
		p := newPaginator(t, gw, "select", mustFetchOptions(t, core.WithRowKindPolicy(core.RowKindsStrict)), mock.NewClock())

		_, err := p.Next(context.Background())
		r.ErrorIs(err, core.ErrUnexpectedRowKind)
		r.False(p.HasNext())
	})
}

func TestPaginator_FetchError(t *testing.T) {
	r := require.New(t)

	expectedError := errors.New("expected error")
	gw := mock.NewGateway(mock.GatewayWithPages("select",
		mock.Payload(mock.Insert(1)),
		mock.Failure(expectedError),
	))
	p := newPaginator(t, gw, "select", nil, mock.NewClock())

	_, err := p.Next(context.Background())
	r.NoError(err)

	_, err = p.Next(context.Background())
	r.ErrorIs(err, expectedError)
	r.False(p.HasNext())

	_, err = p.Next(context.Background())
	r.Error(err)
}

func TestPaginator_ContextCanceled(t *testing.T) {
	r := require.New(t)

	gw := mock.NewGateway(mock.GatewayWithPages("select", mock.EOS(mock.Insert(1))))
	p := newPaginator(t, gw, "select", nil, mock.NewClock())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Next(ctx)
	r.ErrorIs(err, context.Canceled)
	r.Empty(gw.Requests(mock.MethodFetchResults))
}
