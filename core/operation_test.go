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

func scriptedPages() []*mock.Page {
	return []*mock.Page{
		mock.NotReady(),
		mock.Payload(
			mock.Insert("1", "Alice Liddel", "2024-03-01"),
			mock.RowOfKind(core.RowKindDelete, "2", "X", nil),
		).WithColumns(
			mock.NewColumn("id", "BIGINT"),
			mock.NewColumn("name", "VARCHAR"),
			mock.NewColumn("joined", "DATE"),
		),
		mock.NotReady(),
		mock.EOS(mock.Insert("3", "Bob", nil)),
	}
}

func TestOperation_SyncAsyncParity(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()

	clock := mock.NewClock()
	gw := mock.NewGateway(
		mock.GatewayWithPages("sync", scriptedPages()...),
		mock.GatewayWithPages("async", scriptedPages()...),
	)

	var syncTable, asyncTable *core.Table
	err := core.Use(ctx, gw, func(s *core.Session) error {
		err := s.Execute("sync").Sync(ctx, func(op *core.Operation) error {
			var err error
			syncTable, err = op.Fetch(ctx, nil)
			return err
		})
		if err != nil {
			return err
		}

		_, err = s.Execute("async").Async(ctx, func(ctx context.Context, op *core.Operation) error {
			var err error
			asyncTable, err = op.FetchAsync(ctx, nil, nil).Wait(ctx)
			return err
		}).Wait(ctx)
		return err
	}, core.WithTimer(clock))
	r.NoError(err)

	r.Equal(syncTable, asyncTable)
	r.Equal([]core.Row{
		{int64(1), "Alice Liddel", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{int64(3), "Bob", nil},
	}, syncTable.Rows)
	r.Equal(core.TerminationEndOfStream, syncTable.Meta.Termination)
	r.Equal(2, syncTable.Meta.NotReadyRetries)
	r.Equal(map[core.RowKind]int{core.RowKindDelete: 1}, syncTable.Meta.Dropped)

	// both waited at the same points
	r.Len(clock.Sleeps(), 4)

	var syncCursors, asyncCursors []string
	for _, req := range gw.Requests(mock.MethodFetchResults, mock.MethodFetchNext) {
		cursor := req.Cursor[len(req.Cursor)-1:]
		if req.Statement == "sync" {
			syncCursors = append(syncCursors, cursor)
		} else {
			asyncCursors = append(asyncCursors, cursor)
		}
	}
	r.Equal(syncCursors, asyncCursors)
}

func TestOperation_FetchAsyncEvents(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()

	gw := mock.NewGateway(mock.GatewayWithPages("select", mock.NewInserts(0, 10, 5)...))

	err := core.Use(ctx, gw, func(s *core.Session) error {
		return s.Execute("select").Sync(ctx, func(op *core.Operation) error {
			var events []core.CallState
			call := op.FetchAsync(ctx, nil, func(state core.CallState, _ *core.Call) {
				events = append(events, state)
			})

			select {
			case <-call.Done():
			case <-time.After(5 * time.Second):
				t.Fatal("call did not finish in expected time")
			}

			r.Equal([]core.CallState{
				core.CallStateExecuting,
				core.CallStateRetrieving,
				core.CallStateDone,
			}, events)
			r.Equal(core.CallStateDone, call.GetState())
			r.Equal("select", call.GetStatement())
			r.NoError(call.Err())

			result, err := call.GetResult()
			r.NoError(err)
			r.Equal(10, result.Len())
			return nil
		})
	})
	r.NoError(err)
}

func TestOperation_FetchAsyncFailure(t *testing.T) {
	ctx := context.Background()
	expectedError := errors.New("expected error")

	testCases := []struct {
		name     string
		pages    []*mock.Page
		expected core.CallState
	}{
		{
			name:     "before first page",
			pages:    []*mock.Page{mock.Failure(expectedError)},
			expected: core.CallStateExecutingFailed,
		},
		{
			name:     "after first page",
			pages:    []*mock.Page{mock.Payload(mock.Insert(1)), mock.Failure(expectedError)},
			expected: core.CallStateRetrievingFailed,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := require.New(t)

			gw := mock.NewGateway(mock.GatewayWithPages("select", tc.pages...))
			err := core.Use(ctx, gw, func(s *core.Session) error {
				return s.Execute("select").Sync(ctx, func(op *core.Operation) error {
					call := op.FetchAsync(ctx, nil, nil)

					_, err := call.Wait(ctx)
					r.ErrorIs(err, expectedError)
					r.Equal(tc.expected, call.GetState())

					_, err = call.GetResult()
					r.Error(err)
					return nil
				})
			})
			r.NoError(err)
		})
	}
}

func TestOperation_FetchAsyncCancel(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()

	pages := make([]*mock.Page, 1000)
	for i := range pages {
		pages[i] = mock.NotReady()
	}
	gw := mock.NewGateway(mock.GatewayWithPages("wait", pages...))

	err := core.Use(ctx, gw, func(s *core.Session) error {
		return s.Execute("wait").Sync(ctx, func(op *core.Operation) error {
			opts := mustFetchOptions(t, core.WithPollInterval(time.Second))

			call := op.FetchAsync(ctx, opts, nil)
			call.Cancel()

			_, err := call.Wait(ctx)
			r.ErrorIs(err, context.Canceled)
			r.Equal(core.CallStateCanceled, call.GetState())

			// local cancel never reaches the gateway
			r.Empty(gw.Requests(mock.MethodCancelOperation))
			return nil
		})
	})
	r.NoError(err)
}

func TestCall_MarshalJSON(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()

	gw := mock.NewGateway(mock.GatewayWithPages("select", mock.EOS()))

	err := core.Use(ctx, gw, func(s *core.Session) error {
		return s.Execute("select").Sync(ctx, func(op *core.Operation) error {
			call := op.FetchAsync(ctx, nil, nil)
			<-call.Done()

			out, err := call.MarshalJSON()
			r.NoError(err)
			r.Contains(string(out), `"statement":"select"`)
			r.Contains(string(out), `"state":"done"`)
			r.NotContains(string(out), `"error"`)
			return nil
		})
	})
	r.NoError(err)
}

func TestCallState_Text(t *testing.T) {
	states := []core.CallState{
		core.CallStateUnknown,
		core.CallStateExecuting,
		core.CallStateExecutingFailed,
		core.CallStateRetrieving,
		core.CallStateRetrievingFailed,
		core.CallStateDone,
		core.CallStateCanceled,
	}

	for _, state := range states {
		t.Run(state.String(), func(t *testing.T) {
			r := require.New(t)

			b, err := state.MarshalText()
			r.NoError(err)

			var got core.CallState
			r.NoError(got.UnmarshalText(b))
			r.Equal(state, got)
			r.Equal(state, core.CallStateFromString(state.String()))
		})
	}

	r := require.New(t)
	r.Equal(core.CallStateUnknown, core.CallStateFromString("archived"))
	r.True(core.CallStateDone.IsFinal())
	r.False(core.CallStateRetrieving.IsFinal())
	r.True(core.CallStateRetrievingFailed.IsFailed())
	r.False(core.CallStateCanceled.IsFailed())
}
