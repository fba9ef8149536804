package core_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/resinkit/resinkit-go/core"
	"github.com/resinkit/resinkit-go/core/mock"
)

func TestSession_OpenClose(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()

	gw := mock.NewGateway()
	s := core.NewSession(gw, core.WithProperties(map[string]string{"execution.runtime-mode": "batch"}))

	r.True(strings.HasPrefix(s.Name(), "session_"))
	r.False(s.IsOpen())

	// closing an unopened session does nothing
	r.NoError(s.Close(ctx))
	r.Empty(gw.Requests())

	r.NoError(s.Open(ctx))
	r.True(s.IsOpen())
	handle := s.Handle()

	// handle is never reassigned
	r.NoError(s.Open(ctx))
	r.Equal(handle, s.Handle())
	r.Len(gw.Requests(mock.MethodOpenSession), 1)

	r.NoError(s.Close(ctx))
	r.Equal(0, gw.OpenSessions())
}

func TestSession_Name(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()

	gw := mock.NewGateway()
	s := core.NewSession(gw, core.WithSessionName("analytics"))
	r.NoError(s.Open(ctx))

	requests := gw.Requests(mock.MethodOpenSession)
	r.Len(requests, 1)
	r.Equal("analytics", requests[0].Statement)

	r.NotEqual(core.NewSession(gw).Name(), core.NewSession(gw).Name())
}

func TestSession_OpenError(t *testing.T) {
	r := require.New(t)

	gw := mock.NewGateway(mock.GatewayWithOpenSessionSideEffect(func(context.Context) error {
		return core.ErrConnectionFailure
	}))

	s := core.NewSession(gw)
	err := s.Open(context.Background())
	r.ErrorIs(err, core.ErrConnectionFailure)
	r.False(s.IsOpen())
}

func TestSession_NotOpen(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()

	gw := mock.NewGateway()
	s := core.NewSession(gw, core.WithCreateIfNotExist(false))
	r.NoError(s.Open(ctx))
	r.False(s.IsOpen())

	err := s.Execute("select 1").Sync(ctx, func(*core.Operation) error {
		t.Fatal("must not run")
		return nil
	})
	r.ErrorIs(err, core.ErrSessionNotOpen)

	_, err = s.CompleteStatement(ctx, 0, "sel")
	r.ErrorIs(err, core.ErrSessionNotOpen)

	r.Empty(gw.Requests())
}

func TestUse(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()

	gw := mock.NewGateway(
		mock.GatewayWithCandidates("SELECT", "SET"),
		mock.GatewayWithSessionConfig(map[string]string{"k": "v"}),
	)

	expectedError := errors.New("expected error")
	err := core.Use(ctx, gw, func(s *core.Session) error {
		r.True(s.IsOpen())

		candidates, err := s.CompleteStatement(ctx, 1, "S")
		r.NoError(err)
		r.Equal([]string{"SELECT", "SET"}, candidates)

		r.True(s.IsAlive(ctx))

		config, err := s.Config(ctx)
		r.NoError(err)
		r.Equal(map[string]string{"k": "v"}, config)

		return expectedError
	})
	r.ErrorIs(err, expectedError)

	// closed on the error path too
	r.Equal(0, gw.OpenSessions())
	r.Len(gw.Requests(mock.MethodCloseSession), 1)
}

func TestUse_Panic(t *testing.T) {
	r := require.New(t)

	gw := mock.NewGateway()
	r.Panics(func() {
		_ = core.Use(context.Background(), gw, func(*core.Session) error {
			panic("boom")
		})
	})
	r.Equal(0, gw.OpenSessions())
}

func TestDispatch_Sync(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()

	gw := mock.NewGateway(
		mock.GatewayWithPages("select", mock.EOS(mock.Insert(1))),
		mock.GatewayWithStatus("select", "RUNNING"),
	)

	err := core.Use(ctx, gw, func(s *core.Session) error {
		return s.Execute("select", core.WithExecutionTimeout(1000)).Sync(ctx, func(op *core.Operation) error {
			r.Equal("select", op.Statement())
			r.NotEmpty(op.Handle())

			status, err := op.Status(ctx)
			r.NoError(err)
			r.Equal("RUNNING", status)

			table, err := op.Fetch(ctx, nil)
			r.NoError(err)
			r.Equal(1, table.Len())
			return nil
		})
	})
	r.NoError(err)

	r.Equal([]string{"select"}, gw.ClosedStatements())
}

func TestDispatch_ClosesOnError(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()

	gw := mock.NewGateway()
	expectedError := errors.New("expected error")

	err := core.Use(ctx, gw, func(s *core.Session) error {
		return s.Execute("select").Sync(ctx, func(*core.Operation) error {
			return expectedError
		})
	})
	r.ErrorIs(err, expectedError)
	r.Equal([]string{"select"}, gw.ClosedStatements())
}

func TestDispatch_CloseError(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()

	closeError := errors.New("close error")
	gw := mock.NewGateway(mock.GatewayWithCloseSideEffect("select", func(context.Context) error {
		return closeError
	}))

	err := core.Use(ctx, gw, func(s *core.Session) error {
		return s.Execute("select").Sync(ctx, func(*core.Operation) error {
			return nil
		})
	})
	r.ErrorIs(err, closeError)
}

func TestDispatch_Async(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()

	gw := mock.NewGateway(mock.GatewayWithPages("select", mock.EOS(mock.Insert(1), mock.Insert(2))))

	err := core.Use(ctx, gw, func(s *core.Session) error {
		var rows int
		future := s.Execute("select").Async(ctx, func(ctx context.Context, op *core.Operation) error {
			table, err := op.Fetch(ctx, nil)
			if err != nil {
				return err
			}
			rows = table.Len()
			return nil
		})

		_, err := future.Wait(ctx)
		r.NoError(err)
		r.Equal(2, rows)
		return nil
	})
	r.NoError(err)
	r.Equal([]string{"select"}, gw.ClosedStatements())
}

func TestOperation_Cancel(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()

	gw := mock.NewGateway(mock.GatewayWithPages("select",
		mock.Payload(mock.Insert(1)),
		mock.EOS(mock.Insert(2)),
	))

	err := core.Use(ctx, gw, func(s *core.Session) error {
		return s.Execute("select").Sync(ctx, func(op *core.Operation) error {
			status, err := op.Cancel(ctx)
			r.NoError(err)
			r.Equal("CANCELED", status)

			// server side cancel does not stop a fetch
			table, err := op.Fetch(ctx, nil)
			r.NoError(err)
			r.Equal(2, table.Len())
			return nil
		})
	})
	r.NoError(err)
}
