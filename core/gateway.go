package core

import "context"

type (
	// Gateway is the remote protocol consumed by sessions and operations.
	// The gateway package provides the http implementation, core/mock a scripted one.
	Gateway interface {
		OpenSession(ctx context.Context, req *OpenSessionRequest) (SessionHandle, error)
		CloseSession(ctx context.Context, session SessionHandle) error
		ExecuteStatement(ctx context.Context, session SessionHandle, req *ExecuteStatementRequest) (OperationHandle, error)
		CompleteStatement(ctx context.Context, session SessionHandle, position int, statement string) ([]string, error)

		OperationStatus(ctx context.Context, session SessionHandle, operation OperationHandle) (string, error)
		CancelOperation(ctx context.Context, session SessionHandle, operation OperationHandle) (string, error)
		CloseOperation(ctx context.Context, session SessionHandle, operation OperationHandle) (string, error)

		// FetchResults requests the page at token. A nil page with a nil error
		// means the transport suppressed an unexpected status.
		FetchResults(ctx context.Context, session SessionHandle, operation OperationHandle, token int64) (*Page, error)
		// FetchNext dereferences a cursor returned by a previous page verbatim.
		FetchNext(ctx context.Context, cursor string) (*Page, error)
	}

	// SessionKeeper is an optional interface for gateways that support session
	// heartbeats and configuration lookup.
	SessionKeeper interface {
		Heartbeat(ctx context.Context, session SessionHandle) error
		SessionConfig(ctx context.Context, session SessionHandle) (map[string]string, error)
	}
)

type OpenSessionRequest struct {
	Properties  map[string]string
	SessionName string
}

type ExecuteStatementRequest struct {
	Statement  string
	Properties map[string]string
	// ExecutionTimeout is omitted from the request when zero
	ExecutionTimeout int64
}
