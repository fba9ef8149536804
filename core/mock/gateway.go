package mock

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/resinkit/resinkit-go/core"
)

var (
	ErrUnknownSession   = errors.New("unknown session")
	ErrUnknownOperation = errors.New("unknown operation")
	ErrUnknownCursor    = errors.New("unknown cursor")
	ErrNoMorePages      = errors.New("no more scripted pages")
)

// Request methods recorded by the gateway.
const (
	MethodOpenSession       = "open_session"
	MethodCloseSession      = "close_session"
	MethodHeartbeat         = "heartbeat"
	MethodSessionConfig     = "session_config"
	MethodExecuteStatement  = "execute_statement"
	MethodCompleteStatement = "complete_statement"
	MethodOperationStatus   = "operation_status"
	MethodCancelOperation   = "cancel_operation"
	MethodCloseOperation    = "close_operation"
	MethodFetchResults      = "fetch_results"
	MethodFetchNext         = "fetch_next"
)

// Request is a recorded gateway call.
type Request struct {
	Method    string
	Session   core.SessionHandle
	Operation core.OperationHandle
	Statement string
	// Cursor is the dereferenced cursor, or the token path for FetchResults
	Cursor string
}

type operation struct {
	session   core.SessionHandle
	handle    core.OperationHandle
	statement string
	served    int
	status    string
}

var (
	_ core.Gateway       = (*Gateway)(nil)
	_ core.SessionKeeper = (*Gateway)(nil)
)

// Gateway is an in-memory gateway serving scripted pages.
type Gateway struct {
	config *gatewayConfig

	mu         sync.Mutex
	sessions   map[core.SessionHandle]bool
	operations map[core.OperationHandle]*operation
	cursors    map[string]core.OperationHandle
	requests   []*Request
	counter    int
}

func NewGateway(opts ...GatewayOption) *Gateway {
	config := &gatewayConfig{
		pages:                make(map[string][]*Page),
		statementSideEffects: make(map[string]func(context.Context) error),
		closeSideEffects:     make(map[string]func(context.Context) error),
		statuses:             make(map[string]string),
		sessionConfig:        map[string]string{},
	}
	for _, opt := range opts {
		opt(config)
	}

	return &Gateway{
		config:     config,
		sessions:   make(map[core.SessionHandle]bool),
		operations: make(map[core.OperationHandle]*operation),
		cursors:    make(map[string]core.OperationHandle),
	}
}

func (g *Gateway) record(req *Request) {
	g.requests = append(g.requests, req)
}

// Requests returns the recorded requests, filtered by method if any given.
func (g *Gateway) Requests(methods ...string) []*Request {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(methods) == 0 {
		return append([]*Request(nil), g.requests...)
	}

	var out []*Request
	for _, req := range g.requests {
		for _, m := range methods {
			if req.Method == m {
				out = append(out, req)
				break
			}
		}
	}
	return out
}

// ClosedStatements returns the statements of closed operations in close order.
func (g *Gateway) ClosedStatements() []string {
	var out []string
	for _, req := range g.Requests(MethodCloseOperation) {
		out = append(out, req.Statement)
	}
	return out
}

// OpenSessions returns the number of sessions not closed yet.
func (g *Gateway) OpenSessions() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.sessions)
}

func (g *Gateway) OpenSession(ctx context.Context, req *core.OpenSessionRequest) (core.SessionHandle, error) {
	if eff := g.config.openSessionSideEffect; eff != nil {
		if err := eff(ctx); err != nil {
			return "", fmt.Errorf("side effect error: %w", err)
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.counter++
	handle := core.SessionHandle(fmt.Sprintf("session-%d", g.counter))
	g.sessions[handle] = true
	g.record(&Request{Method: MethodOpenSession, Session: handle, Statement: req.SessionName})

	return handle, nil
}

func (g *Gateway) CloseSession(_ context.Context, session core.SessionHandle) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.record(&Request{Method: MethodCloseSession, Session: session})
	if !g.sessions[session] {
		return fmt.Errorf("%w: %s", ErrUnknownSession, session)
	}
	delete(g.sessions, session)
	return nil
}

func (g *Gateway) Heartbeat(_ context.Context, session core.SessionHandle) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.record(&Request{Method: MethodHeartbeat, Session: session})
	if !g.sessions[session] {
		return fmt.Errorf("%w: %s", ErrUnknownSession, session)
	}
	return nil
}

func (g *Gateway) SessionConfig(_ context.Context, session core.SessionHandle) (map[string]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.record(&Request{Method: MethodSessionConfig, Session: session})
	if !g.sessions[session] {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, session)
	}
	return g.config.sessionConfig, nil
}

func (g *Gateway) ExecuteStatement(ctx context.Context, session core.SessionHandle, req *core.ExecuteStatementRequest) (core.OperationHandle, error) {
	if eff, ok := g.config.statementSideEffects[req.Statement]; ok {
		if err := eff(ctx); err != nil {
			return "", fmt.Errorf("side effect error: %w", err)
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.record(&Request{Method: MethodExecuteStatement, Session: session, Statement: req.Statement})
	if !g.sessions[session] {
		return "", fmt.Errorf("%w: %s", ErrUnknownSession, session)
	}

	g.counter++
	handle := core.OperationHandle(fmt.Sprintf("operation-%d", g.counter))

	status := "FINISHED"
	if s, ok := g.config.statuses[req.Statement]; ok {
		status = s
	}

	g.operations[handle] = &operation{
		session:   session,
		handle:    handle,
		statement: req.Statement,
		status:    status,
	}
	return handle, nil
}

func (g *Gateway) CompleteStatement(_ context.Context, session core.SessionHandle, _ int, statement string) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.record(&Request{Method: MethodCompleteStatement, Session: session, Statement: statement})
	return g.config.candidates, nil
}

func (g *Gateway) OperationStatus(_ context.Context, session core.SessionHandle, handle core.OperationHandle) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	op, err := g.operation(MethodOperationStatus, session, handle)
	if err != nil {
		return "", err
	}
	return op.status, nil
}

func (g *Gateway) CancelOperation(_ context.Context, session core.SessionHandle, handle core.OperationHandle) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	op, err := g.operation(MethodCancelOperation, session, handle)
	if err != nil {
		return "", err
	}
	op.status = "CANCELED"
	return op.status, nil
}

func (g *Gateway) CloseOperation(ctx context.Context, session core.SessionHandle, handle core.OperationHandle) (string, error) {
	g.mu.Lock()
	op, err := g.operation(MethodCloseOperation, session, handle)
	g.mu.Unlock()
	if err != nil {
		return "", err
	}

	if eff, ok := g.config.closeSideEffects[op.statement]; ok {
		if err := eff(ctx); err != nil {
			return "", fmt.Errorf("side effect error: %w", err)
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	op.status = "CLOSED"
	return op.status, nil
}

func (g *Gateway) FetchResults(_ context.Context, session core.SessionHandle, handle core.OperationHandle, token int64) (*core.Page, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	cursor := resultPath(session, handle, token)
	op, err := g.operation(MethodFetchResults, session, handle)
	if err != nil {
		return nil, err
	}
	g.requests[len(g.requests)-1].Cursor = cursor

	return g.serve(op, cursor)
}

func (g *Gateway) FetchNext(_ context.Context, cursor string) (*core.Page, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	handle, ok := g.cursors[cursor]
	if !ok {
		g.record(&Request{Method: MethodFetchNext, Cursor: cursor})
		return nil, fmt.Errorf("%w: %s", ErrUnknownCursor, cursor)
	}
	op := g.operations[handle]
	g.record(&Request{
		Method:    MethodFetchNext,
		Session:   op.session,
		Operation: op.handle,
		Statement: op.statement,
		Cursor:    cursor,
	})

	return g.serve(op, cursor)
}

// serve returns the next scripted page of op. Not ready pages point back to
// the requested cursor, the others to a new one.
func (g *Gateway) serve(op *operation, requested string) (*core.Page, error) {
	pages := g.config.pages[op.statement]
	if op.served >= len(pages) {
		return nil, fmt.Errorf("%w: %s", ErrNoMorePages, op.statement)
	}
	script := pages[op.served]
	op.served++

	cursor := requested
	if script.resultType != core.ResultTypeNotReady {
		cursor = resultPath(op.session, op.handle, int64(op.served))
	}
	g.cursors[cursor] = op.handle

	return script.toCore(cursor)
}

// operation records the request and looks up the operation. Callers hold the lock.
func (g *Gateway) operation(method string, session core.SessionHandle, handle core.OperationHandle) (*operation, error) {
	req := &Request{Method: method, Session: session, Operation: handle}
	g.record(req)

	op, ok := g.operations[handle]
	if !ok || op.session != session {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, handle)
	}
	req.Statement = op.statement
	return op, nil
}

func resultPath(session core.SessionHandle, operation core.OperationHandle, token int64) string {
	return fmt.Sprintf("/v1/sessions/%s/operations/%s/result/%d", session, operation, token)
}
