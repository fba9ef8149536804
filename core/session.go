package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

var ErrSessionKeeperNotSupported = errors.New("gateway does not support session heartbeats")

type (
	// Session is a remote execution context on the gateway.
	Session struct {
		gateway          Gateway
		name             string
		properties       map[string]string
		createIfNotExist bool
		log              Logger
		mapper           *TypeMapper
		timer            Timer

		mu     sync.RWMutex
		handle SessionHandle
	}

	SessionOption func(*Session)
)

func WithProperties(properties map[string]string) SessionOption {
	return func(s *Session) {
		s.properties = properties
	}
}

func WithSessionName(name string) SessionOption {
	return func(s *Session) {
		if name != "" {
			s.name = name
		}
	}
}

func WithSessionLogger(logger Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.log = logger
		}
	}
}

// WithCreateIfNotExist controls whether Open creates a remote session at all.
// With false, the session stays unopened and dispatching fails.
func WithCreateIfNotExist(create bool) SessionOption {
	return func(s *Session) {
		s.createIfNotExist = create
	}
}

// WithTypeMapper sets the mapper used to build tables of every operation.
func WithTypeMapper(mapper *TypeMapper) SessionOption {
	return func(s *Session) {
		if mapper != nil {
			s.mapper = mapper
		}
	}
}

// WithTimer replaces the clock used by paginators of this session.
func WithTimer(timer Timer) SessionOption {
	return func(s *Session) {
		if timer != nil {
			s.timer = timer
		}
	}
}

func NewSession(gw Gateway, opts ...SessionOption) *Session {
	s := &Session{
		gateway:          gw,
		name:             "session_" + uuid.New().String(),
		properties:       map[string]string{},
		createIfNotExist: true,
		log:              NopLogger(),
		mapper:           NewTypeMapper(),
		timer:            WallTimer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Use opens a session, runs fn and closes the session on every exit path.
func Use(ctx context.Context, gw Gateway, fn func(*Session) error, opts ...SessionOption) (err error) {
	s := NewSession(gw, opts...)

	if err := s.Open(ctx); err != nil {
		return fmt.Errorf("s.Open: %w", err)
	}
	defer func() {
		closeErr := s.Close(context.WithoutCancel(ctx))
		if closeErr == nil {
			return
		}
		s.log.Warnf("closing session %s: %s", s.Handle(), closeErr)
		if err == nil {
			err = fmt.Errorf("s.Close: %w", closeErr)
		}
	}()

	return fn(s)
}

func (s *Session) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name       string            `json:"name"`
		Handle     string            `json:"handle,omitempty"`
		Properties map[string]string `json:"properties,omitempty"`
	}{
		Name:       s.name,
		Handle:     string(s.Handle()),
		Properties: s.properties,
	})
}

func (s *Session) Name() string {
	return s.name
}

func (s *Session) Properties() map[string]string {
	return s.properties
}

// Handle returns the server issued handle, empty until opened.
func (s *Session) Handle() SessionHandle {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.handle
}

func (s *Session) IsOpen() bool {
	return s.Handle() != ""
}

// Open creates the remote session. Opening an already opened session is a no-op.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle != "" || !s.createIfNotExist {
		return nil
	}

	handle, err := s.gateway.OpenSession(ctx, &OpenSessionRequest{
		Properties:  s.properties,
		SessionName: s.name,
	})
	if err != nil {
		return fmt.Errorf("gateway.OpenSession: %w", err)
	}

	s.handle = handle
	s.log.Debugf("opened session %q: %s", s.name, handle)
	return nil
}

// Close releases the remote session. It is a no-op for unopened sessions.
func (s *Session) Close(ctx context.Context) error {
	handle := s.Handle()
	if handle == "" {
		return nil
	}

	if err := s.gateway.CloseSession(ctx, handle); err != nil {
		return fmt.Errorf("gateway.CloseSession: %w", err)
	}

	s.log.Debugf("closed session %q: %s", s.name, handle)
	return nil
}

func (s *Session) CompleteStatement(ctx context.Context, position int, statement string) ([]string, error) {
	handle, err := s.requireHandle()
	if err != nil {
		return nil, err
	}

	candidates, err := s.gateway.CompleteStatement(ctx, handle, position, statement)
	if err != nil {
		return nil, fmt.Errorf("gateway.CompleteStatement: %w", err)
	}
	return candidates, nil
}

// Heartbeat keeps the remote session alive.
func (s *Session) Heartbeat(ctx context.Context) error {
	handle, err := s.requireHandle()
	if err != nil {
		return err
	}

	keeper, ok := s.gateway.(SessionKeeper)
	if !ok {
		return ErrSessionKeeperNotSupported
	}

	if err := keeper.Heartbeat(ctx, handle); err != nil {
		return fmt.Errorf("keeper.Heartbeat: %w", err)
	}
	return nil
}

// IsAlive reports whether a heartbeat succeeds.
func (s *Session) IsAlive(ctx context.Context) bool {
	return s.Heartbeat(ctx) == nil
}

// Config returns the properties the gateway holds for this session.
func (s *Session) Config(ctx context.Context) (map[string]string, error) {
	handle, err := s.requireHandle()
	if err != nil {
		return nil, err
	}

	keeper, ok := s.gateway.(SessionKeeper)
	if !ok {
		return nil, ErrSessionKeeperNotSupported
	}

	config, err := keeper.SessionConfig(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("keeper.SessionConfig: %w", err)
	}
	return config, nil
}

// Execute prepares the execution of sql. Nothing is sent until the returned
// dispatch is run.
func (s *Session) Execute(sql string, opts ...StatementOption) *Dispatch {
	return &Dispatch{
		session: s,
		sql:     sql,
		opts:    newStatementConfig(opts...),
	}
}

// ExecuteAll prepares the execution of every statement in order.
func (s *Session) ExecuteAll(sqls []string, opts ...StatementOption) *CompositeDispatch {
	return &CompositeDispatch{
		session: s,
		sqls:    sqls,
		opts:    newStatementConfig(opts...),
	}
}

func (s *Session) execute(ctx context.Context, sql string, cfg *statementConfig) (*Operation, error) {
	handle, err := s.requireHandle()
	if err != nil {
		return nil, err
	}

	opHandle, err := s.gateway.ExecuteStatement(ctx, handle, &ExecuteStatementRequest{
		Statement:        sql,
		Properties:       cfg.properties,
		ExecutionTimeout: cfg.executionTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("gateway.ExecuteStatement: %w", err)
	}

	s.log.Debugf("session %s: executing %s", handle, opHandle)
	return newOperation(s, opHandle, sql), nil
}

func (s *Session) requireHandle() (SessionHandle, error) {
	handle := s.Handle()
	if handle == "" {
		return "", ErrSessionNotOpen
	}
	return handle, nil
}
