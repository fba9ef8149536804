package core

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

type (
	CallID string

	// Call is an asynchronous fetch of one operation's results.
	Call struct {
		id        CallID
		statement string
		timestamp time.Time

		mu        sync.RWMutex
		state     CallState
		timeTaken time.Duration
		// any error that might occur during execution
		err error

		result     *Result
		cancelFunc func()
		done       chan struct{}
	}
)

// callPersistent is used for marshaling the call
type callPersistent struct {
	ID        string `json:"id"`
	Statement string `json:"statement"`
	State     string `json:"state"`
	TimeTaken int64  `json:"time_taken_us"`
	Timestamp int64  `json:"timestamp_us"`
	Error     string `json:"error,omitempty"`
}

func (c *Call) toPersistent() *callPersistent {
	c.mu.RLock()
	defer c.mu.RUnlock()

	errMsg := ""
	if c.err != nil {
		errMsg = c.err.Error()
	}

	return &callPersistent{
		ID:        string(c.id),
		Statement: c.statement,
		State:     c.state.String(),
		TimeTaken: c.timeTaken.Microseconds(),
		Timestamp: c.timestamp.UnixMicro(),
		Error:     errMsg,
	}
}

func (c *Call) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.toPersistent())
}

// callExecutor fetches a table, calling onRetrieving once the first page arrived.
type callExecutor func(ctx context.Context, onRetrieving func()) (*Table, error)

func newCallFromExecutor(parent context.Context, executor callExecutor, statement string, onEvent func(CallState, *Call)) *Call {
	c := &Call{
		id:        CallID(uuid.New().String()),
		statement: statement,
		state:     CallStateUnknown,

		result: new(Result),
		done:   make(chan struct{}),
	}

	eventsCh := make(chan CallState, 10)

	ctx, cancel := context.WithCancel(parent)
	c.timestamp = time.Now()
	c.cancelFunc = cancel

	// event function handler
	eventsDone := make(chan struct{})
	go func() {
		defer close(eventsDone)
		for state := range eventsCh {
			if !c.setState(state) {
				continue
			}

			// trigger event callback
			if onEvent != nil {
				onEvent(state, c)
			}
		}
	}()

	go func() {
		defer func() {
			close(eventsCh)
			<-eventsDone
			cancel()
			close(c.done)
		}()

		eventsCh <- CallStateExecuting

		retrieving := false
		table, err := executor(ctx, func() {
			retrieving = true
			eventsCh <- CallStateRetrieving
		})

		c.mu.Lock()
		c.timeTaken = time.Since(c.timestamp)
		c.err = err
		c.mu.Unlock()

		switch {
		case err != nil && errors.Is(err, context.Canceled) && ctx.Err() != nil && parent.Err() == nil:
			eventsCh <- CallStateCanceled
		case err != nil && retrieving:
			eventsCh <- CallStateRetrievingFailed
		case err != nil:
			eventsCh <- CallStateExecutingFailed
		default:
			c.result.SetTable(table)
			eventsCh <- CallStateDone
		}
	}()

	return c
}

// setState moves the call to state, final states are never left.
func (c *Call) setState(state CallState) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.IsFinal() {
		return false
	}
	c.state = state
	return true
}

func (c *Call) GetID() CallID {
	return c.id
}

func (c *Call) GetStatement() string {
	return c.statement
}

func (c *Call) GetState() CallState {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.state
}

func (c *Call) GetTimeTaken() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.timeTaken
}

func (c *Call) GetTimestamp() time.Time {
	return c.timestamp
}

func (c *Call) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.err
}

// Done returns a channel that is closed when the call finishes.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Cancel aborts the local fetch loop. It does not cancel the job on the
// gateway, use Operation.Cancel for that.
func (c *Call) Cancel() {
	if c.GetState().IsFinal() {
		return
	}
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
}

// Wait blocks until the call finishes or ctx is done and returns its table.
func (c *Call) Wait(ctx context.Context) (*Table, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
	}

	if err := c.Err(); err != nil {
		return nil, err
	}
	return c.result.Table(), nil
}

func (c *Call) GetResult() (*Result, error) {
	if c.result.IsEmpty() {
		return nil, errors.New("result not available")
	}

	return c.result, nil
}
