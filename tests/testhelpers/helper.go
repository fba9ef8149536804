// Package testhelpers provides helpers for integration tests.
package testhelpers

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"

	"github.com/resinkit/resinkit-go/core"
)

// callTimeout is the maximum time to wait for a call to finish
const callTimeout = 2 * time.Minute

var errTimeOut = fmt.Errorf("call did not finish within %v", callTimeout)

// GetContainerProvider returns the container provider type to use for the tests.
// If we detect podman is available, we use it, otherwise we use docker.
func GetContainerProvider() testcontainers.ProviderType {
	if _, err := exec.LookPath("podman"); err == nil {
		fmt.Println("Podman detected. Remember to set TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED=true;")
		return testcontainers.ProviderPodman
	}
	return testcontainers.ProviderDocker
}

// FetchCall fetches the results of op as a tracked call and returns the
// table together with every state the call went through.
func FetchCall(t *testing.T, op *core.Operation, opts *core.FetchOptions) (*core.Table, []core.CallState, error) {
	t.Helper()

	var (
		mu     sync.Mutex
		states []core.CallState
	)
	call := op.FetchAsync(context.Background(), opts, func(state core.CallState, _ *core.Call) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, state)
	})

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	table, err := call.Wait(ctx)
	if ctx.Err() != nil {
		return nil, nil, errTimeOut
	}

	// the event goroutine may still be delivering the final state
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(states) > 0 && states[len(states)-1] == call.GetState()
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	return table, append([]core.CallState(nil), states...), err
}
