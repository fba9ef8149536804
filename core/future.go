package core

import "context"

// Future is the result of a function running on its own goroutine.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func goFuture[T any](fn func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}

	go func() {
		defer close(f.done)
		f.value, f.err = fn()
	}()

	return f
}

// Done returns a channel that is closed when the function returned.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the function returned or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case <-f.done:
		return f.value, f.err
	}
}
