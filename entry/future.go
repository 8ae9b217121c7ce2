package entry

import (
	"context"

	"golang.org/x/sync/singleflight"
)

/*
Future is the pending result of an asynchronous materialization.

Every Future returned for the same entry resolves to the same value or the same
error. Waiting can be abandoned through ctx, the producer itself keeps running
for the other waiters.
*/
type Future struct {
	done  chan struct{}
	value any
	err   error
}

func resolvedFuture(v any, err error) *Future {
	f := &Future{done: make(chan struct{}), value: v, err: err}
	close(f.done)
	return f
}

func awaitFuture(ch <-chan singleflight.Result, onSuccess func()) *Future {
	f := &Future{done: make(chan struct{})}
	go func() {
		r := <-ch
		f.value, f.err = r.Val, r.Err
		if r.Err == nil && onSuccess != nil {
			onSuccess()
		}
		close(f.done)
	}()
	return f
}

// Done is closed once the result is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Get blocks until the result is available.
func (f *Future) Get() (any, error) {
	<-f.done
	return f.value, f.err
}

// Wait blocks until the result is available or ctx is done.
func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
