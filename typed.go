package cache

import (
	"context"

	"github.com/krisalay/tagged-cache/entry"
	"github.com/krisalay/tagged-cache/expiration"
)

// The helpers below add a value type to the untyped Cache operations.
// A cached value of another type reads as a miss (TryGet) or fails with
// ErrTypeMismatch (compute helpers).

// TryGet is Get with the value converted to T.
func TryGet[T any, K comparable](c *Cache[K], key K) (T, bool) {
	v, ok := c.Get(key)
	if !ok {
		var zero T
		return zero, false
	}
	return as[T](v)
}

// GetOrCompute is the typed form of Cache.GetOrCompute.
func GetOrCompute[T any, K comparable](c *Cache[K], key K, policy expiration.Policy, producer func() (T, error), tags ...K) (T, error) {
	var zero T
	if producer == nil {
		return zero, ErrNilProducer
	}
	v, err := c.GetOrCompute(key, policy, erase(producer), tags...)
	if err != nil {
		return zero, err
	}
	t, ok := as[T](v)
	if !ok {
		return zero, ErrTypeMismatch
	}
	return t, nil
}

// GetOrComputeAsync is the typed form of Cache.GetOrComputeAsync.
func GetOrComputeAsync[T any, K comparable](c *Cache[K], key K, policy expiration.Policy, producer func() (T, error), tags ...K) (*Future[T], error) {
	if producer == nil {
		return nil, ErrNilProducer
	}
	f, err := c.GetOrComputeAsync(key, policy, erase(producer), tags...)
	if err != nil {
		return nil, err
	}
	return &Future[T]{f: f}, nil
}

// Future is a typed entry.Future.
type Future[T any] struct {
	f *entry.Future
}

func (f *Future[T]) Done() <-chan struct{} { return f.f.Done() }

// Wait blocks until the value is available or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	var zero T
	v, err := f.f.Wait(ctx)
	if err != nil {
		return zero, err
	}
	t, ok := as[T](v)
	if !ok {
		return zero, ErrTypeMismatch
	}
	return t, nil
}

func erase[T any](p func() (T, error)) entry.Producer {
	return func() (any, error) {
		return p()
	}
}

func as[T any](v any) (T, bool) {
	if v == nil {
		var zero T
		return zero, true
	}
	t, ok := v.(T)
	return t, ok
}
