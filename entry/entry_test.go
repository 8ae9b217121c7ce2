package entry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krisalay/tagged-cache/expiration"
)

type fakeClock struct {
	now atomic.Int64
}

func newFakeClock() *fakeClock {
	c := &fakeClock{}
	c.now.Store(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixNano())
	return c
}

func (c *fakeClock) Now() time.Time          { return time.Unix(0, c.now.Load()) }
func (c *fakeClock) Advance(d time.Duration) { c.now.Add(int64(d)) }

func TestEntry_KnownValue(t *testing.T) {
	clk := newFakeClock()
	e := NewValue("k", []string{"a", "b", "a"}, expiration.Absolute(time.Second), "v", clk.Now)

	assert.Equal(t, "k", e.Key())
	assert.Equal(t, []string{"a", "b"}, e.Tags())
	assert.True(t, e.Resolved())

	v, err := e.Value()
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestEntry_AbsoluteExpiration(t *testing.T) {
	clk := newFakeClock()
	e := NewValue("k", nil, expiration.Absolute(time.Second), 1, clk.Now)

	clk.Advance(999 * time.Millisecond)
	assert.False(t, e.IsExpired())

	// reads do not move an absolute deadline
	_, _ = e.Value()
	clk.Advance(time.Millisecond)
	assert.True(t, e.IsExpired())

	// monotonic
	clk.now.Store(0)
	assert.True(t, e.IsExpired())
}

func TestEntry_SlidingExpiration(t *testing.T) {
	clk := newFakeClock()
	e := NewValue("k", nil, expiration.Sliding(100*time.Millisecond), 1, clk.Now)

	for i := 0; i < 10; i++ {
		clk.Advance(60 * time.Millisecond)
		require.False(t, e.IsExpired(), "read %d", i)
		_, err := e.Value()
		require.NoError(t, err)
	}

	clk.Advance(100 * time.Millisecond)
	assert.True(t, e.IsExpired())
}

func TestEntry_Expire(t *testing.T) {
	e := NewValue("k", nil, expiration.Absolute(time.Hour), 1, nil)
	assert.False(t, e.IsExpired())
	e.Expire()
	e.Expire()
	assert.True(t, e.IsExpired())
}

func TestEntry_DeferredRunsOnce(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	e := NewDeferred("k", nil, expiration.Absolute(time.Hour), func() (any, error) {
		calls.Add(1)
		<-release
		return "computed", nil
	}, nil)

	const n = 32
	var wg sync.WaitGroup
	results := make([]any, n)
	futures := make([]*Future, n)
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			futures[i] = e.ValueAsync()
			continue
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := e.Value()
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < n; i++ {
		if futures[i] != nil {
			v, err := futures[i].Wait(context.Background())
			require.NoError(t, err)
			results[i] = v
		}
		assert.Equal(t, "computed", results[i])
	}
	assert.Equal(t, int32(1), calls.Load())

	// memoized after landing
	v, err := e.Value()
	require.NoError(t, err)
	assert.Equal(t, "computed", v)
	assert.Equal(t, int32(1), calls.Load())
}

func TestEntry_DeferredFailure(t *testing.T) {
	boom := errors.New("boom")
	var calls atomic.Int32
	e := NewDeferred("k", nil, expiration.Absolute(time.Hour), func() (any, error) {
		calls.Add(1)
		return nil, boom
	}, nil)

	_, err := e.Value()
	assert.ErrorIs(t, err, boom)
	assert.True(t, e.IsExpired())

	_, err = e.ValueAsync().Get()
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(1), calls.Load())
}

func TestEntry_DeferredPanic(t *testing.T) {
	e := NewDeferred("k", nil, expiration.Absolute(time.Hour), func() (any, error) {
		panic("kaboom")
	}, nil)

	_, err := e.ValueAsync().Get()
	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "kaboom", pe.Value)
	assert.NotEmpty(t, pe.Stack)
	assert.True(t, e.IsExpired())

	_, err = e.Value()
	assert.ErrorAs(t, err, &pe)
}

func TestEntry_DeferredSlidingRefreshOnMaterialize(t *testing.T) {
	clk := newFakeClock()
	e := NewDeferred("k", nil, expiration.Sliding(100*time.Millisecond), func() (any, error) {
		clk.Advance(80 * time.Millisecond)
		return 1, nil
	}, clk.Now)

	_, err := e.Value()
	require.NoError(t, err)

	clk.Advance(80 * time.Millisecond)
	assert.False(t, e.IsExpired())
}

func TestFuture_WaitContext(t *testing.T) {
	release := make(chan struct{})
	e := NewDeferred("k", nil, expiration.Absolute(time.Hour), func() (any, error) {
		<-release
		return 7, nil
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	f := e.ValueAsync()
	_, err := f.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// the producer keeps running for everybody else
	close(release)
	<-f.Done()
	v, err := f.Get()
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}
