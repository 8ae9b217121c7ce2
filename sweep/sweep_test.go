package sweep

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/krisalay/tagged-cache/scheduler"
)

type fakeClock struct{ now atomic.Int64 }

func (c *fakeClock) Now() time.Time          { return time.Unix(0, c.now.Load()) }
func (c *fakeClock) Advance(d time.Duration) { c.now.Add(int64(d)) }

func TestNew_InvalidFrequency(t *testing.T) {
	_, err := New(Config{}, func() {})
	assert.ErrorIs(t, err, ErrInvalidFrequency)

	_, err = New(Config{Frequency: -time.Second}, func() {})
	assert.ErrorIs(t, err, ErrInvalidFrequency)
}

func TestSweeper_RateLimited(t *testing.T) {
	clk := &fakeClock{}
	var runs atomic.Int32
	s, err := New(Config{Frequency: time.Minute, Executor: scheduler.Inline{}, Clock: clk.Now}, func() {
		runs.Add(1)
	})
	require.NoError(t, err)
	assert.Equal(t, time.Minute, s.Frequency())

	assert.False(t, s.Maybe(), "not due yet")
	clk.Advance(59 * time.Second)
	assert.False(t, s.Maybe())

	clk.Advance(time.Second)
	assert.True(t, s.Maybe())
	assert.Equal(t, int32(1), runs.Load())
	assert.Equal(t, Idle, s.State())
	assert.Equal(t, clk.Now(), s.LastPass())

	assert.False(t, s.Maybe(), "timestamp reset by the pass")
	assert.Equal(t, uint64(1), s.Passes())
}

func TestSweeper_AtMostOneInFlight(t *testing.T) {
	clk := &fakeClock{}
	release := make(chan struct{})
	var runs atomic.Int32
	s, err := New(Config{Frequency: time.Second, Executor: scheduler.NewBounded(8), Clock: clk.Now}, func() {
		runs.Add(1)
		<-release
	})
	require.NoError(t, err)
	clk.Advance(time.Second)

	var wg sync.WaitGroup
	var scheduled atomic.Int32
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Maybe() {
				scheduled.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), scheduled.Load())
	assert.False(t, s.Run(), "pass already in flight")

	close(release)
	require.Eventually(t, func() bool { return s.State() == Idle }, time.Second, time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())
}

func TestSweeper_RejectedSubmissionReturnsToIdle(t *testing.T) {
	clk := &fakeClock{}
	core, logs := observer.New(zap.DebugLevel)
	reject := scheduler.Func(func(func()) bool { return false })

	s, err := New(Config{Frequency: time.Second, Executor: reject, Clock: clk.Now, Logger: zap.New(core)}, func() {})
	require.NoError(t, err)
	clk.Advance(time.Second)

	assert.False(t, s.Maybe())
	assert.Equal(t, Idle, s.State())
	assert.Equal(t, 1, logs.FilterMessage("sweep rejected by executor").Len())
}

func TestSweeper_RunIsSynchronous(t *testing.T) {
	ran := false
	s, err := New(Config{Frequency: time.Hour}, func() { ran = true })
	require.NoError(t, err)

	assert.True(t, s.Run())
	assert.True(t, ran)
	assert.Equal(t, Idle, s.State())
}

func TestSweeper_PanicIsContained(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	s, err := New(Config{Frequency: time.Hour, Logger: zap.New(core)}, func() { panic("bad pass") })
	require.NoError(t, err)

	assert.NotPanics(t, func() { s.Run() })
	assert.Equal(t, Idle, s.State())
	assert.Equal(t, 1, logs.FilterMessage("sweep pass panicked").Len())
	assert.True(t, s.Run(), "sweeper still usable")
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "scheduled", Scheduled.String())
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "unknown", State(7).String())
}
