// Package sweep schedules the background expiration pass of the cache.
package sweep

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/krisalay/tagged-cache/scheduler"
)

// ErrInvalidFrequency is returned for a non-positive sweep frequency.
var ErrInvalidFrequency = errors.New("sweep: frequency must be positive")

// State of the sweeper. Transitions: Idle → Scheduled → Running → Idle.
type State int32

const (
	Idle State = iota
	Scheduled
	Running
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scheduled:
		return "scheduled"
	case Running:
		return "running"
	default:
		return "unknown"
	}
}

// Config configures a Sweeper.
type Config struct {
	// Frequency is the minimum interval between the end of one pass and the
	// start of the next. Must be > 0.
	Frequency time.Duration

	// Executor runs scheduled passes. Defaults to scheduler.Shared().
	Executor scheduler.Executor

	// Clock defaults to time.Now.
	Clock func() time.Time

	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

/*
Sweeper is a rate-limited, self-scheduling runner for one pass function.

Callers poke it with Maybe on every cache operation. At most one pass is
scheduled or running at any time; this is enforced by a single atomic state,
not a lock. The caller that wins the Idle→Scheduled transition hands the pass
to the executor and returns immediately; everybody else returns immediately
too.
*/
type Sweeper struct {
	frequency time.Duration
	pass      func()
	exec      scheduler.Executor
	clock     func() time.Time
	log       *zap.Logger

	state  atomic.Int32
	last   atomic.Int64 // unix nanos of the last completed pass (or construction)
	passes atomic.Uint64
}

// New creates a Sweeper for pass. The first pass is due one Frequency after New.
func New(cfg Config, pass func()) (*Sweeper, error) {
	if cfg.Frequency <= 0 {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidFrequency, cfg.Frequency)
	}
	if cfg.Executor == nil {
		cfg.Executor = scheduler.Shared()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	s := &Sweeper{
		frequency: cfg.Frequency,
		pass:      pass,
		exec:      cfg.Executor,
		clock:     cfg.Clock,
		log:       cfg.Logger,
	}
	s.last.Store(s.clock().UnixNano())
	return s, nil
}

// Maybe schedules a pass if one is due and none is in progress.
// It reports whether this call scheduled one.
func (s *Sweeper) Maybe() bool {
	if s.clock().UnixNano()-s.last.Load() < int64(s.frequency) {
		return false
	}
	if !s.state.CompareAndSwap(int32(Idle), int32(Scheduled)) {
		return false
	}
	if !s.exec.Submit(s.execute) {
		// rejected: back to Idle so a later call can retry
		s.state.Store(int32(Idle))
		s.log.Debug("sweep rejected by executor")
		return false
	}
	return true
}

// Run executes a pass on the calling goroutine, unless one is already
// scheduled or running. It reports whether it ran.
func (s *Sweeper) Run() bool {
	if !s.state.CompareAndSwap(int32(Idle), int32(Running)) {
		return false
	}
	s.runPass()
	return true
}

func (s *Sweeper) execute() {
	s.state.Store(int32(Running))
	s.runPass()
}

func (s *Sweeper) runPass() {
	start := s.clock()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("sweep pass panicked", zap.Any("panic", r))
		}
		end := s.clock()
		s.passes.Add(1)
		s.last.Store(end.UnixNano())
		s.state.Store(int32(Idle))
		s.log.Debug("sweep pass finished", zap.Duration("took", end.Sub(start)))
	}()
	s.pass()
}

func (s *Sweeper) State() State { return State(s.state.Load()) }

// LastPass returns when the last pass finished (construction time before the first pass).
func (s *Sweeper) LastPass() time.Time { return time.Unix(0, s.last.Load()) }

// Passes returns how many passes have completed.
func (s *Sweeper) Passes() uint64 { return s.passes.Load() }

func (s *Sweeper) Frequency() time.Duration { return s.frequency }
