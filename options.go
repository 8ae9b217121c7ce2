package cache

import (
	"time"

	"go.uber.org/zap"

	"github.com/krisalay/tagged-cache/scheduler"
)

type options struct {
	logger   *zap.Logger
	executor scheduler.Executor
	clock    func() time.Time
}

// Option configures a Cache.
type Option func(*options)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithExecutor sets where background sweeps run.
// The default is the process-wide scheduler.Shared() executor.
func WithExecutor(e scheduler.Executor) Option {
	return func(o *options) {
		if e != nil {
			o.executor = e
		}
	}
}

// WithClock sets the time source used for deadlines and sweep scheduling.
// This is useful for testing.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.clock = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger:   zap.NewNop(),
		executor: scheduler.Shared(),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
