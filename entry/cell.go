package entry

import (
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// gateKey is the only key ever used on a cell's gate.
const gateKey = ""

/*
cell is the value slot of an entry: a single-assignment cell guarded by a
one-time execution gate.

  - a known value is resolved from the start
  - a deferred value is resolved by the first run of the producer

The gate is a singleflight.Group with one key, so synchronous callers (Do) and
asynchronous callers (DoChan) join the same in-flight run. run re-checks done
before producing, so a caller arriving after the flight has landed reads the
memoized result instead of starting a second run.
*/
type cell struct {
	done    atomic.Bool
	value   any
	err     error
	produce Producer
	gate    singleflight.Group
}

func knownCell(v any) *cell {
	c := &cell{value: v}
	c.done.Store(true)
	return c
}

func deferredCell(p Producer) *cell {
	return &cell{produce: p}
}

// resolved returns the memoized result, if any.
func (c *cell) resolved() (any, error, bool) {
	if !c.done.Load() {
		return nil, nil, false
	}
	return c.value, c.err, true
}

func (c *cell) get() (any, error) {
	if v, err, ok := c.resolved(); ok {
		return v, err
	}
	v, err, _ := c.gate.Do(gateKey, c.run)
	return v, err
}

func (c *cell) getAsync() <-chan singleflight.Result {
	return c.gate.DoChan(gateKey, c.run)
}

func (c *cell) run() (any, error) {
	if v, err, ok := c.resolved(); ok {
		return v, err
	}

	v, err := invoke(c.produce)

	// value and err are published by the done store below.
	c.value, c.err = v, err
	c.produce = nil
	c.done.Store(true)
	return v, err
}
