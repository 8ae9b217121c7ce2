package entry

import (
	"sync/atomic"
	"time"

	"github.com/krisalay/tagged-cache/expiration"
)

/*
Entry is the unit of stored state for one key: its value (or the producer of
it), its tags and its expiration state.

Everything except the deadline and the expired flag is fixed at construction.
Entries are compared by pointer. During a replace race two entries can exist
for the same key, and only identity tells them apart when detaching one from
a tag index.

The expired flag is monotonic. Once set, the entry is never handed out by a
read again, even if a tag index still references it.
*/
type Entry[K comparable] struct {
	key    K
	tags   []K
	policy expiration.Policy
	clock  func() time.Time

	// deadline is unix nanoseconds; only moves forward.
	deadline atomic.Int64
	expired  atomic.Bool

	slot *cell
}

// NewValue creates an entry holding an already known value.
func NewValue[K comparable](key K, tags []K, policy expiration.Policy, value any, clock func() time.Time) *Entry[K] {
	e := newEntry(key, tags, policy, clock)
	e.slot = knownCell(value)
	return e
}

// NewDeferred creates an entry whose value is computed by p on first access.
// A failing p expires the entry.
func NewDeferred[K comparable](key K, tags []K, policy expiration.Policy, p Producer, clock func() time.Time) *Entry[K] {
	e := newEntry(key, tags, policy, clock)
	e.slot = deferredCell(func() (any, error) {
		v, err := invoke(p)
		if err != nil {
			e.Expire()
		}
		return v, err
	})
	return e
}

func newEntry[K comparable](key K, tags []K, policy expiration.Policy, clock func() time.Time) *Entry[K] {
	if clock == nil {
		clock = time.Now
	}
	e := &Entry[K]{
		key:    key,
		tags:   dedupe(tags),
		policy: policy,
		clock:  clock,
	}
	e.deadline.Store(policy.Deadline(clock()).UnixNano())
	return e
}

func dedupe[K comparable](tags []K) []K {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[K]struct{}, len(tags))
	out := make([]K, 0, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func (e *Entry[K]) Key() K                    { return e.key }
func (e *Entry[K]) Policy() expiration.Policy { return e.policy }

// Tags returns the entry's tags. The slice must not be modified.
func (e *Entry[K]) Tags() []K { return e.tags }

// Deadline returns the current deadline.
func (e *Entry[K]) Deadline() time.Time {
	return time.Unix(0, e.deadline.Load())
}

/*
IsExpired reports whether the entry is dead.

BEHAVIOR:
---------
- true if the entry was already marked expired
- true if now >= deadline, and the entry is marked expired on the way
- false otherwise

Safe to call concurrently; the check is lazy and the transition is one-way.
*/
func (e *Entry[K]) IsExpired() bool {
	if e.expired.Load() {
		return true
	}
	if e.clock().UnixNano() >= e.deadline.Load() {
		e.expired.Store(true)
		return true
	}
	return false
}

// Expire marks the entry expired. Idempotent.
func (e *Entry[K]) Expire() {
	e.expired.Store(true)
}

// Resolved reports whether the value slot already holds a result.
func (e *Entry[K]) Resolved() bool {
	_, _, ok := e.slot.resolved()
	return ok
}

/*
Value materializes the entry synchronously.

A known value is returned as is. A deferred value is produced exactly once
across all concurrent callers (synchronous and asynchronous); every caller
gets the same value or the same error. A successful read pushes a sliding
deadline forward.
*/
func (e *Entry[K]) Value() (any, error) {
	v, err := e.slot.get()
	if err != nil {
		return nil, err
	}
	e.touch()
	return v, nil
}

// ValueAsync is the asynchronous form of Value.
func (e *Entry[K]) ValueAsync() *Future {
	if v, err, ok := e.slot.resolved(); ok {
		if err == nil {
			e.touch()
		}
		return resolvedFuture(v, err)
	}
	return awaitFuture(e.slot.getAsync(), e.touch)
}

// touch applies the sliding policy.
func (e *Entry[K]) touch() {
	d, ok := e.policy.OnAccess(e.clock())
	if !ok {
		return
	}
	next := d.UnixNano()
	for {
		cur := e.deadline.Load()
		if next <= cur || e.deadline.CompareAndSwap(cur, next) {
			return
		}
	}
}
