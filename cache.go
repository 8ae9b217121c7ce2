// Package cache is a tagged, concurrent, in-process key/value cache.
//
// Entries expire on an absolute or sliding deadline, can be invalidated as a
// group through tags, and deferred values are computed at most once per entry
// no matter how many goroutines ask for them.
package cache

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/krisalay/tagged-cache/api"
	"github.com/krisalay/tagged-cache/entry"
	"github.com/krisalay/tagged-cache/expiration"
	"github.com/krisalay/tagged-cache/store"
	"github.com/krisalay/tagged-cache/sweep"
	"github.com/krisalay/tagged-cache/tagindex"
)

/*
Cache is the main cache implementation.
This struct is the orchestrator that connects:
- the key → entry map
- the tag → index map (tags live in their own namespace)
- the expiration sweeper

There is no cache-wide lock. Keys are replaced with compare-and-swap on the
entry map; each tag index has its own small mutex; entries carry their own
atomic state. Unrelated keys and tags never contend.
*/
type Cache[K comparable] struct {
	entries store.Map[K, *entry.Entry[K]]
	tags    store.Map[K, *tagindex.Index[K]]

	// sweeper removes expired entries and empty tag indexes in the background.
	sweeper *sweep.Sweeper

	clock func() time.Time
	log   *zap.Logger
}

var _ api.Cache[string] = (*Cache[string])(nil)

// New creates a cache. scanFrequency is the minimum interval between two
// expiration sweeps and must be > 0.
func New[K comparable](scanFrequency time.Duration, opts ...Option) (*Cache[K], error) {
	if scanFrequency <= 0 {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidScanFrequency, scanFrequency)
	}
	o := buildOptions(opts)

	c := &Cache[K]{
		clock: o.clock,
		log:   o.logger,
	}

	sw, err := sweep.New(sweep.Config{
		Frequency: scanFrequency,
		Executor:  o.executor,
		Clock:     o.clock,
		Logger:    o.logger.Named("sweep"),
	}, c.sweep)
	if err != nil {
		return nil, err
	}
	c.sweeper = sw

	return c, nil
}

/*
Get retrieves the value stored for key.

BEHAVIOR:
---------
- Key absent → miss
- Entry expired → the entry is evicted as part of the miss
- Entry live → its value; a sliding deadline is pushed forward
- Entry deferred → waits for the single in-flight computation; a failed
  computation is a miss

Get never fails.
*/
func (c *Cache[K]) Get(key K) (any, bool) {
	c.sweeper.Maybe()

	if isNil(key) {
		return nil, false
	}
	ent, ok := c.entries.Load(key)
	if !ok {
		return nil, false
	}
	if ent.IsExpired() {
		c.evict(ent)
		return nil, false
	}
	v, err := ent.Value()
	if err != nil {
		c.evict(ent)
		return nil, false
	}
	return v, true
}

/*
Put stores value for key, unconditionally replacing whatever was there.

The new entry joins the index of every tag (indexes are created on first use).
If a tag is cleared while the entry is joining it, the clear wins and the new
entry is evicted right away. The replaced entry, if any, is expired and leaves
all of its tags.
*/
func (c *Cache[K]) Put(key K, value any, policy expiration.Policy, tags ...K) error {
	if err := validate(key, policy, tags); err != nil {
		return err
	}
	c.sweeper.Maybe()

	ent := entry.NewValue(key, tags, policy, value, c.clock)
	prev, replaced := c.entries.Swap(key, ent)
	c.register(ent)
	if replaced {
		prev.Expire()
		c.detach(prev)
	}
	return nil
}

/*
GetOrCompute returns the value of the live entry for key, computing it with
producer if there is none.

A new entry is installed only if the key is absent or its entry has expired;
a live entry installed by a racing caller is never overwritten. Every caller
that races on the same key ends up on the same entry, so producer runs once
per installed entry and everybody gets the same value or the same error.

A producer error expires the entry. It is not retried: the next call starts a
fresh computation.
*/
func (c *Cache[K]) GetOrCompute(key K, policy expiration.Policy, producer entry.Producer, tags ...K) (any, error) {
	ent, err := c.acquire(key, policy, producer, tags)
	if err != nil {
		return nil, err
	}
	v, err := ent.Value()
	if err != nil {
		c.evict(ent)
		return nil, err
	}
	return v, nil
}

// GetOrComputeAsync is GetOrCompute without blocking for the computation.
// Validation errors are returned directly; producer errors through the Future.
func (c *Cache[K]) GetOrComputeAsync(key K, policy expiration.Policy, producer entry.Producer, tags ...K) (*entry.Future, error) {
	ent, err := c.acquire(key, policy, producer, tags)
	if err != nil {
		return nil, err
	}
	return ent.ValueAsync(), nil
}

// Remove deletes key. Removing a missing key is a no-op.
func (c *Cache[K]) Remove(key K) {
	c.sweeper.Maybe()

	if isNil(key) {
		return
	}
	if ent, ok := c.entries.LoadAndDelete(key); ok {
		ent.Expire()
		c.detach(ent)
	}
}

/*
RemoveByTag evicts every entry associated with tag.

The tag index is unlinked and closed in one step, so an entry racing to join
it is either evicted here or evicts itself. A stale member that is no longer
the live entry for its key is expired but does not touch the key. The tag can
be used again immediately; it gets a fresh index.
*/
func (c *Cache[K]) RemoveByTag(tag K) {
	c.sweeper.Maybe()

	if isNil(tag) {
		return
	}
	idx, ok := c.tags.LoadAndDelete(tag)
	if !ok {
		return
	}

	members := idx.Clear()
	for _, ent := range members {
		c.entries.CompareAndDelete(ent.Key(), ent)
		ent.Expire()
		c.detachExcept(ent, tag)
	}
	c.log.Debug("tag cleared", zap.Any("tag", tag), zap.Int("entries", len(members)))
}

// Sweep runs an expiration pass now, on the calling goroutine. It returns
// false, without waiting, if a pass is already scheduled or running.
func (c *Cache[K]) Sweep() bool {
	return c.sweeper.Run()
}

// Len returns the number of entries physically stored, expired ones included.
func (c *Cache[K]) Len() int {
	return c.entries.Len()
}

// acquire returns the live entry for key, installing a deferred one if needed.
func (c *Cache[K]) acquire(key K, policy expiration.Policy, producer entry.Producer, tags []K) (*entry.Entry[K], error) {
	if err := validate(key, policy, tags); err != nil {
		return nil, err
	}
	if producer == nil {
		return nil, ErrNilProducer
	}
	c.sweeper.Maybe()

	var fresh *entry.Entry[K]
	for {
		cur, found := c.entries.Load(key)
		if found && !cur.IsExpired() {
			return cur, nil
		}

		if fresh == nil {
			fresh = entry.NewDeferred(key, tags, policy, producer, c.clock)
		}

		var installed bool
		if found {
			installed = c.entries.CompareAndSwap(key, cur, fresh)
		} else {
			_, loaded := c.entries.LoadOrStore(key, fresh)
			installed = !loaded
		}
		if !installed {
			// somebody else got there first; look again
			continue
		}

		c.register(fresh)
		if found {
			c.detach(cur)
		}
		return fresh, nil
	}
}

// register makes ent a member of all its tag indexes. If a tag was cleared
// concurrently, or ent is already expired, ent is evicted.
func (c *Cache[K]) register(ent *entry.Entry[K]) {
	for _, tag := range ent.Tags() {
		if !c.join(ent, tag) {
			c.evict(ent)
			return
		}
	}
	if ent.IsExpired() {
		c.evict(ent)
	}
}

// join adds ent to the current index of tag. It returns false only if the
// index was cleared under it.
func (c *Cache[K]) join(ent *entry.Entry[K], tag K) bool {
	for {
		idx, ok := c.tags.Load(tag)
		if !ok {
			idx, _ = c.tags.LoadOrStore(tag, tagindex.New[K]())
		}

		switch idx.TryAdd(ent) {
		case tagindex.Active:
			return true
		case tagindex.Retired:
			// empty index destroyed by the sweeper; unlink it if the
			// sweeper has not yet and retry on a fresh one
			c.tags.CompareAndDelete(tag, idx)
		default:
			return false
		}
	}
}

// evict removes ent from the map if it is still the live entry for its key,
// expires it and detaches it from its tags.
func (c *Cache[K]) evict(ent *entry.Entry[K]) {
	c.entries.CompareAndDelete(ent.Key(), ent)
	ent.Expire()
	c.detach(ent)
}

func (c *Cache[K]) detach(ent *entry.Entry[K]) {
	for _, tag := range ent.Tags() {
		if idx, ok := c.tags.Load(tag); ok {
			idx.Remove(ent)
		}
	}
}

func (c *Cache[K]) detachExcept(ent *entry.Entry[K], skip K) {
	for _, tag := range ent.Tags() {
		if tag == skip {
			continue
		}
		if idx, ok := c.tags.Load(tag); ok {
			idx.Remove(ent)
		}
	}
}

func validate[K comparable](key K, policy expiration.Policy, tags []K) error {
	if isNil(key) {
		return ErrNilKey
	}
	for _, tag := range tags {
		if isNil(tag) {
			return fmt.Errorf("%w: nil tag", ErrNilKey)
		}
	}
	return policy.Validate()
}

// isNil reports whether k is a nil interface value. Keys of concrete types
// are never nil.
func isNil[K comparable](k K) bool {
	return any(k) == nil
}
