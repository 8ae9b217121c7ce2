package cache

import (
	"go.uber.org/zap"

	"github.com/krisalay/tagged-cache/entry"
	"github.com/krisalay/tagged-cache/tagindex"
)

/*
sweep is the pass run by the sweeper.

- Walk the entries; evict every expired one that is still live for its key.
- Walk the tag indexes; drop expired members that an eviction race left
  behind, then retire and unlink indexes that ended up empty.

Only dead state is touched, so running it any number of extra times changes
nothing a reader can observe. A failure on one entry is logged and skipped.
*/
func (c *Cache[K]) sweep() {
	var evicted, pruned, retired int

	c.entries.Range(func(_ K, ent *entry.Entry[K]) bool {
		if c.sweepEntry(ent) {
			evicted++
		}
		return true
	})

	c.tags.Range(func(tag K, idx *tagindex.Index[K]) bool {
		n, ok := c.sweepIndex(tag, idx)
		pruned += n
		if ok {
			retired++
		}
		return true
	})

	c.log.Debug("sweep",
		zap.Int("evicted", evicted),
		zap.Int("pruned", pruned),
		zap.Int("retired_tags", retired),
	)
}

func (c *Cache[K]) sweepEntry(ent *entry.Entry[K]) (evicted bool) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Warn("sweep skipped entry", zap.Any("key", ent.Key()), zap.Any("panic", r))
			evicted = false
		}
	}()

	if !ent.IsExpired() {
		return false
	}
	c.evict(ent)
	return true
}

func (c *Cache[K]) sweepIndex(tag K, idx *tagindex.Index[K]) (pruned int, retired bool) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Warn("sweep skipped tag", zap.Any("tag", tag), zap.Any("panic", r))
		}
	}()

	pruned = idx.Prune(isDead[K])
	if idx.Retire() {
		c.tags.CompareAndDelete(tag, idx)
		retired = true
	}
	return pruned, retired
}

func isDead[K comparable](e *entry.Entry[K]) bool {
	return e.IsExpired()
}
