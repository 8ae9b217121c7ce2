package api

import (
	"github.com/krisalay/tagged-cache/entry"
	"github.com/krisalay/tagged-cache/expiration"
)

/*
Cache defines the PUBLIC API of the tagged cache.
This is a contract that guarantees certain behaviors, without exposing internals.
All of the details like (entry maps, tag indexes, sweeping, single-flight) are
hidden behind this interface.

K is the key type. Tags use the same type but live in their own namespace:
a tag never collides with a data key.
*/
type Cache[K comparable] interface {

	/*
		Get retrieves the value associated with the given key.

		BEHAVIOR:
		-------------------
		1. If the key exists and is NOT expired:
		   - Return the value (cache hit)
		   - Sliding entries get their deadline pushed forward

		2. If the key does NOT exist, is expired, or its computation failed:
		   - Return false (cache miss)
		   - An expired entry is evicted on the way

		Get never returns an error.
	*/
	Get(key K) (any, bool)

	/*
		Put stores a key-value pair, replacing any previous entry.

		BEHAVIOR:
		---------
		- Overwrite always wins, whatever the state of the previous entry
		- The entry joins every tag in tags
		- If one of those tags is cleared concurrently, the clear wins
		  and the new entry is evicted

		Fails with a validation error (nil key, non-positive lifetime)
		before touching any state.
	*/
	Put(key K, value any, policy expiration.Policy, tags ...K) error

	/*
		GetOrCompute returns the live value for key or computes it.

		SINGLE-FLIGHT:
		--------------
		- N concurrent callers on a missing key run producer ONCE
		- All N get the same value, or the same error
		- A live entry is never overwritten; only missing or expired ones are replaced
		- A failed computation is not cached and not retried automatically
	*/
	GetOrCompute(key K, policy expiration.Policy, producer entry.Producer, tags ...K) (any, error)

	/*
		GetOrComputeAsync is GetOrCompute returning a Future instead of blocking.
		The producer runs to completion even if every waiter gives up.
	*/
	GetOrComputeAsync(key K, policy expiration.Policy, producer entry.Producer, tags ...K) (*entry.Future, error)

	/*
		Remove deletes a key from the cache immediately.

		This operation is idempotent:
		- Removing a non-existing key is safe
	*/
	Remove(key K)

	/*
		RemoveByTag evicts every entry associated with tag.

		USE CASES:
		----------
		- Invalidate everything derived from one record
		- Drop a whole tenant / user / session group at once

		The tag is usable again right after the call.
	*/
	RemoveByTag(tag K)

	/*
		Sweep runs an expiration pass now.
		Sweeps also run on their own, in the background, at most once per scan frequency.
	*/
	Sweep() bool
}
