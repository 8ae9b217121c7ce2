// Package tagindex implements the per-tag membership set used for group invalidation.
package tagindex

import (
	"sync"

	"github.com/krisalay/tagged-cache/entry"
)

// State is the lifecycle of an index. It only moves away from Active.
type State uint8

const (
	// Active indexes accept new members.
	Active State = iota

	// Cleared indexes were invalidated by an explicit tag clear.
	// An entry that fails to join a cleared index must be evicted.
	Cleared

	// Retired indexes were empty and destroyed by the sweeper.
	// An entry that fails to join a retired index may join a fresh one.
	Retired
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Cleared:
		return "cleared"
	case Retired:
		return "retired"
	default:
		return "unknown"
	}
}

/*
Index is the set of entries currently associated with one tag.

Membership is by entry identity, not by key: two entries for the same key can
be members at the same time during a replace race.

All mutations happen under one mutex that belongs to this index alone. No code
path ever holds two index mutexes, and the store itself has no lock, so
unrelated tags never contend.
*/
type Index[K comparable] struct {
	mu      sync.Mutex
	state   State
	members map[*entry.Entry[K]]struct{}
}

func New[K comparable]() *Index[K] {
	return &Index[K]{members: make(map[*entry.Entry[K]]struct{})}
}

// TryAdd adds e unless the index is closed. It returns the state observed:
// Active means e was added.
func (x *Index[K]) TryAdd(e *entry.Entry[K]) State {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.state != Active {
		return x.state
	}
	x.members[e] = struct{}{}
	return Active
}

// Remove drops e from the index. Removing a non-member is a no-op.
func (x *Index[K]) Remove(e *entry.Entry[K]) {
	x.mu.Lock()
	delete(x.members, e)
	x.mu.Unlock()
}

/*
Clear closes the index for a tag-wide invalidation.

It marks the index Cleared and hands back the members it held, in one critical
section. Any TryAdd that lost the race to Clear fails; any TryAdd that won it
is part of the returned snapshot. There is no third outcome.
*/
func (x *Index[K]) Clear() []*entry.Entry[K] {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.state == Active {
		x.state = Cleared
	}
	out := make([]*entry.Entry[K], 0, len(x.members))
	for e := range x.members {
		out = append(out, e)
	}
	x.members = make(map[*entry.Entry[K]]struct{})
	return out
}

// Retire closes an empty active index. It returns false, and changes
// nothing, if the index has members or is already closed.
func (x *Index[K]) Retire() bool {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.state != Active || len(x.members) != 0 {
		return false
	}
	x.state = Retired
	return true
}

// Prune removes every member matching dead and returns how many were removed.
// dead runs under the index mutex, so it must be quick and must not touch
// another index.
func (x *Index[K]) Prune(dead func(*entry.Entry[K]) bool) int {
	x.mu.Lock()
	defer x.mu.Unlock()

	n := 0
	for e := range x.members {
		if dead(e) {
			delete(x.members, e)
			n++
		}
	}
	return n
}

func (x *Index[K]) State() State {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.state
}

func (x *Index[K]) IsActive() bool { return x.State() == Active }

func (x *Index[K]) IsEmpty() bool { return x.Len() == 0 }

func (x *Index[K]) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.members)
}

// Contains reports whether e is a member.
func (x *Index[K]) Contains(e *entry.Entry[K]) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	_, ok := x.members[e]
	return ok
}
