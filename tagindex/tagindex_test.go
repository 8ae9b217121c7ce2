package tagindex

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krisalay/tagged-cache/entry"
	"github.com/krisalay/tagged-cache/expiration"
)

func newEntry(key string) *entry.Entry[string] {
	return entry.NewValue(key, []string{"t"}, expiration.Absolute(time.Hour), key, nil)
}

func TestIndex_AddRemove(t *testing.T) {
	x := New[string]()
	a, b := newEntry("a"), newEntry("a")

	assert.True(t, x.IsEmpty())
	assert.Equal(t, Active, x.TryAdd(a))
	assert.Equal(t, Active, x.TryAdd(b))
	assert.Equal(t, 2, x.Len(), "same key, different identity")

	x.Remove(a)
	x.Remove(a)
	assert.False(t, x.Contains(a))
	assert.True(t, x.Contains(b))
	assert.Equal(t, 1, x.Len())
}

func TestIndex_Clear(t *testing.T) {
	x := New[string]()
	a, b := newEntry("a"), newEntry("b")
	x.TryAdd(a)
	x.TryAdd(b)

	members := x.Clear()
	assert.ElementsMatch(t, []*entry.Entry[string]{a, b}, members)
	assert.True(t, x.IsEmpty())
	assert.False(t, x.IsActive())
	assert.Equal(t, Cleared, x.State())

	assert.Equal(t, Cleared, x.TryAdd(newEntry("c")))
	assert.True(t, x.IsEmpty())

	// a second clear returns nothing and keeps the state
	assert.Empty(t, x.Clear())
	assert.Equal(t, Cleared, x.State())
}

func TestIndex_Retire(t *testing.T) {
	x := New[string]()
	a := newEntry("a")
	x.TryAdd(a)

	assert.False(t, x.Retire(), "non-empty index cannot retire")
	assert.True(t, x.IsActive())

	x.Remove(a)
	require.True(t, x.Retire())
	assert.Equal(t, Retired, x.State())
	assert.Equal(t, Retired, x.TryAdd(a))
	assert.False(t, x.Retire())

	// cleared indexes stay cleared
	y := New[string]()
	y.Clear()
	assert.False(t, y.Retire())
	assert.Equal(t, Cleared, y.State())
}

func TestIndex_Prune(t *testing.T) {
	x := New[string]()
	live, dead := newEntry("live"), newEntry("dead")
	dead.Expire()
	x.TryAdd(live)
	x.TryAdd(dead)

	n := x.Prune(func(e *entry.Entry[string]) bool { return e.IsExpired() })
	assert.Equal(t, 1, n)
	assert.True(t, x.Contains(live))
	assert.False(t, x.Contains(dead))
}

func TestIndex_ClearRacesAdd(t *testing.T) {
	for round := 0; round < 100; round++ {
		x := New[string]()
		entries := make([]*entry.Entry[string], 16)
		for i := range entries {
			entries[i] = newEntry("k")
		}

		added := make([]State, len(entries))
		var snapshot []*entry.Entry[string]

		var wg sync.WaitGroup
		for i := range entries {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				added[i] = x.TryAdd(entries[i])
			}(i)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			snapshot = x.Clear()
		}()
		wg.Wait()

		// every successful add is in the snapshot, nothing else is
		var want []*entry.Entry[string]
		for i, s := range added {
			if s == Active {
				want = append(want, entries[i])
			} else {
				assert.Equal(t, Cleared, s)
			}
		}
		assert.ElementsMatch(t, want, snapshot)
		assert.True(t, x.IsEmpty())
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "active", Active.String())
	assert.Equal(t, "cleared", Cleared.String())
	assert.Equal(t, "retired", Retired.String())
	assert.Equal(t, "unknown", State(9).String())
}
