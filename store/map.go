package store

import "sync"

/*
This file defines how entries and tag indexes are actually stored. This is NOT a normal map.
- Reads should be very fast
- Reads should NOT require locks
- Writers must be able to replace a value only if it is still the one they saw

To achieve this we wrap sync.Map, which gives lock-free loads and atomic
compare-and-swap / compare-and-delete on individual keys, and put types on it.
*/

/*
Map is a typed concurrent map.

V must be a comparable type (in practice a pointer) for CompareAndSwap and
CompareAndDelete, which compare values by ==.

K must be comparable at run time too: an interface key holding a slice or a map
panics, exactly as it would with a built-in map.
*/
type Map[K comparable, V comparable] struct {
	m sync.Map
}

// Load returns the value stored for key.
func (s *Map[K, V]) Load(key K) (V, bool) {
	v, ok := s.m.Load(key)
	if !ok {
		var zero V
		return zero, false
	}
	return v.(V), true
}

// Swap stores value for key and returns the previous value, if any.
func (s *Map[K, V]) Swap(key K, value V) (V, bool) {
	prev, loaded := s.m.Swap(key, value)
	if !loaded {
		var zero V
		return zero, false
	}
	return prev.(V), true
}

// LoadOrStore returns the existing value for key if present.
// Otherwise it stores value and returns it with loaded == false.
func (s *Map[K, V]) LoadOrStore(key K, value V) (actual V, loaded bool) {
	v, loaded := s.m.LoadOrStore(key, value)
	return v.(V), loaded
}

// LoadAndDelete removes key and returns the value it held, if any.
func (s *Map[K, V]) LoadAndDelete(key K) (V, bool) {
	v, loaded := s.m.LoadAndDelete(key)
	if !loaded {
		var zero V
		return zero, false
	}
	return v.(V), true
}

// CompareAndSwap replaces old with next only if key still maps to old.
func (s *Map[K, V]) CompareAndSwap(key K, old, next V) bool {
	return s.m.CompareAndSwap(key, old, next)
}

// CompareAndDelete deletes key only if it still maps to old.
func (s *Map[K, V]) CompareAndDelete(key K, old V) bool {
	return s.m.CompareAndDelete(key, old)
}

// Range calls fn for each key/value pair until fn returns false.
// It does not see a consistent snapshot; see sync.Map.Range.
func (s *Map[K, V]) Range(fn func(K, V) bool) {
	s.m.Range(func(k, v any) bool {
		return fn(k.(K), v.(V))
	})
}

// Len counts the stored pairs. It walks the whole map.
func (s *Map[K, V]) Len() int {
	n := 0
	s.m.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
