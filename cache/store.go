// Package cache holds the in-process lookup caches of the map stage.
//
// Every cache is a Store: a string-keyed map owned by one RWMutex. Reads take
// the read lock. SetIfAbsent, Update and GetOrCreate are atomic, so two
// workers resolving the same text never bind it to different values.
package cache

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Entry is a key/value pair in insertion order
type Entry[V any] struct {
	Key   string
	Value V
}

// Store is a thread-safe cache with no eviction
type Store[V any] struct {
	name string

	mu    sync.RWMutex
	items map[string]V
	order []string

	group  singleflight.Group
	hits   atomic.Int64
	misses atomic.Int64
}

// NewStore creates an empty store. name labels it in logs and metrics.
func NewStore[V any](name string) *Store[V] {
	return &Store[V]{name: name, items: make(map[string]V)}
}

// Name returns the store's label
func (s *Store[V]) Name() string { return s.name }

// Get returns the value for key
func (s *Store[V]) Get(key string) (V, bool) {
	v, ok := s.peek(key)
	if ok {
		s.hits.Add(1)
	} else {
		s.misses.Add(1)
	}
	return v, ok
}

func (s *Store[V]) peek(key string) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok
}

// Set stores value under key, replacing any previous value
func (s *Store[V]) Set(key string, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(key, value)
}

func (s *Store[V]) setLocked(key string, value V) {
	if _, exists := s.items[key]; !exists {
		s.order = append(s.order, key)
	}
	s.items[key] = value
}

// SetIfAbsent stores value only when key is unbound. It returns the value
// bound after the call and whether this call inserted it.
func (s *Store[V]) SetIfAbsent(key string, value V) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.items[key]; ok {
		return existing, false
	}
	s.setLocked(key, value)
	return value, true
}

// Update replaces the value for key with fn(current, exists) atomically
func (s *Store[V]) Update(key string, fn func(current V, exists bool) V) V {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.items[key]
	next := fn(current, ok)
	s.setLocked(key, next)
	return next
}

// GetOrCreate returns the cached value for key, computing it with create on
// a miss. Concurrent callers for the same key share one create call. Errors
// are not cached.
func (s *Store[V]) GetOrCreate(key string, create func() (V, error)) (V, error) {
	if v, ok := s.Get(key); ok {
		return v, nil
	}

	res, err, _ := s.group.Do(key, func() (interface{}, error) {
		if v, ok := s.peek(key); ok {
			return v, nil
		}
		v, err := create()
		if err != nil {
			return v, err
		}
		stored, _ := s.SetIfAbsent(key, v)
		return stored, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// Entries returns a copy of the store in insertion order
func (s *Store[V]) Entries() []Entry[V] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry[V], 0, len(s.order))
	for _, k := range s.order {
		out = append(out, Entry[V]{Key: k, Value: s.items[k]})
	}
	return out
}

// Len returns the number of entries
func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Stats returns hit and miss counts of Get
func (s *Store[V]) Stats() (hits, misses int64) {
	return s.hits.Load(), s.misses.Load()
}
