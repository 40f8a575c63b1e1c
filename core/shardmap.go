package core

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const shardCount = 32

// ShardMap is a string-keyed concurrent map split into fixed shards, each
// guarded by its own RWMutex, giving per-key locking without a single
// global lock (spec.md §5 "concurrent maps allowing per-key locking").
// Shard selection uses xxhash for speed and good key distribution.
type ShardMap[V any] struct {
	shards [shardCount]shard[V]
}

type shard[V any] struct {
	mu sync.RWMutex
	m  map[string]V
}

// NewShardMap constructs an empty ShardMap.
func NewShardMap[V any]() *ShardMap[V] {
	sm := &ShardMap[V]{}
	for i := range sm.shards {
		sm.shards[i].m = make(map[string]V)
	}
	return sm
}

func (sm *ShardMap[V]) shardFor(key string) *shard[V] {
	h := xxhash.Sum64String(key)
	return &sm.shards[h%uint64(shardCount)]
}

// Get returns the value stored at key.
func (sm *ShardMap[V]) Get(key string) (V, bool) {
	s := sm.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	return v, ok
}

// Set unconditionally stores value at key.
func (sm *ShardMap[V]) Set(key string, value V) {
	s := sm.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
}

// Delete removes key, reporting whether it was present.
func (sm *ShardMap[V]) Delete(key string) bool {
	s := sm.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[key]; !ok {
		return false
	}
	delete(s.m, key)
	return true
}

// Has reports whether key is present.
func (sm *ShardMap[V]) Has(key string) bool {
	s := sm.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.m[key]
	return ok
}

// LoadOrStore returns the existing value at key if present, otherwise
// stores and returns value. The boolean reports whether value was stored.
func (sm *ShardMap[V]) LoadOrStore(key string, value V) (V, bool) {
	s := sm.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.m[key]; ok {
		return existing, false
	}
	s.m[key] = value
	return value, true
}

// Len returns the total number of entries across all shards. It is an
// approximation under concurrent writers, suitable for metrics only.
func (sm *ShardMap[V]) Len() int {
	n := 0
	for i := range sm.shards {
		sm.shards[i].mu.RLock()
		n += len(sm.shards[i].m)
		sm.shards[i].mu.RUnlock()
	}
	return n
}

// Keys returns a snapshot of every key currently stored, in no particular
// order; callers needing determinism must sort.
func (sm *ShardMap[V]) Keys() []string {
	out := make([]string, 0, sm.Len())
	for i := range sm.shards {
		sm.shards[i].mu.RLock()
		for k := range sm.shards[i].m {
			out = append(out, k)
		}
		sm.shards[i].mu.RUnlock()
	}
	return out
}

// Range calls f for every entry until f returns false.
func (sm *ShardMap[V]) Range(f func(key string, value V) bool) {
	for i := range sm.shards {
		sm.shards[i].mu.RLock()
		for k, v := range sm.shards[i].m {
			if !f(k, v) {
				sm.shards[i].mu.RUnlock()
				return
			}
		}
		sm.shards[i].mu.RUnlock()
	}
}
