// Package store implements the bounded LRU+TTL cache store: a hash index
// over a recency list, guarded by a single mutex.
//
// Every structural operation takes the exclusive lock, Get included, because
// a hit promotes the entry and promotion rewires the global list. Critical
// sections are short and never block on anything external, so one lock is
// both correct and sufficient; per-entry locking cannot protect the shared
// list order. Each call is linearizable with respect to every other call.
package store

import (
	"bytes"
	"container/list"
	"sync"
	"time"

	"github.com/Borislavv/go-aside-cache/config"
	"github.com/Borislavv/go-aside-cache/internal/model"
	"github.com/Borislavv/go-aside-cache/internal/shared/cachedtime"
)

// Store owns all entries exclusively. The index and the list always hold
// exactly the same set of live entries, and len(items) never exceeds the
// configured capacity once a mutating call returns.
type Store struct {
	mu       sync.Mutex
	capacity int64
	items    map[uint64]*list.Element
	lru      *list.List // Front = most recently used, Back = eviction side
	mem      int64      // payload bytes held; telemetry gauge, not an eviction input
	counters *counters
}

func New(cfg *config.Cache) (*Store, error) {
	if cfg.DB.Capacity <= 0 {
		return nil, config.ErrInvalidCapacity
	}
	return &Store{
		capacity: cfg.DB.Capacity,
		items:    make(map[uint64]*list.Element, cfg.DB.Capacity),
		lru:      list.New(),
		counters: newCounters(),
	}, nil
}

// Get returns a copy of the payload and promotes the entry. An entry whose
// deadline has passed is removed and reported as a miss even if no sweeper
// ever runs: the lazy check here is the authoritative expiration mechanism.
func (s *Store) Get(key string) ([]byte, bool) {
	k := model.NewKey(key)

	s.mu.Lock()
	el, ok := s.items[k.Value()]
	if !ok {
		s.mu.Unlock()
		s.counters.misses.Add(1)
		return nil, false
	}
	e := el.Value.(*model.Entry)
	if !e.Key().IsTheSame(k) {
		// 64-bit slot collision with a different key
		s.mu.Unlock()
		s.counters.misses.Add(1)
		return nil, false
	}
	if e.Expired(cachedtime.UnixNano()) {
		s.removeLocked(el)
		s.mu.Unlock()
		s.counters.expirations.Add(1)
		s.counters.misses.Add(1)
		return nil, false
	}

	s.lru.MoveToFront(el)
	out := make([]byte, len(e.Payload()))
	copy(out, e.Payload())
	s.mu.Unlock()

	s.counters.hits.Add(1)
	return out, true
}

// Set stores the payload under key for ttl. The zero and negative durations
// are rejected: an entry that should never expire is SetPermanent, an
// explicit call, never a default that fell through.
func (s *Store) Set(key string, payload []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return config.ErrInvalidTTL
	}
	s.set(key, payload, cachedtime.UnixNano()+ttl.Nanoseconds())
	return nil
}

// SetPermanent stores an entry without an expiry deadline. It still competes
// for capacity and is evicted like any other entry when it goes cold.
func (s *Store) SetPermanent(key string, payload []byte) {
	s.set(key, payload, 0)
}

func (s *Store) set(key string, payload []byte, expiresAt int64) {
	k := model.NewKey(key)
	p := make([]byte, len(payload))
	copy(p, payload)

	s.mu.Lock()
	if el, ok := s.items[k.Value()]; ok {
		e := el.Value.(*model.Entry)
		if e.Key().IsTheSame(k) {
			// an identical payload only refreshes expiry and recency;
			// the compare must be exact, never sampled
			if !bytes.Equal(e.Payload(), p) {
				s.mem += int64(len(p)) - e.Weight()
				e.SetPayload(p)
			}
			e.SetExpiresAt(expiresAt)
			s.lru.MoveToFront(el)
			s.mu.Unlock()
			return
		}
		// collision: the newcomer takes over the slot
		s.mem += int64(len(p)) - e.Weight()
		el.Value = model.NewEntry(k, p, expiresAt)
		s.lru.MoveToFront(el)
		s.mu.Unlock()
		return
	}

	if int64(len(s.items)) >= s.capacity {
		// evict from the cold end; list order breaks ties by insertion
		if back := s.lru.Back(); back != nil {
			s.removeLocked(back)
			s.counters.evictions.Add(1)
		}
	}

	el := s.lru.PushFront(model.NewEntry(k, p, expiresAt))
	s.items[k.Value()] = el
	s.mem += int64(len(p))
	s.mu.Unlock()
}

// Delete removes the entry if present. Deleting an absent key is a no-op,
// not an error.
func (s *Store) Delete(key string) bool {
	k := model.NewKey(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.items[k.Value()]
	if !ok || !el.Value.(*model.Entry).Key().IsTheSame(k) {
		return false
	}
	s.removeLocked(el)
	return true
}

// Len counts live entries. Entries past their deadline but not yet touched
// or swept are included; the count is allowed to run stale by that much.
func (s *Store) Len() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.items))
}

// Mem is the approximate payload volume held, for telemetry only.
func (s *Store) Mem() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mem
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[uint64]*list.Element)
	s.lru.Init()
	s.mem = 0
}

func (s *Store) StoreMetrics() (hits, misses, evictions, expirations int64) {
	return s.counters.snapshot()
}

// ExpiredKeys collects up to limit keys whose deadline has passed, scanning
// from the cold end where expired entries concentrate. Removal happens later
// through SweepKey so the lock is not held across the whole sweep.
func (s *Store) ExpiredKeys(limit int) []uint64 {
	if limit <= 0 {
		return nil
	}
	now := cachedtime.UnixNano()

	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []uint64
	for el := s.lru.Back(); el != nil && len(keys) < limit; el = el.Prev() {
		if e := el.Value.(*model.Entry); e.Expired(now) {
			keys = append(keys, e.Key().Value())
		}
	}
	return keys
}

// SweepKey removes the entry only if it is still present and still expired;
// a concurrent Set may have refreshed it since the scan.
func (s *Store) SweepKey(key uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.items[key]
	if !ok {
		return false
	}
	if !el.Value.(*model.Entry).Expired(cachedtime.UnixNano()) {
		return false
	}
	s.removeLocked(el)
	return true
}

// Entries returns deep copies of the live entries in recency order, most
// recent first. Used by the dump path so serialization runs off-lock.
func (s *Store) Entries() []*model.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.Entry, 0, len(s.items))
	for el := s.lru.Front(); el != nil; el = el.Next() {
		e := el.Value.(*model.Entry)
		p := make([]byte, len(e.Payload()))
		copy(p, e.Payload())
		out = append(out, model.NewEntry(e.Key(), p, e.ExpiresAt()))
	}
	return out
}

// Restore appends a dumped entry at the cold end, keeping the dump's recency
// order when entries are restored most-recent-first. Entries already present,
// already expired, or past capacity are dropped.
func (s *Store) Restore(e *model.Entry) bool {
	if e.Expired(cachedtime.UnixNano()) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if int64(len(s.items)) >= s.capacity {
		return false
	}
	if _, ok := s.items[e.Key().Value()]; ok {
		return false
	}
	s.items[e.Key().Value()] = s.lru.PushBack(e)
	s.mem += e.Weight()
	return true
}

func (s *Store) removeLocked(el *list.Element) {
	e := el.Value.(*model.Entry)
	delete(s.items, e.Key().Value())
	s.lru.Remove(el)
	s.mem -= e.Weight()
}
