package store

import "sync/atomic"

type counters struct {
	hits        atomic.Int64
	misses      atomic.Int64
	evictions   atomic.Int64 // removed to make room for an insert
	expirations atomic.Int64 // removed lazily on access past the deadline
}

func newCounters() *counters {
	return &counters{
		hits:        atomic.Int64{},
		misses:      atomic.Int64{},
		evictions:   atomic.Int64{},
		expirations: atomic.Int64{},
	}
}

func (c *counters) snapshot() (hits, misses, evictions, expirations int64) {
	return c.hits.Load(), c.misses.Load(), c.evictions.Load(), c.expirations.Load()
}
