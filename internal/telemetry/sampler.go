package telemetry

import (
	"github.com/Borislavv/go-aside-cache/internal/store"
	"github.com/Borislavv/go-aside-cache/internal/sweeper"
)

type sampler struct {
	store   *store.Store
	sweeper sweeper.Sweeper
}

func newSampler(s *store.Store, sw sweeper.Sweeper) sampler {
	return sampler{store: s, sweeper: sw}
}

// snapshot holds cumulative counters (monotonic).
type snapshot struct {
	hits        uint64
	misses      uint64
	evictions   uint64
	expirations uint64

	sweepScans  uint64
	sweepSwept  uint64
	sweepErrors uint64
}

func (s sampler) snapshot() snapshot {
	hits, misses, evictions, expirations := s.store.StoreMetrics()
	scans, swept, errs := s.sweeper.SweeperMetrics()

	return snapshot{
		hits:        uint64(max(hits, 0)),
		misses:      uint64(max(misses, 0)),
		evictions:   uint64(max(evictions, 0)),
		expirations: uint64(max(expirations, 0)),

		sweepScans:  uint64(max(scans, 0)),
		sweepSwept:  uint64(max(swept, 0)),
		sweepErrors: uint64(max(errs, 0)),
	}
}

// deltaSnapshot converts cumulative snapshots to per-interval deltas.
// If counters reset (cur < prev), it treats cur as the delta.
func deltaSnapshot(prev, cur snapshot) snapshot {
	return snapshot{
		hits:        delta(prev.hits, cur.hits),
		misses:      delta(prev.misses, cur.misses),
		evictions:   delta(prev.evictions, cur.evictions),
		expirations: delta(prev.expirations, cur.expirations),

		sweepScans:  delta(prev.sweepScans, cur.sweepScans),
		sweepSwept:  delta(prev.sweepSwept, cur.sweepSwept),
		sweepErrors: delta(prev.sweepErrors, cur.sweepErrors),
	}
}

func delta(prev, cur uint64) uint64 {
	if cur >= prev {
		return cur - prev
	}
	return cur
}
