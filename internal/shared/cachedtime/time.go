// Package cachedtime keeps a coarse process-wide clock so hot paths
// (expiry checks on every Get) don't pay for a syscall each time.
// Resolution is bounded by cacheTimeEach; expiry precision stays well
// within TTL granularity.
package cachedtime

import (
	"context"
	"sync/atomic"
	"time"
)

const cacheTimeEach = 10 * time.Millisecond

var (
	nowUnix atomic.Int64
	running atomic.Bool
)

// Run starts the clock goroutine if it isn't running yet and stops it when
// ctx is canceled. Safe to call from several cache instances; the first
// caller wins, later ones are no-ops until the clock stops again.
func Run(ctx context.Context) {
	if !running.CompareAndSwap(false, true) {
		return
	}
	nowUnix.Store(time.Now().UnixNano())

	go func() {
		ticker := time.NewTicker(cacheTimeEach)
		defer ticker.Stop()
		defer running.Store(false)
		for {
			select {
			case tt := <-ticker.C:
				nowUnix.Store(tt.UnixNano())
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Now falls back to the real clock when the goroutine isn't running, so the
// package stays correct in plain unit tests that never call Run.
func Now() time.Time {
	if !running.Load() {
		return time.Now()
	}
	return time.Unix(0, nowUnix.Load())
}

func UnixNano() int64 {
	if !running.Load() {
		return time.Now().UnixNano()
	}
	return nowUnix.Load()
}

func Since(t time.Time) time.Duration {
	return Now().Sub(t)
}
