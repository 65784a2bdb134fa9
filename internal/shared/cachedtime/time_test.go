package cachedtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestCachedTime_FallbackWithoutRun tracks the real clock when no goroutine runs.
func TestCachedTime_FallbackWithoutRun(t *testing.T) {
	now := Now()
	require.WithinDuration(t, time.Now(), now, time.Second)
	require.NotZero(t, UnixNano())
}

// TestCachedTime_RunAdvances refreshes the coarse clock on its tick.
func TestCachedTime_RunAdvances(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	Run(ctx)

	first := UnixNano()
	require.Eventually(t, func() bool {
		return UnixNano() > first
	}, time.Second, 5*time.Millisecond)

	require.WithinDuration(t, time.Now(), Now(), time.Second)
	require.LessOrEqual(t, Since(Now()), time.Second)
}
