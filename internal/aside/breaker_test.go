package aside

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/require"
)

func breakerCfg(trip uint32) BreakerConfig {
	return BreakerConfig{
		Name:                "test-loader",
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             time.Minute,
		ConsecutiveFailures: trip,
	}
}

// TestBreakerLoader_PassesThroughSuccess returns the inner loader's value.
func TestBreakerLoader_PassesThroughSuccess(t *testing.T) {
	inner := LoaderFunc(func(context.Context, string) ([]byte, error) {
		return []byte("alice"), nil
	})
	bl := NewBreakerLoader(breakerCfg(3), inner, testLogger())

	got, err := bl.Load(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, []byte("alice"), got)
	require.Equal(t, gobreaker.StateClosed, bl.State())
}

// TestBreakerLoader_OpensAfterConsecutiveFailures fails fast once tripped.
func TestBreakerLoader_OpensAfterConsecutiveFailures(t *testing.T) {
	boom := errors.New("backing store down")
	var calls atomic.Int64
	inner := LoaderFunc(func(context.Context, string) ([]byte, error) {
		calls.Add(1)
		return nil, boom
	})
	bl := NewBreakerLoader(breakerCfg(3), inner, testLogger())

	for i := 0; i < 3; i++ {
		_, err := bl.Load(context.Background(), "u1")
		require.ErrorIs(t, err, boom)
	}
	require.Equal(t, gobreaker.StateOpen, bl.State())

	_, err := bl.Load(context.Background(), "u1")
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	require.Equal(t, int64(3), calls.Load(), "open circuit must not reach the loader")
}

// TestBreakerLoader_NotFoundIsHealthy does not count an absent record as a
// failure: the backing store answered, the record just isn't there.
func TestBreakerLoader_NotFoundIsHealthy(t *testing.T) {
	inner := LoaderFunc(func(context.Context, string) ([]byte, error) {
		return nil, ErrNotFound
	})
	bl := NewBreakerLoader(breakerCfg(2), inner, testLogger())

	for i := 0; i < 10; i++ {
		_, err := bl.Load(context.Background(), "ghost")
		require.ErrorIs(t, err, ErrNotFound)
	}
	require.Equal(t, gobreaker.StateClosed, bl.State())
}
