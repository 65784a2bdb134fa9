package aside

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerConfig tunes the circuit breaker wrapped around a Loader.
type BreakerConfig struct {
	Name                string
	MaxRequests         uint32        // probes allowed in half-open state
	Interval            time.Duration // closed-state counter window
	Timeout             time.Duration // how long the circuit stays open
	ConsecutiveFailures uint32        // failures that trip the circuit
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:                "aside-loader",
		MaxRequests:         5,
		Interval:            60 * time.Second,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// BreakerLoader is an explicit decorator: it takes the real Loader and
// returns a breaker-guarded one with the same interface. While the circuit
// is open, loads fail fast without reaching the backing store, and those
// failures propagate like any loader error: uncached.
type BreakerLoader struct {
	loader Loader
	cb     *gobreaker.CircuitBreaker
}

// notFound marks the ErrNotFound outcome as a success inside the breaker:
// an absent record is a healthy backing store, not a failure to count.
type notFound struct{}

func NewBreakerLoader(cfg BreakerConfig, loader Loader, logger *slog.Logger) *BreakerLoader {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("loader breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}
	return &BreakerLoader{
		loader: loader,
		cb:     gobreaker.NewCircuitBreaker(settings),
	}
}

func (b *BreakerLoader) Load(ctx context.Context, key string) ([]byte, error) {
	result, err := b.cb.Execute(func() (any, error) {
		value, loadErr := b.loader.Load(ctx, key)
		if errors.Is(loadErr, ErrNotFound) {
			return notFound{}, nil
		}
		return value, loadErr
	})
	if err != nil {
		return nil, err
	}
	if _, ok := result.(notFound); ok {
		return nil, ErrNotFound
	}
	return result.([]byte), nil
}

func (b *BreakerLoader) State() gobreaker.State {
	return b.cb.State()
}
