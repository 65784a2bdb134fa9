package asidecache

import (
	"log/slog"

	"github.com/Borislavv/go-aside-cache/internal/aside"
)

// Re-exported cache-aside surface so callers only import the root package.
type (
	Loader        = aside.Loader
	LoaderFunc    = aside.LoaderFunc
	Writer        = aside.Writer
	WriterFunc    = aside.WriterFunc
	Record        = aside.Record
	Orchestrator  = aside.Orchestrator
	AsideOption   = aside.Option
	BreakerConfig = aside.BreakerConfig
)

// ErrNotFound is the Loader's "record does not exist" outcome; Read
// propagates it without caching anything.
var ErrNotFound = aside.ErrNotFound

// WithCoalescing collapses concurrent loads of the same key into a single
// in-flight call. Off by default: duplicate loads are tolerated, only the
// cached value is unique.
func WithCoalescing() AsideOption {
	return aside.WithCoalescing()
}

// NewAside builds the cache-aside orchestrator over this cache. Read
// populates misses with the configured default TTL; Write persists first
// and invalidates after.
func NewAside(c *Cache, loader Loader, writer Writer, opts ...AsideOption) (*Orchestrator, error) {
	return aside.New(c.Store, loader, writer, c.cfg.DB.DefaultTTL.Std(), c.logger, opts...)
}

// NewBreakerLoader wraps loader with a circuit breaker so a failing backing
// store sheds load instead of being hammered by every cache miss.
func NewBreakerLoader(cfg BreakerConfig, loader Loader, logger *slog.Logger) Loader {
	return aside.NewBreakerLoader(cfg, loader, logger)
}

// DefaultBreakerConfig returns conservative breaker settings.
func DefaultBreakerConfig() BreakerConfig {
	return aside.DefaultBreakerConfig()
}
