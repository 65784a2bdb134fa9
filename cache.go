// Package asidecache is a bounded in-process LRU cache with per-entry TTL
// and a cache-aside orchestrator in front of a slow backing store.
package asidecache

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Borislavv/go-aside-cache/config"
	"github.com/Borislavv/go-aside-cache/internal/dump"
	"github.com/Borislavv/go-aside-cache/internal/shared/cachedtime"
	"github.com/Borislavv/go-aside-cache/internal/store"
	"github.com/Borislavv/go-aside-cache/internal/sweeper"
	"github.com/Borislavv/go-aside-cache/internal/telemetry"
)

type AsideCache interface {
	Cacher
	sweeper.Sweeper
	telemetry.Logger
	io.Closer
}

// Cacher is the store surface exposed to application code.
type Cacher interface {
	Get(key string) ([]byte, bool)
	Set(key string, payload []byte, ttl time.Duration) error
	SetPermanent(key string, payload []byte)
	Delete(key string) bool
	Len() int64
	Mem() int64
	Clear()
	StoreMetrics() (hits, misses, evictions, expirations int64)
}

// Cache is an explicitly constructed instance: build one per backing-store
// relationship and pass it by reference to whoever needs it. There is no
// process-wide singleton.
type Cache struct {
	*store.Store
	sweeper.Sweeper
	telemetry.Logger
	cfg     *config.Cache
	dumper  dump.Dumper
	logger  *slog.Logger
	cls     context.CancelFunc
	closing sync.Once
}

func New(ctx context.Context, cfg *config.Cache, logger *slog.Logger) (*Cache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	cachedtime.Run(ctx)

	st, err := store.New(cfg)
	if err != nil {
		cancel()
		return nil, err
	}

	var dumper dump.Dumper
	if cfg.Persistence.Enabled() {
		d := dump.New(cfg.Persistence, st)
		if err = d.Load(ctx); err != nil {
			// a missing or unreadable snapshot only costs cold misses
			logger.Warn("snapshot restore skipped", "error", err)
		}
		dumper = d
	}

	sw := sweeper.New(ctx, cfg.Sweep, logger, st)
	tel := telemetry.New(ctx, cfg, logger, st, sw)

	return &Cache{
		Store:   st,
		Sweeper: sw,
		Logger:  tel,
		cfg:     cfg,
		dumper:  dumper,
		logger:  logger,
		cls:     cancel,
	}, nil
}

// Close dumps a final snapshot when persistence is on, then stops the
// background workers. Idempotent: repeated calls neither dump again nor
// create another snapshot version.
func (c *Cache) Close() error {
	c.closing.Do(func() {
		if c.dumper != nil {
			if err := c.dumper.Dump(context.Background()); err != nil {
				c.logger.Warn("final snapshot failed", "error", err)
			}
		}
		c.cls()
	})
	return nil
}
