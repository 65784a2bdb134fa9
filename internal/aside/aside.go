// Package aside implements the cache-aside read/write contract on top of the
// store. The cache is an optimization here, never the system of record: a
// read falls back to the Loader on miss, a write goes to the Writer first
// and only then invalidates.
package aside

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Borislavv/go-aside-cache/config"
	"golang.org/x/sync/singleflight"
)

// ErrNotFound is the Loader's first-class "record does not exist" outcome.
// It propagates to the caller and is never cached.
var ErrNotFound = errors.New("record not found")

// Loader reads a record from the backing store. It must be safe to call
// concurrently and redundantly for the same key.
type Loader interface {
	Load(ctx context.Context, key string) ([]byte, error)
}

// LoaderFunc adapts a plain function to the Loader interface.
type LoaderFunc func(ctx context.Context, key string) ([]byte, error)

func (f LoaderFunc) Load(ctx context.Context, key string) ([]byte, error) {
	return f(ctx, key)
}

// Writer persists a record durably before returning nil.
type Writer interface {
	Persist(ctx context.Context, rec Record) error
}

// WriterFunc adapts a plain function to the Writer interface.
type WriterFunc func(ctx context.Context, rec Record) error

func (f WriterFunc) Persist(ctx context.Context, rec Record) error {
	return f(ctx, rec)
}

type Record struct {
	Key   string
	Value []byte
}

// Cacher is the narrow store surface the orchestrator needs.
type Cacher interface {
	Get(key string) ([]byte, bool)
	Set(key string, payload []byte, ttl time.Duration) error
	Delete(key string) bool
}

type Orchestrator struct {
	cache  Cacher
	loader Loader
	writer Writer
	ttl    time.Duration
	group  *singleflight.Group // nil: concurrent misses each load independently
	logger *slog.Logger
}

type Option func(*Orchestrator)

// WithCoalescing collapses concurrent loads of the same key into one
// in-flight call. The default keeps duplicate loads: at most one cached
// value, not at most one load.
func WithCoalescing() Option {
	return func(o *Orchestrator) {
		o.group = &singleflight.Group{}
	}
}

func New(cache Cacher, loader Loader, writer Writer, defaultTTL time.Duration, logger *slog.Logger, opts ...Option) (*Orchestrator, error) {
	if defaultTTL <= 0 {
		return nil, config.ErrInvalidTTL
	}
	o := &Orchestrator{
		cache:  cache,
		loader: loader,
		writer: writer,
		ttl:    defaultTTL,
		logger: logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Read returns the cached value or loads, caches and returns it. Loader
// failures and ErrNotFound pass through unchanged and leave the cache
// untouched: a failed load must never poison the cache.
func (o *Orchestrator) Read(ctx context.Context, key string) ([]byte, error) {
	if value, ok := o.cache.Get(key); ok {
		return value, nil
	}

	value, err := o.load(ctx, key)
	if err != nil {
		return nil, err
	}

	if err = o.cache.Set(key, value, o.ttl); err != nil {
		// the value is still good; the cache just didn't keep it
		o.logger.Warn("cache-aside populate failed", "key", key, "error", err)
	}
	return value, nil
}

// Write persists the record and then invalidates its cache slot. The order
// is strict: invalidating before a durable persist would let a concurrent
// reader repopulate the slot with pre-write data. On persist failure the
// slot stays as is: stale-but-not-wrong, since the store didn't change.
func (o *Orchestrator) Write(ctx context.Context, rec Record) error {
	if err := o.writer.Persist(ctx, rec); err != nil {
		return err
	}
	o.cache.Delete(rec.Key)
	return nil
}

func (o *Orchestrator) load(ctx context.Context, key string) ([]byte, error) {
	if o.group == nil {
		return o.loader.Load(ctx, key)
	}

	v, err, _ := o.group.Do(key, func() (any, error) {
		return o.loader.Load(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}
