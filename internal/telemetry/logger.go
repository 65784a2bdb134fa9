package telemetry

import (
	"context"
	"log/slog"
	"time"

	"github.com/Borislavv/go-aside-cache/config"
	"github.com/Borislavv/go-aside-cache/internal/shared/bytes"
	"github.com/Borislavv/go-aside-cache/internal/store"
	"github.com/Borislavv/go-aside-cache/internal/sweeper"
)

type Logger interface {
	Interval() time.Duration
	Close() error
}

type Logs struct {
	ctx      context.Context
	cancel   context.CancelFunc
	cfg      *config.Cache
	logger   *slog.Logger
	store    *store.Store
	sweeper  sweeper.Sweeper
	interval time.Duration
}

func New(
	ctx context.Context,
	cfg *config.Cache,
	logger *slog.Logger,
	store *store.Store,
	sweeper sweeper.Sweeper,
) *Logs {
	ctx, cancel := context.WithCancel(ctx)
	return (&Logs{
		ctx:      ctx,
		cancel:   cancel,
		cfg:      cfg,
		logger:   logger,
		store:    store,
		sweeper:  sweeper,
		interval: cfg.DB.TelemetryLogsInterval.Std(),
	}).run()
}

func (l *Logs) Interval() time.Duration {
	return l.interval
}

func (l *Logs) Close() error {
	l.cancel()
	return nil
}

func (l *Logs) run() *Logs {
	if l.cfg != nil && l.cfg.DB.IsTelemetryLogsEnabled && l.interval > 0 {
		go l.loop()
	}
	return l
}

func (l *Logs) loop() {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	s := newSampler(l.store, l.sweeper)
	prev := s.snapshot()

	for {
		select {
		case <-l.ctx.Done():
			return

		case <-ticker.C:
			cur := s.snapshot()
			d := deltaSnapshot(prev, cur)
			prev = cur

			common := []any{"interval", l.interval.String()}

			l.logger.Info("store",
				append(common,
					"hits", int64(d.hits),
					"misses", int64(d.misses),
					"evictions", int64(d.evictions),
					"expirations", int64(d.expirations),
				)...,
			)

			if l.cfg.Sweep.Enabled() {
				l.logger.Info("sweeper",
					append(common,
						"scans", int64(d.sweepScans),
						"swept", int64(d.sweepSwept),
						"errors", int64(d.sweepErrors),
					)...,
				)
			}

			l.logger.Info("storage",
				append(common,
					"entries", l.store.Len(),
					"capacity", l.cfg.DB.Capacity,
					"size", bytes.FmtMem(uint64(max(l.store.Mem(), 0))),
				)...,
			)
		}
	}
}
