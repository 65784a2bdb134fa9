// Package sweeper bounds the memory held by expired entries nobody reads.
// It is a cleanup optimization only: the store's lazy check on access is the
// authoritative expiration mechanism, so a key the sweeper has not reached
// yet still reports a miss the moment its deadline passes.
package sweeper

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/Borislavv/go-aside-cache/config"
	"github.com/Borislavv/go-aside-cache/internal/shared/rate"
	"github.com/Borislavv/go-aside-cache/internal/store"
)

type Sweeper interface {
	SweeperMetrics() (scans, swept, errors int64)
	Close() error
}

type SweepWorker struct {
	ctx      context.Context
	cancel   context.CancelFunc
	cfg      *config.SweepCfg
	store    *store.Store
	logger   *slog.Logger
	jitter   *rate.Jitter
	counters *sweeperCounters
	invokeCh chan uint64
}

func New(
	ctx context.Context,
	cfg *config.SweepCfg,
	logger *slog.Logger,
	store *store.Store,
) Sweeper {
	if !cfg.Enabled() {
		return &NoOpSweeper{}
	}

	ctx, cancel := context.WithCancel(ctx)

	var sweepRate = cfg.Rate
	if sweepRate <= 0 {
		sweepRate = 1
	}

	return (&SweepWorker{
		ctx:      ctx,
		cancel:   cancel,
		cfg:      cfg,
		store:    store,
		logger:   logger,
		jitter:   rate.NewJitter(ctx, sweepRate),
		counters: newSweeperCounters(),
		invokeCh: make(chan uint64, sweepRate),
	}).run()
}

func (w *SweepWorker) SweeperMetrics() (scans, swept, errors int64) {
	return w.counters.snapshot()
}

// Close stops the tick loop. Idempotent: cancel may be called any number
// of times.
func (w *SweepWorker) Close() error {
	w.cancel()
	return nil
}

func (w *SweepWorker) run() *SweepWorker {
	w.logger.Info("sweeper is running", "interval", w.cfg.Interval.String(), "rate", w.cfg.Rate)

	go func() {
		defer w.logger.Info("sweeper is stopped")
		var wg sync.WaitGroup
		for i := 0; i <= runtime.GOMAXPROCS(0); i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				w.consumer()
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.provider()
		}()
		wg.Wait()
	}()

	return w
}

// provider scans on the fixed interval and hands expired keys to consumers,
// paced by the jitter so a large backlog cannot monopolize the store lock.
func (w *SweepWorker) provider() {
	tick := time.NewTicker(w.cfg.Interval.Std())
	defer tick.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-tick.C:
			w.sweepTick()
		}
	}
}

func (w *SweepWorker) sweepTick() {
	// A failing pass must not take down the tick loop or the host process.
	defer func() {
		if r := recover(); r != nil {
			w.counters.errors.Add(1)
			w.logger.Error("sweep pass failed", "panic", r)
		}
	}()

	if w.store.Len() == 0 {
		return
	}
	w.counters.scans.Add(1)

	for _, key := range w.store.ExpiredKeys(w.cfg.Rate) {
		w.jitter.Take()
		select {
		case <-w.ctx.Done():
			return
		case w.invokeCh <- key:
		}
	}
}

func (w *SweepWorker) consumer() {
	for {
		select {
		case <-w.ctx.Done():
			return
		case key := <-w.invokeCh:
			if w.store.SweepKey(key) {
				w.counters.swept.Add(1)
			}
		}
	}
}
