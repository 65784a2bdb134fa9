package sweeper

import "sync/atomic"

type sweeperCounters struct {
	scans  atomic.Int64 // completed sweep passes
	swept  atomic.Int64 // entries physically removed by the sweeper
	errors atomic.Int64 // recovered pass failures
}

func newSweeperCounters() *sweeperCounters {
	return &sweeperCounters{
		scans:  atomic.Int64{},
		swept:  atomic.Int64{},
		errors: atomic.Int64{},
	}
}

func (c *sweeperCounters) snapshot() (scans, swept, errors int64) {
	return c.scans.Load(), c.swept.Load(), c.errors.Load()
}
