package sweeper

// NoOpSweeper is a no-op implementation of Sweeper used when the sweep
// section is absent. Expired entries are then reclaimed lazily on access.
type NoOpSweeper struct{}

// SweeperMetrics always returns zero values.
func (NoOpSweeper) SweeperMetrics() (scans, swept, errors int64) {
	return 0, 0, 0
}

// Close does nothing and returns nil.
func (NoOpSweeper) Close() error {
	return nil
}
