package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validCfg() *Cache {
	return &Cache{
		DB: DBCfg{
			Capacity:   100,
			DefaultTTL: Duration(time.Minute),
		},
	}
}

// TestCache_Validate_InvalidCapacity fails fast instead of clamping.
func TestCache_Validate_InvalidCapacity(t *testing.T) {
	cfg := validCfg()
	cfg.DB.Capacity = 0
	require.ErrorIs(t, cfg.Validate(), ErrInvalidCapacity)

	cfg.DB.Capacity = -5
	require.ErrorIs(t, cfg.Validate(), ErrInvalidCapacity)
}

// TestCache_Validate_InvalidTTL rejects a non-positive default TTL.
func TestCache_Validate_InvalidTTL(t *testing.T) {
	cfg := validCfg()
	cfg.DB.DefaultTTL = 0
	require.ErrorIs(t, cfg.Validate(), ErrInvalidTTL)

	cfg.DB.DefaultTTL = Duration(-time.Second)
	require.ErrorIs(t, cfg.Validate(), ErrInvalidTTL)
}

// TestCache_Validate_SweepSection checks the optional sweep settings.
func TestCache_Validate_SweepSection(t *testing.T) {
	cfg := validCfg()
	cfg.Sweep = &SweepCfg{Interval: 0, Rate: 10}
	require.ErrorIs(t, cfg.Validate(), ErrInvalidSweepInterval)

	cfg.Sweep = &SweepCfg{Interval: Duration(time.Second), Rate: 0}
	require.ErrorIs(t, cfg.Validate(), ErrInvalidSweepRate)

	cfg.Sweep = &SweepCfg{Interval: Duration(time.Second), Rate: 10}
	require.NoError(t, cfg.Validate())

	cfg.Sweep = nil
	require.NoError(t, cfg.Validate())
}

// TestLoadConfig_Yaml parses human-readable durations and nil sections.
func TestLoadConfig_Yaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
db:
  capacity: 10000
  default_ttl: 60s
  stat_logs_enabled: true
  stat_logs_interval: 5s
sweep:
  interval: 30s
  rate: 1000
persistence:
  dump_dir: /var/cache/aside
  dump_name: aside
  gzip: true
  crc32_control: true
  max_versions: 3
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, int64(10000), cfg.DB.Capacity)
	require.Equal(t, time.Minute, cfg.DB.DefaultTTL.Std())
	require.True(t, cfg.DB.IsTelemetryLogsEnabled)
	require.Equal(t, 5*time.Second, cfg.DB.TelemetryLogsInterval.Std())

	require.True(t, cfg.Sweep.Enabled())
	require.Equal(t, 30*time.Second, cfg.Sweep.Interval.Std())
	require.Equal(t, 1000, cfg.Sweep.Rate)

	require.True(t, cfg.Persistence.Enabled())
	require.Equal(t, "/var/cache/aside", cfg.Persistence.Dir)
	require.Equal(t, 3, cfg.Persistence.MaxVersions)
}

// TestLoadConfig_OptionalSectionsAbsent leaves nil sections disabled.
func TestLoadConfig_OptionalSectionsAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
db:
  capacity: 2
  default_ttl: 1m
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.False(t, cfg.Sweep.Enabled())
	require.False(t, cfg.Persistence.Enabled())
}

// TestLoadConfig_InvalidValues surfaces validation errors at load time.
func TestLoadConfig_InvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
db:
  capacity: 0
  default_ttl: 60s
`), 0o644))

	_, err := LoadConfig(path)
	require.ErrorIs(t, err, ErrInvalidCapacity)
}

// TestLoadConfig_EmptyFile rejects a file that unmarshals into nothing
// instead of panicking on validation.
func TestLoadConfig_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.yaml")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))

	_, err := LoadConfig(path)
	require.ErrorIs(t, err, ErrInvalidCapacity)

	require.NoError(t, os.WriteFile(path, []byte("# everything commented out\n"), 0o644))
	_, err = LoadConfig(path)
	require.ErrorIs(t, err, ErrInvalidCapacity)
}

// TestLoadConfig_MissingFile reports the stat failure.
func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
