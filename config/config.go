package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalidCapacity is returned when the cache is constructed with a
	// non-positive capacity. The value is never clamped.
	ErrInvalidCapacity = errors.New("cache capacity must be a positive number of entries")

	// ErrInvalidTTL is returned when a TTL is zero or negative. A never-expiring
	// entry is an explicit call (SetPermanent), not a special duration value.
	ErrInvalidTTL = errors.New("ttl must be a positive duration")

	ErrInvalidSweepInterval = errors.New("sweep interval must be a positive duration")
	ErrInvalidSweepRate     = errors.New("sweep rate must be a positive number of removals per second")
)

// Cache groups configuration of all cache subsystems.
// Optional subsystems are disabled by leaving their section nil.
type Cache struct {
	DB DBCfg `yaml:"db"`

	// Sweep configures the background expiration sweeper.
	// If nil, expired entries are reclaimed lazily on access only.
	Sweep *SweepCfg `yaml:"sweep"`

	// Persistence configures snapshot dump/restore of live entries.
	// If nil, the cache starts empty and dumps nothing on shutdown.
	Persistence *PersistenceCfg `yaml:"persistence"`
}

type DBCfg struct {
	// Capacity is the maximum number of live entries. Inserting past it
	// evicts the least recently used entry. Required, must be positive.
	Capacity int64 `yaml:"capacity"`

	// DefaultTTL is applied by the cache-aside read path when it populates
	// the cache after a loader hit. Required, must be positive.
	DefaultTTL Duration `yaml:"default_ttl"`

	IsTelemetryLogsEnabled bool     `yaml:"stat_logs_enabled"`
	TelemetryLogsInterval  Duration `yaml:"stat_logs_interval"`
}

type SweepCfg struct {
	// Interval between sweep passes over the live entries.
	Interval Duration `yaml:"interval"`

	// Rate limits removals per second within a pass so that a large expired
	// backlog cannot monopolize the store lock.
	// Example: 1000.
	Rate int `yaml:"rate"`
}

func (cfg *SweepCfg) Enabled() bool {
	return cfg != nil
}

type PersistenceCfg struct {
	// Dir specifies the directory where cache dump files are stored.
	// Version subdirectories (v1, v2, ...) are created beneath it.
	Dir string `yaml:"dump_dir"`

	// Name defines the base name of the cache dump file.
	// The final file name may include extensions depending on configuration
	// (e.g., ".gz" when Gzip is enabled).
	Name string `yaml:"dump_name"`

	// Gzip enables gzip compression for cache dump files.
	Gzip bool `yaml:"gzip"`

	// Crc32Control writes a per-frame checksum and verifies it on load.
	// Corrupt frames are skipped rather than restored.
	Crc32Control bool `yaml:"crc32_control"`

	// MaxVersions bounds the number of retained dump versions.
	// Older versions are pruned after a successful dump. Zero keeps all.
	MaxVersions int `yaml:"max_versions"`
}

func (cfg *PersistenceCfg) Enabled() bool {
	return cfg != nil
}

// Validate fails fast on configuration errors. Nothing is clamped or defaulted
// silently: a zero capacity or TTL is a caller bug, not a hint.
func (cfg *Cache) Validate() error {
	if cfg.DB.Capacity <= 0 {
		return ErrInvalidCapacity
	}
	if cfg.DB.DefaultTTL <= 0 {
		return ErrInvalidTTL
	}
	if cfg.Sweep.Enabled() {
		if cfg.Sweep.Interval <= 0 {
			return ErrInvalidSweepInterval
		}
		if cfg.Sweep.Rate <= 0 {
			return ErrInvalidSweepRate
		}
	}
	return nil
}

func LoadConfig(path string) (*Cache, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat config path: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config yaml file %s: %w", path, err)
	}

	var cfg *Cache
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml from %s: %w", path, err)
	}
	if cfg == nil {
		// an empty or all-comments file unmarshals into nil
		return nil, fmt.Errorf("config yaml file %s is empty: %w", path, ErrInvalidCapacity)
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
