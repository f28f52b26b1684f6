package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Device    DeviceConfig    `yaml:"device"`
	Store     StoreConfig     `yaml:"store"`
	Sync      SyncConfig      `yaml:"sync"`
	Logger    LoggerConfig    `yaml:"logger"`
	Tracer    TracerConfig    `yaml:"tracer"`
	Dashboard DashboardConfig `yaml:"dashboard"`
}

// DeviceConfig holds BLE device settings.
//
// The UUIDs default to the PO60's vendor service; they are overridable for
// firmware revisions that move the characteristics.
type DeviceConfig struct {
	Address     string        `yaml:"address"`      // MAC, e.g. "AA:BB:CC:DD:EE:FF"
	NamePrefix  string        `yaml:"name_prefix"`  // scan fallback when no address is set
	ServiceUUID string        `yaml:"service_uuid"`
	WriteUUID   string        `yaml:"write_uuid"`
	NotifyUUID  string        `yaml:"notify_uuid"`
	ScanTimeout time.Duration `yaml:"scan_timeout"`
	IdleTimeout time.Duration `yaml:"idle_timeout"` // end collection after this gap without a measurement
	SyncTimeout time.Duration `yaml:"sync_timeout"` // hard cap on one sync
}

// StoreConfig holds measurement store settings.
type StoreConfig struct {
	Path      string        `yaml:"path"`
	Retention time.Duration `yaml:"retention"` // 0 = keep forever
}

// SyncConfig holds sync orchestration settings.
type SyncConfig struct {
	Schedule      string        `yaml:"schedule"`       // cron expression or "@every <dur>", watch mode only
	WriteInterval time.Duration `yaml:"write_interval"` // pacing between GATT command writes
	Breaker       BreakerConfig `yaml:"breaker"`
}

// BreakerConfig holds circuit breaker settings for device connections.
type BreakerConfig struct {
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`  // open-state duration before a half-open probe
	Interval    time.Duration `yaml:"interval"` // closed-state period for clearing failure counts
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// DashboardConfig holds TUI dashboard settings.
type DashboardConfig struct {
	HistoryLimit int `yaml:"history_limit"`
}

// defaultDataDir returns the persistent data directory under $HOME/.oxylog.
// Falls back to "./data" if $HOME cannot be determined.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(home, ".oxylog")
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	dataDir := defaultDataDir()
	return &Config{
		Device: DeviceConfig{
			NamePrefix:  "PO60",
			ServiceUUID: "0000ff00-0000-1000-8000-00805f9b34fb",
			WriteUUID:   "0000ff01-0000-1000-8000-00805f9b34fb",
			NotifyUUID:  "0000ff02-0000-1000-8000-00805f9b34fb",
			ScanTimeout: 10 * time.Second,
			IdleTimeout: 5 * time.Second,
			SyncTimeout: 60 * time.Second,
		},
		Store: StoreConfig{
			Path: filepath.Join(dataDir, "measurements.db"),
		},
		Sync: SyncConfig{
			Schedule:      "@every 1h",
			WriteInterval: 500 * time.Millisecond,
			Breaker: BreakerConfig{
				MaxFailures: 5,
				Timeout:     30 * time.Second,
				Interval:    60 * time.Second,
			},
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
		Dashboard: DashboardConfig{
			HistoryLimit: 50,
		},
	}
}

// Load reads a YAML config file and applies env var overrides.
// A missing file is not an error: defaults plus env overrides are used.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(cfg)
			if err := Validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnvOverrides maps OXYLOG_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OXYLOG_DEVICE_ADDRESS"); v != "" {
		cfg.Device.Address = v
	}
	if v := os.Getenv("OXYLOG_DEVICE_NAME_PREFIX"); v != "" {
		cfg.Device.NamePrefix = v
	}
	if v := os.Getenv("OXYLOG_DEVICE_SCAN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Device.ScanTimeout = d
		}
	}
	if v := os.Getenv("OXYLOG_DEVICE_IDLE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Device.IdleTimeout = d
		}
	}
	if v := os.Getenv("OXYLOG_DEVICE_SYNC_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Device.SyncTimeout = d
		}
	}
	if v := os.Getenv("OXYLOG_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("OXYLOG_STORE_RETENTION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			cfg.Store.Retention = d
		}
	}
	if v := os.Getenv("OXYLOG_SYNC_SCHEDULE"); v != "" {
		cfg.Sync.Schedule = v
	}
	if v := os.Getenv("OXYLOG_SYNC_WRITE_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Sync.WriteInterval = d
		}
	}
	if v := os.Getenv("OXYLOG_SYNC_BREAKER_MAX_FAILURES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Sync.Breaker.MaxFailures = uint32(n)
		}
	}
	if v := os.Getenv("OXYLOG_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("OXYLOG_LOGGER_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv("OXYLOG_LOGGER_OUTPUT"); v != "" {
		cfg.Logger.Output = v
	}
	if v := os.Getenv("OXYLOG_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("OXYLOG_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
	if v := os.Getenv("OXYLOG_DASHBOARD_HISTORY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Dashboard.HistoryLimit = n
		}
	}
}

// Render returns the config as YAML, for the dashboard config viewer.
func Render(cfg *Config) string {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return ""
	}
	return string(out)
}
