package config

import (
	"fmt"
	"net"
	"regexp"
	"strings"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// when one or more problems are found, allowing callers to inspect all issues.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateDevice(cfg, ve)
	validateStore(cfg, ve)
	validateSync(cfg, ve)
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	validateDashboard(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

var uuidPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

func validateDevice(cfg *Config, ve *ValidationError) {
	if cfg.Device.Address != "" {
		if _, err := net.ParseMAC(cfg.Device.Address); err != nil {
			ve.Add("device.address %q is not a valid MAC address", cfg.Device.Address)
		}
	}
	if cfg.Device.Address == "" && cfg.Device.NamePrefix == "" {
		ve.Add("one of device.address or device.name_prefix must be set")
	}
	for name, u := range map[string]string{
		"device.service_uuid": cfg.Device.ServiceUUID,
		"device.write_uuid":   cfg.Device.WriteUUID,
		"device.notify_uuid":  cfg.Device.NotifyUUID,
	} {
		if !uuidPattern.MatchString(u) {
			ve.Add("%s %q is not a valid 128-bit UUID", name, u)
		}
	}
	if cfg.Device.ScanTimeout <= 0 {
		ve.Add("device.scan_timeout must be > 0")
	}
	if cfg.Device.IdleTimeout <= 0 {
		ve.Add("device.idle_timeout must be > 0")
	}
	if cfg.Device.SyncTimeout <= 0 {
		ve.Add("device.sync_timeout must be > 0")
	}
	if cfg.Device.SyncTimeout > 0 && cfg.Device.IdleTimeout > cfg.Device.SyncTimeout {
		ve.Add("device.idle_timeout must not exceed device.sync_timeout")
	}
}

func validateStore(cfg *Config, ve *ValidationError) {
	if cfg.Store.Path == "" {
		ve.Add("store.path is required")
	}
	if cfg.Store.Retention < 0 {
		ve.Add("store.retention must be >= 0")
	}
}

func validateSync(cfg *Config, ve *ValidationError) {
	if cfg.Sync.Schedule == "" {
		ve.Add("sync.schedule is required")
	}
	if cfg.Sync.WriteInterval <= 0 {
		ve.Add("sync.write_interval must be > 0")
	}
	if cfg.Sync.Breaker.MaxFailures == 0 {
		ve.Add("sync.breaker.max_failures must be > 0")
	}
	if cfg.Sync.Breaker.Timeout <= 0 {
		ve.Add("sync.breaker.timeout must be > 0")
	}
}

func validateLogger(cfg *Config, ve *ValidationError) {
	switch strings.ToLower(cfg.Logger.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		ve.Add("logger.level %q is not one of debug, info, warn, error", cfg.Logger.Level)
	}
	switch strings.ToLower(cfg.Logger.Format) {
	case "text", "json":
	default:
		ve.Add("logger.format %q is not one of text, json", cfg.Logger.Format)
	}
}

func validateTracer(cfg *Config, ve *ValidationError) {
	if !cfg.Tracer.Enabled {
		return
	}
	switch cfg.Tracer.Exporter {
	case "stdout", "noop", "":
	default:
		ve.Add("tracer.exporter %q is not one of stdout, noop", cfg.Tracer.Exporter)
	}
}

func validateDashboard(cfg *Config, ve *ValidationError) {
	if cfg.Dashboard.HistoryLimit <= 0 {
		ve.Add("dashboard.history_limit must be > 0")
	}
}
