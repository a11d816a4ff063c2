// Package config provides configuration management for gotrap.
package config

import (
	"github.com/victoralfred/gotrap/observability"
	"github.com/victoralfred/gotrap/pool"
)

// Config is the main configuration for gotrap.
type Config struct {
	Telemetry observability.TelemetryConfig `yaml:"telemetry"`
	Audit     observability.AuditConfig     `yaml:"audit"`
	Pool      pool.Config                   `yaml:"pool"`
	Guard     GuardConfig                   `yaml:"guard"`
}

// GuardConfig configures the guard.
type GuardConfig struct {
	// CaptureRegisters toggles register snapshot capture on faults.
	CaptureRegisters bool `yaml:"capture_registers"`

	// EnableMetrics wires the in-process metrics recorder.
	EnableMetrics bool `yaml:"enable_metrics"`

	// EnableTracing wires OpenTelemetry spans around guarded calls.
	EnableTracing bool `yaml:"enable_tracing"`

	// EnableAudit wires the fault audit log.
	EnableAudit bool `yaml:"enable_audit"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Guard: GuardConfig{
			CaptureRegisters: true,
			EnableMetrics:    true,
			EnableTracing:    true,
			EnableAudit:      true,
		},
		Pool:      pool.DefaultConfig(),
		Telemetry: observability.DefaultTelemetryConfig(),
		Audit:     observability.DefaultAuditConfig(),
	}
}

// DevelopmentConfig returns configuration suitable for development.
func DevelopmentConfig() Config {
	cfg := DefaultConfig()
	cfg.Audit.LogLevel = observability.AuditLogAll
	cfg.Audit.MaxEventsPerSecond = 1000
	cfg.Audit.Burst = 2000
	return cfg
}

// ProductionConfig returns configuration suitable for production.
func ProductionConfig() Config {
	cfg := DefaultConfig()
	cfg.Audit.LogLevel = observability.AuditLogFaults
	cfg.Audit.MaxEventsPerSecond = 50
	cfg.Audit.Burst = 100
	cfg.Pool.BackpressureStrategy = pool.StrategyReject
	return cfg
}

// Validate validates the configuration, fixing up out-of-range values.
func (c *Config) Validate() error {
	if c.Pool.Workers <= 0 {
		c.Pool.Workers = 1
	}

	if c.Pool.QueueSize <= 0 {
		c.Pool.QueueSize = c.Pool.Workers * 16
	}

	if c.Audit.MaxEventsPerSecond <= 0 {
		c.Audit.MaxEventsPerSecond = 50
	}

	return nil
}
