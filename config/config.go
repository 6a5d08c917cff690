// Package config loads Continuum configuration from TOML files and
// CONTINUUM_* environment variables.
package config

import (
	"time"

	"github.com/jpetree331/continuum/errors"
)

// Config is the top-level Continuum configuration
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Bridge    BridgeConfig    `mapstructure:"bridge"`
	Agent     AgentConfig     `mapstructure:"agent"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Delivery  DeliveryConfig  `mapstructure:"delivery"`
	Log       LogConfig       `mapstructure:"log"`
}

// DatabaseConfig configures the SQLite database backing local persistence
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// BridgeConfig configures the relay bridge. An empty URL means no relay is
// configured: deliveries skip the relay tier and persistence stays local.
type BridgeConfig struct {
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"api_key"`
}

// Configured reports whether a relay bridge endpoint is set
func (c BridgeConfig) Configured() bool { return c.URL != "" }

// AgentConfig configures the direct agent channel (chat instance).
// It also travels through persistence as part of Settings, hence the JSON tags.
type AgentConfig struct {
	BaseURL string `mapstructure:"base_url" json:"base_url"`
	APIKey  string `mapstructure:"api_key" json:"api_key"`
}

// Configured reports whether a direct agent endpoint is set
func (c AgentConfig) Configured() bool { return c.BaseURL != "" }

// Settings is the runtime-adjustable slice of configuration that persists
// alongside the directive set, unlike Config which is read at startup.
type Settings struct {
	Agent AgentConfig `json:"agent"`
}

// SchedulerConfig configures the evaluation loop
type SchedulerConfig struct {
	TickIntervalSeconds int `mapstructure:"tick_interval_seconds"`
	DebounceSeconds     int `mapstructure:"debounce_seconds"`
}

// TickInterval returns the tick cadence as a duration
func (c SchedulerConfig) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalSeconds) * time.Second
}

// Debounce returns the specific-time re-fire suppression window
func (c SchedulerConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceSeconds) * time.Second
}

// DeliveryConfig configures the delivery chain
type DeliveryConfig struct {
	TimeoutSeconds    int  `mapstructure:"timeout_seconds"`
	SimulationEnabled bool `mapstructure:"simulation_enabled"`
	JournalRetention  int  `mapstructure:"journal_retention"` // max entries persisted locally
}

// Timeout returns the per-tier delivery timeout
func (c DeliveryConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LogConfig configures logging output
type LogConfig struct {
	JSON bool `mapstructure:"json"`
}

// Validate checks cross-field constraints.
// The minute-level debounce for specific-time directives only suppresses
// duplicate firings when the loop ticks at least once inside the matching
// minute, so the tick cadence must not exceed the debounce window.
func (c *Config) Validate() error {
	if c.Scheduler.TickIntervalSeconds <= 0 {
		return errors.New("scheduler.tick_interval_seconds must be positive")
	}
	if c.Scheduler.DebounceSeconds <= 0 {
		return errors.New("scheduler.debounce_seconds must be positive")
	}
	if c.Scheduler.TickIntervalSeconds > c.Scheduler.DebounceSeconds {
		return errors.Newf("scheduler.tick_interval_seconds (%d) must not exceed scheduler.debounce_seconds (%d)",
			c.Scheduler.TickIntervalSeconds, c.Scheduler.DebounceSeconds)
	}
	if c.Delivery.TimeoutSeconds <= 0 {
		return errors.New("delivery.timeout_seconds must be positive")
	}
	return nil
}
