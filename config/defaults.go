package config

import "github.com/spf13/viper"

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.path", "continuum.db")

	// Bridge defaults (empty URL = no relay configured)
	v.SetDefault("bridge.url", "")
	v.SetDefault("bridge.api_key", "")

	// Agent defaults (empty base URL = no direct channel configured)
	v.SetDefault("agent.base_url", "")
	v.SetDefault("agent.api_key", "")

	// Scheduler defaults
	v.SetDefault("scheduler.tick_interval_seconds", 1)
	v.SetDefault("scheduler.debounce_seconds", 60)

	// Delivery defaults
	v.SetDefault("delivery.timeout_seconds", 30)
	v.SetDefault("delivery.simulation_enabled", true)
	v.SetDefault("delivery.journal_retention", 500)

	// Log defaults
	v.SetDefault("log.json", false)
}

// BindSensitiveEnvVars binds credential values to environment variables so
// they never have to live in the config file.
func BindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("bridge.api_key", "CONTINUUM_BRIDGE_API_KEY")
	v.BindEnv("agent.api_key", "CONTINUUM_AGENT_API_KEY")
}
