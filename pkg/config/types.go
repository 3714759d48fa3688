package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent parley configuration stored as
// config.toml in the .parley/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version  int            `toml:"version"`
	Relay    RelayConfig    `toml:"relay"`
	Provider ProviderConfig `toml:"provider"`
	Client   ClientConfig   `toml:"client"`
}

// RelayConfig holds relay server settings.
type RelayConfig struct {
	Listen         string `toml:"listen,omitempty"`
	AllowedOrigins string `toml:"allowed_origins,omitempty"`
	SystemPrompt   string `toml:"system_prompt,omitempty"`
}

// ProviderConfig holds upstream LLM provider settings.
type ProviderConfig struct {
	BaseURL        string `toml:"base_url,omitempty"`
	Model          string `toml:"model,omitempty"`
	TimeoutSeconds int    `toml:"timeout_seconds,omitempty"`

	// APIKey is sourced from the PARLEY_PROVIDER_API_KEY environment
	// variable only. It is never written to the config file.
	APIKey string `toml:"-"`
}

// ClientConfig holds settings for the parley chat client.
type ClientConfig struct {
	RelayTarget string `toml:"relay_target,omitempty"`
	Model       string `toml:"model,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"relay.listen": {
		get: func(c *Config) string { return c.Relay.Listen },
		set: func(c *Config, v string) error { c.Relay.Listen = v; return nil },
	},
	"relay.allowed_origins": {
		get: func(c *Config) string { return c.Relay.AllowedOrigins },
		set: func(c *Config, v string) error { c.Relay.AllowedOrigins = v; return nil },
	},
	"relay.system_prompt": {
		get: func(c *Config) string { return c.Relay.SystemPrompt },
		set: func(c *Config, v string) error { c.Relay.SystemPrompt = v; return nil },
	},
	"provider.base_url": {
		get: func(c *Config) string { return c.Provider.BaseURL },
		set: func(c *Config, v string) error { c.Provider.BaseURL = v; return nil },
	},
	"provider.model": {
		get: func(c *Config) string { return c.Provider.Model },
		set: func(c *Config, v string) error { c.Provider.Model = v; return nil },
	},
	"provider.timeout_seconds": {
		get: func(c *Config) string {
			if c.Provider.TimeoutSeconds == 0 {
				return ""
			}
			return strconv.Itoa(c.Provider.TimeoutSeconds)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid value for provider.timeout_seconds: %q", v)
			}
			c.Provider.TimeoutSeconds = n
			return nil
		},
	},
	"client.relay_target": {
		get: func(c *Config) string { return c.Client.RelayTarget },
		set: func(c *Config, v string) error { c.Client.RelayTarget = v; return nil },
	},
	"client.model": {
		get: func(c *Config) string { return c.Client.Model },
		set: func(c *Config, v string) error { c.Client.Model = v; return nil },
	},
}
