package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/parleyhq/parley/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the PARLEY_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (bound by the command that owns them)
//  2. Environment variables (PARLEY_RELAY_LISTEN, PARLEY_PROVIDER_API_KEY, ...)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: PARLEY_RELAY_LISTEN, PARLEY_PROVIDER_MODEL, etc.
	v.SetEnvPrefix("PARLEY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Relay
	v.SetDefault("relay.listen", d.Relay.Listen)
	v.SetDefault("relay.allowed_origins", d.Relay.AllowedOrigins)
	v.SetDefault("relay.system_prompt", d.Relay.SystemPrompt)

	// Provider
	v.SetDefault("provider.base_url", d.Provider.BaseURL)
	v.SetDefault("provider.model", d.Provider.Model)
	v.SetDefault("provider.timeout_seconds", d.Provider.TimeoutSeconds)
	// The credential has no file-backed default; it only ever arrives via
	// the PARLEY_PROVIDER_API_KEY environment variable.
	v.SetDefault("provider.api_key", "")

	// Client
	v.SetDefault("client.relay_target", d.Client.RelayTarget)
	v.SetDefault("client.model", d.Client.Model)
}
