// Package configcmder provides the config command for managing persistent
// parley configuration stored in the .parley/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent parley configuration.

Configuration is stored as config.toml in the .parley/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values.

Keys use dotted notation matching the TOML section structure:
  relay.listen, relay.allowed_origins, relay.system_prompt,
  provider.base_url, provider.model, provider.timeout_seconds,
  client.relay_target, client.model

The provider API key is deliberately not a config key; it is only read from
the PARLEY_PROVIDER_API_KEY environment variable.

Use subcommands to get, set, or list configuration values:
  parley config set <key> <value>    Set a configuration value
  parley config get <key>            Get a configuration value
  parley config list                 List all configuration values

Examples:
  parley config set provider.model gpt-4o
  parley config set relay.listen :9090
  parley config get client.relay_target
  parley config list`

const configShortDesc string = "Manage persistent parley configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
