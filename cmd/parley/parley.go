// Package parleycmder
package parleycmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/parleyhq/parley/cmd/parley/chat"
	configcmder "github.com/parleyhq/parley/cmd/parley/config"
	servecmder "github.com/parleyhq/parley/cmd/parley/serve"
	versioncmder "github.com/parleyhq/parley/cmd/version"
)

const parleyLongDesc string = `Parley is a conversational chat relay.

Run the relay server with:
  parley serve         Run the relay server

Chat through a running relay with:
  parley chat          Start an interactive chat session

Manage configuration with:
  parley config set    Set a configuration value
  parley config get    Get a configuration value
  parley config list   List all configuration values`

const parleyShortDesc string = "Parley - Chat Relay"

func NewParleyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parley",
		Short: parleyShortDesc,
		Long:  parleyLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .parley/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
