package commands

import (
	"github.com/mosaicnetworks/accord/src/config"
)

//CLIConfig contains configuration for the commands
type CLIConfig struct {
	Accord config.Config `mapstructure:",squash"`

	// Node is the base URL of the HTTP service of a running node, used by
	// the client commands.
	Node string `mapstructure:"node"`
}

//NewDefaultCLIConfig creates a CLIConfig with default values
func NewDefaultCLIConfig() *CLIConfig {
	return &CLIConfig{
		Accord: *config.NewDefaultConfig(),
		Node:   "http://" + config.DefaultServiceAddr,
	}
}
