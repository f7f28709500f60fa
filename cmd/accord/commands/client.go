package commands

import (
	"time"

	"github.com/mosaicnetworks/accord/src/service"
	"github.com/spf13/cobra"
)

// AddClientFlags adds the flags of the commands that call a running node.
func AddClientFlags(cmd *cobra.Command) {
	cmd.Flags().String("datadir", _config.Accord.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().StringP("node", "n", _config.Node, "URL of the HTTP service of the node")
	cmd.Flags().Duration("flow-timeout", _config.Accord.FlowTimeout, "Timeout of agreement flows")
}

func newClient() *service.Client {
	// leave the node time to answer after its own flow timeout
	return service.NewClient(_config.Node, _config.Accord.FlowTimeout+5*time.Second)
}
