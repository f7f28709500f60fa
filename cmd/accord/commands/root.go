package commands

import (
	"github.com/spf13/cobra"
)

var (
	_config = NewDefaultCLIConfig()
)

//RootCmd is the root command for accord
var RootCmd = &cobra.Command{
	Use:              "accord",
	Short:            "two-party agreements with attachment-gated contracts",
	TraverseChildren: true,
}
