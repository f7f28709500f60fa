package main

import (
	"os"

	cmd "github.com/mosaicnetworks/accord/cmd/accord/commands"
)

func main() {
	rootCmd := cmd.RootCmd

	rootCmd.AddCommand(
		cmd.VersionCmd,
		cmd.NewKeygenCmd(),
		cmd.NewRunCmd(),
		cmd.NewBlacklistCmd(),
		cmd.NewImportCmd(),
		cmd.NewProposeCmd(),
	)

	//Do not print usage when error occurs
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
