package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewImportCmd produces a command that uploads a file to the attachment store
// of a running node.
func NewImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "import [file]",
		Short:   "Import an attachment into a running node",
		Args:    cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlagsLoadViper(cmd)
		},
		RunE: importAttachment,
	}

	AddClientFlags(cmd)

	return cmd
}

func importAttachment(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	id, err := newClient().ImportAttachment(data)
	if err != nil {
		return err
	}

	fmt.Println(id)

	return nil
}
