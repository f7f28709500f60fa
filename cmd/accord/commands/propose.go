package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mosaicnetworks/accord/src/contract"
	"github.com/mosaicnetworks/accord/src/service"
	"github.com/spf13/cobra"
)

var (
	proposeCounterparty string
	proposeTxt          string
	proposeAttachment   string
	proposeFlowID       string
)

// NewProposeCmd produces a command that asks a running node to propose an
// agreement to a counterparty.
func NewProposeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "propose",
		Short:   "Propose an agreement through a running node",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlagsLoadViper(cmd)
		},
		RunE: propose,
	}

	AddClientFlags(cmd)

	cmd.Flags().StringVar(&proposeCounterparty, "counterparty", "", "Moniker or public key of the counterparty")
	cmd.Flags().StringVar(&proposeTxt, "txt", "", "Text of the agreement")
	cmd.Flags().StringVar(&proposeAttachment, "attachment", "", "Id of the blacklist attachment")
	cmd.Flags().StringVar(&proposeFlowID, "flow-id", "", "Optional flow id")
	cmd.MarkFlagRequired("counterparty")
	cmd.MarkFlagRequired("attachment")

	return cmd
}

func propose(cmd *cobra.Command, args []string) error {
	stx, err := newClient().ProposeAgreement(service.AgreementRequest{
		Counterparty: proposeCounterparty,
		Txt:          proposeTxt,
		AttachmentID: proposeAttachment,
		FlowID:       proposeFlowID,
	})
	if err != nil {
		if ve, ok := contract.AsVerificationError(err); ok {
			return fmt.Errorf("contract %s rejected the agreement: %s", ve.Contract, ve.Reason)
		}
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(stx)
}
