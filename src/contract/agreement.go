package contract

import (
	"fmt"

	"github.com/mosaicnetworks/accord/src/ledger"
)

const (
	// AttachmentContractName is the name AgreementState outputs are governed by.
	AttachmentContractName = "AttachmentContract"
	// AgreeCommand is the command of an agreement proposal.
	AgreeCommand = "Agree"
)

// AttachmentContract governs AgreementStates. When Trusted is not empty, the
// blacklist attachment must be one of the listed ids.
type AttachmentContract struct {
	Trusted map[string]bool
}

// NewAttachmentContract creates an AttachmentContract trusting the given
// attachment ids. With no ids, any attachment carrying a blacklist is
// accepted.
func NewAttachmentContract(trusted ...string) *AttachmentContract {
	c := &AttachmentContract{
		Trusted: make(map[string]bool),
	}
	for _, id := range trusted {
		c.Trusted[id] = true
	}
	return c
}

// Name implements Contract
func (c *AttachmentContract) Name() string {
	return AttachmentContractName
}

// Verify implements Contract. Rules are checked in order and the first broken
// one is reported.
func (c *AttachmentContract) Verify(tx *ledger.Transaction, attachments map[string][]byte) error {
	fail := func(format string, args ...interface{}) error {
		return &VerificationError{
			Contract: AttachmentContractName,
			Reason:   fmt.Sprintf(format, args...),
		}
	}

	if len(tx.Inputs) != 0 {
		return fail("there should be no inputs, got %d", len(tx.Inputs))
	}

	if len(tx.Outputs) != 1 {
		return fail("there should be exactly one output, got %d", len(tx.Outputs))
	}
	agreement, ok := tx.Outputs[0].Data().(*ledger.AgreementState)
	if !ok || tx.Outputs[0].Type != ledger.AgreementStateType {
		return fail("the output should be an AgreementState, got %s", tx.Outputs[0].Type)
	}

	if len(tx.Commands) != 1 {
		return fail("there should be exactly one command, got %d", len(tx.Commands))
	}
	command := tx.Commands[0]
	if command.Name != AgreeCommand {
		return fail("the command should be %s, got %s", AgreeCommand, command.Name)
	}

	if tx.TimeWindow != nil {
		return fail("there should be no time window")
	}

	signers := make(map[string]bool)
	for _, s := range command.Signers {
		signers[s] = true
	}
	for _, p := range agreement.Participants() {
		if !signers[p.PubKeyHex] {
			return fail("%s should be a signer", p.Name)
		}
	}

	if len(tx.Attachments) != 1 {
		return fail("there should be exactly one attachment, got %d", len(tx.Attachments))
	}
	id := tx.Attachments[0]
	archive, ok := attachments[id]
	if !ok {
		return fail("attachment %s could not be resolved", id)
	}

	if len(c.Trusted) > 0 && !c.Trusted[id] {
		return fail("attachment %s is not a trusted blacklist", id)
	}

	blacklist, err := ReadBlacklist(archive)
	if err != nil {
		return fail("%v", err)
	}

	banned := make(map[string]bool)
	for _, name := range blacklist {
		banned[name] = true
	}
	for _, p := range agreement.Participants() {
		if banned[p.Name] {
			return fail("%s is blacklisted", p.Name)
		}
	}

	return nil
}

// NewAgreementTransaction builds the unsigned proposal of an agreement between
// a and b, supported by the blacklist attachment attachmentID.
func NewAgreementTransaction(a, b ledger.Party, txt string, attachmentID string) *ledger.Transaction {
	state := &ledger.AgreementState{
		PartyA: a,
		PartyB: b,
		Txt:    txt,
	}

	return ledger.NewTransaction().
		AddOutput(ledger.NewAgreementOutput(AttachmentContractName, state)).
		AddAttachment(attachmentID).
		AddCommand(ledger.Command{
			Name:    AgreeCommand,
			Signers: []string{a.PubKeyHex, b.PubKeyHex},
		})
}
