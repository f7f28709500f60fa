package net

import (
	"github.com/mosaicnetworks/accord/src/ledger"
)

// ProposeRequest asks the counterparty to verify and co-sign a transaction
// that already carries the initiator's signature.
type ProposeRequest struct {
	FromPubKey string
	FlowID     string
	Tx         ledger.SignedTransaction
}

// ProposeResponse carries either the counterparty's signature or the reason it
// rejected the proposal. A rejection by contract verification names the
// contract.
type ProposeResponse struct {
	FromPubKey string
	Signature  ledger.TxSignature
	Rejected   bool
	Contract   string
	Reason     string
}

// FetchAttachmentsRequest asks the initiator of a flow for the bytes of
// attachments referenced by the proposed transaction.
type FetchAttachmentsRequest struct {
	FromPubKey string
	FlowID     string
	IDs        []string
}

// FetchAttachmentsResponse maps attachment ids to their bytes. The requester
// must check every blob against its id.
type FetchAttachmentsResponse struct {
	FromPubKey  string
	Attachments map[string][]byte
}

// FinalizeRequest sends the fully signed transaction to the counterparty.
type FinalizeRequest struct {
	FromPubKey string
	FlowID     string
	Tx         ledger.SignedTransaction
}

// FinalizeResponse confirms the counterparty recorded the transaction.
type FinalizeResponse struct {
	FromPubKey string
	Recorded   bool
}
