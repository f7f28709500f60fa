// Package node implements the reactive component of an accord party.
//
// A Node owns the party's key, its attachment store and its ledger. It runs
// agreement flows as initiator, and answers the flows other parties start as
// responder.
//
// Agreement flow
//
// The initiator builds a transaction with a single AgreementState output, a
// reference to a blacklist attachment, and an Agree command listing both
// parties as signers. It verifies the transaction against its own copy of the
// attachment, signs, and sends a ProposeRequest to the counterparty.
//
// The responder checks that the proposal comes from a party in its peer-set
// and carries that party's signature. It resolves the attachments, first from
// its own store, then by sending a FetchAttachmentsRequest back to the
// initiator. Fetched bytes must hash to the requested id. The responder then
// runs the same contract verification. If verification fails, it replies with
// the contract and the reason, and drops the fetched attachments. Otherwise it
// signs and returns its signature, holding the fetched attachments until the
// flow is finalized.
//
// The initiator checks the signature and sends the fully signed transaction in
// a FinalizeRequest. The responder verifies again, imports the attachments and
// records the transaction. Then the initiator records it and the flow is
// Finalized.
//
// Verification failures and transport errors reject the flow. Nothing is
// retried.
//
// Every transition is recorded as a flow.Checkpoint, and counted in the node's
// Prometheus registry.
package node
