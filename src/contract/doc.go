// Package contract implements contract verification.
//
// Every output of a transaction names the contract that governs it. A Verifier
// holds the known contracts and runs, for a transaction and the bytes of its
// resolved attachments, each contract named by an output. Verification is pure:
// it depends only on its arguments, so both parties to a transaction reach the
// same verdict.
//
// AttachmentContract governs AgreementStates. It requires the transaction to
// carry a blacklist archive as its single attachment, and rejects agreements
// between parties named on that blacklist.
package contract
