// Package ledger defines the transaction data model and the vault in which a
// party records the transactions it is a participant of.
//
// A Transaction consumes input states (referenced by StateRef) and produces
// output states. It references attachments by content hash and carries the
// commands whose signers must all sign before the transaction is valid. The id
// of a transaction is the SHA256 hash of its canonical JSON encoding, so
// signatures cover every field. A random salt distinguishes otherwise identical
// proposals.
//
// A Store records SignedTransactions. Recording is idempotent, atomic, and
// rejects double spends. Unconsumed states can be queried by type, in the order
// they were recorded.
package ledger
