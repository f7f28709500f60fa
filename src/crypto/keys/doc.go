// Package keys implements the public key cryptography used by accord parties.
//
// Every party owns an ECDSA key-pair on the secp256k1 curve. The public key,
// in its uncompressed form and hex-encoded, is the party's identity on the
// ledger: it appears in command signer lists and in the signatures collected
// on a transaction. The private key never leaves the node's data directory.
package keys
