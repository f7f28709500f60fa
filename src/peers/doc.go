// Package peers defines the parties a node knows about and how they are
// loaded from disk.
//
// A peer is identified by its public key. It also carries a moniker, the
// organisation name that appears in agreements and is checked against
// blacklists, and the network address where its transport can be reached.
//
// There is no discovery. Upon starting up, a node expects to find a peers.json
// file in its data directory listing every counterparty it may deal with,
// usually including itself.
package peers
