package peers

import (
	"github.com/mosaicnetworks/accord/src/common"
	"github.com/mosaicnetworks/accord/src/ledger"
)

// Peer is a party of the network as seen from a node: its organisation name
// (moniker), the public key it signs with, and the address its transport
// listens on.
type Peer struct {
	NetAddr   string
	PubKeyHex string
	Moniker   string
}

// NewPeer is a factory method for creating a new Peer instance
func NewPeer(pubKeyHex, netAddr, moniker string) *Peer {
	return &Peer{
		PubKeyHex: pubKeyHex,
		NetAddr:   netAddr,
		Moniker:   moniker,
	}
}

// PubKeyString returns the upper-case version of PubKeyHex. It is used for
// indexing in maps with string keys.
func (p *Peer) PubKeyString() string {
	return p.PubKeyHex
}

// PubKeyBytes returns the public key bytes, or nil if PubKeyHex is malformed.
func (p *Peer) PubKeyBytes() []byte {
	b, err := common.DecodeFromString(p.PubKeyHex)
	if err != nil {
		return nil
	}
	return b
}

// Party returns the ledger identity of the peer.
func (p *Peer) Party() ledger.Party {
	return ledger.Party{
		Name:      p.Moniker,
		PubKeyHex: p.PubKeyHex,
	}
}
