package peers

import (
	"bytes"
	"encoding/json"
	"strings"
)

// PeerSet is the static set of parties a node knows about. Parties outside the
// set cannot propose agreements to the node.
type PeerSet struct {
	Peers     []*Peer          `json:"peers"`
	ByPubKey  map[string]*Peer `json:"-"`
	ByMoniker map[string]*Peer `json:"-"`
}

// NewPeerSet creates a new PeerSet from a list of Peers
func NewPeerSet(peers []*Peer) *PeerSet {
	peerSet := &PeerSet{
		ByPubKey:  make(map[string]*Peer),
		ByMoniker: make(map[string]*Peer),
	}

	for _, peer := range peers {
		peerSet.ByPubKey[peer.PubKeyString()] = peer
		if peer.Moniker != "" {
			peerSet.ByMoniker[peer.Moniker] = peer
		}
	}

	peerSet.Peers = peers

	return peerSet
}

// WithNewPeer returns a new PeerSet with a list of peers including the new one.
func (peerSet *PeerSet) WithNewPeer(peer *Peer) *PeerSet {
	peers := append([]*Peer{}, peerSet.Peers...)

	if _, ok := peerSet.ByPubKey[peer.PubKeyString()]; !ok {
		peers = append(peers, peer)
	}

	return NewPeerSet(peers)
}

// PubKeys returns the PeerSet's slice of public keys
func (peerSet *PeerSet) PubKeys() []string {
	res := []string{}

	for _, peer := range peerSet.Peers {
		res = append(res, peer.PubKeyString())
	}

	return res
}

// Len returns the number of Peers in the PeerSet
func (peerSet *PeerSet) Len() int {
	return len(peerSet.ByPubKey)
}

// Lookup finds a peer by moniker or by public key.
func (peerSet *PeerSet) Lookup(ref string) (*Peer, bool) {
	if p, ok := peerSet.ByMoniker[ref]; ok {
		return p, true
	}
	p, ok := peerSet.ByPubKey[normalizePubKey(ref)]
	return p, ok
}

// Marshal marshals the peerset
func (peerSet *PeerSet) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if err := enc.Encode(peerSet.Peers); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func normalizePubKey(pub string) string {
	return "0X" + strings.TrimPrefix(strings.ToUpper(pub), "0X")
}
