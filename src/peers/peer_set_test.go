package peers

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/mosaicnetworks/accord/src/crypto/keys"
)

func initPeers(t *testing.T, n int) []*Peer {
	res := []*Peer{}
	for i := 0; i < n; i++ {
		key, err := keys.GenerateECDSAKey()
		if err != nil {
			t.Fatal(err)
		}
		res = append(res, NewPeer(
			keys.PublicKeyHex(&key.PublicKey),
			fmt.Sprintf("127.0.0.1:%d", 1337+i),
			fmt.Sprintf("Party%c", 'A'+i),
		))
	}
	return res
}

func TestJSONPeerSet(t *testing.T) {
	dir := t.TempDir()
	store := NewJSONPeerSet(dir)

	if _, err := store.PeerSet(); err == nil {
		t.Fatalf("reading a missing peers.json should fail")
	}

	peers := initPeers(t, 3)
	if err := store.Write(peers); err != nil {
		t.Fatal(err)
	}

	peerSet, err := store.PeerSet()
	if err != nil {
		t.Fatal(err)
	}

	if peerSet.Len() != 3 {
		t.Fatalf("expected 3 peers, got %d", peerSet.Len())
	}

	for i, p := range peerSet.Peers {
		if !reflect.DeepEqual(*p, *peers[i]) {
			t.Fatalf("peer %d: got %#v, want %#v", i, *p, *peers[i])
		}
	}
}

func TestPeerSetLookup(t *testing.T) {
	peers := initPeers(t, 2)
	peerSet := NewPeerSet(peers)

	if p, ok := peerSet.Lookup("PartyB"); !ok || p != peers[1] {
		t.Fatalf("lookup by moniker failed")
	}

	lower := "0x" + peers[0].PubKeyHex[2:]
	if p, ok := peerSet.Lookup(lower); !ok || p != peers[0] {
		t.Fatalf("lookup by public key failed")
	}

	if _, ok := peerSet.Lookup("PartyZ"); ok {
		t.Fatalf("PartyZ should not be found")
	}

	party := peers[0].Party()
	if party.Name != "PartyA" || party.PubKeyHex != peers[0].PubKeyHex {
		t.Fatalf("unexpected party %#v", party)
	}

	more := peerSet.WithNewPeer(peers[0])
	if more.Len() != 2 {
		t.Fatalf("adding an existing peer should not grow the set")
	}
}
