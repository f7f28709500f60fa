package mocknet

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/mosaicnetworks/accord/src/attachment"
	"github.com/mosaicnetworks/accord/src/contract"
	"github.com/mosaicnetworks/accord/src/crypto/keys"
	"github.com/mosaicnetworks/accord/src/flow"
	"github.com/mosaicnetworks/accord/src/ledger"
	"github.com/mosaicnetworks/accord/src/net"
	"github.com/mosaicnetworks/accord/src/node"
	"github.com/mosaicnetworks/accord/src/peers"
	"github.com/sirupsen/logrus"
)

// Config parameterises a MockNetwork.
type Config struct {
	// Store is "inmem" or "badger". Badger stores live under DataDir.
	Store   string
	DataDir string
	// Trusted are the attachment ids every node's contract trusts. Empty
	// means any blacklist archive.
	Trusted []string
	// FlowTimeout bounds flows, and RPC waits of the simulated transport.
	FlowTimeout time.Duration
	Logger      *logrus.Entry
}

// DefaultConfig returns the configuration of an in-memory network.
func DefaultConfig() Config {
	return Config{
		Store:       "inmem",
		FlowTimeout: 10 * time.Second,
		Logger:      logrus.NewEntry(logrus.New()),
	}
}

type message struct {
	from   string
	target string
	rpc    net.RPC
}

// MockNetwork is a set of nodes connected by simulated transports.
type MockNetwork struct {
	conf Config

	l           sync.Mutex
	cond        *sync.Cond
	queue       []*message
	outstanding int
	activeFlows int

	nodes      []*MockNode
	transports map[string]*SimTransport
}

// MockNode is a node of a MockNetwork.
type MockNode struct {
	*node.Node
	Moniker string
	Peer    *peers.Peer

	network *MockNetwork
}

// NewMockNetwork ...
func NewMockNetwork(conf Config) *MockNetwork {
	if conf.Logger == nil {
		conf.Logger = DefaultConfig().Logger
	}
	if conf.FlowTimeout <= 0 {
		conf.FlowTimeout = DefaultConfig().FlowTimeout
	}
	if conf.Store == "" {
		conf.Store = "inmem"
	}

	n := &MockNetwork{
		conf:       conf,
		queue:      []*message{},
		nodes:      []*MockNode{},
		transports: make(map[string]*SimTransport),
	}
	n.cond = sync.NewCond(&n.l)
	return n
}

// CreateNode adds a node with a fresh key. Every node of the network knows
// every other.
func (n *MockNetwork) CreateNode(moniker string) (*MockNode, error) {
	key, err := keys.GenerateECDSAKey()
	if err != nil {
		return nil, err
	}

	addr := fmt.Sprintf("mock://%s", moniker)
	peer := peers.NewPeer(keys.PublicKeyHex(&key.PublicKey), addr, moniker)

	trans := newSimTransport(n, addr, n.conf.FlowTimeout)

	n.l.Lock()
	if _, ok := n.transports[addr]; ok {
		n.l.Unlock()
		return nil, fmt.Errorf("node %s already exists", moniker)
	}
	n.transports[addr] = trans
	existing := append([]*MockNode{}, n.nodes...)
	n.l.Unlock()

	attachments, ledgerStore, err := n.newStores(moniker)
	if err != nil {
		n.l.Lock()
		delete(n.transports, addr)
		n.l.Unlock()
		return nil, err
	}

	peerSlice := []*peers.Peer{peer}
	for _, m := range existing {
		peerSlice = append(peerSlice, m.Peer)
	}

	conf := node.NewConfig(n.conf.FlowTimeout, n.conf.Logger.WithField("node", moniker))

	nd := node.NewNode(
		conf,
		node.NewValidator(key, moniker),
		peers.NewPeerSet(peerSlice),
		attachments,
		ledgerStore,
		contract.NewVerifier(contract.NewAttachmentContract(n.conf.Trusted...)),
		trans,
	)
	if err := nd.Init(); err != nil {
		return nil, err
	}
	nd.RunAsync()

	for _, m := range existing {
		m.AddPeer(peer)
	}

	mn := &MockNode{
		Node:    nd,
		Moniker: moniker,
		Peer:    peer,
		network: n,
	}

	n.l.Lock()
	n.nodes = append(n.nodes, mn)
	n.l.Unlock()

	return mn, nil
}

// CreateSomeNodes creates count nodes named PartyA, PartyB, ...
func (n *MockNetwork) CreateSomeNodes(count int) ([]*MockNode, error) {
	res := []*MockNode{}
	for i := 0; i < count; i++ {
		m, err := n.CreateNode(fmt.Sprintf("Party%c", 'A'+len(n.Nodes())))
		if err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, nil
}

// Nodes returns the nodes of the network in order of creation.
func (n *MockNetwork) Nodes() []*MockNode {
	n.l.Lock()
	defer n.l.Unlock()
	return append([]*MockNode{}, n.nodes...)
}

func (n *MockNetwork) newStores(moniker string) (attachment.Store, ledger.Store, error) {
	switch n.conf.Store {
	case "inmem":
		return attachment.NewInmemStore(), ledger.NewInmemStore(), nil
	case "badger":
		logger := n.conf.Logger.WithField("node", moniker)
		dir := filepath.Join(n.conf.DataDir, moniker)

		attachments, err := attachment.NewBadgerStore(filepath.Join(dir, "attachments"), 0, logger)
		if err != nil {
			return nil, nil, err
		}
		ledgerStore, err := ledger.NewBadgerStore(filepath.Join(dir, "ledger"), 0, logger)
		if err != nil {
			attachments.Close()
			return nil, nil, err
		}
		return attachments, ledgerStore, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", n.conf.Store)
	}
}

func (n *MockNetwork) enqueue(m *message) {
	n.l.Lock()
	defer n.l.Unlock()
	n.queue = append(n.queue, m)
	n.outstanding++
	n.cond.Broadcast()
}

func (n *MockNetwork) responded() {
	n.l.Lock()
	defer n.l.Unlock()
	n.outstanding--
	n.cond.Broadcast()
}

func (n *MockNetwork) flowStarted() {
	n.l.Lock()
	defer n.l.Unlock()
	n.activeFlows++
}

func (n *MockNetwork) flowDone() {
	n.l.Lock()
	defer n.l.Unlock()
	n.activeFlows--
	n.cond.Broadcast()
}

// RunNetwork delivers queued requests until the network is idle.
func (n *MockNetwork) RunNetwork() {
	for {
		n.l.Lock()
		for len(n.queue) == 0 && (n.outstanding > 0 || n.activeFlows > 0) {
			n.cond.Wait()
		}
		if len(n.queue) == 0 {
			n.l.Unlock()
			return
		}
		batch := n.queue
		n.queue = []*message{}
		n.l.Unlock()

		for _, m := range batch {
			n.deliver(m)
		}
	}
}

func (n *MockNetwork) deliver(m *message) {
	n.l.Lock()
	trans, ok := n.transports[m.target]
	n.l.Unlock()

	n.conf.Logger.WithFields(logrus.Fields{
		"from":    m.from,
		"target":  m.target,
		"command": fmt.Sprintf("%T", m.rpc.Command),
	}).Debug("Deliver")

	if !ok {
		m.rpc.Respond(nil, fmt.Errorf("failed to connect to peer: %v", m.target))
		return
	}
	trans.deliver(m.rpc)
}

// StopNodes shuts every node down.
func (n *MockNetwork) StopNodes() {
	for _, m := range n.Nodes() {
		m.Shutdown()
	}
}

// StartFlow starts an agreement flow from the node. The network is not idle
// until the flow is resolved.
func (m *MockNode) StartFlow(ctx context.Context, args node.ProposeArgs) *flow.Handle {
	m.network.flowStarted()

	h := m.Node.StartFlow(ctx, args)

	go func() {
		<-h.Done()
		m.network.flowDone()
	}()

	return h
}
