package node

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/mosaicnetworks/accord/src/attachment"
	"github.com/mosaicnetworks/accord/src/contract"
	"github.com/mosaicnetworks/accord/src/flow"
	"github.com/mosaicnetworks/accord/src/ledger"
	"github.com/mosaicnetworks/accord/src/net"
	"github.com/mosaicnetworks/accord/src/peers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Node is an accord party: it runs agreement flows over a transport and
// records their outcome in its ledger.
type Node struct {
	state

	conf   *Config
	logger *logrus.Entry

	validator *Validator

	peersLock sync.RWMutex
	peers     *peers.PeerSet

	attachments attachment.Store
	ledger      ledger.Store
	verifier    *contract.Verifier

	trans net.Transport
	netCh <-chan net.RPC

	tracker *flow.Tracker
	metrics *Metrics

	// flows initiated by this node, by counterparty and flow id
	outgoingLock sync.RWMutex
	outgoing     map[string]*outgoingFlow

	// proposals this node co-signed and awaits the finalization of, by
	// initiator and flow id
	pendingLock sync.Mutex
	pending     map[string]*pendingFlow

	shutdownOnce sync.Once
	shutdownCh   chan struct{}

	start time.Time
}

type outgoingFlow struct {
	counterparty *peers.Peer
	tx           *ledger.Transaction
}

type pendingFlow struct {
	initiator   *peers.Peer
	txID        string
	attachments map[string][]byte
	timer       *time.Timer
}

// NewNode is a factory method that returns a Node instance
func NewNode(conf *Config,
	validator *Validator,
	peers *peers.PeerSet,
	attachments attachment.Store,
	ledger ledger.Store,
	verifier *contract.Verifier,
	trans net.Transport,
) *Node {
	if conf.Logger == nil {
		conf.Logger = DefaultConfig().Logger
	}

	return &Node{
		conf: conf,
		logger: conf.Logger.WithFields(logrus.Fields{
			"moniker": validator.Moniker,
		}),
		validator:   validator,
		peers:       peers,
		attachments: attachments,
		ledger:      ledger,
		verifier:    verifier,
		trans:       trans,
		netCh:       trans.Consumer(),
		tracker:     flow.NewTracker(),
		metrics:     NewMetrics(),
		outgoing:    make(map[string]*outgoingFlow),
		pending:     make(map[string]*pendingFlow),
		shutdownCh:  make(chan struct{}),
	}
}

// Init checks the node belongs to its own peer-set.
func (n *Node) Init() error {
	if _, ok := n.getPeerSet().ByPubKey[n.validator.PublicKeyHex()]; !ok {
		n.logger.Warn("Node does not belong to its own peer-set")
	}
	n.start = time.Now()
	n.setState(Running)
	return nil
}

// RunAsync calls Run as a separate thread
func (n *Node) RunAsync() {
	go n.Run()
}

// Run starts the transport listener and processes incoming RPC requests until
// the node is shut down. Each request is handled in its own goroutine.
func (n *Node) Run() {
	go n.trans.Listen()

	for {
		select {
		case rpc := <-n.netCh:
			n.goFunc(func() {
				n.processRPC(rpc)
			})
		case <-n.shutdownCh:
			return
		}
	}
}

// Shutdown stops the node, its transport, and closes its stores.
func (n *Node) Shutdown() {
	n.shutdownOnce.Do(func() {
		n.logger.Debug("Shutdown")

		n.setState(Shutdown)
		close(n.shutdownCh)

		if err := n.trans.Close(); err != nil {
			n.logger.WithError(err).Error("Closing transport")
		}

		n.waitRoutines()

		n.pendingLock.Lock()
		for id, p := range n.pending {
			p.timer.Stop()
			delete(n.pending, id)
		}
		n.pendingLock.Unlock()

		if err := n.attachments.Close(); err != nil {
			n.logger.WithError(err).Error("Closing attachment store")
		}
		if err := n.ledger.Close(); err != nil {
			n.logger.WithError(err).Error("Closing ledger")
		}
	})
}

// StartFlow starts an agreement flow with the node as initiator. The returned
// handle resolves when the flow is finalized or rejected. ctx bounds the
// flow, in addition to the configured flow timeout.
func (n *Node) StartFlow(ctx context.Context, args ProposeArgs) *flow.Handle {
	h := flow.NewHandle(args.FlowID)

	if n.getState() == Shutdown {
		h.Reject(net.ErrTransportShutdown)
		return h
	}

	n.metrics.flowsStarted.Inc()

	n.goFunc(func() {
		ctx, cancel := context.WithTimeout(ctx, n.conf.FlowTimeout)
		defer cancel()
		n.runInitiator(ctx, h, args)
	})

	return h
}

// Propose runs an agreement flow and waits for its outcome.
func (n *Node) Propose(ctx context.Context, args ProposeArgs) (*ledger.SignedTransaction, error) {
	return n.StartFlow(ctx, args).Result(ctx)
}

// QueryStates returns the unconsumed states of type t in the node's ledger.
func (n *Node) QueryStates(t ledger.StateType) ([]ledger.StateAndRef, error) {
	return n.ledger.Query(t)
}

// GetTransaction returns a recorded transaction.
func (n *Node) GetTransaction(id string) (*ledger.SignedTransaction, error) {
	return n.ledger.GetTransaction(id)
}

// Transactions returns all recorded transactions.
func (n *Node) Transactions() ([]*ledger.SignedTransaction, error) {
	return n.ledger.Transactions()
}

// ImportAttachment adds an attachment to the node's store.
func (n *Node) ImportAttachment(data []byte) (string, error) {
	return n.attachments.Import(data)
}

// OpenAttachment returns the bytes of a stored attachment.
func (n *Node) OpenAttachment(id string) ([]byte, error) {
	return n.attachments.Open(id)
}

// Checkpoints returns the last checkpoint of every flow the node took part in.
func (n *Node) Checkpoints() []flow.Checkpoint {
	return n.tracker.Latest()
}

// FlowHistory returns all the checkpoints of a flow.
func (n *Node) FlowHistory(flowID string) []flow.Checkpoint {
	return n.tracker.History(flowID)
}

// GetPeers returns the node's peer-set.
func (n *Node) GetPeers() []*peers.Peer {
	return n.getPeerSet().Peers
}

// AddPeer makes a new party known to the node.
func (n *Node) AddPeer(peer *peers.Peer) {
	n.peersLock.Lock()
	defer n.peersLock.Unlock()
	n.peers = n.peers.WithNewPeer(peer)
}

func (n *Node) getPeerSet() *peers.PeerSet {
	n.peersLock.RLock()
	defer n.peersLock.RUnlock()
	return n.peers
}

// GetParty returns the ledger identity of the node.
func (n *Node) GetParty() ledger.Party {
	return n.validator.Party()
}

// GetPubKey returns the node's public key in hex.
func (n *Node) GetPubKey() string {
	return n.validator.PublicKeyHex()
}

// GetState returns the node's state.
func (n *Node) GetState() State {
	return n.getState()
}

// Registry returns the Prometheus registry of the node's metrics.
func (n *Node) Registry() *prometheus.Registry {
	return n.metrics.Registry()
}

// Busy reports whether the node is processing RPCs or running flows.
func (n *Node) Busy() bool {
	return n.routines() > 0
}

// GetStats returns information about the node.
func (n *Node) GetStats() map[string]string {
	timeElapsed := time.Since(n.start)
	if n.start.IsZero() {
		timeElapsed = 0
	}

	n.pendingLock.Lock()
	pending := len(n.pending)
	n.pendingLock.Unlock()

	s := map[string]string{
		"moniker":       n.validator.Moniker,
		"pub_key":       n.validator.PublicKeyHex(),
		"state":         n.getState().String(),
		"transactions":  strconv.Itoa(n.ledger.Count()),
		"attachments":   strconv.Itoa(n.attachments.Count()),
		"active_flows":  strconv.Itoa(n.tracker.Active()),
		"pending_flows": strconv.Itoa(pending),
		"num_peers":     strconv.Itoa(n.getPeerSet().Len()),
		"time_elapsed":  strconv.FormatFloat(timeElapsed.Seconds(), 'f', 2, 64),
	}
	return s
}

func (n *Node) checkpoint(c flow.Checkpoint) {
	n.tracker.Checkpoint(c)

	n.logger.WithFields(logrus.Fields{
		"flow":         c.FlowID,
		"role":         c.Role.String(),
		"state":        c.State.String(),
		"tx":           c.TxID,
		"counterparty": c.Counterparty,
		"error":        c.Error,
	}).Debug("Checkpoint")
}
