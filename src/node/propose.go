package node

import (
	"context"
	"errors"
	"fmt"

	"github.com/mosaicnetworks/accord/src/attachment"
	"github.com/mosaicnetworks/accord/src/contract"
	"github.com/mosaicnetworks/accord/src/flow"
	"github.com/mosaicnetworks/accord/src/ledger"
	"github.com/mosaicnetworks/accord/src/net"
	"github.com/mosaicnetworks/accord/src/peers"
)

// ProposeArgs are the parameters of an agreement flow.
type ProposeArgs struct {
	// Counterparty is the moniker or public key of a peer.
	Counterparty string
	Txt          string
	AttachmentID string
	// FlowID is optional. A random id is used when empty.
	FlowID string
}

// ErrUnknownPeer is returned when a flow names a party outside the peer-set.
var ErrUnknownPeer = errors.New("unknown peer")

// initiatorFlow carries the state of a flow through the steps of runInitiator.
type initiatorFlow struct {
	n            *Node
	h            *flow.Handle
	counterparty *peers.Peer
	stx          *ledger.SignedTransaction
}

func (f *initiatorFlow) advance(s flow.State) {
	f.h.Advance(s)
	f.n.checkpoint(f.checkpoint(s))
}

func (f *initiatorFlow) checkpoint(s flow.State) flow.Checkpoint {
	name := ""
	if f.counterparty != nil {
		name = f.counterparty.Moniker
	}
	return flow.NewCheckpoint(f.h.ID, flow.Initiator, s, name).WithTx(f.stx)
}

func (f *initiatorFlow) reject(reason string, err error) {
	f.n.metrics.flowsRejected.WithLabelValues(reason).Inc()
	f.n.checkpoint(f.checkpoint(flow.Rejected).WithError(err))
	f.h.Reject(err)
}

func (f *initiatorFlow) finalize() {
	f.n.metrics.flowsFinalized.Inc()
	f.n.checkpoint(f.checkpoint(flow.Finalized))
	f.h.Finalize(f.stx)
}

func (n *Node) runInitiator(ctx context.Context, h *flow.Handle, args ProposeArgs) {
	f := &initiatorFlow{n: n, h: h}

	n.checkpoint(f.checkpoint(flow.Initiated))

	counterparty, ok := n.getPeerSet().Lookup(args.Counterparty)
	if !ok {
		f.reject(reasonOther, fmt.Errorf("%w: %s", ErrUnknownPeer, args.Counterparty))
		return
	}
	if counterparty.PubKeyHex == n.validator.PublicKeyHex() {
		f.reject(reasonOther, fmt.Errorf("cannot propose an agreement to self"))
		return
	}
	f.counterparty = counterparty

	tx := contract.NewAgreementTransaction(n.validator.Party(), counterparty.Party(), args.Txt, args.AttachmentID)
	f.stx = ledger.NewSignedTransaction(tx)

	if err := n.verifier.Verify(tx, n.resolveLocal(tx)); err != nil {
		f.reject(reasonVerification, err)
		return
	}

	if err := f.stx.Sign(n.validator.Key); err != nil {
		f.reject(reasonSignature, err)
		return
	}
	f.advance(flow.Proposed)

	if err := n.registerOutgoing(h.ID, counterparty, tx); err != nil {
		f.reject(reasonOther, err)
		return
	}
	defer n.unregisterOutgoing(h.ID, counterparty)

	if err := ctx.Err(); err != nil {
		f.reject(reasonOther, err)
		return
	}

	f.advance(flow.CountersignRequested)

	resp, err := n.requestPropose(counterparty.NetAddr, h.ID, f.stx)
	if err != nil {
		f.reject(reasonTransport, err)
		return
	}

	if resp.Rejected {
		if resp.Contract != "" {
			txID, _ := tx.ID()
			f.reject(reasonVerification, &contract.VerificationError{
				Contract: resp.Contract,
				TxID:     txID,
				Reason:   resp.Reason,
			})
			return
		}
		f.reject(reasonOther, fmt.Errorf("%s rejected the proposal: %s", counterparty.Moniker, resp.Reason))
		return
	}

	if resp.Signature.By != counterparty.PubKeyHex {
		f.reject(reasonSignature, fmt.Errorf("expected a signature by %s, got one by %s", counterparty.PubKeyHex, resp.Signature.By))
		return
	}
	if err := f.stx.AddSignature(resp.Signature); err != nil {
		f.reject(reasonSignature, err)
		return
	}
	f.advance(flow.VerifiedByCounterparty)

	if err := f.stx.VerifyRequiredSignatures(); err != nil {
		f.reject(reasonSignature, err)
		return
	}

	if err := ctx.Err(); err != nil {
		f.reject(reasonOther, err)
		return
	}

	// the counterparty records first. A failed response leaves it unknown
	// whether it did, and this node records nothing.
	if _, err := n.requestFinalize(counterparty.NetAddr, h.ID, f.stx); err != nil {
		f.reject(reasonTransport, fmt.Errorf("finalizing with %s, which may have recorded the transaction: %v", counterparty.Moniker, err))
		return
	}

	if err := n.ledger.Record(f.stx); err != nil {
		f.reject(reasonLedger, err)
		return
	}

	f.finalize()
}

// resolveLocal returns the attachments of tx found in the node's store.
// Missing attachments are left out for the contract to report.
func (n *Node) resolveLocal(tx *ledger.Transaction) map[string][]byte {
	res := make(map[string][]byte)
	for _, id := range tx.Attachments {
		data, err := n.attachments.Open(id)
		if err != nil {
			if !attachment.IsNotFound(err) {
				n.logger.WithError(err).WithField("attachment", id).Error("Opening attachment")
			}
			continue
		}
		res[id] = data
	}
	return res
}

// registerOutgoing makes the attachments of tx available to counterparty for
// the duration of the flow. Only one flow per counterparty and flow id can be
// running.
func (n *Node) registerOutgoing(flowID string, counterparty *peers.Peer, tx *ledger.Transaction) error {
	key := flowKey(counterparty.PubKeyHex, flowID)

	n.outgoingLock.Lock()
	defer n.outgoingLock.Unlock()

	if _, ok := n.outgoing[key]; ok {
		return fmt.Errorf("flow %s with %s is already running", flowID, counterparty.Moniker)
	}
	n.outgoing[key] = &outgoingFlow{
		counterparty: counterparty,
		tx:           tx,
	}
	return nil
}

func (n *Node) unregisterOutgoing(flowID string, counterparty *peers.Peer) {
	n.outgoingLock.Lock()
	defer n.outgoingLock.Unlock()
	delete(n.outgoing, flowKey(counterparty.PubKeyHex, flowID))
}

func (n *Node) getOutgoing(counterparty string, flowID string) (*outgoingFlow, bool) {
	n.outgoingLock.RLock()
	defer n.outgoingLock.RUnlock()
	f, ok := n.outgoing[flowKey(counterparty, flowID)]
	return f, ok
}

func (n *Node) requestPropose(target string, flowID string, stx *ledger.SignedTransaction) (net.ProposeResponse, error) {
	args := net.ProposeRequest{
		FromPubKey: n.validator.PublicKeyHex(),
		FlowID:     flowID,
		Tx:         *stx,
	}

	var out net.ProposeResponse

	err := n.trans.Propose(target, &args, &out)

	return out, err
}

func (n *Node) requestFetchAttachments(target string, flowID string, ids []string) (net.FetchAttachmentsResponse, error) {
	args := net.FetchAttachmentsRequest{
		FromPubKey: n.validator.PublicKeyHex(),
		FlowID:     flowID,
		IDs:        ids,
	}

	var out net.FetchAttachmentsResponse

	err := n.trans.FetchAttachments(target, &args, &out)

	return out, err
}

func (n *Node) requestFinalize(target string, flowID string, stx *ledger.SignedTransaction) (net.FinalizeResponse, error) {
	args := net.FinalizeRequest{
		FromPubKey: n.validator.PublicKeyHex(),
		FlowID:     flowID,
		Tx:         *stx,
	}

	var out net.FinalizeResponse

	err := n.trans.Finalize(target, &args, &out)

	return out, err
}
