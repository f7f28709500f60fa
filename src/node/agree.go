package node

import (
	"fmt"
	"strings"
	"time"

	"github.com/mosaicnetworks/accord/src/attachment"
	"github.com/mosaicnetworks/accord/src/contract"
	"github.com/mosaicnetworks/accord/src/flow"
	"github.com/mosaicnetworks/accord/src/ledger"
	"github.com/mosaicnetworks/accord/src/net"
	"github.com/mosaicnetworks/accord/src/peers"
	"github.com/sirupsen/logrus"
)

func (n *Node) processProposeRequest(rpc net.RPC, cmd *net.ProposeRequest) {
	n.logger.WithFields(logrus.Fields{
		"from": cmd.FromPubKey,
		"flow": cmd.FlowID,
	}).Debug("process ProposeRequest")

	resp := &net.ProposeResponse{
		FromPubKey: n.validator.PublicKeyHex(),
	}

	initiator, ok := n.getPeerSet().ByPubKey[cmd.FromPubKey]
	if !ok {
		rpc.Respond(resp, fmt.Errorf("%w: %s", ErrUnknownPeer, cmd.FromPubKey))
		return
	}

	key := flowKey(initiator.PubKeyHex, cmd.FlowID)
	if n.hasPending(key) {
		rpc.Respond(resp, fmt.Errorf("flow %s from %s is already pending", cmd.FlowID, initiator.Moniker))
		return
	}

	stx, err := cmd.Tx.Copy()
	if err != nil {
		rpc.Respond(resp, err)
		return
	}

	cp := flow.NewCheckpoint(cmd.FlowID, flow.Responder, flow.CountersignRequested, initiator.Moniker).WithTx(stx)
	n.checkpoint(cp)

	reject := func(reason string, err error) {
		n.metrics.flowsRejected.WithLabelValues(reason).Inc()
		n.checkpoint(cp.WithState(flow.Rejected).WithError(err))

		resp.Rejected = true
		if ve, ok := contract.AsVerificationError(err); ok {
			resp.Contract = ve.Contract
			resp.Reason = ve.Reason
		} else {
			resp.Reason = err.Error()
		}
		rpc.Respond(resp, nil)
	}

	if err := n.checkProposal(initiator, stx); err != nil {
		reject(reasonSignature, err)
		return
	}

	resolved, fetched, err := n.resolveAttachments(initiator, cmd.FlowID, stx.Tx)
	if err != nil {
		reject(reasonTransport, err)
		return
	}

	if err := n.verifier.Verify(stx.Tx, resolved); err != nil {
		// fetched attachments are dropped with the flow
		reject(reasonVerification, err)
		return
	}

	if err := stx.Sign(n.validator.Key); err != nil {
		reject(reasonSignature, err)
		return
	}
	sig, _ := stx.SignatureBy(n.validator.PublicKeyHex())

	if err := n.addPending(cmd.FlowID, initiator, cp.TxID, fetched); err != nil {
		reject(reasonOther, err)
		return
	}

	n.checkpoint(cp.WithState(flow.VerifiedByCounterparty).WithTx(stx))

	resp.Signature = sig
	rpc.Respond(resp, nil)
}

// checkProposal verifies that the initiator signed stx, that every signature
// present is valid, and that this node is a required signer. Agreement outputs
// must name the initiator as PartyA and this node as PartyB.
func (n *Node) checkProposal(initiator *peers.Peer, stx *ledger.SignedTransaction) error {
	self := n.validator.Party()

	for i, out := range stx.Tx.Outputs {
		if out.Agreement == nil {
			continue
		}
		if !sameParty(out.Agreement.PartyA, initiator.Party()) {
			return fmt.Errorf("output %d names %s as PartyA but was proposed by %s", i, out.Agreement.PartyA, initiator.Moniker)
		}
		if !sameParty(out.Agreement.PartyB, self) {
			return fmt.Errorf("output %d names %s as PartyB instead of %s", i, out.Agreement.PartyB, self)
		}
	}

	if _, ok := stx.SignatureBy(initiator.PubKeyHex); !ok {
		return fmt.Errorf("proposal is not signed by %s", initiator.Moniker)
	}

	required := false
	for _, s := range stx.Tx.RequiredSigners() {
		if s == self.PubKeyHex {
			required = true
			break
		}
	}
	if !required {
		return fmt.Errorf("%s is not a required signer", n.validator.Moniker)
	}

	return stx.VerifySignaturesExcept(self.PubKeyHex)
}

func sameParty(a, b ledger.Party) bool {
	return a.Name == b.Name && strings.EqualFold(a.PubKeyHex, b.PubKeyHex)
}

// resolveAttachments opens the attachments of tx from the local store and
// fetches the missing ones from the initiator. It returns all resolved
// attachments and, separately, the fetched ones. Fetched bytes that do not
// match their id are an error.
func (n *Node) resolveAttachments(initiator *peers.Peer, flowID string, tx *ledger.Transaction) (map[string][]byte, map[string][]byte, error) {
	resolved := n.resolveLocal(tx)
	fetched := make(map[string][]byte)

	missing := []string{}
	for _, id := range tx.Attachments {
		if _, ok := resolved[id]; !ok {
			missing = append(missing, id)
		}
	}

	if len(missing) == 0 {
		return resolved, fetched, nil
	}

	n.logger.WithFields(logrus.Fields{
		"flow":    flowID,
		"missing": missing,
	}).Debug("Fetching attachments")

	resp, err := n.requestFetchAttachments(initiator.NetAddr, flowID, missing)
	if err != nil {
		return nil, nil, err
	}

	for _, id := range missing {
		data, ok := resp.Attachments[id]
		if !ok {
			continue
		}
		if err := attachment.Check(id, data); err != nil {
			return nil, nil, err
		}
		resolved[id] = data
		fetched[id] = data
	}

	return resolved, fetched, nil
}

// flowKey identifies a flow by the public key of the remote party and the flow
// id. Flow ids are chosen by initiators, so they are only unique per peer.
func flowKey(pubKey string, flowID string) string {
	return pubKey + "/" + flowID
}

func (n *Node) hasPending(key string) bool {
	n.pendingLock.Lock()
	defer n.pendingLock.Unlock()
	_, ok := n.pending[key]
	return ok
}

// addPending keeps a countersigned proposal until it is finalized or expires.
// A proposal already pending under the same initiator and flow id is never
// replaced.
func (n *Node) addPending(flowID string, initiator *peers.Peer, txID string, fetched map[string][]byte) error {
	key := flowKey(initiator.PubKeyHex, flowID)

	n.pendingLock.Lock()
	defer n.pendingLock.Unlock()

	if _, ok := n.pending[key]; ok {
		return fmt.Errorf("flow %s from %s is already pending", flowID, initiator.Moniker)
	}

	n.pending[key] = &pendingFlow{
		initiator:   initiator,
		txID:        txID,
		attachments: fetched,
		timer: time.AfterFunc(n.conf.FlowTimeout, func() {
			n.expirePending(key, flowID, txID)
		}),
	}
	return nil
}

// takePending removes and returns the pending flow if it matches the
// transaction and its initiator.
func (n *Node) takePending(flowID string, txID string, from string) (*pendingFlow, bool) {
	key := flowKey(from, flowID)

	n.pendingLock.Lock()
	defer n.pendingLock.Unlock()

	p, ok := n.pending[key]
	if !ok || p.txID != txID {
		return nil, false
	}
	p.timer.Stop()
	delete(n.pending, key)
	return p, true
}

func (n *Node) expirePending(key string, flowID string, txID string) {
	n.pendingLock.Lock()
	p, ok := n.pending[key]
	if !ok || p.txID != txID {
		n.pendingLock.Unlock()
		return
	}
	delete(n.pending, key)
	n.pendingLock.Unlock()

	n.metrics.flowsRejected.WithLabelValues(reasonOther).Inc()

	cp := flow.NewCheckpoint(flowID, flow.Responder, flow.Rejected, p.initiator.Moniker)
	cp.TxID = txID
	n.checkpoint(cp.WithError(fmt.Errorf("not finalized within %v", n.conf.FlowTimeout)))
}

func (n *Node) processFinalizeRequest(rpc net.RPC, cmd *net.FinalizeRequest) {
	n.logger.WithFields(logrus.Fields{
		"from": cmd.FromPubKey,
		"flow": cmd.FlowID,
	}).Debug("process FinalizeRequest")

	resp := &net.FinalizeResponse{
		FromPubKey: n.validator.PublicKeyHex(),
	}

	stx, err := cmd.Tx.Copy()
	if err != nil {
		rpc.Respond(resp, err)
		return
	}

	txID, err := stx.ID()
	if err != nil {
		rpc.Respond(resp, err)
		return
	}

	p, ok := n.takePending(cmd.FlowID, txID, cmd.FromPubKey)
	if !ok {
		rpc.Respond(resp, fmt.Errorf("no pending proposal for flow %s and transaction %s", cmd.FlowID, txID))
		return
	}

	cp := flow.NewCheckpoint(cmd.FlowID, flow.Responder, flow.VerifiedByCounterparty, p.initiator.Moniker).WithTx(stx)

	fail := func(reason string, err error) {
		n.metrics.flowsRejected.WithLabelValues(reason).Inc()
		n.checkpoint(cp.WithState(flow.Rejected).WithError(err))
		rpc.Respond(resp, err)
	}

	if err := stx.VerifyRequiredSignatures(); err != nil {
		fail(reasonSignature, err)
		return
	}

	resolved := n.resolveLocal(stx.Tx)
	for id, data := range p.attachments {
		resolved[id] = data
	}

	if err := n.verifier.Verify(stx.Tx, resolved); err != nil {
		fail(reasonVerification, err)
		return
	}

	for id, data := range p.attachments {
		if _, err := n.attachments.Import(data); err != nil {
			fail(reasonLedger, fmt.Errorf("importing attachment %s: %v", id, err))
			return
		}
	}

	if err := n.ledger.Record(stx); err != nil {
		fail(reasonLedger, err)
		return
	}

	n.metrics.flowsFinalized.Inc()
	n.checkpoint(cp.WithState(flow.Finalized))

	resp.Recorded = true
	rpc.Respond(resp, nil)
}

func (n *Node) processFetchAttachmentsRequest(rpc net.RPC, cmd *net.FetchAttachmentsRequest) {
	n.logger.WithFields(logrus.Fields{
		"from": cmd.FromPubKey,
		"flow": cmd.FlowID,
		"ids":  cmd.IDs,
	}).Debug("process FetchAttachmentsRequest")

	resp := &net.FetchAttachmentsResponse{
		FromPubKey:  n.validator.PublicKeyHex(),
		Attachments: make(map[string][]byte),
	}

	out, ok := n.getOutgoing(cmd.FromPubKey, cmd.FlowID)
	if !ok {
		rpc.Respond(resp, fmt.Errorf("no flow %s with %s", cmd.FlowID, cmd.FromPubKey))
		return
	}

	referenced := make(map[string]bool)
	for _, id := range out.tx.Attachments {
		referenced[id] = true
	}

	for _, id := range cmd.IDs {
		if !referenced[id] {
			rpc.Respond(resp, fmt.Errorf("attachment %s is not referenced by flow %s", id, cmd.FlowID))
			return
		}
		data, err := n.attachments.Open(id)
		if err != nil {
			if attachment.IsNotFound(err) {
				continue
			}
			rpc.Respond(resp, err)
			return
		}
		resp.Attachments[id] = data
	}

	rpc.Respond(resp, nil)
}
