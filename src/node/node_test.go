package node

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/mosaicnetworks/accord/src/attachment"
	"github.com/mosaicnetworks/accord/src/contract"
	"github.com/mosaicnetworks/accord/src/crypto/keys"
	"github.com/mosaicnetworks/accord/src/flow"
	"github.com/mosaicnetworks/accord/src/ledger"
	"github.com/mosaicnetworks/accord/src/net"
	"github.com/mosaicnetworks/accord/src/peers"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

const agreementTxt = "A and B agree Corda is awesome"

// initNodes creates n connected nodes named PartyA, PartyB, ... over in-memory
// transports. trusted configures the attachment contract of every node.
func initNodes(t *testing.T, n int, trusted ...string) []*Node {
	validators := []*Validator{}
	peerSlice := []*peers.Peer{}
	transports := []*net.InmemTransport{}

	for i := 0; i < n; i++ {
		key, err := keys.GenerateECDSAKey()
		if err != nil {
			t.Fatal(err)
		}
		moniker := fmt.Sprintf("Party%c", 'A'+i)
		addr, trans := net.NewInmemTransport("", time.Second)

		validators = append(validators, NewValidator(key, moniker))
		peerSlice = append(peerSlice, peers.NewPeer(keys.PublicKeyHex(&key.PublicKey), addr, moniker))
		transports = append(transports, trans)
	}

	for _, t1 := range transports {
		for _, t2 := range transports {
			t1.Connect(t2.LocalAddr(), t2)
		}
	}

	peerSet := peers.NewPeerSet(peerSlice)

	nodes := []*Node{}
	for i := 0; i < n; i++ {
		node := NewNode(
			TestConfig(t),
			validators[i],
			peerSet,
			attachment.NewInmemStore(),
			ledger.NewInmemStore(),
			contract.NewVerifier(contract.NewAttachmentContract(trusted...)),
			transports[i],
		)
		if err := node.Init(); err != nil {
			t.Fatal(err)
		}
		node.RunAsync()
		nodes = append(nodes, node)
	}

	t.Cleanup(func() {
		for _, n := range nodes {
			n.Shutdown()
		}
	})

	return nodes
}

func importArchive(t *testing.T, n *Node, names ...string) string {
	archive, err := contract.NewBlacklistArchive(names)
	if err != nil {
		t.Fatal(err)
	}
	id, err := n.ImportAttachment(archive)
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func propose(t *testing.T, a *Node, b *Node, attachmentID string) (*ledger.SignedTransaction, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return a.Propose(ctx, ProposeArgs{
		Counterparty: b.GetParty().Name,
		Txt:          agreementTxt,
		AttachmentID: attachmentID,
	})
}

func checkRecorded(t *testing.T, n *Node, stx *ledger.SignedTransaction, attachmentID string) {
	id, _ := stx.ID()

	recorded, err := n.GetTransaction(id)
	if err != nil {
		t.Fatalf("%s: %v", n.GetParty().Name, err)
	}
	if err := recorded.VerifyRequiredSignatures(); err != nil {
		t.Fatalf("%s: %v", n.GetParty().Name, err)
	}
	if len(recorded.Tx.Inputs) != 0 || len(recorded.Tx.Outputs) != 1 {
		t.Fatalf("%s: expected 0 inputs and 1 output", n.GetParty().Name)
	}
	if len(recorded.Tx.Attachments) != 1 || recorded.Tx.Attachments[0] != attachmentID {
		t.Fatalf("%s: expected the single attachment %s, got %v", n.GetParty().Name, attachmentID, recorded.Tx.Attachments)
	}

	states, err := n.QueryStates(ledger.AgreementStateType)
	if err != nil {
		t.Fatal(err)
	}
	if len(states) != 1 {
		t.Fatalf("%s: expected 1 AgreementState, got %d", n.GetParty().Name, len(states))
	}
}

func TestProposeAgreement(t *testing.T) {
	nodes := initNodes(t, 2)
	a, b := nodes[0], nodes[1]

	h1 := importArchive(t, a, "Crossland Savings", "TCF National Bank Wisconsin")

	stx, err := propose(t, a, b, h1)
	if err != nil {
		t.Fatal(err)
	}

	for _, n := range nodes {
		checkRecorded(t, n, stx, h1)
	}

	agreement := stx.Tx.Outputs[0].Agreement
	if agreement.PartyA != a.GetParty() || agreement.PartyB != b.GetParty() || agreement.Txt != agreementTxt {
		t.Fatalf("unexpected agreement %v", agreement)
	}

	data, err := b.OpenAttachment(h1)
	if err != nil {
		t.Fatalf("B should have received the attachment: %v", err)
	}
	if _, err := contract.ReadBlacklist(data); err != nil {
		t.Fatal(err)
	}

	if got := testutil.ToFloat64(a.metrics.flowsFinalized); got != 1 {
		t.Fatalf("A finalized %v flows", got)
	}
	if got := testutil.ToFloat64(b.metrics.flowsFinalized); got != 1 {
		t.Fatalf("B finalized %v flows", got)
	}
}

func TestCheckpoints(t *testing.T) {
	nodes := initNodes(t, 2)
	a, b := nodes[0], nodes[1]

	h1 := importArchive(t, a, "Crossland Savings")

	h := a.StartFlow(context.Background(), ProposeArgs{
		Counterparty: "PartyB",
		Txt:          agreementTxt,
		AttachmentID: h1,
		FlowID:       "flow-1",
	})
	if _, err := h.Result(context.Background()); err != nil {
		t.Fatal(err)
	}
	if h.State() != flow.Finalized {
		t.Fatalf("expected Finalized, got %s", h.State())
	}

	expected := []flow.State{
		flow.Initiated,
		flow.Proposed,
		flow.CountersignRequested,
		flow.VerifiedByCounterparty,
		flow.Finalized,
	}
	history := a.FlowHistory("flow-1")
	if len(history) != len(expected) {
		t.Fatalf("expected %d checkpoints, got %d", len(expected), len(history))
	}
	for i, cp := range history {
		if cp.State != expected[i] || cp.Role != flow.Initiator {
			t.Fatalf("checkpoint %d: got %s/%s, want %s", i, cp.Role, cp.State, expected[i])
		}
	}

	responder := b.FlowHistory("flow-1")
	if len(responder) == 0 || responder[len(responder)-1].State != flow.Finalized {
		t.Fatalf("responder should end Finalized, got %v", responder)
	}
}

func TestProposeNonCompliantAttachment(t *testing.T) {
	nodes := initNodes(t, 2)
	a, b := nodes[0], nodes[1]

	// a jar without blacklist.txt
	incorrect, err := contract.NewArchive(map[string][]byte{"readme.txt": []byte("hello")})
	if err != nil {
		t.Fatal(err)
	}
	h2, err := a.ImportAttachment(incorrect)
	if err != nil {
		t.Fatal(err)
	}

	_, err = propose(t, a, b, h2)
	if !contract.IsVerificationError(err) {
		t.Fatalf("expected a VerificationError, got %v", err)
	}

	for _, n := range nodes {
		if n.ledger.Count() != 0 {
			t.Fatalf("%s recorded a rejected transaction", n.GetParty().Name)
		}
	}
	if b.attachments.Has(h2) {
		t.Fatalf("B should never receive the rejected attachment")
	}
}

func TestProposeBlacklistedParty(t *testing.T) {
	nodes := initNodes(t, 2)
	a, b := nodes[0], nodes[1]

	h := importArchive(t, a, "PartyB")

	_, err := propose(t, a, b, h)
	ve, ok := contract.AsVerificationError(err)
	if !ok {
		t.Fatalf("expected a VerificationError, got %v", err)
	}
	if ve.Contract != contract.AttachmentContractName {
		t.Fatalf("unexpected contract %s", ve.Contract)
	}
}

func TestCounterpartyRejects(t *testing.T) {
	nodes := initNodes(t, 2)
	a, b := nodes[0], nodes[1]

	h1 := importArchive(t, a, "Crossland Savings")

	// B only trusts another blacklist
	b.verifier.Register(contract.NewAttachmentContract("0000"))

	_, err := propose(t, a, b, h1)
	ve, ok := contract.AsVerificationError(err)
	if !ok {
		t.Fatalf("expected a VerificationError, got %v", err)
	}
	if ve.Contract != contract.AttachmentContractName {
		t.Fatalf("unexpected contract %s", ve.Contract)
	}

	for _, n := range nodes {
		if n.ledger.Count() != 0 {
			t.Fatalf("%s recorded a rejected transaction", n.GetParty().Name)
		}
	}
	if b.attachments.Has(h1) {
		t.Fatalf("B should discard attachments of a rejected flow")
	}

	latest := b.Checkpoints()
	if len(latest) != 1 || latest[0].State != flow.Rejected || latest[0].Role != flow.Responder {
		t.Fatalf("unexpected responder checkpoints %v", latest)
	}
}

func TestProposeToUnknownParty(t *testing.T) {
	nodes := initNodes(t, 2)
	a := nodes[0]

	h1 := importArchive(t, a, "Crossland Savings")

	_, err := a.Propose(context.Background(), ProposeArgs{
		Counterparty: "PartyZ",
		Txt:          agreementTxt,
		AttachmentID: h1,
	})
	if err == nil {
		t.Fatalf("expected an error")
	}
}

func TestFinalizeWithoutProposal(t *testing.T) {
	nodes := initNodes(t, 2)
	a, b := nodes[0], nodes[1]

	h1 := importArchive(t, a, "Crossland Savings")

	tx := contract.NewAgreementTransaction(a.GetParty(), b.GetParty(), agreementTxt, h1)
	stx := ledger.NewSignedTransaction(tx)
	if err := stx.Sign(a.validator.Key); err != nil {
		t.Fatal(err)
	}

	if _, err := a.requestFinalize(b.trans.LocalAddr(), "unknown-flow", stx); err == nil {
		t.Fatalf("finalizing without a proposal should fail")
	}
	if b.ledger.Count() != 0 {
		t.Fatalf("B should not record an unproposed transaction")
	}
}

func TestFetchAttachmentsOutsideFlow(t *testing.T) {
	nodes := initNodes(t, 2)
	a, b := nodes[0], nodes[1]

	h1 := importArchive(t, a, "Crossland Savings")

	if _, err := b.requestFetchAttachments(a.trans.LocalAddr(), "no-flow", []string{h1}); err == nil {
		t.Fatalf("attachments should only be served within a flow")
	}
}

func TestSequentialAgreements(t *testing.T) {
	nodes := initNodes(t, 3)
	a, b, c := nodes[0], nodes[1], nodes[2]

	h1 := importArchive(t, a, "Crossland Savings")

	if _, err := propose(t, a, b, h1); err != nil {
		t.Fatal(err)
	}
	if _, err := propose(t, a, c, h1); err != nil {
		t.Fatal(err)
	}

	states, err := a.QueryStates(ledger.AgreementStateType)
	if err != nil {
		t.Fatal(err)
	}
	if len(states) != 2 {
		t.Fatalf("A should hold 2 agreements, got %d", len(states))
	}
	if states[0].State.Agreement.PartyB.Name != "PartyB" || states[1].State.Agreement.PartyB.Name != "PartyC" {
		t.Fatalf("states out of order")
	}

	for _, n := range []*Node{b, c} {
		states, _ := n.QueryStates(ledger.AgreementStateType)
		if len(states) != 1 {
			t.Fatalf("%s should hold 1 agreement, got %d", n.GetParty().Name, len(states))
		}
	}

	if a.GetStats()["transactions"] != "2" {
		t.Fatalf("unexpected stats %v", a.GetStats())
	}
}

func TestProposalMustNameItsParties(t *testing.T) {
	nodes := initNodes(t, 3)
	a, b, c := nodes[0], nodes[1], nodes[2]

	h1 := importArchive(t, a, "PartyA")
	importArchive(t, b, "PartyA")

	impostor := a.GetParty()
	impostor.Name = "Innocent"

	cases := map[string]*ledger.Transaction{
		"renamed initiator": contract.NewAgreementTransaction(impostor, b.GetParty(), agreementTxt, h1),
		"other initiator":   contract.NewAgreementTransaction(c.GetParty(), b.GetParty(), agreementTxt, h1),
		"other responder":   contract.NewAgreementTransaction(a.GetParty(), c.GetParty(), agreementTxt, h1),
	}

	for name, tx := range cases {
		t.Run(name, func(t *testing.T) {
			stx := ledger.NewSignedTransaction(tx)
			if err := stx.Sign(a.validator.Key); err != nil {
				t.Fatal(err)
			}

			resp, err := a.requestPropose(b.trans.LocalAddr(), name, stx)
			if err != nil {
				t.Fatal(err)
			}
			if !resp.Rejected {
				t.Fatalf("B countersigned a proposal with the wrong parties")
			}
			if resp.Signature.Signature != "" {
				t.Fatalf("a rejected proposal should carry no signature")
			}
		})
	}

	if b.GetStats()["pending_flows"] != "0" {
		t.Fatalf("rejected proposals should not be pending, stats %v", b.GetStats())
	}
	if b.ledger.Count() != 0 {
		t.Fatalf("B should not record anything")
	}
}

func TestSameFlowIDFromDifferentInitiators(t *testing.T) {
	nodes := initNodes(t, 3)
	a, b, c := nodes[0], nodes[1], nodes[2]

	ha := importArchive(t, a, "Crossland Savings")
	hc := importArchive(t, c, "TCF National Bank Wisconsin")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fromA := a.StartFlow(ctx, ProposeArgs{
		Counterparty: "PartyB",
		Txt:          "A and B agree",
		AttachmentID: ha,
		FlowID:       "same",
	})
	fromC := c.StartFlow(ctx, ProposeArgs{
		Counterparty: "PartyB",
		Txt:          "C and B agree",
		AttachmentID: hc,
		FlowID:       "same",
	})

	for _, h := range []*flow.Handle{fromA, fromC} {
		if _, err := h.Result(ctx); err != nil {
			t.Fatal(err)
		}
	}

	states, err := b.QueryStates(ledger.AgreementStateType)
	if err != nil {
		t.Fatal(err)
	}
	if len(states) != 2 {
		t.Fatalf("B should hold 2 agreements, got %d", len(states))
	}

	initiators := map[string]bool{}
	for _, s := range states {
		initiators[s.State.Agreement.PartyA.Name] = true
	}
	if !initiators["PartyA"] || !initiators["PartyC"] {
		t.Fatalf("unexpected agreements %v", states)
	}
}

func TestPendingProposalIsNotReplaced(t *testing.T) {
	nodes := initNodes(t, 2)
	a, b := nodes[0], nodes[1]

	h1 := importArchive(t, a, "Crossland Savings")
	importArchive(t, b, "Crossland Savings")

	first := ledger.NewSignedTransaction(contract.NewAgreementTransaction(a.GetParty(), b.GetParty(), "first", h1))
	second := ledger.NewSignedTransaction(contract.NewAgreementTransaction(a.GetParty(), b.GetParty(), "second", h1))
	for _, stx := range []*ledger.SignedTransaction{first, second} {
		if err := stx.Sign(a.validator.Key); err != nil {
			t.Fatal(err)
		}
	}

	resp, err := a.requestPropose(b.trans.LocalAddr(), "flow", first)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Rejected {
		t.Fatalf("first proposal rejected: %s", resp.Reason)
	}

	if _, err := a.requestPropose(b.trans.LocalAddr(), "flow", second); err == nil {
		t.Fatalf("a second proposal under a pending flow id should fail")
	}

	if err := first.AddSignature(resp.Signature); err != nil {
		t.Fatal(err)
	}
	fin, err := a.requestFinalize(b.trans.LocalAddr(), "flow", first)
	if err != nil {
		t.Fatal(err)
	}
	if !fin.Recorded {
		t.Fatalf("B should record the first proposal")
	}

	states, _ := b.QueryStates(ledger.AgreementStateType)
	if len(states) != 1 || states[0].State.Agreement.Txt != "first" {
		t.Fatalf("unexpected states %v", states)
	}
}

func TestRecordedAgreementsAreImmutable(t *testing.T) {
	nodes := initNodes(t, 2)
	a, b := nodes[0], nodes[1]

	h1 := importArchive(t, a, "Crossland Savings")

	stx, err := propose(t, a, b, h1)
	if err != nil {
		t.Fatal(err)
	}
	id, _ := stx.ID()

	stx.Tx.Outputs[0].Agreement.Txt = "rewritten"

	for _, cp := range a.Checkpoints() {
		if cp.Tx != nil {
			cp.Tx.Tx.Outputs[0].Agreement.Txt = "rewritten"
		}
	}

	for _, n := range nodes {
		recorded, err := n.GetTransaction(id)
		if err != nil {
			t.Fatal(err)
		}
		if recorded.Tx.Outputs[0].Agreement.Txt != agreementTxt {
			t.Fatalf("%s: recorded agreement changed to %q", n.GetParty().Name, recorded.Tx.Outputs[0].Agreement.Txt)
		}
		recorded.Tx.Outputs[0].Agreement.Txt = "rewritten"

		states, err := n.QueryStates(ledger.AgreementStateType)
		if err != nil {
			t.Fatal(err)
		}
		if states[0].State.Agreement.Txt != agreementTxt {
			t.Fatalf("%s: queried agreement changed to %q", n.GetParty().Name, states[0].State.Agreement.Txt)
		}
	}

	for _, cp := range a.Checkpoints() {
		if cp.Tx != nil && cp.Tx.Tx.Outputs[0].Agreement.Txt != agreementTxt {
			t.Fatalf("checkpoints should not share transactions with their readers")
		}
	}
}

type failingLedger struct {
	ledger.Store
}

func (failingLedger) Record(stx *ledger.SignedTransaction) error {
	return fmt.Errorf("disk full")
}

func TestFailedFinalizeRecordsNothing(t *testing.T) {
	nodes := initNodes(t, 2)
	a, b := nodes[0], nodes[1]

	h1 := importArchive(t, a, "Crossland Savings")

	b.ledger = failingLedger{b.ledger}

	_, err := propose(t, a, b, h1)
	if err == nil {
		t.Fatalf("a failed finalization should reject the flow")
	}
	if !strings.Contains(err.Error(), "may have recorded") {
		t.Fatalf("the error should warn about the counterparty's ledger, got %v", err)
	}

	if a.ledger.Count() != 0 {
		t.Fatalf("A should not record a transaction B failed to finalize")
	}

	latest := a.Checkpoints()
	if len(latest) != 1 || latest[0].State != flow.Rejected {
		t.Fatalf("unexpected initiator checkpoints %v", latest)
	}
}
