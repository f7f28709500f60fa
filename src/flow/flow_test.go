package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mosaicnetworks/accord/src/ledger"
)

func TestHandle(t *testing.T) {
	h := NewHandle("")
	if h.ID == "" {
		t.Fatalf("handle should get a random id")
	}

	h.Advance(Proposed)
	if h.State() != Proposed {
		t.Fatalf("expected Proposed, got %s", h.State())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := h.Result(ctx); err != context.DeadlineExceeded {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	stx := ledger.NewSignedTransaction(ledger.NewTransaction())
	go h.Finalize(stx)

	res, err := h.Result(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	resID, _ := res.ID()
	stxID, _ := stx.ID()
	if resID != stxID {
		t.Fatalf("unexpected result")
	}
	if res == stx {
		t.Fatalf("the handle should keep its own copy of the transaction")
	}

	// resolution happens once
	h.Reject(errors.New("too late"))
	h.Advance(Proposed)
	if h.State() != Finalized {
		t.Fatalf("expected Finalized, got %s", h.State())
	}
	if _, err := h.Result(context.Background()); err != nil {
		t.Fatalf("result should not change: %v", err)
	}
}

func TestTracker(t *testing.T) {
	tracker := NewTracker()

	tracker.Checkpoint(NewCheckpoint("f1", Initiator, Initiated, "PartyB"))
	tracker.Checkpoint(NewCheckpoint("f2", Responder, CountersignRequested, "PartyA"))
	tracker.Checkpoint(NewCheckpoint("f1", Initiator, Rejected, "PartyB").WithError(errors.New("boom")))

	if tracker.Active() != 1 {
		t.Fatalf("expected 1 active flow, got %d", tracker.Active())
	}

	latest := tracker.Latest()
	if len(latest) != 2 || latest[0].FlowID != "f1" || latest[0].State != Rejected {
		t.Fatalf("unexpected latest checkpoints %v", latest)
	}
	if latest[0].Error != "boom" {
		t.Fatalf("error not recorded")
	}

	if h := tracker.History("f1"); len(h) != 2 || h[0].State != Initiated {
		t.Fatalf("unexpected history %v", h)
	}
}

func TestCheckpointEncoding(t *testing.T) {
	tx := ledger.NewTransaction()
	cp := NewCheckpoint("f1", Initiator, Proposed, "PartyB").WithTx(ledger.NewSignedTransaction(tx))

	data, err := cp.Marshal()
	if err != nil {
		t.Fatal(err)
	}

	var decoded Checkpoint
	if err := decoded.Unmarshal(data); err != nil {
		t.Fatal(err)
	}

	id, _ := tx.ID()
	if decoded.TxID != id || decoded.State != Proposed || decoded.Role != Initiator {
		t.Fatalf("unexpected checkpoint %#v", decoded)
	}
	if got, _ := decoded.Tx.ID(); got != id {
		t.Fatalf("transaction changed by encoding")
	}
}
