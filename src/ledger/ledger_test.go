package ledger

import (
	"crypto/ecdsa"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/mosaicnetworks/accord/src/common"
	"github.com/mosaicnetworks/accord/src/crypto/keys"
)

type party struct {
	key   *ecdsa.PrivateKey
	party Party
}

func newParty(t *testing.T, name string) party {
	key, err := keys.GenerateECDSAKey()
	if err != nil {
		t.Fatal(err)
	}
	return party{
		key:   key,
		party: Party{Name: name, PubKeyHex: keys.PublicKeyHex(&key.PublicKey)},
	}
}

// agreementTx builds an agreement between a and b spending inputs, signed by
// both.
func agreementTx(t *testing.T, a, b party, txt string, inputs ...StateRef) *SignedTransaction {
	tx := NewTransaction().
		AddOutput(NewAgreementOutput("AgreementContract", &AgreementState{
			PartyA: a.party,
			PartyB: b.party,
			Txt:    txt,
		})).
		AddAttachment("abcd").
		AddCommand(Command{
			Name:    "Agree",
			Signers: []string{a.party.PubKeyHex, b.party.PubKeyHex},
		})
	tx.Inputs = append(tx.Inputs, inputs...)

	stx := NewSignedTransaction(tx)
	if err := stx.Sign(a.key); err != nil {
		t.Fatal(err)
	}
	if err := stx.Sign(b.key); err != nil {
		t.Fatal(err)
	}
	return stx
}

func txID(t *testing.T, stx *SignedTransaction) string {
	id, err := stx.ID()
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func TestTransactionID(t *testing.T) {
	a, b := newParty(t, "PartyA"), newParty(t, "PartyB")

	stx1 := agreementTx(t, a, b, "A agrees with B")
	stx2 := agreementTx(t, a, b, "A agrees with B")

	if txID(t, stx1) == txID(t, stx2) {
		t.Fatalf("identical proposals should have distinct ids")
	}

	data, err := stx1.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	decoded := new(SignedTransaction)
	if err := decoded.Unmarshal(data); err != nil {
		t.Fatal(err)
	}

	if txID(t, decoded) != txID(t, stx1) {
		t.Fatalf("id changed after decoding")
	}
	if err := decoded.VerifyRequiredSignatures(); err != nil {
		t.Fatalf("decoded signatures should verify: %v", err)
	}
}

func TestVerifySignatures(t *testing.T) {
	a, b := newParty(t, "PartyA"), newParty(t, "PartyB")

	tx := NewTransaction().AddCommand(Command{
		Name:    "Agree",
		Signers: []string{a.party.PubKeyHex, b.party.PubKeyHex, a.party.PubKeyHex},
	})

	if got := tx.RequiredSigners(); !reflect.DeepEqual(got, []string{a.party.PubKeyHex, b.party.PubKeyHex}) {
		t.Fatalf("unexpected required signers %v", got)
	}

	stx := NewSignedTransaction(tx)
	if err := stx.Sign(a.key); err != nil {
		t.Fatal(err)
	}

	if err := stx.VerifyRequiredSignatures(); err == nil {
		t.Fatalf("b's signature is missing")
	}
	if err := stx.VerifySignaturesExcept(b.party.PubKeyHex); err != nil {
		t.Fatalf("all signatures but b's should verify: %v", err)
	}

	// a signature over another transaction is rejected
	other := agreementTx(t, a, b, "other")
	sig, _ := other.SignatureBy(b.party.PubKeyHex)
	if err := stx.AddSignature(sig); err == nil {
		t.Fatalf("foreign signature should be rejected")
	}

	if err := stx.Sign(b.key); err != nil {
		t.Fatal(err)
	}
	if err := stx.VerifyRequiredSignatures(); err != nil {
		t.Fatal(err)
	}

	stx.Tx.Commands[0].Name = "Tampered"
	if err := stx.VerifyRequiredSignatures(); err == nil {
		t.Fatalf("tampering should invalidate signatures")
	}
}

func storeImplementations() map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"inmem": func(t *testing.T) Store { return NewInmemStore() },
		"badger": func(t *testing.T) Store {
			s, err := NewBadgerStore(filepath.Join(t.TempDir(), "ledger"), 10, common.NewTestEntry(t, common.TestLogLevel))
			if err != nil {
				t.Fatal(err)
			}
			return s
		},
	}
}

func TestRecordAndQuery(t *testing.T) {
	for name, newStore := range storeImplementations() {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			defer store.Close()

			a, b := newParty(t, "PartyA"), newParty(t, "PartyB")

			stx1 := agreementTx(t, a, b, "first")
			stx2 := agreementTx(t, a, b, "second")

			for _, stx := range []*SignedTransaction{stx1, stx2, stx1} {
				if err := store.Record(stx); err != nil {
					t.Fatal(err)
				}
			}

			if store.Count() != 2 {
				t.Fatalf("duplicate record should be a no-op, count %d", store.Count())
			}

			got, err := store.GetTransaction(txID(t, stx2))
			if err != nil {
				t.Fatal(err)
			}
			if txID(t, got) != txID(t, stx2) {
				t.Fatalf("GetTransaction returned the wrong transaction")
			}
			if err := got.VerifyRequiredSignatures(); err != nil {
				t.Fatal(err)
			}

			if _, err := store.GetTransaction("missing"); !IsNotFound(err) {
				t.Fatalf("expected NotFound, got %v", err)
			}

			states, err := store.Query(AgreementStateType)
			if err != nil {
				t.Fatal(err)
			}
			if len(states) != 2 {
				t.Fatalf("expected 2 states, got %d", len(states))
			}
			if states[0].State.Agreement.Txt != "first" || states[1].State.Agreement.Txt != "second" {
				t.Fatalf("insertion order not preserved")
			}
			if states[0].Ref != (StateRef{TxID: txID(t, stx1), Index: 0}) {
				t.Fatalf("unexpected ref %v", states[0].Ref)
			}

			if states, _ := store.Query("Other"); len(states) != 0 {
				t.Fatalf("expected no states of another type")
			}

			txs, err := store.Transactions()
			if err != nil {
				t.Fatal(err)
			}
			if len(txs) != 2 || txID(t, txs[0]) != txID(t, stx1) {
				t.Fatalf("unexpected transactions")
			}
		})
	}
}

func TestDoubleSpend(t *testing.T) {
	for name, newStore := range storeImplementations() {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			defer store.Close()

			a, b := newParty(t, "PartyA"), newParty(t, "PartyB")

			issue := agreementTx(t, a, b, "issue")
			if err := store.Record(issue); err != nil {
				t.Fatal(err)
			}
			ref := StateRef{TxID: txID(t, issue), Index: 0}

			unknown := agreementTx(t, a, b, "unknown", StateRef{TxID: "nope", Index: 0})
			if err := store.Record(unknown); !IsDoubleSpend(err) {
				t.Fatalf("spending an unknown state should fail, got %v", err)
			}

			twice := agreementTx(t, a, b, "twice", ref, ref)
			if err := store.Record(twice); !IsDoubleSpend(err) {
				t.Fatalf("spending a state twice in one transaction should fail, got %v", err)
			}

			spend := agreementTx(t, a, b, "spend", ref)
			if err := store.Record(spend); err != nil {
				t.Fatal(err)
			}

			again := agreementTx(t, a, b, "again", ref)
			err := store.Record(again)
			if !IsDoubleSpend(err) {
				t.Fatalf("expected DoubleSpendError, got %v", err)
			}

			if store.Count() != 2 {
				t.Fatalf("failed records should leave no trace, count %d", store.Count())
			}

			states, err := store.Query(AgreementStateType)
			if err != nil {
				t.Fatal(err)
			}
			if len(states) != 1 || states[0].State.Agreement.Txt != "spend" {
				t.Fatalf("only the spending output should be unconsumed, got %v", states)
			}
		})
	}
}

func TestBadgerStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger")
	logger := common.NewTestEntry(t, common.TestLogLevel)

	store, err := NewBadgerStore(path, 10, logger)
	if err != nil {
		t.Fatal(err)
	}

	a, b := newParty(t, "PartyA"), newParty(t, "PartyB")
	stx := agreementTx(t, a, b, "persisted")
	if err := store.Record(stx); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	store, err = NewBadgerStore(path, 10, logger)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if store.Count() != 1 {
		t.Fatalf("expected 1 transaction after reopening, got %d", store.Count())
	}

	states, err := store.Query(AgreementStateType)
	if err != nil {
		t.Fatal(err)
	}
	if len(states) != 1 || states[0].State.Agreement.Txt != "persisted" {
		t.Fatalf("unexpected states %v", states)
	}
	if !reflect.DeepEqual(states[0].State.Agreement.PartyA, a.party) {
		t.Fatalf("party not preserved")
	}
}

func TestRecordedEntriesAreImmutable(t *testing.T) {
	for name, newStore := range storeImplementations() {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			defer store.Close()

			a, b := newParty(t, "PartyA"), newParty(t, "PartyB")

			stx := agreementTx(t, a, b, "original")
			id := txID(t, stx)
			if err := store.Record(stx); err != nil {
				t.Fatal(err)
			}

			stx.Tx.Outputs[0].Agreement.Txt = "changed by caller"
			stx.Sigs = nil

			got, err := store.GetTransaction(id)
			if err != nil {
				t.Fatal(err)
			}
			if got.Tx.Outputs[0].Agreement.Txt != "original" {
				t.Fatalf("recorded transaction follows the caller's copy: %q", got.Tx.Outputs[0].Agreement.Txt)
			}
			got.Tx.Outputs[0].Agreement.Txt = "changed by reader"

			txs, err := store.Transactions()
			if err != nil {
				t.Fatal(err)
			}
			if txs[0].Tx.Outputs[0].Agreement.Txt != "original" {
				t.Fatalf("GetTransaction result aliases the store")
			}
			txs[0].Tx.Outputs[0].Agreement.Txt = "changed by lister"

			states, err := store.Query(AgreementStateType)
			if err != nil {
				t.Fatal(err)
			}
			if states[0].State.Agreement.Txt != "original" {
				t.Fatalf("Transactions result aliases the store")
			}
			states[0].State.Agreement.Txt = "changed by query"

			again, err := store.GetTransaction(id)
			if err != nil {
				t.Fatal(err)
			}
			if again.Tx.Outputs[0].Agreement.Txt != "original" {
				t.Fatalf("Query result aliases the store")
			}
			if err := again.VerifyRequiredSignatures(); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestBadgerStoreNestedPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node0", "data", "ledger")

	store, err := NewBadgerStore(path, 10, common.NewTestEntry(t, common.TestLogLevel))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	a, b := newParty(t, "PartyA"), newParty(t, "PartyB")
	if err := store.Record(agreementTx(t, a, b, "nested")); err != nil {
		t.Fatal(err)
	}
	if store.Count() != 1 {
		t.Fatalf("expected 1 transaction, got %d", store.Count())
	}
}
