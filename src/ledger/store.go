package ledger

// Store is the vault of a party. Implementations must make Record atomic: a
// transaction is either fully recorded, with its inputs consumed and its
// outputs unconsumed, or not at all. Recorded entries are immutable: stores
// keep their own copy of what they record and hand out copies.
type Store interface {
	// Record appends stx. Recording a transaction id twice is a no-op.
	Record(stx *SignedTransaction) error
	// GetTransaction returns a KeyNotFound StoreErr for unknown ids.
	GetTransaction(id string) (*SignedTransaction, error)
	// Transactions returns all recorded transactions in recording order.
	Transactions() ([]*SignedTransaction, error)
	// Query returns the unconsumed states of type t in recording order.
	Query(t StateType) ([]StateAndRef, error)
	Count() int
	Close() error
}

// unconsumedOf lists the outputs of stx matching t that are not in consumed.
// The payloads of the returned states are copies.
func unconsumedOf(id string, stx *SignedTransaction, t StateType, consumed func(StateRef) bool) []StateAndRef {
	res := []StateAndRef{}
	for i, out := range stx.Tx.Outputs {
		if out.Type != t {
			continue
		}
		ref := StateRef{TxID: id, Index: i}
		if consumed(ref) {
			continue
		}
		if out.Agreement != nil {
			a := *out.Agreement
			out.Agreement = &a
		}
		res = append(res, StateAndRef{State: out, Ref: ref})
	}
	return res
}
