package ledger

import (
	"sync"

	cm "github.com/mosaicnetworks/accord/src/common"
)

// InmemStore is an in-memory Store.
type InmemStore struct {
	sync.RWMutex
	order    []string
	txs      map[string]*SignedTransaction
	consumed map[StateRef]string
}

// NewInmemStore ...
func NewInmemStore() *InmemStore {
	return &InmemStore{
		order:    []string{},
		txs:      make(map[string]*SignedTransaction),
		consumed: make(map[StateRef]string),
	}
}

// Record implements the Store interface.
func (s *InmemStore) Record(stx *SignedTransaction) error {
	id, err := stx.ID()
	if err != nil {
		return err
	}

	own, err := stx.Copy()
	if err != nil {
		return err
	}

	s.Lock()
	defer s.Unlock()

	if _, ok := s.txs[id]; ok {
		return nil
	}

	seen := make(map[StateRef]bool)
	for _, in := range stx.Tx.Inputs {
		if err := s.checkSpendable(id, in, seen); err != nil {
			return err
		}
	}

	for _, in := range stx.Tx.Inputs {
		s.consumed[in] = id
	}
	s.txs[id] = own
	s.order = append(s.order, id)

	return nil
}

func (s *InmemStore) checkSpendable(id string, in StateRef, seen map[StateRef]bool) error {
	if seen[in] {
		return &DoubleSpendError{TxID: id, Ref: in, ConsumedBy: id}
	}
	seen[in] = true

	prev, ok := s.txs[in.TxID]
	if !ok || in.Index < 0 || in.Index >= len(prev.Tx.Outputs) {
		return &DoubleSpendError{TxID: id, Ref: in}
	}
	if by, ok := s.consumed[in]; ok {
		return &DoubleSpendError{TxID: id, Ref: in, ConsumedBy: by}
	}
	return nil
}

// GetTransaction implements the Store interface.
func (s *InmemStore) GetTransaction(id string) (*SignedTransaction, error) {
	s.RLock()
	defer s.RUnlock()

	stx, ok := s.txs[id]
	if !ok {
		return nil, cm.NewStoreErr("Transaction", cm.KeyNotFound, id)
	}
	return stx.Copy()
}

// Transactions implements the Store interface.
func (s *InmemStore) Transactions() ([]*SignedTransaction, error) {
	s.RLock()
	defer s.RUnlock()

	res := make([]*SignedTransaction, 0, len(s.order))
	for _, id := range s.order {
		stx, err := s.txs[id].Copy()
		if err != nil {
			return nil, err
		}
		res = append(res, stx)
	}
	return res, nil
}

// Query implements the Store interface.
func (s *InmemStore) Query(t StateType) ([]StateAndRef, error) {
	s.RLock()
	defer s.RUnlock()

	isConsumed := func(ref StateRef) bool {
		_, ok := s.consumed[ref]
		return ok
	}

	res := []StateAndRef{}
	for _, id := range s.order {
		res = append(res, unconsumedOf(id, s.txs[id], t, isConsumed)...)
	}
	return res, nil
}

// Count implements the Store interface.
func (s *InmemStore) Count() int {
	s.RLock()
	defer s.RUnlock()
	return len(s.order)
}

// Close implements the Store interface.
func (s *InmemStore) Close() error {
	return nil
}
