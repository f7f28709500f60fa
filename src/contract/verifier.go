package contract

import (
	"fmt"
	"sync"

	"github.com/mosaicnetworks/accord/src/ledger"
)

// Contract checks the transactions producing states it governs. Verify returns
// nil, or an error describing the first broken rule.
type Contract interface {
	Name() string
	Verify(tx *ledger.Transaction, attachments map[string][]byte) error
}

// Verifier dispatches transactions to the contracts their outputs name.
type Verifier struct {
	sync.RWMutex
	contracts map[string]Contract
}

// NewVerifier creates a Verifier that knows the given contracts.
func NewVerifier(contracts ...Contract) *Verifier {
	v := &Verifier{
		contracts: make(map[string]Contract),
	}
	for _, c := range contracts {
		v.Register(c)
	}
	return v
}

// Register adds or replaces a contract.
func (v *Verifier) Register(c Contract) {
	v.Lock()
	defer v.Unlock()
	v.contracts[c.Name()] = c
}

// Contract returns the registered contract with the given name.
func (v *Verifier) Contract(name string) (Contract, bool) {
	v.RLock()
	defer v.RUnlock()
	c, ok := v.contracts[name]
	return c, ok
}

// Verify runs each contract named by an output of tx once, in order of first
// appearance. attachments maps attachment ids to their resolved bytes. The
// error, if any, is a *VerificationError.
func (v *Verifier) Verify(tx *ledger.Transaction, attachments map[string][]byte) error {
	id, err := tx.ID()
	if err != nil {
		return err
	}

	if len(tx.Outputs) == 0 {
		return &VerificationError{TxID: id, Reason: "transaction has no outputs"}
	}

	done := make(map[string]bool)
	for i, out := range tx.Outputs {
		if done[out.Contract] {
			continue
		}
		done[out.Contract] = true

		c, ok := v.Contract(out.Contract)
		if !ok {
			return &VerificationError{
				Contract: out.Contract,
				TxID:     id,
				Reason:   fmt.Sprintf("output %d names an unknown contract", i),
			}
		}

		if err := c.Verify(tx, attachments); err != nil {
			if ve, ok := AsVerificationError(err); ok {
				if ve.TxID == "" {
					ve.TxID = id
				}
				return ve
			}
			return &VerificationError{
				Contract: c.Name(),
				TxID:     id,
				Reason:   err.Error(),
			}
		}
	}

	return nil
}
