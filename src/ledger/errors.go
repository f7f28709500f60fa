package ledger

import (
	"errors"
	"fmt"

	cm "github.com/mosaicnetworks/accord/src/common"
)

// DoubleSpendError is returned when a transaction consumes a state that is
// unknown or already consumed.
type DoubleSpendError struct {
	TxID       string
	Ref        StateRef
	ConsumedBy string
}

func (e *DoubleSpendError) Error() string {
	if e.ConsumedBy == "" {
		return fmt.Sprintf("transaction %s spends unknown state %s", e.TxID, e.Ref)
	}
	return fmt.Sprintf("transaction %s spends state %s already consumed by %s", e.TxID, e.Ref, e.ConsumedBy)
}

// IsDoubleSpend reports whether err is, or wraps, a DoubleSpendError.
func IsDoubleSpend(err error) bool {
	var ds *DoubleSpendError
	return errors.As(err, &ds)
}

// IsNotFound reports whether err is a KeyNotFound store error.
func IsNotFound(err error) bool {
	return cm.IsStore(err, cm.KeyNotFound)
}
