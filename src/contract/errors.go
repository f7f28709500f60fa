package contract

import (
	"errors"
	"fmt"
)

// VerificationError is returned when a transaction breaks the rules of a
// contract.
type VerificationError struct {
	Contract string
	TxID     string
	Reason   string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("contract verification failed: %s: %s, transaction %s", e.Contract, e.Reason, e.TxID)
}

// IsVerificationError reports whether err is, or wraps, a VerificationError.
func IsVerificationError(err error) bool {
	var ve *VerificationError
	return errors.As(err, &ve)
}

// AsVerificationError returns the VerificationError in err's chain, if any.
func AsVerificationError(err error) (*VerificationError, bool) {
	var ve *VerificationError
	ok := errors.As(err, &ve)
	return ve, ok
}
