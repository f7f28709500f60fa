package flow

// State is the state of a flow.
type State uint32

const (
	// Initiated is the state of a flow before its transaction is signed.
	Initiated State = iota
	// Proposed means the transaction passed local verification and carries the
	// initiator's signature.
	Proposed
	// CountersignRequested means the proposal was sent to the counterparty.
	CountersignRequested
	// VerifiedByCounterparty means the counterparty verified and co-signed.
	VerifiedByCounterparty
	// Finalized is terminal. Both parties recorded the transaction.
	Finalized
	// Rejected is terminal. No party recorded the transaction.
	Rejected
)

// String ...
func (s State) String() string {
	switch s {
	case Initiated:
		return "Initiated"
	case Proposed:
		return "Proposed"
	case CountersignRequested:
		return "CountersignRequested"
	case VerifiedByCounterparty:
		return "VerifiedByCounterparty"
	case Finalized:
		return "Finalized"
	case Rejected:
		return "Rejected"
	default:
		return "Unknown"
	}
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == Finalized || s == Rejected
}

// Role is the part a node plays in a flow.
type Role uint32

const (
	// Initiator proposes the transaction.
	Initiator Role = iota
	// Responder verifies and co-signs.
	Responder
)

// String ...
func (r Role) String() string {
	switch r {
	case Initiator:
		return "Initiator"
	case Responder:
		return "Responder"
	default:
		return "Unknown"
	}
}
