package ledger

import "fmt"

// Party is a participant identity on the ledger: an organisation name and the
// public key it signs with.
type Party struct {
	Name      string
	PubKeyHex string
}

func (p Party) String() string {
	return p.Name
}

// StateType names the type of a TransactionState. Vault queries are by type.
type StateType string

// AgreementStateType is the type of states carrying an AgreementState.
const AgreementStateType StateType = "AgreementState"

// ContractState is implemented by the concrete payloads of transaction
// outputs.
type ContractState interface {
	Type() StateType
	Participants() []Party
}

// AgreementState records that PartyA and PartyB agreed on Txt.
type AgreementState struct {
	PartyA Party
	PartyB Party
	Txt    string
}

// Type implements ContractState
func (s *AgreementState) Type() StateType {
	return AgreementStateType
}

// Participants implements ContractState
func (s *AgreementState) Participants() []Party {
	return []Party{s.PartyA, s.PartyB}
}

func (s *AgreementState) String() string {
	return fmt.Sprintf("%s agrees with %s: %q", s.PartyA, s.PartyB, s.Txt)
}

// TransactionState is an output of a transaction. Contract is the name of the
// contract that governs the state. Exactly one payload field is set, matching
// Type.
type TransactionState struct {
	Type      StateType
	Contract  string
	Agreement *AgreementState `json:",omitempty"`
}

// NewAgreementOutput wraps an AgreementState governed by the named contract.
func NewAgreementOutput(contractName string, s *AgreementState) TransactionState {
	return TransactionState{
		Type:      AgreementStateType,
		Contract:  contractName,
		Agreement: s,
	}
}

// Data returns the payload of the state, or nil if it doesn't match Type.
func (ts TransactionState) Data() ContractState {
	switch ts.Type {
	case AgreementStateType:
		if ts.Agreement != nil {
			return ts.Agreement
		}
	}
	return nil
}

// StateRef points to the output Index of transaction TxID.
type StateRef struct {
	TxID  string
	Index int
}

func (r StateRef) String() string {
	return fmt.Sprintf("%s(%d)", r.TxID, r.Index)
}

// StateAndRef is a state together with the reference that can consume it.
type StateAndRef struct {
	State TransactionState
	Ref   StateRef
}
