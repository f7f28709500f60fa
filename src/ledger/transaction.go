package ledger

import (
	"bytes"

	"github.com/google/uuid"
	"github.com/mosaicnetworks/accord/src/crypto"
	"github.com/ugorji/go/codec"
)

// Command names the intent of a transaction and the public keys whose
// signatures it requires.
type Command struct {
	Name    string
	Signers []string
}

// TimeWindow restricts the validity of a transaction. Bounds are unix
// nanoseconds, zero meaning open.
type TimeWindow struct {
	From  int64
	Until int64
}

// Transaction is an unsigned ledger update.
type Transaction struct {
	Inputs      []StateRef
	Outputs     []TransactionState
	Attachments []string
	Commands    []Command
	TimeWindow  *TimeWindow `json:",omitempty"`
	Salt        string
}

// NewTransaction creates an empty transaction with a fresh salt.
func NewTransaction() *Transaction {
	return &Transaction{
		Inputs:      []StateRef{},
		Outputs:     []TransactionState{},
		Attachments: []string{},
		Commands:    []Command{},
		Salt:        uuid.New().String(),
	}
}

// AddOutput appends an output state.
func (t *Transaction) AddOutput(s TransactionState) *Transaction {
	t.Outputs = append(t.Outputs, s)
	return t
}

// AddCommand appends a command.
func (t *Transaction) AddCommand(c Command) *Transaction {
	t.Commands = append(t.Commands, c)
	return t
}

// AddAttachment references an attachment by id. Duplicate references are
// ignored.
func (t *Transaction) AddAttachment(id string) *Transaction {
	for _, a := range t.Attachments {
		if a == id {
			return t
		}
	}
	t.Attachments = append(t.Attachments, id)
	return t
}

// RequiredSigners returns the public keys of all command signers, without
// duplicates, in order of first appearance.
func (t *Transaction) RequiredSigners() []string {
	seen := make(map[string]bool)
	res := []string{}
	for _, c := range t.Commands {
		for _, s := range c.Signers {
			if !seen[s] {
				seen[s] = true
				res = append(res, s)
			}
		}
	}
	return res
}

// Marshal returns the canonical JSON encoding of the transaction.
func (t *Transaction) Marshal() ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)

	if err := enc.Encode(t); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// Unmarshal ...
func (t *Transaction) Unmarshal(data []byte) error {
	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)

	return dec.Decode(t)
}

// Hash returns the SHA256 hash of the canonical encoding.
func (t *Transaction) Hash() ([]byte, error) {
	hashBytes, err := t.Marshal()
	if err != nil {
		return nil, err
	}
	return crypto.SHA256(hashBytes), nil
}

// ID returns the hex encoded Hash. It identifies the transaction.
func (t *Transaction) ID() (string, error) {
	hashBytes, err := t.Marshal()
	if err != nil {
		return "", err
	}
	return crypto.SHA256Hex(hashBytes), nil
}
