package ledger

import (
	"bytes"
	"crypto/ecdsa"
	"fmt"

	"github.com/mosaicnetworks/accord/src/crypto/keys"
	"github.com/ugorji/go/codec"
)

// TxSignature is a signature of a transaction id by the key By.
type TxSignature struct {
	By        string
	Signature string
}

// SignedTransaction is a Transaction plus the signatures collected so far.
type SignedTransaction struct {
	Tx   *Transaction
	Sigs []TxSignature
}

// NewSignedTransaction wraps tx with no signatures.
func NewSignedTransaction(tx *Transaction) *SignedTransaction {
	return &SignedTransaction{
		Tx:   tx,
		Sigs: []TxSignature{},
	}
}

// ID returns the id of the underlying transaction. Signatures do not change it.
func (stx *SignedTransaction) ID() (string, error) {
	return stx.Tx.ID()
}

// Sign adds the signature of the transaction hash by key, replacing any
// previous signature by the same key.
func (stx *SignedTransaction) Sign(key *ecdsa.PrivateKey) error {
	hash, err := stx.Tx.Hash()
	if err != nil {
		return err
	}

	sig, err := keys.SignHex(key, hash)
	if err != nil {
		return err
	}

	return stx.AddSignature(TxSignature{
		By:        keys.PublicKeyHex(&key.PublicKey),
		Signature: sig,
	})
}

// AddSignature checks sig and attaches it, replacing any previous signature
// from the same key.
func (stx *SignedTransaction) AddSignature(sig TxSignature) error {
	if err := stx.checkSignature(sig); err != nil {
		return err
	}

	for i, s := range stx.Sigs {
		if s.By == sig.By {
			stx.Sigs[i] = sig
			return nil
		}
	}
	stx.Sigs = append(stx.Sigs, sig)
	return nil
}

// SignatureBy returns the signature by pubKey, if any.
func (stx *SignedTransaction) SignatureBy(pubKey string) (TxSignature, bool) {
	for _, s := range stx.Sigs {
		if s.By == pubKey {
			return s, true
		}
	}
	return TxSignature{}, false
}

// VerifyRequiredSignatures checks that every required signer produced a valid
// signature.
func (stx *SignedTransaction) VerifyRequiredSignatures() error {
	return stx.VerifySignaturesExcept()
}

// VerifySignaturesExcept checks that every required signer, except the ones
// listed, produced a valid signature. Signatures that are present are always
// checked.
func (stx *SignedTransaction) VerifySignaturesExcept(allowedMissing ...string) error {
	for _, s := range stx.Sigs {
		if err := stx.checkSignature(s); err != nil {
			return err
		}
	}

	skip := make(map[string]bool)
	for _, k := range allowedMissing {
		skip[k] = true
	}

	for _, signer := range stx.Tx.RequiredSigners() {
		if skip[signer] {
			continue
		}
		if _, ok := stx.SignatureBy(signer); !ok {
			return fmt.Errorf("missing signature from %s", signer)
		}
	}

	return nil
}

func (stx *SignedTransaction) checkSignature(sig TxSignature) error {
	hash, err := stx.Tx.Hash()
	if err != nil {
		return err
	}

	ok, err := keys.VerifyHex(sig.By, hash, sig.Signature)
	if err != nil {
		return fmt.Errorf("signature by %s: %v", sig.By, err)
	}
	if !ok {
		return fmt.Errorf("invalid signature by %s", sig.By)
	}

	return nil
}

// Marshal ...
func (stx *SignedTransaction) Marshal() ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)

	if err := enc.Encode(stx); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// Unmarshal ...
func (stx *SignedTransaction) Unmarshal(data []byte) error {
	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)

	return dec.Decode(stx)
}

// Copy returns a deep copy of stx.
func (stx *SignedTransaction) Copy() (*SignedTransaction, error) {
	data, err := stx.Marshal()
	if err != nil {
		return nil, err
	}
	res := new(SignedTransaction)
	if err := res.Unmarshal(data); err != nil {
		return nil, err
	}
	return res, nil
}
