package node

import (
	"crypto/ecdsa"

	"github.com/mosaicnetworks/accord/src/crypto/keys"
	"github.com/mosaicnetworks/accord/src/ledger"
)

// Validator holds the key and the organisation name of the party operating a
// node.
type Validator struct {
	Key     *ecdsa.PrivateKey
	Moniker string

	pubBytes []byte
	pubHex   string
}

// NewValidator is a factory method for a Validator
func NewValidator(key *ecdsa.PrivateKey, moniker string) *Validator {
	return &Validator{
		Key:     key,
		Moniker: moniker,
	}
}

// PublicKeyBytes returns the validator's public key as a byte array
func (v *Validator) PublicKeyBytes() []byte {
	if len(v.pubBytes) == 0 {
		v.pubBytes = keys.FromPublicKey(&v.Key.PublicKey)
	}
	return v.pubBytes
}

// PublicKeyHex returns the validator's public key as a hex string
func (v *Validator) PublicKeyHex() string {
	if len(v.pubHex) == 0 {
		v.pubHex = keys.PublicKeyHex(&v.Key.PublicKey)
	}
	return v.pubHex
}

// Party returns the ledger identity of the validator.
func (v *Validator) Party() ledger.Party {
	return ledger.Party{
		Name:      v.Moniker,
		PubKeyHex: v.PublicKeyHex(),
	}
}
