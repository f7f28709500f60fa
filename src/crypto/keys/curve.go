package keys

import (
	"crypto/elliptic"
	"math/big"

	"github.com/btcsuite/btcd/btcec"
)

// secp256k1N is the order of the secp256k1 curve. Private keys must be smaller.
var secp256k1N, _ = new(big.Int).SetString("fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141", 16)

// Curve returns the elliptic.Curve used by all parties. We use btcsuite's
// golang implementation of secp256k1.
func Curve() elliptic.Curve {
	return btcec.S256()
}
