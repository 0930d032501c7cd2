package keys

import (
	"crypto/elliptic"
	"math/big"

	"github.com/btcsuite/btcd/btcec"
)

// Order of the secp256k1 base point. A private scalar must lie in [1, N).
var secp256k1N = btcec.S256().N

// Curve returns the secp256k1 curve used for node identities.
func Curve() elliptic.Curve {
	return btcec.S256()
}

func inRange(d *big.Int) bool {
	return d.Sign() > 0 && d.Cmp(secp256k1N) < 0
}
