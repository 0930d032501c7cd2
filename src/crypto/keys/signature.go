package keys

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/btcsuite/btcd/btcec"
)

// Sign produces a deterministic (RFC6979) signature of hash.
func Sign(priv *ecdsa.PrivateKey, hash []byte) (r, s *big.Int, err error) {
	sig, err := (*btcec.PrivateKey)(priv).Sign(hash)
	if err != nil {
		return nil, nil, err
	}
	return sig.R, sig.S, nil
}

// Verify reports whether r and s are a valid signature of hash by the owner of
// pub.
func Verify(pub *ecdsa.PublicKey, hash []byte, r, s *big.Int) bool {
	if pub == nil || r == nil || s == nil {
		return false
	}
	sig := &btcec.Signature{R: r, S: s}
	return sig.Verify(hash, (*btcec.PublicKey)(pub))
}

// EncodeSignature returns a string representation of a signature.
func EncodeSignature(r, s *big.Int) string {
	return fmt.Sprintf("%s|%s", r.Text(36), s.Text(36))
}

// DecodeSignature parses a string representation of a signature as produced by
// EncodeSignature.
func DecodeSignature(sig string) (r, s *big.Int, err error) {
	values := strings.Split(sig, "|")
	if len(values) != 2 {
		return nil, nil, fmt.Errorf("wrong number of values in signature: got %d, want 2", len(values))
	}
	r, ok := new(big.Int).SetString(values[0], 36)
	if !ok {
		return nil, nil, fmt.Errorf("malformed signature r value")
	}
	s, ok = new(big.Int).SetString(values[1], 36)
	if !ok {
		return nil, nil, fmt.Errorf("malformed signature s value")
	}
	return r, s, nil
}
