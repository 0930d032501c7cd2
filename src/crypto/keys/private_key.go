package keys

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"math/big"

	"github.com/btcsuite/btcd/btcec"
)

// GenerateECDSAKey creates a new secp256k1 private key.
func GenerateECDSAKey() (*ecdsa.PrivateKey, error) {
	key, err := btcec.NewPrivateKey(btcec.S256())
	if err != nil {
		return nil, err
	}
	return key.ToECDSA(), nil
}

// DumpPrivateKey exports the D value of a private key as a 32 byte
// big-endian slice.
func DumpPrivateKey(priv *ecdsa.PrivateKey) []byte {
	if priv == nil {
		return nil
	}
	return (*btcec.PrivateKey)(priv).Serialize()
}

// ParsePrivateKey rebuilds a private key from a dump produced by
// DumpPrivateKey.
func ParsePrivateKey(d []byte) (*ecdsa.PrivateKey, error) {
	if len(d) != 32 {
		return nil, errors.New("invalid length, need 256 bits")
	}
	if !inRange(new(big.Int).SetBytes(d)) {
		return nil, errors.New("invalid private key, out of range")
	}
	priv, _ := btcec.PrivKeyFromBytes(btcec.S256(), d)
	return priv.ToECDSA(), nil
}

// PrivateKeyHex returns the hex dump of a private key.
func PrivateKeyHex(key *ecdsa.PrivateKey) string {
	return hex.EncodeToString(DumpPrivateKey(key))
}
