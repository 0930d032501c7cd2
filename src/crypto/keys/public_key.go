package keys

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec"
	"github.com/mosaicnetworks/murmur/src/common"
)

// FromPublicKey serializes a public key in uncompressed form.
func FromPublicKey(pub *ecdsa.PublicKey) []byte {
	if pub == nil || pub.X == nil || pub.Y == nil {
		return nil
	}
	return (*btcec.PublicKey)(pub).SerializeUncompressed()
}

// ToPublicKey parses a public key serialized by FromPublicKey. Compressed
// keys are accepted too.
func ToPublicKey(pub []byte) (*ecdsa.PublicKey, error) {
	if len(pub) == 0 {
		return nil, fmt.Errorf("empty public key")
	}
	key, err := btcec.ParsePubKey(pub, btcec.S256())
	if err != nil {
		return nil, err
	}
	return key.ToECDSA(), nil
}

// PublicKeyHex returns the 0X-prefixed upper-case hex of the uncompressed
// public key.
func PublicKeyHex(pub *ecdsa.PublicKey) string {
	return common.EncodeToString(FromPublicKey(pub))
}

// PublicKeyFromHex parses the output of PublicKeyHex. The prefix and the case
// of the hex digits are not significant.
func PublicKeyFromHex(s string) (*ecdsa.PublicKey, error) {
	raw, err := common.DecodeFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	return ToPublicKey(raw)
}
