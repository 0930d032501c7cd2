package crypto

import (
	"crypto/sha256"
	"encoding/binary"
)

// SHA256 returns the SHA256 hash of the data.
func SHA256(data []byte) []byte {
	hasher := sha256.New()
	hasher.Write(data)
	return hasher.Sum(nil)
}

// SHA256Parts returns the SHA256 hash of the parts, each one preceded by its
// length so that different splits of the same bytes never collide.
func SHA256Parts(parts ...[]byte) []byte {
	hasher := sha256.New()
	var l [8]byte
	for _, p := range parts {
		binary.BigEndian.PutUint64(l[:], uint64(len(p)))
		hasher.Write(l[:])
		hasher.Write(p)
	}
	return hasher.Sum(nil)
}
