// Package keys implements the key material that identifies a murmur user.
//
// Every node owns one secp256k1 key-pair. The private key signs the
// snapshots of the local timeline before they are pushed or served; the
// public key travels with the snapshot the first time a follower fetches it
// and is then pinned in the follower's store, so that every later push or
// pull for that user is verified against it.
//
// Public keys are exchanged as the upper-case hex of their uncompressed
// form, prefixed with 0X. Signatures are the r and s values of an ECDSA
// signature over a SHA-256 digest, written in base 36 and separated by a pipe.
package keys
