// Package signer signs timeline snapshots with the node's key and verifies the
// snapshots received from other nodes against the keys pinned in the store.
package signer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	cm "github.com/mosaicnetworks/murmur/src/common"
	"github.com/mosaicnetworks/murmur/src/crypto"
	"github.com/mosaicnetworks/murmur/src/crypto/keys"
	"github.com/mosaicnetworks/murmur/src/timeline"
)

// ErrMalformed is wrapped by the errors of payloads that could not be decoded.
var ErrMalformed = errors.New("malformed snapshot")

// KeyStore gives access to the public keys pinned for users.
type KeyStore interface {
	Key(user string) (string, error)
}

// Signer holds the private key of the local user.
type Signer struct {
	key    *ecdsa.PrivateKey
	pubHex string
}

// NewSigner ...
func NewSigner(key *ecdsa.PrivateKey) *Signer {
	return &Signer{
		key:    key,
		pubHex: keys.PublicKeyHex(&key.PublicKey),
	}
}

// PublicKeyHex returns the hex encoding of the signer's public key.
func (s *Signer) PublicKeyHex() string {
	return s.pubHex
}

// Sign wraps a copy of tl in a Snapshot owned by user, carrying the signer's
// public key and a signature over the owner and the content.
func (s *Signer) Sign(user string, tl timeline.Timeline) (*timeline.Snapshot, error) {
	snap := &timeline.Snapshot{
		Owner:   user,
		Content: tl.Copy(),
		Key:     s.pubHex,
	}
	if snap.Content == nil {
		snap.Content = timeline.Timeline{}
	}

	hash, err := digest(snap)
	if err != nil {
		return nil, err
	}

	r, sig, err := keys.Sign(s.key, hash)
	if err != nil {
		return nil, err
	}

	snap.Signature = keys.EncodeSignature(r, sig)

	return snap, nil
}

// VerifyAndExtract decodes payload as a Snapshot of user and verifies it with
// the key pinned for user in ks. Every failure is an AuthenticityFailure;
// payloads that cannot be decoded also wrap ErrMalformed.
func VerifyAndExtract(user string, ks KeyStore, payload []byte) (*timeline.Snapshot, error) {
	snap := &timeline.Snapshot{}
	if err := snap.Unmarshal(payload); err != nil {
		return nil, cm.NewSyncErr(cm.AuthenticityFailure, user, fmt.Errorf("%w: %v", ErrMalformed, err))
	}

	key, err := ks.Key(user)
	if err != nil {
		return nil, cm.NewSyncErr(cm.AuthenticityFailure, user, fmt.Errorf("no known key: %w", err))
	}

	if err := Verify(user, snap, key); err != nil {
		return nil, err
	}

	return snap, nil
}

// Verify checks that snap is a snapshot of user signed by the owner of key.
func Verify(user string, snap *timeline.Snapshot, key string) error {
	if snap.Owner != user {
		return cm.NewSyncErr(cm.AuthenticityFailure, user,
			fmt.Errorf("snapshot belongs to %q", snap.Owner))
	}

	if !snap.Content.IsSorted() {
		return cm.NewSyncErr(cm.AuthenticityFailure, user,
			fmt.Errorf("%w: timeline is not in timestamp order", ErrMalformed))
	}

	pub, err := keys.PublicKeyFromHex(key)
	if err != nil {
		return cm.NewSyncErr(cm.AuthenticityFailure, user, fmt.Errorf("invalid key: %w", err))
	}

	r, s, err := keys.DecodeSignature(snap.Signature)
	if err != nil {
		return cm.NewSyncErr(cm.AuthenticityFailure, user, err)
	}

	hash, err := digest(snap)
	if err != nil {
		return cm.NewSyncErr(cm.AuthenticityFailure, user, err)
	}

	if !keys.Verify(pub, hash, r, s) {
		return cm.NewSyncErr(cm.AuthenticityFailure, user, errors.New("invalid signature"))
	}

	return nil
}

// digest is the hash signed for a snapshot. It covers the owner and the
// canonical encoding of the content.
func digest(snap *timeline.Snapshot) ([]byte, error) {
	content, err := snap.Content.Marshal()
	if err != nil {
		return nil, err
	}
	return crypto.SHA256Parts([]byte(snap.Owner), content), nil
}
