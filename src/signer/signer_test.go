package signer

import (
	"errors"
	"testing"

	cm "github.com/mosaicnetworks/murmur/src/common"
	"github.com/mosaicnetworks/murmur/src/crypto/keys"
	"github.com/mosaicnetworks/murmur/src/timeline"
)

type mapKeys map[string]string

func (m mapKeys) Key(user string) (string, error) {
	k, ok := m[user]
	if !ok {
		return "", cm.NewStoreErr("Key", cm.KeyNotFound, user)
	}
	return k, nil
}

func newTestSigner(t *testing.T) *Signer {
	key, err := keys.GenerateECDSAKey()
	if err != nil {
		t.Fatal(err)
	}
	return NewSigner(key)
}

func signedPayload(t *testing.T, s *Signer, user string, tl timeline.Timeline) []byte {
	snap, err := s.Sign(user, tl)
	if err != nil {
		t.Fatal(err)
	}
	raw, err := snap.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func TestSignAndVerify(t *testing.T) {
	bob := newTestSigner(t)
	ks := mapKeys{"bob": bob.PublicKeyHex()}

	tl := timeline.Timeline{{Content: "hi", Timestamp: 1}, {Content: "there", Timestamp: 2}}

	snap, err := VerifyAndExtract("bob", ks, signedPayload(t, bob, "bob", tl))
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Content) != 2 || snap.Content[1].Content != "there" || snap.LastTimestamp() != 2 {
		t.Fatalf("unexpected content %v", snap.Content)
	}
	if snap.Key != bob.PublicKeyHex() {
		t.Fatalf("snapshot should carry the signer's key")
	}

	// an empty timeline signs and verifies too
	if _, err := VerifyAndExtract("bob", ks, signedPayload(t, bob, "bob", nil)); err != nil {
		t.Fatal(err)
	}
}

func TestVerifyRejects(t *testing.T) {
	bob := newTestSigner(t)
	mallory := newTestSigner(t)
	ks := mapKeys{"bob": bob.PublicKeyHex()}

	tl := timeline.Timeline{{Content: "hi", Timestamp: 1}}

	tampered, _ := bob.Sign("bob", tl)
	tampered.Content[0].Content = "bye"
	tamperedRaw, _ := tampered.Marshal()

	unsorted, _ := bob.Sign("bob", timeline.Timeline{{Content: "b", Timestamp: 2}, {Content: "a", Timestamp: 1}})
	unsortedRaw, _ := unsorted.Marshal()

	cases := []struct {
		name      string
		user      string
		payload   []byte
		malformed bool
	}{
		{"wrong key", "bob", signedPayload(t, mallory, "bob", tl), false},
		{"tampered content", "bob", tamperedRaw, false},
		{"wrong owner", "bob", signedPayload(t, bob, "carol", tl), false},
		{"unknown user", "carol", signedPayload(t, bob, "carol", tl), false},
		{"garbage", "bob", []byte("{not json"), true},
		{"unsorted", "bob", unsortedRaw, true},
	}

	for _, c := range cases {
		_, err := VerifyAndExtract(c.user, ks, c.payload)
		if !cm.IsSync(err, cm.AuthenticityFailure) {
			t.Fatalf("%s: expected an AuthenticityFailure, got %v", c.name, err)
		}
		if errors.Is(err, ErrMalformed) != c.malformed {
			t.Fatalf("%s: malformed should be %v, error is %v", c.name, c.malformed, err)
		}
	}
}
