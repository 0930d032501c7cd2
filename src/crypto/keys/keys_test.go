package keys

import (
	"path/filepath"
	"reflect"
	"os"
	"testing"

	"github.com/mosaicnetworks/murmur/src/crypto"
)

func TestSimpleKeyfile(t *testing.T) {
	dir := t.TempDir()

	simpleKeyfile := NewSimpleKeyfile(filepath.Join(dir, "priv_key"))

	// Try a read, should get nothing
	key, err := simpleKeyfile.ReadKey()
	if err == nil {
		t.Fatalf("ReadKey should generate an error")
	}
	if key != nil {
		t.Fatalf("key is not nil")
	}

	key, _ = GenerateECDSAKey()
	if err := simpleKeyfile.WriteKey(key); err != nil {
		t.Fatalf("err: %v", err)
	}

	nKey, err := simpleKeyfile.ReadKey()
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if nKey.D.Cmp(key.D) != 0 {
		t.Fatalf("Keys do not match")
	}
	if !reflect.DeepEqual(FromPublicKey(&nKey.PublicKey), FromPublicKey(&key.PublicKey)) {
		t.Fatalf("Public keys do not match")
	}
}

func TestFilePermissions(t *testing.T) {
	dir := t.TempDir()

	key, _ := GenerateECDSAKey()
	rawKey := PrivateKeyHex(key)

	badKeyPath := filepath.Join(dir, "priv_key_bad")
	for _, fm := range []os.FileMode{0777, 0766, 0744, 0644, 0640, 0604} {
		os.Remove(badKeyPath)
		if err := os.WriteFile(badKeyPath, []byte(rawKey), fm); err != nil {
			t.Fatal(err)
		}
		os.Chmod(badKeyPath, fm)
		if _, err := NewSimpleKeyfile(badKeyPath).ReadKey(); err == nil {
			t.Fatalf("%o || key file should return permissions error", fm)
		}
	}

	goodKeyPath := filepath.Join(dir, "priv_key_good")
	for _, fm := range []os.FileMode{0700, 0600, 0400} {
		os.Remove(goodKeyPath)
		if err := os.WriteFile(goodKeyPath, []byte(rawKey), fm); err != nil {
			t.Fatal(err)
		}
		os.Chmod(goodKeyPath, fm)
		if _, err := NewSimpleKeyfile(goodKeyPath).ReadKey(); err != nil {
			t.Fatalf("%o || key file should not return error. Got %v", fm, err)
		}
	}
}

func TestPublicKeyHex(t *testing.T) {
	key, _ := GenerateECDSAKey()

	pubHex := PublicKeyHex(&key.PublicKey)
	if pubHex[:2] != "0X" {
		t.Fatalf("public key hex should carry the 0X prefix: %s", pubHex)
	}

	pub, err := PublicKeyFromHex(pubHex)
	if err != nil {
		t.Fatal(err)
	}
	if pub.X.Cmp(key.X) != 0 || pub.Y.Cmp(key.Y) != 0 {
		t.Fatalf("parsed public key differs from original")
	}

	if _, err := PublicKeyFromHex("0XZZ"); err == nil {
		t.Fatalf("malformed hex should not parse")
	}
}

func TestSignVerify(t *testing.T) {
	privKey, _ := GenerateECDSAKey()
	other, _ := GenerateECDSAKey()

	hash := crypto.SHA256([]byte("J'aime mieux forger mon ame que la meubler"))

	r, s, err := Sign(privKey, hash)
	if err != nil {
		t.Fatal(err)
	}

	dr, ds, err := DecodeSignature(EncodeSignature(r, s))
	if err != nil {
		t.Fatal(err)
	}
	if r.Cmp(dr) != 0 || s.Cmp(ds) != 0 {
		t.Fatalf("signature does not survive encoding")
	}

	if !Verify(&privKey.PublicKey, hash, dr, ds) {
		t.Fatalf("signature should verify with the signer's key")
	}
	if Verify(&other.PublicKey, hash, dr, ds) {
		t.Fatalf("signature should not verify with another key")
	}
	if Verify(&privKey.PublicKey, crypto.SHA256([]byte("tampered")), dr, ds) {
		t.Fatalf("signature should not verify another digest")
	}

	if _, _, err := DecodeSignature("no-pipe"); err == nil {
		t.Fatalf("DecodeSignature should reject malformed input")
	}
}
