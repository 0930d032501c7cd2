package timeline

import (
	"bytes"

	"github.com/ugorji/go/codec"
)

// Snapshot is a signed copy of a user's whole timeline. It is what travels on
// the wire and what a Store keeps for every followed user. Key is the owner's
// public key and Signature covers Owner and Content.
type Snapshot struct {
	Owner     string   `json:"owner"`
	Content   Timeline `json:"content"`
	Key       string   `json:"key"`
	Signature string   `json:"signature"`
}

// LastTimestamp returns the timestamp of the snapshot's trailing message.
func (s *Snapshot) LastTimestamp() int64 {
	return s.Content.LastTimestamp()
}

// Copy returns a deep copy of the snapshot.
func (s *Snapshot) Copy() *Snapshot {
	res := *s
	res.Content = s.Content.Copy()
	return &res
}

// Marshal - json encoding of Snapshot
func (s *Snapshot) Marshal() ([]byte, error) {
	return encode(s)
}

// Unmarshal ...
func (s *Snapshot) Unmarshal(data []byte) error {
	return decode(data, s)
}

// Marshal - json encoding of Timeline. The encoding is canonical and is
// therefore suitable as signing input.
func (t Timeline) Marshal() ([]byte, error) {
	if t == nil {
		t = Timeline{}
	}
	return encode(t)
}

func jsonHandle() *codec.JsonHandle {
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	return jh
}

func encode(v interface{}) ([]byte, error) {
	b := new(bytes.Buffer)
	enc := codec.NewEncoder(b, jsonHandle())

	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

func decode(data []byte, v interface{}) error {
	dec := codec.NewDecoder(bytes.NewBuffer(data), jsonHandle())
	return dec.Decode(v)
}
