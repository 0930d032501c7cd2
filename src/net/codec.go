package net

import (
	"io"

	"github.com/ugorji/go/codec"
)

func jsonHandle() *codec.JsonHandle {
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	return jh
}

func decodeFrom(r io.Reader, v interface{}) error {
	return codec.NewDecoder(r, jsonHandle()).Decode(v)
}

func encodeBytes(v interface{}) ([]byte, error) {
	var res []byte
	if err := codec.NewEncoderBytes(&res, jsonHandle()).Encode(v); err != nil {
		return nil, err
	}
	return res, nil
}
