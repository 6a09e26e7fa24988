// Package bencode provides canonical bencoding for values that are hashed
// as part of a torrent's identity (§6.3), wrapping the real decoder/encoder
// so callers never have to think about dict key ordering.
package bencode

import (
	"bytes"
	"io"

	bencode "github.com/jackpal/bencode-go"
)

// Marshal encodes v into canonical bencode form.
func Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := bencode.Marshal(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes bencoded data into v. It is lenient about trailing
// garbage after a single value per spec.md §6.3 ("accept but do not emit
// lenient variants").
func Unmarshal(data []byte, v interface{}) error {
	return bencode.Unmarshal(bytes.NewReader(data), v)
}

// Decode decodes a single bencoded value from r into v.
func Decode(r io.Reader, v interface{}) error {
	return bencode.Unmarshal(r, v)
}

// Encode writes the canonical bencoding of v to w.
func Encode(w io.Writer, v interface{}) error {
	return bencode.Marshal(w, v)
}
