package wire

import (
	"bytes"
	"crypto/sha1"
	"fmt"

	"github.com/fenwick-labs/corelode/torrent/bencode"
)

// Local extension ids we advertise, and the names peers must use for the
// companion BEP-9/BEP-11 extensions (§4.3, §4.20).
const (
	LocalUtMetadataID = 1
	LocalUtPexID      = 2
)

// ExtensionHandshakeDict is the bencoded id-0 extension handshake message
// body (§4.3): `m` maps extension name to local id, `v` is a client name,
// `p` is our listen port, `yourip` is the peer's address as we see it, and
// `metadata_size` is present only once we know the metainfo size.
type ExtensionHandshakeDict struct {
	M            map[string]int `bencode:"m"`
	V            string         `bencode:"v,omitempty"`
	P            int            `bencode:"p,omitempty"`
	YourIP       string         `bencode:"yourip,omitempty"`
	MetadataSize int            `bencode:"metadata_size,omitempty"`
}

// NewExtensionHandshakeDict builds the standard outgoing handshake
// advertising ut_metadata and ut_pex.
func NewExtensionHandshakeDict(clientName string, listenPort int, metadataSize int) ExtensionHandshakeDict {
	return ExtensionHandshakeDict{
		M: map[string]int{
			"ut_metadata": LocalUtMetadataID,
			"ut_pex":      LocalUtPexID,
		},
		V:            clientName,
		P:            listenPort,
		MetadataSize: metadataSize,
	}
}

// Marshal bencodes the extension handshake dict.
func (d ExtensionHandshakeDict) Marshal() ([]byte, error) {
	return bencode.Marshal(d)
}

// ParseExtensionHandshakeDict decodes an id-0 extended message payload.
func ParseExtensionHandshakeDict(payload []byte) (ExtensionHandshakeDict, error) {
	var d ExtensionHandshakeDict
	if err := bencode.Unmarshal(payload, &d); err != nil {
		return ExtensionHandshakeDict{}, fmt.Errorf("wire: parse extension handshake: %w", err)
	}
	return d, nil
}

// ut_metadata message types (BEP-9).
const (
	MetadataRequest = 0
	MetadataData    = 1
	MetadataReject  = 2
)

// MetadataBlockLength is the fixed piece size ut_metadata transfers pieces
// at, except for the final piece (BEP-9, §4.3).
const MetadataBlockLength = 16 * 1024

// MetadataMessage is one ut_metadata extended-message body: the bencoded
// header dict, followed by raw block bytes when MsgType is MetadataData.
type MetadataMessage struct {
	MsgType   int `bencode:"msg_type"`
	Piece     int `bencode:"piece"`
	TotalSize int `bencode:"total_size,omitempty"`
	Block     []byte
}

// Marshal bencodes the header and appends the raw block (data messages
// only carry a block; request/reject carry none).
func (m MetadataMessage) Marshal() ([]byte, error) {
	header := struct {
		MsgType   int `bencode:"msg_type"`
		Piece     int `bencode:"piece"`
		TotalSize int `bencode:"total_size,omitempty"`
	}{m.MsgType, m.Piece, m.TotalSize}
	body, err := bencode.Marshal(header)
	if err != nil {
		return nil, err
	}
	if m.MsgType == MetadataData {
		return append(body, m.Block...), nil
	}
	return body, nil
}

// ParseMetadataMessage decodes a ut_metadata extended-message payload. The
// bencoded header may be followed by trailing raw block bytes (present only
// for data messages). The header is decoded with bencode.Decode from a
// bytes.Reader over payload, and for a data message whatever that reader
// has left unread is taken as the block.
func ParseMetadataMessage(payload []byte) (MetadataMessage, error) {
	var header struct {
		MsgType   int `bencode:"msg_type"`
		Piece     int `bencode:"piece"`
		TotalSize int `bencode:"total_size,omitempty"`
	}
	r := bytes.NewReader(payload)
	if err := bencode.Decode(r, &header); err != nil {
		return MetadataMessage{}, fmt.Errorf("wire: parse ut_metadata header: %w", err)
	}
	consumed := len(payload) - r.Len()
	m := MetadataMessage{MsgType: header.MsgType, Piece: header.Piece, TotalSize: header.TotalSize}
	if header.MsgType == MetadataData {
		m.Block = append([]byte(nil), payload[consumed:]...)
	}
	return m, nil
}

// VerifyMetadata checks an assembled metadata buffer's SHA-1 against the
// expected info-hash (§4.2: metadata completion is not trusted until
// verified this way).
func VerifyMetadata(infoHash [20]byte, metadata []byte) bool {
	sum := sha1.Sum(metadata)
	return bytes.Equal(sum[:], infoHash[:])
}

// ut_pex address/flags entries (§4.3, original_source/torrent/src/protocol/pex.rs).

// PexMessage is the bencoded ut_pex payload: compact IPv4/IPv6 added and
// dropped peer lists plus a parallel per-entry flags byte string.
type PexMessage struct {
	Added    string `bencode:"added,omitempty"`
	AddedF   string `bencode:"added.f,omitempty"`
	Added6   string `bencode:"added6,omitempty"`
	Added6F  string `bencode:"added6.f,omitempty"`
	Dropped  string `bencode:"dropped,omitempty"`
	Dropped6 string `bencode:"dropped6,omitempty"`
}

// Marshal bencodes the ut_pex message.
func (m PexMessage) Marshal() ([]byte, error) {
	return bencode.Marshal(m)
}

// ParsePexMessage decodes a ut_pex extended-message payload.
func ParsePexMessage(payload []byte) (PexMessage, error) {
	var m PexMessage
	if err := bencode.Unmarshal(payload, &m); err != nil {
		return PexMessage{}, fmt.Errorf("wire: parse ut_pex message: %w", err)
	}
	return m, nil
}
