package wire

import (
	"errors"
	"fmt"
	"io"

	"github.com/fenwick-labs/corelode/core"
)

// protocolName is the fixed BitTorrent protocol string (§4.3).
const protocolName = "BitTorrent protocol"

// HandshakeLength is the fixed wire length of a handshake: 1 + 19 + 8 + 20 + 20.
const HandshakeLength = 1 + len(protocolName) + 8 + 20 + 20

// extensionReservedByte and extensionReservedBit select byte 5 (0-indexed)
// of the 8 reserved bytes, bit 0x10,
// advertising BEP-10 extension protocol support (§4.3).
const extensionReservedByte = 5
const extensionReservedBit = 0x10

// Handshake is the 68-byte peer wire handshake (§4.3).
type Handshake struct {
	Reserved    [8]byte
	InfoHash    core.InfoHash
	PeerID      core.PeerID
	ExtensionOK bool
}

// NewHandshake builds a handshake advertising BEP-10 extension support
// whenever extensionOK is set.
func NewHandshake(infoHash core.InfoHash, peerID core.PeerID, extensionOK bool) Handshake {
	h := Handshake{InfoHash: infoHash, PeerID: peerID, ExtensionOK: extensionOK}
	if extensionOK {
		h.Reserved[extensionReservedByte] |= extensionReservedBit
	}
	return h
}

// Bytes serializes the handshake to its 68-byte wire form.
func (h Handshake) Bytes() []byte {
	b := make([]byte, 0, HandshakeLength)
	b = append(b, byte(len(protocolName)))
	b = append(b, protocolName...)
	b = append(b, h.Reserved[:]...)
	b = append(b, h.InfoHash.Bytes()...)
	b = append(b, h.PeerID[:]...)
	return b
}

// ErrBadProtocolString is returned when the peer's handshake does not carry
// the expected pstrlen/pstr prefix.
var ErrBadProtocolString = errors.New("wire: unexpected handshake protocol string")

// WriteHandshake writes h to w.
func WriteHandshake(w io.Writer, h Handshake) error {
	_, err := w.Write(h.Bytes())
	return err
}

// ReadHandshake reads and validates a peer handshake from r. It does not
// validate the info-hash against any expectation; the caller compares it.
func ReadHandshake(r io.Reader) (Handshake, error) {
	buf := make([]byte, HandshakeLength)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Handshake{}, fmt.Errorf("wire: read handshake: %w", err)
	}
	if int(buf[0]) != len(protocolName) || string(buf[1:1+len(protocolName)]) != protocolName {
		return Handshake{}, ErrBadProtocolString
	}
	var h Handshake
	copy(h.Reserved[:], buf[1+len(protocolName):1+len(protocolName)+8])
	off := 1 + len(protocolName) + 8
	infoHash, err := core.NewInfoHashFromBytes(buf[off : off+20])
	if err != nil {
		return Handshake{}, err
	}
	h.InfoHash = infoHash
	copy(h.PeerID[:], buf[off+20:off+40])
	h.ExtensionOK = h.Reserved[extensionReservedByte]&extensionReservedBit != 0
	return h, nil
}
