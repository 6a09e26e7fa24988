// Package wire implements the BitTorrent peer wire protocol (§4.3, §6.1):
// the 68-byte handshake, length-prefixed core messages, and the BEP-10
// extension protocol (ut_metadata, ut_pex).
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Kind identifies a core peer wire message (§4.3).
type Kind byte

// Core message ids.
const (
	Choke         Kind = 0
	Unchoke       Kind = 1
	Interested    Kind = 2
	NotInterested Kind = 3
	Have          Kind = 4
	BitfieldMsg   Kind = 5
	Request       Kind = 6
	Piece         Kind = 7
	Cancel        Kind = 8
	Extended      Kind = 20
)

func (k Kind) String() string {
	switch k {
	case Choke:
		return "choke"
	case Unchoke:
		return "unchoke"
	case Interested:
		return "interested"
	case NotInterested:
		return "not_interested"
	case Have:
		return "have"
	case BitfieldMsg:
		return "bitfield"
	case Request:
		return "request"
	case Piece:
		return "piece"
	case Cancel:
		return "cancel"
	case Extended:
		return "extended"
	default:
		return fmt.Sprintf("unknown(%d)", byte(k))
	}
}

// RequestPayload is the request/cancel message payload: piece, offset,
// length, each a big-endian uint32 (§4.3).
type RequestPayload struct {
	Piece  uint32
	Offset uint32
	Length uint32
}

// PiecePayload is the piece message payload: piece, offset, then the block
// bytes (§4.3).
type PiecePayload struct {
	Piece  uint32
	Offset uint32
	Block  []byte
}

// ExtendedPayload is the extended message payload: an extension id and a
// bencoded (+ optional trailing raw bytes, for ut_metadata data) message
// body (§4.3).
type ExtendedPayload struct {
	ExtensionID byte
	Payload     []byte
}

// Message is a single decoded peer wire message. KeepAlive is true for a
// zero-length message, in which case every other field must be ignored.
type Message struct {
	KeepAlive bool
	Kind      Kind

	HavePiece uint32
	Bitfield  []byte
	Req       RequestPayload
	Pc        PiecePayload
	Ext       ExtendedPayload
}

// KeepAliveMessage returns the zero-length keep-alive message.
func KeepAliveMessage() Message {
	return Message{KeepAlive: true}
}

// ErrShortMessage is returned when a length-prefixed message is shorter than
// its id byte requires for its kind.
var ErrShortMessage = errors.New("wire: message too short for its kind")

// WriteMessage writes a length-prefixed message per §4.3. The 4-byte
// big-endian length prefix excludes itself; zero-length means keep-alive.
func WriteMessage(w io.Writer, m Message) error {
	if m.KeepAlive {
		return binary.Write(w, binary.BigEndian, uint32(0))
	}
	body, err := encodeBody(m)
	if err != nil {
		return err
	}
	length := uint32(1 + len(body))
	if err := binary.Write(w, binary.BigEndian, length); err != nil {
		return err
	}
	if _, err := w.Write([]byte{byte(m.Kind)}); err != nil {
		return err
	}
	if len(body) > 0 {
		if _, err := w.Write(body); err != nil {
			return err
		}
	}
	return nil
}

func encodeBody(m Message) ([]byte, error) {
	switch m.Kind {
	case Choke, Unchoke, Interested, NotInterested:
		return nil, nil
	case Have:
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, m.HavePiece)
		return b, nil
	case BitfieldMsg:
		return m.Bitfield, nil
	case Request, Cancel:
		b := make([]byte, 12)
		binary.BigEndian.PutUint32(b[0:4], m.Req.Piece)
		binary.BigEndian.PutUint32(b[4:8], m.Req.Offset)
		binary.BigEndian.PutUint32(b[8:12], m.Req.Length)
		return b, nil
	case Piece:
		b := make([]byte, 8+len(m.Pc.Block))
		binary.BigEndian.PutUint32(b[0:4], m.Pc.Piece)
		binary.BigEndian.PutUint32(b[4:8], m.Pc.Offset)
		copy(b[8:], m.Pc.Block)
		return b, nil
	case Extended:
		b := make([]byte, 1+len(m.Ext.Payload))
		b[0] = m.Ext.ExtensionID
		copy(b[1:], m.Ext.Payload)
		return b, nil
	default:
		return nil, fmt.Errorf("wire: unknown message kind %d", byte(m.Kind))
	}
}

// MaxMessageLength caps message size to defend against malformed length
// prefixes (§7: peer protocol errors are recovered at the peer task without
// taking down the process).
const MaxMessageLength = 1 << 20 // 1 MiB, comfortably above a 16 KiB block + overhead.

// ReadMessage reads one length-prefixed message per §4.3.
func ReadMessage(r io.Reader) (Message, error) {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return Message{}, err
	}
	if length == 0 {
		return KeepAliveMessage(), nil
	}
	if length > MaxMessageLength {
		return Message{}, fmt.Errorf("wire: message length %d exceeds maximum %d", length, MaxMessageLength)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Message{}, err
	}
	return decodeBody(Kind(buf[0]), buf[1:])
}

func decodeBody(kind Kind, body []byte) (Message, error) {
	m := Message{Kind: kind}
	switch kind {
	case Choke, Unchoke, Interested, NotInterested:
		return m, nil
	case Have:
		if len(body) < 4 {
			return Message{}, ErrShortMessage
		}
		m.HavePiece = binary.BigEndian.Uint32(body)
		return m, nil
	case BitfieldMsg:
		m.Bitfield = append([]byte(nil), body...)
		return m, nil
	case Request, Cancel:
		if len(body) < 12 {
			return Message{}, ErrShortMessage
		}
		m.Req = RequestPayload{
			Piece:  binary.BigEndian.Uint32(body[0:4]),
			Offset: binary.BigEndian.Uint32(body[4:8]),
			Length: binary.BigEndian.Uint32(body[8:12]),
		}
		return m, nil
	case Piece:
		if len(body) < 8 {
			return Message{}, ErrShortMessage
		}
		m.Pc = PiecePayload{
			Piece:  binary.BigEndian.Uint32(body[0:4]),
			Offset: binary.BigEndian.Uint32(body[4:8]),
			Block:  append([]byte(nil), body[8:]...),
		}
		return m, nil
	case Extended:
		if len(body) < 1 {
			return Message{}, ErrShortMessage
		}
		m.Ext = ExtendedPayload{
			ExtensionID: body[0],
			Payload:     append([]byte(nil), body[1:]...),
		}
		return m, nil
	default:
		// Unknown message ids are tolerated (BEP extensibility); surface as
		// a generic message the caller can ignore.
		m.Ext = ExtendedPayload{ExtensionID: byte(kind), Payload: body}
		return m, nil
	}
}
