// Package dht implements the receive-only KRPC surface described in
// spec.md §4.20: wire-format types for ping/find_node/get_peers/
// announce_peer, and a Node that can answer them without maintaining a
// routing table. Tracker-based discovery (torrent/tracker) remains the
// primary peer-discovery path; this package is additive.
package dht

import (
	"encoding/hex"
	"errors"

	"github.com/fenwick-labs/corelode/core"
	"github.com/fenwick-labs/corelode/torrent/bencode"
)

// NodeID is a DHT node's 20-byte identity, the same shape as core.PeerID
// but a distinct type looked up in its own namespace (§4.20).
type NodeID [20]byte

// RandomNodeID generates a new random NodeID.
func RandomNodeID() (NodeID, error) {
	id, err := core.RandomPeerID()
	if err != nil {
		return NodeID{}, err
	}
	return NodeID(id), nil
}

// String encodes the NodeID in hexadecimal notation.
func (id NodeID) String() string {
	return hex.EncodeToString(id[:])
}

// Bytes returns the raw 20-byte identity as sent on the wire.
func (id NodeID) Bytes() []byte {
	return id[:]
}

// KRPC message types (the "y" field).
const (
	TypeQuery    = "q"
	TypeResponse = "r"
	TypeError    = "e"
)

// KRPC query names (the "q" field).
const (
	Ping         = "ping"
	FindNode     = "find_node"
	GetPeers     = "get_peers"
	AnnouncePeer = "announce_peer"
)

// Standard KRPC error codes (BEP-5 §"Errors").
const (
	ErrCodeGeneric     = 201
	ErrCodeServer      = 202
	ErrCodeProtocol    = 203
	ErrCodeMethodUnknown = 204
)

// ErrUnknownMethod is returned by Node.Handle for a query name it does not
// recognize.
var ErrUnknownMethod = errors.New("dht: unknown method")

// QueryArgs is the "a" dict of a query message. Only the fields relevant to
// the query's own method are populated; id is always present.
type QueryArgs struct {
	ID          string `bencode:"id"`
	Target      string `bencode:"target,omitempty"`
	InfoHash    string `bencode:"info_hash,omitempty"`
	Port        int    `bencode:"port,omitempty"`
	ImpliedPort int    `bencode:"implied_port,omitempty"`
	Token       string `bencode:"token,omitempty"`
}

// ResponseValues is the "r" dict of a response message. Nodes is a
// BEP-5 compact node-info string; Values is a list of compact peer-info
// strings. Ping and announce_peer responses carry only ID.
type ResponseValues struct {
	ID     string   `bencode:"id"`
	Nodes  string   `bencode:"nodes,omitempty"`
	Token  string   `bencode:"token,omitempty"`
	Values []string `bencode:"values,omitempty"`
}

// Message is the top-level KRPC envelope (§4.20). Exactly one of Args,
// Response, or Error is populated, selected by Type.
type Message struct {
	TransactionID string          `bencode:"t"`
	Type          string          `bencode:"y"`
	Query         string          `bencode:"q,omitempty"`
	Args          *QueryArgs      `bencode:"a,omitempty"`
	Response      *ResponseValues `bencode:"r,omitempty"`
	Error         []interface{}   `bencode:"e,omitempty"`
	ClientVersion string          `bencode:"v,omitempty"`
}

// Encode bencodes the message.
func (m Message) Encode() ([]byte, error) {
	return bencode.Marshal(m)
}

// DecodeMessage parses a single bencoded KRPC message.
func DecodeMessage(data []byte) (Message, error) {
	var m Message
	if err := bencode.Unmarshal(data, &m); err != nil {
		return Message{}, err
	}
	return m, nil
}

// NewQuery builds a query message for the given transaction id, method,
// and arguments.
func NewQuery(txID, method string, args QueryArgs) Message {
	return Message{
		TransactionID: txID,
		Type:          TypeQuery,
		Query:         method,
		Args:          &args,
	}
}

// NewResponse builds a response message replying to txID.
func NewResponse(txID string, values ResponseValues) Message {
	return Message{
		TransactionID: txID,
		Type:          TypeResponse,
		Response:      &values,
	}
}

// NewError builds an error message replying to txID.
func NewError(txID string, code int, msg string) Message {
	return Message{
		TransactionID: txID,
		Type:          TypeError,
		Error:         []interface{}{code, msg},
	}
}
