package download

import "net"

// Origin distinguishes how a new peer entered the pool (§4.9:
// "NewPeer::{ListenerOrigin(peer), TrackerOrigin(addr)}").
type Origin int

// Origins.
const (
	// ListenerOrigin peers arrive as a net.Conn already accepted by the
	// shared inbound listener (one per info-hash subscription), carried in
	// Conn; the coordinator completes the handshake itself.
	ListenerOrigin Origin = iota
	// TrackerOrigin peers arrive as a bare address discovered via tracker
	// announce or PEX; the coordinator dials and handshakes them itself via
	// the peer candidate pool (§4.6).
	TrackerOrigin
)

// NewPeerEvent is delivered to the coordinator whenever a peer is
// discovered, either by the shared listener or by tracker/PEX.
type NewPeerEvent struct {
	Origin Origin
	Addr   net.Addr
	Conn   net.Conn // set only for ListenerOrigin.
}

// ProgressSnapshot is emitted once per tick (§4.9: "emit progress
// snapshot").
type ProgressSnapshot struct {
	Downloaded     int64
	Uploaded       int64
	Left           int64
	PiecesComplete int
	PiecesTotal    int
	ActivePeers    int
}

// ProgressConsumer receives a ProgressSnapshot every tick.
type ProgressConsumer func(ProgressSnapshot)
