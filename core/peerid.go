// Package core holds the torrent value types shared across subsystems:
// identifiers and digests, bitfields, piece state, peer state, PEX
// history, and the torrent aggregate. Torrent metainfo lives in
// torrent/metainfo and UPnP descriptors in upnp/scpd. Only the standard
// library is imported here.
package core

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
)

// ErrInvalidPeerIDLength is returned when a string peer id does not decode
// into 20 bytes.
var ErrInvalidPeerIDLength = errors.New("core: peer id has invalid length")

// PeerID is a locally generated identifier for a peer entity (§3.4). It
// reuses the same 20-byte shape as the on-wire peer-id exchanged during the
// BitTorrent handshake (see torrent/wire.Handshake) but is looked up
// independently — callers that need the wire bytes use PeerID directly.
type PeerID [20]byte

// NewPeerID parses a PeerID from hexadecimal notation.
func NewPeerID(s string) (PeerID, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return PeerID{}, err
	}
	if len(b) != 20 {
		return PeerID{}, ErrInvalidPeerIDLength
	}
	var p PeerID
	copy(p[:], b)
	return p, nil
}

// RandomPeerID generates a new random PeerID.
func RandomPeerID() (PeerID, error) {
	var p PeerID
	if _, err := rand.Read(p[:]); err != nil {
		return PeerID{}, err
	}
	return p, nil
}

// String encodes the PeerID in hexadecimal notation.
func (p PeerID) String() string {
	return hex.EncodeToString(p[:])
}
