package wire

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/fenwick-labs/corelode/core"
)

// Config controls handshake timing. Grounded on the teacher's
// lib/torrent/scheduler/conn.Config.applyDefaults idiom.
type Config struct {
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
}

func (c Config) applyDefaults() Config {
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	return c
}

// ErrInfoHashMismatch is returned when a peer's handshake carries an
// info-hash other than the one we dialed for.
var ErrInfoHashMismatch = errors.New("wire: info hash mismatch in handshake")

// ErrPeerIDMismatch is returned when an outbound dial's handshake response
// carries a peer-id other than the one we expected to find at that address.
var ErrPeerIDMismatch = errors.New("wire: peer id mismatch in handshake")

// Handshaker performs the outbound dial + handshake and inbound
// accept + handshake halves of connection establishment (§4.3), mirroring
// the teacher's conn.Handshaker split between Initialize (dial) and Accept
// (accept then Establish).
type Handshaker struct {
	config Config
	peerID core.PeerID
}

// NewHandshaker creates a Handshaker that will present localPeerID in every
// handshake it sends.
func NewHandshaker(config Config, localPeerID core.PeerID) *Handshaker {
	return &Handshaker{config: config.applyDefaults(), peerID: localPeerID}
}

// Dial opens a TCP connection to addr and performs the outbound handshake
// for infoHash, advertising extension support. If expectedPeerID is the
// zero value, no peer-id check is performed (unknown peer-id case, e.g. a
// peer learned only via tracker/PEX).
func (h *Handshaker) Dial(addr string, infoHash core.InfoHash, expectedPeerID core.PeerID, extensionOK bool) (net.Conn, Handshake, error) {
	nc, err := net.DialTimeout("tcp", addr, h.config.HandshakeTimeout)
	if err != nil {
		return nil, Handshake{}, fmt.Errorf("wire: dial: %w", err)
	}
	remote, err := h.exchange(nc, infoHash, extensionOK)
	if err != nil {
		nc.Close()
		return nil, Handshake{}, err
	}
	var zero core.PeerID
	if expectedPeerID != zero && remote.PeerID != expectedPeerID {
		nc.Close()
		return nil, Handshake{}, ErrPeerIDMismatch
	}
	return nc, remote, nil
}

// Accept reads an inbound handshake from an already-accepted connection,
// verifies the advertised info-hash against lookup, and replies with our
// own handshake for the same torrent.
func (h *Handshaker) Accept(nc net.Conn, lookup func(core.InfoHash) bool, extensionOK bool) (Handshake, error) {
	nc.SetDeadline(time.Now().Add(h.config.HandshakeTimeout))
	defer nc.SetDeadline(time.Time{})

	remote, err := ReadHandshake(nc)
	if err != nil {
		return Handshake{}, fmt.Errorf("wire: read handshake: %w", err)
	}
	if !lookup(remote.InfoHash) {
		return Handshake{}, ErrInfoHashMismatch
	}
	reply := NewHandshake(remote.InfoHash, h.peerID, extensionOK)
	if err := WriteHandshake(nc, reply); err != nil {
		return Handshake{}, fmt.Errorf("wire: write handshake: %w", err)
	}
	return remote, nil
}

func (h *Handshaker) exchange(nc net.Conn, infoHash core.InfoHash, extensionOK bool) (Handshake, error) {
	nc.SetDeadline(time.Now().Add(h.config.HandshakeTimeout))
	defer nc.SetDeadline(time.Time{})

	outbound := NewHandshake(infoHash, h.peerID, extensionOK)
	if err := WriteHandshake(nc, outbound); err != nil {
		return Handshake{}, fmt.Errorf("wire: write handshake: %w", err)
	}
	remote, err := ReadHandshake(nc)
	if err != nil {
		return Handshake{}, fmt.Errorf("wire: read handshake: %w", err)
	}
	if remote.InfoHash != infoHash {
		return Handshake{}, ErrInfoHashMismatch
	}
	return remote, nil
}
