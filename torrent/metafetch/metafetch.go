// Package metafetch resolves a magnet link's Info by dialing a single
// peer and running the BEP-9 ut_metadata exchange (§4.3, §4.20's CLI
// parity note), independent of the full download.Coordinator — a
// resolve-magnet CLI invocation has nowhere to get an Info from until
// this exchange completes, so it can't go through the normal
// tracker-discovery-then-Coordinator path.
//
// Uses wire.WriteHandshake/ReadHandshake for the handshake and
// wire.ExtensionHandshakeDict/MetadataMessage (already
// built for the Coordinator's own peer connections) for the message
// shapes; this package adds only the request/assemble/verify loop.
package metafetch

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/fenwick-labs/corelode/core"
	"github.com/fenwick-labs/corelode/torrent/metainfo"
	"github.com/fenwick-labs/corelode/torrent/wire"
)

// ErrPeerNoExtensions is returned when a dialed peer's handshake does not
// advertise BEP-10 extension protocol support, a prerequisite for
// ut_metadata.
var ErrPeerNoExtensions = errors.New("metafetch: peer does not support the extension protocol")

// ErrPeerNoUtMetadata is returned when a peer's extension handshake omits
// the ut_metadata entry.
var ErrPeerNoUtMetadata = errors.New("metafetch: peer does not advertise ut_metadata")

// ErrMetadataRejected is returned as soon as a peer rejects a metadata
// piece request.
var ErrMetadataRejected = errors.New("metafetch: peer rejected metadata request")

// ErrMetadataHashMismatch is returned when the assembled metadata's SHA-1
// does not match the requested info-hash.
var ErrMetadataHashMismatch = errors.New("metafetch: assembled metadata does not match info hash")

// FetchInfo dials addr, negotiates ut_metadata, downloads and verifies
// the info dict for infoHash, and parses it.
func FetchInfo(ctx context.Context, addr string, infoHash core.InfoHash, localPeerID core.PeerID) (metainfo.Info, error) {
	data, err := fetchMetadataBytes(ctx, addr, infoHash, localPeerID)
	if err != nil {
		return metainfo.Info{}, err
	}
	return metainfo.ParseInfo(data)
}

func fetchMetadataBytes(ctx context.Context, addr string, infoHash core.InfoHash, localPeerID core.PeerID) ([]byte, error) {
	var d net.Dialer
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metafetch: dial: %w", err)
	}
	defer nc.Close()

	if dl, ok := ctx.Deadline(); ok {
		_ = nc.SetDeadline(dl)
	}

	if err := wire.WriteHandshake(nc, wire.NewHandshake(infoHash, localPeerID, true)); err != nil {
		return nil, fmt.Errorf("metafetch: send handshake: %w", err)
	}
	remote, err := wire.ReadHandshake(nc)
	if err != nil {
		return nil, fmt.Errorf("metafetch: read handshake: %w", err)
	}
	if remote.InfoHash != infoHash {
		return nil, wire.ErrInfoHashMismatch
	}
	if !remote.ExtensionOK {
		return nil, ErrPeerNoExtensions
	}

	ourHandshake, err := wire.NewExtensionHandshakeDict("torrentctl", 0, 0).Marshal()
	if err != nil {
		return nil, fmt.Errorf("metafetch: marshal extension handshake: %w", err)
	}
	if err := wire.WriteMessage(nc, wire.Message{
		Kind: wire.Extended,
		Ext:  wire.ExtendedPayload{ExtensionID: 0, Payload: ourHandshake},
	}); err != nil {
		return nil, fmt.Errorf("metafetch: send extension handshake: %w", err)
	}

	peerUtMetadataID := byte(0)
	metadataSize := 0
	for peerUtMetadataID == 0 {
		m, err := wire.ReadMessage(nc)
		if err != nil {
			return nil, fmt.Errorf("metafetch: read extension handshake: %w", err)
		}
		if m.KeepAlive || m.Kind != wire.Extended || m.Ext.ExtensionID != 0 {
			continue
		}
		dict, err := wire.ParseExtensionHandshakeDict(m.Ext.Payload)
		if err != nil {
			return nil, err
		}
		id, ok := dict.M["ut_metadata"]
		if !ok {
			return nil, ErrPeerNoUtMetadata
		}
		peerUtMetadataID = byte(id)
		metadataSize = dict.MetadataSize
	}
	if metadataSize <= 0 {
		return nil, ErrPeerNoUtMetadata
	}

	numPieces := (metadataSize + wire.MetadataBlockLength - 1) / wire.MetadataBlockLength
	pieces := make([][]byte, numPieces)
	received := 0

	for piece := 0; piece < numPieces && received < numPieces; piece++ {
		req := wire.MetadataMessage{MsgType: wire.MetadataRequest, Piece: piece}
		body, err := req.Marshal()
		if err != nil {
			return nil, err
		}
		if err := wire.WriteMessage(nc, wire.Message{
			Kind: wire.Extended,
			Ext:  wire.ExtendedPayload{ExtensionID: peerUtMetadataID, Payload: body},
		}); err != nil {
			return nil, fmt.Errorf("metafetch: send metadata request: %w", err)
		}

		resp, err := readMetadataResponse(nc)
		if err != nil {
			return nil, err
		}
		if resp.MsgType == wire.MetadataReject {
			return nil, ErrMetadataRejected
		}
		if resp.Piece < 0 || resp.Piece >= numPieces || pieces[resp.Piece] != nil {
			continue
		}
		pieces[resp.Piece] = resp.Block
		received++
	}

	var data []byte
	for _, p := range pieces {
		if p == nil {
			return nil, fmt.Errorf("metafetch: incomplete metadata, missing pieces")
		}
		data = append(data, p...)
	}
	data = data[:metadataSize]

	if !wire.VerifyMetadata([20]byte(infoHash), data) {
		return nil, ErrMetadataHashMismatch
	}
	return data, nil
}

// readMetadataResponse skips any non-extended or non-ut_metadata traffic
// a peer interleaves (keep-alives, unsolicited haves) while waiting for
// one metadata response.
func readMetadataResponse(nc net.Conn) (wire.MetadataMessage, error) {
	for {
		m, err := wire.ReadMessage(nc)
		if err != nil {
			return wire.MetadataMessage{}, fmt.Errorf("metafetch: read metadata response: %w", err)
		}
		if m.KeepAlive || m.Kind != wire.Extended || m.Ext.ExtensionID == 0 {
			continue
		}
		return wire.ParseMetadataMessage(m.Ext.Payload)
	}
}
