package core

import (
	"net"
	"time"
)

// Direction flags for a peer's choke/interest state (§3.4, GLOSSARY).
type DirectionStatus struct {
	Choked               bool
	Interested           bool
	TimeOfLastStateChange time.Time
}

// PerformanceSample is one rolling-window tick of up/down byte deltas
// (§3.4).
type PerformanceSample struct {
	DownloadedDelta int64
	UploadedDelta   int64
}

// PerformanceWindowSize is the number of samples retained per peer (§3.4).
const PerformanceWindowSize = 20

// ExtensionHandshake records the BEP-10 extension handshake for a peer
// (§4.3): the extension-name -> id map it advertised, its client name, our
// observed IP per its view, and its advertised ut_metadata size.
type ExtensionHandshake struct {
	ExtensionIDs map[string]int
	ClientName   string
	YourIP       net.IP
	MetadataSize int
}

// UtMetadataID returns the extension id the peer advertised for
// ut_metadata, and whether it advertised one at all.
func (h *ExtensionHandshake) UtMetadataID() (int, bool) {
	if h == nil {
		return 0, false
	}
	id, ok := h.ExtensionIDs["ut_metadata"]
	return id, ok
}

// UtPexID returns the extension id the peer advertised for ut_pex, and
// whether it advertised one at all.
func (h *ExtensionHandshake) UtPexID() (int, bool) {
	if h == nil {
		return 0, false
	}
	id, ok := h.ExtensionIDs["ut_pex"]
	return id, ok
}

// Peer is a peer entity (§3.4): its address, observed bitfield, per-direction
// choke/interest state, cumulative transfer totals, rolling performance
// history, pending outbound block requests, the pieces we're currently
// interested in from it, and an optional extension handshake.
type Peer struct {
	// ID is a stable, locally assigned identifier (the pool key the peer
	// was registered under). It breaks ties in deterministic orderings
	// such as the choker's tit-for-tat ranking (§4.7/§8); it is not the
	// on-wire handshake peer-id.
	ID         string
	Addr       net.Addr
	Bitfield   Bitfield
	InStatus   DirectionStatus
	OutStatus  DirectionStatus
	Downloaded int64
	Uploaded   int64

	performance      [PerformanceWindowSize]PerformanceSample
	performanceHead  int
	performanceCount int

	PendingRequests map[PieceOffset]*PendingBlock
	InterestedIn    map[int]struct{}

	Extension *ExtensionHandshake
}

// PieceOffset identifies one in-flight block request by piece index and
// byte offset within the piece.
type PieceOffset struct {
	Piece  int
	Offset int64
}

// NewPeer creates a Peer with empty tracking state for the given bitfield
// capacity. id is the pool key the peer is registered under (see Peer.ID).
func NewPeer(id string, addr net.Addr, numPieces int) *Peer {
	return &Peer{
		ID:              id,
		Addr:            addr,
		Bitfield:        EmptyBitfield(numPieces),
		PendingRequests: make(map[PieceOffset]*PendingBlock),
		InterestedIn:    make(map[int]struct{}),
	}
}

// RecordTick appends a performance sample, evicting the oldest once the
// rolling window of PerformanceWindowSize is full.
func (p *Peer) RecordTick(sample PerformanceSample) {
	p.performance[p.performanceHead] = sample
	p.performanceHead = (p.performanceHead + 1) % PerformanceWindowSize
	if p.performanceCount < PerformanceWindowSize {
		p.performanceCount++
	}
}

// AvgDownloadSpeed returns the mean per-tick download delta across the
// rolling window (§4.7: the basis for per-peer rate and choke ranking).
func (p *Peer) AvgDownloadSpeed() float64 {
	if p.performanceCount == 0 {
		return 0
	}
	var sum int64
	for i := 0; i < p.performanceCount; i++ {
		sum += p.performance[i].DownloadedDelta
	}
	return float64(sum) / float64(p.performanceCount)
}

// AvgUploadSpeed returns the mean per-tick upload delta across the rolling
// window.
func (p *Peer) AvgUploadSpeed() float64 {
	if p.performanceCount == 0 {
		return 0
	}
	var sum int64
	for i := 0; i < p.performanceCount; i++ {
		sum += p.performance[i].UploadedDelta
	}
	return float64(sum) / float64(p.performanceCount)
}

// InterestedCount returns how many pieces we currently want from this peer.
func (p *Peer) InterestedCount() int {
	return len(p.InterestedIn)
}

// CanServe reports whether we may serve piece requests to this peer: per
// §3.8, the peer's own interested/choked flags toward us never block
// serving, only our OutStatus.Choked does.
func (p *Peer) CanServe() bool {
	return !p.OutStatus.Choked
}
