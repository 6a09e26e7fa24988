package core

import "sync"

// Torrent aggregates the state of one active torrent (§3.5): its Info
// identity, bitfield, enabled-files selection, piece table, peer map, PEX
// history, and save location.
type Torrent struct {
	mu sync.RWMutex

	InfoHash     InfoHash
	Name         string
	NumPieces    int
	TotalLength  int64
	PieceLength  int64
	SaveLocation string

	Bitfield     Bitfield
	EnabledFiles Bitfield // indexed by file index, not piece index

	Pieces []*PieceEntry

	peers map[PeerID]*Peer
	pex   PexHistory
}

// NewTorrent allocates a Torrent with a fresh piece table at the given
// per-piece priority.
func NewTorrent(infoHash InfoHash, name string, numPieces int, totalLength, pieceLength int64,
	numFiles int, saveLocation string, defaultPriority Priority) *Torrent {

	pieces := make([]*PieceEntry, numPieces)
	for i := range pieces {
		pieceLen := pieceLength
		if i == numPieces-1 {
			pieceLen = totalLength - pieceLength*int64(numPieces-1)
		}
		pieces[i] = NewPieceEntry(defaultPriority, pieceLen)
	}

	enabledFiles := EmptyBitfield(numFiles)
	for i := 0; i < numFiles; i++ {
		_ = enabledFiles.Add(i)
	}

	return &Torrent{
		InfoHash:     infoHash,
		Name:         name,
		NumPieces:    numPieces,
		TotalLength:  totalLength,
		PieceLength:  pieceLength,
		SaveLocation: saveLocation,
		Bitfield:     EmptyBitfield(numPieces),
		EnabledFiles: enabledFiles,
		Pieces:       pieces,
		peers:        make(map[PeerID]*Peer),
	}
}

// AddPeer registers a peer under a locally generated id.
func (t *Torrent) AddPeer(id PeerID, p *Peer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.peers[id] = p
}

// RemovePeer removes a peer and returns it, if present.
func (t *Torrent) RemovePeer(id PeerID) (*Peer, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.peers[id]
	delete(t.peers, id)
	return p, ok
}

// Peer returns the peer registered under id, if any.
func (t *Torrent) Peer(id PeerID) (*Peer, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.peers[id]
	return p, ok
}

// Peers returns a snapshot copy of the peer id -> peer map.
func (t *Torrent) Peers() map[PeerID]*Peer {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[PeerID]*Peer, len(t.peers))
	for id, p := range t.peers {
		out[id] = p
	}
	return out
}

// PEX returns the torrent's peer-exchange history log.
func (t *Torrent) PEX() *PexHistory {
	return &t.pex
}

// IsComplete reports whether every piece of the torrent is set in the
// bitfield (Bitfield.IsFull). The enabled-files selection is not
// consulted, so a torrent with disabled files is never complete.
func (t *Torrent) IsComplete() bool {
	return t.Bitfield.IsFull(t.NumPieces)
}

// BytesLeft returns the total length of every piece not yet set in the
// bitfield. The enabled-files selection is not consulted: pieces that
// belong only to disabled files still count as left.
func (t *Torrent) BytesLeft() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var left int64
	for i, p := range t.Pieces {
		if !t.Bitfield.Has(i) {
			pieceLen := t.PieceLength
			if i == t.NumPieces-1 {
				pieceLen = t.TotalLength - t.PieceLength*int64(t.NumPieces-1)
			}
			_ = p
			left += pieceLen
		}
	}
	return left
}
