package core

// Priority is the scheduling priority of a piece (§3.3).
type Priority int

// Piece priorities, highest first in scheduling order.
const (
	Disabled Priority = iota
	Low
	Medium
	High
)

// PendingBlock is one in-flight or assembled block of a piece (§3.3): a byte
// offset, a length (16 KiB except for the tail block of the tail piece), the
// bytes once received, and whether a request for it is currently
// outstanding to some peer.
type PendingBlock struct {
	Offset    int64
	Length    int64
	Bytes     []byte
	Requested bool
}

// Done reports whether the block's bytes have arrived.
func (b *PendingBlock) Done() bool {
	return b.Bytes != nil
}

// PieceEntry tracks one piece's scheduling state (§3.3).
type PieceEntry struct {
	Priority      Priority
	IsFinished    bool
	IsSaving      bool
	PendingBlocks []*PendingBlock
}

// BlockLength is the standard block size used for all blocks except the
// tail block of the tail piece (§3.3, §4.7).
const BlockLength int64 = 16 * 1024

// BlocksForPiece returns the PendingBlock layout covering [0, pieceLen),
// each BlockLength bytes except a shorter final block.
func BlocksForPiece(pieceLen int64) []*PendingBlock {
	var blocks []*PendingBlock
	var offset int64
	for offset < pieceLen {
		length := BlockLength
		if remaining := pieceLen - offset; remaining < length {
			length = remaining
		}
		blocks = append(blocks, &PendingBlock{Offset: offset, Length: length})
		offset += length
	}
	return blocks
}

// NewPieceEntry creates a PieceEntry with a fresh, empty pending-blocks
// layout for a piece of length pieceLen, at the given priority.
func NewPieceEntry(priority Priority, pieceLen int64) *PieceEntry {
	return &PieceEntry{
		Priority:      priority,
		PendingBlocks: BlocksForPiece(pieceLen),
	}
}

// Assembled concatenates the piece's block bytes in offset order. Callers
// must ensure every block is Done() first.
func (p *PieceEntry) Assembled() []byte {
	var total int64
	for _, b := range p.PendingBlocks {
		total += b.Length
	}
	out := make([]byte, 0, total)
	for _, b := range p.PendingBlocks {
		out = append(out, b.Bytes...)
	}
	return out
}

// AllBlocksReceived reports whether every block in the piece has bytes.
func (p *PieceEntry) AllBlocksReceived() bool {
	for _, b := range p.PendingBlocks {
		if !b.Done() {
			return false
		}
	}
	return true
}

// Reset clears all received block bytes, e.g. after a hash-verification
// failure (§4.7 "on failure clear the piece").
func (p *PieceEntry) Reset() {
	for _, b := range p.PendingBlocks {
		b.Bytes = nil
		b.Requested = false
	}
}
