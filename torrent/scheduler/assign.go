package scheduler

import (
	"github.com/fenwick-labs/corelode/core"
)

// BlockRequest identifies one block to request from a specific peer.
type BlockRequest struct {
	Piece  int
	Offset int64
	Length int64
}

// failedBlock is a block of a piece that failed verification with more
// than one contributing peer, or whose requesting peer disconnected before
// it arrived (§4.7).
type failedBlock struct {
	Piece  int
	Offset int64
}

// Assigner implements the §4.7 assignment order, block receipt, and
// endgame policy over one torrent's PieceTable.
type Assigner struct {
	table      *PieceTable
	strategy   Strategy
	hashes     []core.Digest
	failed     []failedBlock
	peerBlocks map[string]map[core.PieceOffset]bool // peer key -> outstanding blocks
	pieceOwner map[core.PieceOffset]string          // sole contributor, for endgame cancel + single-peer ban
	endgame    bool
}

// NewAssigner creates an Assigner. hashes holds the expected SHA-1 of each
// piece, indexed the same as table.
func NewAssigner(table *PieceTable, strategy Strategy, hashes []core.Digest) *Assigner {
	return &Assigner{
		table:      table,
		strategy:   strategy,
		hashes:     hashes,
		peerBlocks: make(map[string]map[core.PieceOffset]bool),
		pieceOwner: make(map[core.PieceOffset]string),
	}
}

func (a *Assigner) finishedCount() int {
	n := 0
	for i := 0; i < a.table.Len(); i++ {
		if a.table.Entry(i).IsFinished {
			n++
		}
	}
	return n
}

// anyUnassignedBlocks reports whether any schedulable piece still has a
// block with neither bytes nor an outstanding request.
func (a *Assigner) anyUnassignedBlocks(peerHas func(i int) bool) bool {
	for i := 0; i < a.table.Len(); i++ {
		p := a.table.Entry(i)
		if p.IsFinished || p.Priority == core.Disabled || !peerHas(i) {
			continue
		}
		if hasUnassignedBlock(p) {
			return true
		}
	}
	return false
}

// Assign implements §4.7's "Assignment order (endgame off)": first drains
// failed_blocks matching pieces the peer has, then picks the next piece
// from the peer's interested set in strategy order with unassigned
// blocks. want bounds how many new requests to return (the gap toward the
// peer's TargetPendingBlocks).
func (a *Assigner) Assign(peerKey string, peerHas func(i int) bool, counts func(piece int) int, want int) []BlockRequest {
	if want <= 0 {
		return nil
	}
	var out []BlockRequest

	// 1. Drain failed_blocks matching pieces the peer has.
	remaining := a.failed[:0]
	for _, fb := range a.failed {
		if len(out) >= want {
			remaining = append(remaining, fb)
			continue
		}
		if !peerHas(fb.Piece) {
			remaining = append(remaining, fb)
			continue
		}
		p := a.table.Entry(fb.Piece)
		if p.IsFinished || p.Priority == core.Disabled {
			continue
		}
		blk := blockAt(p, fb.Offset)
		if blk == nil || blk.Bytes != nil {
			continue
		}
		out = append(out, a.claim(peerKey, fb.Piece, blk))
	}
	a.failed = remaining

	if len(out) >= want {
		return out
	}

	// 2. Endgame: duplicate every still-missing request to every capable
	// peer once no unassigned blocks remain anywhere (§4.7).
	if a.endgame || (!a.anyUnassignedBlocks(func(int) bool { return true }) && a.finishedCount() < a.table.Len()) {
		a.endgame = true
		for i := 0; i < a.table.Len(); i++ {
			if len(out) >= want {
				break
			}
			p := a.table.Entry(i)
			if p.IsFinished || p.IsSaving || p.Priority == core.Disabled || !peerHas(i) {
				continue
			}
			for _, blk := range p.PendingBlocks {
				if blk.Bytes != nil {
					continue
				}
				po := core.PieceOffset{Piece: i, Offset: blk.Offset}
				if a.peerBlocks[peerKey][po] {
					continue
				}
				a.addOutstanding(peerKey, po)
				out = append(out, BlockRequest{Piece: i, Offset: blk.Offset, Length: blk.Length})
				if len(out) >= want {
					break
				}
			}
		}
		return out
	}

	// 2'. Normal path: next piece from the peer's interested set with
	// unassigned blocks, next contiguous offset.
	for _, i := range a.table.Order(a.strategy, peerHas, counts) {
		for len(out) < want {
			blk := a.table.NextUnassignedBlock(i)
			if blk == nil {
				break
			}
			out = append(out, a.claim(peerKey, i, blk))
		}
		if len(out) >= want {
			break
		}
	}

	return out
}

func (a *Assigner) claim(peerKey string, piece int, blk *core.PendingBlock) BlockRequest {
	blk.Requested = true
	po := core.PieceOffset{Piece: piece, Offset: blk.Offset}
	a.addOutstanding(peerKey, po)
	a.pieceOwner[po] = peerKey
	return BlockRequest{Piece: piece, Offset: blk.Offset, Length: blk.Length}
}

func (a *Assigner) addOutstanding(peerKey string, po core.PieceOffset) {
	m, ok := a.peerBlocks[peerKey]
	if !ok {
		m = make(map[core.PieceOffset]bool)
		a.peerBlocks[peerKey] = m
	}
	m[po] = true
}

func blockAt(p *core.PieceEntry, offset int64) *core.PendingBlock {
	for _, b := range p.PendingBlocks {
		if b.Offset == offset {
			return b
		}
	}
	return nil
}

// ReceiptResult reports what happened after a block arrived.
type ReceiptResult struct {
	PieceCompleted bool
	VerifyOK       bool
	BanPeer        bool      // single peer supplied every block and verification failed.
	CancelTo       []string  // in endgame, other peers holding this block to cancel.
}

// ReceiveBlock records an arrived block's bytes (§4.7 "Block receipt").
// When every offset in the piece is filled, it assembles and verifies the
// piece's SHA-1: on success the piece is marked finished; on failure the
// piece is cleared, the single contributing peer is flagged for banning if
// it supplied every block alone, otherwise the blocks are re-queued into
// failed_blocks.
func (a *Assigner) ReceiveBlock(peerKey string, piece int, offset int64, data []byte) ReceiptResult {
	p := a.table.Entry(piece)
	blk := blockAt(p, offset)
	if blk == nil || blk.Bytes != nil {
		return ReceiptResult{}
	}
	blk.Bytes = data
	blk.Requested = false

	po := core.PieceOffset{Piece: piece, Offset: offset}
	delete(a.peerBlocks[peerKey], po)

	if a.endgame {
		var cancelTo []string
		for otherKey, blocks := range a.peerBlocks {
			if otherKey == peerKey {
				continue
			}
			if blocks[po] {
				delete(blocks, po)
				cancelTo = append(cancelTo, otherKey)
			}
		}
		if !p.AllBlocksReceived() {
			return ReceiptResult{CancelTo: cancelTo}
		}
	} else if !p.AllBlocksReceived() {
		return ReceiptResult{}
	}

	assembled := p.Assembled()
	ok := piece < len(a.hashes) && a.hashes[piece].Verify(assembled)
	if ok {
		p.IsFinished = true
		a.clearOwners(piece)
		return ReceiptResult{PieceCompleted: true, VerifyOK: true}
	}

	soleOwner, banPeer := a.singleContributor(piece)
	p.Reset()
	a.clearOwners(piece)
	if banPeer {
		return ReceiptResult{VerifyOK: false, BanPeer: true, CancelTo: []string{soleOwner}}
	}
	for _, b := range p.PendingBlocks {
		a.failed = append(a.failed, failedBlock{Piece: piece, Offset: b.Offset})
	}
	return ReceiptResult{VerifyOK: false}
}

func (a *Assigner) singleContributor(piece int) (string, bool) {
	owner := ""
	for po, k := range a.pieceOwner {
		if po.Piece != piece {
			continue
		}
		if owner == "" {
			owner = k
		} else if owner != k {
			return "", false
		}
	}
	return owner, owner != ""
}

func (a *Assigner) clearOwners(piece int) {
	for po := range a.pieceOwner {
		if po.Piece == piece {
			delete(a.pieceOwner, po)
		}
	}
}

// DropPeer releases every block outstanding to peerKey back into
// failed_blocks, e.g. on disconnect (§4.9 "drain its pending blocks into
// failed_blocks").
func (a *Assigner) DropPeer(peerKey string) {
	for po := range a.peerBlocks[peerKey] {
		p := a.table.Entry(po.Piece)
		if blk := blockAt(p, po.Offset); blk != nil {
			blk.Requested = false
		}
		a.failed = append(a.failed, failedBlock{Piece: po.Piece, Offset: po.Offset})
	}
	delete(a.peerBlocks, peerKey)
}

// InterestedCount recomputes how many pieces we want (not finished, not
// Disabled) that peerHas reports present — the basis for interest
// transitions (§4.7 "Interest management").
func InterestedCount(table *PieceTable, peerHas func(i int) bool) int {
	n := 0
	for i := 0; i < table.Len(); i++ {
		p := table.Entry(i)
		if p.IsFinished || p.Priority == core.Disabled {
			continue
		}
		if peerHas(i) {
			n++
		}
	}
	return n
}
