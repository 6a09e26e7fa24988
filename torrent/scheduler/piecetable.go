package scheduler

import (
	"github.com/fenwick-labs/corelode/core"
)

// PieceTable owns every piece's scheduling state for one torrent (§4.7).
type PieceTable struct {
	pieces []*core.PieceEntry
}

// NewPieceTable creates a table from a slice of per-piece entries, indexed
// by piece number.
func NewPieceTable(pieces []*core.PieceEntry) *PieceTable {
	return &PieceTable{pieces: pieces}
}

// Len returns the total piece count.
func (t *PieceTable) Len() int { return len(t.pieces) }

// Entry returns the entry for piece i.
func (t *PieceTable) Entry(i int) *core.PieceEntry { return t.pieces[i] }

// candidatesByPriority partitions every schedulable piece (not finished,
// not saving, not Disabled, peerHas(i) true, at least one unassigned
// block) into priority bands, highest first.
// Disabled pieces are never scheduled (§4.7).
func (t *PieceTable) candidatesByPriority(peerHas func(i int) bool) [][]int {
	bands := make([][]int, 3) // High, Medium, Low
	for i, p := range t.pieces {
		if p.IsFinished || p.IsSaving || p.Priority == core.Disabled {
			continue
		}
		if !peerHas(i) {
			continue
		}
		if !hasUnassignedBlock(p) {
			continue
		}
		switch p.Priority {
		case core.High:
			bands[0] = append(bands[0], i)
		case core.Medium:
			bands[1] = append(bands[1], i)
		case core.Low:
			bands[2] = append(bands[2], i)
		}
	}
	return bands
}

func hasUnassignedBlock(p *core.PieceEntry) bool {
	for _, b := range p.PendingBlocks {
		if b.Bytes == nil && !b.Requested {
			return true
		}
	}
	return false
}

// Order returns every schedulable piece index that peerHas, in the given
// strategy's order, honoring High > Medium > Low priority across both
// strategies (§4.7).
func (t *PieceTable) Order(strategy Strategy, peerHas func(i int) bool, counts func(piece int) int) []int {
	bands := t.candidatesByPriority(peerHas)
	var out []int
	for _, band := range bands {
		out = append(out, strategy.Order(band, counts)...)
	}
	return out
}

// NextUnassignedBlock returns the next contiguous unassigned block for
// piece i, with length = min(piece_remaining, 16 KiB), or nil if the
// piece has no unassigned blocks left (§4.7).
func (t *PieceTable) NextUnassignedBlock(i int) *core.PendingBlock {
	p := t.pieces[i]
	for _, b := range p.PendingBlocks {
		if b.Bytes == nil && !b.Requested {
			return b
		}
	}
	return nil
}

// GlobalAvailability counts, across every connected peer's RemoteHas
// predicate, how many peers have piece i — the basis for Rarest-First
// ordering (§4.7).
func GlobalAvailability(numPieces int, peerHasFns []func(i int) bool) func(piece int) int {
	counts := make([]int, numPieces)
	for _, has := range peerHasFns {
		for i := 0; i < numPieces; i++ {
			if has(i) {
				counts[i]++
			}
		}
	}
	return func(piece int) int { return counts[piece] }
}
