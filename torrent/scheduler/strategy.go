// Package scheduler owns the piece table, the per-peer view, and the
// block-assignment policy (§4.7).
package scheduler

import "sort"

// Strategy orders a set of candidate piece indices for scheduling.
// Implementations must never reorder across priority bands: callers
// always partition by core.Priority first and call Order within each
// band.
type Strategy interface {
	// Order returns candidates sorted into the order they should be
	// scheduled in.
	Order(candidates []int, counts func(piece int) int) []int
}

// Linear is the default strategy (§4.7): leftmost missing piece first.
type Linear struct{}

// Order returns candidates sorted ascending by index.
func (Linear) Order(candidates []int, counts func(piece int) int) []int {
	out := append([]int(nil), candidates...)
	sort.Ints(out)
	return out
}

// RarestFirst sorts pieces by ascending availability count across
// connected peers, ties broken by index (§4.7).
type RarestFirst struct{}

// Order returns candidates sorted by ascending rarity, index as tiebreak.
func (RarestFirst) Order(candidates []int, counts func(piece int) int) []int {
	out := append([]int(nil), candidates...)
	sort.Slice(out, func(i, j int) bool {
		ci, cj := counts(out[i]), counts(out[j])
		if ci != cj {
			return ci < cj
		}
		return out[i] < out[j]
	})
	return out
}
