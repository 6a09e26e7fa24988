package scheduler

import (
	"math/rand"
	"sort"
	"time"

	"github.com/fenwick-labs/corelode/core"
)

// Fixed choke/unchoke constants (§4.7, SPEC_FULL.md §9(b) Open Question
// resolution).
const (
	UnchokeSlots       = 4
	TickInterval       = 10 * time.Second
	OptimisticInterval = 30 * time.Second
	minFlipInterval    = 10 * time.Second
)

// Choker implements BEP-3 optimistic-style choke/unchoke (§4.7): each call
// to Tick unchokes the top UnchokeSlots peers by average download speed
// among those interested in us; once every OptimisticInterval, one
// additional interested peer is picked at random and kept unchoked until
// the next pick. A peer's choke state never flips more than once per
// minFlipInterval. Tick does not consult TickInterval: it recomputes the
// unchoke set on every call, and download.Coordinator calls it on each of
// its own ticks (1 s by default).
type Choker struct {
	now  func() time.Time
	rand *rand.Rand

	lastOptimistic time.Time
	optimisticPeer *core.Peer
}

// NewChoker creates a Choker. now supplies the current time (inject
// clock.Clock.Now for deterministic tests); src seeds the optimistic
// peer's random selection.
func NewChoker(now func() time.Time, src rand.Source) *Choker {
	return &Choker{now: now, rand: rand.New(src)}
}

// Tick runs one round of tit-for-tat unchoking over every peer interested
// in us, returning the peers whose choke state changed.
func (c *Choker) Tick(peers []*core.Peer) []*core.Peer {
	interested := make([]*core.Peer, 0, len(peers))
	for _, p := range peers {
		if p.InStatus.Interested {
			interested = append(interested, p)
		}
	}

	sort.SliceStable(interested, func(i, j int) bool {
		si, sj := interested[i].AvgDownloadSpeed(), interested[j].AvgDownloadSpeed()
		if si != sj {
			return si > sj
		}
		return interested[i].ID < interested[j].ID
	})

	unchoke := make(map[*core.Peer]bool, UnchokeSlots+1)
	for i := 0; i < len(interested) && i < UnchokeSlots; i++ {
		unchoke[interested[i]] = true
	}

	now := c.now()
	if now.Sub(c.lastOptimistic) >= OptimisticInterval {
		c.lastOptimistic = now
		var remaining []*core.Peer
		for _, p := range interested {
			if !unchoke[p] {
				remaining = append(remaining, p)
			}
		}
		if len(remaining) > 0 {
			c.optimisticPeer = remaining[c.rand.Intn(len(remaining))]
		} else {
			c.optimisticPeer = nil
		}
	}
	if c.optimisticPeer != nil {
		unchoke[c.optimisticPeer] = true
	}

	var changed []*core.Peer
	for _, p := range peers {
		wantChoked := !unchoke[p]
		if p.OutStatus.Choked == wantChoked {
			continue
		}
		if now.Sub(p.OutStatus.TimeOfLastStateChange) < minFlipInterval {
			continue
		}
		p.OutStatus.Choked = wantChoked
		p.OutStatus.TimeOfLastStateChange = now
		changed = append(changed, p)
	}
	return changed
}
