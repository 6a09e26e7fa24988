// Package peerstore implements the bounded candidate-address pool (§4.6):
// a capacity-limited max-heap ranked by BEP-40 canonical peer priority,
// with Banned/Stored/Connecting/Active address classification and a
// bounded connect_best operation.
package peerstore

import (
	"context"
	"errors"
	"hash/crc32"
	"net"
	"sync"
	"time"

	"github.com/fenwick-labs/corelode/internal/heap"
)

// State classifies one candidate address (§4.6).
type State int

// Candidate states.
const (
	Stored State = iota
	Connecting
	Active
	Banned
)

// castagnoli is the BEP-40 CRC32C polynomial table.
var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// CanonicalPriority computes the BEP-40 canonical priority of the (local,
// remote) address pair: CRC32C of the two addresses' IP bytes (port
// masked out entirely, per spec — priority must agree regardless of which
// ephemeral port either side used), sorted so the value is the same
// regardless of which side initiated the connection.
func CanonicalPriority(local, remote net.Addr) (uint32, error) {
	a, err := normalizeAddr(local)
	if err != nil {
		return 0, err
	}
	b, err := normalizeAddr(remote)
	if err != nil {
		return 0, err
	}
	if compareBytes(a, b) > 0 {
		a, b = b, a
	}
	buf := append(append([]byte(nil), a...), b...)
	return crc32.Checksum(buf, castagnoli), nil
}

func normalizeAddr(addr net.Addr) ([]byte, error) {
	host, _, err := splitAddr(addr)
	if err != nil {
		return nil, err
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return nil, errors.New("peerstore: address has no parseable IP")
	}
	if ip4 := ip.To4(); ip4 != nil {
		return append(append([]byte(nil), ip4...), 0, 0), nil
	}
	return append(append([]byte(nil), ip.To16()...), 0, 0), nil
}

func splitAddr(addr net.Addr) (host, port string, err error) {
	return net.SplitHostPort(addr.String())
}

func compareBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return int(a[i]) - int(b[i])
		}
	}
	return len(a) - len(b)
}

// ErrBanned is returned by Add when the address is permanently banned.
var ErrBanned = errors.New("peerstore: address is banned")

// ErrEmpty is returned by ConnectBest when there are no stored candidates.
var ErrEmpty = errors.New("peerstore: no stored candidates")

type entry struct {
	addr     net.Addr
	priority uint32
	state    State
}

// Store is a bounded candidate pool for a single torrent. It is safe for
// concurrent use.
type Store struct {
	mu        sync.Mutex
	localAddr net.Addr
	capacity  int

	entries map[string]*entry
	pq      *heap.PriorityQueue // holds addr keys of Stored entries only.
	banned  map[string]struct{}
}

// DefaultCapacity is the default bound on stored (non-banned, non-active)
// candidates (§4.6).
const DefaultCapacity = 1000

// New creates an empty Store. localAddr is this node's own listen address,
// used as one side of every canonical-priority computation.
func New(localAddr net.Addr, capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		localAddr: localAddr,
		capacity:  capacity,
		entries:   make(map[string]*entry),
		pq:        heap.NewPriorityQueue(),
		banned:    make(map[string]struct{}),
	}
}

// Add registers a new candidate address as Stored, computing its
// canonical priority. Re-adding an address already tracked (in any state)
// is a no-op, except that a Banned address returns ErrBanned.
func (s *Store) Add(addr net.Addr) error {
	key := addr.String()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, banned := s.banned[key]; banned {
		return ErrBanned
	}
	if _, exists := s.entries[key]; exists {
		return nil
	}

	priority, err := CanonicalPriority(s.localAddr, addr)
	if err != nil {
		return err
	}
	e := &entry{addr: addr, priority: priority, state: Stored}
	s.entries[key] = e
	// Max-heap by negating priority, since internal/heap is a min-heap.
	s.pq.Push(&heap.Item{Value: key, Priority: -int(priority)})

	s.evictIfOverCapacity()
	return nil
}

// evictIfOverCapacity drops the lowest-priority Stored candidate once the
// pool exceeds its capacity. Connecting/Active/Banned entries are never
// evicted this way.
func (s *Store) evictIfOverCapacity() {
	storedCount := 0
	for _, e := range s.entries {
		if e.state == Stored {
			storedCount++
		}
	}
	for storedCount > s.capacity {
		// The lowest-priority stored candidate sits at the tail of the
		// heap; since our heap only supports popping the max, walk the
		// map to find the true minimum among Stored entries explicitly.
		var worstKey string
		var worstPriority uint32
		first := true
		for k, e := range s.entries {
			if e.state != Stored {
				continue
			}
			if first || e.priority < worstPriority {
				worstKey = k
				worstPriority = e.priority
				first = false
			}
		}
		if worstKey == "" {
			return
		}
		delete(s.entries, worstKey)
		storedCount--
	}
}

// State returns the current state of addr, if known.
func (s *Store) State(addr net.Addr) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := addr.String()
	if _, banned := s.banned[key]; banned {
		return Banned, true
	}
	e, ok := s.entries[key]
	if !ok {
		return 0, false
	}
	return e.state, true
}

// Ban permanently marks addr as banned (§4.6: "Banned addresses persist").
func (s *Store) Ban(addr net.Addr) {
	key := addr.String()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.banned[key] = struct{}{}
	delete(s.entries, key)
}

// MarkActive transitions addr from Connecting to Active, e.g. once its
// handshake completes.
func (s *Store) MarkActive(addr net.Addr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[addr.String()]; ok {
		e.state = Active
	}
}

// Release transitions addr back to Stored, e.g. after a peer disconnects
// and may be retried later, re-queuing it for ConnectBest.
func (s *Store) Release(addr net.Addr) {
	key := addr.String()
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || e.state == Banned {
		return
	}
	e.state = Stored
	s.pq.Push(&heap.Item{Value: key, Priority: -int(e.priority)})
}

// Dialer opens a connection to addr, bounded by the context's deadline.
type Dialer func(ctx context.Context, addr net.Addr) error

// DefaultConnectTimeout is the bound on a single ConnectBest attempt
// (§4.6: "timeout ≤ 3 s").
const DefaultConnectTimeout = 3 * time.Second

// ConnectBest pops the highest-priority Stored candidate, marks it
// Connecting, and invokes dial with a bounded context. On dial failure the
// candidate is released back to Stored (the caller may choose to Ban it
// instead based on the failure reason).
func (s *Store) ConnectBest(ctx context.Context, timeout time.Duration, dial Dialer) (net.Addr, error) {
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	addr, ok := s.popBestStored()
	if !ok {
		return nil, ErrEmpty
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := dial(dialCtx, addr); err != nil {
		s.Release(addr)
		return nil, err
	}
	s.MarkActive(addr)
	return addr, nil
}

func (s *Store) popBestStored() (net.Addr, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		item, err := s.pq.Pop()
		if err != nil {
			return nil, false
		}
		key := item.Value.(string)
		e, ok := s.entries[key]
		if !ok || e.state != Stored {
			// Stale heap entry: the candidate was evicted, banned, or
			// already connecting/active since it was pushed.
			continue
		}
		e.state = Connecting
		return e.addr, true
	}
}

// Len returns the number of tracked (non-banned) candidates.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
