package gena

import (
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/andres-erbsen/clock"
	uuid "github.com/satori/go.uuid"
)

// Subscription is one subscriber's registration against this server's
// event URL, identified by its SID ("uuid:<...>", §4.12).
type Subscription struct {
	SID      string
	Callback *url.URL
	Seq      uint32
	Expires  time.Time
}

// expired reports whether the subscription's TIMEOUT has elapsed as of
// now.
func (s *Subscription) expired(now time.Time) bool {
	return !s.Expires.After(now)
}

// Manager tracks live subscriptions for a single event source,
// matching the teacher's mutex-guarded-map idiom for shared
// per-registration state (upnp/ssdp.Server keeps its own targets
// unguarded since it never mutates them after construction; here,
// unlike there, subscriptions come and go at runtime, so a mutex is
// load-bearing).
type Manager struct {
	clk  clock.Clock
	mu   sync.Mutex
	subs map[string]*Subscription
}

// NewManager constructs an empty Manager using clk to stamp expiry
// times, so tests can control time the same way upnp/ssdp's tests do.
func NewManager(clk clock.Clock) *Manager {
	return &Manager{clk: clk, subs: make(map[string]*Subscription)}
}

// Subscribe registers callback for requested (0 means "use
// DefaultTimeout"), returning the new Subscription. Any requested value
// below MinTimeout, 0 included, is replaced by DefaultTimeout.
func (m *Manager) Subscribe(callback *url.URL, requested time.Duration) *Subscription {
	if requested < MinTimeout {
		requested = DefaultTimeout
	}
	sub := &Subscription{
		SID:      "uuid:" + uuid.NewV4().String(),
		Callback: callback,
		Expires:  m.clk.Now().Add(requested),
	}
	m.mu.Lock()
	m.subs[sub.SID] = sub
	m.mu.Unlock()
	return sub
}

// Renew extends sid's expiry by requested (a value below MinTimeout
// becomes DefaultTimeout, as in Subscribe),
// returning the updated Subscription or an error if sid is unknown or
// already expired.
func (m *Manager) Renew(sid string, requested time.Duration) (*Subscription, error) {
	if requested < MinTimeout {
		requested = DefaultTimeout
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[sid]
	if !ok || sub.expired(m.clk.Now()) {
		return nil, fmt.Errorf("gena: unknown subscription %q", sid)
	}
	sub.Expires = m.clk.Now().Add(requested)
	return sub, nil
}

// Unsubscribe removes sid, returning an error if it was never
// registered.
func (m *Manager) Unsubscribe(sid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[sid]; !ok {
		return fmt.Errorf("gena: unknown subscription %q", sid)
	}
	delete(m.subs, sid)
	return nil
}

// Active returns a snapshot of every non-expired subscription, each
// with Seq incremented by one (the caller is about to NOTIFY them and
// must observe the post-increment value it sends).
func (m *Manager) Active() []*Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clk.Now()
	var out []*Subscription
	for sid, sub := range m.subs {
		if sub.expired(now) {
			delete(m.subs, sid)
			continue
		}
		sub.Seq++
		cp := *sub
		out = append(out, &cp)
	}
	return out
}
