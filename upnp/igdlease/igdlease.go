// Package igdlease implements the IGD consumer contract spec.md §6.5
// names: "Callers hand the core a desired (protocol, external_port,
// internal_addr, description, lease) and receive the actually-granted
// external port, handling renewals before lease expires." Manager wraps
// an upnp/igdclient.Client, tracks every mapping it has requested, and
// renews each one before its lease runs out.
package igdlease

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/andres-erbsen/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/syncmap"

	"github.com/fenwick-labs/corelode/upnp/igdclient"
)

// renewMargin is how far ahead of a lease's expiry the manager attempts
// to renew it ("renew ahead of the deadline, not at it").
const renewMargin = 30 * time.Second

// Request is a desired port mapping, field-for-field the tuple §6.5
// names.
type Request struct {
	Protocol     igdclient.Protocol
	ExternalPort uint16 // 0 requests any free port via AddAnyPortMapping
	InternalAddr string
	InternalPort uint16
	Description  string
	Lease        time.Duration
}

func (r Request) key() string {
	return fmt.Sprintf("%s:%d", r.Protocol, r.ExternalPort)
}

// Lease is a tracked mapping: the original request plus what the gateway
// actually granted.
type Lease struct {
	Request
	GrantedPort uint16
	Expires     time.Time
}

// Manager requests and renews IGD port mappings. leases is a
// golang.org/x/sync/syncmap.Map rather than a plain map+mutex because it
// is read concurrently by admin-surface queries (internal/adminhttp) and
// written by the background renewal loop, the same shape
// dispatch/dispatcher.go uses its `peers syncmap.Map` for.
type Manager struct {
	client *igdclient.Client
	clk    clock.Clock
	logger *zap.SugaredLogger

	leases syncmap.Map // string -> *Lease

	stopOnce sync.Once
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewManager constructs a Manager over an already-resolved IGD control
// point client.
func NewManager(client *igdclient.Client, clk clock.Clock, logger *zap.SugaredLogger) *Manager {
	return &Manager{
		client: client,
		clk:    clk,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Add requests req's mapping and begins tracking it for renewal,
// returning the gateway-granted external port (which may differ from
// req.ExternalPort when req.ExternalPort is 0).
func (m *Manager) Add(ctx context.Context, req Request) (uint16, error) {
	port, err := m.grant(ctx, req)
	if err != nil {
		return 0, err
	}
	lease := &Lease{
		Request:     req,
		GrantedPort: port,
		Expires:     m.clk.Now().Add(req.Lease),
	}
	m.leases.Store(req.key(), lease)
	return port, nil
}

func (m *Manager) grant(ctx context.Context, req Request) (uint16, error) {
	leaseSeconds := uint32(req.Lease / time.Second)
	if req.ExternalPort == 0 {
		return m.client.AddAnyPortMapping(ctx, "", req.ExternalPort, req.Protocol, req.InternalPort, req.InternalAddr, true, req.Description, leaseSeconds)
	}
	err := m.client.AddPortMapping(ctx, "", req.ExternalPort, req.Protocol, req.InternalPort, req.InternalAddr, true, req.Description, leaseSeconds)
	return req.ExternalPort, err
}

// Remove deletes a tracked mapping from the gateway and stops renewing
// it.
func (m *Manager) Remove(ctx context.Context, protocol igdclient.Protocol, externalPort uint16) error {
	key := Request{Protocol: protocol, ExternalPort: externalPort}.key()
	if err := m.client.DeletePortMapping(ctx, "", externalPort, protocol); err != nil {
		return err
	}
	m.leases.Delete(key)
	return nil
}

// Leases returns a snapshot of every tracked mapping.
func (m *Manager) Leases() []Lease {
	var out []Lease
	m.leases.Range(func(_, v interface{}) bool {
		out = append(out, *v.(*Lease))
		return true
	})
	return out
}

// RenewLoop runs until ctx is cancelled or Stop is called, checking every
// interval for leases within renewMargin of expiry and re-requesting
// them. Failed renewals are logged and retried on the next tick rather
// than dropped, since a renewal failure this tick does not mean the
// gateway has actually revoked the mapping yet.
func (m *Manager) RenewLoop(ctx context.Context, interval time.Duration) {
	ticker := m.clk.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		case <-ticker.C:
			m.renewDue(ctx)
		}
	}
}

func (m *Manager) renewDue(ctx context.Context) {
	now := m.clk.Now()
	m.leases.Range(func(k, v interface{}) bool {
		lease := v.(*Lease)
		if lease.Expires.Sub(now) > renewMargin {
			return true
		}
		port, err := m.grant(ctx, lease.Request)
		if err != nil {
			m.logger.Warnw("igdlease: renewal failed, will retry", "key", k, "error", err)
			return true
		}
		m.leases.Store(k, &Lease{Request: lease.Request, GrantedPort: port, Expires: now.Add(lease.Lease)})
		return true
	})
}

// Stop ends a running RenewLoop.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.done) })
}
