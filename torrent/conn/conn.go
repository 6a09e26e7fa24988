// Package conn implements the per-peer cooperative task that owns one
// peer's TCP stream (§4.5): decoding inbound frames to the download
// coordinator, encoding outbound commands, enforcing keep-alive, and
// tracking which pieces the remote peer has announced.
package conn

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/uber-go/tally"
	"github.com/willf/bitset"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/fenwick-labs/corelode/core"
	"github.com/fenwick-labs/corelode/internal/bandwidth"
	"github.com/fenwick-labs/corelode/torrent/wire"
)

// Events receives lifecycle notifications from a Conn.
type Events interface {
	ConnClosed(*Conn)
}

// Conn manages one peer connection: reading/writing framed wire.Message
// values, enforcing keep-alive, and maintaining the remote peer's
// announced-pieces bookkeeping (§4.5).
//
// The wire bitfield/have messages are packed bytes (core.Bitfield); the
// live "which pieces has this peer announced so far" tracking instead
// uses a bitset.BitSet, since that bookkeeping is mutated one bit at a
// time on every Have and must support fast membership queries from the
// scheduler's rarest-first picker — a different access pattern than the
// wire codec's fixed packed-byte representation.
type Conn struct {
	peerID      core.PeerID
	localPeerID core.PeerID
	infoHash    core.InfoHash
	createdAt   time.Time

	nc        net.Conn
	config    Config
	clk       clock.Clock
	bandwidth *bandwidth.Limiter
	stats     tally.Scope
	events    Events
	logger    *zap.SugaredLogger

	openedByRemote bool

	mu             sync.Mutex
	remoteBitfield *bitset.BitSet
	lastSent       time.Time
	lastReceived   time.Time

	startOnce sync.Once

	sender   chan wire.Message
	receiver chan wire.Message

	closed *atomic.Bool
	done   chan struct{}
	wg     sync.WaitGroup
}

// New wraps an already-handshaken net.Conn. numPieces sizes the remote
// announced-pieces bitset.
func New(
	config Config,
	clk clock.Clock,
	bw *bandwidth.Limiter,
	stats tally.Scope,
	events Events,
	nc net.Conn,
	localPeerID, remotePeerID core.PeerID,
	infoHash core.InfoHash,
	numPieces int,
	openedByRemote bool,
	logger *zap.SugaredLogger,
) *Conn {
	config = config.applyDefaults()
	now := clk.Now()
	return &Conn{
		peerID:         remotePeerID,
		localPeerID:    localPeerID,
		infoHash:       infoHash,
		createdAt:      now,
		nc:             nc,
		config:         config,
		clk:            clk,
		bandwidth:      bw,
		stats:          stats,
		events:         events,
		logger:         logger,
		openedByRemote: openedByRemote,
		remoteBitfield: bitset.New(uint(numPieces)),
		lastSent:       now,
		lastReceived:   now,
		sender:         make(chan wire.Message, config.SenderBufferSize),
		receiver:       make(chan wire.Message, config.ReceiverBufferSize),
		closed:         atomic.NewBool(false),
		done:           make(chan struct{}),
	}
}

// Start begins the read loop, write loop, and keep-alive loop.
func (c *Conn) Start() {
	c.startOnce.Do(func() {
		c.wg.Add(3)
		go c.readLoop()
		go c.writeLoop()
		go c.keepAliveLoop()
	})
}

// PeerID returns the remote peer id.
func (c *Conn) PeerID() core.PeerID { return c.peerID }

// InfoHash returns the torrent this connection is serving.
func (c *Conn) InfoHash() core.InfoHash { return c.infoHash }

// CreatedAt returns when the Conn was established.
func (c *Conn) CreatedAt() time.Time { return c.createdAt }

func (c *Conn) String() string {
	return fmt.Sprintf("Conn(peer=%s, hash=%s, opened_by_remote=%t)",
		c.peerID, c.infoHash, c.openedByRemote)
}

// RemoteHas reports whether the remote peer has announced piece i.
func (c *Conn) RemoteHas(i int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remoteBitfield.Test(uint(i))
}

// RemoteCount returns how many pieces the remote peer has announced.
func (c *Conn) RemoteCount() uint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remoteBitfield.Count()
}

func (c *Conn) recordRemoteHave(i int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i >= 0 {
		c.remoteBitfield.Set(uint(i))
	}
}

func (c *Conn) recordRemoteBitfield(packed []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.remoteBitfield.Len()
	for i := uint(0); i < n; i++ {
		byteIdx := i / 8
		if int(byteIdx) >= len(packed) {
			break
		}
		if packed[byteIdx]&(0x80>>(i%8)) != 0 {
			c.remoteBitfield.Set(i)
		}
	}
}

// Send enqueues a message for the write loop. Returns an error if the
// connection is closed or the sender buffer is full.
func (c *Conn) Send(m wire.Message) error {
	select {
	case <-c.done:
		return errors.New("conn: closed")
	case c.sender <- m:
		return nil
	default:
		c.stats.Tagged(map[string]string{
			"dropped_message_kind": dropKindLabel(m),
		}).Counter("dropped_messages").Inc(1)
		return errors.New("conn: send buffer full")
	}
}

func dropKindLabel(m wire.Message) string {
	if m.KeepAlive {
		return "keep_alive"
	}
	return m.Kind.String()
}

// Receiver returns the channel of inbound messages.
func (c *Conn) Receiver() <-chan wire.Message { return c.receiver }

// Close begins the shutdown sequence. Safe to call multiple times.
func (c *Conn) Close() {
	if !c.closed.CAS(false, true) {
		return
	}
	go func() {
		close(c.done)
		c.nc.Close()
		c.wg.Wait()
		if c.events != nil {
			c.events.ConnClosed(c)
		}
	}()
}

// IsClosed reports whether Close has been called.
func (c *Conn) IsClosed() bool {
	return c.closed.Load()
}

func (c *Conn) readLoop() {
	defer func() {
		close(c.receiver)
		c.wg.Done()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		default:
			if err := c.nc.SetReadDeadline(c.clk.Now().Add(c.config.IdleTimeout)); err != nil {
				c.log().Infof("Error setting read deadline: %s", err)
				return
			}
			m, err := wire.ReadMessage(c.nc)
			if err != nil {
				if err == io.EOF {
					c.log().Infof("Peer closed connection")
				} else {
					c.log().Infof("Error reading message, exiting read loop: %s", err)
				}
				return
			}
			c.mu.Lock()
			c.lastReceived = c.clk.Now()
			c.mu.Unlock()

			if m.KeepAlive {
				continue
			}
			switch m.Kind {
			case wire.Have:
				c.recordRemoteHave(int(m.HavePiece))
			case wire.BitfieldMsg:
				c.recordRemoteBitfield(m.Bitfield)
			}

			select {
			case c.receiver <- m:
			case <-c.done:
				return
			}
		}
	}
}

func (c *Conn) writeLoop() {
	defer func() {
		c.wg.Done()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case m := <-c.sender:
			if err := c.writeMessage(m); err != nil {
				c.log().Infof("Error writing message, exiting write loop: %s", err)
				return
			}
		}
	}
}

func (c *Conn) writeMessage(m wire.Message) error {
	if m.Kind == wire.Piece && c.bandwidth != nil {
		if err := c.bandwidth.ReserveEgress(int64(len(m.Pc.Block))); err != nil {
			return fmt.Errorf("egress bandwidth: %w", err)
		}
	}
	if err := wire.WriteMessage(c.nc, m); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	c.mu.Lock()
	c.lastSent = c.clk.Now()
	c.mu.Unlock()
	return nil
}

// keepAliveLoop checks every quarter of KeepAliveInterval and sends a
// keep-alive once the connection has been idle for three quarters of it,
// so no idle gap exceeds KeepAliveInterval (§4.5).
func (c *Conn) keepAliveLoop() {
	defer c.wg.Done()

	ticker := c.clk.Ticker(c.config.KeepAliveInterval / 4)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			idle := c.clk.Now().Sub(c.lastSent)
			c.mu.Unlock()
			if idle >= c.config.KeepAliveInterval-c.config.KeepAliveInterval/4 {
				if err := c.Send(wire.KeepAliveMessage()); err != nil {
					return
				}
			}
		}
	}
}

func (c *Conn) log(keysAndValues ...interface{}) *zap.SugaredLogger {
	keysAndValues = append(keysAndValues, "remote_peer", c.peerID, "hash", c.infoHash)
	return c.logger.With(keysAndValues...)
}
