package dht

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"net"
	"sync"
	"time"

	"github.com/andres-erbsen/clock"
	"go.uber.org/zap"

	"github.com/fenwick-labs/corelode/core"
)

// Config controls a Node's token-issuing cadence.
type Config struct {
	// TokenRotation is how often the HMAC secret used to mint get_peers
	// tokens is rotated; a token is accepted in announce_peer up to one
	// rotation after it was issued (BEP-5's "rotate every five minutes,
	// accept the last two" scheme).
	TokenRotation time.Duration `yaml:"token_rotation"`
	// PeerTTL bounds how long an announce_peer'd address is returned from
	// a later get_peers before it is considered stale.
	PeerTTL time.Duration `yaml:"peer_ttl"`
}

func (c Config) applyDefaults() Config {
	if c.TokenRotation == 0 {
		c.TokenRotation = 5 * time.Minute
	}
	if c.PeerTTL == 0 {
		c.PeerTTL = 30 * time.Minute
	}
	return c
}

// AnnounceHandler is notified whenever a remote node successfully
// announce_peers for an info-hash, so a caller can feed the address into
// torrent/tracker's discovery pipeline alongside tracker/PEX peers.
type AnnounceHandler func(infoHash core.InfoHash, addr net.Addr)

type announcedPeer struct {
	addr    net.Addr
	expires time.Time
}

// Node answers ping/find_node/get_peers/announce_peer KRPC queries (§4.20)
// without maintaining a routing table: find_node always reports no closer
// nodes, and get_peers/announce_peer are served from a flat, TTL-expired
// map of addresses this node has itself been told about. It does not
// originate queries or walk the DHT on its own behalf; tracker-based
// discovery (torrent/tracker) remains the primary discovery path.
type Node struct {
	config Config
	clk    clock.Clock
	id     NodeID
	onAnnounce AnnounceHandler
	logger *zap.SugaredLogger

	mu         sync.Mutex
	secret     [20]byte
	prevSecret [20]byte
	rotatedAt  time.Time
	peers      map[core.InfoHash][]announcedPeer
}

// NewNode constructs a Node with its own identity and token secret.
func NewNode(config Config, clk clock.Clock, id NodeID, onAnnounce AnnounceHandler, logger *zap.SugaredLogger) (*Node, error) {
	n := &Node{
		config:     config.applyDefaults(),
		clk:        clk,
		id:         id,
		onAnnounce: onAnnounce,
		logger:     logger,
		peers:      make(map[core.InfoHash][]announcedPeer),
	}
	if _, err := rand.Read(n.secret[:]); err != nil {
		return nil, err
	}
	n.rotatedAt = clk.Now()
	return n, nil
}

// Serve reads KRPC packets from conn and replies until ctx is cancelled or
// conn is closed, mirroring torrent/tracker's UDPClient.readLoop shape: one
// goroutine owning one socket, dispatching each datagram independently.
func (n *Node) Serve(ctx context.Context, conn net.PacketConn) error {
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, 1024)
	for {
		nRead, from, err := conn.ReadFrom(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		reply, ok := n.Handle(buf[:nRead], from)
		if !ok {
			continue
		}
		if _, err := conn.WriteTo(reply, from); err != nil {
			n.logger.Warnw("dht: write reply failed", "to", from, "error", err)
		}
	}
}

// Handle decodes a single KRPC packet and returns the bencoded reply to
// send back, if any. Malformed packets and anything that isn't a query are
// silently dropped rather than answered, matching tracker's own "mismatched
// responses are dropped" handling of packets it can't make sense of.
func (n *Node) Handle(data []byte, from net.Addr) ([]byte, bool) {
	msg, err := DecodeMessage(data)
	if err != nil || msg.Type != TypeQuery || msg.Args == nil {
		return nil, false
	}

	reply := n.dispatch(msg, from)
	out, err := reply.Encode()
	if err != nil {
		n.logger.Warnw("dht: encode reply failed", "error", err)
		return nil, false
	}
	return out, true
}

func (n *Node) dispatch(msg Message, from net.Addr) Message {
	switch msg.Query {
	case Ping:
		return NewResponse(msg.TransactionID, ResponseValues{ID: string(n.id.Bytes())})
	case FindNode:
		// No routing table is kept, so there is never a closer node to
		// report (§4.20).
		return NewResponse(msg.TransactionID, ResponseValues{ID: string(n.id.Bytes()), Nodes: ""})
	case GetPeers:
		return n.handleGetPeers(msg, from)
	case AnnouncePeer:
		return n.handleAnnouncePeer(msg, from)
	default:
		return NewError(msg.TransactionID, ErrCodeMethodUnknown, "method unknown: "+msg.Query)
	}
}

func (n *Node) handleGetPeers(msg Message, from net.Addr) Message {
	infoHash, err := core.NewInfoHashFromBytes([]byte(msg.Args.InfoHash))
	if err != nil {
		return NewError(msg.TransactionID, ErrCodeProtocol, "bad info_hash")
	}

	values := n.compactPeers(infoHash)
	return NewResponse(msg.TransactionID, ResponseValues{
		ID:     string(n.id.Bytes()),
		Token:  n.issueToken(from),
		Values: values,
	})
}

func (n *Node) handleAnnouncePeer(msg Message, from net.Addr) Message {
	if !n.verifyToken(msg.Args.Token, from) {
		return NewError(msg.TransactionID, ErrCodeProtocol, "bad token")
	}
	infoHash, err := core.NewInfoHashFromBytes([]byte(msg.Args.InfoHash))
	if err != nil {
		return NewError(msg.TransactionID, ErrCodeProtocol, "bad info_hash")
	}

	addr := announcedAddr(from, msg.Args.Port, msg.Args.ImpliedPort != 0)
	n.recordAnnounce(infoHash, addr)
	if n.onAnnounce != nil {
		n.onAnnounce(infoHash, addr)
	}
	return NewResponse(msg.TransactionID, ResponseValues{ID: string(n.id.Bytes())})
}

// announcedAddr resolves the address a peer should be reached at: its
// implied port (the UDP source port itself) when implied_port is set,
// otherwise the port named in the query's own "port" field (BEP-5).
func announcedAddr(from net.Addr, port int, implied bool) net.Addr {
	udpAddr, ok := from.(*net.UDPAddr)
	if !ok || implied {
		return from
	}
	return &net.UDPAddr{IP: udpAddr.IP, Port: port}
}

func (n *Node) recordAnnounce(infoHash core.InfoHash, addr net.Addr) {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := n.clk.Now()
	expires := now.Add(n.config.PeerTTL)
	existing := n.peers[infoHash]
	key := addr.String()
	for i, p := range existing {
		if p.addr.String() == key {
			existing[i].expires = expires
			return
		}
	}
	n.peers[infoHash] = append(existing, announcedPeer{addr: addr, expires: expires})
}

func (n *Node) compactPeers(infoHash core.InfoHash) []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := n.clk.Now()
	live := n.peers[infoHash][:0]
	var out []string
	for _, p := range n.peers[infoHash] {
		if p.expires.Before(now) {
			continue
		}
		live = append(live, p)
		if compact, ok := compactPeerInfo(p.addr); ok {
			out = append(out, compact)
		}
	}
	n.peers[infoHash] = live
	return out
}

func compactPeerInfo(addr net.Addr) (string, bool) {
	udpAddr, ok := addr.(*net.UDPAddr)
	if !ok || udpAddr.IP.To4() == nil {
		return "", false
	}
	b := make([]byte, 6)
	copy(b[0:4], udpAddr.IP.To4())
	b[4] = byte(udpAddr.Port >> 8)
	b[5] = byte(udpAddr.Port)
	return string(b), true
}

// issueToken mints a get_peers token bound to the requester's IP, rotating
// the signing secret once TokenRotation has elapsed.
func (n *Node) issueToken(from net.Addr) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rotateLocked()
	return tokenFor(n.secret, from)
}

// verifyToken accepts a token signed with either the current or the
// previous secret, so a token issued just before a rotation still
// validates (BEP-5).
func (n *Node) verifyToken(token string, from net.Addr) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rotateLocked()
	return hmac.Equal([]byte(token), []byte(tokenFor(n.secret, from))) ||
		hmac.Equal([]byte(token), []byte(tokenFor(n.prevSecret, from)))
}

func (n *Node) rotateLocked() {
	if n.clk.Now().Sub(n.rotatedAt) < n.config.TokenRotation {
		return
	}
	n.prevSecret = n.secret
	_, _ = rand.Read(n.secret[:])
	n.rotatedAt = n.clk.Now()
}

func tokenFor(secret [20]byte, from net.Addr) string {
	mac := hmac.New(sha1.New, secret[:])
	mac.Write([]byte(from.String()))
	return string(mac.Sum(nil))
}
