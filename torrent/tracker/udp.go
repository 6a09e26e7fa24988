package tracker

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"time"
)

// UDP tracker protocol constants (BEP-15, §4.4).
const (
	udpProtocolID   uint64 = 0x41727101980
	udpActionConnect  uint32 = 0
	udpActionAnnounce uint32 = 1
	udpActionError    uint32 = 3

	connectionIDLifetime = 2 * time.Minute
)

// UDPClient announces over the BEP-15 UDP tracker protocol. A single
// UDPClient owns one UDP socket and a background read loop that routes
// responses to pending requests by transaction id (§4.4: "a single worker
// owning one socket routing by transaction-id").
type UDPClient struct {
	addr string
	conn *net.UDPConn

	mu           sync.Mutex
	connectionID uint64
	connectedAt  time.Time

	pendingMu sync.Mutex
	pending   map[uint32]chan udpResponse

	closeOnce sync.Once
	done      chan struct{}
}

type udpResponse struct {
	action uint32
	body   []byte
}

// NewUDPClient resolves udpAddr (host:port) and starts the client's read
// loop.
func NewUDPClient(udpAddr string) (*UDPClient, error) {
	raddr, err := net.ResolveUDPAddr("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("tracker: resolve udp addr: %w", err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("tracker: dial udp: %w", err)
	}
	c := &UDPClient{
		addr:    udpAddr,
		conn:    conn,
		pending: make(map[uint32]chan udpResponse),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Close shuts down the client's socket and read loop.
func (c *UDPClient) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return c.conn.Close()
}

func (c *UDPClient) readLoop() {
	buf := make([]byte, 2048)
	for {
		n, err := c.conn.Read(buf)
		if err != nil {
			select {
			case <-c.done:
				return
			default:
				continue
			}
		}
		if n < 8 {
			continue
		}
		action := binary.BigEndian.Uint32(buf[0:4])
		txID := binary.BigEndian.Uint32(buf[4:8])
		body := append([]byte(nil), buf[8:n]...)

		c.pendingMu.Lock()
		ch, ok := c.pending[txID]
		if ok {
			delete(c.pending, txID)
		}
		c.pendingMu.Unlock()
		if ok {
			ch <- udpResponse{action: action, body: body}
		}
		// Responses with no matching transaction id are dropped (§8:
		// "mismatched responses are dropped").
	}
}

func randomUint32() uint32 {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return binary.BigEndian.Uint32(b[:])
}

func (c *UDPClient) roundTrip(ctx context.Context, payload []byte, txID uint32) (udpResponse, error) {
	ch := make(chan udpResponse, 1)
	c.pendingMu.Lock()
	c.pending[txID] = ch
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, txID)
		c.pendingMu.Unlock()
	}()

	if _, err := c.conn.Write(payload); err != nil {
		return udpResponse{}, fmt.Errorf("tracker: udp write: %w", err)
	}
	select {
	case resp := <-ch:
		if resp.action == udpActionError {
			return udpResponse{}, fmt.Errorf("tracker: udp error: %s", string(resp.body))
		}
		return resp, nil
	case <-ctx.Done():
		return udpResponse{}, ctx.Err()
	}
}

func (c *UDPClient) connect(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	if c.connectionID != 0 && time.Since(c.connectedAt) < connectionIDLifetime {
		id := c.connectionID
		c.mu.Unlock()
		return id, nil
	}
	c.mu.Unlock()

	txID := randomUint32()
	req := make([]byte, 16)
	binary.BigEndian.PutUint64(req[0:8], udpProtocolID)
	binary.BigEndian.PutUint32(req[8:12], udpActionConnect)
	binary.BigEndian.PutUint32(req[12:16], txID)

	resp, err := c.roundTrip(ctx, req, txID)
	if err != nil {
		return 0, fmt.Errorf("tracker: udp connect: %w", err)
	}
	if resp.action != udpActionConnect || len(resp.body) < 8 {
		return 0, fmt.Errorf("tracker: udp connect: malformed response")
	}
	connID := binary.BigEndian.Uint64(resp.body[0:8])

	c.mu.Lock()
	c.connectionID = connID
	c.connectedAt = time.Now()
	c.mu.Unlock()

	return connID, nil
}

// Announce implements Client.
func (c *UDPClient) Announce(ctx context.Context, req AnnounceRequest) (AnnounceResponse, error) {
	connID, err := c.connect(ctx)
	if err != nil {
		return AnnounceResponse{}, err
	}

	txID := randomUint32()
	payload := make([]byte, 98)
	binary.BigEndian.PutUint64(payload[0:8], connID)
	binary.BigEndian.PutUint32(payload[8:12], udpActionAnnounce)
	binary.BigEndian.PutUint32(payload[12:16], txID)
	copy(payload[16:36], req.InfoHash.Bytes())
	copy(payload[36:56], req.PeerID[:])
	binary.BigEndian.PutUint64(payload[56:64], uint64(req.Stat.Downloaded))
	binary.BigEndian.PutUint64(payload[64:72], uint64(req.Stat.Left))
	binary.BigEndian.PutUint64(payload[72:80], uint64(req.Stat.Uploaded))
	binary.BigEndian.PutUint32(payload[80:84], udpEventValue(req.Event))
	binary.BigEndian.PutUint32(payload[84:88], 0) // ip: 0 means "use sender's address".
	binary.BigEndian.PutUint32(payload[88:92], randomUint32())
	numWant := req.NumWant
	if numWant == 0 {
		numWant = -1
	}
	binary.BigEndian.PutUint32(payload[92:96], uint32(int32(numWant)))
	binary.BigEndian.PutUint16(payload[96:98], req.Port)

	resp, err := c.roundTrip(ctx, payload, txID)
	if err != nil {
		return AnnounceResponse{}, fmt.Errorf("tracker: udp announce: %w", err)
	}
	if resp.action != udpActionAnnounce || len(resp.body) < 12 {
		return AnnounceResponse{}, fmt.Errorf("tracker: udp announce: malformed response")
	}
	interval := binary.BigEndian.Uint32(resp.body[0:4])
	leechers := binary.BigEndian.Uint32(resp.body[4:8])
	seeders := binary.BigEndian.Uint32(resp.body[8:12])

	peerBytes := resp.body[12:]
	if len(peerBytes)%6 != 0 {
		return AnnounceResponse{}, fmt.Errorf("tracker: udp announce: peers length %d not a multiple of 6", len(peerBytes))
	}
	peers := make([]net.Addr, 0, len(peerBytes)/6)
	for i := 0; i+6 <= len(peerBytes); i += 6 {
		ip := net.IPv4(peerBytes[i], peerBytes[i+1], peerBytes[i+2], peerBytes[i+3])
		port := int(peerBytes[i+4])<<8 | int(peerBytes[i+5])
		peers = append(peers, &net.UDPAddr{IP: ip, Port: port})
	}

	return AnnounceResponse{
		Interval: time.Duration(interval) * time.Second,
		Leechers: int(leechers),
		Seeders:  int(seeders),
		Peers:    peers,
	}, nil
}

func udpEventValue(e Event) uint32 {
	switch e {
	case EventCompleted:
		return 1
	case EventStarted:
		return 2
	case EventStopped:
		return 3
	default:
		return 0
	}
}
