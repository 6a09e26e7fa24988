package ssdp

import (
	"context"
	"math/rand"
	"net"
	"time"

	"github.com/andres-erbsen/clock"
	"go.uber.org/zap"
	"golang.org/x/net/ipv4"
)

// Config controls a Server's advertisement cadence and headers.
type Config struct {
	// NotifyInterval is how often ssdp:alive is re-broadcast.
	NotifyInterval time.Duration `yaml:"notify_interval"`
	// CacheControl is the max-age advertised on every alive/update NOTIFY
	// and M-SEARCH response.
	CacheControl int `yaml:"cache_control"`
	// ServerHeader is the SERVER header value (§4.11: "SERVER").
	ServerHeader string `yaml:"server_header"`
	// TTL is the outbound multicast IP TTL (§6.2: "TTL 2 default,
	// configurable").
	TTL int `yaml:"ttl"`
	// MaxSearchDelay caps the random M-SEARCH response delay; the actual
	// delay is uniform in [0, min(MX, MaxSearchDelay)).
	MaxSearchDelay time.Duration `yaml:"max_search_delay"`
}

func (c Config) applyDefaults() Config {
	if c.NotifyInterval == 0 {
		c.NotifyInterval = DefaultNotifyInterval * time.Second
	}
	if c.CacheControl == 0 {
		c.CacheControl = DefaultCacheControl
	}
	if c.ServerHeader == "" {
		c.ServerHeader = "Go UPnP/2.0 MediaServer/1.0"
	}
	if c.TTL == 0 {
		c.TTL = 2
	}
	if c.MaxSearchDelay == 0 {
		c.MaxSearchDelay = 5 * time.Second
	}
	return c
}

// LocationFunc returns the current device description URL, resolved
// lazily since the server's reachable address may not be known until
// after the socket is bound.
type LocationFunc func() string

// Server answers M-SEARCH and re-advertises NOTIFY ssdp:alive for a fixed
// set of root-device and service targets (§4.11). It does not track
// other devices' advertisements; SSDP is this server's outbound discovery
// mechanism only; it does not maintain a peer device cache.
type Server struct {
	config   Config
	clk      clock.Clock
	udn      string
	location LocationFunc
	targets  []NotificationType
	logger   *zap.SugaredLogger
}

// NewServer constructs a Server advertising udn (the root device's UUID)
// for each of targets, which should include NotificationType{Kind:
// NTRootDevice}, NotificationType{Kind: NTUUID, UUID: udn}, and the
// device/service URNs the device description lists.
func NewServer(config Config, clk clock.Clock, udn string, location LocationFunc, targets []NotificationType, logger *zap.SugaredLogger) *Server {
	return &Server{
		config:   config.applyDefaults(),
		clk:      clk,
		udn:      udn,
		location: location,
		targets:  targets,
		logger:   logger,
	}
}

type packet struct {
	data []byte
	from *net.UDPAddr
}

// Serve runs on conn until ctx is cancelled, sending an initial alive
// burst, re-advertising every
// NotifyInterval, answering M-SEARCH requests, and sending byebye for
// every target on shutdown. conn should come from
// net.ListenMulticastUDP("udp4", iface, &net.UDPAddr{IP:
// net.IPv4zero, Port: 1900}) already joined to 239.255.255.250, mirroring
// torrent/dht.Node.Serve's one-goroutine-one-socket shape.
func (s *Server) Serve(ctx context.Context, conn *net.UDPConn) error {
	if err := ipv4.NewPacketConn(conn).SetMulticastTTL(s.config.TTL); err != nil {
		s.logger.Warnw("ssdp: set multicast ttl failed", "error", err)
	}

	reads := make(chan packet)
	errs := make(chan error, 1)
	go func() {
		buf := make([]byte, 2048)
		for {
			n, from, err := conn.ReadFromUDP(buf)
			if err != nil {
				errs <- err
				return
			}
			data := make([]byte, n)
			copy(data, buf[:n])
			reads <- packet{data: data, from: from}
		}
	}()

	s.advertiseAll(conn, NTSAlive)
	ticker := s.clk.Ticker(s.config.NotifyInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.advertiseAll(conn, NTSByeBye)
			conn.Close()
			return nil
		case <-ticker.C:
			s.advertiseAll(conn, NTSAlive)
		case err := <-errs:
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		case pkt := <-reads:
			s.handle(conn, pkt.data, pkt.from)
		}
	}
}

func (s *Server) handle(conn *net.UDPConn, data []byte, from *net.UDPAddr) {
	msg, err := Parse(string(data))
	if err != nil {
		s.logger.Debugw("ssdp: dropping unparseable message", "from", from, "error", err)
		return
	}
	if msg.Kind != MessageSearch {
		return
	}

	for _, target := range s.targets {
		if !searchMatches(msg.ST, target) {
			continue
		}
		resp := SearchResponse{
			CacheControl: s.config.CacheControl,
			Location:     s.location(),
			Server:       s.config.ServerHeader,
			ST:           target,
			USN:          usnFor(s.udn, target),
		}
		s.respondAfterDelay(conn, from, resp, msg.MX)
	}
}

// searchMatches reports whether an M-SEARCH's ST header selects target:
// ssdp:all matches everything, and otherwise the ST value must name the
// target exactly.
func searchMatches(st, target NotificationType) bool {
	if st.Kind == NTAll {
		return true
	}
	return st.String() == target.String()
}

// respondAfterDelay unicasts resp after a delay uniform in [0,
// min(mx, MaxSearchDelay)) seconds (§4.11), so concurrent M-SEARCH
// listeners don't collide on the response.
func (s *Server) respondAfterDelay(conn *net.UDPConn, to *net.UDPAddr, resp SearchResponse, mx int) {
	maxDelay := s.config.MaxSearchDelay
	if d := time.Duration(mx) * time.Second; d < maxDelay {
		maxDelay = d
	}
	var delay time.Duration
	if maxDelay > 0 {
		delay = time.Duration(rand.Int63n(int64(maxDelay)))
	}

	timer := s.clk.Timer(delay)
	go func() {
		<-timer.C
		if _, err := conn.WriteToUDP([]byte(resp.String()), to); err != nil {
			s.logger.Warnw("ssdp: search response failed", "to", to, "error", err)
		}
	}()
}

func (s *Server) advertiseAll(conn *net.UDPConn, nts NotificationSubType) {
	group, err := net.ResolveUDPAddr("udp4", MulticastAddr)
	if err != nil {
		s.logger.Errorw("ssdp: resolve multicast group failed", "error", err)
		return
	}
	for _, target := range s.targets {
		msg := NotifyMessage{
			NTS: nts,
			NT:  target,
			USN: usnFor(s.udn, target),
		}
		if nts != NTSByeBye {
			msg.Location = s.location()
			msg.CacheControl = s.config.CacheControl
			msg.Server = s.config.ServerHeader
		}
		if _, err := conn.WriteToUDP([]byte(msg.String()), group); err != nil {
			s.logger.Warnw("ssdp: advertise failed", "target", target, "nts", nts, "error", err)
		}
	}
}
