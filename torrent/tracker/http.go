package tracker

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/fenwick-labs/corelode/torrent/bencode"
)

// httpPeerDict is one entry of a non-compact HTTP tracker peers response
// (§4.4).
type httpPeerDict struct {
	PeerID string `bencode:"peer id"`
	IP     string `bencode:"ip"`
	Port   int    `bencode:"port"`
}

// httpAnnounceResponse covers both compact and non-compact peer encodings;
// Peers is decoded lazily depending on which shape the bencode value takes.
type httpAnnounceResponse struct {
	FailureReason string      `bencode:"failure reason,omitempty"`
	Interval      int         `bencode:"interval"`
	Peers         interface{} `bencode:"peers"`
}

// HTTPClient announces over plain HTTP GET per §4.4.
type HTTPClient struct {
	announceURL string
	httpClient  *http.Client
}

// NewHTTPClient creates an HTTPClient for the given announce URL.
func NewHTTPClient(announceURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		announceURL: announceURL,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// Announce implements Client.
func (c *HTTPClient) Announce(ctx context.Context, req AnnounceRequest) (AnnounceResponse, error) {
	u, err := url.Parse(c.announceURL)
	if err != nil {
		return AnnounceResponse{}, fmt.Errorf("tracker: bad announce url: %w", err)
	}
	q := u.Query()
	q.Set("info_hash", string(req.InfoHash.Bytes()))
	q.Set("peer_id", string(req.PeerID[:]))
	q.Set("port", strconv.Itoa(int(req.Port)))
	q.Set("uploaded", strconv.FormatInt(req.Stat.Uploaded, 10))
	q.Set("downloaded", strconv.FormatInt(req.Stat.Downloaded, 10))
	q.Set("left", strconv.FormatInt(req.Stat.Left, 10))
	q.Set("compact", "1")
	if req.NumWant > 0 {
		q.Set("numwant", strconv.Itoa(req.NumWant))
	}
	if s := req.Event.String(); s != "" {
		q.Set("event", s)
	}
	u.RawQuery = encodeRawQuery(q)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return AnnounceResponse{}, err
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return AnnounceResponse{}, fmt.Errorf("tracker: announce request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return AnnounceResponse{}, fmt.Errorf("tracker: announce returned status %d", resp.StatusCode)
	}

	var raw httpAnnounceResponse
	if err := bencode.Decode(resp.Body, &raw); err != nil {
		return AnnounceResponse{}, fmt.Errorf("tracker: decode announce response: %w", err)
	}
	if raw.FailureReason != "" {
		return AnnounceResponse{}, fmt.Errorf("tracker: %s", raw.FailureReason)
	}

	peers, err := decodeHTTPPeers(raw.Peers)
	if err != nil {
		return AnnounceResponse{}, err
	}
	return AnnounceResponse{
		Interval: time.Duration(raw.Interval) * time.Second,
		Peers:    peers,
	}, nil
}

// decodeHTTPPeers accepts either the compact (packed 6-bytes-per-peer
// string) or non-compact (list of dicts) peers encoding (§4.4).
func decodeHTTPPeers(v interface{}) ([]net.Addr, error) {
	switch p := v.(type) {
	case string:
		return decodeCompactPeers([]byte(p))
	case []interface{}:
		var out []net.Addr
		for _, entry := range p {
			m, ok := entry.(map[string]interface{})
			if !ok {
				continue
			}
			ip, _ := m["ip"].(string)
			portVal, _ := m["port"].(int64)
			if ip == "" || portVal == 0 {
				continue
			}
			out = append(out, &net.TCPAddr{IP: net.ParseIP(ip), Port: int(portVal)})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("tracker: unrecognized peers encoding %T", v)
	}
}

func decodeCompactPeers(b []byte) ([]net.Addr, error) {
	if len(b)%6 != 0 {
		return nil, fmt.Errorf("tracker: compact peers string length %d not a multiple of 6", len(b))
	}
	out := make([]net.Addr, 0, len(b)/6)
	for i := 0; i+6 <= len(b); i += 6 {
		ip := net.IPv4(b[i], b[i+1], b[i+2], b[i+3])
		port := int(b[i+4])<<8 | int(b[i+5])
		out = append(out, &net.TCPAddr{IP: ip, Port: port})
	}
	return out, nil
}

// encodeRawQuery percent-encodes query values the way BitTorrent trackers
// expect: raw bytes (including the raw 20-byte info-hash/peer-id) encoded
// with the standard unreserved-character exceptions, rather than
// url.Values.Encode()'s "+" for spaces.
func encodeRawQuery(q url.Values) string {
	var buf bytes.Buffer
	first := true
	for k, vs := range q {
		for _, v := range vs {
			if !first {
				buf.WriteByte('&')
			}
			first = false
			buf.WriteString(k)
			buf.WriteByte('=')
			buf.WriteString(percentEncode(v))
		}
	}
	return buf.String()
}

func percentEncode(s string) string {
	const hex = "0123456789ABCDEF"
	var buf bytes.Buffer
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') ||
			c == '-' || c == '_' || c == '.' || c == '~' {
			buf.WriteByte(c)
		} else {
			buf.WriteByte('%')
			buf.WriteByte(hex[c>>4])
			buf.WriteByte(hex[c&0xf])
		}
	}
	return buf.String()
}
