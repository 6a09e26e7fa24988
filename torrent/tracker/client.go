package tracker

import (
	"fmt"
	"net/url"
	"time"
)

// NewClient constructs the right Client implementation for announceURL's
// scheme (§4.4: both http(s):// and udp:// announce URLs must be
// supported).
func NewClient(announceURL string, requestTimeout time.Duration) (Client, error) {
	u, err := url.Parse(announceURL)
	if err != nil {
		return nil, fmt.Errorf("tracker: bad announce url %q: %w", announceURL, err)
	}
	switch u.Scheme {
	case "http", "https":
		return NewHTTPClient(announceURL, requestTimeout), nil
	case "udp":
		return NewUDPClient(u.Host)
	default:
		return nil, fmt.Errorf("tracker: unsupported announce scheme %q", u.Scheme)
	}
}
