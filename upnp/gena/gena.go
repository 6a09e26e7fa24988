// Package gena implements the UPnP General Event Notification
// Architecture (GENA) eventing §4.12 and §6.2 require:
// SUBSCRIBE/UNSUBSCRIBE registration against a service's event URL, and
// outbound NOTIFY delivery of property changes to each subscriber's
// callback. Neither `_examples/original_source` tree carries a GENA
// implementation (content_directory.rs stops at Browse/BrowseMetadata),
// so this package is grounded on spec.md §4.12/§6.2's wire description
// directly. Like upnp/ssdp.Server it takes an andres-erbsen/clock Clock
// and logs through *zap.SugaredLogger; unlike it, it has no Config type
// and no background loop: Manager.Active drops expired subscriptions
// when it is called.
package gena

import (
	"fmt"
	"time"
)

// NT and NTS are the fixed header values every GENA SUBSCRIBE/NOTIFY
// exchange for this service carries (§6.2: "NT: upnp:event, NTS:
// upnp:propchange").
const (
	NT  = "upnp:event"
	NTS = "upnp:propchange"
)

// DefaultTimeout is the subscription lifetime granted when a SUBSCRIBE
// request's TIMEOUT header is absent or malformed.
const DefaultTimeout = 1800 * time.Second

// MinTimeout is the shortest lifetime ever granted, matching the GENA
// spec's floor of 5 minutes regardless of what a subscriber requests.
const MinTimeout = 5 * time.Minute

// FormatTimeoutHeader renders d as a GENA TIMEOUT header value, e.g.
// "Second-1800".
func FormatTimeoutHeader(d time.Duration) string {
	return fmt.Sprintf("Second-%d", int(d.Seconds()))
}

// ParseTimeoutHeader parses a TIMEOUT header value ("Second-N" or
// "Second-infinite"). "Second-infinite" is reported as ok=false since
// this server never grants infinite subscriptions (matching §4.12's
// periodic re-advertisement model rather than an unbounded one).
func ParseTimeoutHeader(s string) (time.Duration, bool) {
	var n int
	if _, err := fmt.Sscanf(s, "Second-%d", &n); err != nil {
		return 0, false
	}
	if n <= 0 {
		return 0, false
	}
	return time.Duration(n) * time.Second, true
}
