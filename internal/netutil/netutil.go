// Package netutil holds small net-address helpers. No other package in
// this module imports it.
package netutil

import (
	"fmt"
	"strings"
)

// SplitHostPort splits addr into host and port, tolerating a bare host with
// no port (in which case port is ""). Unlike net.SplitHostPort, it rejects
// a present-but-empty port rather than a missing one.
func SplitHostPort(addr string) (host, port string, err error) {
	parts := strings.Split(addr, ":")
	switch len(parts) {
	case 1:
		return parts[0], "", nil
	case 2:
		if parts[0] == "" || parts[1] == "" {
			return "", "", fmt.Errorf("%s is not a valid address", addr)
		}
		return parts[0], parts[1], nil
	default:
		return "", "", fmt.Errorf("%s is not a valid address", addr)
	}
}
