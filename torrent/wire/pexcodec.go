package wire

import (
	"net"
	"strconv"

	"github.com/fenwick-labs/corelode/core"
)

// EncodePexEntries packs a slice of (addr, flags) pairs into the compact
// ut_pex wire form: each IPv4 entry is 6 bytes (4-byte address + 2-byte
// big-endian port), each IPv6 entry is 18 bytes, and entries are returned
// separately from their parallel flags byte string (§4.3,
// original_source/torrent/src/protocol/pex.rs).
func EncodePexEntries(entries []core.PexHistoryEntry) (addrs4, flags4, addrs6, flags6 []byte) {
	for _, e := range entries {
		host, portStr, err := net.SplitHostPort(e.Addr.String())
		if err != nil {
			continue
		}
		ip := net.ParseIP(host)
		if ip == nil {
			continue
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			continue
		}
		portBytes := []byte{byte(port >> 8), byte(port)}
		if ip4 := ip.To4(); ip4 != nil {
			addrs4 = append(addrs4, ip4...)
			addrs4 = append(addrs4, portBytes...)
			flags4 = append(flags4, byte(e.Flags))
		} else {
			addrs6 = append(addrs6, ip.To16()...)
			addrs6 = append(addrs6, portBytes...)
			flags6 = append(flags6, byte(e.Flags))
		}
	}
	return addrs4, flags4, addrs6, flags6
}

// pexAddr implements net.Addr for addresses decoded off the wire, where
// only the IP and port are known (no network name is carried on the wire).
type pexAddr struct {
	ip   net.IP
	port int
}

func (a pexAddr) Network() string { return "tcp" }
func (a pexAddr) String() string  { return net.JoinHostPort(a.ip.String(), strconv.Itoa(a.port)) }

// DecodePexEntries unpacks compact ut_pex address bytes (4 or 16 byte IPs)
// paired with a parallel flags byte string into PexHistoryEntry values
// tagged with the given event.
func DecodePexEntries(addrBytes, flagBytes []byte, ipLen int, event core.PexEvent) []core.PexHistoryEntry {
	entryLen := ipLen + 2
	n := len(addrBytes) / entryLen
	out := make([]core.PexHistoryEntry, 0, n)
	for i := 0; i < n; i++ {
		off := i * entryLen
		ip := append(net.IP(nil), addrBytes[off:off+ipLen]...)
		port := int(addrBytes[off+ipLen])<<8 | int(addrBytes[off+ipLen+1])
		var flags core.PexFlags
		if i < len(flagBytes) {
			flags = core.PexFlags(flagBytes[i])
		}
		out = append(out, core.PexHistoryEntry{
			Addr:  pexAddr{ip: ip, port: port},
			Event: event,
			Flags: flags,
		})
	}
	return out
}
