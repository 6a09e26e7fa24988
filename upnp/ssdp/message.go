// Package ssdp implements the SSDP discovery and notification protocol
// (§4.11): a UDP multicast listener on 239.255.255.250:1900 answering
// M-SEARCH requests and periodically re-advertising NOTIFY ssdp:alive,
// sending ssdp:byebye on shutdown. Messages are HTTP-over-UDP, grounded
// directly on original_source/src/upnp/ssdp.rs's hand-rolled
// request-line-plus-headers parsing and Display-based formatting (no pack
// example or ecosystem library implements SSDP, so the wire format is
// built by hand the same way the original does, rather than reaching for
// a generic HTTP parser that doesn't fit HTTP-over-UDP framing).
package ssdp

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// MulticastAddr is the well-known SSDP multicast group and port.
	MulticastAddr = "239.255.255.250:1900"
	// DefaultNotifyInterval is how often the server re-advertises alive.
	DefaultNotifyInterval = 90
	// DefaultCacheControl is the default max-age advertised in seconds.
	DefaultCacheControl = 1800
)

// NTKind discriminates the four forms an NT/ST header value can take.
type NTKind int

const (
	NTAll NTKind = iota
	NTRootDevice
	NTUUID
	NTURN
)

// NotificationType is a parsed NT/ST header value: the wildcard
// "ssdp:all", the fixed "upnp:rootdevice", a bare "uuid:<id>", or a
// structured device/service URN.
type NotificationType struct {
	Kind NTKind
	UUID string
	URN  URN
}

func (n NotificationType) String() string {
	switch n.Kind {
	case NTAll:
		return "ssdp:all"
	case NTRootDevice:
		return "upnp:rootdevice"
	case NTUUID:
		return "uuid:" + n.UUID
	default:
		return n.URN.String()
	}
}

// ParseNotificationType parses an NT/ST header value.
func ParseNotificationType(s string) (NotificationType, error) {
	switch {
	case s == "ssdp:all":
		return NotificationType{Kind: NTAll}, nil
	case s == "upnp:rootdevice":
		return NotificationType{Kind: NTRootDevice}, nil
	case strings.HasPrefix(s, "uuid:"):
		return NotificationType{Kind: NTUUID, UUID: strings.TrimPrefix(s, "uuid:")}, nil
	case strings.HasPrefix(s, "urn:"):
		urn, err := ParseURN(s)
		if err != nil {
			return NotificationType{}, err
		}
		return NotificationType{Kind: NTURN, URN: urn}, nil
	default:
		return NotificationType{}, fmt.Errorf("ssdp: unknown notification type %q", s)
	}
}

// NotificationSubType is a NOTIFY message's NTS header value.
type NotificationSubType int

const (
	NTSAlive NotificationSubType = iota
	NTSByeBye
	NTSUpdate
)

func (s NotificationSubType) String() string {
	switch s {
	case NTSAlive:
		return "ssdp:alive"
	case NTSByeBye:
		return "ssdp:byebye"
	default:
		return "ssdp:update"
	}
}

// ParseNotificationSubType parses an NTS header value.
func ParseNotificationSubType(s string) (NotificationSubType, error) {
	switch s {
	case "ssdp:alive":
		return NTSAlive, nil
	case "ssdp:byebye":
		return NTSByeBye, nil
	case "ssdp:update":
		return NTSUpdate, nil
	default:
		return 0, fmt.Errorf("ssdp: unknown notification subtype %q", s)
	}
}

// MessageKind discriminates the SSDP broadcast messages a listener may
// receive, equivalent to the original's BroadcastMessage enum.
type MessageKind int

const (
	MessageSearch MessageKind = iota
	MessageNotify
)

// Message is a parsed SSDP datagram, flattened (like torrent/dht.Message)
// into one struct with the fields relevant to its Kind populated.
type Message struct {
	Kind MessageKind
	Host string

	// Search-only fields.
	Man       string
	ST        NotificationType
	MX        int
	UserAgent string

	// Notify-only fields.
	NT           NotificationType
	NTS          NotificationSubType
	USN          string
	Location     string
	CacheControl int
	Server       string
}

// Parse decodes an HTTP-over-UDP SSDP request line plus headers, matching
// original_source/src/upnp/ssdp.rs's BroadcastMessage::parse_ssdp_payload.
func Parse(s string) (Message, error) {
	lines := strings.Split(strings.TrimRight(s, "\r\n"), "\n")
	if len(lines) == 0 {
		return Message{}, fmt.Errorf("ssdp: empty message")
	}
	requestLine := strings.TrimSpace(lines[0])
	method, _, ok := strings.Cut(requestLine, " ")
	if !ok {
		return Message{}, fmt.Errorf("ssdp: malformed request line %q", requestLine)
	}

	headers := make(map[string]string)
	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		headers[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(value)
	}

	switch method {
	case "M-SEARCH":
		return parseSearch(headers)
	case "NOTIFY":
		return parseNotify(headers)
	default:
		return Message{}, fmt.Errorf("ssdp: unknown method %q", method)
	}
}

func parseSearch(h map[string]string) (Message, error) {
	st, err := requireHeader(h, "st", ParseNotificationType)
	if err != nil {
		return Message{}, err
	}
	man, err := requireRaw(h, "man")
	if err != nil {
		return Message{}, err
	}
	mxStr, err := requireRaw(h, "mx")
	if err != nil {
		return Message{}, err
	}
	mx, err := strconv.Atoi(mxStr)
	if err != nil {
		return Message{}, fmt.Errorf("ssdp: bad mx %q: %w", mxStr, err)
	}
	return Message{
		Kind:      MessageSearch,
		Host:      h["host"],
		Man:       man,
		ST:        st,
		MX:        mx,
		UserAgent: h["user-agent"],
	}, nil
}

func parseNotify(h map[string]string) (Message, error) {
	nt, err := requireHeader(h, "nt", ParseNotificationType)
	if err != nil {
		return Message{}, err
	}
	nts, err := requireHeader(h, "nts", ParseNotificationSubType)
	if err != nil {
		return Message{}, err
	}
	usn, err := requireRaw(h, "usn")
	if err != nil {
		return Message{}, err
	}

	msg := Message{Kind: MessageNotify, Host: h["host"], NT: nt, NTS: nts, USN: usn}
	if nts == NTSByeBye {
		return msg, nil
	}

	location, err := requireRaw(h, "location")
	if err != nil {
		return Message{}, err
	}
	cacheControl, err := requireRaw(h, "cache-control")
	if err != nil {
		return Message{}, err
	}
	server, err := requireRaw(h, "server")
	if err != nil {
		return Message{}, err
	}
	maxAge, err := parseMaxAge(cacheControl)
	if err != nil {
		return Message{}, err
	}
	msg.Location = location
	msg.CacheControl = maxAge
	msg.Server = server
	return msg, nil
}

func parseMaxAge(s string) (int, error) {
	prefix, value, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(prefix) != "max-age" {
		return 0, fmt.Errorf("ssdp: malformed cache-control %q", s)
	}
	return strconv.Atoi(strings.TrimSpace(value))
}

func requireRaw(h map[string]string, name string) (string, error) {
	v, ok := h[name]
	if !ok {
		return "", fmt.Errorf("ssdp: missing %s header", name)
	}
	return v, nil
}

func requireHeader[T any](h map[string]string, name string, parse func(string) (T, error)) (T, error) {
	var zero T
	v, ok := h[name]
	if !ok {
		return zero, fmt.Errorf("ssdp: missing %s header", name)
	}
	return parse(v)
}

// NotifyMessage formats an outbound NOTIFY datagram, equivalent to the
// original's NotifyAliveMessage/NotifyByeByeMessage/NotifyUpdateMessage
// Display impls collapsed into one type keyed on NTS.
type NotifyMessage struct {
	NTS          NotificationSubType
	NT           NotificationType
	USN          string
	Location     string
	CacheControl int
	Server       string
}

func (m NotifyMessage) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "NOTIFY * HTTP/1.1\r\nHOST: %s\r\n", MulticastAddr)
	if m.NTS != NTSByeBye {
		fmt.Fprintf(&b, "CACHE-CONTROL: max-age=%d\r\n", m.CacheControl)
		fmt.Fprintf(&b, "LOCATION: %s\r\n", m.Location)
	}
	fmt.Fprintf(&b, "NT: %s\r\n", m.NT)
	fmt.Fprintf(&b, "NTS: %s\r\n", m.NTS)
	if m.NTS != NTSByeBye {
		fmt.Fprintf(&b, "SERVER: %s\r\n", m.Server)
	}
	fmt.Fprintf(&b, "USN: %s\r\n\r\n", m.USN)
	return b.String()
}

// SearchResponse formats the unicast reply to an M-SEARCH (§4.11).
type SearchResponse struct {
	CacheControl int
	Location     string
	Server       string
	ST           NotificationType
	USN          string
}

func (r SearchResponse) String() string {
	return fmt.Sprintf(
		"HTTP/1.1 200 OK\r\nCACHE-CONTROL: max-age=%d\r\nLOCATION: %s\r\nSERVER: %s\r\nST: %s\r\nUSN: %s\r\n\r\n",
		r.CacheControl, r.Location, r.Server, r.ST, r.USN,
	)
}

// usnFor builds the USN a target advertises: "uuid:<udn>" alone for the
// bare UUID notification, "uuid:<udn>::<nt>" for every other target, per
// the convention root-device/service advertisements use across the NOTIFY
// examples in ssdp.rs's test fixture.
func usnFor(udn string, nt NotificationType) string {
	if nt.Kind == NTUUID {
		return "uuid:" + udn
	}
	return "uuid:" + udn + "::" + nt.String()
}
