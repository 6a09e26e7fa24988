package ssdp

import (
	"fmt"
	"strconv"
	"strings"
)

// URNKind distinguishes a device type URN from a service type URN
// (§4.11: "urn:schemas-upnp-org:{device|service}:<name>:<ver>").
type URNKind int

const (
	URNDevice URNKind = iota
	URNService
)

func (k URNKind) String() string {
	if k == URNDevice {
		return "device"
	}
	return "service"
}

// URN is a structured schemas-upnp-org device or service type, the form
// NT/ST values beyond the fixed ssdp:all/upnp:rootdevice/uuid:<id> strings
// take.
type URN struct {
	Kind    URNKind
	Name    string
	Version int
}

// String renders the canonical "urn:schemas-upnp-org:device:MediaServer:1"
// form.
func (u URN) String() string {
	return fmt.Sprintf("urn:schemas-upnp-org:%s:%s:%d", u.Kind, u.Name, u.Version)
}

// ParseURN parses a "urn:schemas-upnp-org:{device|service}:<name>:<ver>"
// string.
func ParseURN(s string) (URN, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 5 || parts[0] != "urn" || parts[1] != "schemas-upnp-org" {
		return URN{}, fmt.Errorf("ssdp: not a schemas-upnp-org urn: %q", s)
	}
	var kind URNKind
	switch parts[2] {
	case "device":
		kind = URNDevice
	case "service":
		kind = URNService
	default:
		return URN{}, fmt.Errorf("ssdp: unknown urn type %q in %q", parts[2], s)
	}
	version, err := strconv.Atoi(parts[4])
	if err != nil {
		return URN{}, fmt.Errorf("ssdp: bad urn version in %q: %w", s, err)
	}
	return URN{Kind: kind, Name: parts[3], Version: version}, nil
}

// DeviceURN and ServiceURN build the URN for §4.12/§4.13's well-known
// types: the ContentDirectory device/service this server exposes, and the
// IGD/AVTransport services its clients control.
func DeviceURN(name string, version int) URN  { return URN{Kind: URNDevice, Name: name, Version: version} }
func ServiceURN(name string, version int) URN { return URN{Kind: URNService, Name: name, Version: version} }
