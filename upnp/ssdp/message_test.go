package ssdp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseNotifyAlive(t *testing.T) {
	notify := "NOTIFY * HTTP/1.1\r\n" +
		"HOST: 239.255.255.250:1900\r\n" +
		"CACHE-CONTROL: max-age=1800\r\n" +
		"LOCATION: http://192.168.1.1:49152/IGDdevicedesc.xml\r\n" +
		"NT: urn:schemas-upnp-org:service:WANEthernetLinkConfig:1\r\n" +
		"NTS: ssdp:alive\r\n" +
		"SERVER: Linux/3.14.77, UPnP/1.0, Portable SDK for UPnP devices/1.6.19\r\n" +
		"USN: uuid:ebf5a0a0-1dd1-11b2-a92f-e89f80eb7241::urn:schemas-upnp-org:service:WANEthernetLinkConfig:1\r\n\r\n"

	msg, err := Parse(notify)
	require.NoError(t, err)
	require.Equal(t, MessageNotify, msg.Kind)
	require.Equal(t, NTSAlive, msg.NTS)
	require.Equal(t, 1800, msg.CacheControl)
	require.Equal(t, "http://192.168.1.1:49152/IGDdevicedesc.xml", msg.Location)
	require.Equal(t, NTURN, msg.NT.Kind)
	require.Equal(t, "WANEthernetLinkConfig", msg.NT.URN.Name)
	require.Equal(t, 1, msg.NT.URN.Version)
}

func TestParseNotifyByeByeHasNoLocation(t *testing.T) {
	byebye := "NOTIFY * HTTP/1.1\r\n" +
		"HOST: 239.255.255.250:1900\r\n" +
		"NT: upnp:rootdevice\r\n" +
		"NTS: ssdp:byebye\r\n" +
		"USN: uuid:abc::upnp:rootdevice\r\n\r\n"

	msg, err := Parse(byebye)
	require.NoError(t, err)
	require.Equal(t, NTSByeBye, msg.NTS)
	require.Empty(t, msg.Location)
}

func TestParseMSearchRejectsNonSchemaURN(t *testing.T) {
	search := "M-SEARCH * HTTP/1.1\r\n" +
		"HOST: 239.255.255.250:1900\r\n" +
		"MAN: \"ssdp:discover\"\r\n" +
		"MX: 1\r\n" +
		"ST: urn:dial-multiscreen-org:service:dial:1\r\n" +
		"USER-AGENT: Microsoft Edge/128.0.2739.67 Windows\r\n\r\n"

	_, err := Parse(search)
	require.Error(t, err, "dial-multiscreen-org is not a schemas-upnp-org urn")
}

func TestParseMSearchRootDevice(t *testing.T) {
	search := "M-SEARCH * HTTP/1.1\r\n" +
		"HOST: 239.255.255.250:1900\r\n" +
		"MAN: \"ssdp:discover\"\r\n" +
		"MX: 1\r\n" +
		"ST: upnp:rootdevice\r\n\r\n"

	msg, err := Parse(search)
	require.NoError(t, err)
	require.Equal(t, MessageSearch, msg.Kind)
	require.Equal(t, NTRootDevice, msg.ST.Kind)
	require.Equal(t, 1, msg.MX)
}

func TestParseURNRoundTrip(t *testing.T) {
	urn := DeviceURN("MediaServer", 1)
	parsed, err := ParseURN(urn.String())
	require.NoError(t, err)
	require.Equal(t, urn, parsed)
	require.Equal(t, "urn:schemas-upnp-org:device:MediaServer:1", urn.String())
}

func TestNotifyMessageByeByeOmitsOptionalHeaders(t *testing.T) {
	msg := NotifyMessage{NTS: NTSByeBye, NT: NotificationType{Kind: NTRootDevice}, USN: "uuid:abc::upnp:rootdevice"}
	s := msg.String()
	require.NotContains(t, s, "LOCATION")
	require.NotContains(t, s, "CACHE-CONTROL")
	require.NotContains(t, s, "SERVER")
}

func TestSearchResponseFormat(t *testing.T) {
	resp := SearchResponse{
		CacheControl: 1800,
		Location:     "http://10.0.0.1:8200/desc.xml",
		Server:       "Go UPnP/2.0 MediaServer/1.0",
		ST:           NotificationType{Kind: NTRootDevice},
		USN:          "uuid:abc::upnp:rootdevice",
	}
	s := resp.String()
	require.Contains(t, s, "HTTP/1.1 200 OK")
	require.Contains(t, s, "CACHE-CONTROL: max-age=1800")
	require.Contains(t, s, "ST: upnp:rootdevice")
}

func TestParseRejectsUnknownMethod(t *testing.T) {
	_, err := Parse("FOO * HTTP/1.1\r\n\r\n")
	require.Error(t, err)
}
