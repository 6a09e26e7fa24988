package scpd

import (
	"bytes"
	"testing"
)

func TestUDNRoundTrip(t *testing.T) {
	udn := UDN{UUID: "4d696e44-4c4e-4100-8010-000000000001"}
	parsed, err := ParseUDN(udn.String())
	if err != nil {
		t.Fatal(err)
	}
	if parsed != udn {
		t.Errorf("round trip = %+v, want %+v", parsed, udn)
	}
	if _, err := ParseUDN("not-a-udn"); err == nil {
		t.Fatal("expected error for missing uuid: prefix")
	}
}

func TestContentDirectoryServiceMatchesSpec(t *testing.T) {
	svc := ContentDirectoryService()
	if svc.ServiceType != "urn:schemas-upnp-org:service:ContentDirectory:1" {
		t.Errorf("ServiceType = %q", svc.ServiceType)
	}
	if svc.ServiceID != "urn:upnp-org:serviceId:ContentDirectory" {
		t.Errorf("ServiceID = %q", svc.ServiceID)
	}
	if svc.SCPDURL != "/upnp/content_directory/scpd.xml" {
		t.Errorf("SCPDURL = %q", svc.SCPDURL)
	}
	if svc.ControlURL != "/upnp/content_directory/control.xml" {
		t.Errorf("ControlURL = %q", svc.ControlURL)
	}
	if svc.EventSubURL != "/upnp/content_directory/event.xml" {
		t.Errorf("EventSubURL = %q", svc.EventSubURL)
	}
}

func TestDeviceDescriptionRoundTrip(t *testing.T) {
	udn := UDN{UUID: "4d696e44-4c4e-4100-8010-000000000001"}
	desc := NewMediaServerDescription("Living Room Media Server", udn)
	desc.Device.Icons = []Icon{
		{Mimetype: "image/png", Width: 120, Height: 120, Depth: 24, URL: "/icon.png"},
	}

	var buf bytes.Buffer
	if err := EncodeDevice(&buf, desc); err != nil {
		t.Fatal(err)
	}

	got, err := DecodeDevice(&buf)
	if err != nil {
		t.Fatalf("DecodeDevice: %v\nxml:\n%s", err, buf.String())
	}

	if got.ConfigID != desc.ConfigID {
		t.Errorf("ConfigID = %q, want %q", got.ConfigID, desc.ConfigID)
	}
	if got.Device.FriendlyName != desc.Device.FriendlyName {
		t.Errorf("FriendlyName = %q, want %q", got.Device.FriendlyName, desc.Device.FriendlyName)
	}
	if got.Device.UDN != udn {
		t.Errorf("UDN = %+v, want %+v", got.Device.UDN, udn)
	}
	if got.Device.DeviceType != mediaServerDeviceType {
		t.Errorf("DeviceType = %q, want %q", got.Device.DeviceType, mediaServerDeviceType)
	}
	if len(got.Device.Icons) != 1 || got.Device.Icons[0].URL != "/icon.png" {
		t.Errorf("Icons = %+v", got.Device.Icons)
	}
	if len(got.Device.Services) != 1 || got.Device.Services[0].ServiceType != "urn:schemas-upnp-org:service:ContentDirectory:1" {
		t.Errorf("Services = %+v", got.Device.Services)
	}
}

func TestDeviceDescriptionWithoutIcons(t *testing.T) {
	desc := NewMediaServerDescription("Bedroom", UDN{UUID: "abc"})

	var buf bytes.Buffer
	if err := EncodeDevice(&buf, desc); err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(buf.Bytes(), []byte("iconList")) {
		t.Errorf("unexpected iconList in output: %s", buf.String())
	}

	got, err := DecodeDevice(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Device.Icons) != 0 {
		t.Errorf("Icons = %+v, want empty", got.Device.Icons)
	}
}
