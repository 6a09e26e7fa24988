package scpd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fenwick-labs/corelode/upnp/xmlutil"
)

const (
	deviceNS              = "urn:schemas-upnp-org:device-1-0"
	dlnaNS                = "urn:schemas-dlna-org:device-1-0"
	mediaServerDeviceType = "urn:schemas-upnp-org:device:MediaServer:1"
)

// UDN is a device's Unique Device Name: "uuid:<uuid>", stable across
// restarts (§4.12/§4.11's USN "uuid:<our-uuid>" prefix), grounded on
// device_description.rs's UDN.
type UDN struct {
	UUID string
}

func (u UDN) String() string { return "uuid:" + u.UUID }

// ParseUDN parses a "uuid:<uuid>" string.
func ParseUDN(s string) (UDN, error) {
	id, ok := strings.CutPrefix(s, "uuid:")
	if !ok {
		return UDN{}, fmt.Errorf("scpd: udn %q must start with uuid:", s)
	}
	return UDN{UUID: id}, nil
}

// Icon is one <icon> entry in a device's <iconList>.
type Icon struct {
	Mimetype string
	Width    int
	Height   int
	Depth    int
	URL      string
}

// Service is one <service> entry in a device's <serviceList>, grounded on
// device_description.rs's Service.
type Service struct {
	ServiceType string
	ServiceID   string
	SCPDURL     string
	ControlURL  string
	EventSubURL string
}

// ContentDirectoryService is the ContentDirectory service descriptor this
// server advertises in its device description (§4.12).
func ContentDirectoryService() Service {
	return Service{
		ServiceType: "urn:schemas-upnp-org:service:ContentDirectory:1",
		ServiceID:   "urn:upnp-org:serviceId:ContentDirectory",
		SCPDURL:     "/upnp/content_directory/scpd.xml",
		ControlURL:  "/upnp/content_directory/control.xml",
		EventSubURL: "/upnp/content_directory/event.xml",
	}
}

// Device is the <device> element of a device description document,
// grounded on device_description.rs's Device.
type Device struct {
	DeviceType       string
	FriendlyName     string
	Manufacturer     string
	ManufacturerURL  string
	ModelDescription string
	ModelName        string
	ModelNumber      string
	ModelURL         string
	SerialNumber     string
	UDN              UDN
	DLNADoc          string
	Icons            []Icon
	Services         []Service
}

// DeviceDescription is the root device description document served at
// the UPnP-advertised LOCATION URL, grounded on device_description.rs's
// DeviceDescription.
type DeviceDescription struct {
	ConfigID    string
	SpecVersion SpecVersion
	Device      Device
}

// NewMediaServerDescription builds the minimal device description this
// server advertises, equivalent to DeviceDescription::new.
func NewMediaServerDescription(friendlyName string, udn UDN) DeviceDescription {
	return DeviceDescription{
		ConfigID:    "1",
		SpecVersion: UPnPV2,
		Device: Device{
			DeviceType:   mediaServerDeviceType,
			FriendlyName: friendlyName,
			Manufacturer: "corelode",
			ModelName:    "corelode media server",
			UDN:          udn,
			DLNADoc:      dlnaNS,
			Services:     []Service{ContentDirectoryService()},
		},
	}
}

// EncodeDevice writes the full device description XML document.
func EncodeDevice(w io.Writer, desc DeviceDescription) error {
	xw := xmlutil.NewWriter(w)
	if err := xw.WriteDecl(); err != nil {
		return err
	}
	if err := xw.Push("root",
		xmlutil.Attr{Name: "xmlns", Value: deviceNS},
		xmlutil.Attr{Name: "xmlns:dlna", Value: dlnaNS},
		xmlutil.Attr{Name: "configId", Value: desc.ConfigID},
	); err != nil {
		return err
	}
	if err := desc.SpecVersion.writeXML(xw); err != nil {
		return err
	}
	if err := writeDeviceXML(xw, desc.Device); err != nil {
		return err
	}
	if err := xw.Pop(); err != nil { // root
		return err
	}
	return xw.Flush()
}

func writeDeviceXML(xw *xmlutil.Writer, d Device) error {
	if err := xw.Push("device"); err != nil {
		return err
	}
	required := []struct{ name, value string }{
		{"deviceType", d.DeviceType},
		{"friendlyName", d.FriendlyName},
		{"manufacturer", d.Manufacturer},
		{"modelName", d.ModelName},
	}
	for _, e := range required {
		if err := xw.Element(e.name, e.value); err != nil {
			return err
		}
	}
	optional := []struct{ name, value string }{
		{"manufacturerURL", d.ManufacturerURL},
		{"modelDescription", d.ModelDescription},
		{"modelNumber", d.ModelNumber},
		{"modelURL", d.ModelURL},
		{"serialNumber", d.SerialNumber},
	}
	for _, e := range optional {
		if e.value == "" {
			continue
		}
		if err := xw.Element(e.name, e.value); err != nil {
			return err
		}
	}
	if err := xw.Element("UDN", d.UDN.String()); err != nil {
		return err
	}
	if d.DLNADoc != "" {
		if err := xw.Element("X_DLNADOC", d.DLNADoc); err != nil {
			return err
		}
	}
	if len(d.Icons) > 0 {
		if err := xw.Push("iconList"); err != nil {
			return err
		}
		for _, icon := range d.Icons {
			if err := writeIconXML(xw, icon); err != nil {
				return err
			}
		}
		if err := xw.Pop(); err != nil {
			return err
		}
	}
	if err := xw.Push("serviceList"); err != nil {
		return err
	}
	for _, svc := range d.Services {
		if err := writeServiceXML(xw, svc); err != nil {
			return err
		}
	}
	if err := xw.Pop(); err != nil {
		return err
	}
	return xw.Pop() // device
}

func writeIconXML(xw *xmlutil.Writer, icon Icon) error {
	if err := xw.Push("icon"); err != nil {
		return err
	}
	if err := xw.Element("mimetype", icon.Mimetype); err != nil {
		return err
	}
	if err := xw.Element("width", strconv.Itoa(icon.Width)); err != nil {
		return err
	}
	if err := xw.Element("height", strconv.Itoa(icon.Height)); err != nil {
		return err
	}
	if err := xw.Element("depth", strconv.Itoa(icon.Depth)); err != nil {
		return err
	}
	if err := xw.Element("url", icon.URL); err != nil {
		return err
	}
	return xw.Pop()
}

func writeServiceXML(xw *xmlutil.Writer, svc Service) error {
	if err := xw.Push("service"); err != nil {
		return err
	}
	if err := xw.Element("serviceType", svc.ServiceType); err != nil {
		return err
	}
	if err := xw.Element("serviceId", svc.ServiceID); err != nil {
		return err
	}
	if err := xw.Element("SCPDURL", svc.SCPDURL); err != nil {
		return err
	}
	if err := xw.Element("controlURL", svc.ControlURL); err != nil {
		return err
	}
	if err := xw.Element("eventSubURL", svc.EventSubURL); err != nil {
		return err
	}
	return xw.Pop()
}

// DecodeDevice parses a device description document.
func DecodeDevice(r io.Reader) (DeviceDescription, error) {
	xr := xmlutil.NewReader(r)
	root, err := xr.ReadToStart()
	if err != nil {
		return DeviceDescription{}, err
	}
	if root.Name != "root" {
		return DeviceDescription{}, fmt.Errorf("scpd: expected <root>, got <%s>", root.Name)
	}
	configID, _ := root.Attr("configId")

	specVersion, err := readSpecVersion(xr)
	if err != nil {
		return DeviceDescription{}, err
	}

	deviceStart, err := xr.ReadToStart()
	if err != nil {
		return DeviceDescription{}, err
	}
	if deviceStart.Name != "device" {
		return DeviceDescription{}, fmt.Errorf("scpd: expected <device>, got <%s>", deviceStart.Name)
	}
	device, err := readDeviceXML(xr)
	if err != nil {
		return DeviceDescription{}, err
	}

	return DeviceDescription{ConfigID: configID, SpecVersion: specVersion, Device: device}, nil
}

func readDeviceXML(xr *xmlutil.Reader) (Device, error) {
	var d Device
	for {
		child, err := xr.NextChild("device")
		if err != nil {
			return Device{}, err
		}
		if child == nil {
			return d, nil
		}
		switch child.Name {
		case "deviceType", "friendlyName", "manufacturer", "manufacturerURL",
			"modelDescription", "modelName", "modelNumber", "modelURL",
			"serialNumber", "X_DLNADOC":
			text, err := xr.ReadText(child.Name)
			if err != nil {
				return Device{}, err
			}
			assignDeviceField(&d, child.Name, text)
		case "UDN":
			text, err := xr.ReadText("UDN")
			if err != nil {
				return Device{}, err
			}
			udn, err := ParseUDN(text)
			if err != nil {
				return Device{}, err
			}
			d.UDN = udn
		case "iconList":
			icons, err := readIconList(xr)
			if err != nil {
				return Device{}, err
			}
			d.Icons = icons
		case "serviceList":
			services, err := readServiceList(xr)
			if err != nil {
				return Device{}, err
			}
			d.Services = services
		default:
			if err := xr.ReadToEnd(child.Name); err != nil {
				return Device{}, err
			}
		}
	}
}

func assignDeviceField(d *Device, name, value string) {
	switch name {
	case "deviceType":
		d.DeviceType = value
	case "friendlyName":
		d.FriendlyName = value
	case "manufacturer":
		d.Manufacturer = value
	case "manufacturerURL":
		d.ManufacturerURL = value
	case "modelDescription":
		d.ModelDescription = value
	case "modelName":
		d.ModelName = value
	case "modelNumber":
		d.ModelNumber = value
	case "modelURL":
		d.ModelURL = value
	case "serialNumber":
		d.SerialNumber = value
	case "X_DLNADOC":
		d.DLNADoc = value
	}
}

func readIconList(xr *xmlutil.Reader) ([]Icon, error) {
	var icons []Icon
	for {
		child, err := xr.NextChild("iconList")
		if err != nil {
			return nil, err
		}
		if child == nil {
			return icons, nil
		}
		icon, err := readIcon(xr)
		if err != nil {
			return nil, err
		}
		icons = append(icons, icon)
	}
}

func readIcon(xr *xmlutil.Reader) (Icon, error) {
	var icon Icon
	for {
		child, err := xr.NextChild("icon")
		if err != nil {
			return Icon{}, err
		}
		if child == nil {
			return icon, nil
		}
		text, err := xr.ReadText(child.Name)
		if err != nil {
			return Icon{}, err
		}
		switch child.Name {
		case "mimetype":
			icon.Mimetype = text
		case "width":
			icon.Width, _ = strconv.Atoi(text)
		case "height":
			icon.Height, _ = strconv.Atoi(text)
		case "depth":
			icon.Depth, _ = strconv.Atoi(text)
		case "url":
			icon.URL = text
		}
	}
}

func readServiceList(xr *xmlutil.Reader) ([]Service, error) {
	var services []Service
	for {
		child, err := xr.NextChild("serviceList")
		if err != nil {
			return nil, err
		}
		if child == nil {
			return services, nil
		}
		svc, err := readService(xr)
		if err != nil {
			return nil, err
		}
		services = append(services, svc)
	}
}

func readService(xr *xmlutil.Reader) (Service, error) {
	var svc Service
	for {
		child, err := xr.NextChild("service")
		if err != nil {
			return Service{}, err
		}
		if child == nil {
			return svc, nil
		}
		text, err := xr.ReadText(child.Name)
		if err != nil {
			return Service{}, err
		}
		switch child.Name {
		case "serviceType":
			svc.ServiceType = text
		case "serviceId":
			svc.ServiceID = text
		case "SCPDURL":
			svc.SCPDURL = text
		case "controlURL":
			svc.ControlURL = text
		case "eventSubURL":
			svc.EventSubURL = text
		}
	}
}
