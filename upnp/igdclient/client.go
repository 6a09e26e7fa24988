// Package igdclient implements the IGD WANIPConnection:1 control
// point client §4.13 names: AddPortMapping, AddAnyPortMapping,
// DeletePortMapping, GetExternalIPAddress, and
// GetListOfPortMappings(start, end, protocol, manage, take). Grounded
// on original_source/upnp/src/service_client.rs's Action methods
// (add_port_mapping/add_any_port_mapping/remove_port_mapping/
// get_external_ip/get_list_of_port_mappings and their "_strict"
// counterparts) and upnp/examples/igd_cli.rs's call sites, built on
// upnp/soapclient instead of reqwest/quick_xml.
package igdclient

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fenwick-labs/corelode/upnp/soap"
	"github.com/fenwick-labs/corelode/upnp/soapclient"
)

// Protocol is a port mapping's transport protocol.
type Protocol string

const (
	TCP Protocol = "TCP"
	UDP Protocol = "UDP"
)

// Client is a control point for a single gateway's WANIPConnection:1
// service.
type Client struct {
	soap *soapclient.Client
}

// New wraps an already-constructed *soapclient.Client. Callers
// typically build that client from the gateway's fetched SCPD
// document and control URL (discovered via SSDP/device description),
// then pass it here.
func New(soapClient *soapclient.Client) *Client {
	return &Client{soap: soapClient}
}

// AddPortMapping requests a specific external port be mapped to
// internalPort on internalClient. remoteHost empty means "any remote
// host" per the UPnP convention service_client.rs follows.
func (c *Client) AddPortMapping(ctx context.Context, remoteHost string, externalPort uint16, protocol Protocol, internalPort uint16, internalClient string, enabled bool, description string, leaseDuration uint32) error {
	_, err := c.soap.CallStrict(ctx, "AddPortMapping", []soap.Argument{
		{Name: "NewRemoteHost", Value: remoteHost},
		{Name: "NewExternalPort", Value: strconv.Itoa(int(externalPort))},
		{Name: "NewProtocol", Value: string(protocol)},
		{Name: "NewInternalPort", Value: strconv.Itoa(int(internalPort))},
		{Name: "NewInternalClient", Value: internalClient},
		{Name: "NewEnabled", Value: formatBool(enabled)},
		{Name: "NewPortMappingDescription", Value: description},
		{Name: "NewLeaseDuration", Value: strconv.Itoa(int(leaseDuration))},
	})
	return err
}

// AddAnyPortMapping behaves like AddPortMapping but lets the gateway
// pick the external port when externalPort is already taken, returning
// the port it actually assigned (igd_cli.rs's Command::Open /
// add_any_port_mapping).
func (c *Client) AddAnyPortMapping(ctx context.Context, remoteHost string, externalPort uint16, protocol Protocol, internalPort uint16, internalClient string, enabled bool, description string, leaseDuration uint32) (uint16, error) {
	args, err := c.soap.CallStrict(ctx, "AddAnyPortMapping", []soap.Argument{
		{Name: "NewRemoteHost", Value: remoteHost},
		{Name: "NewExternalPort", Value: strconv.Itoa(int(externalPort))},
		{Name: "NewProtocol", Value: string(protocol)},
		{Name: "NewInternalPort", Value: strconv.Itoa(int(internalPort))},
		{Name: "NewInternalClient", Value: internalClient},
		{Name: "NewEnabled", Value: formatBool(enabled)},
		{Name: "NewPortMappingDescription", Value: description},
		{Name: "NewLeaseDuration", Value: strconv.Itoa(int(leaseDuration))},
	})
	if err != nil {
		return 0, err
	}
	return argUint16(args, "NewReservedPort")
}

// DeletePortMapping removes a previously-added mapping
// (service_client.rs's remove_port_mapping).
func (c *Client) DeletePortMapping(ctx context.Context, remoteHost string, externalPort uint16, protocol Protocol) error {
	_, err := c.soap.CallStrict(ctx, "DeletePortMapping", []soap.Argument{
		{Name: "NewRemoteHost", Value: remoteHost},
		{Name: "NewExternalPort", Value: strconv.Itoa(int(externalPort))},
		{Name: "NewProtocol", Value: string(protocol)},
	})
	return err
}

// GetExternalIPAddress returns the gateway's WAN IP
// (service_client.rs's get_external_ip).
func (c *Client) GetExternalIPAddress(ctx context.Context) (string, error) {
	args, err := c.soap.Call(ctx, "GetExternalIPAddress", nil)
	if err != nil {
		return "", err
	}
	for _, a := range args {
		if a.Name == "NewExternalIPAddress" {
			return a.Value, nil
		}
	}
	return "", fmt.Errorf("igdclient: response missing NewExternalIPAddress")
}

// GetListOfPortMappings lists at most take mappings for protocol in
// [start, end]; manage mirrors the UPnP NewManage argument
// (service_client.rs's get_list_of_port_mappings). It returns the
// NewPortListing out-arg as raw bytes without parsing the XML document it
// holds, or nil when the response carries no NewPortListing.
func (c *Client) GetListOfPortMappings(ctx context.Context, start, end uint16, protocol Protocol, manage bool, take uint32) ([]byte, error) {
	args, err := c.soap.CallStrict(ctx, "GetListOfPortMappings", []soap.Argument{
		{Name: "NewStartPort", Value: strconv.Itoa(int(start))},
		{Name: "NewEndPort", Value: strconv.Itoa(int(end))},
		{Name: "NewProtocol", Value: string(protocol)},
		{Name: "NewManage", Value: formatBool(manage)},
		{Name: "NewNumberOfPorts", Value: strconv.Itoa(int(take))},
	})
	if err != nil {
		return nil, err
	}
	for _, a := range args {
		if a.Name == "NewPortListing" {
			return []byte(a.Value), nil
		}
	}
	return nil, nil
}

func argUint16(args []soap.Argument, name string) (uint16, error) {
	for _, a := range args {
		if a.Name == name {
			n, err := strconv.ParseUint(a.Value, 10, 16)
			if err != nil {
				return 0, fmt.Errorf("igdclient: %s: %w", name, err)
			}
			return uint16(n), nil
		}
	}
	return 0, fmt.Errorf("igdclient: response missing %s", name)
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
