package igdclient

import "github.com/fenwick-labs/corelode/upnp/scpd"

// ServiceType is the WANIPConnection:1 service URN this client speaks,
// grounded on service_client.rs's Action::WANIPCONNECTION_URN.
const ServiceType = "urn:schemas-upnp-org:service:WANIPConnection:1"

// SCPDDocument describes WANIPConnection:1's action set as §4.13 and
// service_client.rs's Action methods (add_port_mapping,
// add_any_port_mapping, remove_port_mapping, get_external_ip,
// get_list_of_port_mappings) require it: used by tests and by any
// caller that wants to validate a real gateway's advertised SCPD
// against what this client expects before calling CallStrict.
func SCPDDocument() scpd.Document {
	return scpd.Document{
		SpecVersion: scpd.SpecVersion{Major: 1, Minor: 0},
		Actions: []scpd.Action{
			{
				Name: "AddPortMapping",
				Arguments: []scpd.Argument{
					{Name: "NewRemoteHost", Direction: scpd.In, RelatedStateVariable: "RemoteHost"},
					{Name: "NewExternalPort", Direction: scpd.In, RelatedStateVariable: "ExternalPort"},
					{Name: "NewProtocol", Direction: scpd.In, RelatedStateVariable: "PortMappingProtocol"},
					{Name: "NewInternalPort", Direction: scpd.In, RelatedStateVariable: "InternalPort"},
					{Name: "NewInternalClient", Direction: scpd.In, RelatedStateVariable: "InternalClient"},
					{Name: "NewEnabled", Direction: scpd.In, RelatedStateVariable: "PortMappingEnabled"},
					{Name: "NewPortMappingDescription", Direction: scpd.In, RelatedStateVariable: "PortMappingDescription"},
					{Name: "NewLeaseDuration", Direction: scpd.In, RelatedStateVariable: "PortMappingLeaseDuration"},
				},
			},
			{
				Name: "AddAnyPortMapping",
				Arguments: []scpd.Argument{
					{Name: "NewRemoteHost", Direction: scpd.In, RelatedStateVariable: "RemoteHost"},
					{Name: "NewExternalPort", Direction: scpd.In, RelatedStateVariable: "ExternalPort"},
					{Name: "NewProtocol", Direction: scpd.In, RelatedStateVariable: "PortMappingProtocol"},
					{Name: "NewInternalPort", Direction: scpd.In, RelatedStateVariable: "InternalPort"},
					{Name: "NewInternalClient", Direction: scpd.In, RelatedStateVariable: "InternalClient"},
					{Name: "NewEnabled", Direction: scpd.In, RelatedStateVariable: "PortMappingEnabled"},
					{Name: "NewPortMappingDescription", Direction: scpd.In, RelatedStateVariable: "PortMappingDescription"},
					{Name: "NewLeaseDuration", Direction: scpd.In, RelatedStateVariable: "PortMappingLeaseDuration"},
					{Name: "NewReservedPort", Direction: scpd.Out, RelatedStateVariable: "ExternalPort"},
				},
			},
			{
				Name: "DeletePortMapping",
				Arguments: []scpd.Argument{
					{Name: "NewRemoteHost", Direction: scpd.In, RelatedStateVariable: "RemoteHost"},
					{Name: "NewExternalPort", Direction: scpd.In, RelatedStateVariable: "ExternalPort"},
					{Name: "NewProtocol", Direction: scpd.In, RelatedStateVariable: "PortMappingProtocol"},
				},
			},
			{
				Name: "GetExternalIPAddress",
				Arguments: []scpd.Argument{
					{Name: "NewExternalIPAddress", Direction: scpd.Out, RelatedStateVariable: "ExternalIPAddress"},
				},
			},
			{
				Name: "GetListOfPortMappings",
				Arguments: []scpd.Argument{
					{Name: "NewStartPort", Direction: scpd.In, RelatedStateVariable: "ExternalPort"},
					{Name: "NewEndPort", Direction: scpd.In, RelatedStateVariable: "ExternalPort"},
					{Name: "NewProtocol", Direction: scpd.In, RelatedStateVariable: "PortMappingProtocol"},
					{Name: "NewManage", Direction: scpd.In, RelatedStateVariable: "Manage"},
					{Name: "NewNumberOfPorts", Direction: scpd.In, RelatedStateVariable: "PortMappingNumberOfEntries"},
					{Name: "NewPortListing", Direction: scpd.Out, RelatedStateVariable: "PortListing"},
				},
			},
		},
		Variables: []scpd.StateVariable{
			{Name: "RemoteHost", Type: scpd.String},
			{Name: "ExternalPort", Type: scpd.Ui2},
			{Name: "PortMappingProtocol", Type: scpd.String},
			{Name: "InternalPort", Type: scpd.Ui2},
			{Name: "InternalClient", Type: scpd.String},
			{Name: "PortMappingEnabled", Type: scpd.Boolean},
			{Name: "PortMappingDescription", Type: scpd.String},
			{Name: "PortMappingLeaseDuration", Type: scpd.Ui4},
			{Name: "ExternalIPAddress", Type: scpd.String},
			{Name: "Manage", Type: scpd.Boolean},
			{Name: "PortMappingNumberOfEntries", Type: scpd.Ui2},
			{Name: "PortListing", Type: scpd.String},
		},
	}
}
