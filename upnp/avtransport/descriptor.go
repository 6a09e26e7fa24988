package avtransport

import "github.com/fenwick-labs/corelode/upnp/scpd"

// ServiceType is the AVTransport:1 service URN, grounded on
// service_client.rs's Action::AVTRANSPORT_URN.
const ServiceType = "urn:schemas-upnp-org:service:AVTransport:1"

// SCPDDocument describes AVTransport:1's action set as §4.13 and
// service_client.rs's av_play/av_pause/av_seek/av_position_info
// require it.
func SCPDDocument() scpd.Document {
	return scpd.Document{
		SpecVersion: scpd.SpecVersion{Major: 1, Minor: 0},
		Actions: []scpd.Action{
			{
				Name: "Play",
				Arguments: []scpd.Argument{
					{Name: "InstanceID", Direction: scpd.In, RelatedStateVariable: "A_ARG_TYPE_InstanceID"},
					{Name: "Speed", Direction: scpd.In, RelatedStateVariable: "TransportPlaySpeed"},
				},
			},
			{
				Name: "Pause",
				Arguments: []scpd.Argument{
					{Name: "InstanceID", Direction: scpd.In, RelatedStateVariable: "A_ARG_TYPE_InstanceID"},
				},
			},
			{
				Name: "Seek",
				Arguments: []scpd.Argument{
					{Name: "InstanceID", Direction: scpd.In, RelatedStateVariable: "A_ARG_TYPE_InstanceID"},
					{Name: "Unit", Direction: scpd.In, RelatedStateVariable: "A_ARG_TYPE_SeekMode"},
					{Name: "Target", Direction: scpd.In, RelatedStateVariable: "A_ARG_TYPE_SeekTarget"},
				},
			},
			{
				Name: "GetPositionInfo",
				Arguments: []scpd.Argument{
					{Name: "InstanceID", Direction: scpd.In, RelatedStateVariable: "A_ARG_TYPE_InstanceID"},
					{Name: "Track", Direction: scpd.Out, RelatedStateVariable: "CurrentTrack"},
					{Name: "TrackDuration", Direction: scpd.Out, RelatedStateVariable: "CurrentTrackDuration"},
					{Name: "TrackURI", Direction: scpd.Out, RelatedStateVariable: "CurrentTrackURI"},
					{Name: "RelTime", Direction: scpd.Out, RelatedStateVariable: "RelativeTimePosition"},
					{Name: "AbsTime", Direction: scpd.Out, RelatedStateVariable: "AbsoluteTimePosition"},
				},
			},
		},
		Variables: []scpd.StateVariable{
			{Name: "A_ARG_TYPE_InstanceID", Type: scpd.Ui4},
			{Name: "TransportPlaySpeed", Type: scpd.String},
			{Name: "A_ARG_TYPE_SeekMode", Type: scpd.String},
			{Name: "A_ARG_TYPE_SeekTarget", Type: scpd.String},
			{Name: "CurrentTrack", Type: scpd.Ui4},
			{Name: "CurrentTrackDuration", Type: scpd.String},
			{Name: "CurrentTrackURI", Type: scpd.String},
			{Name: "RelativeTimePosition", Type: scpd.String},
			{Name: "AbsoluteTimePosition", Type: scpd.String},
		},
	}
}
