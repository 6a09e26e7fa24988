package contentdirectory

import "github.com/fenwick-labs/corelode/upnp/scpd"

// SCPDDocument builds the ContentDirectory:1 service description served
// at GET /upnp/content_directory/scpd.xml (§4.12), declaring the
// "minimum set" of actions spec.md names plus the two read-only
// capability queries every ContentDirectory control point expects.
func SCPDDocument() scpd.Document {
	return scpd.Document{
		SpecVersion: scpd.UPnPV2,
		Actions: []scpd.Action{
			{
				Name: "Browse",
				Arguments: []scpd.Argument{
					{Name: "ObjectID", Direction: scpd.In, RelatedStateVariable: "A_ARG_TYPE_ObjectID"},
					{Name: "BrowseFlag", Direction: scpd.In, RelatedStateVariable: "A_ARG_TYPE_BrowseFlag"},
					{Name: "Filter", Direction: scpd.In, RelatedStateVariable: "A_ARG_TYPE_Filter"},
					{Name: "StartingIndex", Direction: scpd.In, RelatedStateVariable: "A_ARG_TYPE_Index"},
					{Name: "RequestedCount", Direction: scpd.In, RelatedStateVariable: "A_ARG_TYPE_Count"},
					{Name: "SortCriteria", Direction: scpd.In, RelatedStateVariable: "A_ARG_TYPE_SortCriteria"},
					{Name: "Result", Direction: scpd.Out, RelatedStateVariable: "A_ARG_TYPE_Result"},
					{Name: "NumberReturned", Direction: scpd.Out, RelatedStateVariable: "A_ARG_TYPE_Count"},
					{Name: "TotalMatches", Direction: scpd.Out, RelatedStateVariable: "A_ARG_TYPE_Count"},
					{Name: "UpdateID", Direction: scpd.Out, RelatedStateVariable: "A_ARG_TYPE_UpdateID"},
				},
			},
			{
				Name: "GetSearchCapabilities",
				Arguments: []scpd.Argument{
					{Name: "SearchCaps", Direction: scpd.Out, RelatedStateVariable: "SearchCapabilities"},
				},
			},
			{
				Name: "GetSortCapabilities",
				Arguments: []scpd.Argument{
					{Name: "SortCaps", Direction: scpd.Out, RelatedStateVariable: "SortCapabilities"},
				},
			},
			{
				Name: "GetSystemUpdateID",
				Arguments: []scpd.Argument{
					{Name: "Id", Direction: scpd.Out, RelatedStateVariable: "SystemUpdateID"},
				},
			},
		},
		Variables: []scpd.StateVariable{
			{Name: "A_ARG_TYPE_ObjectID", Type: scpd.String},
			{Name: "A_ARG_TYPE_Result", Type: scpd.String},
			{Name: "A_ARG_TYPE_BrowseFlag", Type: scpd.String,
				AllowedValues: []string{"BrowseMetadata", "BrowseDirectChildren"}},
			{Name: "A_ARG_TYPE_Filter", Type: scpd.String},
			{Name: "A_ARG_TYPE_SortCriteria", Type: scpd.String},
			{Name: "A_ARG_TYPE_Index", Type: scpd.Ui4},
			{Name: "A_ARG_TYPE_Count", Type: scpd.Ui4},
			{Name: "A_ARG_TYPE_UpdateID", Type: scpd.Ui4},
			{Name: "SearchCapabilities", Type: scpd.String},
			{Name: "SortCapabilities", Type: scpd.String},
			{Name: "SystemUpdateID", Type: scpd.Ui4, SendEvents: true},
		},
	}
}
