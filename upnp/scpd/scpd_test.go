package scpd

import (
	"bytes"
	"testing"
)

func TestDocumentRoundTrip(t *testing.T) {
	doc := Document{
		SpecVersion: UPnPV2,
		Actions: []Action{
			{
				Name: "Browse",
				Arguments: []Argument{
					{Name: "ObjectID", Direction: In, RelatedStateVariable: "A_ARG_TYPE_ObjectID"},
					{Name: "BrowseFlag", Direction: In, RelatedStateVariable: "A_ARG_TYPE_BrowseFlag"},
					{Name: "Result", Direction: Out, RelatedStateVariable: "A_ARG_TYPE_Result"},
					{Name: "NumberReturned", Direction: Out, RelatedStateVariable: "A_ARG_TYPE_Count"},
				},
			},
			{Name: "GetSearchCapabilities", Arguments: []Argument{
				{Name: "SearchCaps", Direction: Out, RelatedStateVariable: "SearchCapabilities"},
			}},
		},
		Variables: []StateVariable{
			{Name: "A_ARG_TYPE_ObjectID", Type: String, SendEvents: false},
			{Name: "A_ARG_TYPE_BrowseFlag", Type: String, SendEvents: false,
				AllowedValues: []string{"BrowseMetadata", "BrowseDirectChildren"}},
			{Name: "A_ARG_TYPE_Result", Type: String, SendEvents: false},
			{Name: "A_ARG_TYPE_Count", Type: Ui4, SendEvents: false},
			{Name: "SearchCapabilities", Type: String, SendEvents: false},
		},
	}

	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		t.Fatal(err)
	}

	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v\nxml:\n%s", err, buf.String())
	}

	if got.SpecVersion != doc.SpecVersion {
		t.Errorf("SpecVersion = %+v, want %+v", got.SpecVersion, doc.SpecVersion)
	}
	if len(got.Actions) != len(doc.Actions) {
		t.Fatalf("Actions = %+v", got.Actions)
	}
	if got.Actions[0].Name != "Browse" || len(got.Actions[0].Arguments) != 4 {
		t.Errorf("Actions[0] = %+v", got.Actions[0])
	}
	if len(got.Actions[0].InArgs()) != 2 || len(got.Actions[0].OutArgs()) != 2 {
		t.Errorf("Browse in/out split wrong: %+v", got.Actions[0])
	}
	if len(got.Variables) != len(doc.Variables) {
		t.Fatalf("Variables = %+v", got.Variables)
	}
	if got.Variables[1].AllowedValues == nil || len(got.Variables[1].AllowedValues) != 2 {
		t.Errorf("Variables[1].AllowedValues = %+v", got.Variables[1].AllowedValues)
	}
}

func TestDocumentWithNoActionsOrVariables(t *testing.T) {
	doc := Document{SpecVersion: UPnPV2}

	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		t.Fatal(err)
	}
	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v\nxml:\n%s", err, buf.String())
	}
	if len(got.Actions) != 0 || len(got.Variables) != 0 {
		t.Errorf("got %+v, want empty actions/variables", got)
	}
}
