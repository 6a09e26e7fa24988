package gena

import (
	"strings"
	"testing"
)

func TestEncodePropertySet(t *testing.T) {
	xml, err := EncodePropertySet([]Property{
		{Name: "SystemUpdateID", Value: "3"},
		{Name: "ContainerUpdateIDs", Value: ""},
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`<e:propertyset xmlns:e="` + propertySetNS + `">`,
		`<e:property><SystemUpdateID>3</SystemUpdateID></e:property>`,
		`<e:property><ContainerUpdateIDs></ContainerUpdateIDs></e:property>`,
	} {
		if !strings.Contains(xml, want) {
			t.Errorf("output missing %q\nfull output:\n%s", want, xml)
		}
	}
}

func TestEncodePropertySetEmpty(t *testing.T) {
	xml, err := EncodePropertySet(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(xml, "<e:propertyset") {
		t.Errorf("expected empty propertyset wrapper, got %q", xml)
	}
}
