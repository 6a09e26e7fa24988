package gena

import (
	"strings"

	"github.com/fenwick-labs/corelode/upnp/xmlutil"
)

const propertySetNS = "urn:schemas-upnp-org:event-1-0"

// Property is one changed (or initial) state variable value carried in
// a NOTIFY body.
type Property struct {
	Name  string
	Value string
}

// EncodePropertySet renders props as a GENA `<e:propertyset>` body, one
// `<e:property>` wrapper per variable, mirroring the
// upnp/contentdirectory.Encode/upnp/soap.EncodeRequest convention of
// building small envelope documents on xmlutil.Writer rather than
// text/template.
func EncodePropertySet(props []Property) (string, error) {
	var sb strings.Builder
	w := xmlutil.NewWriter(&sb)
	if err := w.WriteDecl(); err != nil {
		return "", err
	}
	if err := w.Push("e:propertyset", xmlutil.Attr{Name: "xmlns:e", Value: propertySetNS}); err != nil {
		return "", err
	}
	for _, p := range props {
		if err := w.Push("e:property"); err != nil {
			return "", err
		}
		if err := w.Element(p.Name, p.Value); err != nil {
			return "", err
		}
		if err := w.Pop(); err != nil {
			return "", err
		}
	}
	if err := w.Pop(); err != nil {
		return "", err
	}
	if err := w.Flush(); err != nil {
		return "", err
	}
	return sb.String(), nil
}
