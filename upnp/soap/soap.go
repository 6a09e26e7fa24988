// Package soap builds and parses the SOAP envelopes UPnP control exchanges
// use (§4.10, §4.12, §4.13): `Envelope(encodingStyle=".../soap/encoding/")
// > Body > <action-element>...</action-element>`, with fault responses
// carrying the standard `s:Fault{faultcode, faultstring, detail>UPnPError}`
// shape. Grounded directly on original_source/upnp/src/action.rs's
// SoapMessage/ActionPayload/ActionResponse/ActionError, reworked around
// upnp/xmlutil's push/pop writer and pull-style reader instead of
// quick_xml.
package soap

import (
	"fmt"
	"io"
	"strings"

	"github.com/fenwick-labs/corelode/upnp/xmlutil"
)

// Namespace constants used on every envelope (§4.10).
const (
	EnvelopeNS    = "http://schemas.xmlsoap.org/soap/envelope/"
	EncodingStyle = "http://schemas.xmlsoap.org/soap/encoding/"
	controlNS     = "schemas-upnp-org:control-1-0"
)

// Argument is a single name/value pair inside an action call or response
// body.
type Argument struct {
	Name  string
	Value string
}

// Action is a decoded action element: either an incoming control request
// (Name is the bare action name, e.g. "Browse") or a decoded response
// (Name has already had its "Response" suffix stripped by
// DecodeActionResponse).
type Action struct {
	Name       string
	ServiceURN string
	Args       []Argument
}

// Arg returns the named argument's value.
func (a Action) Arg(name string) (string, bool) {
	for _, arg := range a.Args {
		if arg.Name == name {
			return arg.Value, true
		}
	}
	return "", false
}

// EncodeRequest writes a full SOAP envelope around a `u:<actionName>`
// element carrying args, the shape a control-point client POSTs to a
// service's control URL (§4.13).
func EncodeRequest(w io.Writer, serviceURN, actionName string, args []Argument) error {
	return encodeEnvelope(w, func(xw *xmlutil.Writer) error {
		return writeAction(xw, "u:"+actionName, serviceURN, args)
	})
}

// EncodeActionResponse writes a full SOAP envelope around a
// `u:<actionName>Response` element, the shape a ContentDirectory (or any
// other) service returns from a successful action call (§4.12).
func EncodeActionResponse(w io.Writer, serviceURN, actionName string, args []Argument) error {
	return encodeEnvelope(w, func(xw *xmlutil.Writer) error {
		return writeAction(xw, "u:"+actionName+"Response", serviceURN, args)
	})
}

func writeAction(xw *xmlutil.Writer, elementName, serviceURN string, args []Argument) error {
	if err := xw.Push(elementName, xmlutil.Attr{Name: "xmlns:u", Value: serviceURN}); err != nil {
		return err
	}
	for _, arg := range args {
		if err := xw.Element(arg.Name, arg.Value); err != nil {
			return err
		}
	}
	return xw.Pop()
}

func encodeEnvelope(w io.Writer, writeBody func(*xmlutil.Writer) error) error {
	xw := xmlutil.NewWriter(w)
	if err := xw.WriteDecl(); err != nil {
		return err
	}
	if err := xw.Push("Envelope",
		xmlutil.Attr{Name: "xmlns:s", Value: EnvelopeNS},
		xmlutil.Attr{Name: "s:encodingStyle", Value: EncodingStyle},
	); err != nil {
		return err
	}
	if err := xw.Push("s:Body"); err != nil {
		return err
	}
	if err := writeBody(xw); err != nil {
		return err
	}
	if err := xw.Pop(); err != nil { // s:Body
		return err
	}
	if err := xw.Pop(); err != nil { // Envelope
		return err
	}
	return xw.Flush()
}

// DecodeAction parses an incoming control POST body into an Action,
// the dispatch input a service's control endpoint needs (§4.12: "decodes
// a SOAP action envelope; dispatches on action_name").
func DecodeAction(r io.Reader) (Action, error) {
	xr := xmlutil.NewReader(r)
	if err := expectStart(xr, "Envelope"); err != nil {
		return Action{}, err
	}
	if err := expectStart(xr, "Body"); err != nil {
		return Action{}, err
	}
	start, err := xr.ReadToStart()
	if err != nil {
		return Action{}, err
	}
	urn, _ := start.Xmlns("u")

	var args []Argument
	for {
		child, err := xr.NextChild(start.Name)
		if err != nil {
			return Action{}, err
		}
		if child == nil {
			break
		}
		value, err := xr.ReadText(child.Name)
		if err != nil {
			return Action{}, err
		}
		args = append(args, Argument{Name: child.Name, Value: value})
	}
	return Action{Name: start.Name, ServiceURN: urn, Args: args}, nil
}

// DecodeActionResponse parses a control-point client's response body,
// stripping the action element's "Response" suffix (§4.13: "decodes the
// <ActionName>Response into typed out-args").
func DecodeActionResponse(r io.Reader) (Action, error) {
	act, err := DecodeAction(r)
	if err != nil {
		return Action{}, err
	}
	name, ok := strings.CutSuffix(act.Name, "Response")
	if !ok {
		return Action{}, fmt.Errorf("soap: action response element %q must end with Response", act.Name)
	}
	act.Name = name
	return act, nil
}

func expectStart(xr *xmlutil.Reader, name string) error {
	start, err := xr.ReadToStart()
	if err != nil {
		return err
	}
	if start.Name != name {
		return fmt.Errorf("soap: expected <%s>, got <%s>", name, start.Name)
	}
	return nil
}
