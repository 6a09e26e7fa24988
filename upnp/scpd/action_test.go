package scpd

import (
	"bytes"
	"testing"

	"github.com/fenwick-labs/corelode/upnp/xmlutil"
)

func TestArgumentDirectionRoundTrip(t *testing.T) {
	for _, d := range []ArgumentDirection{In, Out} {
		parsed, err := ParseArgumentDirection(d.String())
		if err != nil {
			t.Fatal(err)
		}
		if parsed != d {
			t.Errorf("round trip = %v, want %v", parsed, d)
		}
	}
	if _, err := ParseArgumentDirection("sideways"); err == nil {
		t.Fatal("expected error for unrecognized direction")
	}
}

func TestActionRoundTrip(t *testing.T) {
	act := Action{
		Name: "SetAVTransportURI",
		Arguments: []Argument{
			{Name: "InstanceID", Direction: In, RelatedStateVariable: "A_ARG_TYPE_InstanceID"},
			{Name: "CurrentURI", Direction: In, RelatedStateVariable: "AVTransportURI"},
			{Name: "CurrentURIMetaData", Direction: In, RelatedStateVariable: "AVTransportURIMetaData"},
		},
	}

	var buf bytes.Buffer
	xw := xmlutil.NewWriter(&buf)
	if err := act.writeXML(xw); err != nil {
		t.Fatal(err)
	}
	if err := xw.Flush(); err != nil {
		t.Fatal(err)
	}

	xr := xmlutil.NewReader(&buf)
	start, err := xr.ReadToStart()
	if err != nil {
		t.Fatal(err)
	}
	if start.Name != "action" {
		t.Fatalf("got root element %q, want action", start.Name)
	}
	got, err := readAction(xr)
	if err != nil {
		t.Fatal(err)
	}

	if got.Name != act.Name {
		t.Errorf("Name = %q, want %q", got.Name, act.Name)
	}
	if len(got.Arguments) != len(act.Arguments) {
		t.Fatalf("Arguments = %+v, want %+v", got.Arguments, act.Arguments)
	}
	for i, arg := range act.Arguments {
		if got.Arguments[i] != arg {
			t.Errorf("Arguments[%d] = %+v, want %+v", i, got.Arguments[i], arg)
		}
	}
}

func TestActionInOutArgsPreserveOrder(t *testing.T) {
	act := Action{
		Name: "GetPositionInfo",
		Arguments: []Argument{
			{Name: "InstanceID", Direction: In},
			{Name: "Track", Direction: Out},
			{Name: "TrackDuration", Direction: Out},
			{Name: "RelTime", Direction: Out},
		},
	}
	in := act.InArgs()
	if len(in) != 1 || in[0].Name != "InstanceID" {
		t.Errorf("InArgs = %+v", in)
	}
	out := act.OutArgs()
	wantOut := []string{"Track", "TrackDuration", "RelTime"}
	if len(out) != len(wantOut) {
		t.Fatalf("OutArgs = %+v", out)
	}
	for i, name := range wantOut {
		if out[i].Name != name {
			t.Errorf("OutArgs[%d].Name = %q, want %q", i, out[i].Name, name)
		}
	}
}

func TestActionWithNoArguments(t *testing.T) {
	act := Action{Name: "Stop"}

	var buf bytes.Buffer
	xw := xmlutil.NewWriter(&buf)
	if err := act.writeXML(xw); err != nil {
		t.Fatal(err)
	}
	if err := xw.Flush(); err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(buf.Bytes(), []byte("argumentList")) {
		t.Errorf("unexpected argumentList in output: %s", buf.String())
	}

	xr := xmlutil.NewReader(&buf)
	if _, err := xr.ReadToStart(); err != nil {
		t.Fatal(err)
	}
	got, err := readAction(xr)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Stop" || len(got.Arguments) != 0 {
		t.Errorf("got %+v, want {Stop []}", got)
	}
}
