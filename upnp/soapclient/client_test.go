package soapclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fenwick-labs/corelode/upnp/scpd"
	"github.com/fenwick-labs/corelode/upnp/soap"
)

func testDoc() scpd.Document {
	return scpd.Document{
		Actions: []scpd.Action{
			{
				Name: "GetExternalIPAddress",
				Arguments: []scpd.Argument{
					{Name: "NewExternalIPAddress", Direction: scpd.Out},
				},
			},
			{
				Name: "AddPortMapping",
				Arguments: []scpd.Argument{
					{Name: "NewRemoteHost", Direction: scpd.In},
					{Name: "NewExternalPort", Direction: scpd.In},
					{Name: "NewProtocol", Direction: scpd.In},
				},
			},
		},
	}
}

func TestCallSendsRequestAndDecodesResponse(t *testing.T) {
	const urn = "urn:schemas-upnp-org:service:WANIPConnection:1"
	var gotSOAPAction string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSOAPAction = r.Header.Get("SOAPAction")
		action, err := soap.DecodeAction(r.Body)
		if err != nil {
			t.Fatal(err)
		}
		if action.Name != "GetExternalIPAddress" {
			t.Fatalf("action = %q", action.Name)
		}
		w.Header().Set("Content-Type", "text/xml")
		if err := soap.EncodeActionResponse(w, urn, "GetExternalIPAddress", []soap.Argument{
			{Name: "NewExternalIPAddress", Value: "203.0.113.1"},
		}); err != nil {
			t.Fatal(err)
		}
	}))
	defer ts.Close()

	c := New(ts.Client(), testDoc(), ts.URL, urn)
	args, err := c.Call(context.Background(), "GetExternalIPAddress", nil)
	if err != nil {
		t.Fatal(err)
	}
	if gotSOAPAction != `"`+urn+`#GetExternalIPAddress"` {
		t.Errorf("SOAPAction = %q", gotSOAPAction)
	}
	if len(args) != 1 || args[0].Value != "203.0.113.1" {
		t.Fatalf("args = %+v", args)
	}
}

func TestCallUnsupportedAction(t *testing.T) {
	c := New(nil, testDoc(), "http://unused", "urn:x")
	if _, err := c.Call(context.Background(), "Bogus", nil); err == nil {
		t.Fatal("expected error for unsupported action")
	}
}

func TestCallDecodesFaultOnError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		if err := soap.EncodeFault(w, &soap.Fault{Code: soap.ErrActionFailed, Description: "nope"}); err != nil {
			t.Fatal(err)
		}
	}))
	defer ts.Close()

	c := New(ts.Client(), testDoc(), ts.URL, "urn:x")
	_, err := c.Call(context.Background(), "GetExternalIPAddress", nil)
	var fault *soap.Fault
	if err == nil {
		t.Fatal("expected error")
	}
	if f, ok := err.(*soap.Fault); ok {
		fault = f
	}
	if fault == nil || fault.Code != soap.ErrActionFailed {
		t.Fatalf("err = %v, want *soap.Fault ErrActionFailed", err)
	}
}

func TestCallStrictValidatesArgumentOrder(t *testing.T) {
	c := New(nil, testDoc(), "http://unused", "urn:x")
	_, err := c.CallStrict(context.Background(), "AddPortMapping", []soap.Argument{
		{Name: "NewExternalPort", Value: "80"},
		{Name: "NewRemoteHost", Value: ""},
		{Name: "NewProtocol", Value: "TCP"},
	})
	if err == nil {
		t.Fatal("expected local error for out-of-order arguments, no network call should have happened")
	}
}

func TestCallStrictValidatesArgumentCount(t *testing.T) {
	c := New(nil, testDoc(), "http://unused", "urn:x")
	_, err := c.CallStrict(context.Background(), "AddPortMapping", []soap.Argument{
		{Name: "NewRemoteHost", Value: ""},
	})
	if err == nil {
		t.Fatal("expected local error for wrong argument count")
	}
}

func TestActionLookup(t *testing.T) {
	c := New(nil, testDoc(), "http://unused", "urn:x")
	if _, ok := c.Action("AddPortMapping"); !ok {
		t.Error("expected AddPortMapping to be declared")
	}
	if _, ok := c.Action("Bogus"); ok {
		t.Error("expected Bogus to be undeclared")
	}
}
