package avtransport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fenwick-labs/corelode/upnp/soap"
	"github.com/fenwick-labs/corelode/upnp/soapclient"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(handler)
	soapClient := soapclient.New(ts.Client(), SCPDDocument(), ts.URL, ServiceType)
	return New(soapClient), ts
}

func TestPlay(t *testing.T) {
	var gotArgs []soap.Argument
	c, ts := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		action, err := soap.DecodeAction(r.Body)
		if err != nil {
			t.Fatal(err)
		}
		gotArgs = action.Args
		if err := soap.EncodeActionResponse(w, ServiceType, "Play", nil); err != nil {
			t.Fatal(err)
		}
	})
	defer ts.Close()

	if err := c.Play(context.Background(), 0, "1"); err != nil {
		t.Fatal(err)
	}
	if len(gotArgs) != 2 || gotArgs[0].Value != "0" || gotArgs[1].Value != "1" {
		t.Fatalf("args = %+v", gotArgs)
	}
}

func TestPause(t *testing.T) {
	c, ts := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := soap.EncodeActionResponse(w, ServiceType, "Pause", nil); err != nil {
			t.Fatal(err)
		}
	})
	defer ts.Close()

	if err := c.Pause(context.Background(), 0); err != nil {
		t.Fatal(err)
	}
}

func TestSeek(t *testing.T) {
	var gotArgs []soap.Argument
	c, ts := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		action, err := soap.DecodeAction(r.Body)
		if err != nil {
			t.Fatal(err)
		}
		gotArgs = action.Args
		if err := soap.EncodeActionResponse(w, ServiceType, "Seek", nil); err != nil {
			t.Fatal(err)
		}
	})
	defer ts.Close()

	if err := c.Seek(context.Background(), 0, SeekAbsTime, "0:05:00"); err != nil {
		t.Fatal(err)
	}
	if len(gotArgs) != 3 || gotArgs[1].Value != "ABS_TIME" || gotArgs[2].Value != "0:05:00" {
		t.Fatalf("args = %+v", gotArgs)
	}
}

func TestGetPositionInfo(t *testing.T) {
	c, ts := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := soap.EncodeActionResponse(w, ServiceType, "GetPositionInfo", []soap.Argument{
			{Name: "Track", Value: "1"},
			{Name: "TrackDuration", Value: "0:45:00"},
			{Name: "TrackURI", Value: "http://host/ep.mkv"},
			{Name: "RelTime", Value: "0:05:00"},
			{Name: "AbsTime", Value: "0:05:00"},
		}); err != nil {
			t.Fatal(err)
		}
	})
	defer ts.Close()

	info, err := c.GetPositionInfo(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if info.Track != 1 || info.TrackURI != "http://host/ep.mkv" {
		t.Fatalf("info = %+v", info)
	}
}
