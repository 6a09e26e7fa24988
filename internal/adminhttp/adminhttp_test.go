package adminhttp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fenwick-labs/corelode/torrent/download"
	"github.com/fenwick-labs/corelode/upnp/igdclient"
	"github.com/fenwick-labs/corelode/upnp/igdlease"
)

type fakeTorrents struct {
	statuses []TorrentStatus
}

func (f fakeTorrents) TorrentStatuses() []TorrentStatus { return f.statuses }

type fakeLeases struct {
	leases []igdlease.Lease
}

func (f fakeLeases) Leases() []igdlease.Lease { return f.leases }

func TestHandleTorrents(t *testing.T) {
	srv := NewServer(fakeTorrents{statuses: []TorrentStatus{
		{Name: "ep1.mkv", InfoHash: "abc123", Progress: download.ProgressSnapshot{PiecesTotal: 100, PiecesComplete: 40}},
	}}, nil)
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/torrents")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var got []TorrentStatus
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Name != "ep1.mkv" || got[0].Progress.PiecesComplete != 40 {
		t.Fatalf("got = %+v", got)
	}
}

func TestHandleLeases(t *testing.T) {
	now := time.Now()
	srv := NewServer(nil, fakeLeases{leases: []igdlease.Lease{
		{
			Request:     igdlease.Request{Protocol: igdclient.TCP, ExternalPort: 6881},
			GrantedPort: 6881,
			Expires:     now,
		},
	}})
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/leases")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var got []igdlease.Lease
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].GrantedPort != 6881 {
		t.Fatalf("got = %+v", got)
	}
}

func TestNilProvidersReturnEmptyLists(t *testing.T) {
	srv := NewServer(nil, nil)
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	for _, path := range []string{"/torrents", "/leases"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		var got []json.RawMessage
		if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		if len(got) != 0 {
			t.Fatalf("%s: got = %v, want empty", path, got)
		}
		resp.Body.Close()
	}
}
