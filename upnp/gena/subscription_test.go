package gena

import (
	"net/url"
	"testing"
	"time"

	"github.com/andres-erbsen/clock"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func TestSubscribeAssignsSIDAndExpiry(t *testing.T) {
	clk := clock.NewMock()
	m := NewManager(clk)

	sub := m.Subscribe(mustURL(t, "http://subscriber/notify"), time.Hour)
	if sub.SID == "" || sub.SID[:5] != "uuid:" {
		t.Fatalf("SID = %q, want uuid:... prefix", sub.SID)
	}
	if !sub.Expires.Equal(clk.Now().Add(time.Hour)) {
		t.Errorf("Expires = %v, want %v", sub.Expires, clk.Now().Add(time.Hour))
	}
}

func TestSubscribeClampsShortTimeout(t *testing.T) {
	clk := clock.NewMock()
	m := NewManager(clk)

	sub := m.Subscribe(mustURL(t, "http://subscriber/notify"), time.Second)
	if !sub.Expires.Equal(clk.Now().Add(DefaultTimeout)) {
		t.Errorf("Expires = %v, want clamp to DefaultTimeout", sub.Expires)
	}
}

func TestRenewExtendsExpiry(t *testing.T) {
	clk := clock.NewMock()
	m := NewManager(clk)
	sub := m.Subscribe(mustURL(t, "http://subscriber/notify"), time.Hour)

	clk.Add(30 * time.Minute)
	renewed, err := m.Renew(sub.SID, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if !renewed.Expires.Equal(clk.Now().Add(time.Hour)) {
		t.Errorf("Expires = %v, want %v", renewed.Expires, clk.Now().Add(time.Hour))
	}
}

func TestRenewUnknownSIDFails(t *testing.T) {
	m := NewManager(clock.NewMock())
	if _, err := m.Renew("uuid:bogus", time.Hour); err == nil {
		t.Fatal("expected error for unknown SID")
	}
}

func TestUnsubscribeRemoves(t *testing.T) {
	clk := clock.NewMock()
	m := NewManager(clk)
	sub := m.Subscribe(mustURL(t, "http://subscriber/notify"), time.Hour)

	if err := m.Unsubscribe(sub.SID); err != nil {
		t.Fatal(err)
	}
	if err := m.Unsubscribe(sub.SID); err == nil {
		t.Fatal("expected error unsubscribing twice")
	}
}

func TestActiveIncrementsSeqAndExpires(t *testing.T) {
	clk := clock.NewMock()
	m := NewManager(clk)
	sub := m.Subscribe(mustURL(t, "http://subscriber/notify"), time.Hour)

	active := m.Active()
	if len(active) != 1 || active[0].Seq != 1 {
		t.Fatalf("active = %+v, want one subscription at Seq 1", active)
	}

	clk.Add(2 * time.Hour)
	if active := m.Active(); len(active) != 0 {
		t.Fatalf("active after expiry = %+v, want none", active)
	}
	if err := m.Unsubscribe(sub.SID); err == nil {
		t.Fatal("expected expired subscription to have been pruned by Active")
	}
}

func TestFormatAndParseTimeoutHeader(t *testing.T) {
	got := FormatTimeoutHeader(1800 * time.Second)
	if got != "Second-1800" {
		t.Errorf("FormatTimeoutHeader = %q", got)
	}
	d, ok := ParseTimeoutHeader("Second-1800")
	if !ok || d != 1800*time.Second {
		t.Errorf("ParseTimeoutHeader = %v, %v", d, ok)
	}
	if _, ok := ParseTimeoutHeader("Second-infinite"); ok {
		t.Error("expected Second-infinite to be rejected")
	}
	if _, ok := ParseTimeoutHeader("garbage"); ok {
		t.Error("expected garbage to be rejected")
	}
}
