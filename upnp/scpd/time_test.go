package scpd

import (
	"testing"
	"time"
)

func TestDateTimeRoundTrip(t *testing.T) {
	in := time.Date(2024, 3, 15, 13, 45, 0, 0, time.UTC)
	s := FormatDateTime(in)
	out, err := ParseDateTime(s)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Equal(in) {
		t.Errorf("round trip = %v, want %v", out, in)
	}
}

func TestDateRoundTrip(t *testing.T) {
	in := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	s := FormatDate(in)
	if s != "2024-03-15" {
		t.Errorf("FormatDate = %q, want %q", s, "2024-03-15")
	}
	out, err := ParseDate(s)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Equal(in) {
		t.Errorf("round trip = %v, want %v", out, in)
	}
}
