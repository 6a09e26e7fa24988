package scpd

import "testing"

func TestDataTypeRoundTrip(t *testing.T) {
	types := []DataType{
		Ui1, Ui2, Ui4, Ui8, I1, I2, I4, I8, Int, R4, R8, Number, Float,
		Fixed14_4, Char, String, Date, DateTime, DateTimeTz, Time, TimeTz,
		Boolean, BinBase64, BinHex, URI, UUID,
	}
	for _, dt := range types {
		s := dt.String()
		parsed, err := ParseDataType(s)
		if err != nil {
			t.Fatalf("ParseDataType(%q): %v", s, err)
		}
		if parsed != dt {
			t.Errorf("ParseDataType(%q) = %v, want %v", s, parsed, dt)
		}
	}
}

func TestParseDataTypeUnknown(t *testing.T) {
	if _, err := ParseDataType("not-a-type"); err == nil {
		t.Fatal("expected error for unknown data type")
	}
}

func TestParseBool(t *testing.T) {
	cases := map[string]bool{
		"1": true, "0": false, "true": true, "false": false, "yes": true, "no": false,
	}
	for in, want := range cases {
		got, err := ParseBool(in)
		if err != nil {
			t.Fatalf("ParseBool(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseBool(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseBool("maybe"); err == nil {
		t.Fatal("expected error for unrecognized bool literal")
	}
}

func TestFormatBool(t *testing.T) {
	if FormatBool(true) != "1" {
		t.Errorf("FormatBool(true) = %q, want %q", FormatBool(true), "1")
	}
	if FormatBool(false) != "0" {
		t.Errorf("FormatBool(false) = %q, want %q", FormatBool(false), "0")
	}
}

func TestFormatParseInt(t *testing.T) {
	n, err := ParseInt(FormatInt(-42))
	if err != nil {
		t.Fatal(err)
	}
	if n != -42 {
		t.Errorf("round trip = %d, want -42", n)
	}
}
