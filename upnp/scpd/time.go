package scpd

import "time"

// FormatDateTime and ParseDateTime round-trip the date/dateTime/
// dateTime.tz data types' canonical ISO 8601 string form (§4.10), the Go
// stdlib equivalent of service_variables.rs's time::OffsetDateTime plus
// time::format_description::well_known::Iso8601 — justified stdlib use,
// since no pack example or ecosystem library is dedicated to UPnP/ISO 8601
// date formatting beyond what time.RFC3339 already provides.
func FormatDateTime(t time.Time) string { return t.Format(time.RFC3339) }

func ParseDateTime(s string) (time.Time, error) { return time.Parse(time.RFC3339, s) }

// FormatDate renders only the date portion, for the plain "date" type.
func FormatDate(t time.Time) string { return t.Format("2006-01-02") }

func ParseDate(s string) (time.Time, error) { return time.Parse("2006-01-02", s) }
