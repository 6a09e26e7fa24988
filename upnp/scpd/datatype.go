// Package scpd models UPnP service control protocol descriptions
// (actions, arguments, state variables) and serializes/parses them as SCPD
// XML, plus the root device description that references them (§4.10,
// §4.12). Grounded on original_source/upnp/src/service_variables.rs
// (DataType, StateVariableDescriptor), templates/service_description.rs
// (ServiceDescription/Scpd, ScpdAction, ScpdActionArgument, ScpdVariable),
// action.rs (Argument, ArgumentDirection), and device_description.rs
// (DeviceDescription, Device, Service, UDN), reworked on top of
// upnp/xmlutil instead of quick_xml/serde.
package scpd

import (
	"fmt"
	"strconv"
)

// DataType is the UPnP state-variable type space (§4.10's data-type
// table), transcribed from service_variables.rs's DataType enum.
type DataType int

const (
	Ui1 DataType = iota
	Ui2
	Ui4
	Ui8
	I1
	I2
	I4
	I8
	Int
	R4
	R8
	Number
	Float
	Fixed14_4
	Char
	String
	Date
	DateTime
	DateTimeTz
	Time
	TimeTz
	Boolean
	BinBase64
	BinHex
	URI
	UUID
)

var dataTypeNames = map[DataType]string{
	Ui1: "ui1", Ui2: "ui2", Ui4: "ui4", Ui8: "ui8",
	I1: "i1", I2: "i2", I4: "i4", I8: "i8",
	Int: "int", R4: "r4", R8: "r8", Number: "number", Float: "float",
	Fixed14_4: "fixed.14.4", Char: "char", String: "string",
	Date: "date", DateTime: "dateTime", DateTimeTz: "dateTime.tz",
	Time: "time", TimeTz: "time.tz", Boolean: "boolean",
	BinBase64: "bin.base64", BinHex: "bin.hex", URI: "uri", UUID: "uuid",
}

func (d DataType) String() string {
	name, ok := dataTypeNames[d]
	if !ok {
		return "string"
	}
	return name
}

// ParseDataType parses one of the canonical UPnP data-type names.
func ParseDataType(s string) (DataType, error) {
	for dt, name := range dataTypeNames {
		if name == s {
			return dt, nil
		}
	}
	return 0, fmt.Errorf("scpd: unrecognized data type %q", s)
}

// FormatBool renders a boolean in its canonical UPnP wire form, "1" or
// "0" (§4.10: "booleans as 1/0").
func FormatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// ParseBool accepts every boolean spelling service_variables.rs's
// parse_bool does: "1"/"0", "true"/"false", "yes"/"no".
func ParseBool(s string) (bool, error) {
	switch s {
	case "1", "true", "yes":
		return true, nil
	case "0", "false", "no":
		return false, nil
	default:
		return false, fmt.Errorf("scpd: unrecognized boolean value %q", s)
	}
}

// FormatInt and ParseInt round-trip the ui1..i8/int integer data types'
// canonical decimal string form.
func FormatInt(v int64) string { return strconv.FormatInt(v, 10) }

func ParseInt(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) }
