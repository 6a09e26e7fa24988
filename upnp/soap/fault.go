package soap

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fenwick-labs/corelode/upnp/xmlutil"
)

// ErrorCode is the standard UPnP action-error code space (§4.12:
// "401 InvalidAction, 402 InvalidArguments, 501 ActionFailed, 600
// ArgumentInvalid, ... plus service-specific codes").
type ErrorCode int

// Standard codes every service shares.
const (
	ErrInvalidAction                ErrorCode = 401
	ErrInvalidArguments             ErrorCode = 402
	ErrActionFailed                 ErrorCode = 501
	ErrArgumentInvalid              ErrorCode = 600
	ErrArgumentValueOutOfRange      ErrorCode = 601
	ErrOptionalActionNotImplemented ErrorCode = 602
	ErrOutOfMemory                  ErrorCode = 603
	ErrHumanInterventionRequired    ErrorCode = 604
	ErrStringArgumentTooLong        ErrorCode = 605
)

// IGD WANIPConnection:1-specific codes (§4.12).
const (
	ErrConflictInMappingEntry       ErrorCode = 718
	ErrOnlyPermanentLeasesSupported ErrorCode = 725
)

// ContentDirectory:1-specific codes (§4.12: "plus service-specific codes").
const (
	ErrNoSuchObject ErrorCode = 701
)

// Fault is a UPnP action error, encoded on the wire as a SOAP
// `s:Fault{faultcode=s:Client, faultstring=UPnPError, detail>UPnPError>
// errorCode,errorDescription}` (§4.10), equivalent to the original's
// ActionError.
type Fault struct {
	Code        ErrorCode
	Description string
}

// Error implements error.
func (f *Fault) Error() string {
	if f.Description != "" {
		return fmt.Sprintf("soap: fault %d: %s", f.Code, f.Description)
	}
	return fmt.Sprintf("soap: fault %d", f.Code)
}

// EncodeFault writes the full SOAP envelope carrying f as a fault
// response, the body an action endpoint returns instead of
// EncodeActionResponse when the action fails (§4.12).
func EncodeFault(w io.Writer, f *Fault) error {
	return encodeEnvelope(w, func(xw *xmlutil.Writer) error {
		if err := xw.Push("s:Fault"); err != nil {
			return err
		}
		if err := xw.Element("faultcode", "s:Client"); err != nil {
			return err
		}
		if err := xw.Element("faultstring", "UPnPError"); err != nil {
			return err
		}
		if err := xw.Push("detail"); err != nil {
			return err
		}
		if err := xw.Push("UPnPError", xmlutil.Attr{Name: "xmlns", Value: controlNS}); err != nil {
			return err
		}
		if err := xw.Element("errorCode", strconv.Itoa(int(f.Code))); err != nil {
			return err
		}
		if f.Description != "" {
			if err := xw.Element("errorDescription", f.Description); err != nil {
				return err
			}
		}
		if err := xw.Pop(); err != nil { // UPnPError
			return err
		}
		if err := xw.Pop(); err != nil { // detail
			return err
		}
		return xw.Pop() // s:Fault
	})
}

// DecodeFault parses a SOAP fault body, the shape an IGD/AVTransport
// client (§4.13) gets back instead of an action response when a remote
// call fails.
func DecodeFault(r io.Reader) (*Fault, error) {
	xr := xmlutil.NewReader(r)
	if err := expectStart(xr, "Envelope"); err != nil {
		return nil, err
	}
	if err := expectStart(xr, "Body"); err != nil {
		return nil, err
	}
	if err := expectStart(xr, "Fault"); err != nil {
		return nil, err
	}

	f := &Fault{}
	for {
		child, err := xr.NextChild("Fault")
		if err != nil {
			return nil, err
		}
		if child == nil {
			break
		}
		switch child.Name {
		case "faultcode", "faultstring":
			if _, err := xr.ReadText(child.Name); err != nil {
				return nil, err
			}
		case "detail":
			if err := decodeFaultDetail(xr, f); err != nil {
				return nil, err
			}
		default:
			if err := xr.ReadToEnd(child.Name); err != nil {
				return nil, err
			}
		}
	}
	return f, nil
}

func decodeFaultDetail(xr *xmlutil.Reader, f *Fault) error {
	for {
		child, err := xr.NextChild("detail")
		if err != nil {
			return err
		}
		if child == nil {
			return nil
		}
		if child.Name != "UPnPError" {
			if err := xr.ReadToEnd(child.Name); err != nil {
				return err
			}
			continue
		}
		for {
			field, err := xr.NextChild("UPnPError")
			if err != nil {
				return err
			}
			if field == nil {
				break
			}
			text, err := xr.ReadText(field.Name)
			if err != nil {
				return err
			}
			switch field.Name {
			case "errorCode":
				code, err := strconv.Atoi(text)
				if err != nil {
					return fmt.Errorf("soap: fault errorCode %q: %w", text, err)
				}
				f.Code = ErrorCode(code)
			case "errorDescription":
				f.Description = text
			}
		}
	}
}
