package scpd

import (
	"fmt"

	"github.com/fenwick-labs/corelode/upnp/xmlutil"
)

// ValueRange is a stateVariable's allowedValueRange, grounded on
// service_variables.rs's Range/IntoXml.
type ValueRange struct {
	Min  int
	Max  int
	Step *int
}

func (r ValueRange) writeXML(w *xmlutil.Writer) error {
	if err := w.Push("allowedValueRange"); err != nil {
		return err
	}
	if err := w.Element("minimum", FormatInt(int64(r.Min))); err != nil {
		return err
	}
	if err := w.Element("maximum", FormatInt(int64(r.Max))); err != nil {
		return err
	}
	if r.Step != nil {
		if err := w.Element("step", FormatInt(int64(*r.Step))); err != nil {
			return err
		}
	}
	return w.Pop()
}

// StateVariable is one serviceStateTable entry, grounded on
// service_variables.rs's StateVariableDescriptor.
type StateVariable struct {
	Name          string
	Type          DataType
	SendEvents    bool
	Range         *ValueRange
	AllowedValues []string
	Default       string
}

// WriteXML emits this variable's <stateVariable> element, mirroring
// StateVariableDescriptor::write_xml field-for-field (name, dataType,
// allowedValueList, allowedValueRange, defaultValue, in that order).
func (v StateVariable) WriteXML(w *xmlutil.Writer) error {
	if err := w.Push("stateVariable", xmlutil.Attr{Name: "sendEvents", Value: FormatBool(v.SendEvents)}); err != nil {
		return err
	}
	if err := w.Element("name", v.Name); err != nil {
		return err
	}
	if err := w.Element("dataType", v.Type.String()); err != nil {
		return err
	}
	if len(v.AllowedValues) > 0 {
		if err := w.Push("allowedValueList"); err != nil {
			return err
		}
		for _, val := range v.AllowedValues {
			if err := w.Element("allowedValue", val); err != nil {
				return err
			}
		}
		if err := w.Pop(); err != nil {
			return err
		}
	}
	if v.Range != nil {
		if err := v.Range.writeXML(w); err != nil {
			return err
		}
	}
	if v.Default != "" {
		if err := w.Element("defaultValue", v.Default); err != nil {
			return err
		}
	}
	return w.Pop()
}

// ReadStateVariable parses a <stateVariable> element whose start tag
// (carrying the sendEvents attribute) has already been read, mirroring
// templates/service_description.rs's ScpdVariable::read_xml.
func ReadStateVariable(r *xmlutil.Reader, start xmlutil.Start) (StateVariable, error) {
	sendEvents, _ := start.Attr("sendEvents")
	v := StateVariable{SendEvents: sendEvents == "yes" || sendEvents == "1"}

	var haveName, haveType bool
	for {
		child, err := r.NextChild("stateVariable")
		if err != nil {
			return StateVariable{}, err
		}
		if child == nil {
			break
		}
		switch child.Name {
		case "name":
			text, err := r.ReadText("name")
			if err != nil {
				return StateVariable{}, err
			}
			v.Name = text
			haveName = true
		case "dataType":
			text, err := r.ReadText("dataType")
			if err != nil {
				return StateVariable{}, err
			}
			dt, err := ParseDataType(text)
			if err != nil {
				return StateVariable{}, err
			}
			v.Type = dt
			haveType = true
		case "defaultValue":
			text, err := r.ReadText("defaultValue")
			if err != nil {
				return StateVariable{}, err
			}
			v.Default = text
		case "allowedValueList":
			values, err := readAllowedValueList(r)
			if err != nil {
				return StateVariable{}, err
			}
			v.AllowedValues = values
		default:
			if err := r.ReadToEnd(child.Name); err != nil {
				return StateVariable{}, err
			}
		}
	}
	if !haveName {
		return StateVariable{}, fmt.Errorf("scpd: stateVariable missing name")
	}
	if !haveType {
		return StateVariable{}, fmt.Errorf("scpd: stateVariable missing dataType")
	}
	return v, nil
}

func readAllowedValueList(r *xmlutil.Reader) ([]string, error) {
	var values []string
	for {
		child, err := r.NextChild("allowedValueList")
		if err != nil {
			return nil, err
		}
		if child == nil {
			return values, nil
		}
		text, err := r.ReadText(child.Name)
		if err != nil {
			return nil, err
		}
		values = append(values, text)
	}
}
