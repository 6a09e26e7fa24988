package scpd

import (
	"fmt"
	"io"

	"github.com/fenwick-labs/corelode/upnp/xmlutil"
)

// SpecVersion is the UPnP spec version every description document and
// action response carries.
type SpecVersion struct {
	Major int
	Minor int
}

// UPnPV2 is the spec version this module implements against.
var UPnPV2 = SpecVersion{Major: 2, Minor: 0}

func (v SpecVersion) writeXML(w *xmlutil.Writer) error {
	if err := w.Push("specVersion"); err != nil {
		return err
	}
	if err := w.Element("major", FormatInt(int64(v.Major))); err != nil {
		return err
	}
	if err := w.Element("minor", FormatInt(int64(v.Minor))); err != nil {
		return err
	}
	return w.Pop()
}

func readSpecVersion(r *xmlutil.Reader) (SpecVersion, error) {
	start, err := r.ReadToStart()
	if err != nil {
		return SpecVersion{}, err
	}
	if start.Name != "specVersion" {
		return SpecVersion{}, fmt.Errorf("scpd: expected <specVersion>, got <%s>", start.Name)
	}
	var v SpecVersion
	for {
		child, err := r.NextChild("specVersion")
		if err != nil {
			return SpecVersion{}, err
		}
		if child == nil {
			return v, nil
		}
		text, err := r.ReadText(child.Name)
		if err != nil {
			return SpecVersion{}, err
		}
		n, err := ParseInt(text)
		if err != nil {
			return SpecVersion{}, err
		}
		switch child.Name {
		case "major":
			v.Major = int(n)
		case "minor":
			v.Minor = int(n)
		}
	}
}

// Document is a full SCPD document: a service's spec version, its
// declared actions, and its state variable table, served at
// /upnp/content_directory/scpd.xml (§4.12), grounded on
// templates/service_description.rs's ServiceDescription/Scpd.
type Document struct {
	SpecVersion SpecVersion
	Actions     []Action
	Variables   []StateVariable
}

// Encode writes the full <scpd> document, mirroring
// ServiceDescription::into_xml's element order: specVersion, actionList,
// serviceStateTable.
func Encode(w io.Writer, doc Document) error {
	xw := xmlutil.NewWriter(w)
	if err := xw.WriteDecl(); err != nil {
		return err
	}
	if err := xw.Push("scpd"); err != nil {
		return err
	}
	if err := doc.SpecVersion.writeXML(xw); err != nil {
		return err
	}
	if err := xw.Push("actionList"); err != nil {
		return err
	}
	for _, act := range doc.Actions {
		if err := act.writeXML(xw); err != nil {
			return err
		}
	}
	if err := xw.Pop(); err != nil {
		return err
	}
	if err := xw.Push("serviceStateTable"); err != nil {
		return err
	}
	for _, v := range doc.Variables {
		if err := v.WriteXML(xw); err != nil {
			return err
		}
	}
	if err := xw.Pop(); err != nil {
		return err
	}
	if err := xw.Pop(); err != nil { // scpd
		return err
	}
	return xw.Flush()
}

// Decode parses an <scpd> document, mirroring Scpd::read_xml's
// specVersion/actionList/serviceStateTable sequence.
func Decode(r io.Reader) (Document, error) {
	xr := xmlutil.NewReader(r)
	root, err := xr.ReadToStart()
	if err != nil {
		return Document{}, err
	}
	if root.Name != "scpd" {
		return Document{}, fmt.Errorf("scpd: expected <scpd>, got <%s>", root.Name)
	}
	specVersion, err := readSpecVersion(xr)
	if err != nil {
		return Document{}, err
	}

	actionListStart, err := xr.ReadToStart()
	if err != nil {
		return Document{}, err
	}
	if actionListStart.Name != "actionList" {
		return Document{}, fmt.Errorf("scpd: expected <actionList>, got <%s>", actionListStart.Name)
	}
	var actions []Action
	for {
		child, err := xr.NextChild("actionList")
		if err != nil {
			return Document{}, err
		}
		if child == nil {
			break
		}
		if child.Name != "action" {
			return Document{}, fmt.Errorf("scpd: expected <action>, got <%s>", child.Name)
		}
		act, err := readAction(xr)
		if err != nil {
			return Document{}, err
		}
		actions = append(actions, act)
	}

	varTableStart, err := xr.ReadToStart()
	if err != nil {
		return Document{}, err
	}
	if varTableStart.Name != "serviceStateTable" {
		return Document{}, fmt.Errorf("scpd: expected <serviceStateTable>, got <%s>", varTableStart.Name)
	}
	var variables []StateVariable
	for {
		child, err := xr.NextChild("serviceStateTable")
		if err != nil {
			return Document{}, err
		}
		if child == nil {
			break
		}
		if child.Name != "stateVariable" {
			return Document{}, fmt.Errorf("scpd: expected <stateVariable>, got <%s>", child.Name)
		}
		v, err := ReadStateVariable(xr, *child)
		if err != nil {
			return Document{}, err
		}
		variables = append(variables, v)
	}

	return Document{SpecVersion: specVersion, Actions: actions, Variables: variables}, nil
}
