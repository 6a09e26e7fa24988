package scpd

import (
	"fmt"

	"github.com/fenwick-labs/corelode/upnp/xmlutil"
)

// ArgumentDirection is an action argument's direction, grounded on
// action.rs's ArgumentDirection.
type ArgumentDirection int

const (
	In ArgumentDirection = iota
	Out
)

func (d ArgumentDirection) String() string {
	if d == Out {
		return "out"
	}
	return "in"
}

// ParseArgumentDirection parses a <direction> element's text.
func ParseArgumentDirection(s string) (ArgumentDirection, error) {
	switch s {
	case "in":
		return In, nil
	case "out":
		return Out, nil
	default:
		return 0, fmt.Errorf("scpd: unrecognized argument direction %q", s)
	}
}

// Argument is one <argument> entry in an action's <argumentList>,
// grounded on templates/service_description.rs's ScpdActionArgument.
type Argument struct {
	Name                 string
	Direction            ArgumentDirection
	RelatedStateVariable string
}

func (a Argument) writeXML(w *xmlutil.Writer) error {
	if err := w.Push("argument"); err != nil {
		return err
	}
	if err := w.Element("name", a.Name); err != nil {
		return err
	}
	if err := w.Element("direction", a.Direction.String()); err != nil {
		return err
	}
	if err := w.Element("relatedStateVariable", a.RelatedStateVariable); err != nil {
		return err
	}
	return w.Pop()
}

func readArgument(r *xmlutil.Reader) (Argument, error) {
	var a Argument
	var haveName, haveDirection, haveRelated bool
	for {
		child, err := r.NextChild("argument")
		if err != nil {
			return Argument{}, err
		}
		if child == nil {
			break
		}
		switch child.Name {
		case "name":
			text, err := r.ReadText("name")
			if err != nil {
				return Argument{}, err
			}
			a.Name = text
			haveName = true
		case "direction":
			text, err := r.ReadText("direction")
			if err != nil {
				return Argument{}, err
			}
			dir, err := ParseArgumentDirection(text)
			if err != nil {
				return Argument{}, err
			}
			a.Direction = dir
			haveDirection = true
		case "relatedStateVariable":
			text, err := r.ReadText("relatedStateVariable")
			if err != nil {
				return Argument{}, err
			}
			a.RelatedStateVariable = text
			haveRelated = true
		default:
			if err := r.ReadToEnd(child.Name); err != nil {
				return Argument{}, err
			}
		}
	}
	if !haveName || !haveDirection || !haveRelated {
		return Argument{}, fmt.Errorf("scpd: argument missing required field")
	}
	return a, nil
}

// Action describes one SCPD <action>: its name and argument list (§4.13:
// "validates call arguments against the declared in-args"), grounded on
// templates/service_description.rs's ScpdAction.
type Action struct {
	Name      string
	Arguments []Argument
}

// InArgs and OutArgs return this action's arguments in declaration order,
// filtered by direction — used by upnp/igdclient/upnp/avtransport's
// "strict" argument-order validation (§4.13).
func (a Action) InArgs() []Argument  { return a.argsWithDirection(In) }
func (a Action) OutArgs() []Argument { return a.argsWithDirection(Out) }

func (a Action) argsWithDirection(dir ArgumentDirection) []Argument {
	var out []Argument
	for _, arg := range a.Arguments {
		if arg.Direction == dir {
			out = append(out, arg)
		}
	}
	return out
}

func (a Action) writeXML(w *xmlutil.Writer) error {
	if err := w.Push("action"); err != nil {
		return err
	}
	if err := w.Element("name", a.Name); err != nil {
		return err
	}
	if len(a.Arguments) > 0 {
		if err := w.Push("argumentList"); err != nil {
			return err
		}
		for _, arg := range a.Arguments {
			if err := arg.writeXML(w); err != nil {
				return err
			}
		}
		if err := w.Pop(); err != nil {
			return err
		}
	}
	return w.Pop()
}

// readAction parses an <action> element's children, assuming its own
// start tag has already been consumed (e.g. by the actionList loop's
// NextChild call), mirroring templates/service_description.rs's
// ScpdAction::read_xml.
func readAction(r *xmlutil.Reader) (Action, error) {
	var act Action
	var haveName bool
	for {
		child, err := r.NextChild("action")
		if err != nil {
			return Action{}, err
		}
		if child == nil {
			break
		}
		switch child.Name {
		case "name":
			name, err := r.ReadText("name")
			if err != nil {
				return Action{}, err
			}
			act.Name = name
			haveName = true
		case "argumentList":
			for {
				argStart, err := r.NextChild("argumentList")
				if err != nil {
					return Action{}, err
				}
				if argStart == nil {
					break
				}
				arg, err := readArgument(r)
				if err != nil {
					return Action{}, err
				}
				act.Arguments = append(act.Arguments, arg)
			}
		default:
			if err := r.ReadToEnd(child.Name); err != nil {
				return Action{}, err
			}
		}
	}
	if !haveName {
		return Action{}, fmt.Errorf("scpd: action missing name")
	}
	return act, nil
}
