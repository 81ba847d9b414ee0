// Package schema loads QuickFIX-style XML data dictionaries and turns them
// into immutable per-message field trees used to render FIX messages.
package schema

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// MemberKind distinguishes the three kinds of entries in a member list.
type MemberKind int

const (
	MemberField MemberKind = iota
	MemberGroup
	MemberComponent
)

func (k MemberKind) String() string {
	switch k {
	case MemberField:
		return "field"
	case MemberGroup:
		return "group"
	case MemberComponent:
		return "component"
	default:
		return "unknown"
	}
}

// Member is one entry of a message, group, component, header or trailer.
// Only groups carry nested Members before flattening; components are
// references resolved through a ComponentTable.
type Member struct {
	Kind     MemberKind
	Name     string
	Required bool
	Members  []Member
}

// FieldDef is a field definition from the <fields> section.
type FieldDef struct {
	Tag    int
	Name   string
	Type   string
	Values []EnumValue
}

// EnumValue is one enumerated code of a field.
type EnumValue struct {
	Code        string
	Description string
}

// ComponentDef is a named reusable member list.
type ComponentDef struct {
	Name    string
	Members []Member
}

// MessageDef is a message definition from the <messages> section.
type MessageDef struct {
	Name     string
	MsgType  string
	Category string
	Members  []Member
}

// Document is one parsed dictionary file.
type Document struct {
	Source      string
	Type        string
	Major       string
	Minor       string
	ServicePack string
	Header      []Member
	Trailer     []Member
	Messages    []MessageDef
	Components  []ComponentDef
	Fields      []FieldDef
}

// Version returns the BeginString-style version of the document,
// e.g. "FIX.4.4" or "FIXT.1.1".
func (d *Document) Version() string {
	prefix := d.Type
	if prefix == "" {
		prefix = "FIX"
	}
	v := fmt.Sprintf("%s.%s.%s", prefix, d.Major, d.Minor)
	if d.ServicePack != "" && d.ServicePack != "0" {
		v += "SP" + d.ServicePack
	}
	return v
}

type dictionaryXML struct {
	XMLName     xml.Name       `xml:"fix"`
	Type        string         `xml:"type,attr"`
	Major       string         `xml:"major,attr"`
	Minor       string         `xml:"minor,attr"`
	ServicePack string         `xml:"servicepack,attr"`
	Header      sectionXML     `xml:"header"`
	Trailer     sectionXML     `xml:"trailer"`
	Messages    []messageXML   `xml:"messages>message"`
	Components  []componentXML `xml:"components>component"`
	Fields      []fieldXML     `xml:"fields>field"`
}

type sectionXML struct {
	Members []memberXML `xml:",any"`
}

type messageXML struct {
	Name     string      `xml:"name,attr"`
	MsgType  string      `xml:"msgtype,attr"`
	Category string      `xml:"msgcat,attr"`
	Members  []memberXML `xml:",any"`
}

type componentXML struct {
	Name    string      `xml:"name,attr"`
	Members []memberXML `xml:",any"`
}

type memberXML struct {
	XMLName  xml.Name
	Name     string      `xml:"name,attr"`
	Required string      `xml:"required,attr"`
	Members  []memberXML `xml:",any"`
}

type fieldXML struct {
	Name   string     `xml:"name,attr"`
	Number string     `xml:"number,attr"`
	Type   string     `xml:"type,attr"`
	Values []valueXML `xml:"value"`
}

type valueXML struct {
	Enum        *string `xml:"enum,attr"`
	Description *string `xml:"description,attr"`
}

// LoadDocument reads and parses a dictionary file.
func LoadDocument(path string) (*Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dictionary %s: %w", path, err)
	}
	defer file.Close()

	return ParseDocument(file, filepath.Base(path))
}

// ParseDocument parses a dictionary from r. source labels the document in
// error messages.
func ParseDocument(r io.Reader, source string) (*Document, error) {
	var raw dictionaryXML
	if err := xml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, &ParseError{Source: source, Reason: "malformed document", Err: err}
	}

	doc := &Document{
		Source:      source,
		Type:        raw.Type,
		Major:       raw.Major,
		Minor:       raw.Minor,
		ServicePack: raw.ServicePack,
	}

	var err error
	if doc.Header, err = convertMembers(source, raw.Header.Members); err != nil {
		return nil, err
	}
	if doc.Trailer, err = convertMembers(source, raw.Trailer.Members); err != nil {
		return nil, err
	}

	for _, f := range raw.Fields {
		def, err := convertField(source, f)
		if err != nil {
			return nil, err
		}
		doc.Fields = append(doc.Fields, def)
	}

	for _, c := range raw.Components {
		if c.Name == "" {
			return nil, missingAttr(source, "component", "", "name")
		}
		members, err := convertMembers(source, c.Members)
		if err != nil {
			return nil, err
		}
		doc.Components = append(doc.Components, ComponentDef{Name: c.Name, Members: members})
	}

	for _, m := range raw.Messages {
		if m.Name == "" {
			return nil, missingAttr(source, "message", "", "name")
		}
		if m.MsgType == "" {
			return nil, missingAttr(source, "message", m.Name, "msgtype")
		}
		members, err := convertMembers(source, m.Members)
		if err != nil {
			return nil, err
		}
		doc.Messages = append(doc.Messages, MessageDef{
			Name:     m.Name,
			MsgType:  m.MsgType,
			Category: m.Category,
			Members:  members,
		})
	}

	return doc, nil
}

func convertField(source string, f fieldXML) (FieldDef, error) {
	if f.Name == "" {
		return FieldDef{}, missingAttr(source, "field", "", "name")
	}
	if f.Number == "" {
		return FieldDef{}, missingAttr(source, "field", f.Name, "number")
	}
	if f.Type == "" {
		return FieldDef{}, missingAttr(source, "field", f.Name, "type")
	}
	tag, err := strconv.Atoi(strings.TrimSpace(f.Number))
	if err != nil || tag <= 0 {
		return FieldDef{}, &ParseError{
			Source:  source,
			Element: "field",
			Name:    f.Name,
			Reason:  fmt.Sprintf("invalid number %q", f.Number),
		}
	}

	def := FieldDef{Tag: tag, Name: f.Name, Type: f.Type}
	for _, v := range f.Values {
		if v.Enum == nil {
			return FieldDef{}, missingAttr(source, "value", f.Name, "enum")
		}
		if v.Description == nil {
			return FieldDef{}, missingAttr(source, "value", f.Name, "description")
		}
		def.Values = append(def.Values, EnumValue{Code: *v.Enum, Description: *v.Description})
	}
	return def, nil
}

// convertMembers keeps field, group and component elements in document order
// and ignores anything else.
func convertMembers(source string, raw []memberXML) ([]Member, error) {
	var out []Member
	for _, m := range raw {
		var kind MemberKind
		switch m.XMLName.Local {
		case "field":
			kind = MemberField
		case "group":
			kind = MemberGroup
		case "component":
			kind = MemberComponent
		default:
			continue
		}
		if m.Name == "" {
			return nil, missingAttr(source, m.XMLName.Local, "", "name")
		}

		member := Member{
			Kind:     kind,
			Name:     m.Name,
			Required: m.Required == "Y",
		}
		if kind == MemberGroup {
			nested, err := convertMembers(source, m.Members)
			if err != nil {
				return nil, err
			}
			member.Members = nested
		}
		out = append(out, member)
	}
	return out, nil
}
