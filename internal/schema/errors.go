package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrSchemaParse is matched by every error caused by a malformed dictionary.
	ErrSchemaParse = errors.New("schema: parse error")
	// ErrCycleDetected reports a component that expands into itself.
	ErrCycleDetected = errors.New("schema: component cycle detected")
)

// ParseError describes a malformed dictionary element.
type ParseError struct {
	Source  string // file name or other label of the document
	Element string // element kind, e.g. "field" or "message"
	Name    string // name attribute of the element, when known
	Reason  string
	Err     error
}

func (e *ParseError) Error() string {
	msg := "schema: " + e.Source
	if e.Element != "" {
		msg += ": " + e.Element
		if e.Name != "" {
			msg += fmt.Sprintf(" %q", e.Name)
		}
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrSchemaParse) match any ParseError.
func (e *ParseError) Is(target error) bool { return target == ErrSchemaParse }

func missingAttr(source, element, name, attr string) *ParseError {
	return &ParseError{
		Source:  source,
		Element: element,
		Name:    name,
		Reason:  fmt.Sprintf("missing required attribute %q", attr),
	}
}
