// Package models contains domain types for the FIX log viewer.
package models

// FieldToken is one tag=value pair of an embedded FIX message, in the order
// it appeared in the log line.
type FieldToken struct {
	Tag   int    `json:"tag" msgpack:"tag"`
	Value string `json:"value" msgpack:"value"`
}

// Marker values prefixed to rendered lines.
const (
	MarkerBranch       = '+' // first field of a level or of a new group repetition
	MarkerContinuation = '|' // further field of the current repetition
	MarkerUnmatched    = '*' // field not matched by the message tree
)

// RenderedField is one output line of a rendered message.
type RenderedField struct {
	Depth       int    `json:"depth" msgpack:"depth"`
	Marker      string `json:"marker" msgpack:"marker"`
	Tag         int    `json:"tag" msgpack:"tag"`
	Name        string `json:"name" msgpack:"name"`
	Value       string `json:"value" msgpack:"value"`
	Description string `json:"description,omitempty" msgpack:"description,omitempty"`
	Text        string `json:"text" msgpack:"text"`
}

// RenderResult is the structured rendering of one log line.
type RenderResult struct {
	MsgType     string          `json:"msgType" msgpack:"msgType"`
	MessageName string          `json:"messageName,omitempty" msgpack:"messageName,omitempty"`
	Version     string          `json:"version" msgpack:"version"`
	Fields      []RenderedField `json:"fields" msgpack:"fields"`
	Lines       []string        `json:"lines" msgpack:"lines"`
}
