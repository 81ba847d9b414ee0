package schema

import (
	"fmt"
	"sort"
)

// Schema maps message types to their field trees. Header and trailer fields
// are merged into every message root. A Schema is immutable and safe for
// concurrent readers.
type Schema struct {
	dict     *Dictionary
	messages map[string]*Node
	sources  []string
}

// Build merges docs in order and builds the field tree of every message they
// define. Errors are fatal: a partially built schema is never returned.
func Build(docs ...*Document) (*Schema, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no dictionary documents", ErrSchemaParse)
	}

	dict := NewDictionary(docs...)
	components := NewComponentTable(docs...)
	if err := CheckCycles(components); err != nil {
		return nil, err
	}

	var headerTrailer []Member
	var messages []MessageDef
	sources := make([]string, 0, len(docs))
	for _, doc := range docs {
		headerTrailer = append(headerTrailer, doc.Header...)
		headerTrailer = append(headerTrailer, doc.Trailer...)
		messages = append(messages, doc.Messages...)
		sources = append(sources, doc.Source)
	}

	s := &Schema{
		dict:     dict,
		messages: make(map[string]*Node, len(messages)),
		sources:  sources,
	}
	for _, msg := range messages {
		members := make([]Member, 0, len(msg.Members)+len(headerTrailer))
		members = append(members, msg.Members...)
		members = append(members, headerTrailer...)

		flat, err := Flatten(members, components)
		if err != nil {
			return nil, fmt.Errorf("message %s (%s): %w", msg.Name, msg.MsgType, err)
		}
		root, err := buildTree(RootTag, msg.Name, false, flat, dict)
		if err != nil {
			return nil, fmt.Errorf("message %s (%s): %w", msg.Name, msg.MsgType, err)
		}
		s.messages[msg.MsgType] = root
	}
	return s, nil
}

// Load parses the dictionary files at paths, in order, and builds a Schema.
func Load(paths ...string) (*Schema, error) {
	docs := make([]*Document, 0, len(paths))
	for _, p := range paths {
		doc, err := LoadDocument(p)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return Build(docs...)
}

// Message returns the root node for msgType.
func (s *Schema) Message(msgType string) (*Node, bool) {
	root, ok := s.messages[msgType]
	return root, ok
}

// MessageTypes returns all known message types, sorted.
func (s *Schema) MessageTypes() []string {
	out := make([]string, 0, len(s.messages))
	for t := range s.messages {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Dictionary returns the merged field dictionary.
func (s *Schema) Dictionary() *Dictionary { return s.dict }

// Sources returns the labels of the documents the schema was built from.
func (s *Schema) Sources() []string {
	return append([]string(nil), s.sources...)
}
