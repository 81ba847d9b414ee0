package schema

import (
	"fmt"
	"sort"
)

// RootTag is the tag of a message root node.
const RootTag = -1

// Node is one level of a message field tree. Children of a group node
// describe a single repetition of the group.
type Node struct {
	tag      int
	name     string
	group    bool
	children map[int]*Node
}

// Tag returns the field tag, or RootTag for a message root.
func (n *Node) Tag() int { return n.tag }

// Name returns the field name, or the message name for a root.
func (n *Node) Name() string { return n.name }

// IsGroup reports whether the node is a repeating group counter.
func (n *Node) IsGroup() bool { return n.group }

// Child returns the direct child with the given tag.
func (n *Node) Child(tag int) (*Node, bool) {
	c, ok := n.children[tag]
	return c, ok
}

// HasChildren reports whether the node has any children.
func (n *Node) HasChildren() bool { return len(n.children) > 0 }

// Children returns the direct children ordered by tag.
func (n *Node) Children() []*Node {
	out := make([]*Node, 0, len(n.children))
	for _, c := range n.children {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].tag < out[j].tag })
	return out
}

// Walk calls fn for every descendant of n, depth first, with its depth
// below n (direct children have depth 1).
func (n *Node) Walk(fn func(node *Node, depth int)) {
	n.walk(fn, 1)
}

func (n *Node) walk(fn func(*Node, int), depth int) {
	for _, c := range n.Children() {
		fn(c, depth)
		c.walk(fn, depth+1)
	}
}

// nodeBuilder accumulates children before a Node is published.
type nodeBuilder struct {
	tag      int
	name     string
	group    bool
	children map[int]*Node
}

func newNodeBuilder(tag int, name string, group bool) *nodeBuilder {
	return &nodeBuilder{tag: tag, name: name, group: group, children: make(map[int]*Node)}
}

// add inserts a finished child. A later child with the same tag wins.
func (b *nodeBuilder) add(child *Node) {
	b.children[child.tag] = child
}

func (b *nodeBuilder) build() *Node {
	return &Node{tag: b.tag, name: b.name, group: b.group, children: b.children}
}

// buildTree turns a flattened member list into the children of a new node.
func buildTree(tag int, name string, group bool, members []Member, dict *Dictionary) (*Node, error) {
	b := newNodeBuilder(tag, name, group)
	for _, m := range members {
		if m.Kind == MemberComponent {
			return nil, fmt.Errorf("%w: component %q left after flattening", ErrSchemaParse, m.Name)
		}
		childTag, ok := dict.Tag(m.Name)
		if !ok {
			return nil, &ParseError{
				Source:  "fields",
				Element: m.Kind.String(),
				Name:    m.Name,
				Reason:  "references an undefined field",
			}
		}
		isGroup := dict.IsGroup(childTag)
		var child *Node
		var err error
		if isGroup {
			child, err = buildTree(childTag, m.Name, true, m.Members, dict)
			if err != nil {
				return nil, err
			}
		} else {
			child = newNodeBuilder(childTag, m.Name, false).build()
		}
		b.add(child)
	}
	return b.build(), nil
}
