package schema

import "fmt"

// ComponentTable maps component names to their unflattened member lists.
type ComponentTable map[string][]Member

// NewComponentTable merges the components of docs; a later definition of the
// same name replaces an earlier one.
func NewComponentTable(docs ...*Document) ComponentTable {
	table := make(ComponentTable)
	for _, doc := range docs {
		for _, c := range doc.Components {
			table[c.Name] = c.Members
		}
	}
	return table
}

// Flatten inlines every component reference in members, including those
// nested inside groups, until a full pass performs no replacement.
//
// Components reachable from members are checked for cycles before any
// expansion, so a self-referencing component fails with ErrCycleDetected
// instead of growing the list. The pass limit of len(components)+1 stays as
// a backstop: an acyclic table never needs more.
func Flatten(members []Member, components ComponentTable) ([]Member, error) {
	if err := checkReachableCycles(members, components); err != nil {
		return nil, err
	}
	limit := len(components) + 1
	out := members
	for pass := 0; ; pass++ {
		next, replaced, last, err := flattenPass(out, components)
		if err != nil {
			return nil, err
		}
		if replaced == 0 {
			return next, nil
		}
		if pass >= limit {
			return nil, fmt.Errorf("%w: %q still expanding after %d passes", ErrCycleDetected, last, pass)
		}
		out = next
	}
}

// flattenPass performs one expansion pass and returns the new member list,
// the number of members inserted in place of component references, and the
// name of the last component expanded. The input is never modified.
func flattenPass(members []Member, components ComponentTable) ([]Member, int, string, error) {
	out := make([]Member, 0, len(members))
	replaced := 0
	last := ""
	for _, m := range members {
		switch m.Kind {
		case MemberGroup:
			nested, n, name, err := flattenPass(m.Members, components)
			if err != nil {
				return nil, 0, "", err
			}
			if n > 0 {
				last = name
			}
			replaced += n
			m.Members = nested
			out = append(out, m)
		case MemberComponent:
			expansion, ok := components[m.Name]
			if !ok {
				return nil, 0, "", &ParseError{
					Source:  "components",
					Element: "component",
					Name:    m.Name,
					Reason:  "reference to undefined component",
				}
			}
			out = append(out, expansion...)
			replaced += len(expansion)
			last = m.Name
		default:
			out = append(out, m)
		}
	}
	return out, replaced, last, nil
}
