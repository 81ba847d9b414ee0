package schema

import (
	"fmt"
	"sort"
	"strings"
)

type visitState uint8

const (
	stateVisiting visitState = iota + 1
	stateDone
)

// CheckCycles reports ErrCycleDetected when any component of the table
// reaches itself through component references, including references made
// from inside groups. Undefined references are left for Flatten to report.
func CheckCycles(components ComponentTable) error {
	names := make([]string, 0, len(components))
	for name := range components {
		names = append(names, name)
	}
	sort.Strings(names)

	roots := make([]Member, len(names))
	for i, name := range names {
		roots[i] = Member{Kind: MemberComponent, Name: name}
	}
	return checkReachableCycles(roots, components)
}

// checkReachableCycles runs a depth-first walk over the components reachable
// from members. Each component is expanded at most once, so the walk is
// linear in the size of the table whatever the shape of the references.
func checkReachableCycles(members []Member, components ComponentTable) error {
	state := make(map[string]visitState, len(components))
	var path []string

	var walk func(ms []Member) error
	visit := func(name string) error {
		switch state[name] {
		case stateDone:
			return nil
		case stateVisiting:
			start := 0
			for i, p := range path {
				if p == name {
					start = i
					break
				}
			}
			chain := append(append([]string(nil), path[start:]...), name)
			return fmt.Errorf("%w: component %q references itself (%s)",
				ErrCycleDetected, name, strings.Join(chain, " -> "))
		}
		expansion, ok := components[name]
		if !ok {
			return nil
		}
		state[name] = stateVisiting
		path = append(path, name)
		if err := walk(expansion); err != nil {
			return err
		}
		path = path[:len(path)-1]
		state[name] = stateDone
		return nil
	}
	walk = func(ms []Member) error {
		for _, m := range ms {
			switch m.Kind {
			case MemberGroup:
				if err := walk(m.Members); err != nil {
					return err
				}
			case MemberComponent:
				if err := visit(m.Name); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return walk(members)
}
