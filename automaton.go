package bgrep

import (
	"cmp"
	"slices"
)

// edge is one goto transition of the trie.
type edge struct {
	b  byte
	to int32
}

// automaton is an Aho-Corasick automaton over a fixed set of patterns.
// It is read-only after buildAutomaton returns and may be shared freely.
//
// Transitions out of the root are stored densely so that the common
// "no partial match" case is a single table lookup; every other state keeps
// a sorted slice of edges, which keeps memory proportional to the total
// pattern length instead of 256 entries per state.
type automaton struct {
	root  [256]int32
	edges [][]edge
	fail  []int32
	out   [][]int32 // pattern indices that end exactly at a state
	dict  []int32   // nearest state on the fail chain with output, -1 if none
	lens  []int     // pattern lengths by index
}

func buildAutomaton(patterns []*Pattern) *automaton {
	a := &automaton{
		edges: [][]edge{nil},
		fail:  []int32{0},
		out:   [][]int32{nil},
		dict:  []int32{-1},
		lens:  make([]int, len(patterns)),
	}

	// Phase 1: trie
	for i, p := range patterns {
		a.lens[i] = len(p.bytes)

		state := int32(0)
		for _, b := range p.bytes {
			next, ok := a.child(state, b)
			if !ok {
				next = a.addState()
				a.insertEdge(state, edge{b: b, to: next})
			}

			state = next
		}

		a.out[state] = append(a.out[state], int32(i)) //nolint:gosec // G115
	}

	for _, e := range a.edges[0] {
		a.root[e.b] = e.to
	}

	// Phase 2: fail and dictionary links, breadth first so that every fail
	// target is shallower than the state being linked.
	queue := make([]int32, 0, len(a.fail))
	for _, e := range a.edges[0] {
		queue = append(queue, e.to)
	}

	for len(queue) > 0 {
		state := queue[0]
		queue = queue[1:]

		for _, e := range a.edges[state] {
			f := a.step(a.fail[state], e.b)
			a.fail[e.to] = f

			if len(a.out[f]) > 0 {
				a.dict[e.to] = f
			} else {
				a.dict[e.to] = a.dict[f]
			}

			queue = append(queue, e.to)
		}
	}

	return a
}

func (a *automaton) addState() int32 {
	a.edges = append(a.edges, nil)
	a.fail = append(a.fail, 0)
	a.out = append(a.out, nil)
	a.dict = append(a.dict, -1)

	return int32(len(a.fail) - 1) //nolint:gosec // G115
}

func (a *automaton) insertEdge(state int32, e edge) {
	edges := a.edges[state]
	i, _ := slices.BinarySearchFunc(edges, e.b, compareEdge)
	a.edges[state] = slices.Insert(edges, i, e)
}

func compareEdge(e edge, b byte) int {
	return cmp.Compare(e.b, b)
}

// child returns the goto transition of state on b, if any.
func (a *automaton) child(state int32, b byte) (int32, bool) {
	edges := a.edges[state]
	if len(edges) == 0 {
		return 0, false
	}

	i, found := slices.BinarySearchFunc(edges, b, compareEdge)
	if !found {
		return 0, false
	}

	return edges[i].to, true
}

// step returns the state reached from state on input b, following fail
// links as needed.
func (a *automaton) step(state int32, b byte) int32 {
	for state != 0 {
		if next, ok := a.child(state, b); ok {
			return next
		}

		state = a.fail[state]
	}

	return a.root[b]
}

// scan runs the automaton over data from the root state and calls fn for
// every occurrence that ends after data[from-1], i.e. that has at least one
// byte at or beyond index from. start is the index of the first matched byte.
func (a *automaton) scan(data []byte, from int, fn func(index int32, start int)) {
	state := int32(0)
	for i, b := range data {
		state = a.step(state, b)
		if i < from {
			continue
		}

		for s := state; s > 0; s = a.dict[s] {
			for _, idx := range a.out[s] {
				fn(idx, i+1-a.lens[idx])
			}
		}
	}
}

// states returns the number of automaton states, root included.
func (a *automaton) states() int {
	return len(a.fail)
}
