package confine

import (
	"fmt"
	"sort"

	"github.com/net-stroboscope/collector/core"
)

// cutGraph is the small mutable graph snapshot the multiway-cut recursion
// works on. Removing a node copies the structure, so every branch of the
// backtracking owns its own view.
type cutGraph struct {
	adj  map[string]map[string]struct{}
	back map[string]map[string]struct{}
}

func newCutGraph() *cutGraph {
	return &cutGraph{
		adj:  make(map[string]map[string]struct{}),
		back: make(map[string]map[string]struct{}),
	}
}

func (g *cutGraph) addArc(u, v string) {
	if g.adj[u] == nil {
		g.adj[u] = make(map[string]struct{})
	}
	if g.adj[v] == nil {
		g.adj[v] = make(map[string]struct{})
	}
	g.adj[u][v] = struct{}{}
	if g.back[v] == nil {
		g.back[v] = make(map[string]struct{})
	}
	g.back[v][u] = struct{}{}
}

func (g *cutGraph) removeNode(n string) {
	for v := range g.adj[n] {
		delete(g.back[v], n)
	}
	for u := range g.back[n] {
		delete(g.adj[u], n)
	}
	delete(g.adj, n)
	delete(g.back, n)
}

func (g *cutGraph) withoutNode(n string) *cutGraph {
	c := newCutGraph()
	for u, nbrs := range g.adj {
		if u == n {
			continue
		}
		if c.adj[u] == nil {
			c.adj[u] = make(map[string]struct{})
		}
		for v := range nbrs {
			if v == n {
				continue
			}
			c.addArc(u, v)
		}
	}
	return c
}

func (g *cutGraph) nodes() []string {
	out := make([]string, 0, len(g.adj))
	for n := range g.adj {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (g *cutGraph) succ(u string) []string {
	out := make([]string, 0, len(g.adj[u]))
	for v := range g.adj[u] {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func (g *cutGraph) arcs() []core.Arc {
	var out []core.Arc
	for u, nbrs := range g.adj {
		for v := range nbrs {
			out = append(out, core.Arc{From: u, To: v})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// nodeMultiwayCut decides whether at most k non-terminal deletions can
// disconnect every pair of distinct terminal sets, and returns the deleted
// set if so. Failure is reported as errNoReduction.
//
// The recursion follows Chen, Liu and Lu 2009:
//
//  1. an edge with its ends in two different terminal sets is hopeless;
//  2. a non-terminal neighboring two different terminal sets must be cut;
//  3. if the minimum vertex cut m1 between T1 and the union of the others
//     exceeds k, fail; if it is zero, T1 is already isolated and drops out;
//  4. otherwise grow T1 by a neighboring non-terminal u: when the cut is
//     unchanged the grown set is equivalent (recurse as is); when the cut
//     grew, u is a separator candidate, so first try cutting it and fall
//     back to growing if the sub-search fails.
//
// Growing a terminal set can never shrink its minimum cut; observing the
// contrary is a programming bug and panics.
func nodeMultiwayCut(g *cutGraph, terminals []map[string]struct{}, k int, nonTerminals map[string]struct{}) ([]string, error) {
	// 1. Edges between two different terminal sets cannot be cut by
	// deleting non-terminals.
	for _, a := range g.arcs() {
		uSet, uOK := terminalIndex(terminals, a.From)
		vSet, vOK := terminalIndex(terminals, a.To)
		if uOK && vOK && uSet != vSet {
			return nil, fmt.Errorf("%w: edge %s->%s joins two terminal sets", errNoReduction, a.From, a.To)
		}
	}
	// 2. A non-terminal with neighbors in two terminal sets must be cut.
	for _, w := range sortedKeys(nonTerminals) {
		touched := make(map[int]struct{})
		for _, v := range g.succ(w) {
			if idx, ok := terminalIndex(terminals, v); ok {
				touched[idx] = struct{}{}
			}
		}
		if len(touched) < 2 {
			continue
		}
		result, err := nodeMultiwayCut(g.withoutNode(w), terminals, k-1, without(nonTerminals, w))
		if err != nil {
			return nil, err
		}
		return append(result, w), nil
	}
	// 3. Bound the cut between T1 and everything else.
	t1 := terminals[0]
	rest := terminals[1:]
	restFlat := flatten(rest)
	m1, err := boundedVertexCut(g, sortedKeys(t1), restFlat, k)
	if err != nil {
		return nil, fmt.Errorf("%w: the minimum vertex cut exceeds %d", errNoReduction, k)
	}
	if m1 == 0 {
		if len(terminals) == 2 {
			return []string{}, nil
		}
		return nodeMultiwayCut(g, rest, k, nonTerminals)
	}
	// 4. Pick a non-terminal adjacent to T1 and grow.
	u, ok := pickNeighbor(g, t1, nonTerminals)
	if !ok {
		return nil, fmt.Errorf("%w: no non-terminal neighbors T1", errNoReduction)
	}
	t1Grown := clone(t1)
	t1Grown[u] = struct{}{}
	ntWithoutU := without(nonTerminals, u)

	m, err := boundedVertexCut(g, sortedKeys(t1Grown), restFlat, m1)
	if err == nil {
		if m < m1 {
			panic("confine: growing a terminal set reduced its minimum cut")
		}
		// The grown set kept the same cut, it is equivalent to T1.
		return nodeMultiwayCut(g, prepend(t1Grown, rest), k, ntWithoutU)
	}
	// Adding u raised the cut, so u is a separator candidate.
	if s, err := nodeMultiwayCut(g.withoutNode(u), terminals, k-1, ntWithoutU); err == nil {
		return append(s, u), nil
	}
	// The sub-search failed, swap T1 for the grown set instead.
	return nodeMultiwayCut(g, prepend(t1Grown, rest), k, ntWithoutU)
}

func terminalIndex(terminals []map[string]struct{}, n string) (int, bool) {
	for i, t := range terminals {
		if _, ok := t[n]; ok {
			return i, true
		}
	}
	return 0, false
}

func pickNeighbor(g *cutGraph, t1, nonTerminals map[string]struct{}) (string, bool) {
	candidates := make(map[string]struct{})
	for t := range t1 {
		for _, v := range g.succ(t) {
			if _, ok := nonTerminals[v]; ok {
				candidates[v] = struct{}{}
			}
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	return sortedKeys(candidates)[0], true
}

func flatten(sets []map[string]struct{}) []string {
	merged := make(map[string]struct{})
	for _, s := range sets {
		for n := range s {
			merged[n] = struct{}{}
		}
	}
	return sortedKeys(merged)
}

func clone(s map[string]struct{}) map[string]struct{} {
	c := make(map[string]struct{}, len(s))
	for n := range s {
		c[n] = struct{}{}
	}
	return c
}

func without(s map[string]struct{}, n string) map[string]struct{} {
	c := clone(s)
	delete(c, n)
	return c
}

func prepend(head map[string]struct{}, rest []map[string]struct{}) []map[string]struct{} {
	out := make([]map[string]struct{}, 0, len(rest)+1)
	out = append(out, head)
	out = append(out, rest...)
	return out
}
