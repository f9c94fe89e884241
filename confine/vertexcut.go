package confine

import (
	"sort"
	"strings"

	"github.com/net-stroboscope/collector/core"
)

// boundedVertexCut decides whether the minimum vertex cut separating the
// node sets src and dst is at most k, returning its size when it is.
//
// The decision reduces to edge max-flow: each set is contracted into one
// supernode, every edge carries one unit of capacity, and a reverse edge
// starting saturated is added wherever one is missing. Ford-Fulkerson then
// augments at most k+1 times with core.FindPath as the path oracle; if a
// (k+1)-th augmenting path exists, the search fails with errCutTooBig.
func boundedVertexCut(g *cutGraph, src, dst []string, k int) (int, error) {
	s := contractedName(src)
	t := contractedName(dst)
	res := newResidual(g, src, dst, s, t)

	flow := 0
	for flow <= k {
		path := core.FindPath(res, s, t, res.usable)
		if len(path) == 0 {
			break // the minimum cut was found
		}
		for i := 0; i+1 < len(path); i++ {
			res.used[core.Arc{From: path[i], To: path[i+1]}]++
			res.used[core.Arc{From: path[i+1], To: path[i]}]--
		}
		flow++
	}
	if flow > k {
		return 0, errCutTooBig
	}
	return flow, nil
}

func contractedName(nodes []string) string {
	if len(nodes) == 1 {
		return nodes[0]
	}
	sorted := append([]string(nil), nodes...)
	sort.Strings(sorted)
	return strings.Join(sorted, "_")
}

// residual is the unit-capacity flow network the augmenting search runs
// on. used counts the flow already pushed on each arc; an arc is usable
// while its counter stays below one.
type residual struct {
	succ map[string]map[string]struct{}
	pred map[string]map[string]struct{}
	used map[core.Arc]int
}

func newResidual(g *cutGraph, src, dst []string, s, t string) *residual {
	srcSet := toSet(src)
	dstSet := toSet(dst)
	rename := func(n string) string {
		if _, ok := srcSet[n]; ok {
			return s
		}
		if _, ok := dstSet[n]; ok {
			return t
		}
		return n
	}
	r := &residual{
		succ: make(map[string]map[string]struct{}),
		pred: make(map[string]map[string]struct{}),
		used: make(map[core.Arc]int),
	}
	add := func(u, v string, used int) {
		a := core.Arc{From: u, To: v}
		if _, ok := r.used[a]; ok {
			return
		}
		r.used[a] = used
		if r.succ[u] == nil {
			r.succ[u] = make(map[string]struct{})
		}
		r.succ[u][v] = struct{}{}
		if r.pred[v] == nil {
			r.pred[v] = make(map[string]struct{})
		}
		r.pred[v][u] = struct{}{}
	}
	for _, a := range g.arcs() {
		u, v := rename(a.From), rename(a.To)
		if u == v {
			continue // contracted self-loop
		}
		add(u, v, 0)
	}
	// Pre-saturated reverse edges let augmentations be undone.
	forward := make([]core.Arc, 0, len(r.used))
	for a := range r.used {
		forward = append(forward, a)
	}
	for _, a := range forward {
		if _, ok := r.used[core.Arc{From: a.To, To: a.From}]; !ok {
			add(a.To, a.From, 1)
		}
	}
	return r
}

func (r *residual) Successors(u string) []string   { return sortedKeys(r.succ[u]) }
func (r *residual) Predecessors(u string) []string { return sortedKeys(r.pred[u]) }

func (r *residual) usable(u, v string) bool {
	return r.used[core.Arc{From: u, To: v}] < 1
}
