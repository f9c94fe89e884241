package core

import (
	"container/heap"
	"fmt"
	"math"
)

// BuildSPT computes and caches both shortest-path-tree families:
// the cost-weighted one (SPT) and the hop-count one (EdgeSPT).
//
// Call it once after the topology is registered, and again only if the
// graph changes. Complexity is O(V (V+E) log V) plus the size of the ECMP
// path sets.
func (g *Graph) BuildSPT() error {
	// Fail fast on unusable metrics, as the relaxation loop can only
	// detect them indirectly.
	for u, nbrs := range g.succ {
		for v, l := range nbrs {
			if !(l.Cost > 0) || math.IsInf(l.Cost, 0) {
				return fmt.Errorf("%w: edge %s->%s cost=%v", ErrInvalidGraph, u, v, l.Cost)
			}
		}
	}
	var err error
	if g.spt, g.sptDist, err = g.allShortestPaths(true); err != nil {
		return err
	}
	if g.edgeSPT, g.edgeDist, err = g.allShortestPaths(false); err != nil {
		return err
	}
	return nil
}

// SPT returns every equal-cost shortest path from u to v under the link
// costs. The result is empty when v is unreachable or BuildSPT never ran.
func (g *Graph) SPT(u, v string) []Path { return g.spt[u][v] }

// EdgeSPT is SPT with every link counting one hop.
func (g *Graph) EdgeSPT(u, v string) []Path { return g.edgeSPT[u][v] }

// Distance returns the cost-weighted shortest distance from u to v.
func (g *Graph) Distance(u, v string) (float64, bool) {
	d, ok := g.sptDist[u][v]
	return d, ok
}

// EdgeDistance returns the hop-count shortest distance from u to v.
func (g *Graph) EdgeDistance(u, v string) (float64, bool) {
	d, ok := g.edgeDist[u][v]
	return d, ok
}

func (g *Graph) allShortestPaths(useCost bool) (map[string]map[string][]Path, map[string]map[string]float64, error) {
	spt := make(map[string]map[string][]Path, len(g.succ))
	dist := make(map[string]map[string]float64, len(g.succ))
	for _, n := range g.Routers() {
		p, d, err := g.shortestPathsFrom(n, useCost)
		if err != nil {
			return nil, nil, err
		}
		spt[n] = p
		dist[n] = d
	}
	return spt, dist, nil
}

// shortestPathsFrom is a Dijkstra variant that keeps every equal-cost
// shortest path instead of a single predecessor: when the relaxation finds
// vwDist equal to the best-known tentative distance, the new paths extend
// the list (ECMP) rather than replace it. The heap entries carry a
// monotone counter so ties never compare router names.
func (g *Graph) shortestPathsFrom(source string, useCost bool) (map[string][]Path, map[string]float64, error) {
	dist := make(map[string]float64)            // final distances
	paths := map[string][]Path{source: {{source}}} // every shortest path per node
	seen := map[string]float64{source: 0}       // best tentative distances

	count := 0
	fringe := &sptHeap{{dist: 0, order: 0, node: source}}
	heap.Init(fringe)

	for fringe.Len() > 0 {
		item := heap.Pop(fringe).(sptItem)
		v := item.node
		if _, done := dist[v]; done {
			continue // stale heap entry
		}
		d := item.dist
		dist[v] = d
		for _, w := range g.Neighbors(v) {
			weight := 1.0
			if useCost {
				weight = g.succ[v][w].Cost
			}
			vwDist := d + weight
			if dw, done := dist[w]; done {
				if vwDist < dw {
					return nil, nil, fmt.Errorf("%w: contradictory paths found, negative metric?", ErrInvalidGraph)
				}
				continue
			}
			sw, known := seen[w]
			switch {
			case !known || vwDist < sw:
				seen[w] = vwDist
				count++
				heap.Push(fringe, sptItem{dist: vwDist, order: count, node: w})
				paths[w] = extendPaths(paths[v], w)
			case vwDist == sw:
				paths[w] = append(paths[w], extendPaths(paths[v], w)...)
			}
			// vwDist > sw: w already has a better entry pending in the fringe.
		}
	}
	return paths, dist, nil
}

// sptItem is one fringe entry: a node and its tentative distance, with an
// insertion counter as tie breaker.
type sptItem struct {
	dist  float64
	order int
	node  string
}

type sptHeap []sptItem

func (h sptHeap) Len() int { return len(h) }

func (h sptHeap) Less(i, j int) bool {
	if h[i].dist != h[j].dist {
		return h[i].dist < h[j].dist
	}
	return h[i].order < h[j].order
}

func (h sptHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *sptHeap) Push(x interface{}) { *h = append(*h, x.(sptItem)) }

func (h *sptHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
