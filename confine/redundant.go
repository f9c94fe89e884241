package confine

import (
	"go.uber.org/zap"

	"github.com/net-stroboscope/collector/core"
)

// identifyRedundant drops the keypoints that witness at most one leak.
//
// With every keypoint disconnected from the graph, each candidate is
// restored one at a time and its connected component outside the region is
// explored. The reachability set of the candidate is made of the region
// neighbors reached through it plus the egresses inside its component:
// when it holds at most one element, whatever the keypoint would reveal is
// already revealed by another one, so it is redundant.
func identifyRedundant(g *core.Graph, nodes []string, region, egresses map[string]struct{}, log *zap.Logger) []string {
	removed := toSet(nodes)

	// Adjacency with every keypoint (and its incident edges) removed.
	kpLess := make(map[string]map[string]struct{})
	for _, a := range g.Arcs() {
		if _, ok := removed[a.From]; ok {
			continue
		}
		if _, ok := removed[a.To]; ok {
			continue
		}
		if kpLess[a.From] == nil {
			kpLess[a.From] = make(map[string]struct{})
		}
		kpLess[a.From][a.To] = struct{}{}
	}

	// Neighbors once the keypoint kp is restored: kp regains its full
	// adjacency, every other node additionally sees kp when the original
	// graph links them. A neighbor that is itself a removed keypoint comes
	// back isolated, exactly as restoring only kp's incident edges allows.
	neighbors := func(kp, n string) []string {
		if n == kp {
			return g.Neighbors(n)
		}
		set := make(map[string]struct{}, len(kpLess[n])+1)
		for v := range kpLess[n] {
			set[v] = struct{}{}
		}
		if g.HasEdge(n, kp) {
			set[kp] = struct{}{}
		}
		return sortedKeys(set)
	}

	var needed []string
	for _, kp := range nodes {
		component := make(map[string]struct{})
		reach := make(map[string]struct{})
		stack := []string{kp}
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if _, seen := component[n]; seen {
				continue
			}
			component[n] = struct{}{}
			for _, v := range neighbors(kp, n) {
				if _, in := region[v]; in {
					// A connection looping back into the region.
					reach[v] = struct{}{}
				} else {
					stack = append(stack, v)
				}
			}
		}
		for e := range egresses {
			if _, in := component[e]; in {
				reach[e] = struct{}{}
			}
		}
		if len(reach) > 1 {
			log.Debug("keypoint separates nodes of interest",
				zap.String("keypoint", kp), zap.Strings("reach", sortedKeys(reach)))
			needed = append(needed, kp)
		} else {
			log.Debug("keypoint is redundant", zap.String("keypoint", kp))
		}
	}
	return needed
}

// ruleReplacement consolidates the needed keypoints into an equivalent,
// smaller set by cutting the graph between each still-connected region
// node and the egress set.
func ruleReplacement(g *core.Graph, needed []string, egresses, region map[string]struct{}, log *zap.Logger) []string {
	// Work on the graph with region-internal links removed, then drop the
	// nodes left without any successor.
	work := newCutGraph()
	for _, a := range g.Arcs() {
		_, fromIn := region[a.From]
		_, toIn := region[a.To]
		if fromIn && toIn {
			continue
		}
		work.addArc(a.From, a.To)
	}
	var drop []string
	for _, n := range work.nodes() {
		if len(work.adj[n]) == 0 {
			drop = append(drop, n)
		}
	}
	for _, n := range drop {
		work.removeNode(n)
	}

	nonTerminals := toSet(work.nodes())
	var terminals []map[string]struct{}
	for _, r := range sortedKeys(region) {
		if _, ok := nonTerminals[r]; ok {
			terminals = append(terminals, map[string]struct{}{r: {}})
		}
	}
	if len(egresses) > 0 {
		eg := make(map[string]struct{}, len(egresses))
		for e := range egresses {
			eg[e] = struct{}{}
		}
		terminals = append(terminals, eg)
	}
	if len(terminals) < 2 {
		log.Debug("fewer than two terminal sets, keypoints cannot be reduced")
		return needed
	}
	for _, t := range terminals {
		for n := range t {
			delete(nonTerminals, n)
		}
	}

	cut, err := nodeMultiwayCut(work, terminals, len(needed)-1, nonTerminals)
	if err != nil {
		log.Debug("could not reduce the keypoint set", zap.Error(err))
		return needed
	}
	return sortedKeys(toSet(cut))
}
