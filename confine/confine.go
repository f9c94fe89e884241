package confine

import (
	"sort"

	"go.uber.org/zap"

	"github.com/net-stroboscope/collector/core"
)

// Level selects a confinement algorithm, from least to most optimized.
type Level int

const (
	// LevelEdges confines every directed edge crossing the region boundary.
	LevelEdges Level = iota
	// LevelNodes confines the surrounding node set.
	LevelNodes
	// LevelRelaxed confines the minimum surrounding set.
	LevelRelaxed
)

// Option configures the optional behavior of Relaxed.
type Option func(*options)

type options struct {
	log *zap.Logger
}

// WithLogger routes the warnings and debug output of Relaxed to l.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

// Edges returns the set of directed edges surrounding the region: every
// (u, v) with u inside and v outside. The region nodes must form a
// connected subgraph; a node with no neighbor at all inside the region
// fails with MissingEdgeError.
func Edges(g *core.Graph, region []string) ([]core.Arc, error) {
	regionSet := toSet(region)
	seen := make(map[core.Arc]struct{})
	var out []core.Arc
	for _, node := range region {
		nbrs := g.Neighbors(node)
		inside := false
		for _, v := range nbrs {
			if _, ok := regionSet[v]; ok {
				inside = true
				break
			}
		}
		if !inside {
			return nil, &core.MissingEdgeError{From: node}
		}
		for _, v := range nbrs {
			if _, ok := regionSet[v]; ok {
				continue // omit region-to-region links
			}
			a := core.Arc{From: node, To: v}
			if _, dup := seen[a]; !dup {
				seen[a] = struct{}{}
				out = append(out, a)
			}
		}
	}
	sortArcs(out)
	return out, nil
}

// Nodes returns the surrounding node set of the region: the destination of
// every confinement edge, one rule per outside node.
func Nodes(g *core.Graph, region []string) ([]string, error) {
	edges, err := Edges(g, region)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(edges))
	for _, a := range edges {
		set[a.To] = struct{}{}
	}
	return sortedKeys(set), nil
}

// Relaxed returns the confinement set with the least number of rules while
// keeping a perfect accuracy. It assumes the region is contiguous.
//
// The surrounding set is first pruned of redundant keypoints, then each
// region node still connected once the region-internal edges are cut forms
// a terminal set of its own, and the egress set forms one more, for a node
// multiway cut; when the cut beats the incumbent count, it replaces it.
func Relaxed(g *core.Graph, region []string, opts ...Option) ([]string, error) {
	o := options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	nodes, err := Nodes(g, region)
	if err != nil {
		return nil, err
	}
	regionSet := toSet(region)
	egressSet := make(map[string]struct{})
	for _, e := range g.Egresses() {
		if _, in := regionSet[e]; !in {
			egressSet[e] = struct{}{}
		}
	}
	if len(egressSet) == 0 {
		o.log.Warn("no egresses are defined on the graph, the optimization could remove all locations")
	}
	needed := identifyRedundant(g, nodes, regionSet, egressSet, o.log)
	relaxed := ruleReplacement(g, needed, egressSet, regionSet, o.log)
	o.log.Debug("relaxed confinement set",
		zap.Strings("region", region), zap.Strings("set", relaxed))
	return relaxed, nil
}

// ByLevel returns the confinement locations at the requested optimization
// level, normalized to (router, neighbor) pairs; the neighbor is empty for
// node-level rules.
func ByLevel(g *core.Graph, region []string, level Level) ([]core.Arc, error) {
	switch level {
	case LevelEdges:
		// A confinement edge (u, v) installs its rule on u, the region
		// node, pinned to the interface facing the outside neighbor v.
		return Edges(g, region)
	case LevelNodes, LevelRelaxed:
		var (
			nodes []string
			err   error
		)
		if level == LevelNodes {
			nodes, err = Nodes(g, region)
		} else {
			nodes, err = Relaxed(g, region)
		}
		if err != nil {
			return nil, err
		}
		out := make([]core.Arc, len(nodes))
		for i, n := range nodes {
			out[i] = core.Arc{From: n}
		}
		return out, nil
	}
	return nil, errUnknownLevel(level)
}

func toSet(nodes []string) map[string]struct{} {
	s := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		s[n] = struct{}{}
	}
	return s
}

func sortedKeys(s map[string]struct{}) []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func sortArcs(arcs []core.Arc) {
	sort.Slice(arcs, func(i, j int) bool {
		if arcs[i].From != arcs[j].From {
			return arcs[i].From < arcs[j].From
		}
		return arcs[i].To < arcs[j].To
	})
}
