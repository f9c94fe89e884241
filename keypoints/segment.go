package keypoints

import (
	"slices"

	"github.com/net-stroboscope/collector/core"
)

// SegmentSPT finds keypoints with a single walk along the path, using the
// cached hop-count shortest paths.
//
// The current segment grows while it stays the unique edge-count shortest
// path between its endpoints. A keypoint is emitted as soon as either a
// competing equal-length shortest path appears (an intermediate hop would
// be ambiguous) or the walked path stops being a shortest path at all.
func SegmentSPT(g *core.Graph, path []string) ([]Keypoint, error) {
	done, kps, err := precond(g, path)
	if done || err != nil {
		return kps, err
	}
	length := len(path)
	var out []Keypoint
	start := 0
	for start < length {
		segEnd := segmentEnd(g, path, start, length) - 1
		out = append(out, Keypoint{Node: path[start], Gap: segEnd - start})
		start = segEnd
	}
	return out, nil
}

// segmentEnd returns the index of the first path element no longer covered
// by the edge-count SPT of the segment starting at start.
func segmentEnd(g *core.Graph, path []string, start, maxLen int) int {
	// A single edge is always its own shortest path.
	end := start + 2
	for end < maxLen {
		ps := g.EdgeSPT(path[start], path[end])
		if len(ps) > 1 {
			// Multiple disjoint shortest paths.
			return end
		}
		if len(ps) == 0 || !slices.Equal(ps[0], core.Path(path[start:end+1])) {
			// There exists a path shorter than the walked one.
			return end
		}
		end++
	}
	return end
}
