package keypoints

import "github.com/net-stroboscope/collector/core"

// Keypoint is one selected mirroring point on a path. Gap is the number of
// hops from this keypoint to the next one; it carries no meaning on the
// final keypoint of a SegmentSPT result.
type Keypoint struct {
	Node string
	Gap  int
}

// Func is the common signature of the samplers.
type Func func(g *core.Graph, path []string) ([]Keypoint, error)

// Levels lists the samplers from least to most optimized; the index is the
// optimization level.
var Levels = []Func{SegmentSPT, Exhaustive}

// precond handles the degenerate paths and validates the real ones.
// For paths of at most two hops there is nothing to optimize and every hop
// is a keypoint; longer paths must exist in the graph edge by edge, which
// the samplers rely on.
func precond(g *core.Graph, path []string) (done bool, kps []Keypoint, err error) {
	if len(path) <= 2 {
		kps = make([]Keypoint, 0, len(path))
		for _, h := range path {
			kps = append(kps, Keypoint{Node: h, Gap: 1})
		}
		return true, kps, nil
	}
	if err := g.CheckPath(path); err != nil {
		return false, nil, err
	}
	return false, nil, nil
}
