package keypoints

import (
	"fmt"
	"sort"

	"github.com/net-stroboscope/collector/core"
)

// Exhaustive finds an optimal keypoint set by trying every ordered
// segmentation of the path, fewest segments first, and returning the first
// one whose every sub-segment is the unique simple path of its length
// between its endpoints.
//
// Verified endpoint pairs are memoized and rejected ones cached, so the
// uniqueness oracle runs at most once per (src, dst) pair.
func Exhaustive(g *core.Graph, path []string) ([]Keypoint, error) {
	done, kps, err := precond(g, path)
	if done || err != nil {
		return kps, err
	}

	candidates := allSegmentations(path)
	sort.SliceStable(candidates, func(i, j int) bool {
		if len(candidates[i]) != len(candidates[j]) {
			return len(candidates[i]) < len(candidates[j])
		}
		return lessSegmentation(candidates[i], candidates[j])
	})

	memo := make(map[[2]string]bool)
	reject := make(map[[2]string]bool)
	for _, segs := range candidates {
		valid := true
		for _, p := range segs {
			if len(p) <= 2 {
				continue // a single edge is always unambiguous
			}
			key := [2]string{p[0], p[len(p)-1]}
			if memo[key] {
				continue
			}
			if reject[key] {
				valid = false
				break
			}
			if countSimplePaths(g, p[0], p[len(p)-1], len(p)-1) < 2 {
				memo[key] = true
			} else {
				reject[key] = true
				valid = false
				break
			}
		}
		if valid {
			return extractKeypoints(segs, path), nil
		}
	}
	// Unreachable: observing every hop is always a valid segmentation.
	return nil, fmt.Errorf("keypoints: no segmentation found for %v", path)
}

// allSegmentations returns every decomposition of the path into contiguous
// sub-segments sharing their endpoints, e.g. [A B C] yields
// [[A B] [B C]] and [[A B C]].
func allSegmentations(path []string) [][][]string {
	if len(path) < 2 {
		return [][][]string{{}}
	}
	var out [][][]string
	for i := 2; i <= len(path); i++ {
		head := path[:i]
		for _, rest := range allSegmentations(path[i-1:]) {
			segs := make([][]string, 0, 1+len(rest))
			segs = append(segs, head)
			segs = append(segs, rest...)
			out = append(out, segs)
		}
	}
	return out
}

// lessSegmentation orders equally-sized segmentations lexicographically,
// so the search order is deterministic.
func lessSegmentation(a, b [][]string) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		for j := 0; j < len(a[i]) && j < len(b[i]); j++ {
			if a[i][j] != b[i][j] {
				return a[i][j] < b[i][j]
			}
		}
		if len(a[i]) != len(b[i]) {
			return len(a[i]) < len(b[i])
		}
	}
	return len(a) < len(b)
}

// extractKeypoints maps a verified segmentation back onto the path: each
// segment start becomes a keypoint whose gap is the hop distance to the
// next one, and the path end closes the list with a zero gap.
func extractKeypoints(segs [][]string, path []string) []Keypoint {
	index := make(map[string]int, len(path))
	for i := len(path) - 1; i >= 0; i-- {
		index[path[i]] = i // first occurrence wins
	}
	kps := make([]Keypoint, 0, len(segs)+1)
	for _, p := range segs {
		start, end := p[0], p[len(p)-1]
		kps = append(kps, Keypoint{Node: start, Gap: index[end] - index[start]})
	}
	return append(kps, Keypoint{Node: path[len(path)-1], Gap: 0})
}

// countSimplePaths counts the simple paths from src to dst using exactly
// edgeCount edges, stopping as soon as two are found. dst never appears as
// an intermediate hop.
//
// The count cannot be assembled from memoized sub-counts: the visited set
// of the enclosing path changes which sub-paths are simple, so the search
// is a plain bounded DFS.
func countSimplePaths(g *core.Graph, src, dst string, edgeCount int) int {
	visited := map[string]bool{src: true}
	count := 0
	var rec func(u string, left int)
	rec = func(u string, left int) {
		if count >= 2 {
			return
		}
		if left == 0 {
			return
		}
		for _, v := range g.Neighbors(u) {
			if v == dst {
				if left == 1 {
					count++
					if count >= 2 {
						return
					}
				}
				continue
			}
			if left == 1 || visited[v] {
				continue
			}
			visited[v] = true
			rec(v, left-1)
			delete(visited, v)
			if count >= 2 {
				return
			}
		}
	}
	rec(src, edgeCount)
	return count
}
