// Package keypoints implements the key-point sampling algorithm (KPS) for
// MIRROR queries: reducing a path to the minimum set of routers that must
// mirror traffic so that the full-path observation stays unambiguous.
//
// A sub-segment of the path may be left unobserved if and only if it is
// the unique simple path of its length between its endpoints; otherwise an
// intermediate hop could be a different router, and sampling the endpoints
// alone would not tell the two apart.
//
// Two samplers are provided, from cheapest to optimal:
//
//   - SegmentSPT walks the path once and extends the current segment while
//     it coincides with the unique hop-count shortest path between its
//     endpoints;
//   - Exhaustive enumerates all segmentations of the path, fewest segments
//     first, and returns the first whose every segment verifies.
//
// Levels mirrors that ordering so a caller can pick by optimization level.
package keypoints
