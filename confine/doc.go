// Package confine places the rules answering a CONFINE query: given a
// connected region of the graph, it computes the locations outside the
// region where matching traffic is a protocol violation.
//
// Three optimization levels are provided, each valid under stronger
// assumptions than the previous one:
//
//   - Edges (level 0): every directed edge leaving the region.
//   - Nodes (level 1): the surrounding nodes, one rule per outside
//     neighbor; requires that no interfering traffic legitimately crosses
//     the region's neighborhood.
//   - Relaxed (level 2): the minimum set of surrounding nodes. Redundant
//     keypoints (witnessing a single leak) are pruned, then the survivors
//     are consolidated by solving a parameterized minimum node multiway
//     cut separating each remaining region node from the others and from
//     the egress set. Additionally requires no forwarding anomalies.
//
// The multiway cut follows "An Improved Parameterized Algorithm for the
// Minimum Node Multiway Cut Problem", Chen, Liu and Lu, Algorithmica 55,
// 2009, running in O(|V|^3 k 4^k). Its vertex-cut oracle reduces to edge
// max-flow bounded at k augmentations, reusing core.FindPath as the
// augmenting-path search.
//
// Failures internal to the search (errCutTooBig, errNoReduction) drive
// backtracking and never escape the package: when no reduction is
// possible, Relaxed simply returns the pruned level-1 set.
package confine
