// Package core defines the network graph consumed by every Stroboscope
// algorithm: routers, a distinguished egress subset, and directed links
// carrying an IGP cost, an interface name and an interface address.
//
// Two shortest-path-tree families are derived from the graph and cached:
//
//   - SPT(u, v): every equal-cost shortest path from u to v under the
//     configured link costs (ECMP is a first-class concept, so the result
//     is a set of paths, never a single one);
//   - EdgeSPT(u, v): the same but counting hops, i.e. unit weights.
//
// The package also hosts the two graph primitives shared by the higher
// layers: a bidirectional-DFS path search (FindPath) used as the
// augmenting-path oracle of the bounded vertex cut, and path validation
// (CheckPath) raising MissingEdgeError.
//
// A Graph is mutable while the topology is registered and must be treated
// as read-only once BuildSPT has run; none of the algorithm packages
// mutate it.
//
// Errors (sentinel):
//
//   - ErrInvalidGraph  non-positive or non-finite link cost, or a
//     contradictory relaxation during SPT construction.
//   - ErrMissingEdge   a path or region references a directed edge the
//     graph does not have; carried by MissingEdgeError.
package core
