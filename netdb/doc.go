// Package netdb holds the network database the collector compiles
// against: the complete topology with its shortest-path trees, the
// mapping of interface addresses back to routers, and the bandwidth
// measurements of past campaigns used to predict per-prefix demand.
//
// The database also implements region resolution: expanding the "->"
// wildcards of operator regions into concrete paths by walking the
// ECMP-aware shortest-path trees. A leading arrow seeds one path per
// egress, a trailing arrow fans out to every egress, and a medial arrow
// bridges the gap with every shortest path between its anchors, each
// equal-cost sibling yielding a distinct output path.
//
// DB implements query.Network; topologies can be loaded from a small YAML
// format with LoadTopology.
package netdb
