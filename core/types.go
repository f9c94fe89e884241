package core

import "net/netip"

// DefaultCost is the link cost assumed when a topology does not set one.
const DefaultCost = 1.0

// DefaultIfName is the interface name assumed when a topology does not set one.
const DefaultIfName = "unknown"

// Link carries the attributes of one directed interface.
//
// Cost is the IGP metric used by the weighted shortest-path tree; IfName
// identifies the physical interface on the source router facing the
// destination; Addr is the interface address, used to map mirrored packets
// back to their originating router.
type Link struct {
	Cost   float64
	IfName string
	Addr   netip.Prefix
}

// LinkOpts carries optional per-direction attributes for AddLink and
// AddDirectedLink. Zero values fall back to the defaults: Cost 1, IfName
// "unknown", Addr 0.0.0.0/0.
type LinkOpts struct {
	Cost   float64
	IfName string
	Addr   netip.Prefix
}

// Arc identifies a directed edge by its endpoints.
type Arc struct {
	From string
	To   string
}

// Path is an ordered walk through the graph, as router names.
type Path []string

// Clone returns a copy of the path with its own backing array, so that
// extending one ECMP sibling never aliases another.
func (p Path) Clone() Path {
	c := make(Path, len(p))
	copy(c, p)
	return c
}

// Extend returns a fresh path equal to p followed by n.
func (p Path) Extend(n string) Path {
	c := make(Path, len(p), len(p)+1)
	copy(c, p)
	return append(c, n)
}

// extendPaths copies every path in the list and appends n to each copy.
// Copy-on-extend keeps the ECMP path sets free of aliasing.
func extendPaths(paths []Path, n string) []Path {
	out := make([]Path, 0, len(paths))
	for _, p := range paths {
		out = append(out, p.Extend(n))
	}
	return out
}

// Adjacency is the minimal view of a directed graph required by FindPath.
// Implementations must return neighbor sets in a deterministic order.
//
// The bounded vertex cut implements it on top of a residual-capacity
// overlay rather than on Graph itself.
type Adjacency interface {
	// Successors returns every v such that the directed edge u->v exists.
	Successors(u string) []string
	// Predecessors returns every v such that the directed edge v->u exists.
	Predecessors(u string) []string
}

// EdgePredicate gates the traversal of one directed edge during FindPath.
// A nil predicate admits every edge.
type EdgePredicate func(from, to string) bool
