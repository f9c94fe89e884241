package core

// FindPath returns a simple path from s to t whose every edge satisfies
// the predicate, or nil when the endpoints are disconnected under it.
//
// The search is a bidirectional DFS: one frontier expands forward from s
// along successors, one backward from t along predecessors, and each round
// grows the smaller of the two. It terminates as soon as the frontiers
// meet, or when either side runs out of unexplored nodes.
//
// The returned path is not necessarily shortest; the bounded vertex cut
// only needs any augmenting path.
func FindPath(adj Adjacency, s, t string, ok EdgePredicate) []string {
	if s == t {
		return []string{s}
	}
	pred := map[string]string{s: ""}
	succ := map[string]string{t: ""}
	frontS := []string{s}
	frontT := []string{t}

	for {
		if len(frontS) <= len(frontT) {
			var next []string
			for _, u := range frontS {
				for _, v := range adj.Successors(u) {
					if _, visited := pred[v]; visited {
						continue
					}
					if ok != nil && !ok(u, v) {
						continue
					}
					pred[v] = u
					if _, met := succ[v]; met {
						return assemble(v, pred, succ, s, t)
					}
					next = append(next, v)
				}
			}
			if len(next) == 0 {
				return nil
			}
			frontS = next
		} else {
			var next []string
			for _, u := range frontT {
				for _, v := range adj.Predecessors(u) {
					if _, visited := succ[v]; visited {
						continue
					}
					// The edge being crossed runs v->u.
					if ok != nil && !ok(v, u) {
						continue
					}
					succ[v] = u
					if _, met := pred[v]; met {
						return assemble(v, pred, succ, s, t)
					}
					next = append(next, v)
				}
			}
			if len(next) == 0 {
				return nil
			}
			frontT = next
		}
	}
}

// assemble stitches the two half-paths together at the meeting node.
func assemble(meet string, pred, succ map[string]string, s, t string) []string {
	var head []string
	for u := meet; u != s; u = pred[u] {
		head = append(head, u)
	}
	head = append(head, s)
	// head is currently meet..s, reverse it in place.
	for i, j := 0, len(head)-1; i < j; i, j = i+1, j-1 {
		head[i], head[j] = head[j], head[i]
	}
	for u := meet; u != t; {
		u = succ[u]
		head = append(head, u)
	}
	return head
}
