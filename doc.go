// Package collector is Stroboscope: a traffic-mirroring collector for IP
// networks.
//
// An operator writes declarative queries ("mirror this prefix along this
// path", "confine this prefix to this region") under a global bandwidth
// and time budget; the collector periodically activates hardware
// mirroring rules on the routers so that exactly enough packets reach it
// to answer the queries without exceeding the budget.
//
// The module is organized around the query compiler and scheduler:
//
//	core/      — the network graph, ECMP shortest-path trees, BDFS search
//	keypoints/ — key-point sampling for MIRROR queries
//	confine/   — confinement sets for CONFINE queries (node multiway cut)
//	ilp/       — the small 0/1 MIP solver behind the ILP schedulers
//	schedule/  — FFD, bin-packing, replication and max-filling pipelines
//	query/     — the query model and the requirements compiler
//	lang/      — the requirement-language parser
//	netdb/     — the network database and region resolver
//	campaign/  — the campaign runner and bandwidth accounting
//	backend/   — the SSH rule backends driving the routers
//
// cmd/stroboscope ties everything together: it compiles a requirements
// file against a topology and prints the schedule, or runs the
// measurement campaigns for real.
package collector
